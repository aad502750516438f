package session

import (
	"context"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/scylladb/go-cql-driver/cluster"
	"github.com/scylladb/go-cql-driver/cqltype"
	"github.com/scylladb/go-cql-driver/frame"
	"github.com/scylladb/go-cql-driver/policy"
	"github.com/scylladb/go-cql-driver/transport"
)

// fakeNode speaks just enough CQL to let a Session round-trip a prepared
// statement and a simple query: STARTUP/OPTIONS handshake, then whatever
// respond callback the test supplies for PREPARE/EXECUTE/QUERY.
func fakeNode(t *testing.T, respond func(hdr frame.Header, body []byte) (frame.OpCode, []byte)) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go serveFakeNode(conn, respond)
		}
	}()
	t.Cleanup(func() { ln.Close() })
	return ln.Addr().String()
}

func serveFakeNode(conn net.Conn, respond func(hdr frame.Header, body []byte) (frame.OpCode, []byte)) {
	defer conn.Close()
	for {
		hdrBuf := make([]byte, frame.HeaderSize)
		if _, err := readFullT(conn, hdrBuf); err != nil {
			return
		}
		hdr := frame.ParseHeader(frame.NewBuffer(hdrBuf))
		body := make([]byte, hdr.Length)
		if hdr.Length > 0 {
			if _, err := readFullT(conn, body); err != nil {
				return
			}
		}

		var respOp frame.OpCode
		var respBody []byte
		switch hdr.OpCode {
		case frame.OpStartup:
			respOp = frame.OpReady
		case frame.OpOptions:
			b := &frame.Buffer{}
			b.WriteShort(0)
			respOp, respBody = frame.OpSupported, b.Bytes()
		default:
			respOp, respBody = respond(hdr, body)
		}

		respHdr := frame.Header{
			Version:  frame.ResponseVersion(),
			StreamID: hdr.StreamID,
			OpCode:   respOp,
			Length:   frame.Int(len(respBody)),
		}
		out := &frame.Buffer{}
		respHdr.WriteTo(out)
		out.Write(respBody)
		if _, err := conn.Write(out.Bytes()); err != nil {
			return
		}
	}
}

func readFullT(conn net.Conn, buf []byte) (int, error) {
	n := 0
	for n < len(buf) {
		m, err := conn.Read(buf[n:])
		n += m
		if err != nil {
			return n, err
		}
	}
	return n, nil
}

func voidResultBody() []byte {
	b := &frame.Buffer{}
	b.WriteInt(frame.ResultVoid)
	return b.Bytes()
}

func preparedResultBody(id []byte) []byte {
	b := &frame.Buffer{}
	b.WriteInt(frame.ResultPrepared)
	b.WriteShortBytes(id)
	b.WritePreparedFlags(0)
	b.WriteInt(0) // columns count
	b.WriteInt(0) // pk count
	b.WriteResultFlags(0)
	b.WriteInt(0) // columns count
	return b.Bytes()
}

// newTestSession builds a Session already Connected to a single fake host,
// bypassing the real topology-discovery bootstrap so tests can exercise the
// execute pipeline in isolation.
func newTestSession(t *testing.T, addr string) *Session {
	t.Helper()
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		t.Fatalf("split addr: %v", err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		t.Fatalf("parse port: %v", err)
	}

	cfg := DefaultConfig("ks", addr)
	cfg.ConnectTimeout = 2 * time.Second
	cfg.ReadTimeout = 2 * time.Second
	s := NewSession(cfg)

	h := cluster.NewHost(cqltype.UUID{}, net.ParseIP(host), port, "dc1", "rack1")
	s.registry.AddHost(h)
	s.registry.MarkUp(h.Addr)

	poolCfg := transport.PoolConfig{
		ConnConfig: transport.ConnConfig{Host: host, Port: port, ConnectTimeout: cfg.ConnectTimeout, WriteTimeout: cfg.ReadTimeout},
		Size:       1,
	}
	pool, err := transport.NewPool(context.Background(), poolCfg)
	if err != nil {
		t.Fatalf("new pool: %v", err)
	}
	s.pools[h.Addr.String()] = pool
	s.planner = policy.NewRoundRobin(s.registry)
	s.state = Connected
	return s
}

func TestQueryExecSimple(t *testing.T) {
	addr := fakeNode(t, func(hdr frame.Header, body []byte) (frame.OpCode, []byte) {
		if hdr.OpCode != frame.OpQuery {
			return frame.OpError, nil
		}
		return frame.OpResult, voidResultBody()
	})
	s := newTestSession(t, addr)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := s.NewQuery("INSERT INTO t (k) VALUES (?)", 1).SkipPrepare().Exec(ctx); err != nil {
		t.Fatalf("exec: %v", err)
	}
}

func TestQueryExecPrepared(t *testing.T) {
	prepID := []byte{1, 2, 3, 4}
	addr := fakeNode(t, func(hdr frame.Header, body []byte) (frame.OpCode, []byte) {
		switch hdr.OpCode {
		case frame.OpPrepare:
			return frame.OpResult, preparedResultBody(prepID)
		case frame.OpExecute:
			return frame.OpResult, voidResultBody()
		default:
			return frame.OpError, nil
		}
	})
	s := newTestSession(t, addr)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := s.NewQuery("INSERT INTO t (k) VALUES (?)").Exec(ctx); err != nil {
		t.Fatalf("exec: %v", err)
	}

	// second call must hit the cache, not issue a second PREPARE
	if _, ok := s.prepared.get("INSERT INTO t (k) VALUES (?)"); !ok {
		t.Fatal("expected statement to be cached after first execute")
	}
	if err := s.NewQuery("INSERT INTO t (k) VALUES (?)").Exec(ctx); err != nil {
		t.Fatalf("second exec: %v", err)
	}
}

func TestBatchExec(t *testing.T) {
	prepID := []byte{9, 9}
	addr := fakeNode(t, func(hdr frame.Header, body []byte) (frame.OpCode, []byte) {
		switch hdr.OpCode {
		case frame.OpPrepare:
			// one Int bind marker, matching the single "?" each statement binds
			b := &frame.Buffer{}
			b.WriteInt(frame.ResultPrepared)
			b.WriteShortBytes(prepID)
			b.WritePreparedFlags(0)
			b.WriteInt(1) // columns count
			b.WriteInt(0) // pk count
			b.WriteString("ks")
			b.WriteString("t")
			b.WriteString("k")
			b.WriteShort(frame.Short(frame.OptionInt))
			b.WriteResultFlags(0)
			b.WriteInt(0) // columns count
			return frame.OpResult, b.Bytes()
		case frame.OpBatch:
			return frame.OpResult, voidResultBody()
		default:
			return frame.OpError, nil
		}
	})
	s := newTestSession(t, addr)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	b := s.NewBatch(frame.BatchLogged).Query("INSERT INTO t (k) VALUES (?)", 1).Query("INSERT INTO t (k) VALUES (?)", 2)
	if err := b.Exec(ctx); err != nil {
		t.Fatalf("batch exec: %v", err)
	}
}
