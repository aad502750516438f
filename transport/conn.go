// Package transport implements a single connection to a CQL host: the
// frame request/response multiplexing over stream IDs, the STARTUP/
// AUTHENTICATE handshake, TLS, heartbeats and defunct detection, and a
// simple per-host connection pool.
package transport

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/scylladb/go-log"
	"go.uber.org/atomic"

	"github.com/scylladb/go-cql-driver/cqlerr"
	"github.com/scylladb/go-cql-driver/frame"
)

// Authenticator answers a server AUTHENTICATE challenge. PasswordAuthenticator
// below is the common case; callers may supply their own for SASL-style
// mechanisms the same way the teacher's conn.go leaves room for.
type Authenticator interface {
	// InitialResponse returns the AUTH_RESPONSE body sent in answer to the
	// server naming authenticatorName.
	InitialResponse(authenticatorName string) ([]byte, error)
	// Challenge answers a subsequent AUTH_CHALLENGE; most mechanisms never
	// see one after the initial response.
	Challenge(challenge []byte) ([]byte, error)
}

// PasswordAuthenticator implements the server's built-in
// PasswordAuthenticator (plain-text username/password).
type PasswordAuthenticator struct {
	Username string
	Password string
}

func (a PasswordAuthenticator) InitialResponse(string) ([]byte, error) {
	b := make([]byte, 0, len(a.Username)+len(a.Password)+2)
	b = append(b, 0)
	b = append(b, a.Username...)
	b = append(b, 0)
	b = append(b, a.Password...)
	return b, nil
}

func (a PasswordAuthenticator) Challenge([]byte) ([]byte, error) {
	return nil, fmt.Errorf("transport: unexpected AUTH_CHALLENGE for PasswordAuthenticator")
}

// ConnConfig configures a single connection's dial and handshake behavior.
type ConnConfig struct {
	Host      string
	Port      int
	Keyspace  string
	TLSConfig *tls.Config

	Authenticator Authenticator

	ConnectTimeout time.Duration
	WriteTimeout   time.Duration

	// HeartbeatInterval is the idle duration after which Conn sends an
	// OPTIONS frame to keep the connection alive and detect a dead peer
	// early; zero disables heartbeats.
	HeartbeatInterval time.Duration
	// DefunctReadTimeout is the longest a single request may wait for a
	// response before it is surfaced to its own caller as OperationTimedOut.
	DefunctReadTimeout time.Duration
	// DefunctReadTimeoutThreshold is how many requests must be
	// simultaneously timed out on this connection before it is considered
	// defunct and every other in-flight request fails too; zero means the
	// default of 64. A single slow request never defuncts the connection by
	// itself.
	DefunctReadTimeoutThreshold int

	// MaxRequestsPerConnection bounds how many requests may be in flight on
	// this connection at once; zero means the default of 2048. SendRequest
	// returns BusyConnection once the cap is hit so the pool/session can try
	// a sibling connection instead.
	MaxRequestsPerConnection int

	Logger log.Logger
}

// defunctThreshold returns the configured DefunctReadTimeoutThreshold, or
// its default of 64 if unset.
func (c ConnConfig) defunctThreshold() int {
	if c.DefunctReadTimeoutThreshold <= 0 {
		return 64
	}
	return c.DefunctReadTimeoutThreshold
}

// maxRequests returns the configured MaxRequestsPerConnection, or its
// default of 2048 if unset.
func (c ConnConfig) maxRequests() int {
	if c.MaxRequestsPerConnection <= 0 {
		return 2048
	}
	return c.MaxRequestsPerConnection
}

// DefaultConnConfig mirrors transport.DefaultConnConfig in the vendored
// driver, extended with the heartbeat/defunct knobs spec.md §4.3 requires.
func DefaultConnConfig(host string) ConnConfig {
	return ConnConfig{
		Host:                        host,
		Port:                        9042,
		ConnectTimeout:              10 * time.Second,
		WriteTimeout:                10 * time.Second,
		HeartbeatInterval:           30 * time.Second,
		DefunctReadTimeout:          60 * time.Second,
		DefunctReadTimeoutThreshold: 64,
		MaxRequestsPerConnection:    2048,
		Logger:                      log.NopLogger,
	}
}

type response struct {
	header frame.Header
	body   []byte
	err    error
}

// Conn is a single multiplexed connection to one CQL host. All exported
// methods are safe for concurrent use.
type Conn struct {
	cfg  ConnConfig
	conn net.Conn

	streams *streamAllocator

	mu      sync.Mutex
	waiting map[frame.StreamID]chan response

	writeMu sync.Mutex

	closed    atomic.Bool
	defunctErr atomic.Error

	inFlight     atomic.Int32
	timeoutCount atomic.Int32
	lastUse      atomic.Int64 // unix nanos

	onDefunct func(*Conn, error)

	stopHeartbeat chan struct{}
	stopOnce      sync.Once
}

// Connect dials host:port, performs TLS if configured, then the STARTUP/
// AUTHENTICATE handshake, and starts the connection's reader and heartbeat
// goroutines.
func Connect(ctx context.Context, cfg ConnConfig) (*Conn, error) {
	addr := net.JoinHostPort(cfg.Host, portString(cfg.Port))
	d := net.Dialer{Timeout: cfg.ConnectTimeout}
	raw, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "transport: dial %s", addr)
	}

	var nc net.Conn = raw
	if cfg.TLSConfig != nil {
		tc := tls.Client(raw, cfg.TLSConfig)
		if err := tc.HandshakeContext(ctx); err != nil {
			raw.Close()
			return nil, errors.Wrap(err, "transport: TLS handshake")
		}
		nc = tc
	}

	c := &Conn{
		cfg:           cfg,
		conn:          nc,
		streams:       newStreamAllocator(),
		waiting:       make(map[frame.StreamID]chan response),
		stopHeartbeat: make(chan struct{}),
	}
	c.lastUse.Store(time.Now().UnixNano())

	go c.readLoop()

	if err := c.handshake(ctx); err != nil {
		c.defunct(err)
		return nil, err
	}

	if cfg.HeartbeatInterval > 0 {
		go c.heartbeatLoop()
	}
	return c, nil
}

func portString(p int) string {
	if p == 0 {
		p = 9042
	}
	return fmt.Sprintf("%d", p)
}

// handshake performs STARTUP, then AUTHENTICATE/AUTH_RESPONSE/
// AUTH_CHALLENGE/AUTH_SUCCESS if the server demands it, then USE <keyspace>
// if one was configured.
func (c *Conn) handshake(ctx context.Context) error {
	hdr, body, err := c.SendRequest(ctx, frame.OpStartup, encodeStringMap(frame.StringMap{"CQL_VERSION": "3.0.0"}))
	if err != nil {
		return err
	}

	switch hdr.OpCode {
	case frame.OpReady:
		// No authentication required.
	case frame.OpAuthenticate:
		if err := c.authenticate(ctx, body); err != nil {
			return err
		}
	case frame.OpError:
		return cqlerr.ParseResponseError(frame.NewBuffer(body))
	default:
		return cqlerr.DriverInternal{Msg: fmt.Sprintf("unexpected STARTUP response opcode %#x", hdr.OpCode)}
	}

	if c.cfg.Keyspace != "" {
		if err := c.useKeyspace(ctx, c.cfg.Keyspace); err != nil {
			return err
		}
	}
	return nil
}

func (c *Conn) authenticate(ctx context.Context, body []byte) error {
	if c.cfg.Authenticator == nil {
		return cqlerr.AuthenticationError{Msg: "server requires authentication but no Authenticator was configured"}
	}
	authenticatorName := frame.NewBuffer(body).ReadString()

	resp, err := c.cfg.Authenticator.InitialResponse(authenticatorName)
	if err != nil {
		return cqlerr.AuthenticationError{Msg: err.Error()}
	}
	for {
		b := &frame.Buffer{}
		b.WriteBytes(resp)
		hdr, body, err := c.SendRequest(ctx, frame.OpAuthResponse, b.Bytes())
		if err != nil {
			return err
		}
		switch hdr.OpCode {
		case frame.OpAuthSuccess:
			return nil
		case frame.OpAuthChallenge:
			challenge := frame.NewBuffer(body).ReadBytes()
			resp, err = c.cfg.Authenticator.Challenge(challenge)
			if err != nil {
				return cqlerr.AuthenticationError{Msg: err.Error()}
			}
		case frame.OpError:
			respErr := cqlerr.ParseResponseError(frame.NewBuffer(body))
			return cqlerr.AuthenticationError{Msg: respErr.Error()}
		default:
			return cqlerr.DriverInternal{Msg: fmt.Sprintf("unexpected AUTH_RESPONSE reply opcode %#x", hdr.OpCode)}
		}
	}
}

func (c *Conn) useKeyspace(ctx context.Context, keyspace string) error {
	b := &frame.Buffer{}
	b.WriteLongString(fmt.Sprintf("USE %q", keyspace))
	opts := frame.QueryOptions{Consistency: frame.ConsistencyOne}
	opts.SetFlags()
	b.WriteQueryOptions(opts)
	hdr, body, err := c.SendRequest(ctx, frame.OpQuery, b.Bytes())
	if err != nil {
		return err
	}
	if hdr.OpCode == frame.OpError {
		return cqlerr.ParseResponseError(frame.NewBuffer(body))
	}
	return nil
}

func encodeStringMap(m frame.StringMap) []byte {
	b := &frame.Buffer{}
	b.WriteStringMap(m)
	return b.Bytes()
}

// SendRequest writes op/body as a new frame on a freshly allocated stream
// and blocks for the matching response, honoring ctx's deadline and the
// connection's DefunctReadTimeout, whichever is sooner.
func (c *Conn) SendRequest(ctx context.Context, op frame.OpCode, body []byte) (frame.Header, []byte, error) {
	if c.closed.Load() {
		return frame.Header{}, nil, cqlerr.ShutdownError{}
	}
	if int(c.inFlight.Load()) >= c.cfg.maxRequests() {
		return frame.Header{}, nil, cqlerr.BusyConnection{}
	}
	id, err := c.streams.tryAlloc()
	if err != nil {
		return frame.Header{}, nil, cqlerr.BusyConnection{}
	}
	defer c.streams.Free(id)

	ch := make(chan response, 1)
	c.mu.Lock()
	c.waiting[id] = ch
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.waiting, id)
		c.mu.Unlock()
	}()

	hdr := frame.Header{
		Version:  frame.RequestVersion(),
		StreamID: id,
		OpCode:   op,
		Length:   frame.Int(len(body)),
	}

	buf := &frame.Buffer{}
	hdr.WriteTo(buf)
	buf.Write(body)

	c.inFlight.Inc()
	defer c.inFlight.Dec()
	c.lastUse.Store(time.Now().UnixNano())

	if err := c.write(ctx, buf.Bytes()); err != nil {
		c.defunct(err)
		return frame.Header{}, nil, err
	}

	deadline := c.cfg.DefunctReadTimeout
	var timer *time.Timer
	var timeoutCh <-chan time.Time
	if deadline > 0 {
		timer = time.NewTimer(deadline)
		defer timer.Stop()
		timeoutCh = timer.C
	}

	select {
	case r := <-ch:
		if r.err != nil {
			return frame.Header{}, nil, r.err
		}
		return r.header, r.body, nil
	case <-ctx.Done():
		return frame.Header{}, nil, cqlerr.OperationTimedOut{Msg: ctx.Err().Error()}
	case <-timeoutCh:
		return frame.Header{}, nil, c.handleReadTimeout()
	}
}

func (c *Conn) write(ctx context.Context, b []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if deadline, ok := ctx.Deadline(); ok {
		_ = c.conn.SetWriteDeadline(deadline)
	} else if c.cfg.WriteTimeout > 0 {
		_ = c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
	}
	_, err := c.conn.Write(b)
	return err
}

func (c *Conn) readLoop() {
	for {
		hdrBuf := make([]byte, frame.HeaderSize)
		if _, err := readFull(c.conn, hdrBuf); err != nil {
			c.defunct(errors.Wrap(err, "transport: read header"))
			return
		}
		hb := frame.NewBuffer(hdrBuf)
		hdr := frame.ParseHeader(hb)

		body := make([]byte, hdr.Length)
		if hdr.Length > 0 {
			if _, err := readFull(c.conn, body); err != nil {
				c.defunct(errors.Wrap(err, "transport: read body"))
				return
			}
		}

		if hdr.OpCode == frame.OpEvent {
			// Event frames (REGISTER subscriptions) are delivered out of
			// the request/response stream. Conn has no event channel and
			// nothing sends REGISTER, so any EVENT frame is dropped here;
			// cluster.Control.HandleEvent never receives it from Conn.
			continue
		}

		c.mu.Lock()
		ch, ok := c.waiting[hdr.StreamID]
		c.mu.Unlock()
		if !ok {
			c.cfg.Logger.Debug(context.Background(), "transport: response for unknown stream", "stream_id", hdr.StreamID)
			continue
		}
		ch <- response{header: hdr, body: body}
	}
}

func readFull(r net.Conn, p []byte) (int, error) {
	total := 0
	for total < len(p) {
		n, err := r.Read(p[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func (c *Conn) heartbeatLoop() {
	t := time.NewTicker(c.cfg.HeartbeatInterval)
	defer t.Stop()
	for {
		select {
		case <-c.stopHeartbeat:
			return
		case <-t.C:
			idleSince := time.Unix(0, c.lastUse.Load())
			if time.Since(idleSince) < c.cfg.HeartbeatInterval {
				continue
			}
			ctx, cancel := context.WithTimeout(context.Background(), c.cfg.WriteTimeout)
			_, _, err := c.SendRequest(ctx, frame.OpOptions, nil)
			cancel()
			if err != nil {
				c.cfg.Logger.Error(context.Background(), "transport: heartbeat failed", "error", err)
				c.defunct(err)
				return
			}
		}
	}
}

// handleReadTimeout accounts for one request's read timeout. A lone slow
// request only surfaces OperationTimedOut to its own caller; the connection
// is only marked defunct once enough requests are simultaneously timed out
// to exceed DefunctReadTimeoutThreshold, per spec.md §4.3's defunct
// criteria — a single stuck stream must not fail every other request
// multiplexed on the same connection.
func (c *Conn) handleReadTimeout() error {
	n := c.timeoutCount.Inc()
	defer c.timeoutCount.Dec()

	err := cqlerr.OperationTimedOut{Msg: "no response within defunct-read-timeout"}
	if int(n) > c.cfg.defunctThreshold() {
		c.defunct(err)
	}
	return err
}

// defunct marks the connection unusable, fails every outstanding request,
// and invokes the onDefunct callback (used by pool to evict it) exactly
// once.
func (c *Conn) defunct(err error) {
	if !c.closed.CompareAndSwap(false, true) {
		return
	}
	c.defunctErr.Store(err)
	c.stopOnce.Do(func() { close(c.stopHeartbeat) })
	c.conn.Close()

	c.mu.Lock()
	waiters := c.waiting
	c.waiting = make(map[frame.StreamID]chan response)
	c.mu.Unlock()
	for _, ch := range waiters {
		ch <- response{err: err}
	}
	if c.onDefunct != nil {
		c.onDefunct(c, err)
	}
}

// Close gracefully shuts the connection down.
func (c *Conn) Close() error {
	c.defunct(cqlerr.ShutdownError{})
	return nil
}

// IsClosed reports whether the connection has been closed or gone defunct.
func (c *Conn) IsClosed() bool { return c.closed.Load() }

// Err returns the error that caused the connection to go defunct, if any.
func (c *Conn) Err() error { return c.defunctErr.Load() }

// InFlight returns the number of requests currently awaiting a response.
func (c *Conn) InFlight() int32 { return c.inFlight.Load() }

// SetOnDefunct registers a callback invoked exactly once when the
// connection becomes unusable, whether from an I/O error or an explicit
// Close. Used by Pool to evict the connection and trigger a refill.
func (c *Conn) SetOnDefunct(f func(*Conn, error)) { c.onDefunct = f }

// RemoteAddr returns the IP this connection is dialed to, used by the
// cluster package to attribute a system.local row to a host.
func (c *Conn) RemoteAddr() net.IP {
	addr, ok := c.conn.RemoteAddr().(*net.TCPAddr)
	if !ok {
		return nil
	}
	return addr.IP
}
