package session

import (
	"context"

	"github.com/scylladb/go-cql-driver/cqlerr"
	"github.com/scylladb/go-cql-driver/frame"
	"github.com/scylladb/go-cql-driver/policy"
	"github.com/scylladb/go-cql-driver/transport"
)

// Batch groups several statements into one BATCH request, routed to a
// single coordinator, per spec.md §4.6's batch semantics.
type Batch struct {
	sess *Session

	kind        frame.BatchTypeFlag
	consistency frame.Consistency
	entries     []batchStmt
	routingKey  []byte
	idempotent  bool
}

type batchStmt struct {
	cql    string
	values []interface{}
}

// NewBatch builds an empty batch of the given kind (frame.BatchLogged,
// frame.BatchUnlogged, or frame.BatchCounter).
func (s *Session) NewBatch(kind frame.BatchTypeFlag) *Batch {
	return &Batch{sess: s, kind: kind, consistency: s.cfg.DefaultConsistency}
}

func (b *Batch) Query(cql string, values ...interface{}) *Batch {
	b.entries = append(b.entries, batchStmt{cql: cql, values: values})
	return b
}

func (b *Batch) WithConsistency(c frame.Consistency) *Batch { b.consistency = c; return b }
func (b *Batch) WithRoutingKey(k []byte) *Batch             { b.routingKey = k; return b }
func (b *Batch) Idempotent(v bool) *Batch                   { b.idempotent = v; return b }

// Exec prepares every sub-statement (collapsing duplicates through the
// session's prepared cache), then sends one BATCH request to a coordinator
// chosen the same way a Query would be, retrying per the session's retry
// policy.
func (b *Batch) Exec(ctx context.Context) error {
	if len(b.entries) == 0 {
		return cqlerr.ArgumentError{Msg: "batch has no statements"}
	}
	if err := b.sess.checkUsable(); err != nil {
		return err
	}
	if err := b.sess.Connect(ctx); err != nil {
		return err
	}

	qi := policy.QueryInfo{Keyspace: b.sess.cfg.Keyspace}
	if tok, ok := tokenForRoutingKey(b.routingKey); ok {
		qi.TokenAware = true
		qi.Token = tok
	}
	b.sess.newPlan()

	tried := map[string]error{}
	retries := 0
	for i := 0; ; i++ {
		h, conn, done := b.sess.pickAt(qi, i, tried)
		if done {
			if len(tried) == 0 {
				return cqlerr.NoHostAvailable{}
			}
			return cqlerr.NoHostAvailable{Errors: tried}
		}
		if h == nil {
			continue
		}

		err := b.attempt(ctx, conn)
		if err == nil {
			return nil
		}
		tried[h.String()] = err

		decision, _ := classifyBatchErr(b.sess, err, b.idempotent, retries)
		switch decision {
		case policy.Retry:
			retries++
			i--
			continue
		case policy.RetryNextHost:
			retries++
			continue
		default:
			return err
		}
	}
}

func classifyBatchErr(s *Session, err error, idempotent bool, retries int) (policy.RetryDecision, frame.Consistency) {
	rerr, ok := err.(cqlerr.ResponseError)
	if !ok {
		if idempotent {
			return policy.RetryNextHost, 0
		}
		return policy.Rethrow, 0
	}
	switch rerr.Subkind {
	case cqlerr.SubkindWriteTimeout:
		return s.cfg.RetryPolicy.OnWriteTimeout(rerr, retries)
	case cqlerr.SubkindUnavailable:
		return s.cfg.RetryPolicy.OnUnavailable(rerr, retries)
	default:
		return policy.Rethrow, 0
	}
}

func (b *Batch) attempt(ctx context.Context, conn *transport.Conn) error {
	entries := make([]BatchEntry, len(b.entries))
	for i, stmt := range b.entries {
		ps, err := b.sess.prepared.prepareOn(ctx, conn, stmt.cql)
		if err != nil {
			return err
		}
		params, err := bindPrepared(ps, stmt.values)
		if err != nil {
			return err
		}
		entries[i] = BatchEntry{QueryID: ps.ID, Params: params}
	}

	body, err := encodeBatchBody(b.kind, entries, b.consistency, 0, 0)
	if err != nil {
		return err
	}
	hdr, rbody, err := conn.SendRequest(ctx, frame.OpBatch, body)
	if err != nil {
		return err
	}
	if hdr.OpCode == frame.OpError {
		rerr := cqlerr.ParseResponseError(frame.NewBuffer(rbody))
		if rerr.Subkind == cqlerr.SubkindUnprepared {
			return b.retryWithFreshPrepare(ctx, conn)
		}
		return rerr
	}
	return nil
}

// retryWithFreshPrepare re-prepares every sub-statement and sends the
// batch once more, the BATCH analogue of Query's UNPREPARED recovery.
func (b *Batch) retryWithFreshPrepare(ctx context.Context, conn *transport.Conn) error {
	entries := make([]BatchEntry, len(b.entries))
	for i, stmt := range b.entries {
		ps, err := doPrepare(ctx, conn, stmt.cql)
		if err != nil {
			return err
		}
		b.sess.prepared.put(stmt.cql, ps)
		params, err := bindPrepared(ps, stmt.values)
		if err != nil {
			return err
		}
		entries[i] = BatchEntry{QueryID: ps.ID, Params: params}
	}
	body, err := encodeBatchBody(b.kind, entries, b.consistency, 0, 0)
	if err != nil {
		return err
	}
	hdr, rbody, err := conn.SendRequest(ctx, frame.OpBatch, body)
	if err != nil {
		return err
	}
	if hdr.OpCode == frame.OpError {
		return cqlerr.ParseResponseError(frame.NewBuffer(rbody))
	}
	return nil
}
