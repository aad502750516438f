package session

import (
	"context"
	"fmt"

	"github.com/scylladb/go-cql-driver/cqlerr"
	"github.com/scylladb/go-cql-driver/frame"
	"github.com/scylladb/go-cql-driver/policy"
	"github.com/scylladb/go-cql-driver/transport"
)

// Query is a single CQL statement plus its bind values and per-statement
// overrides, the unit of work Exec/Scan/Page/All/Iter operate on.
type Query struct {
	sess *Session

	cql    string
	values []interface{}

	consistency       frame.Consistency
	serialConsistency frame.Consistency
	pageSize          int32
	pagingState       []byte
	idempotent        bool
	routingKey        []byte
	prepared          bool
	withTimestamp     bool
}

// NewQuery builds a Query bound to this session with its default
// consistency and no server-side prepare yet attempted.
func (s *Session) NewQuery(cql string, values ...interface{}) *Query {
	return &Query{
		sess:        s,
		cql:         cql,
		values:      values,
		consistency: s.cfg.DefaultConsistency,
		pageSize:    5000,
		prepared:    true,
	}
}

func (q *Query) WithConsistency(c frame.Consistency) *Query { q.consistency = c; return q }
func (q *Query) WithSerialConsistency(c frame.Consistency) *Query {
	q.serialConsistency = c
	return q
}
func (q *Query) WithPageSize(n int32) *Query     { q.pageSize = n; return q }
func (q *Query) WithPagingState(s []byte) *Query { q.pagingState = s; return q }
func (q *Query) Idempotent(v bool) *Query        { q.idempotent = v; return q }
func (q *Query) WithRoutingKey(k []byte) *Query   { q.routingKey = k; return q }
func (q *Query) SkipPrepare() *Query              { q.prepared = false; return q }
func (q *Query) WithTimestamp() *Query            { q.withTimestamp = true; return q }

// planInfo builds the planner's QueryInfo for this statement.
func (q *Query) planInfo() policy.QueryInfo {
	qi := policy.QueryInfo{Keyspace: q.sess.cfg.Keyspace}
	if tok, ok := tokenForRoutingKey(q.routingKey); ok {
		qi.TokenAware = true
		qi.Token = tok
	}
	return qi
}

// Exec runs the statement for its side effects and discards any rows.
func (q *Query) Exec(ctx context.Context) error {
	_, err := q.page(ctx)
	return err
}

// Scan runs the statement for one page and binds the first row's columns
// positionally into dest; any further rows are ignored, and no rows at all
// is an ArgumentError.
func (q *Query) Scan(ctx context.Context, dest ...interface{}) error {
	rs, err := q.page(ctx)
	if err != nil {
		return err
	}
	if len(rs.Rows) == 0 {
		return cqlerr.ArgumentError{Msg: "query returned no rows"}
	}
	return scanRow(rs, rs.Rows[0], dest)
}

func scanRow(rs RowSet, row Row, dest []interface{}) error {
	if len(dest) != len(rs.Columns) {
		return cqlerr.ArgumentError{Msg: fmt.Sprintf("scan expected %d destinations, got %d", len(rs.Columns), len(dest))}
	}
	for i, col := range rs.Columns {
		if err := assign(dest[i], row[col.Name]); err != nil {
			return err
		}
	}
	return nil
}

func assign(dest interface{}, val interface{}) error {
	switch d := dest.(type) {
	case *interface{}:
		*d = val
		return nil
	default:
		return assignReflect(dest, val)
	}
}

// page executes one round trip of the statement and returns its RowSet,
// running the full host-iteration/retry pipeline spec.md §4.6 describes.
func (q *Query) page(ctx context.Context) (RowSet, error) {
	if err := q.sess.checkUsable(); err != nil {
		return RowSet{}, err
	}
	if err := q.sess.Connect(ctx); err != nil {
		return RowSet{}, err
	}

	qi := q.planInfo()
	q.sess.newPlan()
	tried := map[string]error{}
	retries := 0

	for i := 0; ; i++ {
		h, conn, done := q.sess.pickAt(qi, i, tried)
		if done {
			if len(tried) == 0 {
				return RowSet{}, cqlerr.NoHostAvailable{}
			}
			return RowSet{}, cqlerr.NoHostAvailable{Errors: tried}
		}
		if h == nil {
			continue
		}

		rs, err := q.attempt(ctx, conn)
		if err == nil {
			return rs, nil
		}
		tried[h.String()] = err

		decision, _ := q.classify(err, retries)
		switch decision {
		case policy.Retry:
			retries++
			i-- // same host, same index next loop iteration retries the plan from i again below
			continue
		case policy.RetryNextHost:
			retries++
			continue
		default:
			return RowSet{}, err
		}
	}
}

// classify asks the retry policy what to do about a failed attempt. Only
// server ERROR responses carry retryable semantics; transport-level errors
// retry on the next host only when the statement is marked idempotent.
// retries is how many times this request has already been retried.
func (q *Query) classify(err error, retries int) (policy.RetryDecision, frame.Consistency) {
	rerr, ok := err.(cqlerr.ResponseError)
	if !ok {
		if q.idempotent {
			return policy.RetryNextHost, 0
		}
		return policy.Rethrow, 0
	}
	switch rerr.Subkind {
	case cqlerr.SubkindReadTimeout:
		return q.sess.cfg.RetryPolicy.OnReadTimeout(rerr, retries)
	case cqlerr.SubkindWriteTimeout:
		return q.sess.cfg.RetryPolicy.OnWriteTimeout(rerr, retries)
	case cqlerr.SubkindUnavailable:
		return q.sess.cfg.RetryPolicy.OnUnavailable(rerr, retries)
	default:
		return policy.Rethrow, 0
	}
}

// attempt sends exactly one QUERY/EXECUTE on conn, transparently preparing
// and retrying once on UNPREPARED per spec.md §4.6 step 5.
func (q *Query) attempt(ctx context.Context, conn *transport.Conn) (RowSet, error) {
	if !q.prepared {
		return q.execSimple(ctx, conn)
	}

	ps, err := q.sess.prepared.prepareOn(ctx, conn, q.cql)
	if err != nil {
		return RowSet{}, err
	}
	params, err := bindPrepared(ps, q.values)
	if err != nil {
		return RowSet{}, err
	}
	rs, err := q.execPrepared(ctx, conn, ps, params)
	if rerr, ok := err.(cqlerr.ResponseError); ok && rerr.Subkind == cqlerr.SubkindUnprepared {
		ps2, perr := doPrepare(ctx, conn, q.cql)
		if perr != nil {
			return RowSet{}, perr
		}
		q.sess.prepared.put(q.cql, ps2)
		params2, berr := bindPrepared(ps2, q.values)
		if berr != nil {
			return RowSet{}, berr
		}
		return q.execPrepared(ctx, conn, ps2, params2)
	}
	return rs, err
}

func (q *Query) opts(values []frame.Value) frame.QueryOptions {
	var ts int64
	if q.withTimestamp {
		ts = q.sess.ts.Next()
	}
	return buildQueryOptions(q.consistency, values, q.pageSize, q.pagingState, q.serialConsistency, ts, false)
}

func (q *Query) execSimple(ctx context.Context, conn *transport.Conn) (RowSet, error) {
	params := make([]Param, len(q.values))
	for i, v := range q.values {
		params[i] = Param{Value: v}
	}
	values, err := encodeParams(params)
	if err != nil {
		return RowSet{}, err
	}
	body := encodeQueryBody(q.cql, q.opts(values))
	return sendAndDecodeRows(ctx, conn, frame.OpQuery, body)
}

func (q *Query) execPrepared(ctx context.Context, conn *transport.Conn, ps *PreparedStatement, params []Param) (RowSet, error) {
	values, err := encodeParams(params)
	if err != nil {
		return RowSet{}, err
	}
	body := encodeExecuteBody(ps.ID, q.opts(values))
	return sendAndDecodeRows(ctx, conn, frame.OpExecute, body)
}

func doPrepare(ctx context.Context, conn *transport.Conn, cql string) (*PreparedStatement, error) {
	hdr, body, err := conn.SendRequest(ctx, frame.OpPrepare, encodePrepareBody(cql))
	if err != nil {
		return nil, err
	}
	if hdr.OpCode == frame.OpError {
		return nil, cqlerr.ParseResponseError(frame.NewBuffer(body))
	}
	return decodePreparedResult(cql, body)
}

func sendAndDecodeRows(ctx context.Context, conn *transport.Conn, op frame.OpCode, body []byte) (RowSet, error) {
	hdr, rbody, err := conn.SendRequest(ctx, op, body)
	if err != nil {
		return RowSet{}, err
	}
	if hdr.OpCode == frame.OpError {
		return RowSet{}, cqlerr.ParseResponseError(frame.NewBuffer(rbody))
	}
	rb := frame.NewBuffer(rbody)
	kind := rb.ReadInt()
	if rb.Error() != nil {
		return RowSet{}, rb.Error()
	}
	if kind != frame.ResultRows {
		return RowSet{}, nil
	}
	return decodeRowsResult(rbody)
}
