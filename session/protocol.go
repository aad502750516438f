package session

import (
	"github.com/scylladb/go-cql-driver/cqltype"
	"github.com/scylladb/go-cql-driver/frame"
)

// Param is one bound statement parameter: either a typed value (Type set
// from a prepared statement's bind markers) or an untyped value subject to
// guessing for Simple statements, per spec.md §9's ParamValue.
type Param struct {
	Value   interface{}
	Type    cqltype.Type // zero value: guess from Value
	Unset   bool         // EXECUTE-only "not set" marker
	IsNull  bool
}

func (p Param) encode() (frame.Value, error) {
	if p.Unset {
		return frame.Value{N: frame.NotSetLength}, nil
	}
	if p.IsNull || p.Value == nil {
		return frame.Value{N: frame.NullLength}, nil
	}
	t := p.Type
	if t.ID == 0 && t.Elem == nil && t.UDT == nil {
		guessed, ok := cqltype.Guess(p.Value)
		if !ok {
			return frame.Value{}, argumentErrorf("cannot guess CQL type for %T", p.Value)
		}
		t = guessed
	}
	v, err := cqltype.Marshal(t, p.Value)
	if err != nil {
		return frame.Value{}, err
	}
	if v.IsNull {
		return frame.Value{N: frame.NullLength}, nil
	}
	return frame.Value{N: frame.Int(len(v.Bytes)), Bytes: v.Bytes}, nil
}

func encodeParams(params []Param) ([]frame.Value, error) {
	out := make([]frame.Value, len(params))
	for i, p := range params {
		v, err := p.encode()
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// buildQueryOptions assembles the shared QUERY/EXECUTE optional-field block.
func buildQueryOptions(consistency frame.Consistency, values []frame.Value, pageSize int32, pagingState []byte, serialConsistency frame.Consistency, timestamp int64, skipMetadata bool) frame.QueryOptions {
	opts := frame.QueryOptions{
		Consistency:       consistency,
		Values:            values,
		PageSize:          pageSize,
		PagingState:       pagingState,
		SerialConsistency: serialConsistency,
		Timestamp:         timestamp,
	}
	opts.SetFlags()
	if skipMetadata {
		opts.Flags |= frame.FlagSkipMetadata
	}
	return opts
}

func encodeQueryBody(cql string, opts frame.QueryOptions) []byte {
	b := &frame.Buffer{}
	b.WriteLongString(cql)
	b.WriteQueryOptions(opts)
	return b.Bytes()
}

func encodeExecuteBody(id []byte, opts frame.QueryOptions) []byte {
	b := &frame.Buffer{}
	b.WriteShortBytes(id)
	b.WriteQueryOptions(opts)
	return b.Bytes()
}

func encodePrepareBody(cql string) []byte {
	b := &frame.Buffer{}
	b.WriteLongString(cql)
	return b.Bytes()
}

// BatchEntry is one statement in a BATCH frame: either a raw query string
// or a prepared statement id, plus its bound parameters.
type BatchEntry struct {
	QueryID []byte // non-nil: prepared; nil: raw query text
	Query   string
	Params  []Param
}

func encodeBatchBody(kind frame.BatchTypeFlag, entries []BatchEntry, consistency frame.Consistency, serialConsistency frame.Consistency, timestamp int64) ([]byte, error) {
	b := &frame.Buffer{}
	b.WriteByte(kind)
	b.WriteShort(frame.Short(len(entries)))
	for _, e := range entries {
		if e.QueryID != nil {
			b.WriteByte(1)
			b.WriteShortBytes(e.QueryID)
		} else {
			b.WriteByte(0)
			b.WriteLongString(e.Query)
		}
		values, err := encodeParams(e.Params)
		if err != nil {
			return nil, err
		}
		b.WriteShort(frame.Short(len(values)))
		for _, v := range values {
			b.WriteValue(v)
		}
	}
	b.WriteConsistency(consistency)
	flags := frame.QueryFlags(0)
	if serialConsistency != 0 {
		flags |= frame.FlagWithSerialConsistency
	}
	if timestamp != 0 {
		flags |= frame.FlagWithDefaultTimestamp
	}
	b.WriteQueryFlags(flags)
	if flags&frame.FlagWithSerialConsistency != 0 {
		b.WriteConsistency(serialConsistency)
	}
	if flags&frame.FlagWithDefaultTimestamp != 0 {
		b.WriteLong(timestamp)
	}
	return b.Bytes(), nil
}

// Row is one decoded result row, column name to native Go value.
type Row map[string]interface{}

// RowSet is a single page of decoded rows plus continuation state.
type RowSet struct {
	Columns      []frame.ColumnSpec
	Rows         []Row
	PagingState  []byte
	HasMorePages bool
}

func decodeRowsResult(body []byte) (RowSet, error) {
	b := frame.NewBuffer(body)
	kind := b.ReadInt()
	if kind != frame.ResultRows {
		if b.Error() != nil {
			return RowSet{}, b.Error()
		}
		return RowSet{}, driverInternalf("expected Rows result, got kind %#x", kind)
	}
	meta := b.ReadResultMetadata()
	rowCount := int(b.ReadInt())
	rows := make([]Row, rowCount)
	for i := range rows {
		row := make(Row, len(meta.Columns))
		for _, col := range meta.Columns {
			v := b.ReadValue()
			cqlv := cqltype.Value{Type: cqltype.FromOption(col.Type), IsNull: v.N < 0}
			if v.N > 0 {
				cqlv.Bytes = v.Bytes
			}
			goVal, err := cqltype.Unmarshal(cqlv)
			if err != nil {
				return RowSet{}, err
			}
			row[col.Name] = goVal
		}
		rows[i] = row
	}
	if b.Error() != nil {
		return RowSet{}, b.Error()
	}
	return RowSet{
		Columns:      meta.Columns,
		Rows:         rows,
		PagingState:  meta.PagingState,
		HasMorePages: meta.Flags&frame.ResultHasMorePages != 0,
	}, nil
}

// PreparedStatement is the id and bind-marker metadata a PREPARE response
// carries, enough to build EXECUTE requests against it on any connection.
type PreparedStatement struct {
	ID         []byte
	Query      string
	Metadata   frame.PreparedMetadata
	ResultMeta frame.ResultMetadata
}

func decodePreparedResult(query string, body []byte) (*PreparedStatement, error) {
	b := frame.NewBuffer(body)
	kind := b.ReadInt()
	if kind != frame.ResultPrepared {
		if b.Error() != nil {
			return nil, b.Error()
		}
		return nil, driverInternalf("expected Prepared result, got kind %#x", kind)
	}
	id := b.ReadShortBytes()
	meta := b.ReadPreparedMetadata()
	resultMeta := b.ReadResultMetadata()
	if b.Error() != nil {
		return nil, b.Error()
	}
	return &PreparedStatement{ID: id, Query: query, Metadata: meta, ResultMeta: resultMeta}, nil
}

// bindPrepared assigns server-issued bind-marker types to positional
// params, the "use server-issued types" half of spec.md §4.6 step 2.
func bindPrepared(ps *PreparedStatement, args []interface{}) ([]Param, error) {
	if len(args) != len(ps.Metadata.Columns) {
		return nil, argumentErrorf("expected %d bind parameters, got %d", len(ps.Metadata.Columns), len(args))
	}
	params := make([]Param, len(args))
	for i, a := range args {
		params[i] = Param{Value: a, Type: cqltype.FromOption(ps.Metadata.Columns[i].Type)}
		if a == nil {
			params[i].IsNull = true
		}
		if a == Unset {
			params[i] = Param{Unset: true}
		}
	}
	return params, nil
}

// unsetMarker is the sentinel type of the Unset value.
type unsetMarker struct{}

// Unset marks an EXECUTE parameter as NOT SET (server keeps the column's
// existing value), the wire-level "unbound" marker spec.md §6 describes.
var Unset interface{} = unsetMarker{}
