package session

import (
	"bytes"
	"testing"

	"github.com/scylladb/go-cql-driver/frame"
)

func TestParamEncodeUnsetAndNull(t *testing.T) {
	v, err := Param{Unset: true}.encode()
	if err != nil {
		t.Fatalf("encode unset: %v", err)
	}
	if v.N != frame.NotSetLength {
		t.Fatalf("got N=%d, want NotSetLength", v.N)
	}

	v, err = Param{IsNull: true}.encode()
	if err != nil {
		t.Fatalf("encode null: %v", err)
	}
	if v.N != frame.NullLength {
		t.Fatalf("got N=%d, want NullLength", v.N)
	}
}

func TestParamEncodeGuessedType(t *testing.T) {
	v, err := Param{Value: int64(42)}.encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if v.N <= 0 {
		t.Fatalf("expected positive length, got %d", v.N)
	}
}

func TestParamEncodeUnguessableTypeFails(t *testing.T) {
	type weird struct{ X int }
	_, err := Param{Value: weird{1}}.encode()
	if err == nil {
		t.Fatal("expected error guessing type for an unsupported struct")
	}
}

func TestEncodeParams(t *testing.T) {
	values, err := encodeParams([]Param{
		{Value: int64(1)},
		{Unset: true},
		{IsNull: true},
	})
	if err != nil {
		t.Fatalf("encodeParams: %v", err)
	}
	if len(values) != 3 {
		t.Fatalf("got %d values, want 3", len(values))
	}
	if values[1].N != frame.NotSetLength || values[2].N != frame.NullLength {
		t.Fatal("unset/null markers not preserved in order")
	}
}

func TestEncodeQueryBodyRoundTrip(t *testing.T) {
	opts := buildQueryOptions(frame.ConsistencyQuorum, nil, 100, nil, 0, 0, false)
	body := encodeQueryBody("SELECT * FROM t", opts)

	b := frame.NewBuffer(body)
	cql := b.ReadLongString()
	if cql != "SELECT * FROM t" {
		t.Fatalf("got query %q", cql)
	}
	consistency := b.ReadConsistency()
	if consistency != frame.ConsistencyQuorum {
		t.Fatalf("got consistency %d, want Quorum", consistency)
	}
	if b.Error() != nil {
		t.Fatalf("buffer error: %v", b.Error())
	}
}

func TestDecodeRowsResultEmpty(t *testing.T) {
	b := &frame.Buffer{}
	b.WriteInt(frame.ResultRows)
	b.WriteResultFlags(0)
	b.WriteInt(0) // columns count
	b.WriteInt(0) // row count

	rs, err := decodeRowsResult(b.Bytes())
	if err != nil {
		t.Fatalf("decodeRowsResult: %v", err)
	}
	if len(rs.Rows) != 0 {
		t.Fatalf("got %d rows, want 0", len(rs.Rows))
	}
	if rs.HasMorePages {
		t.Fatal("did not expect more pages")
	}
}

func TestDecodeRowsResultWrongKindFails(t *testing.T) {
	b := &frame.Buffer{}
	b.WriteInt(frame.ResultVoid)
	_, err := decodeRowsResult(b.Bytes())
	if err == nil {
		t.Fatal("expected error decoding a Void result as Rows")
	}
}

func TestEncodeBatchBodyFlags(t *testing.T) {
	body, err := encodeBatchBody(frame.BatchLogged, []BatchEntry{
		{QueryID: []byte{1, 2}, Params: nil},
	}, frame.ConsistencyOne, frame.ConsistencySerial, 123)
	if err != nil {
		t.Fatalf("encodeBatchBody: %v", err)
	}
	if !bytes.Contains(body, []byte{1, 2}) {
		t.Fatal("expected encoded query id in batch body")
	}
	// flags byte is followed by the serial consistency (2 bytes) and the timestamp (8 bytes)
	flags := frame.QueryFlags(body[len(body)-11])
	if want := frame.FlagWithSerialConsistency | frame.FlagWithDefaultTimestamp; flags != want {
		t.Fatalf("got batch flags %#x, want %#x", flags, want)
	}
}

func TestBindPreparedArgCountMismatch(t *testing.T) {
	ps := &PreparedStatement{Metadata: frame.PreparedMetadata{Columns: make([]frame.ColumnSpec, 2)}}
	_, err := bindPrepared(ps, []interface{}{1})
	if err == nil {
		t.Fatal("expected error for mismatched bind parameter count")
	}
}

func TestBindPreparedUnsetSentinel(t *testing.T) {
	ps := &PreparedStatement{Metadata: frame.PreparedMetadata{Columns: make([]frame.ColumnSpec, 1)}}
	params, err := bindPrepared(ps, []interface{}{Unset})
	if err != nil {
		t.Fatalf("bindPrepared: %v", err)
	}
	if !params[0].Unset {
		t.Fatal("expected Unset sentinel to mark the param unset")
	}
}
