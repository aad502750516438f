package frame_test

import (
	"testing"

	"github.com/scylladb/go-cql-driver/frame"
)

func TestVIntRoundTrip(t *testing.T) {
	cases := []struct {
		Name  string
		Value int64
	}{
		{"zero", 0},
		{"one", 1},
		{"minus one", -1},
		{"small positive", 63},
		{"small negative", -64},
		{"medium", 1 << 20},
		{"medium negative", -(1 << 20)},
		{"max int64", 1<<63 - 1},
		{"min int64", -(1 << 63)},
	}
	for _, c := range cases {
		t.Run(c.Name, func(t *testing.T) {
			encoded := frame.AppendVInt(nil, c.Value)
			decoded, n, err := frame.DecodeVInt(encoded)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if n != len(encoded) {
				t.Fatalf("consumed %d bytes, want %d", n, len(encoded))
			}
			if decoded != c.Value {
				t.Fatalf("got %d, want %d", decoded, c.Value)
			}
		})
	}
}

func TestBufferReadWriteRoundTrip(t *testing.T) {
	b := &frame.Buffer{}
	b.WriteInt(42)
	b.WriteLong(-1234567890123)
	b.WriteShort(7)
	b.WriteString("hello")
	b.WriteBytes([]byte("world"))
	b.WriteBytes(nil)

	r := frame.NewBuffer(b.Bytes())
	if got := r.ReadInt(); got != 42 {
		t.Fatalf("ReadInt: got %d", got)
	}
	if got := r.ReadLong(); got != -1234567890123 {
		t.Fatalf("ReadLong: got %d", got)
	}
	if got := r.ReadShort(); got != 7 {
		t.Fatalf("ReadShort: got %d", got)
	}
	if got := r.ReadString(); got != "hello" {
		t.Fatalf("ReadString: got %q", got)
	}
	if got := r.ReadBytes(); string(got) != "world" {
		t.Fatalf("ReadBytes: got %q", got)
	}
	if got := r.ReadBytes(); got != nil {
		t.Fatalf("ReadBytes(nil): got %v", got)
	}
	if err := r.Error(); err != nil {
		t.Fatalf("unexpected read error: %v", err)
	}
}

func TestHeaderRoundTrip(t *testing.T) {
	h := frame.Header{
		Version:  frame.RequestVersion(),
		Flags:    frame.FlagTracing,
		StreamID: 17,
		OpCode:   frame.OpQuery,
		Length:   123,
	}
	b := &frame.Buffer{}
	h.WriteTo(b)
	if b.Len() != frame.HeaderSize {
		t.Fatalf("header size: got %d, want %d", b.Len(), frame.HeaderSize)
	}
	r := frame.NewBuffer(b.Bytes())
	got := frame.ParseHeader(r)
	if got != h {
		t.Fatalf("got %+v, want %+v", got, h)
	}
}
