package cqltype_test

import (
	"bytes"
	"math/big"
	"net"
	"testing"
	"time"

	"github.com/scylladb/go-cql-driver/cqltype"
)

func roundTrip(t *testing.T, typ cqltype.Type, v interface{}, eq func(a, b interface{}) bool) {
	t.Helper()
	val, err := cqltype.Marshal(typ, v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	got, err := cqltype.Unmarshal(val)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !eq(got, v) {
		t.Fatalf("round trip mismatch: got %#v, want %#v", got, v)
	}
}

func TestScalarRoundTrip(t *testing.T) {
	eqSimple := func(a, b interface{}) bool { return a == b }

	roundTrip(t, cqltype.Type{ID: cqltype.Boolean}, true, eqSimple)
	roundTrip(t, cqltype.Type{ID: cqltype.TinyInt}, int8(-12), eqSimple)
	roundTrip(t, cqltype.Type{ID: cqltype.SmallInt}, int16(-1234), eqSimple)
	roundTrip(t, cqltype.Type{ID: cqltype.Int}, int32(-123456), eqSimple)
	roundTrip(t, cqltype.Type{ID: cqltype.BigInt}, int64(-123456789012), eqSimple)
	roundTrip(t, cqltype.Type{ID: cqltype.Double}, 3.14159, eqSimple)
	roundTrip(t, cqltype.Type{ID: cqltype.Text}, "hello, world", eqSimple)

	roundTrip(t, cqltype.Type{ID: cqltype.Blob}, []byte("blob bytes"), func(a, b interface{}) bool {
		return bytes.Equal(a.([]byte), b.([]byte))
	})
}

func TestScalarIntBoundsRejected(t *testing.T) {
	cases := []struct {
		name string
		typ  cqltype.Type
		v    int64
	}{
		{"TinyInt over", cqltype.Type{ID: cqltype.TinyInt}, 300},
		{"TinyInt under", cqltype.Type{ID: cqltype.TinyInt}, -129},
		{"SmallInt over", cqltype.Type{ID: cqltype.SmallInt}, 40000},
		{"SmallInt under", cqltype.Type{ID: cqltype.SmallInt}, -40000},
		{"Int over", cqltype.Type{ID: cqltype.Int}, 1 << 33},
		{"Int under", cqltype.Type{ID: cqltype.Int}, -(1 << 33)},
	}
	for _, c := range cases {
		if _, err := cqltype.Marshal(c.typ, c.v); err == nil {
			t.Fatalf("%s: expected ArgumentError marshaling %d, got nil", c.name, c.v)
		}
	}
}

func TestScalarIntBoundsAccepted(t *testing.T) {
	if _, err := cqltype.Marshal(cqltype.Type{ID: cqltype.TinyInt}, int64(127)); err != nil {
		t.Fatalf("TinyInt max: %v", err)
	}
	if _, err := cqltype.Marshal(cqltype.Type{ID: cqltype.TinyInt}, int64(-128)); err != nil {
		t.Fatalf("TinyInt min: %v", err)
	}
	if _, err := cqltype.Marshal(cqltype.Type{ID: cqltype.SmallInt}, int64(32767)); err != nil {
		t.Fatalf("SmallInt max: %v", err)
	}
	if _, err := cqltype.Marshal(cqltype.Type{ID: cqltype.Int}, int64(2147483647)); err != nil {
		t.Fatalf("Int max: %v", err)
	}
}

func TestVarintRoundTrip(t *testing.T) {
	cases := []string{"0", "1", "-1", "127", "-128", "123456789012345678901234567890", "-123456789012345678901234567890"}
	for _, c := range cases {
		n, ok := new(big.Int).SetString(c, 10)
		if !ok {
			t.Fatalf("bad test case %q", c)
		}
		val, err := cqltype.Marshal(cqltype.Type{ID: cqltype.Varint}, n)
		if err != nil {
			t.Fatalf("marshal %q: %v", c, err)
		}
		got, err := cqltype.Unmarshal(val)
		if err != nil {
			t.Fatalf("unmarshal %q: %v", c, err)
		}
		if got.(*big.Int).Cmp(n) != 0 {
			t.Fatalf("got %v, want %v", got, n)
		}
	}
}

func TestTimestampRoundTrip(t *testing.T) {
	now := time.Now().UTC().Round(time.Millisecond)
	roundTrip(t, cqltype.Type{ID: cqltype.Timestamp}, now, func(a, b interface{}) bool {
		return a.(time.Time).Equal(b.(time.Time))
	})
}

func TestInetRoundTrip(t *testing.T) {
	for _, ip := range []net.IP{net.ParseIP("192.168.1.1").To4(), net.ParseIP("::1")} {
		roundTrip(t, cqltype.Type{ID: cqltype.Inet}, ip, func(a, b interface{}) bool {
			return a.(net.IP).Equal(b.(net.IP))
		})
	}
}

func TestListRoundTrip(t *testing.T) {
	elem := cqltype.Type{ID: cqltype.Text}
	typ := cqltype.Type{ID: cqltype.List, Elem: &elem}
	val, err := cqltype.Marshal(typ, []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	got, err := cqltype.Unmarshal(val)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	list := got.([]interface{})
	if len(list) != 3 || list[0] != "a" || list[2] != "c" {
		t.Fatalf("got %#v", list)
	}
}

func TestMapRoundTrip(t *testing.T) {
	k := cqltype.Type{ID: cqltype.Text}
	v := cqltype.Type{ID: cqltype.Int}
	typ := cqltype.Type{ID: cqltype.Map, Key: &k, Value: &v}
	val, err := cqltype.Marshal(typ, map[string]int32{"x": 1, "y": 2})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	got, err := cqltype.Unmarshal(val)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	m := got.(map[interface{}]interface{})
	if m["x"] != int32(1) || m["y"] != int32(2) {
		t.Fatalf("got %#v", m)
	}
}

func TestDurationRoundTripAndSignInvariant(t *testing.T) {
	d := cqltype.Duration{Months: 1, Days: 2, Nanoseconds: 3}
	raw := cqltype.EncodeDuration(d)
	got, err := cqltype.DecodeDuration(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got != d {
		t.Fatalf("got %+v, want %+v", got, d)
	}

	bad := cqltype.Duration{Months: 1, Days: -1, Nanoseconds: 0}
	if err := bad.Validate(); err == nil {
		t.Fatal("expected sign-mismatch validation error")
	}
}

func TestDurationTextFormRoundTrip(t *testing.T) {
	cases := []cqltype.Duration{
		{Months: 14, Days: 3, Nanoseconds: 0},
		{Months: 0, Days: 0, Nanoseconds: int64(90 * time.Minute)},
		{Months: -1, Days: -2, Nanoseconds: -int64(3 * time.Hour)},
	}
	for _, d := range cases {
		s := cqltype.FormatDuration(d)
		got, err := cqltype.ParseDuration(s)
		if err != nil {
			t.Fatalf("parse %q: %v", s, err)
		}
		if got != d {
			t.Fatalf("round trip via %q: got %+v, want %+v", s, got, d)
		}
	}
}

func TestGuess(t *testing.T) {
	cases := []struct {
		v    interface{}
		want cqltype.OptionID
	}{
		{"text", cqltype.Text},
		{int64(1), cqltype.BigInt},
		{[]byte("x"), cqltype.Blob},
		{true, cqltype.Boolean},
		{3.14, cqltype.Double},
	}
	for _, c := range cases {
		got, ok := cqltype.Guess(c.v)
		if !ok {
			t.Fatalf("Guess(%#v): not ok", c.v)
		}
		if got.ID != c.want {
			t.Fatalf("Guess(%#v): got %v, want %v", c.v, got.ID, c.want)
		}
	}
	if _, ok := cqltype.Guess(struct{}{}); ok {
		t.Fatal("expected Guess to reject an unrecognized struct type")
	}
}
