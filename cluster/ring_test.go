package cluster

import (
	"testing"

	"github.com/scylladb/go-cql-driver/cqltype"
)

func mkRing(tokens ...Token) Ring {
	r := make(Ring, len(tokens))
	for i, tok := range tokens {
		r[i] = RingEntry{Token: tok, Host: NewHost(cqltype.UUID{}, nil, 9042, "dc1", "rack1")}
	}
	r.Sort()
	return r
}

func TestTokenLowerBound(t *testing.T) {
	r := mkRing(10, 20, 30, 40)

	cases := []struct {
		token Token
		want  int
	}{
		{5, 0},
		{10, 0},
		{15, 1},
		{20, 1},
		{35, 3},
		{40, 3},
		{45, 0}, // wraps past the last entry
	}
	for _, c := range cases {
		got := r.TokenLowerBound(c.token)
		if got != c.want {
			t.Errorf("TokenLowerBound(%d) = %d, want %d", c.token, got, c.want)
		}
	}
}

func TestReplicaIterWalksFullRingOnce(t *testing.T) {
	r := mkRing(10, 20, 30, 40)
	it := r.Iter(2)

	var seen []Token
	for h := it.Next(); h != nil; h = it.Next() {
		for _, e := range r {
			if e.Host == h {
				seen = append(seen, e.Token)
			}
		}
	}
	want := []Token{30, 40, 10, 20}
	if len(seen) != len(want) {
		t.Fatalf("got %d entries, want %d", len(seen), len(want))
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("position %d: got token %d, want %d", i, seen[i], want[i])
		}
	}

	if h := it.Next(); h != nil {
		t.Fatal("iterator did not stop after a full circuit")
	}
}

func TestReplicaIterEmptyRing(t *testing.T) {
	var r Ring
	it := r.Iter(0)
	if h := it.Next(); h != nil {
		t.Fatal("expected nil from an empty ring")
	}
}
