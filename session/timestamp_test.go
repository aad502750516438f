package session

import "testing"

func TestTimestampGeneratorMonotonic(t *testing.T) {
	g := newTimestampGenerator()
	var last int64
	for i := 0; i < 1000; i++ {
		ts := g.Next()
		if ts <= last {
			t.Fatalf("timestamp did not advance: got %d after %d", ts, last)
		}
		last = ts
	}
}

func TestTimestampGeneratorBumpsOnClockRegression(t *testing.T) {
	g := newTimestampGenerator()
	g.last = 1 << 62 // far in the future relative to time.Now()
	ts := g.Next()
	if ts != g.last {
		t.Fatalf("expected Next to return the bumped value, got %d want %d", ts, g.last)
	}
	ts2 := g.Next()
	if ts2 != ts+1 {
		t.Fatalf("expected strictly incrementing bump, got %d want %d", ts2, ts+1)
	}
}
