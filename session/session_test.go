package session

import (
	"context"
	"testing"
)

func TestSessionConnectRejectsEmptyContactPoints(t *testing.T) {
	s := NewSession(DefaultConfig("ks"))
	if err := s.Connect(context.Background()); err == nil {
		t.Fatal("expected error connecting with no contact points")
	}
	if s.State() != Created {
		t.Fatalf("got state %s, want Created after a failed connect", s.State())
	}
}

func TestSessionCloseIsIdempotent(t *testing.T) {
	s := NewSession(DefaultConfig("ks"))
	if err := s.Close(); err != nil {
		t.Fatalf("first close: %v", err)
	}
	if s.State() != Shutdown {
		t.Fatalf("got state %s, want Shutdown", s.State())
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
}

func TestSessionUnusableAfterClose(t *testing.T) {
	s := NewSession(DefaultConfig("ks"))
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := s.checkUsable(); err == nil {
		t.Fatal("expected checkUsable to fail on a shut-down session")
	}
	if err := s.Connect(context.Background()); err == nil {
		t.Fatal("expected Connect to fail on a shut-down session")
	}
}

func TestStateString(t *testing.T) {
	cases := map[State]string{
		Created:      "Created",
		Connecting:   "Connecting",
		Connected:    "Connected",
		ShuttingDown: "ShuttingDown",
		Shutdown:     "Shutdown",
		State(99):    "Unknown",
	}
	for s, want := range cases {
		if got := s.String(); got != want {
			t.Fatalf("State(%d).String() = %q, want %q", s, got, want)
		}
	}
}
