package policy

import (
	"testing"
	"time"
)

func TestExponentialReconnectionPolicyGrowsAndCaps(t *testing.T) {
	p := NewExponentialReconnectionPolicy(10*time.Millisecond, 50*time.Millisecond)

	first := p.NextDelay()
	if first <= 0 {
		t.Fatalf("expected a positive delay, got %v", first)
	}
	for i := 0; i < 20; i++ {
		if d := p.NextDelay(); d > 2*50*time.Millisecond {
			t.Fatalf("delay exceeded max by more than jitter: %v", d)
		}
	}
}

func TestExponentialReconnectionPolicyReset(t *testing.T) {
	p := NewExponentialReconnectionPolicy(10*time.Millisecond, 50*time.Millisecond)
	for i := 0; i < 5; i++ {
		p.NextDelay()
	}
	p.Reset()
	d := p.NextDelay()
	if d <= 0 {
		t.Fatalf("expected a positive delay after reset, got %v", d)
	}
}

func TestConstantReconnectionPolicy(t *testing.T) {
	p := ConstantReconnectionPolicy{Delay: 25 * time.Millisecond}
	if p.NextDelay() != 25*time.Millisecond {
		t.Fatalf("expected constant delay")
	}
	p.Reset() // no-op, must not panic
}
