package policy

import (
	"time"

	"github.com/cenkalti/backoff"
)

// ReconnectionPolicy schedules delays between a host's successive reconnect
// attempts after it is marked down. NextDelay is called once per failed
// attempt; Reset is called once the host reconnects successfully.
type ReconnectionPolicy interface {
	NextDelay() time.Duration
	Reset()
}

// ExponentialReconnectionPolicy wraps cenkalti/backoff.ExponentialBackOff,
// the same scheduler transport.Pool's refillLoop uses for per-connection
// reconnects. session.Config carries one as ReconnectionPolicy; no code in
// the session calls it, and the session has no host-level reconnect loop.
type ExponentialReconnectionPolicy struct {
	b *backoff.ExponentialBackOff
}

func NewExponentialReconnectionPolicy(minDelay, maxDelay time.Duration) *ExponentialReconnectionPolicy {
	b := backoff.NewExponentialBackOff()
	if minDelay > 0 {
		b.InitialInterval = minDelay
	}
	if maxDelay > 0 {
		b.MaxInterval = maxDelay
	}
	b.MaxElapsedTime = 0 // retry forever; the session decides when to give up
	return &ExponentialReconnectionPolicy{b: b}
}

func (p *ExponentialReconnectionPolicy) NextDelay() time.Duration { return p.b.NextBackOff() }
func (p *ExponentialReconnectionPolicy) Reset()                   { p.b.Reset() }

// ConstantReconnectionPolicy retries at a fixed interval, useful for tests
// and for operators who want predictable reconnect cadence.
type ConstantReconnectionPolicy struct {
	Delay time.Duration
}

func (p ConstantReconnectionPolicy) NextDelay() time.Duration { return p.Delay }
func (p ConstantReconnectionPolicy) Reset()                   {}
