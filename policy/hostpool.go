package policy

import (
	"sync"
	"time"

	"github.com/hailocab/go-hostpool"

	"github.com/scylladb/go-cql-driver/cluster"
)

// HostPoolPolicy is an adaptive alternative to the static planners above: it
// tracks a response-time/error epsilon-greedy distribution per host and
// biases selection toward hosts that have recently responded well. Grounded
// on pkg/scyllaclient/hostpool.go's use of github.com/hailocab/go-hostpool
// for REST endpoint selection, adapted here to pick CQL coordinators instead
// of HTTP hosts.
type HostPoolPolicy struct {
	reg  *cluster.Registry
	pool hostpool.HostPool

	byKey map[string]*cluster.Host

	mu      sync.Mutex
	pending map[string]hostpool.HostPoolResponse
}

// NewHostPoolPolicy builds an epsilon-greedy pool over reg's currently known
// hosts. The pool's host set is fixed at construction time; call Refresh
// after a topology change to rebuild it.
func NewHostPoolPolicy(reg *cluster.Registry, decay time.Duration) *HostPoolPolicy {
	p := &HostPoolPolicy{reg: reg}
	p.Refresh(decay)
	return p
}

func (p *HostPoolPolicy) Refresh(decay time.Duration) {
	hosts := p.reg.Hosts()
	keys := make([]string, 0, len(hosts))
	byKey := make(map[string]*cluster.Host, len(hosts))
	for _, h := range hosts {
		k := hostKey(h)
		keys = append(keys, k)
		byKey[k] = h
	}
	p.byKey = byKey
	p.pool = hostpool.NewEpsilonGreedy(keys, decay, &hostpool.LinearEpsilonValueCalculator{})
	p.pending = make(map[string]hostpool.HostPoolResponse)
}

// Node satisfies HostSelectionPolicy: it returns one adaptively-chosen host
// for i == 0, and falls back to alive-host round robin for subsequent
// retries, since go-hostpool's response model is built for a single
// selection per round-trip, not a full ordered plan. The HostPoolResponse
// backing an i==0 selection is retained until Mark reports its outcome.
func (p *HostPoolPolicy) Node(qi QueryInfo, i int) *cluster.Host {
	if i == 0 {
		resp := p.pool.Get()
		h, ok := p.byKey[resp.Host()]
		if ok && h.IsUp() {
			p.mu.Lock()
			p.pending[resp.Host()] = resp
			p.mu.Unlock()
			return h
		}
	}
	alive := aliveHosts(p.reg)
	if len(alive) == 0 {
		return nil
	}
	idx := (int(qi.Offset) + i) % len(alive)
	return alive[idx]
}

// Mark reports the outcome of the pending selection for h, feeding
// go-hostpool's epsilon-greedy decay so future selections favor hosts that
// succeed. A no-op if h was never handed out by Node as the i==0 pick.
func (p *HostPoolPolicy) Mark(h *cluster.Host, err error) {
	key := hostKey(h)
	p.mu.Lock()
	resp, ok := p.pending[key]
	if ok {
		delete(p.pending, key)
	}
	p.mu.Unlock()
	if ok {
		resp.Mark(err)
	}
}
