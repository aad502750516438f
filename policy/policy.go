// Package policy implements pluggable host-selection, retry, and
// reconnection strategies for the session's execution engine.
package policy

import (
	"math/rand"
	"sort"
	"strconv"
	"sync/atomic"

	"github.com/scylladb/go-cql-driver/cluster"
)

// QueryInfo carries the routing-relevant facts about one request: whether it
// carries a computed token, and a rotating offset used to vary round-robin
// starting points across calls.
type QueryInfo struct {
	Keyspace   string
	TokenAware bool
	Token      cluster.Token
	Offset     uint64
}

// HostSelectionPolicy produces, for one request, a lazy iterator of
// candidate hosts. Node returns the i-th host of the plan, or nil once the
// plan is exhausted, mirroring the vendored driver's
// transport/policy.go HostSelectionPolicy contract.
type HostSelectionPolicy interface {
	Node(qi QueryInfo, i int) *cluster.Host
}

// Plan materializes a HostSelectionPolicy into a concrete slice, the shape
// most of the session's execute loop consumes.
func Plan(p HostSelectionPolicy, qi QueryInfo) []*cluster.Host {
	var hosts []*cluster.Host
	for i := 0; ; i++ {
		h := p.Node(qi, i)
		if h == nil {
			return hosts
		}
		hosts = append(hosts, h)
	}
}

func aliveHosts(reg *cluster.Registry) []*cluster.Host {
	all := reg.Hosts()
	out := all[:0]
	for _, h := range all {
		if h.IsUp() {
			out = append(out, h)
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Addr.String() < out[b].Addr.String() })
	return out
}

// RoundRobin cycles through every up host, starting from a rotating index.
type RoundRobin struct {
	reg     *cluster.Registry
	counter uint64
}

func NewRoundRobin(reg *cluster.Registry) *RoundRobin {
	return &RoundRobin{reg: reg}
}

func (p *RoundRobin) Node(qi QueryInfo, i int) *cluster.Host {
	hosts := aliveHosts(p.reg)
	if len(hosts) == 0 || i >= len(hosts) {
		return nil
	}
	start := atomic.AddUint64(&p.counter, 0) + qi.Offset
	idx := (start + uint64(i)) % uint64(len(hosts))
	return hosts[idx]
}

// Next advances the rotating start index, called once per newPlan() so
// successive plans begin at different offsets.
func (p *RoundRobin) Next() { atomic.AddUint64(&p.counter, 1) }

// Rotator is implemented by policies that keep a rotating start index and
// need to be told when a new plan begins. The session calls Next once per
// freshly-built QueryInfo (one Query.page/Batch.Exec call), the
// newPlan()-equivalent spec.md §4.5 describes.
type Rotator interface {
	Next()
}

// DCAware prefers hosts in preferredDC, round-robin, falling over to other
// datacenters only when permitFailover is set.
type DCAware struct {
	reg            *cluster.Registry
	preferredDC    string
	permitFailover bool
	counter        uint64
}

func NewDCAware(reg *cluster.Registry, preferredDC string, permitFailover bool) *DCAware {
	return &DCAware{reg: reg, preferredDC: preferredDC, permitFailover: permitFailover}
}

// Next advances the rotating start index, mirroring RoundRobin.Next.
func (p *DCAware) Next() { atomic.AddUint64(&p.counter, 1) }

func (p *DCAware) Node(qi QueryInfo, i int) *cluster.Host {
	var local, remote []*cluster.Host
	for _, h := range aliveHosts(p.reg) {
		if h.Datacenter == p.preferredDC {
			local = append(local, h)
		} else {
			remote = append(remote, h)
		}
	}
	start := atomic.AddUint64(&p.counter, 0) + qi.Offset
	if i < len(local) {
		idx := (start + uint64(i)) % uint64(len(local))
		return local[idx]
	}
	if !p.permitFailover {
		return nil
	}
	j := i - len(local)
	if j >= len(remote) {
		return nil
	}
	idx := (start + uint64(j)) % uint64(len(remote))
	return remote[idx]
}

// TokenAware yields a request's replica set first (optionally shuffled with
// a fixed-seed PRNG), then delegates to child for the remainder. Grounded on
// vendor/.../transport/policy.go's TokenAwarePolicy.Node.
type TokenAware struct {
	reg      *cluster.Registry
	child    HostSelectionPolicy
	shuffle  bool
	rndSeed  int64
}

func NewTokenAware(reg *cluster.Registry, child HostSelectionPolicy, shuffleReplicas bool, seed int64) *TokenAware {
	return &TokenAware{reg: reg, child: child, shuffle: shuffleReplicas, rndSeed: seed}
}

// Next forwards to child if it keeps its own rotating index.
func (p *TokenAware) Next() {
	if r, ok := p.child.(Rotator); ok {
		r.Next()
	}
}

func (p *TokenAware) Node(qi QueryInfo, i int) *cluster.Host {
	if !qi.TokenAware {
		return p.child.Node(qi, i)
	}
	replicas := p.reg.ReplicasForToken(qi.Token)
	if p.shuffle && len(replicas) > 1 {
		replicas = append([]*cluster.Host(nil), replicas...)
		rand.New(rand.NewSource(p.rndSeed)).Shuffle(len(replicas), func(a, b int) {
			replicas[a], replicas[b] = replicas[b], replicas[a]
		})
	}
	alive := replicas[:0]
	for _, h := range replicas {
		if h.IsUp() {
			alive = append(alive, h)
		}
	}
	if i < len(alive) {
		return alive[i]
	}
	return p.child.Node(qi, i-len(alive))
}

// AllowList filters child's output to hosts whose "ip:port" appears in set.
type AllowList struct {
	child HostSelectionPolicy
	set   map[string]struct{}
}

func NewAllowList(child HostSelectionPolicy, addrs []string) *AllowList {
	set := make(map[string]struct{}, len(addrs))
	for _, a := range addrs {
		set[a] = struct{}{}
	}
	return &AllowList{child: child, set: set}
}

// Next forwards to child if it keeps its own rotating index.
func (p *AllowList) Next() {
	if r, ok := p.child.(Rotator); ok {
		r.Next()
	}
}

func (p *AllowList) Node(qi QueryInfo, i int) *cluster.Host {
	for j := 0; ; j++ {
		h := p.child.Node(qi, j)
		if h == nil {
			return nil
		}
		if _, ok := p.set[hostKey(h)]; !ok {
			continue
		}
		if i == 0 {
			return h
		}
		i--
	}
}

func hostKey(h *cluster.Host) string {
	return h.Addr.String() + ":" + strconv.Itoa(h.Port)
}

// DefaultConfig configures Default's composition, mirroring spec.md §4.5's
// Default planner knobs.
type DefaultConfig struct {
	PreferredDatacenter    string
	PreferredRack          string
	TokenAware             bool // off unless set; NewDefault applies no default
	PermitDCFailover       bool
	EnableShufflingReplicas bool // off unless set; NewDefault applies no default
	AllowListAddrs         []string
	ShuffleSeed            int64
}

// Default composes RoundRobin/DCAware/TokenAware/AllowList per
// DefaultConfig, ordering candidates: (i) alive local-rack replicas in the
// preferred DC, (ii) other alive local-DC replicas, (iii) remaining alive
// local-DC nodes, (iv) if failover is enabled, alive remote-DC replicas then
// other remote-DC nodes.
type Default struct {
	reg *cluster.Registry
	cfg DefaultConfig
}

func NewDefault(reg *cluster.Registry, cfg DefaultConfig) *Default {
	return &Default{reg: reg, cfg: cfg}
}

func (p *Default) Node(qi QueryInfo, i int) *cluster.Host {
	plan := p.buildPlan(qi)
	if i >= len(plan) {
		return nil
	}
	return plan[i]
}

func (p *Default) buildPlan(qi QueryInfo) []*cluster.Host {
	var replicas []*cluster.Host
	if p.cfg.TokenAware && qi.TokenAware {
		replicas = p.reg.ReplicasForToken(qi.Token)
		if p.cfg.EnableShufflingReplicas && len(replicas) > 1 {
			replicas = append([]*cluster.Host(nil), replicas...)
			rand.New(rand.NewSource(p.cfg.ShuffleSeed)).Shuffle(len(replicas), func(a, b int) {
				replicas[a], replicas[b] = replicas[b], replicas[a]
			})
		}
	}

	var localRackReplicas, localDCReplicas, remoteReplicas []*cluster.Host
	seen := make(map[string]bool)
	for _, h := range replicas {
		if !h.IsUp() || seen[h.Addr.String()] {
			continue
		}
		seen[h.Addr.String()] = true
		switch {
		case p.cfg.PreferredDatacenter != "" && h.Datacenter == p.cfg.PreferredDatacenter &&
			p.cfg.PreferredRack != "" && h.Rack == p.cfg.PreferredRack:
			localRackReplicas = append(localRackReplicas, h)
		case p.cfg.PreferredDatacenter != "" && h.Datacenter == p.cfg.PreferredDatacenter:
			localDCReplicas = append(localDCReplicas, h)
		default:
			remoteReplicas = append(remoteReplicas, h)
		}
	}

	var otherLocal, otherRemote []*cluster.Host
	for _, h := range aliveHosts(p.reg) {
		if seen[h.Addr.String()] {
			continue
		}
		seen[h.Addr.String()] = true
		if p.cfg.PreferredDatacenter == "" || h.Datacenter == p.cfg.PreferredDatacenter {
			otherLocal = append(otherLocal, h)
		} else {
			otherRemote = append(otherRemote, h)
		}
	}
	sort.Slice(otherLocal, func(a, b int) bool { return otherLocal[a].Addr.String() < otherLocal[b].Addr.String() })
	sort.Slice(otherRemote, func(a, b int) bool { return otherRemote[a].Addr.String() < otherRemote[b].Addr.String() })

	plan := append([]*cluster.Host{}, localRackReplicas...)
	plan = append(plan, localDCReplicas...)
	plan = append(plan, otherLocal...)
	if p.cfg.PermitDCFailover {
		plan = append(plan, remoteReplicas...)
		plan = append(plan, otherRemote...)
	}
	return plan
}
