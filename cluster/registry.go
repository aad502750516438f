package cluster

import (
	"net"
	"sync"
)

// Registry is the driver's live view of cluster topology: known hosts, a
// sorted token ring per keyspace-independent "all replicas" view (spec.md
// does not require per-keyspace replication-aware rings, only the simpler
// primary-replica-by-token model §4.4 describes), and a set of listeners
// notified of membership/status changes.
type Registry struct {
	mu    sync.RWMutex
	hosts map[string]*Host // keyed by Addr.String()
	ring  Ring

	listeners []Listener
}

// Listener is notified of topology and status events as the control
// connection observes them.
type Listener interface {
	OnHostAdded(*Host)
	OnHostRemoved(*Host)
	OnHostUp(*Host)
	OnHostDown(*Host)
}

func NewRegistry() *Registry {
	return &Registry{hosts: make(map[string]*Host)}
}

func (r *Registry) Subscribe(l Listener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, l)
}

func (r *Registry) notify(f func(Listener)) {
	r.mu.RLock()
	ls := append([]Listener(nil), r.listeners...)
	r.mu.RUnlock()
	for _, l := range ls {
		f(l)
	}
}

// AddHost registers a previously-unknown host; a repeated Addr is a no-op,
// matching gossip/control-connection refresh semantics where NEW_NODE
// events can race a periodic full refresh.
func (r *Registry) AddHost(h *Host) {
	key := h.Addr.String()
	r.mu.Lock()
	if _, ok := r.hosts[key]; ok {
		r.mu.Unlock()
		return
	}
	r.hosts[key] = h
	r.mu.Unlock()
	r.notify(func(l Listener) { l.OnHostAdded(h) })
}

func (r *Registry) RemoveHost(addr net.IP) {
	key := addr.String()
	r.mu.Lock()
	h, ok := r.hosts[key]
	if ok {
		delete(r.hosts, key)
	}
	r.mu.Unlock()
	if ok {
		r.notify(func(l Listener) { l.OnHostRemoved(h) })
	}
}

func (r *Registry) MarkUp(addr net.IP) {
	r.mu.RLock()
	h, ok := r.hosts[addr.String()]
	r.mu.RUnlock()
	if !ok {
		return
	}
	h.MarkUp()
	r.notify(func(l Listener) { l.OnHostUp(h) })
}

func (r *Registry) MarkDown(addr net.IP) {
	r.mu.RLock()
	h, ok := r.hosts[addr.String()]
	r.mu.RUnlock()
	if !ok {
		return
	}
	h.MarkDown()
	r.notify(func(l Listener) { l.OnHostDown(h) })
}

// Hosts returns a snapshot of every known host.
func (r *Registry) Hosts() []*Host {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Host, 0, len(r.hosts))
	for _, h := range r.hosts {
		out = append(out, h)
	}
	return out
}

func (r *Registry) Host(addr net.IP) (*Host, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.hosts[addr.String()]
	return h, ok
}

// SetRing replaces the token ring wholesale, called after a full topology
// refresh rebuilds it from each host's token ownership.
func (r *Registry) SetRing(ring Ring) {
	ring.Sort()
	r.mu.Lock()
	r.ring = ring
	r.mu.Unlock()
}

// ReplicasForToken returns the primary replica for token followed by the
// remaining hosts in ring order, for token-aware load balancing.
func (r *Registry) ReplicasForToken(token Token) []*Host {
	r.mu.RLock()
	ring := r.ring
	r.mu.RUnlock()
	if len(ring) == 0 {
		return nil
	}
	start := ring.TokenLowerBound(token)
	it := ring.Iter(start)
	out := make([]*Host, 0, len(ring))
	seen := make(map[string]bool, len(ring))
	for h := it.Next(); h != nil; h = it.Next() {
		key := h.Addr.String()
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, h)
	}
	return out
}

// TokenForPartitionKey hashes a serialized partition key into a ring token
// using the Murmur3 partitioner, the only partitioner spec.md requires.
func TokenForPartitionKey(key []byte) Token {
	return tokenFunc(key)
}
