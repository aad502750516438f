package session

import (
	"container/list"
	"context"
	"sync"

	"github.com/scylladb/go-cql-driver/transport"
)

// preparedCache is a bounded, LRU-evicted cache of PreparedStatements keyed
// by query text, with concurrent-prepare collapsing: a second caller asking
// to prepare the same query while a PREPARE is in flight awaits the first
// caller's result instead of issuing a redundant request, per spec.md §4.6's
// prepared-statement cache section.
type preparedCache struct {
	mu       sync.Mutex
	capacity int
	entries  map[string]*list.Element
	order    *list.List // front = most recently used

	inflight map[string]*prepareFuture
}

type cacheEntry struct {
	query string
	ps    *PreparedStatement
}

type prepareFuture struct {
	done chan struct{}
	ps   *PreparedStatement
	err  error
}

func newPreparedCache(capacity int) *preparedCache {
	if capacity <= 0 {
		capacity = 512
	}
	return &preparedCache{
		capacity: capacity,
		entries:  make(map[string]*list.Element),
		order:    list.New(),
		inflight: make(map[string]*prepareFuture),
	}
}

func (c *preparedCache) get(query string) (*PreparedStatement, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.entries[query]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*cacheEntry).ps, true
}

func (c *preparedCache) put(query string, ps *PreparedStatement) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.entries[query]; ok {
		el.Value.(*cacheEntry).ps = ps
		c.order.MoveToFront(el)
		return
	}
	el := c.order.PushFront(&cacheEntry{query: query, ps: ps})
	c.entries[query] = el
	for c.order.Len() > c.capacity {
		oldest := c.order.Back()
		if oldest == nil {
			break
		}
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*cacheEntry).query)
	}
}

// prepareOn returns the cached PreparedStatement for query, issuing a
// PREPARE on conn and populating the cache if it isn't already present.
// Concurrent callers for the same query on the same cache share one PREPARE
// round-trip.
func (c *preparedCache) prepareOn(ctx context.Context, conn *transport.Conn, query string) (*PreparedStatement, error) {
	if ps, ok := c.get(query); ok {
		return ps, nil
	}

	c.mu.Lock()
	if fut, ok := c.inflight[query]; ok {
		c.mu.Unlock()
		<-fut.done
		return fut.ps, fut.err
	}
	fut := &prepareFuture{done: make(chan struct{})}
	c.inflight[query] = fut
	c.mu.Unlock()

	ps, err := doPrepare(ctx, conn, query)

	c.mu.Lock()
	delete(c.inflight, query)
	fut.ps, fut.err = ps, err
	c.mu.Unlock()
	close(fut.done)

	if err == nil {
		c.put(query, ps)
	}
	return ps, err
}
