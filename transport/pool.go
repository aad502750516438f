package transport

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/scylladb/go-log"

	"github.com/scylladb/go-cql-driver/cqlerr"
)

// PoolConfig configures a Pool of connections to a single host. Unlike the
// teacher's shard-aware ConnPool (one connection per ScyllaDB shard, picked
// by token), spec.md's Connection model (§4.3) calls for a plain
// N-connections-per-host pool with no shard routing — see DESIGN.md's
// "Dropped teacher code" entry.
type PoolConfig struct {
	ConnConfig   ConnConfig
	Size         int
	ReconnectMin time.Duration
	ReconnectMax time.Duration
	Logger       log.Logger
}

// Pool maintains Size live connections to one host, round-robining
// requests across them and refilling in the background when one goes
// defunct.
type Pool struct {
	cfg PoolConfig

	mu    sync.Mutex
	conns []*Conn
	next  int

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewPool dials Size connections (best-effort: a pool with at least one
// live connection is returned even if some dials fail; the background
// refiller keeps retrying the rest).
func NewPool(ctx context.Context, cfg PoolConfig) (*Pool, error) {
	if cfg.Size <= 0 {
		cfg.Size = 1
	}
	pctx, cancel := context.WithCancel(context.Background())
	p := &Pool{cfg: cfg, ctx: pctx, cancel: cancel}

	var lastErr error
	for i := 0; i < cfg.Size; i++ {
		c, err := Connect(ctx, cfg.ConnConfig)
		if err != nil {
			lastErr = err
			continue
		}
		p.addConn(c)
	}

	p.mu.Lock()
	empty := len(p.conns) == 0
	p.mu.Unlock()
	if empty {
		cancel()
		return nil, cqlerr.Wrap(lastErr, "transport: could not establish any connection")
	}

	p.wg.Add(1)
	go p.refillLoop()
	return p, nil
}

func (p *Pool) addConn(c *Conn) {
	c.SetOnDefunct(func(dead *Conn, err error) {
		p.cfg.Logger.Info(context.Background(), "transport: connection defunct, scheduling refill", "host", p.cfg.ConnConfig.Host, "error", err)
		p.remove(dead)
	})
	p.mu.Lock()
	p.conns = append(p.conns, c)
	p.mu.Unlock()
}

func (p *Pool) remove(dead *Conn) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, c := range p.conns {
		if c == dead {
			p.conns = append(p.conns[:i], p.conns[i+1:]...)
			return
		}
	}
}

func (p *Pool) refillLoop() {
	defer p.wg.Done()
	t := time.NewTicker(5 * time.Second)
	defer t.Stop()
	for {
		select {
		case <-p.ctx.Done():
			return
		case <-t.C:
			p.mu.Lock()
			missing := p.cfg.Size - len(p.conns)
			p.mu.Unlock()
			if missing <= 0 {
				continue
			}
			p.tryRefill(missing)
		}
	}
}

func (p *Pool) tryRefill(n int) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.cfg.ReconnectMin
	if b.InitialInterval <= 0 {
		b.InitialInterval = 500 * time.Millisecond
	}
	if p.cfg.ReconnectMax > 0 {
		b.MaxInterval = p.cfg.ReconnectMax
	}
	for i := 0; i < n; i++ {
		select {
		case <-p.ctx.Done():
			return
		default:
		}
		ctx, cancel := context.WithTimeout(p.ctx, p.cfg.ConnConfig.ConnectTimeout)
		c, err := Connect(ctx, p.cfg.ConnConfig)
		cancel()
		if err != nil {
			p.cfg.Logger.Debug(context.Background(), "transport: refill dial failed", "host", p.cfg.ConnConfig.Host, "error", err)
			time.Sleep(b.NextBackOff())
			continue
		}
		p.addConn(c)
	}
}

// Pick returns a connection to issue a request on, round-robin across the
// live set, skipping any connection already at MaxRequestsPerConnection so a
// saturated sibling doesn't get handed out while another in the same pool
// has room. Returns false only once every live connection is saturated (or
// the pool has none), leaving the caller's own next-host loop to try
// elsewhere.
func (p *Pool) Pick() (*Conn, bool) {
	p.mu.Lock()
	n := len(p.conns)
	if n == 0 {
		p.mu.Unlock()
		return nil, false
	}
	start := p.next
	p.next++
	conns := p.conns
	p.mu.Unlock()

	limit := p.cfg.ConnConfig.maxRequests()
	for i := 0; i < n; i++ {
		c := conns[(start+i)%n]
		if int(c.InFlight()) < limit {
			return c, true
		}
	}
	return nil, false
}

// Len reports the number of currently live connections.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.conns)
}

// Close shuts down every connection in the pool and stops the refiller.
func (p *Pool) Close() error {
	p.cancel()
	p.wg.Wait()
	p.mu.Lock()
	conns := p.conns
	p.conns = nil
	p.mu.Unlock()
	for _, c := range conns {
		c.Close()
	}
	return nil
}
