// Package session implements the driver's execution engine: session
// lifecycle, the prepared-statement cache, the per-statement execute
// pipeline (retry, paging, batch), and the executeConcurrent fan-out
// helper, per spec.md §4.6. Grounded on the vendored driver's session.go/
// query.go (NewSession, Query.Exec, iterWorker's retry/next-host loop),
// generalized to the explicit state machine and bounded/collapsing
// prepared cache spec.md requires.
package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/scylladb/go-log"

	"github.com/scylladb/go-cql-driver/cluster"
	"github.com/scylladb/go-cql-driver/cqlerr"
	"github.com/scylladb/go-cql-driver/policy"
	"github.com/scylladb/go-cql-driver/transport"
)

// State is one of the session lifecycle states spec.md §4.6 names.
type State int32

const (
	Created State = iota
	Connecting
	Connected
	ShuttingDown
	Shutdown
)

func (s State) String() string {
	switch s {
	case Created:
		return "Created"
	case Connecting:
		return "Connecting"
	case Connected:
		return "Connected"
	case ShuttingDown:
		return "ShuttingDown"
	case Shutdown:
		return "Shutdown"
	default:
		return "Unknown"
	}
}

// Session is the driver's top-level handle: it owns the host registry, a
// connection pool per host, the prepared-statement cache, and the
// load-balancing/retry policies applied to every request.
type Session struct {
	cfg Config

	mu    sync.Mutex
	state State
	// connectFuture is shared by concurrent Connect callers so a second
	// caller awaits the first's in-flight attempt instead of redialing.
	connectFuture chan struct{}
	connectErr    error

	registry *cluster.Registry
	planner  policy.HostSelectionPolicy

	pools map[string]*transport.Pool // keyed by Host.Addr.String()

	prepared *preparedCache

	ts *timestampGenerator

	logger log.Logger
}

// NewSession constructs a Session in the Created state. It does not dial
// anything; call Connect (or just run a Query or Batch, which connects lazily) to reach
// Connected.
func NewSession(cfg Config) *Session {
	return &Session{
		cfg:      cfg,
		registry: cluster.NewRegistry(),
		pools:    make(map[string]*transport.Pool),
		prepared: newPreparedCache(cfg.MaxPrepared),
		ts:       newTimestampGenerator(),
		logger:   cfg.Logger,
	}
}

// Connect dials the configured contact points, discovers topology via a
// control connection, and opens a pool to every discovered host.
// connect() is idempotent per spec.md §4.6: concurrent callers share the
// single in-flight attempt; a failed attempt leaves the Session in Created
// so a later call may retry.
func (s *Session) Connect(ctx context.Context) error {
	s.mu.Lock()
	switch s.state {
	case Connected:
		s.mu.Unlock()
		return nil
	case ShuttingDown, Shutdown:
		s.mu.Unlock()
		return cqlerr.ShutdownError{}
	case Connecting:
		fut := s.connectFuture
		s.mu.Unlock()
		select {
		case <-fut:
			s.mu.Lock()
			err := s.connectErr
			s.mu.Unlock()
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	s.state = Connecting
	fut := make(chan struct{})
	s.connectFuture = fut
	s.mu.Unlock()

	err := s.connect(ctx)

	s.mu.Lock()
	s.connectErr = err
	if err != nil {
		s.state = Created
	} else {
		s.state = Connected
	}
	close(fut)
	s.mu.Unlock()
	return err
}

func (s *Session) connect(ctx context.Context) error {
	if len(s.cfg.ContactPoints) == 0 {
		return argumentErrorf("no contact points configured")
	}

	errs := map[string]error{}
	for _, cp := range s.cfg.ContactPoints {
		if err := s.bootstrapFrom(ctx, cp); err != nil {
			errs[cp] = err
			continue
		}
		errs = nil
		break
	}
	if errs != nil {
		return cqlerr.NoHostAvailable{Errors: errs}
	}

	for _, h := range s.registry.Hosts() {
		if err := s.openPool(ctx, h); err != nil {
			s.logger.Debug(ctx, "session: pool open failed", "host", h.String(), "error", err)
		}
	}

	s.planner = s.cfg.HostSelectionPolicy(s.registry)
	return nil
}

func (s *Session) bootstrapFrom(ctx context.Context, contactPoint string) error {
	cfg := transport.ConnConfig{
		Host:                        contactPoint,
		Port:                        9042,
		Keyspace:                    s.cfg.Keyspace,
		TLSConfig:                   s.cfg.TLSConfig,
		Authenticator:               s.cfg.Authenticator,
		ConnectTimeout:              s.cfg.ConnectTimeout,
		WriteTimeout:                s.cfg.ReadTimeout,
		HeartbeatInterval:           s.cfg.HeartbeatInterval,
		DefunctReadTimeout:          s.cfg.ReadTimeout,
		DefunctReadTimeoutThreshold: s.cfg.DefunctReadTimeoutThreshold,
		MaxRequestsPerConnection:    s.cfg.MaxRequestsPerConnection,
		Logger:                      s.cfg.Logger,
	}
	conn, err := transport.Connect(ctx, cfg)
	if err != nil {
		return err
	}
	defer conn.Close()

	ctrl := cluster.NewControl(conn, s.registry)
	return ctrl.Refresh(ctx)
}

func (s *Session) openPool(ctx context.Context, h *cluster.Host) error {
	poolCfg := transport.PoolConfig{
		ConnConfig: transport.ConnConfig{
			Host:                        h.Addr.String(),
			Port:                        h.Port,
			Keyspace:                    s.cfg.Keyspace,
			TLSConfig:                   s.cfg.TLSConfig,
			Authenticator:               s.cfg.Authenticator,
			ConnectTimeout:              s.cfg.ConnectTimeout,
			WriteTimeout:                s.cfg.ReadTimeout,
			HeartbeatInterval:           s.cfg.HeartbeatInterval,
			DefunctReadTimeout:          s.cfg.ReadTimeout,
			DefunctReadTimeoutThreshold: s.cfg.DefunctReadTimeoutThreshold,
			MaxRequestsPerConnection:    s.cfg.MaxRequestsPerConnection,
			Logger:                      s.cfg.Logger,
		},
		Size:   s.cfg.ConnectionsPerHost,
		Logger: s.cfg.Logger,
	}
	pool, err := transport.NewPool(ctx, poolCfg)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.pools[h.Addr.String()] = pool
	s.mu.Unlock()
	return nil
}

// Close begins an orderly shutdown: ShuttingDown while pools drain, then
// Shutdown. Calls after ShuttingDown fail with ShutdownError per spec.md
// §4.6.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.state == Shutdown || s.state == ShuttingDown {
		s.mu.Unlock()
		return nil
	}
	s.state = ShuttingDown
	pools := make([]*transport.Pool, 0, len(s.pools))
	for _, p := range s.pools {
		pools = append(pools, p)
	}
	s.mu.Unlock()

	var firstErr error
	for _, p := range pools {
		if err := p.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	s.mu.Lock()
	s.state = Shutdown
	s.mu.Unlock()
	return firstErr
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) checkUsable() error {
	switch s.State() {
	case ShuttingDown, Shutdown:
		return cqlerr.ShutdownError{}
	}
	return nil
}

// newPlan must be called once per fresh QueryInfo, before the first pickAt
// for it, so a planner that rotates its start index (RoundRobin, DCAware)
// actually advances between requests instead of always starting at host[0].
func (s *Session) newPlan() {
	if r, ok := s.planner.(policy.Rotator); ok {
		r.Next()
	}
}

// pickAt tries exactly the i-th host of the planner's plan for qi. done=true
// means the plan is exhausted (h is nil); done=false with h nil means this
// slot had no pool yet or a saturated one, and the caller's own loop should
// advance to i+1 and try again — spec.md §4.6 step 4: "if saturated... try
// next". Skips are recorded in tried.
func (s *Session) pickAt(qi policy.QueryInfo, i int, tried map[string]error) (h *cluster.Host, conn *transport.Conn, done bool) {
	h = s.planner.Node(qi, i)
	if h == nil {
		return nil, nil, true
	}
	s.mu.Lock()
	pool := s.pools[h.Addr.String()]
	s.mu.Unlock()
	if pool == nil {
		tried[h.String()] = fmt.Errorf("no connection pool")
		return nil, nil, false
	}
	conn, ok := pool.Pick()
	if !ok {
		tried[h.String()] = cqlerr.BusyConnection{}
		return nil, nil, false
	}
	return h, conn, false
}

func tokenForRoutingKey(key []byte) (cluster.Token, bool) {
	if len(key) == 0 {
		return 0, false
	}
	return cluster.TokenForPartitionKey(key), true
}
