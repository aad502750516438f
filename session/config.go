package session

import (
	"crypto/tls"
	"time"

	"github.com/scylladb/go-log"

	"github.com/scylladb/go-cql-driver/cluster"
	"github.com/scylladb/go-cql-driver/frame"
	"github.com/scylladb/go-cql-driver/policy"
	"github.com/scylladb/go-cql-driver/transport"
)

// Config is the session's configuration surface, spec.md §6's
// "Configuration surface (session)" narrowed to the knobs this driver
// actually implements.
type Config struct {
	ContactPoints []string
	Keyspace      string

	Authenticator transport.Authenticator
	TLSConfig     *tls.Config

	ConnectTimeout    time.Duration
	ReadTimeout       time.Duration
	HeartbeatInterval time.Duration

	ConnectionsPerHost int
	MaxPrepared        int

	// MaxRequestsPerConnection bounds in-flight requests per connection
	// before it is treated as saturated and a sibling connection (or host)
	// is tried instead; zero means transport's default of 2048.
	MaxRequestsPerConnection int
	// DefunctReadTimeoutThreshold is how many requests must simultaneously
	// time out on one connection before it is marked defunct; zero means
	// transport's default of 64.
	DefunctReadTimeoutThreshold int

	DefaultConsistency frame.Consistency

	HostSelectionPolicy func(*cluster.Registry) policy.HostSelectionPolicy
	RetryPolicy         policy.RetryPolicy
	ReconnectionPolicy  policy.ReconnectionPolicy

	Logger log.Logger
}

// DefaultConfig returns a Config with spec.md's documented defaults applied.
func DefaultConfig(keyspace string, contactPoints ...string) Config {
	return Config{
		ContactPoints:               contactPoints,
		Keyspace:                    keyspace,
		ConnectTimeout:              5 * time.Second,
		ReadTimeout:                 12 * time.Second,
		HeartbeatInterval:           30 * time.Second,
		ConnectionsPerHost:          2,
		MaxPrepared:                 512,
		MaxRequestsPerConnection:    2048,
		DefunctReadTimeoutThreshold: 64,
		DefaultConsistency:          frame.ConsistencyLocalOne,
		HostSelectionPolicy:         func(reg *cluster.Registry) policy.HostSelectionPolicy { return policy.NewRoundRobin(reg) },
		RetryPolicy:                 policy.DefaultRetryPolicy{},
		ReconnectionPolicy:          policy.NewExponentialReconnectionPolicy(time.Second, time.Minute),
		Logger:                      log.NopLogger,
	}
}
