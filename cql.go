// Package cql is a thin façade over the driver's split packages
// (transport, cluster, policy, session), re-exporting the two
// constructors most callers need so they don't have to import
// session directly for the common case.
package cql

import (
	"context"

	"github.com/scylladb/go-cql-driver/session"
)

// ClusterConfig is session.Config under the name a caller building a
// cluster/session pair from scratch expects.
type ClusterConfig = session.Config

// NewCluster returns a ClusterConfig with documented defaults applied for
// the given keyspace and contact points, mirroring the teacher's
// gocql.NewCluster entry point.
func NewCluster(keyspace string, contactPoints ...string) ClusterConfig {
	return session.DefaultConfig(keyspace, contactPoints...)
}

// NewSession builds and connects a Session from cfg in one call.
func NewSession(ctx context.Context, cfg ClusterConfig) (*session.Session, error) {
	s := session.NewSession(cfg)
	if err := s.Connect(ctx); err != nil {
		return nil, err
	}
	return s, nil
}
