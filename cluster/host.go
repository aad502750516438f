// Package cluster maintains the driver's view of cluster topology: the set
// of known hosts, their up/down status, and the token ring used for
// token-aware routing.
package cluster

import (
	"net"

	"go.uber.org/atomic"

	"github.com/scylladb/go-cql-driver/cqltype"
)

// Token is a position on the partitioner's token ring.
type Token = int64

// Host is one node in the cluster, confirmed against
// original_source/src/metadata/host.rs: rack and datacenter are carried as
// plain strings with no normalization.
type Host struct {
	ID         cqltype.UUID
	Addr       net.IP
	Port       int
	Datacenter string
	Rack       string
	Tokens     []Token

	status atomic.Bool // true = up
}

func NewHost(id cqltype.UUID, addr net.IP, port int, dc, rack string) *Host {
	h := &Host{ID: id, Addr: addr, Port: port, Datacenter: dc, Rack: rack}
	h.status.Store(true)
	return h
}

func (h *Host) IsUp() bool    { return h.status.Load() }
func (h *Host) MarkUp()       { h.status.Store(true) }
func (h *Host) MarkDown()     { h.status.Store(false) }

func (h *Host) String() string { return h.Addr.String() }
