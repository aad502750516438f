package policy

import (
	"net"
	"testing"

	"github.com/scylladb/go-cql-driver/cluster"
	"github.com/scylladb/go-cql-driver/cqltype"
)

func newTestHost(dc, rack string, lastOctet byte) *cluster.Host {
	return cluster.NewHost(cqltype.UUID{}, net.IPv4(10, 0, 0, lastOctet), 9042, dc, rack)
}

func newTestRegistry(hosts ...*cluster.Host) *cluster.Registry {
	reg := cluster.NewRegistry()
	for _, h := range hosts {
		reg.AddHost(h)
	}
	return reg
}

func TestRoundRobinVisitsEveryAliveHostOnce(t *testing.T) {
	h1 := newTestHost("dc1", "r1", 1)
	h2 := newTestHost("dc1", "r1", 2)
	h3 := newTestHost("dc1", "r1", 3)
	reg := newTestRegistry(h1, h2, h3)

	rr := NewRoundRobin(reg)
	plan := Plan(rr, QueryInfo{})
	if len(plan) != 3 {
		t.Fatalf("got %d hosts, want 3", len(plan))
	}
	seen := map[string]bool{}
	for _, h := range plan {
		seen[h.Addr.String()] = true
	}
	if len(seen) != 3 {
		t.Fatalf("plan repeats hosts: %v", plan)
	}
}

func TestRoundRobinSkipsDownHosts(t *testing.T) {
	h1 := newTestHost("dc1", "r1", 1)
	h2 := newTestHost("dc1", "r1", 2)
	h2.MarkDown()
	reg := newTestRegistry(h1, h2)

	rr := NewRoundRobin(reg)
	plan := Plan(rr, QueryInfo{})
	if len(plan) != 1 || plan[0] != h1 {
		t.Fatalf("expected only h1 in plan, got %v", plan)
	}
}

func TestRoundRobinNextRotatesStartingHost(t *testing.T) {
	h1 := newTestHost("dc1", "r1", 1)
	h2 := newTestHost("dc1", "r1", 2)
	h3 := newTestHost("dc1", "r1", 3)
	reg := newTestRegistry(h1, h2, h3)

	rr := NewRoundRobin(reg)
	first := rr.Node(QueryInfo{}, 0)
	rr.Next()
	second := rr.Node(QueryInfo{}, 0)
	rr.Next()
	third := rr.Node(QueryInfo{}, 0)

	if first == second || second == third || first == third {
		t.Fatalf("expected Next to advance the starting host each call, got %v, %v, %v", first, second, third)
	}
}

func TestAllowListForwardsNextToRotatingChild(t *testing.T) {
	h1 := newTestHost("dc1", "r1", 1)
	h2 := newTestHost("dc1", "r1", 2)
	reg := newTestRegistry(h1, h2)

	rr := NewRoundRobin(reg)
	allowed := NewAllowList(rr, []string{hostKey(h1), hostKey(h2)})

	first := allowed.Node(QueryInfo{}, 0)
	allowed.Next()
	second := allowed.Node(QueryInfo{}, 0)
	if first == second {
		t.Fatal("expected AllowList.Next to forward to its rotating child")
	}
}

func TestDCAwarePrefersLocalAndOnlyFailsOverWhenPermitted(t *testing.T) {
	local := newTestHost("dc1", "r1", 1)
	remote := newTestHost("dc2", "r1", 2)
	reg := newTestRegistry(local, remote)

	noFailover := NewDCAware(reg, "dc1", false)
	plan := Plan(noFailover, QueryInfo{})
	if len(plan) != 1 || plan[0] != local {
		t.Fatalf("expected only local host without failover, got %v", plan)
	}

	withFailover := NewDCAware(reg, "dc1", true)
	plan = Plan(withFailover, QueryInfo{})
	if len(plan) != 2 || plan[0] != local || plan[1] != remote {
		t.Fatalf("expected [local, remote] with failover, got %v", plan)
	}
}

func TestAllowListFiltersChildPlan(t *testing.T) {
	h1 := newTestHost("dc1", "r1", 1)
	h2 := newTestHost("dc1", "r1", 2)
	reg := newTestRegistry(h1, h2)

	rr := NewRoundRobin(reg)
	allowed := NewAllowList(rr, []string{hostKey(h1)})
	plan := Plan(allowed, QueryInfo{})
	if len(plan) != 1 || plan[0] != h1 {
		t.Fatalf("expected only h1, got %v", plan)
	}
}

func TestDefaultOrdersLocalRackFirst(t *testing.T) {
	localRack := newTestHost("dc1", "rackA", 1)
	localDCOtherRack := newTestHost("dc1", "rackB", 2)
	remote := newTestHost("dc2", "rackA", 3)
	reg := newTestRegistry(localRack, localDCOtherRack, remote)

	ring := cluster.Ring{
		{Token: 10, Host: localRack},
		{Token: 20, Host: localDCOtherRack},
		{Token: 30, Host: remote},
	}
	reg.SetRing(ring)

	d := NewDefault(reg, DefaultConfig{
		PreferredDatacenter: "dc1",
		PreferredRack:       "rackA",
		TokenAware:          true,
		PermitDCFailover:    true,
	})
	plan := Plan(d, QueryInfo{TokenAware: true, Token: 5})
	if len(plan) != 3 {
		t.Fatalf("got %d hosts, want 3", len(plan))
	}
	if plan[0] != localRack {
		t.Fatalf("expected local-rack replica first, got %v", plan[0])
	}
}

func TestTokenAwareYieldsReplicasBeforeChild(t *testing.T) {
	replica := newTestHost("dc1", "r1", 1)
	other := newTestHost("dc1", "r1", 2)
	reg := newTestRegistry(replica, other)
	reg.SetRing(cluster.Ring{{Token: 10, Host: replica}})

	child := NewRoundRobin(reg)
	ta := NewTokenAware(reg, child, false, 1)
	plan := Plan(ta, QueryInfo{TokenAware: true, Token: 5})
	if len(plan) == 0 || plan[0] != replica {
		t.Fatalf("expected replica first in plan, got %v", plan)
	}
}

func TestDefaultWithoutFailoverExcludesRemote(t *testing.T) {
	local := newTestHost("dc1", "rackA", 1)
	remote := newTestHost("dc2", "rackA", 2)
	reg := newTestRegistry(local, remote)
	reg.SetRing(cluster.Ring{{Token: 10, Host: local}, {Token: 20, Host: remote}})

	d := NewDefault(reg, DefaultConfig{PreferredDatacenter: "dc1", TokenAware: true})
	plan := Plan(d, QueryInfo{TokenAware: true, Token: 5})
	for _, h := range plan {
		if h == remote {
			t.Fatalf("remote host present without PermitDCFailover: %v", plan)
		}
	}
}
