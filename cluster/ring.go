package cluster

import "sort"

// RingEntry binds one token-ring position to the host primarily
// responsible for it, grounded on transport/node.go's RingEntry/Ring in
// the vendored driver.
type RingEntry struct {
	Token Token
	Host  *Host
}

// Ring is a token-sorted replica set, searched with TokenLowerBound for
// token-aware routing and walked circularly by ReplicaIter for the
// remaining replicas of a given partition.
type Ring []RingEntry

func (r Ring) Len() int           { return len(r) }
func (r Ring) Less(i, j int) bool { return r[i].Token < r[j].Token }
func (r Ring) Swap(i, j int)      { r[i], r[j] = r[j], r[i] }

func (r Ring) Sort() { sort.Sort(r) }

// TokenLowerBound returns the index of the first entry whose token is >=
// token, wrapping to 0 if token is past the last entry — the CQL ring is
// circular.
func (r Ring) TokenLowerBound(token Token) int {
	start, end := 0, len(r)
	for start < end {
		mid := int(uint(start+end) >> 1)
		if r[mid].Token < token {
			start = mid + 1
		} else {
			end = mid
		}
	}
	if end >= len(r) {
		end = 0
	}
	return end
}

// ReplicaIter walks the ring starting at offset, wrapping around once, used
// to enumerate every host in token order starting from a partition's
// primary replica.
type ReplicaIter struct {
	ring    Ring
	offset  int
	fetched int
}

func (r Ring) Iter(offset int) *ReplicaIter {
	return &ReplicaIter{ring: r, offset: offset}
}

func (it *ReplicaIter) Next() *Host {
	if it.fetched >= len(it.ring) {
		return nil
	}
	h := it.ring[it.offset].Host
	it.offset++
	it.fetched++
	if it.offset >= len(it.ring) {
		it.offset = 0
	}
	return h
}
