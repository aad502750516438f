package cluster

import "github.com/scylladb/go-cql-driver/cluster/murmur"

// tokenFunc is the partitioner token function. Murmur3Partitioner is the
// only partitioner spec.md §4.4 requires; ordering a RandomPartitioner or
// ByteOrderedPartitioner variant is left for a future driver revision.
var tokenFunc = murmur.Token
