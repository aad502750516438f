package transport

import (
	"fmt"
	"math"
	"math/bits"
	"sync"

	"github.com/scylladb/go-cql-driver/frame"
)

const (
	maxStreamID = math.MaxInt16

	bucketSize  = 64
	bucketCount = (maxStreamID + 1) / bucketSize
)

// streamAllocator hands out stream IDs from a fixed pool using a bitmap, the
// same scheme as the teacher's transport/stream.go, guarded by a mutex since
// concurrent SendRequest calls allocate and free IDs from many goroutines.
type streamAllocator struct {
	mu     sync.Mutex
	used   [bucketCount]uint64
	free   chan struct{} // signaled on Free; no allocation path waits on it
}

func newStreamAllocator() *streamAllocator {
	return &streamAllocator{free: make(chan struct{}, 1)}
}

var errAllStreamsBusy = fmt.Errorf("transport: all stream IDs are busy")

func (s *streamAllocator) tryAlloc() (frame.StreamID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, block := range &s.used {
		if block < math.MaxUint64 {
			offset := bits.TrailingZeros64(^block)
			s.used[i] |= 1 << uint(offset)
			return frame.StreamID(offset + i*bucketSize), nil
		}
	}
	return -1, errAllStreamsBusy
}

func (s *streamAllocator) Free(id frame.StreamID) {
	s.mu.Lock()
	blockID := id / bucketSize
	offset := id % bucketSize
	s.used[blockID] &^= 1 << uint(offset)
	s.mu.Unlock()
	select {
	case s.free <- struct{}{}:
	default:
	}
}

// InUse reports how many stream IDs are currently allocated.
func (s *streamAllocator) InUse() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, block := range &s.used {
		n += bits.OnesCount64(block)
	}
	return n
}
