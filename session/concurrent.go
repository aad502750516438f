package session

import (
	"context"
	"sync"
)

// ConcurrentResult is one Query's outcome from executeConcurrent, in the
// same order as the input slice.
type ConcurrentResult struct {
	Rows RowSet
	Err  error
}

// ExecuteConcurrent runs queries with bounded fan-out, per spec.md §4.6's
// executeConcurrent helper: at most concurrency requests in flight at
// once, results collected in input order. concurrency<=0 defaults to 32.
func ExecuteConcurrent(ctx context.Context, queries []*Query, concurrency int) []ConcurrentResult {
	if concurrency <= 0 {
		concurrency = 32
	}
	results := make([]ConcurrentResult, len(queries))
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	for i, q := range queries {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, q *Query) {
			defer wg.Done()
			defer func() { <-sem }()
			rs, err := q.page(ctx)
			results[i] = ConcurrentResult{Rows: rs, Err: err}
		}(i, q)
	}
	wg.Wait()
	return results
}
