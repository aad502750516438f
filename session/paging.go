package session

import (
	"context"
)

// Page fetches exactly one page starting at the Query's current paging
// state and returns it alongside the state needed to fetch the next one,
// per spec.md §4.6's single-page mode.
func (q *Query) Page(ctx context.Context) (RowSet, error) {
	return q.page(ctx)
}

// All runs the statement to completion, fetching pages until the server
// reports no more, per spec.md §4.6's unpaged convenience mode. Suitable
// only for result sets known to be small; large scans should use Iter.
func (q *Query) All(ctx context.Context) ([]Row, error) {
	var rows []Row
	rs, err := q.page(ctx)
	if err != nil {
		return nil, err
	}
	rows = append(rows, rs.Rows...)
	for rs.HasMorePages {
		q.pagingState = rs.PagingState
		rs, err = q.page(ctx)
		if err != nil {
			return nil, err
		}
		rows = append(rows, rs.Rows...)
	}
	return rows, nil
}

// Iter is a lazily-fetching row sequence: each call to Next may trigger a
// synchronous fetch of the next page. It implements spec.md §4.6's
// auto-page mode without buffering the whole result set in memory.
type Iter struct {
	q   *Query
	ctx context.Context

	rows []Row
	pos  int
	more bool
	err  error

	started bool
}

// Iter begins auto-paged iteration over the statement's results.
func (q *Query) Iter(ctx context.Context) *Iter {
	return &Iter{q: q, ctx: ctx}
}

// Next advances to the next row, fetching a new page transparently when
// the current one is exhausted. It returns false at end-of-results or on
// error; call Err afterward to distinguish the two.
func (it *Iter) Next() bool {
	if it.err != nil {
		return false
	}
	if !it.started {
		it.started = true
		if err := it.fetch(); err != nil {
			it.err = err
			return false
		}
	}
	for it.pos >= len(it.rows) {
		if !it.more {
			return false
		}
		if err := it.fetch(); err != nil {
			it.err = err
			return false
		}
	}
	it.pos++
	return true
}

func (it *Iter) fetch() error {
	rs, err := it.q.page(it.ctx)
	if err != nil {
		return err
	}
	it.rows = rs.Rows
	it.pos = 0
	it.more = rs.HasMorePages
	it.q.pagingState = rs.PagingState
	return nil
}

// Row returns the row Next just advanced to.
func (it *Iter) Row() Row {
	if it.pos == 0 || it.pos > len(it.rows) {
		return nil
	}
	return it.rows[it.pos-1]
}

// Err returns the error, if any, that stopped iteration.
func (it *Iter) Err() error { return it.err }
