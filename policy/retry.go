package policy

import (
	"github.com/scylladb/go-cql-driver/cqlerr"
	"github.com/scylladb/go-cql-driver/frame"
)

// RetryDecision is what a RetryPolicy tells the execute loop to do next,
// per spec.md §7's Retry/RetryNextHost/Ignore/Rethrow vocabulary.
type RetryDecision int

const (
	Rethrow RetryDecision = iota
	Retry
	RetryNextHost
	Ignore
)

// RetryPolicy decides, for one failed attempt, whether and how to retry.
// Consistency is the consistency level to use on a Retry decision; it is
// the zero value (meaning "use the original consistency") unless the
// policy chooses to downgrade or upgrade it.
type RetryPolicy interface {
	OnReadTimeout(err cqlerr.ResponseError, retryCount int) (RetryDecision, frame.Consistency)
	OnWriteTimeout(err cqlerr.ResponseError, retryCount int) (RetryDecision, frame.Consistency)
	OnUnavailable(err cqlerr.ResponseError, retryCount int) (RetryDecision, frame.Consistency)
}

// DefaultRetryPolicy implements spec.md §7's Default retry policy: retry a
// read timeout if enough replicas answered but data wasn't present; retry a
// write timeout only for a batch log write; retry Unavailable once, on the
// next host.
type DefaultRetryPolicy struct{}

func (DefaultRetryPolicy) OnReadTimeout(err cqlerr.ResponseError, retryCount int) (RetryDecision, frame.Consistency) {
	if retryCount > 0 {
		return Rethrow, 0
	}
	if err.Received >= err.BlockFor && !err.DataPresent {
		return Retry, 0
	}
	return Rethrow, 0
}

func (DefaultRetryPolicy) OnWriteTimeout(err cqlerr.ResponseError, retryCount int) (RetryDecision, frame.Consistency) {
	if retryCount > 0 {
		return Rethrow, 0
	}
	if err.WriteType == frame.WriteBatchLog {
		return Retry, 0
	}
	return Rethrow, 0
}

func (DefaultRetryPolicy) OnUnavailable(err cqlerr.ResponseError, retryCount int) (RetryDecision, frame.Consistency) {
	if retryCount > 0 {
		return Rethrow, 0
	}
	return RetryNextHost, 0
}

// FallthroughRetryPolicy never retries; every server error surfaces
// verbatim to the caller.
type FallthroughRetryPolicy struct{}

func (FallthroughRetryPolicy) OnReadTimeout(cqlerr.ResponseError, int) (RetryDecision, frame.Consistency) {
	return Rethrow, 0
}

func (FallthroughRetryPolicy) OnWriteTimeout(cqlerr.ResponseError, int) (RetryDecision, frame.Consistency) {
	return Rethrow, 0
}

func (FallthroughRetryPolicy) OnUnavailable(cqlerr.ResponseError, int) (RetryDecision, frame.Consistency) {
	return Rethrow, 0
}
