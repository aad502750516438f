package policy

import (
	"testing"

	"github.com/scylladb/go-cql-driver/cqlerr"
	"github.com/scylladb/go-cql-driver/frame"
)

func TestDefaultRetryPolicyReadTimeout(t *testing.T) {
	p := DefaultRetryPolicy{}

	enough := cqlerr.ResponseError{Received: 2, BlockFor: 2, DataPresent: false}
	if d, _ := p.OnReadTimeout(enough, 0); d != Retry {
		t.Fatalf("expected Retry, got %v", d)
	}

	dataPresent := cqlerr.ResponseError{Received: 2, BlockFor: 2, DataPresent: true}
	if d, _ := p.OnReadTimeout(dataPresent, 0); d != Rethrow {
		t.Fatalf("expected Rethrow when data already present, got %v", d)
	}

	if d, _ := p.OnReadTimeout(enough, 1); d != Rethrow {
		t.Fatalf("expected Rethrow on a second attempt, got %v", d)
	}
}

func TestDefaultRetryPolicyWriteTimeout(t *testing.T) {
	p := DefaultRetryPolicy{}

	batchLog := cqlerr.ResponseError{WriteType: frame.WriteBatchLog}
	if d, _ := p.OnWriteTimeout(batchLog, 0); d != Retry {
		t.Fatalf("expected Retry for BATCH_LOG, got %v", d)
	}

	simple := cqlerr.ResponseError{WriteType: frame.WriteSimple}
	if d, _ := p.OnWriteTimeout(simple, 0); d != Rethrow {
		t.Fatalf("expected Rethrow for non-batch-log write, got %v", d)
	}
}

func TestDefaultRetryPolicyUnavailable(t *testing.T) {
	p := DefaultRetryPolicy{}
	if d, _ := p.OnUnavailable(cqlerr.ResponseError{}, 0); d != RetryNextHost {
		t.Fatalf("expected RetryNextHost, got %v", d)
	}
	if d, _ := p.OnUnavailable(cqlerr.ResponseError{}, 1); d != Rethrow {
		t.Fatalf("expected Rethrow on second attempt, got %v", d)
	}
}

func TestFallthroughRetryPolicyNeverRetries(t *testing.T) {
	p := FallthroughRetryPolicy{}
	if d, _ := p.OnReadTimeout(cqlerr.ResponseError{Received: 99, BlockFor: 1}, 0); d != Rethrow {
		t.Fatalf("expected Rethrow, got %v", d)
	}
	if d, _ := p.OnWriteTimeout(cqlerr.ResponseError{WriteType: frame.WriteBatchLog}, 0); d != Rethrow {
		t.Fatalf("expected Rethrow, got %v", d)
	}
	if d, _ := p.OnUnavailable(cqlerr.ResponseError{}, 0); d != Rethrow {
		t.Fatalf("expected Rethrow, got %v", d)
	}
}
