package cqlerr_test

import (
	"testing"

	"github.com/scylladb/go-cql-driver/cqlerr"
	"github.com/scylladb/go-cql-driver/frame"
)

func TestParseResponseErrorUnavailable(t *testing.T) {
	b := &frame.Buffer{}
	b.WriteInt(frame.ErrUnavailable)
	b.WriteString("not enough replicas")
	b.WriteConsistency(frame.ConsistencyQuorum)
	b.WriteInt(3)
	b.WriteInt(1)

	r := frame.NewBuffer(b.Bytes())
	got := cqlerr.ParseResponseError(r)
	if r.Error() != nil {
		t.Fatalf("unexpected read error: %v", r.Error())
	}
	if got.Subkind != cqlerr.SubkindUnavailable {
		t.Fatalf("subkind: got %v", got.Subkind)
	}
	if got.BlockFor != 3 || got.Alive != 1 {
		t.Fatalf("unexpected fields: %+v", got)
	}
	if got.ErrorCode() != frame.ErrUnavailable {
		t.Fatalf("ErrorCode: got %#x", got.ErrorCode())
	}
}

func TestParseResponseErrorUnprepared(t *testing.T) {
	b := &frame.Buffer{}
	b.WriteInt(frame.ErrUnprepared)
	b.WriteString("unknown prepared id")
	b.WriteShortBytes([]byte{1, 2, 3, 4})

	r := frame.NewBuffer(b.Bytes())
	got := cqlerr.ParseResponseError(r)
	if got.Subkind != cqlerr.SubkindUnprepared {
		t.Fatalf("subkind: got %v", got.Subkind)
	}
	if string(got.UnknownID) != "\x01\x02\x03\x04" {
		t.Fatalf("UnknownID: got %v", got.UnknownID)
	}
}

func TestNoHostAvailableError(t *testing.T) {
	err := cqlerr.NoHostAvailable{Errors: map[string]error{
		"10.0.0.1": cqlerr.BusyConnection{},
		"10.0.0.2": cqlerr.OperationTimedOut{Msg: "deadline exceeded"},
	}}
	if err.Error() == "" {
		t.Fatal("expected non-empty message")
	}
}
