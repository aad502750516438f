// Package cqlerr defines the driver's error taxonomy: client-side errors
// (argument validation, authentication, connection exhaustion, timeouts) and
// the server-reported ResponseError family parsed off ERROR frames.
package cqlerr

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/scylladb/go-cql-driver/frame"
)

// ArgumentError reports a client-side misuse of the API: wrong bind-value
// count or type, an invalid consistency level, and similar mistakes caught
// before a request ever reaches the wire.
type ArgumentError struct {
	Msg string
}

func (e ArgumentError) Error() string { return "cql: argument error: " + e.Msg }

// AuthenticationError wraps a failure during the AUTHENTICATE/AUTH_RESPONSE
// handshake, including a rejected AUTH_CHALLENGE and a missing or
// misconfigured Authenticator.
type AuthenticationError struct {
	Msg string
}

func (e AuthenticationError) Error() string { return "cql: authentication error: " + e.Msg }

// NoHostAvailable is returned when the load-balancing planner's iterator is
// exhausted without a host accepting the request: every candidate was
// filtered, down, or failed with an error the retry policy passed on to the
// next host. An error the retry policy rethrows is returned as is instead.
type NoHostAvailable struct {
	// Errors maps each host address tried to the error it returned. It is a
	// map, so it does not record the order in which hosts were attempted.
	Errors map[string]error
}

func (e NoHostAvailable) Error() string {
	return fmt.Sprintf("cql: no host available: tried %d host(s)", len(e.Errors))
}

// BusyConnection is returned when a connection's in-flight stream budget is
// exhausted; the request fails at once rather than waiting for a stream to
// free up.
type BusyConnection struct{}

func (BusyConnection) Error() string { return "cql: connection has no free streams" }

// OperationTimedOut is returned when a request's context deadline elapses,
// or the driver's own per-request timeout fires, before a response arrives.
type OperationTimedOut struct {
	Msg string
}

func (e OperationTimedOut) Error() string { return "cql: operation timed out: " + e.Msg }

// ShutdownError is returned by any operation attempted on, or racing, a
// Session or Conn that has begun or completed shutdown.
type ShutdownError struct{}

func (ShutdownError) Error() string { return "cql: session is shut down" }

// DecodingError wraps a failure to parse a frame body or a CQL value from
// server bytes: truncated frame, unexpected type tag, or invariant violation
// in the wire format itself (not the caller's fault).
type DecodingError struct {
	Msg string
	Err error
}

func (e DecodingError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("cql: decoding error: %s: %v", e.Msg, e.Err)
	}
	return "cql: decoding error: " + e.Msg
}

func (e DecodingError) Unwrap() error { return e.Err }

// DriverInternal marks a condition the driver considers a bug in itself
// rather than in the caller's usage or the server's behavior.
type DriverInternal struct {
	Msg string
}

func (e DriverInternal) Error() string { return "cql: internal error: " + e.Msg }

// Subkind further classifies a ResponseError beyond its wire code, mirroring
// the richer server-error taxonomy carried by original_source/src/errors.rs.
type Subkind int

const (
	SubkindUnknown Subkind = iota
	SubkindUnavailable
	SubkindWriteTimeout
	SubkindReadTimeout
	SubkindReadFailure
	SubkindWriteFailure
	SubkindFunctionFailure
	SubkindAlreadyExists
	SubkindUnprepared
	SubkindConfigError
)

// ResponseError wraps a server ERROR frame. Code is the raw wire ErrorCode
// (frame.ErrUnavailable and friends); Subkind classifies it for callers that
// want to switch without importing frame; the optional fields below are
// populated only for the subkinds that carry them.
type ResponseError struct {
	Code    frame.ErrorCode
	Subkind Subkind
	Message string

	Consistency frame.Consistency
	Received    frame.Int
	BlockFor    frame.Int
	Alive       frame.Int
	NumFailures frame.Int
	DataPresent bool
	WriteType   frame.WriteType
	Keyspace    string
	Table       string
	Function    string
	ArgTypes    frame.StringList
	UnknownID   []byte
}

func (e ResponseError) Error() string {
	return fmt.Sprintf("cql: server error %#x: %s", e.Code, e.Message)
}

func (e ResponseError) ErrorCode() frame.ErrorCode { return e.Code }

// ParseResponseError reads the body of an ERROR frame, dispatching on Code
// to pick up the subkind-specific trailing fields.
func ParseResponseError(b *frame.Buffer) ResponseError {
	code := b.ReadErrorCode()
	msg := b.ReadString()
	e := ResponseError{Code: code, Message: msg}
	switch code {
	case frame.ErrUnavailable:
		e.Subkind = SubkindUnavailable
		e.Consistency = b.ReadConsistency()
		e.BlockFor = b.ReadInt()
		e.Alive = b.ReadInt()
	case frame.ErrWriteTimeout:
		e.Subkind = SubkindWriteTimeout
		e.Consistency = b.ReadConsistency()
		e.Received = b.ReadInt()
		e.BlockFor = b.ReadInt()
		e.WriteType = b.ReadString()
	case frame.ErrReadTimeout:
		e.Subkind = SubkindReadTimeout
		e.Consistency = b.ReadConsistency()
		e.Received = b.ReadInt()
		e.BlockFor = b.ReadInt()
		e.DataPresent = b.ReadByte() != 0
	case frame.ErrReadFailure:
		e.Subkind = SubkindReadFailure
		e.Consistency = b.ReadConsistency()
		e.Received = b.ReadInt()
		e.BlockFor = b.ReadInt()
		e.NumFailures = b.ReadInt()
		e.DataPresent = b.ReadByte() != 0
	case frame.ErrWriteFailure:
		e.Subkind = SubkindWriteFailure
		e.Consistency = b.ReadConsistency()
		e.Received = b.ReadInt()
		e.BlockFor = b.ReadInt()
		e.NumFailures = b.ReadInt()
		e.WriteType = b.ReadString()
	case frame.ErrFunctionFailure:
		e.Subkind = SubkindFunctionFailure
		e.Keyspace = b.ReadString()
		e.Function = b.ReadString()
		e.ArgTypes = b.ReadStringList()
	case frame.ErrAlreadyExists:
		e.Subkind = SubkindAlreadyExists
		e.Keyspace = b.ReadString()
		e.Table = b.ReadString()
	case frame.ErrUnprepared:
		e.Subkind = SubkindUnprepared
		e.UnknownID = b.ReadShortBytes()
	case frame.ErrConfigError:
		e.Subkind = SubkindConfigError
	}
	return e
}

// Wrap attaches additional context to err using pkg/errors, matching the
// convention scylla-operator's pkg/scyllaclient package uses throughout.
func Wrap(err error, msg string) error {
	return errors.Wrap(err, msg)
}

func Wrapf(err error, format string, args ...interface{}) error {
	return errors.Wrapf(err, format, args...)
}
