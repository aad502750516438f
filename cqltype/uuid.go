package cqltype

import "github.com/google/uuid"

// UUID re-exports github.com/google/uuid's type so callers encoding Uuid or
// TimeUuid values don't need a direct import of that package, per
// SPEC_FULL.md's DOMAIN STACK: the ecosystem UUID library replaces the
// teacher's hand-rolled [16]byte.
type UUID = uuid.UUID

// NewTimeUUID generates a version-1 (time-based) UUID suitable for a
// TimeUuid column or a client-side query id.
func NewTimeUUID() (UUID, error) {
	return uuid.NewUUID()
}

// NewRandomUUID generates a version-4 (random) UUID suitable for a Uuid
// column.
func NewRandomUUID() (UUID, error) {
	return uuid.NewRandom()
}
