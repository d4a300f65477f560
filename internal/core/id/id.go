// Package id generates the identifiers used across the engine.
package id

import "github.com/google/uuid"

// ID aliases uuid.UUID so call sites stay decoupled from the library.
type ID = uuid.UUID

// Nil is the zero identifier.
var Nil ID = uuid.Nil

// New returns a UUIDv7. The embedded timestamp keeps primary keys
// roughly append-ordered, which suits the B-tree indexes on the ledger
// and request tables.
func New() ID {
	v7, err := uuid.NewV7()
	if err != nil {
		// NewV7 only fails when the entropy source does; fall back
		// to a random v4 rather than aborting the write.
		return uuid.New()
	}
	return v7
}

// Parse validates and converts a string identifier.
func Parse(s string) (ID, error) {
	return uuid.Parse(s)
}

// IsNil reports whether the identifier is unset.
func IsNil(id ID) bool {
	return id == Nil
}
