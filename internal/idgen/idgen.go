// Package idgen produces order identifiers.
package idgen

import (
	"encoding/hex"

	"github.com/google/uuid"
)

type Generator interface {
	NewID() string
}

// Hex returns 32 lowercase hex characters drawn from a random (v4) UUID.
type Hex struct{}

func (Hex) NewID() string {
	id := uuid.New()
	return hex.EncodeToString(id[:])
}

// Func adapts a plain function, mostly for deterministic ids in tests.
type Func func() string

func (f Func) NewID() string {
	return f()
}
