package id

import (
	"fmt"

	"github.com/google/uuid"
)

// Generator mints the opaque identifiers handed out to API clients.
type Generator interface {
	NewID() (string, error)
}

// RandomGenerator issues UUIDv7 strings. The embedded timestamp keeps
// spin event IDs roughly insertion-ordered, which makes them a stable
// secondary sort key for ledger replay.
type RandomGenerator struct{}

func NewRandomGenerator() *RandomGenerator {
	return &RandomGenerator{}
}

func (g *RandomGenerator) NewID() (string, error) {
	value, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate uuid: %w", err)
	}

	return value.String(), nil
}
