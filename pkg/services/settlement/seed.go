package settlement

import (
	"crypto/rand"
	"fmt"
)

// seedBytes is the seed length handed to the outcome resolver
const seedBytes = 32

// SeedSource supplies the entropy for outcome resolution. The resolver
// itself never generates entropy, which keeps it pure and replayable.
type SeedSource interface {
	Seed() ([]byte, error)
}

// CryptoSeedSource draws seeds from the operating system CSPRNG
type CryptoSeedSource struct{}

// Seed returns a fresh 32-byte random seed
func (CryptoSeedSource) Seed() ([]byte, error) {
	seed := make([]byte, seedBytes)
	if _, err := rand.Read(seed); err != nil {
		return nil, fmt.Errorf("error reading random seed: %w", err)
	}
	return seed, nil
}
