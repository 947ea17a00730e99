package entities

import (
	"time"
)

// Symbol is one reel symbol in a wager configuration. RarityWeight
// drives the weighted draw; PayoutMultiplier applies when all reels
// land on this symbol.
type Symbol struct {
	ID               string
	RarityWeight     int64
	PayoutMultiplier float64
}

// WagerConfig is a versioned ruleset for a wager feature. Versions are
// monotonic per ConfigName and exactly one version per name is active
// at a time. A config is immutable once any settled transaction
// references it; rule changes publish a new version.
type WagerConfig struct {
	ID               string    // Unique identifier
	ConfigName       string    // Feature name, e.g. "slots" or "wheel"
	Version          int64     // Monotonic per ConfigName
	IsActive         bool      // Exactly one active row per name
	WagerCost        int64     // Tokens debited per wager
	Symbols          []Symbol  // Ordered symbol list
	TargetRTP        float64   // Target return-to-player, 0..1
	MaxWagersPerHour int       // Per-user rate limit, trailing hour
	EffectiveDate    time.Time // When this version took effect
	Notes            string    // Free-text operator notes
}

// TotalWeight returns the sum of all symbol rarity weights.
func (c *WagerConfig) TotalWeight() int64 {
	var total int64
	for _, s := range c.Symbols {
		total += s.RarityWeight
	}
	return total
}
