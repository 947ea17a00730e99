package outcome

import (
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"math"

	"github.com/fadedpez/eldorado/pkg/entities"
)

// ReelCount is the number of symbols drawn per wager
const ReelCount = 3

var (
	ErrNoSymbols  = errors.New("config has no symbols")
	ErrZeroWeight = errors.New("config has zero total weight")
	ErrEmptySeed  = errors.New("random seed is empty")
)

// Outcome is the resolved result of one wager
type Outcome struct {
	Symbols    []string
	IsWin      bool
	Payout     int64
	Multiplier float64
}

// Resolve deterministically derives an outcome from a config and a
// random seed. Identical inputs always produce identical outputs, which
// is what makes settled wagers replayable for audit. The seed must come
// from a cryptographically strong source outside this function; no
// entropy is generated here and no I/O happens here.
func Resolve(cfg *entities.WagerConfig, seed []byte) (*Outcome, error) {
	if len(cfg.Symbols) == 0 {
		return nil, ErrNoSymbols
	}
	if len(seed) == 0 {
		return nil, ErrEmptySeed
	}

	totalWeight := cfg.TotalWeight()
	if totalWeight <= 0 {
		return nil, ErrZeroWeight
	}

	result := &Outcome{
		Symbols: make([]string, ReelCount),
	}

	allMatch := true
	var matched entities.Symbol
	for reel := 0; reel < ReelCount; reel++ {
		sym := drawSymbol(cfg.Symbols, totalWeight, seed, uint32(reel))
		result.Symbols[reel] = sym.ID
		if reel == 0 {
			matched = sym
		} else if sym.ID != matched.ID {
			allMatch = false
		}
	}

	// The payout table is three-of-a-kind per symbol
	if allMatch {
		result.IsWin = true
		result.Multiplier = matched.PayoutMultiplier
		result.Payout = int64(math.Round(float64(cfg.WagerCost) * matched.PayoutMultiplier))
	}

	return result, nil
}

// drawSymbol picks one symbol by cumulative-weight inversion over a
// hash-chain draw: point = sha256(seed || reel) mod totalWeight.
func drawSymbol(symbols []entities.Symbol, totalWeight int64, seed []byte, reel uint32) entities.Symbol {
	buf := make([]byte, 0, len(seed)+4)
	buf = append(buf, seed...)
	buf = binary.BigEndian.AppendUint32(buf, reel)

	digest := sha256.Sum256(buf)
	point := int64(binary.BigEndian.Uint64(digest[:8]) % uint64(totalWeight))

	var cumulative int64
	for _, sym := range symbols {
		cumulative += sym.RarityWeight
		if point < cumulative {
			return sym
		}
	}

	// Unreachable when weights sum to totalWeight
	return symbols[len(symbols)-1]
}

// ImpliedRTP computes the expected long-run return-to-player of a
// config under the three-of-a-kind payout table: the probability of
// each symbol filling all reels times its payout multiplier.
func ImpliedRTP(cfg *entities.WagerConfig) (float64, error) {
	if len(cfg.Symbols) == 0 {
		return 0, ErrNoSymbols
	}

	totalWeight := cfg.TotalWeight()
	if totalWeight <= 0 {
		return 0, ErrZeroWeight
	}

	var rtp float64
	for _, sym := range cfg.Symbols {
		p := float64(sym.RarityWeight) / float64(totalWeight)
		rtp += math.Pow(p, ReelCount) * sym.PayoutMultiplier
	}

	return rtp, nil
}
