package outcome

import (
	"testing"

	"github.com/fadedpez/eldorado/pkg/entities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *entities.WagerConfig {
	return &entities.WagerConfig{
		ConfigName: "slots",
		WagerCost:  10,
		Symbols: []entities.Symbol{
			{ID: "cherry", RarityWeight: 50, PayoutMultiplier: 2},
			{ID: "bell", RarityWeight: 30, PayoutMultiplier: 5},
			{ID: "seven", RarityWeight: 20, PayoutMultiplier: 10},
		},
	}
}

func TestResolveDeterministic(t *testing.T) {
	cfg := testConfig()
	seed := []byte("a fixed seed for replay")

	first, err := Resolve(cfg, seed)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		again, err := Resolve(cfg, seed)
		require.NoError(t, err)
		assert.Equal(t, first, again, "identical config and seed must produce identical outcomes")
	}
}

func TestResolveDifferentSeeds(t *testing.T) {
	cfg := testConfig()

	// With 100 seeds over a 3-symbol config at least two outcomes differ
	seen := make(map[string]bool)
	for i := byte(0); i < 100; i++ {
		result, err := Resolve(cfg, []byte{i, i + 1, i + 2, i + 3})
		require.NoError(t, err)
		seen[result.Symbols[0]+result.Symbols[1]+result.Symbols[2]] = true
	}
	assert.Greater(t, len(seen), 1, "different seeds should spread across outcomes")
}

func TestResolveReelCount(t *testing.T) {
	result, err := Resolve(testConfig(), []byte("seed"))
	require.NoError(t, err)
	assert.Len(t, result.Symbols, ReelCount)

	for _, id := range result.Symbols {
		assert.Contains(t, []string{"cherry", "bell", "seven"}, id)
	}
}

func TestResolveGuaranteedWin(t *testing.T) {
	// A single-symbol config matches on every reel
	cfg := &entities.WagerConfig{
		ConfigName: "slots",
		WagerCost:  10,
		Symbols: []entities.Symbol{
			{ID: "cherry", RarityWeight: 1, PayoutMultiplier: 2.5},
		},
	}

	result, err := Resolve(cfg, []byte("any seed"))
	require.NoError(t, err)

	assert.True(t, result.IsWin)
	assert.Equal(t, []string{"cherry", "cherry", "cherry"}, result.Symbols)
	assert.Equal(t, 2.5, result.Multiplier)
	assert.Equal(t, int64(25), result.Payout, "payout is cost times multiplier, rounded")
}

func TestResolveZeroMultiplierWin(t *testing.T) {
	cfg := &entities.WagerConfig{
		ConfigName: "slots",
		WagerCost:  10,
		Symbols: []entities.Symbol{
			{ID: "blank", RarityWeight: 1, PayoutMultiplier: 0},
		},
	}

	result, err := Resolve(cfg, []byte("seed"))
	require.NoError(t, err)

	assert.True(t, result.IsWin)
	assert.Zero(t, result.Payout)
}

func TestResolveLossPaysNothing(t *testing.T) {
	cfg := testConfig()

	// Walk seeds until a mixed outcome shows up
	for i := byte(0); i < 200; i++ {
		result, err := Resolve(cfg, []byte{i})
		require.NoError(t, err)
		if !result.IsWin {
			assert.Zero(t, result.Payout)
			assert.Zero(t, result.Multiplier)
			return
		}
	}
	t.Fatal("expected at least one losing outcome across 200 seeds")
}

func TestResolveErrors(t *testing.T) {
	t.Run("no symbols", func(t *testing.T) {
		_, err := Resolve(&entities.WagerConfig{WagerCost: 10}, []byte("seed"))
		assert.ErrorIs(t, err, ErrNoSymbols)
	})

	t.Run("empty seed", func(t *testing.T) {
		_, err := Resolve(testConfig(), nil)
		assert.ErrorIs(t, err, ErrEmptySeed)
	})

	t.Run("zero weight", func(t *testing.T) {
		cfg := &entities.WagerConfig{
			WagerCost: 10,
			Symbols:   []entities.Symbol{{ID: "x", RarityWeight: 0}},
		}
		_, err := Resolve(cfg, []byte("seed"))
		assert.ErrorIs(t, err, ErrZeroWeight)
	})
}

func TestImpliedRTP(t *testing.T) {
	// Single symbol: p^3 = 1, RTP equals the multiplier
	cfg := &entities.WagerConfig{
		Symbols: []entities.Symbol{{ID: "only", RarityWeight: 5, PayoutMultiplier: 0.9}},
	}
	rtp, err := ImpliedRTP(cfg)
	require.NoError(t, err)
	assert.InDelta(t, 0.9, rtp, 1e-9)

	// Two equal symbols: 2 * (0.5)^3 * m
	cfg = &entities.WagerConfig{
		Symbols: []entities.Symbol{
			{ID: "a", RarityWeight: 1, PayoutMultiplier: 4},
			{ID: "b", RarityWeight: 1, PayoutMultiplier: 4},
		},
	}
	rtp, err = ImpliedRTP(cfg)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, rtp, 1e-9)
}
