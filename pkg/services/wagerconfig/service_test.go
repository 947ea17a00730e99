package wagerconfig

import (
	"context"
	"testing"

	"github.com/fadedpez/eldorado/pkg/entities"
	configRepo "github.com/fadedpez/eldorado/pkg/repositories/wagerconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// balancedConfig has an implied RTP of exactly the multiplier since a
// single symbol always fills every reel
func balancedConfig() *entities.WagerConfig {
	return &entities.WagerConfig{
		ConfigName: "slots",
		WagerCost:  10,
		Symbols: []entities.Symbol{
			{ID: "cherry", RarityWeight: 1, PayoutMultiplier: 0.95},
		},
		TargetRTP:        0.95,
		MaxWagersPerHour: 60,
	}
}

func newTestService() (*Service, *configRepo.MemoryRepository) {
	repo := configRepo.NewMemoryRepository()
	return NewService(repo, 0.05, nil), repo
}

func TestPublishAndGetActive(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	version, err := svc.Publish(ctx, balancedConfig())
	require.NoError(t, err)
	assert.Equal(t, int64(1), version)

	active, err := svc.GetActive(ctx, "slots")
	require.NoError(t, err)
	assert.Equal(t, int64(1), active.Version)
	assert.True(t, active.IsActive)
	assert.Equal(t, int64(10), active.WagerCost)
}

func TestPublishSupersedesPriorVersion(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Publish(ctx, balancedConfig())
	require.NoError(t, err)

	updated := balancedConfig()
	updated.WagerCost = 20
	version, err := svc.Publish(ctx, updated)
	require.NoError(t, err)
	assert.Equal(t, int64(2), version)

	active, err := svc.GetActive(ctx, "slots")
	require.NoError(t, err)
	assert.Equal(t, int64(2), active.Version)
	assert.Equal(t, int64(20), active.WagerCost)

	// The prior version stays queryable but inactive
	v1, err := svc.GetVersion(ctx, "slots", 1)
	require.NoError(t, err)
	assert.False(t, v1.IsActive)
	assert.Equal(t, int64(10), v1.WagerCost)
}

func TestGetActiveNoConfig(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.GetActive(context.Background(), "wheel")
	assert.ErrorIs(t, err, ErrNoActiveConfig)
}

func TestPublishValidation(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(*entities.WagerConfig)
	}{
		{"missing name", func(c *entities.WagerConfig) { c.ConfigName = "" }},
		{"zero cost", func(c *entities.WagerConfig) { c.WagerCost = 0 }},
		{"no symbols", func(c *entities.WagerConfig) { c.Symbols = nil }},
		{"empty symbol id", func(c *entities.WagerConfig) { c.Symbols[0].ID = "" }},
		{"zero weight", func(c *entities.WagerConfig) { c.Symbols[0].RarityWeight = 0 }},
		{"negative multiplier", func(c *entities.WagerConfig) { c.Symbols[0].PayoutMultiplier = -1 }},
		{"bad target rtp", func(c *entities.WagerConfig) { c.TargetRTP = 1.5 }},
		{"zero rate limit", func(c *entities.WagerConfig) { c.MaxWagersPerHour = 0 }},
		{"duplicate symbol", func(c *entities.WagerConfig) {
			c.Symbols = append(c.Symbols, c.Symbols[0])
		}},
		{"rtp outside tolerance", func(c *entities.WagerConfig) {
			// Implied RTP stays 0.95 but the declared target moves far away
			c.TargetRTP = 0.5
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := balancedConfig()
			tt.mutate(cfg)

			_, err := svc.Publish(ctx, cfg)
			assert.ErrorIs(t, err, ErrConfigInvariant)
		})
	}

	// Nothing invalid was activated
	_, err := svc.GetActive(ctx, "slots")
	assert.ErrorIs(t, err, ErrNoActiveConfig)
}

func TestPublishIndependentNames(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Publish(ctx, balancedConfig())
	require.NoError(t, err)

	wheel := balancedConfig()
	wheel.ConfigName = "wheel"
	version, err := svc.Publish(ctx, wheel)
	require.NoError(t, err)
	assert.Equal(t, int64(1), version, "versions are monotonic per name, not global")

	slots, err := svc.GetActive(ctx, "slots")
	require.NoError(t, err)
	assert.True(t, slots.IsActive)
}
