package wagerconfig

import (
	"context"
	"sync"
	"testing"

	"github.com/fadedpez/eldorado/pkg/entities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleConfig(name string) *entities.WagerConfig {
	return &entities.WagerConfig{
		ConfigName: name,
		WagerCost:  10,
		Symbols: []entities.Symbol{
			{ID: "cherry", RarityWeight: 1, PayoutMultiplier: 0.95},
		},
		TargetRTP:        0.95,
		MaxWagersPerHour: 60,
	}
}

func TestPublishAssignsVersions(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	v1, err := repo.Publish(ctx, sampleConfig("slots"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), v1)

	v2, err := repo.Publish(ctx, sampleConfig("slots"))
	require.NoError(t, err)
	assert.Equal(t, int64(2), v2)
}

func TestExactlyOneActiveAfterPublishSequence(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := repo.Publish(ctx, sampleConfig("slots"))
		require.NoError(t, err)
	}

	versions, err := repo.ListVersions(ctx, "slots")
	require.NoError(t, err)
	require.Len(t, versions, 5)

	active := 0
	for _, v := range versions {
		if v.IsActive {
			active++
			assert.Equal(t, int64(5), v.Version, "the newest version is the active one")
		}
	}
	assert.Equal(t, 1, active)
}

func TestExactlyOneActiveUnderConcurrentPublish(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.Publish(ctx, sampleConfig("slots"))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	versions, err := repo.ListVersions(ctx, "slots")
	require.NoError(t, err)
	require.Len(t, versions, 20)

	active := 0
	seen := make(map[int64]bool)
	for _, v := range versions {
		assert.False(t, seen[v.Version], "versions are unique")
		seen[v.Version] = true
		if v.IsActive {
			active++
		}
	}
	assert.Equal(t, 1, active)
}

func TestGetVersionImmutableHistory(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	first := sampleConfig("slots")
	first.WagerCost = 10
	_, err := repo.Publish(ctx, first)
	require.NoError(t, err)

	second := sampleConfig("slots")
	second.WagerCost = 20
	_, err = repo.Publish(ctx, second)
	require.NoError(t, err)

	v1, err := repo.GetVersion(ctx, "slots", 1)
	require.NoError(t, err)
	assert.Equal(t, int64(10), v1.WagerCost, "historical versions keep their original values")

	_, err = repo.GetVersion(ctx, "slots", 99)
	assert.ErrorIs(t, err, ErrConfigNotFound)
}

func TestGetActiveUnknownName(t *testing.T) {
	repo := NewMemoryRepository()

	_, err := repo.GetActive(context.Background(), "wheel")
	assert.ErrorIs(t, err, ErrNoActiveConfig)
}
