package wagerconfig

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/fadedpez/eldorado/pkg/entities"
	"github.com/google/uuid"
)

var (
	ErrNoActiveConfig = errors.New("no active config")
	ErrConfigNotFound = errors.New("config not found")
)

// MemoryRepository implements Repository using in-memory storage
type MemoryRepository struct {
	configs map[string][]*entities.WagerConfig // configName -> versions
	mu      sync.RWMutex
}

// NewMemoryRepository creates a new in-memory config repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		configs: make(map[string][]*entities.WagerConfig),
	}
}

func copyConfig(cfg *entities.WagerConfig) *entities.WagerConfig {
	cfgCopy := *cfg
	cfgCopy.Symbols = append([]entities.Symbol(nil), cfg.Symbols...)
	return &cfgCopy
}

// GetActive retrieves the active config for a name
func (r *MemoryRepository) GetActive(ctx context.Context, configName string) (*entities.WagerConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, cfg := range r.configs[configName] {
		if cfg.IsActive {
			return copyConfig(cfg), nil
		}
	}

	return nil, ErrNoActiveConfig
}

// Publish deactivates the prior active row and activates the new one
// under one lock acquisition, assigning the next version number
func (r *MemoryRepository) Publish(ctx context.Context, cfg *entities.WagerConfig) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var maxVersion int64
	for _, existing := range r.configs[cfg.ConfigName] {
		if existing.Version > maxVersion {
			maxVersion = existing.Version
		}
		existing.IsActive = false
	}

	published := copyConfig(cfg)
	published.Version = maxVersion + 1
	published.IsActive = true
	if published.ID == "" {
		published.ID = uuid.New().String()
	}
	if published.EffectiveDate.IsZero() {
		published.EffectiveDate = time.Now()
	}

	r.configs[cfg.ConfigName] = append(r.configs[cfg.ConfigName], published)

	return published.Version, nil
}

// GetVersion retrieves a specific historical version
func (r *MemoryRepository) GetVersion(ctx context.Context, configName string, version int64) (*entities.WagerConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, cfg := range r.configs[configName] {
		if cfg.Version == version {
			return copyConfig(cfg), nil
		}
	}

	return nil, ErrConfigNotFound
}

// ListVersions retrieves all versions for a name, newest first
func (r *MemoryRepository) ListVersions(ctx context.Context, configName string) ([]*entities.WagerConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	versions := make([]*entities.WagerConfig, 0, len(r.configs[configName]))
	for _, cfg := range r.configs[configName] {
		versions = append(versions, copyConfig(cfg))
	}

	sort.Slice(versions, func(i, j int) bool {
		return versions[i].Version > versions[j].Version
	})

	return versions, nil
}

// Close is a no-op for the in-memory repository
func (r *MemoryRepository) Close() error {
	return nil
}
