package wagerconfig

import (
	"context"

	"github.com/fadedpez/eldorado/pkg/entities"
)

//go:generate mockgen -source=$GOFILE -destination=mock/mock.go -package=mock_wagerconfig_repo

// Repository defines storage operations for versioned wager rulesets.
// Publish must uphold the one-active-version-per-name invariant as a
// single atomic step, even under concurrent publishes.
type Repository interface {
	// GetActive retrieves the active config for a name.
	// Returns ErrNoActiveConfig when none is marked active.
	GetActive(ctx context.Context, configName string) (*entities.WagerConfig, error)

	// Publish assigns the next version number for the name, deactivates
	// the prior active row and activates the new one in one atomic step.
	// Returns the assigned version.
	Publish(ctx context.Context, cfg *entities.WagerConfig) (int64, error)

	// GetVersion retrieves a specific historical version
	GetVersion(ctx context.Context, configName string, version int64) (*entities.WagerConfig, error)

	// ListVersions retrieves all versions for a name, newest first
	ListVersions(ctx context.Context, configName string) ([]*entities.WagerConfig, error)

	// Close closes any resources used by the repository
	Close() error
}
