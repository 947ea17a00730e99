package wagerconfig

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/fadedpez/eldorado/internal/logging"
	"github.com/fadedpez/eldorado/pkg/entities"
	configRepo "github.com/fadedpez/eldorado/pkg/repositories/wagerconfig"
	"github.com/fadedpez/eldorado/pkg/services/outcome"
)

var (
	ErrNoActiveConfig = configRepo.ErrNoActiveConfig
	ErrConfigNotFound = configRepo.ErrConfigNotFound

	// ErrConfigInvariant is returned when a published ruleset would
	// violate a settlement invariant (for example an implied RTP outside
	// the allowed tolerance of the declared target).
	ErrConfigInvariant = errors.New("config invariant violation")
)

// Service is the configuration store: versioned, hot-swappable wager
// rulesets with exactly one active version per name. Handles are passed
// into the settlement engine explicitly; there is no process-wide
// configuration lookup.
type Service struct {
	repo         configRepo.Repository
	rtpTolerance float64
	logger       *logging.Logger
}

// NewService creates a new configuration store service
func NewService(repo configRepo.Repository, rtpTolerance float64, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default
	}
	return &Service{
		repo:         repo,
		rtpTolerance: rtpTolerance,
		logger:       logger,
	}
}

// GetActive returns the active ruleset for a config name
func (s *Service) GetActive(ctx context.Context, configName string) (*entities.WagerConfig, error) {
	return s.repo.GetActive(ctx, configName)
}

// GetVersion returns a specific historical ruleset version
func (s *Service) GetVersion(ctx context.Context, configName string, version int64) (*entities.WagerConfig, error) {
	return s.repo.GetVersion(ctx, configName, version)
}

// Publish validates a new ruleset and activates it, superseding the
// prior active version. Returns the assigned version number.
func (s *Service) Publish(ctx context.Context, cfg *entities.WagerConfig) (int64, error) {
	if err := s.validate(cfg); err != nil {
		return 0, err
	}

	version, err := s.repo.Publish(ctx, cfg)
	if err != nil {
		return 0, fmt.Errorf("error publishing config: %w", err)
	}

	s.logger.Info("[CONFIG] Published %s v%d: cost=%d symbols=%d targetRTP=%.3f",
		cfg.ConfigName, version, cfg.WagerCost, len(cfg.Symbols), cfg.TargetRTP)

	return version, nil
}

// validate rejects rulesets that would break settlement invariants
func (s *Service) validate(cfg *entities.WagerConfig) error {
	if cfg.ConfigName == "" {
		return fmt.Errorf("%w: config name is required", ErrConfigInvariant)
	}
	if cfg.WagerCost <= 0 {
		return fmt.Errorf("%w: wager cost must be positive, got %d", ErrConfigInvariant, cfg.WagerCost)
	}
	if len(cfg.Symbols) == 0 {
		return fmt.Errorf("%w: at least one symbol is required", ErrConfigInvariant)
	}
	seen := make(map[string]bool, len(cfg.Symbols))
	for _, sym := range cfg.Symbols {
		if sym.ID == "" {
			return fmt.Errorf("%w: symbol ID is required", ErrConfigInvariant)
		}
		if seen[sym.ID] {
			return fmt.Errorf("%w: duplicate symbol %q", ErrConfigInvariant, sym.ID)
		}
		seen[sym.ID] = true
		if sym.RarityWeight <= 0 {
			return fmt.Errorf("%w: symbol %q must have a positive rarity weight", ErrConfigInvariant, sym.ID)
		}
		if sym.PayoutMultiplier < 0 {
			return fmt.Errorf("%w: symbol %q has a negative payout multiplier", ErrConfigInvariant, sym.ID)
		}
	}
	if cfg.TargetRTP <= 0 || cfg.TargetRTP > 1 {
		return fmt.Errorf("%w: target RTP must be in (0, 1], got %f", ErrConfigInvariant, cfg.TargetRTP)
	}
	if cfg.MaxWagersPerHour <= 0 {
		return fmt.Errorf("%w: max wagers per hour must be positive, got %d", ErrConfigInvariant, cfg.MaxWagersPerHour)
	}

	implied, err := outcome.ImpliedRTP(cfg)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConfigInvariant, err)
	}
	if math.Abs(implied-cfg.TargetRTP) > s.rtpTolerance {
		return fmt.Errorf("%w: implied RTP %.4f is outside tolerance %.4f of target %.4f",
			ErrConfigInvariant, implied, s.rtpTolerance, cfg.TargetRTP)
	}

	return nil
}
