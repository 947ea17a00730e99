package scheduler

import (
	"context"
	"time"

	"github.com/fadedpez/eldorado/internal/logging"
	"github.com/fadedpez/eldorado/pkg/services/audit"
	"github.com/robfig/cron/v3"
)

// AuditSweepScheduler runs the archival sweep on a cron schedule
type AuditSweepScheduler struct {
	svc       *audit.Service
	retention time.Duration
	spec      string
	logger    *logging.Logger
	cron      *cron.Cron
}

// NewAuditSweepScheduler creates a scheduler for the archival sweep.
// spec is a standard five-field cron expression, e.g. "0 3 * * *" for
// daily at 03:00.
func NewAuditSweepScheduler(svc *audit.Service, retention time.Duration, spec string, logger *logging.Logger) *AuditSweepScheduler {
	if logger == nil {
		logger = logging.Default
	}
	return &AuditSweepScheduler{
		svc:       svc,
		retention: retention,
		spec:      spec,
		logger:    logger,
	}
}

// Start registers and starts the cron job
func (s *AuditSweepScheduler) Start(ctx context.Context) error {
	s.cron = cron.New()

	_, err := s.cron.AddFunc(s.spec, func() {
		s.logger.Info("Running scheduled archival sweep (retention %s)", s.retention)
		archived, err := s.svc.SweepArchival(ctx, s.retention)
		if err != nil {
			// Integrity failures are operator-facing, never auto-corrected
			s.logger.LogError(err)
			return
		}
		s.logger.Info("Archival sweep archived %d rows", archived)
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("Audit sweep scheduler started with schedule %q", s.spec)
	return nil
}

// Stop stops the cron scheduler and waits for a running sweep to finish
func (s *AuditSweepScheduler) Stop() {
	if s.cron == nil {
		return
	}
	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
	s.logger.Info("Audit sweep scheduler stopped")
}
