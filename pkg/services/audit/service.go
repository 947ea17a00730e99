package audit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/fadedpez/eldorado/internal/logging"
	"github.com/fadedpez/eldorado/internal/metrics"
	"github.com/fadedpez/eldorado/internal/types"
	"github.com/fadedpez/eldorado/pkg/entities"
	wagerRepo "github.com/fadedpez/eldorado/pkg/repositories/wager"
)

// ErrIntegrityCheckFailed is surfaced to operators when a stored hash
// no longer matches the record. It is never auto-corrected.
var ErrIntegrityCheckFailed = errors.New("integrity check failed")

// sweepBatchSize bounds how many rows one sweep pass loads at a time
const sweepBatchSize = 500

// Mirror receives archived transactions for compliance search
type Mirror interface {
	IndexTransaction(ctx context.Context, tx *entities.WagerTransaction) error
}

// Service stamps transactions with a tamper-evident hash and flags old
// rows archived on a retention schedule. Archived rows are never
// deleted and stay queryable for compliance review.
type Service struct {
	repo   wagerRepo.Repository
	mirror Mirror // optional
	logger *logging.Logger
}

// NewService creates a new audit/archive service
func NewService(repo wagerRepo.Repository, mirror Mirror, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default
	}
	return &Service{
		repo:   repo,
		mirror: mirror,
		logger: logger,
	}
}

// Stamp computes the integrity hash over the immutable fields of a
// transaction. Archival fields and the hash itself are excluded, so the
// hash stays verifiable after the archived flag flips.
func Stamp(tx *entities.WagerTransaction) string {
	fields := []string{
		tx.TransactionID,
		tx.UserID,
		tx.IdempotencyKey,
		strconv.FormatInt(tx.AmountWagered, 10),
		strings.Join(tx.ResultSymbols, ","),
		strconv.FormatBool(tx.IsWin),
		strconv.FormatInt(tx.Payout, 10),
		strconv.FormatFloat(tx.Multiplier, 'f', -1, 64),
		strconv.FormatInt(tx.BalanceBefore, 10),
		strconv.FormatInt(tx.BalanceAfter, 10),
		string(tx.Status),
		tx.ConfigName,
		strconv.FormatInt(tx.ConfigVersion, 10),
		tx.ServerTimestamp.UTC().Format(time.RFC3339),
	}

	digest := sha256.Sum256([]byte(strings.Join(fields, "|")))
	return hex.EncodeToString(digest[:])
}

// StampOffer computes the integrity hash for a spin offer
func StampOffer(offer *entities.SpinOffer) string {
	fields := []string{
		offer.OfferID,
		offer.IdempotencyKey,
		offer.UserID,
		offer.PerformerID,
		offer.EscrowTransactionID,
		strconv.FormatInt(offer.Tokens, 10),
		string(offer.Status),
		offer.ServerTimestamp.UTC().Format(time.RFC3339),
	}

	digest := sha256.Sum256([]byte(strings.Join(fields, "|")))
	return hex.EncodeToString(digest[:])
}

// Verify recomputes a transaction's hash and compares it to the stored
// one, detecting tampering of any immutable field
func Verify(tx *entities.WagerTransaction) error {
	if recomputed := Stamp(tx); recomputed != tx.IntegrityHash {
		return fmt.Errorf("%w: transaction %s", ErrIntegrityCheckFailed, tx.TransactionID)
	}
	return nil
}

// VerifyOffer recomputes an offer's hash and compares it to the stored one
func VerifyOffer(offer *entities.SpinOffer) error {
	if recomputed := StampOffer(offer); recomputed != offer.IntegrityHash {
		return fmt.Errorf("%w: offer %s", ErrIntegrityCheckFailed, offer.OfferID)
	}
	return nil
}

// SweepArchival flags terminal transactions and spin offers older than
// the retention period as archived. Rows that fail the integrity check
// are reported and left untouched. Running the sweep twice archives
// nothing extra the second time.
func (s *Service) SweepArchival(ctx context.Context, retentionPeriod time.Duration) (int, error) {
	cutoff := time.Now().Add(-retentionPeriod)

	archivedTx, txFailures, err := s.sweepTransactions(ctx, cutoff)
	if err != nil {
		return archivedTx, err
	}

	archivedOffers, offerFailures, err := s.sweepOffers(ctx, cutoff)
	archived := archivedTx + archivedOffers
	if err != nil {
		return archived, err
	}

	failures := append(txFailures, offerFailures...)

	metrics.ObserveArchived(archived)
	s.logger.Info("[AUDIT] Archival sweep complete: %d transactions and %d offers archived, %d integrity failures",
		archivedTx, archivedOffers, len(failures))

	if len(failures) > 0 {
		return archived, types.WrapError(types.ErrIntegrityCheckFailed,
			fmt.Sprintf("rows left unarchived: %s", strings.Join(failures, ", ")),
			ErrIntegrityCheckFailed)
	}

	return archived, nil
}

func (s *Service) sweepTransactions(ctx context.Context, cutoff time.Time) (int, []string, error) {
	archived := 0
	var failures []string

	for {
		batch, err := s.repo.ListUnarchivedBefore(ctx, cutoff, sweepBatchSize)
		if err != nil {
			return archived, failures, fmt.Errorf("error listing transactions for archival: %w", err)
		}
		if len(batch) == 0 {
			break
		}

		progressed := false
		for _, tx := range batch {
			if err := Verify(tx); err != nil {
				s.logger.Error("[AUDIT] Integrity check failed for transaction %s, row left unarchived", tx.TransactionID)
				metrics.ObserveIntegrityFailure()
				failures = append(failures, tx.TransactionID)
				continue
			}

			now := time.Now()
			if err := s.repo.MarkArchived(ctx, tx.TransactionID, now); err != nil {
				return archived, failures, fmt.Errorf("error archiving transaction %s: %w", tx.TransactionID, err)
			}
			archived++
			progressed = true

			if s.mirror != nil {
				tx.Archived = true
				tx.ArchivedAt = now
				if err := s.mirror.IndexTransaction(ctx, tx); err != nil {
					// The sqlite row remains the source of truth; a mirror
					// failure is logged and the sweep continues.
					s.logger.Warn("[AUDIT] Failed to mirror transaction %s: %v", tx.TransactionID, err)
				}
			}
		}

		// Every remaining row failed verification; stop rather than spin
		if !progressed {
			break
		}
	}

	return archived, failures, nil
}

func (s *Service) sweepOffers(ctx context.Context, cutoff time.Time) (int, []string, error) {
	archived := 0
	var failures []string

	for {
		batch, err := s.repo.ListUnarchivedOffersBefore(ctx, cutoff, sweepBatchSize)
		if err != nil {
			return archived, failures, fmt.Errorf("error listing offers for archival: %w", err)
		}
		if len(batch) == 0 {
			break
		}

		progressed := false
		for _, offer := range batch {
			if err := VerifyOffer(offer); err != nil {
				s.logger.Error("[AUDIT] Integrity check failed for offer %s, row left unarchived", offer.OfferID)
				metrics.ObserveIntegrityFailure()
				failures = append(failures, offer.OfferID)
				continue
			}

			if err := s.repo.MarkOfferArchived(ctx, offer.OfferID, time.Now()); err != nil {
				return archived, failures, fmt.Errorf("error archiving offer %s: %w", offer.OfferID, err)
			}
			archived++
			progressed = true
		}

		if !progressed {
			break
		}
	}

	return archived, failures, nil
}
