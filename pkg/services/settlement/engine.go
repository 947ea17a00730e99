package settlement

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/fadedpez/eldorado/internal/logging"
	"github.com/fadedpez/eldorado/internal/metrics"
	"github.com/fadedpez/eldorado/pkg/entities"
	"github.com/fadedpez/eldorado/pkg/events"
	wagerRepo "github.com/fadedpez/eldorado/pkg/repositories/wager"
	"github.com/fadedpez/eldorado/pkg/services/audit"
	"github.com/fadedpez/eldorado/pkg/services/outcome"
	walletService "github.com/fadedpez/eldorado/pkg/services/wallet"
	"github.com/google/uuid"
)

var (
	ErrRateLimited         = errors.New("rate limited")
	ErrInsufficientFunds   = walletService.ErrInsufficientFunds
	ErrTransactionNotFound = wagerRepo.ErrTransactionNotFound
	ErrOfferNotFound       = wagerRepo.ErrOfferNotFound

	// ErrOfferAlreadyResolved is returned when accept/reject is called on
	// an offer that already reached the opposite terminal state.
	ErrOfferAlreadyResolved = errors.New("offer already resolved")
)

const (
	// rateLimitWindow is the trailing window for the per-user wager count
	rateLimitWindow = time.Hour

	// replayPollInterval paces the wait for a concurrent duplicate whose
	// original submission is still settling
	replayPollInterval = 25 * time.Millisecond

	// lockStripes bounds the number of per-offer mutexes
	lockStripes = 64
)

// ConfigStore supplies the active ruleset. The handle is injected at
// construction; the engine never reads process-wide state.
type ConfigStore interface {
	GetActive(ctx context.Context, configName string) (*entities.WagerConfig, error)
}

// Engine orchestrates one wager: rate limit, idempotency reservation,
// outcome resolution, atomic balance mutation, durable transaction
// record, audit stamp, event emission.
type Engine struct {
	wagers     wagerRepo.Repository
	balances   walletService.BalanceAuthority
	configs    ConfigStore
	seeds      SeedSource
	dispatcher *events.Dispatcher
	logger     *logging.Logger
	offerLocks [lockStripes]sync.Mutex
}

// NewEngine creates a new settlement engine
func NewEngine(
	wagers wagerRepo.Repository,
	balances walletService.BalanceAuthority,
	configs ConfigStore,
	seeds SeedSource,
	dispatcher *events.Dispatcher,
	logger *logging.Logger,
) *Engine {
	if logger == nil {
		logger = logging.Default
	}
	return &Engine{
		wagers:     wagers,
		balances:   balances,
		configs:    configs,
		seeds:      seeds,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// SubmitWager settles one wager for a verified user. Duplicate
// submissions with the same idempotency key return the original terminal
// transaction without re-processing. A transaction whose funds check
// fails is persisted as FAILED with no balance movement; the returned
// error is ErrInsufficientFunds alongside the failed record.
func (e *Engine) SubmitWager(ctx context.Context, idempotencyKey, userID, configName string) (*entities.WagerTransaction, error) {
	if idempotencyKey == "" || userID == "" {
		return nil, fmt.Errorf("idempotency key and user ID are required")
	}

	// A duplicate of a submitted key replays the original record before
	// any other gate runs; a retried caller must get the settled outcome
	// even when the trailing-hour window has since filled.
	if tx, err := e.wagers.GetTransactionByKey(ctx, idempotencyKey); err == nil {
		metrics.ObserveDuplicateReplay()
		if tx.Status.Terminal() {
			return tx, nil
		}
		return e.awaitTerminal(ctx, idempotencyKey)
	} else if !errors.Is(err, wagerRepo.ErrTransactionNotFound) {
		return nil, fmt.Errorf("error checking for prior submission: %w", err)
	}

	cfg, err := e.configs.GetActive(ctx, configName)
	if err != nil {
		return nil, err
	}

	// Sliding-window rate limit, checked before any state is created
	since := time.Now().Add(-rateLimitWindow)
	count, err := e.wagers.CountUserWagersSince(ctx, userID, since)
	if err != nil {
		return nil, fmt.Errorf("error counting recent wagers: %w", err)
	}
	if count >= cfg.MaxWagersPerHour {
		metrics.ObserveRateLimited()
		e.logger.Warn("[SETTLEMENT] User %s rate limited: %d wagers in trailing hour (max %d)",
			userID, count, cfg.MaxWagersPerHour)
		return nil, ErrRateLimited
	}

	transactionID := uuid.New().String()
	won, err := e.wagers.ReserveKey(ctx, idempotencyKey, transactionID)
	if err != nil {
		return nil, fmt.Errorf("error reserving idempotency key: %w", err)
	}
	if !won {
		metrics.ObserveDuplicateReplay()
		return e.awaitTerminal(ctx, idempotencyKey)
	}

	// The key is reserved: from here the wager always reaches a terminal
	// state, even if the caller disconnects.
	ctx = context.WithoutCancel(ctx)

	tx := &entities.WagerTransaction{
		TransactionID:   transactionID,
		UserID:          userID,
		IdempotencyKey:  idempotencyKey,
		AmountWagered:   cfg.WagerCost,
		ResultSymbols:   []string{},
		Status:          entities.TransactionStatusPending,
		ConfigName:      cfg.ConfigName,
		ConfigVersion:   cfg.Version,
		ServerTimestamp: time.Now(),
	}

	if _, _, err := e.balances.GetOrCreateWallet(ctx, userID); err != nil {
		return e.failSettlement(ctx, tx, fmt.Errorf("error ensuring wallet: %w", err))
	}

	if err := e.wagers.SaveTransaction(ctx, tx); err != nil {
		return e.failSettlement(ctx, tx, fmt.Errorf("error persisting pending transaction: %w", err))
	}

	// Funds check before the resolver runs
	balance, err := e.balances.GetBalance(ctx, userID)
	if err != nil {
		return e.failSettlement(ctx, tx, fmt.Errorf("error reading balance: %w", err))
	}
	if balance < cfg.WagerCost {
		tx.BalanceBefore = balance
		tx.BalanceAfter = balance
		return e.failSettlement(ctx, tx, ErrInsufficientFunds)
	}

	seed, err := e.seeds.Seed()
	if err != nil {
		return e.failSettlement(ctx, tx, fmt.Errorf("error obtaining random seed: %w", err))
	}

	result, err := outcome.Resolve(cfg, seed)
	if err != nil {
		return e.failSettlement(ctx, tx, fmt.Errorf("error resolving outcome: %w", err))
	}

	tx.ResultSymbols = result.Symbols
	tx.IsWin = result.IsWin
	tx.Payout = result.Payout
	tx.Multiplier = result.Multiplier

	// Debit of the wager and credit of the payout land as one atomic step
	adj, err := e.balances.DebitAndCredit(ctx, userID, cfg.WagerCost, result.Payout, transactionID)
	if err != nil {
		if errors.Is(err, walletService.ErrInsufficientFunds) {
			// A concurrent wager consumed the funds between the check and
			// the mutation; resolve to FAILED with no balance movement.
			tx.BalanceBefore = balance
			tx.BalanceAfter = balance
			return e.failSettlement(ctx, tx, ErrInsufficientFunds)
		}
		return e.failSettlement(ctx, tx, fmt.Errorf("error applying balance mutation: %w", err))
	}

	tx.BalanceBefore = adj.Before
	tx.BalanceAfter = adj.After

	if err := e.finalize(ctx, tx, entities.TransactionStatusCompleted); err != nil {
		return nil, err
	}

	e.logger.Info("[SETTLEMENT] Settled wager %s for user %s: symbols=%v win=%t payout=%d balance %d -> %d",
		transactionID, userID, tx.ResultSymbols, tx.IsWin, tx.Payout, tx.BalanceBefore, tx.BalanceAfter)

	e.publish(ctx, entities.EventTypeWagerSettled, userID, transactionID, map[string]string{
		"status": string(tx.Status),
		"payout": fmt.Sprintf("%d", tx.Payout),
	})

	return tx, nil
}

// finalize stamps and durably persists a transaction in its terminal
// state. The record is never mutated afterwards except for the
// archived flag.
func (e *Engine) finalize(ctx context.Context, tx *entities.WagerTransaction, status entities.TransactionStatus) error {
	tx.Status = status
	tx.IntegrityHash = audit.Stamp(tx)

	if err := e.wagers.SaveTransaction(ctx, tx); err != nil {
		return fmt.Errorf("error persisting terminal transaction: %w", err)
	}

	metrics.ObserveSettlement(string(status), tx.Payout)
	return nil
}

// failSettlement resolves a wager that cannot settle to a terminal
// FAILED record with no win fields. Once the key is reserved every
// replay must find a terminal state, so failures are recorded rather
// than abandoned.
func (e *Engine) failSettlement(ctx context.Context, tx *entities.WagerTransaction, cause error) (*entities.WagerTransaction, error) {
	tx.ResultSymbols = []string{}
	tx.IsWin = false
	tx.Payout = 0
	tx.Multiplier = 0

	if err := e.finalize(ctx, tx, entities.TransactionStatusFailed); err != nil {
		e.logger.Error("[SETTLEMENT] Could not record failed transaction %s for key %s: %v",
			tx.TransactionID, tx.IdempotencyKey, err)
		return nil, cause
	}
	return tx, cause
}

// awaitTerminal serves an idempotent replay: the caller lost the key
// reservation, so the original submission owns settlement. Poll until
// that submission reaches a terminal state or the caller's context
// expires.
func (e *Engine) awaitTerminal(ctx context.Context, idempotencyKey string) (*entities.WagerTransaction, error) {
	for {
		tx, err := e.wagers.GetTransactionByKey(ctx, idempotencyKey)
		if err == nil && tx.Status.Terminal() {
			e.logger.Debug("[SETTLEMENT] Replayed terminal transaction for key %s", idempotencyKey)
			return tx, nil
		}
		if err != nil && !errors.Is(err, wagerRepo.ErrTransactionNotFound) {
			return nil, err
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(replayPollInterval):
		}
	}
}

// GetWagerStatus returns the transaction for an idempotency key
func (e *Engine) GetWagerStatus(ctx context.Context, idempotencyKey string) (*entities.WagerTransaction, error) {
	return e.wagers.GetTransactionByKey(ctx, idempotencyKey)
}

func (e *Engine) publish(ctx context.Context, eventType entities.EventType, userID, referenceID string, payload map[string]string) {
	if e.dispatcher == nil {
		return
	}
	e.dispatcher.Publish(ctx, &entities.Event{
		Type:        eventType,
		UserID:      userID,
		ReferenceID: referenceID,
		Payload:     payload,
	})
}

func (e *Engine) offerLockFor(offerID string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(offerID))
	return &e.offerLocks[h.Sum32()%lockStripes]
}
