package wallet

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/fadedpez/eldorado/internal/logging"
	"github.com/fadedpez/eldorado/pkg/entities"
	walletRepo "github.com/fadedpez/eldorado/pkg/repositories/wallet"
)

var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrNegativeAmount    = errors.New("amount cannot be negative")
)

// lockStripes bounds the number of per-user mutexes
const lockStripes = 64

// Service is the balance authority. Mutations for the same user are
// serialized through a striped lock so two concurrent wagers by one
// user are applied strictly one after the other; different users never
// contend on the same stripe beyond hash collisions.
type Service struct {
	repo            walletRepo.Repository
	logger          *logging.Logger
	startingBalance int64
	locks           [lockStripes]sync.Mutex
}

// NewService creates a new wallet service
func NewService(repo walletRepo.Repository, startingBalance int64, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default
	}
	return &Service{
		repo:            repo,
		logger:          logger,
		startingBalance: startingBalance,
	}
}

func (s *Service) lockFor(userID string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(userID))
	return &s.locks[h.Sum32()%lockStripes]
}

// GetOrCreateWallet retrieves a wallet or creates a new one if it doesn't exist
func (s *Service) GetOrCreateWallet(ctx context.Context, userID string) (*entities.Wallet, bool, error) {
	wallet, err := s.repo.GetWallet(ctx, userID)
	if err == nil {
		return wallet, false, nil // Wallet exists
	}

	if !errors.Is(err, walletRepo.ErrWalletNotFound) {
		return nil, false, err // Unexpected error
	}

	mu := s.lockFor(userID)
	mu.Lock()
	defer mu.Unlock()

	// Re-check under the lock, a concurrent caller may have created it
	wallet, err = s.repo.GetWallet(ctx, userID)
	if err == nil {
		return wallet, false, nil
	}

	newWallet := &entities.Wallet{
		UserID:      userID,
		Balance:     s.startingBalance,
		LastUpdated: time.Now(),
	}

	if err := s.repo.SaveWallet(ctx, newWallet); err != nil {
		return nil, false, err
	}

	s.logger.Info("[WALLET] Created wallet for user %s with starting balance %d", userID, s.startingBalance)

	return newWallet, true, nil
}

// GetBalance returns the current balance for a user
func (s *Service) GetBalance(ctx context.Context, userID string) (int64, error) {
	wallet, err := s.repo.GetWallet(ctx, userID)
	if err != nil {
		return 0, err
	}
	return wallet.Balance, nil
}

// DebitAndCredit applies balance = balance - debit + credit as one
// atomic adjustment and records the movement in the ledger. Fails with
// ErrInsufficientFunds and no mutation when balance < debit.
func (s *Service) DebitAndCredit(ctx context.Context, userID string, debit, credit int64, referenceID string) (*walletRepo.Adjustment, error) {
	if debit < 0 || credit < 0 {
		return nil, ErrNegativeAmount
	}

	mu := s.lockFor(userID)
	mu.Lock()
	defer mu.Unlock()

	adj, err := s.repo.ApplyDelta(ctx, userID, debit, credit)
	if err != nil {
		if errors.Is(err, walletRepo.ErrInsufficientFunds) {
			return nil, ErrInsufficientFunds
		}
		return nil, fmt.Errorf("error applying balance delta: %w", err)
	}

	s.logger.Info("[WALLET] User %s: debit=%d credit=%d balance %d -> %d",
		userID, debit, credit, adj.Before, adj.After)

	entryType := entities.LedgerEntryTypeWager
	if debit == 0 {
		entryType = entities.LedgerEntryTypePayout
	}

	entry := &entities.LedgerEntry{
		UserID:        userID,
		Amount:        credit - debit,
		Type:          entryType,
		ReferenceID:   referenceID,
		Description:   fmt.Sprintf("wager settlement: debit %d, credit %d", debit, credit),
		Timestamp:     time.Now(),
		BalanceBefore: adj.Before,
		BalanceAfter:  adj.After,
	}

	if err := s.repo.AddLedgerEntry(ctx, entry); err != nil {
		// The balance mutation is already durable; a ledger write failure
		// is logged and surfaced without being rolled back.
		s.logger.Error("[WALLET] Error recording ledger entry for user %s: %v", userID, err)
		return adj, err
	}

	return adj, nil
}

// Refund credits tokens back to a user, used by the rejection/refund flow
func (s *Service) Refund(ctx context.Context, userID string, amount int64, referenceID string) (*walletRepo.Adjustment, error) {
	if amount <= 0 {
		return nil, ErrNegativeAmount
	}

	mu := s.lockFor(userID)
	mu.Lock()
	defer mu.Unlock()

	adj, err := s.repo.ApplyDelta(ctx, userID, 0, amount)
	if err != nil {
		return nil, fmt.Errorf("error applying refund: %w", err)
	}

	s.logger.Info("[WALLET] Refunded %d tokens to user %s, balance %d -> %d",
		amount, userID, adj.Before, adj.After)

	entry := &entities.LedgerEntry{
		UserID:        userID,
		Amount:        amount,
		Type:          entities.LedgerEntryTypeRefund,
		ReferenceID:   referenceID,
		Description:   fmt.Sprintf("refund of %d tokens", amount),
		Timestamp:     time.Now(),
		BalanceBefore: adj.Before,
		BalanceAfter:  adj.After,
	}

	if err := s.repo.AddLedgerEntry(ctx, entry); err != nil {
		s.logger.Error("[WALLET] Error recording refund entry for user %s: %v", userID, err)
		return adj, err
	}

	return adj, nil
}

// Credit adds tokens to a user's wallet, used to pay a counterparty
func (s *Service) Credit(ctx context.Context, userID string, amount int64, referenceID, description string) (*walletRepo.Adjustment, error) {
	if amount <= 0 {
		return nil, ErrNegativeAmount
	}

	// Payouts may target a user who has never wagered
	if _, _, err := s.GetOrCreateWallet(ctx, userID); err != nil {
		return nil, fmt.Errorf("error ensuring wallet: %w", err)
	}

	mu := s.lockFor(userID)
	mu.Lock()
	defer mu.Unlock()

	adj, err := s.repo.ApplyDelta(ctx, userID, 0, amount)
	if err != nil {
		return nil, fmt.Errorf("error applying credit: %w", err)
	}

	entry := &entities.LedgerEntry{
		UserID:        userID,
		Amount:        amount,
		Type:          entities.LedgerEntryTypeCredit,
		ReferenceID:   referenceID,
		Description:   description,
		Timestamp:     time.Now(),
		BalanceBefore: adj.Before,
		BalanceAfter:  adj.After,
	}

	if err := s.repo.AddLedgerEntry(ctx, entry); err != nil {
		s.logger.Error("[WALLET] Error recording credit entry for user %s: %v", userID, err)
		return adj, err
	}

	return adj, nil
}

// GetRecentEntries retrieves recent ledger entries for a user
func (s *Service) GetRecentEntries(ctx context.Context, userID string, limit int) ([]*entities.LedgerEntry, error) {
	return s.repo.GetLedgerEntries(ctx, userID, limit)
}
