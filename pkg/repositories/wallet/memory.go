package wallet

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/fadedpez/eldorado/pkg/entities"
	"github.com/google/uuid"
)

var (
	ErrWalletNotFound    = errors.New("wallet not found")
	ErrInsufficientFunds = errors.New("insufficient funds")
)

// MemoryRepository implements Repository using in-memory storage
type MemoryRepository struct {
	wallets map[string]*entities.Wallet
	ledger  map[string][]*entities.LedgerEntry
	mu      sync.RWMutex
}

// NewMemoryRepository creates a new in-memory wallet repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		wallets: make(map[string]*entities.Wallet),
		ledger:  make(map[string][]*entities.LedgerEntry),
	}
}

// GetWallet retrieves a wallet by user ID
func (r *MemoryRepository) GetWallet(ctx context.Context, userID string) (*entities.Wallet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	wallet, exists := r.wallets[userID]
	if !exists {
		return nil, ErrWalletNotFound
	}

	// Return a copy to prevent concurrent modification
	walletCopy := *wallet
	return &walletCopy, nil
}

// SaveWallet creates or updates a wallet
func (r *MemoryRepository) SaveWallet(ctx context.Context, wallet *entities.Wallet) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	wallet.LastUpdated = time.Now()

	// Create a copy to prevent concurrent modification
	walletCopy := *wallet
	r.wallets[wallet.UserID] = &walletCopy

	return nil
}

// ApplyDelta atomically applies balance = balance - debit + credit
func (r *MemoryRepository) ApplyDelta(ctx context.Context, userID string, debit, credit int64) (*Adjustment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	wallet, exists := r.wallets[userID]
	if !exists {
		return nil, ErrWalletNotFound
	}

	if wallet.Balance < debit {
		return nil, ErrInsufficientFunds
	}

	before := wallet.Balance
	wallet.Balance = wallet.Balance - debit + credit
	wallet.LastUpdated = time.Now()

	return &Adjustment{Before: before, After: wallet.Balance}, nil
}

// AddLedgerEntry records a balance movement
func (r *MemoryRepository) AddLedgerEntry(ctx context.Context, entry *entities.LedgerEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}

	// Make a copy to prevent concurrent modification
	entryCopy := *entry
	r.ledger[entry.UserID] = append(r.ledger[entry.UserID], &entryCopy)

	return nil
}

// GetLedgerEntries retrieves recent balance movements for a user
func (r *MemoryRepository) GetLedgerEntries(ctx context.Context, userID string, limit int) ([]*entities.LedgerEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries, exists := r.ledger[userID]
	if !exists {
		return make([]*entities.LedgerEntry, 0), nil
	}

	result := make([]*entities.LedgerEntry, 0, limit)

	start := 0
	if len(entries) > limit {
		start = len(entries) - limit
	}

	for i := start; i < len(entries); i++ {
		entryCopy := *entries[i]
		result = append(result, &entryCopy)
	}

	return result, nil
}

// Close is a no-op for the in-memory repository
func (r *MemoryRepository) Close() error {
	return nil
}
