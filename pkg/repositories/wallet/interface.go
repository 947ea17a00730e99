package wallet

import (
	"context"

	"github.com/fadedpez/eldorado/pkg/entities"
)

//go:generate mockgen -source=$GOFILE -destination=mock/mock.go -package=mock_wallet_repo

// Adjustment holds the balance snapshots around an atomic mutation.
type Adjustment struct {
	Before int64
	After  int64
}

// Repository defines the interface for wallet data operations. ApplyDelta
// is the only mutation path for balances; it must be atomic at the
// storage layer and leave the balance untouched on failure.
type Repository interface {
	// GetWallet retrieves a wallet by user ID
	GetWallet(ctx context.Context, userID string) (*entities.Wallet, error)

	// SaveWallet creates or updates a wallet
	SaveWallet(ctx context.Context, wallet *entities.Wallet) error

	// ApplyDelta atomically applies balance = balance - debit + credit.
	// Returns ErrInsufficientFunds without mutating when balance < debit.
	ApplyDelta(ctx context.Context, userID string, debit, credit int64) (*Adjustment, error)

	// AddLedgerEntry records a balance movement
	AddLedgerEntry(ctx context.Context, entry *entities.LedgerEntry) error

	// GetLedgerEntries retrieves recent balance movements for a user
	GetLedgerEntries(ctx context.Context, userID string, limit int) ([]*entities.LedgerEntry, error)

	// Close closes any resources used by the repository
	Close() error
}
