package wager

import (
	"context"
	"time"

	"github.com/fadedpez/eldorado/pkg/entities"
)

//go:generate mockgen -source=$GOFILE -destination=mock/mock.go -package=mock_wager_repo

// Repository defines storage operations for wager transactions, spin
// offers, and the idempotency key ledger. ReserveKey is the sole
// admission gate for settlement: it must be an atomic test-and-set, and
// reserved keys are retained for the life of the referencing record.
type Repository interface {
	// ReserveKey atomically claims an idempotency key. Returns true when
	// this caller won the reservation, false when the key already exists.
	ReserveKey(ctx context.Context, key, referenceID string) (bool, error)

	// Transaction operations
	SaveTransaction(ctx context.Context, tx *entities.WagerTransaction) error
	GetTransaction(ctx context.Context, transactionID string) (*entities.WagerTransaction, error)
	GetTransactionByKey(ctx context.Context, idempotencyKey string) (*entities.WagerTransaction, error)
	CountUserWagersSince(ctx context.Context, userID string, since time.Time) (int, error)

	// Spin offer operations (performer-mediated variant)
	SaveOffer(ctx context.Context, offer *entities.SpinOffer) error
	GetOffer(ctx context.Context, offerID string) (*entities.SpinOffer, error)
	GetOfferByKey(ctx context.Context, idempotencyKey string) (*entities.SpinOffer, error)

	// Archival operations. Rows are flagged, never deleted.
	ListUnarchivedBefore(ctx context.Context, cutoff time.Time, limit int) ([]*entities.WagerTransaction, error)
	MarkArchived(ctx context.Context, transactionID string, archivedAt time.Time) error
	ListUnarchivedOffersBefore(ctx context.Context, cutoff time.Time, limit int) ([]*entities.SpinOffer, error)
	MarkOfferArchived(ctx context.Context, offerID string, archivedAt time.Time) error

	// Close closes any resources used by the repository
	Close() error
}
