package wager

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/fadedpez/eldorado/pkg/entities"
)

var (
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrOfferNotFound       = errors.New("offer not found")
)

// MemoryRepository implements Repository using in-memory storage
type MemoryRepository struct {
	keys         map[string]string // idempotency key -> reference ID
	transactions map[string]*entities.WagerTransaction
	txByKey      map[string]string // idempotency key -> transaction ID
	offers       map[string]*entities.SpinOffer
	offerByKey   map[string]string // idempotency key -> offer ID
	mu           sync.RWMutex
}

// NewMemoryRepository creates a new in-memory wager repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		keys:         make(map[string]string),
		transactions: make(map[string]*entities.WagerTransaction),
		txByKey:      make(map[string]string),
		offers:       make(map[string]*entities.SpinOffer),
		offerByKey:   make(map[string]string),
	}
}

// ReserveKey atomically claims an idempotency key
func (r *MemoryRepository) ReserveKey(ctx context.Context, key, referenceID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.keys[key]; exists {
		return false, nil
	}

	r.keys[key] = referenceID
	return true, nil
}

// SaveTransaction creates or updates a wager transaction
func (r *MemoryRepository) SaveTransaction(ctx context.Context, tx *entities.WagerTransaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	txCopy := *tx
	txCopy.ResultSymbols = append([]string(nil), tx.ResultSymbols...)
	r.transactions[tx.TransactionID] = &txCopy
	r.txByKey[tx.IdempotencyKey] = tx.TransactionID

	return nil
}

// GetTransaction retrieves a transaction by its ID
func (r *MemoryRepository) GetTransaction(ctx context.Context, transactionID string) (*entities.WagerTransaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tx, exists := r.transactions[transactionID]
	if !exists {
		return nil, ErrTransactionNotFound
	}

	txCopy := *tx
	txCopy.ResultSymbols = append([]string(nil), tx.ResultSymbols...)
	return &txCopy, nil
}

// GetTransactionByKey retrieves a transaction by its idempotency key
func (r *MemoryRepository) GetTransactionByKey(ctx context.Context, idempotencyKey string) (*entities.WagerTransaction, error) {
	r.mu.RLock()
	txID, exists := r.txByKey[idempotencyKey]
	r.mu.RUnlock()

	if !exists {
		return nil, ErrTransactionNotFound
	}

	return r.GetTransaction(ctx, txID)
}

// CountUserWagersSince counts a user's wager transactions in the
// trailing window, used for sliding-window rate limiting
func (r *MemoryRepository) CountUserWagersSince(ctx context.Context, userID string, since time.Time) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, tx := range r.transactions {
		if tx.UserID == userID && !tx.ServerTimestamp.Before(since) {
			count++
		}
	}

	return count, nil
}

// SaveOffer creates or updates a spin offer
func (r *MemoryRepository) SaveOffer(ctx context.Context, offer *entities.SpinOffer) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	offerCopy := *offer
	r.offers[offer.OfferID] = &offerCopy
	r.offerByKey[offer.IdempotencyKey] = offer.OfferID

	return nil
}

// GetOffer retrieves a spin offer by its ID
func (r *MemoryRepository) GetOffer(ctx context.Context, offerID string) (*entities.SpinOffer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	offer, exists := r.offers[offerID]
	if !exists {
		return nil, ErrOfferNotFound
	}

	offerCopy := *offer
	return &offerCopy, nil
}

// GetOfferByKey retrieves a spin offer by its idempotency key
func (r *MemoryRepository) GetOfferByKey(ctx context.Context, idempotencyKey string) (*entities.SpinOffer, error) {
	r.mu.RLock()
	offerID, exists := r.offerByKey[idempotencyKey]
	r.mu.RUnlock()

	if !exists {
		return nil, ErrOfferNotFound
	}

	return r.GetOffer(ctx, offerID)
}

// ListUnarchivedBefore returns terminal, unarchived transactions older
// than the cutoff, oldest first
func (r *MemoryRepository) ListUnarchivedBefore(ctx context.Context, cutoff time.Time, limit int) ([]*entities.WagerTransaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*entities.WagerTransaction
	for _, tx := range r.transactions {
		if tx.Archived || !tx.Status.Terminal() || !tx.ServerTimestamp.Before(cutoff) {
			continue
		}
		txCopy := *tx
		txCopy.ResultSymbols = append([]string(nil), tx.ResultSymbols...)
		result = append(result, &txCopy)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].ServerTimestamp.Before(result[j].ServerTimestamp)
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}

	return result, nil
}

// MarkArchived flags a transaction as archived
func (r *MemoryRepository) MarkArchived(ctx context.Context, transactionID string, archivedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, exists := r.transactions[transactionID]
	if !exists {
		return ErrTransactionNotFound
	}

	tx.Archived = true
	tx.ArchivedAt = archivedAt

	return nil
}

// ListUnarchivedOffersBefore returns terminal, unarchived offers older
// than the cutoff, oldest first
func (r *MemoryRepository) ListUnarchivedOffersBefore(ctx context.Context, cutoff time.Time, limit int) ([]*entities.SpinOffer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*entities.SpinOffer
	for _, offer := range r.offers {
		if offer.Archived || !offer.Status.Terminal() || !offer.ServerTimestamp.Before(cutoff) {
			continue
		}
		offerCopy := *offer
		result = append(result, &offerCopy)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].ServerTimestamp.Before(result[j].ServerTimestamp)
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}

	return result, nil
}

// MarkOfferArchived flags a spin offer as archived
func (r *MemoryRepository) MarkOfferArchived(ctx context.Context, offerID string, archivedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	offer, exists := r.offers[offerID]
	if !exists {
		return ErrOfferNotFound
	}

	offer.Archived = true
	offer.ArchivedAt = archivedAt

	return nil
}

// Close is a no-op for the in-memory repository
func (r *MemoryRepository) Close() error {
	return nil
}
