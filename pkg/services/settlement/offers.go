package settlement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fadedpez/eldorado/internal/metrics"
	"github.com/fadedpez/eldorado/pkg/entities"
	wagerRepo "github.com/fadedpez/eldorado/pkg/repositories/wager"
	"github.com/fadedpez/eldorado/pkg/services/audit"
	"github.com/google/uuid"
)

// CreateSpinOffer records a performer-mediated wager in its CREATED
// state. The originator's tokens are already held by the external
// escrow subsystem (referenced by escrowTransactionID), so no balance
// moves until the performer accepts or rejects. Duplicate submissions
// return the existing offer.
func (e *Engine) CreateSpinOffer(ctx context.Context, idempotencyKey, userID, performerID, escrowTransactionID string, tokens int64) (*entities.SpinOffer, error) {
	if idempotencyKey == "" || userID == "" || performerID == "" {
		return nil, fmt.Errorf("idempotency key, user ID and performer ID are required")
	}
	if tokens <= 0 {
		return nil, fmt.Errorf("tokens must be positive, got %d", tokens)
	}

	offerID := uuid.New().String()
	won, err := e.wagers.ReserveKey(ctx, idempotencyKey, offerID)
	if err != nil {
		return nil, fmt.Errorf("error reserving idempotency key: %w", err)
	}
	if !won {
		metrics.ObserveDuplicateReplay()
		return e.awaitOffer(ctx, idempotencyKey)
	}

	ctx = context.WithoutCancel(ctx)

	offer := &entities.SpinOffer{
		OfferID:             offerID,
		IdempotencyKey:      idempotencyKey,
		UserID:              userID,
		PerformerID:         performerID,
		EscrowTransactionID: escrowTransactionID,
		Tokens:              tokens,
		Status:              entities.OfferStatusCreated,
		ServerTimestamp:     time.Now(),
	}
	offer.IntegrityHash = audit.StampOffer(offer)

	if err := e.wagers.SaveOffer(ctx, offer); err != nil {
		return nil, fmt.Errorf("error persisting offer: %w", err)
	}

	e.logger.Info("[SETTLEMENT] Created spin offer %s: user %s -> performer %s, %d tokens",
		offerID, userID, performerID, tokens)

	return offer, nil
}

// AcceptSpinOffer resolves an offer in the performer's favor: the
// staked tokens are credited to the performer and the offer reaches its
// terminal ACCEPTED state. Accepting an already-accepted offer is an
// idempotent no-op; accepting a rejected one is an error.
func (e *Engine) AcceptSpinOffer(ctx context.Context, offerID string) (*entities.SpinOffer, error) {
	mu := e.offerLockFor(offerID)
	mu.Lock()
	defer mu.Unlock()

	offer, err := e.wagers.GetOffer(ctx, offerID)
	if err != nil {
		return nil, err
	}

	if offer.Status.Terminal() {
		if offer.Status == entities.OfferStatusAccepted {
			return offer, nil
		}
		return nil, fmt.Errorf("%w: offer %s is %s", ErrOfferAlreadyResolved, offerID, offer.Status)
	}

	ctx = context.WithoutCancel(ctx)

	// Credit the performer before the terminal state becomes durable
	if _, err := e.balances.Credit(ctx, offer.PerformerID, offer.Tokens, offer.OfferID,
		fmt.Sprintf("spin offer payout from user %s", offer.UserID)); err != nil {
		return nil, fmt.Errorf("error crediting performer: %w", err)
	}

	offer.Status = entities.OfferStatusAccepted
	offer.ResolvedAt = time.Now()
	offer.IntegrityHash = audit.StampOffer(offer)

	if err := e.wagers.SaveOffer(ctx, offer); err != nil {
		return nil, fmt.Errorf("error persisting accepted offer: %w", err)
	}

	metrics.ObserveSettlement(string(offer.Status), offer.Tokens)
	e.logger.Info("[SETTLEMENT] Offer %s accepted, %d tokens credited to performer %s",
		offerID, offer.Tokens, offer.PerformerID)

	e.publish(ctx, entities.EventTypeSpinAccepted, offer.UserID, offer.OfferID, map[string]string{
		"performer_id": offer.PerformerID,
		"tokens":       fmt.Sprintf("%d", offer.Tokens),
	})

	return offer, nil
}

// RejectSpinOffer resolves an offer against the performer. When the
// stake is escrow-held the refund is signalled against the escrow
// transaction by the intake adapter; only offers without an escrow
// reference are refunded to the originator's live balance here. No
// payout reaches the performer either way.
func (e *Engine) RejectSpinOffer(ctx context.Context, offerID string) (*entities.SpinOffer, error) {
	mu := e.offerLockFor(offerID)
	mu.Lock()
	defer mu.Unlock()

	offer, err := e.wagers.GetOffer(ctx, offerID)
	if err != nil {
		return nil, err
	}

	if offer.Status.Terminal() {
		if offer.Status == entities.OfferStatusRejected {
			return offer, nil
		}
		return nil, fmt.Errorf("%w: offer %s is %s", ErrOfferAlreadyResolved, offerID, offer.Status)
	}

	ctx = context.WithoutCancel(ctx)

	if offer.EscrowTransactionID == "" {
		if _, err := e.balances.Refund(ctx, offer.UserID, offer.Tokens, offer.OfferID); err != nil {
			return nil, fmt.Errorf("error refunding originator: %w", err)
		}
	}

	offer.Status = entities.OfferStatusRejected
	offer.ResolvedAt = time.Now()
	offer.IntegrityHash = audit.StampOffer(offer)

	if err := e.wagers.SaveOffer(ctx, offer); err != nil {
		return nil, fmt.Errorf("error persisting rejected offer: %w", err)
	}

	metrics.ObserveSettlement(string(offer.Status), 0)
	e.logger.Info("[SETTLEMENT] Offer %s rejected, %d tokens refunded to user %s",
		offerID, offer.Tokens, offer.UserID)

	e.publish(ctx, entities.EventTypeSpinRejected, offer.UserID, offer.OfferID, map[string]string{
		"performer_id": offer.PerformerID,
		"tokens":       fmt.Sprintf("%d", offer.Tokens),
	})

	return offer, nil
}

// GetOfferStatus returns the offer for an idempotency key
func (e *Engine) GetOfferStatus(ctx context.Context, idempotencyKey string) (*entities.SpinOffer, error) {
	return e.wagers.GetOfferByKey(ctx, idempotencyKey)
}

// GetOffer returns the offer for an offer ID
func (e *Engine) GetOffer(ctx context.Context, offerID string) (*entities.SpinOffer, error) {
	return e.wagers.GetOffer(ctx, offerID)
}

// awaitOffer serves an idempotent replay of a duplicate offer creation
func (e *Engine) awaitOffer(ctx context.Context, idempotencyKey string) (*entities.SpinOffer, error) {
	for {
		offer, err := e.wagers.GetOfferByKey(ctx, idempotencyKey)
		if err == nil {
			return offer, nil
		}
		if !errors.Is(err, wagerRepo.ErrOfferNotFound) {
			return nil, err
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(replayPollInterval):
		}
	}
}
