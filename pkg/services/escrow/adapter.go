package escrow

import (
	"context"
	"errors"
	"fmt"

	"github.com/fadedpez/eldorado/internal/logging"
	"github.com/fadedpez/eldorado/pkg/entities"
	"github.com/fadedpez/eldorado/pkg/events"
	"github.com/fadedpez/eldorado/pkg/services/settlement"
)

// Releaser signals release or refund against an escrow transaction.
// The escrow lifecycle itself is owned by an external subsystem; both
// calls must be idempotent on that side because event delivery is
// at-least-once.
type Releaser interface {
	Release(ctx context.Context, escrowTransactionID string) error
	Refund(ctx context.Context, escrowTransactionID string) error
}

// EscrowActionRelease and EscrowActionRefund name the signal sent to
// the escrow subsystem for a settled intake.
const (
	EscrowActionRelease = "release"
	EscrowActionRefund  = "refund"
)

// Adapter translates the standardized wager/queue intake payload used
// by interactive features into settlement engine calls. Each distinct
// idempotency key triggers exactly one engine invocation no matter how
// many times the adapter is called with it; the engine's key
// reservation is the gate.
type Adapter struct {
	engine   *settlement.Engine
	releaser Releaser
	logger   *logging.Logger
}

// NewAdapter creates a new intake adapter. When a dispatcher is given
// the adapter subscribes to offer resolution events so escrow-held
// stakes are released or refunded when a performer resolves an offer
// after intake returned.
func NewAdapter(engine *settlement.Engine, releaser Releaser, dispatcher *events.Dispatcher, logger *logging.Logger) *Adapter {
	if logger == nil {
		logger = logging.Default
	}
	a := &Adapter{
		engine:   engine,
		releaser: releaser,
		logger:   logger,
	}

	if dispatcher != nil {
		dispatcher.Subscribe(entities.EventTypeSpinAccepted, a.onOfferResolved(EscrowActionRelease))
		dispatcher.Subscribe(entities.EventTypeSpinRejected, a.onOfferResolved(EscrowActionRefund))
	}

	return a
}

// Handle processes one intake payload and returns the settled result
func (a *Adapter) Handle(ctx context.Context, req *entities.IntakeRequest) (*entities.IntakeResult, error) {
	if req.IdempotencyKey == "" {
		return nil, fmt.Errorf("idempotency key is required")
	}
	if req.UserID == "" {
		return nil, fmt.Errorf("user ID is required")
	}
	if req.SourceFeature == "" {
		return nil, fmt.Errorf("source feature is required")
	}

	if req.PerformerID != "" {
		return a.handleMediated(ctx, req)
	}
	return a.handleHouse(ctx, req)
}

// handleHouse settles a house wager. The config name is the source
// feature, so "slots" and "wheel" resolve against their own rulesets.
func (a *Adapter) handleHouse(ctx context.Context, req *entities.IntakeRequest) (*entities.IntakeResult, error) {
	tx, err := a.engine.SubmitWager(ctx, req.IdempotencyKey, req.UserID, req.SourceFeature)
	if err != nil && !errors.Is(err, settlement.ErrInsufficientFunds) {
		return nil, err
	}

	result := &entities.IntakeResult{
		TransactionID: tx.TransactionID,
		Status:        string(tx.Status),
		IsWin:         tx.IsWin,
		Payout:        tx.Payout,
		ResultSymbols: tx.ResultSymbols,
	}

	// Mirror the outcome onto the escrow transaction: a completed wager
	// releases the held stake, anything else refunds it.
	if req.EscrowTransactionID != "" {
		action := EscrowActionRefund
		if tx.Status == entities.TransactionStatusCompleted {
			action = EscrowActionRelease
		}
		if err := a.signal(ctx, action, req.EscrowTransactionID); err != nil {
			return nil, err
		}
		result.EscrowAction = action
	}

	return result, nil
}

// handleMediated creates a performer-mediated offer. The stake stays in
// escrow until the performer accepts or rejects; the subscription set
// up in NewAdapter sends the matching escrow signal at that point.
func (a *Adapter) handleMediated(ctx context.Context, req *entities.IntakeRequest) (*entities.IntakeResult, error) {
	offer, err := a.engine.CreateSpinOffer(ctx, req.IdempotencyKey, req.UserID, req.PerformerID,
		req.EscrowTransactionID, req.Tokens)
	if err != nil {
		return nil, err
	}

	result := &entities.IntakeResult{
		TransactionID: offer.OfferID,
		Status:        string(offer.Status),
	}

	switch offer.Status {
	case entities.OfferStatusAccepted:
		result.IsWin = true
		result.Payout = offer.Tokens
		result.EscrowAction = EscrowActionRelease
	case entities.OfferStatusRejected:
		result.EscrowAction = EscrowActionRefund
	}

	return result, nil
}

// onOfferResolved returns an event handler that signals the escrow
// subsystem when an offer reaches a terminal state
func (a *Adapter) onOfferResolved(action string) events.Handler {
	return func(ctx context.Context, evt *entities.Event) error {
		offer, err := a.engine.GetOffer(ctx, evt.ReferenceID)
		if err != nil {
			return fmt.Errorf("error loading offer %s: %w", evt.ReferenceID, err)
		}
		if offer.EscrowTransactionID == "" {
			return nil
		}
		return a.signal(ctx, action, offer.EscrowTransactionID)
	}
}

func (a *Adapter) signal(ctx context.Context, action, escrowTransactionID string) error {
	if a.releaser == nil {
		return nil
	}

	var err error
	switch action {
	case EscrowActionRelease:
		err = a.releaser.Release(ctx, escrowTransactionID)
	case EscrowActionRefund:
		err = a.releaser.Refund(ctx, escrowTransactionID)
	}
	if err != nil {
		return fmt.Errorf("error signalling escrow %s for %s: %w", action, escrowTransactionID, err)
	}

	a.logger.Info("[ESCROW] Signalled %s for escrow transaction %s", action, escrowTransactionID)
	return nil
}
