package entities

import (
	"time"
)

// TransactionStatus represents the lifecycle state of a wager transaction
type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "PENDING"
	TransactionStatusCompleted TransactionStatus = "COMPLETED"
	TransactionStatusFailed    TransactionStatus = "FAILED"
	TransactionStatusRefunded  TransactionStatus = "REFUNDED"
)

// Terminal reports whether the status is terminal. A transaction
// transitions out of PENDING exactly once and is never mutated again,
// except to flip the archived flag.
func (s TransactionStatus) Terminal() bool {
	return s == TransactionStatusCompleted || s == TransactionStatusFailed || s == TransactionStatusRefunded
}

// WagerTransaction is one resolved wager. For a COMPLETED transaction
// BalanceAfter = BalanceBefore - AmountWagered + Payout always holds.
type WagerTransaction struct {
	TransactionID   string            // Caller-visible identifier
	UserID          string            // Wagering user
	IdempotencyKey  string            // Globally unique submission key
	AmountWagered   int64             // Tokens debited
	ResultSymbols   []string          // Ordered reel outcome
	IsWin           bool              // Whether the outcome paid out
	Payout          int64             // Tokens credited, 0 on a loss
	Multiplier      float64           // Payout multiplier applied, 0 on a loss
	BalanceBefore   int64             // Balance snapshot before settlement
	BalanceAfter    int64             // Balance snapshot after settlement
	Status          TransactionStatus // Lifecycle state
	ConfigName      string            // Ruleset name frozen at settlement
	ConfigVersion   int64             // Ruleset version frozen at settlement
	IntegrityHash   string            // Hash over the immutable fields
	ServerTimestamp time.Time         // When the server settled the wager
	Archived        bool              // Retention flag, rows are never deleted
	ArchivedAt      time.Time         // When the row was archived
}

// OfferStatus represents the lifecycle state of a performer-mediated wager
type OfferStatus string

const (
	OfferStatusCreated  OfferStatus = "CREATED"
	OfferStatusAccepted OfferStatus = "ACCEPTED"
	OfferStatusRejected OfferStatus = "REJECTED"
)

// Terminal reports whether the offer status is terminal.
func (s OfferStatus) Terminal() bool {
	return s == OfferStatusAccepted || s == OfferStatusRejected
}

// SpinOffer is the performer-mediated wager variant. The originator's
// tokens are held in escrow until the performer accepts (payout credits
// the performer) or rejects (tokens are refunded to the originator).
type SpinOffer struct {
	OfferID             string      // Caller-visible identifier
	IdempotencyKey      string      // Globally unique submission key
	UserID              string      // Originating user
	PerformerID         string      // Counterparty performer
	EscrowTransactionID string      // External escrow reference
	Tokens              int64       // Tokens at stake
	Status              OfferStatus // Lifecycle state
	IntegrityHash       string      // Hash over the immutable fields
	ServerTimestamp     time.Time   // When the offer was created
	ResolvedAt          time.Time   // When the offer reached a terminal state
	Archived            bool        // Retention flag
	ArchivedAt          time.Time   // When the row was archived
}
