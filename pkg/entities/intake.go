package entities

// IntakeRequest is the standardized escrow/queue payload accepted from
// interactive features (slot machine, wheel spin, and similar). The
// escrow transaction is owned by the external escrow subsystem; this
// core only signals release or refund against it.
type IntakeRequest struct {
	IdempotencyKey      string            // Caller-supplied, globally unique
	SourceFeature       string            // Feature name, e.g. "slots"
	SourceEventID       string            // Feature-local event identifier
	PerformerID         string            // Counterparty, empty for house wagers
	UserID              string            // Verified by the upstream auth layer
	EscrowTransactionID string            // External escrow reference, may be empty
	Tokens              int64             // Tokens at stake
	Metadata            map[string]string // Feature-specific extras, never PII
}

// IntakeResult is returned to the calling feature after settlement.
type IntakeResult struct {
	TransactionID string   // Settled transaction or offer ID
	Status        string   // Terminal status string
	IsWin         bool     // Whether the wager paid out
	Payout        int64    // Tokens credited
	ResultSymbols []string // Reel outcome for house wagers
	EscrowAction  string   // "release", "refund" or "" when no escrow ref
}
