package entities

import (
	"time"
)

// Wallet represents a user's token inventory
type Wallet struct {
	UserID      string    // Platform account ID
	Balance     int64     // Current balance in tokens, never negative
	LastUpdated time.Time // When the wallet was last updated
}

// LedgerEntryType represents the type of balance movement
type LedgerEntryType string

const (
	LedgerEntryTypeWager  LedgerEntryType = "WAGER"
	LedgerEntryTypePayout LedgerEntryType = "PAYOUT"
	LedgerEntryTypeRefund LedgerEntryType = "REFUND"
	LedgerEntryTypeCredit LedgerEntryType = "CREDIT"
)

// LedgerEntry represents a single balance movement recorded by the
// balance authority. Amount is negative for net debits.
type LedgerEntry struct {
	ID            string          // Unique identifier
	UserID        string          // User whose balance moved
	Amount        int64           // Net movement (credit - debit)
	Type          LedgerEntryType // Type of movement
	ReferenceID   string          // Optional reference (e.g., wager transaction ID)
	Description   string          // Human-readable description
	Timestamp     time.Time       // When the movement occurred
	BalanceBefore int64           // Balance before this movement
	BalanceAfter  int64           // Balance after this movement
}
