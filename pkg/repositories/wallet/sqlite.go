package wallet

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fadedpez/eldorado/pkg/entities"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// SQLite table schemas
const (
	createWalletsTableSQL = `
	CREATE TABLE IF NOT EXISTS wallets (
		user_id TEXT PRIMARY KEY,
		balance INTEGER NOT NULL DEFAULT 0 CHECK (balance >= 0),
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`

	createLedgerTableSQL = `
	CREATE TABLE IF NOT EXISTS ledger_entries (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		amount INTEGER NOT NULL,
		type TEXT NOT NULL,
		reference_id TEXT,
		description TEXT,
		timestamp TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		balance_before INTEGER NOT NULL,
		balance_after INTEGER NOT NULL,
		FOREIGN KEY (user_id) REFERENCES wallets(user_id)
	)`

	createLedgerIndexesSQL = `
	CREATE INDEX IF NOT EXISTS idx_ledger_user_id ON ledger_entries(user_id);
	CREATE INDEX IF NOT EXISTS idx_ledger_timestamp ON ledger_entries(timestamp DESC)
	`

	timestampFormat = "2006-01-02 15:04:05"
)

// timestampFormats covers the layouts SQLite may hand back
var timestampFormats = []string{
	timestampFormat,
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04:05-07:00",
	time.RFC3339,
}

func parseTimestamp(raw string) (time.Time, error) {
	var parseErr error
	for _, format := range timestampFormats {
		t, err := time.Parse(format, raw)
		if err == nil {
			return t, nil
		}
		parseErr = err
	}
	return time.Time{}, fmt.Errorf("error parsing timestamp '%s': %w", raw, parseErr)
}

// SQLiteRepository implements Repository using SQLite
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite repository
func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	// Ensure directory exists
	dbDir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return nil, fmt.Errorf("error creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	for _, schema := range []string{createWalletsTableSQL, createLedgerTableSQL, createLedgerIndexesSQL} {
		if _, err := db.Exec(schema); err != nil {
			db.Close()
			return nil, fmt.Errorf("error creating wallet schema: %w", err)
		}
	}

	return &SQLiteRepository{db: db}, nil
}

// GetWallet retrieves a wallet by user ID
func (r *SQLiteRepository) GetWallet(ctx context.Context, userID string) (*entities.Wallet, error) {
	query := `SELECT user_id, balance, updated_at FROM wallets WHERE user_id = ?`

	var wallet entities.Wallet
	var updatedAt string

	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&wallet.UserID,
		&wallet.Balance,
		&updatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrWalletNotFound
		}
		return nil, fmt.Errorf("error getting wallet: %w", err)
	}

	wallet.LastUpdated, err = parseTimestamp(updatedAt)
	if err != nil {
		return nil, err
	}

	return &wallet, nil
}

// SaveWallet creates or updates a wallet
func (r *SQLiteRepository) SaveWallet(ctx context.Context, wallet *entities.Wallet) error {
	formattedTime := wallet.LastUpdated.Format(timestampFormat)

	query := `
		INSERT INTO wallets (user_id, balance, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			balance = ?,
			updated_at = ?
	`

	_, err := r.db.ExecContext(ctx, query,
		wallet.UserID, wallet.Balance, formattedTime,
		wallet.Balance, formattedTime,
	)

	if err != nil {
		return fmt.Errorf("error saving wallet: %w", err)
	}

	return nil
}

// ApplyDelta atomically applies balance = balance - debit + credit.
// The read and the conditional write happen inside one transaction so a
// failed funds check never leaves a partial mutation behind.
func (r *SQLiteRepository) ApplyDelta(ctx context.Context, userID string, debit, credit int64) (*Adjustment, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("error beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var before int64
	err = tx.QueryRowContext(ctx, `SELECT balance FROM wallets WHERE user_id = ?`, userID).Scan(&before)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrWalletNotFound
		}
		return nil, fmt.Errorf("error reading balance: %w", err)
	}

	if before < debit {
		return nil, ErrInsufficientFunds
	}

	after := before - debit + credit
	formattedTime := time.Now().Format(timestampFormat)

	result, err := tx.ExecContext(ctx, `
		UPDATE wallets
		SET balance = ?,
			updated_at = ?
		WHERE user_id = ? AND balance = ?
	`, after, formattedTime, userID, before)
	if err != nil {
		return nil, fmt.Errorf("error updating balance: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("error getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return nil, ErrWalletNotFound
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("error committing balance update: %w", err)
	}

	return &Adjustment{Before: before, After: after}, nil
}

// AddLedgerEntry records a balance movement
func (r *SQLiteRepository) AddLedgerEntry(ctx context.Context, entry *entities.LedgerEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}

	query := `
		INSERT INTO ledger_entries (
			id, user_id, amount, type, reference_id, description, timestamp, balance_before, balance_after
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		entry.ID,
		entry.UserID,
		entry.Amount,
		entry.Type,
		entry.ReferenceID,
		entry.Description,
		entry.Timestamp.Format(timestampFormat),
		entry.BalanceBefore,
		entry.BalanceAfter,
	)

	if err != nil {
		return fmt.Errorf("error adding ledger entry: %w", err)
	}

	return nil
}

// GetLedgerEntries retrieves recent balance movements for a user
func (r *SQLiteRepository) GetLedgerEntries(ctx context.Context, userID string, limit int) ([]*entities.LedgerEntry, error) {
	query := `
		SELECT id, user_id, amount, type, reference_id, description, timestamp, balance_before, balance_after
		FROM ledger_entries
		WHERE user_id = ?
		ORDER BY timestamp DESC
		LIMIT ?
	`

	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("error querying ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []*entities.LedgerEntry

	for rows.Next() {
		var entry entities.LedgerEntry
		var timestamp string

		err := rows.Scan(
			&entry.ID,
			&entry.UserID,
			&entry.Amount,
			&entry.Type,
			&entry.ReferenceID,
			&entry.Description,
			&timestamp,
			&entry.BalanceBefore,
			&entry.BalanceAfter,
		)

		if err != nil {
			return nil, fmt.Errorf("error scanning ledger row: %w", err)
		}

		entry.Timestamp, err = parseTimestamp(timestamp)
		if err != nil {
			return nil, err
		}

		entries = append(entries, &entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ledger rows: %w", err)
	}

	return entries, nil
}

// Close closes the database connection
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}
