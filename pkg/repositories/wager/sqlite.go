package wager

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fadedpez/eldorado/pkg/entities"
	_ "github.com/mattn/go-sqlite3"
)

// SQLite table schemas
const (
	createKeysTableSQL = `
	CREATE TABLE IF NOT EXISTS idempotency_keys (
		key TEXT PRIMARY KEY,
		reference_id TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`

	createTransactionsTableSQL = `
	CREATE TABLE IF NOT EXISTS wager_transactions (
		transaction_id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		idempotency_key TEXT NOT NULL UNIQUE,
		amount_wagered INTEGER NOT NULL,
		result_symbols TEXT NOT NULL,
		is_win INTEGER NOT NULL,
		payout INTEGER NOT NULL,
		multiplier REAL NOT NULL,
		balance_before INTEGER NOT NULL,
		balance_after INTEGER NOT NULL,
		status TEXT NOT NULL,
		config_name TEXT NOT NULL,
		config_version INTEGER NOT NULL,
		integrity_hash TEXT NOT NULL,
		server_timestamp TIMESTAMP NOT NULL,
		archived INTEGER NOT NULL DEFAULT 0,
		archived_at TIMESTAMP
	)`

	createOffersTableSQL = `
	CREATE TABLE IF NOT EXISTS spin_offers (
		offer_id TEXT PRIMARY KEY,
		idempotency_key TEXT NOT NULL UNIQUE,
		user_id TEXT NOT NULL,
		performer_id TEXT NOT NULL,
		escrow_transaction_id TEXT,
		tokens INTEGER NOT NULL,
		status TEXT NOT NULL,
		integrity_hash TEXT NOT NULL,
		server_timestamp TIMESTAMP NOT NULL,
		resolved_at TIMESTAMP,
		archived INTEGER NOT NULL DEFAULT 0,
		archived_at TIMESTAMP
	)`

	createWagerIndexesSQL = `
	CREATE INDEX IF NOT EXISTS idx_wager_user_id ON wager_transactions(user_id);
	CREATE INDEX IF NOT EXISTS idx_wager_timestamp ON wager_transactions(server_timestamp DESC);
	CREATE INDEX IF NOT EXISTS idx_wager_archived ON wager_transactions(archived);
	CREATE INDEX IF NOT EXISTS idx_offers_performer ON spin_offers(performer_id);
	CREATE INDEX IF NOT EXISTS idx_offers_archived ON spin_offers(archived)
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

	schemas := []string{
		createKeysTableSQL,
		createTransactionsTableSQL,
		createOffersTableSQL,
		createWagerIndexesSQL,
	}
	for _, schema := range schemas {
		if _, err := db.Exec(schema); err != nil {
			db.Close()
			return nil, fmt.Errorf("error creating wager schema: %w", err)
		}
	}

	return &SQLiteRepository{db: db}, nil
}

// ReserveKey atomically claims an idempotency key. INSERT OR IGNORE is
// the test-and-set: exactly one concurrent caller observes a changed row.
func (r *SQLiteRepository) ReserveKey(ctx context.Context, key, referenceID string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO idempotency_keys (key, reference_id) VALUES (?, ?)`,
		key, referenceID,
	)
	if err != nil {
		return false, fmt.Errorf("error reserving idempotency key: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("error getting rows affected: %w", err)
	}

	return rowsAffected > 0, nil
}

// SaveTransaction creates or updates a wager transaction
func (r *SQLiteRepository) SaveTransaction(ctx context.Context, tx *entities.WagerTransaction) error {
	symbols, err := json.Marshal(tx.ResultSymbols)
	if err != nil {
		return fmt.Errorf("error marshaling result symbols: %w", err)
	}

	var archivedAt any
	if !tx.ArchivedAt.IsZero() {
		archivedAt = tx.ArchivedAt.Format(timestampFormat)
	}

	query := `
		INSERT INTO wager_transactions (
			transaction_id, user_id, idempotency_key, amount_wagered, result_symbols,
			is_win, payout, multiplier, balance_before, balance_after, status,
			config_name, config_version, integrity_hash, server_timestamp, archived, archived_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(transaction_id) DO UPDATE SET
			result_symbols = excluded.result_symbols,
			is_win = excluded.is_win,
			payout = excluded.payout,
			multiplier = excluded.multiplier,
			balance_before = excluded.balance_before,
			balance_after = excluded.balance_after,
			status = excluded.status,
			config_name = excluded.config_name,
			config_version = excluded.config_version,
			integrity_hash = excluded.integrity_hash
	`

	_, err = r.db.ExecContext(ctx, query,
		tx.TransactionID,
		tx.UserID,
		tx.IdempotencyKey,
		tx.AmountWagered,
		string(symbols),
		tx.IsWin,
		tx.Payout,
		tx.Multiplier,
		tx.BalanceBefore,
		tx.BalanceAfter,
		tx.Status,
		tx.ConfigName,
		tx.ConfigVersion,
		tx.IntegrityHash,
		tx.ServerTimestamp.Format(timestampFormat),
		tx.Archived,
		archivedAt,
	)

	if err != nil {
		return fmt.Errorf("error saving transaction: %w", err)
	}

	return nil
}

func (r *SQLiteRepository) scanTransaction(row interface {
	Scan(dest ...any) error
}) (*entities.WagerTransaction, error) {
	var tx entities.WagerTransaction
	var symbols, timestamp string
	var archivedAt sql.NullString

	err := row.Scan(
		&tx.TransactionID,
		&tx.UserID,
		&tx.IdempotencyKey,
		&tx.AmountWagered,
		&symbols,
		&tx.IsWin,
		&tx.Payout,
		&tx.Multiplier,
		&tx.BalanceBefore,
		&tx.BalanceAfter,
		&tx.Status,
		&tx.ConfigName,
		&tx.ConfigVersion,
		&tx.IntegrityHash,
		&timestamp,
		&tx.Archived,
		&archivedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(symbols), &tx.ResultSymbols); err != nil {
		return nil, fmt.Errorf("error unmarshaling result symbols: %w", err)
	}

	tx.ServerTimestamp, err = parseTimestamp(timestamp)
	if err != nil {
		return nil, err
	}

	if archivedAt.Valid {
		tx.ArchivedAt, err = parseTimestamp(archivedAt.String)
		if err != nil {
			return nil, err
		}
	}

	return &tx, nil
}

const selectTransactionSQL = `
	SELECT transaction_id, user_id, idempotency_key, amount_wagered, result_symbols,
		is_win, payout, multiplier, balance_before, balance_after, status,
		config_name, config_version, integrity_hash, server_timestamp, archived, archived_at
	FROM wager_transactions
`

// GetTransaction retrieves a transaction by its ID
func (r *SQLiteRepository) GetTransaction(ctx context.Context, transactionID string) (*entities.WagerTransaction, error) {
	row := r.db.QueryRowContext(ctx, selectTransactionSQL+` WHERE transaction_id = ?`, transactionID)

	tx, err := r.scanTransaction(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTransactionNotFound
		}
		return nil, fmt.Errorf("error getting transaction: %w", err)
	}

	return tx, nil
}

// GetTransactionByKey retrieves a transaction by its idempotency key
func (r *SQLiteRepository) GetTransactionByKey(ctx context.Context, idempotencyKey string) (*entities.WagerTransaction, error) {
	row := r.db.QueryRowContext(ctx, selectTransactionSQL+` WHERE idempotency_key = ?`, idempotencyKey)

	tx, err := r.scanTransaction(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTransactionNotFound
		}
		return nil, fmt.Errorf("error getting transaction by key: %w", err)
	}

	return tx, nil
}

// CountUserWagersSince counts a user's wager transactions in the
// trailing window, used for sliding-window rate limiting
func (r *SQLiteRepository) CountUserWagersSince(ctx context.Context, userID string, since time.Time) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM wager_transactions WHERE user_id = ? AND server_timestamp >= ?`,
		userID, since.Format(timestampFormat),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("error counting wagers: %w", err)
	}

	return count, nil
}

// SaveOffer creates or updates a spin offer
func (r *SQLiteRepository) SaveOffer(ctx context.Context, offer *entities.SpinOffer) error {
	var resolvedAt, archivedAt any
	if !offer.ResolvedAt.IsZero() {
		resolvedAt = offer.ResolvedAt.Format(timestampFormat)
	}
	if !offer.ArchivedAt.IsZero() {
		archivedAt = offer.ArchivedAt.Format(timestampFormat)
	}

	query := `
		INSERT INTO spin_offers (
			offer_id, idempotency_key, user_id, performer_id, escrow_transaction_id,
			tokens, status, integrity_hash, server_timestamp, resolved_at, archived, archived_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(offer_id) DO UPDATE SET
			status = excluded.status,
			integrity_hash = excluded.integrity_hash,
			resolved_at = excluded.resolved_at
	`

	_, err := r.db.ExecContext(ctx, query,
		offer.OfferID,
		offer.IdempotencyKey,
		offer.UserID,
		offer.PerformerID,
		offer.EscrowTransactionID,
		offer.Tokens,
		offer.Status,
		offer.IntegrityHash,
		offer.ServerTimestamp.Format(timestampFormat),
		resolvedAt,
		offer.Archived,
		archivedAt,
	)

	if err != nil {
		return fmt.Errorf("error saving offer: %w", err)
	}

	return nil
}

func (r *SQLiteRepository) scanOffer(row interface {
	Scan(dest ...any) error
}) (*entities.SpinOffer, error) {
	var offer entities.SpinOffer
	var timestamp string
	var escrowID, resolvedAt, archivedAt sql.NullString

	err := row.Scan(
		&offer.OfferID,
		&offer.IdempotencyKey,
		&offer.UserID,
		&offer.PerformerID,
		&escrowID,
		&offer.Tokens,
		&offer.Status,
		&offer.IntegrityHash,
		&timestamp,
		&resolvedAt,
		&offer.Archived,
		&archivedAt,
	)
	if err != nil {
		return nil, err
	}

	offer.EscrowTransactionID = escrowID.String

	offer.ServerTimestamp, err = parseTimestamp(timestamp)
	if err != nil {
		return nil, err
	}
	if resolvedAt.Valid {
		offer.ResolvedAt, err = parseTimestamp(resolvedAt.String)
		if err != nil {
			return nil, err
		}
	}
	if archivedAt.Valid {
		offer.ArchivedAt, err = parseTimestamp(archivedAt.String)
		if err != nil {
			return nil, err
		}
	}

	return &offer, nil
}

const selectOfferSQL = `
	SELECT offer_id, idempotency_key, user_id, performer_id, escrow_transaction_id,
		tokens, status, integrity_hash, server_timestamp, resolved_at, archived, archived_at
	FROM spin_offers
`

// GetOffer retrieves a spin offer by its ID
func (r *SQLiteRepository) GetOffer(ctx context.Context, offerID string) (*entities.SpinOffer, error) {
	row := r.db.QueryRowContext(ctx, selectOfferSQL+` WHERE offer_id = ?`, offerID)

	offer, err := r.scanOffer(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOfferNotFound
		}
		return nil, fmt.Errorf("error getting offer: %w", err)
	}

	return offer, nil
}

// GetOfferByKey retrieves a spin offer by its idempotency key
func (r *SQLiteRepository) GetOfferByKey(ctx context.Context, idempotencyKey string) (*entities.SpinOffer, error) {
	row := r.db.QueryRowContext(ctx, selectOfferSQL+` WHERE idempotency_key = ?`, idempotencyKey)

	offer, err := r.scanOffer(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOfferNotFound
		}
		return nil, fmt.Errorf("error getting offer by key: %w", err)
	}

	return offer, nil
}

// ListUnarchivedBefore returns terminal, unarchived transactions older
// than the cutoff, oldest first
func (r *SQLiteRepository) ListUnarchivedBefore(ctx context.Context, cutoff time.Time, limit int) ([]*entities.WagerTransaction, error) {
	query := selectTransactionSQL + `
		WHERE archived = 0 AND status != ? AND server_timestamp < ?
		ORDER BY server_timestamp ASC
		LIMIT ?
	`

	rows, err := r.db.QueryContext(ctx, query,
		entities.TransactionStatusPending, cutoff.Format(timestampFormat), limit)
	if err != nil {
		return nil, fmt.Errorf("error querying unarchived transactions: %w", err)
	}
	defer rows.Close()

	var transactions []*entities.WagerTransaction
	for rows.Next() {
		tx, err := r.scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning transaction row: %w", err)
		}
		transactions = append(transactions, tx)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transaction rows: %w", err)
	}

	return transactions, nil
}

// MarkArchived flags a transaction as archived
func (r *SQLiteRepository) MarkArchived(ctx context.Context, transactionID string, archivedAt time.Time) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE wager_transactions SET archived = 1, archived_at = ? WHERE transaction_id = ?`,
		archivedAt.Format(timestampFormat), transactionID,
	)
	if err != nil {
		return fmt.Errorf("error marking transaction archived: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("error getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrTransactionNotFound
	}

	return nil
}

// ListUnarchivedOffersBefore returns terminal, unarchived offers older
// than the cutoff, oldest first
func (r *SQLiteRepository) ListUnarchivedOffersBefore(ctx context.Context, cutoff time.Time, limit int) ([]*entities.SpinOffer, error) {
	query := selectOfferSQL + `
		WHERE archived = 0 AND status != ? AND server_timestamp < ?
		ORDER BY server_timestamp ASC
		LIMIT ?
	`

	rows, err := r.db.QueryContext(ctx, query,
		entities.OfferStatusCreated, cutoff.Format(timestampFormat), limit)
	if err != nil {
		return nil, fmt.Errorf("error querying unarchived offers: %w", err)
	}
	defer rows.Close()

	var offers []*entities.SpinOffer
	for rows.Next() {
		offer, err := r.scanOffer(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning offer row: %w", err)
		}
		offers = append(offers, offer)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating offer rows: %w", err)
	}

	return offers, nil
}

// MarkOfferArchived flags a spin offer as archived. SaveOffer never
// touches the archival columns, so this is the only writer.
func (r *SQLiteRepository) MarkOfferArchived(ctx context.Context, offerID string, archivedAt time.Time) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE spin_offers SET archived = 1, archived_at = ? WHERE offer_id = ?`,
		archivedAt.Format(timestampFormat), offerID,
	)
	if err != nil {
		return fmt.Errorf("error marking offer archived: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("error getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrOfferNotFound
	}

	return nil
}

// Close closes the database connection
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}
