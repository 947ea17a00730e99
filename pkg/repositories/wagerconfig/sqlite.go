package wagerconfig

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
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

const (
	createConfigsTableSQL = `
	CREATE TABLE IF NOT EXISTS wager_configs (
		id TEXT PRIMARY KEY,
		config_name TEXT NOT NULL,
		version INTEGER NOT NULL,
		is_active INTEGER NOT NULL DEFAULT 0,
		wager_cost INTEGER NOT NULL,
		symbols TEXT NOT NULL,
		target_rtp REAL NOT NULL,
		max_wagers_per_hour INTEGER NOT NULL,
		effective_date TIMESTAMP NOT NULL,
		notes TEXT,
		UNIQUE(config_name, version)
	)`

	createConfigIndexesSQL = `
	CREATE UNIQUE INDEX IF NOT EXISTS idx_configs_one_active
		ON wager_configs(config_name) WHERE is_active = 1
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

// SQLiteRepository implements Repository using SQLite. A partial unique
// index enforces the one-active-row-per-name invariant at the schema
// level, not merely by convention.
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

	for _, schema := range []string{createConfigsTableSQL, createConfigIndexesSQL} {
		if _, err := db.Exec(schema); err != nil {
			db.Close()
			return nil, fmt.Errorf("error creating config schema: %w", err)
		}
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) scanConfig(row interface {
	Scan(dest ...any) error
}) (*entities.WagerConfig, error) {
	var cfg entities.WagerConfig
	var symbols, effectiveDate string
	var notes sql.NullString

	err := row.Scan(
		&cfg.ID,
		&cfg.ConfigName,
		&cfg.Version,
		&cfg.IsActive,
		&cfg.WagerCost,
		&symbols,
		&cfg.TargetRTP,
		&cfg.MaxWagersPerHour,
		&effectiveDate,
		&notes,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(symbols), &cfg.Symbols); err != nil {
		return nil, fmt.Errorf("error unmarshaling symbols: %w", err)
	}

	cfg.EffectiveDate, err = parseTimestamp(effectiveDate)
	if err != nil {
		return nil, err
	}
	cfg.Notes = notes.String

	return &cfg, nil
}

const selectConfigSQL = `
	SELECT id, config_name, version, is_active, wager_cost, symbols,
		target_rtp, max_wagers_per_hour, effective_date, notes
	FROM wager_configs
`

// GetActive retrieves the active config for a name
func (r *SQLiteRepository) GetActive(ctx context.Context, configName string) (*entities.WagerConfig, error) {
	row := r.db.QueryRowContext(ctx, selectConfigSQL+` WHERE config_name = ? AND is_active = 1`, configName)

	cfg, err := r.scanConfig(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoActiveConfig
		}
		return nil, fmt.Errorf("error getting active config: %w", err)
	}

	return cfg, nil
}

// Publish assigns the next version, deactivates the prior active row
// and inserts the new active row inside one database transaction
func (r *SQLiteRepository) Publish(ctx context.Context, cfg *entities.WagerConfig) (int64, error) {
	symbols, err := json.Marshal(cfg.Symbols)
	if err != nil {
		return 0, fmt.Errorf("error marshaling symbols: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("error beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var version int64
	err = tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(version), 0) + 1 FROM wager_configs WHERE config_name = ?`,
		cfg.ConfigName,
	).Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("error assigning version: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE wager_configs SET is_active = 0 WHERE config_name = ? AND is_active = 1`,
		cfg.ConfigName,
	); err != nil {
		return 0, fmt.Errorf("error deactivating prior config: %w", err)
	}

	id := cfg.ID
	if id == "" {
		id = uuid.New().String()
	}
	effectiveDate := cfg.EffectiveDate
	if effectiveDate.IsZero() {
		effectiveDate = time.Now()
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO wager_configs (
			id, config_name, version, is_active, wager_cost, symbols,
			target_rtp, max_wagers_per_hour, effective_date, notes
		) VALUES (?, ?, ?, 1, ?, ?, ?, ?, ?, ?)
	`,
		id,
		cfg.ConfigName,
		version,
		cfg.WagerCost,
		string(symbols),
		cfg.TargetRTP,
		cfg.MaxWagersPerHour,
		effectiveDate.Format(timestampFormat),
		cfg.Notes,
	); err != nil {
		return 0, fmt.Errorf("error inserting config: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("error committing publish: %w", err)
	}

	return version, nil
}

// GetVersion retrieves a specific historical version
func (r *SQLiteRepository) GetVersion(ctx context.Context, configName string, version int64) (*entities.WagerConfig, error) {
	row := r.db.QueryRowContext(ctx, selectConfigSQL+` WHERE config_name = ? AND version = ?`, configName, version)

	cfg, err := r.scanConfig(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrConfigNotFound
		}
		return nil, fmt.Errorf("error getting config version: %w", err)
	}

	return cfg, nil
}

// ListVersions retrieves all versions for a name, newest first
func (r *SQLiteRepository) ListVersions(ctx context.Context, configName string) ([]*entities.WagerConfig, error) {
	rows, err := r.db.QueryContext(ctx, selectConfigSQL+` WHERE config_name = ? ORDER BY version DESC`, configName)
	if err != nil {
		return nil, fmt.Errorf("error querying config versions: %w", err)
	}
	defer rows.Close()

	var configs []*entities.WagerConfig
	for rows.Next() {
		cfg, err := r.scanConfig(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning config row: %w", err)
		}
		configs = append(configs, cfg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating config rows: %w", err)
	}

	return configs, nil
}

// Close closes the database connection
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}
