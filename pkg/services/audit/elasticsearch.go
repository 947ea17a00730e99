package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/fadedpez/eldorado/pkg/entities"
)

// MirrorConfig holds configuration options for the archive mirror
type MirrorConfig struct {
	URL         string
	Username    string
	Password    string
	IndexPrefix string
}

// transactionDocument is the Elasticsearch representation of an
// archived wager transaction
type transactionDocument struct {
	TransactionID   string    `json:"transaction_id"`
	UserID          string    `json:"user_id"`
	IdempotencyKey  string    `json:"idempotency_key"`
	AmountWagered   int64     `json:"amount_wagered"`
	ResultSymbols   []string  `json:"result_symbols"`
	IsWin           bool      `json:"is_win"`
	Payout          int64     `json:"payout"`
	Multiplier      float64   `json:"multiplier"`
	BalanceBefore   int64     `json:"balance_before"`
	BalanceAfter    int64     `json:"balance_after"`
	Status          string    `json:"status"`
	ConfigName      string    `json:"config_name"`
	ConfigVersion   int64     `json:"config_version"`
	IntegrityHash   string    `json:"integrity_hash"`
	ServerTimestamp time.Time `json:"server_timestamp"`
	ArchivedAt      time.Time `json:"archived_at"`
}

// ElasticsearchMirror indexes archived transactions into monthly
// indices for compliance search. The sqlite rows remain the source of
// truth; the mirror is read-only downstream.
type ElasticsearchMirror struct {
	client      *elasticsearch.Client
	indexPrefix string
}

// NewElasticsearchMirror creates a new archive mirror
func NewElasticsearchMirror(config *MirrorConfig) (*ElasticsearchMirror, error) {
	cfg := elasticsearch.Config{
		Addresses: []string{config.URL},
	}

	// Add authentication if provided
	if config.Username != "" && config.Password != "" {
		cfg.Username = config.Username
		cfg.Password = config.Password
	}

	client, err := elasticsearch.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("error creating Elasticsearch client: %w", err)
	}

	indexPrefix := config.IndexPrefix
	if indexPrefix == "" {
		indexPrefix = "eldorado"
	}

	return &ElasticsearchMirror{
		client:      client,
		indexPrefix: indexPrefix,
	}, nil
}

// indexFor returns the monthly index name for a transaction
func (m *ElasticsearchMirror) indexFor(tx *entities.WagerTransaction) string {
	return fmt.Sprintf("%s_wagers_%s", m.indexPrefix, tx.ServerTimestamp.UTC().Format("2006.01"))
}

// IndexTransaction writes one archived transaction to the mirror
func (m *ElasticsearchMirror) IndexTransaction(ctx context.Context, tx *entities.WagerTransaction) error {
	doc := transactionDocument{
		TransactionID:   tx.TransactionID,
		UserID:          tx.UserID,
		IdempotencyKey:  tx.IdempotencyKey,
		AmountWagered:   tx.AmountWagered,
		ResultSymbols:   tx.ResultSymbols,
		IsWin:           tx.IsWin,
		Payout:          tx.Payout,
		Multiplier:      tx.Multiplier,
		BalanceBefore:   tx.BalanceBefore,
		BalanceAfter:    tx.BalanceAfter,
		Status:          string(tx.Status),
		ConfigName:      tx.ConfigName,
		ConfigVersion:   tx.ConfigVersion,
		IntegrityHash:   tx.IntegrityHash,
		ServerTimestamp: tx.ServerTimestamp,
		ArchivedAt:      tx.ArchivedAt,
	}

	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("error marshaling transaction document: %w", err)
	}

	req := esapi.IndexRequest{
		Index:      m.indexFor(tx),
		DocumentID: tx.TransactionID,
		Body:       bytes.NewReader(body),
	}

	res, err := req.Do(ctx, m.client)
	if err != nil {
		return fmt.Errorf("error indexing transaction: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("error indexing transaction %s: %s", tx.TransactionID, res.String())
	}

	return nil
}
