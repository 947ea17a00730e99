// Package api exposes the settlement core over a thin HTTP surface.
// User identity arrives in the X-User-ID header, set by the upstream
// auth layer; this service trusts it.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/fadedpez/eldorado/internal/logging"
	"github.com/fadedpez/eldorado/internal/metrics"
	"github.com/fadedpez/eldorado/internal/types"
	"github.com/fadedpez/eldorado/pkg/entities"
	"github.com/fadedpez/eldorado/pkg/services/audit"
	"github.com/fadedpez/eldorado/pkg/services/escrow"
	"github.com/fadedpez/eldorado/pkg/services/settlement"
	"github.com/fadedpez/eldorado/pkg/services/wagerconfig"
	"github.com/fadedpez/eldorado/pkg/services/wallet"
)

const userIDHeader = "X-User-ID"

// Handler implements the settlement REST API.
type Handler struct {
	engine   *settlement.Engine
	configs  *wagerconfig.Service
	balances wallet.BalanceAuthority
	intake   *escrow.Adapter
	logger   *logging.Logger
}

// NewHandler creates a new API handler.
func NewHandler(engine *settlement.Engine, configs *wagerconfig.Service, balances wallet.BalanceAuthority, intake *escrow.Adapter, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default
	}
	return &Handler{
		engine:   engine,
		configs:  configs,
		balances: balances,
		intake:   intake,
		logger:   logger,
	}
}

// Router builds the chi router with all routes registered.
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/wagers", h.submitWager)
		r.Get("/wagers/{key}", h.getWager)

		r.Post("/offers/{id}/accept", h.acceptOffer)
		r.Post("/offers/{id}/reject", h.rejectOffer)
		r.Get("/offers/{id}", h.getOffer)

		r.Post("/configs", h.publishConfig)
		r.Get("/configs/{name}", h.getActiveConfig)

		r.Get("/wallets/{userID}", h.getWallet)

		r.Post("/intake", h.handleIntake)
	})

	r.Get("/health", h.handleHealth)
	r.Method(http.MethodGet, "/metrics", metrics.HTTPHandler())

	return r
}

// =============================================================================
// Wagers
// =============================================================================

type submitWagerRequest struct {
	IdempotencyKey string `json:"idempotency_key"`
	ConfigName     string `json:"config_name"`
}

func (h *Handler) submitWager(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get(userIDHeader)
	if userID == "" {
		failTyped(w, http.StatusUnauthorized,
			types.NewWagerError(types.ErrPermissionDenied, "missing "+userIDHeader+" header"))
		return
	}

	var req submitWagerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.IdempotencyKey == "" {
		failTyped(w, http.StatusBadRequest,
			types.NewWagerError(types.ErrInvalidArgument, "idempotency_key is required"))
		return
	}

	tx, err := h.engine.SubmitWager(r.Context(), req.IdempotencyKey, userID, req.ConfigName)
	if err != nil {
		// An insufficient-funds settlement still produced a terminal FAILED
		// record; return it alongside the failure.
		if errors.Is(err, settlement.ErrInsufficientFunds) && tx != nil {
			failResponse(w, http.StatusUnprocessableEntity, map[string]any{
				"code":        string(types.ErrInsufficientFunds),
				"reason":      "insufficient funds",
				"transaction": transactionPayload(tx),
			})
			return
		}
		h.writeServiceError(w, err)
		return
	}

	successResponse(w, map[string]any{"transaction": transactionPayload(tx)})
}

func (h *Handler) getWager(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	tx, err := h.engine.GetWagerStatus(r.Context(), key)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	successResponse(w, map[string]any{"transaction": transactionPayload(tx)})
}

// =============================================================================
// Offers
// =============================================================================

func (h *Handler) acceptOffer(w http.ResponseWriter, r *http.Request) {
	h.resolveOffer(w, r, h.engine.AcceptSpinOffer)
}

func (h *Handler) rejectOffer(w http.ResponseWriter, r *http.Request) {
	h.resolveOffer(w, r, h.engine.RejectSpinOffer)
}

func (h *Handler) resolveOffer(w http.ResponseWriter, r *http.Request, resolve func(context.Context, string) (*entities.SpinOffer, error)) {
	offerID := chi.URLParam(r, "id")

	offer, err := resolve(r.Context(), offerID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	successResponse(w, map[string]any{"offer": offerPayload(offer)})
}

func (h *Handler) getOffer(w http.ResponseWriter, r *http.Request) {
	offerID := chi.URLParam(r, "id")

	offer, err := h.engine.GetOffer(r.Context(), offerID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	successResponse(w, map[string]any{"offer": offerPayload(offer)})
}

// =============================================================================
// Configs
// =============================================================================

type symbolRequest struct {
	ID               string  `json:"id"`
	RarityWeight     int64   `json:"rarity_weight"`
	PayoutMultiplier float64 `json:"payout_multiplier"`
}

type publishConfigRequest struct {
	ConfigName       string          `json:"config_name"`
	WagerCost        int64           `json:"wager_cost"`
	Symbols          []symbolRequest `json:"symbols"`
	TargetRTP        float64         `json:"target_rtp"`
	MaxWagersPerHour int             `json:"max_wagers_per_hour"`
	Notes            string          `json:"notes"`
}

func (h *Handler) publishConfig(w http.ResponseWriter, r *http.Request) {
	var req publishConfigRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}

	cfg := &entities.WagerConfig{
		ConfigName:       req.ConfigName,
		WagerCost:        req.WagerCost,
		TargetRTP:        req.TargetRTP,
		MaxWagersPerHour: req.MaxWagersPerHour,
		Notes:            req.Notes,
	}
	for _, sym := range req.Symbols {
		cfg.Symbols = append(cfg.Symbols, entities.Symbol{
			ID:               sym.ID,
			RarityWeight:     sym.RarityWeight,
			PayoutMultiplier: sym.PayoutMultiplier,
		})
	}

	version, err := h.configs.Publish(r.Context(), cfg)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	successResponse(w, map[string]any{
		"config_name": cfg.ConfigName,
		"version":     version,
	})
}

func (h *Handler) getActiveConfig(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	cfg, err := h.configs.GetActive(r.Context(), name)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	successResponse(w, map[string]any{"config": configPayload(cfg)})
}

// =============================================================================
// Wallets
// =============================================================================

func (h *Handler) getWallet(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	wlt, _, err := h.balances.GetOrCreateWallet(r.Context(), userID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	successResponse(w, map[string]any{
		"user_id":      wlt.UserID,
		"balance":      wlt.Balance,
		"last_updated": wlt.LastUpdated.UTC().Format(time.RFC3339),
	})
}

// =============================================================================
// Escrow intake
// =============================================================================

type intakeRequest struct {
	IdempotencyKey      string            `json:"idempotency_key"`
	SourceFeature       string            `json:"source_feature"`
	SourceEventID       string            `json:"source_event_id"`
	PerformerID         string            `json:"performer_id"`
	UserID              string            `json:"user_id"`
	EscrowTransactionID string            `json:"escrow_transaction_id"`
	Tokens              int64             `json:"tokens"`
	Metadata            map[string]string `json:"metadata"`
}

func (h *Handler) handleIntake(w http.ResponseWriter, r *http.Request) {
	var req intakeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.intake.Handle(r.Context(), &entities.IntakeRequest{
		IdempotencyKey:      req.IdempotencyKey,
		SourceFeature:       req.SourceFeature,
		SourceEventID:       req.SourceEventID,
		PerformerID:         req.PerformerID,
		UserID:              req.UserID,
		EscrowTransactionID: req.EscrowTransactionID,
		Tokens:              req.Tokens,
		Metadata:            req.Metadata,
	})
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	successResponse(w, map[string]any{
		"transaction_id": result.TransactionID,
		"status":         result.Status,
		"is_win":         result.IsWin,
		"payout":         result.Payout,
		"result_symbols": result.ResultSymbols,
		"escrow_action":  result.EscrowAction,
	})
}

// =============================================================================
// Health
// =============================================================================

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	successResponse(w, map[string]any{"status": "ok"})
}

// =============================================================================
// Error mapping
// =============================================================================

// classifyError wraps a service sentinel error into the typed taxonomy.
// Anything unrecognized is an internal error.
func classifyError(err error) *types.WagerError {
	switch {
	case errors.Is(err, settlement.ErrRateLimited):
		return types.WrapError(types.ErrRateLimited, "rate limited", err)
	case errors.Is(err, settlement.ErrInsufficientFunds):
		return types.WrapError(types.ErrInsufficientFunds, "insufficient funds", err)
	case errors.Is(err, wagerconfig.ErrNoActiveConfig):
		return types.WrapError(types.ErrNoActiveConfig, "no active config", err)
	case errors.Is(err, wagerconfig.ErrConfigNotFound):
		return types.WrapError(types.ErrConfigNotFound, "config not found", err)
	case errors.Is(err, wagerconfig.ErrConfigInvariant):
		return types.WrapError(types.ErrConfigInvariantViolation, err.Error(), err)
	case errors.Is(err, settlement.ErrTransactionNotFound):
		return types.WrapError(types.ErrTransactionNotFound, "transaction not found", err)
	case errors.Is(err, settlement.ErrOfferNotFound):
		return types.WrapError(types.ErrOfferNotFound, "offer not found", err)
	case errors.Is(err, settlement.ErrOfferAlreadyResolved):
		return types.WrapError(types.ErrOfferAlreadyResolved, "offer already resolved", err)
	case errors.Is(err, audit.ErrIntegrityCheckFailed):
		return types.WrapError(types.ErrIntegrityCheckFailed, "integrity check failed", err)
	default:
		return types.WrapError(types.ErrInternalError, "internal error", err)
	}
}

// statusForCode maps taxonomy codes onto HTTP statuses
var statusForCode = map[types.ErrorCode]int{
	types.ErrRateLimited:              http.StatusTooManyRequests,
	types.ErrInsufficientFunds:        http.StatusUnprocessableEntity,
	types.ErrNoActiveConfig:           http.StatusNotFound,
	types.ErrConfigNotFound:           http.StatusNotFound,
	types.ErrConfigInvariantViolation: http.StatusBadRequest,
	types.ErrTransactionNotFound:      http.StatusNotFound,
	types.ErrOfferNotFound:            http.StatusNotFound,
	types.ErrOfferAlreadyResolved:     http.StatusConflict,
	types.ErrInvalidArgument:          http.StatusBadRequest,
	types.ErrPermissionDenied:         http.StatusUnauthorized,
}

// writeServiceError classifies a service error and writes the matching
// HTTP response. Client faults (rate limit, funds) are JSend failures,
// the rest are errors.
func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	wagerErr := classifyError(err)

	status, known := statusForCode[wagerErr.Code]
	if !known {
		status = http.StatusInternalServerError
	}

	switch wagerErr.Code {
	case types.ErrRateLimited, types.ErrInsufficientFunds:
		failTyped(w, status, wagerErr)
	case types.ErrInternalError, types.ErrIntegrityCheckFailed:
		h.logger.LogError(wagerErr)
		errorResponse(w, http.StatusInternalServerError, wagerErr.Message)
	default:
		errorResponse(w, status, wagerErr.Message)
	}
}

// failTyped writes a JSend failure carrying the taxonomy code
func failTyped(w http.ResponseWriter, status int, wagerErr *types.WagerError) {
	failResponse(w, status, map[string]any{
		"code":   string(wagerErr.Code),
		"reason": wagerErr.Message,
	})
}

// =============================================================================
// Payload mapping
// =============================================================================

type transactionResponse struct {
	TransactionID  string   `json:"transaction_id"`
	UserID         string   `json:"user_id"`
	IdempotencyKey string   `json:"idempotency_key"`
	AmountWagered  int64    `json:"amount_wagered"`
	ResultSymbols  []string `json:"result_symbols"`
	IsWin          bool     `json:"is_win"`
	Payout         int64    `json:"payout"`
	Multiplier     float64  `json:"multiplier"`
	BalanceBefore  int64    `json:"balance_before"`
	BalanceAfter   int64    `json:"balance_after"`
	Status         string   `json:"status"`
	ConfigName     string   `json:"config_name"`
	ConfigVersion  int64    `json:"config_version"`
	Timestamp      string   `json:"timestamp"`
}

func transactionPayload(tx *entities.WagerTransaction) *transactionResponse {
	return &transactionResponse{
		TransactionID:  tx.TransactionID,
		UserID:         tx.UserID,
		IdempotencyKey: tx.IdempotencyKey,
		AmountWagered:  tx.AmountWagered,
		ResultSymbols:  tx.ResultSymbols,
		IsWin:          tx.IsWin,
		Payout:         tx.Payout,
		Multiplier:     tx.Multiplier,
		BalanceBefore:  tx.BalanceBefore,
		BalanceAfter:   tx.BalanceAfter,
		Status:         string(tx.Status),
		ConfigName:     tx.ConfigName,
		ConfigVersion:  tx.ConfigVersion,
		Timestamp:      tx.ServerTimestamp.UTC().Format(time.RFC3339),
	}
}

type offerResponse struct {
	OfferID             string `json:"offer_id"`
	IdempotencyKey      string `json:"idempotency_key"`
	UserID              string `json:"user_id"`
	PerformerID         string `json:"performer_id"`
	EscrowTransactionID string `json:"escrow_transaction_id,omitempty"`
	Tokens              int64  `json:"tokens"`
	Status              string `json:"status"`
	Timestamp           string `json:"timestamp"`
}

func offerPayload(offer *entities.SpinOffer) *offerResponse {
	return &offerResponse{
		OfferID:             offer.OfferID,
		IdempotencyKey:      offer.IdempotencyKey,
		UserID:              offer.UserID,
		PerformerID:         offer.PerformerID,
		EscrowTransactionID: offer.EscrowTransactionID,
		Tokens:              offer.Tokens,
		Status:              string(offer.Status),
		Timestamp:           offer.ServerTimestamp.UTC().Format(time.RFC3339),
	}
}

type configResponse struct {
	ConfigName       string           `json:"config_name"`
	Version          int64            `json:"version"`
	WagerCost        int64            `json:"wager_cost"`
	Symbols          []symbolResponse `json:"symbols"`
	TargetRTP        float64          `json:"target_rtp"`
	MaxWagersPerHour int              `json:"max_wagers_per_hour"`
	EffectiveDate    string           `json:"effective_date"`
	Notes            string           `json:"notes,omitempty"`
}

type symbolResponse struct {
	ID               string  `json:"id"`
	RarityWeight     int64   `json:"rarity_weight"`
	PayoutMultiplier float64 `json:"payout_multiplier"`
}

func configPayload(cfg *entities.WagerConfig) *configResponse {
	resp := &configResponse{
		ConfigName:       cfg.ConfigName,
		Version:          cfg.Version,
		WagerCost:        cfg.WagerCost,
		TargetRTP:        cfg.TargetRTP,
		MaxWagersPerHour: cfg.MaxWagersPerHour,
		EffectiveDate:    cfg.EffectiveDate.UTC().Format(time.RFC3339),
		Notes:            cfg.Notes,
	}
	for _, sym := range cfg.Symbols {
		resp.Symbols = append(resp.Symbols, symbolResponse{
			ID:               sym.ID,
			RarityWeight:     sym.RarityWeight,
			PayoutMultiplier: sym.PayoutMultiplier,
		})
	}
	return resp
}
