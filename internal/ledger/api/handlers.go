/**
 * @description
 * This file contains the HTTP handlers for the ledger-service's API
 * endpoints. Handlers parse incoming requests, call the application service,
 * and map typed errors to HTTP status codes. Status codes are produced here
 * and nowhere deeper: service and store layers only speak error values.
 *
 * @dependencies
 * - encoding/json, net/http: Standard Go libraries.
 * - internal/ledger/app, internal/ledger/domain, internal/ledger/store:
 *   Service logic, models, and typed errors.
 */
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/paylane/wallet-platform/internal/ledger/app"
	"github.com/paylane/wallet-platform/internal/ledger/domain"
	"github.com/paylane/wallet-platform/internal/ledger/store"
)

// LedgerHandlers holds the application service that handlers will use.
type LedgerHandlers struct {
	service *app.Service
}

// NewLedgerHandlers creates a new instance of LedgerHandlers.
func NewLedgerHandlers(service *app.Service) *LedgerHandlers {
	return &LedgerHandlers{service: service}
}

type createWalletRequest struct {
	UserID string `json:"userId"`
}

type walletResponse struct {
	UserID    uuid.UUID       `json:"userId"`
	Balance   decimal.Decimal `json:"balance"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

type createTransactionRequest struct {
	Amount         decimal.Decimal `json:"amount"`
	Type           string          `json:"type"`
	IdempotencyKey string          `json:"idempotencyKey"`
}

type transactionResponse struct {
	ID        uuid.UUID       `json:"id"`
	UserID    uuid.UUID       `json:"userId"`
	Amount    decimal.Decimal `json:"amount"`
	Type      string          `json:"type"`
	CreatedAt time.Time       `json:"createdAt"`
}

func buildWalletResponse(w *domain.Wallet) walletResponse {
	return walletResponse{
		UserID:    w.UserID,
		Balance:   w.Balance,
		CreatedAt: w.CreatedAt,
		UpdatedAt: w.UpdatedAt,
	}
}

func buildTransactionResponse(t *domain.Transaction) transactionResponse {
	return transactionResponse{
		ID:        t.ID,
		UserID:    t.UserID,
		Amount:    t.Amount,
		Type:      string(t.Type),
		CreatedAt: t.CreatedAt,
	}
}

// CreateWalletHandler handles the internal wallet-creation route. It is only
// reachable through the internal-strategy middleware.
func (h *LedgerHandlers) CreateWalletHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := GetServiceClaims(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req createWalletRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	userID, err := uuid.Parse(strings.TrimSpace(req.UserID))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid user id")
		return
	}

	wallet, err := h.service.CreateWallet(r.Context(), userID)
	if err != nil {
		if errors.Is(err, store.ErrWalletExists) {
			h.writeError(w, http.StatusConflict, "Wallet already exists for this user")
			return
		}
		log.Printf("level=error component=api msg=\"wallet creation failed\" caller=%s user_id=%s err=%v", claims.Service, userID, err)
		h.writeError(w, http.StatusInternalServerError, "Failed to create wallet")
		return
	}

	h.writeJSON(w, http.StatusCreated, buildWalletResponse(wallet))
}

// GetBalanceHandler returns the authenticated user's wallet state.
func (h *LedgerHandlers) GetBalanceHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserID(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	wallet, err := h.service.GetBalance(r.Context(), userID)
	if err != nil {
		if errors.Is(err, store.ErrWalletNotFound) {
			h.writeError(w, http.StatusNotFound, "Wallet not found")
			return
		}
		log.Printf("level=error component=api msg=\"balance fetch failed\" user_id=%s err=%v", userID, err)
		h.writeError(w, http.StatusInternalServerError, "Failed to fetch balance")
		return
	}

	h.writeJSON(w, http.StatusOK, buildWalletResponse(wallet))
}

// CreateTransactionHandler applies one balance change for the authenticated
// user. The Idempotency-Key header, when present, always wins over the body
// field; the service below never learns where the key came from.
func (h *LedgerHandlers) CreateTransactionHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserID(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	allowed, retryAfter, err := h.service.ConsumeTransactionRateLimit(r.Context(), userID)
	if err == nil && !allowed {
		w.Header().Set("Retry-After", fmt.Sprintf("%d", retryAfter))
		h.writeError(w, http.StatusTooManyRequests, "Too many transaction requests. Please slow down.")
		return
	}

	var req createTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	idempotencyKey := strings.TrimSpace(req.IdempotencyKey)
	if headerKey := strings.TrimSpace(r.Header.Get("Idempotency-Key")); headerKey != "" {
		idempotencyKey = headerKey
	}
	if idempotencyKey == "" {
		h.writeError(w, http.StatusBadRequest, "Idempotency key is required")
		return
	}

	transaction, err := h.service.CreateTransaction(r.Context(), userID, req.Amount, domain.TransactionType(strings.ToUpper(strings.TrimSpace(req.Type))), idempotencyKey)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidAmount):
			h.writeError(w, http.StatusBadRequest, "Amount must be greater than zero")
		case errors.Is(err, app.ErrInvalidTransactionType):
			h.writeError(w, http.StatusBadRequest, "Transaction type must be CREDIT or DEBIT")
		case errors.Is(err, store.ErrInsufficientFunds):
			h.writeError(w, http.StatusBadRequest, "Insufficient funds")
		case errors.Is(err, store.ErrWalletNotFound):
			h.writeError(w, http.StatusNotFound, "Wallet not found")
		case errors.Is(err, store.ErrDuplicateIdempotencyKey):
			h.writeError(w, http.StatusConflict, "Duplicate transaction detected")
		default:
			log.Printf("level=error component=api msg=\"transaction creation failed\" user_id=%s err=%v", userID, err)
			h.writeError(w, http.StatusInternalServerError, "Failed to create transaction")
		}
		return
	}

	h.writeJSON(w, http.StatusCreated, buildTransactionResponse(transaction))
}

// ListTransactionsHandler returns the authenticated user's transaction
// history, newest first.
func (h *LedgerHandlers) ListTransactionsHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserID(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	transactions, err := h.service.ListTransactions(r.Context(), userID)
	if err != nil {
		log.Printf("level=error component=api msg=\"transaction listing failed\" user_id=%s err=%v", userID, err)
		h.writeError(w, http.StatusInternalServerError, "Failed to list transactions")
		return
	}

	out := make([]transactionResponse, 0, len(transactions))
	for i := range transactions {
		out = append(out, buildTransactionResponse(&transactions[i]))
	}
	h.writeJSON(w, http.StatusOK, out)
}

// writeJSON is a helper for writing JSON responses.
func (h *LedgerHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError is a helper for writing JSON error responses.
func (h *LedgerHandlers) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
