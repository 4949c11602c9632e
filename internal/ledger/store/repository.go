/**
 * @description
 * This file defines the storage interface for the ledger-service and the
 * typed errors it reports. The application layer depends on this interface
 * only; the PostgreSQL implementation lives in postgres_repository.go.
 */
package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/paylane/wallet-platform/internal/ledger/domain"
)

var (
	ErrWalletNotFound          = errors.New("wallet not found")
	ErrWalletExists            = errors.New("wallet already exists for this user")
	ErrInsufficientFunds       = errors.New("insufficient funds")
	ErrDuplicateIdempotencyKey = errors.New("duplicate idempotency key")
)

// ApplyTransactionParams carries one balance mutation into the store.
type ApplyTransactionParams struct {
	UserID         uuid.UUID
	Amount         decimal.Decimal
	Type           domain.TransactionType
	IdempotencyKey string
}

// Repository is the ledger-service's storage contract. ApplyTransaction must
// run its idempotency check, balance check, balance update and transaction
// insert as one atomic unit; the other methods are single reads/writes.
type Repository interface {
	CreateWallet(ctx context.Context, userID uuid.UUID) (*domain.Wallet, error)
	GetWalletByUserID(ctx context.Context, userID uuid.UUID) (*domain.Wallet, error)
	ApplyTransaction(ctx context.Context, params ApplyTransactionParams) (*domain.Transaction, error)
	ListTransactionsByUserID(ctx context.Context, userID uuid.UUID) ([]domain.Transaction, error)
}
