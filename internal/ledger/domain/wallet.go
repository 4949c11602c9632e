/**
 * @description
 * Domain models for the ledger-service: the wallet (one per user, holds the
 * current balance) and the transaction (an immutable record of one balance
 * change). Balances and amounts are fixed-precision decimals so repeated
 * credit/debit application never accumulates binary rounding drift.
 *
 * @dependencies
 * - github.com/google/uuid: Identifiers.
 * - github.com/shopspring/decimal: Fixed-precision money values.
 */
package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionType is the signed effect of a transaction on the balance.
type TransactionType string

const (
	TransactionTypeCredit TransactionType = "CREDIT"
	TransactionTypeDebit  TransactionType = "DEBIT"
)

// Valid reports whether t is one of the two known effect types.
func (t TransactionType) Valid() bool {
	return t == TransactionTypeCredit || t == TransactionTypeDebit
}

// Wallet holds the balance owned by exactly one user. The balance is never
// negative at any committed state.
type Wallet struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Balance   decimal.Decimal
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Transaction is an append-only record of a single balance change. The
// idempotency key, when present, is unique across all transactions; an empty
// key means the caller requested no duplicate protection.
type Transaction struct {
	ID             uuid.UUID
	UserID         uuid.UUID
	Amount         decimal.Decimal
	Type           TransactionType
	IdempotencyKey string
	CreatedAt      time.Time
}
