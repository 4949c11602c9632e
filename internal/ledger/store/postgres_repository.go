/**
 * @description
 * PostgreSQL implementation of the ledger-service Repository. This is where
 * the balance invariants are actually enforced:
 *
 * - ApplyTransaction runs inside a single database transaction. The wallet
 *   row is locked with SELECT ... FOR UPDATE so two concurrent debits cannot
 *   both observe a sufficient balance and overdraw the wallet.
 * - The idempotency key has a unique index. The in-transaction existence
 *   check is only a fast path; the commit-time unique violation is what
 *   actually guarantees exactly-once application when two requests race
 *   with the same key. The race loser's 23505 is mapped to
 *   ErrDuplicateIdempotencyKey.
 * - Wallet ownership has a unique index, so a second create attempt fails
 *   with ErrWalletExists instead of being silently accepted.
 *
 * @dependencies
 * - github.com/jackc/pgx/v5: The PostgreSQL driver.
 * - github.com/shopspring/decimal: Balance and amount arithmetic.
 */
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/paylane/wallet-platform/internal/ledger/domain"
)

// PostgresRepository is the concrete Repository backed by a pgx pool.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a new instance of PostgresRepository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// EnsureSchema creates the ledger tables if they do not exist yet. It is
// idempotent and safe to run at every startup.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	_, err := r.db.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS wallets (
            id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
            user_id UUID NOT NULL UNIQUE,
            balance NUMERIC(20, 4) NOT NULL DEFAULT 0 CHECK (balance >= 0),
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        );
        CREATE TABLE IF NOT EXISTS transactions (
            id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
            user_id UUID NOT NULL,
            amount NUMERIC(20, 4) NOT NULL CHECK (amount > 0),
            type TEXT NOT NULL CHECK (type IN ('CREDIT', 'DEBIT')),
            idempotency_key TEXT UNIQUE,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        );
        CREATE INDEX IF NOT EXISTS idx_transactions_user_created
            ON transactions (user_id, created_at DESC);
    `)
	if err != nil {
		return fmt.Errorf("ensure ledger schema: %w", err)
	}
	return nil
}

// CreateWallet inserts a zero-balance wallet for the given owner.
func (r *PostgresRepository) CreateWallet(ctx context.Context, userID uuid.UUID) (*domain.Wallet, error) {
	var (
		wallet     domain.Wallet
		balanceRaw string
	)
	query := `
        INSERT INTO wallets (user_id, balance)
        VALUES ($1, 0)
        RETURNING id, user_id, balance::text, created_at, updated_at
    `
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&wallet.ID, &wallet.UserID, &balanceRaw, &wallet.CreatedAt, &wallet.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrWalletExists
		}
		return nil, fmt.Errorf("create wallet: %w", err)
	}

	wallet.Balance, err = decimal.NewFromString(balanceRaw)
	if err != nil {
		return nil, fmt.Errorf("create wallet: parse balance: %w", err)
	}
	return &wallet, nil
}

// GetWalletByUserID fetches the wallet owned by userID.
func (r *PostgresRepository) GetWalletByUserID(ctx context.Context, userID uuid.UUID) (*domain.Wallet, error) {
	var (
		wallet     domain.Wallet
		balanceRaw string
	)
	query := `SELECT id, user_id, balance::text, created_at, updated_at FROM wallets WHERE user_id = $1`
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&wallet.ID, &wallet.UserID, &balanceRaw, &wallet.CreatedAt, &wallet.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrWalletNotFound
		}
		return nil, fmt.Errorf("get wallet: %w", err)
	}

	wallet.Balance, err = decimal.NewFromString(balanceRaw)
	if err != nil {
		return nil, fmt.Errorf("get wallet: parse balance: %w", err)
	}
	return &wallet, nil
}

// ApplyTransaction atomically adjusts a wallet balance and records the
// transaction. Either both happen or neither does.
func (r *PostgresRepository) ApplyTransaction(ctx context.Context, params ApplyTransactionParams) (*domain.Transaction, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("apply transaction: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	// Fast-path duplicate check inside the transaction. The unique index on
	// idempotency_key remains the authoritative guard: a concurrent request
	// that passes this check still fails at insert time with 23505.
	if params.IdempotencyKey != "" {
		var exists bool
		err = tx.QueryRow(ctx,
			"SELECT EXISTS (SELECT 1 FROM transactions WHERE idempotency_key = $1)",
			params.IdempotencyKey,
		).Scan(&exists)
		if err != nil {
			return nil, fmt.Errorf("apply transaction: key check: %w", err)
		}
		if exists {
			return nil, ErrDuplicateIdempotencyKey
		}
	}

	// Lock the wallet row so the balance read, the debit check and the
	// update all observe the same committed state.
	var balanceRaw string
	err = tx.QueryRow(ctx,
		"SELECT balance::text FROM wallets WHERE user_id = $1 FOR UPDATE",
		params.UserID,
	).Scan(&balanceRaw)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrWalletNotFound
		}
		return nil, fmt.Errorf("apply transaction: lock wallet: %w", err)
	}

	balance, err := decimal.NewFromString(balanceRaw)
	if err != nil {
		return nil, fmt.Errorf("apply transaction: parse balance: %w", err)
	}

	delta := params.Amount
	if params.Type == domain.TransactionTypeDebit {
		if balance.LessThan(params.Amount) {
			return nil, ErrInsufficientFunds
		}
		delta = params.Amount.Neg()
	}

	_, err = tx.Exec(ctx,
		"UPDATE wallets SET balance = balance + $1, updated_at = NOW() WHERE user_id = $2",
		delta.String(), params.UserID,
	)
	if err != nil {
		return nil, fmt.Errorf("apply transaction: update balance: %w", err)
	}

	// An empty key is stored as NULL so it never collides in the unique index.
	var key *string
	if params.IdempotencyKey != "" {
		key = &params.IdempotencyKey
	}

	record := domain.Transaction{
		UserID:         params.UserID,
		Amount:         params.Amount,
		Type:           params.Type,
		IdempotencyKey: params.IdempotencyKey,
	}
	err = tx.QueryRow(ctx, `
        INSERT INTO transactions (user_id, amount, type, idempotency_key)
        VALUES ($1, $2, $3, $4)
        RETURNING id, created_at
    `, params.UserID, params.Amount.String(), string(params.Type), key).Scan(&record.ID, &record.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			// Race loser: another transaction committed the same key first.
			return nil, ErrDuplicateIdempotencyKey
		}
		return nil, fmt.Errorf("apply transaction: insert: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("apply transaction: commit: %w", err)
	}
	return &record, nil
}

// ListTransactionsByUserID returns all transactions for a user, newest first.
func (r *PostgresRepository) ListTransactionsByUserID(ctx context.Context, userID uuid.UUID) ([]domain.Transaction, error) {
	rows, err := r.db.Query(ctx, `
        SELECT id, user_id, amount::text, type, COALESCE(idempotency_key, ''), created_at
        FROM transactions
        WHERE user_id = $1
        ORDER BY created_at DESC
    `, userID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	transactions := []domain.Transaction{}
	for rows.Next() {
		var (
			t         domain.Transaction
			amountRaw string
			typeRaw   string
		)
		if err := rows.Scan(&t.ID, &t.UserID, &amountRaw, &typeRaw, &t.IdempotencyKey, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("list transactions: scan: %w", err)
		}
		t.Amount, err = decimal.NewFromString(amountRaw)
		if err != nil {
			return nil, fmt.Errorf("list transactions: parse amount: %w", err)
		}
		t.Type = domain.TransactionType(typeRaw)
		transactions = append(transactions, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return transactions, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
