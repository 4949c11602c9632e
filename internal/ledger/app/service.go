/**
 * @description
 * This file contains the core business logic for the ledger-service. The
 * `Service` struct orchestrates wallet creation and balance mutation,
 * coordinating between the database repository, the rate limiter and the
 * message broker.
 *
 * Key features:
 * - Validates amounts and effect types before any storage work happens.
 * - Delegates the atomic apply (idempotency check + balance check + update +
 *   insert) to the repository, which runs it as one database transaction.
 * - Publishes a wallet.transaction.created event after commit, best-effort.
 *
 * @dependencies
 * - internal/ledger/domain, internal/ledger/store: Models and data access.
 * - pkg/rabbitmq: Event publishing.
 * - github.com/shopspring/decimal: Amount validation and arithmetic.
 */
package app

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/paylane/wallet-platform/internal/ledger/domain"
	"github.com/paylane/wallet-platform/internal/ledger/store"
	"github.com/paylane/wallet-platform/pkg/rabbitmq"
)

var (
	ErrInvalidAmount          = errors.New("amount must be greater than zero")
	ErrInvalidTransactionType = errors.New("transaction type must be CREDIT or DEBIT")
)

// Service provides the core business logic for the ledger.
type Service struct {
	repo          store.Repository
	eventProducer rabbitmq.Publisher
	rateLimiter   *RedisTransactionRateLimiter
	rateLimit     int
}

// NewService creates a new ledger service instance. The producer and rate
// limiter may be nil; both degrade to no-ops.
func NewService(repo store.Repository, producer rabbitmq.Publisher, limiter *RedisTransactionRateLimiter, rateLimitPerMinute int) *Service {
	if producer == nil {
		producer = &rabbitmq.EventProducerFallback{}
	}
	return &Service{
		repo:          repo,
		eventProducer: producer,
		rateLimiter:   limiter,
		rateLimit:     rateLimitPerMinute,
	}
}

// CreateWallet provisions a zero-balance wallet for the given owner. It is
// reached only through the internal-trust route.
func (s *Service) CreateWallet(ctx context.Context, userID uuid.UUID) (*domain.Wallet, error) {
	wallet, err := s.repo.CreateWallet(ctx, userID)
	if err != nil {
		return nil, err
	}
	log.Printf("level=info component=ledger msg=\"wallet created\" user_id=%s wallet_id=%s", userID, wallet.ID)
	return wallet, nil
}

// GetBalance returns the wallet for userID, including its timestamps.
func (s *Service) GetBalance(ctx context.Context, userID uuid.UUID) (*domain.Wallet, error) {
	return s.repo.GetWalletByUserID(ctx, userID)
}

// ConsumeTransactionRateLimit counts one transaction attempt against the
// per-user window. It returns retry-after seconds when the limit is hit.
// With no limiter configured it always allows.
func (s *Service) ConsumeTransactionRateLimit(ctx context.Context, userID uuid.UUID) (allowed bool, retryAfterSeconds int, err error) {
	if s.rateLimiter == nil || s.rateLimit <= 0 {
		return true, 0, nil
	}
	count, retryAfter, err := s.rateLimiter.ConsumeRateLimit(ctx, "transactions", userID.String(), s.rateLimit, time.Minute)
	if err != nil {
		// A broken limiter must not take the ledger down with it.
		log.Printf("level=warn component=ledger msg=\"rate limiter unavailable; allowing request\" err=%v", err)
		return true, 0, nil
	}
	if count > s.rateLimit {
		return false, retryAfter, nil
	}
	return true, 0, nil
}

// CreateTransaction applies one balance change to the caller's wallet. The
// idempotency key arrives already normalized (header wins over body); an
// empty key means the caller requested no duplicate protection.
func (s *Service) CreateTransaction(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, txType domain.TransactionType, idempotencyKey string) (*domain.Transaction, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if !txType.Valid() {
		return nil, ErrInvalidTransactionType
	}

	transaction, err := s.repo.ApplyTransaction(ctx, store.ApplyTransactionParams{
		UserID:         userID,
		Amount:         amount,
		Type:           txType,
		IdempotencyKey: idempotencyKey,
	})
	if err != nil {
		return nil, err
	}

	log.Printf("level=info component=ledger msg=\"transaction committed\" user_id=%s transaction_id=%s type=%s amount=%s",
		userID, transaction.ID, transaction.Type, transaction.Amount)

	// Best-effort notification; the transaction is already committed and a
	// broker outage must not surface to the caller.
	if err := s.eventProducer.Publish(ctx, "wallet_events", "wallet.transaction.created", rabbitmq.TransactionCreatedEvent{
		TransactionID: transaction.ID,
		UserID:        transaction.UserID,
		Amount:        transaction.Amount.String(),
		Type:          string(transaction.Type),
		Timestamp:     transaction.CreatedAt,
	}); err != nil {
		log.Printf("level=warn component=ledger msg=\"failed to publish transaction event\" transaction_id=%s err=%v", transaction.ID, err)
	}

	return transaction, nil
}

// ListTransactions returns the caller's transactions, newest first. An empty
// history is a valid result, never an error.
func (s *Service) ListTransactions(ctx context.Context, userID uuid.UUID) ([]domain.Transaction, error) {
	return s.repo.ListTransactionsByUserID(ctx, userID)
}
