/**
 * @description
 * This file contains the core business logic for the identity-service: the
 * registration saga, login, and profile management.
 *
 * The registration saga is the failure-sensitive part. User creation and
 * wallet creation live in two different services, so there is no single
 * transaction to lean on. The flow is create-user, then call the
 * ledger-service; if the remote step fails for any reason the just-created
 * user is deleted again. If that compensating delete also fails, the system
 * holds a user without a wallet. That state is logged at fatal level for
 * out-of-band remediation and is never retried automatically.
 *
 * @dependencies
 * - golang.org/x/crypto/bcrypt: Credential hashing.
 * - internal/identity/store: User persistence.
 * - pkg/token: External session token minting.
 * - pkg/rabbitmq: Best-effort event publishing.
 */
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/paylane/wallet-platform/internal/identity/domain"
	"github.com/paylane/wallet-platform/internal/identity/store"
	"github.com/paylane/wallet-platform/pkg/rabbitmq"
	"github.com/paylane/wallet-platform/pkg/token"
	"github.com/paylane/wallet-platform/pkg/walletclient"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrProvisioningFailed = errors.New("failed to provision wallet for user")
)

const bcryptCost = 10

// WalletCreator is the slice of the ledger-service client the saga needs.
type WalletCreator interface {
	CreateWallet(ctx context.Context, userID uuid.UUID) (*walletclient.CreateWalletResponse, error)
}

// Session is the result of a successful registration or login.
type Session struct {
	AccessToken string
	User        domain.Profile
}

// Service provides the core business logic for identity and provisioning.
type Service struct {
	repo           store.UserRepository
	walletClient   WalletCreator
	eventProducer  rabbitmq.Publisher
	externalSecret string
}

// NewService creates a new identity service instance. The producer may be
// nil; it degrades to a no-op.
func NewService(repo store.UserRepository, walletClient WalletCreator, producer rabbitmq.Publisher, externalSecret string) *Service {
	if producer == nil {
		producer = &rabbitmq.EventProducerFallback{}
	}
	return &Service{
		repo:           repo,
		walletClient:   walletClient,
		eventProducer:  producer,
		externalSecret: externalSecret,
	}
}

// Register runs the provisioning saga: create the user, create the wallet in
// the ledger-service, and compensate by deleting the user if the remote step
// fails. On success it returns a session token and the public profile.
func (s *Service) Register(ctx context.Context, email, password, firstName, lastName string) (*Session, error) {
	// Fast-path duplicate check; the unique email constraint backstops races.
	if _, err := s.repo.FindByEmail(ctx, email); err == nil {
		return nil, store.ErrEmailTaken
	} else if !errors.Is(err, store.ErrUserNotFound) {
		return nil, fmt.Errorf("register: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("register: hash password: %w", err)
	}

	user, err := s.repo.CreateUser(ctx, email, string(hash), firstName, lastName)
	if err != nil {
		return nil, err
	}

	if _, err := s.walletClient.CreateWallet(ctx, user.ID); err != nil {
		log.Printf("level=error component=saga msg=\"wallet creation failed; compensating\" user_id=%s err=%v", user.ID, err)

		if delErr := s.repo.DeleteUser(ctx, user.ID); delErr != nil {
			// The worst state this system can reach: a user exists without a
			// wallet and nothing will repair it automatically.
			log.Printf("level=fatal component=saga msg=\"compensation failed; user exists without wallet\" user_id=%s wallet_err=%v delete_err=%v",
				user.ID, err, delErr)
		}
		return nil, ErrProvisioningFailed
	}

	accessToken, err := token.MintUserToken(s.externalSecret, user.ID, user.Email, token.UserTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("register: mint session token: %w", err)
	}

	if err := s.eventProducer.Publish(ctx, "identity_events", "user.registered", rabbitmq.UserRegisteredEvent{
		UserID:    user.ID,
		Email:     user.Email,
		Timestamp: time.Now(),
	}); err != nil {
		log.Printf("level=warn component=saga msg=\"failed to publish user.registered\" user_id=%s err=%v", user.ID, err)
	}

	return &Session{AccessToken: accessToken, User: user.PublicProfile()}, nil
}

// Login verifies credentials and mints a session token. Unknown email and
// wrong password are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("login: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	accessToken, err := token.MintUserToken(s.externalSecret, user.ID, user.Email, token.UserTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("login: mint session token: %w", err)
	}

	return &Session{AccessToken: accessToken, User: user.PublicProfile()}, nil
}

// GetProfile returns the public profile for userID.
func (s *Service) GetProfile(ctx context.Context, userID uuid.UUID) (*domain.Profile, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	profile := user.PublicProfile()
	return &profile, nil
}

// UpdateProfile applies a partial profile update and returns the new state.
func (s *Service) UpdateProfile(ctx context.Context, userID uuid.UUID, firstName, lastName *string) (*domain.Profile, error) {
	user, err := s.repo.UpdateProfile(ctx, userID, store.UpdateProfileParams{
		FirstName: firstName,
		LastName:  lastName,
	})
	if err != nil {
		return nil, err
	}
	profile := user.PublicProfile()
	return &profile, nil
}
