package app

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/paylane/wallet-platform/internal/identity/domain"
	"github.com/paylane/wallet-platform/internal/identity/store"
	"github.com/paylane/wallet-platform/pkg/walletclient"
)

type userRepoStub struct {
	store.UserRepository

	usersByEmail map[string]*domain.User

	createdUser   *domain.User
	createErr     error
	deleteCalled  bool
	deleteErr     error
	deletedUserID uuid.UUID
}

func (s *userRepoStub) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	if u, ok := s.usersByEmail[email]; ok {
		return u, nil
	}
	return nil, store.ErrUserNotFound
}

func (s *userRepoStub) CreateUser(ctx context.Context, email, passwordHash, firstName, lastName string) (*domain.User, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	s.createdUser = &domain.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: passwordHash,
		FirstName:    firstName,
		LastName:     lastName,
	}
	return s.createdUser, nil
}

func (s *userRepoStub) DeleteUser(ctx context.Context, userID uuid.UUID) error {
	s.deleteCalled = true
	s.deletedUserID = userID
	return s.deleteErr
}

type walletClientStub struct {
	err    error
	called bool
	userID uuid.UUID
}

func (s *walletClientStub) CreateWallet(ctx context.Context, userID uuid.UUID) (*walletclient.CreateWalletResponse, error) {
	s.called = true
	s.userID = userID
	if s.err != nil {
		return nil, s.err
	}
	return &walletclient.CreateWalletResponse{UserID: userID, Balance: "0"}, nil
}

func TestRegisterProvisionsUserAndWallet(t *testing.T) {
	repo := &userRepoStub{}
	wallets := &walletClientStub{}
	svc := NewService(repo, wallets, nil, "test-secret")

	session, err := svc.Register(context.Background(), "alice@example.com", "sup3rsecret", "Alice", "Doe")
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}

	if repo.createdUser == nil {
		t.Fatal("expected user to be created")
	}
	if !wallets.called {
		t.Fatal("expected wallet creation to be called")
	}
	if wallets.userID != repo.createdUser.ID {
		t.Fatalf("wallet created for %s, user is %s", wallets.userID, repo.createdUser.ID)
	}
	if repo.deleteCalled {
		t.Fatal("compensation must not run on success")
	}
	if session.AccessToken == "" {
		t.Fatal("expected a session token")
	}
	if session.User.Email != "alice@example.com" {
		t.Fatalf("unexpected profile email %q", session.User.Email)
	}
	if repo.createdUser.PasswordHash == "sup3rsecret" {
		t.Fatal("password must be stored hashed")
	}
}

func TestRegisterCompensatesWhenWalletCreationFails(t *testing.T) {
	repo := &userRepoStub{}
	wallets := &walletClientStub{err: errors.New("connection refused")}
	svc := NewService(repo, wallets, nil, "test-secret")

	_, err := svc.Register(context.Background(), "alice@example.com", "sup3rsecret", "Alice", "Doe")
	if !errors.Is(err, ErrProvisioningFailed) {
		t.Fatalf("expected ErrProvisioningFailed, got %v", err)
	}

	if !repo.deleteCalled {
		t.Fatal("expected compensating delete to run")
	}
	if repo.deletedUserID != repo.createdUser.ID {
		t.Fatalf("deleted %s, created %s", repo.deletedUserID, repo.createdUser.ID)
	}
}

func TestRegisterSurfacesCoarseFailureWhenCompensationAlsoFails(t *testing.T) {
	repo := &userRepoStub{deleteErr: errors.New("database down")}
	wallets := &walletClientStub{err: errors.New("connection refused")}
	svc := NewService(repo, wallets, nil, "test-secret")

	_, err := svc.Register(context.Background(), "alice@example.com", "sup3rsecret", "Alice", "Doe")
	if !errors.Is(err, ErrProvisioningFailed) {
		t.Fatalf("expected ErrProvisioningFailed, got %v", err)
	}
	if !repo.deleteCalled {
		t.Fatal("expected compensating delete to be attempted")
	}
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	existing := &domain.User{ID: uuid.New(), Email: "alice@example.com"}
	repo := &userRepoStub{usersByEmail: map[string]*domain.User{"alice@example.com": existing}}
	wallets := &walletClientStub{}
	svc := NewService(repo, wallets, nil, "test-secret")

	_, err := svc.Register(context.Background(), "alice@example.com", "sup3rsecret", "Alice", "Doe")
	if !errors.Is(err, store.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
	if wallets.called {
		t.Fatal("wallet creation must not run for a duplicate email")
	}
}

func TestLogin(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("sup3rsecret"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	existing := &domain.User{ID: uuid.New(), Email: "alice@example.com", PasswordHash: string(hash)}
	repo := &userRepoStub{usersByEmail: map[string]*domain.User{"alice@example.com": existing}}
	svc := NewService(repo, &walletClientStub{}, nil, "test-secret")

	tests := []struct {
		name     string
		email    string
		password string
		wantErr  error
	}{
		{name: "valid credentials", email: "alice@example.com", password: "sup3rsecret"},
		{name: "wrong password", email: "alice@example.com", password: "wrong", wantErr: ErrInvalidCredentials},
		{name: "unknown email", email: "bob@example.com", password: "sup3rsecret", wantErr: ErrInvalidCredentials},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session, err := svc.Login(context.Background(), tt.email, tt.password)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if session.AccessToken == "" {
				t.Fatal("expected a session token")
			}
		})
	}
}
