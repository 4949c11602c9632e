package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/paylane/wallet-platform/internal/identity/app"
	"github.com/paylane/wallet-platform/internal/identity/domain"
	"github.com/paylane/wallet-platform/internal/identity/store"
	"github.com/paylane/wallet-platform/pkg/token"
	"github.com/paylane/wallet-platform/pkg/walletclient"
)

const testExternalSecret = "external-test-secret"

// memoryUserRepo is an in-memory UserRepository for handler tests.
type memoryUserRepo struct {
	users map[uuid.UUID]*domain.User
}

func newMemoryUserRepo() *memoryUserRepo {
	return &memoryUserRepo{users: map[uuid.UUID]*domain.User{}}
}

func (m *memoryUserRepo) CreateUser(ctx context.Context, email, passwordHash, firstName, lastName string) (*domain.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return nil, store.ErrEmailTaken
		}
	}
	u := &domain.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: passwordHash,
		FirstName:    firstName,
		LastName:     lastName,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	m.users[u.ID] = u
	return u, nil
}

func (m *memoryUserRepo) DeleteUser(ctx context.Context, userID uuid.UUID) error {
	if _, ok := m.users[userID]; !ok {
		return store.ErrUserNotFound
	}
	delete(m.users, userID)
	return nil
}

func (m *memoryUserRepo) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, store.ErrUserNotFound
}

func (m *memoryUserRepo) FindByID(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	u, ok := m.users[userID]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	return u, nil
}

func (m *memoryUserRepo) UpdateProfile(ctx context.Context, userID uuid.UUID, params store.UpdateProfileParams) (*domain.User, error) {
	u, ok := m.users[userID]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	if params.FirstName != nil {
		u.FirstName = *params.FirstName
	}
	if params.LastName != nil {
		u.LastName = *params.LastName
	}
	u.UpdatedAt = time.Now()
	return u, nil
}

type walletClientStub struct {
	err error
}

func (s *walletClientStub) CreateWallet(ctx context.Context, userID uuid.UUID) (*walletclient.CreateWalletResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &walletclient.CreateWalletResponse{UserID: userID, Balance: "0"}, nil
}

func newTestRouter(t *testing.T, repo store.UserRepository, wallets app.WalletCreator) http.Handler {
	t.Helper()
	service := app.NewService(repo, wallets, nil, testExternalSecret)
	handlers := NewIdentityHandlers(service)
	return IdentityRoutes(handlers, testExternalSecret)
}

func doRequest(router http.Handler, method, path, auth, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestRegisterValidation(t *testing.T) {
	router := newTestRouter(t, newMemoryUserRepo(), &walletClientStub{})

	tests := []struct {
		name string
		body string
	}{
		{name: "bad json", body: `{`},
		{name: "bad email", body: `{"email":"nope","password":"sup3rsecret","first_name":"A","last_name":"B"}`},
		{name: "short password", body: `{"email":"a@example.com","password":"short","first_name":"A","last_name":"B"}`},
		{name: "missing names", body: `{"email":"a@example.com","password":"sup3rsecret","first_name":"","last_name":""}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(router, http.MethodPost, "/auth/register", "", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body)
			}
		})
	}
}

func TestRegisterSuccessReturnsSession(t *testing.T) {
	router := newTestRouter(t, newMemoryUserRepo(), &walletClientStub{})

	rec := doRequest(router, http.MethodPost, "/auth/register", "",
		`{"email":"alice@example.com","password":"sup3rsecret","first_name":"Alice","last_name":"Doe"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body)
	}

	var resp struct {
		AccessToken string         `json:"access_token"`
		User        domain.Profile `json:"user"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.AccessToken == "" {
		t.Fatal("expected an access token")
	}
	if resp.User.Email != "alice@example.com" {
		t.Fatalf("unexpected profile email %q", resp.User.Email)
	}

	// The returned token must pass the external strategy.
	claims, err := token.VerifyUserToken(testExternalSecret, resp.AccessToken)
	if err != nil {
		t.Fatalf("session token failed verification: %v", err)
	}
	if claims.UserID != resp.User.ID {
		t.Fatalf("token subject %s does not match profile id %s", claims.UserID, resp.User.ID)
	}
}

func TestRegisterDuplicateEmailConflicts(t *testing.T) {
	router := newTestRouter(t, newMemoryUserRepo(), &walletClientStub{})
	body := `{"email":"alice@example.com","password":"sup3rsecret","first_name":"Alice","last_name":"Doe"}`

	if rec := doRequest(router, http.MethodPost, "/auth/register", "", body); rec.Code != http.StatusCreated {
		t.Fatalf("first register: expected 201, got %d", rec.Code)
	}
	if rec := doRequest(router, http.MethodPost, "/auth/register", "", body); rec.Code != http.StatusConflict {
		t.Fatalf("second register: expected 409, got %d", rec.Code)
	}
}

func TestRegisterWalletOutageRollsBackUser(t *testing.T) {
	repo := newMemoryUserRepo()
	router := newTestRouter(t, repo, &walletClientStub{err: errors.New("connection refused")})

	rec := doRequest(router, http.MethodPost, "/auth/register", "",
		`{"email":"alice@example.com","password":"sup3rsecret","first_name":"Alice","last_name":"Doe"}`)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d: %s", rec.Code, rec.Body)
	}

	// Compensation must have removed the user record.
	if _, err := repo.FindByEmail(context.Background(), "alice@example.com"); !errors.Is(err, store.ErrUserNotFound) {
		t.Fatalf("expected the user to be rolled back, got %v", err)
	}
}

func TestLoginStatuses(t *testing.T) {
	repo := newMemoryUserRepo()
	hash, err := bcrypt.GenerateFromPassword([]byte("sup3rsecret"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	if _, err := repo.CreateUser(context.Background(), "alice@example.com", string(hash), "Alice", "Doe"); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	router := newTestRouter(t, repo, &walletClientStub{})

	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{name: "valid", body: `{"email":"alice@example.com","password":"sup3rsecret"}`, wantStatus: http.StatusOK},
		{name: "wrong password", body: `{"email":"alice@example.com","password":"wrong"}`, wantStatus: http.StatusUnauthorized},
		{name: "unknown email", body: `{"email":"bob@example.com","password":"sup3rsecret"}`, wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(router, http.MethodPost, "/auth/login", "", tt.body)
			if rec.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d: %s", tt.wantStatus, rec.Code, rec.Body)
			}
		})
	}
}

func TestProfileRoutes(t *testing.T) {
	repo := newMemoryUserRepo()
	user, err := repo.CreateUser(context.Background(), "alice@example.com", "hash", "Alice", "Doe")
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	router := newTestRouter(t, repo, &walletClientStub{})

	signed, err := token.MintUserToken(testExternalSecret, user.ID, user.Email, time.Hour)
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	auth := "Bearer " + signed

	if rec := doRequest(router, http.MethodGet, "/user/profile", "", ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("no token: expected 401, got %d", rec.Code)
	}

	rec := doRequest(router, http.MethodGet, "/user/profile", auth, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body)
	}

	rec = doRequest(router, http.MethodPut, "/user/profile", auth, `{"first_name":"Alicia"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("update: expected 200, got %d: %s", rec.Code, rec.Body)
	}

	var profile domain.Profile
	if err := json.Unmarshal(rec.Body.Bytes(), &profile); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if profile.FirstName != "Alicia" {
		t.Fatalf("expected first name Alicia, got %q", profile.FirstName)
	}
	if profile.LastName != "Doe" {
		t.Fatalf("last name must be unchanged, got %q", profile.LastName)
	}
}

func TestProfileRejectsTokenFromOtherSecret(t *testing.T) {
	router := newTestRouter(t, newMemoryUserRepo(), &walletClientStub{})

	signed, err := token.MintUserToken("some-other-secret", uuid.New(), "alice@example.com", time.Hour)
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}

	rec := doRequest(router, http.MethodGet, "/user/profile", "Bearer "+signed, "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}
