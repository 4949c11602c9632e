package walletclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/paylane/wallet-platform/pkg/token"
)

const testInternalSecret = "internal-test-secret"

func TestCreateWalletSendsScopedServiceToken(t *testing.T) {
	userID := uuid.New()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/wallet/internal/create" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}

		auth := r.Header.Get("Authorization")
		if len(auth) < 8 || auth[:7] != "Bearer " {
			t.Errorf("missing bearer token, got %q", auth)
		}
		claims, err := token.VerifyServiceToken(testInternalSecret, auth[7:])
		if err != nil {
			t.Errorf("token failed internal verification: %v", err)
		} else {
			if claims.Service != CallerService {
				t.Errorf("expected svc claim %q, got %q", CallerService, claims.Service)
			}
			if claims.TargetUserID != userID {
				t.Errorf("expected target user %s, got %s", userID, claims.TargetUserID)
			}
		}

		var body struct {
			UserID string `json:"userId"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request body: %v", err)
		}
		if body.UserID != userID.String() {
			t.Errorf("expected userId %s in body, got %q", userID, body.UserID)
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(CreateWalletResponse{
			UserID:    userID,
			Balance:   "0",
			CreatedAt: time.Now(),
			UpdatedAt: time.Now(),
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, testInternalSecret)
	wallet, err := client.CreateWallet(context.Background(), userID)
	if err != nil {
		t.Fatalf("CreateWallet returned error: %v", err)
	}
	if wallet.UserID != userID {
		t.Fatalf("expected wallet for %s, got %s", userID, wallet.UserID)
	}
	if wallet.Balance != "0" {
		t.Fatalf("expected opening balance 0, got %q", wallet.Balance)
	}
}

func TestCreateWalletNonCreatedStatusIsAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	}))
	defer server.Close()

	client := NewClient(server.URL, testInternalSecret)
	if _, err := client.CreateWallet(context.Background(), uuid.New()); err == nil {
		t.Fatal("expected an error for a 409 response")
	}
}

func TestCreateWalletEmptyBaseURL(t *testing.T) {
	client := NewClient("", testInternalSecret)
	if _, err := client.CreateWallet(context.Background(), uuid.New()); err == nil {
		t.Fatal("expected an error when the base URL is empty")
	}
}
