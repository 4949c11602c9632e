/**
 * @description
 * This package provides a client for the ledger-service's privileged
 * wallet-creation endpoint. Each call mints a fresh internal token scoped to
 * the target user, so a captured credential is useful for minutes, not
 * sessions. The call blocks for at most the client timeout; any failure
 * (network error, non-2xx status, bad token) is returned to the caller,
 * which treats it as a saga failure and compensates.
 *
 * @dependencies
 * - net/http: Standard HTTP client.
 * - pkg/token: Internal token minting.
 */
package walletclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/paylane/wallet-platform/pkg/token"
)

// CallerService is the service name carried in minted internal tokens.
const CallerService = "identity-service"

// Client is a client for the ledger-service's internal API.
type Client struct {
	baseURL        string
	internalSecret string
	httpClient     *http.Client
}

// NewClient creates a new ledger-service client.
func NewClient(baseURL, internalSecret string) *Client {
	return &Client{
		baseURL:        strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		internalSecret: internalSecret,
		httpClient:     &http.Client{Timeout: 10 * time.Second},
	}
}

type createWalletRequest struct {
	UserID string `json:"userId"`
}

// CreateWalletResponse is the wallet state returned by the ledger-service.
type CreateWalletResponse struct {
	UserID    uuid.UUID `json:"userId"`
	Balance   string    `json:"balance"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// CreateWallet calls the ledger-service to provision a wallet for userID.
func (c *Client) CreateWallet(ctx context.Context, userID uuid.UUID) (*CreateWalletResponse, error) {
	if c.baseURL == "" {
		return nil, fmt.Errorf("wallet service base url is empty")
	}

	bearer, err := token.MintServiceToken(c.internalSecret, CallerService, userID, token.ServiceTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("mint internal token: %w", err)
	}

	body, err := json.Marshal(createWalletRequest{UserID: userID.String()})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/wallet/internal/create", bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+bearer)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call wallet service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("wallet service returned status %d", resp.StatusCode)
	}

	var wallet CreateWalletResponse
	if err := json.NewDecoder(resp.Body).Decode(&wallet); err != nil {
		return nil, fmt.Errorf("decode wallet response: %w", err)
	}
	return &wallet, nil
}
