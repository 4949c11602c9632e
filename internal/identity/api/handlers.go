/**
 * @description
 * HTTP handlers for the identity-service: registration, login, and profile
 * management. Handlers validate input, call the application service, and map
 * typed errors to HTTP status codes at this boundary only. A saga failure
 * deliberately surfaces as one coarse 500; the caller learns nothing about
 * which half of the provisioning broke.
 *
 * @dependencies
 * - internal/identity/app, internal/identity/store: Service logic and errors.
 */
package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"net/mail"
	"strings"

	"github.com/paylane/wallet-platform/internal/identity/app"
	"github.com/paylane/wallet-platform/internal/identity/domain"
	"github.com/paylane/wallet-platform/internal/identity/store"
)

const minPasswordLength = 8

// IdentityHandlers holds the application service that handlers will use.
type IdentityHandlers struct {
	service *app.Service
}

// NewIdentityHandlers creates a new instance of IdentityHandlers.
func NewIdentityHandlers(service *app.Service) *IdentityHandlers {
	return &IdentityHandlers{service: service}
}

type registerRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type updateProfileRequest struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
}

type sessionResponse struct {
	AccessToken string         `json:"access_token"`
	User        domain.Profile `json:"user"`
}

func (req *registerRequest) validate() string {
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if _, err := mail.ParseAddress(req.Email); err != nil {
		return "A valid email is required"
	}
	if len(req.Password) < minPasswordLength {
		return "Password must be at least 8 characters"
	}
	if strings.TrimSpace(req.FirstName) == "" || strings.TrimSpace(req.LastName) == "" {
		return "First and last name are required"
	}
	return ""
}

// RegisterHandler handles new-user registration, including the provisioning
// saga that creates the wallet in the ledger-service.
func (h *IdentityHandlers) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if msg := req.validate(); msg != "" {
		h.writeError(w, http.StatusBadRequest, msg)
		return
	}

	session, err := h.service.Register(r.Context(), req.Email, req.Password, strings.TrimSpace(req.FirstName), strings.TrimSpace(req.LastName))
	if err != nil {
		switch {
		case errors.Is(err, store.ErrEmailTaken):
			h.writeError(w, http.StatusConflict, "User already exists")
		case errors.Is(err, app.ErrProvisioningFailed):
			h.writeError(w, http.StatusInternalServerError, "Registration failed")
		default:
			log.Printf("level=error component=api msg=\"registration failed\" err=%v", err)
			h.writeError(w, http.StatusInternalServerError, "Registration failed")
		}
		return
	}

	h.writeJSON(w, http.StatusCreated, sessionResponse{AccessToken: session.AccessToken, User: session.User})
}

// LoginHandler verifies credentials and returns a session token.
func (h *IdentityHandlers) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	session, err := h.service.Login(r.Context(), strings.TrimSpace(strings.ToLower(req.Email)), req.Password)
	if err != nil {
		if errors.Is(err, app.ErrInvalidCredentials) {
			h.writeError(w, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		log.Printf("level=error component=api msg=\"login failed\" err=%v", err)
		h.writeError(w, http.StatusInternalServerError, "Login failed")
		return
	}

	h.writeJSON(w, http.StatusOK, sessionResponse{AccessToken: session.AccessToken, User: session.User})
}

// GetProfileHandler returns the authenticated user's profile.
func (h *IdentityHandlers) GetProfileHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserID(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	profile, err := h.service.GetProfile(r.Context(), userID)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			h.writeError(w, http.StatusNotFound, "User not found")
			return
		}
		log.Printf("level=error component=api msg=\"profile fetch failed\" user_id=%s err=%v", userID, err)
		h.writeError(w, http.StatusInternalServerError, "Failed to fetch profile")
		return
	}

	h.writeJSON(w, http.StatusOK, profile)
}

// UpdateProfileHandler applies a partial update to the authenticated user's
// profile and returns the new state.
func (h *IdentityHandlers) UpdateProfileHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserID(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req updateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	profile, err := h.service.UpdateProfile(r.Context(), userID, req.FirstName, req.LastName)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			h.writeError(w, http.StatusNotFound, "User not found")
			return
		}
		log.Printf("level=error component=api msg=\"profile update failed\" user_id=%s err=%v", userID, err)
		h.writeError(w, http.StatusInternalServerError, "Failed to update profile")
		return
	}

	h.writeJSON(w, http.StatusOK, profile)
}

// writeJSON is a helper for writing JSON responses.
func (h *IdentityHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError is a helper for writing JSON error responses.
func (h *IdentityHandlers) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
