/**
 * @description
 * Authentication middleware for the ledger-service. Two independent
 * strategies are wired here, selected per route and never merged:
 *
 * - UserAuthMiddleware verifies external session tokens (user secret) and
 *   injects the authenticated user's ID into the request context. All
 *   user-facing routes use it.
 * - InternalAuthMiddleware verifies internal service tokens (internal
 *   secret). Only the wallet-creation route uses it.
 *
 * Because the two strategies use disjoint secrets and never attempt
 * cross-validation, a token of the wrong class fails closed with 401.
 *
 * @dependencies
 * - pkg/token: The dual-class token codec.
 */
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/paylane/wallet-platform/pkg/token"
)

type contextKey string

const (
	userIDKey        contextKey = "userID"
	serviceClaimsKey contextKey = "serviceClaims"
)

// UserAuthMiddleware validates external bearer tokens and injects the user ID
// into the request context.
func UserAuthMiddleware(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, ok := bearerToken(r)
			if !ok {
				writeAuthError(w, "Authorization header required")
				return
			}

			claims, err := token.VerifyUserToken(secret, tokenString)
			if err != nil {
				writeAuthError(w, "Invalid token")
				return
			}

			ctx := context.WithValue(r.Context(), userIDKey, claims.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// InternalAuthMiddleware validates internal service bearer tokens and injects
// the caller's service claims into the request context.
func InternalAuthMiddleware(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, ok := bearerToken(r)
			if !ok {
				writeAuthError(w, "Authorization header required")
				return
			}

			claims, err := token.VerifyServiceToken(secret, tokenString)
			if err != nil {
				writeAuthError(w, "Invalid internal token")
				return
			}

			ctx := context.WithValue(r.Context(), serviceClaimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetUserID retrieves the authenticated user's ID from the request context.
func GetUserID(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(userIDKey).(uuid.UUID)
	return id, ok
}

// GetServiceClaims retrieves the verified internal caller identity.
func GetServiceClaims(ctx context.Context) (*token.ServiceClaims, bool) {
	claims, ok := ctx.Value(serviceClaimsKey).(*token.ServiceClaims)
	return claims, ok
}

func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", false
	}
	tokenString := strings.TrimPrefix(authHeader, "Bearer ")
	if tokenString == authHeader || tokenString == "" {
		return "", false
	}
	return tokenString, true
}

func writeAuthError(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
