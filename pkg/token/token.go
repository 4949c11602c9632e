/**
 * @description
 * This package implements the two token classes used across the platform:
 * user tokens (external session credentials) and service tokens (short-lived
 * credentials for service-to-service calls). The two classes are signed with
 * separate secrets and verified by separate functions so that a token of one
 * class can never pass the other class's verification, even though both are
 * syntactically valid bearer tokens.
 *
 * @dependencies
 * - github.com/golang-jwt/jwt/v5: JWT signing and parsing.
 * - github.com/google/uuid: User identifiers carried in claims.
 */
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	// UserTokenTTL is the lifetime of an external session token.
	UserTokenTTL = 24 * time.Hour
	// ServiceTokenTTL is deliberately short: internal tokens are minted
	// fresh per outbound call, so a leaked token expires within minutes.
	ServiceTokenTTL = 5 * time.Minute
)

var ErrInvalidToken = errors.New("invalid token")

// UserClaims is the identity extracted from a verified user token.
type UserClaims struct {
	UserID uuid.UUID
	Email  string
}

// ServiceClaims is the identity extracted from a verified service token.
// TargetUserID is set when the call concerns a specific user (wallet
// creation); it is the zero UUID otherwise.
type ServiceClaims struct {
	Service      string
	TargetUserID uuid.UUID
}

type userTokenClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
}

type serviceTokenClaims struct {
	jwt.RegisteredClaims
	Service string `json:"svc"`
}

// MintUserToken signs an external session token for the given user.
func MintUserToken(secret string, userID uuid.UUID, email string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := userTokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Email: email,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("mint user token: %w", err)
	}
	return signed, nil
}

// VerifyUserToken validates an external session token against the external
// secret and returns the user identity it carries.
func VerifyUserToken(secret, tokenString string) (*UserClaims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &userTokenClaims{}, hmacKeyFunc(secret))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := parsed.Claims.(*userTokenClaims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("%w: bad subject", ErrInvalidToken)
	}

	return &UserClaims{UserID: userID, Email: claims.Email}, nil
}

// MintServiceToken signs an internal token identifying the calling service.
// targetUserID may be uuid.Nil when the call is not about a specific user.
func MintServiceToken(secret, service string, targetUserID uuid.UUID, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := serviceTokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Service: service,
	}
	if targetUserID != uuid.Nil {
		claims.Subject = targetUserID.String()
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("mint service token: %w", err)
	}
	return signed, nil
}

// VerifyServiceToken validates an internal token against the internal secret.
// A token without a "svc" claim is rejected even if its signature checks out;
// user tokens never carry that claim, so this is a second line of defense on
// top of the disjoint secrets.
func VerifyServiceToken(secret, tokenString string) (*ServiceClaims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &serviceTokenClaims{}, hmacKeyFunc(secret))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := parsed.Claims.(*serviceTokenClaims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Service == "" {
		return nil, fmt.Errorf("%w: missing service claim", ErrInvalidToken)
	}

	out := &ServiceClaims{Service: claims.Service}
	if claims.Subject != "" {
		targetID, err := uuid.Parse(claims.Subject)
		if err != nil {
			return nil, fmt.Errorf("%w: bad subject", ErrInvalidToken)
		}
		out.TargetUserID = targetID
	}
	return out, nil
}

func hmacKeyFunc(secret string) jwt.Keyfunc {
	return func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	}
}
