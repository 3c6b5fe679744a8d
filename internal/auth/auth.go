// Package auth issues and verifies the bearer tokens that identify API
// callers. A token carries the user id and whether the user is an
// administrator; nothing else about the caller is trusted.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/JonMunkholm/donorcrm/internal/core"
)

const issuer = "donorcrm"

var (
	// ErrMissingToken is returned when a request has no bearer token.
	ErrMissingToken = errors.New("unauthorized: missing bearer token")

	// ErrInvalidToken is returned for malformed, expired or forged tokens.
	ErrInvalidToken = errors.New("invalid token")
)

// Claims is the JWT payload.
type Claims struct {
	Admin bool `json:"admin,omitempty"`
	jwt.RegisteredClaims
}

// Signer signs and verifies HS256 tokens with one shared secret.
type Signer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSigner returns a Signer. ttl is the lifetime of issued tokens.
func NewSigner(secret string, ttl time.Duration) *Signer {
	return &Signer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Sign issues a token for userID.
func (s *Signer) Sign(userID string, admin bool) (string, error) {
	if userID == "" {
		return "", fmt.Errorf("sign token: empty user id")
	}
	now := s.now()
	claims := Claims{
		Admin: admin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Parse verifies raw and returns the requester it names.
func (s *Signer) Parse(raw string) (core.Requester, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	},
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return core.Requester{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.Subject == "" {
		return core.Requester{}, ErrInvalidToken
	}
	return core.Requester{UserID: claims.Subject, IsAdmin: claims.Admin}, nil
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, error) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", ErrMissingToken
	}
	return strings.TrimSpace(token), nil
}

type ctxKey struct{}

// ContextWithRequester stores the authenticated caller.
func ContextWithRequester(ctx context.Context, r core.Requester) context.Context {
	return context.WithValue(ctx, ctxKey{}, r)
}

// RequesterFromContext returns the caller stored by ContextWithRequester.
func RequesterFromContext(ctx context.Context) (core.Requester, bool) {
	r, ok := ctx.Value(ctxKey{}).(core.Requester)
	return r, ok
}
