package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/donorcrm/internal/core"
)

func TestSignAndParse(t *testing.T) {
	s := NewSigner("secret", time.Hour)

	token, err := s.Sign("alice", true)
	require.NoError(t, err)

	req, err := s.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, core.Requester{UserID: "alice", IsAdmin: true}, req)
}

func TestSign_EmptyUser(t *testing.T) {
	_, err := NewSigner("secret", time.Hour).Sign("", false)
	assert.Error(t, err)
}

func TestParse_Rejects(t *testing.T) {
	s := NewSigner("secret", time.Hour)
	good, err := s.Sign("bob", false)
	require.NoError(t, err)

	expired := NewSigner("secret", time.Hour)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	old, err := expired.Sign("bob", false)
	require.NoError(t, err)

	other, err := NewSigner("other", time.Hour).Sign("bob", true)
	require.NoError(t, err)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "bob", Issuer: issuer},
	})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := map[string]string{
		"garbage":      "not-a-token",
		"tampered":     good + "x",
		"expired":      old,
		"wrong secret": other,
		"alg none":     unsigned,
	}
	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := s.Parse(raw)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header  string
		want    string
		wantErr bool
	}{
		{"Bearer abc", "abc", false},
		{"bearer  abc ", "abc", false},
		{"", "", true},
		{"Basic abc", "", true},
		{"Bearer ", "", true},
	}
	for _, tt := range tests {
		got, err := BearerToken(tt.header)
		if tt.wantErr {
			assert.ErrorIs(t, err, ErrMissingToken, tt.header)
			continue
		}
		require.NoError(t, err, tt.header)
		assert.Equal(t, tt.want, got)
	}
}

func TestRequesterContext(t *testing.T) {
	_, ok := RequesterFromContext(context.Background())
	assert.False(t, ok)

	ctx := ContextWithRequester(context.Background(), core.Requester{UserID: "carol"})
	r, ok := RequesterFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, "carol", r.UserID)
}
