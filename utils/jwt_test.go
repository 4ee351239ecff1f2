package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	t.Parallel()

	tok, err := NewAccessToken("secret", "user-1", "Seller", time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, tok.Token)
	require.True(t, tok.Exp.After(time.Now()))

	sub, role, err := ParseAccessToken("secret", tok.Token)
	require.NoError(t, err)
	require.Equal(t, "user-1", sub)
	require.Equal(t, "Seller", role)
}

func TestParseAccessToken_Rejects(t *testing.T) {
	t.Parallel()

	valid, err := NewAccessToken("secret", "user-1", "Buyer", time.Hour)
	require.NoError(t, err)
	expired, err := NewAccessToken("secret", "user-1", "Buyer", -time.Minute)
	require.NoError(t, err)
	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "user-1"}).SignedString([]byte("secret"))
	require.NoError(t, err)

	tests := []struct {
		name   string
		secret string
		raw    string
	}{
		{name: "wrong_secret", secret: "other", raw: valid.Token},
		{name: "expired", secret: "secret", raw: expired.Token},
		{name: "missing_exp", secret: "secret", raw: noExp},
		{name: "garbage", secret: "secret", raw: "not.a.token"},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, _, err := ParseAccessToken(tc.secret, tc.raw)
			require.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestParseAccessToken_NumericSubject(t *testing.T) {
	t.Parallel()

	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  42,
		"role": "Admin",
		"exp":  time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	sub, role, err := ParseAccessToken("secret", raw)
	require.NoError(t, err)
	require.Equal(t, "42", sub)
	require.Equal(t, "Admin", role)
}

func TestNewAccessToken_EmptySecret(t *testing.T) {
	t.Parallel()
	_, err := NewAccessToken("", "user-1", "Buyer", time.Hour)
	require.Error(t, err)
}
