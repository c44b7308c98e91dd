package authclient_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	authclient "github.com/letsconnect/go-authclient"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mintToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)

	return signed
}

func TestExtractClaims_FullToken(t *testing.T) {
	exp := time.Now().Add(time.Hour).Unix()
	token := mintToken(t, jwt.MapClaims{
		"sub":   "user-1",
		"email": "pepe.rone@example.com",
		"name":  "Pepe Rone",
		"exp":   exp,
	})

	claims := authclient.ExtractClaims(token, nil)

	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, "pepe.rone@example.com", claims.Email)
	assert.Equal(t, "Pepe Rone", claims.Name)
	assert.Equal(t, exp, claims.ExpiresAt)
}

func TestExtractClaims_NumericSubjectWidensToString(t *testing.T) {
	token := mintToken(t, jwt.MapClaims{"sub": 42})

	claims := authclient.ExtractClaims(token, nil)

	assert.Equal(t, "42", claims.Subject)
}

func TestExtractClaims_MissingClaimsYieldEmptyStrings(t *testing.T) {
	token := mintToken(t, jwt.MapClaims{"sub": "user-1"})

	claims := authclient.ExtractClaims(token, nil)

	assert.Equal(t, "user-1", claims.Subject)
	assert.Empty(t, claims.Email)
	assert.Empty(t, claims.Name)
	assert.Zero(t, claims.ExpiresAt)
}

func TestExtractClaims_NeverRaises(t *testing.T) {
	cases := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"single segment", "nodots"},
		{"two garbage segments", "foo.bar"},
		{"invalid base64 payload", "aGVhZGVy.!!!not-base64!!!.c2ln"},
		{"payload not json", "aGVhZGVy." + "bm90anNvbg" + ".c2ln"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			claims := authclient.ExtractClaims(tc.token, nil)
			assert.Equal(t, authclient.TokenClaims{}, claims)
		})
	}
}

func TestExtractClaims_UnsignedPayloadSegment(t *testing.T) {
	// {"sub":"abc","email":"a@b.co","exp":1700000000} with a non-jwt header,
	// exercised through the raw payload fallback
	token := "bm90YWp3dA.eyJzdWIiOiJhYmMiLCJlbWFpbCI6ImFAYi5jbyIsImV4cCI6MTcwMDAwMDAwMH0.c2ln"

	claims := authclient.ExtractClaims(token, nil)

	assert.Equal(t, "abc", claims.Subject)
	assert.Equal(t, "a@b.co", claims.Email)
	assert.Equal(t, int64(1700000000), claims.ExpiresAt)
}

func TestTokenClaimsExpiresIn(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("future expiry yields remaining seconds", func(t *testing.T) {
		claims := authclient.TokenClaims{ExpiresAt: now.Add(120 * time.Second).Unix()}
		assert.Equal(t, int64(120), claims.ExpiresIn(now))
	})

	t.Run("past expiry falls back to default lifetime", func(t *testing.T) {
		claims := authclient.TokenClaims{ExpiresAt: now.Add(-time.Minute).Unix()}
		assert.Equal(t, int64(1800), claims.ExpiresIn(now))
	})

	t.Run("absent expiry falls back to default lifetime", func(t *testing.T) {
		claims := authclient.TokenClaims{}
		assert.Equal(t, int64(1800), claims.ExpiresIn(now))
	})
}
