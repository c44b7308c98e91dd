package authclient

import (
	"encoding/base64"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// defaultSessionLifetime is substituted when a bearer token carries no usable
// expiry. The token-only backend variant does not always embed one, and an
// unparseable expiry must not mean "already expired forever".
const defaultSessionLifetime = 30 * 60 // seconds

// TokenClaims is the best-effort identity decoded from a bearer token's
// payload segment.
type TokenClaims struct {
	Subject   string
	Email     string
	Name      string
	ExpiresAt int64 // seconds since epoch, 0 when absent
}

// ExpiresIn derives the remaining session lifetime in seconds at now. An
// expiry in the past or absent yields defaultSessionLifetime.
func (c TokenClaims) ExpiresIn(now time.Time) int64 {
	nowSec := now.Unix()
	if c.ExpiresAt > nowSec {
		return c.ExpiresAt - nowSec
	}
	return defaultSessionLifetime
}

// ExtractClaims decodes sub, email, name, and exp from a bearer token
// WITHOUT verifying its signature. It never fails: malformed input yields
// zero-value claims and a non-fatal log line. The token is treated as a
// self-describing bag of claims, nothing more.
func ExtractClaims(token string, logger Logger) TokenClaims {
	if logger == nil {
		logger = defLogger{}
	}

	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err == nil {
		if mapClaims, ok := parsed.Claims.(jwt.MapClaims); ok {
			return claimsFromMap(mapClaims)
		}
	}

	// jwt rejects tokens with non-standard padding or headers; fall back to
	// decoding the payload segment directly before giving up
	if claims, ok := decodePayloadSegment(token); ok {
		return claims
	}

	logger.Debug("claims extraction failed, returning empty claims: %v", err)
	return TokenClaims{}
}

func claimsFromMap(m jwt.MapClaims) TokenClaims {
	claims := TokenClaims{
		Subject: stringClaim(m, "sub"),
		Email:   stringClaim(m, "email"),
		Name:    stringClaim(m, "name"),
	}

	if exp, err := m.GetExpirationTime(); err == nil && exp != nil {
		claims.ExpiresAt = exp.Unix()
	}

	return claims
}

// stringClaim widens numeric claims to strings; backends disagree on
// whether ids are numbers or strings.
func stringClaim(m jwt.MapClaims, key string) string {
	switch v := m[key].(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}

func decodePayloadSegment(token string) (TokenClaims, bool) {
	parts := strings.Split(token, ".")
	if len(parts) < 2 {
		return TokenClaims{}, false
	}

	payload, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(parts[1], "="))
	if err != nil {
		return TokenClaims{}, false
	}

	var m map[string]any
	if err := json.Unmarshal(payload, &m); err != nil {
		return TokenClaims{}, false
	}

	claims := TokenClaims{}
	switch v := m["sub"].(type) {
	case string:
		claims.Subject = v
	case float64:
		claims.Subject = strconv.FormatFloat(v, 'f', -1, 64)
	}
	if v, ok := m["email"].(string); ok {
		claims.Email = v
	}
	if v, ok := m["name"].(string); ok {
		claims.Name = v
	}
	if v, ok := m["exp"].(float64); ok {
		claims.ExpiresAt = int64(v)
	}

	return claims, true
}

// sessionFromToken synthesizes an AuthResponse from a token-only login
// response. The refresh token is empty because this mode offers no refresh
// capability; email verification is assumed since the backend authenticated
// the account.
func sessionFromToken(token string, now time.Time, logger Logger) *AuthResponse {
	claims := ExtractClaims(token, logger)

	return &AuthResponse{
		User: &User{
			ID:              claims.Subject,
			Email:           claims.Email,
			Name:            claims.Name,
			IsEmailVerified: true,
		},
		AccessToken:  token,
		RefreshToken: "",
		ExpiresIn:    claims.ExpiresIn(now),
	}
}
