package authclient

import (
	"encoding/json"
	"strings"
)

// User is the profile of the signed-in account. ID is always a string even
// though some backend responses encode it as an integer; the wire layer
// widens it before it enters the rest of the system.
type User struct {
	ID                string `json:"id"`
	Email             string `json:"email"`
	Name              string `json:"name"`
	ProfilePictureURL string `json:"profilePictureUrl,omitempty"`
	IsEmailVerified   bool   `json:"isEmailVerified"`
	CreatedAt         string `json:"createdAt,omitempty"`
}

// AuthResponse is the normalized result of a login, registration, or token
// refresh: the profile plus the credentials that authorize it.
type AuthResponse struct {
	User         *User
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64
}

// flexibleID accepts both JSON strings and numbers; backends disagree on how
// they encode user ids and the rest of the system only ever sees a string.
type flexibleID string

func (f *flexibleID) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" {
		*f = ""
		return nil
	}

	if strings.HasPrefix(trimmed, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexibleID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexibleID(n.String())
	return nil
}

type userDTO struct {
	ID                flexibleID `json:"id"`
	Email             string     `json:"email"`
	Name              string     `json:"name"`
	ProfilePictureURL string     `json:"profilePictureUrl"`
	IsEmailVerified   *bool      `json:"isEmailVerified"`
	CreatedAt         string     `json:"createdAt"`
}

func (d userDTO) toDomain() *User {
	// the backend defaults verified accounts; absent means true
	verified := true
	if d.IsEmailVerified != nil {
		verified = *d.IsEmailVerified
	}

	return &User{
		ID:                string(d.ID),
		Email:             d.Email,
		Name:              d.Name,
		ProfilePictureURL: d.ProfilePictureURL,
		IsEmailVerified:   verified,
		CreatedAt:         d.CreatedAt,
	}
}

func (d userDTO) isZero() bool {
	return strings.TrimSpace(string(d.ID)) == "" && d.Email == "" && d.Name == ""
}

type authResponseDTO struct {
	User         *userDTO `json:"user"`
	AccessToken  string   `json:"accessToken"`
	RefreshToken string   `json:"refreshToken"`
	ExpiresIn    int64    `json:"expiresIn"`
}

func (d authResponseDTO) toDomain() *AuthResponse {
	resp := &AuthResponse{
		AccessToken:  d.AccessToken,
		RefreshToken: d.RefreshToken,
		ExpiresIn:    d.ExpiresIn,
	}
	if d.User != nil {
		resp.User = d.User.toDomain()
	}
	return resp
}

// tokenOnlyResponseDTO is the degenerate login response shape: a bare JWT
// with no structured profile attached.
type tokenOnlyResponseDTO struct {
	Token string `json:"token"`
}

type loginRequestDTO struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerRequestDTO struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type refreshRequestDTO struct {
	RefreshToken string `json:"refreshToken"`
}

type forgotPasswordRequestDTO struct {
	Email string `json:"email"`
}

type verifyEmailRequestDTO struct {
	Code string `json:"code"`
}
