package authclient

import (
	"context"
	"fmt"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// CredentialStore is the exclusive owner of the access token, refresh token,
// and expiry instant. No other component persists these values.
type CredentialStore interface {
	Save(accessToken, refreshToken string, expiresAt int64) error
	AccessToken() (string, bool)
	RefreshToken() (string, bool)
	Expiry() int64
	Clear() error
	HasValidToken() bool
}

// ProfileCache stores the last-known user profile plus a small set of
// app-level flags, and fans the profile out to observers.
type ProfileCache interface {
	SaveUser(ctx context.Context, user *User) error
	ClearUser(ctx context.Context) error
	CurrentUser() *User
	Observe() *Subscription
	ObserveFlags() *FlagSubscription

	IsFirstLaunch() bool
	SetFirstLaunchCompleted(ctx context.Context) error
	RememberMe() bool
	SetRememberMe(ctx context.Context, remember bool) error
	BiometricEnabled() bool
	SetBiometricEnabled(ctx context.Context, enabled bool) error
	ThemeMode() string
	SetThemeMode(ctx context.Context, mode string) error
}

// APIClient is the wire boundary for the remote identity backend. The
// transport (retries, timeouts) lives behind this interface.
type APIClient interface {
	Login(ctx context.Context, email, password string) (*AuthResponse, error)
	Register(ctx context.Context, email, password, name string) (*AuthResponse, error)
	RefreshToken(ctx context.Context, refreshToken string) (*AuthResponse, error)
	Logout(ctx context.Context, accessToken string) error
	CurrentUser(ctx context.Context, accessToken string) (*User, error)
	ForgotPassword(ctx context.Context, email string) error
	VerifyEmail(ctx context.Context, code string) error
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] AUTHCLIENT "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] AUTHCLIENT "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] AUTHCLIENT "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] AUTHCLIENT "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
