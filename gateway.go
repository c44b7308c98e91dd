package authclient

import (
	"context"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// SessionGateway orchestrates every network-backed session operation. On
// success it writes through to the credential store and profile cache before
// reporting success; on failure it never partially commits local state.
//
// Callers are expected not to issue two conflicting session-mutating
// operations concurrently (login racing logout): the last store write wins
// and no cross-operation ordering is guaranteed.
type SessionGateway struct {
	api         APIClient
	credentials CredentialStore
	profiles    ProfileCache
	logger      Logger
	now         func() time.Time
}

// GatewayOption customizes gateway construction.
type GatewayOption func(*SessionGateway)

// WithGatewayLogger overrides the gateway logger.
func WithGatewayLogger(logger Logger) GatewayOption {
	return func(g *SessionGateway) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// WithGatewayClock injects a custom clock (useful for tests).
func WithGatewayClock(clock func() time.Time) GatewayOption {
	return func(g *SessionGateway) {
		if clock != nil {
			g.now = clock
		}
	}
}

// NewSessionGateway wires the gateway to its collaborators.
func NewSessionGateway(api APIClient, credentials CredentialStore, profiles ProfileCache, opts ...GatewayOption) *SessionGateway {
	gateway := &SessionGateway{
		api:         api,
		credentials: credentials,
		profiles:    profiles,
		logger:      defLogger{},
		now:         time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(gateway)
		}
	}

	return gateway
}

// Login validates the credentials locally, authenticates against the
// backend, and persists the resulting session.
func (g *SessionGateway) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	req := LoginRequest{Email: strings.TrimSpace(email), Password: password}
	if err := req.Validate(); err != nil {
		field, msg := FirstValidationMessage(err)
		return nil, ValidationError(field, msg)
	}

	resp, err := g.api.Login(ctx, normalizeEmail(email), password)
	if err != nil {
		g.logger.Error("login failed: %v", err)
		return nil, g.fail(err, "Login failed. Please try again.")
	}

	if err := g.saveAuthData(ctx, resp); err != nil {
		return nil, err
	}

	g.logger.Info("login succeeded for user %s", resp.User.ID)
	return resp, nil
}

// Register validates the registration form locally, creates the account, and
// persists the resulting session.
func (g *SessionGateway) Register(ctx context.Context, email, password, confirmPassword, name string) (*AuthResponse, error) {
	req := RegisterRequest{
		Name:            strings.TrimSpace(name),
		Email:           strings.TrimSpace(email),
		Password:        password,
		ConfirmPassword: confirmPassword,
	}
	if err := req.Validate(); err != nil {
		field, msg := FirstValidationMessage(err)
		return nil, ValidationError(field, msg)
	}

	resp, err := g.api.Register(ctx, normalizeEmail(email), password, strings.TrimSpace(name))
	if err != nil {
		g.logger.Error("registration failed: %v", err)
		return nil, g.fail(err, "Registration failed. Please try again.")
	}

	if err := g.saveAuthData(ctx, resp); err != nil {
		return nil, err
	}

	g.logger.Info("registration succeeded for user %s", resp.User.ID)
	return resp, nil
}

// Refresh exchanges the stored refresh token for a new credential set. It
// returns immediately, with no network call, when no refresh token is
// stored (a token-only login has none).
func (g *SessionGateway) Refresh(ctx context.Context) (*AuthResponse, error) {
	refreshToken, ok := g.credentials.RefreshToken()
	if !ok {
		return nil, WithUserMessage(ErrNoRefreshToken, "Session expired. Please log in again.")
	}

	resp, err := g.api.RefreshToken(ctx, refreshToken)
	if err != nil {
		g.logger.Error("token refresh failed: %v", err)
		return nil, g.fail(err, "Session expired. Please log in again.")
	}

	if err := g.saveAuthData(ctx, resp); err != nil {
		return nil, err
	}

	return resp, nil
}

// Logout invalidates the session server-side when possible and clears local
// state unconditionally. Backend failures are swallowed: a signed-in device
// can always sign out, offline included.
func (g *SessionGateway) Logout(ctx context.Context) error {
	if token, ok := g.credentials.AccessToken(); ok {
		if err := g.api.Logout(ctx, token); err != nil {
			g.logger.Warn("server-side logout failed, clearing local session anyway: %v", err)
		}
	}

	return g.ClearSession(ctx)
}

// FetchProfile fetches the authoritative profile for the stored access token
// and updates the cache. It fails without a network call when no token is
// stored.
func (g *SessionGateway) FetchProfile(ctx context.Context) (*User, error) {
	token, ok := g.credentials.AccessToken()
	if !ok {
		return nil, WithUserMessage(ErrNoAccessToken, "Failed to get user")
	}

	user, err := g.api.CurrentUser(ctx, token)
	if err != nil {
		g.logger.Error("profile fetch failed: %v", err)
		return nil, g.fail(err, "Failed to get user")
	}

	if err := g.profiles.SaveUser(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

// ForgotPassword requests a password-reset email. No local state changes.
func (g *SessionGateway) ForgotPassword(ctx context.Context, email string) error {
	req := ForgotPasswordRequest{Email: strings.TrimSpace(email)}
	if err := req.Validate(); err != nil {
		field, msg := FirstValidationMessage(err)
		return ValidationError(field, msg)
	}

	if err := g.api.ForgotPassword(ctx, normalizeEmail(email)); err != nil {
		g.logger.Error("forgot-password request failed: %v", err)
		return g.fail(err, "Failed to send reset email. Please try again.")
	}

	return nil
}

// VerifyEmail submits a verification code. No local state changes; callers
// refetch the profile afterwards to pick up the verified flag.
func (g *SessionGateway) VerifyEmail(ctx context.Context, code string) error {
	req := VerifyEmailRequest{Code: strings.TrimSpace(code)}
	if err := req.Validate(); err != nil {
		field, msg := FirstValidationMessage(err)
		return ValidationError(field, msg)
	}

	if err := g.api.VerifyEmail(ctx, strings.TrimSpace(code)); err != nil {
		g.logger.Error("email verification failed: %v", err)
		return g.fail(err, "Email verification failed. Please try again.")
	}

	return nil
}

// ClearSession wipes the credential record and the cached profile. Calling
// it twice leaves the same cleared state as calling it once.
func (g *SessionGateway) ClearSession(ctx context.Context) error {
	credErr := g.credentials.Clear()
	profErr := g.profiles.ClearUser(ctx)

	if credErr != nil {
		return credErr
	}
	return profErr
}

// HasValidSession reports whether a non-expired access token is stored.
func (g *SessionGateway) HasValidSession() bool {
	return g.credentials.HasValidToken()
}

// AccessToken exposes the stored access token for transports that attach it
// to non-session requests.
func (g *SessionGateway) AccessToken() (string, bool) {
	return g.credentials.AccessToken()
}

// NeedsRefresh reports whether the session is still valid but expires within
// the given window, i.e. a proactive refresh is worthwhile.
func (g *SessionGateway) NeedsRefresh(within time.Duration) bool {
	if !g.credentials.HasValidToken() {
		return false
	}
	expiry := time.UnixMilli(g.credentials.Expiry())
	return ExpiresWithin(expiry, within, g.now())
}

// ObserveProfile subscribes to profile changes with replay-latest semantics.
func (g *SessionGateway) ObserveProfile() *Subscription {
	return g.profiles.Observe()
}

// saveAuthData writes the session through to both stores. Token and expiry
// land in one write; a crash between the two stores leaves a
// token-without-profile state that FetchProfile repairs.
func (g *SessionGateway) saveAuthData(ctx context.Context, resp *AuthResponse) error {
	if resp == nil || resp.User == nil {
		return ErrEmptyResponseBody
	}

	expiresAt := g.now().UnixMilli() + resp.ExpiresIn*1000

	if err := g.credentials.Save(resp.AccessToken, resp.RefreshToken, expiresAt); err != nil {
		return err
	}

	return g.profiles.SaveUser(ctx, resp.User)
}

// fail normalizes an operation error into a rich error carrying the
// user-facing message for this operation.
func (g *SessionGateway) fail(err error, userMessage string) error {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		richErr = goerrors.Wrap(err, goerrors.CategoryInternal, "unexpected session error")
	}
	return WithUserMessage(richErr, userMessage)
}
