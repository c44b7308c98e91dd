package authclient

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	routeLogin          = "/auth/login"
	routeRegister       = "/auth/register"
	routeRefresh        = "/auth/refresh"
	routeLogout         = "/auth/logout"
	routeProfile        = "/auth/me"
	routeForgotPassword = "/auth/forgot-password"
	routeVerifyEmail    = "/auth/verify-email"
)

var _ APIClient = (*HTTPAPIClient)(nil)

// HTTPAPIClient talks JSON to the remote identity backend. Retry and backoff
// policy belongs to the injected http.Client, not here; a timeout surfaces
// like any other transport failure.
type HTTPAPIClient struct {
	baseURL string
	client  *http.Client
	logger  Logger
	now     func() time.Time
}

// APIClientOption customizes client construction.
type APIClientOption func(*HTTPAPIClient)

// WithHTTPClient injects the transport. The default client has a 30s
// timeout.
func WithHTTPClient(client *http.Client) APIClientOption {
	return func(c *HTTPAPIClient) {
		if client != nil {
			c.client = client
		}
	}
}

// WithAPILogger overrides the client logger.
func WithAPILogger(logger Logger) APIClientOption {
	return func(c *HTTPAPIClient) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithAPIClock injects a custom clock (useful for tests).
func WithAPIClock(clock func() time.Time) APIClientOption {
	return func(c *HTTPAPIClient) {
		if clock != nil {
			c.now = clock
		}
	}
}

// NewHTTPAPIClient returns a client rooted at baseURL.
func NewHTTPAPIClient(baseURL string, opts ...APIClientOption) *HTTPAPIClient {
	client := &HTTPAPIClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 30 * time.Second},
		logger:  defLogger{},
		now:     time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	return client
}

// Login supports both response shapes: a structured profile with tokens, or
// a bare JWT whose claims synthesize the session.
func (c *HTTPAPIClient) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	body, err := c.do(ctx, http.MethodPost, routeLogin, loginRequestDTO{Email: email, Password: password}, "")
	if err != nil {
		return nil, err
	}

	if len(bytes.TrimSpace(body)) == 0 {
		return nil, ErrEmptyResponseBody
	}

	var combined struct {
		tokenOnlyResponseDTO
		authResponseDTO
	}
	if err := json.Unmarshal(body, &combined); err != nil {
		return nil, decodeError(err, "failed to decode login response")
	}

	if combined.Token != "" {
		c.logger.Debug("login answered with bare token, deriving session from claims")
		return sessionFromToken(combined.Token, c.now(), c.logger), nil
	}

	if combined.User == nil || combined.User.isZero() {
		return nil, ErrEmptyResponseBody
	}

	return combined.authResponseDTO.toDomain(), nil
}

// Register only supports the structured response shape.
func (c *HTTPAPIClient) Register(ctx context.Context, email, password, name string) (*AuthResponse, error) {
	body, err := c.do(ctx, http.MethodPost, routeRegister, registerRequestDTO{
		Email:    email,
		Password: password,
		Name:     name,
	}, "")
	if err != nil {
		return nil, err
	}

	return decodeAuthResponse(body)
}

// RefreshToken exchanges a refresh token for a fresh credential set.
func (c *HTTPAPIClient) RefreshToken(ctx context.Context, refreshToken string) (*AuthResponse, error) {
	body, err := c.do(ctx, http.MethodPost, routeRefresh, refreshRequestDTO{RefreshToken: refreshToken}, "")
	if err != nil {
		return nil, err
	}

	return decodeAuthResponse(body)
}

// Logout invalidates the session server-side. The response body is ignored.
func (c *HTTPAPIClient) Logout(ctx context.Context, accessToken string) error {
	_, err := c.do(ctx, http.MethodPost, routeLogout, nil, accessToken)
	return err
}

// CurrentUser fetches the authoritative profile for the bearer token.
func (c *HTTPAPIClient) CurrentUser(ctx context.Context, accessToken string) (*User, error) {
	body, err := c.do(ctx, http.MethodGet, routeProfile, nil, accessToken)
	if err != nil {
		return nil, err
	}

	if len(bytes.TrimSpace(body)) == 0 {
		return nil, ErrEmptyResponseBody
	}

	var dto userDTO
	if err := json.Unmarshal(body, &dto); err != nil {
		return nil, decodeError(err, "failed to decode profile response")
	}
	if dto.isZero() {
		return nil, ErrEmptyResponseBody
	}

	return dto.toDomain(), nil
}

// ForgotPassword is a stateless pass-through; 2xx with no body is success.
func (c *HTTPAPIClient) ForgotPassword(ctx context.Context, email string) error {
	_, err := c.do(ctx, http.MethodPost, routeForgotPassword, forgotPasswordRequestDTO{Email: email}, "")
	return err
}

// VerifyEmail is a stateless pass-through; 2xx with no body is success.
func (c *HTTPAPIClient) VerifyEmail(ctx context.Context, code string) error {
	_, err := c.do(ctx, http.MethodPost, routeVerifyEmail, verifyEmailRequestDTO{Code: code}, "")
	return err
}

func decodeAuthResponse(body []byte) (*AuthResponse, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, ErrEmptyResponseBody
	}

	var dto authResponseDTO
	if err := json.Unmarshal(body, &dto); err != nil {
		return nil, decodeError(err, "failed to decode auth response")
	}
	if dto.User == nil || dto.User.isZero() {
		return nil, ErrEmptyResponseBody
	}

	return dto.toDomain(), nil
}

// do executes one round trip and classifies the outcome: transport failures
// become network errors, non-2xx statuses become HTTP errors carrying the
// server message, and a successful body is returned raw for the caller to
// decode.
func (c *HTTPAPIClient) do(ctx context.Context, method, path string, payload any, bearer string) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, decodeError(err, "failed to encode request payload")
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, decodeError(err, "failed to build request")
	}

	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Warn("request failed %s %s: %v", method, path, err)
		return nil, NetworkError(err, "request to identity backend failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, NetworkError(err, "failed to read response body")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Warn("backend rejected %s %s with status %d", method, path, resp.StatusCode)
		return nil, HTTPError(resp.StatusCode, serverMessage(body), "identity backend returned "+resp.Status)
	}

	return body, nil
}

// serverMessage digs a human-readable message out of an error body when the
// backend sends one.
func serverMessage(body []byte) string {
	var envelope struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil {
		if envelope.Message != "" {
			return envelope.Message
		}
		if envelope.Error != "" {
			return envelope.Error
		}
	}
	return strings.TrimSpace(string(body))
}
