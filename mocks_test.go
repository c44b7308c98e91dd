package authclient_test

import (
	"context"
	"sync"

	authclient "github.com/letsconnect/go-authclient"
	"github.com/stretchr/testify/mock"
)

// MockAPIClient implements authclient.APIClient
type MockAPIClient struct {
	mock.Mock
}

func (m *MockAPIClient) Login(ctx context.Context, email, password string) (*authclient.AuthResponse, error) {
	args := m.Called(ctx, email, password)
	if resp := args.Get(0); resp != nil {
		return resp.(*authclient.AuthResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAPIClient) Register(ctx context.Context, email, password, name string) (*authclient.AuthResponse, error) {
	args := m.Called(ctx, email, password, name)
	if resp := args.Get(0); resp != nil {
		return resp.(*authclient.AuthResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAPIClient) RefreshToken(ctx context.Context, refreshToken string) (*authclient.AuthResponse, error) {
	args := m.Called(ctx, refreshToken)
	if resp := args.Get(0); resp != nil {
		return resp.(*authclient.AuthResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAPIClient) Logout(ctx context.Context, accessToken string) error {
	args := m.Called(ctx, accessToken)
	return args.Error(0)
}

func (m *MockAPIClient) CurrentUser(ctx context.Context, accessToken string) (*authclient.User, error) {
	args := m.Called(ctx, accessToken)
	if user := args.Get(0); user != nil {
		return user.(*authclient.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAPIClient) ForgotPassword(ctx context.Context, email string) error {
	args := m.Called(ctx, email)
	return args.Error(0)
}

func (m *MockAPIClient) VerifyEmail(ctx context.Context, code string) error {
	args := m.Called(ctx, code)
	return args.Error(0)
}

// fakeProfileCache implements authclient.ProfileCache in memory for gateway
// tests. It records the last saved user and hands out non-replaying
// subscriptions, which is enough for the orchestration assertions.
type fakeProfileCache struct {
	mu    sync.Mutex
	user  *authclient.User
	saves int

	firstLaunch bool
	rememberMe  bool
	biometric   bool
	themeMode   string
}

func newFakeProfileCache() *fakeProfileCache {
	return &fakeProfileCache{firstLaunch: true, themeMode: "system"}
}

func (f *fakeProfileCache) SaveUser(_ context.Context, user *authclient.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.user = user
	f.saves++
	return nil
}

func (f *fakeProfileCache) ClearUser(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.user = nil
	return nil
}

func (f *fakeProfileCache) CurrentUser() *authclient.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.user
}

func (f *fakeProfileCache) Observe() *authclient.Subscription {
	ch := make(chan *authclient.User, 1)
	ch <- f.CurrentUser()
	return &authclient.Subscription{C: ch}
}

func (f *fakeProfileCache) ObserveFlags() *authclient.FlagSubscription {
	ch := make(chan authclient.AppFlags, 1)
	ch <- authclient.AppFlags{
		IsFirstLaunch:    f.firstLaunch,
		RememberMe:       f.rememberMe,
		BiometricEnabled: f.biometric,
		ThemeMode:        f.themeMode,
	}
	return &authclient.FlagSubscription{C: ch}
}

func (f *fakeProfileCache) IsFirstLaunch() bool { return f.firstLaunch }

func (f *fakeProfileCache) SetFirstLaunchCompleted(context.Context) error {
	f.firstLaunch = false
	return nil
}

func (f *fakeProfileCache) RememberMe() bool { return f.rememberMe }

func (f *fakeProfileCache) SetRememberMe(_ context.Context, remember bool) error {
	f.rememberMe = remember
	return nil
}

func (f *fakeProfileCache) BiometricEnabled() bool { return f.biometric }

func (f *fakeProfileCache) SetBiometricEnabled(_ context.Context, enabled bool) error {
	f.biometric = enabled
	return nil
}

func (f *fakeProfileCache) ThemeMode() string { return f.themeMode }

func (f *fakeProfileCache) SetThemeMode(_ context.Context, mode string) error {
	f.themeMode = mode
	return nil
}
