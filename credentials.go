package authclient

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

// credentialRecord is the single row holding the session credentials. Token
// columns are sealed with AES-GCM before they touch disk; only the expiry is
// stored in the clear since it is not a secret.
type credentialRecord struct {
	bun.BaseModel `bun:"table:credentials,alias:cred"`

	ID           int64  `bun:"id,pk"`
	AccessToken  []byte `bun:"access_token"`
	RefreshToken []byte `bun:"refresh_token"`
	ExpiresAt    int64  `bun:"token_expiration"`
}

const credentialRowID = 1

// storeTimeout bounds local sqlite round trips so the synchronous store API
// cannot hang the caller.
const storeTimeout = 5 * time.Second

var _ CredentialStore = (*EncryptedCredentialStore)(nil)

// EncryptedCredentialStore persists the credential record encrypted at rest
// and serves reads from an in-memory copy so they stay synchronous.
type EncryptedCredentialStore struct {
	db     *bun.DB
	key    []byte
	logger Logger
	now    func() time.Time

	mu           sync.RWMutex
	accessToken  string
	refreshToken string
	expiresAt    int64
}

// CredentialStoreOption customizes store construction.
type CredentialStoreOption func(*EncryptedCredentialStore)

// WithCredentialClock injects a custom clock (useful for tests).
func WithCredentialClock(clock func() time.Time) CredentialStoreOption {
	return func(s *EncryptedCredentialStore) {
		if clock != nil {
			s.now = clock
		}
	}
}

// WithCredentialLogger overrides the store logger.
func WithCredentialLogger(logger Logger) CredentialStoreOption {
	return func(s *EncryptedCredentialStore) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewEncryptedCredentialStore loads any previously persisted credentials and
// returns a ready store. A record sealed with a different passphrase fails
// here, not at first use.
func NewEncryptedCredentialStore(db *bun.DB, cfg StoreConfig, opts ...CredentialStoreOption) (*EncryptedCredentialStore, error) {
	store := &EncryptedCredentialStore{
		db:     db,
		key:    deriveKey([]byte(cfg.Passphrase), cfg.Salt),
		logger: defLogger{},
		now:    time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(store)
		}
	}

	if err := store.load(); err != nil {
		return nil, err
	}

	return store, nil
}

func (s *EncryptedCredentialStore) load() error {
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	rec := &credentialRecord{}
	err := s.db.NewSelect().Model(rec).Where("id = ?", credentialRowID).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return StorageError(err, "failed to load credential record")
	}

	access, err := s.openToken(rec.AccessToken)
	if err != nil {
		return err
	}
	refresh, err := s.openToken(rec.RefreshToken)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.accessToken = access
	s.refreshToken = refresh
	s.expiresAt = rec.ExpiresAt
	s.mu.Unlock()

	return nil
}

func (s *EncryptedCredentialStore) openToken(sealed []byte) (string, error) {
	if len(sealed) == 0 {
		return "", nil
	}
	plaintext, err := openValue(s.key, sealed)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to unseal stored token")
	}
	return string(plaintext), nil
}

// Save writes the token pair and its expiry in one transaction. A token
// never exists on disk without the expiry set by the same write.
func (s *EncryptedCredentialStore) Save(accessToken, refreshToken string, expiresAt int64) error {
	sealedAccess, err := s.sealToken(accessToken)
	if err != nil {
		return err
	}
	sealedRefresh, err := s.sealToken(refreshToken)
	if err != nil {
		return err
	}

	rec := &credentialRecord{
		ID:           credentialRowID,
		AccessToken:  sealedAccess,
		RefreshToken: sealedRefresh,
		ExpiresAt:    expiresAt,
	}

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	_, err = s.db.NewInsert().
		Model(rec).
		On("CONFLICT (id) DO UPDATE").
		Set("access_token = EXCLUDED.access_token").
		Set("refresh_token = EXCLUDED.refresh_token").
		Set("token_expiration = EXCLUDED.token_expiration").
		Exec(ctx)
	if err != nil {
		return StorageError(err, "failed to persist credential record")
	}

	s.mu.Lock()
	s.accessToken = accessToken
	s.refreshToken = refreshToken
	s.expiresAt = expiresAt
	s.mu.Unlock()

	return nil
}

func (s *EncryptedCredentialStore) sealToken(token string) ([]byte, error) {
	if token == "" {
		return nil, nil
	}
	return sealValue(s.key, []byte(token))
}

// AccessToken returns the stored access token, reporting presence.
func (s *EncryptedCredentialStore) AccessToken() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken, s.accessToken != ""
}

// RefreshToken returns the stored refresh token, reporting presence. A
// token-only login leaves it empty, which reads as absent.
func (s *EncryptedCredentialStore) RefreshToken() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refreshToken, s.refreshToken != ""
}

// Expiry returns the stored expiry as epoch milliseconds, 0 when unset.
func (s *EncryptedCredentialStore) Expiry() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.expiresAt
}

// Clear removes the credential record. Clearing an empty store is a no-op.
func (s *EncryptedCredentialStore) Clear() error {
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	_, err := s.db.NewDelete().
		Model((*credentialRecord)(nil)).
		Where("id = ?", credentialRowID).
		Exec(ctx)
	if err != nil {
		return StorageError(err, "failed to clear credential record")
	}

	s.mu.Lock()
	s.accessToken = ""
	s.refreshToken = ""
	s.expiresAt = 0
	s.mu.Unlock()

	return nil
}

// HasValidToken reports whether an access token is present and the clock is
// strictly before its expiry.
func (s *EncryptedCredentialStore) HasValidToken() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken != "" && s.now().UnixMilli() < s.expiresAt
}

var _ CredentialStore = (*MemoryCredentialStore)(nil)

// MemoryCredentialStore keeps credentials in process memory only. Useful for
// tests and for sessions that must not outlive the process.
type MemoryCredentialStore struct {
	mu           sync.RWMutex
	accessToken  string
	refreshToken string
	expiresAt    int64
	now          func() time.Time
}

// NewMemoryCredentialStore returns an empty in-memory store.
func NewMemoryCredentialStore(clock func() time.Time) *MemoryCredentialStore {
	if clock == nil {
		clock = time.Now
	}
	return &MemoryCredentialStore{now: clock}
}

func (s *MemoryCredentialStore) Save(accessToken, refreshToken string, expiresAt int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accessToken = accessToken
	s.refreshToken = refreshToken
	s.expiresAt = expiresAt
	return nil
}

func (s *MemoryCredentialStore) AccessToken() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken, s.accessToken != ""
}

func (s *MemoryCredentialStore) RefreshToken() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refreshToken, s.refreshToken != ""
}

func (s *MemoryCredentialStore) Expiry() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.expiresAt
}

func (s *MemoryCredentialStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accessToken = ""
	s.refreshToken = ""
	s.expiresAt = 0
	return nil
}

func (s *MemoryCredentialStore) HasValidToken() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken != "" && s.now().UnixMilli() < s.expiresAt
}
