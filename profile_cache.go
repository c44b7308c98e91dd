package authclient

import (
	"context"
	"strconv"
	"sync"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// settingRecord is one durable key/value pair: the cached profile fields and
// the app-level flags all live in this table.
type settingRecord struct {
	bun.BaseModel `bun:"table:app_settings,alias:st"`

	Key   string `bun:"key,pk"`
	Value string `bun:"value,notnull"`
}

const (
	keyUserID             = "user_id"
	keyUserEmail          = "user_email"
	keyUserName           = "user_name"
	keyUserProfilePicture = "user_profile_picture"
	keyUserEmailVerified  = "user_email_verified"
	keyUserCreatedAt      = "user_created_at"

	keyIsFirstLaunch    = "is_first_launch"
	keyRememberMe       = "remember_me"
	keyBiometricEnabled = "biometric_enabled"
	keyThemeMode        = "theme_mode"
)

var userKeys = []string{
	keyUserID,
	keyUserEmail,
	keyUserName,
	keyUserProfilePicture,
	keyUserEmailVerified,
	keyUserCreatedAt,
}

// AppFlags is a snapshot of the app-level preference flags.
type AppFlags struct {
	IsFirstLaunch    bool
	RememberMe       bool
	BiometricEnabled bool
	ThemeMode        string
}

func defaultFlags() AppFlags {
	return AppFlags{
		IsFirstLaunch: true,
		ThemeMode:     "system",
	}
}

// Subscription is a replay-latest profile stream: the current value arrives
// first, then every subsequent change. Slow consumers only ever lose
// intermediate values, never the newest one.
type Subscription struct {
	C <-chan *User

	cancel func()
}

// Cancel detaches the subscription and closes its channel.
func (s *Subscription) Cancel() {
	if s.cancel != nil {
		s.cancel()
	}
}

// FlagSubscription mirrors Subscription for AppFlags snapshots.
type FlagSubscription struct {
	C <-chan AppFlags

	cancel func()
}

// Cancel detaches the subscription and closes its channel.
func (s *FlagSubscription) Cancel() {
	if s.cancel != nil {
		s.cancel()
	}
}

var _ ProfileCache = (*BunProfileCache)(nil)

// BunProfileCache is the durable, observable profile cache backed by the
// local session database. Writes are transactional; observers never see a
// partially written profile.
type BunProfileCache struct {
	db     *bun.DB
	logger Logger

	mu          sync.Mutex
	user        *User
	flags       AppFlags
	subscribers map[uuid.UUID]chan *User
	flagSubs    map[uuid.UUID]chan AppFlags
}

// ProfileCacheOption customizes cache construction.
type ProfileCacheOption func(*BunProfileCache)

// WithProfileCacheLogger overrides the cache logger.
func WithProfileCacheLogger(logger Logger) ProfileCacheOption {
	return func(c *BunProfileCache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewProfileCache loads the persisted profile and flags and returns a ready
// cache.
func NewProfileCache(db *bun.DB, opts ...ProfileCacheOption) (*BunProfileCache, error) {
	cache := &BunProfileCache{
		db:          db,
		logger:      defLogger{},
		flags:       defaultFlags(),
		subscribers: map[uuid.UUID]chan *User{},
		flagSubs:    map[uuid.UUID]chan AppFlags{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(cache)
		}
	}

	if err := cache.load(); err != nil {
		return nil, err
	}

	return cache, nil
}

func (c *BunProfileCache) load() error {
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	var records []settingRecord
	if err := c.db.NewSelect().Model(&records).Scan(ctx); err != nil {
		return StorageError(err, "failed to load app settings")
	}

	values := make(map[string]string, len(records))
	for _, rec := range records {
		values[rec.Key] = rec.Value
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// a profile requires the identity triple; anything less reads as no
	// cached user (a crash between writes leaves us refetching, not broken)
	if values[keyUserID] != "" && values[keyUserEmail] != "" && values[keyUserName] != "" {
		c.user = &User{
			ID:                values[keyUserID],
			Email:             values[keyUserEmail],
			Name:              values[keyUserName],
			ProfilePictureURL: values[keyUserProfilePicture],
			IsEmailVerified:   values[keyUserEmailVerified] == "true",
			CreatedAt:         values[keyUserCreatedAt],
		}
	}

	c.flags = defaultFlags()
	if v, ok := values[keyIsFirstLaunch]; ok {
		c.flags.IsFirstLaunch = v == "true"
	}
	if v, ok := values[keyRememberMe]; ok {
		c.flags.RememberMe = v == "true"
	}
	if v, ok := values[keyBiometricEnabled]; ok {
		c.flags.BiometricEnabled = v == "true"
	}
	if v, ok := values[keyThemeMode]; ok && v != "" {
		c.flags.ThemeMode = v
	}

	return nil
}

// SaveUser persists the profile and notifies observers with the new value.
func (c *BunProfileCache) SaveUser(ctx context.Context, user *User) error {
	if user == nil {
		return c.ClearUser(ctx)
	}

	values := map[string]string{
		keyUserID:             user.ID,
		keyUserEmail:          user.Email,
		keyUserName:           user.Name,
		keyUserProfilePicture: user.ProfilePictureURL,
		keyUserEmailVerified:  strconv.FormatBool(user.IsEmailVerified),
		keyUserCreatedAt:      user.CreatedAt,
	}

	if err := c.writeSettings(ctx, values); err != nil {
		return err
	}

	saved := *user

	c.mu.Lock()
	c.user = &saved
	c.publishUserLocked()
	c.mu.Unlock()

	return nil
}

// ClearUser removes the cached profile and notifies observers with nil.
// Clearing an empty cache is a no-op.
func (c *BunProfileCache) ClearUser(ctx context.Context) error {
	err := c.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewDelete().
			Model((*settingRecord)(nil)).
			Where("key IN (?)", bun.In(userKeys)).
			Exec(ctx)
		return err
	})
	if err != nil {
		return StorageError(err, "failed to clear cached profile")
	}

	c.mu.Lock()
	c.user = nil
	c.publishUserLocked()
	c.mu.Unlock()

	return nil
}

// CurrentUser returns a copy of the cached profile, nil when none is cached.
func (c *BunProfileCache) CurrentUser() *User {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.user == nil {
		return nil
	}
	user := *c.user
	return &user
}

// Observe subscribes to profile changes. The current value (possibly nil) is
// delivered immediately.
func (c *BunProfileCache) Observe() *Subscription {
	ch := make(chan *User, 1)

	c.mu.Lock()
	id := uuid.New()
	c.subscribers[id] = ch
	if c.user != nil {
		user := *c.user
		ch <- &user
	} else {
		ch <- nil
	}
	c.mu.Unlock()

	return &Subscription{C: ch, cancel: func() { c.unsubscribe(id) }}
}

func (c *BunProfileCache) unsubscribe(id uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ch, ok := c.subscribers[id]; ok {
		delete(c.subscribers, id)
		close(ch)
	}
}

// ObserveFlags subscribes to app-flag changes with the same replay-latest
// semantics as Observe.
func (c *BunProfileCache) ObserveFlags() *FlagSubscription {
	ch := make(chan AppFlags, 1)

	c.mu.Lock()
	id := uuid.New()
	c.flagSubs[id] = ch
	ch <- c.flags
	c.mu.Unlock()

	return &FlagSubscription{C: ch, cancel: func() { c.unsubscribeFlags(id) }}
}

func (c *BunProfileCache) unsubscribeFlags(id uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ch, ok := c.flagSubs[id]; ok {
		delete(c.flagSubs, id)
		close(ch)
	}
}

// publishUserLocked fans the current profile out to subscribers. Channels
// hold one slot; a stale undelivered value is replaced by the newest one.
func (c *BunProfileCache) publishUserLocked() {
	for _, ch := range c.subscribers {
		var user *User
		if c.user != nil {
			u := *c.user
			user = &u
		}
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- user:
		default:
		}
	}
}

func (c *BunProfileCache) publishFlagsLocked() {
	for _, ch := range c.flagSubs {
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- c.flags:
		default:
		}
	}
}

// IsFirstLaunch defaults to true until SetFirstLaunchCompleted runs once.
func (c *BunProfileCache) IsFirstLaunch() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.flags.IsFirstLaunch
}

// SetFirstLaunchCompleted marks onboarding as done.
func (c *BunProfileCache) SetFirstLaunchCompleted(ctx context.Context) error {
	return c.setFlag(ctx, keyIsFirstLaunch, "false", func(f *AppFlags) {
		f.IsFirstLaunch = false
	})
}

// RememberMe defaults to false.
func (c *BunProfileCache) RememberMe() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.flags.RememberMe
}

func (c *BunProfileCache) SetRememberMe(ctx context.Context, remember bool) error {
	return c.setFlag(ctx, keyRememberMe, strconv.FormatBool(remember), func(f *AppFlags) {
		f.RememberMe = remember
	})
}

// BiometricEnabled defaults to false.
func (c *BunProfileCache) BiometricEnabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.flags.BiometricEnabled
}

func (c *BunProfileCache) SetBiometricEnabled(ctx context.Context, enabled bool) error {
	return c.setFlag(ctx, keyBiometricEnabled, strconv.FormatBool(enabled), func(f *AppFlags) {
		f.BiometricEnabled = enabled
	})
}

// ThemeMode defaults to "system".
func (c *BunProfileCache) ThemeMode() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.flags.ThemeMode
}

func (c *BunProfileCache) SetThemeMode(ctx context.Context, mode string) error {
	return c.setFlag(ctx, keyThemeMode, mode, func(f *AppFlags) {
		f.ThemeMode = mode
	})
}

func (c *BunProfileCache) setFlag(ctx context.Context, key, value string, apply func(*AppFlags)) error {
	if err := c.writeSettings(ctx, map[string]string{key: value}); err != nil {
		return err
	}

	c.mu.Lock()
	apply(&c.flags)
	c.publishFlagsLocked()
	c.mu.Unlock()

	return nil
}

func (c *BunProfileCache) writeSettings(ctx context.Context, values map[string]string) error {
	err := c.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		for key, value := range values {
			rec := &settingRecord{Key: key, Value: value}
			_, err := tx.NewInsert().
				Model(rec).
				On("CONFLICT (key) DO UPDATE").
				Set("value = EXCLUDED.value").
				Exec(ctx)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return StorageError(err, "failed to persist app settings")
	}
	return nil
}
