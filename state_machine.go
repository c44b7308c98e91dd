package authclient

import (
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
)

const textCodeInvalidSessionTransition = "INVALID_SESSION_TRANSITION"

// ErrInvalidSessionTransition is returned when a requested phase change is not allowed.
var ErrInvalidSessionTransition = goerrors.New("invalid session state transition", goerrors.CategoryValidation).
	WithTextCode(textCodeInvalidSessionTransition).
	WithCode(goerrors.CodeBadRequest)

// SessionPhase identifies where the authentication flow currently sits.
type SessionPhase string

const (
	SessionInitial       SessionPhase = "initial"
	SessionLoading       SessionPhase = "loading"
	SessionAuthenticated SessionPhase = "authenticated"
	SessionFailed        SessionPhase = "failed"
	SessionLoggedOut     SessionPhase = "logged_out"
)

// SessionState is a phase plus its payload. Session carries data only in the
// authenticated phase; Message only in the failed phase.
type SessionState struct {
	Phase   SessionPhase
	Session *AuthResponse
	Message string
}

// ShellPhase identifies what the top-level application surface should show.
type ShellPhase string

const (
	ShellLoading   ShellPhase = "loading"
	ShellSuccess   ShellPhase = "success"
	ShellError     ShellPhase = "error"
	ShellLoggedOut ShellPhase = "logged_out"
)

// ShellState is a shell phase plus its payload.
type ShellState struct {
	Phase   ShellPhase
	User    *User
	Message string
}

// SessionObserver receives session state changes with replay-latest
// semantics: a new subscriber immediately sees the current state.
type SessionObserver struct {
	C      <-chan SessionState
	cancel func()
}

// Cancel detaches the observer and closes its channel. Buffered values may
// still be read before the close is observed.
func (o *SessionObserver) Cancel() {
	if o.cancel != nil {
		o.cancel()
	}
}

// StateMachineOption customizes state machine construction.
type StateMachineOption func(*SessionStateMachine)

// WithStateMachineLogger overrides the logger used for transition traces.
func WithStateMachineLogger(logger Logger) StateMachineOption {
	return func(sm *SessionStateMachine) {
		if logger != nil {
			sm.logger = logger
		}
	}
}

// WithStateMachineClock injects a custom clock (useful for tests).
func WithStateMachineClock(clock func() time.Time) StateMachineOption {
	return func(sm *SessionStateMachine) {
		if clock != nil {
			sm.now = clock
		}
	}
}

// SessionStateMachine tracks the authentication flow through its phases and
// publishes every accepted transition to its observers.
//
// The phase graph:
//
//	initial       -> loading | logged_out
//	loading       -> authenticated | failed | logged_out
//	authenticated -> loading | logged_out
//	failed        -> loading | logged_out
//	logged_out    -> loading
//
// A refresh failure lands in logged_out rather than failed: stale
// credentials are not an error the user can retry past, they need to sign
// in again.
type SessionStateMachine struct {
	mu          sync.RWMutex
	state       SessionState
	transitions map[SessionPhase]map[SessionPhase]struct{}
	observers   map[int]chan SessionState
	nextID      int
	logger      Logger
	now         func() time.Time
}

// NewSessionStateMachine returns a machine starting in the initial phase.
func NewSessionStateMachine(opts ...StateMachineOption) *SessionStateMachine {
	sm := &SessionStateMachine{
		state: SessionState{Phase: SessionInitial},
		transitions: map[SessionPhase]map[SessionPhase]struct{}{
			SessionInitial: {
				SessionLoading:   {},
				SessionLoggedOut: {},
			},
			SessionLoading: {
				SessionAuthenticated: {},
				SessionFailed:        {},
				SessionLoggedOut:     {},
			},
			SessionAuthenticated: {
				SessionLoading:   {},
				SessionLoggedOut: {},
			},
			SessionFailed: {
				SessionLoading:   {},
				SessionLoggedOut: {},
			},
			SessionLoggedOut: {
				SessionLoading: {},
			},
		},
		observers: map[int]chan SessionState{},
		logger:    defLogger{},
		now:       time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(sm)
		}
	}

	return sm
}

// Current returns the latest accepted state.
func (sm *SessionStateMachine) Current() SessionState {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.state
}

// Observe subscribes to state changes. The current state is replayed
// immediately; a slow consumer only ever misses intermediate states, never
// the latest one.
func (sm *SessionStateMachine) Observe() *SessionObserver {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan SessionState, 1)
	ch <- sm.state

	id := sm.nextID
	sm.nextID++
	sm.observers[id] = ch

	return &SessionObserver{C: ch, cancel: func() { sm.unsubscribe(id) }}
}

func (sm *SessionStateMachine) unsubscribe(id int) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if ch, ok := sm.observers[id]; ok {
		delete(sm.observers, id)
		close(ch)
	}
}

// MarkLoading enters the loading phase ahead of a network operation.
func (sm *SessionStateMachine) MarkLoading() error {
	return sm.transition(SessionState{Phase: SessionLoading})
}

// MarkAuthenticated records a successful login, registration, or refresh.
func (sm *SessionStateMachine) MarkAuthenticated(session *AuthResponse) error {
	return sm.transition(SessionState{Phase: SessionAuthenticated, Session: session})
}

// MarkFailed records a recoverable failure with a user-facing message.
func (sm *SessionStateMachine) MarkFailed(message string) error {
	return sm.transition(SessionState{Phase: SessionFailed, Message: message})
}

// MarkLoggedOut records an explicit or implicit sign-out.
func (sm *SessionStateMachine) MarkLoggedOut() error {
	return sm.transition(SessionState{Phase: SessionLoggedOut})
}

func (sm *SessionStateMachine) transition(target SessionState) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	from := sm.state.Phase
	if !sm.canTransition(from, target.Phase) {
		// WithMetadata mutates its receiver; the sentinel must stay pristine
		return ErrInvalidSessionTransition.Clone().WithMetadata(map[string]any{
			"from": string(from),
			"to":   string(target.Phase),
		})
	}

	sm.state = target
	sm.logger.Debug("session %s -> %s %s", from, target.Phase, print.MaybePrettyJSON(map[string]any{
		"at":      sm.now().Format(time.RFC3339),
		"message": target.Message,
	}))

	for _, ch := range sm.observers {
		select {
		case <-ch:
		default:
		}
		ch <- target
	}

	return nil
}

func (sm *SessionStateMachine) canTransition(from, to SessionPhase) bool {
	if allowed, ok := sm.transitions[from]; ok {
		_, exists := allowed[to]
		return exists
	}
	return false
}

// ShellStateMachine derives the top-level application surface from session
// activity. It starts in loading while the stored session is evaluated.
type ShellStateMachine struct {
	mu        sync.RWMutex
	state     ShellState
	observers map[int]chan ShellState
	nextID    int
	logger    Logger
}

// ShellOption customizes shell machine construction.
type ShellOption func(*ShellStateMachine)

// WithShellLogger overrides the shell machine logger.
func WithShellLogger(logger Logger) ShellOption {
	return func(sm *ShellStateMachine) {
		if logger != nil {
			sm.logger = logger
		}
	}
}

// NewShellStateMachine returns a machine starting in the loading phase.
func NewShellStateMachine(opts ...ShellOption) *ShellStateMachine {
	sm := &ShellStateMachine{
		state:     ShellState{Phase: ShellLoading},
		observers: map[int]chan ShellState{},
		logger:    defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(sm)
		}
	}

	return sm
}

// Current returns the latest shell state.
func (sm *ShellStateMachine) Current() ShellState {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.state
}

// ShellObserver receives shell state changes with replay-latest semantics.
type ShellObserver struct {
	C      <-chan ShellState
	cancel func()
}

// Cancel detaches the observer.
func (o *ShellObserver) Cancel() {
	if o.cancel != nil {
		o.cancel()
	}
}

// Observe subscribes to shell state changes, replaying the current state.
func (sm *ShellStateMachine) Observe() *ShellObserver {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan ShellState, 1)
	ch <- sm.state

	id := sm.nextID
	sm.nextID++
	sm.observers[id] = ch

	return &ShellObserver{C: ch, cancel: func() { sm.unsubscribe(id) }}
}

func (sm *ShellStateMachine) unsubscribe(id int) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if ch, ok := sm.observers[id]; ok {
		delete(sm.observers, id)
		close(ch)
	}
}

// Apply folds a session state into the shell surface. Every session phase
// has a shell rendering, so Apply never rejects input. A logged-out session
// forces the shell to logged_out even when it was previously in success,
// which is how a failed refresh signs the whole application out.
func (sm *ShellStateMachine) Apply(state SessionState) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	target := sm.state
	switch state.Phase {
	case SessionInitial, SessionLoading:
		target = ShellState{Phase: ShellLoading}
	case SessionAuthenticated:
		var user *User
		if state.Session != nil {
			user = state.Session.User
		}
		target = ShellState{Phase: ShellSuccess, User: user}
	case SessionFailed:
		target = ShellState{Phase: ShellError, Message: state.Message}
	case SessionLoggedOut:
		target = ShellState{Phase: ShellLoggedOut}
	}

	if target.Phase == sm.state.Phase && target.User == sm.state.User && target.Message == sm.state.Message {
		return
	}

	sm.logger.Debug("shell %s -> %s", sm.state.Phase, target.Phase)
	sm.state = target

	for _, ch := range sm.observers {
		select {
		case <-ch:
		default:
		}
		ch <- target
	}
}

// Follow consumes a session observer until it is cancelled, folding each
// session state into the shell. Run it on its own goroutine.
func (sm *ShellStateMachine) Follow(observer *SessionObserver) {
	for state := range observer.C {
		sm.Apply(state)
	}
}
