package authclient

import (
	"context"
)

// SessionFlow drives the SessionStateMachine from gateway outcomes so the
// presentation layer only observes phases. The flow owns the ordering of
// machine transitions around each gateway call; callers that need the raw
// machine can reach it through Machine.
type SessionFlow struct {
	gateway *SessionGateway
	machine *SessionStateMachine
	logger  Logger
}

// SessionFlowOption customizes flow construction.
type SessionFlowOption func(*SessionFlow)

// WithSessionFlowLogger overrides the flow logger.
func WithSessionFlowLogger(logger Logger) SessionFlowOption {
	return func(f *SessionFlow) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// WithSessionFlowMachine attaches an externally constructed machine, for
// callers that already hand observers out before building the flow.
func WithSessionFlowMachine(machine *SessionStateMachine) SessionFlowOption {
	return func(f *SessionFlow) {
		if machine != nil {
			f.machine = machine
		}
	}
}

// NewSessionFlow wires a flow to its gateway with a fresh state machine.
func NewSessionFlow(gateway *SessionGateway, opts ...SessionFlowOption) *SessionFlow {
	flow := &SessionFlow{
		gateway: gateway,
		machine: NewSessionStateMachine(),
		logger:  defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(flow)
		}
	}

	return flow
}

// Machine exposes the underlying state machine.
func (f *SessionFlow) Machine() *SessionStateMachine {
	return f.machine
}

// Current returns the latest session state.
func (f *SessionFlow) Current() SessionState {
	return f.machine.Current()
}

// Observe subscribes to session state changes with replay-latest semantics.
func (f *SessionFlow) Observe() *SessionObserver {
	return f.machine.Observe()
}

// Start evaluates the stored session at process start. A valid stored token
// enters loading and refetches the profile; no stored token lands in logged
// out. A fetch failure settles in failed with the credentials untouched, so
// a transient outage at launch never destroys a valid session; Retry
// re-enters loading from there. Only the shell refresh path treats a fetch
// failure as expiry.
func (f *SessionFlow) Start(ctx context.Context) error {
	if !f.gateway.HasValidSession() {
		return f.machine.MarkLoggedOut()
	}

	if err := f.machine.MarkLoading(); err != nil {
		return err
	}

	user, err := f.gateway.FetchProfile(ctx)
	if err != nil {
		f.logger.Warn("profile fetch failed during session restore: %v", err)
		return f.machine.MarkFailed(UserMessage(err, "Failed to get user"))
	}

	token, _ := f.gateway.AccessToken()
	return f.machine.MarkAuthenticated(&AuthResponse{User: user, AccessToken: token})
}

// Login runs the login operation through the machine: loading, then
// authenticated or failed. The returned error is the gateway error, so
// callers can still classify it; the machine already carries the
// user-facing message.
func (f *SessionFlow) Login(ctx context.Context, email, password string) error {
	if err := f.machine.MarkLoading(); err != nil {
		return err
	}

	resp, err := f.gateway.Login(ctx, email, password)
	if err != nil {
		if markErr := f.machine.MarkFailed(UserMessage(err, "Login failed. Please try again.")); markErr != nil {
			return markErr
		}
		return err
	}

	return f.machine.MarkAuthenticated(resp)
}

// Register runs the registration operation through the machine.
func (f *SessionFlow) Register(ctx context.Context, email, password, confirmPassword, name string) error {
	if err := f.machine.MarkLoading(); err != nil {
		return err
	}

	resp, err := f.gateway.Register(ctx, email, password, confirmPassword, name)
	if err != nil {
		if markErr := f.machine.MarkFailed(UserMessage(err, "Registration failed. Please try again.")); markErr != nil {
			return markErr
		}
		return err
	}

	return f.machine.MarkAuthenticated(resp)
}

// Retry re-evaluates the stored session after a failure.
func (f *SessionFlow) Retry(ctx context.Context) error {
	return f.Start(ctx)
}

// Logout signs out through the gateway and settles the machine in logged
// out. Like the gateway, it succeeds even when the backend call fails.
func (f *SessionFlow) Logout(ctx context.Context) error {
	if err := f.gateway.Logout(ctx); err != nil {
		return err
	}
	return f.machine.MarkLoggedOut()
}

// FollowSignOuts consumes forced sign-out events, typically from a
// ShellFlow, until ctx is done or the channel closes. Run it on its own
// goroutine. Events arriving while the machine is already logged out are
// dropped.
func (f *SessionFlow) FollowSignOuts(ctx context.Context, signOuts <-chan struct{}) {
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-signOuts:
			if !ok {
				return
			}
			f.forceLoggedOut()
		}
	}
}

func (f *SessionFlow) forceLoggedOut() {
	if f.machine.Current().Phase == SessionLoggedOut {
		return
	}
	if err := f.machine.MarkLoggedOut(); err != nil {
		f.logger.Debug("forced sign-out dropped: %v", err)
	}
}

// ShellFlow drives the ShellStateMachine for the authenticated shell. Its
// one coupling to the session level is the sign-out channel: a failed
// profile refresh clears the session and emits an event the SessionFlow
// consumes, so stale credentials sign the whole application out.
type ShellFlow struct {
	gateway *SessionGateway
	machine *ShellStateMachine
	logger  Logger
	signOut chan struct{}
}

// ShellFlowOption customizes shell flow construction.
type ShellFlowOption func(*ShellFlow)

// WithShellFlowLogger overrides the shell flow logger.
func WithShellFlowLogger(logger Logger) ShellFlowOption {
	return func(f *ShellFlow) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// WithShellFlowMachine attaches an externally constructed shell machine.
func WithShellFlowMachine(machine *ShellStateMachine) ShellFlowOption {
	return func(f *ShellFlow) {
		if machine != nil {
			f.machine = machine
		}
	}
}

// NewShellFlow wires a shell flow to its gateway with a fresh machine.
func NewShellFlow(gateway *SessionGateway, opts ...ShellFlowOption) *ShellFlow {
	flow := &ShellFlow{
		gateway: gateway,
		machine: NewShellStateMachine(),
		logger:  defLogger{},
		signOut: make(chan struct{}, 1),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(flow)
		}
	}

	return flow
}

// Machine exposes the underlying shell machine.
func (f *ShellFlow) Machine() *ShellStateMachine {
	return f.machine
}

// Current returns the latest shell state.
func (f *ShellFlow) Current() ShellState {
	return f.machine.Current()
}

// Observe subscribes to shell state changes with replay-latest semantics.
func (f *ShellFlow) Observe() *ShellObserver {
	return f.machine.Observe()
}

// SignOuts emits one event per refresh failure. The channel is buffered and
// never closed; pending events coalesce, matching the consumer's
// at-most-one reaction.
func (f *ShellFlow) SignOuts() <-chan struct{} {
	return f.signOut
}

// RefreshUser refetches the authenticated profile. A failure is treated as
// session expiry: local state is cleared, the shell settles in logged out,
// and a sign-out event is emitted for the session level.
func (f *ShellFlow) RefreshUser(ctx context.Context) error {
	f.machine.Apply(SessionState{Phase: SessionLoading})

	user, err := f.gateway.FetchProfile(ctx)
	if err != nil {
		f.logger.Warn("profile refresh failed, treating as session expiry: %v", err)
		if clearErr := f.gateway.ClearSession(ctx); clearErr != nil {
			f.logger.Error("failed to clear expired session: %v", clearErr)
		}
		f.machine.Apply(SessionState{Phase: SessionLoggedOut})
		select {
		case f.signOut <- struct{}{}:
		default:
		}
		return err
	}

	f.machine.Apply(SessionState{
		Phase:   SessionAuthenticated,
		Session: &AuthResponse{User: user},
	})
	return nil
}
