package authclient_test

import (
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"
	authclient "github.com/letsconnect/go-authclient"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receiveSessionState(t *testing.T, ch <-chan authclient.SessionState) authclient.SessionState {
	t.Helper()

	select {
	case state := <-ch:
		return state
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for session state")
		return authclient.SessionState{}
	}
}

func receiveShellState(t *testing.T, ch <-chan authclient.ShellState) authclient.ShellState {
	t.Helper()

	select {
	case state := <-ch:
		return state
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for shell state")
		return authclient.ShellState{}
	}
}

func TestSessionStateMachineStartsInitial(t *testing.T) {
	sm := authclient.NewSessionStateMachine()
	assert.Equal(t, authclient.SessionInitial, sm.Current().Phase)
}

func TestSessionStateMachineHappyPath(t *testing.T) {
	sm := authclient.NewSessionStateMachine()

	require.NoError(t, sm.MarkLoading())
	require.NoError(t, sm.MarkAuthenticated(authResponseFixture()))

	state := sm.Current()
	assert.Equal(t, authclient.SessionAuthenticated, state.Phase)
	require.NotNil(t, state.Session)
	assert.Equal(t, "user-1", state.Session.User.ID)
}

func TestSessionStateMachineFailureCarriesMessage(t *testing.T) {
	sm := authclient.NewSessionStateMachine()

	require.NoError(t, sm.MarkLoading())
	require.NoError(t, sm.MarkFailed("Login failed. Please try again."))

	state := sm.Current()
	assert.Equal(t, authclient.SessionFailed, state.Phase)
	assert.Equal(t, "Login failed. Please try again.", state.Message)
	assert.Nil(t, state.Session)
}

func TestSessionStateMachineRejectsInvalidTransitions(t *testing.T) {
	cases := []struct {
		name  string
		setup func(sm *authclient.SessionStateMachine)
		run   func(sm *authclient.SessionStateMachine) error
		phase authclient.SessionPhase
	}{
		{
			name:  "initial to authenticated",
			run:   func(sm *authclient.SessionStateMachine) error { return sm.MarkAuthenticated(authResponseFixture()) },
			phase: authclient.SessionInitial,
		},
		{
			name:  "initial to failed",
			run:   func(sm *authclient.SessionStateMachine) error { return sm.MarkFailed("boom") },
			phase: authclient.SessionInitial,
		},
		{
			name: "logged out to authenticated",
			setup: func(sm *authclient.SessionStateMachine) {
				require.NoError(t, sm.MarkLoading())
				require.NoError(t, sm.MarkLoggedOut())
			},
			run:   func(sm *authclient.SessionStateMachine) error { return sm.MarkAuthenticated(authResponseFixture()) },
			phase: authclient.SessionLoggedOut,
		},
		{
			name: "authenticated to failed",
			setup: func(sm *authclient.SessionStateMachine) {
				require.NoError(t, sm.MarkLoading())
				require.NoError(t, sm.MarkAuthenticated(authResponseFixture()))
			},
			run:   func(sm *authclient.SessionStateMachine) error { return sm.MarkFailed("boom") },
			phase: authclient.SessionAuthenticated,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sm := authclient.NewSessionStateMachine()
			if tc.setup != nil {
				tc.setup(sm)
			}
			err := tc.run(sm)
			require.Error(t, err)
			assert.ErrorIs(t, err, authclient.ErrInvalidSessionTransition)
			assert.Equal(t, tc.phase, sm.Current().Phase)
		})
	}
}

func TestSessionStateMachineRetryAfterFailure(t *testing.T) {
	sm := authclient.NewSessionStateMachine()

	require.NoError(t, sm.MarkLoading())
	require.NoError(t, sm.MarkFailed("boom"))
	require.NoError(t, sm.MarkLoading())
	require.NoError(t, sm.MarkAuthenticated(authResponseFixture()))

	assert.Equal(t, authclient.SessionAuthenticated, sm.Current().Phase)
}

func TestSessionStateMachineReloginAfterLogout(t *testing.T) {
	sm := authclient.NewSessionStateMachine()

	require.NoError(t, sm.MarkLoading())
	require.NoError(t, sm.MarkAuthenticated(authResponseFixture()))
	require.NoError(t, sm.MarkLoggedOut())
	require.NoError(t, sm.MarkLoading())

	assert.Equal(t, authclient.SessionLoading, sm.Current().Phase)
}

func TestSessionStateMachineRefreshFailureIsLoggedOut(t *testing.T) {
	sm := authclient.NewSessionStateMachine()

	require.NoError(t, sm.MarkLoading())
	require.NoError(t, sm.MarkAuthenticated(authResponseFixture()))

	// a refresh attempt re-enters loading; its failure is a logout, not a
	// retryable error
	require.NoError(t, sm.MarkLoading())
	require.NoError(t, sm.MarkLoggedOut())

	assert.Equal(t, authclient.SessionLoggedOut, sm.Current().Phase)
}

func TestSessionStateMachineObserverReplaysAndFollows(t *testing.T) {
	sm := authclient.NewSessionStateMachine()

	observer := sm.Observe()
	defer observer.Cancel()

	assert.Equal(t, authclient.SessionInitial, receiveSessionState(t, observer.C).Phase)

	require.NoError(t, sm.MarkLoading())
	assert.Equal(t, authclient.SessionLoading, receiveSessionState(t, observer.C).Phase)
}

func TestSessionStateMachineSlowObserverSeesLatest(t *testing.T) {
	sm := authclient.NewSessionStateMachine()

	observer := sm.Observe()
	defer observer.Cancel()

	// no reads between transitions; only the newest state must survive
	require.NoError(t, sm.MarkLoading())
	require.NoError(t, sm.MarkAuthenticated(authResponseFixture()))

	assert.Equal(t, authclient.SessionAuthenticated, receiveSessionState(t, observer.C).Phase)
}

func TestShellStateMachineStartsLoading(t *testing.T) {
	sm := authclient.NewShellStateMachine()
	assert.Equal(t, authclient.ShellLoading, sm.Current().Phase)
}

func TestShellStateMachineMapsSessionStates(t *testing.T) {
	sm := authclient.NewShellStateMachine()

	sm.Apply(authclient.SessionState{Phase: authclient.SessionAuthenticated, Session: authResponseFixture()})
	state := sm.Current()
	assert.Equal(t, authclient.ShellSuccess, state.Phase)
	require.NotNil(t, state.User)
	assert.Equal(t, "user-1", state.User.ID)

	sm.Apply(authclient.SessionState{Phase: authclient.SessionFailed, Message: "boom"})
	state = sm.Current()
	assert.Equal(t, authclient.ShellError, state.Phase)
	assert.Equal(t, "boom", state.Message)

	sm.Apply(authclient.SessionState{Phase: authclient.SessionLoggedOut})
	assert.Equal(t, authclient.ShellLoggedOut, sm.Current().Phase)
}

func TestShellStateMachineRefreshFailureForcesLogout(t *testing.T) {
	shell := authclient.NewShellStateMachine()

	shell.Apply(authclient.SessionState{Phase: authclient.SessionAuthenticated, Session: authResponseFixture()})
	require.Equal(t, authclient.ShellSuccess, shell.Current().Phase)

	// the session machine reports a failed refresh as logged_out; the shell
	// must leave success and sign the whole surface out
	shell.Apply(authclient.SessionState{Phase: authclient.SessionLoggedOut})
	assert.Equal(t, authclient.ShellLoggedOut, shell.Current().Phase)
}

func TestShellStateMachineFollowsSessionMachine(t *testing.T) {
	session := authclient.NewSessionStateMachine()
	shell := authclient.NewShellStateMachine()

	observer := session.Observe()
	done := make(chan struct{})
	go func() {
		shell.Follow(observer)
		close(done)
	}()

	require.NoError(t, session.MarkLoading())
	require.NoError(t, session.MarkAuthenticated(authResponseFixture()))

	sub := shell.Observe()
	defer sub.Cancel()

	deadline := time.After(time.Second)
	for {
		state := shell.Current()
		if state.Phase == authclient.ShellSuccess {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("shell never reached success, stuck in %s", state.Phase)
		case <-time.After(5 * time.Millisecond):
		}
	}

	observer.Cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("follower did not stop after cancel")
	}
}

func TestSessionStateMachineTransitionErrorsDoNotAlias(t *testing.T) {
	a := authclient.NewSessionStateMachine()
	b := authclient.NewSessionStateMachine()

	errA := a.MarkFailed("boom")
	errB := b.MarkAuthenticated(authResponseFixture())
	require.Error(t, errA)
	require.Error(t, errB)

	var richA, richB *goerrors.Error
	require.True(t, goerrors.As(errA, &richA))
	require.True(t, goerrors.As(errB, &richB))

	// each rejection carries its own metadata; one machine's failure must
	// not rewrite an error another caller already holds
	assert.NotSame(t, richA, richB)
	assert.Equal(t, "failed", richA.Metadata["to"])
	assert.Equal(t, "authenticated", richB.Metadata["to"])
	assert.ErrorIs(t, errA, authclient.ErrInvalidSessionTransition)
	assert.ErrorIs(t, errB, authclient.ErrInvalidSessionTransition)
}
