package authclient_test

import (
	"context"
	"errors"
	"testing"

	authclient "github.com/letsconnect/go-authclient"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestForgotPasswordCommand(t *testing.T) {
	api := &MockAPIClient{}
	gateway, _, _ := newTestGateway(api)
	handler := authclient.NewForgotPasswordHandler(gateway)

	api.On("ForgotPassword", mock.Anything, "pepe.rone@example.com").Return(nil).Once()

	var got *authclient.ForgotPasswordCommandResponse
	err := handler.Execute(context.Background(), authclient.ForgotPasswordMessage{
		Email:      " Pepe.Rone@Example.com ",
		OnResponse: func(resp *authclient.ForgotPasswordCommandResponse) { got = resp },
	})
	require.NoError(t, err)

	require.NotNil(t, got)
	assert.True(t, got.Success)
	assert.Equal(t, "pepe.rone@example.com", got.Email)
	assert.NotEqual(t, uuid.Nil, got.RequestID)
	api.AssertExpectations(t)
}

func TestForgotPasswordCommandRequestIDIsStable(t *testing.T) {
	api := &MockAPIClient{}
	gateway, _, _ := newTestGateway(api)
	handler := authclient.NewForgotPasswordHandler(gateway)

	api.On("ForgotPassword", mock.Anything, "pepe.rone@example.com").Return(nil).Twice()

	ids := make([]uuid.UUID, 0, 2)
	for i := 0; i < 2; i++ {
		err := handler.Execute(context.Background(), authclient.ForgotPasswordMessage{
			Email:      "pepe.rone@example.com",
			OnResponse: func(resp *authclient.ForgotPasswordCommandResponse) { ids = append(ids, resp.RequestID) },
		})
		require.NoError(t, err)
	}

	require.Len(t, ids, 2)
	assert.Equal(t, ids[0], ids[1])
}

func TestForgotPasswordCommandFailure(t *testing.T) {
	api := &MockAPIClient{}
	gateway, _, _ := newTestGateway(api)
	handler := authclient.NewForgotPasswordHandler(gateway)

	api.On("ForgotPassword", mock.Anything, "pepe.rone@example.com").
		Return(authclient.NetworkError(errors.New("timeout"), "request failed")).Once()

	var got *authclient.ForgotPasswordCommandResponse
	err := handler.Execute(context.Background(), authclient.ForgotPasswordMessage{
		Email:      "pepe.rone@example.com",
		OnResponse: func(resp *authclient.ForgotPasswordCommandResponse) { got = resp },
	})
	require.Error(t, err)

	require.NotNil(t, got)
	assert.False(t, got.Success)
	assert.Equal(t, "Failed to send reset email. Please try again.", got.Message)
}

func TestForgotPasswordCommandCancelledContext(t *testing.T) {
	api := &MockAPIClient{}
	gateway, _, _ := newTestGateway(api)
	handler := authclient.NewForgotPasswordHandler(gateway)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := handler.Execute(ctx, authclient.ForgotPasswordMessage{Email: "pepe.rone@example.com"})
	require.Error(t, err)
	api.AssertNotCalled(t, "ForgotPassword", mock.Anything, mock.Anything)
}

func TestForgotPasswordMessageType(t *testing.T) {
	assert.Equal(t, "session.forgot_password", authclient.ForgotPasswordMessage{}.Type())
}
