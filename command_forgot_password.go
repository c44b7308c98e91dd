package authclient

import (
	"context"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
)

type ForgotPasswordMessage struct {
	Email      string `json:"email"`
	OnResponse func(resp *ForgotPasswordCommandResponse)
}

func (e ForgotPasswordMessage) Type() string { return "session.forgot_password" }

type ForgotPasswordCommandResponse struct {
	// RequestID is derived from the email so repeated requests for the same
	// address can be correlated and throttled by the caller.
	RequestID uuid.UUID
	Email     string
	Success   bool
	Message   string
}

type ForgotPasswordHandler struct {
	gateway *SessionGateway
}

func NewForgotPasswordHandler(gateway *SessionGateway) *ForgotPasswordHandler {
	return &ForgotPasswordHandler{gateway: gateway}
}

func (h *ForgotPasswordHandler) Execute(ctx context.Context, event ForgotPasswordMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during password reset request",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *ForgotPasswordHandler) execute(ctx context.Context, event ForgotPasswordMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	resp := &ForgotPasswordCommandResponse{
		Email: normalizeEmail(event.Email),
	}

	if id, err := hashid.NewUUID(resp.Email); err == nil {
		resp.RequestID = id
	}

	err := h.gateway.ForgotPassword(ctx, strings.TrimSpace(event.Email))
	if err != nil {
		resp.Message = UserMessage(err, "Failed to send reset email. Please try again.")
	} else {
		resp.Success = true
		resp.Message = "Password reset email sent"
	}

	if event.OnResponse != nil {
		event.OnResponse(resp)
	}

	return err
}
