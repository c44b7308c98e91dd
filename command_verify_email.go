package authclient

import (
	"context"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

type VerifyEmailMessage struct {
	Code       string `json:"code"`
	OnResponse func(resp *VerifyEmailCommandResponse)
}

func (e VerifyEmailMessage) Type() string { return "session.verify_email" }

type VerifyEmailCommandResponse struct {
	// User is the refetched profile when the post-verification refresh
	// succeeds, nil otherwise. Verification itself may still have succeeded
	// with a nil User.
	User    *User
	Success bool
	Message string
}

type VerifyEmailHandler struct {
	gateway *SessionGateway
	logger  Logger
}

func NewVerifyEmailHandler(gateway *SessionGateway, logger Logger) *VerifyEmailHandler {
	if logger == nil {
		logger = defLogger{}
	}
	return &VerifyEmailHandler{gateway: gateway, logger: logger}
}

func (h *VerifyEmailHandler) Execute(ctx context.Context, event VerifyEmailMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during email verification",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *VerifyEmailHandler) execute(ctx context.Context, event VerifyEmailMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	resp := &VerifyEmailCommandResponse{}

	err := h.gateway.VerifyEmail(ctx, strings.TrimSpace(event.Code))
	if err != nil {
		resp.Message = UserMessage(err, "Email verification failed. Please try again.")
		if event.OnResponse != nil {
			event.OnResponse(resp)
		}
		return err
	}

	resp.Success = true
	resp.Message = "Email verified"

	// The verified flag only flips server-side; refetch so the cache
	// reflects it. A refetch failure does not undo the verification.
	if user, err := h.gateway.FetchProfile(ctx); err != nil {
		h.logger.Warn("profile refresh after verification failed: %v", err)
	} else {
		resp.User = user
	}

	if event.OnResponse != nil {
		event.OnResponse(resp)
	}

	return nil
}
