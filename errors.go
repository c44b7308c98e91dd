package authclient

import (
	"github.com/goliatone/go-errors"
)

const (
	TextCodeValidationFailed = "auth_validation_failed"
	TextCodeNetworkError     = "auth_network_error"
	TextCodeHTTPError        = "auth_http_error"
	TextCodeEmptyBody        = "auth_empty_response_body"
	TextCodeNoCredentials    = "auth_no_credentials"
	TextCodeStorageError     = "auth_storage_error"
	TextCodeDecodeError      = "auth_decode_error"
)

// ErrNoAccessToken is returned when an operation needs a stored access token
// and none is present. No network call is attempted.
var ErrNoAccessToken = errors.New("no access token available", errors.CategoryAuth).
	WithTextCode(TextCodeNoCredentials).
	WithCode(errors.CodeUnauthorized)

// ErrNoRefreshToken is returned when a refresh is requested without a stored
// refresh token (e.g. after a token-only login).
var ErrNoRefreshToken = errors.New("no refresh token available", errors.CategoryAuth).
	WithTextCode(TextCodeNoCredentials).
	WithCode(errors.CodeUnauthorized)

// ErrEmptyResponseBody is returned when a profile-bearing endpoint answers
// 2xx with no payload.
var ErrEmptyResponseBody = errors.New("empty response body", errors.CategoryBadInput).
	WithTextCode(TextCodeEmptyBody).
	WithCode(errors.CodeBadRequest)

// NetworkError wraps a transport failure. Timeouts are not distinguished
// from other transport errors; the caller sees one category.
func NetworkError(err error, msg string) *errors.Error {
	return errors.Wrap(err, errors.CategoryOperation, msg).
		WithTextCode(TextCodeNetworkError)
}

// HTTPError captures a non-2xx response with its status and server message.
func HTTPError(status int, serverMessage, msg string) *errors.Error {
	category := errors.CategoryInternal
	if status == 401 || status == 403 {
		category = errors.CategoryAuth
	}
	return errors.New(msg, category).
		WithTextCode(TextCodeHTTPError).
		WithMetadata(map[string]any{
			"status":  status,
			"message": serverMessage,
		})
}

// ValidationError carries a field-level rejection. It never reaches the
// network layer.
func ValidationError(field, msg string) *errors.Error {
	return errors.New(msg, errors.CategoryValidation).
		WithTextCode(TextCodeValidationFailed).
		WithCode(errors.CodeBadRequest).
		WithMetadata(map[string]any{"field": field})
}

// decodeError wraps a wire encode/decode failure.
func decodeError(err error, msg string) *errors.Error {
	return errors.Wrap(err, errors.CategoryBadInput, msg).
		WithTextCode(TextCodeDecodeError)
}

// StorageError wraps a local persistence failure.
func StorageError(err error, msg string) *errors.Error {
	return errors.Wrap(err, errors.CategoryInternal, msg).
		WithTextCode(TextCodeStorageError)
}

func hasTextCode(err error, code string) bool {
	if err == nil {
		return false
	}
	var richErr *errors.Error
	if errors.As(err, &richErr) {
		return richErr.TextCode == code
	}
	return false
}

// IsValidationError reports whether err is a local validation rejection.
func IsValidationError(err error) bool {
	return hasTextCode(err, TextCodeValidationFailed)
}

// IsNetworkError reports whether err came from the transport layer.
func IsNetworkError(err error) bool {
	return hasTextCode(err, TextCodeNetworkError)
}

// IsNoCredentialError reports whether err was raised before any network call
// because a required token was absent.
func IsNoCredentialError(err error) bool {
	return hasTextCode(err, TextCodeNoCredentials)
}

// IsEmptyBodyError reports whether err came from a 2xx response with no body.
func IsEmptyBodyError(err error) bool {
	return hasTextCode(err, TextCodeEmptyBody)
}

// IsHTTPError reports whether err wraps a non-2xx response. When true, the
// second return is the status code.
func IsHTTPError(err error) (bool, int) {
	if err == nil {
		return false, 0
	}
	var richErr *errors.Error
	if errors.As(err, &richErr) && richErr.TextCode == TextCodeHTTPError {
		if status, ok := richErr.Metadata["status"].(int); ok {
			return true, status
		}
		return true, 0
	}
	return false, 0
}

// UserMessage returns the pre-formatted human-readable message carried by a
// rich error, or fallback when err has none. Validation messages always win
// because they are written for the field the user just touched.
func UserMessage(err error, fallback string) string {
	if err == nil {
		return ""
	}
	var richErr *errors.Error
	if errors.As(err, &richErr) {
		if richErr.Category == errors.CategoryValidation && richErr.Message != "" {
			return richErr.Message
		}
		if msg, ok := richErr.Metadata["user_message"].(string); ok && msg != "" {
			return msg
		}
	}
	return fallback
}

// WithUserMessage attaches a user-facing message to a rich error so the state
// machine can surface it without re-deriving per-operation wording.
func WithUserMessage(err *errors.Error, msg string) *errors.Error {
	if err == nil {
		return nil
	}
	// WithMetadata mutates its receiver, so sentinels like ErrNoRefreshToken
	// must be cloned before the per-call message is attached
	clone := err.Clone()
	meta := make(map[string]any, len(clone.Metadata)+1)
	for k, v := range clone.Metadata {
		meta[k] = v
	}
	meta["user_message"] = msg
	return clone.WithMetadata(meta)
}
