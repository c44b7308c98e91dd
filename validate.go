package authclient

import (
	"errors"
	"sort"
	"strings"
	"unicode"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

// LoginRequest carries a login attempt through validation.
type LoginRequest struct {
	Email    string
	Password string
}

// Validate will run validation rules
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Email,
			validation.Required.Error("Email is required"),
			is.Email.Error("Please enter a valid email address"),
		),
		validation.Field(
			&r.Password,
			validation.Required.Error("Password is required"),
			validation.RuneLength(6, 0).Error("Password must be at least 6 characters"),
		),
	)
}

// RegisterRequest carries a registration attempt through validation.
// Registration passwords are held to a stricter standard than login
// passwords because this is where the credential is created.
type RegisterRequest struct {
	Name            string
	Email           string
	Password        string
	ConfirmPassword string
}

// Validate will run validation rules
func (r RegisterRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Name,
			validation.Required.Error("Name is required"),
			validation.RuneLength(2, 0).Error("Name must be at least 2 characters"),
			validation.RuneLength(0, 50).Error("Name must be less than 50 characters"),
		),
		validation.Field(
			&r.Email,
			validation.Required.Error("Email is required"),
			is.Email.Error("Please enter a valid email address"),
		),
		validation.Field(
			&r.Password,
			validation.Required.Error("Password is required"),
			validation.RuneLength(8, 0).Error("Password must be at least 8 characters"),
			validation.By(ValidateStrongPassword),
		),
		validation.Field(
			&r.ConfirmPassword,
			validation.Required.Error("Please confirm your password"),
			validation.By(ValidateStringEquals(r.Password, "Passwords do not match")),
		),
	)
}

// ForgotPasswordRequest carries a password-reset initiation through validation.
type ForgotPasswordRequest struct {
	Email string
}

// Validate will run validation rules
func (r ForgotPasswordRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Email,
			validation.Required.Error("Email is required"),
			is.Email.Error("Please enter a valid email address"),
		),
	)
}

// VerifyEmailRequest carries an email-verification code through validation.
type VerifyEmailRequest struct {
	Code string
}

// Validate will run validation rules
func (r VerifyEmailRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Code,
			validation.Required.Error("Verification code is required"),
			validation.RuneLength(6, 6).Error("Verification code must be 6 digits"),
			is.Digit.Error("Verification code must contain only numbers"),
		),
	)
}

// ValidateStringEquals will check that both values match
func ValidateStringEquals(str, msg string) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if s != str {
			return errors.New(msg)
		}
		return nil
	}
}

// ValidateStrongPassword requires at least one uppercase letter, one
// lowercase letter, and one digit.
func ValidateStrongPassword(value any) error {
	password, _ := value.(string)

	var hasUpper, hasLower, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}

	if !hasUpper || !hasLower || !hasDigit {
		return errors.New("Password must contain at least one uppercase letter, one lowercase letter, and one number")
	}

	return nil
}

// FieldErrors flattens an ozzo validation result into field -> message.
func FieldErrors(err error) map[string]string {
	if err == nil {
		return nil
	}

	var verrs validation.Errors
	if !errors.As(err, &verrs) {
		return map[string]string{"": err.Error()}
	}

	out := make(map[string]string, len(verrs))
	for field, ferr := range verrs {
		if ferr != nil {
			out[field] = ferr.Error()
		}
	}
	return out
}

// fieldPrecedence is the order form fields appear on screen; the first
// failing field is the one surfaced to the user.
var fieldPrecedence = []string{"Name", "Email", "Password", "ConfirmPassword", "Code"}

// FirstValidationMessage returns a deterministic field/message pair from a
// validation result, empty strings when err carries none.
func FirstValidationMessage(err error) (field, msg string) {
	fields := FieldErrors(err)
	if len(fields) == 0 {
		return "", ""
	}

	for _, key := range fieldPrecedence {
		if m, ok := fields[key]; ok {
			return key, m
		}
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	return keys[0], fields[keys[0]]
}

// normalizeEmail trims whitespace and lowercases the address the same way
// the backend canonicalizes it.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
