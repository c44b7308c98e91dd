package authclient

import "strings"

// Form state is transient presentation-layer bookkeeping. It is never
// persisted and never touches the stores; validation errors populate the
// per-field slots so a renderer can highlight the offending input.

// LoginForm holds the sign-in screen's field values, per-field errors, and
// submission flag.
type LoginForm struct {
	Email    string
	Password string

	EmailError    string
	PasswordError string

	IsSubmitting bool
}

// SetEmail updates the field and clears its stale error.
func (f *LoginForm) SetEmail(value string) {
	f.Email = value
	f.EmailError = ""
}

// SetPassword updates the field and clears its stale error.
func (f *LoginForm) SetPassword(value string) {
	f.Password = value
	f.PasswordError = ""
}

// Validate runs the login rules and populates per-field errors. It returns
// true when the form may be submitted.
func (f *LoginForm) Validate() bool {
	req := LoginRequest{Email: strings.TrimSpace(f.Email), Password: f.Password}
	fields := FieldErrors(req.Validate())

	f.EmailError = fields["Email"]
	f.PasswordError = fields["Password"]

	return len(fields) == 0
}

// IsValid reports whether every required field is filled and no field error
// is present. It does not re-run validation.
func (f *LoginForm) IsValid() bool {
	return strings.TrimSpace(f.Email) != "" &&
		f.Password != "" &&
		f.EmailError == "" &&
		f.PasswordError == ""
}

// RegisterForm holds the registration screen's field values, per-field
// errors, and submission flag.
type RegisterForm struct {
	Name            string
	Email           string
	Password        string
	ConfirmPassword string

	NameError            string
	EmailError           string
	PasswordError        string
	ConfirmPasswordError string

	IsSubmitting bool
}

// SetName updates the field and clears its stale error.
func (f *RegisterForm) SetName(value string) {
	f.Name = value
	f.NameError = ""
}

// SetEmail updates the field and clears its stale error.
func (f *RegisterForm) SetEmail(value string) {
	f.Email = value
	f.EmailError = ""
}

// SetPassword updates the field and clears its stale error. The
// confirmation error is cleared too since its rule depends on this field.
func (f *RegisterForm) SetPassword(value string) {
	f.Password = value
	f.PasswordError = ""
	f.ConfirmPasswordError = ""
}

// SetConfirmPassword updates the field and clears its stale error.
func (f *RegisterForm) SetConfirmPassword(value string) {
	f.ConfirmPassword = value
	f.ConfirmPasswordError = ""
}

// Validate runs the registration rules and populates per-field errors. It
// returns true when the form may be submitted.
func (f *RegisterForm) Validate() bool {
	req := RegisterRequest{
		Name:            strings.TrimSpace(f.Name),
		Email:           strings.TrimSpace(f.Email),
		Password:        f.Password,
		ConfirmPassword: f.ConfirmPassword,
	}
	fields := FieldErrors(req.Validate())

	f.NameError = fields["Name"]
	f.EmailError = fields["Email"]
	f.PasswordError = fields["Password"]
	f.ConfirmPasswordError = fields["ConfirmPassword"]

	return len(fields) == 0
}

// IsValid reports whether every required field is filled and no field error
// is present. It does not re-run validation.
func (f *RegisterForm) IsValid() bool {
	return strings.TrimSpace(f.Name) != "" &&
		strings.TrimSpace(f.Email) != "" &&
		f.Password != "" &&
		f.ConfirmPassword != "" &&
		f.NameError == "" &&
		f.EmailError == "" &&
		f.PasswordError == "" &&
		f.ConfirmPasswordError == ""
}

// AuthActionState tracks a one-shot auxiliary action such as requesting a
// password reset or submitting a verification code.
type AuthActionState struct {
	IsSubmitting bool
	Completed    bool
	Message      string
}

// Begin marks the action as in flight, clearing any previous outcome.
func (s *AuthActionState) Begin() {
	s.IsSubmitting = true
	s.Completed = false
	s.Message = ""
}

// Succeed resolves the action with a confirmation message.
func (s *AuthActionState) Succeed(message string) {
	s.IsSubmitting = false
	s.Completed = true
	s.Message = message
}

// Fail resolves the action with the user-facing message from err.
func (s *AuthActionState) Fail(err error, fallback string) {
	s.IsSubmitting = false
	s.Completed = false
	s.Message = UserMessage(err, fallback)
}
