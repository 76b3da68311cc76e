package auth

import "errors"

// Error codes surfaced to the dashboard. The message is shown to users verbatim.
const (
	CodeInvalidEmail       = "auth/invalid-email"
	CodeWeakPassword       = "auth/weak-password"
	CodePasswordTooLong    = "auth/password-too-long"
	CodeEmailInUse         = "auth/email-already-in-use"
	CodeInvalidCredential  = "auth/invalid-credential"
	CodeMissingDisplayName = "auth/missing-display-name"
	CodeSessionNotFound    = "auth/session-not-found"
)

// Error is a gateway failure with a stable code.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return e.Message
}

// Is matches another *Error by code so the sentinels below work with errors.Is.
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return other.Code == e.Code
}

var (
	ErrInvalidEmail       = &Error{Code: CodeInvalidEmail, Message: "The email address is badly formatted."}
	ErrWeakPassword       = &Error{Code: CodeWeakPassword, Message: "Password should be at least 6 characters."}
	ErrPasswordTooLong    = &Error{Code: CodePasswordTooLong, Message: "Password must be at most 72 bytes."}
	ErrEmailInUse         = &Error{Code: CodeEmailInUse, Message: "The email address is already in use by another account."}
	ErrInvalidCredential  = &Error{Code: CodeInvalidCredential, Message: "Invalid email or password."}
	ErrMissingDisplayName = &Error{Code: CodeMissingDisplayName, Message: "A display name is required."}
	ErrSessionNotFound    = &Error{Code: CodeSessionNotFound, Message: "No active session."}
)
