package auth

import "errors"

// AuthError reports that the login service rejected the credentials or
// otherwise refused to issue a token. It is distinct from a network failure,
// which is a *transport.LocalError.
type AuthError struct {
	// Reason is the service's error code, e.g. "BadAuthentication".
	Reason string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *AuthError) Error() string {
	msg := "auth: login failed"
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *AuthError) Unwrap() error {
	return e.Err
}

// IsAuthError returns true if the error is an AuthError.
func IsAuthError(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae)
}
