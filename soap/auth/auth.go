package auth

import (
	"errors"
	"net/http"
)

// Authenticator defines the interface for HTTP authentication handlers.
type Authenticator interface {
	// Transport wraps an http.RoundTripper with authentication.
	Transport(base http.RoundTripper) http.RoundTripper

	// Name returns the authentication scheme name.
	Name() string
}

// Credentials holds an account identifier and its secret.
type Credentials struct {
	// Username is the account name or login email.
	Username string

	// Password is the account password.
	Password string

	// Domain is the optional domain for NTLM authentication.
	Domain string
}

// Validate checks that required credential fields are populated.
func (c *Credentials) Validate() error {
	if c.Username == "" {
		return errors.New("username is required")
	}
	if c.Password == "" {
		return errors.New("password is required")
	}
	return nil
}

// New returns the authenticator for scheme ("basic", "ntlm", "bearer").
// An empty scheme returns nil, meaning no HTTP-level authentication.
// requireTLS makes the Basic and Bearer handlers refuse plain HTTP.
func New(scheme string, creds Credentials, bearerToken string, requireTLS bool) (Authenticator, error) {
	switch scheme {
	case "":
		return nil, nil
	case "basic":
		return NewBasicAuth(creds, requireTLS), nil
	case "ntlm":
		return NewNTLMAuth(creds), nil
	case "bearer":
		if bearerToken == "" {
			return nil, errors.New("bearer token is required")
		}
		return NewBearerAuth(bearerToken, requireTLS), nil
	}
	return nil, errors.New("unknown authentication scheme " + scheme)
}
