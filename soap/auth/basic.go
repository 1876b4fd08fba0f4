package auth

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
)

// ErrInsecureTransport is returned when a request carrying credentials would
// be sent over plain HTTP while TLS is required.
var ErrInsecureTransport = errors.New("auth: refusing to send credentials over a non-HTTPS connection")

// BasicAuth sends the gateway user and password as an Authorization: Basic
// header.
type BasicAuth struct {
	creds      Credentials
	requireTLS bool
}

// NewBasicAuth creates a Basic handler. With requireTLS set, requests to a
// non-HTTPS URL fail with ErrInsecureTransport; otherwise they are sent
// with a one-time warning.
func NewBasicAuth(creds Credentials, requireTLS bool) *BasicAuth {
	return &BasicAuth{creds: creds, requireTLS: requireTLS}
}

// Name returns the authentication scheme name.
func (a *BasicAuth) Name() string {
	return "Basic"
}

// Transport wraps an http.RoundTripper with Basic authentication.
func (a *BasicAuth) Transport(base http.RoundTripper) http.RoundTripper {
	guard := &plaintextGuard{scheme: a.Name(), requireTLS: a.requireTLS}
	return roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		if err := guard.check(req); err != nil {
			return nil, err
		}
		reqCopy := req.Clone(req.Context())
		reqCopy.SetBasicAuth(a.creds.Username, a.creds.Password)
		return base.RoundTrip(reqCopy)
	})
}

// plaintextGuard decides what happens to a credential-bearing request whose
// URL is not HTTPS.
type plaintextGuard struct {
	scheme     string
	requireTLS bool
	warnOnce   sync.Once
}

func (g *plaintextGuard) check(req *http.Request) error {
	if req.URL.Scheme == "https" {
		return nil
	}
	if g.requireTLS {
		return fmt.Errorf("%w: %s to %s", ErrInsecureTransport, g.scheme, req.URL.Host)
	}
	g.warnOnce.Do(func() {
		slog.Warn("credentials sent over a non-HTTPS connection",
			"scheme", g.scheme, "host", req.URL.Host)
	})
	return nil
}
