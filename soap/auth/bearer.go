package auth

import "net/http"

// BearerAuth sends a fixed gateway bearer token.
type BearerAuth struct {
	token      string
	requireTLS bool
}

// NewBearerAuth creates a bearer token handler. requireTLS behaves as for
// NewBasicAuth.
func NewBearerAuth(token string, requireTLS bool) *BearerAuth {
	return &BearerAuth{token: token, requireTLS: requireTLS}
}

// Name returns the authentication scheme name.
func (a *BearerAuth) Name() string {
	return "Bearer"
}

// Transport wraps an http.RoundTripper with the Authorization header.
func (a *BearerAuth) Transport(base http.RoundTripper) http.RoundTripper {
	guard := &plaintextGuard{scheme: a.Name(), requireTLS: a.requireTLS}
	return roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		if err := guard.check(req); err != nil {
			return nil, err
		}
		reqCopy := req.Clone(req.Context())
		reqCopy.Header.Set("Authorization", "Bearer "+a.token)
		return base.RoundTrip(reqCopy)
	})
}

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}
