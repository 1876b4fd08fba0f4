// Package auth provides login token management and HTTP authentication
// handlers for SOAP connections.
//
// # Login Tokens
//
// TokenManager keeps a session's auth token fresh. A token older than the
// expiry window (23 hours by default) is replaced by logging in again
// through a LoginService. ClientLogin is the form-based login used by the
// API's account service.
//
//	tm := auth.NewTokenManager(auth.NewClientLogin(auth.DefaultLoginURL))
//	if err := tm.EnsureFresh(ctx, &state, auth.Credentials{
//	    Username: "user@example.com",
//	    Password: "secret",
//	}); err != nil {
//	    return err
//	}
//
// Missing credentials are a *soap.ConfigurationError and never reach the
// network. Rejected credentials are an *AuthError; connection failures are
// a *transport.LocalError.
//
// # HTTP Authentication
//
// Some deployments sit behind a gateway that wants its own HTTP-level
// credentials. These wrap the transport's RoundTripper:
//
//   - Basic: HTTP Basic authentication (use only over TLS)
//   - NTLM: NT LAN Manager authentication (via github.com/Azure/go-ntlmssp)
//   - Bearer: a static bearer token
package auth
