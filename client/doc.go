// Package client executes SOAP API calls for one account.
//
// A Client owns a session: the auth token and its epoch, and the units and
// operations reported by the server. Every call holds the session lock from
// the token check to the counter update, so calls through one Client run
// one at a time. Use one Client per account and goroutine pool as needed.
//
// # Quick Start
//
//	cfg := client.DefaultConfig()
//	cfg.Version = "v201109"
//	cfg.Email = "user@example.com"
//	cfg.Password = "secret"
//	cfg.DeveloperToken = "dev-token"
//	cfg.UserAgent = "my-app"
//
//	c, err := client.New(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	page, err := c.Get(ctx, "CampaignService", codec.MustFromAny(map[string]any{
//	    "fields": []any{"Id", "Name"},
//	}))
//
// # Errors
//
// Calls return typed errors: *soap.ConfigurationError and
// *codec.ValidationError before anything is sent, *auth.AuthError when the
// login is refused, *transport.LocalError when the server's reply is not
// SOAP, and *soap.APIFault for server faults. Match fault kinds with
// errors.Is:
//
//	if errors.Is(err, soap.FaultQuotaExceeded) { ... }
//
// The client never retries. IsRetryable and Retry help callers that do.
package client
