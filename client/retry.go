package client

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/smnsjas/go-adsoap/codec"
	"github.com/smnsjas/go-adsoap/soap"
	"github.com/smnsjas/go-adsoap/soap/auth"
	"github.com/smnsjas/go-adsoap/soap/transport"
)

// IsRetryable reports whether err is worth retrying unchanged.
//
// Configuration, validation and login failures need a fix, not a retry.
// Rate-limit and internal server faults are transient; other faults are
// answers. Transport failures are retryable unless the server rejected
// the credentials.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var cfgErr *soap.ConfigurationError
	var valErr *codec.ValidationError
	var authErr *auth.AuthError
	if errors.As(err, &cfgErr) || errors.As(err, &valErr) || errors.As(err, &authErr) {
		return false
	}

	var fault *soap.APIFault
	if errors.As(err, &fault) {
		return fault.Kind == soap.FaultRateExceeded || fault.Kind == soap.FaultInternal
	}

	if errors.Is(err, ErrCircuitOpen) {
		return false
	}

	if errors.Is(err, context.Canceled) {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	if errors.Is(err, transport.ErrUnauthorized) || errors.Is(err, soap.ErrMalformedFault) ||
		errors.Is(err, auth.ErrInsecureTransport) {
		return false
	}

	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var local *transport.LocalError
	if errors.As(err, &local) && local.Status >= http.StatusInternalServerError {
		return true
	}

	// Fallback: String matching for stdlib network errors
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "connection reset") ||
		strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "i/o timeout") ||
		strings.Contains(errStr, "network is unreachable") ||
		strings.Contains(errStr, "no route to host") ||
		strings.Contains(errStr, "broken pipe")
}

// RetryPolicy bounds a manual retry loop.
type RetryPolicy struct {
	// MaxAttempts is the total number of tries, including the first.
	MaxAttempts uint

	// InitialDelay is the delay before the second try. It doubles per try.
	InitialDelay time.Duration

	// MaxDelay caps the delay between tries.
	MaxDelay time.Duration

	// OnRetry is called before each retry.
	OnRetry func(attempt uint, err error)
}

// DefaultRetryPolicy tries 3 times starting at 1s.
func DefaultRetryPolicy() *RetryPolicy {
	return &RetryPolicy{
		MaxAttempts:  3,
		InitialDelay: time.Second,
		MaxDelay:     30 * time.Second,
	}
}

// Retry runs fn until it succeeds, returns an error IsRetryable rejects,
// or the policy is exhausted. The client never retries on its own; this is
// for callers that choose to.
func Retry(ctx context.Context, policy *RetryPolicy, fn func() error) error {
	if policy == nil {
		policy = DefaultRetryPolicy()
	}
	attempts := policy.MaxAttempts
	if attempts == 0 {
		attempts = 1
	}
	delay := policy.InitialDelay
	if delay <= 0 {
		delay = 100 * time.Millisecond
	}

	opts := []retry.Option{
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.Delay(delay),
		retry.DelayType(retry.BackOffDelay),
		retry.RetryIf(IsRetryable),
		retry.LastErrorOnly(true),
	}
	if policy.MaxDelay > 0 {
		opts = append(opts, retry.MaxDelay(policy.MaxDelay))
	}
	if policy.OnRetry != nil {
		opts = append(opts, retry.OnRetry(policy.OnRetry))
	}
	return retry.Do(fn, opts...)
}
