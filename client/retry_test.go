package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/smnsjas/go-adsoap/codec"
	"github.com/smnsjas/go-adsoap/soap"
	"github.com/smnsjas/go-adsoap/soap/auth"
	"github.com/smnsjas/go-adsoap/soap/transport"
)

func TestIsRetryable(t *testing.T) {
	fault := func(k soap.FaultKind) error {
		return &soap.APIFault{Kind: k, Fault: &soap.Fault{Message: "x"}}
	}

	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{name: "nil error", err: nil, expected: false},
		{name: "deadline exceeded", err: context.DeadlineExceeded, expected: true},
		{name: "context cancelled", err: context.Canceled, expected: false},
		{name: "EOF", err: io.EOF, expected: true},
		{name: "ErrUnexpectedEOF", err: io.ErrUnexpectedEOF, expected: true},
		{name: "configuration", err: &soap.ConfigurationError{Field: "email", Msg: "is required"}, expected: false},
		{name: "validation", err: &codec.ValidationError{Path: "operand", Msg: "bad"}, expected: false},
		{name: "bad credentials", err: &auth.AuthError{Reason: "BadAuthentication"}, expected: false},
		{name: "rate exceeded fault", err: fault(soap.FaultRateExceeded), expected: true},
		{name: "internal fault", err: fault(soap.FaultInternal), expected: true},
		{name: "quota exceeded fault", err: fault(soap.FaultQuotaExceeded), expected: false},
		{name: "generic fault", err: fault(soap.FaultAPI), expected: false},
		{name: "circuit open", err: ErrCircuitOpen, expected: false},
		{name: "unauthorized", err: &transport.LocalError{Status: 401, Err: transport.ErrUnauthorized}, expected: false},
		{name: "plain HTTP refused", err: &transport.LocalError{Err: fmt.Errorf("request failed: %w", auth.ErrInsecureTransport)}, expected: false},
		{name: "malformed fault", err: &transport.LocalError{Err: soap.ErrMalformedFault}, expected: false},
		{name: "bad gateway page", err: &transport.LocalError{Status: 502, Err: transport.ErrNotXML}, expected: true},
		{name: "wrapped EOF", err: fmt.Errorf("read: %w", io.EOF), expected: true},
		{
			name:     "Net I/O Timeout",
			err:      errors.New("read tcp 127.0.0.1:443->127.0.0.1:54321: i/o timeout"),
			expected: true,
		},
		{name: "Generic Error", err: errors.New("something went wrong"), expected: false},
		{name: "Connection Reset", err: errors.New("read: connection reset by peer"), expected: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.expected {
				t.Errorf("IsRetryable() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestRetry_StopsOnPermanentError(t *testing.T) {
	calls := 0
	permanent := &soap.ConfigurationError{Field: "email", Msg: "is required"}
	err := Retry(context.Background(), &RetryPolicy{MaxAttempts: 5, InitialDelay: time.Millisecond}, func() error {
		calls++
		return permanent
	})

	if !errors.Is(err, permanent) {
		t.Errorf("Retry() error = %v, want %v", err, permanent)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestRetry_RetriesTransientErrors(t *testing.T) {
	calls := 0
	var retried []uint
	err := Retry(context.Background(), &RetryPolicy{
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		OnRetry:      func(n uint, _ error) { retried = append(retried, n) },
	}, func() error {
		calls++
		if calls < 3 {
			return io.ErrUnexpectedEOF
		}
		return nil
	})

	if err != nil {
		t.Fatalf("Retry() error = %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
	if len(retried) != 2 {
		t.Errorf("OnRetry called %d times, want 2", len(retried))
	}
}

func TestRetry_Exhausted(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), &RetryPolicy{MaxAttempts: 2, InitialDelay: time.Millisecond}, func() error {
		calls++
		return io.EOF
	})

	if !errors.Is(err, io.EOF) {
		t.Errorf("Retry() error = %v, want io.EOF", err)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}
