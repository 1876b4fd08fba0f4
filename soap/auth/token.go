package auth

import (
	"context"
	"log/slog"
	"time"

	"github.com/smnsjas/go-adsoap/soap"
)

// DefaultTokenExpiry is how long a login token is trusted.
const DefaultTokenExpiry = 23 * time.Hour

// TokenState is the auth token of one session and when it was issued.
// The caller owns it and must hold its session lock while calling
// EnsureFresh.
type TokenState struct {
	Token string
	Epoch time.Time
}

// Stale reports whether the token is missing or older than expiry at now.
func (s *TokenState) Stale(now time.Time, expiry time.Duration) bool {
	if s.Token == "" || s.Epoch.IsZero() {
		return true
	}
	return now.Sub(s.Epoch) > expiry
}

// TokenManager refreshes login tokens on demand.
type TokenManager struct {
	login  LoginService
	clock  Clock
	expiry time.Duration
	logger *slog.Logger
}

// TokenOption configures a TokenManager.
type TokenOption func(*TokenManager)

// WithExpiry sets the token lifetime.
func WithExpiry(d time.Duration) TokenOption {
	return func(m *TokenManager) {
		if d > 0 {
			m.expiry = d
		}
	}
}

// WithClock sets the time source.
func WithClock(c Clock) TokenOption {
	return func(m *TokenManager) {
		if c != nil {
			m.clock = c
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) TokenOption {
	return func(m *TokenManager) {
		m.logger = l
	}
}

// NewTokenManager creates a manager that logs in through login.
func NewTokenManager(login LoginService, opts ...TokenOption) *TokenManager {
	m := &TokenManager{
		login:  login,
		clock:  realClock{},
		expiry: DefaultTokenExpiry,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Expiry returns the configured token lifetime.
func (m *TokenManager) Expiry() time.Duration {
	return m.expiry
}

// EnsureFresh logs in again when state is stale. Token and epoch are
// written together, and only on success.
func (m *TokenManager) EnsureFresh(ctx context.Context, state *TokenState, creds Credentials) error {
	now := m.clock.Now()
	if !state.Stale(now, m.expiry) {
		return nil
	}

	if creds.Username == "" {
		return &soap.ConfigurationError{Field: "email", Msg: "required to refresh the auth token"}
	}
	if creds.Password == "" {
		return &soap.ConfigurationError{Field: "password", Msg: "required to refresh the auth token"}
	}
	if m.login == nil {
		return &soap.ConfigurationError{Field: "loginService", Msg: "no login service configured"}
	}

	if m.logger != nil {
		m.logger.Debug("refreshing auth token", "age", tokenAge(state, now))
	}

	token, err := m.login.Login(ctx, creds)
	if err != nil {
		return err
	}

	state.Token = token
	state.Epoch = m.clock.Now()
	return nil
}

func tokenAge(state *TokenState, now time.Time) time.Duration {
	if state.Epoch.IsZero() {
		return 0
	}
	return now.Sub(state.Epoch)
}
