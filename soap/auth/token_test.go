package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smnsjas/go-adsoap/soap"
	"github.com/smnsjas/go-adsoap/soap/transport"
)

var epoch = time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

// countingLogin counts calls and returns a fixed token.
type countingLogin struct {
	calls atomic.Int32
	token string
	err   error
}

func (l *countingLogin) Login(_ context.Context, _ Credentials) (string, error) {
	l.calls.Add(1)
	return l.token, l.err
}

func TestTokenManager_StaleWithoutCredentialsIsConfigurationError(t *testing.T) {
	clock := NewManualClock(epoch)
	login := &countingLogin{token: "new"}
	tm := NewTokenManager(login, WithClock(clock))

	state := &TokenState{Token: "old", Epoch: epoch}
	clock.Advance(DefaultTokenExpiry + time.Minute)

	err := tm.EnsureFresh(context.Background(), state, Credentials{})

	var cfgErr *soap.ConfigurationError
	require.True(t, errors.As(err, &cfgErr), "got %v", err)
	assert.Equal(t, "email", cfgErr.Field)
	assert.Zero(t, login.calls.Load(), "no network call may be attempted")
	assert.Equal(t, "old", state.Token, "state must be untouched")

	err = tm.EnsureFresh(context.Background(), state, Credentials{Username: "a@b.c"})
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "password", cfgErr.Field)
	assert.Zero(t, login.calls.Load())
}

func TestTokenManager_FreshTokenIsKept(t *testing.T) {
	clock := NewManualClock(epoch)
	login := &countingLogin{token: "new"}
	tm := NewTokenManager(login, WithClock(clock))

	state := &TokenState{Token: "old", Epoch: epoch}
	clock.Advance(DefaultTokenExpiry - time.Minute)

	require.NoError(t, tm.EnsureFresh(context.Background(), state, Credentials{}))
	assert.Equal(t, "old", state.Token)
	assert.Zero(t, login.calls.Load())
}

func TestTokenManager_RefreshWritesTokenAndEpoch(t *testing.T) {
	clock := NewManualClock(epoch)
	login := &countingLogin{token: "new"}
	tm := NewTokenManager(login, WithClock(clock), WithExpiry(time.Hour))
	assert.Equal(t, time.Hour, tm.Expiry())

	state := &TokenState{}
	creds := Credentials{Username: "a@b.c", Password: "pw"}
	require.NoError(t, tm.EnsureFresh(context.Background(), state, creds))
	assert.Equal(t, "new", state.Token)
	assert.Equal(t, epoch, state.Epoch)

	clock.Advance(2 * time.Hour)
	login.token = "newer"
	require.NoError(t, tm.EnsureFresh(context.Background(), state, creds))
	assert.Equal(t, "newer", state.Token)
	assert.Equal(t, epoch.Add(2*time.Hour), state.Epoch)
	assert.Equal(t, int32(2), login.calls.Load())
}

func TestTokenManager_LoginFailureLeavesStateUntouched(t *testing.T) {
	login := &countingLogin{err: &AuthError{Reason: "BadAuthentication"}}
	tm := NewTokenManager(login, WithClock(NewManualClock(epoch)))

	state := &TokenState{}
	err := tm.EnsureFresh(context.Background(), state, Credentials{Username: "a", Password: "b"})
	assert.True(t, IsAuthError(err))
	assert.Empty(t, state.Token)
	assert.True(t, state.Epoch.IsZero())
}

func TestTokenState_Stale(t *testing.T) {
	assert.True(t, (&TokenState{}).Stale(epoch, time.Hour))
	assert.True(t, (&TokenState{Token: "x"}).Stale(epoch, time.Hour), "missing epoch")
	assert.False(t, (&TokenState{Token: "x", Epoch: epoch}).Stale(epoch.Add(time.Hour), time.Hour))
	assert.True(t, (&TokenState{Token: "x", Epoch: epoch}).Stale(epoch.Add(time.Hour+1), time.Hour))
}

func TestClientLogin(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		wantToken string
		wantAuth  string
		wantLocal bool
	}{
		{name: "success", status: 200, body: "SID=s\nLSID=l\nAuth=DQAAAH4\n", wantToken: "DQAAAH4"},
		{name: "bad credentials", status: 403, body: "Error=BadAuthentication\n", wantAuth: "BadAuthentication"},
		{name: "captcha", status: 403, body: "Url=x\nError=CaptchaRequired\nCaptchaToken=abc\n", wantAuth: "CaptchaRequired"},
		{name: "proxy error page", status: 502, body: "<html>Bad Gateway</html>", wantLocal: true},
		{name: "no auth line", status: 200, body: "SID=s\n", wantAuth: "MissingToken"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.NoError(t, r.ParseForm())
				assert.Equal(t, "a@b.c", r.PostForm.Get("Email"))
				assert.Equal(t, "pw", r.PostForm.Get("Passwd"))
				assert.Equal(t, "adwords", r.PostForm.Get("service"))
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			token, err := NewClientLogin(server.URL).Login(context.Background(), Credentials{Username: "a@b.c", Password: "pw"})

			switch {
			case tt.wantToken != "":
				require.NoError(t, err)
				assert.Equal(t, tt.wantToken, token)
			case tt.wantAuth != "":
				var ae *AuthError
				require.True(t, errors.As(err, &ae), "got %v", err)
				assert.Equal(t, tt.wantAuth, ae.Reason)
			case tt.wantLocal:
				assert.True(t, transport.IsLocalError(err), "got %v", err)
			}
		})
	}
}

func TestClientLogin_NetworkFailureIsLocalError(t *testing.T) {
	_, err := NewClientLogin("http://localhost:1").Login(context.Background(), Credentials{Username: "a", Password: "b"})
	assert.True(t, transport.IsLocalError(err))
	assert.False(t, IsAuthError(err))
}
