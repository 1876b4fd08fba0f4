package auth

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/smnsjas/go-adsoap/soap/transport"
)

// DefaultLoginURL is the account service endpoint used by ClientLogin.
const DefaultLoginURL = "https://www.google.com/accounts/ClientLogin"

// LoginService exchanges credentials for an auth token.
type LoginService interface {
	Login(ctx context.Context, creds Credentials) (string, error)
}

// LoginFunc adapts a function to LoginService.
type LoginFunc func(ctx context.Context, creds Credentials) (string, error)

// Login calls f.
func (f LoginFunc) Login(ctx context.Context, creds Credentials) (string, error) {
	return f(ctx, creds)
}

// ClientLogin logs in by posting a form and reading the "Auth=" line of
// the reply.
type ClientLogin struct {
	// URL is the login endpoint.
	URL string

	// Service names the API the token is for.
	Service string

	// AccountType is sent as accountType.
	AccountType string

	// Source identifies the calling application.
	Source string

	// HTTPClient sends the request. Nil uses a client with a 30s timeout.
	HTTPClient *http.Client
}

// NewClientLogin returns a ClientLogin for loginURL with the API's defaults.
func NewClientLogin(loginURL string) *ClientLogin {
	if loginURL == "" {
		loginURL = DefaultLoginURL
	}
	return &ClientLogin{
		URL:         loginURL,
		Service:     "adwords",
		AccountType: "GOOGLE",
		Source:      "go-adsoap",
		HTTPClient:  &http.Client{Timeout: 30 * time.Second},
	}
}

// Login implements LoginService.
func (l *ClientLogin) Login(ctx context.Context, creds Credentials) (string, error) {
	form := url.Values{
		"Email":       {creds.Username},
		"Passwd":      {creds.Password},
		"accountType": {l.AccountType},
		"service":     {l.Service},
		"source":      {l.Source},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.URL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", &transport.LocalError{Err: fmt.Errorf("auth: failed to create login request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	client := l.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", &transport.LocalError{Err: fmt.Errorf("auth: login request failed: %w", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &transport.LocalError{Status: resp.StatusCode, Err: fmt.Errorf("auth: failed to read login response: %w", err)}
	}

	fields := parseLoginReply(body)
	if reason, ok := fields["Error"]; ok {
		return "", &AuthError{Reason: reason}
	}
	if resp.StatusCode != http.StatusOK {
		return "", &transport.LocalError{Status: resp.StatusCode, Body: body, Err: fmt.Errorf("auth: unexpected login status")}
	}
	token := fields["Auth"]
	if token == "" {
		return "", &AuthError{Reason: "MissingToken", Err: fmt.Errorf("no Auth line in login reply")}
	}
	return token, nil
}

// parseLoginReply reads "key=value" lines.
func parseLoginReply(body []byte) map[string]string {
	fields := make(map[string]string)
	sc := bufio.NewScanner(bytes.NewReader(body))
	for sc.Scan() {
		key, value, ok := strings.Cut(strings.TrimSpace(sc.Text()), "=")
		if ok {
			fields[key] = value
		}
	}
	return fields
}
