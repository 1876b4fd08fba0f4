package client

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"

	"github.com/smnsjas/go-adsoap/soap"
	"github.com/smnsjas/go-adsoap/soap/transport"
)

// Config holds configuration for a SOAP API client. It is passed to New
// and copied; there is no process-wide configuration.
type Config struct {
	// Server is the API base URL, e.g. "https://adwords.google.com".
	Server string `toml:"server" validate:"required,url"`

	// Version is the API version, e.g. "v201109".
	Version string `toml:"version" validate:"required"`

	// Group is the default service group ("cm", "o", "info").
	Group string `toml:"group" validate:"required"`

	// NamespaceTemplate expands to a service namespace; see
	// soap.ServiceNamespace.
	NamespaceTemplate string `toml:"namespace_template"`

	// Email and Password are the account credentials. With UseAuthToken
	// they are exchanged for a token; otherwise they go in the header.
	Email    string `toml:"email"`
	Password string `toml:"password"`

	// AuthToken preloads a token, skipping the first login.
	AuthToken string `toml:"auth_token"`

	// LoginURL is the ClientLogin endpoint.
	LoginURL string `toml:"login_url" validate:"omitempty,url"`

	// TokenExpiry is how long a token is trusted. Zero means 23h.
	TokenExpiry time.Duration `toml:"token_expiry" validate:"gte=0"`

	DeveloperToken   string `toml:"developer_token"`
	UserAgent        string `toml:"user_agent"`
	ClientCustomerID string `toml:"client_customer_id"`
	ClientEmail      string `toml:"client_email"`

	// ValidateOnly and PartialFailure are boolean-like header toggles.
	ValidateOnly   string `toml:"validate_only"`
	PartialFailure string `toml:"partial_failure"`

	// StrictValidation checks request headers before each call and rejects
	// operand fields the type table does not declare.
	StrictValidation bool `toml:"strict_validation"`

	// RawResponse returns response bodies verbatim without decoding or
	// fault classification.
	RawResponse bool `toml:"raw_response"`

	// PrettyPrintLogs indents XML in wire logs.
	PrettyPrintLogs bool `toml:"pretty_print_logs"`

	// UseAuthToken logs in for a token instead of sending the password.
	UseAuthToken bool `toml:"use_auth_token"`

	// Backend selects the transport: "http" or "dump".
	Backend string `toml:"backend" validate:"omitempty,oneof=http dump"`

	// Compress requests gzip responses.
	Compress bool `toml:"compress"`

	// Timeout is the HTTP request timeout.
	Timeout time.Duration `toml:"timeout" validate:"gte=0"`

	// InsecureSkipVerify skips TLS certificate verification.
	// WARNING: Only use for testing.
	InsecureSkipVerify bool `toml:"insecure_skip_verify"`

	// Proxy is an HTTP proxy URL, or "direct".
	Proxy string `toml:"proxy"`

	// HTTPAuth adds gateway authentication: "basic", "ntlm" or "bearer".
	HTTPAuth     string `toml:"http_auth" validate:"omitempty,oneof=basic ntlm bearer"`
	HTTPUser     string `toml:"http_user" validate:"required_if=HTTPAuth basic,required_if=HTTPAuth ntlm"`
	HTTPPassword string `toml:"http_password"`
	HTTPDomain   string `toml:"http_domain"`
	BearerToken  string `toml:"bearer_token" validate:"required_if=HTTPAuth bearer"`

	// TypeTable is a YAML type order table file.
	TypeTable string `toml:"type_table"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Server:       "https://adwords.google.com",
		Group:        "cm",
		Backend:      transport.BackendHTTP,
		Timeout:      transport.DefaultTimeout,
		TokenExpiry:  23 * time.Hour,
		UseAuthToken: true,
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks that the configuration is structurally valid. Missing
// credentials are not checked here; they are reported when a call needs
// them.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return &soap.ConfigurationError{Field: fe.Field(), Msg: describeTag(fe)}
	}
	return &soap.ConfigurationError{Msg: err.Error()}
}

func describeTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_if":
		return "is required"
	case "url":
		return fmt.Sprintf("%q is not a valid URL", fe.Value())
	case "oneof":
		return fmt.Sprintf("%q is not one of [%s]", fe.Value(), fe.Param())
	case "gte":
		return "must not be negative"
	}
	return "failed " + fe.Tag() + " check"
}

// LoadConfig reads a TOML file over DefaultConfig and validates it.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, &soap.ConfigurationError{Msg: "config filename is required"}
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	md, err := toml.Decode(string(content), &cfg)
	if err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return cfg, &soap.ConfigurationError{Msg: "unrecognized options: " + strings.Join(keys, ", ")}
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// header builds the request header from the configured credentials. The
// auth token lives in the session, not here.
func (c *Config) header() soap.RequestHeader {
	return soap.RequestHeader{
		Email:            c.Email,
		Password:         c.Password,
		ClientCustomerID: c.ClientCustomerID,
		ClientEmail:      c.ClientEmail,
		DeveloperToken:   c.DeveloperToken,
		UserAgent:        c.UserAgent,
		ValidateOnly:     c.ValidateOnly,
		PartialFailure:   c.PartialFailure,
	}.Normalized()
}

// LogValue implements slog.LogValuer so secrets never reach the logs.
func (c Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("server", c.Server),
		slog.String("version", c.Version),
		slog.String("email", c.Email),
		slog.String("password", mask(c.Password)),
		slog.String("auth_token", mask(c.AuthToken)),
		slog.String("developer_token", mask(c.DeveloperToken)),
		slog.String("user_agent", c.UserAgent),
		slog.String("backend", c.Backend),
		slog.Bool("strict_validation", c.StrictValidation),
		slog.Bool("raw_response", c.RawResponse),
		slog.Bool("use_auth_token", c.UseAuthToken),
	)
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	return "********"
}
