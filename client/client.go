package client

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"sync"

	"github.com/smnsjas/go-adsoap/codec"
	"github.com/smnsjas/go-adsoap/soap"
	"github.com/smnsjas/go-adsoap/soap/auth"
	"github.com/smnsjas/go-adsoap/soap/transport"
)

// Client executes SOAP calls for one session. Calls through one Client are
// serialized: each holds the session lock from token refresh to the
// counter update.
type Client struct {
	mu sync.Mutex

	config  Config
	session session

	transport  transport.Transport
	login      auth.LoginService
	tokens     *auth.TokenManager
	classifier *soap.Classifier
	table      *codec.TypeOrderTable
	encoder    *codec.Encoder
	decoder    *codec.Decoder
	breaker    *CircuitBreaker
	clock      auth.Clock

	breakerPolicy *CircuitBreakerPolicy

	logger   *slog.Logger
	security *SecurityLogger

	// hook runs on entry to each call stage. Tests use it to inject
	// failures.
	hook func(callState) error
}

// Option configures a Client.
type Option func(*Client)

// WithTransport replaces the transport built from the config.
func WithTransport(t transport.Transport) Option {
	return func(c *Client) {
		c.transport = t
	}
}

// WithLoginService replaces the default ClientLogin.
func WithLoginService(l auth.LoginService) Option {
	return func(c *Client) {
		c.login = l
	}
}

// WithTypeTable sets the type order table, overriding Config.TypeTable.
func WithTypeTable(t *codec.TypeOrderTable) Option {
	return func(c *Client) {
		c.table = t
	}
}

// WithLogger sets the logger for calls and security events.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithClock sets the clock used for token expiry and the circuit breaker.
func WithClock(clock auth.Clock) Option {
	return func(c *Client) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// WithClassifier replaces the default fault classifier.
func WithClassifier(cl *soap.Classifier) Option {
	return func(c *Client) {
		if cl != nil {
			c.classifier = cl
		}
	}
}

// WithCircuitBreaker enables a circuit breaker around the transport.
func WithCircuitBreaker(policy *CircuitBreakerPolicy) Option {
	return func(c *Client) {
		c.breakerPolicy = policy
	}
}

// New creates a client for cfg. cfg is copied; later changes have no
// effect.
func New(cfg Config, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if cfg.NamespaceTemplate == "" {
		cfg.NamespaceTemplate = soap.DefaultNamespaceTemplate
	}
	if cfg.TokenExpiry == 0 {
		cfg.TokenExpiry = auth.DefaultTokenExpiry
	}
	cfg.Server = strings.TrimRight(cfg.Server, "/")

	c := &Client{
		config: cfg,
		clock:  auth.SystemClock,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.transport == nil {
		tr, err := newTransport(cfg)
		if err != nil {
			return nil, err
		}
		c.transport = tr
	}

	if c.table == nil && cfg.TypeTable != "" {
		f, err := os.Open(cfg.TypeTable)
		if err != nil {
			return nil, fmt.Errorf("open type table: %w", err)
		}
		table, err := codec.LoadTable(f)
		f.Close()
		if err != nil {
			return nil, err
		}
		c.table = table
	}
	c.encoder = codec.NewEncoder(c.table)
	c.decoder = codec.NewDecoder(c.table)

	if c.classifier == nil {
		c.classifier = soap.NewClassifier()
	}
	if c.login == nil {
		c.login = auth.NewClientLogin(cfg.LoginURL)
	}
	c.tokens = auth.NewTokenManager(c.login,
		auth.WithExpiry(cfg.TokenExpiry),
		auth.WithClock(c.clock),
		auth.WithLogger(c.logger),
	)
	c.breaker = NewCircuitBreaker(c.breakerPolicy, c.clock)

	if cfg.AuthToken != "" {
		c.session.token = auth.TokenState{Token: cfg.AuthToken, Epoch: c.clock.Now()}
	}

	c.security = NewSecurityLogger(c.logger, cfg.Email, cfg.Server)
	c.security.LogSession(SubtypeSessionOpen, OutcomeSuccess, SeverityInfo, map[string]any{
		"version": cfg.Version,
		"backend": c.transport.Name(),
	})
	return c, nil
}

// newTransport builds the configured backend and wraps its HTTP client with
// gateway authentication when one is configured.
func newTransport(cfg Config) (transport.Transport, error) {
	topts := []transport.HTTPTransportOption{
		transport.WithCompression(cfg.Compress),
		transport.WithInsecureSkipVerify(cfg.InsecureSkipVerify),
	}
	if cfg.Timeout > 0 {
		topts = append(topts, transport.WithTimeout(cfg.Timeout))
	}
	if cfg.UserAgent != "" {
		topts = append(topts, transport.WithUserAgent(cfg.UserAgent))
	}
	if cfg.Proxy != "" {
		topts = append(topts, transport.WithProxy(cfg.Proxy))
	}
	backend := cfg.Backend
	if backend == "" {
		backend = transport.BackendHTTP
	}
	tr, err := transport.New(backend, topts...)
	if err != nil {
		return nil, err
	}

	authenticator, err := auth.New(cfg.HTTPAuth, auth.Credentials{
		Username: cfg.HTTPUser,
		Password: cfg.HTTPPassword,
		Domain:   cfg.HTTPDomain,
	}, cfg.BearerToken, cfg.StrictValidation)
	if err != nil {
		return nil, &soap.ConfigurationError{Field: "HTTPAuth", Msg: err.Error()}
	}
	if authenticator != nil {
		hc := tr.Client()
		hc.Transport = authenticator.Transport(hc.Transport)
	}
	return tr, nil
}

// Close releases idle connections held by the transport. The client stays
// usable; a later call dials again.
func (c *Client) Close() error {
	if closer, ok := c.transport.(interface{ CloseIdleConnections() }); ok {
		closer.CloseIdleConnections()
	}
	return nil
}

// Config returns a copy of the client's configuration.
func (c *Client) Config() Config {
	return c.config
}

// Endpoint returns the URL of service in group.
func (c *Client) Endpoint(group, service string) string {
	if group == "" {
		group = c.config.Group
	}
	u, err := url.JoinPath(c.config.Server, soap.ServicePath(group, c.config.Version, service))
	if err != nil {
		return c.config.Server + soap.ServicePath(group, c.config.Version, service)
	}
	return u
}

// CircuitState returns the state of the circuit breaker. It is always
// Closed when no breaker is configured.
func (c *Client) CircuitState() CircuitState {
	return c.breaker.State()
}
