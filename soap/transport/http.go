package transport

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"sync"
	"time"
)

const (
	// ContentTypeSOAP is the content type for SOAP 1.1 messages.
	ContentTypeSOAP = "text/xml; charset=utf-8"

	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 60 * time.Second

	// defaultBufferSize is the initial size for pooled buffers.
	defaultBufferSize = 32 * 1024 // 32KB
)

// bufferPool is a pool of reusable bytes.Buffer to reduce allocations.
var bufferPool = sync.Pool{
	New: func() interface{} {
		return bytes.NewBuffer(make([]byte, 0, defaultBufferSize))
	},
}

// getBuffer returns a buffer from the pool.
func getBuffer() *bytes.Buffer {
	return bufferPool.Get().(*bytes.Buffer)
}

// putBuffer returns a buffer to the pool after resetting it.
func putBuffer(buf *bytes.Buffer) {
	buf.Reset()
	bufferPool.Put(buf)
}

// readAllPooled reads from r using a pooled buffer and returns a copy of the data.
func readAllPooled(r io.Reader) ([]byte, error) {
	buf := getBuffer()
	defer putBuffer(buf)

	_, err := buf.ReadFrom(r)
	if err != nil {
		return nil, err
	}

	// Return a copy since buf will be reused
	result := make([]byte, buf.Len())
	copy(result, buf.Bytes())
	return result, nil
}

// HTTPTransport sends envelopes over HTTP/HTTPS and records headers and
// bodies of both legs separately.
type HTTPTransport struct {
	client    *http.Client
	userAgent string
	compress  bool
	now       func() time.Time
}

// HTTPTransportOption configures an HTTPTransport.
type HTTPTransportOption func(*HTTPTransport)

// NewHTTPTransport creates a new HTTP transport with the given options.
func NewHTTPTransport(opts ...HTTPTransportOption) *HTTPTransport {
	t := &HTTPTransport{
		client: &http.Client{
			Timeout: DefaultTimeout,
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				TLSClientConfig: &tls.Config{
					MinVersion: tls.VersionTLS12,
				},
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
				// Accept-Encoding is managed by WithCompression.
				DisableCompression: true,
			},
		},
		now: time.Now,
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) HTTPTransportOption {
	return func(t *HTTPTransport) {
		t.client.Timeout = d
	}
}

// WithUserAgent sets the HTTP User-Agent header.
func WithUserAgent(ua string) HTTPTransportOption {
	return func(t *HTTPTransport) {
		t.userAgent = ua
	}
}

// WithCompression requests gzip-encoded responses.
func WithCompression(enabled bool) HTTPTransportOption {
	return func(t *HTTPTransport) {
		t.compress = enabled
	}
}

// WithClock sets the time source used to stamp wire captures.
func WithClock(now func() time.Time) HTTPTransportOption {
	return func(t *HTTPTransport) {
		if now != nil {
			t.now = now
		}
	}
}

// WithInsecureSkipVerify configures TLS to skip certificate verification.
// WARNING: Only use this for testing. Never use in production.
func WithInsecureSkipVerify(skip bool) HTTPTransportOption {
	return func(t *HTTPTransport) {
		if skip {
			fmt.Fprintf(os.Stderr, "WARNING: TLS certificate verification disabled. This is insecure and should only be used for testing.\n")
		}
		transport := t.ensureHTTPTransport()
		if transport.TLSClientConfig == nil {
			transport.TLSClientConfig = &tls.Config{
				MinVersion: tls.VersionTLS12,
			}
		}
		transport.TLSClientConfig.InsecureSkipVerify = skip
	}
}

// WithProxy routes requests through proxyURL. "direct" disables proxying;
// an empty string keeps the environment settings.
func WithProxy(proxyURL string) HTTPTransportOption {
	return func(t *HTTPTransport) {
		switch proxyURL {
		case "":
			return
		case "direct":
			t.ensureHTTPTransport().Proxy = nil
			return
		}
		u, err := url.Parse(proxyURL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "WARNING: ignoring invalid proxy URL %q: %v\n", proxyURL, err)
			return
		}
		t.ensureHTTPTransport().Proxy = http.ProxyURL(u)
	}
}

// WithTLSConfig sets a custom TLS configuration.
// NOTE: MinVersion is enforced to be at least TLS 1.2 for security.
func WithTLSConfig(cfg *tls.Config) HTTPTransportOption {
	return func(t *HTTPTransport) {
		transport := t.ensureHTTPTransport()
		if cfg.MinVersion < tls.VersionTLS12 {
			cfg.MinVersion = tls.VersionTLS12
		}
		transport.TLSClientConfig = cfg
	}
}

// ensureHTTPTransport ensures the client has an *http.Transport.
func (t *HTTPTransport) ensureHTTPTransport() *http.Transport {
	if t.client.Transport == nil {
		t.client.Transport = &http.Transport{}
	}
	transport, ok := t.client.Transport.(*http.Transport)
	if !ok {
		transport = &http.Transport{}
		t.client.Transport = transport
	}
	return transport
}

// Name returns the backend name.
func (t *HTTPTransport) Name() string {
	return BackendHTTP
}

// Dialect returns the capture format of this backend.
func (t *HTTPTransport) Dialect() Dialect {
	return HTTPDialect
}

// RoundTrip sends a SOAP request and records the exchange in wire.
func (t *HTTPTransport) RoundTrip(ctx context.Context, req *Request, wire *WireBuffer) (*Response, error) {
	return t.exchange(ctx, req, wire, httpDialect{})
}

// exchange performs the HTTP round trip; c decides how each leg is captured.
func (t *HTTPTransport) exchange(ctx context.Context, req *Request, wire *WireBuffer, c capturer) (*Response, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, req.URL, bytes.NewReader(req.Body))
	if err != nil {
		return nil, &LocalError{Err: fmt.Errorf("transport: failed to create request: %w", err)}
	}

	httpReq.Header.Set("Content-Type", ContentTypeSOAP)
	httpReq.Header.Set("SOAPAction", `""`)
	if t.userAgent != "" {
		httpReq.Header.Set("User-Agent", t.userAgent)
	}
	if t.compress {
		httpReq.Header.Set("Accept-Encoding", "gzip")
	}
	for k, vs := range req.Header {
		httpReq.Header.Del(k)
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}

	if wire != nil {
		wire.MarkStart(t.now())
		wire.WriteRequest(c.request(httpReq, req.Body))
	}

	resp, err := t.client.Do(httpReq)
	if err != nil {
		if wire != nil {
			wire.MarkEnd(t.now())
		}
		return nil, &LocalError{Err: fmt.Errorf("transport: request failed: %w", err)}
	}
	defer resp.Body.Close()

	respBody, err := readBody(resp)
	if wire != nil {
		wire.MarkEnd(t.now())
	}
	if err != nil {
		return nil, &LocalError{Status: resp.StatusCode, Err: fmt.Errorf("transport: failed to read response: %w", err)}
	}
	if wire != nil {
		wire.WriteResponse(c.response(resp, respBody))
	}

	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: respBody}, nil
}

// Client returns the underlying HTTP client for advanced configuration.
func (t *HTTPTransport) Client() *http.Client {
	return t.client
}

// CloseIdleConnections closes any idle connections in the transport.
func (t *HTTPTransport) CloseIdleConnections() {
	t.client.CloseIdleConnections()
}
