package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Backend names accepted by New.
const (
	BackendHTTP = "http"
	BackendDump = "dump"
)

// ErrUnauthorized marks a 401 Unauthorized reply that carried no SOAP
// envelope, typically a gateway page. A 401 with a fault is classified as
// a fault instead. Use errors.Is(err, ErrUnauthorized) to check for it.
var ErrUnauthorized = errors.New("transport: authentication failed (401 Unauthorized)")

// ErrNotXML is returned when a response body is empty, HTML, or otherwise
// not an XML document.
var ErrNotXML = errors.New("transport: response is not XML")

// Request is one outgoing SOAP exchange.
type Request struct {
	// URL is the service endpoint.
	URL string

	// Header holds extra HTTP headers. Content-Type and SOAPAction are set
	// by the transport unless present here.
	Header http.Header

	// Body is the serialized envelope.
	Body []byte
}

// Response is the raw result of an exchange.
type Response struct {
	StatusCode int
	Header     http.Header

	// Body is the response body, already decompressed.
	Body []byte
}

// Transport sends a SOAP request and records the exchange.
type Transport interface {
	// Name returns the backend name.
	Name() string

	// Dialect returns the capture format this backend writes.
	Dialect() Dialect

	// RoundTrip sends req and writes both legs into wire. A non-2xx status
	// is not an error; callers inspect the body.
	RoundTrip(ctx context.Context, req *Request, wire *WireBuffer) (*Response, error)

	// Client returns the underlying HTTP client so authenticators can wrap
	// its RoundTripper.
	Client() *http.Client
}

// New returns the transport for backend.
func New(backend string, opts ...HTTPTransportOption) (Transport, error) {
	switch backend {
	case "", BackendHTTP:
		return NewHTTPTransport(opts...), nil
	case BackendDump:
		return NewDumpTransport(opts...), nil
	}
	return nil, fmt.Errorf("transport: unknown backend %q", backend)
}

// LocalError reports a failure that happened before a well-formed SOAP
// response was received: connection errors, HTML error pages from a proxy,
// or a body that cannot be parsed at all.
type LocalError struct {
	// Status is the HTTP status, or 0 when no response was received.
	Status int

	// Body is the raw response text, if any.
	Body []byte

	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *LocalError) Error() string {
	msg := "local transport error"
	if e.Status != 0 {
		msg += fmt.Sprintf(" (HTTP %d)", e.Status)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if len(e.Body) > 0 {
		preview := string(e.Body)
		if len(preview) > 512 {
			preview = preview[:512] + "..."
		}
		msg += ": " + preview
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *LocalError) Unwrap() error {
	return e.Err
}

// IsLocalError returns true if the error is a LocalError.
func IsLocalError(err error) bool {
	var le *LocalError
	return errors.As(err, &le)
}
