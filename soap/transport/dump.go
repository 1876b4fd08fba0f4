package transport

import "context"

// DumpTransport records each leg as a full httputil dump. It shares the
// connection handling of HTTPTransport.
type DumpTransport struct {
	*HTTPTransport
}

// NewDumpTransport creates a dump-capturing transport.
func NewDumpTransport(opts ...HTTPTransportOption) *DumpTransport {
	return &DumpTransport{HTTPTransport: NewHTTPTransport(opts...)}
}

// Name returns the backend name.
func (t *DumpTransport) Name() string {
	return BackendDump
}

// Dialect returns the capture format of this backend.
func (t *DumpTransport) Dialect() Dialect {
	return DumpDialect
}

// RoundTrip sends a SOAP request and records the exchange in wire.
func (t *DumpTransport) RoundTrip(ctx context.Context, req *Request, wire *WireBuffer) (*Response, error) {
	return t.exchange(ctx, req, wire, dumpDialect{})
}
