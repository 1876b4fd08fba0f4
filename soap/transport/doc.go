// Package transport provides the HTTP/TLS backends that carry SOAP
// envelopes and capture the raw wire traffic of each call.
//
// Two backends are available:
//   - "http" records request and response headers and bodies separately
//   - "dump" records full httputil dumps of both legs
//
// Both write into a WireBuffer whose Dialect knows how to read metrics back
// out of the captured text.
package transport
