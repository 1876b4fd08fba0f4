package transport

import (
	"net/http"
	"net/http/httputil"
	"strings"
)

// Leg is the captured text of one direction of an exchange. The http
// backend fills Headers and Body; the dump backend fills Dump.
type Leg struct {
	Headers string
	Body    string
	Dump    string
}

// Dialect reads a captured leg back into headers and body. Each backend
// writes captures in its own shape.
type Dialect interface {
	// Name returns the backend name the dialect belongs to.
	Name() string

	// Split returns the header block and the body of a captured leg.
	Split(l Leg) (headers, body string)
}

// Dialects of the built-in backends.
var (
	HTTPDialect Dialect = httpDialect{}
	DumpDialect Dialect = dumpDialect{}
)

// capturer turns a live request or response into a Leg.
type capturer interface {
	request(req *http.Request, body []byte) Leg
	response(resp *http.Response, body []byte) Leg
}

type httpDialect struct{}

func (httpDialect) Name() string { return BackendHTTP }

func (httpDialect) Split(l Leg) (string, string) {
	return l.Headers, l.Body
}

func (httpDialect) request(req *http.Request, body []byte) Leg {
	var b strings.Builder
	b.WriteString(req.Method + " " + req.URL.String() + "\r\n")
	_ = req.Header.Write(&b)
	return Leg{Headers: b.String(), Body: string(body)}
}

func (httpDialect) response(resp *http.Response, body []byte) Leg {
	var b strings.Builder
	b.WriteString(resp.Proto + " " + resp.Status + "\r\n")
	_ = resp.Header.Write(&b)
	return Leg{Headers: b.String(), Body: string(body)}
}

type dumpDialect struct{}

func (dumpDialect) Name() string { return BackendDump }

// Split cuts a dump at the first blank line.
func (dumpDialect) Split(l Leg) (string, string) {
	dump := l.Dump
	if dump == "" {
		return l.Headers, l.Body
	}
	for _, sep := range []string{"\r\n\r\n", "\n\n"} {
		if i := strings.Index(dump, sep); i >= 0 {
			return dump[:i], dump[i+len(sep):]
		}
	}
	return dump, ""
}

func (dumpDialect) request(req *http.Request, body []byte) Leg {
	head, err := httputil.DumpRequestOut(req, false)
	if err != nil {
		l := httpDialect{}.request(req, body)
		return Leg{Dump: l.Headers + "\r\n" + l.Body}
	}
	return Leg{Dump: string(head) + string(body)}
}

func (dumpDialect) response(resp *http.Response, body []byte) Leg {
	head, err := httputil.DumpResponse(resp, false)
	if err != nil {
		l := httpDialect{}.response(resp, body)
		return Leg{Dump: l.Headers + "\r\n" + l.Body}
	}
	return Leg{Dump: string(head) + string(body)}
}
