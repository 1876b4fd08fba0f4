package transport

import (
	"encoding/xml"
	"errors"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// WireBuffer captures the raw traffic of one call. Writes append; nothing
// is ever overwritten. Metric accessors scan the captured bodies and return
// zero values when a tag is absent.
type WireBuffer struct {
	dialect    Dialect
	out, in    Leg
	start, end time.Time
}

// NewWireBuffer returns an empty buffer that reads captures with d.
// A nil dialect means HTTPDialect.
func NewWireBuffer(d Dialect) *WireBuffer {
	if d == nil {
		d = HTTPDialect
	}
	return &WireBuffer{dialect: d}
}

// Dialect returns the dialect used to read the captures.
func (w *WireBuffer) Dialect() Dialect {
	return w.dialect
}

// WriteRequest appends to the outgoing leg.
func (w *WireBuffer) WriteRequest(l Leg) {
	appendLeg(&w.out, l)
}

// WriteResponse appends to the incoming leg.
func (w *WireBuffer) WriteResponse(l Leg) {
	appendLeg(&w.in, l)
}

func appendLeg(dst *Leg, l Leg) {
	dst.Headers += l.Headers
	dst.Body += l.Body
	dst.Dump += l.Dump
}

// MarkStart records when the request was sent. Only the first mark counts.
func (w *WireBuffer) MarkStart(t time.Time) {
	if w.start.IsZero() {
		w.start = t
	}
}

// MarkEnd records when the response was fully received.
func (w *WireBuffer) MarkEnd(t time.Time) {
	if w.end.IsZero() {
		w.end = t
	}
}

// RequestHeaders returns the captured outgoing header block.
func (w *WireBuffer) RequestHeaders() string {
	h, _ := w.dialect.Split(w.out)
	return h
}

// RequestBody returns the captured outgoing body.
func (w *WireBuffer) RequestBody() string {
	_, b := w.dialect.Split(w.out)
	return b
}

// ResponseHeaders returns the captured incoming header block.
func (w *WireBuffer) ResponseHeaders() string {
	h, _ := w.dialect.Split(w.in)
	return h
}

// ResponseBody returns the captured incoming body.
func (w *WireBuffer) ResponseBody() string {
	_, b := w.dialect.Split(w.in)
	return b
}

// Elapsed returns the wall time between send and receive.
func (w *WireBuffer) Elapsed() time.Duration {
	if w.start.IsZero() || w.end.IsZero() {
		return 0
	}
	return w.end.Sub(w.start)
}

var callNameRE = regexp.MustCompile(`(?s)<(?:[\w.-]+:)?Body\b[^>]*>\s*<(?:[\w.-]+:)?([\w.-]+)`)

// CallName returns the method element name of the request body.
func (w *WireBuffer) CallName() string {
	m := callNameRE.FindStringSubmatch(w.RequestBody())
	if m == nil {
		return ""
	}
	return m[1]
}

// ResponseTime returns the server-reported processing time.
func (w *WireBuffer) ResponseTime() time.Duration {
	ms, _ := strconv.ParseInt(w.responseTag("responseTime"), 10, 64)
	return time.Duration(ms) * time.Millisecond
}

// Units returns the server-reported API units consumed by the call.
func (w *WireBuffer) Units() int64 {
	n, _ := strconv.ParseInt(w.responseTag("units"), 10, 64)
	return n
}

// Operations returns the server-reported operation count.
func (w *WireBuffer) Operations() int64 {
	n, _ := strconv.ParseInt(w.responseTag("operations"), 10, 64)
	return n
}

// RequestID returns the server-assigned request id.
func (w *WireBuffer) RequestID() string {
	return w.responseTag("requestId")
}

// HandshakeComplete reports whether both legs were captured and the
// response is not an HTML error page.
func (w *WireBuffer) HandshakeComplete() bool {
	outH, outB := w.dialect.Split(w.out)
	inH, inB := w.dialect.Split(w.in)
	if outH+outB == "" || inH+inB == "" {
		return false
	}
	return !LooksLikeHTML([]byte(inB))
}

// Raw returns both legs verbatim, request first.
func (w *WireBuffer) Raw() string {
	var b strings.Builder
	for _, l := range []Leg{w.out, w.in} {
		h, body := w.dialect.Split(l)
		b.WriteString(strings.TrimRight(h, "\r\n"))
		b.WriteString("\n\n")
		b.WriteString(body)
		b.WriteString("\n")
	}
	return b.String()
}

// Pretty returns both legs with indented XML bodies. Bodies that are not
// well-formed XML are kept as captured.
func (w *WireBuffer) Pretty() string {
	var b strings.Builder
	for _, l := range []Leg{w.out, w.in} {
		h, body := w.dialect.Split(l)
		b.WriteString(strings.TrimRight(h, "\r\n"))
		b.WriteString("\n\n")
		if pretty, err := IndentXML(body); err == nil {
			b.WriteString(pretty)
		} else {
			b.WriteString(body)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// Header tags scanned for metrics.
var tagRes = map[string]*regexp.Regexp{
	"responseTime": tagRE("responseTime"),
	"units":        tagRE("units"),
	"operations":   tagRE("operations"),
	"requestId":    tagRE("requestId"),
}

func tagRE(tag string) *regexp.Regexp {
	return regexp.MustCompile(`<(?:[\w.-]+:)?` + regexp.QuoteMeta(tag) + `(?:\s[^>]*)?>\s*([^<]*?)\s*</`)
}

func (w *WireBuffer) responseTag(tag string) string {
	m := tagRes[tag].FindStringSubmatch(w.ResponseBody())
	if m == nil {
		return ""
	}
	return m[1]
}

// LooksLikeHTML reports whether body is an HTML page rather than XML.
func LooksLikeHTML(body []byte) bool {
	head := body
	if len(head) > 512 {
		head = head[:512]
	}
	s := strings.ToLower(strings.TrimSpace(string(head)))
	return strings.HasPrefix(s, "<!doctype html") || strings.Contains(s, "<html")
}

// IndentXML re-indents an XML document. Namespace prefixes are kept as
// written.
func IndentXML(doc string) (string, error) {
	if strings.TrimSpace(doc) == "" {
		return "", errors.New("empty document")
	}
	dec := xml.NewDecoder(strings.NewReader(doc))
	var b strings.Builder
	depth := 0
	inline := false
	for {
		tok, err := dec.RawToken()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
		switch t := tok.(type) {
		case xml.ProcInst:
			b.WriteString("<?" + t.Target + " " + string(t.Inst) + "?>")
		case xml.StartElement:
			if b.Len() > 0 {
				b.WriteByte('\n')
			}
			b.WriteString(strings.Repeat("  ", depth))
			b.WriteString("<" + rawName(t.Name))
			for _, a := range t.Attr {
				b.WriteString(" " + rawName(a.Name) + `="`)
				_ = xml.EscapeText(&b, []byte(a.Value))
				b.WriteByte('"')
			}
			b.WriteByte('>')
			depth++
			inline = true
		case xml.EndElement:
			depth--
			if !inline {
				b.WriteByte('\n')
				b.WriteString(strings.Repeat("  ", depth))
			}
			b.WriteString("</" + rawName(t.Name) + ">")
			inline = false
		case xml.CharData:
			if text := strings.TrimSpace(string(t)); text != "" {
				_ = xml.EscapeText(&b, []byte(text))
			}
		}
	}
	if depth != 0 {
		return "", errors.New("unbalanced document")
	}
	return b.String(), nil
}

func rawName(n xml.Name) string {
	if n.Space == "" {
		return n.Local
	}
	return n.Space + ":" + n.Local
}
