package log

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
)

// Redacted replaces every masked value.
const Redacted = "[REDACTED]"

// sensitiveKeys defines the list of keys whose values should be redacted.
// Keys are case-insensitive.
var sensitiveKeys = map[string]struct{}{
	"password": {},
	"passwd":   {},
	"secret":   {},
	"token":    {},
	"auth":     {},
	"cred":     {},
	"cookie":   {},
}

// sensitiveElements are the XML elements whose text RedactXML masks.
var sensitiveElements = []string{"authToken", "password", "developerToken", "Passwd"}

var sensitiveElementRE = regexp.MustCompile(
	`(<(?:[\w.-]+:)?(?:` + strings.Join(sensitiveElements, "|") + `)(?:\s[^>]*)?>)[^<]*(</)`)

// RedactXML masks the text of credential elements in an XML document.
// Anything that is not such an element is returned unchanged.
func RedactXML(doc string) string {
	return sensitiveElementRE.ReplaceAllString(doc, "${1}"+Redacted+"${2}")
}

// RedactingHandler is a slog.Handler that redacts sensitive information:
// attributes with sensitive keys, and credential elements inside string
// values that look like XML.
type RedactingHandler struct {
	next slog.Handler
}

// NewRedactingHandler creates a new RedactingHandler.
func NewRedactingHandler(next slog.Handler) *RedactingHandler {
	return &RedactingHandler{next: next}
}

// Enabled implements slog.Handler.
func (h *RedactingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

// Handle implements slog.Handler. It redacts sensitive attributes before passing to the next handler.
func (h *RedactingHandler) Handle(ctx context.Context, r slog.Record) error {
	var attrs []slog.Attr

	r.Attrs(func(a slog.Attr) bool {
		attrs = append(attrs, redactAttr(a))
		return true
	})

	newRecord := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)
	newRecord.AddAttrs(attrs...)

	return h.next.Handle(ctx, newRecord)
}

// WithAttrs implements slog.Handler.
func (h *RedactingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	redactedAttrs := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		redactedAttrs[i] = redactAttr(a)
	}
	return &RedactingHandler{next: h.next.WithAttrs(redactedAttrs)}
}

// WithGroup implements slog.Handler.
func (h *RedactingHandler) WithGroup(name string) slog.Handler {
	return &RedactingHandler{next: h.next.WithGroup(name)}
}

func redactAttr(a slog.Attr) slog.Attr {
	a.Value = a.Value.Resolve()

	if a.Value.Kind() == slog.KindGroup {
		attrs := a.Value.Group()
		redactedGroup := make([]any, len(attrs))
		for i, attr := range attrs {
			redactedGroup[i] = redactAttr(attr)
		}
		return slog.Group(a.Key, redactedGroup...)
	}

	lowerKey := strings.ToLower(a.Key)
	for sens := range sensitiveKeys {
		if strings.Contains(lowerKey, sens) {
			return slog.String(a.Key, Redacted)
		}
	}

	if a.Value.Kind() == slog.KindString {
		if s := a.Value.String(); strings.HasPrefix(strings.TrimSpace(s), "<") {
			return slog.String(a.Key, RedactXML(s))
		}
	}

	return a
}
