package soap

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/smnsjas/go-adsoap/codec"
	"github.com/smnsjas/go-adsoap/soap/transport"
)

// Fault is a parsed SOAP fault.
type Fault struct {
	// FaultCode is the SOAP fault code (e.g., "soap:Server").
	FaultCode string

	// Message is the human-readable fault string or reason.
	Message string

	// Code is the numeric service error code from the detail, if any.
	Code *int

	// Type is the application exception type from the detail, if any.
	Type string

	// Errors holds the sub-errors listed in the detail.
	Errors []codec.Value

	// Detail is the whole detail element.
	Detail codec.Value

	// Raw is the response text the fault was parsed from.
	Raw []byte
}

// ErrorTypes returns the type of each sub-error, in order. A sub-error's
// type comes from its xsi:type, or failing that from its "ApiError.Type"
// or "type" field.
func (f *Fault) ErrorTypes() []string {
	types := make([]string, 0, len(f.Errors))
	for _, e := range f.Errors {
		types = append(types, errorType(e))
	}
	return types
}

func errorType(e codec.Value) string {
	if e.Type() != "" {
		return e.Type()
	}
	for _, key := range []string{"ApiError.Type", "type"} {
		if v, ok := e.Get(key); ok && v.Kind() == codec.KindScalar {
			return v.Str()
		}
	}
	return ""
}

// ParseFault parses a SOAP response and returns a Fault if present.
// Returns nil if the response does not contain a fault.
func ParseFault(data []byte) (*Fault, error) {
	resp, err := ParseResponse(data)
	if err != nil {
		return nil, fmt.Errorf("parse fault: %w", err)
	}
	return FaultFromResponse(resp, data)
}

// FaultFromResponse extracts the fault of an already parsed response.
// Both SOAP 1.1 (faultcode, faultstring, detail) and SOAP 1.2 (Code,
// Reason, Detail) layouts are accepted.
func FaultFromResponse(resp *Response, raw []byte) (*Fault, error) {
	if !resp.IsFault() {
		return nil, nil
	}
	node := resp.Payload()

	f := &Fault{Raw: raw}
	var detail *codec.Node
	switch {
	case node.Child("faultcode") != nil:
		f.FaultCode = strings.TrimSpace(node.Child("faultcode").Text)
		if fs := node.Child("faultstring"); fs != nil {
			f.Message = strings.TrimSpace(fs.Text)
		}
		detail = node.Child("detail")
	case node.Child("Code") != nil:
		if v := node.Child("Code").Child("Value"); v != nil {
			f.FaultCode = strings.TrimSpace(v.Text)
		}
		if r := node.Child("Reason"); r != nil {
			if txt := r.Child("Text"); txt != nil {
				f.Message = strings.TrimSpace(txt.Text)
			}
		}
		detail = node.Child("Detail")
	}
	if f.FaultCode == "" {
		return nil, fmt.Errorf("%w: fault has no code", ErrMalformedFault)
	}
	if detail == nil {
		return f, nil
	}

	f.Detail = codec.NewDecoder(nil).Unpack(detail, "detail", "")

	scope := detail
	if detail.Child("code") == nil && len(detail.Children) == 1 && !detail.Children[0].IsLeaf() {
		scope = detail.Children[0]
	}
	if c := scope.Child("code"); c != nil {
		n, err := strconv.Atoi(strings.TrimSpace(c.Text))
		if err != nil {
			return nil, fmt.Errorf("%w: non-numeric code %q", ErrMalformedFault, c.Text)
		}
		f.Code = &n
	}
	if t := scope.Child("ApplicationExceptionType"); t != nil {
		f.Type = strings.TrimSpace(t.Text)
	}
	if m := scope.Child("message"); m != nil && f.Message == "" {
		f.Message = strings.TrimSpace(m.Text)
	}

	dec := codec.NewDecoder(nil)
	for _, e := range scope.Children {
		if e.Name != "errors" || e.Nil {
			continue
		}
		f.Errors = append(f.Errors, dec.Unpack(e, "errors", ""))
	}
	return f, nil
}

// Classifier maps faults to kinds through a numeric code registry and a
// sub-error type registry.
type Classifier struct {
	mu    sync.RWMutex
	codes map[int]FaultKind
	types map[string]FaultKind
}

// DefaultCodes are the numeric codes registered by NewClassifier.
var DefaultCodes = map[int]FaultKind{
	1:  FaultInternal,
	2:  FaultAuthentication,
	3:  FaultAuthorization,
	41: FaultRateExceeded,
	42: FaultQuotaExceeded,
	45: FaultRequest,
}

// DefaultTypes are the sub-error types registered by NewClassifier.
var DefaultTypes = map[string]FaultKind{
	"AuthenticationError":    FaultAuthentication,
	"AuthorizationError":     FaultAuthorization,
	"QuotaCheckError":        FaultQuotaExceeded,
	"QuotaError":             FaultQuotaExceeded,
	"RateExceededError":      FaultRateExceeded,
	"RequestError":           FaultRequest,
	"InternalApiError":       FaultInternal,
	"DatabaseError":          FaultInternal,
	"RequiredError":          FaultServerValidation,
	"RangeError":             FaultServerValidation,
	"StringLengthError":      FaultServerValidation,
	"NotEmptyError":          FaultServerValidation,
	"ReadOnlyError":          FaultServerValidation,
	"EntityNotFound":         FaultRequest,
	"DistinctError":          FaultServerValidation,
	"SizeLimitError":         FaultRequest,
	"NullError":              FaultServerValidation,
	"IdError":                FaultServerValidation,
	"SelectorError":          FaultRequest,
	"OperationAccessDenied":  FaultAuthorization,
	"ClientTermsError":       FaultAuthorization,
	"NewEntityCreationError": FaultRequest,
}

// NewClassifier returns a classifier loaded with DefaultCodes and
// DefaultTypes.
func NewClassifier() *Classifier {
	c := &Classifier{
		codes: make(map[int]FaultKind, len(DefaultCodes)),
		types: make(map[string]FaultKind, len(DefaultTypes)),
	}
	for code, k := range DefaultCodes {
		c.codes[code] = k
	}
	for typ, k := range DefaultTypes {
		c.types[typ] = k
	}
	return c
}

// RegisterCode maps a numeric fault code to a kind.
func (c *Classifier) RegisterCode(code int, k FaultKind) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.codes[code] = k
}

// RegisterType maps a sub-error type to a kind.
func (c *Classifier) RegisterType(typ string, k FaultKind) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.types[typ] = k
}

// Kind selects the kind of f. A registered numeric code wins; otherwise the
// first sub-error decides; otherwise the fault is generic.
func (c *Classifier) Kind(f *Fault) FaultKind {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if f.Code != nil {
		if k, ok := c.codes[*f.Code]; ok {
			return k
		}
	}
	if len(f.Errors) > 0 {
		if k, ok := c.types[errorType(f.Errors[0])]; ok {
			return k
		}
	}
	return FaultAPI
}

// ClassifyFault wraps f in an APIFault of the selected kind.
func (c *Classifier) ClassifyFault(f *Fault) *APIFault {
	return &APIFault{Kind: c.Kind(f), Fault: f}
}

// Classify parses a fault payload and returns the typed error for it, or
// nil when the payload is not a fault. A payload that cannot be read as a
// fault yields a *transport.LocalError carrying the raw text.
func (c *Classifier) Classify(data []byte) error {
	f, err := ParseFault(data)
	if err != nil {
		return malformed(data, err)
	}
	if f == nil {
		return nil
	}
	return c.ClassifyFault(f)
}

// ClassifyResponse is Classify for an already parsed response.
func (c *Classifier) ClassifyResponse(resp *Response, raw []byte) error {
	f, err := FaultFromResponse(resp, raw)
	if err != nil {
		return malformed(raw, err)
	}
	if f == nil {
		return nil
	}
	return c.ClassifyFault(f)
}

func malformed(raw []byte, err error) error {
	if !errors.Is(err, ErrMalformedFault) {
		err = fmt.Errorf("%w: %w", ErrMalformedFault, err)
	}
	return &transport.LocalError{Body: raw, Err: err}
}
