package soap

import (
	"errors"
	"fmt"
	"strings"
)

// ConfigurationError reports missing or invalid client configuration:
// credentials, header values, or options. It is returned before any
// request is sent and is never worth retrying.
type ConfigurationError struct {
	// Field names the offending option or header.
	Field string

	// Msg describes the problem.
	Msg string
}

// Error implements the error interface.
func (e *ConfigurationError) Error() string {
	if e.Field == "" {
		return "configuration: " + e.Msg
	}
	return fmt.Sprintf("configuration: %s: %s", e.Field, e.Msg)
}

// FaultKind identifies the class of a server-reported fault.
type FaultKind int

const (
	// FaultAPI is the generic kind used when no registry entry matches.
	FaultAPI FaultKind = iota
	FaultAuthentication
	FaultAuthorization
	FaultQuotaExceeded
	FaultRateExceeded
	FaultRequest
	FaultInternal
	FaultServerValidation
)

// String returns the string representation of the fault kind.
func (k FaultKind) String() string {
	switch k {
	case FaultAuthentication:
		return "AuthenticationError"
	case FaultAuthorization:
		return "AuthorizationError"
	case FaultQuotaExceeded:
		return "QuotaExceededError"
	case FaultRateExceeded:
		return "RateExceededError"
	case FaultRequest:
		return "RequestError"
	case FaultInternal:
		return "InternalError"
	case FaultServerValidation:
		return "ValidationError"
	default:
		return "ApiFault"
	}
}

// Error lets a kind be used as an errors.Is target.
func (k FaultKind) Error() string {
	return k.String()
}

// APIFault is a well-formed fault reported by the server.
type APIFault struct {
	// Kind is the classified kind.
	Kind FaultKind

	// Fault is the parsed payload.
	*Fault
}

// Error implements the error interface.
func (e *APIFault) Error() string {
	var parts []string
	if e.Fault != nil {
		if e.FaultCode != "" {
			parts = append(parts, e.FaultCode)
		}
		if e.Message != "" {
			parts = append(parts, e.Message)
		}
		if e.Code != nil {
			parts = append(parts, fmt.Sprintf("code=%d", *e.Code))
		}
		if e.Type != "" {
			parts = append(parts, "type="+e.Type)
		}
	}
	msg := "soap fault: " + e.Kind.String()
	if len(parts) > 0 {
		msg += ": " + strings.Join(parts, ": ")
	}
	return msg
}

// Is reports whether target is the fault's kind, so callers can write
// errors.Is(err, soap.FaultQuotaExceeded).
func (e *APIFault) Is(target error) bool {
	k, ok := target.(FaultKind)
	return ok && k == e.Kind
}

// IsFault returns true if the error is an APIFault.
func IsFault(err error) bool {
	var f *APIFault
	return errors.As(err, &f)
}

// ErrMalformedFault marks a response that claims to be a fault but does not
// have the expected structure.
var ErrMalformedFault = errors.New("soap: malformed fault")
