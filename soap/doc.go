// Package soap builds SOAP 1.1 request envelopes for an XML web API and
// reads responses and faults back.
//
// The package covers the envelope layer only. Values inside the body are
// packed and unpacked by the codec package; bytes are carried by the
// transport subpackage.
//
// # Subpackages
//
//   - auth: Login token management and HTTP authenticators (Basic, NTLM, Bearer)
//   - transport: HTTP/TLS backends and wire capture
//
// # Faults
//
// A fault response is parsed into a Fault and classified by a Classifier:
//
//   - a registered numeric code selects the kind
//   - otherwise the type of the first sub-error selects it
//   - otherwise the fault is a generic FaultAPI
//
// The result is an *APIFault, which matches its kind with errors.Is:
//
//	if errors.Is(err, soap.FaultQuotaExceeded) {
//	    // back off until tomorrow
//	}
//
// A payload that claims to be a fault but cannot be read as one becomes a
// *transport.LocalError wrapping ErrMalformedFault.
package soap
