package soap

import (
	"encoding/xml"
	"strings"
)

// partialFailureSince is the first API version that understands the
// partialFailure header.
const partialFailureSince = "v201101"

// RequestHeader is the credential and option header sent with every call.
// Element order is significant; it follows the field order below.
type RequestHeader struct {
	XMLName xml.Name `xml:"RequestHeader"`
	Xmlns   string   `xml:"xmlns,attr,omitempty"`

	AuthToken        string `xml:"authToken,omitempty"`
	Email            string `xml:"email,omitempty"`
	Password         string `xml:"password,omitempty"`
	ClientCustomerID string `xml:"clientCustomerId,omitempty"`
	ClientEmail      string `xml:"clientEmail,omitempty"`
	DeveloperToken   string `xml:"developerToken,omitempty"`
	UserAgent        string `xml:"userAgent,omitempty"`
	ValidateOnly     string `xml:"validateOnly,omitempty"`
	PartialFailure   string `xml:"partialFailure,omitempty"`
}

// NormalizeBool maps boolean-like strings ("y", "1", "True") to "true" or
// "false". Empty stays empty. ok is false for anything else.
func NormalizeBool(s string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return "", true
	case "true", "t", "y", "yes", "1", "on":
		return "true", true
	case "false", "f", "n", "no", "0", "off":
		return "false", true
	}
	return s, false
}

// Normalized returns a copy with the boolean toggles in canonical form.
// Values that cannot be normalized are left untouched for Validate to report.
func (h RequestHeader) Normalized() RequestHeader {
	h.ValidateOnly, _ = NormalizeBool(h.ValidateOnly)
	h.PartialFailure, _ = NormalizeBool(h.PartialFailure)
	return h
}

// Validate checks the header against the compatibility rules of version.
func (h RequestHeader) Validate(version string) error {
	if h.UserAgent == "" {
		return &ConfigurationError{Field: "userAgent", Msg: "is required"}
	}
	if h.DeveloperToken == "" {
		return &ConfigurationError{Field: "developerToken", Msg: "is required"}
	}
	if h.AuthToken == "" && (h.Email == "" || h.Password == "") {
		return &ConfigurationError{Field: "authToken", Msg: "an auth token or an email and password pair is required"}
	}
	if h.ClientEmail != "" && h.ClientCustomerID != "" {
		return &ConfigurationError{Field: "clientEmail", Msg: "cannot be combined with clientCustomerId"}
	}
	if _, ok := NormalizeBool(h.ValidateOnly); !ok {
		return &ConfigurationError{Field: "validateOnly", Msg: "must be a boolean, got " + h.ValidateOnly}
	}
	if _, ok := NormalizeBool(h.PartialFailure); !ok {
		return &ConfigurationError{Field: "partialFailure", Msg: "must be a boolean, got " + h.PartialFailure}
	}
	if h.PartialFailure != "" && version != "" && compareVersions(version, partialFailureSince) < 0 {
		return &ConfigurationError{Field: "partialFailure", Msg: "is not supported before " + partialFailureSince}
	}
	return nil
}

// compareVersions orders versions of the form "v201101". Versions share a
// fixed width, so after trimming the prefix a lexical compare is enough.
func compareVersions(a, b string) int {
	a = strings.TrimPrefix(strings.ToLower(a), "v")
	b = strings.TrimPrefix(strings.ToLower(b), "v")
	if len(a) != len(b) {
		if len(a) < len(b) {
			return -1
		}
		return 1
	}
	return strings.Compare(a, b)
}
