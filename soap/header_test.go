package soap

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validHeader() RequestHeader {
	return RequestHeader{
		AuthToken:      "tok",
		DeveloperToken: "dev",
		UserAgent:      "ua",
	}
}

func TestRequestHeader_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*RequestHeader)
		version string
		field   string
	}{
		{name: "valid", mutate: func(*RequestHeader) {}},
		{name: "email and password instead of token", mutate: func(h *RequestHeader) {
			h.AuthToken, h.Email, h.Password = "", "a@b.c", "pw"
		}},
		{name: "missing user agent", mutate: func(h *RequestHeader) { h.UserAgent = "" }, field: "userAgent"},
		{name: "missing developer token", mutate: func(h *RequestHeader) { h.DeveloperToken = "" }, field: "developerToken"},
		{name: "missing credentials", mutate: func(h *RequestHeader) { h.AuthToken, h.Email = "", "a@b.c" }, field: "authToken"},
		{name: "client email and id", mutate: func(h *RequestHeader) { h.ClientEmail, h.ClientCustomerID = "x@y.z", "123" }, field: "clientEmail"},
		{name: "bad validateOnly", mutate: func(h *RequestHeader) { h.ValidateOnly = "maybe" }, field: "validateOnly"},
		{name: "bad partialFailure", mutate: func(h *RequestHeader) { h.PartialFailure = "2" }, field: "partialFailure"},
		{name: "partialFailure too early", mutate: func(h *RequestHeader) { h.PartialFailure = "y" }, version: "v201008", field: "partialFailure"},
		{name: "partialFailure supported", mutate: func(h *RequestHeader) { h.PartialFailure = "y" }, version: "v201101"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := validHeader()
			tt.mutate(&h)
			err := h.Validate(tt.version)
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			var cfgErr *ConfigurationError
			require.True(t, errors.As(err, &cfgErr), "expected ConfigurationError, got %v", err)
			assert.Equal(t, tt.field, cfgErr.Field)
		})
	}
}

func TestNormalizeBool(t *testing.T) {
	for in, want := range map[string]string{"y": "true", "True": "true", "1": "true", "n": "false", "FALSE": "false", "": ""} {
		got, ok := NormalizeBool(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}
	_, ok := NormalizeBool("perhaps")
	assert.False(t, ok)

	h := RequestHeader{ValidateOnly: "Y", PartialFailure: "0"}.Normalized()
	assert.Equal(t, "true", h.ValidateOnly)
	assert.Equal(t, "false", h.PartialFailure)
}
