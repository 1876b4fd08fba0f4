package soap

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smnsjas/go-adsoap/soap/transport"
)

func soap11Fault(detail string) []byte {
	return []byte(`<?xml version="1.0"?>` +
		`<soap:Envelope xmlns:soap="` + NsSoap + `" xmlns:xsi="` + NsXsi + `"><soap:Body>` +
		`<soap:Fault><faultcode>soap:Server</faultcode><faultstring>The request failed.</faultstring>` +
		detail + `</soap:Fault></soap:Body></soap:Envelope>`)
}

// TestParseFault_Soap11 verifies code, message and detail extraction.
func TestParseFault_Soap11(t *testing.T) {
	f, err := ParseFault(soap11Fault(`<detail><code>42</code><trigger>units</trigger></detail>`))
	require.NoError(t, err)
	require.NotNil(t, f)

	assert.Equal(t, "soap:Server", f.FaultCode)
	assert.Equal(t, "The request failed.", f.Message)
	require.NotNil(t, f.Code)
	assert.Equal(t, 42, *f.Code)
	trigger, ok := f.Detail.Get("trigger")
	require.True(t, ok)
	assert.Equal(t, "units", trigger.Str())
}

// TestParseFault_Soap12 verifies the SOAP 1.2 layout.
func TestParseFault_Soap12(t *testing.T) {
	doc := `<s:Envelope xmlns:s="` + NsSoap12 + `"><s:Body><s:Fault>` +
		`<s:Code><s:Value>s:Sender</s:Value></s:Code><s:Reason><s:Text xml:lang="en">Bad input</s:Text></s:Reason>` +
		`<s:Detail><code>2</code></s:Detail></s:Fault></s:Body></s:Envelope>`

	f, err := ParseFault([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, "s:Sender", f.FaultCode)
	assert.Equal(t, "Bad input", f.Message)
	require.NotNil(t, f.Code)
	assert.Equal(t, 2, *f.Code)
}

// TestParseFault_ApiExceptionWrapper verifies sub-errors inside a wrapper element.
func TestParseFault_ApiExceptionWrapper(t *testing.T) {
	data := soap11Fault(`<detail><ApiExceptionFault>` +
		`<message>[QuotaCheckError.INSUFFICIENT_API_QUOTA]</message>` +
		`<ApplicationExceptionType>ApiException</ApplicationExceptionType>` +
		`<errors xsi:type="ns2:QuotaCheckError"><fieldPath/><reason>INSUFFICIENT_API_QUOTA</reason></errors>` +
		`<errors><ApiError.Type>RequiredError</ApiError.Type></errors>` +
		`</ApiExceptionFault></detail>`)

	f, err := ParseFault(data)
	require.NoError(t, err)
	assert.Equal(t, "ApiException", f.Type)
	assert.Nil(t, f.Code)
	assert.Equal(t, []string{"QuotaCheckError", "RequiredError"}, f.ErrorTypes())
}

// TestParseFault_NoFault verifies a normal response yields nil.
func TestParseFault_NoFault(t *testing.T) {
	doc := `<soap:Envelope xmlns:soap="` + NsSoap + `"><soap:Body><getResponse/></soap:Body></soap:Envelope>`
	f, err := ParseFault([]byte(doc))
	assert.NoError(t, err)
	assert.Nil(t, f)
}

func TestClassifier_RegisteredCode(t *testing.T) {
	err := NewClassifier().Classify(soap11Fault(`<detail><code>42</code></detail>`))

	var fault *APIFault
	require.True(t, errors.As(err, &fault), "got %v", err)
	assert.Equal(t, FaultQuotaExceeded, fault.Kind)
	assert.True(t, errors.Is(err, FaultQuotaExceeded))
	assert.False(t, errors.Is(err, FaultRateExceeded))
	assert.Contains(t, err.Error(), "QuotaExceededError")
}

func TestClassifier_UnregisteredCodeIsGeneric(t *testing.T) {
	err := NewClassifier().Classify(soap11Fault(`<detail><code>9999</code></detail>`))

	var fault *APIFault
	require.True(t, errors.As(err, &fault))
	assert.Equal(t, FaultAPI, fault.Kind)
	assert.Equal(t, 9999, *fault.Code)
	assert.NotEmpty(t, fault.Raw)
}

func TestClassifier_FirstSubErrorType(t *testing.T) {
	data := soap11Fault(`<detail><ApiExceptionFault>` +
		`<errors xsi:type="AuthenticationError"><reason>GOOGLE_ACCOUNT_COOKIE_INVALID</reason></errors>` +
		`<errors xsi:type="QuotaCheckError"/>` +
		`</ApiExceptionFault></detail>`)

	err := NewClassifier().Classify(data)
	assert.True(t, errors.Is(err, FaultAuthentication), "got %v", err)
}

func TestClassifier_CodeBeatsType(t *testing.T) {
	data := soap11Fault(`<detail><ApiExceptionFault><code>41</code>` +
		`<errors xsi:type="AuthenticationError"/></ApiExceptionFault></detail>`)

	assert.True(t, errors.Is(NewClassifier().Classify(data), FaultRateExceeded))
}

func TestClassifier_Register(t *testing.T) {
	c := NewClassifier()
	c.RegisterCode(9999, FaultInternal)
	c.RegisterType("PolicyViolationError", FaultServerValidation)

	assert.True(t, errors.Is(c.Classify(soap11Fault(`<detail><code>9999</code></detail>`)), FaultInternal))
	assert.True(t, errors.Is(
		c.Classify(soap11Fault(`<detail><errors xsi:type="PolicyViolationError"/></detail>`)),
		FaultServerValidation))

	// Registries are per classifier.
	assert.True(t, errors.Is(NewClassifier().Classify(soap11Fault(`<detail><code>9999</code></detail>`)), FaultAPI))
}

func TestClassifier_MalformedFaultIsLocalError(t *testing.T) {
	tests := map[string][]byte{
		"no fault code":    []byte(`<soap:Envelope xmlns:soap="` + NsSoap + `"><soap:Body><soap:Fault><faultstring>x</faultstring></soap:Fault></soap:Body></soap:Envelope>`),
		"non-numeric code": soap11Fault(`<detail><code>forty-two</code></detail>`),
		"truncated":        []byte(`<soap:Envelope xmlns:soap="` + NsSoap + `"><soap:Body><soap:Fault>`),
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			err := NewClassifier().Classify(data)

			var le *transport.LocalError
			require.True(t, errors.As(err, &le), "got %v", err)
			assert.True(t, errors.Is(err, ErrMalformedFault))
			assert.Equal(t, data, le.Body)
			assert.False(t, IsFault(err))
		})
	}
}

func TestClassifier_NotAFault(t *testing.T) {
	doc := `<soap:Envelope xmlns:soap="` + NsSoap + `"><soap:Body><getResponse/></soap:Body></soap:Envelope>`
	assert.NoError(t, NewClassifier().Classify([]byte(doc)))
}

func TestFaultKind_String(t *testing.T) {
	for k := FaultAPI; k <= FaultServerValidation; k++ {
		assert.NotEmpty(t, k.String(), fmt.Sprint(int(k)))
	}
	assert.Equal(t, "ApiFault", FaultKind(99).String())
}

func TestConfigurationError(t *testing.T) {
	assert.Equal(t, "configuration: email: is required", (&ConfigurationError{Field: "email", Msg: "is required"}).Error())
	assert.Equal(t, "configuration: boom", (&ConfigurationError{Msg: "boom"}).Error())
}
