package soap

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"

	"github.com/smnsjas/go-adsoap/codec"
)

// Envelope represents a SOAP 1.1 request envelope.
type Envelope struct {
	XMLName xml.Name `xml:"soapenv:Envelope"`

	// Namespace declarations
	NsSoap string `xml:"xmlns:soapenv,attr"`
	NsXsi  string `xml:"xmlns:xsi,attr"`

	Header *Header `xml:"soapenv:Header"`
	Body   *Body   `xml:"soapenv:Body"`
}

// Header represents the SOAP header.
type Header struct {
	Content []byte `xml:",innerxml"`
}

// Body represents the SOAP body.
type Body struct {
	Content []byte `xml:",innerxml"`
}

// NewEnvelope creates a new SOAP envelope with required namespace declarations.
func NewEnvelope() *Envelope {
	return &Envelope{
		NsSoap: NsSoap,
		NsXsi:  NsXsi,
		Header: &Header{},
		Body:   &Body{},
	}
}

// WithRequestHeader sets the RequestHeader element in the given namespace.
func (e *Envelope) WithRequestHeader(h RequestHeader, namespace string) (*Envelope, error) {
	h.Xmlns = namespace
	content, err := xml.Marshal(h)
	if err != nil {
		return nil, fmt.Errorf("marshal request header: %w", err)
	}
	e.Header.Content = content
	return e, nil
}

// WithMethod sets the body to a method element wrapping the packed params.
func (e *Envelope) WithMethod(method, namespace string, params []byte) *Envelope {
	var buf bytes.Buffer
	buf.WriteString(`<` + method + ` xmlns="` + namespace + `">`)
	buf.Write(params)
	buf.WriteString(`</` + method + `>`)
	e.Body.Content = buf.Bytes()
	return e
}

// Marshal serializes the envelope to XML, including the XML declaration.
func (e *Envelope) Marshal() ([]byte, error) {
	body, err := xml.Marshal(e)
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), body...), nil
}

// ErrNotEnvelope is returned when a response is XML but not a SOAP envelope.
var ErrNotEnvelope = errors.New("soap: response is not a SOAP envelope")

// Response is a parsed response envelope.
type Response struct {
	// Root is the Envelope element.
	Root *codec.Node

	// Header is the SOAP Header element, or nil.
	Header *codec.Node

	// Body is the SOAP Body element.
	Body *codec.Node
}

// Payload returns the first element inside the body (the method response
// or a Fault).
func (r *Response) Payload() *codec.Node {
	if r == nil || r.Body == nil || len(r.Body.Children) == 0 {
		return nil
	}
	return r.Body.Children[0]
}

// IsFault reports whether the body carries a SOAP fault.
func (r *Response) IsFault() bool {
	p := r.Payload()
	return p != nil && p.Name == "Fault"
}

// ParseResponse parses a SOAP 1.1 or 1.2 response envelope.
func ParseResponse(data []byte) (*Response, error) {
	root, err := codec.ParseXML(data)
	if err != nil {
		return nil, err
	}
	if root.Name != "Envelope" {
		return nil, fmt.Errorf("%w: root element is %q", ErrNotEnvelope, root.Name)
	}
	body := root.Child("Body")
	if body == nil {
		return nil, fmt.Errorf("%w: missing Body", ErrNotEnvelope)
	}
	return &Response{Root: root, Header: root.Child("Header"), Body: body}, nil
}
