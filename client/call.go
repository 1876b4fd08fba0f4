package client

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/smnsjas/go-adsoap/codec"
	adlog "github.com/smnsjas/go-adsoap/internal/log"
	"github.com/smnsjas/go-adsoap/soap"
	"github.com/smnsjas/go-adsoap/soap/auth"
	"github.com/smnsjas/go-adsoap/soap/transport"
)

const (
	// DefaultReturnField is the element holding a method's result.
	DefaultReturnField = "rval"

	// DefaultOperationsField is the parameter name mutate operations are
	// packed under.
	DefaultOperationsField = "operations"

	// WholeResponse as Request.ReturnField returns every child of the
	// method response element as one Composite, for methods with more
	// than one result element.
	WholeResponse = "*"
)

// Request describes one SOAP call.
type Request struct {
	// Service is the service name, e.g. "CampaignService".
	Service string

	// Group overrides Config.Group for this call.
	Group string

	// Method is the operation name, e.g. "get" or "mutate".
	Method string

	// Params are the method arguments, packed in order.
	Params []codec.Param

	// Operations are packed after Params under OperationsField. They are
	// validated before anything is sent.
	Operations      []codec.Operation
	OperationsField string

	// Envelope is a complete request document. When set, Params and
	// Operations are ignored and the envelope is sent as is.
	Envelope []byte

	// ReturnField names the result element. Default "rval"; see
	// WholeResponse.
	ReturnField string

	// ReturnType is the declared type of the result, used to find its
	// entry in the type table.
	ReturnType string

	// Raw returns the response body without decoding or fault
	// classification, as Config.RawResponse does for every call.
	Raw bool

	// Unauthenticated sends no RequestHeader and skips the token refresh.
	Unauthenticated bool
}

// Response is the result of a call.
type Response struct {
	// Value is the decoded result. It is Null in raw mode.
	Value codec.Value

	// Raw is the response body as received.
	Raw []byte

	// CallID is the client-local sequence number of the call.
	CallID int64

	// CallName is the first element of the request body.
	CallName string

	// RequestID, Units, Operations and ResponseTime are read from the
	// response header. They are zero when absent.
	RequestID    string
	Units        int64
	Operations   int64
	ResponseTime time.Duration

	// Elapsed is the wall time of the HTTP exchange.
	Elapsed time.Duration

	// Wire holds the captured traffic.
	Wire *transport.WireBuffer
}

// enter marks the start of a call stage.
func (c *Client) enter(s callState) error {
	if c.hook != nil {
		return c.hook(s)
	}
	return nil
}

// Do executes req. The session lock is held for the whole call and
// released on every return path.
//
// Errors are *soap.ConfigurationError, *codec.ValidationError,
// *auth.AuthError, *transport.LocalError, or *soap.APIFault.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.enter(stateLocked); err != nil {
		return nil, err
	}

	callID := c.session.begin()
	action := req.Service
	if req.Method != "" {
		action += "." + req.Method
	}
	logger := c.logger.With("call_id", callID, "call", action, "correlation_id", c.security.CorrelationID())

	body, err := c.encode(ctx, req, logger)
	if err != nil {
		c.security.LogCall(SubtypeCallFailed, OutcomeFailure, SeverityWarning, action, map[string]any{
			"call_id": callID,
			"stage":   stateEncoding.String(),
			"error":   err.Error(),
		})
		return nil, err
	}

	if err := c.enter(stateSending); err != nil {
		return nil, err
	}
	c.security.LogCall(SubtypeCallExecute, OutcomeAttempt, SeverityInfo, action, map[string]any{"call_id": callID})

	group := req.Group
	if group == "" {
		group = c.config.Group
	}
	wire := transport.NewWireBuffer(c.transport.Dialect())
	treq := &transport.Request{URL: c.Endpoint(group, req.Service), Body: body}

	var tresp *transport.Response
	err = c.breaker.Execute(func() error {
		var rtErr error
		tresp, rtErr = c.transport.RoundTrip(ctx, treq, wire)
		return rtErr
	})
	c.logWire(logger, wire)
	if err != nil {
		c.security.LogCall(SubtypeCallFailed, OutcomeFailure, SeverityError, action, map[string]any{
			"call_id": callID,
			"error":   err.Error(),
		})
		return nil, err
	}

	if err := c.enter(stateReceiving); err != nil {
		return nil, err
	}

	resp := &Response{
		Value:  codec.Null(),
		Raw:    tresp.Body,
		CallID: callID,
		Wire:   wire,
	}

	if req.Raw || c.config.RawResponse {
		if wire.HandshakeComplete() {
			c.session.record(wire)
		}
		fillMetrics(resp, wire)
		logger.Debug("raw response returned", "status", tresp.StatusCode, "bytes", len(tresp.Body))
		return resp, nil
	}

	parsed, err := parseEnvelope(tresp)
	if err != nil {
		c.security.LogCall(SubtypeCallFailed, OutcomeFailure, SeverityError, action, map[string]any{
			"call_id": callID,
			"status":  tresp.StatusCode,
		})
		return nil, err
	}

	if err := c.enter(stateDecoding); err != nil {
		return nil, err
	}

	if !parsed.IsFault() && (tresp.StatusCode < 200 || tresp.StatusCode > 299) {
		c.security.LogCall(SubtypeCallFailed, OutcomeFailure, SeverityError, action, map[string]any{
			"call_id": callID,
			"status":  tresp.StatusCode,
		})
		return nil, &transport.LocalError{
			Status: tresp.StatusCode,
			Body:   tresp.Body,
			Err:    fmt.Errorf("unexpected status for a non-fault response"),
		}
	}

	c.session.record(wire)
	fillMetrics(resp, wire)

	if parsed.IsFault() {
		err := c.classifier.ClassifyResponse(parsed, tresp.Body)
		logger.Warn("call faulted", "error", err, "request_id", resp.RequestID)
		c.security.LogCall(SubtypeCallFaulted, OutcomeFailure, SeverityWarning, action, map[string]any{
			"call_id":    callID,
			"request_id": resp.RequestID,
			"error":      err.Error(),
		})
		return nil, err
	}

	resp.Value = c.unpackReturn(parsed.Payload(), req)

	logger.Debug("call complete",
		"request_id", resp.RequestID,
		"units", resp.Units,
		"operations", resp.Operations,
		"elapsed", resp.Elapsed,
	)
	c.security.LogCall(SubtypeCallComplete, OutcomeSuccess, SeverityInfo, action, map[string]any{
		"call_id":    callID,
		"request_id": resp.RequestID,
		"units":      resp.Units,
	})
	return resp, nil
}

// encode builds the request document. It validates headers and operations
// first, so nothing leaves the process for a request that cannot succeed.
func (c *Client) encode(ctx context.Context, req Request, logger *slog.Logger) ([]byte, error) {
	if err := c.enter(stateEncoding); err != nil {
		return nil, err
	}

	if req.Service == "" {
		return nil, &soap.ConfigurationError{Field: "service", Msg: "is required"}
	}
	if req.Method == "" && req.Envelope == nil {
		return nil, &soap.ConfigurationError{Field: "method", Msg: "is required"}
	}

	var header *soap.RequestHeader
	if !req.Unauthenticated && req.Envelope == nil {
		h := c.config.header()
		h.AuthToken = c.session.token.Token
		if c.config.StrictValidation {
			if err := h.Validate(c.config.Version); err != nil {
				return nil, err
			}
		}
		header = &h
	}

	var params []byte
	if req.Envelope == nil {
		field := req.OperationsField
		if field == "" {
			field = DefaultOperationsField
		}
		if err := codec.ValidateOperations(c.table, field, c.config.StrictValidation, req.Operations...); err != nil {
			return nil, err
		}
		p, err := c.encoder.PackParams(req.Params...)
		if err != nil {
			return nil, fmt.Errorf("encode %s params: %w", req.Method, err)
		}
		ops, err := c.encoder.PackOperations(field, req.Operations...)
		if err != nil {
			return nil, fmt.Errorf("encode %s operations: %w", req.Method, err)
		}
		params = append(p, ops...)
	}

	if header != nil && c.config.UseAuthToken {
		if err := c.refreshToken(ctx, logger); err != nil {
			return nil, err
		}
		header.AuthToken = c.session.token.Token
		header.Email = ""
		header.Password = ""
	}

	if req.Envelope != nil {
		return req.Envelope, nil
	}

	group := req.Group
	if group == "" {
		group = c.config.Group
	}
	ns := soap.ServiceNamespace(c.config.NamespaceTemplate, group, c.config.Version)
	env := soap.NewEnvelope()
	if header != nil {
		if _, err := env.WithRequestHeader(*header, ns); err != nil {
			return nil, err
		}
	}
	env.WithMethod(req.Method, ns, params)
	return env.Marshal()
}

// refreshToken logs in again when the session token is stale. Must be
// called with c.mu held.
func (c *Client) refreshToken(ctx context.Context, logger *slog.Logger) error {
	before := c.session.token.Token
	err := c.tokens.EnsureFresh(ctx, &c.session.token, auth.Credentials{
		Username: c.config.Email,
		Password: c.config.Password,
	})
	if err != nil {
		c.security.LogAuthentication(SubtypeAuthFailure, OutcomeFailure, SeverityError, map[string]any{
			"error": err.Error(),
		})
		return err
	}
	if c.session.token.Token != before {
		logger.Info("auth token refreshed")
		c.security.LogAuthentication(SubtypeAuthSuccess, OutcomeSuccess, SeverityInfo, nil)
	}
	return nil
}

// parseEnvelope rejects bodies that are not SOAP: empty replies, HTML
// error pages, and unparsable XML. On a 401 the error also wraps
// transport.ErrUnauthorized.
func parseEnvelope(resp *transport.Response) (*soap.Response, error) {
	if len(resp.Body) == 0 {
		return nil, notSOAP(resp, nil, "empty response body")
	}
	if transport.LooksLikeHTML(resp.Body) {
		return nil, notSOAP(resp, resp.Body, "received an HTML page")
	}
	parsed, err := soap.ParseResponse(resp.Body)
	if err != nil {
		return nil, notSOAP(resp, resp.Body, err.Error())
	}
	return parsed, nil
}

func notSOAP(resp *transport.Response, body []byte, msg string) *transport.LocalError {
	cause := fmt.Errorf("%w: %s", transport.ErrNotXML, msg)
	if resp.StatusCode == http.StatusUnauthorized {
		cause = fmt.Errorf("%w: %w", transport.ErrUnauthorized, cause)
	}
	return &transport.LocalError{Status: resp.StatusCode, Body: body, Err: cause}
}

// unpackReturn decodes the result element of a method response. Repeated
// result elements become a Sequence.
func (c *Client) unpackReturn(payload *codec.Node, req Request) codec.Value {
	if payload == nil {
		return codec.Null()
	}
	field := req.ReturnField
	if field == "" {
		field = DefaultReturnField
	}
	if field == WholeResponse {
		return c.decoder.UnpackChildren(payload, payload.Name)
	}

	var nodes []*codec.Node
	for _, n := range payload.Children {
		if n.Name == field {
			nodes = append(nodes, n)
		}
	}
	switch len(nodes) {
	case 0:
		return codec.Null()
	case 1:
		return c.decoder.Unpack(nodes[0], field, req.ReturnType)
	}
	items := make([]codec.Value, 0, len(nodes))
	for _, n := range nodes {
		if n.Nil {
			continue
		}
		items = append(items, c.decoder.Unpack(n, field, req.ReturnType))
	}
	return codec.Sequence(items...)
}

func fillMetrics(resp *Response, wire *transport.WireBuffer) {
	resp.CallName = wire.CallName()
	resp.RequestID = wire.RequestID()
	resp.Units = wire.Units()
	resp.Operations = wire.Operations()
	resp.ResponseTime = wire.ResponseTime()
	resp.Elapsed = wire.Elapsed()
}

func (c *Client) logWire(logger *slog.Logger, wire *transport.WireBuffer) {
	if !logger.Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	text := wire.Raw()
	if c.config.PrettyPrintLogs {
		text = wire.Pretty()
	}
	logger.Debug("wire", "traffic", adlog.RedactXML(text))
}

// Call invokes method on service with params and returns the decoded
// "rval".
func (c *Client) Call(ctx context.Context, service, method string, params ...codec.Param) (codec.Value, error) {
	resp, err := c.Do(ctx, Request{Service: service, Method: method, Params: params})
	if err != nil {
		return codec.Null(), err
	}
	return resp.Value, nil
}

// Get calls service.get with selector. The result is typically a page with
// "entries" and "totalNumEntries".
func (c *Client) Get(ctx context.Context, service string, selector codec.Value) (codec.Value, error) {
	return c.Call(ctx, service, "get", codec.Param{Name: "selector", Value: selector})
}

// Mutate calls service.mutate with ops.
func (c *Client) Mutate(ctx context.Context, service string, ops ...codec.Operation) (codec.Value, error) {
	resp, err := c.Do(ctx, Request{Service: service, Method: "mutate", Operations: ops})
	if err != nil {
		return codec.Null(), err
	}
	return resp.Value, nil
}

// CallRaw sends a complete request envelope to service and returns the
// response body verbatim. Faults are not classified.
func (c *Client) CallRaw(ctx context.Context, service string, envelope []byte) ([]byte, error) {
	resp, err := c.Do(ctx, Request{Service: service, Envelope: envelope, Raw: true})
	if err != nil {
		return nil, err
	}
	return resp.Raw, nil
}
