package client

import (
	"github.com/smnsjas/go-adsoap/soap/auth"
	"github.com/smnsjas/go-adsoap/soap/transport"
)

// session is the mutable state shared by calls through one Client. It is
// read and written only while Client.mu is held.
type session struct {
	token auth.TokenState

	units      int64
	operations int64

	lastUnits      int64
	lastOperations int64

	// calls numbers the calls started through this session. The number
	// ties together the log lines and security events of one call.
	calls int64
}

// begin numbers a new call.
func (s *session) begin() int64 {
	s.calls++
	return s.calls
}

// record folds the usage reported in wire into the counters.
func (s *session) record(wire *transport.WireBuffer) {
	s.lastUnits = wire.Units()
	s.lastOperations = wire.Operations()
	s.units += s.lastUnits
	s.operations += s.lastOperations
}

// UnitsConsumed returns the API units consumed by all calls so far.
func (c *Client) UnitsConsumed() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session.units
}

// OperationsPerformed returns the operations performed by all calls so far.
func (c *Client) OperationsPerformed() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session.operations
}

// LastCallUnits returns the units consumed by the most recent call.
func (c *Client) LastCallUnits() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session.lastUnits
}

// LastCallOperations returns the operations performed by the most recent
// call.
func (c *Client) LastCallOperations() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session.lastOperations
}

// Calls returns the number of calls started through the client, including
// those that failed.
func (c *Client) Calls() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session.calls
}

// AuthToken returns the current auth token, or "" if none has been
// obtained. Treat the result as a secret.
func (c *Client) AuthToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session.token.Token
}
