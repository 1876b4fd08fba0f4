package client

import (
	"errors"
	"sync"
	"time"

	"github.com/smnsjas/go-adsoap/soap/auth"
	"github.com/smnsjas/go-adsoap/soap/transport"
)

// CircuitState represents the state of the circuit breaker.
type CircuitState int

const (
	// StateClosed means the circuit acts normally (requests pass).
	StateClosed CircuitState = iota
	// StateOpen means the circuit fails fast (requests blocked).
	StateOpen
	// StateHalfOpen means the circuit is probing (one request passes).
	StateHalfOpen
)

// String returns the string representation of the state.
func (s CircuitState) String() string {
	switch s {
	case StateClosed:
		return "Closed"
	case StateOpen:
		return "Open"
	case StateHalfOpen:
		return "Half-Open"
	default:
		return "Unknown"
	}
}

// ErrCircuitOpen is returned when the circuit breaker is open. Nothing is
// sent while the circuit is open.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitBreakerPolicy configures a CircuitBreaker.
type CircuitBreakerPolicy struct {
	// Enabled turns the breaker on. A disabled breaker passes every call.
	Enabled bool

	// FailureThreshold is the number of consecutive failures that opens
	// the circuit.
	FailureThreshold int

	// ResetTimeout is how long the circuit stays open before a trial call.
	ResetTimeout time.Duration

	// IsFailure decides which errors count. Nil counts transport-level
	// errors only; SOAP faults are answers from a healthy server.
	IsFailure func(error) bool

	// Event callbacks, invoked asynchronously.
	OnStateChange func(from, to CircuitState)
	OnOpen        func()
	OnClose       func()
	OnHalfOpen    func()
}

// DefaultCircuitBreakerPolicy opens after 5 transport failures and tries
// again after 30 seconds.
func DefaultCircuitBreakerPolicy() *CircuitBreakerPolicy {
	return &CircuitBreakerPolicy{
		Enabled:          true,
		FailureThreshold: 5,
		ResetTimeout:     30 * time.Second,
	}
}

// CircuitBreaker stops sending to an endpoint that keeps failing at the
// transport level.
type CircuitBreaker struct {
	mu sync.Mutex

	state       CircuitState
	failures    int
	lastFailure time.Time

	// Policy
	threshold int
	timeout   time.Duration
	enabled   bool
	isFailure func(error) bool
	clock     auth.Clock

	// Event callbacks
	onStateChange func(from, to CircuitState)
	onOpen        func()
	onClose       func()
	onHalfOpen    func()
}

// NewCircuitBreaker creates a new circuit breaker with the given policy.
// A nil policy returns a disabled breaker.
func NewCircuitBreaker(policy *CircuitBreakerPolicy, clock auth.Clock) *CircuitBreaker {
	if clock == nil {
		clock = auth.SystemClock
	}
	if policy == nil {
		return &CircuitBreaker{enabled: false, clock: clock}
	}
	isFailure := policy.IsFailure
	if isFailure == nil {
		isFailure = transport.IsLocalError
	}
	return &CircuitBreaker{
		state:         StateClosed,
		threshold:     policy.FailureThreshold,
		timeout:       policy.ResetTimeout,
		enabled:       policy.Enabled,
		isFailure:     isFailure,
		clock:         clock,
		onStateChange: policy.OnStateChange,
		onOpen:        policy.OnOpen,
		onClose:       policy.OnClose,
		onHalfOpen:    policy.OnHalfOpen,
	}
}

// Execute runs fn unless the circuit is open.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	if cb == nil || !cb.enabled {
		return fn()
	}

	if err := cb.checkState(); err != nil {
		return err
	}

	err := fn()

	cb.updateState(err)

	return err
}

// checkState determines if execution is allowed.
func (cb *CircuitBreaker) checkState() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateOpen {
		if cb.clock.Now().Sub(cb.lastFailure) > cb.timeout {
			cb.transitionToLocked(StateHalfOpen)
			return nil
		}
		return ErrCircuitOpen
	}
	return nil
}

// transitionToLocked changes state and fires callbacks.
// Must be called with cb.mu held.
func (cb *CircuitBreaker) transitionToLocked(newState CircuitState) {
	if cb.state == newState {
		return
	}
	oldState := cb.state
	cb.state = newState

	if cb.onStateChange != nil {
		go cb.onStateChange(oldState, newState)
	}

	switch newState {
	case StateOpen:
		if cb.onOpen != nil {
			go cb.onOpen()
		}
	case StateClosed:
		if cb.onClose != nil {
			go cb.onClose()
		}
	case StateHalfOpen:
		if cb.onHalfOpen != nil {
			go cb.onHalfOpen()
		}
	}
}

// updateState updates the breaker state based on the result of the call.
func (cb *CircuitBreaker) updateState(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if err == nil || !cb.isFailure(err) {
		// The server answered.
		if cb.state == StateHalfOpen {
			cb.transitionToLocked(StateClosed)
		}
		cb.failures = 0
		return
	}

	cb.failures++
	cb.lastFailure = cb.clock.Now()

	if cb.state == StateHalfOpen {
		cb.transitionToLocked(StateOpen)
		return
	}

	if cb.state == StateClosed && cb.failures >= cb.threshold {
		cb.transitionToLocked(StateOpen)
	}
}

// State returns the current state (thread-safe).
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}
