package client

// callState is a stage of one call through Do.
type callState int

const (
	stateIdle callState = iota
	stateLocked
	stateEncoding
	stateSending
	stateReceiving
	stateDecoding
)

// String returns the string representation of the state.
func (s callState) String() string {
	switch s {
	case stateIdle:
		return "Idle"
	case stateLocked:
		return "LockAcquired"
	case stateEncoding:
		return "Encoding"
	case stateSending:
		return "Sending"
	case stateReceiving:
		return "Receiving"
	case stateDecoding:
		return "Decoding"
	default:
		return "Unknown"
	}
}
