// ABOUTME: Connection supervisor states and connect-failure kinds
// ABOUTME: Shared by the supervisor loop, its logs and the /healthz endpoint
package supervisor

// State is the supervisor's view of the chat-platform session
type State int32

const (
	StateConnecting State = iota
	StateConnected
	StateDisconnected
	StateReconnecting
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateDisconnected:
		return "disconnected"
	case StateReconnecting:
		return "reconnecting"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// failureKind classifies a failed connect attempt
type failureKind int

const (
	failureUnknown failureKind = iota
	failureClosed
	failureRateLimited
	failureHTTP
	failureNetwork
)

func (k failureKind) String() string {
	switch k {
	case failureClosed:
		return "connection closed"
	case failureRateLimited:
		return "rate limited"
	case failureHTTP:
		return "http error"
	case failureNetwork:
		return "network error"
	default:
		return "unexpected error"
	}
}
