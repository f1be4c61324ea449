package realtime

// State is the connection lifecycle state.
type State int

const (
	// StateIdle means no channel is active: before Start and after Close.
	StateIdle State = iota

	// StateConnecting means the first dial is in progress.
	StateConnecting

	// StateConnected means the transport is up but authentication has not been acknowledged.
	StateConnected

	// StateAuthenticated means the backend acknowledged authentication.
	StateAuthenticated

	// StateReconnecting means the transport dropped and the channel is redialing.
	StateReconnecting

	// StateFailed means reconnection was exhausted. Terminal: a new Manager is required.
	StateFailed
)

var stateNames = [...]string{
	StateIdle:          "idle",
	StateConnecting:    "connecting",
	StateConnected:     "connected",
	StateAuthenticated: "authenticated",
	StateReconnecting:  "reconnecting",
	StateFailed:        "failed",
}

// String implements fmt.Stringer.
func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Live reports whether a transport connection is up.
func (s State) Live() bool {
	return s == StateConnected || s == StateAuthenticated
}
