package eventloop

// LifecycleState is the three-state machine that governs a Loop's worker
// goroutine. Two copies of this value exist at any time: one guarded by the
// Mailbox mutex (authoritative for external callers) and one private to the
// worker (authoritative for the event pump). The worker reconciles its
// private copy from a snapshot taken under the Mailbox lock during drain;
// the two are never merged into a single shared atomic, because the worker's
// hot path must not touch the Mailbox lock on every iteration.
type LifecycleState int

const (
	// StateReady is the initial state, and the state after a completed Join.
	// A Loop may be Run from this state only.
	StateReady LifecycleState = iota
	// StateRunning indicates the worker goroutine is alive and pumping events.
	StateRunning
	// StateStopping indicates Stop has been requested; the worker will exit
	// at the next iteration boundary (or sooner, see drain handling).
	StateStopping
)

// String returns a human-readable representation of the state.
func (s LifecycleState) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	default:
		return "unknown"
	}
}
