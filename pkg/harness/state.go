package harness

// State is the lifecycle state of a Session. It only ever advances through
// the transition graph; the single deliberate regression is Ready back to
// AwaitingReady on Reload.
type State int

const (
	// Created is the initial state of a new Session.
	Created State = iota

	// Starting means the application server is binding and the browser
	// shell is launching.
	Starting

	// AwaitingReady means navigation was issued and the controller is
	// polling for the page's readiness signal.
	AwaitingReady

	// Ready means the page signaled readiness; the session handle is live
	// and interaction helpers may be used.
	Ready

	// Failed means startup or reload failed; the session has already been
	// torn down and only Close (a no-op by then) remains valid.
	Failed

	// Closed is terminal. A closed Session cannot be restarted.
	Closed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Created:
		return "Created"
	case Starting:
		return "Starting"
	case AwaitingReady:
		return "AwaitingReady"
	case Ready:
		return "Ready"
	case Failed:
		return "Failed"
	case Closed:
		return "Closed"
	default:
		return "Unknown"
	}
}
