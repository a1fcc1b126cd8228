package capture

// State is the phase of the still-capture sequence.
type State string

// Sequencer states.
const (
	StateIdle                   State = "idle"                     // Previewing, no capture in progress
	StateAwaitingFocusLock      State = "awaiting_focus_lock"      // AF trigger sent, waiting for lock
	StateAwaitingPrecapture     State = "awaiting_precapture"      // AE precapture trigger sent
	StateAwaitingPostPrecapture State = "awaiting_post_precapture" // Waiting for AE to leave precapture
	StateCaptureReady           State = "capture_ready"            // Still request issued
)

// States returns every state in sequence order.
func States() []State {
	return []State{
		StateIdle,
		StateAwaitingFocusLock,
		StateAwaitingPrecapture,
		StateAwaitingPostPrecapture,
		StateCaptureReady,
	}
}

// Index returns the position of s in States, or -1.
func (s State) Index() int {
	for i, st := range States() {
		if st == s {
			return i
		}
	}
	return -1
}

// Capturing reports whether a capture sequence is in progress.
func (s State) Capturing() bool {
	return s != StateIdle
}

func (s State) String() string { return string(s) }
