package events

// Event type constants for kelindar/event.
const (
	TypeCaptureStarted uint32 = iota + 1
	TypeCaptureStateChanged
	TypeCaptureSuccess
	TypeCaptureError
	TypeSessionError
	TypeFlashModeChanged
	TypeLogEntry
	TypeCaptureMetrics
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// CaptureStartedEvent is published when a capture request is accepted.
type CaptureStartedEvent struct {
	CaptureID string `json:"capture_id" example:"6f1c2a9e-4b7d-4a8e-9c31-2f5d7e0b1a44" doc:"Capture identifier"`
	Autofocus bool   `json:"autofocus" example:"true" doc:"Whether the sequence starts with a focus lock"`
	FlashMode string `json:"flash_mode" example:"auto" doc:"Flash mode applied to the capture"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for CaptureStartedEvent.
func (e CaptureStartedEvent) Type() uint32 { return TypeCaptureStarted }

// CaptureStateChangedEvent is published on every sequencer transition.
// Used for LED control and other reactive subsystems.
type CaptureStateChangedEvent struct {
	CaptureID string `json:"capture_id,omitempty" doc:"Capture in progress, if any"`
	From      string `json:"from" example:"awaiting_focus_lock" doc:"Previous state"`
	To        string `json:"to" example:"capture_ready" doc:"New state"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for CaptureStateChangedEvent.
func (e CaptureStateChangedEvent) Type() uint32 { return TypeCaptureStateChanged }

// Capturing reports whether the new state is part of a capture sequence.
func (e CaptureStateChangedEvent) Capturing() bool {
	return e.To != "idle"
}

// CaptureSuccessEvent is published when a still has been saved.
type CaptureSuccessEvent struct {
	CaptureID  string `json:"capture_id" doc:"Capture identifier"`
	Path       string `json:"path" example:"/var/lib/camseq/IMG_20250127_103000_6f1c2a9e.jpg" doc:"Saved image location"`
	Width      int    `json:"width" example:"4032" doc:"Image width in pixels"`
	Height     int    `json:"height" example:"3024" doc:"Image height in pixels"`
	DurationMs int64  `json:"duration_ms" example:"412" doc:"Time from request to saved image"`
	Timestamp  string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Capture timestamp"`
}

// Type returns the event type identifier for CaptureSuccessEvent.
func (e CaptureSuccessEvent) Type() uint32 { return TypeCaptureSuccess }

// CaptureErrorEvent is published when a capture fails or is abandoned.
type CaptureErrorEvent struct {
	CaptureID string `json:"capture_id" doc:"Capture identifier"`
	Message   string `json:"message" example:"Capture failed" doc:"Error message"`
	Error     string `json:"error" example:"capture timed out waiting for focus or exposure" doc:"Detailed error description"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Error timestamp"`
}

// Type returns the event type identifier for CaptureErrorEvent.
func (e CaptureErrorEvent) Type() uint32 { return TypeCaptureError }

// SessionErrorEvent carries a fatal camera or session failure.
type SessionErrorEvent struct {
	Code      string `json:"code" example:"CAMERA_DISCONNECTED" doc:"Error code"`
	Message   string `json:"message" example:"camera device was disconnected" doc:"Error message"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Error timestamp"`
}

// Type returns the event type identifier for SessionErrorEvent.
func (e SessionErrorEvent) Type() uint32 { return TypeSessionError }

// FlashModeChangedEvent is published when the flash mode changes.
type FlashModeChangedEvent struct {
	Mode      string `json:"mode" example:"auto" doc:"New flash mode"`
	AEMode    string `json:"ae_mode" example:"on_auto_flash" doc:"Resolved auto-exposure mode"`
	Flash     string `json:"flash" example:"single" doc:"Resolved flash actuation"`
	Source    string `json:"source" example:"api" doc:"What changed the mode: api, config or cli"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for FlashModeChangedEvent.
func (e FlashModeChangedEvent) Type() uint32 { return TypeFlashModeChanged }

// LogEntryEvent represents a log entry for SSE streaming.
type LogEntryEvent struct {
	Seq        uint64         `json:"seq" example:"42" doc:"Monotonic sequence number for deduplication"`
	Timestamp  string         `json:"timestamp" example:"2025-01-09T10:30:00.123Z" doc:"Log timestamp"`
	Level      string         `json:"level" example:"info" doc:"Log level"`
	Module     string         `json:"module" example:"session" doc:"Source module"`
	Message    string         `json:"message" doc:"Log message"`
	Attributes map[string]any `json:"attributes,omitempty" doc:"Structured log attributes"`
}

// Type returns the event type identifier for LogEntryEvent.
func (e LogEntryEvent) Type() uint32 { return TypeLogEntry }

// CaptureMetricsEvent is a periodic snapshot of capture counters.
type CaptureMetricsEvent struct {
	EventType      string `json:"type"`
	State          string `json:"state" example:"idle" doc:"Current sequencer state"`
	Successes      string `json:"successes" example:"12" doc:"Captures saved"`
	Failures       string `json:"failures" example:"1" doc:"Captures that failed, timed out or were cancelled"`
	Rejected       string `json:"rejected" example:"0" doc:"Captures rejected while another was running"`
	Observations   string `json:"observations" example:"5120" doc:"Observations consumed"`
	LastDurationMs string `json:"last_duration_ms" example:"412" doc:"Duration of the last successful capture"`
}

// Type returns the event type identifier for CaptureMetricsEvent.
func (e CaptureMetricsEvent) Type() uint32 { return TypeCaptureMetrics }
