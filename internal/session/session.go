// Package session drives a capture Sequencer against a camera session.
//
// A Controller owns the sequencer and serializes every input to it
// (commands, AF/AE observations, still completions and device errors) on a
// single event loop goroutine. Intents returned by the sequencer are
// realized as repeating or one-shot submissions on the attached Session.
package session

import (
	"context"
	"time"

	"github.com/smazurov/camseq/internal/capture"
	"github.com/smazurov/camseq/internal/sizing"
)

// Still is a captured JPEG frame.
type Still struct {
	ID          string      `json:"id"`
	Data        []byte      `json:"-"`
	Size        sizing.Size `json:"size"`
	Orientation int         `json:"orientation"`
	CapturedAt  time.Time   `json:"captured_at"`
}

// Completion is delivered once per one-shot submission. Still is set only
// for requests addressed to the still target.
type Completion struct {
	Still *Still
	Err   error
}

// Session is a configured camera capture session.
//
// Implementations must not call back into the Controller synchronously
// from these methods; observations and errors are reported from the
// session's own goroutines.
type Session interface {
	// SubmitRepeating replaces the repeating request.
	SubmitRepeating(intent capture.Intent) error
	// SubmitOnce submits a single request. The returned channel receives
	// exactly one Completion.
	SubmitOnce(intent capture.Intent) (<-chan Completion, error)
	// StopRepeating halts the repeating request.
	StopRepeating() error
	Close() error
}

// ImageSink persists a still and returns where it was written.
type ImageSink interface {
	Save(ctx context.Context, still Still) (string, error)
}

// ErrorReporter receives fatal session errors.
type ErrorReporter interface {
	ReportError(err *capture.SessionError)
}

// ErrorReporterFunc adapts a function to ErrorReporter.
type ErrorReporterFunc func(err *capture.SessionError)

// ReportError calls f(err).
func (f ErrorReporterFunc) ReportError(err *capture.SessionError) { f(err) }
