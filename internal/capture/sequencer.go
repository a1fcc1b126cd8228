// Package capture implements the still-capture sequence for cameras that
// refine focus and exposure asynchronously.
//
// A Sequencer consumes AF/AE observations and tells its caller, through
// Intents, which request to submit next: lock focus, run the exposure
// precapture, take the still, and finally unlock focus and resume preview.
// It never talks to hardware and is not safe for concurrent use; drive it
// from a single goroutine.
package capture

import (
	"log/slog"

	"github.com/smazurov/camseq/internal/flash"
	"github.com/smazurov/camseq/internal/logging"
)

// Sequencer is the capture state machine.
type Sequencer struct {
	state        State
	afAvailable  bool
	flashMode    flash.Mode
	observations int
	logger       *slog.Logger
	onTransition TransitionFunc
}

// TransitionFunc is called synchronously after every state change.
type TransitionFunc func(from, to State)

// Option configures a Sequencer.
type Option func(*Sequencer)

// WithLogger overrides the capture module logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Sequencer) {
		s.logger = logger
	}
}

// WithTransitionHook registers fn to observe state changes.
func WithTransitionHook(fn TransitionFunc) Option {
	return func(s *Sequencer) {
		s.onTransition = fn
	}
}

// NewSequencer returns an idle sequencer. afAvailable selects whether a
// capture starts by locking focus or goes straight to the exposure
// precapture.
func NewSequencer(afAvailable bool, mode flash.Mode, opts ...Option) *Sequencer {
	s := &Sequencer{
		state:       StateIdle,
		afAvailable: afAvailable,
		flashMode:   mode,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logging.GetLogger("capture")
	}
	return s
}

// State returns the current state.
func (s *Sequencer) State() State {
	return s.state
}

// FlashMode returns the flash mode applied to new intents.
func (s *Sequencer) FlashMode() flash.Mode {
	return s.flashMode
}

// AutofocusAvailable reports whether captures begin with a focus lock.
func (s *Sequencer) AutofocusAvailable() bool {
	return s.afAvailable
}

// Observations returns how many observations were consumed since the last
// state change.
func (s *Sequencer) Observations() int {
	return s.observations
}

// RequestCapture starts a capture sequence. It fails with
// ErrAlreadyCapturing unless the sequencer is idle.
func (s *Sequencer) RequestCapture() (Intent, error) {
	if s.state != StateIdle {
		s.logger.Debug("Capture rejected", "state", s.state)
		return Intent{}, ErrAlreadyCapturing
	}

	if s.afAvailable {
		s.transition(StateAwaitingFocusLock)
		return lockFocusIntent(s.flashMode), nil
	}
	s.transition(StateAwaitingPrecapture)
	return precaptureIntent(s.flashMode), nil
}

// OnObservation advances the sequence with the AF/AE state of one capture
// result. The boolean is false when no request needs to be submitted.
func (s *Sequencer) OnObservation(obs Observation) (Intent, bool) {
	if s.state == StateIdle {
		return Intent{}, false
	}
	s.observations++

	switch s.state {
	case StateAwaitingFocusLock:
		switch {
		case obs.Af == AfAbsent:
			return s.captureStill(), true
		case obs.Af.Locked():
			if obs.Ae == AeAbsent || obs.Ae == AeConverged {
				return s.captureStill(), true
			}
			s.transition(StateAwaitingPrecapture)
			return precaptureIntent(s.flashMode), true
		}

	case StateAwaitingPrecapture:
		switch obs.Ae {
		case AeAbsent, AePrecapture, AeFlashRequired, AeConverged:
			s.transition(StateAwaitingPostPrecapture)
		}

	case StateAwaitingPostPrecapture:
		if obs.Ae != AePrecapture {
			return s.captureStill(), true
		}
	}

	return Intent{}, false
}

// OnStillCaptureCompleted ends the sequence and returns the request that
// cancels the focus lock before preview resumes.
func (s *Sequencer) OnStillCaptureCompleted() Intent {
	s.transition(StateIdle)
	return resumePreviewIntent(s.flashMode)
}

// Abort abandons an in-progress sequence without a still and returns the
// request that cancels the focus lock. The boolean is false when the
// sequencer was already idle.
func (s *Sequencer) Abort() (Intent, bool) {
	if s.state == StateIdle {
		return Intent{}, false
	}
	s.logger.Debug("Capture aborted", "state", s.state)
	s.transition(StateIdle)
	return resumePreviewIntent(s.flashMode), true
}

// Reset returns to idle unconditionally.
func (s *Sequencer) Reset() {
	if s.state != StateIdle {
		s.logger.Debug("Sequencer reset", "from", s.state)
	}
	s.transition(StateIdle)
}

// SetFlashMode records a new flash mode. While idle it returns the preview
// request carrying the new policy so it takes effect immediately; during a
// capture the mode applies from the next intent.
func (s *Sequencer) SetFlashMode(mode flash.Mode) (Intent, bool) {
	s.flashMode = mode
	if s.state != StateIdle {
		return Intent{}, false
	}
	return previewIntent(mode), true
}

// PreviewIntent returns the repeating preview request.
func (s *Sequencer) PreviewIntent() Intent {
	return previewIntent(s.flashMode)
}

func (s *Sequencer) captureStill() Intent {
	s.transition(StateCaptureReady)
	return captureStillIntent(s.flashMode)
}

func (s *Sequencer) transition(to State) {
	from := s.state
	s.state = to
	s.observations = 0
	if from == to {
		return
	}
	s.logger.Debug("Capture state changed", "from", from, "to", to)
	if s.onTransition != nil {
		s.onTransition(from, to)
	}
}
