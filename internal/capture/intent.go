package capture

import "github.com/smazurov/camseq/internal/flash"

// Kind identifies what a capture request intent asks the session to do.
type Kind string

// Intent kinds.
const (
	KindLockFocus     Kind = "lock_focus"
	KindPrecapture    Kind = "precapture"
	KindCaptureStill  Kind = "capture_still"
	KindResumePreview Kind = "resume_preview"
	KindPreview       Kind = "preview"
)

// Target is the output a request is addressed to.
type Target string

// Targets.
const (
	TargetPreview Target = "preview"
	TargetStill   Target = "still"
)

// AFTrigger is the autofocus trigger carried by a request.
type AFTrigger string

// AF triggers.
const (
	AFTriggerNone   AFTrigger = "none"
	AFTriggerStart  AFTrigger = "start"
	AFTriggerCancel AFTrigger = "cancel"
)

// AETrigger is the auto-exposure precapture trigger carried by a request.
type AETrigger string

// AE precapture triggers.
const (
	AETriggerNone  AETrigger = "none"
	AETriggerStart AETrigger = "start"
)

// AFMode is the autofocus mode requested. Every request uses continuous
// picture focus.
type AFMode string

// AFModeContinuousPicture is the only AF mode the sequencer issues.
const AFModeContinuousPicture AFMode = "continuous_picture"

// Intent describes the next request the session should submit. It carries
// no hardware handles; a binding translates it into a device request.
type Intent struct {
	Kind      Kind         `json:"kind"`
	Target    Target       `json:"target"`
	AFTrigger AFTrigger    `json:"af_trigger"`
	AETrigger AETrigger    `json:"ae_trigger"`
	AFMode    AFMode       `json:"af_mode"`
	Flash     flash.Policy `json:"flash"`
}

// Repeating reports whether the intent should replace the repeating
// request rather than be submitted once.
func (i Intent) Repeating() bool {
	return i.Kind == KindPreview
}

func newIntent(kind Kind, target Target, mode flash.Mode) Intent {
	return Intent{
		Kind:      kind,
		Target:    target,
		AFTrigger: AFTriggerNone,
		AETrigger: AETriggerNone,
		AFMode:    AFModeContinuousPicture,
		Flash:     flash.Resolve(mode),
	}
}

func lockFocusIntent(mode flash.Mode) Intent {
	i := newIntent(KindLockFocus, TargetPreview, mode)
	i.AFTrigger = AFTriggerStart
	return i
}

func precaptureIntent(mode flash.Mode) Intent {
	i := newIntent(KindPrecapture, TargetPreview, mode)
	i.AETrigger = AETriggerStart
	return i
}

func captureStillIntent(mode flash.Mode) Intent {
	return newIntent(KindCaptureStill, TargetStill, mode)
}

func resumePreviewIntent(mode flash.Mode) Intent {
	i := newIntent(KindResumePreview, TargetPreview, mode)
	i.AFTrigger = AFTriggerCancel
	return i
}

func previewIntent(mode flash.Mode) Intent {
	return newIntent(KindPreview, TargetPreview, mode)
}
