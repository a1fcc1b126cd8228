package sizing

import (
	"fmt"
	"strings"
)

// Preview bounds never exceed what the preview stream guarantees.
const (
	MaxPreviewWidth  = 1920
	MaxPreviewHeight = 1080
)

// SessionType selects which streams a capture session is configured for.
type SessionType string

// Session types.
const (
	SessionPicture SessionType = "picture"
	SessionVideo   SessionType = "video"
)

// ParseSessionType parses "picture" or "video". Empty means picture.
func ParseSessionType(s string) (SessionType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "picture":
		return SessionPicture, nil
	case "video":
		return SessionVideo, nil
	default:
		return SessionPicture, fmt.Errorf("unknown session type %q", s)
	}
}

// PreviewBounds clamps the display size to the preview maximum and swaps
// the axes when the sensor is rotated relative to the display.
func PreviewBounds(display Size, swap bool) Size {
	bounds := display
	if bounds.Width <= 0 || bounds.Width > MaxPreviewWidth {
		bounds.Width = MaxPreviewWidth
	}
	if bounds.Height <= 0 || bounds.Height > MaxPreviewHeight {
		bounds.Height = MaxPreviewHeight
	}
	if swap {
		bounds = bounds.Swap()
	}
	return bounds
}

// PlanInput holds what a binding knows when it configures a session.
type PlanInput struct {
	Display        Size
	SwapDimensions bool
	SessionType    SessionType
	JPEGSizes      []Size
	PreviewSizes   []Size
	VideoSizes     []Size
}

// Plan is the set of resolutions selected for a session.
type Plan struct {
	SessionType SessionType `json:"session_type"`
	Bounds      Size        `json:"bounds"`
	Largest     Size        `json:"largest"`
	Picture     Size        `json:"picture"`
	Preview     Size        `json:"preview"`
	Video       Size        `json:"video"`
	// Warnings lists fallbacks taken (each wraps ErrNoSuitableSize).
	Warnings []error `json:"-"`
}

// NewPlan selects picture, video and preview sizes. The preview follows
// the aspect of the picture size for picture sessions and of the video
// size for video sessions. Fallbacks are recorded as warnings; only an
// empty JPEG or preview size list is an error.
func NewPlan(in PlanInput) (Plan, error) {
	largest, err := Largest(in.JPEGSizes)
	if err != nil {
		return Plan{}, fmt.Errorf("jpeg sizes: %w", err)
	}
	if len(in.PreviewSizes) == 0 {
		return Plan{}, fmt.Errorf("preview sizes: %w", ErrNoCandidates)
	}

	sessionType := in.SessionType
	if sessionType == "" {
		sessionType = SessionPicture
	}

	bounds := PreviewBounds(in.Display, in.SwapDimensions)
	plan := Plan{
		SessionType: sessionType,
		Bounds:      bounds,
		Largest:     largest,
	}

	plan.Picture, err = ChooseOptimal(in.JPEGSizes, bounds.Width, bounds.Height, largest)
	if err != nil {
		plan.Warnings = append(plan.Warnings, fmt.Errorf("picture: %w", err))
	}

	if len(in.VideoSizes) > 0 {
		plan.Video, err = ChooseVideo(in.VideoSizes, bounds.Width)
		if err != nil {
			plan.Warnings = append(plan.Warnings, fmt.Errorf("video: %w", err))
		}
	}

	aspect := plan.Picture
	if sessionType == SessionVideo {
		if len(in.VideoSizes) == 0 {
			return Plan{}, fmt.Errorf("video sizes: %w", ErrNoCandidates)
		}
		aspect = plan.Video
	}
	plan.Preview, err = ChooseOptimal(in.PreviewSizes, bounds.Width, bounds.Height, aspect)
	if err != nil {
		plan.Warnings = append(plan.Warnings, fmt.Errorf("preview: %w", err))
	}

	return plan, nil
}
