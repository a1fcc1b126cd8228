// Package device describes camera hardware: which way a lens faces, what it
// can focus with, how its sensor is mounted, and the sizes it can output.
package device

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/smazurov/camseq/internal/sizing"
)

// ErrNoCamera is returned when no camera matches the requested facing.
var ErrNoCamera = errors.New("no camera with requested facing")

// Facing is the user-facing lens direction.
type Facing string

// Facings.
const (
	FacingBack  Facing = "back"
	FacingFront Facing = "front"
)

// Hardware lens facing values as reported by camera characteristics.
const (
	LensFacingFront = 0
	LensFacingBack  = 1
)

// LensFacing maps a Facing to the hardware lens facing value.
func LensFacing(f Facing) (int, error) {
	switch f {
	case FacingBack:
		return LensFacingBack, nil
	case FacingFront:
		return LensFacingFront, nil
	default:
		return 0, fmt.Errorf("unknown facing %q", f)
	}
}

// ParseFacing parses "back" or "front". Empty means back.
func ParseFacing(s string) (Facing, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "back":
		return FacingBack, nil
	case "front":
		return FacingFront, nil
	default:
		return FacingBack, fmt.Errorf("unknown facing %q (want back or front)", s)
	}
}

// AFModeOff is the autofocus mode reported by fixed-focus lenses.
const AFModeOff = 0

// Characteristics is the static description of one camera.
type Characteristics struct {
	ID                string        `json:"id"`
	Facing            Facing        `json:"facing"`
	AFModes           []int         `json:"af_modes"`
	SensorOrientation int           `json:"sensor_orientation"`
	JPEGSizes         []sizing.Size `json:"jpeg_sizes"`
	PreviewSizes      []sizing.Size `json:"preview_sizes"`
	VideoSizes        []sizing.Size `json:"video_sizes"`
}

// AutofocusAvailable reports whether the camera advertises any autofocus
// mode other than off.
func (c Characteristics) AutofocusAvailable() bool {
	for _, m := range c.AFModes {
		if m != AFModeOff {
			return true
		}
	}
	return false
}

// Select returns the first camera facing the requested direction.
func Select(cameras []Characteristics, facing Facing) (Characteristics, error) {
	for _, c := range cameras {
		if c.Facing == facing {
			return c, nil
		}
	}
	return Characteristics{}, fmt.Errorf("%w: %s among %d cameras", ErrNoCamera, facing, len(cameras))
}

// Provider enumerates the cameras a binding can open.
type Provider interface {
	Cameras(ctx context.Context) ([]Characteristics, error)
}

// StaticProvider serves a fixed camera list.
type StaticProvider []Characteristics

// Cameras implements Provider.
func (p StaticProvider) Cameras(_ context.Context) ([]Characteristics, error) {
	out := make([]Characteristics, len(p))
	copy(out, p)
	return out, nil
}

// Open looks up the camera for facing from a provider.
func Open(ctx context.Context, p Provider, facing Facing) (Characteristics, error) {
	cameras, err := p.Cameras(ctx)
	if err != nil {
		return Characteristics{}, fmt.Errorf("list cameras: %w", err)
	}
	return Select(cameras, facing)
}
