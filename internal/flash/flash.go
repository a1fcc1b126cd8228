// Package flash maps a user-selected flash mode to the auto-exposure and
// flash actuation settings a capture request must carry.
package flash

import (
	"fmt"
	"strings"
)

// Mode is the user-facing flash selection.
type Mode string

// Flash modes.
const (
	ModeOff  Mode = "off"
	ModeOn   Mode = "on"
	ModeAuto Mode = "auto"
)

// AEMode is the auto-exposure routine requested from the hardware.
type AEMode string

// Auto-exposure modes.
const (
	AEOn            AEMode = "on"
	AEOnAutoFlash   AEMode = "on_auto_flash"
	AEOnAlwaysFlash AEMode = "on_always_flash"
)

// Actuation is how the flash unit fires.
type Actuation string

// Flash actuation modes.
const (
	ActuationOff    Actuation = "off"
	ActuationSingle Actuation = "single"
	ActuationTorch  Actuation = "torch"
)

// Policy is the (AE mode, flash actuation) pair applied to a request.
type Policy struct {
	AE    AEMode    `json:"ae_mode" toml:"ae_mode"`
	Flash Actuation `json:"flash" toml:"flash"`
}

// Resolve returns the policy for a flash mode. Unknown modes resolve like off.
func Resolve(mode Mode) Policy {
	switch mode {
	case ModeAuto:
		return Policy{AE: AEOnAutoFlash, Flash: ActuationSingle}
	case ModeOn:
		return Policy{AE: AEOnAlwaysFlash, Flash: ActuationTorch}
	default:
		return Policy{AE: AEOn, Flash: ActuationOff}
	}
}

// ParseMode parses a flash mode name. "torch" is accepted as an alias of on.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "off":
		return ModeOff, nil
	case "on", "torch":
		return ModeOn, nil
	case "auto":
		return ModeAuto, nil
	default:
		return ModeOff, fmt.Errorf("unknown flash mode %q (want off, on or auto)", s)
	}
}

// Modes returns all supported flash modes.
func Modes() []Mode {
	return []Mode{ModeOff, ModeOn, ModeAuto}
}

func (m Mode) String() string { return string(m) }
