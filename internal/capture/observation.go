package capture

import (
	"fmt"
	"strings"
)

// AfState is the autofocus state reported in a capture result. The zero
// value means the result carried no AF state.
type AfState string

// Autofocus states.
const (
	AfAbsent           AfState = ""
	AfInactive         AfState = "inactive"
	AfPassiveScan      AfState = "passive_scan"
	AfPassiveFocused   AfState = "passive_focused"
	AfActiveScan       AfState = "active_scan"
	AfFocusedLocked    AfState = "focused_locked"
	AfNotFocusedLocked AfState = "not_focused_locked"
	AfPassiveUnfocused AfState = "passive_unfocused"
)

// Locked reports whether the AF routine has finished and locked, whether or
// not it achieved focus.
func (s AfState) Locked() bool {
	return s == AfFocusedLocked || s == AfNotFocusedLocked
}

func (s AfState) String() string {
	if s == AfAbsent {
		return "absent"
	}
	return string(s)
}

// AeState is the auto-exposure state reported in a capture result. The zero
// value means the result carried no AE state.
type AeState string

// Auto-exposure states.
const (
	AeAbsent        AeState = ""
	AeInactive      AeState = "inactive"
	AeSearching     AeState = "searching"
	AeConverged     AeState = "converged"
	AeLocked        AeState = "locked"
	AeFlashRequired AeState = "flash_required"
	AePrecapture    AeState = "precapture"
)

func (s AeState) String() string {
	if s == AeAbsent {
		return "absent"
	}
	return string(s)
}

// Observation is the AF/AE state pair read from one capture result.
type Observation struct {
	Af AfState `json:"af,omitempty" toml:"af"`
	Ae AeState `json:"ae,omitempty" toml:"ae"`
}

func (o Observation) String() string {
	return fmt.Sprintf("af=%s ae=%s", o.Af, o.Ae)
}

var afStates = []AfState{
	AfInactive, AfPassiveScan, AfPassiveFocused, AfActiveScan,
	AfFocusedLocked, AfNotFocusedLocked, AfPassiveUnfocused,
}

var aeStates = []AeState{
	AeInactive, AeSearching, AeConverged, AeLocked, AeFlashRequired, AePrecapture,
}

func normalize(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
}

// ParseAfState parses an AF state name. "" and "absent" both mean absent.
func ParseAfState(s string) (AfState, error) {
	n := normalize(s)
	if n == "" || n == "absent" {
		return AfAbsent, nil
	}
	for _, st := range afStates {
		if string(st) == n {
			return st, nil
		}
	}
	return AfAbsent, fmt.Errorf("unknown af state %q", s)
}

// ParseAeState parses an AE state name. "" and "absent" both mean absent.
func ParseAeState(s string) (AeState, error) {
	n := normalize(s)
	if n == "" || n == "absent" {
		return AeAbsent, nil
	}
	for _, st := range aeStates {
		if string(st) == n {
			return st, nil
		}
	}
	return AeAbsent, fmt.Errorf("unknown ae state %q", s)
}

// ParseObservation parses "af/ae", e.g. "focused_locked/converged" or
// "absent/precapture". A missing "/ae" part means AE absent.
func ParseObservation(s string) (Observation, error) {
	afPart, aePart, _ := strings.Cut(s, "/")
	af, err := ParseAfState(afPart)
	if err != nil {
		return Observation{}, err
	}
	ae, err := ParseAeState(aePart)
	if err != nil {
		return Observation{}, err
	}
	return Observation{Af: af, Ae: ae}, nil
}
