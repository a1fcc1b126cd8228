// Package led drives board LEDs as a capture tally light.
package led

// LED roles used by the tally manager.
const (
	RoleTally = "tally"
	RoleFlash = "flash"
)

// Patterns understood by every controller.
const (
	PatternSolid     = "solid"
	PatternBlink     = "blink"
	PatternHeartbeat = "heartbeat"
)

// Controller abstracts LED hardware control across different SBC boards.
// Implementations map roles to board-specific LEDs.
type Controller interface {
	// Set switches the LED for role on or off. An empty pattern leaves
	// the current pattern unchanged.
	Set(role string, enabled bool, pattern string) error

	// Available returns the roles this board has an LED for.
	Available() []string

	// Patterns returns the supported patterns.
	Patterns() []string
}
