package led

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
)

const sysfsLEDPath = "/sys/class/leds"

// sysfs implements Controller using the Linux sysfs LED interface.
type sysfs struct {
	root string
	leds map[string]string // role -> sysfs name
}

func newSysfs(root string, leds map[string]string) *sysfs {
	return &sysfs{root: root, leds: leds}
}

// triggerFor maps a pattern to the kernel trigger implementing it.
func triggerFor(pattern string) string {
	switch pattern {
	case PatternSolid:
		return "none"
	case PatternBlink:
		return "timer"
	case PatternHeartbeat:
		return "heartbeat"
	default:
		return pattern
	}
}

// Set writes the trigger for pattern and then the brightness.
func (s *sysfs) Set(role string, enabled bool, pattern string) error {
	name, ok := s.leds[role]
	if !ok {
		return fmt.Errorf("LED role %q not supported on this board", role)
	}

	ledPath := filepath.Join(s.root, name)
	if _, err := os.Stat(ledPath); err != nil {
		return fmt.Errorf("LED %q not found at %s: %w", role, ledPath, err)
	}

	if pattern != "" {
		if err := os.WriteFile(filepath.Join(ledPath, "trigger"), []byte(triggerFor(pattern)), 0o644); err != nil {
			return fmt.Errorf("set LED trigger: %w", err)
		}
	}

	brightness := "0"
	if enabled {
		brightness = "1"
	}
	if err := os.WriteFile(filepath.Join(ledPath, "brightness"), []byte(brightness), 0o644); err != nil {
		return fmt.Errorf("set LED brightness: %w", err)
	}
	return nil
}

// Available returns the mapped roles in sorted order.
func (s *sysfs) Available() []string {
	roles := make([]string, 0, len(s.leds))
	for role := range s.leds {
		roles = append(roles, role)
	}
	slices.Sort(roles)
	return roles
}

func (s *sysfs) Patterns() []string {
	return []string{PatternSolid, PatternBlink, PatternHeartbeat}
}
