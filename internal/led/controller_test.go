package led

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNoopController(t *testing.T) {
	ctrl := newNoop(discardLogger())

	if err := ctrl.Set(RoleTally, true, PatternSolid); err != nil {
		t.Errorf("Set() returned error: %v", err)
	}
	if types := ctrl.Available(); len(types) != 0 {
		t.Errorf("Available() = %v, want empty slice", types)
	}
	if patterns := ctrl.Patterns(); len(patterns) != 0 {
		t.Errorf("Patterns() = %v, want empty slice", patterns)
	}
}

func fakeLEDs(t *testing.T, names ...string) string {
	t.Helper()
	root := t.TempDir()
	for _, name := range names {
		dir := filepath.Join(root, name)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatal(err)
		}
		for _, f := range []string{"trigger", "brightness"} {
			if err := os.WriteFile(filepath.Join(dir, f), nil, 0o644); err != nil {
				t.Fatal(err)
			}
		}
	}
	return root
}

func readLED(t *testing.T, root, name, file string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(root, name, file))
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func TestSysfsController_Set(t *testing.T) {
	root := fakeLEDs(t, "usr_led")
	ctrl := newSysfs(root, map[string]string{RoleTally: "usr_led"})

	tests := []struct {
		enabled        bool
		pattern        string
		wantTrigger    string
		wantBrightness string
	}{
		{true, PatternHeartbeat, "heartbeat", "1"},
		{true, PatternSolid, "none", "1"},
		{true, PatternBlink, "timer", "1"},
		{false, "", "timer", "0"},
	}

	for _, tt := range tests {
		if err := ctrl.Set(RoleTally, tt.enabled, tt.pattern); err != nil {
			t.Fatalf("Set(%v, %q) error = %v", tt.enabled, tt.pattern, err)
		}
		if got := readLED(t, root, "usr_led", "trigger"); got != tt.wantTrigger {
			t.Errorf("after %q trigger = %q, want %q", tt.pattern, got, tt.wantTrigger)
		}
		if got := readLED(t, root, "usr_led", "brightness"); got != tt.wantBrightness {
			t.Errorf("after %q brightness = %q, want %q", tt.pattern, got, tt.wantBrightness)
		}
	}
}

func TestSysfsController_SetErrors(t *testing.T) {
	ctrl := newSysfs(t.TempDir(), map[string]string{RoleTally: "missing_led"})

	if err := ctrl.Set("nonexistent", true, ""); err == nil {
		t.Error("Set() with unmapped role should return error")
	}
	if err := ctrl.Set(RoleTally, true, PatternSolid); err == nil {
		t.Error("Set() on a missing LED should return error")
	}
}

func TestSysfsController_Available(t *testing.T) {
	ctrl := newSysfs(t.TempDir(), map[string]string{RoleTally: "usr_led", RoleFlash: "sys_led"})
	if got, want := ctrl.Available(), []string{RoleFlash, RoleTally}; !reflect.DeepEqual(got, want) {
		t.Errorf("Available() = %v, want %v", got, want)
	}
	if got := ctrl.Patterns(); len(got) != 3 {
		t.Errorf("Patterns() = %v, want solid, blink and heartbeat", got)
	}
}
