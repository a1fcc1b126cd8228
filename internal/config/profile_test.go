package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/smazurov/camseq/internal/device"
	"github.com/smazurov/camseq/internal/flash"
	"github.com/smazurov/camseq/internal/sizing"
)

func TestDefaultProfile(t *testing.T) {
	p := DefaultProfile()
	if err := p.Validate(); err != nil {
		t.Fatalf("default profile invalid: %v", err)
	}
	if p.FlashMode() != flash.ModeAuto {
		t.Errorf("FlashMode() = %s, want auto", p.FlashMode())
	}

	cams, err := p.Characteristics()
	if err != nil {
		t.Fatal(err)
	}
	if len(cams) != 2 {
		t.Fatalf("got %d cameras, want 2", len(cams))
	}
	if !cams[0].AutofocusAvailable() || cams[1].AutofocusAvailable() {
		t.Error("back camera should autofocus, front should be fixed-focus")
	}
}

func TestDefaultProfile_Plan(t *testing.T) {
	p := DefaultProfile()
	provider, err := p.Provider()
	if err != nil {
		t.Fatal(err)
	}
	cam, err := device.Open(t.Context(), provider, device.FacingBack)
	if err != nil {
		t.Fatal(err)
	}
	in, err := p.PlanInput(cam)
	if err != nil {
		t.Fatal(err)
	}
	if in.SwapDimensions {
		t.Error("landscape display with a 90 degree sensor should not swap")
	}

	plan, err := sizing.NewPlan(in)
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]sizing.Size{
		"picture": {Width: 3264, Height: 2448},
		"preview": {Width: 1920, Height: 1440},
		"video":   {Width: 1440, Height: 1080},
	}
	got := map[string]sizing.Size{"picture": plan.Picture, "preview": plan.Preview, "video": plan.Video}
	for name, size := range want {
		if got[name] != size {
			t.Errorf("%s = %s, want %s", name, got[name], size)
		}
	}
	if len(plan.Warnings) != 0 {
		t.Errorf("unexpected warnings: %v", plan.Warnings)
	}
}

func TestPlanInput_Swap(t *testing.T) {
	p := DefaultProfile()
	p.DisplayRotation = 0
	p.Display = "1080x2340"
	cams, err := p.Characteristics()
	if err != nil {
		t.Fatal(err)
	}

	in, err := p.PlanInput(cams[0])
	if err != nil {
		t.Fatal(err)
	}
	if !in.SwapDimensions {
		t.Fatal("portrait display with a 90 degree sensor should swap")
	}
	if bounds := sizing.PreviewBounds(in.Display, in.SwapDimensions); bounds != (sizing.Size{Width: 1080, Height: 1080}) {
		t.Errorf("bounds = %s, want 1080x1080", bounds)
	}
}

func TestLoadProfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.toml")
	content := `
facing = "front"
display_rotation = 270

[capture]
flash = "on"
timeout = "2s"

[sim]
low_light = true
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	p, err := LoadProfile(path)
	if err != nil {
		t.Fatalf("LoadProfile() error = %v", err)
	}
	if p.Facing != "front" || p.DisplayRotation != 270 {
		t.Errorf("Facing/DisplayRotation = %s/%d", p.Facing, p.DisplayRotation)
	}
	if p.FlashMode() != flash.ModeOn {
		t.Errorf("FlashMode() = %s, want on", p.FlashMode())
	}
	if p.Capture.Timeout.Std() != 2*time.Second {
		t.Errorf("Timeout = %v, want 2s", p.Capture.Timeout.Std())
	}
	if p.Capture.MaxObservations != 300 {
		t.Errorf("MaxObservations = %d, want default 300", p.Capture.MaxObservations)
	}
	if !p.Sim.LowLight || p.Sim.FocusFrames != 4 {
		t.Errorf("Sim = %+v, want low light with default focus frames", p.Sim)
	}
	if len(p.Cameras) != 2 {
		t.Errorf("cameras should default when the file defines none, got %d", len(p.Cameras))
	}
}

func TestLoadProfile_ReplacesCameras(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.toml")
	content := `
[[cameras]]
id = "wide"
facing = "back"
af_modes = [0]
sensor_orientation = 90
jpeg_sizes = ["1600x1200", "800x600"]
preview_sizes = ["1600x1200", "800x600"]
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	p, err := LoadProfile(path)
	if err != nil {
		t.Fatalf("LoadProfile() error = %v", err)
	}
	if len(p.Cameras) != 1 || p.Cameras[0].ID != "wide" {
		t.Fatalf("Cameras = %+v, want only wide", p.Cameras)
	}
	cams, _ := p.Characteristics()
	if cams[0].AutofocusAvailable() {
		t.Error("wide camera is fixed-focus")
	}
}

func TestLoadProfile_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"flash", "[capture]\nflash = \"strobe\"\n", "capture.flash"},
		{"facing", "facing = \"up\"\n", "facing"},
		{"rotation", "display_rotation = 45\n", "display_rotation"},
		{"display", "display = \"wide\"\n", "display"},
		{"observations", "[capture]\nmax_observations = -1\n", "max_observations"},
		{"duration", "[capture]\ntimeout = \"soon\"\n", "parse profile"},
		{"sizes", "[[cameras]]\nfacing = \"back\"\nsensor_orientation = 90\njpeg_sizes = [\"big\"]\n", "jpeg_sizes"},
		{"sensor", "[[cameras]]\nfacing = \"back\"\nsensor_orientation = 10\n", "sensor_orientation"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "profile.toml")
			if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
				t.Fatal(err)
			}
			_, err := LoadProfile(path)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestLoadProfile_Missing(t *testing.T) {
	_, err := LoadProfile(filepath.Join(t.TempDir(), "none.toml"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("error = %v, want os.ErrNotExist", err)
	}

	p, err := LoadProfile("")
	if err != nil || p.Facing != "back" {
		t.Errorf("empty path should give defaults, got %+v, %v", p, err)
	}
}

func TestDuration_TOML(t *testing.T) {
	var v struct {
		D Duration `toml:"d"`
	}
	if err := toml.Unmarshal([]byte(`d = "1m30s"`), &v); err != nil {
		t.Fatal(err)
	}
	if v.D.Std() != 90*time.Second {
		t.Errorf("D = %v, want 1m30s", v.D.Std())
	}

	out, err := toml.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(out), `'1m30s'`) && !strings.Contains(string(out), `"1m30s"`) {
		t.Errorf("marshal = %s, want 1m30s", out)
	}
}
