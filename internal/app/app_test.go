package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/smazurov/camseq/internal/capture"
	"github.com/smazurov/camseq/internal/config"
	"github.com/smazurov/camseq/internal/events"
	"github.com/smazurov/camseq/internal/flash"
	"github.com/smazurov/camseq/internal/sink"
	"github.com/smazurov/camseq/internal/sizing"
)

func fastProfile() *config.Profile {
	p := config.DefaultProfile()
	p.Sim.FrameInterval = config.Duration(2 * time.Millisecond)
	p.Sim.StillLatency = config.Duration(5 * time.Millisecond)
	p.Capture.Timeout = config.Duration(5 * time.Second)
	// Keep rendered stills small.
	p.Cameras[0].JPEGSizes = []string{"320x240", "160x120"}
	p.Cameras[0].PreviewSizes = []string{"320x240", "160x120"}
	p.Cameras[0].VideoSizes = []string{"320x240"}
	p.Display = "320x240"
	return p
}

func startRig(t *testing.T, opts Options) *Rig {
	t.Helper()
	if opts.Sink == nil {
		opts.Sink = sink.NewMemorySink(8)
	}
	r, err := New(t.Context(), opts)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func TestNew_Plan(t *testing.T) {
	r, err := New(t.Context(), Options{Profile: config.DefaultProfile(), Sink: sink.NewMemorySink(1)})
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	if r.Camera().ID != "0" {
		t.Errorf("camera = %s, want back camera 0", r.Camera().ID)
	}
	if r.Plan().Picture != (sizing.Size{Width: 3264, Height: 2448}) {
		t.Errorf("picture = %s", r.Plan().Picture)
	}
	if r.Orientation() != 0 {
		t.Errorf("orientation = %d, want 0 for a landscape back camera", r.Orientation())
	}
	if !r.Controller().Status().Autofocus {
		t.Error("back camera should capture with autofocus")
	}
}

func TestNew_Errors(t *testing.T) {
	if _, err := New(t.Context(), Options{}); err == nil {
		t.Error("expected error without profile")
	}

	p := config.DefaultProfile()
	p.Cameras = p.Cameras[1:]
	if _, err := New(t.Context(), Options{Profile: p}); err == nil {
		t.Error("expected error when no camera faces back")
	}
}

func TestRig_Capture(t *testing.T) {
	mem := sink.NewMemorySink(4)
	bus := events.New()
	saved := make(chan events.CaptureSuccessEvent, 1)
	defer bus.Subscribe(func(e events.CaptureSuccessEvent) { saved <- e })()

	r := startRig(t, Options{Profile: fastProfile(), Sink: mem, Bus: bus})

	res, err := r.Controller().Capture(t.Context())
	if err != nil {
		t.Fatalf("Capture() error = %v", err)
	}
	if res.Size != (sizing.Size{Width: 320, Height: 240}) {
		t.Errorf("Size = %s, want 320x240", res.Size)
	}
	if mem.Len() != 1 {
		t.Errorf("sink holds %d stills, want 1", mem.Len())
	}

	select {
	case e := <-saved:
		if e.CaptureID != res.ID {
			t.Errorf("event capture id = %s, want %s", e.CaptureID, res.ID)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for CaptureSuccessEvent")
	}
}

func TestRig_LowLightRunsPrecapture(t *testing.T) {
	p := fastProfile()
	p.Sim.LowLight = true
	r := startRig(t, Options{Profile: p})

	if _, err := r.Controller().Capture(t.Context()); err != nil {
		t.Fatalf("Capture() error = %v", err)
	}

	precapture := false
	for _, intent := range r.Sim().Submitted() {
		if intent.Kind == capture.KindPrecapture {
			precapture = true
		}
	}
	if !precapture {
		t.Error("low light capture should run a precapture sequence")
	}
}

func TestRig_FaultAndReopen(t *testing.T) {
	bus := events.New()
	failed := make(chan events.SessionErrorEvent, 1)
	defer bus.Subscribe(func(e events.SessionErrorEvent) { failed <- e })()

	r := startRig(t, Options{Profile: fastProfile(), Bus: bus})

	if err := r.InjectFault(capture.ErrCodeCameraDevice); err != nil {
		t.Fatal(err)
	}
	select {
	case e := <-failed:
		if e.Code != string(capture.ErrCodeCameraDevice) {
			t.Errorf("code = %s", e.Code)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for SessionErrorEvent")
	}

	if _, err := r.Controller().Capture(t.Context()); !capture.HasCode(err, capture.ErrCodeSessionFailed) {
		t.Fatalf("Capture() after fault error = %v, want SESSION_FAILED", err)
	}

	if err := r.Reopen(t.Context()); err != nil {
		t.Fatalf("Reopen() error = %v", err)
	}
	if _, err := r.Controller().Capture(t.Context()); err != nil {
		t.Fatalf("Capture() after reopen error = %v", err)
	}
}

func TestRig_ProfileReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.toml")
	if err := os.WriteFile(path, []byte("[capture]\nflash = \"auto\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	bus := events.New()
	changed := make(chan events.FlashModeChangedEvent, 1)
	defer bus.Subscribe(func(e events.FlashModeChangedEvent) { changed <- e })()

	r := startRig(t, Options{Profile: fastProfile(), ProfilePath: path, Bus: bus})
	time.Sleep(50 * time.Millisecond)

	if err := os.WriteFile(path, []byte("[capture]\nflash = \"on\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case e := <-changed:
		if e.Mode != string(flash.ModeOn) || e.Source != "config" {
			t.Errorf("event = %+v, want on from config", e)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timeout waiting for flash change from profile reload")
	}
	if r.Controller().Status().FlashMode != flash.ModeOn {
		t.Errorf("FlashMode = %s, want on", r.Controller().Status().FlashMode)
	}
}

func TestRig_StartTwice(t *testing.T) {
	r := startRig(t, Options{Profile: fastProfile()})
	if err := r.Start(context.Background()); err == nil {
		t.Error("second Start should fail")
	}
}

func TestRig_Close(t *testing.T) {
	r, err := New(t.Context(), Options{Profile: fastProfile(), Sink: sink.NewMemorySink(1)})
	if err != nil {
		t.Fatal(err)
	}
	if err := r.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if _, err := r.Controller().Capture(t.Context()); !errors.Is(err, capture.ErrCancelled) {
		t.Errorf("Capture() after Close error = %v, want cancelled", err)
	}
}

func TestSimOptions(t *testing.T) {
	p := config.DefaultProfile()
	p.Sim.FocusFrames = 3
	p.Sim.PrecaptureFrames = 0
	p.Sim.LowLight = true

	opts := SimOptions(p, sizing.Size{Width: 640, Height: 480}, 90)
	if len(opts.FocusScript) != 3 {
		t.Fatalf("focus script has %d frames, want 3", len(opts.FocusScript))
	}
	last := opts.FocusScript[2]
	if last.Af != capture.AfFocusedLocked || last.Ae != capture.AeFlashRequired {
		t.Errorf("final focus frame = %v, want focused_locked/flash_required", last)
	}
	if len(opts.PrecaptureScript) != 1 || opts.PrecaptureScript[0].Ae != capture.AeConverged {
		t.Errorf("precapture script = %v, want a single converged frame", opts.PrecaptureScript)
	}
	if opts.Orientation != 90 || opts.StillSize.Width != 640 {
		t.Errorf("still = %s at %d", opts.StillSize, opts.Orientation)
	}
}
