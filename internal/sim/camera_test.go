package sim

import (
	"bytes"
	"context"
	"errors"
	"image/jpeg"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/smazurov/camseq/internal/capture"
	"github.com/smazurov/camseq/internal/flash"
	"github.com/smazurov/camseq/internal/session"
	"github.com/smazurov/camseq/internal/sizing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type recorder struct {
	observations chan capture.Observation
	deviceErrors chan capture.ErrorCode
}

func newRecorder() *recorder {
	return &recorder{
		observations: make(chan capture.Observation, 256),
		deviceErrors: make(chan capture.ErrorCode, 4),
	}
}

func (r *recorder) Observe(obs capture.Observation) {
	select {
	case r.observations <- obs:
	default:
	}
}

func (r *recorder) DeviceError(code capture.ErrorCode) {
	r.deviceErrors <- code
}

func (r *recorder) next(t *testing.T) capture.Observation {
	t.Helper()
	select {
	case obs := <-r.observations:
		return obs
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for observation")
	}
	return capture.Observation{}
}

func testOptions() Options {
	opts := DefaultOptions()
	opts.StillSize = sizing.Size{Width: 64, Height: 48}
	opts.FrameInterval = 2 * time.Millisecond
	opts.Logger = testLogger()
	return opts
}

func intent(kind capture.Kind, target capture.Target, af capture.AFTrigger, ae capture.AETrigger) capture.Intent {
	return capture.Intent{Kind: kind, Target: target, AFTrigger: af, AETrigger: ae, Flash: flash.Resolve(flash.ModeOff)}
}

func TestCamera_SilentUntilPreview(t *testing.T) {
	r := newRecorder()
	c := New(r, testOptions())
	defer c.Close()

	select {
	case obs := <-r.observations:
		t.Fatalf("unexpected observation %+v before any request", obs)
	case <-time.After(20 * time.Millisecond):
	}

	if err := c.SubmitRepeating(intent(capture.KindPreview, capture.TargetPreview, capture.AFTriggerNone, capture.AETriggerNone)); err != nil {
		t.Fatalf("SubmitRepeating() error = %v", err)
	}
	if obs := r.next(t); obs != testOptions().Steady {
		t.Errorf("observation = %+v, want steady %+v", obs, testOptions().Steady)
	}
}

func TestCamera_FocusScript(t *testing.T) {
	r := newRecorder()
	opts := testOptions()
	c := New(r, opts)
	defer c.Close()

	ch, err := c.SubmitOnce(intent(capture.KindLockFocus, capture.TargetPreview, capture.AFTriggerStart, capture.AETriggerNone))
	if err != nil {
		t.Fatalf("SubmitOnce() error = %v", err)
	}
	if comp := <-ch; comp.Err != nil || comp.Still != nil {
		t.Errorf("trigger completion = %+v, want empty", comp)
	}

	for i, want := range opts.FocusScript {
		if got := r.next(t); got != want {
			t.Errorf("observation %d = %+v, want %+v", i, got, want)
		}
	}
}

func TestCamera_PrecaptureScript(t *testing.T) {
	r := newRecorder()
	opts := testOptions()
	c := New(r, opts)
	defer c.Close()

	if _, err := c.SubmitOnce(intent(capture.KindPrecapture, capture.TargetPreview, capture.AFTriggerNone, capture.AETriggerStart)); err != nil {
		t.Fatalf("SubmitOnce() error = %v", err)
	}
	for i, want := range opts.PrecaptureScript {
		if got := r.next(t); got != want {
			t.Errorf("observation %d = %+v, want %+v", i, got, want)
		}
	}
}

func TestCamera_Still(t *testing.T) {
	r := newRecorder()
	opts := testOptions()
	opts.Orientation = 90
	c := New(r, opts)
	defer c.Close()

	ch, err := c.SubmitOnce(intent(capture.KindCaptureStill, capture.TargetStill, capture.AFTriggerNone, capture.AETriggerNone))
	if err != nil {
		t.Fatalf("SubmitOnce() error = %v", err)
	}

	var comp session.Completion
	select {
	case comp = <-ch:
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for still")
	}
	if comp.Err != nil {
		t.Fatalf("still error = %v", comp.Err)
	}
	if comp.Still.Orientation != 90 {
		t.Errorf("Orientation = %d, want 90", comp.Still.Orientation)
	}

	cfg, err := jpeg.DecodeConfig(bytes.NewReader(comp.Still.Data))
	if err != nil {
		t.Fatalf("still is not a JPEG: %v", err)
	}
	if cfg.Width != 64 || cfg.Height != 48 {
		t.Errorf("JPEG size = %dx%d, want 64x48", cfg.Width, cfg.Height)
	}
	if c.Stills() != 1 {
		t.Errorf("Stills() = %d, want 1", c.Stills())
	}
}

func TestCamera_FailNextStill(t *testing.T) {
	r := newRecorder()
	c := New(r, testOptions())
	defer c.Close()

	boom := errors.New("readout failed")
	c.FailNextStill(boom)

	still := intent(capture.KindCaptureStill, capture.TargetStill, capture.AFTriggerNone, capture.AETriggerNone)
	ch, _ := c.SubmitOnce(still)
	if comp := <-ch; !errors.Is(comp.Err, boom) {
		t.Errorf("first still error = %v, want %v", comp.Err, boom)
	}

	ch, _ = c.SubmitOnce(still)
	if comp := <-ch; comp.Err != nil {
		t.Errorf("second still error = %v, want nil", comp.Err)
	}
}

func TestCamera_InjectDeviceError(t *testing.T) {
	r := newRecorder()
	c := New(r, testOptions())
	defer c.Close()

	c.InjectDeviceError(capture.ErrCodeCameraDevice)
	select {
	case code := <-r.deviceErrors:
		if code != capture.ErrCodeCameraDevice {
			t.Errorf("code = %s, want CAMERA_DEVICE", code)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for device error")
	}
}

func TestCamera_Close(t *testing.T) {
	c := New(newRecorder(), testOptions())
	if err := c.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}
	if err := c.SubmitRepeating(capture.Intent{}); !errors.Is(err, ErrClosed) {
		t.Errorf("SubmitRepeating() after Close() error = %v, want ErrClosed", err)
	}
	if _, err := c.SubmitOnce(capture.Intent{}); !errors.Is(err, ErrClosed) {
		t.Errorf("SubmitOnce() after Close() error = %v, want ErrClosed", err)
	}
}

func TestEncodeTestPattern_InvalidSize(t *testing.T) {
	if _, err := EncodeTestPattern(sizing.Size{}, 80); err == nil {
		t.Error("EncodeTestPattern() should reject an empty size")
	}
}

func TestCamera_WithController(t *testing.T) {
	tests := []struct {
		name      string
		autofocus bool
		first     capture.Kind
	}{
		{"autofocus", true, capture.KindLockFocus},
		{"fixed focus", false, capture.KindPrecapture},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := session.NewController(session.Options{
				Autofocus: tt.autofocus,
				FlashMode: flash.ModeAuto,
				Timeout:   2 * time.Second,
				Logger:    testLogger(),
			})
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			go func() { _ = ctrl.Run(ctx) }()

			cam := New(ctrl, testOptions())
			if err := ctrl.Attach(ctx, cam); err != nil {
				t.Fatalf("Attach() error = %v", err)
			}
			if err := ctrl.Start(ctx); err != nil {
				t.Fatalf("Start() error = %v", err)
			}

			result, err := ctrl.Capture(ctx)
			if err != nil {
				t.Fatalf("Capture() error = %v", err)
			}
			if result.Size != (sizing.Size{Width: 64, Height: 48}) {
				t.Errorf("Size = %s, want 64x48", result.Size)
			}
			if len(result.Still.Data) == 0 {
				t.Error("still has no data")
			}

			submitted := cam.Submitted()
			if len(submitted) < 4 {
				t.Fatalf("submitted %d intents, want at least 4", len(submitted))
			}
			if submitted[0].Kind != capture.KindPreview || submitted[1].Kind != tt.first {
				t.Errorf("first intents = %s, %s; want preview, %s", submitted[0].Kind, submitted[1].Kind, tt.first)
			}
			last := submitted[len(submitted)-1]
			if last.Kind != capture.KindPreview {
				t.Errorf("last intent = %s, want preview", last.Kind)
			}
		})
	}
}

func TestCamera_DeviceErrorCancelsCapture(t *testing.T) {
	ctrl := session.NewController(session.Options{Autofocus: true, Logger: testLogger()})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = ctrl.Run(ctx) }()

	opts := testOptions()
	opts.FocusScript = []capture.Observation{{Af: capture.AfActiveScan}}
	opts.Steady = capture.Observation{Af: capture.AfActiveScan}
	cam := New(ctrl, opts)
	if err := ctrl.Attach(ctx, cam); err != nil {
		t.Fatalf("Attach() error = %v", err)
	}

	done := make(chan error, 1)
	go func() {
		_, err := ctrl.Capture(ctx)
		done <- err
	}()

	deadline := time.Now().Add(time.Second)
	for ctrl.State() != capture.StateAwaitingFocusLock && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	cam.InjectDeviceError(capture.ErrCodeCameraInUse)

	select {
	case err := <-done:
		if !errors.Is(err, capture.ErrCancelled) || !capture.HasCode(err, capture.ErrCodeCameraInUse) {
			t.Errorf("Capture() error = %v, want cancelled by CAMERA_IN_USE", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for capture to be cancelled")
	}
}
