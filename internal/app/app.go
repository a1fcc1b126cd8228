// Package app assembles a capture rig from a camera profile: it selects the
// camera, plans the session sizes, builds the capture controller around a
// simulated camera and keeps the controller in step with profile reloads.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/smazurov/camseq/internal/capture"
	"github.com/smazurov/camseq/internal/config"
	"github.com/smazurov/camseq/internal/device"
	"github.com/smazurov/camseq/internal/events"
	"github.com/smazurov/camseq/internal/logging"
	"github.com/smazurov/camseq/internal/session"
	"github.com/smazurov/camseq/internal/sim"
	"github.com/smazurov/camseq/internal/sink"
	"github.com/smazurov/camseq/internal/sizing"
)

// Options configures a Rig.
type Options struct {
	// Profile is the camera profile. Required.
	Profile *config.Profile

	// ProfilePath enables hot reload of the capture settings when set.
	ProfilePath string

	// Sink overrides the file sink built from the profile's save_dir.
	Sink session.ImageSink

	// Bus receives capture events (optional).
	Bus *events.Bus

	// Logger for rig operations. If nil, uses the session module logger.
	Logger *slog.Logger
}

// Rig is a running controller bound to a simulated camera.
type Rig struct {
	profile     *config.Profile
	camera      device.Characteristics
	plan        sizing.Plan
	orientation int
	sink        session.ImageSink
	bus         *events.Bus
	logger      *slog.Logger

	controller *session.Controller
	watcher    *config.Watcher[*config.Profile]

	mu      sync.Mutex
	sim     *sim.Camera
	cancel  context.CancelFunc
	stopped chan struct{}
}

// New selects the profile's camera, plans its sizes and builds the
// controller. Nothing runs until Start.
func New(ctx context.Context, opts Options) (*Rig, error) {
	if opts.Profile == nil {
		return nil, errors.New("app: profile is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.GetLogger(logging.ModuleSession)
	}
	p := opts.Profile

	provider, err := p.Provider()
	if err != nil {
		return nil, err
	}
	facing, err := device.ParseFacing(p.Facing)
	if err != nil {
		return nil, err
	}
	cam, err := device.Open(ctx, provider, facing)
	if err != nil {
		return nil, err
	}

	in, err := p.PlanInput(cam)
	if err != nil {
		return nil, err
	}
	plan, err := sizing.NewPlan(in)
	if err != nil {
		return nil, fmt.Errorf("camera %s: %w", cam.ID, err)
	}
	for _, w := range plan.Warnings {
		logger.Warn("Size fallback", "camera", cam.ID, "warning", w)
	}

	orientation, err := device.JPEGOrientation(p.DisplayRotation, cam.SensorOrientation)
	if err != nil {
		return nil, err
	}

	out := opts.Sink
	if out == nil {
		out = sink.NewFileSink(p.Capture.SaveDir)
	}

	r := &Rig{
		profile:     p,
		camera:      cam,
		plan:        plan,
		orientation: orientation,
		sink:        out,
		bus:         opts.Bus,
		logger:      logger,
	}

	var reporter session.ErrorReporter
	if opts.Bus != nil {
		reporter = events.NewBusReporter(opts.Bus)
	}
	r.controller = session.NewController(session.Options{
		Autofocus:       cam.AutofocusAvailable(),
		FlashMode:       p.FlashMode(),
		MaxObservations: p.Capture.MaxObservations,
		Timeout:         p.Capture.Timeout.Std(),
		Sink:            out,
		Reporter:        reporter,
		Bus:             opts.Bus,
	})

	if opts.ProfilePath != "" {
		r.watcher = config.NewConfigWatcher(opts.ProfilePath, config.LoadProfile,
			logging.GetLogger(logging.ModuleConfig))
		r.watcher.OnReload(r.applyProfile)
	}

	logger.Info("Capture rig configured",
		"camera", cam.ID,
		"facing", cam.Facing,
		"autofocus", cam.AutofocusAvailable(),
		"picture", plan.Picture.String(),
		"preview", plan.Preview.String(),
		"orientation", orientation)
	return r, nil
}

// Start runs the controller, opens the simulated camera and starts the
// preview. The rig runs until ctx is cancelled or Close is called.
func (r *Rig) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.cancel != nil {
		r.mu.Unlock()
		return errors.New("app: rig already started")
	}
	runCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.stopped = make(chan struct{})
	r.mu.Unlock()

	go func() {
		defer close(r.stopped)
		if err := r.controller.Run(runCtx); err != nil {
			r.logger.Error("Capture controller exited", "error", err)
		}
	}()

	if err := r.Reopen(ctx); err != nil {
		return err
	}
	if r.watcher != nil {
		if err := r.watcher.Start(); err != nil {
			r.logger.Warn("Profile watcher not started", "error", err)
		}
	}
	return nil
}

// Reopen attaches a fresh simulated camera and restarts the preview. It
// clears a recorded session failure.
func (r *Rig) Reopen(ctx context.Context) error {
	cam := sim.New(r.controller, SimOptions(r.currentProfile(), r.plan.Picture, r.orientation))

	r.mu.Lock()
	r.sim = cam
	r.mu.Unlock()

	if err := r.controller.Attach(ctx, cam); err != nil {
		_ = cam.Close()
		return err
	}
	if err := r.controller.Start(ctx); err != nil {
		return fmt.Errorf("start preview: %w", err)
	}
	return nil
}

// Close stops the watcher and the controller and waits for the event loop.
func (r *Rig) Close() error {
	var errs []error
	if r.watcher != nil {
		if err := r.watcher.Stop(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := r.controller.Close(); err != nil {
		errs = append(errs, err)
	}

	r.mu.Lock()
	cancel, stopped := r.cancel, r.stopped
	r.mu.Unlock()
	if cancel != nil {
		cancel()
		<-stopped
	}
	return errors.Join(errs...)
}

// Controller returns the capture controller.
func (r *Rig) Controller() *session.Controller { return r.controller }

// Camera returns the selected camera.
func (r *Rig) Camera() device.Characteristics { return r.camera }

// Plan returns the sizes selected for the session.
func (r *Rig) Plan() sizing.Plan { return r.plan }

// Orientation returns the JPEG orientation stamped on stills.
func (r *Rig) Orientation() int { return r.orientation }

// Sink returns where stills are saved.
func (r *Rig) Sink() session.ImageSink { return r.sink }

// Sim returns the attached simulated camera.
func (r *Rig) Sim() *sim.Camera {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sim
}

// InjectFault reports a device error through the attached camera.
func (r *Rig) InjectFault(code capture.ErrorCode) error {
	cam := r.Sim()
	if cam == nil {
		return errors.New("no camera attached")
	}
	cam.InjectDeviceError(code)
	return nil
}

func (r *Rig) currentProfile() *config.Profile {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.profile
}

// applyProfile pushes reloaded capture settings into the controller. The
// camera choice and sizes are fixed for the life of the rig; simulator
// settings take effect on the next Reopen.
func (r *Rig) applyProfile(p *config.Profile) {
	r.mu.Lock()
	prev := r.profile
	r.profile = p
	r.mu.Unlock()

	ctx := context.Background()
	if p.FlashMode() != prev.FlashMode() {
		if err := r.controller.SetFlashFrom(ctx, p.FlashMode(), "config"); err != nil {
			r.logger.Warn("Failed to apply flash mode", "mode", p.FlashMode(), "error", err)
		}
	}
	if err := r.controller.SetWatchdog(ctx, p.Capture.MaxObservations, p.Capture.Timeout.Std()); err != nil {
		r.logger.Warn("Failed to apply watchdog", "error", err)
	}
	if p.Facing != prev.Facing || p.Display != prev.Display || p.DisplayRotation != prev.DisplayRotation {
		r.logger.Warn("Camera or display changes need a restart", "facing", p.Facing, "display", p.Display)
	}
}

// SimOptions derives simulated camera behaviour from the profile. Focus
// and precapture each take the configured number of frames; in low light
// exposure settles at flash_required so captures run a precapture.
func SimOptions(p *config.Profile, still sizing.Size, orientation int) sim.Options {
	opts := sim.DefaultOptions()
	opts.StillSize = still
	opts.Orientation = orientation
	opts.FrameInterval = p.Sim.FrameInterval.Std()
	opts.StillLatency = p.Sim.StillLatency.Std()
	opts.JPEGQuality = p.Sim.JPEGQuality

	settled := capture.AeConverged
	if p.Sim.LowLight {
		settled = capture.AeFlashRequired
	}

	opts.FocusScript = script(p.Sim.FocusFrames,
		capture.Observation{Af: capture.AfActiveScan, Ae: capture.AeSearching},
		capture.Observation{Af: capture.AfFocusedLocked, Ae: settled})
	opts.PrecaptureScript = script(p.Sim.PrecaptureFrames,
		capture.Observation{Af: capture.AfFocusedLocked, Ae: capture.AePrecapture},
		capture.Observation{Af: capture.AfFocusedLocked, Ae: capture.AeConverged})
	opts.Steady = capture.Observation{Af: capture.AfPassiveFocused, Ae: settled}
	return opts
}

// script is n-1 copies of progress followed by final.
func script(n int, progress, final capture.Observation) []capture.Observation {
	if n < 1 {
		n = 1
	}
	out := make([]capture.Observation, 0, n)
	for range n - 1 {
		out = append(out, progress)
	}
	return append(out, final)
}
