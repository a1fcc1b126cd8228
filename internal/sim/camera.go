// Package sim is an in-process camera binding that replays scripted AF/AE
// observations and renders synthetic JPEG stills.
package sim

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"log/slog"
	"sync"
	"time"

	"github.com/smazurov/camseq/internal/capture"
	"github.com/smazurov/camseq/internal/logging"
	"github.com/smazurov/camseq/internal/session"
	"github.com/smazurov/camseq/internal/sizing"
)

// ErrClosed is returned by submissions on a closed camera.
var ErrClosed = errors.New("simulated camera closed")

// Target receives the camera's asynchronous callbacks.
// *session.Controller satisfies it.
type Target interface {
	Observe(obs capture.Observation)
	DeviceError(code capture.ErrorCode)
}

// Options configures a simulated camera.
type Options struct {
	// StillSize is the size of rendered stills.
	StillSize sizing.Size

	// Orientation is the JPEG orientation stamped on stills.
	Orientation int

	// FocusScript is replayed after an AF start trigger.
	FocusScript []capture.Observation

	// PrecaptureScript is replayed after an AE precapture trigger.
	PrecaptureScript []capture.Observation

	// Steady is reported each frame while no script is pending and the
	// repeating request is active.
	Steady capture.Observation

	// FrameInterval is the time between observations (default 33ms).
	FrameInterval time.Duration

	// StillLatency is the delay before a still completes (default FrameInterval).
	StillLatency time.Duration

	// JPEGQuality for rendered stills (default 85).
	JPEGQuality int

	// Logger for camera operations. If nil, uses the sim module logger.
	Logger *slog.Logger
}

// DefaultOptions returns a camera that focuses in a few frames and needs no
// flash.
func DefaultOptions() Options {
	return Options{
		StillSize: sizing.Size{Width: 1280, Height: 960},
		FocusScript: []capture.Observation{
			{Af: capture.AfActiveScan, Ae: capture.AeSearching},
			{Af: capture.AfActiveScan, Ae: capture.AeConverged},
			{Af: capture.AfFocusedLocked, Ae: capture.AeConverged},
		},
		PrecaptureScript: []capture.Observation{
			{Af: capture.AfFocusedLocked, Ae: capture.AePrecapture},
			{Af: capture.AfFocusedLocked, Ae: capture.AePrecapture},
			{Af: capture.AfFocusedLocked, Ae: capture.AeConverged},
		},
		Steady:        capture.Observation{Af: capture.AfPassiveFocused, Ae: capture.AeConverged},
		FrameInterval: 33 * time.Millisecond,
		JPEGQuality:   85,
	}
}

// Camera is a simulated capture session.
type Camera struct {
	target Target
	opts   Options
	logger *slog.Logger

	mu         sync.Mutex
	repeating  *capture.Intent
	script     []capture.Observation
	failStill  error
	closed     bool
	submitted  []capture.Intent
	stillCount int

	done chan struct{}
	wg   sync.WaitGroup
}

// New creates a camera reporting to target and starts its frame clock.
func New(target Target, opts Options) *Camera {
	def := DefaultOptions()
	if opts.StillSize.Width <= 0 || opts.StillSize.Height <= 0 {
		opts.StillSize = def.StillSize
	}
	if opts.FrameInterval <= 0 {
		opts.FrameInterval = def.FrameInterval
	}
	if opts.StillLatency <= 0 {
		opts.StillLatency = opts.FrameInterval
	}
	if opts.JPEGQuality <= 0 || opts.JPEGQuality > 100 {
		opts.JPEGQuality = def.JPEGQuality
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.GetLogger("sim")
	}

	c := &Camera{
		target: target,
		opts:   opts,
		logger: logger,
		done:   make(chan struct{}),
	}
	c.wg.Add(1)
	go c.frames()
	return c
}

// SubmitRepeating replaces the repeating request.
func (c *Camera) SubmitRepeating(intent capture.Intent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	c.submitted = append(c.submitted, intent)
	c.repeating = &intent
	return nil
}

// StopRepeating halts the repeating request. Queued script results are
// still delivered.
func (c *Camera) StopRepeating() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	c.repeating = nil
	return nil
}

// SubmitOnce submits a one-shot request. Triggers queue the matching
// observation script; still requests render a JPEG.
func (c *Camera) SubmitOnce(intent capture.Intent) (<-chan session.Completion, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrClosed
	}
	c.submitted = append(c.submitted, intent)

	ch := make(chan session.Completion, 1)
	switch {
	case intent.Target == capture.TargetStill:
		failure := c.failStill
		c.failStill = nil
		c.stillCount++
		c.wg.Add(1)
		go c.renderStill(ch, failure)
		return ch, nil
	case intent.AFTrigger == capture.AFTriggerStart:
		c.script = append(c.script, c.opts.FocusScript...)
	case intent.AETrigger == capture.AETriggerStart:
		c.script = append(c.script, c.opts.PrecaptureScript...)
	case intent.AFTrigger == capture.AFTriggerCancel:
		c.script = nil
	}
	ch <- session.Completion{}
	return ch, nil
}

// Close stops the frame clock. It is safe to call more than once.
func (c *Camera) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.repeating = nil
	c.script = nil
	close(c.done)
	c.mu.Unlock()

	c.wg.Wait()
	c.logger.Debug("Simulated camera closed")
	return nil
}

// FailNextStill makes the next still request complete with err.
func (c *Camera) FailNextStill(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failStill = err
}

// InjectDeviceError reports a device error to the target from a separate
// goroutine, as a hardware callback would.
func (c *Camera) InjectDeviceError(code capture.ErrorCode) {
	c.logger.Info("Injecting device error", "code", code)
	go c.target.DeviceError(code)
}

// Submitted returns every intent submitted so far.
func (c *Camera) Submitted() []capture.Intent {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]capture.Intent, len(c.submitted))
	copy(out, c.submitted)
	return out
}

// Stills returns the number of still requests received.
func (c *Camera) Stills() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stillCount
}

func (c *Camera) frames() {
	defer c.wg.Done()
	ticker := time.NewTicker(c.opts.FrameInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			if obs, ok := c.nextObservation(); ok {
				c.target.Observe(obs)
			}
		}
	}
}

func (c *Camera) nextObservation() (capture.Observation, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.script) > 0 {
		obs := c.script[0]
		c.script = c.script[1:]
		return obs, true
	}
	if c.repeating != nil {
		return c.opts.Steady, true
	}
	return capture.Observation{}, false
}

func (c *Camera) renderStill(ch chan<- session.Completion, failure error) {
	defer c.wg.Done()

	select {
	case <-c.done:
		ch <- session.Completion{Err: ErrClosed}
		return
	case <-time.After(c.opts.StillLatency):
	}

	if failure != nil {
		ch <- session.Completion{Err: failure}
		return
	}

	data, err := EncodeTestPattern(c.opts.StillSize, c.opts.JPEGQuality)
	if err != nil {
		ch <- session.Completion{Err: err}
		return
	}
	c.logger.Debug("Still rendered", "size", c.opts.StillSize.String(), "bytes", len(data))
	ch <- session.Completion{Still: &session.Still{
		Data:        data,
		Size:        c.opts.StillSize,
		Orientation: c.opts.Orientation,
		CapturedAt:  time.Now(),
	}}
}

// EncodeTestPattern renders a gradient test card of the given size as JPEG.
func EncodeTestPattern(size sizing.Size, quality int) ([]byte, error) {
	if size.Width <= 0 || size.Height <= 0 {
		return nil, fmt.Errorf("invalid still size %s", size)
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, testPattern{size: size}, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encode still: %w", err)
	}
	return buf.Bytes(), nil
}

// testPattern computes pixels on demand so large stills need no backing
// buffer.
type testPattern struct {
	size sizing.Size
}

func (p testPattern) ColorModel() color.Model { return color.RGBAModel }

func (p testPattern) Bounds() image.Rectangle {
	return image.Rect(0, 0, p.size.Width, p.size.Height)
}

func (p testPattern) At(x, y int) color.Color {
	return color.RGBA{
		R: uint8(x * 255 / p.size.Width),
		G: uint8(y * 255 / p.size.Height),
		B: uint8((x + y) % 256),
		A: 0xff,
	}
}
