package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/smazurov/camseq/internal/capture"
	"github.com/smazurov/camseq/internal/events"
	"github.com/smazurov/camseq/internal/flash"
	"github.com/smazurov/camseq/internal/logging"
	"github.com/smazurov/camseq/internal/metrics"
	"github.com/smazurov/camseq/internal/sizing"
)

// ErrClosed is returned by commands issued after Close.
var ErrClosed = errors.New("capture controller closed")

const (
	observationQueueSize = 64
	fatalQueueSize       = 4
)

// Options configures a new Controller.
type Options struct {
	// Autofocus selects whether captures begin with a focus lock.
	Autofocus bool

	// FlashMode is the initial flash mode.
	FlashMode flash.Mode

	// MaxObservations abandons a capture after this many observations
	// without a state change (0 disables).
	MaxObservations int

	// Timeout abandons a capture that has not completed in time (0 disables).
	Timeout time.Duration

	// Sink stores captured stills (optional).
	Sink ImageSink

	// Reporter receives fatal session errors (optional).
	Reporter ErrorReporter

	// Bus receives capture events (optional).
	Bus *events.Bus

	// Logger for controller operations. If nil, uses the session module logger.
	Logger *slog.Logger
}

// Result describes a saved capture.
type Result struct {
	ID          string        `json:"id"`
	Path        string        `json:"path,omitempty"`
	Size        sizing.Size   `json:"size"`
	Orientation int           `json:"orientation"`
	FlashMode   flash.Mode    `json:"flash_mode"`
	StartedAt   time.Time     `json:"started_at"`
	Duration    time.Duration `json:"duration"`
	Still       *Still        `json:"-"`
}

// Status is a snapshot of controller state safe to read from any goroutine.
type Status struct {
	State     capture.State         `json:"state"`
	FlashMode flash.Mode            `json:"flash_mode"`
	Autofocus bool                  `json:"autofocus"`
	CaptureID string                `json:"capture_id,omitempty"`
	Attached  bool                  `json:"attached"`
	Failure   *capture.SessionError `json:"failure,omitempty"`
}

type outcome struct {
	still *Still
	err   error
}

type pendingCapture struct {
	id      string
	gen     uint64
	started time.Time
	flash   flash.Mode
	reply   chan outcome
	timer   *time.Timer
}

// Controller is the single-threaded event pump around a capture.Sequencer.
type Controller struct {
	sink     ImageSink
	reporter ErrorReporter
	bus      *events.Bus
	logger   *slog.Logger

	cmds         chan func()
	observations chan capture.Observation
	fatals       chan *capture.SessionError
	done         chan struct{}
	stopped      chan struct{}
	closeOnce    sync.Once
	running      atomic.Bool

	// Owned by the event loop.
	seq              *capture.Sequencer
	session          Session
	failure          *capture.SessionError
	pending          *pendingCapture
	gen              uint64
	stillOutstanding bool
	stillGen         uint64
	maxObservations  int
	timeout          time.Duration

	statusMu sync.RWMutex
	status   Status
}

// NewController creates a controller. Attach a session and call Run.
func NewController(opts Options) *Controller {
	logger := opts.Logger
	if logger == nil {
		logger = logging.GetLogger("session")
	}

	c := &Controller{
		sink:            opts.Sink,
		reporter:        opts.Reporter,
		bus:             opts.Bus,
		logger:          logger,
		cmds:            make(chan func()),
		observations:    make(chan capture.Observation, observationQueueSize),
		fatals:          make(chan *capture.SessionError, fatalQueueSize),
		done:            make(chan struct{}),
		stopped:         make(chan struct{}),
		maxObservations: opts.MaxObservations,
		timeout:         opts.Timeout,
	}
	seqOpts := []capture.Option{capture.WithTransitionHook(c.onTransition)}
	if opts.Logger != nil {
		seqOpts = append(seqOpts, capture.WithLogger(opts.Logger))
	}
	c.seq = capture.NewSequencer(opts.Autofocus, opts.FlashMode, seqOpts...)
	c.status = Status{
		State:     capture.StateIdle,
		FlashMode: opts.FlashMode,
		Autofocus: opts.Autofocus,
	}

	states := make([]string, 0, len(capture.States()))
	for _, st := range capture.States() {
		states = append(states, string(st))
	}
	metrics.SetState(states, string(capture.StateIdle))

	return c
}

// Run processes commands and observations until ctx is cancelled or Close
// is called. On exit any pending capture is cancelled and the session is
// closed.
func (c *Controller) Run(ctx context.Context) error {
	c.running.Store(true)
	defer close(c.stopped)
	defer c.teardown()

	c.logger.Info("Capture controller started")
	for {
		select {
		case <-ctx.Done():
			c.closeOnce.Do(func() { close(c.done) })
			return nil
		case <-c.done:
			return nil
		case err := <-c.fatals:
			c.fatal(err)
		case fn := <-c.cmds:
			fn()
		case obs := <-c.observations:
			c.observe(obs)
		}
	}
}

// Close stops the event loop. A pending capture fails with
// capture.ErrCancelled.
func (c *Controller) Close() error {
	c.closeOnce.Do(func() { close(c.done) })
	if c.running.Load() {
		<-c.stopped
		return nil
	}
	c.teardown()
	return nil
}

// post runs fn on the event loop and returns once the loop accepted it.
func (c *Controller) post(ctx context.Context, fn func()) error {
	select {
	case c.cmds <- fn:
		return nil
	case <-c.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// call runs fn on the event loop and waits for its error.
func (c *Controller) call(ctx context.Context, fn func() error) error {
	errc := make(chan error, 1)
	if err := c.post(ctx, func() { errc <- fn() }); err != nil {
		return err
	}
	return <-errc
}

// Attach installs a session, replacing and closing any previous one, and
// clears a recorded failure. The sequencer is reset to idle.
func (c *Controller) Attach(ctx context.Context, s Session) error {
	return c.call(ctx, func() error {
		if c.pending != nil {
			c.cancelPending(capture.ErrCancelled)
		}
		c.seq.Reset()
		if c.session != nil && c.session != s {
			if err := c.session.Close(); err != nil {
				c.logger.Warn("Failed to close previous session", "error", err)
			}
		}
		c.session = s
		c.failure = nil
		c.stillOutstanding = false
		c.updateStatus()
		c.logger.Info("Capture session attached")
		return nil
	})
}

// Start submits the repeating preview request.
func (c *Controller) Start(ctx context.Context) error {
	return c.call(ctx, func() error {
		if err := c.usable(); err != nil {
			return err
		}
		return c.realize(c.seq.PreviewIntent())
	})
}

// Capture runs one still-capture sequence and saves the result.
func (c *Controller) Capture(ctx context.Context) (*Result, error) {
	p := &pendingCapture{
		id:      uuid.NewString(),
		started: time.Now(),
		reply:   make(chan outcome, 1),
	}

	if err := c.post(ctx, func() { c.startCapture(p) }); err != nil {
		if errors.Is(err, ErrClosed) {
			err = fmt.Errorf("%w: %w", capture.ErrCancelled, err)
		}
		return nil, c.recordFailure(p, err)
	}

	var out outcome
	select {
	case out = <-p.reply:
	case <-ctx.Done():
		// Abandon on the loop; the reply may already be queued, in which
		// case abandon is a no-op and the still is discarded.
		_ = c.post(context.Background(), func() { c.abandon(p, ctx.Err()) })
		return nil, c.recordFailure(p, ctx.Err())
	}
	if out.err != nil {
		return nil, c.recordFailure(p, out.err)
	}

	return c.finish(ctx, p, out.still)
}

// Observe queues an AF/AE observation from the camera. It never blocks;
// observations are dropped while the queue is full.
func (c *Controller) Observe(obs capture.Observation) {
	select {
	case c.observations <- obs:
	default:
		metrics.RecordDroppedObservation()
	}
}

// DeviceError reports a fatal device error.
func (c *Controller) DeviceError(code capture.ErrorCode) {
	c.Fatal(capture.NewSessionError(code, "", nil))
}

// Disconnected reports that the camera went away.
func (c *Controller) Disconnected() {
	c.Fatal(capture.NewSessionError(capture.ErrCodeCameraDisconnected, "", nil))
}

// ConfigureFailed reports that the capture session could not be configured.
func (c *Controller) ConfigureFailed(err error) {
	c.Fatal(capture.NewSessionError(capture.ErrCodeConfigureFailed, "", err))
}

// Fatal resets the sequencer, cancels any pending capture, closes the
// session and reports err exactly once. It never blocks: errors reported
// before Run starts are queued, and once the queue is full the session has
// already failed and further errors are dropped.
func (c *Controller) Fatal(err *capture.SessionError) {
	select {
	case <-c.done:
		c.logger.Warn("Dropped session error after close", "code", err.Code)
		return
	default:
	}
	select {
	case c.fatals <- err:
	default:
		c.logger.Warn("Dropped session error, failure already queued", "code", err.Code)
	}
}

// SetFlash changes the flash mode. While idle the preview is re-issued
// with the new policy.
func (c *Controller) SetFlash(ctx context.Context, mode flash.Mode) error {
	return c.SetFlashFrom(ctx, mode, "api")
}

// SetFlashFrom is SetFlash with the origin of the change (api, config, cli)
// recorded on the published event.
func (c *Controller) SetFlashFrom(ctx context.Context, mode flash.Mode, source string) error {
	return c.call(ctx, func() error {
		intent, reissue := c.seq.SetFlashMode(mode)
		c.updateStatus()
		if reissue && c.usable() == nil {
			if err := c.realize(intent); err != nil {
				return err
			}
		}
		policy := flash.Resolve(mode)
		c.publish(events.FlashModeChangedEvent{
			Mode:      string(mode),
			AEMode:    string(policy.AE),
			Flash:     string(policy.Flash),
			Source:    source,
			Timestamp: events.Now(),
		})
		c.logger.Info("Flash mode changed", "mode", mode, "source", source, "reissued", reissue)
		return nil
	})
}

// SetWatchdog updates the watchdog limits for subsequent captures.
func (c *Controller) SetWatchdog(ctx context.Context, maxObservations int, timeout time.Duration) error {
	return c.call(ctx, func() error {
		c.maxObservations = maxObservations
		c.timeout = timeout
		return nil
	})
}

// State returns the current sequencer state.
func (c *Controller) State() capture.State {
	return c.Status().State
}

// Status returns a snapshot of the controller.
func (c *Controller) Status() Status {
	c.statusMu.RLock()
	defer c.statusMu.RUnlock()
	return c.status
}

// --- event loop ---

func (c *Controller) usable() error {
	if c.failure != nil {
		return capture.NewSessionError(capture.ErrCodeSessionFailed, "", c.failure)
	}
	if c.session == nil {
		return capture.NewSessionError(capture.ErrCodeSessionFailed, "no capture session attached", nil)
	}
	return nil
}

func (c *Controller) startCapture(p *pendingCapture) {
	if err := c.usable(); err != nil {
		p.reply <- outcome{err: err}
		return
	}
	if c.pending != nil || c.stillOutstanding {
		p.reply <- outcome{err: capture.ErrAlreadyCapturing}
		return
	}

	c.gen++
	p.gen = c.gen
	p.flash = c.seq.FlashMode()
	c.pending = p

	intent, err := c.seq.RequestCapture()
	if err != nil {
		c.pending = nil
		p.reply <- outcome{err: err}
		return
	}

	if c.timeout > 0 && c.seq.State() != capture.StateCaptureReady {
		gen := p.gen
		p.timer = time.AfterFunc(c.timeout, func() {
			_ = c.post(context.Background(), func() { c.watchdog(gen, "timeout") })
		})
	}

	c.logger.Info("Capture started", "capture_id", p.id, "autofocus", c.seq.AutofocusAvailable(), "flash", p.flash)
	c.publish(events.CaptureStartedEvent{
		CaptureID: p.id,
		Autofocus: c.seq.AutofocusAvailable(),
		FlashMode: string(p.flash),
		Timestamp: events.Now(),
	})
	c.updateStatus()

	if err := c.realize(intent); err != nil {
		c.logger.Warn("Capture request could not be submitted", "capture_id", p.id, "error", err)
	}
}

func (c *Controller) observe(obs capture.Observation) {
	state := c.seq.State()
	if state == capture.StateIdle {
		return
	}
	metrics.RecordObservation(string(state))

	if intent, ok := c.seq.OnObservation(obs); ok {
		if err := c.realize(intent); err != nil {
			return
		}
	}

	if c.maxObservations > 0 && c.pending != nil &&
		c.seq.State() != capture.StateCaptureReady &&
		c.seq.Observations() >= c.maxObservations {
		c.watchdog(c.pending.gen, "observations")
	}
}

// watchdog abandons the pending capture unless its still request is
// already in flight; a submitted still is always waited for.
func (c *Controller) watchdog(gen uint64, reason string) {
	p := c.pending
	if p == nil || p.gen != gen || c.seq.State() == capture.StateCaptureReady {
		return
	}
	c.logger.Warn("Capture abandoned by watchdog",
		"capture_id", p.id,
		"reason", reason,
		"state", c.seq.State(),
		"observations", c.seq.Observations())
	c.abort(fmt.Errorf("%w (%s, state %s)", capture.ErrCaptureTimeout, reason, c.seq.State()))
}

func (c *Controller) abandon(p *pendingCapture, cause error) {
	if c.pending != p {
		return
	}
	c.logger.Info("Capture abandoned by caller", "capture_id", p.id, "error", cause)
	c.abort(cause)
}

// abort fails the pending capture with err and resumes preview. With the
// still request outstanding the sequencer stays in capture_ready and the
// preview resumes when that request completes.
func (c *Controller) abort(err error) {
	if c.stillOutstanding {
		c.cancelPending(err)
		return
	}
	intent, ok := c.seq.Abort()
	c.cancelPending(err)
	if ok {
		_ = c.realize(intent)
	}
}

func (c *Controller) cancelPending(err error) {
	p := c.pending
	if p == nil {
		return
	}
	c.pending = nil
	if p.timer != nil {
		p.timer.Stop()
	}
	p.reply <- outcome{err: err}
	c.updateStatus()
}

func (c *Controller) stillCompleted(gen uint64, comp Completion) {
	if !c.stillOutstanding || c.stillGen != gen {
		c.logger.Debug("Discarding completion from a previous session", "gen", gen)
		return
	}
	c.stillOutstanding = false

	p := c.pending
	if p != nil && p.gen == gen {
		c.pending = nil
		if p.timer != nil {
			p.timer.Stop()
		}
	} else {
		p = nil
	}

	resume := c.seq.OnStillCaptureCompleted()
	c.updateStatus()
	_ = c.realize(resume)

	if p == nil {
		c.logger.Debug("Discarding still of abandoned capture", "gen", gen)
		return
	}

	switch {
	case comp.Err != nil:
		p.reply <- outcome{err: fmt.Errorf("still capture: %w", comp.Err)}
	case comp.Still == nil:
		p.reply <- outcome{err: errors.New("still capture completed without an image")}
	default:
		p.reply <- outcome{still: comp.Still}
	}
}

func (c *Controller) forwardCompletion(gen uint64, ch <-chan Completion) {
	var comp Completion
	select {
	case got, ok := <-ch:
		comp = got
		if !ok {
			comp = Completion{Err: errors.New("completion channel closed")}
		}
	case <-c.done:
		return
	}
	_ = c.post(context.Background(), func() { c.stillCompleted(gen, comp) })
}

// realize submits intent on the session. Submission failures are fatal.
func (c *Controller) realize(intent capture.Intent) error {
	if c.session == nil {
		return c.usable()
	}

	var err error
	switch intent.Kind {
	case capture.KindLockFocus, capture.KindPrecapture:
		_, err = c.session.SubmitOnce(intent)

	case capture.KindCaptureStill:
		if err = c.session.StopRepeating(); err != nil {
			break
		}
		var ch <-chan Completion
		if ch, err = c.session.SubmitOnce(intent); err != nil {
			break
		}
		c.stillOutstanding = true
		c.stillGen = c.gen
		go c.forwardCompletion(c.gen, ch)

	case capture.KindResumePreview:
		if _, err = c.session.SubmitOnce(intent); err != nil {
			break
		}
		err = c.session.SubmitRepeating(c.seq.PreviewIntent())

	case capture.KindPreview:
		err = c.session.SubmitRepeating(intent)

	default:
		err = fmt.Errorf("unknown intent kind %q", intent.Kind)
	}

	if err != nil {
		se := capture.NewSessionError(capture.ErrCodeSessionFailed, fmt.Sprintf("submit %s request", intent.Kind), err)
		c.fatal(se)
		return se
	}
	c.logger.Debug("Request submitted", "kind", intent.Kind, "target", intent.Target,
		"af_trigger", intent.AFTrigger, "ae_trigger", intent.AETrigger, "ae_mode", intent.Flash.AE)
	return nil
}

func (c *Controller) fatal(err *capture.SessionError) {
	c.logger.Error("Capture session failed", "code", err.Code, "error", err)

	c.seq.Reset()
	c.cancelPending(fmt.Errorf("%w: %w", capture.ErrCancelled, err))
	c.failure = err
	c.stillOutstanding = false
	if c.session != nil {
		if closeErr := c.session.Close(); closeErr != nil {
			c.logger.Warn("Failed to close session", "error", closeErr)
		}
		c.session = nil
	}
	c.updateStatus()

	metrics.RecordSessionError(string(err.Code))
	if c.reporter != nil {
		c.reporter.ReportError(err)
	}
}

func (c *Controller) teardown() {
	c.seq.Reset()
	c.cancelPending(capture.ErrCancelled)
	if c.session != nil {
		if err := c.session.Close(); err != nil {
			c.logger.Warn("Failed to close session", "error", err)
		}
		c.session = nil
	}
	c.updateStatus()
	c.logger.Info("Capture controller stopped")
}

func (c *Controller) onTransition(from, to capture.State) {
	id := ""
	if c.pending != nil {
		id = c.pending.id
		if to == capture.StateCaptureReady && c.pending.timer != nil {
			c.pending.timer.Stop()
		}
	}
	metrics.RecordTransition(string(from), string(to))
	c.publish(events.CaptureStateChangedEvent{
		CaptureID: id,
		From:      string(from),
		To:        string(to),
		Timestamp: events.Now(),
	})
	c.updateStatus()
}

func (c *Controller) updateStatus() {
	s := Status{
		State:     c.seq.State(),
		FlashMode: c.seq.FlashMode(),
		Autofocus: c.seq.AutofocusAvailable(),
		Attached:  c.session != nil,
		Failure:   c.failure,
	}
	if c.pending != nil {
		s.CaptureID = c.pending.id
	}
	c.statusMu.Lock()
	c.status = s
	c.statusMu.Unlock()
}

func (c *Controller) publish(ev events.Event) {
	if c.bus != nil {
		c.bus.Publish(ev)
	}
}

// --- caller side ---

func (c *Controller) finish(ctx context.Context, p *pendingCapture, still *Still) (*Result, error) {
	still.ID = p.id
	result := &Result{
		ID:          p.id,
		Size:        still.Size,
		Orientation: still.Orientation,
		FlashMode:   p.flash,
		StartedAt:   p.started,
		Still:       still,
	}

	if c.sink != nil {
		path, err := c.sink.Save(ctx, *still)
		if err != nil {
			return nil, c.recordFailure(p, fmt.Errorf("save still: %w", err))
		}
		result.Path = path
	}

	result.Duration = time.Since(p.started)
	metrics.RecordCaptureResult(metrics.ResultSuccess)
	metrics.ObserveCaptureDuration(result.Duration)
	c.publish(events.CaptureSuccessEvent{
		CaptureID:  p.id,
		Path:       result.Path,
		Width:      still.Size.Width,
		Height:     still.Size.Height,
		DurationMs: result.Duration.Milliseconds(),
		Timestamp:  events.Now(),
	})
	c.logger.Info("Capture saved",
		"capture_id", p.id,
		"path", result.Path,
		"size", still.Size.String(),
		"duration", result.Duration)
	return result, nil
}

func (c *Controller) recordFailure(p *pendingCapture, err error) error {
	result := metrics.ResultFailed
	switch {
	case errors.Is(err, capture.ErrAlreadyCapturing):
		result = metrics.ResultRejected
	case errors.Is(err, capture.ErrCaptureTimeout):
		result = metrics.ResultTimeout
	case errors.Is(err, capture.ErrCancelled), errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		result = metrics.ResultCancelled
	}
	metrics.RecordCaptureResult(result)

	if result == metrics.ResultRejected {
		c.logger.Debug("Capture rejected", "capture_id", p.id)
		return err
	}
	c.logger.Warn("Capture failed", "capture_id", p.id, "result", result, "error", err)
	c.publish(events.CaptureErrorEvent{
		CaptureID: p.id,
		Message:   "Capture " + result,
		Error:     err.Error(),
		Timestamp: events.Now(),
	})
	return err
}
