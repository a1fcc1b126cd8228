package exporters

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/smazurov/camseq/internal/events"
	"github.com/smazurov/camseq/internal/metrics"
)

// EventPublisher is the part of the event bus the exporter needs.
type EventPublisher interface {
	Publish(ev events.Event)
}

// SSEExporter samples the capture counters and publishes a
// CaptureMetricsEvent whenever they change. A snapshot is also published
// every keepalive so late subscribers see current values.
type SSEExporter struct {
	bus       EventPublisher
	interval  time.Duration
	keepalive time.Duration

	mu   sync.Mutex
	stop context.CancelFunc
	done chan struct{}
}

// NewSSEExporter creates an exporter publishing to bus.
func NewSSEExporter(bus EventPublisher) *SSEExporter {
	return &SSEExporter{
		bus:       bus,
		interval:  time.Second,
		keepalive: 15 * time.Second,
	}
}

// Start launches the sampling loop. It runs until ctx ends or Stop.
func (s *SSEExporter) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done != nil {
		return
	}
	ctx, s.stop = context.WithCancel(ctx)
	s.done = make(chan struct{})
	go s.run(ctx, s.done)
}

// Stop ends the loop and waits for it. Safe to call more than once.
func (s *SSEExporter) Stop() {
	s.mu.Lock()
	stop, done := s.stop, s.done
	s.stop, s.done = nil, nil
	s.mu.Unlock()
	if stop == nil {
		return
	}
	stop()
	<-done
}

func (s *SSEExporter) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	last := snapshot()
	lastSent := time.Now()
	s.bus.Publish(last)
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			ev := snapshot()
			if ev == last && now.Sub(lastSent) < s.keepalive {
				continue
			}
			s.bus.Publish(ev)
			last, lastSent = ev, now
		}
	}
}

func snapshot() events.CaptureMetricsEvent {
	st := metrics.GetCaptureStats()
	failed := st.Results[metrics.ResultFailed] + st.Results[metrics.ResultTimeout] + st.Results[metrics.ResultCancelled]
	return events.CaptureMetricsEvent{
		EventType:      "capture_metrics",
		State:          st.State,
		Successes:      strconv.FormatUint(st.Results[metrics.ResultSuccess], 10),
		Failures:       strconv.FormatUint(failed, 10),
		Rejected:       strconv.FormatUint(st.Results[metrics.ResultRejected], 10),
		Observations:   strconv.FormatUint(st.Observations, 10),
		LastDurationMs: strconv.FormatInt(st.LastDuration.Milliseconds(), 10),
	}
}

// GetEventTypes maps SSE event names to payload types for sse.Register.
func GetEventTypes() map[string]any {
	return map[string]any{
		"capture-metrics": events.CaptureMetricsEvent{},
	}
}
