package exporters

import (
	"sync"
	"testing"
	"time"

	"github.com/smazurov/camseq/internal/events"
	"github.com/smazurov/camseq/internal/metrics"
)

// recordingBus collects published events and signals each one.
type recordingBus struct {
	mu   sync.Mutex
	seen []events.Event
	sig  chan struct{}
}

func newRecordingBus() *recordingBus {
	return &recordingBus{sig: make(chan struct{}, 64)}
}

func (b *recordingBus) Publish(ev events.Event) {
	b.mu.Lock()
	b.seen = append(b.seen, ev)
	b.mu.Unlock()
	select {
	case b.sig <- struct{}{}:
	default:
	}
}

func (b *recordingBus) published() []events.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]events.Event(nil), b.seen...)
}

func newTestExporter(bus EventPublisher, interval time.Duration) *SSEExporter {
	e := NewSSEExporter(bus)
	e.interval = interval
	return e
}

func TestSSEExporterPublishesSnapshot(t *testing.T) {
	metrics.RecordTransition("idle", "awaiting_focus_lock")
	metrics.ObserveCaptureDuration(412 * time.Millisecond)

	bus := newRecordingBus()
	exp := newTestExporter(bus, 50*time.Millisecond)
	exp.Start(t.Context())
	defer exp.Stop()

	select {
	case <-bus.sig:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("no metrics published")
	}

	ev, ok := bus.published()[0].(events.CaptureMetricsEvent)
	if !ok {
		t.Fatalf("published %T, want CaptureMetricsEvent", bus.published()[0])
	}
	if ev.EventType != "capture_metrics" || ev.LastDurationMs != "412" {
		t.Errorf("event = %+v", ev)
	}
}

func TestSSEExporterPublishesOnChange(t *testing.T) {
	bus := newRecordingBus()
	exp := newTestExporter(bus, 5*time.Millisecond)
	exp.keepalive = time.Hour
	exp.Start(t.Context())
	defer exp.Stop()

	<-bus.sig
	metrics.RecordCaptureResult(metrics.ResultRejected)

	select {
	case <-bus.sig:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("changed counters were not published")
	}
}

func TestSSEExporterSkipsUnchanged(t *testing.T) {
	bus := newRecordingBus()
	exp := newTestExporter(bus, 5*time.Millisecond)
	exp.keepalive = time.Hour

	exp.Start(t.Context())
	time.Sleep(50 * time.Millisecond)
	exp.Stop()

	if n := len(bus.published()); n != 1 {
		t.Errorf("published %d events with unchanged counters, want 1", n)
	}
}

func TestSSEExporterStop(t *testing.T) {
	bus := newRecordingBus()
	exp := newTestExporter(bus, 5*time.Millisecond)
	exp.keepalive = 5 * time.Millisecond

	exp.Stop() // before Start
	exp.Start(t.Context())
	time.Sleep(30 * time.Millisecond)
	exp.Stop()
	exp.Stop()

	n := len(bus.published())
	if n == 0 {
		t.Fatal("nothing published while running")
	}
	time.Sleep(30 * time.Millisecond)
	if after := len(bus.published()); after != n {
		t.Errorf("published %d events after Stop", after-n)
	}
}

func TestGetEventTypes(t *testing.T) {
	if _, ok := GetEventTypes()["capture-metrics"]; !ok {
		t.Error("expected capture-metrics event type")
	}
}
