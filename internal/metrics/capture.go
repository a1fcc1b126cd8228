// Package metrics provides Prometheus metrics for the capture sequencer.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Capture request results.
const (
	ResultSuccess   = "success"
	ResultRejected  = "rejected"
	ResultCancelled = "cancelled"
	ResultTimeout   = "timeout"
	ResultFailed    = "failed"
)

var (
	captureRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "camseq",
		Subsystem: "capture",
		Name:      "requests_total",
		Help:      "Capture requests by result",
	}, []string{"result"})

	stateTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "camseq",
		Subsystem: "capture",
		Name:      "transitions_total",
		Help:      "Sequencer state transitions",
	}, []string{"from", "to"})

	observations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "camseq",
		Subsystem: "capture",
		Name:      "observations_total",
		Help:      "AF/AE observations consumed, by sequencer state",
	}, []string{"state"})

	droppedObservations = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "camseq",
		Subsystem: "capture",
		Name:      "observations_dropped_total",
		Help:      "Observations dropped because the event loop was busy",
	})

	captureDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "camseq",
		Subsystem: "capture",
		Name:      "duration_seconds",
		Help:      "Time from capture request to saved image",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	})

	sessionErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "camseq",
		Subsystem: "session",
		Name:      "errors_total",
		Help:      "Fatal session errors by code",
	}, []string{"code"})

	currentState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "camseq",
		Subsystem: "capture",
		Name:      "state",
		Help:      "1 for the current sequencer state, 0 otherwise",
	}, []string{"state"})

	// Local cache for SSE exporter access.
	stats   = CaptureStats{Results: map[string]uint64{}}
	statsMu sync.RWMutex
)

// CaptureStats holds current values mirrored from the Prometheus metrics.
type CaptureStats struct {
	State        string
	Results      map[string]uint64
	Transitions  uint64
	Observations uint64
	Dropped      uint64
	SessionErrs  uint64
	LastDuration time.Duration
}

// RecordCaptureResult counts a finished capture request.
func RecordCaptureResult(result string) {
	captureRequests.WithLabelValues(result).Inc()
	update(func(s *CaptureStats) { s.Results[result]++ })
}

// ObserveCaptureDuration records the duration of a successful capture.
func ObserveCaptureDuration(d time.Duration) {
	captureDuration.Observe(d.Seconds())
	update(func(s *CaptureStats) { s.LastDuration = d })
}

// RecordTransition counts a state change and moves the state gauge.
func RecordTransition(from, to string) {
	stateTransitions.WithLabelValues(from, to).Inc()
	currentState.WithLabelValues(from).Set(0)
	currentState.WithLabelValues(to).Set(1)
	update(func(s *CaptureStats) {
		s.Transitions++
		s.State = to
	})
}

// SetState initializes the state gauge without counting a transition.
func SetState(states []string, current string) {
	for _, st := range states {
		v := 0.0
		if st == current {
			v = 1
		}
		currentState.WithLabelValues(st).Set(v)
	}
	update(func(s *CaptureStats) { s.State = current })
}

// RecordObservation counts an observation consumed in state.
func RecordObservation(state string) {
	observations.WithLabelValues(state).Inc()
	update(func(s *CaptureStats) { s.Observations++ })
}

// RecordDroppedObservation counts an observation that could not be queued.
func RecordDroppedObservation() {
	droppedObservations.Inc()
	update(func(s *CaptureStats) { s.Dropped++ })
}

// RecordSessionError counts a fatal session error.
func RecordSessionError(code string) {
	sessionErrors.WithLabelValues(code).Inc()
	update(func(s *CaptureStats) { s.SessionErrs++ })
}

// GetCaptureStats returns a copy of the current values.
func GetCaptureStats() CaptureStats {
	statsMu.RLock()
	defer statsMu.RUnlock()
	dup := stats
	dup.Results = make(map[string]uint64, len(stats.Results))
	for k, v := range stats.Results {
		dup.Results[k] = v
	}
	return dup
}

func update(fn func(*CaptureStats)) {
	statsMu.Lock()
	defer statsMu.Unlock()
	fn(&stats)
}
