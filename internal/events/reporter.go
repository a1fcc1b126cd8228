package events

import (
	"time"

	"github.com/smazurov/camseq/internal/capture"
)

// BusReporter publishes fatal session errors on the bus.
type BusReporter struct {
	bus *Bus
}

// NewBusReporter returns a reporter publishing to bus.
func NewBusReporter(bus *Bus) *BusReporter {
	return &BusReporter{bus: bus}
}

// ReportError publishes err as a SessionErrorEvent.
func (r *BusReporter) ReportError(err *capture.SessionError) {
	if err == nil {
		return
	}
	r.bus.Publish(SessionErrorEvent{
		Code:      string(err.Code),
		Message:   err.Error(),
		Timestamp: Now(),
	})
}

// Now formats the current time the way every event timestamp is written.
func Now() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}
