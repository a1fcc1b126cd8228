package api

import (
	"context"
	"maps"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"

	"github.com/smazurov/camseq/internal/api/models"
	"github.com/smazurov/camseq/internal/events"
	"github.com/smazurov/camseq/internal/metrics/exporters"
)

// registerSSERoutes registers the capture event stream.
func (s *Server) registerSSERoutes() {
	eventTypes := map[string]any{
		"capture-state":         models.CaptureStateData{},
		"capture-started":       events.CaptureStartedEvent{},
		"capture-state-changed": events.CaptureStateChangedEvent{},
		"capture-success":       events.CaptureSuccessEvent{},
		"capture-error":         events.CaptureErrorEvent{},
		"session-error":         events.SessionErrorEvent{},
		"flash-mode-changed":    events.FlashModeChangedEvent{},
	}
	maps.Copy(eventTypes, exporters.GetEventTypes())

	sse.Register(s.api, huma.Operation{
		OperationID: "events-stream",
		Method:      http.MethodGet,
		Path:        "/api/events",
		Summary:     "Server-Sent Events Stream",
		Description: "Real-time capture events: sequencer transitions, results, session failures and flash changes. The first message is the current capture state.",
		Tags:        []string{"events"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, eventTypes, func(ctx context.Context, _ *struct{}, send sse.Sender) {
		eventCh := make(chan any, 32)
		unsubscribe := events.SubscribeAll(s.eventBus, eventCh)
		defer unsubscribe()

		if s.options.Capture != nil {
			if err := send.Data(stateData(s.options.Capture.Status())); err != nil {
				return
			}
		}

		for {
			select {
			case <-ctx.Done():
				return
			case event := <-eventCh:
				if err := send.Data(event); err != nil {
					return
				}
			}
		}
	})
}
