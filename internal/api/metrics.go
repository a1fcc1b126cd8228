package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"

	"github.com/smazurov/camseq/internal/events"
	"github.com/smazurov/camseq/internal/metrics/exporters"
)

// registerMetricsRoutes registers the metrics SSE endpoint
func (s *Server) registerMetricsRoutes() {
	sse.Register(s.api, huma.Operation{
		OperationID: "metrics-stream",
		Method:      http.MethodGet,
		Path:        "/api/metrics",
		Summary:     "Metrics Server-Sent Events Stream",
		Description: "Periodic capture counters: successes, failures, rejected requests and the last capture duration",
		Tags:        []string{"metrics"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, exporters.GetEventTypes(), func(ctx context.Context, input *struct{}, send sse.Sender) {
		eventCh := make(chan any, 10)
		unsubscribe := events.SubscribeToChannel[events.CaptureMetricsEvent](s.eventBus, eventCh)
		defer unsubscribe()

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
