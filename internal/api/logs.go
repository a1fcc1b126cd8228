package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"

	"github.com/smazurov/camseq/internal/api/models"
	"github.com/smazurov/camseq/internal/events"
	"github.com/smazurov/camseq/internal/logging"
)

// registerLogRoutes registers log level control and, with an event bus,
// the log streaming SSE endpoint.
func (s *Server) registerLogRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "get-log-levels",
		Method:      http.MethodGet,
		Path:        "/api/logs/levels",
		Summary:     "Get Log Levels",
		Description: "Effective log level of every module logger",
		Tags:        []string{"logs"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, func(ctx context.Context, _ *struct{}) (*models.LogLevelsResponse, error) {
		return &models.LogLevelsResponse{Body: models.LogLevelsData{Levels: logging.Levels()}}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "set-log-level",
		Method:      http.MethodPut,
		Path:        "/api/logs/levels/{module}",
		Summary:     "Set Log Level",
		Description: "Change one module's log level until restart",
		Tags:        []string{"logs"},
		Security:    withAuth(),
		Errors:      []int{400, 401},
	}, func(ctx context.Context, input *models.LogLevelRequest) (*models.LogLevelsResponse, error) {
		if err := logging.SetLevel(input.Module, input.Body.Level); err != nil {
			return nil, huma.Error400BadRequest("Invalid log level", err)
		}
		s.logger.Info("Log level changed", "target", input.Module, "level", input.Body.Level)
		return &models.LogLevelsResponse{Body: models.LogLevelsData{Levels: logging.Levels()}}, nil
	})

	if s.eventBus == nil {
		return
	}

	sse.Register(s.api, huma.Operation{
		OperationID: "logs-stream",
		Method:      http.MethodGet,
		Path:        "/api/logs/stream",
		Summary:     "Log Stream",
		Description: "Real-time log streaming via Server-Sent Events. Sends historical logs first, then streams new logs.",
		Tags:        []string{"logs"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, map[string]any{
		"message": events.LogEntryEvent{},
	}, func(ctx context.Context, _ *struct{}, send sse.Sender) {
		// Subscribe before replaying so nothing falls between the two;
		// duplicates are dropped by sequence number.
		eventCh := make(chan any, 100)
		unsubscribe := events.SubscribeToChannel[events.LogEntryEvent](s.eventBus, eventCh)
		defer unsubscribe()

		var lastSeq uint64
		if buffer := logging.GetBuffer(); buffer != nil {
			for _, entry := range buffer.ReadAll() {
				if err := send.Data(logEntryEvent(entry)); err != nil {
					return
				}
				lastSeq = entry.Seq
			}
		}

		for {
			select {
			case <-ctx.Done():
				return
			case event := <-eventCh:
				if e, ok := event.(events.LogEntryEvent); ok && e.Seq <= lastSeq {
					continue
				}
				if err := send.Data(event); err != nil {
					return
				}
			}
		}
	})
}

func logEntryEvent(entry logging.LogEntry) events.LogEntryEvent {
	return events.LogEntryEvent{
		Seq:        entry.Seq,
		Timestamp:  entry.Timestamp.Format(time.RFC3339Nano),
		Level:      entry.Level,
		Module:     entry.Module,
		Message:    entry.Message,
		Attributes: entry.Attributes,
	}
}
