package api

import (
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	"github.com/smazurov/camseq/internal/logging"
)

const requestIDHeader = "X-Request-ID"

// HTTPLoggingMiddleware tags each request with an id (echoing a client
// supplied X-Request-ID) and logs it when the handler returns.
func HTTPLoggingMiddleware(ctx huma.Context, next func(huma.Context)) {
	start := time.Now()
	logger := logging.GetLogger(logging.ModuleHTTP)

	requestID := ctx.Header(requestIDHeader)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	ctx.SetHeader(requestIDHeader, requestID)

	method := ctx.Method()
	path := ctx.URL().Path
	attrs := []slog.Attr{
		slog.String("request_id", requestID),
		slog.String("method", method),
		slog.String("path", path),
		slog.String("remote_addr", ctx.RemoteAddr()),
	}
	if query := redactQuery(ctx.URL().Query()); query != "" {
		attrs = append(attrs, slog.String("query", query))
	}
	if ua := ctx.Header("User-Agent"); ua != "" {
		attrs = append(attrs, slog.String("user_agent", ua))
	}

	next(ctx)

	status := ctx.Status()
	attrs = append(attrs,
		slog.Int("status", status),
		slog.Duration("duration", time.Since(start)),
	)
	logger.LogAttrs(ctx.Context(), requestLevel(method, path, status), "HTTP request completed", attrs...)
}

// requestLevel keeps preflights and health polling out of info logs.
func requestLevel(method, path string, status int) slog.Level {
	switch {
	case status >= 500:
		return slog.LevelError
	case status >= 400:
		return slog.LevelWarn
	case method == http.MethodOptions, path == "/api/health":
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}

// redactQuery drops the auth credential EventSource clients pass in the URL.
func redactQuery(q url.Values) string {
	if len(q) == 0 {
		return ""
	}
	if q.Has("auth") {
		q.Set("auth", "redacted")
	}
	return q.Encode()
}
