package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"

	"github.com/smazurov/camseq/internal/api/models"
	"github.com/smazurov/camseq/internal/capture"
	"github.com/smazurov/camseq/internal/device"
	"github.com/smazurov/camseq/internal/events"
	"github.com/smazurov/camseq/internal/flash"
	"github.com/smazurov/camseq/internal/led"
	"github.com/smazurov/camseq/internal/logging"
	"github.com/smazurov/camseq/internal/session"
	"github.com/smazurov/camseq/internal/sizing"
	"github.com/smazurov/camseq/internal/version"
)

// CaptureService runs captures and reports controller state.
// *session.Controller implements it.
type CaptureService interface {
	Capture(ctx context.Context) (*session.Result, error)
	Status() session.Status
	SetFlashFrom(ctx context.Context, mode flash.Mode, source string) error
}

// Rig exposes the camera binding behind the capture service.
// *app.Rig implements it.
type Rig interface {
	Camera() device.Characteristics
	Plan() sizing.Plan
	Orientation() int
	Reopen(ctx context.Context) error
	InjectFault(code capture.ErrorCode) error
}

// Options configures the API server.
type Options struct {
	AuthUsername string
	AuthPassword string

	// CaptureTimeout bounds a single capture request (0 leaves it to the
	// controller watchdog).
	CaptureTimeout time.Duration

	Capture           CaptureService
	Rig               Rig         // Optional camera binding endpoints
	EventBus          *events.Bus // Required for SSE endpoints
	LEDController     led.Controller
	PrometheusHandler http.Handler // Optional Prometheus metrics handler
}

// Server is the Huma v2 API server.
type Server struct {
	api        huma.API
	mux        *http.ServeMux
	httpServer *http.Server
	options    *Options
	eventBus   *events.Bus
	logger     *slog.Logger
}

// NewServer creates a new API server with Huma v2 using Go 1.22+ native routing.
func NewServer(opts *Options) *Server {
	mux := http.NewServeMux()

	corsConfig := DefaultCORSConfig()
	AddCORSHandler(mux, corsConfig)

	config := huma.DefaultConfig("camseq API", version.Get().Version)
	config.Info.Description = "Still capture sequencing with autofocus, precapture metering and flash control"
	// Empty servers list will make OpenAPI use relative paths, working with any host
	config.Servers = []*huma.Server{}
	config.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"basicAuth": {
			Type:   "http",
			Scheme: "basic",
		},
	}

	api := humago.New(mux, config)

	server := &Server{
		api:      api,
		mux:      mux,
		options:  opts,
		eventBus: opts.EventBus,
		logger:   logging.GetLogger(logging.ModuleAPI),
	}

	api.UseMiddleware(NewCORSMiddleware(corsConfig))
	api.UseMiddleware(HTTPLoggingMiddleware)
	if opts.AuthUsername != "" && opts.AuthPassword != "" {
		api.UseMiddleware(server.basicAuthMiddleware(opts.AuthUsername, opts.AuthPassword))
	}

	// Prometheus scrapes without auth.
	if opts.PrometheusHandler != nil {
		mux.Handle("GET /metrics", opts.PrometheusHandler)
	}

	server.registerRoutes()
	return server
}

// GetMux returns the underlying HTTP ServeMux for additional setup.
func (s *Server) GetMux() *http.ServeMux {
	return s.mux
}

// GetAPI returns the Huma API instance.
func (s *Server) GetAPI() huma.API {
	return s.api
}

// Start listens on addr and blocks until the server stops.
func (s *Server) Start(addr string) error {
	s.logger.Info("Starting camseq API server", "addr", addr)
	s.logger.Info("OpenAPI documentation available", "url", "http://"+addr+"/docs")

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s.httpServer.ListenAndServe()
}

// Stop closes the listener and all connections, including SSE streams.
func (s *Server) Stop() error {
	s.logger.Info("Stopping API server")
	if s.httpServer != nil {
		return s.httpServer.Close()
	}
	return nil
}

func (s *Server) registerRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "health-check",
		Method:      http.MethodGet,
		Path:        "/api/health",
		Summary:     "Health",
		Description: "Check API health status. Reports degraded while the camera session has failed.",
		Tags:        []string{"health"},
		Security:    []map[string][]string{}, // Empty security = no auth required
	}, func(ctx context.Context, input *struct{}) (*models.HealthResponse, error) {
		body := models.HealthData{Status: "ok", Message: "API is healthy"}
		if s.options.Capture != nil {
			st := s.options.Capture.Status()
			body.State = string(st.State)
			if st.Failure != nil {
				body.Status = "degraded"
				body.Message = st.Failure.Error()
			}
		}
		return &models.HealthResponse{Body: body}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-version",
		Method:      http.MethodGet,
		Path:        "/api/version",
		Summary:     "Version",
		Description: "Get application version information",
		Tags:        []string{"system"},
		Security:    []map[string][]string{},
	}, func(ctx context.Context, input *struct{}) (*models.VersionResponse, error) {
		v := version.Get()
		return &models.VersionResponse{
			Body: models.VersionData{
				Version:   v.Version,
				GitCommit: v.GitCommit,
				BuildDate: v.BuildDate,
				BuildID:   v.BuildID,
				GoVersion: v.GoVersion,
				Compiler:  v.Compiler,
				Platform:  v.Platform,
			},
		}, nil
	})

	s.registerCaptureRoutes()
	s.registerSizeRoutes()
	s.registerLEDRoutes()
	s.registerLogRoutes()
	if s.eventBus != nil {
		s.registerSSERoutes()
		s.registerMetricsRoutes()
	}
}
