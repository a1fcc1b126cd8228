package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/danielgtaylor/huma/v2/humacli"

	"github.com/smazurov/camseq/cmd"
	"github.com/smazurov/camseq/internal/api"
	"github.com/smazurov/camseq/internal/app"
	"github.com/smazurov/camseq/internal/config"
	"github.com/smazurov/camseq/internal/events"
	"github.com/smazurov/camseq/internal/led"
	"github.com/smazurov/camseq/internal/logging"
	"github.com/smazurov/camseq/internal/metrics/exporters"
	"github.com/smazurov/camseq/internal/systemd"
	"github.com/smazurov/camseq/internal/version"
)

// Options for the CLI - flat structure with toml mapping.
type Options struct {
	Config string `help:"Path to configuration file" short:"c" default:"config.toml"`

	// Server settings
	Port string `help:"Port to listen on" short:"p" default:":8095" toml:"server.port" env:"SERVER_PORT"`

	// Capture settings
	Profile        string `help:"Camera profile file" default:"profile.toml" toml:"capture.profile" env:"CAPTURE_PROFILE"`
	WatchProfile   bool   `help:"Reload capture settings when the profile changes" default:"true" toml:"capture.watch_profile" env:"CAPTURE_WATCH_PROFILE"`
	CaptureTimeout string `help:"Upper bound for one capture request" default:"20s" toml:"capture.request_timeout" env:"CAPTURE_REQUEST_TIMEOUT"`

	// Metrics settings
	MetricsPrometheus bool `help:"Expose Prometheus metrics on /metrics" default:"true" toml:"metrics.prometheus_enabled" env:"METRICS_PROMETHEUS_ENABLED"`
	MetricsSSE        bool `help:"Publish capture counters on /api/metrics" default:"true" toml:"metrics.sse_enabled" env:"METRICS_SSE_ENABLED"`

	// Auth settings
	AuthUsername string `help:"Basic auth username" default:"admin" toml:"auth.username" env:"AUTH_USERNAME"`
	AuthPassword string `help:"Basic auth password" default:"password" toml:"auth.password" env:"AUTH_PASSWORD"`

	// Features settings
	FeaturesLEDControl bool `help:"Drive board LEDs as a capture tally" default:"false" toml:"features.led_control_enabled" env:"FEATURES_LED_CONTROL"`

	// Logging settings. Per-module levels come from [logging] in the config file.
	LoggingLevel  string `help:"Global logging level (debug, info, warn, error)" default:"info" toml:"logging.level" env:"LOGGING_LEVEL"`
	LoggingFormat string `help:"Logging format (text, json)" default:"text" toml:"logging.format" env:"LOGGING_FORMAT"`
}

// profilePath is the resolved profile location, shared with subcommands.
var profilePath string

func main() {
	var cli humacli.CLI
	cli = humacli.New(func(hooks humacli.Hooks, opts *Options) {
		if loadErr := config.LoadConfig(opts, cli.Root()); loadErr != nil {
			slog.Warn("Failed to load config", "error", loadErr)
		}
		profilePath = opts.Profile

		loggingConfig := config.LoadLoggingConfig(opts.Config)
		loggingConfig.Level = opts.LoggingLevel
		loggingConfig.Format = opts.LoggingFormat
		logging.Initialize(loggingConfig)

		logger := logging.GetLogger("main")

		profile, err := config.LoadProfile(opts.Profile)
		switch {
		case errors.Is(err, os.ErrNotExist):
			logger.Warn("Profile not found, using built-in default", "path", opts.Profile)
			profile = config.DefaultProfile()
		case err != nil:
			logger.Error("Failed to load camera profile", "path", opts.Profile, "error", err)
			os.Exit(1)
		}

		captureTimeout, err := time.ParseDuration(opts.CaptureTimeout)
		if err != nil {
			captureTimeout = 20 * time.Second
		}

		// Create event bus for in-process event handling
		eventBus := events.New()
		logging.SetLogCallback(func(entry logging.LogEntry) {
			eventBus.Publish(events.LogEntryEvent{
				Seq:        entry.Seq,
				Timestamp:  entry.Timestamp.Format(time.RFC3339Nano),
				Level:      entry.Level,
				Module:     entry.Module,
				Message:    entry.Message,
				Attributes: entry.Attributes,
			})
		})

		rigOpts := app.Options{Profile: profile, Bus: eventBus}
		if opts.WatchProfile {
			if _, statErr := os.Stat(opts.Profile); statErr == nil {
				rigOpts.ProfilePath = opts.Profile
			}
		}
		rig, err := app.New(context.Background(), rigOpts)
		if err != nil {
			logger.Error("Failed to configure capture rig", "error", err)
			os.Exit(1)
		}

		var ledManager *led.Manager
		var ledController led.Controller
		if opts.FeaturesLEDControl {
			logger.Info("LED control enabled, initializing")
			ledLogger := logging.GetLogger(logging.ModuleLED)
			ledController = led.New(ledLogger)
			ledManager = led.NewManager(ledController, eventBus, ledLogger)
		}

		apiOpts := &api.Options{
			AuthUsername:   opts.AuthUsername,
			AuthPassword:   opts.AuthPassword,
			CaptureTimeout: captureTimeout,
			Capture:        rig.Controller(),
			Rig:            rig,
			EventBus:       eventBus,
		}
		if opts.MetricsPrometheus {
			apiOpts.PrometheusHandler = exporters.HTTPHandler()
		}
		if ledController != nil {
			apiOpts.LEDController = ledController
		}
		server := api.NewServer(apiOpts)

		var sseExporter *exporters.SSEExporter
		if opts.MetricsSSE {
			sseExporter = exporters.NewSSEExporter(eventBus)
		}

		notifier := systemd.NewNotifier(logging.GetLogger("systemd"))
		runCtx, cancel := context.WithCancel(context.Background())

		hooks.OnStart(func() {
			defer cancel()

			if startErr := rig.Start(runCtx); startErr != nil {
				logger.Error("Failed to start capture rig", "error", startErr)
				os.Exit(1)
			}
			if ledManager != nil {
				ledManager.Start()
			}
			if sseExporter != nil {
				sseExporter.Start(runCtx)
			}

			unsubscribe := eventBus.Subscribe(func(e events.SessionErrorEvent) {
				notifier.Status("camera session failed: " + e.Code)
			})
			defer unsubscribe()

			notifier.Ready()
			notifier.Status("capturing from camera " + rig.Camera().ID)
			go notifier.RunWatchdog(runCtx, func() bool {
				return rig.Controller().Status().Failure == nil
			})

			logger.Info("Starting HTTP server", "port", opts.Port, "version", version.Get().Version)
			if startErr := server.Start(opts.Port); startErr != nil && !errors.Is(startErr, http.ErrServerClosed) {
				logger.Error("Failed to start HTTP server", "error", startErr)
				os.Exit(1)
			}
		})

		hooks.OnStop(func() {
			logger.Info("Shutting down server")
			notifier.Stopping()

			if stopErr := server.Stop(); stopErr != nil {
				logger.Error("Error stopping HTTP server", "error", stopErr)
			}
			if sseExporter != nil {
				sseExporter.Stop()
			}
			if ledManager != nil {
				ledManager.Stop()
			}
			if closeErr := rig.Close(); closeErr != nil {
				logger.Error("Error stopping capture rig", "error", closeErr)
			}
			cancel()
		})
	})

	cli.Root().Use = "camseq"
	cli.Root().Short = "Still capture sequencer with autofocus, precapture metering and flash control"
	cli.Root().Version = version.Summary()

	cli.Root().AddCommand(cmd.CreateCaptureCmd(func() string { return profilePath }))
	cli.Root().AddCommand(cmd.CreateSizesCmd(func() string { return profilePath }))

	// Run the CLI
	cli.Run()
}
