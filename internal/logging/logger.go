package logging

import (
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"
	"sync"
)

const defaultBufferSize = 1000

// Known modules. GetLogger accepts any name; these are the ones camseq uses.
const (
	ModuleCapture = "capture"
	ModuleSession = "session"
	ModuleSim     = "sim"
	ModuleSink    = "sink"
	ModuleAPI     = "api"
	ModuleHTTP    = "http"
	ModuleLED     = "led"
	ModuleConfig  = "config"
)

var (
	moduleLoggers   = make(map[string]*slog.Logger)
	moduleLevelVars = make(map[string]*slog.LevelVar)
	globalConfig    Config
	globalLevelVar  = &slog.LevelVar{}
	isInitialized   bool
	mutex           sync.RWMutex
	logBuffer       *RingBuffer
	logCallback     LogCallback
)

// Config represents logging configuration.
type Config struct {
	Level   string            `toml:"level"`
	Format  string            `toml:"format"`
	Modules map[string]string `toml:"modules"`
}

// Initialize sets up the logging system. Loggers handed out earlier are
// rebuilt so they pick up the new format and buffer.
func Initialize(config Config) {
	mutex.Lock()
	defer mutex.Unlock()

	globalConfig = config
	isInitialized = true
	logBuffer = NewRingBuffer(defaultBufferSize)

	globalLevel := levelOrDefault(config.Level, slog.LevelInfo)
	globalLevelVar.Set(globalLevel)

	for module, levelVar := range moduleLevelVars {
		levelVar.Set(moduleLevel(module))
		moduleLoggers[module] = slog.New(createHandler(config.Format, levelVar)).With("module", module)
	}

	slog.SetDefault(slog.New(createHandler(config.Format, globalLevelVar)))
}

// GetBuffer returns the log ring buffer, or nil before Initialize.
func GetBuffer() *RingBuffer {
	mutex.RLock()
	defer mutex.RUnlock()
	return logBuffer
}

// SetLogCallback sets a callback invoked for each buffered log entry.
// The server uses it to publish log events to SSE clients.
func SetLogCallback(callback LogCallback) {
	mutex.Lock()
	defer mutex.Unlock()
	logCallback = callback
}

// GetLogger returns a logger for the specified module, creating it if needed.
func GetLogger(module string) *slog.Logger {
	mutex.RLock()
	if logger, exists := moduleLoggers[module]; exists {
		mutex.RUnlock()
		return logger
	}
	mutex.RUnlock()

	mutex.Lock()
	defer mutex.Unlock()

	if logger, exists := moduleLoggers[module]; exists {
		return logger
	}

	levelVar := &slog.LevelVar{}
	format := "text"
	if isInitialized {
		levelVar.Set(moduleLevel(module))
		format = globalConfig.Format
	} else {
		levelVar.Set(slog.LevelInfo)
	}

	logger := slog.New(createHandler(format, levelVar)).With("module", module)
	moduleLoggers[module] = logger
	moduleLevelVars[module] = levelVar
	return logger
}

// SetLevel changes the level of one module at runtime.
func SetLevel(module, level string) error {
	parsed := parseLevel(level)
	if parsed == nil {
		return fmt.Errorf("invalid log level %q", level)
	}
	GetLogger(module)

	mutex.Lock()
	defer mutex.Unlock()
	moduleLevelVars[module].Set(*parsed)
	if globalConfig.Modules == nil {
		globalConfig.Modules = make(map[string]string)
	}
	globalConfig.Modules[module] = level
	return nil
}

// Levels returns the current level of every module logger.
func Levels() map[string]string {
	mutex.RLock()
	defer mutex.RUnlock()
	out := make(map[string]string, len(moduleLevelVars))
	for module, lv := range moduleLevelVars {
		out[module] = levelToString(lv.Level())
	}
	return out
}

// Modules returns the names of all module loggers created so far.
func Modules() []string {
	mutex.RLock()
	defer mutex.RUnlock()
	names := make([]string, 0, len(moduleLoggers))
	for name := range moduleLoggers {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// moduleLevel resolves a module's level from the global config. Callers
// hold the mutex.
func moduleLevel(module string) slog.Level {
	level := levelOrDefault(globalConfig.Level, slog.LevelInfo)
	if levelStr, exists := globalConfig.Modules[module]; exists {
		level = levelOrDefault(levelStr, level)
	}
	return level
}

// createHandler tees stdout (text or json), the journal when present, and
// the ring buffer, all gated by the same level.
func createHandler(format string, level slog.Leveler) slog.Handler {
	handlers := make([]slog.Handler, 0, 3)
	if stdoutUseful() {
		opts := &slog.HandlerOptions{Level: level}
		if format == "json" {
			handlers = append(handlers, slog.NewJSONHandler(os.Stdout, opts))
		} else {
			handlers = append(handlers, slog.NewTextHandler(os.Stdout, opts))
		}
	}
	if journalAvailable() {
		handlers = append(handlers, newJournalHandler(level))
	}
	return Tee(append(handlers, NewBufferHandler(level))...)
}

// stdoutUseful is false when stdout is closed or redirected to /dev/null,
// as systemd units often do once the journal is available.
func stdoutUseful() bool {
	out, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	null, err := os.Stat(os.DevNull)
	return err != nil || !os.SameFile(out, null)
}

func levelOrDefault(level string, def slog.Level) slog.Level {
	if parsed := parseLevel(level); parsed != nil {
		return *parsed
	}
	return def
}

// parseLevel converts a level name to slog.Level, or nil if unknown.
func parseLevel(level string) *slog.Level {
	var l slog.Level
	switch strings.ToLower(level) {
	case "debug":
		l = slog.LevelDebug
	case "info":
		l = slog.LevelInfo
	case "warn", "warning":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		return nil
	}
	return &l
}
