package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func resetState() {
	mutex.Lock()
	defer mutex.Unlock()
	moduleLoggers = make(map[string]*slog.Logger)
	moduleLevelVars = make(map[string]*slog.LevelVar)
	isInitialized = false
	globalConfig = Config{}
	logBuffer = nil
	logCallback = nil
}

func TestModuleLevelOverride(t *testing.T) {
	resetState()
	Initialize(Config{
		Level:  "info",
		Format: "text",
		Modules: map[string]string{
			"session": "debug",
			"http":    "warn",
		},
	})

	tests := []struct {
		module    string
		wantDebug bool
		wantInfo  bool
		wantWarn  bool
	}{
		{"session", true, true, true},
		{"http", false, false, true},
		{"capture", false, true, true},
	}

	ctx := context.Background()
	for _, tt := range tests {
		t.Run(tt.module, func(t *testing.T) {
			handler := GetLogger(tt.module).Handler()
			if got := handler.Enabled(ctx, slog.LevelDebug); got != tt.wantDebug {
				t.Errorf("Debug enabled = %v, want %v", got, tt.wantDebug)
			}
			if got := handler.Enabled(ctx, slog.LevelInfo); got != tt.wantInfo {
				t.Errorf("Info enabled = %v, want %v", got, tt.wantInfo)
			}
			if got := handler.Enabled(ctx, slog.LevelWarn); got != tt.wantWarn {
				t.Errorf("Warn enabled = %v, want %v", got, tt.wantWarn)
			}
		})
	}
}

func TestGetLoggerBeforeInitialize(t *testing.T) {
	resetState()

	before := GetLogger("capture")
	if before.Handler().Enabled(context.Background(), slog.LevelDebug) {
		t.Error("logger created before Initialize should default to info")
	}

	Initialize(Config{Level: "info", Modules: map[string]string{"capture": "debug"}})

	after := GetLogger("capture")
	if !before.Handler().Enabled(context.Background(), slog.LevelDebug) {
		t.Error("logger created before Initialize should follow the module level")
	}
	if !after.Handler().Enabled(context.Background(), slog.LevelDebug) {
		t.Error("logger after Initialize should have debug enabled")
	}
}

func TestSetLevel(t *testing.T) {
	resetState()
	Initialize(Config{Level: "info"})

	logger := GetLogger("sink")
	if logger.Handler().Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("sink should start at info")
	}

	if err := SetLevel("sink", "debug"); err != nil {
		t.Fatalf("SetLevel() error = %v", err)
	}
	if !logger.Handler().Enabled(context.Background(), slog.LevelDebug) {
		t.Error("SetLevel should apply to existing loggers")
	}
	if Levels()["sink"] != "debug" {
		t.Errorf("Levels()[sink] = %q, want debug", Levels()["sink"])
	}

	if err := SetLevel("sink", "loud"); err == nil {
		t.Error("SetLevel should reject unknown levels")
	}

	found := false
	for _, m := range Modules() {
		if m == "sink" {
			found = true
		}
	}
	if !found {
		t.Errorf("Modules() = %v, want sink listed", Modules())
	}
}

func TestBufferHandlerCallback(t *testing.T) {
	resetState()
	Initialize(Config{Level: "debug"})

	entries := make(chan LogEntry, 4)
	SetLogCallback(func(e LogEntry) { entries <- e })
	defer SetLogCallback(nil)

	GetLogger("session").Info("Capture saved", "capture_id", "abc", "size", 1024, "err", errors.New("none"))

	select {
	case e := <-entries:
		if e.Module != "session" {
			t.Errorf("Module = %q, want session", e.Module)
		}
		if e.Message != "Capture saved" || e.Level != "info" {
			t.Errorf("entry = %+v", e)
		}
		if e.Attributes["capture_id"] != "abc" {
			t.Errorf("capture_id = %v", e.Attributes["capture_id"])
		}
		if e.Attributes["err"] != "none" {
			t.Errorf("err attribute = %v, want error text", e.Attributes["err"])
		}
		if e.Seq == 0 {
			t.Error("entry should carry a sequence number")
		}
	case <-time.After(time.Second):
		t.Fatal("callback not invoked")
	}

	if GetBuffer().Count() == 0 {
		t.Error("entry should be stored in the ring buffer")
	}
}

func TestBufferHandlerGroups(t *testing.T) {
	resetState()
	Initialize(Config{Level: "info"})

	GetLogger("api").WithGroup("req").Info("Request", "path", "/api/capture")

	entries := GetBuffer().ReadAll()
	last := entries[len(entries)-1]
	if last.Attributes["req.path"] != "/api/capture" {
		t.Errorf("attributes = %v, want req.path", last.Attributes)
	}
}

func TestRingBuffer(t *testing.T) {
	rb := NewRingBuffer(3)
	for _, msg := range []string{"a", "b", "c", "d"} {
		rb.Write(LogEntry{Message: msg})
	}

	all := rb.ReadAll()
	if len(all) != 3 {
		t.Fatalf("ReadAll() returned %d entries, want 3", len(all))
	}
	if all[0].Message != "b" || all[2].Message != "d" {
		t.Errorf("ReadAll() = %v, want b..d", all)
	}
	if all[2].Seq != 4 {
		t.Errorf("last Seq = %d, want 4", all[2].Seq)
	}

	since := rb.ReadSince(3)
	if len(since) != 1 || since[0].Message != "d" {
		t.Errorf("ReadSince(3) = %v, want [d]", since)
	}
	if rb.ReadSince(4) != nil {
		t.Error("ReadSince(latest) should be empty")
	}
	if NewRingBuffer(2).ReadAll() != nil {
		t.Error("empty buffer should read nil")
	}
}

func TestFormatLogLine(t *testing.T) {
	line := FormatLogLine(LogEntry{
		Timestamp:  time.Date(2025, 1, 27, 10, 30, 0, 0, time.UTC),
		Level:      "warn",
		Module:     "session",
		Message:    "Capture failed",
		Attributes: map[string]any{"result": "timeout", "capture_id": "abc"},
	})
	want := "2025-01-27T10:30:00Z [WARN] [session] Capture failed capture_id=abc result=timeout"
	if line != want {
		t.Errorf("FormatLogLine() = %q, want %q", line, want)
	}
}

func TestTeeLevels(t *testing.T) {
	var buf bytes.Buffer
	debugHandler := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	infoHandler := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})

	logger := slog.New(Tee(debugHandler, infoHandler)).With("module", "test")
	logger.Debug("debug only message")
	logger.Info("both")

	output := buf.String()
	if count := strings.Count(output, "debug only message"); count != 1 {
		t.Errorf("debug message written %d times, want 1. Output: %s", count, output)
	}
	if count := strings.Count(output, "both"); count != 2 {
		t.Errorf("info message written %d times, want 2. Output: %s", count, output)
	}
}

func TestParseLevelValues(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
		isNil bool
	}{
		{"debug", slog.LevelDebug, false},
		{"DEBUG", slog.LevelDebug, false},
		{"info", slog.LevelInfo, false},
		{"warn", slog.LevelWarn, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"invalid", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := parseLevel(tt.input)
			switch {
			case tt.isNil && got != nil:
				t.Errorf("parseLevel(%q) = %v, want nil", tt.input, *got)
			case !tt.isNil && got == nil:
				t.Errorf("parseLevel(%q) = nil, want %v", tt.input, tt.want)
			case !tt.isNil && *got != tt.want:
				t.Errorf("parseLevel(%q) = %v, want %v", tt.input, *got, tt.want)
			}
		})
	}
}

func TestBufferHandlerPresetAttrs(t *testing.T) {
	resetState()
	Initialize(Config{Level: "info"})

	logger := GetLogger("session").With("capture_id", "abc").WithGroup("frame")
	logger.Info("Frame", slog.Group("size", "w", 640, "h", 480), "n", 3)

	entries := GetBuffer().ReadAll()
	last := entries[len(entries)-1]
	if last.Module != "session" {
		t.Errorf("Module = %q, want session", last.Module)
	}
	want := map[string]any{
		"capture_id":   "abc",
		"frame.size.w": int64(640),
		"frame.size.h": int64(480),
		"frame.n":      int64(3),
	}
	for k, v := range want {
		if last.Attributes[k] != v {
			t.Errorf("Attributes[%q] = %v (%T), want %v", k, last.Attributes[k], last.Attributes[k], v)
		}
	}
	if _, ok := last.Attributes["module"]; ok {
		t.Error("module should not be repeated as an attribute")
	}
}
