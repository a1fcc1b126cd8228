package logging

import (
	"context"
	"log/slog"
	"maps"
	"strconv"
	"strings"
	"time"

	"github.com/coreos/go-systemd/v22/journal"
)

// SyslogIdentifier tags every journal entry; filter with journalctl -t camseq.
const SyslogIdentifier = "camseq"

// journalHandler writes records as native journal entries. Attributes become
// upper-case journal fields so entries can be matched, e.g. CAPTURE_ID=...
type journalHandler struct {
	level  slog.Leveler
	fields map[string]string // pre-rendered WithAttrs fields
	prefix string            // open groups, joined with "_"
}

func newJournalHandler(level slog.Leveler) *journalHandler {
	return &journalHandler{
		level:  level,
		fields: map[string]string{"SYSLOG_IDENTIFIER": SyslogIdentifier},
	}
}

// journalAvailable reports whether the systemd journal socket is reachable.
func journalAvailable() bool {
	return journal.Enabled()
}

func (h *journalHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *journalHandler) Handle(_ context.Context, r slog.Record) error {
	pri := priority(r.Level)
	fields := maps.Clone(h.fields)
	fields["PRIORITY"] = strconv.Itoa(int(pri))
	r.Attrs(func(a slog.Attr) bool {
		putField(fields, h.prefix, a)
		return true
	})
	return journal.Send(r.Message, pri, fields)
}

func (h *journalHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.fields = maps.Clone(h.fields)
	for _, a := range attrs {
		putField(next.fields, h.prefix, a)
	}
	return &next
}

func (h *journalHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	next.prefix = fieldName(h.prefix, name) + "_"
	return &next
}

func priority(level slog.Level) journal.Priority {
	switch {
	case level >= slog.LevelError:
		return journal.PriErr
	case level >= slog.LevelWarn:
		return journal.PriWarning
	case level >= slog.LevelInfo:
		return journal.PriInfo
	}
	return journal.PriDebug
}

func fieldName(prefix, key string) string {
	return strings.ToUpper(strings.NewReplacer("-", "_", ".", "_").Replace(prefix + key))
}

func putField(fields map[string]string, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	switch a.Value.Kind() {
	case slog.KindGroup:
		inner := prefix
		if a.Key != "" {
			inner = fieldName(prefix, a.Key) + "_"
		}
		for _, ga := range a.Value.Group() {
			putField(fields, inner, ga)
		}
	case slog.KindTime:
		fields[fieldName(prefix, a.Key)] = a.Value.Time().Format(time.RFC3339Nano)
	default:
		fields[fieldName(prefix, a.Key)] = a.Value.String()
	}
}
