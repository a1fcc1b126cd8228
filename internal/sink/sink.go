// Package sink stores captured stills.
package sink

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/smazurov/camseq/internal/logging"
	"github.com/smazurov/camseq/internal/session"
)

// ErrEmptyStill is returned when a still has no image data.
var ErrEmptyStill = errors.New("still has no image data")

// ErrNotFound is returned when a stored still does not exist.
var ErrNotFound = errors.New("still not found")

const timeLayout = "20060102_150405"

// FileName returns the file name a still is stored under:
// IMG_yyyyMMdd_HHmmss_<id8>.jpg.
func FileName(still session.Still) string {
	at := still.CapturedAt
	if at.IsZero() {
		at = time.Now()
	}
	id := strings.ReplaceAll(still.ID, "-", "")
	if len(id) > 8 {
		id = id[:8]
	}
	if id == "" {
		return fmt.Sprintf("IMG_%s.jpg", at.Format(timeLayout))
	}
	return fmt.Sprintf("IMG_%s_%s.jpg", at.Format(timeLayout), id)
}

// FileSink writes stills as JPEG files under Dir.
type FileSink struct {
	dir    string
	logger *slog.Logger
}

// NewFileSink creates a sink writing to dir. The directory is created on
// the first save.
func NewFileSink(dir string) *FileSink {
	return &FileSink{
		dir:    dir,
		logger: logging.GetLogger("sink"),
	}
}

// Dir returns the directory stills are written to.
func (s *FileSink) Dir() string {
	return s.dir
}

// Save writes the still atomically and returns its path.
func (s *FileSink) Save(ctx context.Context, still session.Still) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(still.Data) == 0 {
		return "", ErrEmptyStill
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create save directory: %w", err)
	}

	path := filepath.Join(s.dir, FileName(still))

	tmp, err := os.CreateTemp(s.dir, ".still-*.tmp")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(still.Data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write still: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close still: %w", err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		return "", fmt.Errorf("chmod still: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return "", fmt.Errorf("rename still: %w", err)
	}

	s.logger.Debug("Still written", "path", path, "bytes", len(still.Data))
	return path, nil
}

// MemorySink keeps stills in memory, keyed by capture ID.
type MemorySink struct {
	mu     sync.RWMutex
	stills map[string]session.Still
	limit  int
	order  []string
}

// NewMemorySink creates an in-memory sink holding at most limit stills
// (0 means unlimited). The oldest still is evicted first.
func NewMemorySink(limit int) *MemorySink {
	return &MemorySink{
		stills: make(map[string]session.Still),
		limit:  limit,
	}
}

// Save stores a copy of the still and returns a mem:// path.
func (m *MemorySink) Save(_ context.Context, still session.Still) (string, error) {
	if len(still.Data) == 0 {
		return "", ErrEmptyStill
	}
	still.Data = append([]byte(nil), still.Data...)

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.stills[still.ID]; !exists {
		m.order = append(m.order, still.ID)
	}
	m.stills[still.ID] = still

	for m.limit > 0 && len(m.order) > m.limit {
		delete(m.stills, m.order[0])
		m.order = m.order[1:]
	}
	return "mem://" + FileName(still), nil
}

// Get returns a stored still.
func (m *MemorySink) Get(id string) (session.Still, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	still, ok := m.stills[id]
	if !ok {
		return session.Still{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return still, nil
}

// IDs returns the stored capture IDs, oldest first.
func (m *MemorySink) IDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.order...)
}

// Len returns the number of stored stills.
func (m *MemorySink) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.stills)
}

// List returns stored stills sorted by capture time.
func (m *MemorySink) List() []session.Still {
	m.mu.RLock()
	out := make([]session.Still, 0, len(m.stills))
	for _, s := range m.stills {
		out = append(out, s)
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].CapturedAt.Before(out[j].CapturedAt)
	})
	return out
}
