package logging

import (
	"sync"
	"time"
)

// LogEntry is one buffered log line as served by the logs API.
type LogEntry struct {
	Seq        uint64         `json:"seq"`
	Timestamp  time.Time      `json:"timestamp"`
	Level      string         `json:"level"`
	Module     string         `json:"module"`
	Message    string         `json:"message"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// RingBuffer keeps the most recent log entries. Entry n lives in slot
// (n-1) % len(slots), so sequence numbers locate entries directly.
type RingBuffer struct {
	mu    sync.RWMutex
	slots []LogEntry
	last  uint64
}

// NewRingBuffer creates a buffer holding up to size entries.
func NewRingBuffer(size int) *RingBuffer {
	if size <= 0 {
		size = defaultBufferSize
	}
	return &RingBuffer{slots: make([]LogEntry, size)}
}

// Write assigns the next sequence number, stores the entry over the oldest
// one if the buffer is full, and returns the stored entry.
func (rb *RingBuffer) Write(entry LogEntry) LogEntry {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	rb.last++
	entry.Seq = rb.last
	rb.slots[rb.slot(rb.last)] = entry
	return entry
}

// ReadAll returns the buffered entries, oldest first.
func (rb *RingBuffer) ReadAll() []LogEntry {
	return rb.ReadSince(0)
}

// ReadSince returns buffered entries with Seq greater than seq.
func (rb *RingBuffer) ReadSince(seq uint64) []LogEntry {
	rb.mu.RLock()
	defer rb.mu.RUnlock()

	from := max(seq+1, rb.oldest())
	if from > rb.last {
		return nil
	}
	out := make([]LogEntry, 0, rb.last-from+1)
	for n := from; n <= rb.last; n++ {
		out = append(out, rb.slots[rb.slot(n)])
	}
	return out
}

// Count returns how many entries are buffered.
func (rb *RingBuffer) Count() int {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	return int(rb.last + 1 - rb.oldest())
}

func (rb *RingBuffer) slot(seq uint64) int {
	return int((seq - 1) % uint64(len(rb.slots)))
}

// oldest is the first retained sequence number; last+1 when empty.
func (rb *RingBuffer) oldest() uint64 {
	size := uint64(len(rb.slots))
	if rb.last < size {
		return 1
	}
	return rb.last - size + 1
}
