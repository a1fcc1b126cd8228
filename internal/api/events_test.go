package api

import (
	"bufio"
	"encoding/base64"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/smazurov/camseq/internal/events"
)

// readSSE returns a channel of "event|data" pairs read from an SSE stream.
func readSSE(t *testing.T, url string) <-chan string {
	t.Helper()
	req, err := http.NewRequestWithContext(t.Context(), http.MethodGet, url, nil)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Failed to connect to SSE: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}
	if !strings.Contains(resp.Header.Get("Content-Type"), "text/event-stream") {
		t.Fatalf("Expected SSE content type, got %s", resp.Header.Get("Content-Type"))
	}

	messages := make(chan string, 32)
	go func() {
		scanner := bufio.NewScanner(resp.Body)
		var name string
		for scanner.Scan() {
			line := scanner.Text()
			switch {
			case strings.HasPrefix(line, "event:"):
				name = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
			case strings.HasPrefix(line, "data:"):
				messages <- name + "|" + strings.TrimSpace(strings.TrimPrefix(line, "data:"))
				name = ""
			}
		}
	}()
	return messages
}

func nextMessage(t *testing.T, messages <-chan string) string {
	t.Helper()
	select {
	case msg := <-messages:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("Timeout waiting for SSE message")
		return ""
	}
}

func TestSSECaptureEvents(t *testing.T) {
	bus := events.New()
	ts := newTestServer(t, &Options{
		AuthUsername: "test",
		AuthPassword: "test",
		Capture:      newMockCaptureService(),
		EventBus:     bus,
	})

	credentials := base64.StdEncoding.EncodeToString([]byte("test:test"))
	messages := readSSE(t, ts.URL+"/api/events?auth="+credentials)

	first := nextMessage(t, messages)
	if !strings.HasPrefix(first, "capture-state|") || !strings.Contains(first, `"state":"idle"`) {
		t.Fatalf("first message = %s, want capture state snapshot", first)
	}

	bus.Publish(events.CaptureSuccessEvent{CaptureID: "cap-7", Path: "photos/IMG_7.jpg", Width: 640, Height: 480})
	msg := nextMessage(t, messages)
	if !strings.HasPrefix(msg, "capture-success|") || !strings.Contains(msg, "cap-7") {
		t.Errorf("message = %s, want capture-success for cap-7", msg)
	}

	bus.Publish(events.SessionErrorEvent{Code: "CAMERA_DISCONNECTED", Message: "camera device was disconnected"})
	msg = nextMessage(t, messages)
	if !strings.HasPrefix(msg, "session-error|") || !strings.Contains(msg, "CAMERA_DISCONNECTED") {
		t.Errorf("message = %s, want session-error", msg)
	}
}

func TestSSERequiresAuth(t *testing.T) {
	ts := newTestServer(t, &Options{
		AuthUsername: "test",
		AuthPassword: "test",
		EventBus:     events.New(),
	})
	resp, err := http.Get(ts.URL + "/api/events")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}
}

func TestSSEMetrics(t *testing.T) {
	bus := events.New()
	ts := newTestServer(t, &Options{EventBus: bus})
	messages := readSSE(t, ts.URL+"/api/metrics")

	// The subscription is registered once the handler runs; retry until a
	// published snapshot comes through.
	deadline := time.After(2 * time.Second)
	tick := time.NewTicker(20 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case msg := <-messages:
			if !strings.HasPrefix(msg, "capture-metrics|") || !strings.Contains(msg, `"successes":"3"`) {
				t.Fatalf("message = %s, want capture-metrics", msg)
			}
			return
		case <-tick.C:
			bus.Publish(events.CaptureMetricsEvent{EventType: "capture-metrics", State: "idle", Successes: "3"})
		case <-deadline:
			t.Fatal("Timeout waiting for metrics event")
		}
	}
}
