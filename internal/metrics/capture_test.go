package metrics

import (
	"sync"
	"testing"
	"time"
)

func TestCaptureStats(t *testing.T) {
	before := GetCaptureStats()

	RecordCaptureResult(ResultSuccess)
	RecordCaptureResult(ResultTimeout)
	RecordTransition("idle", "awaiting_focus_lock")
	RecordObservation("awaiting_focus_lock")
	RecordDroppedObservation()
	RecordSessionError("CAMERA_DEVICE")
	ObserveCaptureDuration(250 * time.Millisecond)

	after := GetCaptureStats()
	if got := after.Results[ResultSuccess] - before.Results[ResultSuccess]; got != 1 {
		t.Errorf("success delta = %d, want 1", got)
	}
	if got := after.Results[ResultTimeout] - before.Results[ResultTimeout]; got != 1 {
		t.Errorf("timeout delta = %d, want 1", got)
	}
	if after.Transitions-before.Transitions != 1 {
		t.Errorf("transitions delta = %d, want 1", after.Transitions-before.Transitions)
	}
	if after.State != "awaiting_focus_lock" {
		t.Errorf("State = %q, want awaiting_focus_lock", after.State)
	}
	if after.Observations-before.Observations != 1 || after.Dropped-before.Dropped != 1 {
		t.Errorf("observation counters not updated: %+v", after)
	}
	if after.SessionErrs-before.SessionErrs != 1 {
		t.Errorf("session errors delta = %d, want 1", after.SessionErrs-before.SessionErrs)
	}
	if after.LastDuration != 250*time.Millisecond {
		t.Errorf("LastDuration = %v, want 250ms", after.LastDuration)
	}
}

func TestGetCaptureStats_ReturnsCopy(t *testing.T) {
	RecordCaptureResult(ResultFailed)
	s := GetCaptureStats()
	s.Results[ResultFailed] = 9999

	if GetCaptureStats().Results[ResultFailed] == 9999 {
		t.Error("cache was modified through returned copy")
	}
}

func TestSetState(t *testing.T) {
	SetState([]string{"idle", "capture_ready"}, "idle")
	if got := GetCaptureStats().State; got != "idle" {
		t.Errorf("State = %q, want idle", got)
	}
}

func TestCaptureStats_Concurrent(_ *testing.T) {
	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				RecordObservation("awaiting_precapture")
				_ = GetCaptureStats()
			}
		}()
	}
	wg.Wait()
}
