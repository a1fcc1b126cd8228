// Package events carries capture, session and log notifications between
// the sequencer and its observers (SSE clients, LEDs, metrics, systemd).
package events

import (
	"github.com/kelindar/event"
)

// Bus is an in-process publish/subscribe hub backed by kelindar/event.
// Handlers run on the dispatcher's goroutines, not the publisher's.
type Bus struct {
	dispatcher *event.Dispatcher
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{dispatcher: event.NewDispatcher()}
}

// Emit publishes e to the handlers registered for its concrete type.
func Emit[T Event](b *Bus, e T) {
	event.Publish(b.dispatcher, e)
}

// On registers fn for events of type T and returns its unsubscribe func.
func On[T Event](b *Bus, fn func(T)) func() {
	return event.Subscribe(b.dispatcher, fn)
}

// Publish emits ev under its concrete type. Event types the bus does not
// route are dropped.
func (b *Bus) Publish(ev Event) {
	switch e := ev.(type) {
	case CaptureStartedEvent:
		Emit(b, e)
	case CaptureStateChangedEvent:
		Emit(b, e)
	case CaptureSuccessEvent:
		Emit(b, e)
	case CaptureErrorEvent:
		Emit(b, e)
	case SessionErrorEvent:
		Emit(b, e)
	case FlashModeChangedEvent:
		Emit(b, e)
	case LogEntryEvent:
		Emit(b, e)
	case CaptureMetricsEvent:
		Emit(b, e)
	}
}

// Subscribe registers a typed handler such as func(CaptureSuccessEvent).
// Any other handler shape is ignored and gets a no-op unsubscribe.
func (b *Bus) Subscribe(handler any) func() {
	switch h := handler.(type) {
	case func(CaptureStartedEvent):
		return On(b, h)
	case func(CaptureStateChangedEvent):
		return On(b, h)
	case func(CaptureSuccessEvent):
		return On(b, h)
	case func(CaptureErrorEvent):
		return On(b, h)
	case func(SessionErrorEvent):
		return On(b, h)
	case func(FlashModeChangedEvent):
		return On(b, h)
	case func(LogEntryEvent):
		return On(b, h)
	case func(CaptureMetricsEvent):
		return On(b, h)
	}
	return func() {}
}
