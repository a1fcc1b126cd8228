package events

// SubscribeToChannel forwards events of type T to ch for SSE select loops.
// Events are dropped while ch is full so a slow client never stalls the
// publisher.
func SubscribeToChannel[T Event](bus *Bus, ch chan<- any) func() {
	return On(bus, func(e T) {
		select {
		case ch <- e:
		default:
		}
	})
}

// SubscribeAll forwards every capture-domain event (not log entries) to ch
// and returns a single unsubscribe function.
func SubscribeAll(bus *Bus, ch chan<- any) func() {
	unsubs := []func(){
		SubscribeToChannel[CaptureStartedEvent](bus, ch),
		SubscribeToChannel[CaptureStateChangedEvent](bus, ch),
		SubscribeToChannel[CaptureSuccessEvent](bus, ch),
		SubscribeToChannel[CaptureErrorEvent](bus, ch),
		SubscribeToChannel[SessionErrorEvent](bus, ch),
		SubscribeToChannel[FlashModeChangedEvent](bus, ch),
		SubscribeToChannel[CaptureMetricsEvent](bus, ch),
	}
	return func() {
		for _, unsub := range unsubs {
			unsub()
		}
	}
}
