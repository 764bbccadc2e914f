package keys

import "sync"

// FakeSink records reported events for test assertions.
type FakeSink struct {
	mu sync.Mutex

	// Events records reports in arrival order.
	Events []Event

	// Err, if set, is returned by Report after recording.
	Err error
}

// NewFakeSink creates a FakeSink.
func NewFakeSink() *FakeSink {
	return &FakeSink{}
}

// Report records the event.
func (f *FakeSink) Report(ev Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Events = append(f.Events, ev)
	return f.Err
}

// Reported returns a copy of the recorded events.
func (f *FakeSink) Reported() []Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Event(nil), f.Events...)
}

// Reset clears recorded events.
func (f *FakeSink) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Events = nil
	f.Err = nil
}
