package mqtt

import (
	"sync"

	"github.com/sweeney/gpio-keysd/internal/keys"
)

// FakePublisher records published events for test assertions.
// The daemon publishes from several goroutines, so the fake locks around
// its recorded state; read it through the accessor methods.
type FakePublisher struct {
	mu sync.Mutex

	// Events contains all input events that were published.
	Events []keys.Event

	// Payloads contains the JSON payloads that were published.
	Payloads [][]byte

	// SystemEvents contains all system events that were published.
	SystemEvents []SystemEvent

	// SystemPayloads contains the JSON payloads for system events.
	SystemPayloads [][]byte

	// PublishError, if set, will be returned by Publish.
	PublishError error

	// PublishSystemError, if set, will be returned by PublishSystem.
	PublishSystemError error

	// Closed tracks if Close was called.
	Closed bool

	// Connected controls the return value of IsConnected.
	Connected bool
}

// NewFakePublisher creates a FakePublisher for testing.
func NewFakePublisher() *FakePublisher {
	return &FakePublisher{Connected: true}
}

// Publish records the input event.
func (f *FakePublisher) Publish(event keys.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.PublishError != nil {
		return f.PublishError
	}

	f.Events = append(f.Events, event)

	payload, err := FormatPayload(event)
	if err != nil {
		return err
	}
	f.Payloads = append(f.Payloads, payload)

	return nil
}

// PublishSystem records the system event.
func (f *FakePublisher) PublishSystem(event SystemEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.PublishSystemError != nil {
		return f.PublishSystemError
	}

	f.SystemEvents = append(f.SystemEvents, event)

	payload, err := FormatSystemPayload(event)
	if err != nil {
		return err
	}
	f.SystemPayloads = append(f.SystemPayloads, payload)

	return nil
}

// Close marks the publisher as closed.
func (f *FakePublisher) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closed = true
	return nil
}

// IsConnected reports whether the fake publisher is "connected".
func (f *FakePublisher) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Connected
}

// SetConnected flips the reported connection state.
func (f *FakePublisher) SetConnected(up bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Connected = up
}

// Published returns a copy of the recorded input events.
func (f *FakePublisher) Published() []keys.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]keys.Event(nil), f.Events...)
}

// PublishedSystem returns a copy of the recorded system events.
func (f *FakePublisher) PublishedSystem() []SystemEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]SystemEvent(nil), f.SystemEvents...)
}

// LastPayload returns the most recent input payload, or nil.
func (f *FakePublisher) LastPayload() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.Payloads) == 0 {
		return nil
	}
	return f.Payloads[len(f.Payloads)-1]
}

// LastSystemPayload returns the most recent system payload, or nil.
func (f *FakePublisher) LastSystemPayload() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.SystemPayloads) == 0 {
		return nil
	}
	return f.SystemPayloads[len(f.SystemPayloads)-1]
}

// WasClosed reports whether Close was called.
func (f *FakePublisher) WasClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Closed
}

// Reset clears recorded events.
func (f *FakePublisher) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Events = nil
	f.Payloads = nil
	f.SystemEvents = nil
	f.SystemPayloads = nil
	f.Closed = false
	f.PublishError = nil
	f.PublishSystemError = nil
	f.Connected = true
}
