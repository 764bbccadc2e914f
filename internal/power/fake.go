package power

import "sync"

// StaticMonitor reports a fixed phase. Used when logind is unavailable.
type StaticMonitor struct {
	phase Phase
}

// NewStaticMonitor creates a monitor pinned to p.
func NewStaticMonitor(p Phase) *StaticMonitor {
	return &StaticMonitor{phase: p}
}

// Phase returns the pinned phase.
func (s *StaticMonitor) Phase() Phase { return s.phase }

// Close is a no-op.
func (s *StaticMonitor) Close() error { return nil }

// FakeMonitor is a test double with a settable phase.
type FakeMonitor struct {
	mu    sync.Mutex
	phase Phase

	// OnChange, if set, is invoked on every SetPhase transition.
	OnChange func(Phase)

	// Closed tracks if Close was called.
	Closed bool
}

// NewFakeMonitor creates a FakeMonitor starting at p.
func NewFakeMonitor(p Phase) *FakeMonitor {
	return &FakeMonitor{phase: p}
}

// Phase returns the current phase.
func (f *FakeMonitor) Phase() Phase {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.phase
}

// SetPhase moves the fake to p and fires OnChange if the phase changed.
func (f *FakeMonitor) SetPhase(p Phase) {
	f.mu.Lock()
	if f.phase == p {
		f.mu.Unlock()
		return
	}
	f.phase = p
	cb := f.OnChange
	f.mu.Unlock()

	if cb != nil {
		cb(p)
	}
}

// Close marks the monitor as closed.
func (f *FakeMonitor) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closed = true
	return nil
}

// NopGate satisfies gate consumers when no inhibitor is available.
type NopGate struct{}

// Acquire does nothing.
func (NopGate) Acquire() error { return nil }

// Release does nothing.
func (NopGate) Release() {}

// FakeGate records acquire and release calls.
type FakeGate struct {
	mu sync.Mutex

	// Acquires and Releases count the respective calls.
	Acquires int
	Releases int

	// AcquireError, if set, is returned by Acquire.
	AcquireError error
}

// Acquire records the call.
func (f *FakeGate) Acquire() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.AcquireError != nil {
		return f.AcquireError
	}
	f.Acquires++
	return nil
}

// Release records the call.
func (f *FakeGate) Release() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Releases++
}

// Held reports whether acquires outnumber releases.
func (f *FakeGate) Held() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Acquires > f.Releases
}
