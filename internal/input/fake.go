package input

import "sync"

// FakeKeyboard records key activity for test assertions.
type FakeKeyboard struct {
	mu sync.Mutex

	// Downs and Ups record key codes in call order.
	Downs []int
	Ups   []int

	// Held tracks the current asserted state per code.
	Held map[int]bool

	// DownError and UpError, if set, are returned by KeyDown and KeyUp.
	DownError error
	UpError   error

	// Closed tracks if Close was called.
	Closed bool
}

// NewFakeKeyboard creates a FakeKeyboard.
func NewFakeKeyboard() *FakeKeyboard {
	return &FakeKeyboard{Held: make(map[int]bool)}
}

// KeyDown records the press.
func (f *FakeKeyboard) KeyDown(code int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.DownError != nil {
		return f.DownError
	}
	f.Downs = append(f.Downs, code)
	f.Held[code] = true
	return nil
}

// KeyUp records the release.
func (f *FakeKeyboard) KeyUp(code int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.UpError != nil {
		return f.UpError
	}
	f.Ups = append(f.Ups, code)
	f.Held[code] = false
	return nil
}

// Close marks the keyboard as closed.
func (f *FakeKeyboard) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closed = true
	return nil
}

// DownCodes returns a copy of the recorded presses.
func (f *FakeKeyboard) DownCodes() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.Downs...)
}

// UpCodes returns a copy of the recorded releases.
func (f *FakeKeyboard) UpCodes() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.Ups...)
}

// IsHeld reports whether the code is currently asserted.
func (f *FakeKeyboard) IsHeld(code int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Held[code]
}

// Reset clears recorded activity.
func (f *FakeKeyboard) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Downs = nil
	f.Ups = nil
	f.Held = make(map[int]bool)
	f.Closed = false
	f.DownError = nil
	f.UpError = nil
}
