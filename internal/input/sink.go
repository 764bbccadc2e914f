package input

import (
	"github.com/sweeney/gpio-keysd/internal/keys"
)

// KeySink reports key-class events through a keyboard. Switch and abs events
// are not representable on a keyboard device and pass through untouched.
type KeySink struct {
	kb Keyboard
}

// NewKeySink creates a KeySink over kb.
func NewKeySink(kb Keyboard) *KeySink {
	return &KeySink{kb: kb}
}

// Report mirrors the event's pressed state onto the keyboard.
func (s *KeySink) Report(ev keys.Event) error {
	if ev.Class != keys.ClassKey {
		return nil
	}
	if ev.Pressed {
		return s.kb.KeyDown(ev.Code)
	}
	return s.kb.KeyUp(ev.Code)
}
