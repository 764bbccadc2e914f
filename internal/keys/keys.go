// Package keys defines the logical input event model shared by the daemon's
// pipeline stages: event classes and their code spaces, debounced events,
// and the sinks events are delivered to.
package keys

import (
	"errors"
	"fmt"
	"time"
)

// Class identifies an input code space.
type Class string

const (
	ClassKey    Class = "key"
	ClassSwitch Class = "switch"
	ClassAbs    Class = "abs"
)

// Code space sizes, matching the Linux input event code ranges.
const (
	KeyCodeCount    = 0x300
	SwitchCodeCount = 0x11
	AbsCodeCount    = 0x40
)

// CodeCount returns the size of the class's code space, or 0 for an unknown class.
func (c Class) CodeCount() int {
	switch c {
	case ClassKey:
		return KeyCodeCount
	case ClassSwitch:
		return SwitchCodeCount
	case ClassAbs:
		return AbsCodeCount
	}
	return 0
}

// ValidCode reports whether code falls inside the class's code space.
func (c Class) ValidCode(code int) bool {
	return code >= 0 && code < c.CodeCount()
}

// ParseClass converts a configuration string into a Class.
func ParseClass(s string) (Class, error) {
	switch Class(s) {
	case ClassKey, ClassSwitch, ClassAbs:
		return Class(s), nil
	}
	return "", fmt.Errorf("unknown event class %q", s)
}

// Common key codes (Linux input event codes).
const (
	KeyHome         = 102
	KeyVolumeDown   = 114
	KeyVolumeUp     = 115
	KeyPower        = 116
	KeyNextSong     = 163
	KeyPlayPause    = 164
	KeyPreviousSong = 165
)

// Event is a debounced input transition ready for reporting.
type Event struct {
	Timestamp time.Time
	Class     Class
	Code      int
	Name      string
	Pressed   bool
	// Value carries the configured axis value for ClassAbs events and
	// 1/0 for key and switch events.
	Value int
}

// StateString renders a pressed flag the way the control surfaces expose it.
func StateString(pressed bool) string {
	if pressed {
		return "PRESS"
	}
	return "RELEASE"
}

// Sink consumes reported events.
type Sink interface {
	// Report delivers one event. Failures must not stop the input pipeline;
	// callers log and continue.
	Report(Event) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(Event) error

// Report calls f.
func (f SinkFunc) Report(e Event) error { return f(e) }

// Fanout delivers each event to every sink in order. All sinks are attempted
// even when one fails.
type Fanout []Sink

// Report delivers e to every sink and joins any errors.
func (s Fanout) Report(e Event) error {
	var errs []error
	for _, sink := range s {
		if err := sink.Report(e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
