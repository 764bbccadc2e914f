// Package power tracks the host's suspend phase. The long-press remap layer
// consults the phase to decide whether volume and home controls keep their
// ordinary meaning or gain their media meaning.
package power

// Phase is the coarse power state of the host.
type Phase string

const (
	// Active: the system is running with the display on.
	Active Phase = "ACTIVE"

	// ScreenOff: the system is running but idle with the display off.
	ScreenOff Phase = "SCREEN_OFF"

	// Asleep: the system is suspending or suspended.
	Asleep Phase = "ASLEEP"
)

// Monitor reports the current phase.
type Monitor interface {
	Phase() Phase
	Close() error
}
