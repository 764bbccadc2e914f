// Package remap implements the long-press reinterpretation layer. Members of
// a remap group (the volume rocker, the home control) have their debounced
// edges intercepted: a short press pulses the member's ordinary code, a press
// held past the long-press window pulses its alternate media code. The layer
// only engages in power phases the group's policy allows.
package remap

import "time"

// Timer is the cancellable handle returned by the engine's timer factory.
type Timer interface {
	Stop() bool
}

// Policy configures one remap group.
type Policy struct {
	// Enabled turns the group's long-press handling on. Disabled groups
	// report ordinarily.
	Enabled bool

	// LongPress is how long a press must be held before the release emits
	// the alternate code instead of the primary one.
	LongPress time.Duration

	// ScreenOffOnly restricts the remap to the screen-off phase. When
	// false the remap also engages while the system is active.
	ScreenOffOnly bool
}

// Group binds member key codes to their alternate codes under one policy.
// All members share one gesture session: volume up and volume down form one
// group, home forms its own.
type Group struct {
	Name   string
	Policy Policy

	// Alternate maps each member code to the code emitted after a long
	// press. Short presses emit the member code itself.
	Alternate map[int]int
}
