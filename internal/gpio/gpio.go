// Package gpio provides interrupt-capable GPIO line access with hardware
// abstraction. The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

import "time"

// LineConfig describes how an input line should be requested.
type LineConfig struct {
	// Consumer is the label attached to the line request.
	Consumer string

	// Debounce asks the hardware to debounce the line for this period.
	// If the hardware rejects the request the line is still acquired and
	// Debounced reports false, leaving debouncing to the caller. Zero
	// disables the request.
	Debounce time.Duration

	// Pull selects the bias: "up", "down", or "" to leave the line as wired.
	Pull string
}

// Line is an acquired input line. Edge events are delivered to the handler
// passed at request time on the provider's event goroutine; the handler must
// return quickly and never block.
type Line interface {
	// Value returns the current raw electrical level (0 or 1).
	Value() (int, error)

	// Debounced reports whether hardware debouncing is active.
	Debounced() bool

	// Close releases the line. No events are delivered after Close returns.
	Close() error
}

// Provider acquires input lines on a GPIO chip.
type Provider interface {
	// RequestLine acquires the line at offset for input with edge detection
	// on both edges. handler is invoked once per detected edge.
	RequestLine(offset int, cfg LineConfig, handler func()) (Line, error)

	// Close releases chip resources. Lines must be closed first.
	Close() error
}

// DefaultChip is the GPIO character device most boards expose their keys on.
const DefaultChip = "gpiochip0"
