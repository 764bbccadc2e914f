// Package button owns the monitored lines: it turns raw edges into debounced
// evaluations of the current level, reports the resulting key and switch
// events, and carries the runtime control surface for disabling lines,
// marking wakeup codes and injecting synthetic pulses.
package button

import (
	"errors"
	"time"

	"github.com/sweeney/gpio-keysd/internal/keys"
)

var (
	// ErrNotDisableable reports a disable request naming a code whose line
	// does not permit runtime masking.
	ErrNotDisableable = errors.New("code not disableable")

	// ErrUnknownCode reports a code that matches no configured line.
	ErrUnknownCode = errors.New("unknown code")
)

// Config describes one monitored line. It is immutable after setup.
type Config struct {
	// Name labels the line in events and logs, e.g. "volume_up".
	Name string

	// Line is the offset on the GPIO chip.
	Line int

	// Class and Code identify the reported event.
	Class keys.Class
	Code  int

	// ActiveLow marks lines that read low when pressed.
	ActiveLow bool

	// Pull selects the line bias: "up", "down" or "" for the chip
	// default.
	Pull string

	// Debounce is the settle interval after an edge. Zero evaluates
	// immediately.
	Debounce time.Duration

	// Disableable permits runtime masking through the control surface.
	Disableable bool

	// Wakeup marks the line as wake-capable at startup. The set can be
	// rewritten at runtime.
	Wakeup bool

	// AbsValue is the value reported while an absolute-class line is
	// active. Ignored for keys and switches.
	AbsValue int
}

// Info is a point-in-time view of one line for listings.
type Info struct {
	Name        string     `json:"name"`
	Line        int        `json:"line"`
	Class       keys.Class `json:"class"`
	Code        int        `json:"code"`
	Pressed     bool       `json:"pressed"`
	Disabled    bool       `json:"disabled"`
	Disableable bool       `json:"disableable"`
	Wakeup      bool       `json:"wakeup"`
	Debounced   bool       `json:"hardware_debounce"`
}

// Interceptor consumes debounced key edges ahead of ordinary reporting.
// A true return means the edge was taken over and must not be reported.
type Interceptor interface {
	Intercept(code int, pressed bool) bool
}

// PowerGate is held while lines are delivering events. Acquire is called
// once after setup succeeds, Release once at teardown.
type PowerGate interface {
	Acquire() error
	Release()
}

// Timer is the subset of time.Timer the debounce pipeline relies on.
type Timer interface {
	Stop() bool
}
