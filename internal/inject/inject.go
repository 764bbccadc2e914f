// Package inject drives synthetic key pulses through the shared input
// transport. At most one pulse is in flight at a time; concurrent requests
// are rejected, never queued.
package inject

import (
	"errors"
	"log"
	"sync"
	"time"

	"github.com/sweeney/gpio-keysd/internal/input"
)

// ErrBusy reports that a pulse is already in flight.
var ErrBusy = errors.New("emulation busy")

// Injector owns the shared transport. It serializes pulses and holds the
// routing table that mirrors raw line state onto substitute codes.
type Injector struct {
	kb    input.Keyboard
	width time.Duration

	mu      sync.Mutex
	busy    bool
	current int
	routes  map[int]int
	notify  func(code int)

	// sleep paces the press/release pair. Swapped in tests.
	sleep func(time.Duration)
}

// New creates an Injector over kb. width is the hold time between the
// synthetic press and release.
func New(kb input.Keyboard, width time.Duration) *Injector {
	return &Injector{
		kb:     kb,
		width:  width,
		routes: make(map[int]int),
		sleep:  time.Sleep,
	}
}

// SetNotify registers a completion hook invoked with the pulsed code after
// each pulse finishes. Intended to be set once at wiring time.
func (i *Injector) SetNotify(fn func(code int)) {
	i.mu.Lock()
	i.notify = fn
	i.mu.Unlock()
}

// Pulse presses and releases code on the transport. It returns ErrBusy
// without queueing if another pulse is in flight.
func (i *Injector) Pulse(code int) error {
	return i.start(code, func() {
		if err := i.kb.KeyDown(code); err != nil {
			log.Printf("inject: key down %d: %v", code, err)
		}
		i.sleep(i.width)
		if err := i.kb.KeyUp(code); err != nil {
			log.Printf("inject: key up %d: %v", code, err)
		}
	})
}

// PulseWith runs a pulse whose press and release are applied by the caller,
// paced by the injector's hold time. code identifies the pulse for Active
// and the completion hook. Used when the pulse must be reported through the
// event path rather than pressed on the transport.
func (i *Injector) PulseWith(code int, apply func(pressed bool)) error {
	return i.start(code, func() {
		apply(true)
		i.sleep(i.width)
		apply(false)
	})
}

func (i *Injector) start(code int, run func()) error {
	i.mu.Lock()
	if i.busy {
		i.mu.Unlock()
		return ErrBusy
	}
	i.busy = true
	i.current = code
	i.mu.Unlock()

	go func() {
		run()

		i.mu.Lock()
		i.busy = false
		i.current = 0
		notify := i.notify
		i.mu.Unlock()

		if notify != nil {
			notify(code)
		}
	}()
	return nil
}

// Busy reports whether a pulse is in flight.
func (i *Injector) Busy() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.busy
}

// Active returns the code of the in-flight pulse, if any.
func (i *Injector) Active() (int, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.current, i.busy
}

// SetRoute installs or removes a route mirroring src line state onto dst.
func (i *Injector) SetRoute(src, dst int, enabled bool) {
	i.mu.Lock()
	if enabled {
		i.routes[src] = dst
	} else {
		delete(i.routes, src)
	}
	i.mu.Unlock()
}

// Route returns the destination code routed for src, if any.
func (i *Injector) Route(src int) (int, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	dst, ok := i.routes[src]
	return dst, ok
}

// Routes returns a copy of the active routing table.
func (i *Injector) Routes() map[int]int {
	i.mu.Lock()
	defer i.mu.Unlock()
	out := make(map[int]int, len(i.routes))
	for src, dst := range i.routes {
		out[src] = dst
	}
	return out
}

// Mirror asserts or releases code on the transport directly. Routed state
// bypasses the pulse gate: it tracks a physical line, it is not a pulse.
func (i *Injector) Mirror(code int, pressed bool) error {
	if pressed {
		return i.kb.KeyDown(code)
	}
	return i.kb.KeyUp(code)
}
