package remap

import (
	"log"
	"sync"
	"time"

	"github.com/sweeney/gpio-keysd/internal/inject"
	"github.com/sweeney/gpio-keysd/internal/power"
)

// Engine intercepts debounced edges for remap group members and turns
// press/release gestures into synthetic pulses.
type Engine struct {
	injector *inject.Injector
	power    power.Monitor

	sessions []*session
	byCode   map[int]*session
	byPulse  map[int]*session

	// onDrop is invoked when a gesture's pulse is dropped because another
	// pulse is in flight. Set at wiring time.
	onDrop func()

	// afterFunc schedules the long-press timer. Swapped in tests.
	afterFunc func(time.Duration, func()) Timer
}

// session is the shared gesture state of one group. Members are evaluated on
// separate goroutines, so every field access goes through mu.
type session struct {
	mu    sync.Mutex
	group Group

	// timerActive is true while the long-press timer is pending.
	timerActive bool

	// fired marks that the window elapsed while held; the next release
	// emits the alternate code. A lapsed mark from an abandoned window is
	// cleared when the next press arms.
	fired bool

	// emulating is true while this session's pulse is in flight.
	emulating bool

	// lastCode is the member that transitioned most recently; it selects
	// which member's codes a release emits.
	lastCode int

	// gen invalidates timers superseded by a newer press.
	gen   uint64
	timer Timer
}

// NewEngine builds an engine for the given groups. Pulse completions must be
// fed back through PulseFinished, typically via the injector's hook.
func NewEngine(injector *inject.Injector, pw power.Monitor, groups []Group) *Engine {
	e := &Engine{
		injector: injector,
		power:    pw,
		byCode:   make(map[int]*session),
		byPulse:  make(map[int]*session),
		afterFunc: func(d time.Duration, fn func()) Timer {
			return time.AfterFunc(d, fn)
		},
	}
	for _, g := range groups {
		s := &session{group: g}
		e.sessions = append(e.sessions, s)
		for code, alt := range g.Alternate {
			e.byCode[code] = s
			e.byPulse[code] = s
			e.byPulse[alt] = s
		}
	}
	return e
}

// SetOnDrop registers the dropped-pulse hook. Call before edges flow.
func (e *Engine) SetOnDrop(fn func()) {
	e.onDrop = fn
}

// Intercept consumes the edge if code belongs to a group whose policy and
// the current power phase allow remapping. A true return means the edge must
// not be reported ordinarily; false leaves it on the normal path.
func (e *Engine) Intercept(code int, pressed bool) bool {
	s := e.byCode[code]
	if s == nil {
		return false
	}
	if !s.group.Policy.Enabled {
		return false
	}
	phase := e.power.Phase()
	if phase == power.Asleep {
		return false
	}
	if s.group.Policy.ScreenOffOnly && phase != power.ScreenOff {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Whichever member moved last owns the gesture's code selection.
	s.lastCode = code

	if pressed {
		e.armLocked(s)
		return true
	}

	if s.fired {
		s.fired = false
		e.pulseLocked(s, s.group.Alternate[s.lastCode])
	} else {
		// Released inside the window: the ordinary meaning, as a pulse.
		// The pending timer is left to lapse; the next press clears it.
		e.pulseLocked(s, s.lastCode)
	}
	return true
}

// armLocked starts or restarts the long-press window. A press on either
// member while a window is pending takes the window over.
func (e *Engine) armLocked(s *session) {
	if s.timer != nil {
		s.timer.Stop()
	}
	s.gen++
	s.fired = false
	s.timerActive = true
	gen := s.gen
	s.timer = e.afterFunc(s.group.Policy.LongPress, func() {
		e.expire(s, gen)
	})
}

// expire marks the window elapsed. A timer that lost the race with a newer
// press changes nothing.
func (e *Engine) expire(s *session, gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen || !s.timerActive {
		return
	}
	s.timerActive = false
	s.fired = true
}

func (e *Engine) pulseLocked(s *session, code int) {
	if s.emulating {
		log.Printf("remap: %s: pulse %d dropped, previous pulse still in flight", s.group.Name, code)
		if e.onDrop != nil {
			e.onDrop()
		}
		return
	}
	if err := e.injector.Pulse(code); err != nil {
		log.Printf("remap: %s: pulse %d dropped: %v", s.group.Name, code, err)
		if e.onDrop != nil {
			e.onDrop()
		}
		return
	}
	log.Printf("remap: %s: pulsing %d", s.group.Name, code)
	s.emulating = true
}

// PulseFinished clears the in-flight mark of the session that owns code.
// Codes no session owns are ignored.
func (e *Engine) PulseFinished(code int) {
	s := e.byPulse[code]
	if s == nil {
		return
	}
	s.mu.Lock()
	s.emulating = false
	s.mu.Unlock()
}
