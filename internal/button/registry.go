package button

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/sweeney/gpio-keysd/internal/gpio"
	"github.com/sweeney/gpio-keysd/internal/inject"
	"github.com/sweeney/gpio-keysd/internal/keys"
)

// Deps are the collaborators a Registry reports through.
type Deps struct {
	// Sink receives every reported event. Required.
	Sink keys.Sink

	// Injector drives synthetic pulses and carries the code routing
	// table. Required.
	Injector *inject.Injector

	// Interceptor, if set, sees debounced key edges before ordinary
	// reporting.
	Interceptor Interceptor

	// Gate, if set, is acquired after setup succeeds and released at
	// Close.
	Gate PowerGate
}

// Registry owns the configured lines and their runtime state. Lines are
// requested at construction; a failure on any line releases everything
// acquired so far and no registry is returned.
type Registry struct {
	deps Deps

	buttons []*button
	byClass map[keys.Class][]*button

	// applyMu serializes control-surface mutations so a disable cannot
	// race another toggle against a half-masked class.
	applyMu sync.Mutex

	emuMu   sync.Mutex
	emuCode int

	pending sync.WaitGroup
	workers sync.WaitGroup
	quit    chan struct{}
	once    sync.Once

	// now and afterFunc are swapped in tests.
	now       func() time.Time
	afterFunc func(time.Duration, func()) Timer
}

// button pairs one line's immutable config with its runtime state.
type button struct {
	reg *Registry
	cfg Config

	// trigger coalesces evaluation requests; capacity one.
	trigger chan struct{}

	mu       sync.Mutex
	line     gpio.Line
	disabled bool
	wakeup   bool
	pressed  bool
	timer    Timer

	// evalMu is held across each evaluation. Disabling acquires it to
	// wait out in-flight work before the mask takes effect.
	evalMu sync.Mutex
}

// NewRegistry requests every configured line and starts its evaluation
// worker. cfg order is preserved in listings.
func NewRegistry(provider gpio.Provider, configs []Config, deps Deps) (*Registry, error) {
	r := &Registry{
		deps:    deps,
		byClass: make(map[keys.Class][]*button),
		quit:    make(chan struct{}),
		now:     time.Now,
		afterFunc: func(d time.Duration, fn func()) Timer {
			return time.AfterFunc(d, fn)
		},
	}

	for _, cfg := range configs {
		b := &button{
			reg:     r,
			cfg:     cfg,
			wakeup:  cfg.Wakeup,
			trigger: make(chan struct{}, 1),
		}
		line, err := provider.RequestLine(cfg.Line, gpio.LineConfig{
			Consumer: "gpio-keysd:" + cfg.Name,
			Debounce: cfg.Debounce,
			Pull:     cfg.Pull,
		}, b.edge)
		if err != nil {
			r.shutdown()
			return nil, fmt.Errorf("line %d (%s): %w", cfg.Line, cfg.Name, err)
		}
		b.mu.Lock()
		b.line = line
		b.mu.Unlock()
		r.buttons = append(r.buttons, b)
		r.byClass[cfg.Class] = append(r.byClass[cfg.Class], b)

		r.workers.Add(1)
		go b.run()
	}

	if deps.Gate != nil {
		if err := deps.Gate.Acquire(); err != nil {
			r.shutdown()
			return nil, fmt.Errorf("power gate: %w", err)
		}
	}
	return r, nil
}

// Close releases every line, waits for in-flight evaluations and releases
// the power gate. Safe to call more than once.
func (r *Registry) Close() error {
	r.once.Do(func() {
		r.shutdown()
		if r.deps.Gate != nil {
			r.deps.Gate.Release()
		}
	})
	return nil
}

func (r *Registry) shutdown() {
	close(r.quit)
	for _, b := range r.buttons {
		b.mu.Lock()
		if b.line != nil {
			b.line.Close()
			b.line = nil
		}
		if b.timer != nil {
			b.timer.Stop()
			b.timer = nil
		}
		b.mu.Unlock()
	}
	r.workers.Wait()
	for _, b := range r.buttons {
		select {
		case <-b.trigger:
			r.pending.Done()
		default:
		}
	}
}

// WaitIdle blocks until every queued evaluation has run.
func (r *Registry) WaitIdle() {
	r.pending.Wait()
}

// Resync queues an evaluation of every line against its current level.
// State that moved while events could not flow, such as a switch flipped
// during suspend, is reported; unchanged lines stay quiet.
func (r *Registry) Resync() {
	for _, b := range r.buttons {
		b.settle()
	}
}

// Buttons returns a point-in-time view of every line in config order.
func (r *Registry) Buttons() []Info {
	infos := make([]Info, 0, len(r.buttons))
	for _, b := range r.buttons {
		b.mu.Lock()
		infos = append(infos, Info{
			Name:        b.cfg.Name,
			Line:        b.cfg.Line,
			Class:       b.cfg.Class,
			Code:        b.cfg.Code,
			Pressed:     b.pressed,
			Disabled:    b.disabled,
			Disableable: b.cfg.Disableable,
			Wakeup:      b.wakeup,
			Debounced:   b.line != nil && b.line.Debounced(),
		})
		b.mu.Unlock()
	}
	return infos
}

func (r *Registry) report(ev keys.Event) {
	if err := r.deps.Sink.Report(ev); err != nil {
		log.Printf("button: report %s %s: %v", ev.Name, keys.StateString(ev.Pressed), err)
	}
}

// edge handles one line transition. It runs on the event delivery goroutine
// and must not block: it either restarts the settle timer or hands off to
// the line's worker.
func (b *button) edge() {
	b.mu.Lock()
	if b.disabled || b.line == nil {
		b.mu.Unlock()
		return
	}
	if b.cfg.Debounce > 0 && !b.line.Debounced() {
		if b.timer != nil {
			b.timer.Stop()
		}
		b.timer = b.reg.afterFunc(b.cfg.Debounce, b.settle)
		b.mu.Unlock()
		return
	}
	b.mu.Unlock()
	b.settle()
}

// settle queues one evaluation. A request while one is already queued is
// dropped: only the line's level at evaluation time matters.
func (b *button) settle() {
	select {
	case <-b.reg.quit:
		return
	default:
	}
	b.reg.pending.Add(1)
	select {
	case b.trigger <- struct{}{}:
	default:
		b.reg.pending.Done()
	}
}

func (b *button) run() {
	defer b.reg.workers.Done()
	for {
		select {
		case <-b.trigger:
			b.evaluate()
			b.reg.pending.Done()
		case <-b.reg.quit:
			return
		}
	}
}

// evaluate reads the line's current level, applies polarity and reports a
// state change. The level is read now, not at edge time: the line may have
// moved again since the edge that queued us, and the settled level wins.
func (b *button) evaluate() {
	b.evalMu.Lock()
	defer b.evalMu.Unlock()

	b.mu.Lock()
	line := b.line
	disabled := b.disabled
	b.mu.Unlock()
	if line == nil || disabled {
		return
	}

	raw, err := line.Value()
	if err != nil {
		log.Printf("button: %s: read line %d: %v", b.cfg.Name, b.cfg.Line, err)
		return
	}
	pressed := raw != 0
	if b.cfg.ActiveLow {
		pressed = !pressed
	}

	b.mu.Lock()
	changed := pressed != b.pressed
	b.pressed = pressed
	b.mu.Unlock()
	if !changed {
		return
	}
	b.deliver(pressed)
}

// deliver runs the report path for a state change: code routing first, then
// interception, then the ordinary sink.
func (b *button) deliver(pressed bool) {
	if b.cfg.Class == keys.ClassKey {
		if dst, ok := b.reg.deps.Injector.Route(b.cfg.Code); ok {
			if err := b.reg.deps.Injector.Mirror(dst, pressed); err != nil {
				log.Printf("button: %s: mirror %d onto %d: %v", b.cfg.Name, b.cfg.Code, dst, err)
			}
			return
		}
		if b.reg.deps.Interceptor != nil && b.reg.deps.Interceptor.Intercept(b.cfg.Code, pressed) {
			return
		}
	}
	if b.cfg.Class == keys.ClassAbs && !pressed {
		// Absolute lines report a value while active, nothing on release.
		return
	}
	b.reg.report(b.event(pressed))
}

func (b *button) event(pressed bool) keys.Event {
	ev := keys.Event{
		Timestamp: b.reg.now(),
		Class:     b.cfg.Class,
		Code:      b.cfg.Code,
		Name:      b.cfg.Name,
		Pressed:   pressed,
	}
	switch {
	case b.cfg.Class == keys.ClassAbs:
		ev.Value = b.cfg.AbsValue
	case pressed:
		ev.Value = 1
	}
	return ev
}

// disable masks the line. The settle timer is stopped and any in-flight
// evaluation is waited out: after disable returns, no event for this line
// can still emerge.
func (b *button) disable() {
	b.mu.Lock()
	if b.disabled {
		b.mu.Unlock()
		return
	}
	b.mu.Unlock()

	b.evalMu.Lock()
	b.mu.Lock()
	b.disabled = true
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	b.mu.Unlock()
	b.evalMu.Unlock()
}

// enable unmasks the line and queues an evaluation to catch up with state
// that moved while masked.
func (b *button) enable() {
	b.mu.Lock()
	if !b.disabled {
		b.mu.Unlock()
		return
	}
	b.disabled = false
	b.mu.Unlock()
	b.settle()
}
