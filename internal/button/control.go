package button

import (
	"fmt"
	"log"
	"sort"

	"github.com/sweeney/gpio-keysd/internal/keys"
)

// DisableableCodes returns the class's runtime-maskable codes as a range
// list.
func (r *Registry) DisableableCodes(class keys.Class) string {
	bm := keys.NewBitmap(class.CodeCount())
	for _, b := range r.byClass[class] {
		if b.cfg.Disableable {
			bm.Set(b.cfg.Code)
		}
	}
	return bm.RangeList()
}

// DisabledCodes returns the class's currently masked codes as a range list.
func (r *Registry) DisabledCodes(class keys.Class) string {
	bm := keys.NewBitmap(class.CodeCount())
	for _, b := range r.byClass[class] {
		b.mu.Lock()
		if b.disabled {
			bm.Set(b.cfg.Code)
		}
		b.mu.Unlock()
	}
	return bm.RangeList()
}

// SetDisabledCodes replaces the class's masked set with the parsed range
// list. The request is validated as a whole before anything is touched: a
// malformed list fails with keys.ErrInvalidFormat and a code whose line is
// not disableable fails with ErrNotDisableable, in both cases leaving the
// previous set intact. Named lines are masked, every other currently
// masked line is unmasked; both directions are idempotent.
func (r *Registry) SetDisabledCodes(class keys.Class, spec string) error {
	want, err := keys.ParseRangeList(spec, class.CodeCount())
	if err != nil {
		return err
	}

	eligible := keys.NewBitmap(class.CodeCount())
	for _, b := range r.byClass[class] {
		if b.cfg.Disableable {
			eligible.Set(b.cfg.Code)
		}
	}
	for _, code := range want.Codes() {
		if !eligible.Test(code) {
			return fmt.Errorf("%w: %d", ErrNotDisableable, code)
		}
	}

	r.applyMu.Lock()
	defer r.applyMu.Unlock()
	for _, b := range r.byClass[class] {
		if want.Test(b.cfg.Code) && b.cfg.Disableable {
			b.disable()
		} else {
			b.enable()
		}
	}
	return nil
}

// SetWakeupCodes replaces the wake-capable key set with the parsed range
// list. Codes matching no configured key line are ignored, not an error.
func (r *Registry) SetWakeupCodes(spec string) error {
	want, err := keys.ParseRangeList(spec, keys.ClassKey.CodeCount())
	if err != nil {
		return err
	}
	r.applyMu.Lock()
	defer r.applyMu.Unlock()
	for _, b := range r.byClass[keys.ClassKey] {
		b.mu.Lock()
		b.wakeup = want.Test(b.cfg.Code)
		b.mu.Unlock()
	}
	return nil
}

// WakeupCodes returns the wake-capable key codes as a range list.
func (r *Registry) WakeupCodes() string {
	bm := keys.NewBitmap(keys.ClassKey.CodeCount())
	for _, b := range r.byClass[keys.ClassKey] {
		b.mu.Lock()
		if b.wakeup {
			bm.Set(b.cfg.Code)
		}
		b.mu.Unlock()
	}
	return bm.RangeList()
}

// PressedCodes reads each line of the class and returns the codes at their
// active level, ascending. This is a live read of the hardware, not the
// last reported state, so masked lines show too.
func (r *Registry) PressedCodes(class keys.Class) []int {
	var codes []int
	for _, b := range r.byClass[class] {
		b.mu.Lock()
		line := b.line
		b.mu.Unlock()
		if line == nil {
			continue
		}
		raw, err := line.Value()
		if err != nil {
			log.Printf("button: %s: read line %d: %v", b.cfg.Name, b.cfg.Line, err)
			continue
		}
		pressed := raw != 0
		if b.cfg.ActiveLow {
			pressed = !pressed
		}
		if pressed {
			codes = append(codes, b.cfg.Code)
		}
	}
	sort.Ints(codes)
	return codes
}

// AnyPressed reports whether any line's last reported state is pressed.
func (r *Registry) AnyPressed() bool {
	for _, b := range r.buttons {
		b.mu.Lock()
		pressed := b.pressed
		b.mu.Unlock()
		if pressed {
			return true
		}
	}
	return false
}

// SetEmulateCode selects the key code for on-demand injection. The code
// must fall inside the key code space; it is resolved to a line when the
// pulse is triggered.
func (r *Registry) SetEmulateCode(code int) error {
	if !keys.ClassKey.ValidCode(code) {
		return fmt.Errorf("%w: %d", ErrUnknownCode, code)
	}
	r.emuMu.Lock()
	r.emuCode = code
	r.emuMu.Unlock()
	return nil
}

// EmulateCode returns the currently selected injection code.
func (r *Registry) EmulateCode() int {
	r.emuMu.Lock()
	defer r.emuMu.Unlock()
	return r.emuCode
}

// TriggerEmulate synthesizes one press/release pair for the selected code.
func (r *Registry) TriggerEmulate() error {
	r.emuMu.Lock()
	code := r.emuCode
	r.emuMu.Unlock()
	return r.Emulate(code)
}

// Emulate synthesizes one press/release pair for code, reported through
// the ordinary event path as if the code's line had moved. Fails with
// ErrUnknownCode when no key line carries the code and with inject.ErrBusy
// while another pulse is in flight.
func (r *Registry) Emulate(code int) error {
	var target *button
	for _, b := range r.byClass[keys.ClassKey] {
		if b.cfg.Code == code {
			target = b
			break
		}
	}
	if target == nil {
		return fmt.Errorf("%w: %d", ErrUnknownCode, code)
	}
	return r.deps.Injector.PulseWith(code, func(pressed bool) {
		r.report(target.event(pressed))
	})
}

// EmulateBusy reports whether a synthetic pulse is in flight.
func (r *Registry) EmulateBusy() bool {
	return r.deps.Injector.Busy()
}
