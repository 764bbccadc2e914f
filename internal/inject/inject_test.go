package inject

import (
	"errors"
	"testing"
	"time"

	"github.com/sweeney/gpio-keysd/internal/input"
	"github.com/sweeney/gpio-keysd/internal/keys"
)

// newTestInjector returns an injector whose sleep blocks until the returned
// release func is called, and a done channel signalled on pulse completion.
func newTestInjector(kb input.Keyboard, width time.Duration) (*Injector, func(), chan int) {
	inj := New(kb, width)
	gate := make(chan struct{})
	inj.sleep = func(time.Duration) { <-gate }
	done := make(chan int, 4)
	inj.SetNotify(func(code int) { done <- code })
	release := func() { close(gate) }
	return inj, release, done
}

func TestPulsePressReleaseSequence(t *testing.T) {
	kb := input.NewFakeKeyboard()
	inj, release, done := newTestInjector(kb, 100*time.Millisecond)

	if err := inj.Pulse(keys.KeyNextSong); err != nil {
		t.Fatalf("Pulse: %v", err)
	}
	release()

	select {
	case code := <-done:
		if code != keys.KeyNextSong {
			t.Errorf("completion code: got %d, want %d", code, keys.KeyNextSong)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("pulse did not complete")
	}

	if downs := kb.DownCodes(); len(downs) != 1 || downs[0] != keys.KeyNextSong {
		t.Errorf("Downs: got %v, want [163]", downs)
	}
	if ups := kb.UpCodes(); len(ups) != 1 || ups[0] != keys.KeyNextSong {
		t.Errorf("Ups: got %v, want [163]", ups)
	}
	if inj.Busy() {
		t.Error("expected not busy after completion")
	}
}

func TestPulseRejectsWhileInFlight(t *testing.T) {
	kb := input.NewFakeKeyboard()
	inj, release, done := newTestInjector(kb, time.Millisecond)

	if err := inj.Pulse(keys.KeyVolumeUp); err != nil {
		t.Fatalf("first Pulse: %v", err)
	}
	if !inj.Busy() {
		t.Error("expected busy during pulse")
	}
	if code, ok := inj.Active(); !ok || code != keys.KeyVolumeUp {
		t.Errorf("Active: got (%d, %v), want (115, true)", code, ok)
	}

	if err := inj.Pulse(keys.KeyVolumeDown); !errors.Is(err, ErrBusy) {
		t.Errorf("second Pulse: got %v, want ErrBusy", err)
	}

	release()
	<-done

	// The rejected pulse was dropped, not queued.
	if downs := kb.DownCodes(); len(downs) != 1 {
		t.Errorf("expected exactly one press, got %v", downs)
	}
}

func TestPulseAllowedAfterCompletion(t *testing.T) {
	kb := input.NewFakeKeyboard()
	inj := New(kb, 0)
	inj.sleep = func(time.Duration) {}
	done := make(chan int, 2)
	inj.SetNotify(func(code int) { done <- code })

	if err := inj.Pulse(1); err != nil {
		t.Fatalf("first Pulse: %v", err)
	}
	<-done
	if err := inj.Pulse(2); err != nil {
		t.Fatalf("second Pulse after completion: %v", err)
	}
	<-done

	if downs := kb.DownCodes(); len(downs) != 2 {
		t.Errorf("expected two presses, got %v", downs)
	}
}

func TestPulseWithAppliesBothStates(t *testing.T) {
	kb := input.NewFakeKeyboard()
	inj := New(kb, 0)
	inj.sleep = func(time.Duration) {}
	done := make(chan int, 1)
	inj.SetNotify(func(code int) { done <- code })

	var states []bool
	if err := inj.PulseWith(42, func(pressed bool) { states = append(states, pressed) }); err != nil {
		t.Fatalf("PulseWith: %v", err)
	}
	if code := <-done; code != 42 {
		t.Errorf("completion code: got %d, want 42", code)
	}

	if len(states) != 2 || !states[0] || states[1] {
		t.Errorf("apply sequence: got %v, want [true false]", states)
	}
	// PulseWith never touches the transport itself.
	if len(kb.DownCodes()) != 0 {
		t.Errorf("expected no direct keyboard activity, got %v", kb.DownCodes())
	}
}

func TestRoutes(t *testing.T) {
	kb := input.NewFakeKeyboard()
	inj := New(kb, 0)

	if _, ok := inj.Route(keys.KeyVolumeUp); ok {
		t.Error("expected no route initially")
	}

	inj.SetRoute(keys.KeyVolumeUp, keys.KeyPower, true)
	dst, ok := inj.Route(keys.KeyVolumeUp)
	if !ok || dst != keys.KeyPower {
		t.Errorf("Route: got (%d, %v), want (116, true)", dst, ok)
	}

	inj.SetRoute(keys.KeyVolumeUp, keys.KeyPower, false)
	if _, ok := inj.Route(keys.KeyVolumeUp); ok {
		t.Error("expected route removed")
	}
}

func TestMirrorBypassesPulseGate(t *testing.T) {
	kb := input.NewFakeKeyboard()
	inj, release, done := newTestInjector(kb, time.Millisecond)

	if err := inj.Pulse(keys.KeyNextSong); err != nil {
		t.Fatalf("Pulse: %v", err)
	}

	// Mirrored state flows even while a pulse is in flight.
	if err := inj.Mirror(keys.KeyPower, true); err != nil {
		t.Fatalf("Mirror press: %v", err)
	}
	if err := inj.Mirror(keys.KeyPower, false); err != nil {
		t.Fatalf("Mirror release: %v", err)
	}

	release()
	<-done

	downs := kb.DownCodes()
	if len(downs) != 2 {
		t.Fatalf("expected pulse press plus mirror press, got %v", downs)
	}
}
