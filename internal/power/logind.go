package power

import (
	"fmt"
	"log"
	"sync"

	"github.com/godbus/dbus/v5"
)

const (
	logindDest      = "org.freedesktop.login1"
	logindPath      = dbus.ObjectPath("/org/freedesktop/login1")
	logindManager   = "org.freedesktop.login1.Manager"
	prepareForSleep = logindManager + ".PrepareForSleep"
	propsChanged    = "org.freedesktop.DBus.Properties.PropertiesChanged"
	idleHintProp    = logindManager + ".IdleHint"
)

// LogindMonitor derives the phase from systemd-logind over the system bus:
// PrepareForSleep signals mark the asleep window, and the manager's IdleHint
// property distinguishes screen-off idle from active use.
type LogindMonitor struct {
	conn *dbus.Conn

	mu    sync.Mutex
	phase Phase

	onChange func(Phase)
	done     chan struct{}
	once     sync.Once
}

// NewLogindMonitor connects to the system bus and starts watching. onChange,
// if non-nil, is invoked from the watch goroutine on every phase transition.
func NewLogindMonitor(onChange func(Phase)) (*LogindMonitor, error) {
	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return nil, fmt.Errorf("connect system bus: %w", err)
	}

	m := &LogindMonitor{
		conn:     conn,
		phase:    Active,
		onChange: onChange,
		done:     make(chan struct{}),
	}

	if err := conn.AddMatchSignal(
		dbus.WithMatchInterface(logindManager),
		dbus.WithMatchMember("PrepareForSleep"),
	); err != nil {
		conn.Close()
		return nil, fmt.Errorf("match PrepareForSleep: %w", err)
	}
	if err := conn.AddMatchSignal(
		dbus.WithMatchInterface("org.freedesktop.DBus.Properties"),
		dbus.WithMatchMember("PropertiesChanged"),
		dbus.WithMatchObjectPath(logindPath),
	); err != nil {
		conn.Close()
		return nil, fmt.Errorf("match PropertiesChanged: %w", err)
	}

	m.refreshIdle()

	ch := make(chan *dbus.Signal, 16)
	conn.Signal(ch)
	go m.watch(ch)

	return m, nil
}

// Phase returns the current phase.
func (m *LogindMonitor) Phase() Phase {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.phase
}

// Close stops watching and disconnects from the bus.
func (m *LogindMonitor) Close() error {
	m.once.Do(func() { close(m.done) })
	return m.conn.Close()
}

func (m *LogindMonitor) watch(ch chan *dbus.Signal) {
	for {
		select {
		case <-m.done:
			return
		case sig, ok := <-ch:
			if !ok {
				return
			}
			m.handle(sig)
		}
	}
}

func (m *LogindMonitor) handle(sig *dbus.Signal) {
	switch sig.Name {
	case prepareForSleep:
		if len(sig.Body) != 1 {
			return
		}
		entering, ok := sig.Body[0].(bool)
		if !ok {
			return
		}
		if entering {
			m.set(Asleep)
		} else {
			// Waking up: idle state decides between active and screen-off.
			m.refreshIdle()
		}

	case propsChanged:
		if len(sig.Body) < 2 {
			return
		}
		iface, ok := sig.Body[0].(string)
		if !ok || iface != logindManager {
			return
		}
		changed, ok := sig.Body[1].(map[string]dbus.Variant)
		if !ok {
			return
		}
		v, ok := changed["IdleHint"]
		if !ok {
			return
		}
		idle, ok := v.Value().(bool)
		if !ok {
			return
		}
		if m.Phase() == Asleep {
			// Idle flapping during the suspend window does not wake us.
			return
		}
		if idle {
			m.set(ScreenOff)
		} else {
			m.set(Active)
		}
	}
}

func (m *LogindMonitor) refreshIdle() {
	obj := m.conn.Object(logindDest, logindPath)
	v, err := obj.GetProperty(idleHintProp)
	if err != nil {
		log.Printf("power: query IdleHint: %v", err)
		m.set(Active)
		return
	}
	if idle, ok := v.Value().(bool); ok && idle {
		m.set(ScreenOff)
	} else {
		m.set(Active)
	}
}

func (m *LogindMonitor) set(p Phase) {
	m.mu.Lock()
	if m.phase == p {
		m.mu.Unlock()
		return
	}
	m.phase = p
	cb := m.onChange
	m.mu.Unlock()

	if cb != nil {
		cb(p)
	}
}
