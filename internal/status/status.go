// Package status provides a thread-safe status tracker for the gpio-keysd daemon.
// It is read by HTTP handlers and rendered into MQTT heartbeat payloads.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/gpio-keysd/internal/keys"
)

// NetworkInfo contains network state. This is a local copy to avoid
// importing the network prober's package from status.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config contains daemon configuration for display.
type Config struct {
	Chip        string
	Buttons     int
	HeartbeatMs int64
	PulseMs     int64
	Broker      string
	HTTPPort    string
}

// EventCounts tallies reported events since startup.
type EventCounts struct {
	KeyPresses    int
	KeyReleases   int
	SwitchChanges int
	AbsReports    int
	Pulses        int
	PulsesDropped int
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	LastEvent        *keys.Event
	Counts           EventCounts
	Power            string
	DisabledKeys     string
	DisabledSwitches string
	WakeupKeys       string
	StartTime        time.Time
	Now              time.Time
	MQTTConnected    bool
	Network          *NetworkInfo
	Config           Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// RecordEvent counts a reported event and remembers it as the most recent one.
func (t *Tracker) RecordEvent(ev keys.Event) {
	t.mu.Lock()
	switch ev.Class {
	case keys.ClassKey:
		if ev.Pressed {
			t.snap.Counts.KeyPresses++
		} else {
			t.snap.Counts.KeyReleases++
		}
	case keys.ClassSwitch:
		t.snap.Counts.SwitchChanges++
	case keys.ClassAbs:
		t.snap.Counts.AbsReports++
	}
	last := ev
	t.snap.LastEvent = &last
	t.mu.Unlock()
}

// Sink adapts the tracker to the event pipeline so it can observe reports.
func (t *Tracker) Sink() keys.Sink {
	return keys.SinkFunc(func(ev keys.Event) error {
		t.RecordEvent(ev)
		return nil
	})
}

// RecordPulse counts a completed emulated pulse.
func (t *Tracker) RecordPulse() {
	t.mu.Lock()
	t.snap.Counts.Pulses++
	t.mu.Unlock()
}

// RecordPulseDrop counts a gesture whose pulse was dropped.
func (t *Tracker) RecordPulseDrop() {
	t.mu.Lock()
	t.snap.Counts.PulsesDropped++
	t.mu.Unlock()
}

// SetPower sets the displayed power phase.
func (t *Tracker) SetPower(phase string) {
	t.mu.Lock()
	t.snap.Power = phase
	t.mu.Unlock()
}

// SetDisabledKeys sets the displayed key disable mask.
func (t *Tracker) SetDisabledKeys(spec string) {
	t.mu.Lock()
	t.snap.DisabledKeys = spec
	t.mu.Unlock()
}

// SetDisabledSwitches sets the displayed switch disable mask.
func (t *Tracker) SetDisabledSwitches(spec string) {
	t.mu.Lock()
	t.snap.DisabledSwitches = spec
	t.mu.Unlock()
}

// SetWakeupKeys sets the displayed wakeup set.
func (t *Tracker) SetWakeupKeys(spec string) {
	t.mu.Lock()
	t.snap.WakeupKeys = spec
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
