package status

import (
	"encoding/json"
	"time"

	"github.com/sweeney/gpio-keysd/internal/keys"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event            string       `json:"event,omitempty"`
	Reason           string       `json:"reason,omitempty"`
	Power            string       `json:"power"`
	LastEvent        *EventJSON   `json:"last_event,omitempty"`
	DisabledKeys     string       `json:"disabled_keys"`
	DisabledSwitches string       `json:"disabled_switches"`
	WakeupKeys       string       `json:"wakeup_keys"`
	UptimeSeconds    int64        `json:"uptime_seconds"`
	StartTime        string       `json:"start_time"`
	Timestamp        string       `json:"timestamp"`
	MQTT             MQTTStatus   `json:"mqtt"`
	Counts           CountsJSON   `json:"event_counts"`
	Network          *NetworkJSON `json:"network,omitempty"`
	Config           ConfigJSON   `json:"config"`
}

// EventJSON is the JSON representation of the most recent event.
type EventJSON struct {
	Timestamp string `json:"timestamp"`
	Class     string `json:"class"`
	Code      int    `json:"code"`
	Name      string `json:"name"`
	State     string `json:"state"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of event counts.
type CountsJSON struct {
	KeyPresses    int `json:"key_presses"`
	KeyReleases   int `json:"key_releases"`
	SwitchChanges int `json:"switch_changes"`
	AbsReports    int `json:"abs_reports"`
	Pulses        int `json:"pulses"`
	PulsesDropped int `json:"pulses_dropped"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	Chip        string `json:"chip"`
	Buttons     int    `json:"buttons"`
	HeartbeatMs int64  `json:"heartbeat_ms"`
	PulseMs     int64  `json:"pulse_ms"`
	Broker      string `json:"broker"`
	HTTPPort    string `json:"http_port"`
}

func buildInner(snap Snapshot) StatusInner {
	power := snap.Power
	if power == "" {
		power = "UNKNOWN"
	}

	inner := StatusInner{
		Power:            power,
		DisabledKeys:     snap.DisabledKeys,
		DisabledSwitches: snap.DisabledSwitches,
		WakeupKeys:       snap.WakeupKeys,
		UptimeSeconds:    int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:        snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:        snap.Now.UTC().Format(time.RFC3339),
		MQTT:             MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			KeyPresses:    snap.Counts.KeyPresses,
			KeyReleases:   snap.Counts.KeyReleases,
			SwitchChanges: snap.Counts.SwitchChanges,
			AbsReports:    snap.Counts.AbsReports,
			Pulses:        snap.Counts.Pulses,
			PulsesDropped: snap.Counts.PulsesDropped,
		},
		Config: ConfigJSON{
			Chip:        snap.Config.Chip,
			Buttons:     snap.Config.Buttons,
			HeartbeatMs: snap.Config.HeartbeatMs,
			PulseMs:     snap.Config.PulseMs,
			Broker:      snap.Config.Broker,
			HTTPPort:    snap.Config.HTTPPort,
		},
	}

	if snap.LastEvent != nil {
		inner.LastEvent = &EventJSON{
			Timestamp: snap.LastEvent.Timestamp.UTC().Format(time.RFC3339),
			Class:     string(snap.LastEvent.Class),
			Code:      snap.LastEvent.Code,
			Name:      snap.LastEvent.Name,
			State:     keys.StateString(snap.LastEvent.Pressed),
		}
	}

	return inner
}

func buildNetwork(snap Snapshot, inner *StatusInner) {
	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	inner := buildInner(snap)
	buildNetwork(snap, &inner)

	data, _ := json.MarshalIndent(StatusJSON{Status: inner}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason
	buildNetwork(snap, &inner)

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
