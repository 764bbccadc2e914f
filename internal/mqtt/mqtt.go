// Package mqtt provides MQTT publishing with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/gpio-keysd/internal/keys"
)

// Topic is the MQTT topic for input events.
const Topic = "input/gpio-keys/events"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "input/gpio-keys/system"

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends an input event to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(event keys.Event) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// EventSink adapts a Publisher to the pipeline's sink interface.
func EventSink(p Publisher) keys.Sink {
	return keys.SinkFunc(func(ev keys.Event) error {
		return p.Publish(ev)
	})
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string        // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string        // e.g., "SIGTERM", "SIGINT" (shutdown only)
	Config     *SystemConfig // configuration snapshot (startup only)
	RawPayload []byte        // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool          // Whether the message should be retained by the broker
}

// SystemConfig is the configuration snapshot carried by STARTUP events.
type SystemConfig struct {
	Chip        string `json:"chip"`
	Buttons     int    `json:"buttons"`
	HeartbeatMs int    `json:"heartbeat_ms"`
	Broker      string `json:"broker"`
}

// Payload represents the MQTT message payload structure.
type Payload struct {
	Input InputPayload `json:"input"`
}

// InputPayload contains the input event details.
type InputPayload struct {
	Timestamp string `json:"timestamp"`
	Class     string `json:"class"`
	Code      int    `json:"code"`
	Name      string `json:"name"`
	State     string `json:"state"`
	Value     int    `json:"value"`
}

// FormatPayload creates the JSON payload for an input event.
func FormatPayload(event keys.Event) ([]byte, error) {
	payload := Payload{
		Input: InputPayload{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Class:     string(event.Class),
			Code:      event.Code,
			Name:      event.Name,
			State:     keys.StateString(event.Pressed),
			Value:     event.Value,
		},
	}
	return json.Marshal(payload)
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (STARTUP, SHUTDOWN) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string        `json:"timestamp"`
	Event     string        `json:"event"`
	Reason    string        `json:"reason,omitempty"`
	Config    *SystemConfig `json:"config,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
			Config:    event.Config,
		},
	}
	return json.Marshal(payload)
}
