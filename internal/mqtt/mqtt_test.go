package mqtt

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/sweeney/gpio-keysd/internal/keys"
)

func TestFormatPayload(t *testing.T) {
	event := keys.Event{
		Timestamp: time.Date(2025, 11, 2, 22, 18, 12, 0, time.UTC),
		Class:     keys.ClassKey,
		Code:      keys.KeyVolumeUp,
		Name:      "volume_up",
		Pressed:   true,
		Value:     1,
	}

	payload, err := FormatPayload(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var parsed Payload
	if err := json.Unmarshal(payload, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if parsed.Input.Timestamp != "2025-11-02T22:18:12Z" {
		t.Errorf("unexpected timestamp: %s", parsed.Input.Timestamp)
	}
	if parsed.Input.Class != "key" {
		t.Errorf("unexpected class: %s", parsed.Input.Class)
	}
	if parsed.Input.Code != keys.KeyVolumeUp {
		t.Errorf("unexpected code: %d", parsed.Input.Code)
	}
	if parsed.Input.Name != "volume_up" {
		t.Errorf("unexpected name: %s", parsed.Input.Name)
	}
	if parsed.Input.State != "PRESS" {
		t.Errorf("unexpected state: %s", parsed.Input.State)
	}
	if parsed.Input.Value != 1 {
		t.Errorf("unexpected value: %d", parsed.Input.Value)
	}
}

func TestFormatPayloadExactJSON(t *testing.T) {
	event := keys.Event{
		Timestamp: time.Date(2025, 11, 2, 22, 18, 12, 0, time.UTC),
		Class:     keys.ClassKey,
		Code:      keys.KeyVolumeUp,
		Name:      "volume_up",
		Pressed:   true,
		Value:     1,
	}

	payload, err := FormatPayload(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := `{"input":{"timestamp":"2025-11-02T22:18:12Z","class":"key","code":115,"name":"volume_up","state":"PRESS","value":1}}`
	if string(payload) != expected {
		t.Errorf("unexpected payload:\ngot:  %s\nwant: %s", string(payload), expected)
	}
}

func TestFormatPayloadAllClasses(t *testing.T) {
	tests := []struct {
		name      string
		class     keys.Class
		code      int
		pressed   bool
		value     int
		wantClass string
		wantState string
	}{
		{"key press", keys.ClassKey, keys.KeyHome, true, 1, "key", "PRESS"},
		{"key release", keys.ClassKey, keys.KeyHome, false, 0, "key", "RELEASE"},
		{"switch on", keys.ClassSwitch, 0, true, 1, "switch", "PRESS"},
		{"switch off", keys.ClassSwitch, 0, false, 0, "switch", "RELEASE"},
		{"axis active", keys.ClassAbs, 4, true, 7, "abs", "PRESS"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event := keys.Event{
				Timestamp: time.Now(),
				Class:     tt.class,
				Code:      tt.code,
				Name:      "line",
				Pressed:   tt.pressed,
				Value:     tt.value,
			}

			payload, err := FormatPayload(event)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			var parsed Payload
			if err := json.Unmarshal(payload, &parsed); err != nil {
				t.Fatalf("invalid JSON: %v", err)
			}

			if parsed.Input.Class != tt.wantClass {
				t.Errorf("class: got %s, want %s", parsed.Input.Class, tt.wantClass)
			}
			if parsed.Input.State != tt.wantState {
				t.Errorf("state: got %s, want %s", parsed.Input.State, tt.wantState)
			}
			if parsed.Input.Value != tt.value {
				t.Errorf("value: got %d, want %d", parsed.Input.Value, tt.value)
			}
		})
	}
}

func TestFormatPayloadConvertsToUTC(t *testing.T) {
	cet := time.FixedZone("CET", 3600)
	event := keys.Event{
		Timestamp: time.Date(2025, 11, 2, 23, 18, 12, 0, cet),
		Class:     keys.ClassKey,
		Code:      keys.KeyHome,
		Name:      "home",
		Pressed:   true,
		Value:     1,
	}

	payload, err := FormatPayload(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var parsed Payload
	if err := json.Unmarshal(payload, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if parsed.Input.Timestamp != "2025-11-02T22:18:12Z" {
		t.Errorf("timestamp not converted to UTC: %s", parsed.Input.Timestamp)
	}
}

func TestTopic(t *testing.T) {
	expected := "input/gpio-keys/events"
	if Topic != expected {
		t.Errorf("unexpected topic: got %s, want %s", Topic, expected)
	}
}

func TestTopicSystem(t *testing.T) {
	expected := "input/gpio-keys/system"
	if TopicSystem != expected {
		t.Errorf("unexpected system topic: got %s, want %s", TopicSystem, expected)
	}
}

func TestFormatSystemPayload(t *testing.T) {
	event := SystemEvent{
		Timestamp: time.Date(2025, 11, 3, 10, 30, 45, 0, time.UTC),
		Event:     "SHUTDOWN",
		Reason:    "SIGTERM",
	}

	payload, err := FormatSystemPayload(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var parsed SystemPayload
	if err := json.Unmarshal(payload, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if parsed.System.Timestamp != "2025-11-03T10:30:45Z" {
		t.Errorf("unexpected timestamp: %s", parsed.System.Timestamp)
	}
	if parsed.System.Event != "SHUTDOWN" {
		t.Errorf("unexpected event: %s", parsed.System.Event)
	}
	if parsed.System.Reason != "SIGTERM" {
		t.Errorf("unexpected reason: %s", parsed.System.Reason)
	}
}

func TestFormatSystemPayloadExactJSON(t *testing.T) {
	event := SystemEvent{
		Timestamp: time.Date(2025, 11, 3, 10, 30, 45, 0, time.UTC),
		Event:     "SHUTDOWN",
		Reason:    "SIGTERM",
	}

	payload, err := FormatSystemPayload(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := `{"system":{"timestamp":"2025-11-03T10:30:45Z","event":"SHUTDOWN","reason":"SIGTERM"}}`
	if string(payload) != expected {
		t.Errorf("unexpected payload:\ngot:  %s\nwant: %s", string(payload), expected)
	}
}

func TestFormatSystemPayloadAllSignals(t *testing.T) {
	tests := []struct {
		reason     string
		wantReason string
	}{
		{"SIGTERM", "SIGTERM"},
		{"SIGINT", "SIGINT"},
		{"UNKNOWN", "UNKNOWN"},
	}

	for _, tt := range tests {
		t.Run(tt.reason, func(t *testing.T) {
			event := SystemEvent{
				Timestamp: time.Now(),
				Event:     "SHUTDOWN",
				Reason:    tt.reason,
			}

			payload, err := FormatSystemPayload(event)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			var parsed SystemPayload
			if err := json.Unmarshal(payload, &parsed); err != nil {
				t.Fatalf("invalid JSON: %v", err)
			}

			if parsed.System.Reason != tt.wantReason {
				t.Errorf("reason: got %s, want %s", parsed.System.Reason, tt.wantReason)
			}
		})
	}
}

func TestFormatSystemPayloadStartup(t *testing.T) {
	event := SystemEvent{
		Timestamp: time.Date(2025, 11, 3, 19, 5, 51, 0, time.UTC),
		Event:     "STARTUP",
		Config: &SystemConfig{
			Chip:        "gpiochip0",
			Buttons:     4,
			HeartbeatMs: 900000,
			Broker:      "tcp://192.168.1.200:1883",
		},
	}

	payload, err := FormatSystemPayload(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var parsed SystemPayload
	if err := json.Unmarshal(payload, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if parsed.System.Timestamp != "2025-11-03T19:05:51Z" {
		t.Errorf("unexpected timestamp: %s", parsed.System.Timestamp)
	}
	if parsed.System.Event != "STARTUP" {
		t.Errorf("unexpected event: %s", parsed.System.Event)
	}
	if parsed.System.Reason != "" {
		t.Errorf("expected empty reason for startup, got: %s", parsed.System.Reason)
	}
	if parsed.System.Config == nil {
		t.Fatal("expected config to be present")
	}
	if parsed.System.Config.Chip != "gpiochip0" {
		t.Errorf("unexpected chip: %s", parsed.System.Config.Chip)
	}
	if parsed.System.Config.Buttons != 4 {
		t.Errorf("unexpected buttons: %d", parsed.System.Config.Buttons)
	}
	if parsed.System.Config.HeartbeatMs != 900000 {
		t.Errorf("unexpected heartbeat_ms: %d", parsed.System.Config.HeartbeatMs)
	}
	if parsed.System.Config.Broker != "tcp://192.168.1.200:1883" {
		t.Errorf("unexpected broker: %s", parsed.System.Config.Broker)
	}
}

func TestFormatSystemPayloadStartupExactJSON(t *testing.T) {
	event := SystemEvent{
		Timestamp: time.Date(2025, 11, 3, 19, 5, 51, 0, time.UTC),
		Event:     "STARTUP",
		Config: &SystemConfig{
			Chip:        "gpiochip0",
			Buttons:     4,
			HeartbeatMs: 900000,
			Broker:      "tcp://192.168.1.200:1883",
		},
	}

	payload, err := FormatSystemPayload(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := `{"system":{"timestamp":"2025-11-03T19:05:51Z","event":"STARTUP","config":{"chip":"gpiochip0","buttons":4,"heartbeat_ms":900000,"broker":"tcp://192.168.1.200:1883"}}}`
	if string(payload) != expected {
		t.Errorf("unexpected payload:\ngot:  %s\nwant: %s", string(payload), expected)
	}
}

func TestFormatSystemPayloadShutdownOmitsConfig(t *testing.T) {
	event := SystemEvent{
		Timestamp: time.Date(2025, 11, 3, 19, 10, 0, 0, time.UTC),
		Event:     "SHUTDOWN",
		Reason:    "SIGTERM",
		Config:    nil,
	}

	payload, err := FormatSystemPayload(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Config should be omitted from JSON
	expected := `{"system":{"timestamp":"2025-11-03T19:10:00Z","event":"SHUTDOWN","reason":"SIGTERM"}}`
	if string(payload) != expected {
		t.Errorf("unexpected payload:\ngot:  %s\nwant: %s", string(payload), expected)
	}
}

func TestFormatSystemPayloadStartupOmitsReason(t *testing.T) {
	event := SystemEvent{
		Timestamp: time.Date(2025, 11, 3, 19, 5, 51, 0, time.UTC),
		Event:     "STARTUP",
		Reason:    "",
		Config: &SystemConfig{
			Chip:        "gpiochip0",
			Buttons:     4,
			HeartbeatMs: 900000,
			Broker:      "tcp://192.168.1.200:1883",
		},
	}

	payload, err := FormatSystemPayload(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Reason should be omitted from JSON (no "reason":"")
	var parsed map[string]interface{}
	if err := json.Unmarshal(payload, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	system := parsed["system"].(map[string]interface{})
	if _, exists := system["reason"]; exists {
		t.Error("reason field should be omitted for startup events")
	}
}

func TestFormatSystemPayloadRawPassthrough(t *testing.T) {
	raw := []byte(`{"system":{"custom":true}}`)
	event := SystemEvent{
		Timestamp:  time.Now(),
		Event:      "HEARTBEAT",
		RawPayload: raw,
	}

	payload, err := FormatSystemPayload(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if string(payload) != string(raw) {
		t.Errorf("raw payload not passed through:\ngot:  %s\nwant: %s", string(payload), string(raw))
	}
}

func TestFakePublisher(t *testing.T) {
	f := NewFakePublisher()

	event := keys.Event{
		Timestamp: time.Now(),
		Class:     keys.ClassKey,
		Code:      keys.KeyVolumeDown,
		Name:      "volume_down",
		Pressed:   true,
		Value:     1,
	}

	err := f.Publish(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(f.Events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(f.Events))
	}

	if f.Events[0].Code != keys.KeyVolumeDown {
		t.Errorf("unexpected event code: %d", f.Events[0].Code)
	}

	if len(f.Payloads) != 1 {
		t.Fatalf("expected 1 payload, got %d", len(f.Payloads))
	}
}

func TestFakePublisherError(t *testing.T) {
	f := NewFakePublisher()
	f.PublishError = errors.New("simulated error")

	event := keys.Event{
		Timestamp: time.Now(),
		Class:     keys.ClassKey,
		Code:      keys.KeyHome,
		Name:      "home",
		Pressed:   true,
	}

	err := f.Publish(event)
	if err == nil {
		t.Error("expected error")
	}

	if len(f.Events) != 0 {
		t.Errorf("expected no events recorded on error, got %d", len(f.Events))
	}
}

func TestFakePublisherPublishSystem(t *testing.T) {
	f := NewFakePublisher()

	event := SystemEvent{
		Timestamp: time.Now(),
		Event:     "SHUTDOWN",
		Reason:    "SIGTERM",
		Retained:  true,
	}

	err := f.PublishSystem(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(f.SystemEvents) != 1 {
		t.Fatalf("expected 1 system event, got %d", len(f.SystemEvents))
	}

	if f.SystemEvents[0].Event != "SHUTDOWN" {
		t.Errorf("unexpected event: %s", f.SystemEvents[0].Event)
	}
	if !f.SystemEvents[0].Retained {
		t.Error("retained flag should be preserved")
	}

	if len(f.SystemPayloads) != 1 {
		t.Fatalf("expected 1 system payload, got %d", len(f.SystemPayloads))
	}
}

func TestFakePublisherClose(t *testing.T) {
	f := NewFakePublisher()

	if f.WasClosed() {
		t.Error("should not be closed initially")
	}

	err := f.Close()
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	if !f.WasClosed() {
		t.Error("should be closed after Close()")
	}
}

func TestFakePublisherReset(t *testing.T) {
	f := NewFakePublisher()

	event := keys.Event{
		Timestamp: time.Now(),
		Class:     keys.ClassKey,
		Code:      keys.KeyHome,
		Name:      "home",
		Pressed:   true,
	}
	f.Publish(event)
	f.PublishSystem(SystemEvent{Timestamp: time.Now(), Event: "STARTUP"})
	f.Close()
	f.PublishError = errors.New("error")

	f.Reset()

	if len(f.Events) != 0 {
		t.Error("events should be cleared")
	}
	if len(f.Payloads) != 0 {
		t.Error("payloads should be cleared")
	}
	if len(f.SystemEvents) != 0 {
		t.Error("system events should be cleared")
	}
	if f.Closed {
		t.Error("closed should be reset")
	}
	if f.PublishError != nil {
		t.Error("error should be cleared")
	}
}

func TestEventSink(t *testing.T) {
	f := NewFakePublisher()
	sink := EventSink(f)

	event := keys.Event{
		Timestamp: time.Now(),
		Class:     keys.ClassSwitch,
		Code:      0,
		Name:      "lid",
		Pressed:   true,
		Value:     1,
	}

	if err := sink.Report(event); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := f.Published()
	if len(got) != 1 {
		t.Fatalf("expected 1 event, got %d", len(got))
	}
	if got[0].Name != "lid" {
		t.Errorf("unexpected name: %s", got[0].Name)
	}
}
