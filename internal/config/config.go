// Package config loads the daemon configuration: the monitored lines, the
// remap groups and the transport settings. Values come from a TOML file
// layered over built-in defaults.
package config

import (
	"fmt"
	"sort"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/sweeney/gpio-keysd/internal/button"
	"github.com/sweeney/gpio-keysd/internal/gpio"
	"github.com/sweeney/gpio-keysd/internal/input"
	"github.com/sweeney/gpio-keysd/internal/keys"
	"github.com/sweeney/gpio-keysd/internal/remap"
)

// Config holds the complete daemon configuration.
type Config struct {
	// Chip is the GPIO chip the lines live on.
	Chip string `toml:"chip"`

	// HeartbeatMs is the interval between heartbeat status messages.
	// Zero disables the heartbeat.
	HeartbeatMs int `toml:"heartbeat_ms"`

	HTTP    HTTPConfig     `toml:"http"`
	MQTT    MQTTConfig     `toml:"mqtt"`
	Input   InputConfig    `toml:"input"`
	Buttons []ButtonConfig `toml:"buttons"`
	Groups  []GroupConfig  `toml:"groups"`
}

// HTTPConfig holds the control surface listener settings.
type HTTPConfig struct {
	Addr string `toml:"addr"`
}

// MQTTConfig holds the event publisher settings. An empty broker disables
// publishing.
type MQTTConfig struct {
	Broker   string `toml:"broker"`
	ClientID string `toml:"client_id"`
	Username string `toml:"username"`
	Password string `toml:"password"`
}

// InputConfig holds the synthetic input device settings.
type InputConfig struct {
	DevicePath string `toml:"device_path"`
	DeviceName string `toml:"device_name"`

	// PulseMs is the hold time of a synthetic press/release pair.
	PulseMs int `toml:"pulse_ms"`
}

// ButtonConfig describes one monitored line.
type ButtonConfig struct {
	Name      string `toml:"name"`
	Line      int    `toml:"line"`
	Class     string `toml:"class"`
	Code      int    `toml:"code"`
	ActiveLow bool   `toml:"active_low"`

	// Pull selects the line bias: "up", "down" or "" for the chip
	// default.
	Pull string `toml:"pull"`

	DebounceMs  int  `toml:"debounce_ms"`
	Disableable bool `toml:"disableable"`
	Wakeup      bool `toml:"wakeup"`
	AbsValue    int  `toml:"abs_value"`

	// Group names the remap group this line belongs to; AlternateCode is
	// the long-press action. Both empty for ordinary lines.
	Group         string `toml:"group"`
	AlternateCode int    `toml:"alternate_code"`
}

// GroupConfig describes one remap group's policy.
type GroupConfig struct {
	Name string `toml:"name"`

	// Enabled defaults to true.
	Enabled *bool `toml:"enabled"`

	// LongPressMs is the hold duration separating the primary action
	// from the alternate one. Defaults to 300.
	LongPressMs int `toml:"long_press_ms"`

	// ScreenOffOnly restricts remapping to the screen-off phase.
	// Defaults to true.
	ScreenOffOnly *bool `toml:"screen_off_only"`
}

// Default returns the built-in configuration: the volume rocker and home
// key with their track-skip and play/pause groups, plus a power key.
func Default() *Config {
	return &Config{
		Chip:        gpio.DefaultChip,
		HeartbeatMs: 900000,
		HTTP:        HTTPConfig{Addr: ":8090"},
		MQTT:        MQTTConfig{ClientID: "gpio-keysd"},
		Input: InputConfig{
			DevicePath: input.DefaultDevicePath,
			DeviceName: "gpio-keysd",
			PulseMs:    100,
		},
		Buttons: []ButtonConfig{
			{Name: "volume_up", Line: 11, Class: "key", Code: keys.KeyVolumeUp, ActiveLow: true, DebounceMs: 15, Disableable: true, Group: "volume", AlternateCode: keys.KeyNextSong},
			{Name: "volume_down", Line: 12, Class: "key", Code: keys.KeyVolumeDown, ActiveLow: true, DebounceMs: 15, Disableable: true, Group: "volume", AlternateCode: keys.KeyPreviousSong},
			{Name: "home", Line: 13, Class: "key", Code: keys.KeyHome, ActiveLow: true, DebounceMs: 15, Group: "home", AlternateCode: keys.KeyPlayPause},
			{Name: "power", Line: 14, Class: "key", Code: keys.KeyPower, ActiveLow: true, DebounceMs: 15, Wakeup: true},
		},
		Groups: []GroupConfig{
			{Name: "volume", LongPressMs: 300},
			{Name: "home", LongPressMs: 300},
		},
	}
}

// Load reads the TOML file at path over the defaults and validates the
// result. An empty path returns the validated defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) normalize() {
	for i := range c.Groups {
		if c.Groups[i].LongPressMs == 0 {
			c.Groups[i].LongPressMs = 300
		}
	}
	if c.Input.PulseMs == 0 {
		c.Input.PulseMs = 100
	}
}

// Validate checks the configuration as a whole. The first problem found is
// returned.
func (c *Config) Validate() error {
	if c.Chip == "" {
		return fmt.Errorf("config: chip must be set")
	}
	if c.HeartbeatMs < 0 {
		return fmt.Errorf("config: heartbeat_ms must not be negative")
	}
	if c.Input.DevicePath == "" || c.Input.DeviceName == "" {
		return fmt.Errorf("config: input device path and name must be set")
	}
	if c.Input.PulseMs <= 0 {
		return fmt.Errorf("config: input pulse_ms must be positive")
	}
	if len(c.Buttons) == 0 {
		return fmt.Errorf("config: no buttons configured")
	}

	groups := make(map[string]GroupConfig)
	for _, g := range c.Groups {
		if g.Name == "" {
			return fmt.Errorf("config: group without a name")
		}
		if _, dup := groups[g.Name]; dup {
			return fmt.Errorf("config: duplicate group %q", g.Name)
		}
		if g.LongPressMs <= 0 {
			return fmt.Errorf("config: group %q: long_press_ms must be positive", g.Name)
		}
		groups[g.Name] = g
	}

	lines := make(map[int]string)
	codes := make(map[string]string)
	for _, b := range c.Buttons {
		if b.Name == "" {
			return fmt.Errorf("config: button on line %d without a name", b.Line)
		}
		if b.Line < 0 {
			return fmt.Errorf("config: button %q: negative line", b.Name)
		}
		if prev, dup := lines[b.Line]; dup {
			return fmt.Errorf("config: buttons %q and %q share line %d", prev, b.Name, b.Line)
		}
		lines[b.Line] = b.Name

		class, err := keys.ParseClass(b.Class)
		if err != nil {
			return fmt.Errorf("config: button %q: %w", b.Name, err)
		}
		if !class.ValidCode(b.Code) {
			return fmt.Errorf("config: button %q: code %d outside the %s code space", b.Name, b.Code, class)
		}
		key := fmt.Sprintf("%s/%d", class, b.Code)
		if prev, dup := codes[key]; dup {
			return fmt.Errorf("config: buttons %q and %q share %s code %d", prev, b.Name, class, b.Code)
		}
		codes[key] = b.Name

		if b.DebounceMs < 0 {
			return fmt.Errorf("config: button %q: negative debounce_ms", b.Name)
		}
		switch b.Pull {
		case "", "up", "down":
		default:
			return fmt.Errorf("config: button %q: pull must be \"up\", \"down\" or empty", b.Name)
		}

		if b.Group != "" {
			if _, ok := groups[b.Group]; !ok {
				return fmt.Errorf("config: button %q names unknown group %q", b.Name, b.Group)
			}
			if class != keys.ClassKey {
				return fmt.Errorf("config: button %q: only key lines can join a remap group", b.Name)
			}
			if !keys.ClassKey.ValidCode(b.AlternateCode) || b.AlternateCode == 0 {
				return fmt.Errorf("config: button %q: alternate_code %d invalid", b.Name, b.AlternateCode)
			}
		}
	}
	return nil
}

// Heartbeat returns the heartbeat interval.
func (c *Config) Heartbeat() time.Duration {
	return time.Duration(c.HeartbeatMs) * time.Millisecond
}

// PulseWidth returns the synthetic pulse hold time.
func (i InputConfig) PulseWidth() time.Duration {
	return time.Duration(i.PulseMs) * time.Millisecond
}

// Debounce returns the line's settle interval.
func (b ButtonConfig) Debounce() time.Duration {
	return time.Duration(b.DebounceMs) * time.Millisecond
}

// LongPress returns the group's hold duration.
func (g GroupConfig) LongPress() time.Duration {
	return time.Duration(g.LongPressMs) * time.Millisecond
}

// ButtonConfigs converts the configured lines for the registry. Call after
// Validate: unparsable classes are skipped here.
func (c *Config) ButtonConfigs() []button.Config {
	out := make([]button.Config, 0, len(c.Buttons))
	for _, b := range c.Buttons {
		class, err := keys.ParseClass(b.Class)
		if err != nil {
			continue
		}
		out = append(out, button.Config{
			Name:        b.Name,
			Line:        b.Line,
			Class:       class,
			Code:        b.Code,
			ActiveLow:   b.ActiveLow,
			Pull:        b.Pull,
			Debounce:    b.Debounce(),
			Disableable: b.Disableable,
			Wakeup:      b.Wakeup,
			AbsValue:    b.AbsValue,
		})
	}
	return out
}

// RemapGroups assembles the remap groups with their members' alternate
// codes, sorted by name.
func (c *Config) RemapGroups() []remap.Group {
	byName := make(map[string]*remap.Group)
	for _, g := range c.Groups {
		byName[g.Name] = &remap.Group{
			Name: g.Name,
			Policy: remap.Policy{
				Enabled:       boolOr(g.Enabled, true),
				LongPress:     g.LongPress(),
				ScreenOffOnly: boolOr(g.ScreenOffOnly, true),
			},
			Alternate: make(map[int]int),
		}
	}
	for _, b := range c.Buttons {
		if b.Group == "" {
			continue
		}
		if g, ok := byName[b.Group]; ok {
			g.Alternate[b.Code] = b.AlternateCode
		}
	}

	names := make([]string, 0, len(byName))
	for name := range byName {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]remap.Group, 0, len(names))
	for _, name := range names {
		out = append(out, *byName[name])
	}
	return out
}

func boolOr(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}
