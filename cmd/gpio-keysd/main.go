// Command gpio-keysd turns GPIO button and switch lines into input events.
// Debounced transitions are mirrored onto a virtual keyboard, published to
// MQTT and, for the volume and home groups, remapped to media keys on long
// press while the player is active.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sweeney/gpio-keysd/internal/button"
	"github.com/sweeney/gpio-keysd/internal/config"
	"github.com/sweeney/gpio-keysd/internal/gpio"
	"github.com/sweeney/gpio-keysd/internal/inject"
	"github.com/sweeney/gpio-keysd/internal/input"
	"github.com/sweeney/gpio-keysd/internal/keys"
	"github.com/sweeney/gpio-keysd/internal/mqtt"
	"github.com/sweeney/gpio-keysd/internal/power"
	"github.com/sweeney/gpio-keysd/internal/remap"
	"github.com/sweeney/gpio-keysd/internal/status"
	"github.com/sweeney/gpio-keysd/internal/web"
)

func main() {
	configPath := flag.String("config", "", "Path to TOML config file (built-in defaults when empty)")
	broker := flag.String("broker", "", "MQTT broker address (overrides config)")
	httpAddr := flag.String("http", "", "HTTP control address (overrides config)")
	chip := flag.String("chip", "", "GPIO chip name (overrides config)")
	printState := flag.Bool("print-state", false, "Print current button states and exit")
	noInhibit := flag.Bool("no-inhibit", false, "Do not take the logind key-handling inhibitor lock")

	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("fatal: %v", err)
	}
	if *broker != "" {
		cfg.MQTT.Broker = *broker
	}
	if *httpAddr != "" {
		cfg.HTTP.Addr = *httpAddr
	}
	if *chip != "" {
		cfg.Chip = *chip
	}

	if err := run(cfg, *printState, *noInhibit); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func run(cfg *config.Config, printState, noInhibit bool) error {
	// Request the GPIO chip first; nothing else is useful without it.
	provider, err := gpio.NewChip(cfg.Chip)
	if err != nil {
		return fmt.Errorf("open gpio chip: %w", err)
	}
	defer provider.Close()

	// Print state mode
	if printState {
		return printButtonState(provider, cfg)
	}

	keyboard, err := input.NewVirtualKeyboard(cfg.Input.DevicePath, cfg.Input.DeviceName)
	if err != nil {
		return fmt.Errorf("create virtual keyboard: %w", err)
	}
	defer keyboard.Close()

	injector := inject.New(keyboard, cfg.Input.PulseWidth())

	// The power phase feeds the remap layer and the wake-time resync.
	// Without logind the daemon still works, pinned to ACTIVE.
	phaseCh := make(chan power.Phase, 4)
	var monitor power.Monitor
	if lm, err := power.NewLogindMonitor(func(p power.Phase) {
		select {
		case phaseCh <- p:
		default:
		}
	}); err != nil {
		log.Printf("logind unavailable, assuming ACTIVE: %v", err)
		monitor = power.NewStaticMonitor(power.Active)
	} else {
		monitor = lm
	}
	defer monitor.Close()

	engine := remap.NewEngine(injector, monitor, cfg.RemapGroups())

	// Initialize MQTT
	publisher, err := mqtt.NewRealPublisher(mqtt.Options{
		Broker:   cfg.MQTT.Broker,
		ClientID: cfg.MQTT.ClientID,
		Username: cfg.MQTT.Username,
		Password: cfg.MQTT.Password,
	})
	if err != nil {
		return fmt.Errorf("init mqtt: %w", err)
	}
	defer publisher.Close()

	// Initialize status tracker (before STARTUP so a snapshot is available)
	tracker := status.NewTracker(time.Now(), status.Config{
		Chip:        cfg.Chip,
		Buttons:     len(cfg.Buttons),
		HeartbeatMs: int64(cfg.HeartbeatMs),
		PulseMs:     int64(cfg.Input.PulseMs),
		Broker:      cfg.MQTT.Broker,
		HTTPPort:    cfg.HTTP.Addr,
	})
	tracker.SetPower(string(monitor.Phase()))
	tracker.SetMQTTConnected(publisher.IsConnected())
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}

	var gate button.PowerGate
	if !noInhibit {
		gate = power.NewInhibitor("handle-power-key:handle-lid-switch", "gpio-keysd", "buttons handled in userspace")
	}

	sink := keys.Fanout{
		keys.SinkFunc(func(ev keys.Event) error {
			log.Printf("event: %s %s (code %d)", ev.Name, keys.StateString(ev.Pressed), ev.Code)
			return nil
		}),
		input.NewKeySink(keyboard),
		tracker.Sink(),
		mqtt.EventSink(publisher),
	}

	registry, err := button.NewRegistry(provider, cfg.ButtonConfigs(), button.Deps{
		Sink:        sink,
		Injector:    injector,
		Interceptor: engine,
		Gate:        gate,
	})
	if err != nil {
		return fmt.Errorf("set up buttons: %w", err)
	}
	defer registry.Close()

	injector.SetNotify(func(code int) {
		engine.PulseFinished(code)
		tracker.RecordPulse()
	})
	engine.SetOnDrop(tracker.RecordPulseDrop)

	// Report lines that are already active, such as a switch held closed
	// across a restart.
	registry.Resync()
	syncMasks(tracker, registry)

	// Publish startup event announcing the running configuration
	startupEvent := mqtt.SystemEvent{
		Timestamp: time.Now(),
		Event:     "STARTUP",
		Retained:  true,
		Config: &mqtt.SystemConfig{
			Chip:        cfg.Chip,
			Buttons:     len(cfg.Buttons),
			HeartbeatMs: cfg.HeartbeatMs,
			Broker:      cfg.MQTT.Broker,
		},
	}
	if err := publisher.PublishSystem(startupEvent); err != nil {
		log.Printf("failed to publish startup event: %v", err)
	} else {
		log.Printf("published startup event")
	}

	// Start HTTP control server
	if cfg.HTTP.Addr != "" {
		srv := web.New(cfg.HTTP.Addr, tracker, registry, injector)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http control server listening on %s", cfg.HTTP.Addr)
	}

	log.Printf("started: chip=%s buttons=%d broker=%s heartbeat=%v",
		cfg.Chip, len(cfg.Buttons), cfg.MQTT.Broker, cfg.Heartbeat())

	var tick <-chan time.Time
	if hb := cfg.Heartbeat(); hb > 0 {
		ticker := time.NewTicker(hb)
		defer ticker.Stop()
		tick = ticker.C
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return runLoop(registry, publisher, publisher, tracker, monitor.Phase(), phaseCh, time.Now, tick, sigCh)
}

func runLoop(registry *button.Registry, publisher mqtt.Publisher, mqttStatus mqtt.ConnectionStatus, tracker *status.Tracker, phase power.Phase, phases <-chan power.Phase, now func() time.Time, tick <-chan time.Time, sig <-chan os.Signal) error {
	for {
		select {
		case s := <-sig:
			log.Printf("received %v, shutting down", s)
			signalName := "UNKNOWN"
			if s == syscall.SIGINT {
				signalName = "SIGINT"
			} else if s == syscall.SIGTERM {
				signalName = "SIGTERM"
			}
			event := mqtt.SystemEvent{
				Timestamp: now(),
				Event:     "SHUTDOWN",
				Reason:    signalName,
				Retained:  true,
			}
			if tracker != nil {
				if mqttStatus != nil {
					tracker.SetMQTTConnected(mqttStatus.IsConnected())
				}
				snap := tracker.Snapshot()
				event.RawPayload = status.FormatStatusEvent(snap, "SHUTDOWN", signalName)
			}
			if err := publisher.PublishSystem(event); err != nil {
				log.Printf("failed to publish shutdown event: %v", err)
			} else {
				log.Printf("published shutdown event")
			}
			return nil

		case p := <-phases:
			log.Printf("power phase: %s", p)
			if tracker != nil {
				tracker.SetPower(string(p))
			}
			// Lines may have moved while the system was suspended and
			// events could not flow. Catch up on the way out.
			if registry != nil && phase == power.Asleep && p != power.Asleep {
				registry.Resync()
			}
			phase = p

		case <-tick:
			hbEvent := mqtt.SystemEvent{
				Timestamp: now(),
				Event:     "HEARTBEAT",
			}
			if tracker != nil {
				if mqttStatus != nil {
					tracker.SetMQTTConnected(mqttStatus.IsConnected())
				}
				// Refresh network info for heartbeat
				if net := readNetworkInfo(); net != nil {
					tracker.SetNetwork(net)
				}
				if registry != nil {
					syncMasks(tracker, registry)
				}
				snap := tracker.Snapshot()
				log.Printf("heartbeat: uptime=%v presses=%d releases=%d pulses=%d",
					snap.Uptime().Round(time.Second), snap.Counts.KeyPresses, snap.Counts.KeyReleases, snap.Counts.Pulses)
				hbEvent.RawPayload = status.FormatStatusEvent(snap, "HEARTBEAT", "")
			}
			if err := publisher.PublishSystem(hbEvent); err != nil {
				log.Printf("heartbeat publish error: %v", err)
			}
		}
	}
}

// syncMasks refreshes the mask strings shown in status output.
func syncMasks(tracker *status.Tracker, registry *button.Registry) {
	tracker.SetDisabledKeys(registry.DisabledCodes(keys.ClassKey))
	tracker.SetDisabledSwitches(registry.DisabledCodes(keys.ClassSwitch))
	tracker.SetWakeupKeys(registry.WakeupCodes())
}

// printButtonState requests the configured lines, evaluates their current
// levels and prints one row per button.
func printButtonState(provider gpio.Provider, cfg *config.Config) error {
	discard := keys.SinkFunc(func(keys.Event) error { return nil })
	registry, err := button.NewRegistry(provider, cfg.ButtonConfigs(), button.Deps{
		Sink:     discard,
		Injector: inject.New(input.NewFakeKeyboard(), 0),
	})
	if err != nil {
		return fmt.Errorf("set up buttons: %w", err)
	}
	defer registry.Close()

	registry.Resync()
	registry.WaitIdle()
	for _, b := range registry.Buttons() {
		fmt.Printf("%s: %s (line %d, %s code %d)\n", b.Name, stateString(b.Pressed), b.Line, b.Class, b.Code)
	}
	return nil
}

func stateString(pressed bool) string {
	if pressed {
		return "PRESSED"
	}
	return "RELEASED"
}

// pi-helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

func readNetworkInfo() *status.NetworkInfo {
	s := os.Getenv(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       os.Getenv(envNetworkType),
		IP:         os.Getenv(envNetworkIP),
		Status:     s,
		Gateway:    os.Getenv(envNetworkGateway),
		WifiStatus: os.Getenv(envNetworkWifiStatus),
		SSID:       os.Getenv(envNetworkWifiSSID),
	}
}
