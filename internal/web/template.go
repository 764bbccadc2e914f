package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/gpio-keysd/internal/keys"
	"github.com/sweeney/gpio-keysd/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": func(d time.Duration) string {
		d = d.Truncate(time.Second)
		days := int(d.Hours()) / 24
		h := int(d.Hours()) % 24
		m := int(d.Minutes()) % 60
		s := int(d.Seconds()) % 60
		if days > 0 {
			return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
		}
		if h > 0 {
			return fmt.Sprintf("%dh %dm %ds", h, m, s)
		}
		if m > 0 {
			return fmt.Sprintf("%dm %ds", m, s)
		}
		return fmt.Sprintf("%ds", s)
	},
	"orUnknown": func(s string) string {
		if s == "" {
			return "UNKNOWN"
		}
		return s
	},
	"orNone": func(s string) string {
		if s == "" {
			return "none"
		}
		return s
	},
	"state": keys.StateString,
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>GPIO Keys</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.on { color: green; font-weight: bold; }
.off { color: #888; }
.unknown { color: orange; }
.connected { color: green; }
.disconnected { color: red; }
</style>
</head>
<body>
<h1>GPIO Keys</h1>

<h2>State</h2>
<table>
<tr><th>Power</th><td class="{{if eq (orUnknown .Power) "ACTIVE"}}on{{else if eq (orUnknown .Power) "ASLEEP"}}off{{else}}unknown{{end}}">{{orUnknown .Power}}</td></tr>
<tr><th>Last Event</th><td>{{if .LastEvent}}{{.LastEvent.Name}} {{state .LastEvent.Pressed}} (code {{.LastEvent.Code}}){{else}}none{{end}}</td></tr>
<tr><th>Disabled Keys</th><td>{{orNone .DisabledKeys}}</td></tr>
<tr><th>Disabled Switches</th><td>{{orNone .DisabledSwitches}}</td></tr>
<tr><th>Wakeup Keys</th><td>{{orNone .WakeupKeys}}</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}}, {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>Event Counts</h2>
<table>
<tr><th>Key Presses</th><td>{{.Counts.KeyPresses}}</td></tr>
<tr><th>Key Releases</th><td>{{.Counts.KeyReleases}}</td></tr>
<tr><th>Switch Changes</th><td>{{.Counts.SwitchChanges}}</td></tr>
<tr><th>Pulses</th><td>{{.Counts.Pulses}}</td></tr>
<tr><th>Pulses Dropped</th><td>{{.Counts.PulsesDropped}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Chip</th><td>{{.Config.Chip}}</td></tr>
<tr><th>Lines</th><td>{{.Config.Buttons}}</td></tr>
<tr><th>Pulse Width</th><td>{{.Config.PulseMs}}ms</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPPort}}</td></tr>
</table>

<p><a href="/index.json">JSON</a> | <a href="/keys">keys</a> | <a href="/switches">switches</a> | <a href="/disabled_keys">disabled_keys</a> | <a href="/disabled_switches">disabled_switches</a> | <a href="/wakeup_keys">wakeup_keys</a> | <a href="/keys_pressed">keys_pressed</a> | <a href="/emu">emu</a> | <a href="/ponkey">ponkey</a> | <a href="/routes">routes</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) {
	// Snapshot has Uptime() method but the template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime time.Duration
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
	}
	indexTmpl.Execute(w, data)
}
