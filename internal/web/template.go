package web

import (
	"fmt"
	"html/template"
	"io"
	"log"
	"time"

	"github.com/sweeney/deskbot/internal/status"
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
	"onOff": func(b bool) string {
		if b {
			return "ON"
		}
		return "OFF"
	},
	"mouth": func(r float32) string {
		return fmt.Sprintf("%.2f", r)
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta http-equiv="refresh" content="2">
<title>Deskbot</title>
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
.speech { font-size: 1.2em; }
</style>
</head>
<body>
<h1>Deskbot</h1>

<h2>Playback</h2>
<table>
{{if .Playback.Available}}<tr><th>Status</th><td id="pb-status" class="{{if eq .Playback.Status "PLAYING"}}on{{else}}off{{end}}">{{.Playback.Status}}</td></tr>
<tr><th>Track</th><td id="pb-track">{{.Playback.Track}}</td></tr>
{{else}}<tr><th>Status</th><td id="pb-status" class="unknown">UNAVAILABLE</td></tr>
{{end}}</table>

<h2>Face</h2>
<table>
<tr><th>Mouth</th><td id="mouth">{{mouth .Face.Mouth}}</td></tr>
<tr><th>Speech</th><td id="speech" class="speech">{{.Face.Speech}}</td></tr>
{{if .Face.BatteryIcon}}<tr><th>Battery</th><td id="battery">{{if .Face.Battery.Known}}{{.Face.Battery.Level}}%{{if .Face.Battery.Charging}} (charging){{end}}{{else}}unknown{{end}}</td></tr>
{{end}}<tr><th>Aux rail</th><td class="{{if .Rail}}on{{else}}off{{end}}">{{onOff .Rail}}</td></tr>
<tr><th>Calibrating</th><td>{{if .Calibrating}}yes{{else}}no{{end}}</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
</table>

<h2>Main Cycle</h2>
<table>
<tr><th>Passes</th><td>{{.Counters.Passes}}</td></tr>
<tr><th>Ticks</th><td>{{.Counters.Ticks}}</td></tr>
<tr><th>Catch-up ticks</th><td>{{.Counters.CatchUpTicks}}</td></tr>
<tr><th>Max burst</th><td>{{.Counters.MaxBurst}}</td></tr>
<tr><th>Overloads</th><td>{{.Counters.Overloads}}</td></tr>
<tr><th>Toggles</th><td>{{.Counters.Toggles}}</td></tr>
<tr><th>Skips</th><td>{{.Counters.Skips}}</td></tr>
<tr><th>Songs ended</th><td>{{.Counters.SongsEnded}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Tick</th><td>{{.Config.TickUs}}us</td></tr>
<tr><th>Catch-up budget</th><td>{{if lt .Config.MaxCatchUp 0}}unbounded{{else}}{{.Config.MaxCatchUp}}{{end}}</td></tr>
<tr><th>Songs</th><td>{{.Config.Songs}} in {{.Config.StorageDir}}</td></tr>
<tr><th>MIDI</th><td>{{.Config.MIDIDevice}}</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) {
	data := struct {
		status.Snapshot
		Uptime time.Duration
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
	}
	if err := indexTmpl.Execute(w, data); err != nil {
		log.Printf("web: render: %v", err)
	}
}
