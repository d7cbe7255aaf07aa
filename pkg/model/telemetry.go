package model

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Battery is the battery sensor block of a telemetry packet.
type Battery struct {
	ChargePercent *float64 `json:"charge_percent,omitempty"`
	Charge        *float64 `json:"charge,omitempty"` // older senders
	Charging      *bool    `json:"charging,omitempty"`
	Temperature   *float64 `json:"temperature,omitempty"`
}

// Percent returns charge_percent, falling back to charge.
func (b *Battery) Percent() *float64 {
	if b == nil {
		return nil
	}
	if b.ChargePercent != nil {
		return b.ChargePercent
	}
	return b.Charge
}

// Location is a position fix; speed is m/s and bearing degrees.
type Location struct {
	Latitude   *float64 `json:"latitude,omitempty"`
	Longitude  *float64 `json:"longitude,omitempty"`
	Altitude   *float64 `json:"altitude,omitempty"`
	Speed      *float64 `json:"speed,omitempty"`
	Bearing    *float64 `json:"bearing,omitempty"`
	Accuracy   *float64 `json:"accuracy,omitempty"`
	LastUpdate *float64 `json:"last_update,omitempty"`
}

// HasFix reports whether both coordinates are present.
func (l *Location) HasFix() bool {
	return l != nil && l.Latitude != nil && l.Longitude != nil
}

// Appearance is the icon and colours a peer advertises. Senders use either
// {"icon","fg","bg"} or the LXMF list form [icon, fg, bg].
type Appearance struct {
	Icon       string `json:"icon,omitempty"`
	Foreground string `json:"fg,omitempty"`
	Background string `json:"bg,omitempty"`
}

func (a *Appearance) UnmarshalJSON(b []byte) error {
	*a = Appearance{}
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	var list []json.RawMessage
	if err := json.Unmarshal(b, &list); err == nil {
		fields := []*string{&a.Icon, &a.Foreground, &a.Background}
		for i := 0; i < len(list) && i < len(fields); i++ {
			*fields[i] = rawText(list[i])
		}
		return nil
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(b, &obj); err != nil {
		return nil // unknown shape: keep zero value
	}
	a.Icon = rawText(obj["icon"])
	a.Foreground = rawText(obj["fg"])
	a.Background = rawText(obj["bg"])
	return nil
}

// Information is the free-form "information" block (cpu, ram, disk, uptime...).
// A bare string is stored under "text".
type Information map[string]string

func (in *Information) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*in = nil
		return nil
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(b, &obj); err == nil {
		out := make(Information, len(obj))
		for k, v := range obj {
			out[k] = rawText(v)
		}
		*in = out
		return nil
	}
	*in = Information{"text": rawText(b)}
	return nil
}

func (in Information) CPU() string    { return in["cpu"] }
func (in Information) RAM() string    { return in["ram"] }
func (in Information) Disk() string   { return in["disk"] }
func (in Information) Uptime() string { return in["uptime"] }

// rawText renders a JSON value as text: strings are unquoted, everything else kept as written.
func rawText(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

// TelemetryFragment is a partial telemetry update; nil fields are not carried.
type TelemetryFragment struct {
	Timestamp   *float64    `json:"timestamp,omitempty"`
	Battery     *Battery    `json:"battery,omitempty"`
	Location    *Location   `json:"location,omitempty"`
	Appearance  *Appearance `json:"appearance,omitempty"`
	Information Information `json:"information,omitempty"`
	Pressure    *float64    `json:"pressure,omitempty"`
	Temperature *float64    `json:"temperature,omitempty"`
	Humidity    *float64    `json:"humidity,omitempty"`
}

// Empty reports whether the fragment carries no telemetry field.
func (f TelemetryFragment) Empty() bool {
	return f.Battery == nil && f.Location == nil && f.Appearance == nil && f.Information == nil &&
		f.Pressure == nil && f.Temperature == nil && f.Humidity == nil
}

// HistoryEntry is one point of a peer's telemetry history.
type HistoryEntry struct {
	Timestamp float64   `json:"timestamp"`
	Battery   *float64  `json:"battery,omitempty"` // charge percent
	Location  *Location `json:"location,omitempty"`
}

// TelemetryRecord is the latest known state of a peer plus its recent history (newest first).
type TelemetryRecord struct {
	Battery     *Battery       `json:"battery"`
	Location    *Location      `json:"location"`
	Appearance  *Appearance    `json:"appearance"`
	Information Information    `json:"information"`
	Pressure    *float64       `json:"pressure"`
	Temperature *float64       `json:"temperature"`
	Humidity    *float64       `json:"humidity"`
	LastUpdate  float64        `json:"last_update"`
	History     []HistoryEntry `json:"history"`
}

// Signal is the radio quality attached to a history sample.
type Signal struct {
	RSSI    *float64 `json:"rssi,omitempty"`
	SNR     *float64 `json:"snr,omitempty"`
	Quality *float64 `json:"quality,omitempty"`
	Hops    *float64 `json:"hops,omitempty"`
}

// Environment holds ambient sensor readings of a history sample.
type Environment struct {
	Temperature *float64 `json:"temperature,omitempty"`
	Humidity    *float64 `json:"humidity,omitempty"`
	Pressure    *float64 `json:"pressure,omitempty"`
}

// TelemetrySample is one row of /api/telemetry/history.
type TelemetrySample struct {
	Timestamp   float64      `json:"timestamp"`
	Location    *Location    `json:"location,omitempty"`
	Signal      *Signal      `json:"signal,omitempty"`
	Battery     *Battery     `json:"battery,omitempty"`
	Environment *Environment `json:"environment,omitempty"`
}

// FlexString decodes a JSON string or number into a string.
type FlexString string

func (f *FlexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	if v, err := strconv.ParseFloat(string(b), 64); err == nil {
		*f = FlexString(strconv.FormatFloat(v, 'f', -1, 64))
		return nil
	}
	*f = FlexString(b)
	return nil
}
