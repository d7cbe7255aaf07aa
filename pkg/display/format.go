// Package display holds the formatting conventions shared by the CLI and view API.
package display

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// FormatBytes renders a byte count with 1024 steps up to GB.
func FormatBytes(n float64) string {
	if n <= 0 || math.IsNaN(n) {
		return "0 B"
	}
	units := []string{"B", "KB", "MB", "GB"}
	i := int(math.Floor(math.Log(n) / math.Log(1024)))
	if i < 0 {
		i = 0
	}
	if i >= len(units) {
		i = len(units) - 1
	}
	v := n / math.Pow(1024, float64(i))
	return strconv.FormatFloat(math.Round(v*10)/10, 'f', -1, 64) + " " + units[i]
}

// FormatSpeed renders a bytes/s rate as bits per second.
func FormatSpeed(bytesPerSec float64) string {
	if bytesPerSec <= 0 || math.IsNaN(bytesPerSec) {
		return ""
	}
	bits := bytesPerSec * 8
	switch {
	case bits < 1000:
		return fmt.Sprintf("%.1f b/s", bits)
	case bits < 1000000:
		return fmt.Sprintf("%.1f Kb/s", bits/1000)
	default:
		return fmt.Sprintf("%.2f Mb/s", bits/1000000)
	}
}

// FormatElapsed renders a duration in seconds as "12.5s", "3m 4s" or "2h 5m".
func FormatElapsed(seconds float64) string {
	if seconds <= 0 || math.IsNaN(seconds) {
		return ""
	}
	if seconds < 60 {
		return fmt.Sprintf("%.1fs", seconds)
	}
	s := int(seconds)
	if seconds < 3600 {
		return fmt.Sprintf("%dm %ds", s/60, s%60)
	}
	return fmt.Sprintf("%dh %dm", s/3600, (s%3600)/60)
}

// TimeAgo renders a unix timestamp relative to now.
func TimeAgo(ts float64, now time.Time) string {
	if ts <= 0 {
		return "unknown"
	}
	secs := int64(math.Floor(float64(now.UnixMilli())/1000 - ts))
	switch {
	case secs < 60:
		return "now"
	case secs < 3600:
		return fmt.Sprintf("%dm ago", secs/60)
	case secs < 86400:
		return fmt.Sprintf("%dh ago", secs/3600)
	default:
		return fmt.Sprintf("%dd ago", secs/86400)
	}
}

// Signal quality classes.
const (
	SignalGood = "good"
	SignalFair = "fair"
	SignalPoor = "poor"
)

// RSSIClass grades an RSSI in dBm.
func RSSIClass(v *float64) string {
	if v == nil {
		return ""
	}
	switch {
	case *v > -70:
		return SignalGood
	case *v > -85:
		return SignalFair
	}
	return SignalPoor
}

// SNRClass grades an SNR in dB.
func SNRClass(v *float64) string {
	if v == nil {
		return ""
	}
	switch {
	case *v > 15:
		return SignalGood
	case *v > 8:
		return SignalFair
	}
	return SignalPoor
}

var (
	controlChars = regexp.MustCompile("[\x00-\x08\x0B\x0C\x0E-\x1F\x7F]")
	spaces       = regexp.MustCompile(`\s+`)
)

// CleanDisplayName strips control characters and collapses whitespace.
func CleanDisplayName(name string) string {
	name = controlChars.ReplaceAllString(name, "")
	name = strings.TrimSpace(spaces.ReplaceAllString(name, " "))
	if name == "" {
		return "Unknown"
	}
	return name
}

// ShortHash returns the first n characters of a hash.
func ShortHash(h string, n int) string {
	if len(h) <= n {
		return h
	}
	return h[:n]
}
