package telemetry

import (
	"regexp"
	"strings"
)

// ContentKind is how a message body should be presented.
type ContentKind string

const (
	KindText       ContentKind = "text"
	KindTelemetry  ContentKind = "telemetry"  // TelemetryBot status report
	KindStructured ContentKind = "structured" // several key: value lines
	KindWrapped    ContentKind = "wrapped"    // long prose split into short lines
)

// Content is a classified message body.
type Content struct {
	Kind  ContentKind       `json:"kind"`
	Data  map[string]string `json:"data,omitempty"`
	Lines []string          `json:"lines,omitempty"`
	Raw   string            `json:"raw"`
}

const wrapWidth = 40

var (
	uptimeRe = regexp.MustCompile(`Uptime:\s*([^ ]+\s+[^ ]+)`)
	cpuRe    = regexp.MustCompile(`CPU:\s*([0-9.]+%)`)
	ramRe    = regexp.MustCompile(`RAM:\s*([0-9.]+%)`)
	diskRe   = regexp.MustCompile(`Disk:\s*([0-9.]+%)`)
	netRe    = regexp.MustCompile(`Net sent:\s*([0-9]+) KB,\s*recv:\s*([0-9]+) KB`)
)

// Classify inspects a message body and extracts what a renderer needs.
func Classify(text string) Content {
	if strings.Contains(text, "Uptime:") && strings.Contains(text, "CPU:") && strings.Contains(text, "RAM:") {
		data := map[string]string{}
		for key, re := range map[string]*regexp.Regexp{"uptime": uptimeRe, "cpu": cpuRe, "ram": ramRe, "disk": diskRe} {
			if m := re.FindStringSubmatch(text); len(m) == 2 {
				data[key] = m[1]
			}
		}
		if m := netRe.FindStringSubmatch(text); len(m) == 3 {
			data["net_sent"] = m[1]
			data["net_recv"] = m[2]
		}
		return Content{Kind: KindTelemetry, Data: data, Raw: text}
	}

	if strings.Contains(text, ":") {
		data := map[string]string{}
		for _, line := range strings.Split(text, "\n") {
			key, value, ok := strings.Cut(line, ":")
			if !ok {
				continue
			}
			key = strings.TrimSpace(key)
			value = strings.TrimSpace(value)
			if key != "" && value != "" && !strings.Contains(key, " ") && len(value) < 50 {
				data[key] = value
			}
		}
		if len(data) > 1 {
			return Content{Kind: KindStructured, Data: data, Raw: text}
		}
	}

	if len(strings.Split(text, " ")) > 10 && len(text) > 80 {
		return Content{Kind: KindWrapped, Lines: wrap(text, wrapWidth), Raw: text}
	}
	return Content{Kind: KindText, Raw: text}
}

func wrap(text string, width int) []string {
	var lines []string
	current := ""
	for _, word := range strings.Split(text, " ") {
		if word == "" {
			continue
		}
		if len(current)+1+len(word) < width {
			if current != "" {
				current += " "
			}
			current += word
			continue
		}
		if current != "" {
			lines = append(lines, current)
		}
		current = word
	}
	if current != "" {
		lines = append(lines, current)
	}
	return lines
}
