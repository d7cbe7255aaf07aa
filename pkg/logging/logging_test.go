package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func TestInitJSONAndLevel(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)
	var buf bytes.Buffer
	InitTo(&buf, "warn", "json")

	log.Info().Msg("hidden")
	log.Warn().Str("peer", "a1").Msg("shown")

	var line map[string]interface{}
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line); err != nil {
		t.Fatalf("want one json line, got %q: %v", buf.String(), err)
	}
	if line["message"] != "shown" || line["peer"] != "a1" {
		t.Fatalf("line = %v", line)
	}
}

func TestInitBadLevelFallsBack(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)
	var buf bytes.Buffer
	InitTo(&buf, "loud", "console")
	if zerolog.GlobalLevel() != zerolog.InfoLevel {
		t.Fatalf("level = %s", zerolog.GlobalLevel())
	}
}
