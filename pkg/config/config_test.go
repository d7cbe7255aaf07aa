package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadFileOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "agent.yaml")
	body := `
backend:
  url: http://10.0.0.2:5000
poll:
  messages: 500ms
session:
  tab: favorites
journal:
  driver: sqlite
  dsn: /tmp/journal.db
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Backend.URL != "http://10.0.0.2:5000" || cfg.Poll.Messages != 500*time.Millisecond {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.Poll.Peers != 10*time.Second || cfg.Poll.Stats != time.Second {
		t.Fatalf("defaults lost: %+v", cfg.Poll)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("LXMF_BACKEND_URL", "http://env:1")
	t.Setenv("LXMF_POLL_PEERS", "3s")
	t.Setenv("LXMF_LOG_LEVEL", "debug")
	t.Setenv("LXMF_POLL_STATS", "soon")
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Backend.URL != "http://env:1" || cfg.Poll.Peers != 3*time.Second || cfg.Log.Level != "debug" {
		t.Fatalf("env not applied: %+v", cfg)
	}
	if cfg.Poll.Stats != time.Second {
		t.Fatalf("bad duration should be ignored, got %s", cfg.Poll.Stats)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"defaults", func(*Config) {}, ""},
		{"empty backend", func(c *Config) { c.Backend.URL = " " }, "backend.url"},
		{"zero interval", func(c *Config) { c.Poll.Messages = 0 }, "poll.messages"},
		{"negative interval", func(c *Config) { c.Poll.Peers = -time.Second }, "poll.peers"},
		{"unknown journal", func(c *Config) { c.Journal.Driver = "redis" }, "journal.driver"},
		{"journal dsn", func(c *Config) { c.Journal.Driver = "postgres" }, "journal.dsn"},
		{"half auth", func(c *Config) { c.View.AuthSecret = "s" }, "view.auth_secret"},
		{"qos", func(c *Config) { c.Events.MQTT.QoS = 3 }, "qos"},
		{"half tls", func(c *Config) { c.View.TLSKey = "k.pem" }, "view.tls_cert"},
		{"client ca without tls", func(c *Config) { c.View.ClientCA = "ca.pem" }, "view.client_ca"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			err := cfg.Validate()
			if tc.want == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("err = %v, want mention of %s", err, tc.want)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("missing file should error")
	}
}
