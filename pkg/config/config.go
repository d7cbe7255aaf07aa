package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// Config is the agent configuration.
type Config struct {
	Backend BackendConfig `yaml:"backend"`
	Poll    PollConfig    `yaml:"poll"`
	Session SessionConfig `yaml:"session"`
	View    ViewConfig    `yaml:"view"`
	Events  EventsConfig  `yaml:"events"`
	Journal JournalConfig `yaml:"journal"`
	Export  ExportConfig  `yaml:"export"`
	Log     LogConfig     `yaml:"log"`
	Consul  ConsulConfig  `yaml:"consul"`
}

// BackendConfig points at the LXMF chat HTTP backend.
type BackendConfig struct {
	URL      string        `yaml:"url"`
	Token    string        `yaml:"token"`
	Timeout  time.Duration `yaml:"timeout"`
	CAFile   string        `yaml:"ca_file"`
	CertFile string        `yaml:"cert_file"`
	KeyFile  string        `yaml:"key_file"`
	Insecure bool          `yaml:"insecure"`
}

// PollConfig holds the timer intervals.
type PollConfig struct {
	Peers       time.Duration `yaml:"peers"`
	Messages    time.Duration `yaml:"messages"`
	Stats       time.Duration `yaml:"stats"`
	Propagation time.Duration `yaml:"propagation"`
}

// SessionConfig is the initial view state.
type SessionConfig struct {
	Tab      string `yaml:"tab"`
	Sort     string `yaml:"sort"`
	Order    string `yaml:"order"`
	Identity string `yaml:"identity"` // identity path selected at startup, empty keeps the backend's
}

// ViewConfig configures the local view API.
type ViewConfig struct {
	Listen       string        `yaml:"listen"`
	AuthSecret   string        `yaml:"auth_secret"`
	PasswordHash string        `yaml:"password_hash"` // bcrypt
	TokenTTL     time.Duration `yaml:"token_ttl"`
	CORSOrigins  []string      `yaml:"cors_origins"`
	TLSCert      string        `yaml:"tls_cert"`
	TLSKey       string        `yaml:"tls_key"`
	ClientCA     string        `yaml:"client_ca"` // requires client certs when set
}

// AuthEnabled reports whether the view API requires tokens.
func (v ViewConfig) AuthEnabled() bool {
	return v.AuthSecret != "" && v.PasswordHash != ""
}

type EventsConfig struct {
	NATS NATSConfig `yaml:"nats"`
	MQTT MQTTConfig `yaml:"mqtt"`
}

type NATSConfig struct {
	URL               string        `yaml:"url"`
	Prefix            string        `yaml:"prefix"`
	MaxReconnects     int           `yaml:"max_reconnects"`
	ReconnectInterval time.Duration `yaml:"reconnect_interval"`
}

type MQTTConfig struct {
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"client_id"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Prefix   string `yaml:"prefix"`
	QoS      byte   `yaml:"qos"`
	TLS      bool   `yaml:"tls"`
}

// JournalConfig selects the audit journal backend: memory, sqlite, postgres, mysql or consul.
type JournalConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// ExportConfig is a local directory or s3://bucket/prefix.
type ExportConfig struct {
	Dest string `yaml:"dest"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type ConsulConfig struct {
	Addr     string `yaml:"addr"`
	Token    string `yaml:"token"`
	NudgeKey string `yaml:"nudge_key"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Backend: BackendConfig{URL: "http://127.0.0.1:5000", Timeout: 15 * time.Second},
		Poll: PollConfig{
			Peers:       10 * time.Second,
			Messages:    2 * time.Second,
			Stats:       time.Second,
			Propagation: time.Second,
		},
		Session: SessionConfig{Tab: "all", Sort: "time"},
		View:    ViewConfig{Listen: "127.0.0.1:8686", TokenTTL: 24 * time.Hour},
		Events:  EventsConfig{NATS: NATSConfig{Prefix: "lxmf"}, MQTT: MQTTConfig{Prefix: "lxmf"}},
		Journal: JournalConfig{Driver: "memory"},
		Export:  ExportConfig{Dest: "exports"},
		Log:     LogConfig{Level: "info", Format: "console"},
		Consul:  ConsulConfig{NudgeKey: "lxmf-chat/nudge"},
	}
}

// Load reads an optional YAML file over the defaults, then applies .env and
// environment overrides. An empty filename skips the file.
func Load(filename string) (*Config, error) {
	cfg := Default()
	if filename != "" {
		data, err := os.ReadFile(filename)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("unmarshal config: %w", err)
		}
	}
	if err := loadDotEnv(); err != nil {
		log.Warn().Err(err).Msg("load .env")
	}
	cfg.applyEnvOverrides()
	return cfg, nil
}

func loadDotEnv() error {
	if _, err := os.Stat(".env"); err == nil {
		return godotenv.Load(".env")
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	setString(&c.Backend.URL, "LXMF_BACKEND_URL")
	setString(&c.Backend.Token, "LXMF_BACKEND_TOKEN")
	setString(&c.Log.Level, "LXMF_LOG_LEVEL")
	setString(&c.Log.Format, "LXMF_LOG_FORMAT")
	setString(&c.View.Listen, "LXMF_VIEW_LISTEN")
	setString(&c.View.AuthSecret, "LXMF_VIEW_SECRET")
	setString(&c.View.PasswordHash, "LXMF_VIEW_PASSWORD_HASH")
	setString(&c.View.TLSCert, "LXMF_VIEW_TLS_CERT")
	setString(&c.View.TLSKey, "LXMF_VIEW_TLS_KEY")
	setString(&c.View.ClientCA, "LXMF_VIEW_CLIENT_CA")
	setString(&c.Events.NATS.URL, "LXMF_NATS_URL")
	setString(&c.Events.MQTT.Broker, "LXMF_MQTT_BROKER")
	setString(&c.Journal.Driver, "LXMF_JOURNAL_DRIVER")
	setString(&c.Journal.DSN, "LXMF_JOURNAL_DSN")
	setString(&c.Export.Dest, "LXMF_EXPORT_DEST")
	setString(&c.Consul.Addr, "CONSUL_HTTP_ADDR")
	setString(&c.Consul.Token, "CONSUL_HTTP_TOKEN")
	setDuration(&c.Poll.Peers, "LXMF_POLL_PEERS")
	setDuration(&c.Poll.Messages, "LXMF_POLL_MESSAGES")
	setDuration(&c.Poll.Stats, "LXMF_POLL_STATS")
	if v := os.Getenv("LXMF_BACKEND_INSECURE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Backend.Insecure = b
		}
	}
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, key string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Warn().Str("key", key).Str("value", v).Msg("invalid duration, ignored")
		return
	}
	*dst = d
}

var journalDrivers = map[string]bool{"memory": true, "sqlite": true, "postgres": true, "mysql": true, "consul": true}

// Validate rejects configurations the agent cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Backend.URL) == "" {
		errs = append(errs, errors.New("backend.url is required"))
	}
	for name, d := range map[string]time.Duration{
		"poll.peers":       c.Poll.Peers,
		"poll.messages":    c.Poll.Messages,
		"poll.stats":       c.Poll.Stats,
		"poll.propagation": c.Poll.Propagation,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %s", name, d))
		}
	}
	if c.Backend.Timeout < 0 {
		errs = append(errs, errors.New("backend.timeout must not be negative"))
	}
	if !journalDrivers[c.Journal.Driver] {
		errs = append(errs, fmt.Errorf("journal.driver %q is not supported", c.Journal.Driver))
	}
	if c.Journal.Driver != "memory" && c.Journal.Driver != "consul" && c.Journal.DSN == "" {
		errs = append(errs, fmt.Errorf("journal.dsn is required for %s", c.Journal.Driver))
	}
	if (c.View.AuthSecret == "") != (c.View.PasswordHash == "") {
		errs = append(errs, errors.New("view.auth_secret and view.password_hash must be set together"))
	}
	if (c.View.TLSCert == "") != (c.View.TLSKey == "") {
		errs = append(errs, errors.New("view.tls_cert and view.tls_key must be set together"))
	}
	if c.View.ClientCA != "" && c.View.TLSCert == "" {
		errs = append(errs, errors.New("view.client_ca requires view.tls_cert"))
	}
	if c.Events.MQTT.QoS > 2 {
		errs = append(errs, fmt.Errorf("events.mqtt.qos %d out of range", c.Events.MQTT.QoS))
	}
	return errors.Join(errs...)
}
