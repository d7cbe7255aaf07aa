package events

import (
	"crypto/tls"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

// Publisher is the subset of *nats.Conn the NATS sink needs.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// NATSSink publishes each event to <prefix>.<type>.
type NATSSink struct {
	pub    Publisher
	prefix string
}

func NewNATSSink(pub Publisher, prefix string) *NATSSink {
	if prefix == "" {
		prefix = "lxmf"
	}
	return &NATSSink{pub: pub, prefix: prefix}
}

func (s *NATSSink) Subject(t Type) string {
	return s.prefix + "." + string(t)
}

func (s *NATSSink) Publish(e Event) {
	data, err := e.Encode()
	if err != nil {
		log.Error().Err(err).Str("type", string(e.Type)).Msg("encode event")
		return
	}
	if err := s.pub.Publish(s.Subject(e.Type), data); err != nil {
		log.Warn().Err(err).Str("subject", s.Subject(e.Type)).Msg("nats publish failed")
	}
}

// NATSOptions controls the broker connection.
type NATSOptions struct {
	URL               string
	ReconnectInterval time.Duration
	MaxReconnects     int
}

// DialNATS connects with reconnect handling.
func DialNATS(o NATSOptions) (*nats.Conn, error) {
	if o.ReconnectInterval <= 0 {
		o.ReconnectInterval = 2 * time.Second
	}
	if o.MaxReconnects == 0 {
		o.MaxReconnects = -1
	}
	nc, err := nats.Connect(o.URL,
		nats.Name("lxmf-agent"),
		nats.ReconnectWait(o.ReconnectInterval),
		nats.MaxReconnects(o.MaxReconnects),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn().Err(err).Msg("nats disconnected")
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info().Str("url", c.ConnectedUrl()).Msg("nats reconnected")
		}))
	if err != nil {
		return nil, fmt.Errorf("connect nats %s: %w", o.URL, err)
	}
	return nc, nil
}

// MQTTSink publishes each event to <prefix>/<type>.
type MQTTSink struct {
	client  mqtt.Client
	prefix  string
	qos     byte
	timeout time.Duration
}

func NewMQTTSink(client mqtt.Client, prefix string, qos byte) *MQTTSink {
	if prefix == "" {
		prefix = "lxmf"
	}
	return &MQTTSink{client: client, prefix: strings.TrimSuffix(prefix, "/"), qos: qos, timeout: 5 * time.Second}
}

func (s *MQTTSink) Topic(t Type) string {
	return s.prefix + "/" + string(t)
}

func (s *MQTTSink) Publish(e Event) {
	if !s.client.IsConnected() {
		log.Debug().Str("type", string(e.Type)).Msg("mqtt not connected, event skipped")
		return
	}
	data, err := e.Encode()
	if err != nil {
		log.Error().Err(err).Str("type", string(e.Type)).Msg("encode event")
		return
	}
	token := s.client.Publish(s.Topic(e.Type), s.qos, false, data)
	if !token.WaitTimeout(s.timeout) {
		log.Warn().Str("topic", s.Topic(e.Type)).Msg("mqtt publish timed out")
		return
	}
	if err := token.Error(); err != nil {
		log.Warn().Err(err).Str("topic", s.Topic(e.Type)).Msg("mqtt publish failed")
	}
}

func (s *MQTTSink) Close() {
	if s.client.IsConnected() {
		s.client.Disconnect(250)
	}
}

// MQTTOptions controls the broker connection.
type MQTTOptions struct {
	BrokerURL string
	ClientID  string
	Username  string
	Password  string
	TLS       bool
}

// DialMQTT connects an auto-reconnecting client.
func DialMQTT(o MQTTOptions) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(o.BrokerURL)
	if o.ClientID == "" {
		o.ClientID = "lxmf-agent"
	}
	opts.SetClientID(o.ClientID)
	if o.Username != "" {
		opts.SetUsername(o.Username)
		opts.SetPassword(o.Password)
	}
	if o.TLS {
		opts.SetTLSConfig(&tls.Config{MinVersion: tls.VersionTLS12})
	}
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectTimeout(10 * time.Second)
	opts.SetKeepAlive(30 * time.Second)
	opts.SetOnConnectHandler(func(mqtt.Client) {
		log.Info().Str("broker", o.BrokerURL).Msg("mqtt connected")
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		log.Error().Err(err).Str("broker", o.BrokerURL).Msg("mqtt connection lost")
	})

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("connect mqtt %s: timeout", o.BrokerURL)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect mqtt %s: %w", o.BrokerURL, err)
	}
	return client, nil
}
