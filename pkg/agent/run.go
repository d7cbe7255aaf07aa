package agent

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"lxmf-chat/pkg/api"
	"lxmf-chat/pkg/auth"
	"lxmf-chat/pkg/config"
	"lxmf-chat/pkg/events"
	"lxmf-chat/pkg/export"
	"lxmf-chat/pkg/model"
	"lxmf-chat/pkg/peers"
	"lxmf-chat/pkg/session"
	"lxmf-chat/pkg/store"
	"lxmf-chat/pkg/version"
)

// Run starts the sync engine, its event sinks and the view API, and blocks
// until ctx is cancelled or the view API fails.
func Run(ctx context.Context, cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	tab, err := model.ParseTab(cfg.Session.Tab)
	if err != nil {
		return err
	}
	mode, order, err := peers.ParseSort(cfg.Session.Sort, cfg.Session.Order)
	if err != nil {
		return err
	}
	client, err := NewBackendClient(cfg.Backend)
	if err != nil {
		return fmt.Errorf("backend client: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	hub := api.NewHub()
	defer hub.Close()
	bus := events.NewBus(events.LogSink{}, hub)
	closeSinks, err := addBrokerSinks(bus, cfg.Events)
	if err != nil {
		return err
	}
	defer closeSinks()
	go bus.Run(ctx)

	journal, err := store.Open(ctx, store.Options{
		Driver:      cfg.Journal.Driver,
		DSN:         cfg.Journal.DSN,
		ConsulAddr:  cfg.Consul.Addr,
		ConsulToken: cfg.Consul.Token,
	})
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer journal.Close()

	exporter, err := export.NewWriter(ctx, cfg.Export.Dest)
	if err != nil {
		return fmt.Errorf("export writer: %w", err)
	}

	intervals := session.Intervals{
		Peers:       cfg.Poll.Peers,
		Messages:    cfg.Poll.Messages,
		Stats:       cfg.Poll.Stats,
		Propagation: cfg.Poll.Propagation,
	}
	mgr := session.NewManager(ctx, client, func(id model.Identity) *session.Session {
		return session.New(session.Options{
			Backend:   client,
			Identity:  id,
			Sink:      bus,
			Journal:   journal,
			Intervals: intervals,
			Tab:       tab,
			Sort:      mode,
			Order:     order,
		})
	})
	defer mgr.Close()

	if err := activateInitial(ctx, mgr, cfg.Session.Identity); err != nil {
		return err
	}

	if cfg.Consul.Addr != "" && WatchEnabled() {
		err := StartNudgeWatch(ctx, cfg.Consul.Addr, cfg.Consul.Token, cfg.Consul.NudgeKey, func() {
			if s := mgr.Current(); s != nil {
				s.Nudge()
			}
		})
		if err != nil {
			log.Warn().Err(err).Msg("consul nudge watch disabled")
		}
	}

	authH := &api.AuthHandler{
		PasswordHash: cfg.View.PasswordHash,
		Session: func() string {
			if s := mgr.Current(); s != nil {
				return s.ID()
			}
			return ""
		},
	}
	if cfg.View.AuthEnabled() {
		authH.Issuer = auth.NewIssuer(cfg.View.AuthSecret, cfg.View.TokenTTL)
	}
	router := api.NewRouter(api.Deps{
		Sessions:      mgr,
		Inspector:     client,
		Journal:       journal,
		Exporter:      exporter,
		Hub:           hub,
		Auth:          authH,
		CORSOrigins:   cfg.View.CORSOrigins,
		Logger:        log.Logger,
		BackgroundCtx: ctx,
	})

	log.Info().
		Str("version", version.Build).
		Str("backend", cfg.Backend.URL).
		Str("journal", cfg.Journal.Driver).
		Bool("auth", authH.Enabled()).
		Msg("agent started")
	err = api.Serve(ctx, cfg.View.Listen, router, api.TLSFiles{
		Cert:     cfg.View.TLSCert,
		Key:      cfg.View.TLSKey,
		ClientCA: cfg.View.ClientCA,
	})
	cancel()
	bus.Wait()
	return err
}

// activateInitial starts the first session. With no configured path the
// backend keeps its current identity.
func activateInitial(ctx context.Context, mgr *session.Manager, path string) error {
	if path != "" {
		if _, err := mgr.SelectIdentity(ctx, path); err != nil {
			return err
		}
		return nil
	}
	id := model.Identity{}
	ids, err := mgr.ListIdentities(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("identity list unavailable, using backend default")
	} else if len(ids) > 0 {
		id = ids[0]
	}
	_, err = mgr.Activate(id)
	return err
}

func addBrokerSinks(bus *events.Bus, c config.EventsConfig) (func(), error) {
	var closers []func()
	closeAll := func() {
		for _, fn := range closers {
			fn()
		}
	}
	if c.NATS.URL != "" {
		nc, err := events.DialNATS(events.NATSOptions{
			URL:               c.NATS.URL,
			ReconnectInterval: c.NATS.ReconnectInterval,
			MaxReconnects:     c.NATS.MaxReconnects,
		})
		if err != nil {
			return closeAll, err
		}
		closers = append(closers, func() { _ = nc.Drain() })
		bus.Add(events.NewNATSSink(nc, c.NATS.Prefix))
		log.Info().Str("url", c.NATS.URL).Msg("nats event sink enabled")
	}
	if c.MQTT.Broker != "" {
		mc, err := events.DialMQTT(events.MQTTOptions{
			BrokerURL: c.MQTT.Broker,
			ClientID:  c.MQTT.ClientID,
			Username:  c.MQTT.Username,
			Password:  c.MQTT.Password,
			TLS:       c.MQTT.TLS,
		})
		if err != nil {
			closeAll()
			return func() {}, err
		}
		sink := events.NewMQTTSink(mc, c.MQTT.Prefix, c.MQTT.QoS)
		closers = append(closers, sink.Close)
		bus.Add(sink)
		log.Info().Str("broker", c.MQTT.Broker).Msg("mqtt event sink enabled")
	}
	return closeAll, nil
}
