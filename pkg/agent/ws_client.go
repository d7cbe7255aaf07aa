package agent

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"lxmf-chat/pkg/events"
)

// EventClient follows the event stream of a running agent and reconnects when it drops.
type EventClient struct {
	mu       sync.Mutex
	endpoint string
	token    string
	retry    time.Duration
	handlers map[events.Type]func(events.Event)
	fallback func(events.Event)
}

// NewEventClient builds a client for the agent view API at base (http or https).
func NewEventClient(base, token string) (*EventClient, error) {
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("parse view url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http", "":
		u.Scheme = "ws"
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/api/v1/ws"
	return &EventClient{
		endpoint: u.String(),
		token:    token,
		retry:    5 * time.Second,
		handlers: map[events.Type]func(events.Event){},
	}, nil
}

func (c *EventClient) Endpoint() string { return c.endpoint }

// On registers fn for one event type.
func (c *EventClient) On(t events.Type, fn func(events.Event)) {
	c.mu.Lock()
	c.handlers[t] = fn
	c.mu.Unlock()
}

// OnAny receives events that have no specific handler.
func (c *EventClient) OnAny(fn func(events.Event)) {
	c.mu.Lock()
	c.fallback = fn
	c.mu.Unlock()
}

// Run connects and dispatches events until ctx ends.
func (c *EventClient) Run(ctx context.Context) error {
	for {
		header := http.Header{}
		if c.token != "" {
			header.Set("Authorization", "Bearer "+c.token)
		}
		conn, resp, err := websocket.DefaultDialer.DialContext(ctx, c.endpoint, header)
		if err != nil {
			status := 0
			if resp != nil {
				status = resp.StatusCode
			}
			if status == http.StatusUnauthorized {
				return fmt.Errorf("event stream %s: unauthorized", c.endpoint)
			}
			log.Warn().Err(err).Str("url", c.endpoint).Int("status", status).Msg("ws dial failed")
		} else {
			log.Info().Str("url", c.endpoint).Msg("ws connected")
			c.readLoop(ctx, conn)
			log.Info().Dur("retry", c.retry).Msg("ws disconnected")
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.retry):
		}
	}
}

func (c *EventClient) readLoop(ctx context.Context, conn *websocket.Conn) {
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()
	defer conn.Close()
	for {
		var e events.Event
		if err := conn.ReadJSON(&e); err != nil {
			return
		}
		c.mu.Lock()
		h, ok := c.handlers[e.Type]
		if !ok {
			h = c.fallback
		}
		c.mu.Unlock()
		if h != nil {
			h(e)
		}
	}
}
