package agent

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"lxmf-chat/pkg/events"
)

func TestEventClientDispatch(t *testing.T) {
	up := websocket.Upgrader{}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/ws" || r.Header.Get("Authorization") != "Bearer tok" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		c, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer c.Close()
		_ = c.WriteJSON(events.Event{Type: events.UnreadChanged, Payload: []string{"bb22"}})
		_ = c.WriteJSON(events.Event{Type: events.PeersUpdated})
		time.Sleep(100 * time.Millisecond)
	}))
	defer ts.Close()

	c, err := NewEventClient(ts.URL, "tok")
	if err != nil {
		t.Fatal(err)
	}
	unread := make(chan events.Event, 1)
	other := make(chan events.Event, 1)
	c.On(events.UnreadChanged, func(e events.Event) { unread <- e })
	c.OnAny(func(e events.Event) { other <- e })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = c.Run(ctx) }()

	select {
	case e := <-unread:
		if list, _ := e.Payload.([]interface{}); len(list) != 1 {
			t.Fatalf("payload = %#v", e.Payload)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no unread event")
	}
	select {
	case e := <-other:
		if e.Type != events.PeersUpdated {
			t.Fatalf("fallback got %s", e.Type)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("fallback not called")
	}
}

func TestEventClientUnauthorized(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}))
	defer ts.Close()
	c, _ := NewEventClient(ts.URL, "")
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := c.Run(ctx); err == nil || ctx.Err() != nil {
		t.Fatalf("Run = %v, want unauthorized before timeout", err)
	}
}

func TestEventClientEndpoint(t *testing.T) {
	c, _ := NewEventClient("https://host:8686/base/", "")
	if got := c.Endpoint(); got != "wss://host:8686/base/api/v1/ws" {
		t.Fatalf("endpoint = %s", got)
	}
}
