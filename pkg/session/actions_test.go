package session

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"lxmf-chat/pkg/backend"
	"lxmf-chat/pkg/events"
	"lxmf-chat/pkg/model"
)

func TestSendValidation(t *testing.T) {
	fb := newFake()
	s, _ := newTestSession(t, fb)
	ctx := context.Background()

	if err := s.Send(ctx, "hello"); !errors.Is(err, ErrNoPeerSelected) {
		t.Fatalf("no selection: %v", err)
	}
	fb.peers[model.TabAll] = []model.Peer{peerA}
	_ = s.RefreshPeers(ctx)
	if err := s.Send(ctx, "  \n"); !errors.Is(err, ErrEmptyMessage) {
		t.Fatalf("empty: %v", err)
	}
	if len(fb.sent) != 0 {
		t.Fatal("invalid sends reached the backend")
	}
}

func TestSendRefreshesAndAudits(t *testing.T) {
	fb := newFake()
	fb.peers[model.TabAll] = []model.Peer{peerA}
	fb.messages = inbox()
	j := &memJournal{}
	rec := &events.Recorder{}
	s := New(Options{Backend: fb, Sink: rec, Journal: j})
	defer s.Close()
	ctx := context.Background()
	_ = s.RefreshPeers(ctx)
	_ = s.RefreshMessages(ctx)
	rebuilds := s.TransferRebuilds()

	if err := s.Send(ctx, "ping"); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(fb.sent, []string{"ping"}) || fb.sentTo[0] != "aa11" {
		t.Fatalf("sent = %v to %v", fb.sent, fb.sentTo)
	}
	if s.TransferRebuilds() != rebuilds+1 {
		t.Fatal("send should force a fresh apply of the thread")
	}
	if rec.Count(events.MessageSent) != 1 {
		t.Fatalf("events = %v", rec.Types())
	}
	if got := j.actions(); !reflect.DeepEqual(got, []string{"send"}) {
		t.Fatalf("audit = %v", got)
	}
}

func TestRetry(t *testing.T) {
	fb := newFake()
	fb.peers[model.TabAll] = []model.Peer{peerA}
	msgs := inbox()
	msgs = append(msgs, model.Message{Timestamp: 20, Direction: model.Outgoing, From: "self", To: "aa11", Content: "lost", Status: model.StatusFailed})
	fb.messages = msgs
	s, _ := newTestSession(t, fb)
	ctx := context.Background()
	_ = s.RefreshPeers(ctx)
	_ = s.RefreshMessages(ctx)

	if err := s.Retry(ctx, 12); !errors.Is(err, ErrNotRetryable) {
		t.Fatalf("sending message retried: %v", err)
	}
	if err := s.Retry(ctx, 99); !errors.Is(err, ErrNotRetryable) {
		t.Fatalf("missing message retried: %v", err)
	}
	if err := s.Retry(ctx, 20); err != nil {
		t.Fatal(err)
	}
	if len(fb.sent) != 1 || fb.sent[0] != "lost" {
		t.Fatalf("sent = %v", fb.sent)
	}
}

func TestSendFileUsesSelection(t *testing.T) {
	fb := newFake()
	fb.peers[model.TabAll] = []model.Peer{peerA}
	s, _ := newTestSession(t, fb)
	ctx := context.Background()
	_ = s.RefreshPeers(ctx)

	err := s.SendFile(ctx, backend.FileUpload{FileName: "a.ogg", Body: strings.NewReader("x")})
	if err != nil {
		t.Fatal(err)
	}
	if fb.sentTo[0] != "aa11" {
		t.Fatalf("destination = %s", fb.sentTo[0])
	}
	if err := s.SendFile(ctx, backend.FileUpload{FileName: "a.ogg"}); err == nil {
		t.Fatal("missing body accepted")
	}
}

func TestToggleFavoriteReloadsFavoritesTab(t *testing.T) {
	fb := newFake()
	fav := peerA
	fav.Favorite = true
	fb.peers[model.TabFavorites] = []model.Peer{fav}
	s, _ := newTestSession(t, fb)
	ctx := context.Background()
	if err := s.SetTab(ctx, model.TabFavorites); err != nil {
		t.Fatal(err)
	}
	calls := fb.peerCalls

	fb.mu.Lock()
	fb.favorite = false
	fb.peers[model.TabFavorites] = nil
	fb.mu.Unlock()
	got, err := s.ToggleFavorite(ctx, "id-a")
	if err != nil || got {
		t.Fatalf("toggle = %v, %v", got, err)
	}
	if fb.peerCalls != calls+1 {
		t.Fatal("unfavoriting on the favorites tab should reload the roster")
	}
	if len(s.Peers()) != 0 {
		t.Fatalf("roster = %+v", s.Peers())
	}
}

func TestToggleFavoriteUpdatesLocally(t *testing.T) {
	fb := newFake()
	fb.peers[model.TabAll] = []model.Peer{peerA, peerB}
	fb.favorite = true
	s, _ := newTestSession(t, fb)
	ctx := context.Background()
	_ = s.RefreshPeers(ctx)
	calls := fb.peerCalls

	if _, err := s.ToggleFavorite(ctx, "<BB:22>"); err != nil {
		t.Fatal(err)
	}
	if fb.peerCalls != calls {
		t.Fatal("all tab should not reload")
	}
	for _, p := range s.Peers() {
		if p.IdentityHash == "id-b" && !p.Favorite {
			t.Fatal("favorite flag not applied")
		}
		if p.IdentityHash == "id-a" && p.Favorite {
			t.Fatal("wrong peer flagged")
		}
	}
}

func TestToggleGroup(t *testing.T) {
	fb := newFake()
	fb.peers[model.TabAll] = []model.Peer{peerA}
	fb.groups, fb.added = []string{"work"}, true
	s, _ := newTestSession(t, fb)
	ctx := context.Background()
	_ = s.RefreshPeers(ctx)

	groups, err := s.ToggleGroup(ctx, "id-a", "work")
	if err != nil || !reflect.DeepEqual(groups, []string{"work"}) {
		t.Fatalf("groups = %v, %v", groups, err)
	}
	sel, _ := s.Selected()
	if !sel.InGroup("work") || !s.Peers()[0].InGroup("work") {
		t.Fatal("group tag not applied locally")
	}
}

func TestSaveConfigValidates(t *testing.T) {
	fb := newFake()
	s, _ := newTestSession(t, fb)
	ctx := context.Background()

	_, err := s.SaveConfig(ctx, model.ServerConfig{PropagationNode: "xyz"})
	if !errors.Is(err, model.ErrInvalidConfig) {
		t.Fatal("bad propagation node accepted")
	}
	saved, err := s.SaveConfig(ctx, model.ServerConfig{DeliveryMode: model.DeliveryPropagated})
	if err != nil {
		t.Fatal(err)
	}
	if saved.MaxRetries != 3 || saved.PreferredAudio != "opus" {
		t.Fatalf("defaults missing: %+v", saved)
	}
	got, err := s.Config(ctx)
	if err != nil || got.DeliveryMode != model.DeliveryPropagated {
		t.Fatalf("config = %+v, %v", got, err)
	}
}

func TestExportSelectedPeer(t *testing.T) {
	fb := newFake()
	fb.peers[model.TabAll] = []model.Peer{peerA, peerB}
	fb.messages = inbox()
	s, _ := newTestSession(t, fb)
	s.now = func() time.Time { return time.UnixMilli(1700000000000) }
	ctx := context.Background()

	if _, err := s.Export(ctx); !errors.Is(err, ErrNoPeerSelected) {
		t.Fatalf("export without selection: %v", err)
	}
	_ = s.RefreshPeers(ctx)
	_ = s.RefreshMessages(ctx)
	doc, err := s.Export(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(doc.Messages) != 2 || doc.Telemetry == nil || doc.FileName() != "chat_aa11_1700000000000.json" {
		t.Fatalf("doc = %+v name=%s", doc, doc.FileName())
	}
}
