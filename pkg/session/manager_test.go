package session

import (
	"context"
	"testing"

	"lxmf-chat/pkg/model"
)

type fakeIdentities struct {
	list []model.Identity
}

func (f *fakeIdentities) Identities(context.Context) ([]model.Identity, error) { return f.list, nil }

func (f *fakeIdentities) SelectIdentity(_ context.Context, path string) (model.Identity, error) {
	for _, id := range f.list {
		if id.Path == path {
			return id, nil
		}
	}
	return model.Identity{}, ErrUnknownPeer
}

func TestManagerSwitchesSessions(t *testing.T) {
	ids := &fakeIdentities{list: []model.Identity{
		{Name: "main", IdentityHash: "aa", Path: "/ids/main"},
		{Name: "bot", IdentityHash: "bb", Path: "/ids/bot"},
	}}
	fb := newFake()
	m := NewManager(context.Background(), ids, func(id model.Identity) *Session {
		return New(Options{Backend: fb, Identity: id})
	})
	defer m.Close()

	if m.Current() != nil {
		t.Fatal("no session before activation")
	}
	first, err := m.SelectIdentity(context.Background(), "/ids/main")
	if err != nil {
		t.Fatal(err)
	}
	second, err := m.SelectIdentity(context.Background(), "/ids/bot")
	if err != nil {
		t.Fatal(err)
	}
	if m.Current() != second || second.Identity().Name != "bot" {
		t.Fatalf("current = %+v", m.Current().Identity())
	}
	if first.ID() == second.ID() {
		t.Fatal("session id reused")
	}
	if err := first.Start(context.Background()); err != ErrClosed {
		t.Fatalf("previous session not closed: %v", err)
	}
	if _, err := m.SelectIdentity(context.Background(), "/nope"); err == nil {
		t.Fatal("unknown identity accepted")
	}
	if m.Current() != second {
		t.Fatal("failed selection replaced the session")
	}
}
