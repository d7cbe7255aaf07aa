package session

import (
	"context"
	"sync"

	"lxmf-chat/pkg/backend"
	"lxmf-chat/pkg/model"
)

func f64(v float64) *float64 { return &v }

// fakeBackend serves canned data. Messages ignores the peer argument, like a
// backend that returns the whole inbox.
type fakeBackend struct {
	mu       sync.Mutex
	peers    map[model.Tab][]model.Peer
	messages []model.Message
	msgErr   error
	peerErr  error

	msgCalls  int
	peerCalls int
	sent      []string
	sentTo    []string

	favorite bool
	groups   []string
	added    bool

	statuses []model.PropagationStatus
	syncErr  error
	cfg      model.ServerConfig

	// gate, when set, holds Messages for gatePeer (or Peers for gateTab) until closed.
	gate     chan struct{}
	entered  chan struct{}
	gatePeer string
	gateTab  model.Tab
}

func newFake() *fakeBackend {
	return &fakeBackend{peers: map[model.Tab][]model.Peer{}}
}

func (f *fakeBackend) setMessages(m []model.Message) {
	f.mu.Lock()
	f.messages = m
	f.mu.Unlock()
}

func (f *fakeBackend) wait(ctx context.Context) {
	select {
	case f.entered <- struct{}{}:
	default:
	}
	select {
	case <-f.gate:
	case <-ctx.Done():
	}
}

func (f *fakeBackend) Peers(ctx context.Context, tab model.Tab) ([]model.Peer, error) {
	f.mu.Lock()
	f.peerCalls++
	list := append([]model.Peer(nil), f.peers[tab]...)
	err := f.peerErr
	gated := f.gate != nil && f.gateTab != "" && f.gateTab == tab
	f.mu.Unlock()
	if gated {
		f.wait(ctx)
	}
	return list, err
}

func (f *fakeBackend) Messages(ctx context.Context, peer string) ([]model.Message, error) {
	f.mu.Lock()
	f.msgCalls++
	msgs := append([]model.Message(nil), f.messages...)
	err := f.msgErr
	gated := f.gate != nil && f.gatePeer != "" && f.gatePeer == peer
	f.mu.Unlock()
	if gated {
		f.wait(ctx)
	}
	if err != nil {
		return nil, err
	}
	return msgs, nil
}

func (f *fakeBackend) Send(_ context.Context, destination, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, content)
	f.sentTo = append(f.sentTo, destination)
	return nil
}

func (f *fakeBackend) SendFile(_ context.Context, up backend.FileUpload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, up.FileName)
	f.sentTo = append(f.sentTo, up.Destination)
	return nil
}

func (f *fakeBackend) ToggleFavorite(context.Context, string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.favorite, nil
}

func (f *fakeBackend) ToggleGroup(context.Context, string, string) ([]string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.groups, f.added, nil
}

func (f *fakeBackend) Config(context.Context) (model.ServerConfig, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cfg, nil
}

func (f *fakeBackend) SaveConfig(_ context.Context, cfg model.ServerConfig) (model.ServerConfig, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cfg = cfg
	return cfg, nil
}

func (f *fakeBackend) StartPropagationSync(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.syncErr
}

func (f *fakeBackend) PropagationStatus(ctx context.Context) (model.PropagationStatus, error) {
	f.mu.Lock()
	if len(f.statuses) == 0 {
		gated := f.gate != nil
		f.mu.Unlock()
		if gated {
			f.wait(ctx)
		}
		return model.PropagationStatus{State: model.PropReceiving}, nil
	}
	st := f.statuses[0]
	f.statuses = f.statuses[1:]
	f.mu.Unlock()
	return st, nil
}

type memJournal struct {
	mu      sync.Mutex
	entries []model.AuditEntry
}

func (j *memJournal) AppendAudit(_ context.Context, e model.AuditEntry) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, e)
	return nil
}

func (j *memJournal) actions() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]string, len(j.entries))
	for i, e := range j.entries {
		out[i] = e.Action
	}
	return out
}
