package session

import (
	"context"
	"fmt"

	"lxmf-chat/pkg/export"
	"lxmf-chat/pkg/model"
	"lxmf-chat/pkg/peers"
	"lxmf-chat/pkg/thread"
)

// State is a point-in-time copy of everything the session shows.
type State struct {
	Session   string              `json:"session"`
	Identity  model.Identity      `json:"identity"`
	Tab       model.Tab           `json:"tab"`
	Sort      peers.SortMode      `json:"sort"`
	Order     peers.Order         `json:"order"`
	Peers     []model.Peer        `json:"peers"`
	Summary   model.PeerSummary   `json:"summary"`
	Selected  *model.Peer         `json:"selected,omitempty"`
	Thread    []model.Message     `json:"thread"`
	Transfers []model.Message     `json:"transfers"`
	Stats     model.TransferStats `json:"stats"`
	Unread    []string            `json:"unread"`
	Syncing   bool                `json:"syncing"`
}

func (s *Session) Snapshot() State {
	s.mu.Lock()
	st := State{
		Session:  s.id,
		Identity: s.identity,
		Tab:      s.tab,
		Sort:     s.sortMode,
		Order:    s.order,
		Peers:    append([]model.Peer{}, s.roster...),
		Summary:  s.summary,
		Stats:    s.stats,
		Thread:   []model.Message{},
	}
	if s.selected != nil {
		p := *s.selected
		st.Selected = &p
		st.Thread = thread.Filter(s.messages, p.Key())
	}
	s.mu.Unlock()
	st.Transfers = s.transfers.Active()
	st.Unread = s.unread.List()
	st.Syncing = s.Syncing()
	return st
}

// Peers returns the sorted roster.
func (s *Session) Peers() []model.Peer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Peer{}, s.roster...)
}

func (s *Session) Summary() model.PeerSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.summary
}

func (s *Session) Tab() model.Tab {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tab
}

func (s *Session) Selected() (model.Peer, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selected == nil {
		return model.Peer{}, false
	}
	return *s.selected, true
}

// Messages returns the last applied message set, unfiltered.
func (s *Session) Messages() []model.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Message{}, s.messages...)
}

// Thread returns the selected conversation in timestamp order.
func (s *Session) Thread() []model.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selected == nil {
		return []model.Message{}
	}
	return thread.Filter(s.messages, s.selected.Key())
}

func (s *Session) Telemetry(peer string) (model.TelemetryRecord, bool) {
	return s.telemetry.Get(peer)
}

func (s *Session) TelemetryPeers() []string { return s.telemetry.Peers() }

func (s *Session) Packets(peer string, limit int) []model.PacketLogEntry {
	return s.packets.List(peer, limit)
}

func (s *Session) Transfers() []model.Message { return s.transfers.Active() }

// TransferRebuilds counts how often the transfer map was rebuilt.
func (s *Session) TransferRebuilds() int { return s.transfers.Rebuilds() }

func (s *Session) Stats() model.TransferStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

func (s *Session) Unread() []string { return s.unread.List() }

func (s *Session) HasUnread(peer string) bool { return s.unread.Has(peer) }

// Export builds the snapshot document for the selected peer.
func (s *Session) Export(ctx context.Context) (export.Document, error) {
	p, err := s.selectedPeer()
	if err != nil {
		return export.Document{}, err
	}
	doc := export.Document{
		Peer:       p,
		Identity:   s.identity,
		Messages:   s.Thread(),
		ExportedAt: s.now(),
	}
	if rec, ok := s.telemetry.Get(p.Key()); ok {
		doc.Telemetry = &rec
	}
	s.audit(ctx, "export", p.Key(), fmt.Sprintf("%d messages", len(doc.Messages)))
	return doc, nil
}
