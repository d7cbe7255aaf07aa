package model

import (
	"fmt"
	"strings"
)

// Peer is a remote correspondent as listed by the backend.
type Peer struct {
	IdentityHash string      `json:"identity_hash"`
	Hash         string      `json:"hash"` // routing address, may differ from IdentityHash
	DisplayName  string      `json:"display_name"`
	Online       bool        `json:"online"`
	LastSeen     float64     `json:"last_seen"`
	Hops         *float64    `json:"hops,omitempty"`
	RSSI         *float64    `json:"rssi,omitempty"`
	SNR          *float64    `json:"snr,omitempty"`
	Quality      *float64    `json:"quality,omitempty"`
	Groups       []string    `json:"groups,omitempty"`
	Favorite     bool        `json:"favorite"`
	Appearance   *Appearance `json:"appearance,omitempty"`
}

// Key is the normalized routing address used for selection, threads and unread marks.
func (p Peer) Key() string {
	if p.Hash != "" {
		return NormalizeHash(p.Hash)
	}
	return NormalizeHash(p.IdentityHash)
}

// Matches reports whether h names this peer by identity or routing hash.
func (p Peer) Matches(h string) bool {
	return SameHash(p.IdentityHash, h) || SameHash(p.Hash, h)
}

// InGroup reports whether the peer carries the group tag.
func (p Peer) InGroup(name string) bool {
	for _, g := range p.Groups {
		if g == name {
			return true
		}
	}
	return false
}

// PeerSummary holds aggregates derived from a peer list.
type PeerSummary struct {
	Total   int     `json:"total"`
	Online  int     `json:"online"`
	AvgHops float64 `json:"avg_hops"`
	HopsN   int     `json:"hops_n"` // peers that contributed to AvgHops
}

// KnownGroups are the group tags offered by the chat UI.
var KnownGroups = []string{"home", "mountain", "world", "work", "bot-echo", "lente"}

// Tab selects which slice of the peer list is fetched.
type Tab string

const (
	TabAll       Tab = "all"
	TabFavorites Tab = "favorites"
)

// GroupTab returns the tab for a named group.
func GroupTab(name string) Tab { return Tab("group:" + name) }

// Group returns the group name for a group tab.
func (t Tab) Group() (string, bool) {
	name, ok := strings.CutPrefix(string(t), "group:")
	if !ok || name == "" {
		return "", false
	}
	return name, true
}

// ParseTab accepts "all", "favorites", "group:<name>" or a bare known group name.
func ParseTab(s string) (Tab, error) {
	s = strings.TrimSpace(s)
	switch s {
	case "", string(TabAll):
		return TabAll, nil
	case string(TabFavorites):
		return TabFavorites, nil
	}
	if _, ok := Tab(s).Group(); ok {
		return Tab(s), nil
	}
	for _, g := range KnownGroups {
		if g == s {
			return GroupTab(s), nil
		}
	}
	return "", fmt.Errorf("unknown peer tab %q", s)
}
