// Package unread tracks peers with incoming activity the user has not looked at.
package unread

import (
	"sort"
	"sync"

	"lxmf-chat/pkg/model"
)

// Tracker is a set of normalized peer keys. Keys are only removed by Clear.
type Tracker struct {
	mu    sync.RWMutex
	peers map[string]struct{}
}

func NewTracker() *Tracker {
	return &Tracker{peers: make(map[string]struct{})}
}

// Mark flags peer as unread unless it is the selected one. It reports whether the set changed.
func (t *Tracker) Mark(peer, selected string) bool {
	key := model.NormalizeHash(peer)
	if key == "" || key == model.NormalizeHash(selected) {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.peers[key]; ok {
		return false
	}
	t.peers[key] = struct{}{}
	return true
}

// Clear removes peer's mark, typically on selection.
func (t *Tracker) Clear(peer string) bool {
	key := model.NormalizeHash(peer)
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.peers[key]; !ok {
		return false
	}
	delete(t.peers, key)
	return true
}

func (t *Tracker) Has(peer string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.peers[model.NormalizeHash(peer)]
	return ok
}

func (t *Tracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.peers)
}

// List returns the unread keys sorted.
func (t *Tracker) List() []string {
	t.mu.RLock()
	out := make([]string, 0, len(t.peers))
	for k := range t.peers {
		out = append(out, k)
	}
	t.mu.RUnlock()
	sort.Strings(out)
	return out
}
