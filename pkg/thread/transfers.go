package thread

import (
	"sort"
	"sync"

	"lxmf-chat/pkg/model"
)

// Tracker holds the transfers still in flight, keyed by Message.TransferKey.
type Tracker struct {
	mu      sync.RWMutex
	active  map[string]model.Message
	rebuilt int
}

func NewTracker() *Tracker {
	return &Tracker{active: make(map[string]model.Message)}
}

// Rebuild replaces the map with the in-flight messages of the new set.
func (t *Tracker) Rebuild(messages []model.Message) {
	next := make(map[string]model.Message)
	for _, m := range messages {
		if m.InFlight() {
			next[m.TransferKey()] = m
		}
	}
	t.mu.Lock()
	t.active = next
	t.rebuilt++
	t.mu.Unlock()
}

// Rebuilds counts Rebuild calls.
func (t *Tracker) Rebuilds() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.rebuilt
}

// Active returns the tracked transfers ordered by timestamp.
func (t *Tracker) Active() []model.Message {
	t.mu.RLock()
	out := make([]model.Message, 0, len(t.active))
	for _, m := range t.active {
		out = append(out, m)
	}
	t.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp < out[j].Timestamp })
	return out
}

// Stats aggregates the tracked transfers. Speed is averaged over transfers that
// report one; progress over all of them.
func (t *Tracker) Stats() model.TransferStats {
	t.mu.RLock()
	defer t.mu.RUnlock()
	st := model.TransferStats{Active: len(t.active)}
	if st.Active == 0 {
		return st
	}
	var speed, progress float64
	speedN := 0
	for _, m := range t.active {
		if m.Speed != nil {
			speed += *m.Speed
			speedN++
		}
		if m.Progress != nil {
			progress += *m.Progress
		}
	}
	if speedN > 0 {
		st.AvgSpeed = speed / float64(speedN)
	}
	st.AvgProgress = progress / float64(st.Active)
	return st
}
