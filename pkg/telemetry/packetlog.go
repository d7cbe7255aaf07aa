package telemetry

import (
	"sync"

	"lxmf-chat/pkg/model"
)

// PacketLogCap bounds each peer's packet log.
const PacketLogCap = 50

// PacketLog keeps the most recent incoming packets per peer, newest first.
type PacketLog struct {
	mu      sync.RWMutex
	packets map[string][]model.PacketLogEntry
}

func NewPacketLog() *PacketLog {
	return &PacketLog{packets: make(map[string][]model.PacketLogEntry)}
}

// Add records an incoming packet. Outgoing packets and duplicates of an entry already
// in the log (same timestamp, content and raw_hex) are ignored; it reports whether
// the entry was stored.
func (l *PacketLog) Add(e model.PacketLogEntry) bool {
	if e.Direction != model.Incoming {
		return false
	}
	key := model.NormalizeHash(e.Peer)
	l.mu.Lock()
	defer l.mu.Unlock()
	list := l.packets[key]
	for _, p := range list {
		if p.SameAs(e) {
			return false
		}
	}
	n := len(list) + 1
	if n > PacketLogCap {
		n = PacketLogCap
	}
	next := make([]model.PacketLogEntry, 0, n)
	next = append(next, e)
	next = append(next, list[:n-1]...)
	l.packets[key] = next
	return true
}

// List returns up to limit entries for the peer, newest first; limit <= 0 returns all.
func (l *PacketLog) List(peer string, limit int) []model.PacketLogEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	list := l.packets[model.NormalizeHash(peer)]
	if limit <= 0 || limit > len(list) {
		limit = len(list)
	}
	return append([]model.PacketLogEntry(nil), list[:limit]...)
}
