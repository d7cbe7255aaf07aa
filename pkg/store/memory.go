package store

import (
	"context"
	"sync"

	"lxmf-chat/pkg/model"
)

const memoryCap = 1000

// MemoryJournal keeps the most recent entries in process memory.
type MemoryJournal struct {
	mu    sync.RWMutex
	audit []model.AuditEntry
}

func NewMemory() *MemoryJournal {
	return &MemoryJournal{}
}

func (m *MemoryJournal) AppendAudit(_ context.Context, e model.AuditEntry) error {
	e = prepare(e)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.audit = append(m.audit, e)
	if len(m.audit) > memoryCap {
		m.audit = append([]model.AuditEntry(nil), m.audit[len(m.audit)-memoryCap:]...)
	}
	return nil
}

func (m *MemoryJournal) ListAudit(_ context.Context, limit int) ([]model.AuditEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]model.AuditEntry(nil), tail(m.audit, limit)...), nil
}

func (m *MemoryJournal) Close() error { return nil }
