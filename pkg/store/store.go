package store

import (
	"context"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"lxmf-chat/pkg/model"
)

// Journal persists the audit trail of agent actions.
type Journal interface {
	AppendAudit(ctx context.Context, e model.AuditEntry) error
	// ListAudit returns the newest limit entries, oldest first. limit <= 0 returns all.
	ListAudit(ctx context.Context, limit int) ([]model.AuditEntry, error)
	Close() error
}

// Options select and configure a journal backend.
type Options struct {
	Driver      string // memory, sqlite, postgres, mysql, consul
	DSN         string
	ConsulAddr  string
	ConsulToken string
}

// Open builds the journal named by o.Driver.
func Open(ctx context.Context, o Options) (Journal, error) {
	switch o.Driver {
	case "", "memory":
		return NewMemory(), nil
	case "sqlite":
		return OpenSQLite(ctx, o.DSN)
	case "postgres":
		return OpenPostgres(ctx, o.DSN)
	case "mysql":
		return OpenMySQL(o.DSN)
	case "consul":
		return NewConsulJournal(o.ConsulAddr, o.ConsulToken)
	default:
		return nil, fmt.Errorf("unknown journal driver %q", o.Driver)
	}
}

// prepare fills the id and timestamp of a new entry.
func prepare(e model.AuditEntry) model.AuditEntry {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	e.Timestamp = e.Timestamp.UTC()
	if e.ID == "" {
		e.ID = ulid.Make().String()
	}
	return e
}

// tail keeps the last limit entries.
func tail(list []model.AuditEntry, limit int) []model.AuditEntry {
	if limit > 0 && len(list) > limit {
		return list[len(list)-limit:]
	}
	return list
}
