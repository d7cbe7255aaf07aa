package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"lxmf-chat/pkg/db"
	"lxmf-chat/pkg/model"
)

// GormJournal stores entries in MySQL through gorm.
type GormJournal struct {
	db *gorm.DB
}

// OpenMySQL connects and migrates the audit table. An empty dsn is built from MYSQL_* env vars.
func OpenMySQL(dsn string) (*GormJournal, error) {
	g, err := db.Init(dsn)
	if err != nil {
		return nil, fmt.Errorf("open mysql journal: %w", err)
	}
	return &GormJournal{db: g}, nil
}

func (j *GormJournal) AppendAudit(ctx context.Context, e model.AuditEntry) error {
	e = prepare(e)
	return j.db.WithContext(ctx).Create(&e).Error
}

func (j *GormJournal) ListAudit(ctx context.Context, limit int) ([]model.AuditEntry, error) {
	q := j.db.WithContext(ctx).Order("timestamp DESC").Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var out []model.AuditEntry
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	for i, k := 0, len(out)-1; i < k; i, k = i+1, k-1 {
		out[i], out[k] = out[k], out[i]
	}
	return out, nil
}

func (j *GormJournal) Close() error {
	sqlDB, err := j.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
