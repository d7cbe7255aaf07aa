package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"lxmf-chat/pkg/model"
)

const opTimeout = 2 * time.Second

// SQLJournal stores entries through database/sql. It serves sqlite and postgres,
// which differ only in placeholder syntax.
type SQLJournal struct {
	db      *sql.DB
	dialect string
}

const createAuditTable = `CREATE TABLE IF NOT EXISTS audit_entries(
	id VARCHAR(26) PRIMARY KEY,
	actor VARCHAR(64) NOT NULL DEFAULT '',
	action VARCHAR(64) NOT NULL,
	target VARCHAR(128) NOT NULL DEFAULT '',
	detail TEXT NOT NULL DEFAULT '',
	ts BIGINT NOT NULL
)`

const createAuditIndex = `CREATE INDEX IF NOT EXISTS idx_audit_entries_ts ON audit_entries(ts)`

// OpenSQLite opens (and creates) a journal file. path may be a bare file path.
func OpenSQLite(ctx context.Context, path string) (*SQLJournal, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite journal needs a path")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create journal dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", "file:"+path+"?_pragma=busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	return initSQL(ctx, db, "sqlite")
}

// OpenPostgres connects with a lib/pq DSN or URL.
func OpenPostgres(ctx context.Context, dsn string) (*SQLJournal, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(5)
	db.SetConnMaxLifetime(time.Hour)
	return initSQL(ctx, db, "postgres")
}

func initSQL(ctx context.Context, db *sql.DB, dialect string) (*SQLJournal, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", dialect, err)
	}
	for _, stmt := range []string{createAuditTable, createAuditIndex} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("init %s schema: %w", dialect, err)
		}
	}
	log.Debug().Str("dialect", dialect).Msg("audit journal ready")
	return &SQLJournal{db: db, dialect: dialect}, nil
}

// rebind turns ? placeholders into $n for postgres.
func rebind(dialect, query string) string {
	if dialect != "postgres" {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (j *SQLJournal) AppendAudit(ctx context.Context, e model.AuditEntry) error {
	e = prepare(e)
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	_, err := j.db.ExecContext(ctx,
		rebind(j.dialect, `INSERT INTO audit_entries(id, actor, action, target, detail, ts) VALUES(?,?,?,?,?,?)`),
		e.ID, e.Actor, e.Action, e.Target, e.Detail, e.Timestamp.UnixNano())
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

func (j *SQLJournal) ListAudit(ctx context.Context, limit int) ([]model.AuditEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	q := `SELECT id, actor, action, target, detail, ts FROM audit_entries ORDER BY ts DESC, id DESC`
	var args []interface{}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := j.db.QueryContext(ctx, rebind(j.dialect, q), args...)
	if err != nil {
		return nil, fmt.Errorf("query audit entries: %w", err)
	}
	defer rows.Close()
	var out []model.AuditEntry
	for rows.Next() {
		var e model.AuditEntry
		var ts int64
		if err := rows.Scan(&e.ID, &e.Actor, &e.Action, &e.Target, &e.Detail, &ts); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		e.Timestamp = time.Unix(0, ts).UTC()
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i, k := 0, len(out)-1; i < k; i, k = i+1, k-1 {
		out[i], out[k] = out[k], out[i]
	}
	return out, nil
}

func (j *SQLJournal) Close() error { return j.db.Close() }
