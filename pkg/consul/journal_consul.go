//go:build consul

package consul

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	consulapi "github.com/hashicorp/consul/api"
	"github.com/oklog/ulid/v2"

	"lxmf-chat/pkg/model"
)

const auditPrefix = "lxmf-chat/audit/"

// Journal is a Consul KV audit journal. Keys are ULIDs so a prefix listing is chronological.
type Journal struct {
	cli *consulapi.Client
}

// NewClient builds an API client for addr, falling back to CONSUL_HTTP_ADDR.
func NewClient(addr, token string) (*consulapi.Client, error) {
	cfg := consulapi.DefaultConfig()
	if addr != "" {
		cfg.Address = addr
	}
	if token != "" {
		cfg.Token = token
	}
	return consulapi.NewClient(cfg)
}

func NewJournal(addr, token string) (*Journal, error) {
	cli, err := NewClient(addr, token)
	if err != nil {
		return nil, fmt.Errorf("consul client: %w", err)
	}
	return &Journal{cli: cli}, nil
}

func (j *Journal) AppendAudit(ctx context.Context, e model.AuditEntry) error {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	if e.ID == "" {
		e.ID = ulid.Make().String()
	}
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	_, err = j.cli.KV().Put(&consulapi.KVPair{Key: auditPrefix + e.ID, Value: b}, (&consulapi.WriteOptions{}).WithContext(ctx))
	return err
}

func (j *Journal) ListAudit(ctx context.Context, limit int) ([]model.AuditEntry, error) {
	pairs, _, err := j.cli.KV().List(auditPrefix, (&consulapi.QueryOptions{}).WithContext(ctx))
	if err != nil {
		return nil, err
	}
	var out []model.AuditEntry
	for _, p := range pairs {
		var e model.AuditEntry
		if err := json.Unmarshal(p.Value, &e); err == nil {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].ID < out[b].ID })
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (j *Journal) Close() error { return nil }

// WatchKey runs a blocking query on key and calls onChange with each new index
// until ctx ends. The first call reports the current index.
func WatchKey(ctx context.Context, cli *consulapi.Client, key string, onChange func(index uint64)) {
	q := &consulapi.QueryOptions{}
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		_, meta, err := cli.KV().Get(key, q.WithContext(ctx))
		if err != nil {
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}
		if meta.LastIndex != q.WaitIndex {
			onChange(meta.LastIndex)
			q.WaitIndex = meta.LastIndex
		}
	}
}
