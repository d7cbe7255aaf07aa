//go:build consul

package store

import (
	"lxmf-chat/pkg/consul"
)

// NewConsulJournal stores entries under Consul KV (requires build tag consul).
func NewConsulJournal(addr, token string) (Journal, error) {
	return consul.NewJournal(addr, token)
}
