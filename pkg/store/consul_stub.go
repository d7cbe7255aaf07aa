//go:build !consul

package store

import (
	"github.com/rs/zerolog/log"
)

// NewConsulJournal returns a memory journal when the consul build tag is not enabled.
func NewConsulJournal(addr, _ string) (Journal, error) {
	log.Warn().Str("addr", addr).Msg("consul journal requested but consul build tag not enabled; using memory journal")
	return NewMemory(), nil
}
