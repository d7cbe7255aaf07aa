//go:build consul

package agent

import (
	"context"

	"github.com/rs/zerolog/log"

	"lxmf-chat/pkg/consul"
)

// WatchEnabled returns true when consul tag is on.
func WatchEnabled() bool { return true }

// StartNudgeWatch watches key and calls onNudge whenever its index moves.
func StartNudgeWatch(ctx context.Context, addr, token, key string, onNudge func()) error {
	cli, err := consul.NewClient(addr, token)
	if err != nil {
		return err
	}
	go func() {
		first := true
		consul.WatchKey(ctx, cli, key, func(index uint64) {
			if first {
				first = false
				return
			}
			log.Debug().Str("key", key).Uint64("index", index).Msg("refresh nudge")
			onNudge()
		})
	}()
	return nil
}
