// Package thread derives the per-peer conversation view and transfer bookkeeping
// from the raw message set.
package thread

import (
	"sort"

	"lxmf-chat/pkg/model"
)

// Filter returns the messages exchanged with peer, ordered by timestamp.
// Messages with equal timestamps keep their fetch order.
func Filter(messages []model.Message, peer string) []model.Message {
	out := make([]model.Message, 0, len(messages))
	for _, m := range messages {
		if m.InThread(peer) {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp < out[j].Timestamp
	})
	return out
}

// FindRetryable returns the failed outgoing message sent at ts.
func FindRetryable(messages []model.Message, ts float64) (model.Message, bool) {
	for _, m := range messages {
		if m.Timestamp == ts && m.Retryable() {
			return m, true
		}
	}
	return model.Message{}, false
}
