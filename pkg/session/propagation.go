package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"lxmf-chat/pkg/events"
	"lxmf-chat/pkg/model"
)

// SyncPropagation asks the backend to sync with its propagation node and
// follows the job until it reaches a terminal state or ctx ends. On success
// the thread is refetched so newly delivered messages show up.
func (s *Session) SyncPropagation(ctx context.Context) (model.PropagationStatus, error) {
	if !s.syncing.CompareAndSwap(false, true) {
		return model.PropagationStatus{}, ErrSyncInProgress
	}
	defer s.syncing.Store(false)
	return s.runSync(ctx)
}

// SyncResult is the outcome of a background propagation sync.
type SyncResult struct {
	Status model.PropagationStatus
	Err    error
}

// StartSync claims the sync slot before returning and runs the job in the
// background on ctx. The returned channel receives the outcome once.
func (s *Session) StartSync(ctx context.Context) (<-chan SyncResult, error) {
	if !s.syncing.CompareAndSwap(false, true) {
		return nil, ErrSyncInProgress
	}
	done := make(chan SyncResult, 1)
	go func() {
		st, err := s.runSync(ctx)
		s.syncing.Store(false)
		done <- SyncResult{Status: st, Err: err}
	}()
	return done, nil
}

func (s *Session) runSync(ctx context.Context) (model.PropagationStatus, error) {
	if err := s.be.StartPropagationSync(ctx); err != nil {
		return model.PropagationStatus{}, fmt.Errorf("start propagation sync: %w", err)
	}
	log.Info().Str("session", s.id).Msg("propagation sync started")

	interval := s.intervals.Propagation
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var last model.PropagationStatus
	for {
		select {
		case <-ctx.Done():
			return last, ctx.Err()
		case <-ticker.C:
		}
		st, err := s.be.PropagationStatus(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return last, ctx.Err()
			}
			log.Warn().Err(err).Msg("propagation status poll failed")
			continue
		}
		if st != last {
			s.publish(s.event(events.PropagationStatus, "", st))
			last = st
		}
		if !st.State.Terminal() {
			continue
		}
		s.audit(ctx, "propagation_sync", string(st.State), fmt.Sprintf("%d messages", st.MessagesReceived))
		if st.State != model.PropComplete {
			return st, fmt.Errorf("%w: %s", ErrSyncFailed, st.State)
		}
		log.Info().Int("received", st.MessagesReceived).Msg("propagation sync complete")
		s.ResetDigest()
		if err := s.RefreshMessages(ctx); err != nil && !errors.Is(err, ErrStale) {
			log.Warn().Err(err).Msg("refresh after propagation sync failed")
		}
		return st, nil
	}
}

// Syncing reports whether a propagation sync is running.
func (s *Session) Syncing() bool { return s.syncing.Load() }
