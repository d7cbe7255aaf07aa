package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"lxmf-chat/pkg/events"
	"lxmf-chat/pkg/model"
)

func newSyncSession(t *testing.T, fb *fakeBackend) (*Session, *events.Recorder) {
	t.Helper()
	rec := &events.Recorder{}
	iv := DefaultIntervals()
	iv.Propagation = time.Millisecond
	s := New(Options{Backend: fb, Sink: rec, Intervals: iv})
	t.Cleanup(s.Close)
	return s, rec
}

func TestSyncPropagationComplete(t *testing.T) {
	fb := newFake()
	fb.peers[model.TabAll] = []model.Peer{peerA}
	fb.messages = inbox()
	fb.statuses = []model.PropagationStatus{
		{State: model.PropPathRequested},
		{State: model.PropReceiving, Progress: 0.5},
		{State: model.PropReceiving, Progress: 0.5},
		{State: model.PropComplete, Progress: 1, MessagesReceived: 3},
	}
	s, rec := newSyncSession(t, fb)
	ctx := context.Background()
	_ = s.RefreshPeers(ctx)
	_ = s.RefreshMessages(ctx)
	rebuilds := s.TransferRebuilds()

	st, err := s.SyncPropagation(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if st.State != model.PropComplete || st.MessagesReceived != 3 {
		t.Fatalf("status = %+v", st)
	}
	if rec.Count(events.PropagationStatus) != 3 {
		t.Fatalf("duplicate statuses should be published once, got %v", rec.Types())
	}
	if s.TransferRebuilds() != rebuilds+1 {
		t.Fatal("completed sync should reapply the thread")
	}
	if s.Syncing() {
		t.Fatal("still syncing")
	}
}

func TestSyncPropagationFailureStates(t *testing.T) {
	for _, state := range []model.PropagationState{model.PropNoPath, model.PropLinkFailed, model.PropTransferFailed, model.PropNoIdentityReceived, model.PropNoAccess, model.PropFailed} {
		t.Run(string(state), func(t *testing.T) {
			fb := newFake()
			fb.statuses = []model.PropagationStatus{{State: model.PropLinkEstablishing}, {State: state}}
			s, _ := newSyncSession(t, fb)
			st, err := s.SyncPropagation(context.Background())
			if !errors.Is(err, ErrSyncFailed) || st.State != state {
				t.Fatalf("status = %+v err = %v", st, err)
			}
		})
	}
}

func TestSyncPropagationSingleFlight(t *testing.T) {
	fb := newFake()
	fb.gate, fb.entered = make(chan struct{}), make(chan struct{}, 1)
	s, _ := newSyncSession(t, fb)
	ctx, cancel := context.WithCancel(context.Background())

	errc := make(chan error, 1)
	go func() {
		_, err := s.SyncPropagation(ctx)
		errc <- err
	}()
	<-fb.entered
	if _, err := s.SyncPropagation(context.Background()); !errors.Is(err, ErrSyncInProgress) {
		t.Fatalf("second sync = %v", err)
	}
	cancel()
	if err := <-errc; !errors.Is(err, context.Canceled) {
		t.Fatalf("cancelled sync = %v", err)
	}
	if s.Syncing() {
		t.Fatal("sync flag not released")
	}
}

func TestSyncPropagationStartError(t *testing.T) {
	fb := newFake()
	fb.syncErr = errors.New("no propagation node")
	s, _ := newSyncSession(t, fb)
	if _, err := s.SyncPropagation(context.Background()); err == nil {
		t.Fatal("start error swallowed")
	}
	if s.Syncing() {
		t.Fatal("sync flag not released")
	}
}

func TestStartSyncClaimsSlotBeforeReturning(t *testing.T) {
	fb := newFake()
	fb.statuses = []model.PropagationStatus{{State: model.PropReceiving}, {State: model.PropComplete, MessagesReceived: 1}}
	s, _ := newSyncSession(t, fb)

	done, err := s.StartSync(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.StartSync(context.Background()); !errors.Is(err, ErrSyncInProgress) {
		t.Fatalf("second start = %v", err)
	}
	res := <-done
	if res.Err != nil || res.Status.State != model.PropComplete {
		t.Fatalf("result = %+v", res)
	}
	if s.Syncing() {
		t.Fatal("sync flag not released")
	}
}
