package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestBusFansOutInOrder(t *testing.T) {
	a, b := &Recorder{}, &Recorder{}
	bus := NewBus(a)
	bus.Add(b)
	ctx, cancel := context.WithCancel(context.Background())
	go bus.Run(ctx)

	bus.Publish(Event{Type: PeersUpdated})
	bus.Publish(Event{Type: MessagesUpdated})
	cancel()
	bus.Wait()

	for _, r := range []*Recorder{a, b} {
		got := r.Types()
		if len(got) != 2 || got[0] != PeersUpdated || got[1] != MessagesUpdated {
			t.Fatalf("types = %v", got)
		}
		if r.Events()[0].Time.IsZero() {
			t.Fatal("publish should stamp time")
		}
	}
}

func TestBusSurvivesPanickingSink(t *testing.T) {
	rec := &Recorder{}
	bus := NewBus(SinkFunc(func(Event) { panic("bad sink") }), rec)
	ctx, cancel := context.WithCancel(context.Background())
	go bus.Run(ctx)
	bus.Publish(Event{Type: UnreadChanged})
	cancel()
	bus.Wait()
	if rec.Count(UnreadChanged) != 1 {
		t.Fatal("later sink starved by panicking sink")
	}
}

func TestBusDropsWhenFull(t *testing.T) {
	bus := NewBus()
	for i := 0; i < defaultQueue+5; i++ {
		bus.Publish(Event{Type: TransferStats})
	}
	if bus.Dropped() != 5 {
		t.Fatalf("dropped = %d", bus.Dropped())
	}
}

type fakePublisher struct {
	mu   sync.Mutex
	subs []string
	data [][]byte
	err  error
}

func (f *fakePublisher) Publish(subject string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subs = append(f.subs, subject)
	f.data = append(f.data, data)
	return f.err
}

func TestNATSSinkSubjects(t *testing.T) {
	pub := &fakePublisher{}
	s := NewNATSSink(pub, "")
	s.Publish(Event{Type: TelemetryFolded, Peer: "a1", Time: time.Unix(10, 0), Payload: map[string]int{"n": 1}})
	if len(pub.subs) != 1 || pub.subs[0] != "lxmf.telemetry.folded" {
		t.Fatalf("subjects = %v", pub.subs)
	}
	var got Event
	if err := json.Unmarshal(pub.data[0], &got); err != nil {
		t.Fatal(err)
	}
	if got.Type != TelemetryFolded || got.Peer != "a1" {
		t.Fatalf("decoded = %+v", got)
	}

	pub.err = errors.New("no responders")
	s.Publish(Event{Type: PeerSelected})
	if len(pub.subs) != 2 {
		t.Fatal("publish error should still be attempted once")
	}
}

func TestMQTTTopic(t *testing.T) {
	s := NewMQTTSink(nil, "home/lxmf/", 1)
	if got := s.Topic(MessageSent); got != "home/lxmf/message.sent" {
		t.Fatalf("topic = %s", got)
	}
}
