// Package events carries session state changes to observers.
package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Type names one kind of state change.
type Type string

const (
	PeersUpdated      Type = "peers.updated"
	MessagesUpdated   Type = "messages.updated"
	TelemetryFolded   Type = "telemetry.folded"
	UnreadChanged     Type = "unread.changed"
	TransferStats     Type = "transfers.stats"
	PropagationStatus Type = "propagation.status"
	PeerSelected      Type = "peer.selected"
	MessageSent       Type = "message.sent"
)

// Event is the envelope every sink receives.
type Event struct {
	Type    Type        `json:"type"`
	Session string      `json:"session,omitempty"`
	Peer    string      `json:"peer,omitempty"`
	Time    time.Time   `json:"time"`
	Payload interface{} `json:"payload,omitempty"`
}

func (e Event) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// Sink receives events. Publish must not block for long.
type Sink interface {
	Publish(e Event)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Event)

func (f SinkFunc) Publish(e Event) { f(e) }

// Discard drops every event.
var Discard Sink = SinkFunc(func(Event) {})

// Bus fans events out to sinks on a single dispatcher goroutine.
// Publish never blocks; when the queue is full the event is dropped.
type Bus struct {
	mu      sync.RWMutex
	sinks   []Sink
	queue   chan Event
	dropped int
	done    chan struct{}
}

const defaultQueue = 256

func NewBus(sinks ...Sink) *Bus {
	return &Bus{sinks: sinks, queue: make(chan Event, defaultQueue), done: make(chan struct{})}
}

func (b *Bus) Add(s Sink) {
	b.mu.Lock()
	b.sinks = append(b.sinks, s)
	b.mu.Unlock()
}

func (b *Bus) Publish(e Event) {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	select {
	case b.queue <- e:
	default:
		b.mu.Lock()
		b.dropped++
		b.mu.Unlock()
		log.Warn().Str("type", string(e.Type)).Msg("event queue full, dropping")
	}
}

// Dropped reports how many events were discarded on a full queue.
func (b *Bus) Dropped() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.dropped
}

// Run dispatches until ctx ends, then drains what is already queued.
func (b *Bus) Run(ctx context.Context) {
	defer close(b.done)
	for {
		select {
		case e := <-b.queue:
			b.dispatch(e)
		case <-ctx.Done():
			for {
				select {
				case e := <-b.queue:
					b.dispatch(e)
				default:
					return
				}
			}
		}
	}
}

// Wait blocks until Run has returned.
func (b *Bus) Wait() { <-b.done }

func (b *Bus) dispatch(e Event) {
	b.mu.RLock()
	sinks := append([]Sink(nil), b.sinks...)
	b.mu.RUnlock()
	for _, s := range sinks {
		safePublish(s, e)
	}
}

func safePublish(s Sink, e Event) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("type", string(e.Type)).Msg("event sink panicked")
		}
	}()
	s.Publish(e)
}

// LogSink writes every event at debug level.
type LogSink struct{}

func (LogSink) Publish(e Event) {
	log.Debug().Str("type", string(e.Type)).Str("peer", e.Peer).Str("session", e.Session).Msg("event")
}

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(e Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Types lists recorded event types in order.
func (r *Recorder) Types() []Type {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Type, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

func (r *Recorder) Count(t Type) int {
	n := 0
	for _, got := range r.Types() {
		if got == t {
			n++
		}
	}
	return n
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}
