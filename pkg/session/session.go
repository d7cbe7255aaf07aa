// Package session owns the state of one chat identity: the peer roster, the
// selected conversation, telemetry, transfers and unread marks. It keeps that
// state in sync with the backend through three repeating tasks.
package session

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"lxmf-chat/pkg/backend"
	"lxmf-chat/pkg/events"
	"lxmf-chat/pkg/metrics"
	"lxmf-chat/pkg/model"
	"lxmf-chat/pkg/peers"
	"lxmf-chat/pkg/schedule"
	"lxmf-chat/pkg/telemetry"
	"lxmf-chat/pkg/thread"
	"lxmf-chat/pkg/unread"
)

var (
	ErrNoPeerSelected = errors.New("no peer selected")
	ErrEmptyMessage   = errors.New("message is empty")
	ErrNotRetryable   = errors.New("message is not a failed outgoing message")
	ErrUnknownPeer    = errors.New("peer not in roster")
	ErrSyncInProgress = errors.New("propagation sync already running")
	ErrSyncFailed     = errors.New("propagation sync failed")
	ErrClosed         = errors.New("session closed")

	// ErrStale marks a response that arrived after the selection or tab changed.
	ErrStale = errors.New("stale response discarded")
)

// Backend is the part of the chat backend the session drives.
type Backend interface {
	Peers(ctx context.Context, tab model.Tab) ([]model.Peer, error)
	Messages(ctx context.Context, peer string) ([]model.Message, error)
	Send(ctx context.Context, destination, content string) error
	SendFile(ctx context.Context, up backend.FileUpload) error
	ToggleFavorite(ctx context.Context, identityHash string) (bool, error)
	ToggleGroup(ctx context.Context, identityHash, group string) ([]string, bool, error)
	Config(ctx context.Context) (model.ServerConfig, error)
	SaveConfig(ctx context.Context, cfg model.ServerConfig) (model.ServerConfig, error)
	StartPropagationSync(ctx context.Context) error
	PropagationStatus(ctx context.Context) (model.PropagationStatus, error)
}

// Journal records the actions this session performs.
type Journal interface {
	AppendAudit(ctx context.Context, e model.AuditEntry) error
}

// Intervals are the timer periods.
type Intervals struct {
	Peers       time.Duration
	Messages    time.Duration
	Stats       time.Duration
	Propagation time.Duration
}

func DefaultIntervals() Intervals {
	return Intervals{Peers: 10 * time.Second, Messages: 2 * time.Second, Stats: time.Second, Propagation: time.Second}
}

// Options configure a new session. Backend is required.
type Options struct {
	Backend   Backend
	Identity  model.Identity
	Sink      events.Sink
	Journal   Journal
	Intervals Intervals
	Tab       model.Tab
	Sort      peers.SortMode
	Order     peers.Order
}

const (
	taskPeers    = "peers"
	taskMessages = "messages"
	taskStats    = "stats"
)

// Session is the state of one selected identity.
type Session struct {
	id        string
	be        Backend
	identity  model.Identity
	sink      events.Sink
	journal   Journal
	intervals Intervals
	now       func() time.Time

	telemetry *telemetry.DB
	packets   *telemetry.PacketLog
	transfers *thread.Tracker
	unread    *unread.Tracker
	tasks     *schedule.Group
	syncing   atomic.Bool

	mu         sync.Mutex
	tab        model.Tab
	sortMode   peers.SortMode
	order      peers.Order
	roster     []model.Peer
	summary    model.PeerSummary
	selected   *model.Peer
	selGen     uint64
	peerGen    uint64
	messages   []model.Message
	lastDigest string
	stats      model.TransferStats
	runCtx     context.Context
	cancel     context.CancelFunc
	closed     bool
}

func New(o Options) *Session {
	if o.Sink == nil {
		o.Sink = events.Discard
	}
	if o.Intervals == (Intervals{}) {
		o.Intervals = DefaultIntervals()
	}
	if o.Tab == "" {
		o.Tab = model.TabAll
	}
	if o.Sort == "" {
		o.Sort = peers.ByTime
	}
	if o.Order == "" {
		o.Order = peers.DefaultOrder(o.Sort)
	}
	return &Session{
		id:        uuid.NewString(),
		be:        o.Backend,
		identity:  o.Identity,
		sink:      o.Sink,
		journal:   o.Journal,
		intervals: o.Intervals,
		now:       time.Now,
		telemetry: telemetry.NewDB(),
		packets:   telemetry.NewPacketLog(),
		transfers: thread.NewTracker(),
		unread:    unread.NewTracker(),
		tasks:     schedule.NewGroup(),
		tab:       o.Tab,
		sortMode:  o.Sort,
		order:     o.Order,
	}
}

func (s *Session) ID() string               { return s.id }
func (s *Session) Identity() model.Identity { return s.identity }

// Start launches the peer, message and stats timers.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.runCtx != nil {
		s.mu.Unlock()
		return nil
	}
	s.runCtx, s.cancel = context.WithCancel(ctx)
	runCtx := s.runCtx
	s.mu.Unlock()

	log.Info().Str("session", s.id).Str("identity", s.identity.IdentityHash).
		Dur("peers", s.intervals.Peers).Dur("messages", s.intervals.Messages).Msg("session started")
	s.tasks.Start(runCtx, taskPeers, s.intervals.Peers, ignoreStale(s.RefreshPeers))
	s.tasks.Start(runCtx, taskMessages, s.intervals.Messages, ignoreStale(s.RefreshMessages))
	s.tasks.Start(runCtx, taskStats, s.intervals.Stats, func(context.Context) error {
		s.RecomputeTransferStats()
		return nil
	})
	return nil
}

// Close stops all timers. State stays readable but is no longer refreshed.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	s.tasks.StopAll()
	log.Info().Str("session", s.id).Msg("session closed")
}

// Nudge asks for an immediate peer and message refresh.
func (s *Session) Nudge() {
	s.tasks.Trigger(taskPeers)
	s.tasks.Trigger(taskMessages)
}

func ignoreStale(fn schedule.Func) schedule.Func {
	return func(ctx context.Context) error {
		if err := fn(ctx); err != nil && !errors.Is(err, ErrStale) {
			return err
		}
		return nil
	}
}

// RefreshPeers replaces the roster with the backend's list for the active tab.
func (s *Session) RefreshPeers(ctx context.Context) error {
	s.mu.Lock()
	tab, gen := s.tab, s.peerGen
	s.mu.Unlock()

	start := time.Now()
	list, err := s.be.Peers(ctx, tab)
	observe("peers", start, err)
	if err != nil {
		log.Warn().Err(err).Str("session", s.id).Str("tab", string(tab)).Msg("peer fetch failed")
		return fmt.Errorf("fetch peers: %w", err)
	}

	s.mu.Lock()
	if gen != s.peerGen {
		s.mu.Unlock()
		metrics.StaleResponses.WithLabelValues("peers").Inc()
		log.Debug().Str("tab", string(tab)).Msg("discarding peer list for old tab")
		return ErrStale
	}
	list = dedupe(list)
	peers.Sort(list, s.sortMode, s.order)
	s.roster = list
	s.summary = peers.Summarize(list)

	var out []events.Event
	autoSelected := false
	if s.selected != nil {
		if p, ok := findIdentity(list, s.selected.IdentityHash); ok {
			s.selected = &p
		} else {
			log.Info().Str("peer", s.selected.Key()).Msg("selected peer left the roster")
			s.selected = nil
			s.selGen++
			s.messages = nil
			s.lastDigest = ""
			out = append(out, s.event(events.PeerSelected, "", nil))
		}
	}
	if s.selected == nil && len(list) > 0 {
		out = append(out, s.selectLocked(list[0])...)
		autoSelected = true
	}
	summary := s.summary
	s.mu.Unlock()

	s.publish(append([]events.Event{s.event(events.PeersUpdated, "", summary)}, out...)...)
	if autoSelected {
		s.restartMessages()
	}
	return nil
}

// dedupe keeps one entry per identity at its first position, with the latest value.
func dedupe(list []model.Peer) []model.Peer {
	index := make(map[string]int, len(list))
	out := make([]model.Peer, 0, len(list))
	for _, p := range list {
		key := model.NormalizeHash(p.IdentityHash)
		if key == "" {
			key = p.Key()
		}
		if i, ok := index[key]; ok {
			out[i] = p
			continue
		}
		index[key] = len(out)
		out = append(out, p)
	}
	return out
}

func findIdentity(list []model.Peer, identity string) (model.Peer, bool) {
	for _, p := range list {
		if model.SameHash(p.IdentityHash, identity) {
			return p, true
		}
	}
	return model.Peer{}, false
}

// Digest is the change-detection fingerprint of a message set.
func Digest(messages []model.Message) string {
	data, err := json.Marshal(messages)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// RefreshMessages polls the selected conversation and, when it changed,
// replaces the message set, folds telemetry, rebuilds transfers and marks unread.
func (s *Session) RefreshMessages(ctx context.Context) error {
	s.mu.Lock()
	if s.selected == nil {
		s.mu.Unlock()
		return nil
	}
	gen, key := s.selGen, s.selected.Key()
	s.mu.Unlock()

	start := time.Now()
	msgs, err := s.be.Messages(ctx, key)
	observe("messages", start, err)
	if err != nil {
		log.Warn().Err(err).Str("session", s.id).Str("peer", key).Msg("message fetch failed")
		return fmt.Errorf("fetch messages: %w", err)
	}
	digest := Digest(msgs)

	s.mu.Lock()
	if gen != s.selGen || s.selected == nil || s.selected.Key() != key {
		s.mu.Unlock()
		metrics.StaleResponses.WithLabelValues("messages").Inc()
		log.Debug().Str("peer", key).Msg("discarding messages for previous selection")
		return ErrStale
	}
	if digest != "" && digest == s.lastDigest {
		s.mu.Unlock()
		metrics.UnchangedPolls.Inc()
		return nil
	}
	s.lastDigest = digest
	out := s.applyMessagesLocked(msgs, key)
	s.mu.Unlock()

	s.publish(out...)
	return nil
}

func (s *Session) applyMessagesLocked(msgs []model.Message, selected string) []events.Event {
	s.messages = msgs

	folded := map[string]bool{}
	var arrived []string
	for _, m := range msgs {
		if !m.IsIncoming() {
			continue
		}
		if s.packets.Add(model.PacketFromMessage(m)) {
			arrived = append(arrived, m.PeerAddr())
		}
		if f := telemetry.FragmentFromMessage(m); !f.Empty() {
			peer := model.NormalizeHash(m.PeerAddr())
			s.telemetry.Fold(peer, f)
			metrics.TelemetryFolds.Inc()
			folded[peer] = true
		}
	}

	s.transfers.Rebuild(msgs)

	unreadChanged := false
	// only packets not already in the log count as new activity
	for _, peer := range arrived {
		if s.unread.Mark(peer, selected) {
			unreadChanged = true
		}
	}
	metrics.UnreadPeers.Set(float64(s.unread.Len()))

	out := []events.Event{s.event(events.MessagesUpdated, selected, map[string]int{
		"messages": len(msgs),
		"thread":   len(thread.Filter(msgs, selected)),
	})}
	for peer := range folded {
		rec, _ := s.telemetry.Get(peer)
		out = append(out, s.event(events.TelemetryFolded, peer, rec))
	}
	if unreadChanged {
		out = append(out, s.event(events.UnreadChanged, "", s.unread.List()))
	}
	return out
}

// SelectPeer makes h the active conversation and polls it at once.
func (s *Session) SelectPeer(h string) (model.Peer, error) {
	s.mu.Lock()
	p, ok := peers.Find(s.roster, h)
	if !ok {
		s.mu.Unlock()
		return model.Peer{}, fmt.Errorf("%w: %s", ErrUnknownPeer, h)
	}
	out := s.selectLocked(p)
	s.mu.Unlock()

	s.publish(out...)
	s.restartMessages()
	return p, nil
}

func (s *Session) selectLocked(p model.Peer) []events.Event {
	s.selected = &p
	s.selGen++
	s.lastDigest = ""
	out := []events.Event{s.event(events.PeerSelected, p.Key(), p)}
	cleared := s.unread.Clear(p.Key())
	if s.unread.Clear(p.IdentityHash) {
		cleared = true
	}
	if cleared {
		metrics.UnreadPeers.Set(float64(s.unread.Len()))
		out = append(out, s.event(events.UnreadChanged, "", s.unread.List()))
	}
	return out
}

// restartMessages restarts the message timer so the new selection is fetched immediately.
func (s *Session) restartMessages() {
	s.mu.Lock()
	ctx, closed := s.runCtx, s.closed
	s.mu.Unlock()
	if ctx == nil || closed {
		return
	}
	s.tasks.Start(ctx, taskMessages, s.intervals.Messages, ignoreStale(s.RefreshMessages))
}

// SetTab switches the roster tab and reloads it. Responses for the old tab are discarded.
func (s *Session) SetTab(ctx context.Context, tab model.Tab) error {
	s.mu.Lock()
	s.tab = tab
	s.peerGen++
	s.mu.Unlock()
	return s.RefreshPeers(ctx)
}

// SetSort re-sorts the roster. An empty order uses the mode's default.
func (s *Session) SetSort(mode peers.SortMode, order peers.Order) {
	if order == "" {
		order = peers.DefaultOrder(mode)
	}
	s.mu.Lock()
	s.sortMode, s.order = mode, order
	peers.Sort(s.roster, mode, order)
	summary := s.summary
	s.mu.Unlock()
	s.publish(s.event(events.PeersUpdated, "", summary))
}

// RecomputeTransferStats refreshes the aggregate transfer figures.
func (s *Session) RecomputeTransferStats() model.TransferStats {
	st := s.transfers.Stats()
	s.mu.Lock()
	changed := st != s.stats
	s.stats = st
	s.mu.Unlock()
	metrics.ActiveTransfers.Set(float64(st.Active))
	if changed {
		s.publish(s.event(events.TransferStats, "", st))
	}
	return st
}

// ResetDigest forces the next message poll to be applied even if unchanged.
func (s *Session) ResetDigest() {
	s.mu.Lock()
	s.lastDigest = ""
	s.mu.Unlock()
}

func (s *Session) event(t events.Type, peer string, payload interface{}) events.Event {
	return events.Event{Type: t, Session: s.id, Peer: peer, Time: s.now(), Payload: payload}
}

func (s *Session) publish(evs ...events.Event) {
	for _, e := range evs {
		s.sink.Publish(e)
	}
}

func (s *Session) audit(ctx context.Context, action, target, detail string) {
	if s.journal == nil {
		return
	}
	e := model.AuditEntry{
		Actor:     s.identity.Delivery(),
		Action:    action,
		Target:    target,
		Detail:    detail,
		Timestamp: s.now(),
	}
	if err := s.journal.AppendAudit(ctx, e); err != nil {
		log.Warn().Err(err).Str("action", action).Msg("audit append failed")
	}
}

func observe(kind string, start time.Time, err error) {
	metrics.FetchDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	result := "ok"
	switch {
	case backend.IsBackendError(err):
		result = "backend_error"
	case err != nil:
		result = "error"
	}
	metrics.FetchTotal.WithLabelValues(kind, result).Inc()
}
