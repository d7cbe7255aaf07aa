package telemetry

import (
	"sort"
	"sync"
	"time"

	"lxmf-chat/pkg/model"
)

// HistoryCap bounds the per-peer history.
const HistoryCap = 100

// DB keeps the latest telemetry state of every peer, keyed by normalized hash.
type DB struct {
	mu      sync.RWMutex
	records map[string]*model.TelemetryRecord
	now     func() time.Time
}

func NewDB() *DB {
	return &DB{
		records: make(map[string]*model.TelemetryRecord),
		now:     time.Now,
	}
}

// Fold merges a fragment into the peer's record. Only fields the fragment carries
// are overwritten; one history entry is prepended and the oldest dropped past HistoryCap.
func (db *DB) Fold(peer string, f model.TelemetryFragment) model.TelemetryRecord {
	key := model.NormalizeHash(peer)
	db.mu.Lock()
	defer db.mu.Unlock()
	rec, ok := db.records[key]
	if !ok {
		rec = &model.TelemetryRecord{}
		db.records[key] = rec
	}
	if f.Battery != nil {
		rec.Battery = f.Battery
	}
	if f.Location != nil {
		rec.Location = f.Location
	}
	if f.Appearance != nil {
		rec.Appearance = f.Appearance
	}
	if f.Information != nil {
		rec.Information = f.Information
	}
	if f.Pressure != nil {
		rec.Pressure = f.Pressure
	}
	if f.Temperature != nil {
		rec.Temperature = f.Temperature
	}
	if f.Humidity != nil {
		rec.Humidity = f.Humidity
	}
	if f.Timestamp != nil {
		rec.LastUpdate = *f.Timestamp
	} else {
		rec.LastUpdate = float64(db.now().UnixMilli()) / 1000
	}

	entry := model.HistoryEntry{
		Timestamp: rec.LastUpdate,
		Battery:   f.Battery.Percent(),
		Location:  f.Location,
	}
	n := len(rec.History) + 1
	if n > HistoryCap {
		n = HistoryCap
	}
	hist := make([]model.HistoryEntry, 0, n)
	hist = append(hist, entry)
	hist = append(hist, rec.History[:n-1]...)
	rec.History = hist
	return cloneRecord(rec)
}

// Get returns a copy of the peer's record.
func (db *DB) Get(peer string) (model.TelemetryRecord, bool) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	rec, ok := db.records[model.NormalizeHash(peer)]
	if !ok {
		return model.TelemetryRecord{}, false
	}
	return cloneRecord(rec), true
}

// Peers lists the keys that have a record, sorted.
func (db *DB) Peers() []string {
	db.mu.RLock()
	defer db.mu.RUnlock()
	out := make([]string, 0, len(db.records))
	for k := range db.records {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Len is the number of peers with telemetry.
func (db *DB) Len() int {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return len(db.records)
}

func cloneRecord(rec *model.TelemetryRecord) model.TelemetryRecord {
	out := *rec
	out.History = append([]model.HistoryEntry(nil), rec.History...)
	return out
}

// FragmentFromMessage extracts the telemetry a message carries. Fields of the nested
// telemetry object win over the top-level ones. The fragment timestamp is the message's;
// a message without one leaves it unset so Fold stamps the clock.
func FragmentFromMessage(m model.Message) model.TelemetryFragment {
	f := model.TelemetryFragment{
		Battery:     m.Battery,
		Location:    m.Location,
		Appearance:  m.Appearance,
		Information: m.Information,
		Pressure:    m.Pressure,
		Temperature: m.Temperature,
		Humidity:    m.Humidity,
	}
	if m.Timestamp > 0 {
		ts := m.Timestamp
		f.Timestamp = &ts
	}
	if t := m.Telemetry; t != nil {
		if t.Battery != nil {
			f.Battery = t.Battery
		}
		if t.Location != nil {
			f.Location = t.Location
		}
		if t.Appearance != nil {
			f.Appearance = t.Appearance
		}
		if t.Information != nil {
			f.Information = t.Information
		}
		if t.Pressure != nil {
			f.Pressure = t.Pressure
		}
		if t.Temperature != nil {
			f.Temperature = t.Temperature
		}
		if t.Humidity != nil {
			f.Humidity = t.Humidity
		}
	}
	return f
}
