// Package peers orders, summarizes and searches the peer roster.
package peers

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"lxmf-chat/pkg/model"
)

// SortMode selects the ordering key.
type SortMode string

const (
	ByTime   SortMode = "time"
	ByHops   SortMode = "hops"
	BySignal SortMode = "signal"
)

// Order is ascending or descending.
type Order string

const (
	Asc  Order = "asc"
	Desc Order = "desc"
)

const (
	missingHops  = 999
	noSignal     = -999
	maxValidHops = 100
)

// DefaultOrder is the natural order of a mode: newest, closest, strongest first.
func DefaultOrder(mode SortMode) Order {
	if mode == ByHops {
		return Asc
	}
	return Desc
}

// ParseSort validates a mode and order; an empty order picks the mode's default.
func ParseSort(mode, order string) (SortMode, Order, error) {
	m := SortMode(strings.ToLower(strings.TrimSpace(mode)))
	switch m {
	case "":
		m = ByTime
	case ByTime, ByHops, BySignal:
	default:
		return "", "", fmt.Errorf("unknown sort mode %q", mode)
	}
	o := Order(strings.ToLower(strings.TrimSpace(order)))
	switch o {
	case "":
		o = DefaultOrder(m)
	case Asc, Desc:
	default:
		return "", "", fmt.Errorf("unknown sort order %q", order)
	}
	return m, o, nil
}

// Sort orders the peers in place. Ties keep their incoming order.
func Sort(list []model.Peer, mode SortMode, order Order) {
	var key func(model.Peer) float64
	switch mode {
	case ByHops:
		key = hopsKey
	case BySignal:
		key = SignalScore
	default:
		key = func(p model.Peer) float64 { return p.LastSeen }
	}
	sort.SliceStable(list, func(i, j int) bool {
		a, b := key(list[i]), key(list[j])
		if order == Asc {
			return a < b
		}
		return a > b
	})
}

func hopsKey(p model.Peer) float64 {
	if p.Hops == nil {
		return missingHops
	}
	return math.Trunc(*p.Hops)
}

// SignalScore averages the available components (rssi+100)*0.6, snr*0.4 and quality.
// Peers without any component score -999.
func SignalScore(p model.Peer) float64 {
	score, n := 0.0, 0
	if p.RSSI != nil && !math.IsNaN(*p.RSSI) {
		score += (*p.RSSI + 100) * 0.6
		n++
	}
	if p.SNR != nil && !math.IsNaN(*p.SNR) {
		score += *p.SNR * 0.4
		n++
	}
	if p.Quality != nil && !math.IsNaN(*p.Quality) {
		score += *p.Quality
		n++
	}
	if n == 0 {
		return noSignal
	}
	return score / float64(n)
}

// Summarize counts online peers and averages hop counts in [0, 100).
func Summarize(list []model.Peer) model.PeerSummary {
	s := model.PeerSummary{Total: len(list)}
	total := 0.0
	for _, p := range list {
		if p.Online {
			s.Online++
		}
		if p.Hops == nil {
			continue
		}
		h := *p.Hops
		if math.IsNaN(h) || math.IsInf(h, 0) || h < 0 || h >= maxValidHops {
			continue
		}
		total += h
		s.HopsN++
	}
	if s.HopsN > 0 {
		s.AvgHops = total / float64(s.HopsN)
	}
	return s
}

// Search keeps peers whose display name or hashes contain q, case-insensitively.
func Search(list []model.Peer, q string) []model.Peer {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return list
	}
	nq := model.NormalizeHash(q)
	var out []model.Peer
	for _, p := range list {
		if strings.Contains(strings.ToLower(p.DisplayName), q) ||
			(nq != "" && (strings.Contains(model.NormalizeHash(p.Hash), nq) || strings.Contains(model.NormalizeHash(p.IdentityHash), nq))) {
			out = append(out, p)
		}
	}
	return out
}

// Find returns the peer named by h, by identity or routing hash.
func Find(list []model.Peer, h string) (model.Peer, bool) {
	for _, p := range list {
		if p.Matches(h) {
			return p, true
		}
	}
	return model.Peer{}, false
}
