package peers

import (
	"math"
	"testing"

	"lxmf-chat/pkg/model"
)

func fp(v float64) *float64 { return &v }

func names(list []model.Peer) []string {
	out := make([]string, len(list))
	for i, p := range list {
		out[i] = p.DisplayName
	}
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestSortModes(t *testing.T) {
	base := []model.Peer{
		{DisplayName: "a", LastSeen: 10, Hops: fp(3), RSSI: fp(-90)},
		{DisplayName: "b", LastSeen: 30, SNR: fp(12)},
		{DisplayName: "c", LastSeen: 20, Hops: fp(1), RSSI: fp(-60), SNR: fp(10), Quality: fp(0.9)},
		{DisplayName: "d", LastSeen: 5},
	}
	cases := []struct {
		mode  SortMode
		order Order
		want  []string
	}{
		{ByTime, Desc, []string{"b", "c", "a", "d"}},
		{ByTime, Asc, []string{"d", "a", "c", "b"}},
		{ByHops, Asc, []string{"c", "a", "b", "d"}},
		// a: (10*0.6)=6; b: 4.8; c: (24+4+0.9)/3 = 9.63; d: -999
		{BySignal, Desc, []string{"c", "a", "b", "d"}},
	}
	for _, tc := range cases {
		list := append([]model.Peer(nil), base...)
		Sort(list, tc.mode, tc.order)
		if got := names(list); !equal(got, tc.want) {
			t.Errorf("%s/%s = %v, want %v", tc.mode, tc.order, got, tc.want)
		}
	}
}

func TestParseSortDefaults(t *testing.T) {
	m, o, err := ParseSort("hops", "")
	if err != nil || m != ByHops || o != Asc {
		t.Fatalf("ParseSort(hops) = %s %s %v", m, o, err)
	}
	m, o, err = ParseSort("", "")
	if err != nil || m != ByTime || o != Desc {
		t.Fatalf("ParseSort() = %s %s %v", m, o, err)
	}
	if _, _, err := ParseSort("alpha", ""); err == nil {
		t.Fatal("unknown mode accepted")
	}
}

func TestSummarize(t *testing.T) {
	s := Summarize([]model.Peer{
		{Online: true, Hops: fp(2)},
		{Online: true, Hops: fp(4)},
		{Online: false, Hops: fp(150)},
		{Online: false, Hops: fp(-1)},
		{Online: true, Hops: fp(math.Inf(1))},
		{Online: false},
	})
	if s.Total != 6 || s.Online != 3 || s.HopsN != 2 || s.AvgHops != 3 {
		t.Fatalf("summary = %+v", s)
	}
	if empty := Summarize(nil); empty.AvgHops != 0 || empty.Total != 0 {
		t.Fatalf("empty summary = %+v", empty)
	}
}

func TestSearchAndFind(t *testing.T) {
	list := []model.Peer{
		{DisplayName: "Mountain Node", IdentityHash: "aa11", Hash: "bb22"},
		{DisplayName: "Home", IdentityHash: "cc33", Hash: "dd44"},
	}
	if got := Search(list, "mount"); len(got) != 1 || got[0].IdentityHash != "aa11" {
		t.Fatalf("search by name = %+v", got)
	}
	if got := Search(list, "<DD:44>"); len(got) != 1 || got[0].DisplayName != "Home" {
		t.Fatalf("search by hash = %+v", got)
	}
	if p, ok := Find(list, "AA11"); !ok || p.Hash != "bb22" {
		t.Fatalf("find = %+v %v", p, ok)
	}
}
