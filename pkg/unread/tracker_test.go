package unread

import "testing"

func TestUnreadInvariant(t *testing.T) {
	tr := NewTracker()
	if !tr.Mark("<P1>", "p2") {
		t.Fatal("incoming for non-selected peer not marked")
	}
	if !tr.Has("p1") {
		t.Fatal("p1 missing")
	}
	if tr.Clear("p2") {
		t.Fatal("selecting another peer cleared something")
	}
	if !tr.Has("p1") {
		t.Fatal("selecting another peer removed p1")
	}
	if !tr.Clear("P1:") || tr.Has("p1") {
		t.Fatal("selecting p1 did not clear it")
	}
}

func TestMarkSelectedPeerIsNoop(t *testing.T) {
	tr := NewTracker()
	if tr.Mark("AB", "<ab>") {
		t.Fatal("selected peer marked unread")
	}
	if tr.Len() != 0 {
		t.Fatalf("len = %d", tr.Len())
	}
}

func TestMarkWithoutSelection(t *testing.T) {
	tr := NewTracker()
	tr.Mark("b", "")
	tr.Mark("a", "")
	tr.Mark("a", "")
	got := tr.List()
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("list = %v", got)
	}
}
