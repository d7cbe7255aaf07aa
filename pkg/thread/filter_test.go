package thread

import (
	"testing"

	"lxmf-chat/pkg/model"
)

func TestFilterMatchesDecoratedHashes(t *testing.T) {
	const h = "abcdef0123"
	msgs := []model.Message{
		{Timestamp: 3, From: "<ABCDEF0123>", To: "self", Content: "from"},
		{Timestamp: 1, From: "self", To: "abcdef0123:", Content: "to"},
		{Timestamp: 2, From: "other", To: "self", Content: "unrelated"},
	}
	got := Filter(msgs, h)
	if len(got) != 2 {
		t.Fatalf("thread = %+v, want 2 messages", got)
	}
	if got[0].Content != "to" || got[1].Content != "from" {
		t.Fatalf("order = %q, %q", got[0].Content, got[1].Content)
	}
}

func TestFilterStableForEqualTimestamps(t *testing.T) {
	msgs := []model.Message{
		{Timestamp: 5, From: "p", Content: "a"},
		{Timestamp: 1, From: "p", Content: "first"},
		{Timestamp: 5, From: "p", Content: "b"},
		{Timestamp: 5, From: "p", Content: "c"},
	}
	got := Filter(msgs, "P")
	want := []string{"first", "a", "b", "c"}
	for i, w := range want {
		if got[i].Content != w {
			t.Fatalf("got[%d] = %q, want %q", i, got[i].Content, w)
		}
	}
}

func TestFilterEmptyPeer(t *testing.T) {
	if got := Filter([]model.Message{{From: "", To: ""}}, ""); len(got) != 0 {
		t.Fatalf("empty peer matched %d messages", len(got))
	}
}

func TestFindRetryable(t *testing.T) {
	msgs := []model.Message{
		{Timestamp: 10, Direction: model.Outgoing, Status: model.StatusDelivered, Content: "ok"},
		{Timestamp: 11, Direction: model.Outgoing, Status: model.StatusFailed, Content: "again"},
	}
	if _, ok := FindRetryable(msgs, 10); ok {
		t.Fatal("delivered message is not retryable")
	}
	m, ok := FindRetryable(msgs, 11)
	if !ok || m.Content != "again" {
		t.Fatalf("FindRetryable = %+v, %v", m, ok)
	}
}
