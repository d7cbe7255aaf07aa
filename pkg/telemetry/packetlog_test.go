package telemetry

import (
	"fmt"
	"testing"

	"lxmf-chat/pkg/model"
)

func TestPacketLogDedupAndOrder(t *testing.T) {
	l := NewPacketLog()
	a := model.PacketLogEntry{Timestamp: 1, Direction: model.Incoming, Peer: "<A1>", Content: "x", RawHex: "00"}
	b := model.PacketLogEntry{Timestamp: 2, Direction: model.Incoming, Peer: "a1", Content: "y"}

	if !l.Add(a) || !l.Add(b) {
		t.Fatal("first inserts should be stored")
	}
	if l.Add(a) {
		t.Fatal("duplicate triple stored twice")
	}
	got := l.List("A1", 0)
	if len(got) != 2 || got[0].Timestamp != 2 || got[1].Timestamp != 1 {
		t.Fatalf("log = %+v, want newest first", got)
	}

	// same timestamp and content but different raw payload is a different packet
	c := a
	c.RawHex = "01"
	if !l.Add(c) {
		t.Fatal("distinct raw_hex treated as duplicate")
	}
}

func TestPacketLogIgnoresOutgoing(t *testing.T) {
	l := NewPacketLog()
	if l.Add(model.PacketLogEntry{Timestamp: 1, Direction: model.Outgoing, Peer: "a1"}) {
		t.Fatal("outgoing packet stored")
	}
	if n := len(l.List("a1", 0)); n != 0 {
		t.Fatalf("len = %d", n)
	}
}

func TestPacketLogBound(t *testing.T) {
	l := NewPacketLog()
	for i := 0; i < 80; i++ {
		l.Add(model.PacketLogEntry{Timestamp: float64(i), Direction: model.Incoming, Peer: "p", Content: fmt.Sprint(i)})
	}
	got := l.List("p", 0)
	if len(got) != PacketLogCap {
		t.Fatalf("len = %d, want %d", len(got), PacketLogCap)
	}
	if got[0].Timestamp != 79 || got[PacketLogCap-1].Timestamp != 30 {
		t.Fatalf("kept wrong window: first=%v last=%v", got[0].Timestamp, got[PacketLogCap-1].Timestamp)
	}
	if n := len(l.List("p", 5)); n != 5 {
		t.Fatalf("limit ignored: %d", n)
	}
}
