package model

// PacketLogEntry is the diagnostic view of one incoming packet.
type PacketLogEntry struct {
	Timestamp  float64     `json:"timestamp"`
	Direction  Direction   `json:"direction"`
	Peer       string      `json:"peer"`
	Content    string      `json:"content"`
	RSSI       *float64    `json:"rssi,omitempty"`
	SNR        *float64    `json:"snr,omitempty"`
	Q          *float64    `json:"q,omitempty"`
	Battery    *Battery    `json:"battery,omitempty"`
	Location   *Location   `json:"location,omitempty"`
	Appearance *Appearance `json:"appearance,omitempty"`
	RawHex     string      `json:"raw_hex,omitempty"`
	RawASCII   string      `json:"raw_ascii,omitempty"`
	RawSize    *float64    `json:"raw_size,omitempty"`
}

// SameAs reports whether two entries describe the same packet.
func (p PacketLogEntry) SameAs(o PacketLogEntry) bool {
	return p.Timestamp == o.Timestamp && p.Content == o.Content && p.RawHex == o.RawHex
}

// PacketFromMessage builds a log entry from an incoming message.
func PacketFromMessage(m Message) PacketLogEntry {
	return PacketLogEntry{
		Timestamp:  m.Timestamp,
		Direction:  m.Direction,
		Peer:       m.PeerAddr(),
		Content:    m.Content,
		RSSI:       m.RSSI,
		SNR:        m.SNR,
		Q:          m.Q,
		Battery:    m.Battery,
		Location:   m.Location,
		Appearance: m.Appearance,
		RawHex:     m.RawHex,
		RawASCII:   m.RawASCII,
		RawSize:    m.RawSize,
	}
}

// RawPayload is the debug dump of a stored LXMF file.
type RawPayload struct {
	RawHex   string  `json:"raw_hex"`
	RawASCII string  `json:"raw_ascii"`
	RawSize  float64 `json:"raw_size"`
}
