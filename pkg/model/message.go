package model

import "strconv"

// Direction of a message relative to the local identity.
type Direction string

const (
	Incoming Direction = "incoming"
	Outgoing Direction = "outgoing"
)

// Status is the delivery state of an outgoing message.
type Status string

const (
	StatusSending   Status = "sending"
	StatusSent      Status = "sent"
	StatusDelivered Status = "delivered"
	StatusFailed    Status = "failed"
)

// Attachment describes a file carried by a message.
type Attachment struct {
	Type      string   `json:"type"` // image/audio/file
	Name      string   `json:"name,omitempty"`
	SavedAs   string   `json:"saved_as,omitempty"`
	Size      *float64 `json:"size,omitempty"`
	AudioMode *int     `json:"audio_mode,omitempty"`
}

// Message is an immutable snapshot of a chat message as served by the backend.
type Message struct {
	ID          FlexString   `json:"id,omitempty"`
	Timestamp   float64      `json:"timestamp"`
	Direction   Direction    `json:"direction"`
	From        string       `json:"from,omitempty"`
	To          string       `json:"to,omitempty"`
	FromDisplay string       `json:"from_display,omitempty"`
	Content     string       `json:"content"`
	Status      Status       `json:"status,omitempty"`
	Progress    *float64     `json:"progress,omitempty"`
	Speed       *float64     `json:"speed,omitempty"` // bytes/s
	TotalSize   *float64     `json:"total_size,omitempty"`
	IsReceiving bool         `json:"is_receiving,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`

	RSSI *float64 `json:"rssi,omitempty"`
	SNR  *float64 `json:"snr,omitempty"`
	Q    *float64 `json:"q,omitempty"`

	RawHex   string   `json:"raw_hex,omitempty"`
	RawASCII string   `json:"raw_ascii,omitempty"`
	RawSize  *float64 `json:"raw_size,omitempty"`
	LXMFFile string   `json:"lxmf_file,omitempty"`

	MsgType     string `json:"msg_type,omitempty"`
	CommandType string `json:"command_type,omitempty"`

	Battery     *Battery           `json:"battery,omitempty"`
	Location    *Location          `json:"location,omitempty"`
	Appearance  *Appearance        `json:"appearance,omitempty"`
	Information Information        `json:"information,omitempty"`
	Pressure    *float64           `json:"pressure,omitempty"`
	Temperature *float64           `json:"temperature,omitempty"`
	Humidity    *float64           `json:"humidity,omitempty"`
	Telemetry   *TelemetryFragment `json:"telemetry,omitempty"`
}

func (m Message) IsIncoming() bool { return m.Direction == Incoming }

// PeerAddr is the counterpart address used for telemetry and packet logs: from, else to.
func (m Message) PeerAddr() string {
	if m.From != "" {
		return m.From
	}
	return m.To
}

// TransferKey identifies the message in the transfer map: its id, else its timestamp.
func (m Message) TransferKey() string {
	if m.ID != "" {
		return string(m.ID)
	}
	return strconv.FormatFloat(m.Timestamp, 'f', -1, 64)
}

// InFlight reports whether the message is a transfer still in progress.
func (m Message) InFlight() bool {
	if m.IsReceiving {
		return true
	}
	return m.Direction == Outgoing && m.Status == StatusSending && m.Progress != nil && *m.Progress < 100
}

// Retryable reports whether the user may resend the message.
func (m Message) Retryable() bool {
	return m.Direction == Outgoing && m.Status == StatusFailed
}

// InThread reports whether the message belongs to the conversation with peer.
func (m Message) InThread(peer string) bool {
	key := NormalizeHash(peer)
	if key == "" {
		return false
	}
	return NormalizeHash(m.From) == key || NormalizeHash(m.To) == key
}
