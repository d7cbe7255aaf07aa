// Package export writes conversation snapshots to a local directory or S3.
package export

import (
	"encoding/json"
	"fmt"
	"time"

	"lxmf-chat/pkg/model"
)

// Document is the exported view of one conversation.
type Document struct {
	Peer       model.Peer             `json:"peer"`
	Identity   model.Identity         `json:"identity"`
	Messages   []model.Message        `json:"messages"`
	Telemetry  *model.TelemetryRecord `json:"telemetry,omitempty"`
	ExportedAt time.Time              `json:"exported_at"`
}

// FileName is chat_<first 8 of peer hash>_<unix millis>.json.
func (d Document) FileName() string {
	h := d.Peer.Key()
	if len(h) > 8 {
		h = h[:8]
	}
	if h == "" {
		h = "unknown"
	}
	return fmt.Sprintf("chat_%s_%d.json", h, d.ExportedAt.UnixMilli())
}

func (d Document) Encode() ([]byte, error) {
	if d.Messages == nil {
		d.Messages = []model.Message{}
	}
	return json.MarshalIndent(d, "", "  ")
}
