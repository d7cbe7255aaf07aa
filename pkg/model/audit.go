package model

import "time"

// AuditEntry records an action the agent performed on behalf of the user.
type AuditEntry struct {
	ID        string    `json:"id" gorm:"primaryKey;size:26"`
	Actor     string    `json:"actor" gorm:"size:64"`
	Action    string    `json:"action" gorm:"size:64;index"`
	Target    string    `json:"target" gorm:"size:128"`
	Detail    string    `json:"detail,omitempty"`
	Timestamp time.Time `json:"timestamp" gorm:"index"`
}

// TableName keeps the same table across journal drivers.
func (AuditEntry) TableName() string { return "audit_entries" }
