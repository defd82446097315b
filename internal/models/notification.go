// internal/models/notification.go
package models

import "time"

type Notification struct {
	ID            string    `json:"id"`
	RecipientID   string    `json:"recipientId"`
	RecipientType string    `json:"recipientType"` // "talent", "employer" or "admin"
	Type          string    `json:"type"`          // "letter_approved", "letter_submitted", ...
	Subject       string    `json:"subject"`
	Body          string    `json:"body"`
	Priority      string    `json:"priority"` // "normal" or "high"
	Status        string    `json:"status"`   // "sent", "failed", "disabled"
	CreatedAt     time.Time `json:"createdAt"`
}

// ActivityEntry is a best-effort audit record. Writing one never blocks the
// primary mutation it describes.
type ActivityEntry struct {
	ID       string                 `json:"id"`
	ActorID  string                 `json:"actorId"`
	Action   string                 `json:"action"`
	Entity   string                 `json:"entity"`
	EntityID string                 `json:"entityId"`
	Detail   map[string]interface{} `json:"detail,omitempty"`
	At       time.Time              `json:"at"`
}
