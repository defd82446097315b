// internal/models/session.go
package models

import (
	"encoding/json"
	"time"
)

// SessionStatus is the lifecycle of an external scoring-service session.
type SessionStatus string

const (
	SessionQueued     SessionStatus = "queued"
	SessionProcessing SessionStatus = "processing"
	SessionCompleted  SessionStatus = "completed"
	SessionFailed     SessionStatus = "failed"
)

// IsTerminal reports whether the session needs no further reconciliation.
func (s SessionStatus) IsTerminal() bool {
	return s == SessionCompleted || s == SessionFailed
}

// ScoreSession tracks one async scoring run at the external scoring service.
// On completion the provider report is persisted verbatim in Report.
type ScoreSession struct {
	ID                string          `json:"id"`
	TalentID          string          `json:"talentId"`
	ExternalSessionID string          `json:"externalSessionId"`
	Status            SessionStatus   `json:"status"`
	Report            json.RawMessage `json:"report,omitempty"`
	SummaryScore      *int            `json:"summaryScore,omitempty"`
	CompletedAt       *time.Time      `json:"completedAt,omitempty"`
	CreatedAt         time.Time       `json:"createdAt"`
	UpdatedAt         time.Time       `json:"updatedAt"`
}
