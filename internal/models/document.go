// internal/models/document.go
package models

import "time"

// DocumentStatus is the verification status of an evidence document.
// Only verified documents contribute to scoring.
type DocumentStatus string

const (
	DocumentPending     DocumentStatus = "pending"
	DocumentVerified    DocumentStatus = "verified"
	DocumentNeedsReview DocumentStatus = "needs_review"
	DocumentRejected    DocumentStatus = "rejected"
)

// Document is an uploaded evidence artifact owned by exactly one talent.
type Document struct {
	ID          string         `json:"id"`
	TalentID    string         `json:"talentId"`
	Category    string         `json:"category"` // one of the fixed criteria keys, or "" when unassigned
	ScoreImpact int            `json:"scoreImpact"`
	Status      DocumentStatus `json:"status"`
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	ContentRef  string         `json:"contentRef,omitempty"`
	Confidence  string         `json:"confidence,omitempty"` // high, medium, low
	Rationale   string         `json:"rationale,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}
