// internal/models/talent.go
package models

import "time"

// QualificationStatus is derived from the overall score via fixed bands.
type QualificationStatus string

const (
	QualificationLow        QualificationStatus = "low"
	QualificationBorderline QualificationStatus = "borderline"
	QualificationStrong     QualificationStatus = "strong"
)

// Talent is a candidate profile. Score fields are derived and mutated only by
// the scoring engine in response to evidence changes.
type Talent struct {
	ID                  string              `json:"id"`
	TalentCode          string              `json:"talentCode"`
	UserID              string              `json:"userId"`
	OverallScore        int                 `json:"overallScore"`
	QualificationStatus QualificationStatus `json:"qualificationStatus"`
	CriteriaMet         []string            `json:"criteriaMet"`
	EvidenceSummary     []CategorySummary   `json:"evidenceSummary"`
	CreatedAt           time.Time           `json:"createdAt"`
	UpdatedAt           time.Time           `json:"updatedAt"`
}

// CategorySummary is the per-category snapshot persisted on the talent row.
type CategorySummary struct {
	Category          string   `json:"category"`
	Score             int      `json:"score"`
	MaxScore          int      `json:"maxScore"`
	Threshold         int      `json:"threshold"`
	Met               bool     `json:"met"`
	EvidenceCount     int      `json:"evidenceCount"`
	SatisfiedExamples []string `json:"satisfiedExamples,omitempty"`
	NeededExamples    []string `json:"neededExamples,omitempty"`
}
