// internal/models/letter.go
package models

import "time"

// LetterStatus is the primary interest letter status.
type LetterStatus string

const (
	LetterDraft         LetterStatus = "draft"
	LetterPendingReview LetterStatus = "pending_review"
	LetterSent          LetterStatus = "sent" // approved and delivered to candidate
	LetterRejected      LetterStatus = "rejected"
)

// SignatureStatus tracks the e-signature sub-flow nested within a letter.
type SignatureStatus string

const (
	SignatureNone           SignatureStatus = "none"
	SignatureRequested      SignatureStatus = "requested"
	SignatureSentToSigner   SignatureStatus = "sent_to_signer"
	SignatureViewed         SignatureStatus = "viewed"
	SignatureSigned         SignatureStatus = "signed"
	SignatureDeclined       SignatureStatus = "declined"
	SignatureExpired        SignatureStatus = "expired"
	SignatureAdminReviewing SignatureStatus = "admin_reviewing"
	SignatureForwarded      SignatureStatus = "forwarded_to_employer"
)

// CommitmentLevel is the ordered scale of how firm an employer's interest is.
type CommitmentLevel string

const (
	CommitmentExploring     CommitmentLevel = "exploring"
	CommitmentInterviewing  CommitmentLevel = "interviewing"
	CommitmentIntentToHire  CommitmentLevel = "intent_to_hire"
	CommitmentOfferExtended CommitmentLevel = "offer_extended"
)

// InterestLetter relates one employer to one candidate. Talent contact
// details stay hidden from the employer until ContactRevealedAt is set by the
// forward transition; it is never unset.
type InterestLetter struct {
	ID                string          `json:"id"`
	EmployerID        string          `json:"employerId"`
	TalentID          string          `json:"talentId"`
	JobTitle          string          `json:"jobTitle"`
	Duties            string          `json:"duties"`
	Justification     string          `json:"justification"`
	CommitmentLevel   CommitmentLevel `json:"commitmentLevel"`
	Compensation      string          `json:"compensation,omitempty"`
	Engagement        string          `json:"engagement,omitempty"`
	Status            LetterStatus    `json:"status"`
	SignatureStatus   SignatureStatus `json:"signatureStatus"`
	SignatureDocID    string          `json:"signatureDocId,omitempty"`
	SignedDocRef      string          `json:"signedDocRef,omitempty"`
	SignedAt          *time.Time      `json:"signedAt,omitempty"`
	ContactRevealedAt *time.Time      `json:"contactRevealedAt,omitempty"`
	CreatedAt         time.Time       `json:"createdAt"`
	UpdatedAt         time.Time       `json:"updatedAt"`
}
