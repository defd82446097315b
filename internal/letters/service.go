// internal/letters/service.go
package letters

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"talent-platform/internal/common/auth"
	"talent-platform/internal/common/errors"
	"talent-platform/internal/common/logger"
	"talent-platform/internal/common/metrics"
	"talent-platform/internal/models"

	"github.com/google/uuid"
)

// Notifier delivers best-effort notifications. Failures never block the
// transition that triggered them.
type Notifier interface {
	Send(ctx context.Context, n models.Notification) error
}

// SignatureRequester creates a document for signing at the e-signature
// provider and returns the provider's document id.
type SignatureRequester interface {
	CreateSigningDocument(ctx context.Context, letter *models.InterestLetter, signerEmail, signerName string) (string, error)
}

// ProviderEvent is an inbound signature-provider webhook event.
type ProviderEvent struct {
	EventType       string `json:"event_type"`
	DocumentID      string `json:"document_id"`
	SignerEmail     string `json:"signer_email,omitempty"`
	SignerName      string `json:"signer_name,omitempty"`
	CompletedDocRef string `json:"completed_document_ref,omitempty"`
	Raw             []byte `json:"-"`
}

type Service struct {
	db       *sql.DB
	signer   SignatureRequester
	notifier Notifier
	logger   logger.Logger
}

func NewService(db *sql.DB, signer SignatureRequester, notifier Notifier, log logger.Logger) *Service {
	return &Service{
		db:       db,
		signer:   signer,
		notifier: notifier,
		logger:   log.WithFields(map[string]interface{}{"component": "letters"}),
	}
}

// CreateInput carries the employer-supplied fields of a new draft letter.
type CreateInput struct {
	TalentID        string                 `json:"talentId"`
	JobTitle        string                 `json:"jobTitle"`
	Duties          string                 `json:"duties"`
	Justification   string                 `json:"justification"`
	CommitmentLevel models.CommitmentLevel `json:"commitmentLevel"`
	Compensation    string                 `json:"compensation"`
	Engagement      string                 `json:"engagement"`
}

// Create inserts a new draft letter owned by the calling employer.
func (s *Service) Create(ctx context.Context, input CreateInput) (*models.InterestLetter, error) {
	ident, ok := auth.IdentityFrom(ctx)
	if !ok {
		return nil, errors.NewUnauthorizedError("no session")
	}
	if ident.Role != auth.RoleEmployer {
		return nil, errors.NewForbiddenError("only employers create interest letters")
	}
	if input.TalentID == "" {
		return nil, errors.NewInvalidInputError("talentId is required")
	}

	letter := &models.InterestLetter{
		ID:              uuid.New().String(),
		EmployerID:      ident.UserID,
		TalentID:        input.TalentID,
		JobTitle:        input.JobTitle,
		Duties:          input.Duties,
		Justification:   input.Justification,
		CommitmentLevel: input.CommitmentLevel,
		Compensation:    input.Compensation,
		Engagement:      input.Engagement,
		Status:          models.LetterDraft,
		SignatureStatus: models.SignatureNone,
		CreatedAt:       time.Now().UTC(),
		UpdatedAt:       time.Now().UTC(),
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO interest_letters
			(id, employer_id, talent_id, job_title, duties, justification,
			 commitment_level, compensation, engagement, status, signature_status,
			 created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW(), NOW())`,
		letter.ID, letter.EmployerID, letter.TalentID, letter.JobTitle,
		letter.Duties, letter.Justification, string(letter.CommitmentLevel),
		letter.Compensation, letter.Engagement,
		string(letter.Status), string(letter.SignatureStatus))
	if err != nil {
		return nil, errors.NewStorageError("insert letter", err)
	}

	return letter, nil
}

// Submit moves a draft into the admin review queue. The caller must own the
// letter and the job title, duties and justification must be populated.
func (s *Service) Submit(ctx context.Context, letterID string) error {
	ident, ok := auth.IdentityFrom(ctx)
	if !ok {
		return errors.NewUnauthorizedError("no session")
	}

	letter, err := s.Load(ctx, letterID)
	if err != nil {
		return err
	}
	if letter.EmployerID != ident.UserID {
		return errors.NewForbiddenError("letter belongs to another employer")
	}

	var missing []string
	if strings.TrimSpace(letter.JobTitle) == "" {
		missing = append(missing, "jobTitle")
	}
	if strings.TrimSpace(letter.Duties) == "" {
		missing = append(missing, "duties")
	}
	if strings.TrimSpace(letter.Justification) == "" {
		missing = append(missing, "justification")
	}
	if len(missing) > 0 {
		return errors.NewInvalidInputError("missing fields: " + strings.Join(missing, ", "))
	}

	next, err := Transition(letter.Status, EventSubmit)
	if err != nil {
		metrics.LetterTransitionsTotal.WithLabelValues(string(EventSubmit), "invalid_state").Inc()
		return err
	}

	if err := s.updateStatus(ctx, letterID, letter.Status, next); err != nil {
		return err
	}
	metrics.LetterTransitionsTotal.WithLabelValues(string(EventSubmit), "ok").Inc()

	s.runIntents(ctx, letter, []Intent{
		{
			Kind:     IntentNotifyAdmins,
			Type:     "letter_submitted",
			Subject:  "Interest letter awaiting review",
			Body:     "An employer submitted an interest letter for review.",
			Priority: "normal",
		},
		{
			Kind:   IntentLogActivity,
			Action: "letter.submitted",
			Detail: map[string]interface{}{"from": letter.Status, "to": next},
		},
	})

	return nil
}

// Approve is admin-only. Approval and delivery to the candidate are one
// step: the letter lands on "sent" and the candidate is notified.
func (s *Service) Approve(ctx context.Context, letterID string) error {
	return s.review(ctx, letterID, EventApprove)
}

// Reject is admin-only and terminal for the primary status.
func (s *Service) Reject(ctx context.Context, letterID string) error {
	return s.review(ctx, letterID, EventReject)
}

func (s *Service) review(ctx context.Context, letterID string, ev Event) error {
	ident, ok := auth.IdentityFrom(ctx)
	if !ok {
		return errors.NewUnauthorizedError("no session")
	}
	if !ident.IsAdmin() {
		return errors.NewForbiddenError("letter review requires the admin role")
	}

	letter, err := s.Load(ctx, letterID)
	if err != nil {
		return err
	}

	next, err := Transition(letter.Status, ev)
	if err != nil {
		metrics.LetterTransitionsTotal.WithLabelValues(string(ev), "invalid_state").Inc()
		return err
	}

	if err := s.updateStatus(ctx, letterID, letter.Status, next); err != nil {
		return err
	}
	metrics.LetterTransitionsTotal.WithLabelValues(string(ev), "ok").Inc()

	intents := []Intent{{
		Kind:   IntentLogActivity,
		Action: "letter." + string(ev),
		Detail: map[string]interface{}{"from": letter.Status, "to": next, "admin": ident.UserID},
	}}
	if ev == EventApprove {
		intents = append(intents, Intent{
			Kind:        IntentNotifyTalent,
			RecipientID: letter.TalentID,
			Type:        "letter_approved",
			Subject:     "An employer expressed interest in you",
			Body:        "An interest letter addressed to you was approved and is now available.",
			Priority:    "high",
		})
	}
	s.runIntents(ctx, letter, intents)

	return nil
}

// RequestSignature starts the e-signature sub-flow for a sent letter.
func (s *Service) RequestSignature(ctx context.Context, letterID, signerEmail, signerName string) error {
	ident, ok := auth.IdentityFrom(ctx)
	if !ok {
		return errors.NewUnauthorizedError("no session")
	}

	letter, err := s.Load(ctx, letterID)
	if err != nil {
		return err
	}
	if letter.EmployerID != ident.UserID && !ident.IsAdmin() {
		return errors.NewForbiddenError("letter belongs to another employer")
	}
	if signerEmail == "" {
		return errors.NewInvalidInputError("signerEmail is required")
	}
	if letter.Status != models.LetterSent || letter.SignatureStatus != models.SignatureNone {
		return errors.NewInvalidStateError(
			string(letter.Status)+"/"+string(letter.SignatureStatus), "request_signature")
	}

	docID, err := s.signer.CreateSigningDocument(ctx, letter, signerEmail, signerName)
	if err != nil {
		return errors.NewUpstreamFailureError("signature", err)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE interest_letters
		SET signature_status = $2, signature_doc_id = $3, updated_at = NOW()
		WHERE id = $1 AND status = 'sent' AND signature_status = 'none'`,
		letterID, string(models.SignatureRequested), docID)
	if err != nil {
		return errors.NewStorageError("update signature status", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.NewInvalidStateError(string(letter.SignatureStatus), "request_signature")
	}

	return nil
}

// HandleSignatureEvent applies an authenticated provider webhook event. The
// raw payload is audited verbatim before any state change. Unknown event
// types produce no state change. Callers (webhook handlers) acknowledge the
// provider regardless of the returned error.
func (s *Service) HandleSignatureEvent(ctx context.Context, event ProviderEvent) error {
	metrics.SignatureWebhookEventsTotal.WithLabelValues(event.EventType).Inc()
	s.auditEvent(ctx, event)

	status, known := MapProviderEvent(event.EventType)
	if !known {
		s.logger.Info("ignoring unknown signature event type", map[string]interface{}{
			"eventType":  event.EventType,
			"documentId": event.DocumentID,
		})
		return nil
	}

	var res sql.Result
	var err error
	switch event.EventType {
	case "completed":
		res, err = s.db.ExecContext(ctx, `
			UPDATE interest_letters
			SET signature_status = $2, signed_doc_ref = $3, signed_at = NOW(), updated_at = NOW()
			WHERE signature_doc_id = $1`,
			event.DocumentID, string(status), event.CompletedDocRef)
	case "cancelled":
		// Cancellation clears the document reference and resets the sub-flow.
		res, err = s.db.ExecContext(ctx, `
			UPDATE interest_letters
			SET signature_status = $2, signature_doc_id = '', signed_doc_ref = '', updated_at = NOW()
			WHERE signature_doc_id = $1`,
			event.DocumentID, string(status))
	default:
		res, err = s.db.ExecContext(ctx, `
			UPDATE interest_letters
			SET signature_status = $2, updated_at = NOW()
			WHERE signature_doc_id = $1`,
			event.DocumentID, string(status))
	}
	if err != nil {
		return errors.NewStorageError("apply signature event", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		s.logger.Warn("signature event for unknown document", map[string]interface{}{
			"eventType":  event.EventType,
			"documentId": event.DocumentID,
		})
	}

	return nil
}

// BeginAdminReview moves a signed letter into the admin forwarding gate.
func (s *Service) BeginAdminReview(ctx context.Context, letterID string) error {
	ident, ok := auth.IdentityFrom(ctx)
	if !ok {
		return errors.NewUnauthorizedError("no session")
	}
	if !ident.IsAdmin() {
		return errors.NewForbiddenError("signature review requires the admin role")
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE interest_letters
		SET signature_status = $2, updated_at = NOW()
		WHERE id = $1 AND signature_status = 'signed'`,
		letterID, string(models.SignatureAdminReviewing))
	if err != nil {
		return errors.NewStorageError("begin admin review", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.NewInvalidStateError("not signed", "begin_admin_review")
	}

	return nil
}

// Forward releases the signed copy to the employer and reveals the
// candidate's contact details. It requires a captured signature payload and
// the admin_reviewing state; otherwise the record is left unchanged.
func (s *Service) Forward(ctx context.Context, letterID string) error {
	ident, ok := auth.IdentityFrom(ctx)
	if !ok {
		return errors.NewUnauthorizedError("no session")
	}
	if !ident.IsAdmin() {
		return errors.NewForbiddenError("forwarding requires the admin role")
	}

	letter, err := s.Load(ctx, letterID)
	if err != nil {
		return err
	}
	if letter.SignatureStatus != models.SignatureAdminReviewing || letter.SignedDocRef == "" {
		return errors.NewInvalidStateError(string(letter.SignatureStatus), "forward")
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE interest_letters
		SET signature_status = $2, contact_revealed_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND signature_status = 'admin_reviewing' AND signed_doc_ref <> ''`,
		letterID, string(models.SignatureForwarded))
	if err != nil {
		return errors.NewStorageError("forward letter", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.NewInvalidStateError(string(letter.SignatureStatus), "forward")
	}
	metrics.LetterTransitionsTotal.WithLabelValues("forward", "ok").Inc()

	s.runIntents(ctx, letter, []Intent{
		{
			Kind:        IntentNotifyEmployer,
			RecipientID: letter.EmployerID,
			Type:        "letter_forwarded",
			Subject:     "Signed interest letter available",
			Body:        "The signed letter and the candidate's contact details are now available.",
			Priority:    "normal",
		},
		{
			Kind:   IntentLogActivity,
			Action: "letter.forwarded",
			Detail: map[string]interface{}{"admin": ident.UserID},
		},
	})

	return nil
}

// Load reads one letter row.
func (s *Service) Load(ctx context.Context, letterID string) (*models.InterestLetter, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, employer_id, talent_id, job_title, duties, justification,
		       commitment_level, COALESCE(compensation, ''), COALESCE(engagement, ''),
		       status, signature_status,
		       COALESCE(signature_doc_id, ''), COALESCE(signed_doc_ref, ''),
		       signed_at, contact_revealed_at, created_at, updated_at
		FROM interest_letters WHERE id = $1`, letterID)

	letter, err := scanLetter(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFoundError("letter", letterID)
	}
	if err != nil {
		return nil, errors.NewStorageError("read letter", err)
	}
	return letter, nil
}

// ListPendingReview returns the admin review queue, oldest first.
func (s *Service) ListPendingReview(ctx context.Context) ([]*models.InterestLetter, error) {
	return s.list(ctx, `status = 'pending_review'`, nil)
}

// ListByEmployer returns the caller's letters, newest first.
func (s *Service) ListByEmployer(ctx context.Context, employerID string) ([]*models.InterestLetter, error) {
	return s.list(ctx, `employer_id = $1`, []interface{}{employerID})
}

// ListForTalent returns delivered letters addressed to the talent.
func (s *Service) ListForTalent(ctx context.Context, talentID string) ([]*models.InterestLetter, error) {
	return s.list(ctx, `talent_id = $1 AND status = 'sent'`, []interface{}{talentID})
}

func (s *Service) list(ctx context.Context, where string, args []interface{}) ([]*models.InterestLetter, error) {
	query := `
		SELECT id, employer_id, talent_id, job_title, duties, justification,
		       commitment_level, COALESCE(compensation, ''), COALESCE(engagement, ''),
		       status, signature_status,
		       COALESCE(signature_doc_id, ''), COALESCE(signed_doc_ref, ''),
		       signed_at, contact_revealed_at, created_at, updated_at
		FROM interest_letters WHERE ` + where + ` ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.NewStorageError("list letters", err)
	}
	defer rows.Close()

	var letters []*models.InterestLetter
	for rows.Next() {
		letter, err := scanLetter(rows)
		if err != nil {
			return nil, errors.NewStorageError("scan letter", err)
		}
		letters = append(letters, letter)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewStorageError("list letters", err)
	}
	return letters, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanLetter(row rowScanner) (*models.InterestLetter, error) {
	var letter models.InterestLetter
	var commitment, status, sigStatus string
	var signedAt, revealedAt sql.NullTime

	err := row.Scan(
		&letter.ID, &letter.EmployerID, &letter.TalentID,
		&letter.JobTitle, &letter.Duties, &letter.Justification,
		&commitment, &letter.Compensation, &letter.Engagement,
		&status, &sigStatus,
		&letter.SignatureDocID, &letter.SignedDocRef,
		&signedAt, &revealedAt, &letter.CreatedAt, &letter.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	letter.CommitmentLevel = models.CommitmentLevel(commitment)
	letter.Status = models.LetterStatus(status)
	letter.SignatureStatus = models.SignatureStatus(sigStatus)
	if signedAt.Valid {
		letter.SignedAt = &signedAt.Time
	}
	if revealedAt.Valid {
		letter.ContactRevealedAt = &revealedAt.Time
	}
	return &letter, nil
}

// updateStatus performs the conditional status update guarding against
// concurrent transitions: the WHERE clause re-checks the expected current
// status, so a lost race surfaces as InvalidState instead of a silent
// double transition.
func (s *Service) updateStatus(ctx context.Context, letterID string, current, next models.LetterStatus) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE interest_letters
		SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2`,
		letterID, string(current), string(next))
	if err != nil {
		return errors.NewStorageError("update letter status", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.NewInvalidStateError(string(current), string(next))
	}
	return nil
}

// runIntents executes queued side effects after the primary mutation has
// committed. Each intent is independent and best-effort.
func (s *Service) runIntents(ctx context.Context, letter *models.InterestLetter, intents []Intent) {
	ident, _ := auth.IdentityFrom(ctx)

	for _, intent := range intents {
		switch intent.Kind {
		case IntentNotifyAdmins, IntentNotifyTalent, IntentNotifyEmployer:
			if s.notifier == nil {
				continue
			}
			n := models.Notification{
				ID:          uuid.New().String(),
				RecipientID: intent.RecipientID,
				Type:        intent.Type,
				Subject:     intent.Subject,
				Body:        intent.Body,
				Priority:    intent.Priority,
				CreatedAt:   time.Now().UTC(),
			}
			switch intent.Kind {
			case IntentNotifyAdmins:
				n.RecipientType = "admin"
			case IntentNotifyTalent:
				n.RecipientType = "talent"
			case IntentNotifyEmployer:
				n.RecipientType = "employer"
			}
			if err := s.notifier.Send(ctx, n); err != nil {
				s.logger.Warn("notification failed", map[string]interface{}{
					"letterId": letter.ID,
					"type":     intent.Type,
					"error":    err,
				})
			}
		case IntentLogActivity:
			s.logActivity(ctx, ident, letter.ID, intent)
		}
	}
}

func (s *Service) logActivity(ctx context.Context, ident *auth.Identity, letterID string, intent Intent) {
	entry := models.ActivityEntry{
		ID:       uuid.New().String(),
		Action:   intent.Action,
		Entity:   "letter",
		EntityID: letterID,
		Detail:   intent.Detail,
	}
	if ident != nil {
		entry.ActorID = ident.UserID
	}
	detail, _ := json.Marshal(entry.Detail)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO activity_log (id, actor_id, action, entity, entity_id, detail, at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())`,
		entry.ID, entry.ActorID, entry.Action, entry.Entity, entry.EntityID, detail)
	if err != nil {
		s.logger.Warn("activity log write failed", map[string]interface{}{
			"letterId": letterID,
			"action":   intent.Action,
			"error":    err,
		})
	}
}

// auditEvent records the raw provider payload before any state change.
func (s *Service) auditEvent(ctx context.Context, event ProviderEvent) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO signature_events (id, event_type, document_id, payload, received_at)
		VALUES ($1, $2, $3, $4, NOW())`,
		uuid.New().String(), event.EventType, event.DocumentID, event.Raw)
	if err != nil {
		s.logger.Warn("signature event audit write failed", map[string]interface{}{
			"eventType":  event.EventType,
			"documentId": event.DocumentID,
			"error":      err,
		})
	}
}
