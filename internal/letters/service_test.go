// internal/letters/service_test.go
package letters

import (
	"context"
	"testing"
	"time"

	"talent-platform/internal/common/auth"
	"talent-platform/internal/common/errors"
	"talent-platform/internal/common/logger"
	"talent-platform/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureNotifier struct {
	sent []models.Notification
	err  error
}

func (c *captureNotifier) Send(_ context.Context, n models.Notification) error {
	c.sent = append(c.sent, n)
	return c.err
}

type stubSigner struct {
	docID string
	err   error
}

func (s *stubSigner) CreateSigningDocument(_ context.Context, _ *models.InterestLetter, _, _ string) (string, error) {
	return s.docID, s.err
}

const letterColumnsQuery = `SELECT id, employer_id, talent_id, job_title, duties, justification`

func letterRow(letter models.InterestLetter) *sqlmock.Rows {
	var signedAt, revealedAt interface{}
	if letter.SignedAt != nil {
		signedAt = *letter.SignedAt
	}
	if letter.ContactRevealedAt != nil {
		revealedAt = *letter.ContactRevealedAt
	}
	return sqlmock.NewRows([]string{
		"id", "employer_id", "talent_id", "job_title", "duties", "justification",
		"commitment_level", "compensation", "engagement",
		"status", "signature_status", "signature_doc_id", "signed_doc_ref",
		"signed_at", "contact_revealed_at", "created_at", "updated_at",
	}).AddRow(
		letter.ID, letter.EmployerID, letter.TalentID,
		letter.JobTitle, letter.Duties, letter.Justification,
		string(letter.CommitmentLevel), letter.Compensation, letter.Engagement,
		string(letter.Status), string(letter.SignatureStatus),
		letter.SignatureDocID, letter.SignedDocRef,
		signedAt, revealedAt,
		letter.CreatedAt, letter.UpdatedAt,
	)
}

func sampleLetter() models.InterestLetter {
	now := time.Now().UTC()
	return models.InterestLetter{
		ID:              "letter-1",
		EmployerID:      "employer-1",
		TalentID:        "talent-1",
		JobTitle:        "Principal Engineer",
		Duties:          "Lead the platform team",
		Justification:   "Extraordinary systems track record",
		CommitmentLevel: models.CommitmentInterviewing,
		Status:          models.LetterDraft,
		SignatureStatus: models.SignatureNone,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func newTestService(t *testing.T, notifier Notifier, signer SignatureRequester) (*Service, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewService(db, signer, notifier, logger.NewTestLogger(t)), mock
}

func asEmployer(id string) context.Context {
	return auth.WithIdentity(context.Background(), &auth.Identity{UserID: id, Role: auth.RoleEmployer})
}

func asAdmin(id string) context.Context {
	return auth.WithIdentity(context.Background(), &auth.Identity{UserID: id, Role: auth.RoleAdmin})
}

func TestSubmit_MovesDraftToPendingReview(t *testing.T) {
	notifier := &captureNotifier{}
	svc, mock := newTestService(t, notifier, nil)

	mock.ExpectQuery(letterColumnsQuery).
		WithArgs("letter-1").
		WillReturnRows(letterRow(sampleLetter()))
	mock.ExpectExec(`UPDATE interest_letters`).
		WithArgs("letter-1", "draft", "pending_review").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO activity_log`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := svc.Submit(asEmployer("employer-1"), "letter-1")

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
	require.Len(t, notifier.sent, 1)
	assert.Equal(t, "letter_submitted", notifier.sent[0].Type)
	assert.Equal(t, "admin", notifier.sent[0].RecipientType)
}

func TestSubmit_OtherEmployerForbidden(t *testing.T) {
	svc, mock := newTestService(t, &captureNotifier{}, nil)

	mock.ExpectQuery(letterColumnsQuery).
		WithArgs("letter-1").
		WillReturnRows(letterRow(sampleLetter()))

	err := svc.Submit(asEmployer("employer-2"), "letter-1")

	assert.True(t, errors.IsCode(err, errors.ErrCodeForbidden))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmit_MissingFieldsRejected(t *testing.T) {
	svc, mock := newTestService(t, &captureNotifier{}, nil)

	letter := sampleLetter()
	letter.Duties = "   "
	letter.Justification = ""
	mock.ExpectQuery(letterColumnsQuery).
		WithArgs("letter-1").
		WillReturnRows(letterRow(letter))

	err := svc.Submit(asEmployer("employer-1"), "letter-1")

	assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidInput))
	assert.Contains(t, err.Error(), "duties")
	assert.Contains(t, err.Error(), "justification")
}

func TestApprove_RequiresAdmin(t *testing.T) {
	svc, _ := newTestService(t, &captureNotifier{}, nil)

	err := svc.Approve(asEmployer("employer-1"), "letter-1")

	assert.True(t, errors.IsCode(err, errors.ErrCodeForbidden))
}

func TestApprove_NotifiesTalent(t *testing.T) {
	notifier := &captureNotifier{}
	svc, mock := newTestService(t, notifier, nil)

	letter := sampleLetter()
	letter.Status = models.LetterPendingReview
	mock.ExpectQuery(letterColumnsQuery).
		WithArgs("letter-1").
		WillReturnRows(letterRow(letter))
	mock.ExpectExec(`UPDATE interest_letters`).
		WithArgs("letter-1", "pending_review", "sent").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO activity_log`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := svc.Approve(asAdmin("admin-1"), "letter-1")

	assert.NoError(t, err)
	require.Len(t, notifier.sent, 1)
	assert.Equal(t, "letter_approved", notifier.sent[0].Type)
	assert.Equal(t, "talent-1", notifier.sent[0].RecipientID)
	assert.Equal(t, "high", notifier.sent[0].Priority)
}

func TestApprove_ConcurrentDecisionLoses(t *testing.T) {
	// The letter reads as pending_review but another admin decides it
	// between the read and the update. The conditional update matches no
	// rows and the second decision fails instead of double-applying.
	svc, mock := newTestService(t, &captureNotifier{}, nil)

	letter := sampleLetter()
	letter.Status = models.LetterPendingReview
	mock.ExpectQuery(letterColumnsQuery).
		WithArgs("letter-1").
		WillReturnRows(letterRow(letter))
	mock.ExpectExec(`UPDATE interest_letters`).
		WithArgs("letter-1", "pending_review", "sent").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := svc.Approve(asAdmin("admin-1"), "letter-1")

	assert.True(t, errors.IsInvalidState(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApprove_AlreadySent(t *testing.T) {
	svc, mock := newTestService(t, &captureNotifier{}, nil)

	letter := sampleLetter()
	letter.Status = models.LetterSent
	mock.ExpectQuery(letterColumnsQuery).
		WithArgs("letter-1").
		WillReturnRows(letterRow(letter))

	err := svc.Approve(asAdmin("admin-1"), "letter-1")

	assert.True(t, errors.IsInvalidState(err))
}

func TestRequestSignature_StartsSubFlow(t *testing.T) {
	signer := &stubSigner{docID: "doc-42"}
	svc, mock := newTestService(t, &captureNotifier{}, signer)

	letter := sampleLetter()
	letter.Status = models.LetterSent
	mock.ExpectQuery(letterColumnsQuery).
		WithArgs("letter-1").
		WillReturnRows(letterRow(letter))
	mock.ExpectExec(`UPDATE interest_letters`).
		WithArgs("letter-1", "requested", "doc-42").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := svc.RequestSignature(asEmployer("employer-1"), "letter-1", "signer@example.com", "Sam Signer")

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestSignature_LetterNotSent(t *testing.T) {
	svc, mock := newTestService(t, &captureNotifier{}, &stubSigner{docID: "doc-42"})

	mock.ExpectQuery(letterColumnsQuery).
		WithArgs("letter-1").
		WillReturnRows(letterRow(sampleLetter()))

	err := svc.RequestSignature(asEmployer("employer-1"), "letter-1", "signer@example.com", "Sam Signer")

	assert.True(t, errors.IsInvalidState(err))
}

func TestRequestSignature_ProviderFailure(t *testing.T) {
	svc, mock := newTestService(t, &captureNotifier{}, &stubSigner{err: assert.AnError})

	letter := sampleLetter()
	letter.Status = models.LetterSent
	mock.ExpectQuery(letterColumnsQuery).
		WithArgs("letter-1").
		WillReturnRows(letterRow(letter))

	err := svc.RequestSignature(asEmployer("employer-1"), "letter-1", "signer@example.com", "Sam Signer")

	assert.True(t, errors.IsCode(err, errors.ErrCodeUpstreamFailure))
}

func TestHandleSignatureEvent_UnknownTypeIsAcked(t *testing.T) {
	svc, mock := newTestService(t, &captureNotifier{}, nil)

	mock.ExpectExec(`INSERT INTO signature_events`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := svc.HandleSignatureEvent(context.Background(), ProviderEvent{
		EventType:  "signer_replaced",
		DocumentID: "doc-42",
		Raw:        []byte(`{"event_type":"signer_replaced"}`),
	})

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet(), "unknown events must not touch letter rows")
}

func TestHandleSignatureEvent_Completed(t *testing.T) {
	svc, mock := newTestService(t, &captureNotifier{}, nil)

	mock.ExpectExec(`INSERT INTO signature_events`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE interest_letters`).
		WithArgs("doc-42", "signed", "ref-signed.pdf").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := svc.HandleSignatureEvent(context.Background(), ProviderEvent{
		EventType:       "completed",
		DocumentID:      "doc-42",
		CompletedDocRef: "ref-signed.pdf",
		Raw:             []byte(`{"event_type":"completed"}`),
	})

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandleSignatureEvent_CancelledResetsSubFlow(t *testing.T) {
	svc, mock := newTestService(t, &captureNotifier{}, nil)

	mock.ExpectExec(`INSERT INTO signature_events`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE interest_letters`).
		WithArgs("doc-42", "none").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := svc.HandleSignatureEvent(context.Background(), ProviderEvent{
		EventType:  "cancelled",
		DocumentID: "doc-42",
		Raw:        []byte(`{"event_type":"cancelled"}`),
	})

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBeginAdminReview_RequiresSigned(t *testing.T) {
	svc, mock := newTestService(t, &captureNotifier{}, nil)

	mock.ExpectExec(`UPDATE interest_letters`).
		WithArgs("letter-1", "admin_reviewing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := svc.BeginAdminReview(asAdmin("admin-1"), "letter-1")

	assert.True(t, errors.IsInvalidState(err))
}

func TestForward_RevealsContact(t *testing.T) {
	notifier := &captureNotifier{}
	svc, mock := newTestService(t, notifier, nil)

	letter := sampleLetter()
	letter.Status = models.LetterSent
	letter.SignatureStatus = models.SignatureAdminReviewing
	letter.SignedDocRef = "ref-signed.pdf"
	mock.ExpectQuery(letterColumnsQuery).
		WithArgs("letter-1").
		WillReturnRows(letterRow(letter))
	mock.ExpectExec(`UPDATE interest_letters`).
		WithArgs("letter-1", "forwarded_to_employer").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO activity_log`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := svc.Forward(asAdmin("admin-1"), "letter-1")

	assert.NoError(t, err)
	require.Len(t, notifier.sent, 1)
	assert.Equal(t, "letter_forwarded", notifier.sent[0].Type)
	assert.Equal(t, "employer-1", notifier.sent[0].RecipientID)
}

func TestForward_WithoutSignedDocRef(t *testing.T) {
	svc, mock := newTestService(t, &captureNotifier{}, nil)

	letter := sampleLetter()
	letter.Status = models.LetterSent
	letter.SignatureStatus = models.SignatureAdminReviewing
	mock.ExpectQuery(letterColumnsQuery).
		WithArgs("letter-1").
		WillReturnRows(letterRow(letter))

	err := svc.Forward(asAdmin("admin-1"), "letter-1")

	assert.True(t, errors.IsInvalidState(err))
}

func TestForward_NotInAdminReview(t *testing.T) {
	svc, mock := newTestService(t, &captureNotifier{}, nil)

	letter := sampleLetter()
	letter.Status = models.LetterSent
	letter.SignatureStatus = models.SignatureSigned
	letter.SignedDocRef = "ref-signed.pdf"
	mock.ExpectQuery(letterColumnsQuery).
		WithArgs("letter-1").
		WillReturnRows(letterRow(letter))

	err := svc.Forward(asAdmin("admin-1"), "letter-1")

	assert.True(t, errors.IsInvalidState(err))
}

func TestForward_RequiresAdmin(t *testing.T) {
	svc, _ := newTestService(t, &captureNotifier{}, nil)

	err := svc.Forward(asEmployer("employer-1"), "letter-1")

	assert.True(t, errors.IsCode(err, errors.ErrCodeForbidden))
}

func TestCreate_OnlyEmployers(t *testing.T) {
	svc, _ := newTestService(t, &captureNotifier{}, nil)

	ctx := auth.WithIdentity(context.Background(), &auth.Identity{UserID: "talent-1", Role: auth.RoleTalent})
	_, err := svc.Create(ctx, CreateInput{TalentID: "talent-2"})

	assert.True(t, errors.IsCode(err, errors.ErrCodeForbidden))
}

func TestCreate_InsertsDraft(t *testing.T) {
	svc, mock := newTestService(t, &captureNotifier{}, nil)

	mock.ExpectExec(`INSERT INTO interest_letters`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	letter, err := svc.Create(asEmployer("employer-1"), CreateInput{
		TalentID:        "talent-1",
		JobTitle:        "Principal Engineer",
		CommitmentLevel: models.CommitmentExploring,
	})

	require.NoError(t, err)
	assert.Equal(t, models.LetterDraft, letter.Status)
	assert.Equal(t, models.SignatureNone, letter.SignatureStatus)
	assert.Equal(t, "employer-1", letter.EmployerID)
	assert.NotEmpty(t, letter.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
