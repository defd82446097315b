// internal/documents/service_test.go
package documents

import (
	"context"
	"testing"

	"talent-platform/internal/common/auth"
	"talent-platform/internal/common/errors"
	"talent-platform/internal/common/logger"
	"talent-platform/internal/classify"
	"talent-platform/internal/models"
	"talent-platform/internal/scoring"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubClassifier struct {
	result classify.Result
	inputs []classify.Input
}

func (c *stubClassifier) Classify(_ context.Context, input classify.Input) classify.Result {
	c.inputs = append(c.inputs, input)
	return c.result
}

type stubEngine struct {
	summary    *scoring.Summary
	err        error
	recomputed []string
}

func (e *stubEngine) Recompute(_ context.Context, talentID string) (*scoring.Summary, error) {
	e.recomputed = append(e.recomputed, talentID)
	return e.summary, e.err
}

func newService(t *testing.T, classifier DocumentClassifier, engine Recomputer) (*Service, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewService(db, classifier, engine, logger.NewTestLogger(t)), mock
}

func talentCtx(id string) context.Context {
	return auth.WithIdentity(context.Background(), &auth.Identity{UserID: id, Role: auth.RoleTalent})
}

func adminCtx() context.Context {
	return auth.WithIdentity(context.Background(), &auth.Identity{UserID: "admin-1", Role: auth.RoleAdmin})
}

func documentRow(doc models.Document) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "talent_id", "category", "score_impact", "status", "title",
		"description", "content_ref", "classified_confidence", "rationale",
		"created_at", "updated_at",
	}).AddRow(
		doc.ID, doc.TalentID, doc.Category, doc.ScoreImpact, string(doc.Status),
		doc.Title, doc.Description, doc.ContentRef, doc.Confidence, doc.Rationale,
		doc.CreatedAt, doc.UpdatedAt,
	)
}

func sampleDocument() models.Document {
	return models.Document{
		ID:          "doc-1",
		TalentID:    "talent-1",
		Category:    "awards",
		ScoreImpact: 8,
		Status:      models.DocumentPending,
		Title:       "Best Paper Award",
		Confidence:  classify.ConfidenceHigh,
	}
}

func TestUpload_ClassifiesAndInserts(t *testing.T) {
	classifier := &stubClassifier{result: classify.Result{
		Category:    "awards",
		Confidence:  classify.ConfidenceHigh,
		ScoreImpact: 8,
		Rationale:   "international award",
	}}
	engine := &stubEngine{}
	svc, mock := newService(t, classifier, engine)

	mock.ExpectExec(`INSERT INTO documents`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	doc, err := svc.Upload(talentCtx("talent-1"), UploadInput{
		Title: "Best Paper Award",
		Text:  "Awarded best paper at the international conference.",
	})

	require.NoError(t, err)
	assert.Equal(t, "awards", doc.Category)
	assert.Equal(t, models.DocumentPending, doc.Status)
	assert.Equal(t, 8, doc.ScoreImpact)
	require.Len(t, classifier.inputs, 1)
	assert.Equal(t, "Best Paper Award", classifier.inputs[0].Title)
	assert.Empty(t, engine.recomputed, "pending documents do not trigger recompute")
}

func TestUpload_RequiresTalentRole(t *testing.T) {
	svc, _ := newService(t, &stubClassifier{}, &stubEngine{})

	_, err := svc.Upload(adminCtx(), UploadInput{Title: "x", Text: "y"})

	assert.True(t, errors.IsCode(err, errors.ErrCodeForbidden))
}

func TestUpload_RequiresTitleAndText(t *testing.T) {
	svc, _ := newService(t, &stubClassifier{}, &stubEngine{})

	_, err := svc.Upload(talentCtx("talent-1"), UploadInput{Text: "y"})
	assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidInput))

	_, err = svc.Upload(talentCtx("talent-1"), UploadInput{Title: "x", Text: "  "})
	assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidInput))
}

func TestVerify_RecomputesScores(t *testing.T) {
	engine := &stubEngine{summary: &scoring.Summary{TalentID: "talent-1", OverallScore: 42}}
	svc, mock := newService(t, &stubClassifier{}, engine)

	mock.ExpectQuery(`SELECT id, talent_id`).
		WithArgs("doc-1").
		WillReturnRows(documentRow(sampleDocument()))
	mock.ExpectExec(`UPDATE documents`).
		WithArgs("doc-1", "verified").
		WillReturnResult(sqlmock.NewResult(0, 1))

	summary, err := svc.Verify(adminCtx(), "doc-1")

	require.NoError(t, err)
	assert.Equal(t, 42, summary.OverallScore)
	assert.Equal(t, []string{"talent-1"}, engine.recomputed)
}

func TestVerify_RequiresAdmin(t *testing.T) {
	svc, _ := newService(t, &stubClassifier{}, &stubEngine{})

	_, err := svc.Verify(talentCtx("talent-1"), "doc-1")

	assert.True(t, errors.IsCode(err, errors.ErrCodeForbidden))
}

func TestOverride_ReplacesCategoryAndImpact(t *testing.T) {
	engine := &stubEngine{summary: &scoring.Summary{TalentID: "talent-1"}}
	svc, mock := newService(t, &stubClassifier{}, engine)

	mock.ExpectQuery(`SELECT id, talent_id`).
		WithArgs("doc-1").
		WillReturnRows(documentRow(sampleDocument()))
	mock.ExpectExec(`UPDATE documents`).
		WithArgs("doc-1", "verified", "judging", 5).
		WillReturnResult(sqlmock.NewResult(0, 1))

	_, err := svc.Override(adminCtx(), "doc-1", OverrideInput{Category: "judging", ScoreImpact: 5})

	require.NoError(t, err)
	assert.Equal(t, []string{"talent-1"}, engine.recomputed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOverride_InvalidCategory(t *testing.T) {
	svc, _ := newService(t, &stubClassifier{}, &stubEngine{})

	_, err := svc.Override(adminCtx(), "doc-1", OverrideInput{Category: "patents", ScoreImpact: 5})

	assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidInput))
}

func TestOverride_ImpactAboveCategoryMax(t *testing.T) {
	svc, _ := newService(t, &stubClassifier{}, &stubEngine{})

	// membership caps at 10
	_, err := svc.Override(adminCtx(), "doc-1", OverrideInput{Category: "membership", ScoreImpact: 11})

	assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidInput))
}

func TestDelete_OwnerTriggersRecompute(t *testing.T) {
	engine := &stubEngine{summary: &scoring.Summary{TalentID: "talent-1", OverallScore: 6}}
	svc, mock := newService(t, &stubClassifier{}, engine)

	doc := sampleDocument()
	doc.Status = models.DocumentVerified
	mock.ExpectQuery(`SELECT id, talent_id`).
		WithArgs("doc-1").
		WillReturnRows(documentRow(doc))
	mock.ExpectExec(`DELETE FROM documents`).
		WithArgs("doc-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	summary, err := svc.Delete(talentCtx("talent-1"), "doc-1")

	require.NoError(t, err)
	assert.Equal(t, 6, summary.OverallScore, "recompute excludes the deleted document")
	assert.Equal(t, []string{"talent-1"}, engine.recomputed)
}

func TestDelete_OtherTalentForbidden(t *testing.T) {
	svc, mock := newService(t, &stubClassifier{}, &stubEngine{})

	mock.ExpectQuery(`SELECT id, talent_id`).
		WithArgs("doc-1").
		WillReturnRows(documentRow(sampleDocument()))

	_, err := svc.Delete(talentCtx("talent-2"), "doc-1")

	assert.True(t, errors.IsCode(err, errors.ErrCodeForbidden))
}

func TestGet_NotFound(t *testing.T) {
	svc, mock := newService(t, &stubClassifier{}, &stubEngine{})

	mock.ExpectQuery(`SELECT id, talent_id`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := svc.Get(adminCtx(), "missing")

	assert.True(t, errors.IsNotFound(err))
}

func TestGet_OtherRolesForbidden(t *testing.T) {
	doc := sampleDocument()
	doc.Title = "Award dossier"

	tests := []struct {
		name string
		ctx  context.Context
	}{
		{"employer", auth.WithIdentity(context.Background(),
			&auth.Identity{UserID: "employer-9", Role: auth.RoleEmployer})},
		{"other talent", talentCtx("talent-2")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, mock := newService(t, &stubClassifier{}, &stubEngine{})
			mock.ExpectQuery(`SELECT id, talent_id`).
				WithArgs("doc-1").
				WillReturnRows(documentRow(doc))

			_, err := svc.Get(tt.ctx, "doc-1")

			require.Error(t, err)
			assert.True(t, errors.IsCode(err, errors.ErrCodeForbidden))
		})
	}
}

func TestGet_OwnerAndAdminAllowed(t *testing.T) {
	for _, ctx := range []context.Context{talentCtx("talent-1"), adminCtx()} {
		svc, mock := newService(t, &stubClassifier{}, &stubEngine{})
		mock.ExpectQuery(`SELECT id, talent_id`).
			WithArgs("doc-1").
			WillReturnRows(documentRow(sampleDocument()))

		doc, err := svc.Get(ctx, "doc-1")

		require.NoError(t, err)
		assert.Equal(t, "talent-1", doc.TalentID)
	}
}

func TestListByTalent_OtherTalentForbidden(t *testing.T) {
	svc, _ := newService(t, &stubClassifier{}, &stubEngine{})

	_, err := svc.ListByTalent(talentCtx("talent-2"), "talent-1")

	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeForbidden))
}

func TestListByTalent_AdminAllowed(t *testing.T) {
	svc, mock := newService(t, &stubClassifier{}, &stubEngine{})

	mock.ExpectQuery(`SELECT id, talent_id`).
		WithArgs("talent-1").
		WillReturnRows(documentRow(sampleDocument()))

	docs, err := svc.ListByTalent(adminCtx(), "talent-1")

	require.NoError(t, err)
	require.Len(t, docs, 1)
}
