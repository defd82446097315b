// internal/documents/service.go
// Package documents owns the evidence document lifecycle: upload with
// classification, admin verification and override, and deletion. Every
// mutation that changes the verified evidence set triggers a score
// recomputation.
package documents

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"talent-platform/internal/common/auth"
	"talent-platform/internal/common/errors"
	"talent-platform/internal/common/logger"
	"talent-platform/internal/classify"
	"talent-platform/internal/criteria"
	"talent-platform/internal/models"
	"talent-platform/internal/scoring"

	"github.com/google/uuid"
)

// DocumentClassifier assigns a category and score impact to uploaded text.
type DocumentClassifier interface {
	Classify(ctx context.Context, input classify.Input) classify.Result
}

// Recomputer re-derives a talent's scores from the verified document set.
type Recomputer interface {
	Recompute(ctx context.Context, talentID string) (*scoring.Summary, error)
}

type Service struct {
	db         *sql.DB
	classifier DocumentClassifier
	engine     Recomputer
	logger     logger.Logger
}

func NewService(db *sql.DB, classifier DocumentClassifier, engine Recomputer, log logger.Logger) *Service {
	return &Service{
		db:         db,
		classifier: classifier,
		engine:     engine,
		logger:     log.WithFields(map[string]interface{}{"component": "documents"}),
	}
}

// UploadInput carries the talent-supplied fields of a new document.
type UploadInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Text        string `json:"text"`
	ContentRef  string `json:"contentRef"`
}

// Upload inserts a pending document for the calling talent. The classifier
// proposes a category and score impact; both stay provisional until an
// admin verifies the document, so no recompute happens here.
func (s *Service) Upload(ctx context.Context, input UploadInput) (*models.Document, error) {
	ident, ok := auth.IdentityFrom(ctx)
	if !ok {
		return nil, errors.NewUnauthorizedError("no session")
	}
	if ident.Role != auth.RoleTalent {
		return nil, errors.NewForbiddenError("only talents upload evidence documents")
	}
	if strings.TrimSpace(input.Title) == "" {
		return nil, errors.NewInvalidInputError("title is required")
	}
	if strings.TrimSpace(input.Text) == "" {
		return nil, errors.NewInvalidInputError("text is required")
	}

	result := s.classifier.Classify(ctx, classify.Input{
		Text:        input.Text,
		Title:       input.Title,
		Description: input.Description,
	})

	doc := &models.Document{
		ID:          uuid.New().String(),
		TalentID:    ident.UserID,
		Category:    result.Category,
		ScoreImpact: result.ScoreImpact,
		Status:      models.DocumentPending,
		Title:       input.Title,
		Description: input.Description,
		ContentRef:  input.ContentRef,
		Confidence:  result.Confidence,
		Rationale:   result.Rationale,
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO documents
			(id, talent_id, category, score_impact, status, title, description,
			 content_ref, classified_confidence, rationale, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())`,
		doc.ID, doc.TalentID, doc.Category, doc.ScoreImpact, string(doc.Status),
		doc.Title, doc.Description, doc.ContentRef, doc.Confidence, doc.Rationale)
	if err != nil {
		return nil, errors.NewStorageError("insert document", err)
	}

	return doc, nil
}

// Verify is admin-only: it confirms the document's category and score
// impact and recomputes the talent's scores.
func (s *Service) Verify(ctx context.Context, documentID string) (*scoring.Summary, error) {
	return s.setStatus(ctx, documentID, models.DocumentVerified, nil, nil)
}

// OverrideInput replaces the classifier's proposal during verification.
type OverrideInput struct {
	Category    string `json:"category"`
	ScoreImpact int    `json:"scoreImpact"`
}

// Override verifies a document under an admin-chosen category and score
// impact, discarding the classifier's proposal.
func (s *Service) Override(ctx context.Context, documentID string, input OverrideInput) (*scoring.Summary, error) {
	if !criteria.Valid(input.Category) {
		return nil, errors.NewInvalidInputError("unknown category: " + input.Category)
	}
	def, _ := criteria.Lookup(input.Category)
	if input.ScoreImpact < 1 || input.ScoreImpact > def.MaxScore {
		return nil, errors.NewInvalidInputError("score impact out of range for category")
	}
	return s.setStatus(ctx, documentID, models.DocumentVerified, &input.Category, &input.ScoreImpact)
}

// Reject marks a document as rejected. Rejected documents never score, so
// a recompute runs in case the document was previously verified.
func (s *Service) Reject(ctx context.Context, documentID string) (*scoring.Summary, error) {
	return s.setStatus(ctx, documentID, models.DocumentRejected, nil, nil)
}

func (s *Service) setStatus(ctx context.Context, documentID string, status models.DocumentStatus, category *string, scoreImpact *int) (*scoring.Summary, error) {
	ident, ok := auth.IdentityFrom(ctx)
	if !ok {
		return nil, errors.NewUnauthorizedError("no session")
	}
	if !ident.IsAdmin() {
		return nil, errors.NewForbiddenError("document review requires the admin role")
	}

	doc, err := s.load(ctx, documentID)
	if err != nil {
		return nil, err
	}

	if category != nil && scoreImpact != nil {
		_, err = s.db.ExecContext(ctx, `
			UPDATE documents
			SET status = $2, category = $3, score_impact = $4, updated_at = NOW()
			WHERE id = $1`,
			documentID, string(status), *category, *scoreImpact)
	} else {
		_, err = s.db.ExecContext(ctx, `
			UPDATE documents SET status = $2, updated_at = NOW() WHERE id = $1`,
			documentID, string(status))
	}
	if err != nil {
		return nil, errors.NewStorageError("update document", err)
	}

	return s.engine.Recompute(ctx, doc.TalentID)
}

// Delete removes a document. The owning talent or an admin may delete; the
// talent's scores are recomputed without the deleted evidence.
func (s *Service) Delete(ctx context.Context, documentID string) (*scoring.Summary, error) {
	ident, ok := auth.IdentityFrom(ctx)
	if !ok {
		return nil, errors.NewUnauthorizedError("no session")
	}

	doc, err := s.load(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if doc.TalentID != ident.UserID && !ident.IsAdmin() {
		return nil, errors.NewForbiddenError("document belongs to another talent")
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = $1`, documentID); err != nil {
		return nil, errors.NewStorageError("delete document", err)
	}

	return s.engine.Recompute(ctx, doc.TalentID)
}

// Get reads one document. Evidence stays private to the owning talent;
// only that talent or an admin may read it.
func (s *Service) Get(ctx context.Context, documentID string) (*models.Document, error) {
	ident, ok := auth.IdentityFrom(ctx)
	if !ok {
		return nil, errors.NewUnauthorizedError("no session")
	}

	doc, err := s.load(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if doc.TalentID != ident.UserID && !ident.IsAdmin() {
		return nil, errors.NewForbiddenError("document belongs to another talent")
	}
	return doc, nil
}

func (s *Service) load(ctx context.Context, documentID string) (*models.Document, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, talent_id, COALESCE(category, ''), score_impact, status, title,
		       COALESCE(description, ''), COALESCE(content_ref, ''),
		       COALESCE(classified_confidence, ''), COALESCE(rationale, ''),
		       created_at, updated_at
		FROM documents WHERE id = $1`, documentID)

	doc, err := scanDocument(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFoundError("document", documentID)
	}
	if err != nil {
		return nil, errors.NewStorageError("read document", err)
	}
	return doc, nil
}

// ListByTalent returns a talent's documents, newest first. The same
// ownership rule as Get applies to the whole listing.
func (s *Service) ListByTalent(ctx context.Context, talentID string) ([]*models.Document, error) {
	ident, ok := auth.IdentityFrom(ctx)
	if !ok {
		return nil, errors.NewUnauthorizedError("no session")
	}
	if talentID != ident.UserID && !ident.IsAdmin() {
		return nil, errors.NewForbiddenError("documents belong to another talent")
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, talent_id, COALESCE(category, ''), score_impact, status, title,
		       COALESCE(description, ''), COALESCE(content_ref, ''),
		       COALESCE(classified_confidence, ''), COALESCE(rationale, ''),
		       created_at, updated_at
		FROM documents WHERE talent_id = $1 ORDER BY created_at DESC`, talentID)
	if err != nil {
		return nil, errors.NewStorageError("list documents", err)
	}
	defer rows.Close()

	var docs []*models.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, errors.NewStorageError("scan document", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewStorageError("list documents", err)
	}
	return docs, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDocument(row rowScanner) (*models.Document, error) {
	var doc models.Document
	var status string
	err := row.Scan(
		&doc.ID, &doc.TalentID, &doc.Category, &doc.ScoreImpact, &status,
		&doc.Title, &doc.Description, &doc.ContentRef, &doc.Confidence,
		&doc.Rationale, &doc.CreatedAt, &doc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	doc.Status = models.DocumentStatus(status)
	return &doc, nil
}
