// internal/scoring/engine.go
// Package scoring implements the evidence scoring engine: it aggregates a
// candidate's verified evidence documents into per-category and overall
// eligibility scores and persists the derived summary onto the talent record.
package scoring

import (
	"context"
	"database/sql"
	"encoding/json"

	"talent-platform/internal/common/errors"
	"talent-platform/internal/common/logger"
	"talent-platform/internal/common/metrics"
	"talent-platform/internal/criteria"
	"talent-platform/internal/models"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Indexer receives updated summaries for best-effort search indexing.
// Failures are logged and never surfaced to the caller.
type Indexer interface {
	IndexTalent(ctx context.Context, summary *Summary) error
}

// Summary is the full recomputation result for one talent.
type Summary struct {
	TalentID     string                     `json:"talentId"`
	TalentCode   string                     `json:"talentCode"`
	OverallScore int                        `json:"overallScore"`
	Status       models.QualificationStatus `json:"qualificationStatus"`
	CriteriaMet  []string                   `json:"criteriaMet"`
	Categories   []models.CategorySummary   `json:"categories"`
}

// VerifiedDoc is the slice of a document the engine scores on.
type VerifiedDoc struct {
	Category    string
	ScoreImpact int
}

type Engine struct {
	db      *sql.DB
	logger  logger.Logger
	indexer Indexer
}

func NewEngine(db *sql.DB, indexer Indexer, log logger.Logger) *Engine {
	return &Engine{
		db:      db,
		logger:  log.WithFields(map[string]interface{}{"component": "scoring"}),
		indexer: indexer,
	}
}

// Compute derives the summary for a set of verified documents. It is a pure
// function of its input: recomputing on an unchanged set yields an identical
// result. Category scores saturate silently at each category's max, and the
// overall score saturates at the global cap.
func Compute(docs []VerifiedDoc) ([]models.CategorySummary, []string, int) {
	sums := make(map[string]int, len(criteria.Table))
	counts := make(map[string]int, len(criteria.Table))
	for _, doc := range docs {
		if !criteria.Valid(doc.Category) {
			continue
		}
		sums[doc.Category] += doc.ScoreImpact
		counts[doc.Category]++
	}

	categories := make([]models.CategorySummary, 0, len(criteria.Table))
	met := make([]string, 0, len(criteria.Table))
	overall := 0

	for _, def := range criteria.Table {
		score := sums[def.Key]
		if score > def.MaxScore {
			score = def.MaxScore
		}
		if score < 0 {
			score = 0
		}
		overall += score

		cs := models.CategorySummary{
			Category:      def.Key,
			Score:         score,
			MaxScore:      def.MaxScore,
			Threshold:     def.Threshold,
			Met:           score >= def.Threshold,
			EvidenceCount: counts[def.Key],
		}
		if cs.Met {
			cs.SatisfiedExamples = def.Examples
			met = append(met, def.Key)
		} else {
			cs.NeededExamples = def.Examples
		}
		categories = append(categories, cs)
	}

	if overall > criteria.OverallCap {
		overall = criteria.OverallCap
	}

	return categories, met, overall
}

// Recompute reads all verified documents for the talent, derives the summary
// and persists it onto the talent record in a single update. On any read
// failure the prior score is left untouched.
func (e *Engine) Recompute(ctx context.Context, talentID string) (*Summary, error) {
	var talentCode string
	err := e.db.QueryRowContext(ctx,
		`SELECT talent_code FROM talents WHERE id = $1`, talentID).Scan(&talentCode)
	if err == sql.ErrNoRows {
		metrics.ScoreRecomputesTotal.WithLabelValues("not_found").Inc()
		return nil, errors.NewNotFoundError("talent", talentID)
	}
	if err != nil {
		metrics.ScoreRecomputesTotal.WithLabelValues("error").Inc()
		return nil, errors.NewStorageError("read talent", err)
	}

	docs, err := e.verifiedDocuments(ctx, talentID)
	if err != nil {
		metrics.ScoreRecomputesTotal.WithLabelValues("error").Inc()
		return nil, errors.NewStorageError("read documents", err)
	}

	categories, met, overall := Compute(docs)

	summary := &Summary{
		TalentID:     talentID,
		TalentCode:   talentCode,
		OverallScore: overall,
		Status:       criteria.StatusFor(overall),
		CriteriaMet:  met,
		Categories:   categories,
	}

	summaryJSON, err := json.Marshal(summary.Categories)
	if err != nil {
		metrics.ScoreRecomputesTotal.WithLabelValues("error").Inc()
		return nil, errors.NewStorageError("encode summary", err)
	}

	_, err = e.db.ExecContext(ctx, `
		UPDATE talents
		SET overall_score = $2,
		    qualification_status = $3,
		    criteria_met = $4,
		    evidence_summary = $5,
		    updated_at = NOW()
		WHERE id = $1`,
		talentID, overall, string(summary.Status), pq.Array(met), summaryJSON)
	if err != nil {
		metrics.ScoreRecomputesTotal.WithLabelValues("error").Inc()
		return nil, errors.NewStorageError("persist summary", err)
	}

	metrics.ScoreRecomputesTotal.WithLabelValues("ok").Inc()
	e.logger.Info("evidence score recomputed", map[string]interface{}{
		"talentId":     talentID,
		"overallScore": overall,
		"status":       summary.Status,
		"criteriaMet":  met,
	})

	e.indexBestEffort(ctx, summary)
	e.logActivity(ctx, summary)

	return summary, nil
}

func (e *Engine) logActivity(ctx context.Context, summary *Summary) {
	entry := models.ActivityEntry{
		ID:       uuid.New().String(),
		Action:   "score_recomputed",
		Entity:   "talent",
		EntityID: summary.TalentID,
		Detail: map[string]interface{}{
			"overallScore": summary.OverallScore,
			"status":       summary.Status,
			"criteriaMet":  summary.CriteriaMet,
		},
	}
	detail, _ := json.Marshal(entry.Detail)
	_, err := e.db.ExecContext(ctx, `
		INSERT INTO activity_log (id, actor_id, action, entity, entity_id, detail, at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())`,
		entry.ID, entry.ActorID, entry.Action, entry.Entity, entry.EntityID, detail)
	if err != nil {
		e.logger.Warn("activity log write failed", map[string]interface{}{
			"talentId": summary.TalentID,
			"error":    err,
		})
	}
}

func (e *Engine) verifiedDocuments(ctx context.Context, talentID string) ([]VerifiedDoc, error) {
	rows, err := e.db.QueryContext(ctx, `
		SELECT category, score_impact
		FROM documents
		WHERE talent_id = $1 AND status = 'verified'
		ORDER BY created_at`, talentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []VerifiedDoc
	for rows.Next() {
		var doc VerifiedDoc
		if err := rows.Scan(&doc.Category, &doc.ScoreImpact); err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func (e *Engine) indexBestEffort(ctx context.Context, summary *Summary) {
	if e.indexer == nil {
		return
	}
	if err := e.indexer.IndexTalent(ctx, summary); err != nil {
		e.logger.Warn("search index update failed", map[string]interface{}{
			"talentId": summary.TalentID,
			"error":    err,
		})
	}
}
