// internal/scoring/read.go
package scoring

import (
	"context"
	"database/sql"
	"encoding/json"

	"talent-platform/internal/common/errors"
	"talent-platform/internal/models"

	"github.com/lib/pq"
)

// CurrentSummary reads the last persisted summary without recomputing.
func (e *Engine) CurrentSummary(ctx context.Context, talentID string) (*Summary, error) {
	var summary Summary
	var status string
	var met pq.StringArray
	var evidence []byte

	err := e.db.QueryRowContext(ctx, `
		SELECT id, talent_code, overall_score, qualification_status,
		       criteria_met, COALESCE(evidence_summary, '[]')
		FROM talents WHERE id = $1`, talentID).Scan(
		&summary.TalentID, &summary.TalentCode, &summary.OverallScore,
		&status, &met, &evidence)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFoundError("talent", talentID)
	}
	if err != nil {
		return nil, errors.NewStorageError("read talent summary", err)
	}

	summary.Status = models.QualificationStatus(status)
	summary.CriteriaMet = []string(met)
	if err := json.Unmarshal(evidence, &summary.Categories); err != nil {
		return nil, errors.NewStorageError("decode evidence summary", err)
	}
	return &summary, nil
}
