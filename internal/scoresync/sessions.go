// internal/scoresync/sessions.go
package scoresync

import (
	"context"
	"database/sql"

	"talent-platform/internal/common/errors"
	"talent-platform/internal/common/logger"
	"talent-platform/internal/models"

	"github.com/google/uuid"
)

// SessionCreator starts a provider-side scoring run.
type SessionCreator interface {
	CreateSession(ctx context.Context, talentCode string) (string, error)
}

// Sessions owns the local score_sessions records: creating runs and
// applying provider webhook notifications. The reconciler covers sessions
// whose webhook never arrived.
type Sessions struct {
	db      *sql.DB
	creator SessionCreator
	logger  logger.Logger
}

func NewSessions(db *sql.DB, creator SessionCreator, log logger.Logger) *Sessions {
	return &Sessions{
		db:      db,
		creator: creator,
		logger:  log.WithFields(map[string]interface{}{"component": "scoresync"}),
	}
}

// Create starts a scoring run for a talent and records the session.
func (s *Sessions) Create(ctx context.Context, talentID string) (*models.ScoreSession, error) {
	var talentCode string
	err := s.db.QueryRowContext(ctx,
		`SELECT talent_code FROM talents WHERE id = $1`, talentID).Scan(&talentCode)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFoundError("talent", talentID)
	}
	if err != nil {
		return nil, errors.NewStorageError("read talent", err)
	}

	externalID, err := s.creator.CreateSession(ctx, talentCode)
	if err != nil {
		return nil, errors.NewUpstreamFailureError("scoring service", err)
	}

	session := &models.ScoreSession{
		ID:                uuid.New().String(),
		TalentID:          talentID,
		ExternalSessionID: externalID,
		Status:            models.SessionQueued,
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO score_sessions (id, talent_id, external_session_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())`,
		session.ID, session.TalentID, session.ExternalSessionID, string(session.Status))
	if err != nil {
		return nil, errors.NewStorageError("insert session", err)
	}

	return session, nil
}

// HandleEvent applies a provider webhook notification. Terminal rows are
// never rewritten, so a late or replayed webhook is a no-op.
func (s *Sessions) HandleEvent(ctx context.Context, state SessionState) error {
	status := mapProviderStatus(state.Status)

	var res sql.Result
	var err error
	if status == models.SessionCompleted {
		res, err = s.db.ExecContext(ctx, `
			UPDATE score_sessions
			SET status = $2, report = $3, summary_score = $4, completed_at = NOW(), updated_at = NOW()
			WHERE external_session_id = $1 AND status NOT IN ('completed', 'failed')`,
			state.SessionID, string(status), []byte(state.Report), state.SummaryScore)
	} else {
		res, err = s.db.ExecContext(ctx, `
			UPDATE score_sessions
			SET status = $2, updated_at = NOW()
			WHERE external_session_id = $1 AND status NOT IN ('completed', 'failed')`,
			state.SessionID, string(status))
	}
	if err != nil {
		return errors.NewStorageError("apply session event", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		s.logger.Info("session event ignored", map[string]interface{}{
			"externalSessionId": state.SessionID,
			"status":            state.Status,
		})
	}
	return nil
}

// Get reads one session row for the API surface.
func (s *Sessions) Get(ctx context.Context, sessionID string) (*models.ScoreSession, error) {
	var session models.ScoreSession
	var status string
	var report []byte
	var summary sql.NullInt64
	var completedAt sql.NullTime

	err := s.db.QueryRowContext(ctx, `
		SELECT id, talent_id, external_session_id, status, COALESCE(report, 'null'),
		       summary_score, completed_at, created_at, updated_at
		FROM score_sessions WHERE id = $1`, sessionID).Scan(
		&session.ID, &session.TalentID, &session.ExternalSessionID, &status,
		&report, &summary, &completedAt, &session.CreatedAt, &session.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFoundError("score session", sessionID)
	}
	if err != nil {
		return nil, errors.NewStorageError("read session", err)
	}

	session.Status = models.SessionStatus(status)
	session.Report = report
	if summary.Valid {
		v := int(summary.Int64)
		session.SummaryScore = &v
	}
	if completedAt.Valid {
		session.CompletedAt = &completedAt.Time
	}
	return &session, nil
}
