// internal/scoresync/reconciler.go
package scoresync

import (
	"context"
	"database/sql"
	"time"

	"talent-platform/internal/common/errors"
	"talent-platform/internal/common/logger"
	"talent-platform/internal/models"
)

// SessionPoller is the provider surface the reconciler needs.
type SessionPoller interface {
	GetSession(ctx context.Context, sessionID string) (*SessionState, error)
}

// Reconciler brings non-terminal score sessions up to date with the
// provider. It is an idempotent batch: safe to re-run on any schedule, and
// a run that observes no provider-side change writes nothing.
type Reconciler struct {
	db     *sql.DB
	poller SessionPoller
	delay  time.Duration
	batch  int
	logger logger.Logger
}

func NewReconciler(db *sql.DB, poller SessionPoller, delay time.Duration, batch int, log logger.Logger) *Reconciler {
	if batch <= 0 {
		batch = 50
	}
	return &Reconciler{
		db:     db,
		poller: poller,
		delay:  delay,
		batch:  batch,
		logger: log.WithFields(map[string]interface{}{"component": "scoresync"}),
	}
}

// Result summarizes one reconciliation run.
type Result struct {
	Checked   int
	Updated   int
	Completed int
	Failed    int
}

// Run polls every non-terminal session sequentially, sleeping the
// configured delay between provider calls to respect rate limits. A
// provider error on one session is logged and skipped; the run continues.
func (r *Reconciler) Run(ctx context.Context) (Result, error) {
	sessions, err := r.pending(ctx)
	if err != nil {
		return Result{}, err
	}

	var result Result
	for i, session := range sessions {
		if i > 0 && r.delay > 0 {
			select {
			case <-time.After(r.delay):
			case <-ctx.Done():
				return result, ctx.Err()
			}
		}

		result.Checked++
		state, err := r.poller.GetSession(ctx, session.ExternalSessionID)
		if err != nil {
			r.logger.Warn("session poll failed", map[string]interface{}{
				"sessionId":         session.ID,
				"externalSessionId": session.ExternalSessionID,
				"error":             err,
			})
			continue
		}

		status := mapProviderStatus(state.Status)
		if status == session.Status {
			continue
		}

		if err := r.apply(ctx, session, status, state); err != nil {
			r.logger.Error("session update failed", map[string]interface{}{
				"sessionId": session.ID,
				"status":    status,
				"error":     err,
			})
			continue
		}

		result.Updated++
		if status.IsTerminal() {
			if status == models.SessionCompleted {
				result.Completed++
			} else {
				result.Failed++
			}
		}
	}

	r.logger.Info("reconciliation run finished", map[string]interface{}{
		"checked":   result.Checked,
		"updated":   result.Updated,
		"completed": result.Completed,
		"failed":    result.Failed,
	})

	return result, nil
}

func (r *Reconciler) pending(ctx context.Context) ([]models.ScoreSession, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, talent_id, external_session_id, status
		FROM score_sessions
		WHERE status NOT IN ('completed', 'failed')
		ORDER BY created_at ASC
		LIMIT $1`, r.batch)
	if err != nil {
		return nil, errors.NewStorageError("list pending sessions", err)
	}
	defer rows.Close()

	var sessions []models.ScoreSession
	for rows.Next() {
		var session models.ScoreSession
		var status string
		if err := rows.Scan(&session.ID, &session.TalentID, &session.ExternalSessionID, &status); err != nil {
			return nil, errors.NewStorageError("scan session", err)
		}
		session.Status = models.SessionStatus(status)
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewStorageError("list pending sessions", err)
	}
	return sessions, nil
}

// apply persists the provider state. Completion stores the report verbatim
// alongside the extracted summary score. The WHERE clause excludes terminal
// rows so a row already finalized by the webhook path is never rewritten.
func (r *Reconciler) apply(ctx context.Context, session models.ScoreSession, status models.SessionStatus, state *SessionState) error {
	var err error
	if status == models.SessionCompleted {
		_, err = r.db.ExecContext(ctx, `
			UPDATE score_sessions
			SET status = $2, report = $3, summary_score = $4, completed_at = NOW(), updated_at = NOW()
			WHERE id = $1 AND status NOT IN ('completed', 'failed')`,
			session.ID, string(status), []byte(state.Report), state.SummaryScore)
	} else {
		_, err = r.db.ExecContext(ctx, `
			UPDATE score_sessions
			SET status = $2, updated_at = NOW()
			WHERE id = $1 AND status NOT IN ('completed', 'failed')`,
			session.ID, string(status))
	}
	if err != nil {
		return errors.NewStorageError("update session", err)
	}
	return nil
}
