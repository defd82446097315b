// internal/scoresync/sessions_test.go
package scoresync

import (
	"context"
	"testing"
	"time"

	"talent-platform/internal/common/errors"
	"talent-platform/internal/common/logger"
	"talent-platform/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubCreator struct {
	externalID string
	err        error
	codes      []string
}

func (c *stubCreator) CreateSession(_ context.Context, talentCode string) (string, error) {
	c.codes = append(c.codes, talentCode)
	return c.externalID, c.err
}

func sampleTime() time.Time {
	return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
}

func newSessions(t *testing.T, creator SessionCreator) (*Sessions, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewSessions(db, creator, logger.NewTestLogger(t)), mock
}

func TestCreate_StartsProviderRunAndRecordsSession(t *testing.T) {
	creator := &stubCreator{externalID: "ext-42"}
	svc, mock := newSessions(t, creator)

	mock.ExpectQuery("SELECT talent_code FROM talents").
		WithArgs("talent-1").
		WillReturnRows(sqlmock.NewRows([]string{"talent_code"}).AddRow("T-0001"))
	mock.ExpectExec("INSERT INTO score_sessions").
		WithArgs(sqlmock.AnyArg(), "talent-1", "ext-42", "queued").
		WillReturnResult(sqlmock.NewResult(0, 1))

	session, err := svc.Create(context.Background(), "talent-1")

	require.NoError(t, err)
	assert.Equal(t, models.SessionQueued, session.Status)
	assert.Equal(t, "ext-42", session.ExternalSessionID)
	assert.Equal(t, []string{"T-0001"}, creator.codes)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_TalentNotFound(t *testing.T) {
	svc, mock := newSessions(t, &stubCreator{})

	mock.ExpectQuery("SELECT talent_code FROM talents").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"talent_code"}))

	_, err := svc.Create(context.Background(), "missing")

	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestCreate_ProviderFailureWritesNothing(t *testing.T) {
	creator := &stubCreator{err: assert.AnError}
	svc, mock := newSessions(t, creator)

	mock.ExpectQuery("SELECT talent_code FROM talents").
		WithArgs("talent-1").
		WillReturnRows(sqlmock.NewRows([]string{"talent_code"}).AddRow("T-0001"))

	_, err := svc.Create(context.Background(), "talent-1")

	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeUpstreamFailure, errors.CodeOf(err))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGet_PopulatesOptionalColumns(t *testing.T) {
	svc, mock := newSessions(t, &stubCreator{})

	mock.ExpectQuery("SELECT id, talent_id, external_session_id, status").
		WithArgs("sess-1").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "talent_id", "external_session_id", "status", "report",
			"summary_score", "completed_at", "created_at", "updated_at",
		}).AddRow("sess-1", "talent-1", "ext-42", "completed", []byte(`{"overall": 80}`),
			int64(80), sampleTime(), sampleTime(), sampleTime()))

	session, err := svc.Get(context.Background(), "sess-1")

	require.NoError(t, err)
	assert.Equal(t, models.SessionCompleted, session.Status)
	require.NotNil(t, session.SummaryScore)
	assert.Equal(t, 80, *session.SummaryScore)
	require.NotNil(t, session.CompletedAt)
}

func TestGet_NotFound(t *testing.T) {
	svc, mock := newSessions(t, &stubCreator{})

	mock.ExpectQuery("SELECT id, talent_id, external_session_id, status").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "talent_id", "external_session_id", "status", "report",
			"summary_score", "completed_at", "created_at", "updated_at",
		}))

	_, err := svc.Get(context.Background(), "missing")

	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}
