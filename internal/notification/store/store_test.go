package store

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"edumatch-notifications/internal/common/errors"
	"edumatch-notifications/internal/models"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func TestHistoryStore_InsertInTransaction(t *testing.T) {
	db, mock := newMock(t)
	created := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO notification_history").
		WithArgs("Maintenance", "Down at 2am", "ALL_USERS", sqlmock.AnyArg(), "SYSTEM", "HIGH",
			sqlmock.AnyArg(), sqlmock.AnyArg(), 3, 2, 1, 0, false, int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(11), created))
	mock.ExpectCommit()

	h := &models.NotificationHistory{
		Title: "Maintenance", Message: "Down at 2am",
		TargetAudience: models.AudienceAllUsers, Type: models.CategorySystem, Priority: models.PriorityHigh,
		TotalRecipients: 3, DeliveredCount: 2, FailedCount: 1, CreatedBy: 7,
	}
	require.NoError(t, NewHistoryStore(db).Insert(context.Background(), h))

	assert.Equal(t, int64(11), h.ID)
	assert.Equal(t, created, h.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHistoryStore_InsertRollsBack(t *testing.T) {
	db, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO notification_history").WillReturnError(fmt.Errorf("disk full"))
	mock.ExpectRollback()

	err := NewHistoryStore(db).Insert(context.Background(), &models.NotificationHistory{Title: "x"})
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeDatabaseInsertFailed, errors.AsStandard(err).Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHistoryStore_List(t *testing.T) {
	db, mock := newMock(t)
	now := time.Now().UTC()

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM notification_history").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(12)))
	mock.ExpectQuery("FROM notification_history ORDER BY created_at DESC").
		WithArgs(10, 10).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "title", "message", "target_audience", "specific_email", "type", "priority",
			"action_url", "action_label", "total_recipients", "delivered_count", "failed_count",
			"pending_count", "send_email", "created_by", "created_at",
		}).
			AddRow(int64(2), "B", "b", "APPLICANTS", "", "ALERT", "LOW", "", "", 5, 5, 0, 0, false, int64(1), now).
			AddRow(int64(1), "A", "a", "SPECIFIC", "x@y.z", "UPDATE", "NORMAL", "/s/1", "Open", 1, 0, 1, 0, true, int64(1), now))

	page, err := NewHistoryStore(db).List(context.Background(), 1, 10)
	require.NoError(t, err)

	assert.Equal(t, int64(12), page.TotalElements)
	assert.Equal(t, 2, page.TotalPages)
	require.Len(t, page.Content, 2)
	assert.Equal(t, models.AudienceApplicants, page.Content[0].TargetAudience)
	assert.Equal(t, "x@y.z", page.Content[1].SpecificEmail)
	assert.Equal(t, models.CategoryUpdate, page.Content[1].Type)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHistoryStore_Stats(t *testing.T) {
	now := time.Date(2026, 5, 15, 0, 0, 0, 0, time.UTC)

	t.Run("month over month change", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectQuery("COALESCE\\(SUM\\(delivered_count\\), 0\\)").
			WillReturnRows(sqlmock.NewRows([]string{"count", "delivered", "pending", "failed"}).
				AddRow(int64(4), int64(10), int64(0), int64(2)))
		mock.ExpectQuery("created_at > \\$1").
			WithArgs(now.AddDate(0, -1, 0)).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(2)))

		st, err := NewHistoryStore(db).Stats(context.Background(), now)
		require.NoError(t, err)
		assert.Equal(t, int64(4), st.TotalSent)
		assert.Equal(t, int64(10), st.Delivered)
		assert.Equal(t, int64(2), st.Failed)
		assert.InDelta(t, 100.0, st.ChangePercentage, 0.0001)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no broadcasts last month", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectQuery("COALESCE\\(SUM\\(delivered_count\\), 0\\)").
			WillReturnRows(sqlmock.NewRows([]string{"count", "delivered", "pending", "failed"}).
				AddRow(int64(0), int64(0), int64(0), int64(0)))
		mock.ExpectQuery("created_at > \\$1").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(0)))

		st, err := NewHistoryStore(db).Stats(context.Background(), now)
		require.NoError(t, err)
		assert.Zero(t, st.ChangePercentage)
	})
}

func TestNotificationStore_Create(t *testing.T) {
	db, mock := newMock(t)
	created := time.Now().UTC()

	mock.ExpectQuery("INSERT INTO notifications").
		WithArgs(int64(42), "Application update: ACCEPTED", "", "APPLICATION_STATUS", "77").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(5), created))

	n := &models.Notification{UserID: 42, Title: "Application update: ACCEPTED", Type: "APPLICATION_STATUS", ReferenceID: "77"}
	require.NoError(t, NewNotificationStore(db).Create(context.Background(), n))

	assert.Equal(t, int64(5), n.ID)
	assert.False(t, n.IsRead)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNotificationStore_CreateFailure(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery("INSERT INTO notifications").WillReturnError(fmt.Errorf("connection reset"))

	err := NewNotificationStore(db).Create(context.Background(), &models.Notification{UserID: 1})
	require.Error(t, err)
	assert.True(t, errors.AsStandard(err).Retryable)
}

func TestNotificationStore_CreateDataException(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery("INSERT INTO notifications").
		WillReturnError(&pq.Error{Code: "22001", Message: "value too long for type character varying(255)"})

	err := NewNotificationStore(db).Create(context.Background(), &models.Notification{UserID: 1})
	require.Error(t, err)

	std := errors.AsStandard(err)
	assert.Equal(t, errors.ErrCodeDatabaseDataRejected, std.Code)
	assert.False(t, std.Retryable)
}

func TestNotificationStore_ListForUsers(t *testing.T) {
	db, mock := newMock(t)
	ids := []int64{9, models.AdminInboxUserID}
	now := time.Now().UTC()

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM notifications WHERE user_id = ANY").
		WithArgs(pq.Array(ids)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(2)))
	mock.ExpectQuery("FROM notifications").
		WithArgs(pq.Array(ids), 10, 0).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "title", "body", "type", "reference_id", "is_read", "created_at"}).
			AddRow(int64(3), int64(-1), "New application", "A new application needs review.", "NEW_APPLICATION_ADMIN", "15", false, now).
			AddRow(int64(1), int64(9), "Hi", "", "GENERAL", "", true, now))

	page, err := NewNotificationStore(db).ListForUsers(context.Background(), ids, 0, 10)
	require.NoError(t, err)
	require.Len(t, page.Content, 2)
	assert.Equal(t, models.AdminInboxUserID, page.Content[0].UserID)
	assert.True(t, page.Content[1].IsRead)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNotificationStore_MarkRead(t *testing.T) {
	t.Run("owner marks read", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectQuery("SELECT user_id FROM notifications").WithArgs(int64(3)).
			WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow(int64(9)))
		mock.ExpectExec("UPDATE notifications SET is_read = TRUE").WithArgs(int64(3)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, NewNotificationStore(db).MarkRead(context.Background(), 3, []int64{9}))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("already read is not an error", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectQuery("SELECT user_id FROM notifications").
			WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow(int64(9)))
		mock.ExpectExec("UPDATE notifications SET is_read = TRUE").
			WillReturnResult(sqlmock.NewResult(0, 0))

		assert.NoError(t, NewNotificationStore(db).MarkRead(context.Background(), 3, []int64{9}))
	})

	t.Run("admin inbox row", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectQuery("SELECT user_id FROM notifications").
			WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow(models.AdminInboxUserID))
		mock.ExpectExec("UPDATE notifications SET is_read = TRUE").
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, NewNotificationStore(db).MarkRead(context.Background(), 3, []int64{1, models.AdminInboxUserID}))
	})

	t.Run("other user's notification", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectQuery("SELECT user_id FROM notifications").
			WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow(int64(10)))

		err := NewNotificationStore(db).MarkRead(context.Background(), 3, []int64{9})
		assert.True(t, stderrors.Is(err, errors.NewForbiddenError("")))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectQuery("SELECT user_id FROM notifications").
			WillReturnRows(sqlmock.NewRows([]string{"user_id"}))

		err := NewNotificationStore(db).MarkRead(context.Background(), 3, []int64{9})
		assert.True(t, stderrors.Is(err, errors.ErrNotFound))
	})
}

func TestNotificationStore_CountUnread(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery("is_read = FALSE").
		WithArgs(pq.Array([]int64{4})).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(6)))

	n, err := NewNotificationStore(db).CountUnread(context.Background(), []int64{4})
	require.NoError(t, err)
	assert.Equal(t, int64(6), n)
}

func TestTokenStore(t *testing.T) {
	t.Run("upsert", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectExec("ON CONFLICT \\(user_id\\) DO UPDATE").
			WithArgs(int64(8), "tok-2").
			WillReturnResult(sqlmock.NewResult(1, 1))

		require.NoError(t, NewTokenStore(db).Upsert(context.Background(), 8, "tok-2"))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("get missing returns empty", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectQuery("SELECT device_token FROM fcm_tokens").WithArgs(int64(8)).
			WillReturnRows(sqlmock.NewRows([]string{"device_token"}))

		tok, err := NewTokenStore(db).Get(context.Background(), 8)
		require.NoError(t, err)
		assert.Empty(t, tok)
	})

	t.Run("get", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectQuery("SELECT device_token FROM fcm_tokens").
			WillReturnRows(sqlmock.NewRows([]string{"device_token"}).AddRow("tok-1"))

		tok, err := NewTokenStore(db).Get(context.Background(), 8)
		require.NoError(t, err)
		assert.Equal(t, "tok-1", tok)
	})

	t.Run("invalidate only the stale token", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectExec("DELETE FROM fcm_tokens WHERE user_id = \\$1 AND device_token = \\$2").
			WithArgs(int64(8), "stale").
			WillReturnResult(sqlmock.NewResult(0, 0))

		deleted, err := NewTokenStore(db).DeleteIfMatches(context.Background(), 8, "stale")
		require.NoError(t, err)
		assert.False(t, deleted)
	})
}

func TestTemplateStore(t *testing.T) {
	cols := []string{"id", "name", "description", "type", "title", "message", "action_url", "action_label", "priority", "created_at", "updated_at"}
	now := time.Now().UTC()

	t.Run("create", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectQuery("INSERT INTO notification_templates").
			WillReturnRows(sqlmock.NewRows(cols).AddRow(int64(1), "deadline", "", "ALERT", "Deadline", "Soon", "", "", "HIGH", now, now))

		tpl, err := NewTemplateStore(db).Create(context.Background(), models.TemplateRequest{
			Name: "deadline", Type: models.CategoryAlert, Title: "Deadline", Message: "Soon", Priority: models.PriorityHigh,
		})
		require.NoError(t, err)
		assert.Equal(t, int64(1), tpl.ID)
		assert.Equal(t, models.CategoryAlert, tpl.Type)
	})

	t.Run("get missing", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectQuery("FROM notification_templates WHERE id = \\$1").
			WillReturnRows(sqlmock.NewRows(cols))

		_, err := NewTemplateStore(db).Get(context.Background(), 99)
		assert.True(t, stderrors.Is(err, errors.ErrNotFound))
	})

	t.Run("update missing", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectQuery("UPDATE notification_templates").
			WillReturnRows(sqlmock.NewRows(cols))

		_, err := NewTemplateStore(db).Update(context.Background(), 99, models.TemplateRequest{Name: "x"})
		assert.True(t, stderrors.Is(err, errors.ErrNotFound))
	})

	t.Run("delete missing", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectExec("DELETE FROM notification_templates").
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := NewTemplateStore(db).Delete(context.Background(), 99)
		assert.True(t, stderrors.Is(err, errors.ErrNotFound))
	})

	t.Run("list empty", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectQuery("FROM notification_templates ORDER BY id").
			WillReturnRows(sqlmock.NewRows(cols))

		list, err := NewTemplateStore(db).List(context.Background())
		require.NoError(t, err)
		assert.NotNil(t, list)
		assert.Empty(t, list)
	})
}
