package store

import (
	"context"
	"database/sql"
	stderrors "errors"
	"strconv"

	"github.com/lib/pq"

	"edumatch-notifications/internal/common/errors"
	"edumatch-notifications/internal/models"
)

type NotificationStore struct {
	db *sql.DB
}

func NewNotificationStore(db *sql.DB) *NotificationStore {
	return &NotificationStore{db: db}
}

// Create persists an unread notification and fills in ID and CreatedAt.
func (s *NotificationStore) Create(ctx context.Context, n *models.Notification) error {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO notifications (user_id, title, body, type, reference_id, is_read)
		VALUES ($1, $2, $3, $4, $5, FALSE)
		RETURNING id, created_at`,
		n.UserID, n.Title, n.Body, n.Type, nullString(n.ReferenceID),
	).Scan(&n.ID, &n.CreatedAt)
	if err != nil {
		if isDataException(err) {
			return errors.NewDatabaseDataRejectedError(err)
		}
		return errors.NewDatabaseInsertFailedError(err)
	}
	n.IsRead = false
	return nil
}

// ListForUsers pages the notifications owned by any of userIDs, newest first.
func (s *NotificationStore) ListForUsers(ctx context.Context, userIDs []int64, page, size int) (models.Page[models.Notification], error) {
	var total int64
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notifications WHERE user_id = ANY($1)`, pq.Array(userIDs),
	).Scan(&total); err != nil {
		return models.Page[models.Notification]{}, errors.NewQueryExecutionFailedError("notifications_count", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, title, COALESCE(body, ''), COALESCE(type, ''), COALESCE(reference_id, ''), is_read, created_at
		FROM notifications
		WHERE user_id = ANY($1)
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`,
		pq.Array(userIDs), size, page*size,
	)
	if err != nil {
		return models.Page[models.Notification]{}, errors.NewQueryExecutionFailedError("notifications_list", err)
	}
	defer rows.Close()

	var items []models.Notification
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Title, &n.Body, &n.Type, &n.ReferenceID, &n.IsRead, &n.CreatedAt); err != nil {
			return models.Page[models.Notification]{}, errors.NewQueryExecutionFailedError("notifications_scan", err)
		}
		items = append(items, n)
	}
	if err := rows.Err(); err != nil {
		return models.Page[models.Notification]{}, errors.NewQueryExecutionFailedError("notifications_rows", err)
	}

	return models.NewPage(items, page, size, total), nil
}

// MarkRead flags a notification as read. Marking an already-read
// notification succeeds without change. A notification not owned by any of
// userIDs yields FORBIDDEN.
func (s *NotificationStore) MarkRead(ctx context.Context, id int64, userIDs []int64) error {
	var owner int64
	err := s.db.QueryRowContext(ctx, `SELECT user_id FROM notifications WHERE id = $1`, id).Scan(&owner)
	if stderrors.Is(err, sql.ErrNoRows) {
		return errors.NewNotFoundError("notification", strconv.FormatInt(id, 10))
	}
	if err != nil {
		return errors.NewQueryExecutionFailedError("notification_owner", err)
	}

	if !containsID(userIDs, owner) {
		return errors.NewForbiddenError("notification belongs to another user")
	}

	if _, err := s.db.ExecContext(ctx,
		`UPDATE notifications SET is_read = TRUE WHERE id = $1 AND is_read = FALSE`, id,
	); err != nil {
		return errors.NewQueryExecutionFailedError("notification_mark_read", err)
	}
	return nil
}

func (s *NotificationStore) CountUnread(ctx context.Context, userIDs []int64) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notifications WHERE user_id = ANY($1) AND is_read = FALSE`, pq.Array(userIDs),
	).Scan(&count)
	if err != nil {
		return 0, errors.NewQueryExecutionFailedError("notifications_unread", err)
	}
	return count, nil
}

func containsID(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// isDataException reports a postgres class 22 error such as a value too long
// for its column or an invalid text encoding.
func isDataException(err error) bool {
	var pqErr *pq.Error
	return stderrors.As(err, &pqErr) && pqErr.Code.Class() == "22"
}
