// Package store holds the Postgres persistence of the notification service.
package store

import (
	"context"
	"database/sql"
	"time"

	"edumatch-notifications/internal/common/database"
	"edumatch-notifications/internal/common/errors"
	"edumatch-notifications/internal/models"
)

type HistoryStore struct {
	db *sql.DB
}

func NewHistoryStore(db *sql.DB) *HistoryStore {
	return &HistoryStore{db: db}
}

const insertHistorySQL = `
INSERT INTO notification_history (
	title, message, target_audience, specific_email, type, priority,
	action_url, action_label, total_recipients, delivered_count,
	failed_count, pending_count, send_email, created_by
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
RETURNING id, created_at`

// Insert writes the broadcast audit row and fills in ID and CreatedAt.
func (s *HistoryStore) Insert(ctx context.Context, h *models.NotificationHistory) error {
	err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		return tx.QueryRowContext(ctx, insertHistorySQL,
			h.Title, h.Message, string(h.TargetAudience), nullString(h.SpecificEmail),
			string(h.Type), string(h.Priority), nullString(h.ActionURL), nullString(h.ActionLabel),
			h.TotalRecipients, h.DeliveredCount, h.FailedCount, h.PendingCount,
			h.SendEmail, h.CreatedBy,
		).Scan(&h.ID, &h.CreatedAt)
	})
	if err != nil {
		return errors.NewDatabaseInsertFailedError(err)
	}
	return nil
}

const historyColumns = `id, title, COALESCE(message, ''), target_audience, COALESCE(specific_email, ''),
	type, priority, COALESCE(action_url, ''), COALESCE(action_label, ''), total_recipients,
	delivered_count, failed_count, pending_count, send_email, COALESCE(created_by, 0), created_at`

// List returns history newest first.
func (s *HistoryStore) List(ctx context.Context, page, size int) (models.Page[models.NotificationHistory], error) {
	var total int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM notification_history`).Scan(&total); err != nil {
		return models.Page[models.NotificationHistory]{}, errors.NewQueryExecutionFailedError("history_count", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+historyColumns+` FROM notification_history ORDER BY created_at DESC, id DESC LIMIT $1 OFFSET $2`,
		size, page*size,
	)
	if err != nil {
		return models.Page[models.NotificationHistory]{}, errors.NewQueryExecutionFailedError("history_list", err)
	}
	defer rows.Close()

	var items []models.NotificationHistory
	for rows.Next() {
		var h models.NotificationHistory
		var audience, category, priority string
		if err := rows.Scan(
			&h.ID, &h.Title, &h.Message, &audience, &h.SpecificEmail,
			&category, &priority, &h.ActionURL, &h.ActionLabel, &h.TotalRecipients,
			&h.DeliveredCount, &h.FailedCount, &h.PendingCount, &h.SendEmail, &h.CreatedBy, &h.CreatedAt,
		); err != nil {
			return models.Page[models.NotificationHistory]{}, errors.NewQueryExecutionFailedError("history_scan", err)
		}
		h.TargetAudience = models.Audience(audience)
		h.Type = models.Category(category)
		h.Priority = models.Priority(priority)
		items = append(items, h)
	}
	if err := rows.Err(); err != nil {
		return models.Page[models.NotificationHistory]{}, errors.NewQueryExecutionFailedError("history_rows", err)
	}

	return models.NewPage(items, page, size, total), nil
}

// Stats sums every history row. ChangePercentage compares the overall total
// with the broadcasts of the last month; it is 0 when there were none.
func (s *HistoryStore) Stats(ctx context.Context, now time.Time) (*models.NotificationStats, error) {
	var st models.NotificationStats
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(delivered_count), 0),
		       COALESCE(SUM(pending_count), 0),
		       COALESCE(SUM(failed_count), 0)
		FROM notification_history`,
	).Scan(&st.TotalSent, &st.Delivered, &st.Pending, &st.Failed)
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("history_stats", err)
	}

	var lastMonth int64
	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notification_history WHERE created_at > $1`,
		now.AddDate(0, -1, 0),
	).Scan(&lastMonth)
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("history_stats_month", err)
	}

	if lastMonth > 0 {
		st.ChangePercentage = float64(st.TotalSent-lastMonth) / float64(lastMonth) * 100
	}
	return &st, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
