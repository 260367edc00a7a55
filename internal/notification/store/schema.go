package store

import (
	"context"
	"database/sql"
	"fmt"

	"edumatch-notifications/internal/common/database"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS notification_history (
		id BIGSERIAL PRIMARY KEY,
		title VARCHAR(255) NOT NULL,
		message TEXT,
		target_audience VARCHAR(32) NOT NULL,
		specific_email VARCHAR(255),
		type VARCHAR(32) NOT NULL,
		priority VARCHAR(16) NOT NULL,
		action_url TEXT,
		action_label VARCHAR(255),
		total_recipients INTEGER NOT NULL DEFAULT 0,
		delivered_count INTEGER NOT NULL DEFAULT 0,
		failed_count INTEGER NOT NULL DEFAULT 0,
		pending_count INTEGER NOT NULL DEFAULT 0,
		send_email BOOLEAN NOT NULL DEFAULT FALSE,
		created_by BIGINT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_notification_history_created_at ON notification_history (created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS notifications (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL,
		title VARCHAR(255) NOT NULL,
		body TEXT,
		type VARCHAR(64),
		reference_id VARCHAR(255),
		is_read BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_notifications_user ON notifications (user_id, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS fcm_tokens (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT UNIQUE NOT NULL,
		device_token TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS notification_templates (
		id BIGSERIAL PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		description TEXT,
		type VARCHAR(32) NOT NULL,
		title VARCHAR(255),
		message TEXT,
		action_url TEXT,
		action_label VARCHAR(255),
		priority VARCHAR(16),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}

// Migrate creates the service's tables when they are missing.
func Migrate(ctx context.Context, db *sql.DB) error {
	return database.WithTx(ctx, db, func(tx *sql.Tx) error {
		for i, stmt := range schema {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("schema statement %d: %w", i+1, err)
			}
		}
		return nil
	})
}
