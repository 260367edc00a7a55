package store

import (
	"context"
	"database/sql"
	stderrors "errors"

	"edumatch-notifications/internal/common/errors"
)

// TokenStore keeps one device token per user; the newest registration wins.
type TokenStore struct {
	db *sql.DB
}

func NewTokenStore(db *sql.DB) *TokenStore {
	return &TokenStore{db: db}
}

func (s *TokenStore) Upsert(ctx context.Context, userID int64, token string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO fcm_tokens (user_id, device_token)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET device_token = EXCLUDED.device_token`,
		userID, token,
	)
	if err != nil {
		return errors.NewDatabaseInsertFailedError(err)
	}
	return nil
}

// Get returns the user's token, or "" when none is registered.
func (s *TokenStore) Get(ctx context.Context, userID int64) (string, error) {
	var token string
	err := s.db.QueryRowContext(ctx,
		`SELECT device_token FROM fcm_tokens WHERE user_id = $1`, userID,
	).Scan(&token)
	if stderrors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", errors.NewQueryExecutionFailedError("token_get", err)
	}
	return token, nil
}

func (s *TokenStore) Delete(ctx context.Context, userID int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM fcm_tokens WHERE user_id = $1`, userID); err != nil {
		return errors.NewQueryExecutionFailedError("token_delete", err)
	}
	return nil
}

// DeleteIfMatches removes the token only if it is still the registered one,
// so a registration racing with an invalidation is kept.
func (s *TokenStore) DeleteIfMatches(ctx context.Context, userID int64, token string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM fcm_tokens WHERE user_id = $1 AND device_token = $2`, userID, token,
	)
	if err != nil {
		return false, errors.NewQueryExecutionFailedError("token_invalidate", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}
