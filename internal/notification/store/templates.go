package store

import (
	"context"
	"database/sql"
	stderrors "errors"
	"strconv"

	"edumatch-notifications/internal/common/errors"
	"edumatch-notifications/internal/models"
)

type TemplateStore struct {
	db *sql.DB
}

func NewTemplateStore(db *sql.DB) *TemplateStore {
	return &TemplateStore{db: db}
}

const templateColumns = `id, name, COALESCE(description, ''), type, COALESCE(title, ''), COALESCE(message, ''),
	COALESCE(action_url, ''), COALESCE(action_label, ''), COALESCE(priority, ''), created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTemplate(row rowScanner) (*models.NotificationTemplate, error) {
	var t models.NotificationTemplate
	var category, priority string
	if err := row.Scan(&t.ID, &t.Name, &t.Description, &category, &t.Title, &t.Message,
		&t.ActionURL, &t.ActionLabel, &priority, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	t.Type = models.Category(category)
	t.Priority = models.Priority(priority)
	return &t, nil
}

func (s *TemplateStore) List(ctx context.Context) ([]models.NotificationTemplate, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+templateColumns+` FROM notification_templates ORDER BY id`)
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("templates_list", err)
	}
	defer rows.Close()

	out := []models.NotificationTemplate{}
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, errors.NewQueryExecutionFailedError("templates_scan", err)
		}
		out = append(out, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewQueryExecutionFailedError("templates_rows", err)
	}
	return out, nil
}

func (s *TemplateStore) Get(ctx context.Context, id int64) (*models.NotificationTemplate, error) {
	t, err := scanTemplate(s.db.QueryRowContext(ctx,
		`SELECT `+templateColumns+` FROM notification_templates WHERE id = $1`, id))
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.NewNotFoundError("template", strconv.FormatInt(id, 10))
	}
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("template_get", err)
	}
	return t, nil
}

func (s *TemplateStore) Create(ctx context.Context, req models.TemplateRequest) (*models.NotificationTemplate, error) {
	t, err := scanTemplate(s.db.QueryRowContext(ctx, `
		INSERT INTO notification_templates (name, description, type, title, message, action_url, action_label, priority)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+templateColumns,
		req.Name, nullString(req.Description), string(req.Type), nullString(req.Title), nullString(req.Message),
		nullString(req.ActionURL), nullString(req.ActionLabel), string(req.Priority),
	))
	if err != nil {
		return nil, errors.NewDatabaseInsertFailedError(err)
	}
	return t, nil
}

func (s *TemplateStore) Update(ctx context.Context, id int64, req models.TemplateRequest) (*models.NotificationTemplate, error) {
	t, err := scanTemplate(s.db.QueryRowContext(ctx, `
		UPDATE notification_templates
		SET name = $2, description = $3, type = $4, title = $5, message = $6,
		    action_url = $7, action_label = $8, priority = $9, updated_at = NOW()
		WHERE id = $1
		RETURNING `+templateColumns,
		id, req.Name, nullString(req.Description), string(req.Type), nullString(req.Title), nullString(req.Message),
		nullString(req.ActionURL), nullString(req.ActionLabel), string(req.Priority),
	))
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.NewNotFoundError("template", strconv.FormatInt(id, 10))
	}
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("template_update", err)
	}
	return t, nil
}

func (s *TemplateStore) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM notification_templates WHERE id = $1`, id)
	if err != nil {
		return errors.NewQueryExecutionFailedError("template_delete", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.NewNotFoundError("template", strconv.FormatInt(id, 10))
	}
	return nil
}
