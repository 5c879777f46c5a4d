// internal/store/postgres/templates.go
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"

	"opsdesk-engine/internal/common/errors"
	"opsdesk-engine/internal/models"
)

type TemplateStore struct {
	db *sql.DB
}

func NewTemplateStore(db *sql.DB) *TemplateStore {
	return &TemplateStore{db: db}
}

func (s *TemplateStore) Create(ctx context.Context, tpl *models.FormTemplate) error {
	schema := tpl.Schema
	if len(schema) == 0 {
		schema = json.RawMessage(`{}`)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO form_templates (id, workspace_id, name, schema, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		tpl.ID, tpl.WorkspaceID, tpl.Name, []byte(schema), tpl.CreatedAt)
	if err != nil {
		return errors.NewDatabaseInsertFailedError(err)
	}
	return nil
}

func (s *TemplateStore) Get(ctx context.Context, workspaceID, id string) (*models.FormTemplate, error) {
	var tpl models.FormTemplate
	var schema []byte

	err := s.db.QueryRowContext(ctx, `
		SELECT id, workspace_id, name, schema, created_at
		FROM form_templates
		WHERE workspace_id = $1 AND id = $2`, workspaceID, id).
		Scan(&tpl.ID, &tpl.WorkspaceID, &tpl.Name, &schema, &tpl.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFoundError(errors.ErrCodeTemplateNotFound, id)
	}
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("get template", err)
	}

	tpl.Schema = json.RawMessage(schema)
	return &tpl, nil
}

func (s *TemplateStore) List(ctx context.Context, workspaceID string) ([]models.FormTemplate, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, workspace_id, name, schema, created_at
		FROM form_templates
		WHERE workspace_id = $1
		ORDER BY created_at DESC`, workspaceID)
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("list templates", err)
	}
	defer rows.Close()

	out := []models.FormTemplate{}
	for rows.Next() {
		var tpl models.FormTemplate
		var schema []byte
		if err := rows.Scan(&tpl.ID, &tpl.WorkspaceID, &tpl.Name, &schema, &tpl.CreatedAt); err != nil {
			return nil, errors.NewQueryExecutionFailedError("scan template", err)
		}
		tpl.Schema = json.RawMessage(schema)
		out = append(out, tpl)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewQueryExecutionFailedError("iterate templates", err)
	}
	return out, nil
}
