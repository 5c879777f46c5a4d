// internal/store/postgres/submissions.go
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"opsdesk-engine/internal/common/errors"
	"opsdesk-engine/internal/models"
)

type SubmissionStore struct {
	db *sql.DB
}

func NewSubmissionStore(db *sql.DB) *SubmissionStore {
	return &SubmissionStore{db: db}
}

func (s *SubmissionStore) Create(ctx context.Context, sub *models.FormSubmission) error {
	data, err := json.Marshal(sub.Data)
	if err != nil {
		return errors.NewDatabaseInsertFailedError(err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO form_submissions (id, workspace_id, template_id, contact_id, data, status, submitted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		sub.ID, sub.WorkspaceID, sub.TemplateID, sub.ContactID, data, sub.Status, sub.SubmittedAt)
	if err != nil {
		return errors.NewDatabaseInsertFailedError(err)
	}
	return nil
}

func (s *SubmissionStore) Get(ctx context.Context, workspaceID, id string) (*models.FormSubmission, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, workspace_id, template_id, contact_id, data, status, submitted_at
		FROM form_submissions
		WHERE workspace_id = $1 AND id = $2`, workspaceID, id)

	sub, err := scanSubmission(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFoundError(errors.ErrCodeSubmissionNotFound, id)
	}
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("get submission", err)
	}
	return sub, nil
}

func (s *SubmissionStore) UpdateStatus(ctx context.Context, workspaceID, id string, status models.SubmissionStatus) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE form_submissions SET status = $3
		WHERE workspace_id = $1 AND id = $2`, workspaceID, id, status)
	if err != nil {
		return errors.NewQueryExecutionFailedError("update submission status", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.NewNotFoundError(errors.ErrCodeSubmissionNotFound, id)
	}
	return nil
}

func (s *SubmissionStore) List(ctx context.Context, workspaceID string) ([]models.FormSubmission, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, workspace_id, template_id, contact_id, data, status, submitted_at
		FROM form_submissions
		WHERE workspace_id = $1
		ORDER BY submitted_at DESC`, workspaceID)
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("list submissions", err)
	}
	defer rows.Close()

	return collectSubmissions(rows)
}

// ListPendingBefore feeds the pending_forms_backlog alert scan.
func (s *SubmissionStore) ListPendingBefore(ctx context.Context, workspaceID string, cutoff time.Time) ([]models.FormSubmission, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, workspace_id, template_id, contact_id, data, status, submitted_at
		FROM form_submissions
		WHERE workspace_id = $1 AND status = 'pending' AND submitted_at < $2
		ORDER BY submitted_at ASC`, workspaceID, cutoff)
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("list pending submissions", err)
	}
	defer rows.Close()

	return collectSubmissions(rows)
}

func scanSubmission(row rowScanner) (*models.FormSubmission, error) {
	var sub models.FormSubmission
	var data []byte

	if err := row.Scan(&sub.ID, &sub.WorkspaceID, &sub.TemplateID, &sub.ContactID, &data, &sub.Status, &sub.SubmittedAt); err != nil {
		return nil, err
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &sub.Data); err != nil {
			return nil, err
		}
	}
	return &sub, nil
}

func collectSubmissions(rows *sql.Rows) ([]models.FormSubmission, error) {
	out := []models.FormSubmission{}
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, errors.NewQueryExecutionFailedError("scan submission", err)
		}
		out = append(out, *sub)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewQueryExecutionFailedError("iterate submissions", err)
	}
	return out, nil
}
