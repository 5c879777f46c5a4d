// internal/store/postgres/contacts.go
package postgres

import (
	"context"
	"database/sql"

	"opsdesk-engine/internal/common/errors"
	"opsdesk-engine/internal/models"
)

type ContactStore struct {
	db *sql.DB
}

func NewContactStore(db *sql.DB) *ContactStore {
	return &ContactStore{db: db}
}

func (s *ContactStore) Create(ctx context.Context, contact *models.Contact) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO contacts (id, workspace_id, name, email, phone, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		contact.ID, contact.WorkspaceID, contact.Name, contact.Email, contact.Phone, contact.CreatedAt)
	if err != nil {
		return errors.NewDatabaseInsertFailedError(err)
	}
	return nil
}

func (s *ContactStore) Get(ctx context.Context, workspaceID, id string) (*models.Contact, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, workspace_id, name, email, phone, created_at
		FROM contacts
		WHERE workspace_id = $1 AND id = $2`, workspaceID, id)
	return scanContact(row, id)
}

// FindByEmail matches the submission's contact email so repeat submitters
// reuse their existing contact instead of creating a duplicate.
func (s *ContactStore) FindByEmail(ctx context.Context, workspaceID, email string) (*models.Contact, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, workspace_id, name, email, phone, created_at
		FROM contacts
		WHERE workspace_id = $1 AND email = $2`, workspaceID, email)
	return scanContact(row, email)
}

func (s *ContactStore) List(ctx context.Context, workspaceID string) ([]models.Contact, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, workspace_id, name, email, phone, created_at
		FROM contacts
		WHERE workspace_id = $1
		ORDER BY created_at DESC`, workspaceID)
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("list contacts", err)
	}
	defer rows.Close()

	out := []models.Contact{}
	for rows.Next() {
		var c models.Contact
		if err := rows.Scan(&c.ID, &c.WorkspaceID, &c.Name, &c.Email, &c.Phone, &c.CreatedAt); err != nil {
			return nil, errors.NewQueryExecutionFailedError("scan contact", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewQueryExecutionFailedError("iterate contacts", err)
	}
	return out, nil
}

func scanContact(row *sql.Row, ref string) (*models.Contact, error) {
	var c models.Contact
	err := row.Scan(&c.ID, &c.WorkspaceID, &c.Name, &c.Email, &c.Phone, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFoundError(errors.ErrCodeContactNotFound, ref)
	}
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("get contact", err)
	}
	return &c, nil
}
