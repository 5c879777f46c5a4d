// internal/store/postgres/alerts.go
package postgres

import (
	"context"
	"database/sql"
	"time"

	"opsdesk-engine/internal/common/errors"
	"opsdesk-engine/internal/models"

	"github.com/google/uuid"
)

// AlertStore holds durable alerts. Only automation_failed alerts are stored;
// the other alert types are derived on every aggregator scan.
type AlertStore struct {
	db *sql.DB
}

func NewAlertStore(db *sql.DB) *AlertStore {
	return &AlertStore{db: db}
}

func (s *AlertStore) Create(ctx context.Context, alert *models.Alert) error {
	if alert.ID == "" {
		alert.ID = uuid.New().String()
	}
	if alert.CreatedAt.IsZero() {
		alert.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO alerts (id, workspace_id, type, message, ref_id, is_read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		alert.ID, alert.WorkspaceID, alert.Type, alert.Message, alert.RefID, alert.Read, alert.CreatedAt)
	if err != nil {
		return errors.NewDatabaseInsertFailedError(err)
	}
	return nil
}

func (s *AlertStore) ListUnread(ctx context.Context, workspaceID string) ([]models.Alert, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, workspace_id, type, message, ref_id, is_read, created_at
		FROM alerts
		WHERE workspace_id = $1 AND is_read = false
		ORDER BY created_at DESC`, workspaceID)
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("list unread alerts", err)
	}
	defer rows.Close()

	out := []models.Alert{}
	for rows.Next() {
		var a models.Alert
		if err := rows.Scan(&a.ID, &a.WorkspaceID, &a.Type, &a.Message, &a.RefID, &a.Read, &a.CreatedAt); err != nil {
			return nil, errors.NewQueryExecutionFailedError("scan alert", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewQueryExecutionFailedError("iterate alerts", err)
	}
	return out, nil
}

func (s *AlertStore) MarkRead(ctx context.Context, workspaceID, id string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE alerts SET is_read = true
		WHERE workspace_id = $1 AND id = $2`, workspaceID, id)
	if err != nil {
		return errors.NewQueryExecutionFailedError("mark alert read", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.NewNotFoundError("ALERT_NOT_FOUND", id)
	}
	return nil
}
