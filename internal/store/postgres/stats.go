// internal/store/postgres/stats.go
package postgres

import (
	"context"
	"database/sql"

	"opsdesk-engine/internal/common/errors"
	"opsdesk-engine/internal/models"
)

// StatsStore computes the dashboard headline counts in one round trip.
type StatsStore struct {
	db *sql.DB
}

func NewStatsStore(db *sql.DB) *StatsStore {
	return &StatsStore{db: db}
}

func (s *StatsStore) Counts(ctx context.Context, workspaceID string) (models.DashboardMetrics, error) {
	var m models.DashboardMetrics

	err := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM bookings WHERE workspace_id = $1),
			(SELECT COUNT(*) FROM contacts WHERE workspace_id = $1),
			(SELECT COUNT(*) FROM conversations WHERE workspace_id = $1 AND status = 'active'),
			(SELECT COUNT(*) FROM form_submissions WHERE workspace_id = $1 AND status = 'pending'),
			(SELECT COUNT(*) FROM inventory_items WHERE workspace_id = $1 AND quantity <= low_stock_threshold)`,
		workspaceID).
		Scan(&m.Bookings, &m.Contacts, &m.ActiveConversations, &m.PendingForms, &m.LowStockItems)
	if err != nil {
		return models.DashboardMetrics{}, errors.NewQueryExecutionFailedError("dashboard counts", err)
	}

	return m, nil
}

// Workspaces returns every workspace id that has any engine state. The
// aggregator ticker uses this to scope its periodic scans.
func (s *StatsStore) Workspaces(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT workspace_id FROM contacts
		UNION
		SELECT workspace_id FROM automation_rules
		UNION
		SELECT workspace_id FROM inventory_items`)
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("list workspaces", err)
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var ws string
		if err := rows.Scan(&ws); err != nil {
			return nil, errors.NewQueryExecutionFailedError("scan workspace id", err)
		}
		out = append(out, ws)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewQueryExecutionFailedError("iterate workspaces", err)
	}
	return out, nil
}
