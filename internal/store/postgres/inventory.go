// internal/store/postgres/inventory.go
package postgres

import (
	"context"
	"database/sql"

	"opsdesk-engine/internal/common/errors"
	"opsdesk-engine/internal/models"
)

type InventoryStore struct {
	db *sql.DB
}

func NewInventoryStore(db *sql.DB) *InventoryStore {
	return &InventoryStore{db: db}
}

func (s *InventoryStore) Create(ctx context.Context, item *models.InventoryItem) error {
	if item.Quantity < 0 {
		return errors.NewInventoryNegativeError(item.ID, 0, item.Quantity)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO inventory_items (id, workspace_id, name, quantity, low_stock_threshold, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		item.ID, item.WorkspaceID, item.Name, item.Quantity, item.LowStockThreshold, item.CreatedAt)
	if err != nil {
		return errors.NewDatabaseInsertFailedError(err)
	}
	return nil
}

func (s *InventoryStore) Get(ctx context.Context, workspaceID, id string) (*models.InventoryItem, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, workspace_id, name, quantity, low_stock_threshold, created_at
		FROM inventory_items
		WHERE workspace_id = $1 AND id = $2`, workspaceID, id)
	return scanItem(row, id)
}

func (s *InventoryStore) List(ctx context.Context, workspaceID string) ([]models.InventoryItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, workspace_id, name, quantity, low_stock_threshold, created_at
		FROM inventory_items
		WHERE workspace_id = $1
		ORDER BY name ASC`, workspaceID)
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("list inventory", err)
	}
	defer rows.Close()

	out := []models.InventoryItem{}
	for rows.Next() {
		var item models.InventoryItem
		if err := rows.Scan(&item.ID, &item.WorkspaceID, &item.Name, &item.Quantity, &item.LowStockThreshold, &item.CreatedAt); err != nil {
			return nil, errors.NewQueryExecutionFailedError("scan inventory item", err)
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewQueryExecutionFailedError("iterate inventory", err)
	}
	return out, nil
}

// Adjust applies a signed delta. The guard lives in the WHERE clause, so a
// concurrent adjustment can never drive quantity below zero; a rejected
// adjustment leaves the row untouched.
func (s *InventoryStore) Adjust(ctx context.Context, workspaceID, id string, delta int) (*models.InventoryItem, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE inventory_items
		SET quantity = quantity + $3
		WHERE workspace_id = $1 AND id = $2 AND quantity + $3 >= 0
		RETURNING id, workspace_id, name, quantity, low_stock_threshold, created_at`,
		workspaceID, id, delta)

	item, err := scanItem(row, id)
	if err == nil {
		return item, nil
	}
	if !errors.IsNotFound(err) {
		return nil, err
	}

	// No row updated: either the item is missing or the delta would go
	// negative. Re-read to tell the two apart.
	current, getErr := s.Get(ctx, workspaceID, id)
	if getErr != nil {
		return nil, getErr
	}
	return nil, errors.NewInventoryNegativeError(id, current.Quantity, delta)
}

func scanItem(row *sql.Row, ref string) (*models.InventoryItem, error) {
	var item models.InventoryItem
	err := row.Scan(&item.ID, &item.WorkspaceID, &item.Name, &item.Quantity, &item.LowStockThreshold, &item.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFoundError(errors.ErrCodeItemNotFound, ref)
	}
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("get inventory item", err)
	}
	return &item, nil
}
