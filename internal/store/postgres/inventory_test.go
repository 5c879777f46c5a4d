// internal/store/postgres/inventory_test.go
package postgres

import (
	"context"
	"regexp"
	"testing"
	"time"

	"opsdesk-engine/internal/common/errors"
	"opsdesk-engine/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var itemColumns = []string{"id", "workspace_id", "name", "quantity", "low_stock_threshold", "created_at"}

func TestInventoryStore_AdjustAppliesDelta(t *testing.T) {
	db, mock := setupMockDB(t)
	store := NewInventoryStore(db)

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE inventory_items")).
		WithArgs("ws-1", "item-1", -2).
		WillReturnRows(sqlmock.NewRows(itemColumns).
			AddRow("item-1", "ws-1", "Pipe wrench", 3, 5, time.Now()))

	item, err := store.Adjust(context.Background(), "ws-1", "item-1", -2)
	require.NoError(t, err)
	assert.Equal(t, 3, item.Quantity)
	assert.True(t, item.LowStock())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInventoryStore_AdjustRejectsNegativeResult(t *testing.T) {
	db, mock := setupMockDB(t)
	store := NewInventoryStore(db)

	// Guarded update matches no row, the follow-up read finds the item.
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE inventory_items")).
		WithArgs("ws-1", "item-1", -10).
		WillReturnRows(sqlmock.NewRows(itemColumns))
	mock.ExpectQuery(regexp.QuoteMeta("FROM inventory_items")).
		WithArgs("ws-1", "item-1").
		WillReturnRows(sqlmock.NewRows(itemColumns).
			AddRow("item-1", "ws-1", "Pipe wrench", 3, 5, time.Now()))

	_, err := store.Adjust(context.Background(), "ws-1", "item-1", -10)
	require.Error(t, err)

	stdErr, ok := errors.AsStandardError(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeInventoryNegative, stdErr.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInventoryStore_AdjustMissingItem(t *testing.T) {
	db, mock := setupMockDB(t)
	store := NewInventoryStore(db)

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE inventory_items")).
		WithArgs("ws-1", "item-missing", 1).
		WillReturnRows(sqlmock.NewRows(itemColumns))
	mock.ExpectQuery(regexp.QuoteMeta("FROM inventory_items")).
		WithArgs("ws-1", "item-missing").
		WillReturnRows(sqlmock.NewRows(itemColumns))

	_, err := store.Adjust(context.Background(), "ws-1", "item-missing", 1)
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestInventoryStore_CreateRejectsNegativeQuantity(t *testing.T) {
	db, _ := setupMockDB(t)
	store := NewInventoryStore(db)

	err := store.Create(context.Background(), &models.InventoryItem{
		ID: "item-1", WorkspaceID: "ws-1", Name: "Pipe wrench", Quantity: -1, LowStockThreshold: 5,
	})
	require.Error(t, err)

	stdErr, ok := errors.AsStandardError(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeInventoryNegative, stdErr.Code)
}
