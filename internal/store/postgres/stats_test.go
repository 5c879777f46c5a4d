// internal/store/postgres/stats_test.go
package postgres

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatsStore_CountsIncludeBookings(t *testing.T) {
	db, mock := setupMockDB(t)
	store := NewStatsStore(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM bookings")).
		WithArgs("ws-1").
		WillReturnRows(sqlmock.NewRows([]string{"bookings", "contacts", "active", "pending", "low"}).
			AddRow(5, 12, 3, 7, 2))

	m, err := store.Counts(context.Background(), "ws-1")
	require.NoError(t, err)
	assert.Equal(t, 5, m.Bookings)
	assert.Equal(t, 12, m.Contacts)
	assert.Equal(t, 3, m.ActiveConversations)
	assert.Equal(t, 7, m.PendingForms)
	assert.Equal(t, 2, m.LowStockItems)
	assert.NoError(t, mock.ExpectationsWereMet())
}
