// internal/store/postgres/bookings.go
package postgres

import (
	"context"
	"database/sql"

	"opsdesk-engine/internal/common/errors"
	"opsdesk-engine/internal/models"
)

type BookingStore struct {
	db *sql.DB
}

func NewBookingStore(db *sql.DB) *BookingStore {
	return &BookingStore{db: db}
}

func (s *BookingStore) Create(ctx context.Context, booking *models.Booking) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO bookings (id, workspace_id, contact_id, service_name, start_time, end_time, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		booking.ID, booking.WorkspaceID, booking.ContactID, booking.ServiceName,
		booking.StartTime, booking.EndTime, booking.Status, booking.CreatedAt)
	if err != nil {
		return errors.NewDatabaseInsertFailedError(err)
	}
	return nil
}

func (s *BookingStore) Get(ctx context.Context, workspaceID, id string) (*models.Booking, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, workspace_id, contact_id, service_name, start_time, end_time, status, created_at
		FROM bookings
		WHERE workspace_id = $1 AND id = $2`, workspaceID, id)

	var b models.Booking
	err := row.Scan(&b.ID, &b.WorkspaceID, &b.ContactID, &b.ServiceName, &b.StartTime, &b.EndTime, &b.Status, &b.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFoundError(errors.ErrCodeBookingNotFound, id)
	}
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("get booking", err)
	}
	return &b, nil
}

func (s *BookingStore) List(ctx context.Context, workspaceID string) ([]models.Booking, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, workspace_id, contact_id, service_name, start_time, end_time, status, created_at
		FROM bookings
		WHERE workspace_id = $1
		ORDER BY start_time ASC`, workspaceID)
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("list bookings", err)
	}
	defer rows.Close()

	out := []models.Booking{}
	for rows.Next() {
		var b models.Booking
		if err := rows.Scan(&b.ID, &b.WorkspaceID, &b.ContactID, &b.ServiceName, &b.StartTime, &b.EndTime, &b.Status, &b.CreatedAt); err != nil {
			return nil, errors.NewQueryExecutionFailedError("scan booking", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewQueryExecutionFailedError("iterate bookings", err)
	}
	return out, nil
}

func (s *BookingStore) UpdateStatus(ctx context.Context, workspaceID, id string, status models.BookingStatus) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE bookings SET status = $3 WHERE workspace_id = $1 AND id = $2`,
		workspaceID, id, status)
	if err != nil {
		return errors.NewQueryExecutionFailedError("update booking status", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.NewNotFoundError(errors.ErrCodeBookingNotFound, id)
	}
	return nil
}
