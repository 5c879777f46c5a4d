// internal/models/bookings.go
package models

import "time"

type BookingStatus string

const (
	BookingConfirmed BookingStatus = "confirmed"
	BookingCompleted BookingStatus = "completed"
	BookingNoShow    BookingStatus = "no_show"
	BookingCancelled BookingStatus = "cancelled"
)

// Booking is a scheduled appointment for a contact. The service is captured
// as a name and time window on the booking itself.
type Booking struct {
	ID          string        `json:"id"`
	WorkspaceID string        `json:"workspace_id"`
	ContactID   string        `json:"contact_id"`
	ServiceName string        `json:"service_name"`
	StartTime   time.Time     `json:"start_time"`
	EndTime     time.Time     `json:"end_time"`
	Status      BookingStatus `json:"status"`
	CreatedAt   time.Time     `json:"created_at"`
}
