// internal/api/bookings.go
package api

import (
	"context"
	"net/http"
	"time"

	"opsdesk-engine/internal/common/errors"
	"opsdesk-engine/internal/common/logger"
	"opsdesk-engine/internal/engine/bus"
	"opsdesk-engine/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type BookingStore interface {
	Create(ctx context.Context, booking *models.Booking) error
	List(ctx context.Context, workspaceID string) ([]models.Booking, error)
	UpdateStatus(ctx context.Context, workspaceID, id string, status models.BookingStatus) error
}

type ContactGetter interface {
	Get(ctx context.Context, workspaceID, id string) (*models.Contact, error)
}

type BookingHandler struct {
	bookings  BookingStore
	contacts  ContactGetter
	publisher EventPublisher
	errs      *errors.ErrorHandler
	logger    logger.Logger
}

func NewBookingHandler(bookings BookingStore, contacts ContactGetter, publisher EventPublisher, errs *errors.ErrorHandler, log logger.Logger) *BookingHandler {
	return &BookingHandler{
		bookings:  bookings,
		contacts:  contacts,
		publisher: publisher,
		errs:      errs,
		logger:    log,
	}
}

type createBookingRequest struct {
	ContactID       string `json:"contact_id" binding:"required"`
	ServiceName     string `json:"service_name" binding:"required"`
	StartTime       string `json:"start_time" binding:"required"`
	DurationMinutes int    `json:"duration_minutes"`
}

// CreateBooking schedules an appointment for an existing contact and
// publishes booking.created, which drives the confirmation automation.
func (h *BookingHandler) CreateBooking(c *gin.Context) {
	workspaceID := c.Param("workspaceId")
	ctx := c.Request.Context()

	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "INVALID_REQUEST", Message: err.Error()})
		return
	}

	start, err := time.Parse(time.RFC3339, req.StartTime)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "INVALID_REQUEST", Message: "start_time must be RFC3339"})
		return
	}
	if req.DurationMinutes <= 0 {
		req.DurationMinutes = 60
	}

	contact, err := h.contacts.Get(ctx, workspaceID, req.ContactID)
	if err != nil {
		respondError(c, h.errs, "create booking", err)
		return
	}

	booking := &models.Booking{
		ID:          uuid.New().String(),
		WorkspaceID: workspaceID,
		ContactID:   contact.ID,
		ServiceName: req.ServiceName,
		StartTime:   start,
		EndTime:     start.Add(time.Duration(req.DurationMinutes) * time.Minute),
		Status:      models.BookingConfirmed,
		CreatedAt:   time.Now().UTC(),
	}

	if err := h.bookings.Create(ctx, booking); err != nil {
		respondError(c, h.errs, "create booking", err)
		return
	}

	evt := bus.BookingCreated{
		WorkspaceID: workspaceID,
		BookingID:   booking.ID,
		ContactID:   booking.ContactID,
		ServiceName: booking.ServiceName,
		StartTime:   booking.StartTime,
	}
	if err := h.publisher.Publish(ctx, evt); err != nil {
		h.logger.Error("booking stored but event publish failed", map[string]interface{}{
			"bookingId": booking.ID,
			"error":     err.Error(),
		})
	}

	c.JSON(http.StatusCreated, booking)
}

func (h *BookingHandler) ListBookings(c *gin.Context) {
	bookings, err := h.bookings.List(c.Request.Context(), c.Param("workspaceId"))
	if err != nil {
		respondError(c, h.errs, "list bookings", err)
		return
	}
	c.JSON(http.StatusOK, bookings)
}

type updateBookingStatusRequest struct {
	Status models.BookingStatus `json:"status" binding:"required"`
}

func (h *BookingHandler) UpdateBookingStatus(c *gin.Context) {
	var req updateBookingStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "INVALID_REQUEST", Message: err.Error()})
		return
	}

	switch req.Status {
	case models.BookingConfirmed, models.BookingCompleted, models.BookingNoShow, models.BookingCancelled:
	default:
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "INVALID_REQUEST", Message: "unknown booking status"})
		return
	}

	if err := h.bookings.UpdateStatus(c.Request.Context(), c.Param("workspaceId"), c.Param("id"), req.Status); err != nil {
		respondError(c, h.errs, "update booking status", err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "updated"})
}

func RegisterBookingRoutes(r *gin.RouterGroup, handler *BookingHandler) {
	bookings := r.Group("/bookings")
	{
		bookings.GET("", handler.ListBookings)
		bookings.POST("", handler.CreateBooking)
		bookings.PUT(":id/status", handler.UpdateBookingStatus)
	}
}
