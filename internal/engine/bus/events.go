// internal/engine/bus/events.go
package bus

import "time"

// Event type names.
const (
	TypeFormSubmitted    = "form.submitted"
	TypeMessageReceived  = "message.received"
	TypeInventoryChanged = "inventory.changed"
	TypeBookingCreated   = "booking.created"
)

// Event is the contract every published domain event satisfies.
type Event interface {
	EventType() string
	Workspace() string
}

// FormSubmitted fires after a submission has been persisted.
type FormSubmitted struct {
	WorkspaceID  string                 `json:"workspace_id"`
	SubmissionID string                 `json:"submission_id"`
	TemplateID   string                 `json:"template_id"`
	ContactID    string                 `json:"contact_id"`
	Data         map[string]interface{} `json:"data"`
	SubmittedAt  time.Time              `json:"submitted_at"`
}

func (e FormSubmitted) EventType() string { return TypeFormSubmitted }
func (e FormSubmitted) Workspace() string { return e.WorkspaceID }

// MessageReceived fires after an inbound contact message has been appended.
type MessageReceived struct {
	WorkspaceID    string    `json:"workspace_id"`
	ConversationID string    `json:"conversation_id"`
	ContactID      string    `json:"contact_id"`
	MessageID      string    `json:"message_id"`
	ReceivedAt     time.Time `json:"received_at"`
}

func (e MessageReceived) EventType() string { return TypeMessageReceived }
func (e MessageReceived) Workspace() string { return e.WorkspaceID }

// BookingCreated fires after a booking has been persisted.
type BookingCreated struct {
	WorkspaceID string    `json:"workspace_id"`
	BookingID   string    `json:"booking_id"`
	ContactID   string    `json:"contact_id"`
	ServiceName string    `json:"service_name"`
	StartTime   time.Time `json:"start_time"`
}

func (e BookingCreated) EventType() string { return TypeBookingCreated }
func (e BookingCreated) Workspace() string { return e.WorkspaceID }

// InventoryChanged fires after an inventory quantity adjustment commits.
type InventoryChanged struct {
	WorkspaceID string    `json:"workspace_id"`
	ItemID      string    `json:"item_id"`
	Quantity    int       `json:"quantity"`
	ChangedAt   time.Time `json:"changed_at"`
}

func (e InventoryChanged) EventType() string { return TypeInventoryChanged }
func (e InventoryChanged) Workspace() string { return e.WorkspaceID }
