// internal/models/crm.go
package models

import "time"

// Contact is a person a workspace communicates with.
type Contact struct {
	ID          string    `json:"id"`
	WorkspaceID string    `json:"workspace_id"`
	Name        string    `json:"name"`
	Email       string    `json:"email,omitempty"`
	Phone       string    `json:"phone,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type ConversationStatus string

const (
	ConversationActive ConversationStatus = "active"
	ConversationPaused ConversationStatus = "paused"
)

// Conversation is the per-contact message thread. One per (workspace, contact).
type Conversation struct {
	ID            string             `json:"id"`
	WorkspaceID   string             `json:"workspace_id"`
	ContactID     string             `json:"contact_id"`
	Status        ConversationStatus `json:"status"`
	LastMessageAt time.Time          `json:"last_message_at"`
	CreatedAt     time.Time          `json:"created_at"`
}

type MessageDirection string

const (
	DirectionInbound  MessageDirection = "inbound"
	DirectionOutbound MessageDirection = "outbound"
)

type MessageChannel string

const (
	ChannelEmail  MessageChannel = "email"
	ChannelSMS    MessageChannel = "sms"
	ChannelSystem MessageChannel = "system"
)

// MessageOrigin identifies who authored a message. Only staff-authored
// outbound messages pause a conversation.
type MessageOrigin string

const (
	OriginContact    MessageOrigin = "contact"
	OriginStaff      MessageOrigin = "staff"
	OriginAutomation MessageOrigin = "automation"
)

// Message is an append-only entry in a conversation. Threads are ordered by
// CreatedAt with Seq breaking timestamp ties; the store assigns Seq on append.
type Message struct {
	ID             string           `json:"id"`
	ConversationID string           `json:"conversation_id"`
	Direction      MessageDirection `json:"direction"`
	Channel        MessageChannel   `json:"channel"`
	Origin         MessageOrigin    `json:"origin"`
	Content        string           `json:"content"`
	CreatedAt      time.Time        `json:"created_at"`
	Seq            int64            `json:"seq"`
}
