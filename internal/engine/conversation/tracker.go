// internal/engine/conversation/tracker.go
package conversation

import (
	"context"
	"sync"
	"time"

	"opsdesk-engine/internal/common/errors"
	"opsdesk-engine/internal/common/logger"
	"opsdesk-engine/internal/models"

	"github.com/google/uuid"
)

// Store persists conversations.
type Store interface {
	Get(ctx context.Context, id string) (*models.Conversation, error)
	FindByContact(ctx context.Context, workspaceID, contactID string) (*models.Conversation, error)
	Create(ctx context.Context, conv *models.Conversation) error
	UpdateStatus(ctx context.Context, id string, status models.ConversationStatus) error
	Touch(ctx context.Context, id string, at time.Time) error
}

// MessageStore appends messages to a conversation.
type MessageStore interface {
	Append(ctx context.Context, msg *models.Message) error
}

// Tracker owns the conversation state machine. Every state transition and
// append runs inside a per-conversation critical section, so a staff reply
// and an automation send can never interleave their check-then-act steps.
type Tracker struct {
	conversations Store
	messages      MessageStore
	logger        logger.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewTracker(conversations Store, messages MessageStore, log logger.Logger) *Tracker {
	return &Tracker{
		conversations: conversations,
		messages:      messages,
		logger:        log.WithFields(map[string]interface{}{"component": "conversation-tracker"}),
		locks:         make(map[string]*sync.Mutex),
	}
}

func (t *Tracker) lockFor(convID string) *sync.Mutex {
	t.mu.Lock()
	defer t.mu.Unlock()

	l, ok := t.locks[convID]
	if !ok {
		l = &sync.Mutex{}
		t.locks[convID] = l
	}
	return l
}

// ResolveOrCreate returns the conversation for (workspace, contact),
// creating an active one on first touch. Creation races are resolved by
// re-reading after a failed insert.
func (t *Tracker) ResolveOrCreate(ctx context.Context, workspaceID, contactID string) (*models.Conversation, error) {
	conv, err := t.conversations.FindByContact(ctx, workspaceID, contactID)
	if err == nil {
		return conv, nil
	}
	if !errors.IsNotFound(err) {
		return nil, err
	}

	conv = &models.Conversation{
		ID:          uuid.New().String(),
		WorkspaceID: workspaceID,
		ContactID:   contactID,
		Status:      models.ConversationActive,
		CreatedAt:   time.Now().UTC(),
	}
	if createErr := t.conversations.Create(ctx, conv); createErr != nil {
		if existing, findErr := t.conversations.FindByContact(ctx, workspaceID, contactID); findErr == nil {
			return existing, nil
		}
		return nil, createErr
	}

	t.logger.Info("conversation created", map[string]interface{}{
		"conversationId": conv.ID,
		"workspaceId":    workspaceID,
		"contactId":      contactID,
	})

	return conv, nil
}

// AppendMessage appends atomically with the pause transition: a
// staff-authored outbound message moves an active conversation to paused in
// the same critical section as the append. Automation and inbound messages
// never change status.
func (t *Tracker) AppendMessage(ctx context.Context, msg *models.Message) error {
	l := t.lockFor(msg.ConversationID)
	l.Lock()
	defer l.Unlock()

	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}

	if err := t.messages.Append(ctx, msg); err != nil {
		return err
	}
	if err := t.conversations.Touch(ctx, msg.ConversationID, msg.CreatedAt); err != nil {
		return err
	}

	if msg.Direction == models.DirectionOutbound && msg.Origin == models.OriginStaff {
		conv, err := t.conversations.Get(ctx, msg.ConversationID)
		if err != nil {
			return err
		}
		if conv.Status == models.ConversationActive {
			if err := t.conversations.UpdateStatus(ctx, msg.ConversationID, models.ConversationPaused); err != nil {
				return err
			}
			t.logger.Info("conversation paused by staff reply", map[string]interface{}{
				"conversationId": msg.ConversationID,
			})
		}
	}

	return nil
}

// Gate reports whether the conversation accepts automation sends right now.
// It takes the conversation lock so a staff append that completed before
// this check is always observed.
func (t *Tracker) Gate(ctx context.Context, convID string) (bool, error) {
	l := t.lockFor(convID)
	l.Lock()
	defer l.Unlock()

	conv, err := t.conversations.Get(ctx, convID)
	if err != nil {
		return false, err
	}
	return conv.Status == models.ConversationActive, nil
}

// Status returns the current conversation status.
func (t *Tracker) Status(ctx context.Context, convID string) (models.ConversationStatus, error) {
	conv, err := t.conversations.Get(ctx, convID)
	if err != nil {
		return "", err
	}
	return conv.Status, nil
}

// Resume is the explicit staff action moving paused back to active. New
// inbound messages do not resume a conversation. Resuming an already
// active conversation is a no-op.
func (t *Tracker) Resume(ctx context.Context, convID string) error {
	l := t.lockFor(convID)
	l.Lock()
	defer l.Unlock()

	conv, err := t.conversations.Get(ctx, convID)
	if err != nil {
		return err
	}
	if conv.Status == models.ConversationActive {
		return nil
	}

	if err := t.conversations.UpdateStatus(ctx, convID, models.ConversationActive); err != nil {
		return err
	}

	t.logger.Info("conversation resumed", map[string]interface{}{
		"conversationId": convID,
	})
	return nil
}
