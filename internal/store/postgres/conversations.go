// internal/store/postgres/conversations.go
package postgres

import (
	"context"
	"database/sql"
	"time"

	"opsdesk-engine/internal/common/errors"
	"opsdesk-engine/internal/models"
)

// ConversationStore backs the conversation tracker. The tracker serializes
// state transitions per conversation, so these queries stay plain reads and
// writes without row locking.
type ConversationStore struct {
	db *sql.DB
}

func NewConversationStore(db *sql.DB) *ConversationStore {
	return &ConversationStore{db: db}
}

func (s *ConversationStore) Create(ctx context.Context, conv *models.Conversation) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO conversations (id, workspace_id, contact_id, status, last_message_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		conv.ID, conv.WorkspaceID, conv.ContactID, conv.Status, conv.LastMessageAt, conv.CreatedAt)
	if err != nil {
		return errors.NewDatabaseInsertFailedError(err)
	}
	return nil
}

func (s *ConversationStore) Get(ctx context.Context, id string) (*models.Conversation, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, workspace_id, contact_id, status, last_message_at, created_at
		FROM conversations
		WHERE id = $1`, id)
	return scanConversation(row, id)
}

func (s *ConversationStore) FindByContact(ctx context.Context, workspaceID, contactID string) (*models.Conversation, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, workspace_id, contact_id, status, last_message_at, created_at
		FROM conversations
		WHERE workspace_id = $1 AND contact_id = $2`, workspaceID, contactID)
	return scanConversation(row, contactID)
}

func (s *ConversationStore) UpdateStatus(ctx context.Context, id string, status models.ConversationStatus) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE conversations SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return errors.NewQueryExecutionFailedError("update conversation status", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.NewNotFoundError(errors.ErrCodeConversationNotFound, id)
	}
	return nil
}

func (s *ConversationStore) Touch(ctx context.Context, id string, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE conversations SET last_message_at = $2 WHERE id = $1`, id, at)
	if err != nil {
		return errors.NewQueryExecutionFailedError("touch conversation", err)
	}
	return nil
}

func (s *ConversationStore) List(ctx context.Context, workspaceID string) ([]models.Conversation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, workspace_id, contact_id, status, last_message_at, created_at
		FROM conversations
		WHERE workspace_id = $1
		ORDER BY last_message_at DESC`, workspaceID)
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("list conversations", err)
	}
	defer rows.Close()

	return collectConversations(rows)
}

// ListPausedBefore feeds the stalled_conversation alert scan.
func (s *ConversationStore) ListPausedBefore(ctx context.Context, workspaceID string, cutoff time.Time) ([]models.Conversation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, workspace_id, contact_id, status, last_message_at, created_at
		FROM conversations
		WHERE workspace_id = $1 AND status = 'paused' AND last_message_at < $2
		ORDER BY last_message_at ASC`, workspaceID, cutoff)
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("list paused conversations", err)
	}
	defer rows.Close()

	return collectConversations(rows)
}

func scanConversation(row *sql.Row, ref string) (*models.Conversation, error) {
	var conv models.Conversation
	err := row.Scan(&conv.ID, &conv.WorkspaceID, &conv.ContactID, &conv.Status, &conv.LastMessageAt, &conv.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFoundError(errors.ErrCodeConversationNotFound, ref)
	}
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("get conversation", err)
	}
	return &conv, nil
}

func collectConversations(rows *sql.Rows) ([]models.Conversation, error) {
	out := []models.Conversation{}
	for rows.Next() {
		var conv models.Conversation
		if err := rows.Scan(&conv.ID, &conv.WorkspaceID, &conv.ContactID, &conv.Status, &conv.LastMessageAt, &conv.CreatedAt); err != nil {
			return nil, errors.NewQueryExecutionFailedError("scan conversation", err)
		}
		out = append(out, conv)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewQueryExecutionFailedError("iterate conversations", err)
	}
	return out, nil
}

// MessageStore appends and lists conversation messages.
type MessageStore struct {
	db *sql.DB
}

func NewMessageStore(db *sql.DB) *MessageStore {
	return &MessageStore{db: db}
}

// Append inserts the message and reads back its insertion seq, which breaks
// ordering ties between messages sharing a created_at timestamp.
func (s *MessageStore) Append(ctx context.Context, msg *models.Message) error {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO messages (id, conversation_id, direction, channel, origin, content, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING seq`,
		msg.ID, msg.ConversationID, msg.Direction, msg.Channel, msg.Origin, msg.Content, msg.CreatedAt).
		Scan(&msg.Seq)
	if err != nil {
		return errors.NewDatabaseInsertFailedError(err)
	}
	return nil
}

func (s *MessageStore) ListByConversation(ctx context.Context, conversationID string) ([]models.Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, conversation_id, direction, channel, origin, content, created_at, seq
		FROM messages
		WHERE conversation_id = $1
		ORDER BY created_at ASC, seq ASC`, conversationID)
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("list messages", err)
	}
	defer rows.Close()

	out := []models.Message{}
	for rows.Next() {
		var msg models.Message
		if err := rows.Scan(&msg.ID, &msg.ConversationID, &msg.Direction, &msg.Channel, &msg.Origin, &msg.Content, &msg.CreatedAt, &msg.Seq); err != nil {
			return nil, errors.NewQueryExecutionFailedError("scan message", err)
		}
		out = append(out, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewQueryExecutionFailedError("iterate messages", err)
	}
	return out, nil
}
