// internal/store/postgres/conversations_test.go
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

var convColumns = []string{"id", "workspace_id", "contact_id", "status", "last_message_at", "created_at"}

func TestConversationStore_FindByContact(t *testing.T) {
	db, mock := setupMockDB(t)
	store := NewConversationStore(db)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta("FROM conversations")).
		WithArgs("ws-1", "contact-1").
		WillReturnRows(sqlmock.NewRows(convColumns).
			AddRow("conv-1", "ws-1", "contact-1", "active", now, now))

	conv, err := store.FindByContact(context.Background(), "ws-1", "contact-1")
	require.NoError(t, err)
	assert.Equal(t, "conv-1", conv.ID)
	assert.Equal(t, models.ConversationActive, conv.Status)
}

func TestConversationStore_FindByContactNotFound(t *testing.T) {
	db, mock := setupMockDB(t)
	store := NewConversationStore(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM conversations")).
		WithArgs("ws-1", "contact-new").
		WillReturnRows(sqlmock.NewRows(convColumns))

	_, err := store.FindByContact(context.Background(), "ws-1", "contact-new")
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestConversationStore_ListPausedBeforeFiltersByCutoff(t *testing.T) {
	db, mock := setupMockDB(t)
	store := NewConversationStore(db)
	cutoff := time.Now().UTC().Add(-48 * time.Hour)
	stale := cutoff.Add(-24 * time.Hour)

	mock.ExpectQuery(regexp.QuoteMeta("status = 'paused' AND last_message_at < $2")).
		WithArgs("ws-1", cutoff).
		WillReturnRows(sqlmock.NewRows(convColumns).
			AddRow("conv-1", "ws-1", "contact-1", "paused", stale, stale))

	convs, err := store.ListPausedBefore(context.Background(), "ws-1", cutoff)
	require.NoError(t, err)
	require.Len(t, convs, 1)
	assert.Equal(t, models.ConversationPaused, convs[0].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMessageStore_AppendAssignsSeq(t *testing.T) {
	db, mock := setupMockDB(t)
	store := NewMessageStore(db)
	now := time.Now().UTC()

	msg := &models.Message{
		ID:             "msg-1",
		ConversationID: "conv-1",
		Direction:      models.DirectionOutbound,
		Channel:        models.ChannelEmail,
		Origin:         models.OriginAutomation,
		Content:        "Thanks for reaching out",
		CreatedAt:      now,
	}

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO messages")).
		WithArgs(msg.ID, msg.ConversationID, msg.Direction, msg.Channel, msg.Origin, msg.Content, msg.CreatedAt).
		WillReturnRows(sqlmock.NewRows([]string{"seq"}).AddRow(int64(42)))

	require.NoError(t, store.Append(context.Background(), msg))
	assert.Equal(t, int64(42), msg.Seq)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMessageStore_ListBreaksTimestampTiesBySeq(t *testing.T) {
	db, mock := setupMockDB(t)
	store := NewMessageStore(db)
	now := time.Now().UTC()

	msgColumns := []string{"id", "conversation_id", "direction", "channel", "origin", "content", "created_at", "seq"}

	// Two automation sends landing in the same microsecond come back in
	// insertion order.
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY created_at ASC, seq ASC")).
		WithArgs("conv-1").
		WillReturnRows(sqlmock.NewRows(msgColumns).
			AddRow("msg-1", "conv-1", "outbound", "email", "automation", "first", now, int64(7)).
			AddRow("msg-2", "conv-1", "outbound", "sms", "automation", "second", now, int64(8)))

	msgs, err := store.ListByConversation(context.Background(), "conv-1")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "first", msgs[0].Content)
	assert.Equal(t, "second", msgs[1].Content)
	assert.Less(t, msgs[0].Seq, msgs[1].Seq)
	assert.NoError(t, mock.ExpectationsWereMet())
}
