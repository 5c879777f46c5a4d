// internal/engine/alerts/aggregator_test.go
package alerts

import (
	"context"
	"sync"
	"testing"
	"time"

	"opsdesk-engine/internal/common/logger"
	"opsdesk-engine/internal/engine/bus"
	"opsdesk-engine/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeState struct {
	items   []models.InventoryItem
	pending []models.FormSubmission
	stalled []models.Conversation
	durable []models.Alert
	counts  models.DashboardMetrics

	mu    sync.Mutex
	scans int
}

func (f *fakeState) scanCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.scans
}

func (f *fakeState) List(ctx context.Context, workspaceID string) ([]models.InventoryItem, error) {
	return f.items, nil
}

func (f *fakeState) ListPendingBefore(ctx context.Context, workspaceID string, cutoff time.Time) ([]models.FormSubmission, error) {
	out := []models.FormSubmission{}
	for _, s := range f.pending {
		if s.SubmittedAt.Before(cutoff) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeState) ListPausedBefore(ctx context.Context, workspaceID string, cutoff time.Time) ([]models.Conversation, error) {
	out := []models.Conversation{}
	for _, c := range f.stalled {
		if c.LastMessageAt.Before(cutoff) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeState) ListUnread(ctx context.Context, workspaceID string) ([]models.Alert, error) {
	return f.durable, nil
}

func (f *fakeState) Counts(ctx context.Context, workspaceID string) (models.DashboardMetrics, error) {
	f.mu.Lock()
	f.scans++
	f.mu.Unlock()
	return f.counts, nil
}

func newAggregator(state *fakeState) *Aggregator {
	cfg := Config{PendingFormMaxAge: 24 * time.Hour, StalledConversationMaxAge: 48 * time.Hour}
	return New(cfg, state, state, state, state, state, logger.NewNoOpLogger())
}

func alertsOfType(alerts []models.Alert, t models.AlertType) []models.Alert {
	out := []models.Alert{}
	for _, a := range alerts {
		if a.Type == t {
			out = append(out, a)
		}
	}
	return out
}

func TestAggregator_LowStockThresholdIsInclusive(t *testing.T) {
	state := &fakeState{items: []models.InventoryItem{
		{ID: "item-1", Name: "Pipe wrench", Quantity: 3, LowStockThreshold: 5},
		{ID: "item-2", Name: "Sealant", Quantity: 5, LowStockThreshold: 5},
		{ID: "item-3", Name: "Gloves", Quantity: 6, LowStockThreshold: 5},
	}}

	snap, err := newAggregator(state).Snapshot(context.Background(), "ws-1")
	require.NoError(t, err)

	low := alertsOfType(snap.Alerts, models.AlertLowStock)
	require.Len(t, low, 2)
	assert.Equal(t, "item-1", low[0].RefID)
	assert.Equal(t, "item-2", low[1].RefID)
}

func TestAggregator_LowStockClearsAfterRestock(t *testing.T) {
	state := &fakeState{items: []models.InventoryItem{
		{ID: "item-1", Name: "Pipe wrench", Quantity: 3, LowStockThreshold: 5},
	}}
	agg := newAggregator(state)

	snap, err := agg.Snapshot(context.Background(), "ws-1")
	require.NoError(t, err)
	require.Len(t, alertsOfType(snap.Alerts, models.AlertLowStock), 1)

	state.items[0].Quantity = 6

	snap, err = agg.Snapshot(context.Background(), "ws-1")
	require.NoError(t, err)
	assert.Empty(t, alertsOfType(snap.Alerts, models.AlertLowStock))
}

func TestAggregator_PendingBacklogAndStalledConversations(t *testing.T) {
	old := time.Now().UTC().Add(-72 * time.Hour)
	recent := time.Now().UTC().Add(-time.Hour)

	state := &fakeState{
		pending: []models.FormSubmission{
			{ID: "sub-old", Status: models.SubmissionPending, SubmittedAt: old},
			{ID: "sub-new", Status: models.SubmissionPending, SubmittedAt: recent},
		},
		stalled: []models.Conversation{
			{ID: "conv-old", Status: models.ConversationPaused, LastMessageAt: old},
			{ID: "conv-new", Status: models.ConversationPaused, LastMessageAt: recent},
		},
	}

	snap, err := newAggregator(state).Snapshot(context.Background(), "ws-1")
	require.NoError(t, err)

	backlog := alertsOfType(snap.Alerts, models.AlertPendingFormsBacklog)
	require.Len(t, backlog, 1)
	assert.Equal(t, "sub-old", backlog[0].RefID)

	stalledAlerts := alertsOfType(snap.Alerts, models.AlertStalledConversation)
	require.Len(t, stalledAlerts, 1)
	assert.Equal(t, "conv-old", stalledAlerts[0].RefID)
}

func TestAggregator_IncludesDurableFailureAlerts(t *testing.T) {
	state := &fakeState{durable: []models.Alert{
		{ID: "alert-1", Type: models.AlertAutomationFailed, RefID: "rule-9", Message: "Automation 'welcome email' failed"},
	}}

	snap, err := newAggregator(state).Snapshot(context.Background(), "ws-1")
	require.NoError(t, err)

	failed := alertsOfType(snap.Alerts, models.AlertAutomationFailed)
	require.Len(t, failed, 1)
	assert.Equal(t, "alert-1", failed[0].ID)
}

func TestAggregator_RescanOfUnchangedStateIsIdentical(t *testing.T) {
	state := &fakeState{
		items: []models.InventoryItem{
			{ID: "item-1", Name: "Pipe wrench", Quantity: 1, LowStockThreshold: 5},
		},
		stalled: []models.Conversation{
			{ID: "conv-1", Status: models.ConversationPaused, LastMessageAt: time.Now().UTC().Add(-100 * time.Hour)},
		},
		counts: models.DashboardMetrics{Contacts: 4, ActiveConversations: 2, PendingForms: 1, LowStockItems: 1},
	}
	agg := newAggregator(state)

	first, err := agg.Snapshot(context.Background(), "ws-1")
	require.NoError(t, err)
	second, err := agg.Snapshot(context.Background(), "ws-1")
	require.NoError(t, err)

	assert.Equal(t, first.Alerts, second.Alerts)
	assert.Equal(t, first.Metrics, second.Metrics)
}

func TestAggregator_RescansWorkspaceOnBusEvents(t *testing.T) {
	state := &fakeState{}
	agg := newAggregator(state)

	b := bus.New(logger.NewNoOpLogger(), 8)
	agg.Register(b)

	ctx := context.Background()
	require.NoError(t, b.Publish(ctx, bus.InventoryChanged{WorkspaceID: "ws-1", ItemID: "item-1", Quantity: 2}))
	require.NoError(t, b.Publish(ctx, bus.MessageReceived{WorkspaceID: "ws-1", ConversationID: "conv-1"}))

	// Close drains the queues, so both events have been dispatched.
	b.Close()

	assert.Equal(t, 2, state.scanCount())
}

func TestAggregator_PassesThroughDashboardCounts(t *testing.T) {
	state := &fakeState{counts: models.DashboardMetrics{
		Contacts: 12, ActiveConversations: 3, PendingForms: 7, LowStockItems: 2,
	}}

	snap, err := newAggregator(state).Snapshot(context.Background(), "ws-1")
	require.NoError(t, err)

	assert.Equal(t, 12, snap.Metrics.Contacts)
	assert.Equal(t, 7, snap.Metrics.PendingForms)
}
