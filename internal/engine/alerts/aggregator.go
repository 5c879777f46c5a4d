// internal/engine/alerts/aggregator.go
package alerts

import (
	"context"
	"fmt"
	"time"

	"opsdesk-engine/internal/common/logger"
	"opsdesk-engine/internal/common/metrics"
	"opsdesk-engine/internal/engine/bus"
	"opsdesk-engine/internal/models"
)

// InventorySource lists inventory items for a workspace.
type InventorySource interface {
	List(ctx context.Context, workspaceID string) ([]models.InventoryItem, error)
}

// SubmissionSource lists pending submissions submitted before a cutoff.
type SubmissionSource interface {
	ListPendingBefore(ctx context.Context, workspaceID string, cutoff time.Time) ([]models.FormSubmission, error)
}

// ConversationSource lists paused conversations idle since before a cutoff.
type ConversationSource interface {
	ListPausedBefore(ctx context.Context, workspaceID string, cutoff time.Time) ([]models.Conversation, error)
}

// AlertSource lists durable alert rows written by the executor.
type AlertSource interface {
	ListUnread(ctx context.Context, workspaceID string) ([]models.Alert, error)
}

// StatsSource provides the dashboard counters.
type StatsSource interface {
	Counts(ctx context.Context, workspaceID string) (models.DashboardMetrics, error)
}

type Config struct {
	PendingFormMaxAge         time.Duration
	StalledConversationMaxAge time.Duration
}

// Aggregator derives cross-domain alerts from current state. Snapshot is a
// read-only scan: it never mutates inventory, submissions, or conversations,
// so two consecutive scans with no writes in between produce the same set.
type Aggregator struct {
	cfg           Config
	inventory     InventorySource
	submissions   SubmissionSource
	conversations ConversationSource
	durable       AlertSource
	stats         StatsSource
	logger        logger.Logger
}

func New(cfg Config, inv InventorySource, subs SubmissionSource, convs ConversationSource, durable AlertSource, stats StatsSource, log logger.Logger) *Aggregator {
	if cfg.PendingFormMaxAge <= 0 {
		cfg.PendingFormMaxAge = 24 * time.Hour
	}
	if cfg.StalledConversationMaxAge <= 0 {
		cfg.StalledConversationMaxAge = 48 * time.Hour
	}
	return &Aggregator{
		cfg:           cfg,
		inventory:     inv,
		submissions:   subs,
		conversations: convs,
		durable:       durable,
		stats:         stats,
		logger:        log.WithFields(map[string]interface{}{"component": "alert-aggregator"}),
	}
}

// Snapshot scans the workspace and returns the dashboard metrics plus the
// current alert set. Derived alerts carry deterministic ids so repeated
// scans of unchanged state are identical.
func (a *Aggregator) Snapshot(ctx context.Context, workspaceID string) (*models.DashboardSnapshot, error) {
	now := time.Now().UTC()

	counts, err := a.stats.Counts(ctx, workspaceID)
	if err != nil {
		return nil, err
	}

	alerts := []models.Alert{}

	items, err := a.inventory.List(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	for _, item := range items {
		if !item.LowStock() {
			continue
		}
		alerts = append(alerts, derived(workspaceID, models.AlertLowStock, item.ID,
			fmt.Sprintf("'%s' is low on stock: %d left (threshold %d)", item.Name, item.Quantity, item.LowStockThreshold)))
	}

	pending, err := a.submissions.ListPendingBefore(ctx, workspaceID, now.Add(-a.cfg.PendingFormMaxAge))
	if err != nil {
		return nil, err
	}
	for _, sub := range pending {
		alerts = append(alerts, derived(workspaceID, models.AlertPendingFormsBacklog, sub.ID,
			fmt.Sprintf("Submission %s has been pending since %s", sub.ID, sub.SubmittedAt.Format(time.RFC3339))))
	}

	stalled, err := a.conversations.ListPausedBefore(ctx, workspaceID, now.Add(-a.cfg.StalledConversationMaxAge))
	if err != nil {
		return nil, err
	}
	for _, conv := range stalled {
		alerts = append(alerts, derived(workspaceID, models.AlertStalledConversation, conv.ID,
			fmt.Sprintf("Conversation %s is paused with no activity since %s", conv.ID, conv.LastMessageAt.Format(time.RFC3339))))
	}

	durable, err := a.durable.ListUnread(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	alerts = append(alerts, durable...)

	for _, alert := range alerts {
		metrics.AlertsEmitted.WithLabelValues(string(alert.Type)).Inc()
	}

	a.logger.Debug("alert scan complete", map[string]interface{}{
		"workspaceId": workspaceID,
		"alerts":      len(alerts),
	})

	return &models.DashboardSnapshot{
		Metrics: counts,
		Alerts:  alerts,
	}, nil
}

// Register subscribes the aggregator to the state-changing events so the
// affected workspace is rescanned as soon as they land, not only on the next
// ticker interval.
func (a *Aggregator) Register(b *bus.Bus) {
	b.Subscribe(bus.TypeInventoryChanged, "alert-aggregator", a.handleEvent)
	b.Subscribe(bus.TypeMessageReceived, "alert-aggregator", a.handleEvent)
}

func (a *Aggregator) handleEvent(ctx context.Context, evt bus.Event) error {
	_, err := a.Snapshot(ctx, evt.Workspace())
	return err
}

// Run rescans every workspace returned by list on the given interval until
// the context is cancelled.
func (a *Aggregator) Run(ctx context.Context, interval time.Duration, list func(context.Context) ([]string, error)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			workspaces, err := list(ctx)
			if err != nil {
				a.logger.Error("workspace listing failed", map[string]interface{}{"error": err.Error()})
				continue
			}
			for _, ws := range workspaces {
				if _, err := a.Snapshot(ctx, ws); err != nil {
					a.logger.Error("alert scan failed", map[string]interface{}{
						"workspaceId": ws,
						"error":       err.Error(),
					})
				}
			}
		}
	}
}

func derived(workspaceID string, alertType models.AlertType, refID, message string) models.Alert {
	return models.Alert{
		ID:          fmt.Sprintf("%s:%s", alertType, refID),
		WorkspaceID: workspaceID,
		Type:        alertType,
		Message:     message,
		RefID:       refID,
	}
}
