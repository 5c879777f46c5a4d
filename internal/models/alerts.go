// internal/models/alerts.go
package models

import "time"

type AlertType string

const (
	AlertLowStock            AlertType = "low_stock"
	AlertPendingFormsBacklog AlertType = "pending_forms_backlog"
	AlertStalledConversation AlertType = "stalled_conversation"
	AlertAutomationFailed    AlertType = "automation_failed"
)

// Alert is a dashboard notification. Most alert types are derived on each
// aggregator scan; automation_failed alerts are durable rows written by the
// executor when delivery retries are exhausted.
type Alert struct {
	ID          string    `json:"id,omitempty"`
	WorkspaceID string    `json:"workspace_id"`
	Type        AlertType `json:"type"`
	Message     string    `json:"message"`
	RefID       string    `json:"ref_id,omitempty"`
	Read        bool      `json:"is_read"`
	CreatedAt   time.Time `json:"created_at"`
}

// DashboardMetrics are the headline workspace counts.
type DashboardMetrics struct {
	Bookings            int `json:"bookings"`
	Contacts            int `json:"contacts"`
	ActiveConversations int `json:"active_conversations"`
	PendingForms        int `json:"pending_forms"`
	LowStockItems       int `json:"low_stock_items"`
}

// DashboardSnapshot is the read-only aggregation returned to the dashboard.
type DashboardSnapshot struct {
	Metrics DashboardMetrics `json:"metrics"`
	Alerts  []Alert          `json:"alerts"`
}

// OutcomeStatus enumerates what happened to a single automation action.
type OutcomeStatus string

const (
	OutcomeExecuted   OutcomeStatus = "executed"
	OutcomeSuppressed OutcomeStatus = "suppressed"
	OutcomeFailed     OutcomeStatus = "failed"
)

// ActionOutcome is the audit record written for every action attempt that
// passed the dedup gate.
type ActionOutcome struct {
	WorkspaceID    string        `json:"workspace_id"`
	RuleID         string        `json:"rule_id"`
	SubmissionID   string        `json:"submission_id"`
	ConversationID string        `json:"conversation_id,omitempty"`
	ActionType     ActionType    `json:"action_type"`
	Status         OutcomeStatus `json:"status"`
	Reason         string        `json:"reason,omitempty"`
	At             time.Time     `json:"at"`
}
