// internal/models/forms.go
package models

import (
	"encoding/json"
	"time"
)

// FormTemplate defines a form a workspace publishes to its customers.
// Schema is a JSON Schema document used to validate submission data.
type FormTemplate struct {
	ID          string          `json:"id"`
	WorkspaceID string          `json:"workspace_id"`
	Name        string          `json:"name"`
	Schema      json.RawMessage `json:"schema,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

type SubmissionStatus string

const (
	SubmissionPending   SubmissionStatus = "pending"
	SubmissionCompleted SubmissionStatus = "completed"
	SubmissionArchived  SubmissionStatus = "archived"
)

// FormSubmission is immutable once accepted except for its status.
type FormSubmission struct {
	ID          string                 `json:"id"`
	WorkspaceID string                 `json:"workspace_id"`
	TemplateID  string                 `json:"template_id"`
	ContactID   string                 `json:"contact_id"`
	Data        map[string]interface{} `json:"data"`
	Status      SubmissionStatus       `json:"status"`
	SubmittedAt time.Time              `json:"submitted_at"`
}
