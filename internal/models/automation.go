// internal/models/automation.go
package models

import (
	"encoding/json"
	"time"

	"opsdesk-engine/internal/common/errors"
)

// ActionType enumerates the supported automation action kinds.
type ActionType string

const (
	ActionSendEmail ActionType = "send_email"
	ActionSendSMS   ActionType = "send_sms"
)

// RecipientContact is the sentinel recipient meaning "the submitting contact".
const RecipientContact = "contact"

// Action is the closed set of automation action variants. Unknown action
// types are rejected when a rule is created, never at execution time.
type Action interface {
	ActionType() ActionType
	// RecipientSpec is either RecipientContact or a literal address.
	RecipientSpec() string
}

// EmailAction sends an email through the messaging gateway.
type EmailAction struct {
	Recipient string `json:"recipient"`
	Subject   string `json:"subject"`
	Body      string `json:"body"`
}

func (a EmailAction) ActionType() ActionType { return ActionSendEmail }
func (a EmailAction) RecipientSpec() string  { return a.Recipient }

// SMSAction sends a text message through the messaging gateway.
type SMSAction struct {
	Recipient string `json:"recipient"`
	Body      string `json:"body"`
}

func (a SMSAction) ActionType() ActionType { return ActionSendSMS }
func (a SMSAction) RecipientSpec() string  { return a.Recipient }

// actionEnvelope is the wire form of an Action.
type actionEnvelope struct {
	Type      ActionType `json:"type"`
	Recipient string     `json:"recipient"`
	Subject   string     `json:"subject,omitempty"`
	Body      string     `json:"body"`
}

// DecodeAction parses a stored or submitted action document into its typed
// variant. Unknown types fail with UNKNOWN_ACTION_TYPE.
func DecodeAction(raw json.RawMessage) (Action, error) {
	var env actionEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, errors.NewUnknownActionTypeError("unparseable action document")
	}

	switch env.Type {
	case ActionSendEmail:
		return EmailAction{Recipient: env.Recipient, Subject: env.Subject, Body: env.Body}, nil
	case ActionSendSMS:
		return SMSAction{Recipient: env.Recipient, Body: env.Body}, nil
	default:
		return nil, errors.NewUnknownActionTypeError(string(env.Type))
	}
}

// EncodeAction serializes a typed action for storage.
func EncodeAction(a Action) (json.RawMessage, error) {
	env := actionEnvelope{Type: a.ActionType(), Recipient: a.RecipientSpec()}
	switch v := a.(type) {
	case EmailAction:
		env.Subject = v.Subject
		env.Body = v.Body
	case SMSAction:
		env.Body = v.Body
	default:
		return nil, errors.NewUnknownActionTypeError(string(a.ActionType()))
	}
	return json.Marshal(env)
}

// AutomationRule binds a trigger form template to an action.
type AutomationRule struct {
	ID                    string    `json:"id"`
	WorkspaceID           string    `json:"workspace_id"`
	Name                  string    `json:"name"`
	TriggerFormTemplateID string    `json:"trigger_form_template_id"`
	Action                Action    `json:"action"`
	Active                bool      `json:"is_active"`
	CreatedAt             time.Time `json:"created_at"`
}
