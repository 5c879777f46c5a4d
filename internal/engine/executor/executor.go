// internal/engine/executor/executor.go
package executor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"opsdesk-engine/internal/common/errors"
	"opsdesk-engine/internal/common/logger"
	"opsdesk-engine/internal/common/metrics"
	"opsdesk-engine/internal/engine/bus"
	"opsdesk-engine/internal/gateway"
	"opsdesk-engine/internal/models"
)

// Suppression reasons recorded on audit outcomes.
const (
	ReasonConversationPaused = "conversation_paused"
	ReasonRecipientMissing   = "recipient_missing"
)

type Matcher interface {
	Match(ctx context.Context, workspaceID, templateID string) ([]models.AutomationRule, error)
}

// DedupStore claims the execution slot for a (rule, submission) pair.
type DedupStore interface {
	Acquire(ctx context.Context, workspaceID, ruleID, submissionID string) (bool, error)
}

type ContactSource interface {
	Get(ctx context.Context, workspaceID, id string) (*models.Contact, error)
}

// Tracker is the conversation-facing surface the executor needs.
type Tracker interface {
	ResolveOrCreate(ctx context.Context, workspaceID, contactID string) (*models.Conversation, error)
	Gate(ctx context.Context, convID string) (bool, error)
	Status(ctx context.Context, convID string) (models.ConversationStatus, error)
	AppendMessage(ctx context.Context, msg *models.Message) error
}

// AlertSink persists durable alerts.
type AlertSink interface {
	Create(ctx context.Context, alert *models.Alert) error
}

// AuditSink records action outcomes.
type AuditSink interface {
	Record(ctx context.Context, outcome models.ActionOutcome) error
}

type Config struct {
	MaxSendAttempts int
	InitialBackoff  time.Duration
}

// Executor turns matched rules into gateway sends. Guarantees: at most one
// attempt per (rule, submission), suppression while the conversation is
// paused, and one rule's failure never blocks another's.
type Executor struct {
	cfg      Config
	matcher  Matcher
	dedup    DedupStore
	contacts ContactSource
	tracker  Tracker
	gateway  gateway.Gateway
	alerts   AlertSink
	audit    AuditSink
	logger   logger.Logger
}

func New(cfg Config, m Matcher, d DedupStore, contacts ContactSource, tracker Tracker, gw gateway.Gateway, alerts AlertSink, audit AuditSink, log logger.Logger) *Executor {
	if cfg.MaxSendAttempts <= 0 {
		cfg.MaxSendAttempts = 3
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = 500 * time.Millisecond
	}
	return &Executor{
		cfg:      cfg,
		matcher:  m,
		dedup:    d,
		contacts: contacts,
		tracker:  tracker,
		gateway:  gw,
		alerts:   alerts,
		audit:    audit,
		logger:   log.WithFields(map[string]interface{}{"component": "executor"}),
	}
}

// Register subscribes the executor on the bus.
func (e *Executor) Register(b *bus.Bus) {
	b.Subscribe(bus.TypeFormSubmitted, "executor", e.HandleFormSubmitted)
	b.Subscribe(bus.TypeBookingCreated, "booking-confirmation", e.HandleBookingCreated)
}

// HandleFormSubmitted fans a submission out to every matched rule. Rules
// run independently; a failing rule is logged and the rest still fire.
func (e *Executor) HandleFormSubmitted(ctx context.Context, evt bus.Event) error {
	submitted, ok := evt.(bus.FormSubmitted)
	if !ok {
		return fmt.Errorf("unexpected event payload for %s", evt.EventType())
	}

	rules, err := e.matcher.Match(ctx, submitted.WorkspaceID, submitted.TemplateID)
	if err != nil {
		return err
	}

	for _, rule := range rules {
		if err := e.runRule(ctx, rule, submitted); err != nil {
			e.logger.Error("rule execution failed", map[string]interface{}{
				"ruleId":       rule.ID,
				"submissionId": submitted.SubmissionID,
				"error":        err.Error(),
			})
		}
	}

	return nil
}

// HandleBookingCreated drops a confirmation receipt into the contact's
// conversation thread. The receipt is an automation message, so the pause
// gate applies to it like to any other automation send.
func (e *Executor) HandleBookingCreated(ctx context.Context, evt bus.Event) error {
	created, ok := evt.(bus.BookingCreated)
	if !ok {
		return fmt.Errorf("unexpected event payload for %s", evt.EventType())
	}

	conv, err := e.tracker.ResolveOrCreate(ctx, created.WorkspaceID, created.ContactID)
	if err != nil {
		return err
	}

	active, err := e.tracker.Gate(ctx, conv.ID)
	if err != nil {
		return err
	}
	if !active {
		metrics.ActionsSuppressed.WithLabelValues(ReasonConversationPaused).Inc()
		e.logger.Info("booking confirmation suppressed, conversation paused", map[string]interface{}{
			"bookingId":      created.BookingID,
			"conversationId": conv.ID,
		})
		return nil
	}

	msg := &models.Message{
		ConversationID: conv.ID,
		Direction:      models.DirectionOutbound,
		Channel:        models.ChannelSystem,
		Origin:         models.OriginAutomation,
		Content:        fmt.Sprintf("Booking confirmed for %s at %s.", created.ServiceName, created.StartTime.Format(time.RFC1123)),
	}
	if err := e.tracker.AppendMessage(ctx, msg); err != nil {
		return err
	}

	e.logger.Info("booking confirmation sent", map[string]interface{}{
		"bookingId":      created.BookingID,
		"conversationId": conv.ID,
	})
	return nil
}

func (e *Executor) runRule(ctx context.Context, rule models.AutomationRule, evt bus.FormSubmitted) error {
	won, err := e.dedup.Acquire(ctx, evt.WorkspaceID, rule.ID, evt.SubmissionID)
	if err != nil {
		return err
	}
	if !won {
		// Already attempted for this (rule, submission); redelivery is a no-op.
		return nil
	}

	contact, err := e.contacts.Get(ctx, evt.WorkspaceID, evt.ContactID)
	if err != nil {
		return err
	}

	conv, err := e.tracker.ResolveOrCreate(ctx, evt.WorkspaceID, evt.ContactID)
	if err != nil {
		return err
	}

	channel, address, addrErr := resolveRecipient(rule.Action, contact)
	if addrErr != nil {
		metrics.ActionsSuppressed.WithLabelValues(ReasonRecipientMissing).Inc()
		e.logger.Warn("action suppressed, no deliverable recipient", map[string]interface{}{
			"ruleId":    rule.ID,
			"contactId": contact.ID,
		})
		e.recordOutcome(ctx, rule, evt, conv.ID, models.OutcomeSuppressed, ReasonRecipientMissing)
		return nil
	}

	active, err := e.tracker.Gate(ctx, conv.ID)
	if err != nil {
		return err
	}
	if !active {
		metrics.ActionsSuppressed.WithLabelValues(ReasonConversationPaused).Inc()
		e.logger.Info("action suppressed, conversation paused", map[string]interface{}{
			"ruleId":         rule.ID,
			"conversationId": conv.ID,
			"submissionId":   evt.SubmissionID,
		})
		e.recordOutcome(ctx, rule, evt, conv.ID, models.OutcomeSuppressed, ReasonConversationPaused)
		return nil
	}

	subject, body := renderAction(rule.Action, contact, evt.Data)

	// The gateway call runs outside the conversation critical section so a
	// slow provider cannot block staff replies.
	sendErr := e.sendWithRetry(ctx, channel, func(ctx context.Context) error {
		var err error
		switch rule.Action.ActionType() {
		case models.ActionSendEmail:
			_, err = e.gateway.SendEmail(ctx, address, subject, body)
		case models.ActionSendSMS:
			_, err = e.gateway.SendSMS(ctx, address, body)
		default:
			return errors.NewUnknownActionTypeError(string(rule.Action.ActionType()))
		}
		return err
	})

	if sendErr != nil {
		metrics.ActionsFailed.WithLabelValues(string(rule.Action.ActionType())).Inc()
		e.recordOutcome(ctx, rule, evt, conv.ID, models.OutcomeFailed, sendErr.Error())
		e.raiseFailureAlert(ctx, rule, evt, sendErr)
		return errors.NewDeliveryFailedError(string(channel), sendErr)
	}

	if status, statusErr := e.tracker.Status(ctx, conv.ID); statusErr == nil && status == models.ConversationPaused {
		// Staff paused while the send was in flight. The message left the
		// building, so record it anyway.
		e.logger.Warn("conversation paused during delivery", map[string]interface{}{
			"ruleId":         rule.ID,
			"conversationId": conv.ID,
		})
	}

	msg := &models.Message{
		ConversationID: conv.ID,
		Direction:      models.DirectionOutbound,
		Channel:        channel,
		Origin:         models.OriginAutomation,
		Content:        body,
	}
	if err := e.tracker.AppendMessage(ctx, msg); err != nil {
		return err
	}

	metrics.ActionsExecuted.WithLabelValues(string(rule.Action.ActionType())).Inc()
	e.recordOutcome(ctx, rule, evt, conv.ID, models.OutcomeExecuted, "")

	e.logger.Info("automation action executed", map[string]interface{}{
		"ruleId":         rule.ID,
		"submissionId":   evt.SubmissionID,
		"conversationId": conv.ID,
		"channel":        string(channel),
	})

	return nil
}

func (e *Executor) sendWithRetry(ctx context.Context, channel models.MessageChannel, op func(context.Context) error) error {
	var err error
	delay := e.cfg.InitialBackoff

	for attempt := 1; attempt <= e.cfg.MaxSendAttempts; attempt++ {
		err = op(ctx)
		if err == nil {
			return nil
		}

		// A disabled channel or bad configuration will not improve with
		// another attempt.
		if stdErr, ok := errors.AsStandardError(err); ok && !errors.IsRetryableErrorCode(stdErr.Code) {
			return err
		}

		if attempt < e.cfg.MaxSendAttempts {
			metrics.GatewayRetries.WithLabelValues(string(channel)).Inc()
			e.logger.Warn("gateway send failed, retrying", map[string]interface{}{
				"channel":     string(channel),
				"attempt":     attempt,
				"maxAttempts": e.cfg.MaxSendAttempts,
				"nextRetryIn": delay.String(),
				"error":       err.Error(),
			})

			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
			delay *= 2 // Exponential backoff
		}
	}

	return err
}

func (e *Executor) recordOutcome(ctx context.Context, rule models.AutomationRule, evt bus.FormSubmitted, convID string, status models.OutcomeStatus, reason string) {
	outcome := models.ActionOutcome{
		WorkspaceID:    evt.WorkspaceID,
		RuleID:         rule.ID,
		SubmissionID:   evt.SubmissionID,
		ConversationID: convID,
		ActionType:     rule.Action.ActionType(),
		Status:         status,
		Reason:         reason,
		At:             time.Now().UTC(),
	}
	if err := e.audit.Record(ctx, outcome); err != nil {
		e.logger.Error("audit write failed", map[string]interface{}{
			"ruleId": rule.ID,
			"error":  err.Error(),
		})
	}
}

func (e *Executor) raiseFailureAlert(ctx context.Context, rule models.AutomationRule, evt bus.FormSubmitted, sendErr error) {
	alert := &models.Alert{
		WorkspaceID: evt.WorkspaceID,
		Type:        models.AlertAutomationFailed,
		Message:     fmt.Sprintf("Automation '%s' failed after %d delivery attempts: %v", rule.Name, e.cfg.MaxSendAttempts, sendErr),
		RefID:       rule.ID,
		CreatedAt:   time.Now().UTC(),
	}
	if err := e.alerts.Create(ctx, alert); err != nil {
		e.logger.Error("failed to persist automation_failed alert", map[string]interface{}{
			"ruleId": rule.ID,
			"error":  err.Error(),
		})
		return
	}
	metrics.AlertsEmitted.WithLabelValues(string(models.AlertAutomationFailed)).Inc()
}

// resolveRecipient maps the action's recipient spec onto a deliverable
// address. The "contact" sentinel resolves against the submitting contact.
func resolveRecipient(action models.Action, contact *models.Contact) (models.MessageChannel, string, error) {
	spec := action.RecipientSpec()

	switch action.ActionType() {
	case models.ActionSendEmail:
		address := spec
		if spec == models.RecipientContact {
			address = contact.Email
		}
		if address == "" {
			return models.ChannelEmail, "", errors.NewRecipientMissingError(fmt.Sprintf("contact %s has no email", contact.ID))
		}
		return models.ChannelEmail, address, nil

	case models.ActionSendSMS:
		address := spec
		if spec == models.RecipientContact {
			address = contact.Phone
		}
		if address == "" {
			return models.ChannelSMS, "", errors.NewRecipientMissingError(fmt.Sprintf("contact %s has no phone", contact.ID))
		}
		return models.ChannelSMS, address, nil

	default:
		return "", "", errors.NewUnknownActionTypeError(string(action.ActionType()))
	}
}

// renderAction fills {{placeholder}} tokens in the action text from the
// contact and the submission data.
func renderAction(action models.Action, contact *models.Contact, data map[string]interface{}) (subject, body string) {
	values := map[string]interface{}{
		"contact_name":  contact.Name,
		"contact_email": contact.Email,
		"contact_phone": contact.Phone,
	}
	for k, v := range data {
		values[k] = v
	}

	switch v := action.(type) {
	case models.EmailAction:
		return renderTemplate(v.Subject, values), renderTemplate(v.Body, values)
	case models.SMSAction:
		return "", renderTemplate(v.Body, values)
	default:
		return "", ""
	}
}

// Simplified template rendering with placeholder removal for missing values
func renderTemplate(tmpl string, data map[string]interface{}) string {
	result := tmpl

	for k, v := range data {
		placeholder := "{{" + k + "}}"
		value := ""
		if s, ok := v.(string); ok {
			value = s
		} else if i, ok := v.(int); ok {
			value = fmt.Sprintf("%d", i)
		} else if v != nil {
			value = fmt.Sprintf("%v", v)
		}
		result = strings.ReplaceAll(result, placeholder, value)
	}

	// Remove any remaining placeholders (missing values)
	for {
		start := strings.Index(result, "{{")
		if start == -1 {
			break
		}
		end := strings.Index(result[start:], "}}")
		if end == -1 {
			break
		}
		end += start + 2
		result = result[:start] + result[end:]
	}

	return result
}
