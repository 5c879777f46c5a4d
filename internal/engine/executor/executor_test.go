// internal/engine/executor/executor_test.go
package executor

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	stderrors "opsdesk-engine/internal/common/errors"
	"opsdesk-engine/internal/common/logger"
	"opsdesk-engine/internal/engine/bus"
	"opsdesk-engine/internal/engine/conversation"
	"opsdesk-engine/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Fakes
// ==========================

type fakeMatcher struct {
	rules []models.AutomationRule
}

func (f *fakeMatcher) Match(ctx context.Context, workspaceID, templateID string) ([]models.AutomationRule, error) {
	out := []models.AutomationRule{}
	for _, r := range f.rules {
		if r.WorkspaceID == workspaceID && r.TriggerFormTemplateID == templateID && r.Active {
			out = append(out, r)
		}
	}
	return out, nil
}

type fakeDedup struct {
	mu   sync.Mutex
	seen map[string]bool
}

func newFakeDedup() *fakeDedup { return &fakeDedup{seen: map[string]bool{}} }

func (f *fakeDedup) Acquire(ctx context.Context, workspaceID, ruleID, submissionID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := workspaceID + "/" + ruleID + "/" + submissionID
	if f.seen[k] {
		return false, nil
	}
	f.seen[k] = true
	return true, nil
}

type fakeContacts struct {
	contacts map[string]*models.Contact
}

func (f *fakeContacts) Get(ctx context.Context, workspaceID, id string) (*models.Contact, error) {
	c, ok := f.contacts[id]
	if !ok {
		return nil, stderrors.NewNotFoundError(stderrors.ErrCodeContactNotFound, id)
	}
	return c, nil
}

type sentMessage struct {
	channel string
	to      string
	subject string
	body    string
}

type fakeGateway struct {
	mu       sync.Mutex
	sent     []sentMessage
	failures int   // number of leading calls that fail
	failErr  error // when set, every call fails with this error
	calls    int
}

func (f *fakeGateway) SendEmail(ctx context.Context, to, subject, body string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failErr != nil {
		return "", f.failErr
	}
	if f.calls <= f.failures {
		return "", fmt.Errorf("smtp unavailable")
	}
	f.sent = append(f.sent, sentMessage{channel: "email", to: to, subject: subject, body: body})
	return fmt.Sprintf("msg-%d", len(f.sent)), nil
}

func (f *fakeGateway) SendSMS(ctx context.Context, to, body string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failErr != nil {
		return "", f.failErr
	}
	if f.calls <= f.failures {
		return "", fmt.Errorf("sms provider unavailable")
	}
	f.sent = append(f.sent, sentMessage{channel: "sms", to: to, body: body})
	return fmt.Sprintf("msg-%d", len(f.sent)), nil
}

type fakeAlerts struct {
	mu     sync.Mutex
	alerts []*models.Alert
}

func (f *fakeAlerts) Create(ctx context.Context, alert *models.Alert) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.alerts = append(f.alerts, alert)
	return nil
}

type fakeAudit struct {
	mu       sync.Mutex
	outcomes []models.ActionOutcome
}

func (f *fakeAudit) Record(ctx context.Context, outcome models.ActionOutcome) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.outcomes = append(f.outcomes, outcome)
	return nil
}

func (f *fakeAudit) byStatus(status models.OutcomeStatus) []models.ActionOutcome {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.ActionOutcome{}
	for _, o := range f.outcomes {
		if o.Status == status {
			out = append(out, o)
		}
	}
	return out
}

// In-memory conversation store backing a real Tracker.
type memConvStore struct {
	mu       sync.Mutex
	convs    map[string]*models.Conversation
	messages []*models.Message
}

func newMemConvStore() *memConvStore {
	return &memConvStore{convs: map[string]*models.Conversation{}}
}

func (s *memConvStore) Get(ctx context.Context, id string) (*models.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv, ok := s.convs[id]
	if !ok {
		return nil, stderrors.NewNotFoundError(stderrors.ErrCodeConversationNotFound, id)
	}
	cp := *conv
	return &cp, nil
}

func (s *memConvStore) FindByContact(ctx context.Context, workspaceID, contactID string) (*models.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, conv := range s.convs {
		if conv.WorkspaceID == workspaceID && conv.ContactID == contactID {
			cp := *conv
			return &cp, nil
		}
	}
	return nil, stderrors.NewNotFoundError(stderrors.ErrCodeConversationNotFound, contactID)
}

func (s *memConvStore) Create(ctx context.Context, conv *models.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *conv
	s.convs[conv.ID] = &cp
	return nil
}

func (s *memConvStore) UpdateStatus(ctx context.Context, id string, status models.ConversationStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.convs[id].Status = status
	return nil
}

func (s *memConvStore) Touch(ctx context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.convs[id].LastMessageAt = at
	return nil
}

func (s *memConvStore) Append(ctx context.Context, msg *models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg.Seq = int64(len(s.messages) + 1)
	cp := *msg
	s.messages = append(s.messages, &cp)
	return nil
}

// ==========================
// Test Harness
// ==========================

type harness struct {
	executor *Executor
	tracker  *conversation.Tracker
	store    *memConvStore
	gateway  *fakeGateway
	alerts   *fakeAlerts
	audit    *fakeAudit
	dedup    *fakeDedup
}

func emailRule(id string) models.AutomationRule {
	return models.AutomationRule{
		ID:                    id,
		WorkspaceID:           "ws-1",
		Name:                  "welcome email",
		TriggerFormTemplateID: "tpl-7",
		Action:                models.EmailAction{Recipient: models.RecipientContact, Subject: "Thanks {{contact_name}}", Body: "We got your request"},
		Active:                true,
	}
}

func smsRule(id string) models.AutomationRule {
	return models.AutomationRule{
		ID:                    id,
		WorkspaceID:           "ws-1",
		Name:                  "confirmation text",
		TriggerFormTemplateID: "tpl-7",
		Action:                models.SMSAction{Recipient: models.RecipientContact, Body: "We got your request"},
		Active:                true,
	}
}

func newHarness(t *testing.T, rules ...models.AutomationRule) *harness {
	store := newMemConvStore()
	tracker := conversation.NewTracker(store, store, logger.NewNoOpLogger())
	gw := &fakeGateway{}
	alerts := &fakeAlerts{}
	aud := &fakeAudit{}
	ded := newFakeDedup()

	contacts := &fakeContacts{contacts: map[string]*models.Contact{
		"contact-1": {ID: "contact-1", WorkspaceID: "ws-1", Name: "Dana", Email: "a@b.com", Phone: "+15550100"},
		"contact-2": {ID: "contact-2", WorkspaceID: "ws-1", Name: "Lee", Email: "", Phone: ""},
	}}

	exec := New(
		Config{MaxSendAttempts: 3, InitialBackoff: time.Millisecond},
		&fakeMatcher{rules: rules},
		ded, contacts, tracker, gw, alerts, aud,
		logger.NewTestLogger(t),
	)

	return &harness{executor: exec, tracker: tracker, store: store, gateway: gw, alerts: alerts, audit: aud, dedup: ded}
}

func submission(id string) bus.FormSubmitted {
	return bus.FormSubmitted{
		WorkspaceID:  "ws-1",
		SubmissionID: id,
		TemplateID:   "tpl-7",
		ContactID:    "contact-1",
		Data:         map[string]interface{}{"service": "plumbing"},
		SubmittedAt:  time.Now().UTC(),
	}
}

// ==========================
// Tests
// ==========================

func TestExecutor_DeliversEmailAndKeepsConversationActive(t *testing.T) {
	h := newHarness(t, emailRule("rule-1"))
	ctx := context.Background()

	require.NoError(t, h.executor.HandleFormSubmitted(ctx, submission("sub-1")))

	require.Len(t, h.gateway.sent, 1)
	assert.Equal(t, "email", h.gateway.sent[0].channel)
	assert.Equal(t, "a@b.com", h.gateway.sent[0].to)
	assert.Equal(t, "Thanks Dana", h.gateway.sent[0].subject)

	conv, err := h.tracker.ResolveOrCreate(ctx, "ws-1", "contact-1")
	require.NoError(t, err)
	assert.Equal(t, models.ConversationActive, conv.Status)

	// The automation message landed in the thread.
	require.Len(t, h.store.messages, 1)
	assert.Equal(t, models.OriginAutomation, h.store.messages[0].Origin)
	assert.Equal(t, models.DirectionOutbound, h.store.messages[0].Direction)

	assert.Len(t, h.audit.byStatus(models.OutcomeExecuted), 1)
}

func TestExecutor_AtMostOncePerRuleAndSubmission(t *testing.T) {
	h := newHarness(t, emailRule("rule-1"))
	ctx := context.Background()

	// Redelivery of the same event must not send twice.
	require.NoError(t, h.executor.HandleFormSubmitted(ctx, submission("sub-1")))
	require.NoError(t, h.executor.HandleFormSubmitted(ctx, submission("sub-1")))

	assert.Len(t, h.gateway.sent, 1)
	assert.Len(t, h.audit.byStatus(models.OutcomeExecuted), 1)
}

func TestExecutor_PausedConversationSuppressesAction(t *testing.T) {
	h := newHarness(t, emailRule("rule-1"))
	ctx := context.Background()

	conv, err := h.tracker.ResolveOrCreate(ctx, "ws-1", "contact-1")
	require.NoError(t, err)
	require.NoError(t, h.tracker.AppendMessage(ctx, &models.Message{
		ConversationID: conv.ID,
		Direction:      models.DirectionOutbound,
		Origin:         models.OriginStaff,
		Channel:        models.ChannelEmail,
		Content:        "handling this personally",
	}))

	require.NoError(t, h.executor.HandleFormSubmitted(ctx, submission("sub-1")))

	assert.Empty(t, h.gateway.sent)
	suppressed := h.audit.byStatus(models.OutcomeSuppressed)
	require.Len(t, suppressed, 1)
	assert.Equal(t, ReasonConversationPaused, suppressed[0].Reason)
}

func TestExecutor_ResumedConversationDeliversAgain(t *testing.T) {
	h := newHarness(t, emailRule("rule-1"))
	ctx := context.Background()

	conv, _ := h.tracker.ResolveOrCreate(ctx, "ws-1", "contact-1")
	require.NoError(t, h.tracker.AppendMessage(ctx, &models.Message{
		ConversationID: conv.ID,
		Direction:      models.DirectionOutbound,
		Origin:         models.OriginStaff,
		Channel:        models.ChannelEmail,
	}))

	require.NoError(t, h.executor.HandleFormSubmitted(ctx, submission("sub-1")))
	assert.Empty(t, h.gateway.sent)

	require.NoError(t, h.tracker.Resume(ctx, conv.ID))

	require.NoError(t, h.executor.HandleFormSubmitted(ctx, submission("sub-2")))
	assert.Len(t, h.gateway.sent, 1)
}

func TestExecutor_MissingRecipientIsSuppressedNotFatal(t *testing.T) {
	rule := smsRule("rule-1")
	h := newHarness(t, rule, emailRule("rule-2"))
	ctx := context.Background()

	evt := submission("sub-1")
	evt.ContactID = "contact-2" // no phone, no email

	require.NoError(t, h.executor.HandleFormSubmitted(ctx, evt))

	assert.Empty(t, h.gateway.sent)
	suppressed := h.audit.byStatus(models.OutcomeSuppressed)
	require.Len(t, suppressed, 2)
	assert.Equal(t, ReasonRecipientMissing, suppressed[0].Reason)
}

func TestExecutor_LiteralRecipientBypassesContact(t *testing.T) {
	rule := emailRule("rule-1")
	rule.Action = models.EmailAction{Recipient: "ops@business.example", Subject: "New lead", Body: "check the dashboard"}
	h := newHarness(t, rule)

	require.NoError(t, h.executor.HandleFormSubmitted(context.Background(), submission("sub-1")))

	require.Len(t, h.gateway.sent, 1)
	assert.Equal(t, "ops@business.example", h.gateway.sent[0].to)
}

func TestExecutor_RetriesThenRaisesFailureAlert(t *testing.T) {
	h := newHarness(t, emailRule("rule-1"))
	h.gateway.failures = 99 // every attempt fails

	err := h.executor.HandleFormSubmitted(context.Background(), submission("sub-1"))
	assert.NoError(t, err) // handler isolates rule failures

	assert.Equal(t, 3, h.gateway.calls)
	assert.Empty(t, h.gateway.sent)

	require.Len(t, h.alerts.alerts, 1)
	assert.Equal(t, models.AlertAutomationFailed, h.alerts.alerts[0].Type)
	assert.Equal(t, "rule-1", h.alerts.alerts[0].RefID)

	assert.Len(t, h.audit.byStatus(models.OutcomeFailed), 1)
}

func TestExecutor_TransientFailureRecoversWithinRetries(t *testing.T) {
	h := newHarness(t, emailRule("rule-1"))
	h.gateway.failures = 2 // third attempt succeeds

	require.NoError(t, h.executor.HandleFormSubmitted(context.Background(), submission("sub-1")))

	assert.Len(t, h.gateway.sent, 1)
	assert.Empty(t, h.alerts.alerts)
}

func TestExecutor_MultipleRulesFireIndependently(t *testing.T) {
	h := newHarness(t, emailRule("rule-1"), smsRule("rule-2"))

	require.NoError(t, h.executor.HandleFormSubmitted(context.Background(), submission("sub-1")))

	require.Len(t, h.gateway.sent, 2)
	assert.Equal(t, "email", h.gateway.sent[0].channel)
	assert.Equal(t, "sms", h.gateway.sent[1].channel)
	assert.Equal(t, "+15550100", h.gateway.sent[1].to)
}

func TestExecutor_NonRetryableGatewayErrorFailsFast(t *testing.T) {
	h := newHarness(t, emailRule("rule-1"))
	h.gateway.failErr = stderrors.NewBusinessRuleError("Email delivery is disabled", "ses is disabled in gateway config")

	require.NoError(t, h.executor.HandleFormSubmitted(context.Background(), submission("sub-1")))

	// A disabled channel must not burn the retry budget.
	assert.Equal(t, 1, h.gateway.calls)
	assert.Empty(t, h.gateway.sent)
	require.Len(t, h.alerts.alerts, 1)
	assert.Equal(t, models.AlertAutomationFailed, h.alerts.alerts[0].Type)
	assert.Len(t, h.audit.byStatus(models.OutcomeFailed), 1)
}

func TestExecutor_BookingConfirmationLandsInThread(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	require.NoError(t, h.executor.HandleBookingCreated(ctx, bus.BookingCreated{
		WorkspaceID: "ws-1",
		BookingID:   "booking-1",
		ContactID:   "contact-1",
		ServiceName: "Pipe inspection",
		StartTime:   time.Date(2026, 9, 3, 10, 0, 0, 0, time.UTC),
	}))

	require.Len(t, h.store.messages, 1)
	msg := h.store.messages[0]
	assert.Equal(t, models.ChannelSystem, msg.Channel)
	assert.Equal(t, models.OriginAutomation, msg.Origin)
	assert.Contains(t, msg.Content, "Pipe inspection")

	conv, err := h.tracker.ResolveOrCreate(ctx, "ws-1", "contact-1")
	require.NoError(t, err)
	assert.Equal(t, models.ConversationActive, conv.Status)
}

func TestExecutor_BookingConfirmationSuppressedWhilePaused(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	conv, err := h.tracker.ResolveOrCreate(ctx, "ws-1", "contact-1")
	require.NoError(t, err)
	require.NoError(t, h.tracker.AppendMessage(ctx, &models.Message{
		ConversationID: conv.ID,
		Direction:      models.DirectionOutbound,
		Origin:         models.OriginStaff,
		Channel:        models.ChannelEmail,
		Content:        "handling this personally",
	}))

	require.NoError(t, h.executor.HandleBookingCreated(ctx, bus.BookingCreated{
		WorkspaceID: "ws-1",
		BookingID:   "booking-1",
		ContactID:   "contact-1",
		ServiceName: "Pipe inspection",
		StartTime:   time.Now().UTC(),
	}))

	// Only the staff message is in the thread.
	assert.Len(t, h.store.messages, 1)
}

func TestRenderTemplate_FillsAndStripsPlaceholders(t *testing.T) {
	out := renderTemplate("Hi {{contact_name}}, re {{service}} ({{missing}})", map[string]interface{}{
		"contact_name": "Dana",
		"service":      "plumbing",
	})
	assert.Equal(t, "Hi Dana, re plumbing ()", out)
}
