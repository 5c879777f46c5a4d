// internal/engine/matcher/matcher.go
package matcher

import (
	"context"
	"sort"

	"opsdesk-engine/internal/common/logger"
	"opsdesk-engine/internal/common/metrics"
	"opsdesk-engine/internal/models"
)

// RuleSource lists active rules for a trigger template, workspace scoped.
type RuleSource interface {
	ListActiveByTemplate(ctx context.Context, workspaceID, templateID string) ([]models.AutomationRule, error)
}

// Matcher resolves which automation rules fire for a form submission.
// It reads the rule source on every call, so deactivating or deleting a
// rule is visible to the very next event.
type Matcher struct {
	rules  RuleSource
	logger logger.Logger
}

func New(rules RuleSource, log logger.Logger) *Matcher {
	return &Matcher{
		rules:  rules,
		logger: log.WithFields(map[string]interface{}{"component": "matcher"}),
	}
}

// Match returns the active rules whose trigger template matches, in
// ascending rule id order. No match is an empty slice, not an error.
func (m *Matcher) Match(ctx context.Context, workspaceID, templateID string) ([]models.AutomationRule, error) {
	rules, err := m.rules.ListActiveByTemplate(ctx, workspaceID, templateID)
	if err != nil {
		return nil, err
	}

	sort.Slice(rules, func(i, j int) bool { return rules[i].ID < rules[j].ID })

	for _, rule := range rules {
		metrics.RulesMatched.WithLabelValues(string(rule.Action.ActionType())).Inc()
	}

	m.logger.Debug("rules matched", map[string]interface{}{
		"workspaceId": workspaceID,
		"templateId":  templateID,
		"count":       len(rules),
	})

	return rules, nil
}
