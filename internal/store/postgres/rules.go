// internal/store/postgres/rules.go
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"opsdesk-engine/internal/common/errors"
	"opsdesk-engine/internal/models"
)

// RuleStore persists automation rules. The action is stored as a JSONB
// document and decoded into its typed variant on read.
type RuleStore struct {
	db *sql.DB
}

func NewRuleStore(db *sql.DB) *RuleStore {
	return &RuleStore{db: db}
}

func (s *RuleStore) Create(ctx context.Context, rule *models.AutomationRule) error {
	action, err := models.EncodeAction(rule.Action)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO automation_rules (id, workspace_id, name, trigger_form_template_id, action, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		rule.ID, rule.WorkspaceID, rule.Name, rule.TriggerFormTemplateID, action, rule.Active, rule.CreatedAt)
	if err != nil {
		return errors.NewDatabaseInsertFailedError(err)
	}
	return nil
}

func (s *RuleStore) Get(ctx context.Context, workspaceID, id string) (*models.AutomationRule, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, workspace_id, name, trigger_form_template_id, action, is_active, created_at
		FROM automation_rules
		WHERE workspace_id = $1 AND id = $2`, workspaceID, id)

	rule, err := scanRule(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFoundError(errors.ErrCodeRuleNotFound, id)
	}
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("get rule", err)
	}
	return rule, nil
}

// ListActiveByTemplate returns the active rules bound to the template in
// rule-id order, which fixes the execution order for a matched submission.
func (s *RuleStore) ListActiveByTemplate(ctx context.Context, workspaceID, templateID string) ([]models.AutomationRule, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, workspace_id, name, trigger_form_template_id, action, is_active, created_at
		FROM automation_rules
		WHERE workspace_id = $1 AND trigger_form_template_id = $2 AND is_active = true
		ORDER BY id ASC`, workspaceID, templateID)
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("list active rules", err)
	}
	defer rows.Close()

	return collectRules(rows)
}

func (s *RuleStore) List(ctx context.Context, workspaceID string) ([]models.AutomationRule, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, workspace_id, name, trigger_form_template_id, action, is_active, created_at
		FROM automation_rules
		WHERE workspace_id = $1
		ORDER BY id ASC`, workspaceID)
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("list rules", err)
	}
	defer rows.Close()

	return collectRules(rows)
}

// SetActive toggles a rule without deleting its history.
func (s *RuleStore) SetActive(ctx context.Context, workspaceID, id string, active bool) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE automation_rules SET is_active = $3
		WHERE workspace_id = $1 AND id = $2`, workspaceID, id, active)
	if err != nil {
		return errors.NewQueryExecutionFailedError("set rule active", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.NewNotFoundError(errors.ErrCodeRuleNotFound, id)
	}
	return nil
}

func (s *RuleStore) Delete(ctx context.Context, workspaceID, id string) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM automation_rules WHERE workspace_id = $1 AND id = $2`, workspaceID, id)
	if err != nil {
		return errors.NewQueryExecutionFailedError("delete rule", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.NewNotFoundError(errors.ErrCodeRuleNotFound, id)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRule(row rowScanner) (*models.AutomationRule, error) {
	var rule models.AutomationRule
	var action json.RawMessage
	var createdAt time.Time

	if err := row.Scan(&rule.ID, &rule.WorkspaceID, &rule.Name, &rule.TriggerFormTemplateID, &action, &rule.Active, &createdAt); err != nil {
		return nil, err
	}

	decoded, err := models.DecodeAction(action)
	if err != nil {
		return nil, err
	}
	rule.Action = decoded
	rule.CreatedAt = createdAt
	return &rule, nil
}

func collectRules(rows *sql.Rows) ([]models.AutomationRule, error) {
	out := []models.AutomationRule{}
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, errors.NewQueryExecutionFailedError("scan rule", err)
		}
		out = append(out, *rule)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewQueryExecutionFailedError("iterate rules", err)
	}
	return out, nil
}
