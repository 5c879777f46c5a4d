// internal/store/audit/audit.go
package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"opsdesk-engine/internal/common/errors"
	"opsdesk-engine/internal/common/logger"
	"opsdesk-engine/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
)

// Store writes one document per action outcome so executed, suppressed and
// failed automation attempts stay queryable after the fact.
type Store struct {
	client *elasticsearch.Client
	index  string
	logger logger.Logger
}

func New(client *elasticsearch.Client, index string, log logger.Logger) *Store {
	if index == "" {
		index = "action-outcomes"
	}
	return &Store{
		client: client,
		index:  index,
		logger: log.WithFields(map[string]interface{}{"component": "audit"}),
	}
}

// Record indexes a single outcome document.
func (s *Store) Record(ctx context.Context, outcome models.ActionOutcome) error {
	body, err := json.Marshal(outcome)
	if err != nil {
		return errors.NewAuditWriteFailedError(err)
	}

	res, err := s.client.Index(
		s.index,
		bytes.NewReader(body),
		s.client.Index.WithContext(ctx),
	)
	if err != nil {
		return errors.NewAuditWriteFailedError(err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return errors.NewAuditWriteFailedError(fmt.Errorf("index response: %s", res.Status()))
	}

	s.logger.Debug("action outcome recorded", map[string]interface{}{
		"ruleId":       outcome.RuleID,
		"submissionId": outcome.SubmissionID,
		"status":       string(outcome.Status),
	})

	return nil
}
