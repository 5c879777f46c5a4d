// internal/store/dedup/dedup.go
package dedup

import (
	"context"
	"fmt"
	"time"

	"opsdesk-engine/internal/common/errors"
	"opsdesk-engine/internal/common/logger"

	"github.com/redis/go-redis/v9"
)

// Store gives the executor its at-most-once guarantee. The first Acquire
// for a (rule, submission) pair wins via SET NX; every later call, including
// redeliveries of the same event, sees false.
type Store struct {
	client *redis.Client
	ttl    time.Duration
	logger logger.Logger
}

func New(client *redis.Client, ttl time.Duration, log logger.Logger) *Store {
	return &Store{
		client: client,
		ttl:    ttl,
		logger: log.WithFields(map[string]interface{}{"component": "dedup"}),
	}
}

func key(workspaceID, ruleID, submissionID string) string {
	return fmt.Sprintf("automation:dedup:%s:%s:%s", workspaceID, ruleID, submissionID)
}

// Acquire atomically claims the execution slot for (rule, submission).
// Returns true exactly once per pair.
func (s *Store) Acquire(ctx context.Context, workspaceID, ruleID, submissionID string) (bool, error) {
	ok, err := s.client.SetNX(ctx, key(workspaceID, ruleID, submissionID), time.Now().UTC().Format(time.RFC3339), s.ttl).Result()
	if err != nil {
		return false, errors.NewDedupCheckFailedError(err)
	}

	if !ok {
		s.logger.Debug("duplicate execution skipped", map[string]interface{}{
			"workspaceId":  workspaceID,
			"ruleId":       ruleID,
			"submissionId": submissionID,
		})
	}

	return ok, nil
}
