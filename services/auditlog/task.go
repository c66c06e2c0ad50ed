package auditlog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"smallbiznis-license/pkg/taskname"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

type PurgePayload struct {
	// Before is the exclusive cutoff. Zero means "now minus retention" at run time.
	Before time.Time `json:"before,omitempty"`
}

func NewPurgeTask(payload PurgePayload) (*asynq.Task, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(taskname.ActivationLogPurge, b, asynq.MaxRetry(3), asynq.Queue("low")), nil
}

type purger interface {
	Purge(ctx context.Context, before time.Time) (int64, error)
}

// PurgeHandler applies the retention policy when a purge task runs.
type PurgeHandler struct {
	svc       purger
	retention time.Duration
	now       func() time.Time
}

func NewPurgeHandler(svc purger, retention time.Duration) *PurgeHandler {
	return &PurgeHandler{svc: svc, retention: retention, now: time.Now}
}

func (h *PurgeHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload PurgePayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return fmt.Errorf("decode purge payload: %v: %w", err, asynq.SkipRetry)
		}
	}

	before := payload.Before
	if before.IsZero() {
		if h.retention <= 0 {
			zap.L().Info("[auditlog] retention disabled, nothing to purge")
			return nil
		}
		before = h.now().Add(-h.retention)
	}

	_, err := h.svc.Purge(ctx, before)
	return err
}
