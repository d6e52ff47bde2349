package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskPermissionChange is dispatched after any permission record write so
	// connected clients can refresh their effective permissions.
	TaskPermissionChange = "authz:permission_change"
)

// PermissionChangePayload describes a permission record write.
type PermissionChangePayload struct {
	Layer     string    `json:"layer"`
	Key       string    `json:"key"`
	ChangedBy string    `json:"changed_by"`
	At        time.Time `json:"at"`
}

// NewPermissionChangeTask constructs an Asynq task.
func NewPermissionChangeTask(payload PermissionChangePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskPermissionChange, data), nil
}

// PermissionChangeHandler processes TaskPermissionChange tasks. Delivery to
// the realtime channel lives behind this handler; the permission core never
// sees it.
func PermissionChangeHandler(logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload PermissionChangePayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		if logger != nil {
			logger.Info("permission change",
				slog.String("layer", payload.Layer),
				slog.String("key", payload.Key),
				slog.String("changed_by", payload.ChangedBy))
		}
		return nil
	}
}
