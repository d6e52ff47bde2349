package notify

import (
	"context"
	"time"

	"github.com/hibiken/asynq"

	"github.com/havencrm/havencrm/internal/authz"
)

// Enqueuer pushes permission-change events onto the job queue. It satisfies
// authz.Notifier.
type Enqueuer struct {
	client *asynq.Client
}

// NewEnqueuer constructs an Enqueuer over the given Redis options.
func NewEnqueuer(opts asynq.RedisClientOpt) *Enqueuer {
	return &Enqueuer{client: asynq.NewClient(opts)}
}

// PermissionsChanged enqueues a permission-change task.
func (e *Enqueuer) PermissionsChanged(ctx context.Context, event authz.ChangeEvent) error {
	task, err := NewPermissionChangeTask(PermissionChangePayload{
		Layer:     event.Layer,
		Key:       event.Key,
		ChangedBy: event.ChangedBy,
		At:        time.Now().UTC(),
	})
	if err != nil {
		return err
	}
	_, err = e.client.EnqueueContext(ctx, task, asynq.Queue(QueueDefault))
	return err
}

// Close releases the underlying client.
func (e *Enqueuer) Close() error {
	return e.client.Close()
}

var _ authz.Notifier = (*Enqueuer)(nil)
