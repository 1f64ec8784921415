// Package notify is the engine's out-of-band messaging boundary.
// Notifications are best effort: a failed enqueue is logged by the caller
// and never fails the mutation that triggered it.
package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	appErr "github.com/taskgrid/engine/pkg/errors"
)

// Task type names on the notification queue.
const (
	TypeTaskAssigned = "notify:task_assigned"
	TypeTasksDelayed = "notify:tasks_delayed"
)

// QueueName is the asynq queue notifications are routed to.
const QueueName = "notifications"

// TaskRef is the slice of task state a notification carries.
type TaskRef struct {
	ID      uuid.UUID `json:"id"`
	Title   string    `json:"title"`
	DueDate time.Time `json:"due_date"`
}

// TaskAssignedPayload announces that an assignment cascade touched tasks.
type TaskAssignedPayload struct {
	AssigneeID uuid.UUID `json:"assignee_id"`
	Tasks      []TaskRef `json:"tasks"`
}

// TasksDelayedPayload announces tasks the overdue sweep marked delayed.
type TasksDelayedPayload struct {
	Tasks []TaskRef `json:"tasks"`
}

// Notifier delivers best-effort messages about graph mutations.
type Notifier interface {
	TaskAssigned(ctx context.Context, assigneeID uuid.UUID, tasks []TaskRef) error
	TasksDelayed(ctx context.Context, tasks []TaskRef) error
}

// QueueNotifier enqueues notifications onto Redis for the worker binary.
type QueueNotifier struct {
	client *asynq.Client
}

func NewQueueNotifier(client *asynq.Client) *QueueNotifier {
	return &QueueNotifier{client: client}
}

var _ Notifier = (*QueueNotifier)(nil)

func (n *QueueNotifier) TaskAssigned(ctx context.Context, assigneeID uuid.UUID, tasks []TaskRef) error {
	return n.enqueue(ctx, TypeTaskAssigned, TaskAssignedPayload{AssigneeID: assigneeID, Tasks: tasks})
}

func (n *QueueNotifier) TasksDelayed(ctx context.Context, tasks []TaskRef) error {
	return n.enqueue(ctx, TypeTasksDelayed, TasksDelayedPayload{Tasks: tasks})
}

func (n *QueueNotifier) enqueue(ctx context.Context, taskType string, payload any) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return appErr.Wrap(err, appErr.CodeInternal, "marshal notification payload failed")
	}
	_, err = n.client.EnqueueContext(ctx, asynq.NewTask(taskType, b), asynq.Queue(QueueName), asynq.MaxRetry(5))
	if err != nil {
		return appErr.Wrap(err, appErr.CodeUnavailable, "enqueue notification failed")
	}
	return nil
}

// NopNotifier drops every notification. Used where no queue is wired, such
// as the migrate binary and tests that don't assert on notifications.
type NopNotifier struct{}

var _ Notifier = NopNotifier{}

func (NopNotifier) TaskAssigned(context.Context, uuid.UUID, []TaskRef) error { return nil }
func (NopNotifier) TasksDelayed(context.Context, []TaskRef) error            { return nil }
