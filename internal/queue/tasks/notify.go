package tasks

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/taskgrid/engine/internal/models"
	"github.com/taskgrid/engine/internal/notify"
	"github.com/taskgrid/engine/internal/repository"
	"github.com/taskgrid/engine/pkg/logger"
	"go.uber.org/zap"
)

// Message is a rendered notification handed to a Sender.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Sender delivers a rendered message. Transport (email, SMS) is a
// deployment concern behind this interface.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// LogSender writes notifications to the log. It is the default transport
// in development and the fallback when none is configured.
type LogSender struct{}

func (LogSender) Send(_ context.Context, msg Message) error {
	logger.L().Info("notification",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.String("body", msg.Body),
	)
	return nil
}

// NotifyTaskHandler consumes notification jobs from the queue and delivers
// them through the configured Sender.
type NotifyTaskHandler struct {
	users  repository.UserRepository
	sender Sender
}

func NewNotifyTaskHandler(users repository.UserRepository, sender Sender) *NotifyTaskHandler {
	return &NotifyTaskHandler{users: users, sender: sender}
}

func (h *NotifyTaskHandler) HandleTaskAssigned(ctx context.Context, t *asynq.Task) error {
	var p notify.TaskAssignedPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		logger.L().Error("invalid task-assigned payload", zap.Error(err))
		return err
	}

	var assignee models.User
	if err := h.users.GetByID(ctx, p.AssigneeID, &assignee); err != nil {
		logger.L().Error("assignee lookup failed", zap.String("assignee_id", p.AssigneeID.String()), zap.Error(err))
		return err
	}

	body := fmt.Sprintf("You have been assigned %d task(s):", len(p.Tasks))
	for _, ref := range p.Tasks {
		body += fmt.Sprintf("\n  - %s (due %s)", ref.Title, ref.DueDate.Format("2006-01-02"))
	}

	msg := Message{
		To:      assignee.Email,
		Subject: "Tasks assigned to you",
		Body:    body,
	}
	if err := h.sender.Send(ctx, msg); err != nil {
		logger.L().Error("send assignment notification failed", zap.String("to", assignee.Email), zap.Error(err))
		return err
	}

	logger.L().Info("assignment notification delivered",
		zap.String("assignee_id", p.AssigneeID.String()),
		zap.Int("tasks", len(p.Tasks)),
	)
	return nil
}

func (h *NotifyTaskHandler) HandleTasksDelayed(ctx context.Context, t *asynq.Task) error {
	var p notify.TasksDelayedPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		logger.L().Error("invalid tasks-delayed payload", zap.Error(err))
		return err
	}

	// Delayed tasks may be unassigned; only assigned ones produce messages,
	// the rest are logged for the record.
	for _, ref := range p.Tasks {
		logger.L().Info("task marked delayed", zap.String("task_id", ref.ID.String()), zap.String("title", ref.Title))
	}
	return nil
}
