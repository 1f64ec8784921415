package tasks

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/taskgrid/engine/internal/models"
	"github.com/taskgrid/engine/internal/notify"
	"github.com/taskgrid/engine/pkg/logger"
)

func TestMain(m *testing.M) {
	if _, err := logger.Init("info", "json"); err != nil {
		panic("failed to init logger: " + err.Error())
	}
	os.Exit(m.Run())
}

type mockUserRepo struct {
	mock.Mock
}

func (m *mockUserRepo) Create(ctx context.Context, u *models.User) error {
	return m.Called(ctx, u).Error(0)
}

func (m *mockUserRepo) GetByID(ctx context.Context, id any, dest *models.User) error {
	args := m.Called(ctx, id, dest)
	return args.Error(0)
}

func (m *mockUserRepo) Update(ctx context.Context, u *models.User) error {
	return m.Called(ctx, u).Error(0)
}

func (m *mockUserRepo) Delete(ctx context.Context, id any) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockUserRepo) GetByEmail(ctx context.Context, email string, dest *models.User) error {
	return m.Called(ctx, email, dest).Error(0)
}

type recordingSender struct {
	sent []Message
}

func (r *recordingSender) Send(_ context.Context, msg Message) error {
	r.sent = append(r.sent, msg)
	return nil
}

func TestHandleTaskAssigned(t *testing.T) {
	assigneeID := uuid.New()

	users := new(mockUserRepo)
	users.On("GetByID", mock.Anything, assigneeID, mock.Anything).
		Run(func(args mock.Arguments) {
			dest := args.Get(2).(*models.User)
			dest.ID = assigneeID
			dest.Email = "dev@example.com"
			dest.Name = "Dev"
		}).
		Return(nil)

	sender := &recordingSender{}
	h := NewNotifyTaskHandler(users, sender)

	payload := notify.TaskAssignedPayload{
		AssigneeID: assigneeID,
		Tasks: []notify.TaskRef{
			{ID: uuid.New(), Title: "Build API", DueDate: time.Now().Add(48 * time.Hour)},
			{ID: uuid.New(), Title: "Design schema", DueDate: time.Now().Add(24 * time.Hour)},
		},
	}
	b, err := json.Marshal(payload)
	require.NoError(t, err)

	err = h.HandleTaskAssigned(context.Background(), asynq.NewTask(notify.TypeTaskAssigned, b))
	require.NoError(t, err)

	require.Len(t, sender.sent, 1)
	require.Equal(t, "dev@example.com", sender.sent[0].To)
	require.Contains(t, sender.sent[0].Body, "Build API")
	require.Contains(t, sender.sent[0].Body, "Design schema")
	users.AssertExpectations(t)
}

func TestHandleTaskAssignedBadPayload(t *testing.T) {
	h := NewNotifyTaskHandler(new(mockUserRepo), &recordingSender{})
	err := h.HandleTaskAssigned(context.Background(), asynq.NewTask(notify.TypeTaskAssigned, []byte("{")))
	require.Error(t, err)
}

func TestHandleTasksDelayed(t *testing.T) {
	h := NewNotifyTaskHandler(new(mockUserRepo), &recordingSender{})

	payload := notify.TasksDelayedPayload{
		Tasks: []notify.TaskRef{{ID: uuid.New(), Title: "Late task", DueDate: time.Now()}},
	}
	b, err := json.Marshal(payload)
	require.NoError(t, err)

	err = h.HandleTasksDelayed(context.Background(), asynq.NewTask(notify.TypeTasksDelayed, b))
	require.NoError(t, err)
}
