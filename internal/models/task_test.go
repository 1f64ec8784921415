package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTaskStatus(t *testing.T) {
	for _, s := range AllStatuses() {
		got, err := ParseTaskStatus(string(s))
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}

	_, err := ParseTaskStatus("archived")
	assert.Error(t, err)
}

func TestIsRestrictedTransition(t *testing.T) {
	assert.True(t, IsRestrictedTransition(StatusCompleted))
	assert.True(t, IsRestrictedTransition(StatusCancelled))
	assert.True(t, IsRestrictedTransition(StatusDelayed))

	assert.False(t, IsRestrictedTransition(StatusPending))
	assert.False(t, IsRestrictedTransition(StatusAssigned))
	assert.False(t, IsRestrictedTransition(StatusInProgress))
}

func TestTaskOverdue(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Hour)

	task := Task{DueDate: past, Status: StatusInProgress}
	assert.True(t, task.Overdue(now))

	for _, s := range []TaskStatus{StatusCompleted, StatusCancelled, StatusDelayed} {
		task.Status = s
		assert.False(t, task.Overdue(now), "status %s must be excluded from the sweep", s)
	}

	task = Task{DueDate: now.Add(time.Hour), Status: StatusPending}
	assert.False(t, task.Overdue(now))
}

func TestRolePermissions(t *testing.T) {
	manager := User{Role: RoleManager}
	employee := User{Role: RoleEmployee}

	assert.True(t, manager.HasPermission(PermTaskAssign))
	assert.True(t, manager.CanOverrideRestrictedStatus())

	assert.False(t, employee.HasPermission(PermTaskAssign))
	assert.False(t, employee.CanOverrideRestrictedStatus())
	assert.True(t, employee.HasPermission(PermTaskUpdateStatus))
}

func TestTitlesOf(t *testing.T) {
	tasks := []Task{{Title: "Design schema"}, {Title: "Write, review"}, {Title: "Ship"}}
	assert.Equal(t, "Design schema, Write, review, Ship", TitlesOf(tasks))
	assert.Equal(t, "", TitlesOf(nil))
}
