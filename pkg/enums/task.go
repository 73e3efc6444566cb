package enums

import "fmt"

// TaskStatus tracks the lifecycle of an operational task.
type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusOverdue   TaskStatus = "overdue"
)

var validTaskStatuses = []TaskStatus{
	TaskStatusPending,
	TaskStatusCompleted,
	TaskStatusOverdue,
}

// String implements fmt.Stringer.
func (s TaskStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known TaskStatus.
func (s TaskStatus) IsValid() bool {
	for _, candidate := range validTaskStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// TaskType is the recurrence bucket a task belongs to.
type TaskType string

const (
	TaskTypeDaily   TaskType = "daily"
	TaskTypeWeekly  TaskType = "weekly"
	TaskTypeMonthly TaskType = "monthly"
)

var validTaskTypes = []TaskType{
	TaskTypeDaily,
	TaskTypeWeekly,
	TaskTypeMonthly,
}

// String implements fmt.Stringer.
func (t TaskType) String() string {
	return string(t)
}

// IsValid reports whether the value is a known TaskType.
func (t TaskType) IsValid() bool {
	for _, candidate := range validTaskTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseTaskType converts raw input into a TaskType.
func ParseTaskType(value string) (TaskType, error) {
	for _, candidate := range validTaskTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid task type %q", value)
}
