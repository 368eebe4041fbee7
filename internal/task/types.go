package task

import (
	"errors"
	"time"
)

// Priority ranks a task.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Status is the lifecycle state of a task.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// Recurrence is the repeat period of a recurring task.
type Recurrence string

const (
	RecurDaily   Recurrence = "daily"
	RecurWeekly  Recurrence = "weekly"
	RecurMonthly Recurrence = "monthly"
)

func (r Recurrence) Valid() bool {
	switch r {
	case RecurDaily, RecurWeekly, RecurMonthly:
		return true
	}
	return false
}

// Task is the persisted record. Creator and assignee are user id references;
// "overdue" is derived, never stored.
type Task struct {
	ID          string     `bson:"_id" json:"id"`
	Title       string     `bson:"title" json:"title"`
	Description string     `bson:"description,omitempty" json:"description"`
	DueDate     time.Time  `bson:"dueDate,omitempty" json:"dueDate"`
	Priority    Priority   `bson:"priority" json:"priority"`
	Status      Status     `bson:"status" json:"status"`
	CreatedBy   string     `bson:"createdBy" json:"createdBy"`
	AssignedTo  string     `bson:"assignedTo,omitempty" json:"assignedTo,omitempty"`
	IsRecurring bool       `bson:"isRecurring" json:"isRecurring"`
	Recurrence  Recurrence `bson:"recurrence,omitempty" json:"recurrence,omitempty"`
	CreatedAt   time.Time  `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time  `bson:"updatedAt" json:"updatedAt"`
}

// Overdue reports whether the due date has passed without completion.
func (t *Task) Overdue(now time.Time) bool {
	return !t.DueDate.IsZero() && t.DueDate.Before(now) && t.Status != StatusCompleted
}

// Draft carries the caller-provided fields for task creation.
type Draft struct {
	Title       string
	Description string
	DueDate     time.Time
	Priority    Priority
	Status      Status
	AssignedTo  string
	IsRecurring bool
	Recurrence  Recurrence
}

/// Patch is a field-merge update: nil fields stay untouched.
type Patch struct {
	Title       *string
	Description *string
	DueDate     *time.Time
	Priority    *Priority
	Status      *Status
	AssignedTo  *string
	IsRecurring *bool
	Recurrence  *Recurrence
}

// UserRef is the display projection of a referenced user.
type UserRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// View is a task joined with its creator/assignee display fields.
type View struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	DueDate     time.Time  `json:"dueDate"`
	Priority    Priority   `json:"priority"`
	Status      Status     `json:"status"`
	CreatedBy   UserRef    `json:"createdBy"`
	AssignedTo  *UserRef   `json:"assignedTo"`
	IsRecurring bool       `json:"isRecurring"`
	Recurrence  Recurrence `json:"recurrence,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// StatusCount tallies tasks per lifecycle state.
type StatusCount struct {
	Pending    int `json:"pending"`
	InProgress int `json:"inProgress"`
	Completed  int `json:"completed"`
}

// Stats is the per-user aggregate over created and assigned tasks.
type Stats struct {
	TotalCreated  int         `json:"totalCreated"`
	TotalAssigned int         `json:"totalAssigned"`
	StatusCount   StatusCount `json:"statusCount"`
	OverdueCount  int         `json:"overdueCount"`
}

var (
	ErrNotFound          = errors.New("task: not found")
	ErrInvalidStatus     = errors.New("task: invalid status value")
	ErrInvalidPriority   = errors.New("task: invalid priority value")
	ErrInvalidRecurrence = errors.New("task: invalid recurrence value")
	ErrForbidden         = errors.New("task: forbidden")
)
