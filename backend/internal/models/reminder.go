package models

import (
	"time"

	"github.com/gofrs/uuid"
)

type ReminderStatus string

const (
	ReminderPending   ReminderStatus = "PENDING"
	ReminderDismissed ReminderStatus = "DISMISSED"
	ReminderSnoozed   ReminderStatus = "SNOOZED"
)

// TaskReminder is a per-user overlay on a task's computed reminder.
// A missing row means PENDING.
type TaskReminder struct {
	TaskID      uuid.UUID      `json:"taskId" gorm:"primaryKey;type:uuid"`
	UserID      uuid.UUID      `json:"userId" gorm:"primaryKey;type:uuid"`
	Status      ReminderStatus `json:"status" gorm:"type:varchar(16);not null;default:'PENDING'"`
	SnoozeUntil *time.Time     `json:"snoozeUntil"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

type ReminderLabel string

const (
	LabelUpcoming ReminderLabel = "Upcoming"
	LabelDueToday ReminderLabel = "Due Today"
	LabelOverdue  ReminderLabel = "Overdue"
)

// Reminder is the read-time projection returned to callers.
type Reminder struct {
	TaskID         uuid.UUID     `json:"id"`
	Title          string        `json:"title"`
	DueDate        time.Time     `json:"dueDate"`
	DaysRemaining  int           `json:"daysRemaining"`
	Status         ReminderLabel `json:"status"`
	OriginalStatus TaskStatus    `json:"originalStatus"`
	Priority       Priority      `json:"priority"`
}
