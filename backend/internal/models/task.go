package models

import (
	"strings"
	"time"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

type TaskStatus string

const (
	StatusTodo    TaskStatus = "TODO"
	StatusWorking TaskStatus = "WORKING"
	StatusStuck   TaskStatus = "STUCK"
	StatusDone    TaskStatus = "DONE"
)

func ParseTaskStatus(s string) (TaskStatus, bool) {
	switch st := TaskStatus(strings.ToUpper(strings.TrimSpace(s))); st {
	case StatusTodo, StatusWorking, StatusStuck, StatusDone:
		return st, true
	}
	return "", false
}

type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
)

func ParsePriority(s string) (Priority, bool) {
	switch p := Priority(strings.ToUpper(strings.TrimSpace(s))); p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return p, true
	}
	return "", false
}

type Task struct {
	ID              uuid.UUID  `json:"id" gorm:"primaryKey;type:uuid"`
	Title           string     `json:"title" gorm:"not null"`
	Notes           *string    `json:"notes"`
	Status          TaskStatus `json:"status" gorm:"type:varchar(16);not null;default:'TODO';index"`
	Priority        Priority   `json:"priority" gorm:"type:varchar(16);not null;default:'MEDIUM'"`
	DueDate         *time.Time `json:"dueDate"`
	AssignedHours   *int       `json:"assignedHours"`
	CreatedByID     uuid.UUID  `json:"createdById" gorm:"type:uuid;not null;index"`
	AssigneeID      *uuid.UUID `json:"assigneeId" gorm:"type:uuid;index"`
	FileURLManager  *string    `json:"fileUrl_manager" gorm:"column:file_url_manager"`
	FileURLOperator *string    `json:"fileUrl_operator" gorm:"column:file_url_operator"`
	IsDeleted       bool       `json:"isDeleted" gorm:"not null;default:false;index"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

func (t *Task) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		id, err := uuid.NewV4()
		if err != nil {
			return err
		}
		t.ID = id
	}
	if t.Status == "" {
		t.Status = StatusTodo
	}
	if t.Priority == "" {
		t.Priority = PriorityMedium
	}
	return nil
}

// IsAssignee reports whether id is the task's current assignee.
func (t *Task) IsAssignee(id uuid.UUID) bool {
	return t.AssigneeID != nil && *t.AssigneeID == id
}

func (t *Task) IsCreator(id uuid.UUID) bool {
	return t.CreatedByID == id
}

// TaskUpdate is a partial update: nil fields are left untouched.
// The Clear* flags null out an optional column explicitly.
type TaskUpdate struct {
	Title           *string
	Notes           *string
	Status          *TaskStatus
	Priority        *Priority
	DueDate         *time.Time
	ClearDueDate    bool
	AssignedHours   *int
	AssigneeID      *uuid.UUID
	FileURLManager  *string
	FileURLOperator *string
	IsDeleted       *bool
	UpdatedAt       *time.Time
}

func (u TaskUpdate) IsEmpty() bool {
	return u.Title == nil && u.Notes == nil && u.Status == nil && u.Priority == nil &&
		u.DueDate == nil && !u.ClearDueDate && u.AssignedHours == nil && u.AssigneeID == nil &&
		u.FileURLManager == nil && u.FileURLOperator == nil && u.IsDeleted == nil && u.UpdatedAt == nil
}

// Apply copies the supplied fields onto t.
func (u TaskUpdate) Apply(t *Task) {
	if u.Title != nil {
		t.Title = *u.Title
	}
	if u.Notes != nil {
		t.Notes = u.Notes
	}
	if u.Status != nil {
		t.Status = *u.Status
	}
	if u.Priority != nil {
		t.Priority = *u.Priority
	}
	if u.ClearDueDate {
		t.DueDate = nil
	}
	if u.DueDate != nil {
		t.DueDate = u.DueDate
	}
	if u.AssignedHours != nil {
		t.AssignedHours = u.AssignedHours
	}
	if u.AssigneeID != nil {
		id := *u.AssigneeID
		t.AssigneeID = &id
	}
	if u.FileURLManager != nil {
		t.FileURLManager = u.FileURLManager
	}
	if u.FileURLOperator != nil {
		t.FileURLOperator = u.FileURLOperator
	}
	if u.IsDeleted != nil {
		t.IsDeleted = *u.IsDeleted
	}
	if u.UpdatedAt != nil {
		t.UpdatedAt = *u.UpdatedAt
	}
}

type TaskOrder int

const (
	OrderCreatedDesc TaskOrder = iota
	OrderDueAsc
	OrderUpdatedDesc
)

// TaskFilter selects tasks. Soft-deleted tasks are excluded unless
// IncludeDeleted is set.
type TaskFilter struct {
	AssigneeID     *uuid.UUID
	CreatedByID    *uuid.UUID
	Status         *TaskStatus
	StatusNot      *TaskStatus
	ExcludeID      *uuid.UUID
	DueOnOrBefore  *time.Time
	DueOnOrAfter   *time.Time
	HasDueDate     bool
	IncludeDeleted bool
	OrderBy        TaskOrder
}

// Matches evaluates the filter in memory.
func (f TaskFilter) Matches(t *Task) bool {
	if !f.IncludeDeleted && t.IsDeleted {
		return false
	}
	if f.AssigneeID != nil && !t.IsAssignee(*f.AssigneeID) {
		return false
	}
	if f.CreatedByID != nil && t.CreatedByID != *f.CreatedByID {
		return false
	}
	if f.Status != nil && t.Status != *f.Status {
		return false
	}
	if f.StatusNot != nil && t.Status == *f.StatusNot {
		return false
	}
	if f.ExcludeID != nil && t.ID == *f.ExcludeID {
		return false
	}
	if (f.HasDueDate || f.DueOnOrBefore != nil || f.DueOnOrAfter != nil) && t.DueDate == nil {
		return false
	}
	if f.DueOnOrBefore != nil && t.DueDate.After(*f.DueOnOrBefore) {
		return false
	}
	if f.DueOnOrAfter != nil && t.DueDate.Before(*f.DueOnOrAfter) {
		return false
	}
	return true
}
