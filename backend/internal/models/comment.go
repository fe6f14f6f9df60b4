package models

import (
	"time"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

type TaskComment struct {
	ID             uuid.UUID `json:"id" gorm:"primaryKey;type:uuid"`
	TaskID         uuid.UUID `json:"taskId" gorm:"type:uuid;not null;index"`
	AuthorID       uuid.UUID `json:"authorId" gorm:"type:uuid;not null"`
	Content        string    `json:"content" gorm:"type:text;not null"`
	SeenByAssignee bool      `json:"seenByAssignee" gorm:"not null;default:false"`
	SeenByManager  bool      `json:"seenByManager" gorm:"not null;default:false"`
	CreatedAt      time.Time `json:"createdAt"`
}

func (c *TaskComment) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		id, err := uuid.NewV4()
		if err != nil {
			return err
		}
		c.ID = id
	}
	return nil
}

// SeenSide names which party's read flag an operation touches.
type SeenSide string

const (
	SeenByAssignee SeenSide = "assignee"
	SeenByManager  SeenSide = "manager"
)
