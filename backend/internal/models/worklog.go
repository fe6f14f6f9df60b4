package models

import (
	"time"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

// TaskWorkLog is one contiguous work session. EndTime nil means the
// session is still open.
type TaskWorkLog struct {
	ID        uuid.UUID  `json:"id" gorm:"primaryKey;type:uuid"`
	TaskID    uuid.UUID  `json:"taskId" gorm:"type:uuid;not null;index"`
	UserID    uuid.UUID  `json:"userId" gorm:"type:uuid;not null;index"`
	StartTime time.Time  `json:"startTime" gorm:"not null"`
	EndTime   *time.Time `json:"endTime"`
}

func (l *TaskWorkLog) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		id, err := uuid.NewV4()
		if err != nil {
			return err
		}
		l.ID = id
	}
	return nil
}

func (l *TaskWorkLog) IsOpen() bool {
	return l.EndTime == nil
}

// Duration returns the session length, counting an open session up to now.
func (l *TaskWorkLog) Duration(now time.Time) time.Duration {
	end := now
	if l.EndTime != nil {
		end = *l.EndTime
	}
	if end.Before(l.StartTime) {
		return 0
	}
	return end.Sub(l.StartTime)
}
