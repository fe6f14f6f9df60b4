package repositories

import (
	"context"

	"github.com/gofrs/uuid"
	"gorm.io/gorm/clause"

	"hrmspro/backend/internal/models"
)

func (s *GormStore) UpsertReminder(ctx context.Context, reminder *models.TaskReminder) error {
	err := s.conn(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "task_id"}, {Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"status", "snooze_until", "updated_at"}),
	}).Create(reminder).Error
	if err != nil {
		return translate(err)
	}
	// on conflict the caller's struct still holds its own created_at
	err = s.conn(ctx).Where("task_id = ? AND user_id = ?", reminder.TaskID, reminder.UserID).First(reminder).Error
	return translate(err)
}

func (s *GormStore) GetReminder(ctx context.Context, taskID, userID uuid.UUID) (*models.TaskReminder, error) {
	var reminder models.TaskReminder
	if err := s.conn(ctx).Where("task_id = ? AND user_id = ?", taskID, userID).First(&reminder).Error; err != nil {
		return nil, translate(err)
	}
	return &reminder, nil
}

func (s *GormStore) ListReminders(ctx context.Context, userID uuid.UUID, taskIDs []uuid.UUID) ([]models.TaskReminder, error) {
	reminders := make([]models.TaskReminder, 0)
	if len(taskIDs) == 0 {
		return reminders, nil
	}
	err := s.conn(ctx).Where("user_id = ? AND task_id IN ?", userID, taskIDs).Find(&reminders).Error
	return reminders, translate(err)
}
