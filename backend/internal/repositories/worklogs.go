package repositories

import (
	"context"
	"time"

	"github.com/gofrs/uuid"

	"hrmspro/backend/internal/models"
)

func (s *GormStore) OpenWorkLog(ctx context.Context, log *models.TaskWorkLog) error {
	return translate(s.conn(ctx).Create(log).Error)
}

func (s *GormStore) CloseOpenWorkLogs(ctx context.Context, taskID, userID uuid.UUID, end time.Time) (int64, error) {
	result := s.conn(ctx).Model(&models.TaskWorkLog{}).
		Where("task_id = ? AND user_id = ? AND end_time IS NULL", taskID, userID).
		Update("end_time", end)
	return result.RowsAffected, translate(result.Error)
}

func (s *GormStore) ListWorkLogs(ctx context.Context, taskID uuid.UUID) ([]models.TaskWorkLog, error) {
	var logs []models.TaskWorkLog
	err := s.conn(ctx).Where("task_id = ?", taskID).Order("start_time ASC").Find(&logs).Error
	return logs, translate(err)
}

func (s *GormStore) ListWorkLogsByUser(ctx context.Context, userID uuid.UUID) ([]models.TaskWorkLog, error) {
	var logs []models.TaskWorkLog
	err := s.conn(ctx).Where("user_id = ?", userID).Order("start_time ASC").Find(&logs).Error
	return logs, translate(err)
}
