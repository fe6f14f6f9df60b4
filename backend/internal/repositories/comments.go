package repositories

import (
	"context"
	"fmt"

	"github.com/gofrs/uuid"

	"hrmspro/backend/internal/models"
)

func (s *GormStore) CreateComment(ctx context.Context, comment *models.TaskComment) error {
	return translate(s.conn(ctx).Create(comment).Error)
}

func (s *GormStore) ListComments(ctx context.Context, taskID uuid.UUID) ([]models.TaskComment, error) {
	var comments []models.TaskComment
	err := s.conn(ctx).Where("task_id = ?", taskID).Order("created_at ASC").Find(&comments).Error
	return comments, translate(err)
}

func (s *GormStore) MarkCommentsSeen(ctx context.Context, taskID uuid.UUID, side models.SeenSide) (int64, error) {
	var column string
	switch side {
	case models.SeenByAssignee:
		column = "seen_by_assignee"
	case models.SeenByManager:
		column = "seen_by_manager"
	default:
		return 0, fmt.Errorf("unknown seen side %q", side)
	}

	result := s.conn(ctx).Model(&models.TaskComment{}).Where("task_id = ?", taskID).Update(column, true)
	return result.RowsAffected, translate(result.Error)
}
