package services

import (
	"context"
	"strings"

	"github.com/gofrs/uuid"

	"hrmspro/backend/internal/apperr"
	"hrmspro/backend/internal/authz"
	"hrmspro/backend/internal/clock"
	"hrmspro/backend/internal/models"
	"hrmspro/backend/internal/repositories"
)

type CommentService interface {
	AddComment(ctx context.Context, p models.Principal, taskID uuid.UUID, content string) (*models.TaskComment, error)
	ListComments(ctx context.Context, p models.Principal, taskID uuid.UUID) ([]models.TaskComment, error)
	MarkSeen(ctx context.Context, p models.Principal, taskID uuid.UUID) (int64, error)
}

type CommentServiceImpl struct {
	store repositories.Store
	clock clock.Clock
}

func NewCommentService(store repositories.Store, clk clock.Clock) *CommentServiceImpl {
	return &CommentServiceImpl{store: store, clock: clk}
}

// AddComment stores a comment as read by its author's side and unread by
// the other party.
func (s *CommentServiceImpl) AddComment(ctx context.Context, p models.Principal, taskID uuid.UUID, content string) (*models.TaskComment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperr.Validation("comment content is required")
	}

	task, err := loadTask(ctx, s.store, taskID)
	if err != nil {
		return nil, err
	}
	side, decision := authz.SeenSide(p, task)
	if err := decision.Err(); err != nil {
		return nil, err
	}

	comment := &models.TaskComment{
		TaskID:         taskID,
		AuthorID:       p.ID,
		Content:        content,
		SeenByAssignee: side == models.SeenByAssignee,
		SeenByManager:  side == models.SeenByManager,
		CreatedAt:      s.clock.Now(),
	}
	if err := s.store.CreateComment(ctx, comment); err != nil {
		return nil, storeErr(err, "comment")
	}
	return comment, nil
}

func (s *CommentServiceImpl) ListComments(ctx context.Context, p models.Principal, taskID uuid.UUID) ([]models.TaskComment, error) {
	task, err := loadTask(ctx, s.store, taskID)
	if err != nil {
		return nil, err
	}
	if err := authz.CanAccessComments(p, task).Err(); err != nil {
		return nil, err
	}

	comments, err := s.store.ListComments(ctx, taskID)
	if err != nil {
		return nil, storeErr(err, "comment")
	}
	if comments == nil {
		comments = []models.TaskComment{}
	}
	return comments, nil
}

// MarkSeen flags the whole thread as read for the caller's side and
// returns how many comments were touched.
func (s *CommentServiceImpl) MarkSeen(ctx context.Context, p models.Principal, taskID uuid.UUID) (int64, error) {
	task, err := loadTask(ctx, s.store, taskID)
	if err != nil {
		return 0, err
	}
	side, decision := authz.SeenSide(p, task)
	if err := decision.Err(); err != nil {
		return 0, err
	}

	n, err := s.store.MarkCommentsSeen(ctx, taskID, side)
	return n, storeErr(err, "comment")
}
