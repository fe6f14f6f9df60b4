package repositories

import (
	"context"
	"time"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"

	"hrmspro/backend/internal/models"
)

// notDeleted is the default listing predicate.
func notDeleted(db *gorm.DB) *gorm.DB {
	return db.Where("is_deleted = ?", false)
}

func taskFilterScope(f models.TaskFilter) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if !f.IncludeDeleted {
			db = notDeleted(db)
		}
		if f.AssigneeID != nil {
			db = db.Where("assignee_id = ?", *f.AssigneeID)
		}
		if f.CreatedByID != nil {
			db = db.Where("created_by_id = ?", *f.CreatedByID)
		}
		if f.Status != nil {
			db = db.Where("status = ?", *f.Status)
		}
		if f.StatusNot != nil {
			db = db.Where("status <> ?", *f.StatusNot)
		}
		if f.ExcludeID != nil {
			db = db.Where("id <> ?", *f.ExcludeID)
		}
		if f.HasDueDate || f.DueOnOrBefore != nil || f.DueOnOrAfter != nil {
			db = db.Where("due_date IS NOT NULL")
		}
		if f.DueOnOrBefore != nil {
			db = db.Where("due_date <= ?", *f.DueOnOrBefore)
		}
		if f.DueOnOrAfter != nil {
			db = db.Where("due_date >= ?", *f.DueOnOrAfter)
		}
		switch f.OrderBy {
		case models.OrderDueAsc:
			db = db.Order("due_date IS NULL").Order("due_date ASC")
		case models.OrderUpdatedDesc:
			db = db.Order("updated_at DESC")
		default:
			db = db.Order("created_at DESC")
		}
		return db
	}
}

// taskColumns maps a partial update onto column assignments. Only
// supplied fields appear in the result.
func taskColumns(u models.TaskUpdate) map[string]interface{} {
	cols := make(map[string]interface{})
	if u.Title != nil {
		cols["title"] = *u.Title
	}
	if u.Notes != nil {
		cols["notes"] = *u.Notes
	}
	if u.Status != nil {
		cols["status"] = *u.Status
	}
	if u.Priority != nil {
		cols["priority"] = *u.Priority
	}
	if u.ClearDueDate {
		cols["due_date"] = nil
	}
	if u.DueDate != nil {
		cols["due_date"] = *u.DueDate
	}
	if u.AssignedHours != nil {
		cols["assigned_hours"] = *u.AssignedHours
	}
	if u.AssigneeID != nil {
		cols["assignee_id"] = *u.AssigneeID
	}
	if u.FileURLManager != nil {
		cols["file_url_manager"] = *u.FileURLManager
	}
	if u.FileURLOperator != nil {
		cols["file_url_operator"] = *u.FileURLOperator
	}
	if u.IsDeleted != nil {
		cols["is_deleted"] = *u.IsDeleted
	}
	if u.UpdatedAt != nil {
		cols["updated_at"] = *u.UpdatedAt
	} else {
		cols["updated_at"] = time.Now()
	}
	return cols
}

func (s *GormStore) CreateTask(ctx context.Context, task *models.Task) error {
	return translate(s.conn(ctx).Create(task).Error)
}

func (s *GormStore) GetTask(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	var task models.Task
	if err := s.conn(ctx).Where("id = ?", id).First(&task).Error; err != nil {
		return nil, translate(err)
	}
	return &task, nil
}

func (s *GormStore) UpdateTask(ctx context.Context, id uuid.UUID, update models.TaskUpdate) (*models.Task, error) {
	db := s.conn(ctx)
	if _, err := s.GetTask(ctx, id); err != nil {
		return nil, err
	}
	if err := db.Model(&models.Task{}).Where("id = ?", id).Updates(taskColumns(update)).Error; err != nil {
		return nil, translate(err)
	}
	return s.GetTask(ctx, id)
}

func (s *GormStore) ListTasks(ctx context.Context, filter models.TaskFilter) ([]models.Task, error) {
	var tasks []models.Task
	if err := s.conn(ctx).Scopes(taskFilterScope(filter)).Find(&tasks).Error; err != nil {
		return nil, translate(err)
	}
	return tasks, nil
}

func (s *GormStore) FindTask(ctx context.Context, filter models.TaskFilter) (*models.Task, error) {
	var task models.Task
	if err := s.conn(ctx).Scopes(taskFilterScope(filter)).First(&task).Error; err != nil {
		return nil, translate(err)
	}
	return &task, nil
}

func (s *GormStore) SoftDeleteTask(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	deleted := true
	return s.UpdateTask(ctx, id, models.TaskUpdate{IsDeleted: &deleted})
}
