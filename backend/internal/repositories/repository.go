package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/gofrs/uuid"

	"hrmspro/backend/internal/models"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
)

type TaskRepository interface {
	CreateTask(ctx context.Context, task *models.Task) error
	// GetTask returns soft-deleted tasks too; callers decide visibility.
	GetTask(ctx context.Context, id uuid.UUID) (*models.Task, error)
	// UpdateTask applies only the fields set in update.
	UpdateTask(ctx context.Context, id uuid.UUID, update models.TaskUpdate) (*models.Task, error)
	ListTasks(ctx context.Context, filter models.TaskFilter) ([]models.Task, error)
	// FindTask returns the first task matching filter, or ErrNotFound.
	FindTask(ctx context.Context, filter models.TaskFilter) (*models.Task, error)
	SoftDeleteTask(ctx context.Context, id uuid.UUID) (*models.Task, error)
}

type WorkLogRepository interface {
	OpenWorkLog(ctx context.Context, log *models.TaskWorkLog) error
	// CloseOpenWorkLogs sets endTime on every open log of the task+user and
	// returns how many were closed.
	CloseOpenWorkLogs(ctx context.Context, taskID, userID uuid.UUID, end time.Time) (int64, error)
	ListWorkLogs(ctx context.Context, taskID uuid.UUID) ([]models.TaskWorkLog, error)
	ListWorkLogsByUser(ctx context.Context, userID uuid.UUID) ([]models.TaskWorkLog, error)
}

type CommentRepository interface {
	CreateComment(ctx context.Context, comment *models.TaskComment) error
	// ListComments returns a task's comments oldest first.
	ListComments(ctx context.Context, taskID uuid.UUID) ([]models.TaskComment, error)
	MarkCommentsSeen(ctx context.Context, taskID uuid.UUID, side models.SeenSide) (int64, error)
}

type ReminderRepository interface {
	// UpsertReminder inserts or overwrites the (taskId, userId) overlay.
	UpsertReminder(ctx context.Context, reminder *models.TaskReminder) error
	GetReminder(ctx context.Context, taskID, userID uuid.UUID) (*models.TaskReminder, error)
	ListReminders(ctx context.Context, userID uuid.UUID, taskIDs []uuid.UUID) ([]models.TaskReminder, error)
}

type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)

	CreateEmployee(ctx context.Context, employee *models.Employee) error
	GetEmployee(ctx context.Context, id uuid.UUID) (*models.Employee, error)
	FindEmployeeByUser(ctx context.Context, userID uuid.UUID) (*models.Employee, error)
	ListEmployees(ctx context.Context, filter models.EmployeeFilter) ([]models.Employee, error)
	UpdateEmployee(ctx context.Context, id uuid.UUID, update models.EmployeeUpdate) (*models.Employee, error)
}

// Store is the full persistence contract.
type Store interface {
	TaskRepository
	WorkLogRepository
	CommentRepository
	ReminderRepository
	UserRepository

	// Transact runs fn against a transactional view of the store. lockKey
	// names a resource serialized for the duration of the transaction.
	// Any error from fn rolls back every write made through tx.
	Transact(ctx context.Context, lockKey string, fn func(tx Store) error) error
}
