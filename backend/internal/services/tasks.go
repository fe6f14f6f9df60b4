package services

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/gofrs/uuid"

	"hrmspro/backend/internal/apperr"
	"hrmspro/backend/internal/authz"
	"hrmspro/backend/internal/clock"
	"hrmspro/backend/internal/lock"
	"hrmspro/backend/internal/models"
	"hrmspro/backend/internal/repositories"
	"hrmspro/backend/internal/storage"
)

type TaskService interface {
	CreateTask(ctx context.Context, p models.Principal, in CreateTaskInput) (*models.Task, error)
	GetTask(ctx context.Context, p models.Principal, id uuid.UUID) (*models.Task, error)
	UpdateTask(ctx context.Context, p models.Principal, id uuid.UUID, in UpdateTaskInput) (*models.Task, error)
	ListTasks(ctx context.Context, p models.Principal, filter models.TaskFilter) ([]models.Task, error)
	SetStatus(ctx context.Context, p models.Principal, id uuid.UUID, status models.TaskStatus) (*models.Task, error)
	SetPriority(ctx context.Context, p models.Principal, id uuid.UUID, priority models.Priority) (*models.Task, error)
	TransferTask(ctx context.Context, p models.Principal, id uuid.UUID, to AssigneeRef) (*models.Task, error)
	DeleteTask(ctx context.Context, p models.Principal, id uuid.UUID) (*models.Task, error)
	AttachOperatorFile(ctx context.Context, p models.Principal, id uuid.UUID, file FileUpload) (*models.Task, error)
	WorkSummary(ctx context.Context, p models.Principal, id uuid.UUID) (*WorkSummary, error)
}

// FileUpload is an attachment received from a client.
type FileUpload struct {
	Name        string
	ContentType string
	Body        io.Reader
}

// AssigneeRef names an assignee either by user id or by employee profile
// id. UserID wins when both are set.
type AssigneeRef struct {
	UserID     *uuid.UUID
	EmployeeID *uuid.UUID
}

func (r AssigneeRef) IsZero() bool {
	return r.UserID == nil && r.EmployeeID == nil
}

type CreateTaskInput struct {
	Title         string
	Notes         *string
	Priority      *models.Priority
	DueDate       *time.Time
	AssignedHours *int
	Assignee      AssigneeRef
	File          *FileUpload
}

type UpdateTaskInput struct {
	Title         *string
	Notes         *string
	DueDate       *time.Time
	ClearDueDate  bool
	AssignedHours *int
	Assignee      AssigneeRef
	File          *FileUpload
}

type WorkSummary struct {
	TaskID       uuid.UUID            `json:"taskId"`
	Status       models.TaskStatus    `json:"status"`
	Sessions     int                  `json:"sessions"`
	Running      bool                 `json:"running"`
	TotalSeconds int64                `json:"totalSeconds"`
	Logs         []models.TaskWorkLog `json:"logs"`
}

// errAssigneeMoved signals that the task changed hands between reading it
// and taking the assignee lock.
var errAssigneeMoved = errors.New("assignee changed while waiting for lock")

const assigneeLockAttempts = 3

type TaskServiceImpl struct {
	store   repositories.Store
	locker  lock.Locker
	files   storage.FileStore
	buckets storage.Buckets
	clock   clock.Clock
}

func NewTaskService(store repositories.Store, locker lock.Locker, files storage.FileStore, buckets storage.Buckets, clk clock.Clock) *TaskServiceImpl {
	return &TaskServiceImpl{
		store:   store,
		locker:  locker,
		files:   files,
		buckets: buckets,
		clock:   clk,
	}
}

// loadTask fetches a live task. Soft-deleted tasks are reported as absent.
func loadTask(ctx context.Context, store repositories.Store, id uuid.UUID) (*models.Task, error) {
	task, err := store.GetTask(ctx, id)
	if err != nil {
		return nil, storeErr(err, "task")
	}
	if task.IsDeleted {
		return nil, apperr.NotFound("task")
	}
	return task, nil
}

// resolveAssignee turns a reference into a user id, checking it exists.
func resolveAssignee(ctx context.Context, store repositories.Store, ref AssigneeRef) (uuid.UUID, error) {
	if ref.UserID != nil {
		if _, err := store.GetUser(ctx, *ref.UserID); err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return uuid.Nil, apperr.Validation("assignee not found")
			}
			return uuid.Nil, storeErr(err, "user")
		}
		return *ref.UserID, nil
	}
	if ref.EmployeeID != nil {
		employee, err := store.GetEmployee(ctx, *ref.EmployeeID)
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return uuid.Nil, apperr.Validation("invalid employee id")
			}
			return uuid.Nil, storeErr(err, "employee")
		}
		return employee.UserID, nil
	}
	return uuid.Nil, apperr.Validation("assignee required")
}

func validateHours(hours *int) error {
	if hours != nil && *hours < 0 {
		return apperr.Validation("assignedHours must not be negative")
	}
	return nil
}

func (s *TaskServiceImpl) upload(ctx context.Context, bucket string, file *FileUpload) (string, error) {
	if s.files == nil {
		return "", apperr.Upstream("file storage is not configured", nil)
	}
	name := storage.ObjectName(s.clock.Now(), file.Name)
	url, err := s.files.Upload(ctx, bucket, name, file.ContentType, file.Body)
	if err != nil {
		return "", fileErr(err)
	}
	return url, nil
}

func (s *TaskServiceImpl) CreateTask(ctx context.Context, p models.Principal, in CreateTaskInput) (*models.Task, error) {
	if err := authz.CanCreateTask(p).Err(); err != nil {
		return nil, err
	}

	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, apperr.Validation("title is required")
	}
	if err := validateHours(in.AssignedHours); err != nil {
		return nil, err
	}
	priority := models.PriorityMedium
	if in.Priority != nil {
		if _, ok := models.ParsePriority(string(*in.Priority)); !ok {
			return nil, apperr.Validation("invalid priority %q", *in.Priority)
		}
		priority = *in.Priority
	}

	now := s.clock.Now()
	task := &models.Task{
		Title:         title,
		Notes:         in.Notes,
		Status:        models.StatusTodo,
		Priority:      priority,
		DueDate:       in.DueDate,
		AssignedHours: in.AssignedHours,
		CreatedByID:   p.ID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if !in.Assignee.IsZero() {
		assignee, err := resolveAssignee(ctx, s.store, in.Assignee)
		if err != nil {
			return nil, err
		}
		task.AssigneeID = &assignee
	}

	if in.File != nil {
		url, err := s.upload(ctx, s.buckets.Manager, in.File)
		if err != nil {
			return nil, err
		}
		task.FileURLManager = &url
	}

	if err := s.store.CreateTask(ctx, task); err != nil {
		return nil, storeErr(err, "task")
	}
	return task, nil
}

func (s *TaskServiceImpl) GetTask(ctx context.Context, p models.Principal, id uuid.UUID) (*models.Task, error) {
	task, err := loadTask(ctx, s.store, id)
	if err != nil {
		return nil, err
	}
	if err := authz.CanViewTask(p, task).Err(); err != nil {
		return nil, err
	}
	return task, nil
}

func (s *TaskServiceImpl) UpdateTask(ctx context.Context, p models.Principal, id uuid.UUID, in UpdateTaskInput) (*models.Task, error) {
	task, err := loadTask(ctx, s.store, id)
	if err != nil {
		return nil, err
	}
	if err := authz.CanEditTask(p, task).Err(); err != nil {
		return nil, err
	}

	update := models.TaskUpdate{
		Notes:         in.Notes,
		DueDate:       in.DueDate,
		ClearDueDate:  in.ClearDueDate && in.DueDate == nil,
		AssignedHours: in.AssignedHours,
	}
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return nil, apperr.Validation("title must not be empty")
		}
		update.Title = &title
	}
	if err := validateHours(in.AssignedHours); err != nil {
		return nil, err
	}
	if !in.Assignee.IsZero() {
		assignee, err := resolveAssignee(ctx, s.store, in.Assignee)
		if err != nil {
			return nil, err
		}
		// a new assignee starts the task over, as in TransferTask
		update.AssigneeID = &assignee
		if !task.IsAssignee(assignee) {
			todo := models.StatusTodo
			update.Status = &todo
		}
	}
	if in.File != nil {
		url, err := s.upload(ctx, s.buckets.Manager, in.File)
		if err != nil {
			return nil, err
		}
		update.FileURLManager = &url
	}
	if update.IsEmpty() {
		return nil, apperr.Validation("no fields to update")
	}

	now := s.clock.Now()
	update.UpdatedAt = &now
	updated, err := s.store.UpdateTask(ctx, id, update)
	return updated, storeErr(err, "task")
}

func (s *TaskServiceImpl) ListTasks(ctx context.Context, p models.Principal, filter models.TaskFilter) ([]models.Task, error) {
	tasks, err := s.store.ListTasks(ctx, authz.ScopeTaskList(p, filter))
	if err != nil {
		return nil, storeErr(err, "task")
	}
	if tasks == nil {
		tasks = []models.Task{}
	}
	return tasks, nil
}

// withAssigneeLock runs fn in one store transaction while holding the
// assignee's lock. The task is re-read inside the transaction; if it was
// reassigned meanwhile the sequence restarts under the new assignee.
func (s *TaskServiceImpl) withAssigneeLock(ctx context.Context, id uuid.UUID, fn func(tx repositories.Store, task *models.Task) error) error {
	for attempt := 0; attempt < assigneeLockAttempts; attempt++ {
		task, err := loadTask(ctx, s.store, id)
		if err != nil {
			return err
		}
		if task.AssigneeID == nil {
			return s.store.Transact(ctx, "", func(tx repositories.Store) error {
				current, err := loadTask(ctx, tx, id)
				if err != nil {
					return err
				}
				if current.AssigneeID != nil {
					return errAssigneeMoved
				}
				return fn(tx, current)
			})
		}

		assignee := *task.AssigneeID
		key := lock.AssigneeKey(assignee.String())
		unlock, err := s.locker.Lock(ctx, key)
		if err != nil {
			return apperr.Upstream("could not acquire assignee lock", err)
		}

		err = s.store.Transact(ctx, key, func(tx repositories.Store) error {
			current, err := loadTask(ctx, tx, id)
			if err != nil {
				return err
			}
			if !current.IsAssignee(assignee) {
				return errAssigneeMoved
			}
			return fn(tx, current)
		})
		unlock()

		if !errors.Is(err, errAssigneeMoved) {
			return err
		}
	}
	return apperr.Conflict("ASSIGNEE_CHANGED", "task was reassigned concurrently, retry")
}

func (s *TaskServiceImpl) SetStatus(ctx context.Context, p models.Principal, id uuid.UUID, status models.TaskStatus) (*models.Task, error) {
	if _, ok := models.ParseTaskStatus(string(status)); !ok {
		return nil, apperr.Validation("invalid status %q", status)
	}

	task, err := loadTask(ctx, s.store, id)
	if err != nil {
		return nil, err
	}
	if err := authz.CanSetStatus(p, task).Err(); err != nil {
		return nil, err
	}

	var updated *models.Task
	err = s.withAssigneeLock(ctx, id, func(tx repositories.Store, current *models.Task) error {
		if err := authz.CanSetStatus(p, current).Err(); err != nil {
			return err
		}

		plan := planStatusChange(current.Status, status)
		if plan.CheckExclusive {
			if current.AssigneeID == nil {
				return apperr.Validation("task has no assignee to work on it")
			}
			working := models.StatusWorking
			running, err := tx.FindTask(ctx, models.TaskFilter{
				AssigneeID: current.AssigneeID,
				Status:     &working,
				ExcludeID:  &current.ID,
			})
			if err == nil {
				return apperr.ActiveTaskExists(running.ID, running.Title)
			}
			if !errors.Is(err, repositories.ErrNotFound) {
				return err
			}
		}

		// status first, then the log; both commit or neither does
		now := s.clock.Now()
		task, err := tx.UpdateTask(ctx, id, models.TaskUpdate{Status: &status, UpdatedAt: &now})
		if err != nil {
			if plan.CheckExclusive && errors.Is(err, repositories.ErrDuplicate) {
				return apperr.Conflict(apperr.CodeActiveTaskExists, "another task is already in progress")
			}
			return err
		}
		updated = task

		if plan.OpenLog {
			if err := tx.OpenWorkLog(ctx, &models.TaskWorkLog{
				TaskID:    id,
				UserID:    *current.AssigneeID,
				StartTime: now,
			}); err != nil {
				return err
			}
		}
		if plan.CloseLogs && current.AssigneeID != nil {
			if _, err := tx.CloseOpenWorkLogs(ctx, id, *current.AssigneeID, now); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, storeErr(err, "task")
	}
	return updated, nil
}

func (s *TaskServiceImpl) SetPriority(ctx context.Context, p models.Principal, id uuid.UUID, priority models.Priority) (*models.Task, error) {
	if _, ok := models.ParsePriority(string(priority)); !ok {
		return nil, apperr.Validation("invalid priority %q", priority)
	}

	task, err := loadTask(ctx, s.store, id)
	if err != nil {
		return nil, err
	}
	if err := authz.CanSetPriority(p, task).Err(); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	updated, err := s.store.UpdateTask(ctx, id, models.TaskUpdate{Priority: &priority, UpdatedAt: &now})
	return updated, storeErr(err, "task")
}

// TransferTask reassigns the task and resets it to TODO. Work logs left
// open by the previous assignee are not closed.
func (s *TaskServiceImpl) TransferTask(ctx context.Context, p models.Principal, id uuid.UUID, to AssigneeRef) (*models.Task, error) {
	if err := authz.CanTransferTask(p).Err(); err != nil {
		return nil, err
	}
	if _, err := loadTask(ctx, s.store, id); err != nil {
		return nil, err
	}

	assignee, err := resolveAssignee(ctx, s.store, to)
	if err != nil {
		return nil, err
	}

	todo := models.StatusTodo
	now := s.clock.Now()
	updated, err := s.store.UpdateTask(ctx, id, models.TaskUpdate{
		AssigneeID: &assignee,
		Status:     &todo,
		UpdatedAt:  &now,
	})
	return updated, storeErr(err, "task")
}

func (s *TaskServiceImpl) DeleteTask(ctx context.Context, p models.Principal, id uuid.UUID) (*models.Task, error) {
	task, err := loadTask(ctx, s.store, id)
	if err != nil {
		return nil, err
	}
	if err := authz.CanDeleteTask(p, task).Err(); err != nil {
		return nil, err
	}

	deleted, err := s.store.SoftDeleteTask(ctx, id)
	return deleted, storeErr(err, "task")
}

func (s *TaskServiceImpl) AttachOperatorFile(ctx context.Context, p models.Principal, id uuid.UUID, file FileUpload) (*models.Task, error) {
	task, err := loadTask(ctx, s.store, id)
	if err != nil {
		return nil, err
	}
	if err := authz.CanAttachOperatorFile(p, task).Err(); err != nil {
		return nil, err
	}
	if file.Body == nil {
		return nil, apperr.Validation("file is required")
	}

	url, err := s.upload(ctx, s.buckets.Operator, &file)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	updated, err := s.store.UpdateTask(ctx, id, models.TaskUpdate{FileURLOperator: &url, UpdatedAt: &now})
	return updated, storeErr(err, "task")
}

func (s *TaskServiceImpl) WorkSummary(ctx context.Context, p models.Principal, id uuid.UUID) (*WorkSummary, error) {
	task, err := loadTask(ctx, s.store, id)
	if err != nil {
		return nil, err
	}
	if err := authz.CanSetStatus(p, task).Err(); err != nil {
		return nil, err
	}

	logs, err := s.store.ListWorkLogs(ctx, id)
	if err != nil {
		return nil, storeErr(err, "work log")
	}

	now := s.clock.Now()
	summary := &WorkSummary{TaskID: id, Status: task.Status, Sessions: len(logs), Logs: logs}
	var total time.Duration
	for i := range logs {
		total += logs[i].Duration(now)
		if logs[i].IsOpen() {
			summary.Running = true
		}
	}
	summary.TotalSeconds = int64(total / time.Second)
	if summary.Logs == nil {
		summary.Logs = []models.TaskWorkLog{}
	}
	return summary, nil
}
