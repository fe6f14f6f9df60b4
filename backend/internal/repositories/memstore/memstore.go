// Package memstore is an in-process implementation of repositories.Store
// used for local development and tests.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/uuid"

	"hrmspro/backend/internal/clock"
	"hrmspro/backend/internal/models"
	"hrmspro/backend/internal/repositories"
)

type data struct {
	seq        int64
	tasks      map[uuid.UUID]models.Task
	taskSeq    map[uuid.UUID]int64
	logs       map[uuid.UUID]models.TaskWorkLog
	logSeq     map[uuid.UUID]int64
	comments   map[uuid.UUID]models.TaskComment
	commentSeq map[uuid.UUID]int64
	reminders  map[reminderKey]models.TaskReminder
	users      map[uuid.UUID]models.User
	employees  map[uuid.UUID]models.Employee
}

type reminderKey struct {
	taskID uuid.UUID
	userID uuid.UUID
}

func newData() *data {
	return &data{
		tasks:      make(map[uuid.UUID]models.Task),
		taskSeq:    make(map[uuid.UUID]int64),
		logs:       make(map[uuid.UUID]models.TaskWorkLog),
		logSeq:     make(map[uuid.UUID]int64),
		comments:   make(map[uuid.UUID]models.TaskComment),
		commentSeq: make(map[uuid.UUID]int64),
		reminders:  make(map[reminderKey]models.TaskReminder),
		users:      make(map[uuid.UUID]models.User),
		employees:  make(map[uuid.UUID]models.Employee),
	}
}

func (d *data) clone() *data {
	c := newData()
	c.seq = d.seq
	for k, v := range d.tasks {
		c.tasks[k] = v
	}
	for k, v := range d.taskSeq {
		c.taskSeq[k] = v
	}
	for k, v := range d.logs {
		c.logs[k] = v
	}
	for k, v := range d.logSeq {
		c.logSeq[k] = v
	}
	for k, v := range d.comments {
		c.comments[k] = v
	}
	for k, v := range d.commentSeq {
		c.commentSeq[k] = v
	}
	for k, v := range d.reminders {
		c.reminders[k] = v
	}
	for k, v := range d.users {
		c.users[k] = v
	}
	for k, v := range d.employees {
		c.employees[k] = v
	}
	return c
}

func (d *data) next() int64 {
	d.seq++
	return d.seq
}

// Store guards all state with one mutex. A transactional view shares the
// state but skips locking because Transact already holds the mutex.
type Store struct {
	mu    *sync.Mutex
	d     *data
	clock clock.Clock
	inTx  bool
}

var _ repositories.Store = (*Store)(nil)

func New() *Store {
	return NewWithClock(clock.Real())
}

// NewWithClock stamps missing timestamps from clk.
func NewWithClock(clk clock.Clock) *Store {
	return &Store{mu: &sync.Mutex{}, d: newData(), clock: clk}
}

func (s *Store) lock() func() {
	if s.inTx {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

// Transact serializes every transaction and restores the previous state if
// fn fails.
func (s *Store) Transact(ctx context.Context, lockKey string, fn func(tx repositories.Store) error) error {
	if s.inTx {
		return fn(s)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	snapshot := s.d.clone()
	tx := &Store{mu: s.mu, d: s.d, clock: s.clock, inTx: true}
	if err := fn(tx); err != nil {
		*s.d = *snapshot
		return err
	}
	return nil
}

func newID() (uuid.UUID, error) {
	return uuid.NewV4()
}

func (s *Store) stamp(t *time.Time) {
	if t.IsZero() {
		*t = s.clock.Now()
	}
}

// Tasks

func (s *Store) CreateTask(ctx context.Context, task *models.Task) error {
	defer s.lock()()
	if task.ID == uuid.Nil {
		id, err := newID()
		if err != nil {
			return err
		}
		task.ID = id
	}
	if _, exists := s.d.tasks[task.ID]; exists {
		return repositories.ErrDuplicate
	}
	s.stamp(&task.CreatedAt)
	if task.UpdatedAt.IsZero() {
		task.UpdatedAt = task.CreatedAt
	}
	if task.Status == "" {
		task.Status = models.StatusTodo
	}
	if task.Priority == "" {
		task.Priority = models.PriorityMedium
	}
	s.d.tasks[task.ID] = *task
	s.d.taskSeq[task.ID] = s.d.next()
	return nil
}

func (s *Store) GetTask(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	defer s.lock()()
	task, ok := s.d.tasks[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &task, nil
}

func (s *Store) UpdateTask(ctx context.Context, id uuid.UUID, update models.TaskUpdate) (*models.Task, error) {
	defer s.lock()()
	task, ok := s.d.tasks[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	update.Apply(&task)
	if update.UpdatedAt == nil {
		task.UpdatedAt = s.clock.Now()
	}
	s.d.tasks[id] = task
	return &task, nil
}

func (s *Store) ListTasks(ctx context.Context, filter models.TaskFilter) ([]models.Task, error) {
	defer s.lock()()
	return s.listTasks(filter), nil
}

func (s *Store) FindTask(ctx context.Context, filter models.TaskFilter) (*models.Task, error) {
	defer s.lock()()
	tasks := s.listTasks(filter)
	if len(tasks) == 0 {
		return nil, repositories.ErrNotFound
	}
	return &tasks[0], nil
}

func (s *Store) listTasks(filter models.TaskFilter) []models.Task {
	tasks := make([]models.Task, 0)
	for _, task := range s.d.tasks {
		task := task
		if filter.Matches(&task) {
			tasks = append(tasks, task)
		}
	}

	sort.SliceStable(tasks, func(i, j int) bool {
		a, b := tasks[i], tasks[j]
		switch filter.OrderBy {
		case models.OrderDueAsc:
			switch {
			case a.DueDate == nil && b.DueDate == nil:
			case a.DueDate == nil:
				return false
			case b.DueDate == nil:
				return true
			case !a.DueDate.Equal(*b.DueDate):
				return a.DueDate.Before(*b.DueDate)
			}
		case models.OrderUpdatedDesc:
			if !a.UpdatedAt.Equal(b.UpdatedAt) {
				return a.UpdatedAt.After(b.UpdatedAt)
			}
		default:
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.After(b.CreatedAt)
			}
		}
		return s.d.taskSeq[a.ID] < s.d.taskSeq[b.ID]
	})
	return tasks
}

func (s *Store) SoftDeleteTask(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	deleted := true
	return s.UpdateTask(ctx, id, models.TaskUpdate{IsDeleted: &deleted})
}

// Work logs

func (s *Store) OpenWorkLog(ctx context.Context, log *models.TaskWorkLog) error {
	defer s.lock()()
	if log.ID == uuid.Nil {
		id, err := newID()
		if err != nil {
			return err
		}
		log.ID = id
	}
	s.stamp(&log.StartTime)
	s.d.logs[log.ID] = *log
	s.d.logSeq[log.ID] = s.d.next()
	return nil
}

func (s *Store) CloseOpenWorkLogs(ctx context.Context, taskID, userID uuid.UUID, end time.Time) (int64, error) {
	defer s.lock()()
	var closed int64
	for id, log := range s.d.logs {
		if log.TaskID == taskID && log.UserID == userID && log.EndTime == nil {
			endTime := end
			log.EndTime = &endTime
			s.d.logs[id] = log
			closed++
		}
	}
	return closed, nil
}

func (s *Store) ListWorkLogs(ctx context.Context, taskID uuid.UUID) ([]models.TaskWorkLog, error) {
	defer s.lock()()
	return s.listLogs(func(l models.TaskWorkLog) bool { return l.TaskID == taskID }), nil
}

func (s *Store) ListWorkLogsByUser(ctx context.Context, userID uuid.UUID) ([]models.TaskWorkLog, error) {
	defer s.lock()()
	return s.listLogs(func(l models.TaskWorkLog) bool { return l.UserID == userID }), nil
}

func (s *Store) listLogs(keep func(models.TaskWorkLog) bool) []models.TaskWorkLog {
	logs := make([]models.TaskWorkLog, 0)
	for _, log := range s.d.logs {
		if keep(log) {
			logs = append(logs, log)
		}
	}
	sort.Slice(logs, func(i, j int) bool {
		if !logs[i].StartTime.Equal(logs[j].StartTime) {
			return logs[i].StartTime.Before(logs[j].StartTime)
		}
		return s.d.logSeq[logs[i].ID] < s.d.logSeq[logs[j].ID]
	})
	return logs
}

// Comments

func (s *Store) CreateComment(ctx context.Context, comment *models.TaskComment) error {
	defer s.lock()()
	if comment.ID == uuid.Nil {
		id, err := newID()
		if err != nil {
			return err
		}
		comment.ID = id
	}
	s.stamp(&comment.CreatedAt)
	s.d.comments[comment.ID] = *comment
	s.d.commentSeq[comment.ID] = s.d.next()
	return nil
}

func (s *Store) ListComments(ctx context.Context, taskID uuid.UUID) ([]models.TaskComment, error) {
	defer s.lock()()
	comments := make([]models.TaskComment, 0)
	for _, c := range s.d.comments {
		if c.TaskID == taskID {
			comments = append(comments, c)
		}
	}
	sort.Slice(comments, func(i, j int) bool {
		if !comments[i].CreatedAt.Equal(comments[j].CreatedAt) {
			return comments[i].CreatedAt.Before(comments[j].CreatedAt)
		}
		return s.d.commentSeq[comments[i].ID] < s.d.commentSeq[comments[j].ID]
	})
	return comments, nil
}

func (s *Store) MarkCommentsSeen(ctx context.Context, taskID uuid.UUID, side models.SeenSide) (int64, error) {
	defer s.lock()()
	var updated int64
	for id, c := range s.d.comments {
		if c.TaskID != taskID {
			continue
		}
		switch side {
		case models.SeenByAssignee:
			c.SeenByAssignee = true
		case models.SeenByManager:
			c.SeenByManager = true
		}
		s.d.comments[id] = c
		updated++
	}
	return updated, nil
}

// Reminders

func (s *Store) UpsertReminder(ctx context.Context, reminder *models.TaskReminder) error {
	defer s.lock()()
	key := reminderKey{taskID: reminder.TaskID, userID: reminder.UserID}
	now := s.clock.Now()
	if existing, ok := s.d.reminders[key]; ok {
		reminder.CreatedAt = existing.CreatedAt
	} else if reminder.CreatedAt.IsZero() {
		reminder.CreatedAt = now
	}
	if reminder.UpdatedAt.IsZero() {
		reminder.UpdatedAt = now
	}
	s.d.reminders[key] = *reminder
	return nil
}

func (s *Store) GetReminder(ctx context.Context, taskID, userID uuid.UUID) (*models.TaskReminder, error) {
	defer s.lock()()
	r, ok := s.d.reminders[reminderKey{taskID: taskID, userID: userID}]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &r, nil
}

func (s *Store) ListReminders(ctx context.Context, userID uuid.UUID, taskIDs []uuid.UUID) ([]models.TaskReminder, error) {
	defer s.lock()()
	reminders := make([]models.TaskReminder, 0, len(taskIDs))
	for _, taskID := range taskIDs {
		if r, ok := s.d.reminders[reminderKey{taskID: taskID, userID: userID}]; ok {
			reminders = append(reminders, r)
		}
	}
	return reminders, nil
}

// Users and employees

func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	defer s.lock()()
	for _, existing := range s.d.users {
		if strings.EqualFold(existing.Email, user.Email) {
			return repositories.ErrDuplicate
		}
	}
	if user.ID == uuid.Nil {
		id, err := newID()
		if err != nil {
			return err
		}
		user.ID = id
	}
	s.stamp(&user.CreatedAt)
	s.stamp(&user.UpdatedAt)
	s.d.users[user.ID] = *user
	return nil
}

func (s *Store) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	defer s.lock()()
	user, ok := s.d.users[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &user, nil
}

func (s *Store) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	defer s.lock()()
	for _, user := range s.d.users {
		if strings.EqualFold(user.Email, email) {
			u := user
			return &u, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (s *Store) CreateEmployee(ctx context.Context, employee *models.Employee) error {
	defer s.lock()()
	for _, existing := range s.d.employees {
		if existing.UserID == employee.UserID {
			return repositories.ErrDuplicate
		}
	}
	if employee.ID == uuid.Nil {
		id, err := newID()
		if err != nil {
			return err
		}
		employee.ID = id
	}
	if employee.Status == "" {
		employee.Status = models.EmployeeStatusActive
	}
	s.stamp(&employee.CreatedAt)
	s.stamp(&employee.UpdatedAt)
	s.d.employees[employee.ID] = *employee
	return nil
}

func (s *Store) GetEmployee(ctx context.Context, id uuid.UUID) (*models.Employee, error) {
	defer s.lock()()
	employee, ok := s.d.employees[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &employee, nil
}

func (s *Store) FindEmployeeByUser(ctx context.Context, userID uuid.UUID) (*models.Employee, error) {
	defer s.lock()()
	for _, employee := range s.d.employees {
		if employee.UserID == userID {
			e := employee
			return &e, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (s *Store) ListEmployees(ctx context.Context, filter models.EmployeeFilter) ([]models.Employee, error) {
	defer s.lock()()
	employees := make([]models.Employee, 0)
	for _, e := range s.d.employees {
		if filter.ManagerID != nil && (e.ManagerID == nil || *e.ManagerID != *filter.ManagerID) {
			continue
		}
		if filter.Unassigned && e.ManagerID != nil {
			continue
		}
		if filter.OperatorsOnly {
			user, ok := s.d.users[e.UserID]
			if !ok || user.Role != models.RoleOperator {
				continue
			}
		}
		employees = append(employees, e)
	}
	sort.Slice(employees, func(i, j int) bool {
		return employees[i].CreatedAt.After(employees[j].CreatedAt)
	})
	return employees, nil
}

func (s *Store) UpdateEmployee(ctx context.Context, id uuid.UUID, update models.EmployeeUpdate) (*models.Employee, error) {
	defer s.lock()()
	employee, ok := s.d.employees[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	if update.ManagerID != nil {
		managerID := *update.ManagerID
		employee.ManagerID = &managerID
	}
	if update.Name != nil {
		employee.Name = *update.Name
	}
	if update.Department != nil {
		employee.Department = update.Department
	}
	employee.UpdatedAt = s.clock.Now()
	s.d.employees[id] = employee
	return &employee, nil
}
