package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gofrs/uuid"

	"hrmspro/backend/internal/apperr"
	"hrmspro/backend/internal/clock"
	"hrmspro/backend/internal/lock"
	"hrmspro/backend/internal/models"
	"hrmspro/backend/internal/repositories/memstore"
	"hrmspro/backend/internal/storage"
)

var testStart = time.Date(2024, 6, 12, 9, 0, 0, 0, time.UTC)

type testEnv struct {
	store    *memstore.Store
	clock    *clock.FakeClock
	files    *storage.LocalStore
	tasks    *TaskServiceImpl
	comments *CommentServiceImpl

	manager  models.Principal
	pm       models.Principal
	operator models.Principal
	other    models.Principal
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	files, err := storage.NewLocalStore(t.TempDir(), "http://localhost/uploads")
	if err != nil {
		t.Fatalf("Failed to create local store: %v", err)
	}

	clk := clock.Fake(testStart)
	env := &testEnv{
		store: memstore.NewWithClock(clk),
		clock: clk,
		files: files,
	}
	env.tasks = NewTaskService(env.store, lock.NewKeyedMutex(), files, storage.Buckets{Manager: "manager", Operator: "operator"}, env.clock)
	env.comments = NewCommentService(env.store, env.clock)

	env.manager = env.addUser(t, "manager@example.com", models.RoleManager)
	env.pm = env.addUser(t, "pm@example.com", models.RoleProjectManager)
	env.operator = env.addUser(t, "op@example.com", models.RoleOperator)
	env.other = env.addUser(t, "other@example.com", models.RoleOperator)
	return env
}

func (env *testEnv) addUser(t *testing.T, email string, role models.Role) models.Principal {
	t.Helper()
	user := &models.User{Email: email, Role: role}
	if err := env.store.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("Failed to create user %s: %v", email, err)
	}
	return user.Principal()
}

func (env *testEnv) addEmployee(t *testing.T, user models.Principal, manager *uuid.UUID) *models.Employee {
	t.Helper()
	employee := &models.Employee{UserID: user.ID, Name: user.Email, RoleTitle: "Operator", Status: models.EmployeeStatusActive, ManagerID: manager}
	if err := env.store.CreateEmployee(context.Background(), employee); err != nil {
		t.Fatalf("Failed to create employee: %v", err)
	}
	return employee
}

// newTask creates a task owned by the manager and assigned to assignee.
func (env *testEnv) newTask(t *testing.T, title string, assignee models.Principal) *models.Task {
	t.Helper()
	task, err := env.tasks.CreateTask(context.Background(), env.manager, CreateTaskInput{
		Title:    title,
		Assignee: AssigneeRef{UserID: &assignee.ID},
	})
	if err != nil {
		t.Fatalf("Failed to create task %q: %v", title, err)
	}
	return task
}

func assertKind(t *testing.T, err error, kind apperr.Kind) {
	t.Helper()
	if got := apperr.KindOf(err); got != kind {
		t.Errorf("Expected error kind %s, got %s (%v)", kind, got, err)
	}
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	appErr, ok := apperr.As(err)
	if !ok {
		t.Fatalf("Expected apperr.Error, got %v", err)
	}
	if appErr.Code != code {
		t.Errorf("Expected code %s, got %s", code, appErr.Code)
	}
}

func ptr[T any](v T) *T {
	return &v
}

var errBoom = errors.New("boom")

func memstoreMissingID(t *testing.T) uuid.UUID {
	t.Helper()
	id, err := uuid.NewV4()
	if err != nil {
		t.Fatalf("Failed to generate id: %v", err)
	}
	return id
}
