package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/mail"
	"strings"

	"github.com/gofrs/uuid"
	"golang.org/x/crypto/bcrypt"

	"hrmspro/backend/internal/apperr"
	"hrmspro/backend/internal/authz"
	"hrmspro/backend/internal/models"
	"hrmspro/backend/internal/repositories"
)

type CreateOperatorInput struct {
	Email      string  `json:"email" binding:"required,email"`
	Password   string  `json:"password" binding:"required,min=8"`
	Name       string  `json:"name" binding:"required,min=1,max=100"`
	RoleTitle  string  `json:"roleTitle,omitempty" binding:"max=100"`
	Department *string `json:"department,omitempty"`
}

type AssignEmployeeInput struct {
	EmployeeID    uuid.UUID
	ManagerUserID uuid.UUID
	Name          *string
	Department    *string
}

// TeamMember is an employee profile with its login email and open work.
type TeamMember struct {
	models.Employee
	Email string        `json:"email"`
	Tasks []models.Task `json:"tasks"`
}

type EmployeeService interface {
	CreateOperator(ctx context.Context, p models.Principal, in CreateOperatorInput) (*models.Employee, error)
	ListTeam(ctx context.Context, p models.Principal) ([]TeamMember, error)
	ListNewJoiners(ctx context.Context, p models.Principal) ([]models.Employee, error)
	AssignEmployee(ctx context.Context, p models.Principal, in AssignEmployeeInput) (*models.Employee, error)
}

type EmployeeServiceImpl struct {
	store repositories.Store
}

func NewEmployeeService(store repositories.Store) *EmployeeServiceImpl {
	return &EmployeeServiceImpl{store: store}
}

func (s *EmployeeServiceImpl) CreateOperator(ctx context.Context, p models.Principal, in CreateOperatorInput) (*models.Employee, error) {
	if err := authz.CanManageEmployees(p).Err(); err != nil {
		return nil, err
	}

	email := strings.ToLower(strings.TrimSpace(in.Email))
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, apperr.Validation("invalid email")
	}
	if len(in.Password) < 8 {
		return nil, apperr.Validation("password must be at least 8 characters")
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperr.Validation("name is required")
	}
	title := strings.TrimSpace(in.RoleTitle)
	if title == "" {
		title = "Operator"
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	managerID := p.ID
	employee := &models.Employee{
		Name:       name,
		RoleTitle:  title,
		Department: in.Department,
		Status:     models.EmployeeStatusActive,
		ManagerID:  &managerID,
	}
	err = s.store.Transact(ctx, "", func(tx repositories.Store) error {
		user := &models.User{Email: email, Password: string(hashed), Role: models.RoleOperator}
		if err := tx.CreateUser(ctx, user); err != nil {
			return err
		}
		employee.UserID = user.ID
		return tx.CreateEmployee(ctx, employee)
	})
	if errors.Is(err, repositories.ErrDuplicate) {
		return nil, apperr.Conflict(apperr.CodeDuplicate, "email already registered")
	}
	if err != nil {
		return nil, storeErr(err, "employee")
	}

	log.Printf("👤 %s created operator %s", p.Email, email)
	return employee, nil
}

func (s *EmployeeServiceImpl) ListTeam(ctx context.Context, p models.Principal) ([]TeamMember, error) {
	if err := authz.CanManageEmployees(p).Err(); err != nil {
		return nil, err
	}

	managerID := p.ID
	employees, err := s.store.ListEmployees(ctx, models.EmployeeFilter{ManagerID: &managerID})
	if err != nil {
		return nil, storeErr(err, "employees")
	}

	team := make([]TeamMember, 0, len(employees))
	for _, e := range employees {
		member := TeamMember{Employee: e}
		if user, err := s.store.GetUser(ctx, e.UserID); err == nil {
			member.Email = user.Email
		} else if !errors.Is(err, repositories.ErrNotFound) {
			return nil, storeErr(err, "user")
		}

		assignee := e.UserID
		member.Tasks, err = s.store.ListTasks(ctx, models.TaskFilter{AssigneeID: &assignee, OrderBy: models.OrderDueAsc})
		if err != nil {
			return nil, storeErr(err, "tasks")
		}
		team = append(team, member)
	}
	return team, nil
}

// ListNewJoiners returns operator profiles no manager has claimed yet,
// newest first.
func (s *EmployeeServiceImpl) ListNewJoiners(ctx context.Context, p models.Principal) ([]models.Employee, error) {
	if err := authz.CanAssignEmployees(p).Err(); err != nil {
		return nil, err
	}
	employees, err := s.store.ListEmployees(ctx, models.EmployeeFilter{Unassigned: true, OperatorsOnly: true})
	if err != nil {
		return nil, storeErr(err, "employees")
	}
	return employees, nil
}

func (s *EmployeeServiceImpl) AssignEmployee(ctx context.Context, p models.Principal, in AssignEmployeeInput) (*models.Employee, error) {
	if err := authz.CanAssignEmployees(p).Err(); err != nil {
		return nil, err
	}

	manager, err := s.store.GetUser(ctx, in.ManagerUserID)
	if err != nil {
		return nil, storeErr(err, "manager")
	}
	if !models.IsManagement(manager.Role) {
		return nil, apperr.NotFound("manager")
	}

	employee, err := s.store.GetEmployee(ctx, in.EmployeeID)
	if err != nil {
		return nil, storeErr(err, "employee")
	}
	user, err := s.store.GetUser(ctx, employee.UserID)
	if err != nil || user.Role != models.RoleOperator {
		return nil, apperr.NotFound("employee")
	}

	update := models.EmployeeUpdate{ManagerID: &manager.ID, Department: in.Department}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, apperr.Validation("name cannot be empty")
		}
		update.Name = &name
	}

	updated, err := s.store.UpdateEmployee(ctx, employee.ID, update)
	if err != nil {
		return nil, storeErr(err, "employee")
	}
	log.Printf("📋 Employee %s assigned to manager %s", updated.ID, manager.Email)
	return updated, nil
}
