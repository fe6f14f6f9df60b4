package repositories

import (
	"context"
	"strings"

	"github.com/gofrs/uuid"

	"hrmspro/backend/internal/models"
)

func (s *GormStore) CreateUser(ctx context.Context, user *models.User) error {
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	return translate(s.conn(ctx).Create(user).Error)
}

func (s *GormStore) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.conn(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (s *GormStore) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := s.conn(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&user).Error
	if err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (s *GormStore) CreateEmployee(ctx context.Context, employee *models.Employee) error {
	if employee.Status == "" {
		employee.Status = models.EmployeeStatusActive
	}
	return translate(s.conn(ctx).Create(employee).Error)
}

func (s *GormStore) GetEmployee(ctx context.Context, id uuid.UUID) (*models.Employee, error) {
	var employee models.Employee
	if err := s.conn(ctx).Where("id = ?", id).First(&employee).Error; err != nil {
		return nil, translate(err)
	}
	return &employee, nil
}

func (s *GormStore) FindEmployeeByUser(ctx context.Context, userID uuid.UUID) (*models.Employee, error) {
	var employee models.Employee
	if err := s.conn(ctx).Where("user_id = ?", userID).First(&employee).Error; err != nil {
		return nil, translate(err)
	}
	return &employee, nil
}

func (s *GormStore) ListEmployees(ctx context.Context, filter models.EmployeeFilter) ([]models.Employee, error) {
	db := s.conn(ctx).Model(&models.Employee{}).Select("employees.*")
	if filter.ManagerID != nil {
		db = db.Where("employees.manager_id = ?", *filter.ManagerID)
	}
	if filter.Unassigned {
		db = db.Where("employees.manager_id IS NULL")
	}
	if filter.OperatorsOnly {
		db = db.Joins("JOIN users ON users.id = employees.user_id").Where("users.role = ?", models.RoleOperator)
	}

	var employees []models.Employee
	err := db.Order("employees.created_at DESC").Find(&employees).Error
	return employees, translate(err)
}

func (s *GormStore) UpdateEmployee(ctx context.Context, id uuid.UUID, update models.EmployeeUpdate) (*models.Employee, error) {
	if _, err := s.GetEmployee(ctx, id); err != nil {
		return nil, err
	}

	cols := make(map[string]interface{})
	if update.ManagerID != nil {
		cols["manager_id"] = *update.ManagerID
	}
	if update.Name != nil {
		cols["name"] = *update.Name
	}
	if update.Department != nil {
		cols["department"] = *update.Department
	}
	if len(cols) > 0 {
		if err := s.conn(ctx).Model(&models.Employee{}).Where("id = ?", id).Updates(cols).Error; err != nil {
			return nil, translate(err)
		}
	}
	return s.GetEmployee(ctx, id)
}
