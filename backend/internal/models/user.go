package models

import (
	"time"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

// User is the local shadow of an identity-provider account, keyed by email.
type User struct {
	ID        uuid.UUID `json:"id" gorm:"primaryKey;type:uuid"`
	Email     string    `json:"email" gorm:"uniqueIndex;not null"`
	Password  string    `json:"-" gorm:"not null;default:''"`
	Role      Role      `json:"role" gorm:"type:varchar(32);not null;default:'OPERATOR'"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		id, err := uuid.NewV4()
		if err != nil {
			return err
		}
		u.ID = id
	}
	return nil
}

func (u *User) Principal() Principal {
	return Principal{ID: u.ID, Role: u.Role, Email: u.Email}
}

const EmployeeStatusActive = "Active"

type Employee struct {
	ID         uuid.UUID  `json:"id" gorm:"primaryKey;type:uuid"`
	UserID     uuid.UUID  `json:"userId" gorm:"type:uuid;uniqueIndex;not null"`
	Name       string     `json:"name" gorm:"not null"`
	RoleTitle  string     `json:"roleTitle" gorm:"not null;default:'Operator'"`
	Department *string    `json:"department"`
	Status     string     `json:"status" gorm:"not null;default:'Active'"`
	ManagerID  *uuid.UUID `json:"managerId" gorm:"type:uuid;index"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

func (e *Employee) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		id, err := uuid.NewV4()
		if err != nil {
			return err
		}
		e.ID = id
	}
	return nil
}

// EmployeeFilter selects employee profiles. Unassigned restricts to
// profiles with no manager; OperatorsOnly joins on the user role.
type EmployeeFilter struct {
	ManagerID     *uuid.UUID
	Unassigned    bool
	OperatorsOnly bool
}

// EmployeeUpdate is a partial update of an employee profile.
type EmployeeUpdate struct {
	ManagerID  *uuid.UUID
	Name       *string
	Department *string
}
