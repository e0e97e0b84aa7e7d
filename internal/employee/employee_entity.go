package employee

import (
	"time"

	"github.com/google/uuid"
)

type Employee struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey"`
	CompanyID    uuid.UUID  `gorm:"type:uuid;index"`
	DepartmentID *uuid.UUID `gorm:"type:uuid"`
	ManagerID    *uuid.UUID `gorm:"type:uuid"`
	FullName     string
	Email        string `gorm:"uniqueIndex:uq_employee_email"`
	Role         string `gorm:"index"`
	Designation  string
	HireDate     time.Time
	IsActive     bool `gorm:"default:true"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
