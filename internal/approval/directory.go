package approval

import (
	"context"

	"github.com/google/uuid"
)

// DirectoryEmployee adalah potret read-only seorang karyawan dari direktori.
type DirectoryEmployee struct {
	ID           uuid.UUID
	Email        string
	FullName     string
	Role         string
	Designation  string
	DepartmentID string
	ManagerID    string
	IsActive     bool
}

// EmployeeDirectory dikonsumsi engine untuk resolusi approver; engine tidak
// pernah menulis ke direktori.
//
//go:generate mockgen -source=directory.go -destination=mock/directory_mock.go -package=mock
type EmployeeDirectory interface {
	FindByID(ctx context.Context, companyID, id string) (*DirectoryEmployee, error)
	FindByEmail(ctx context.Context, companyID, email string) (*DirectoryEmployee, error)
	FindManagerOf(ctx context.Context, companyID string, emp *DirectoryEmployee) (*DirectoryEmployee, error)
	FindByRole(ctx context.Context, companyID, role string) (*DirectoryEmployee, error)
	FindDepartmentHead(ctx context.Context, companyID, departmentID string) (*DirectoryEmployee, error)
}
