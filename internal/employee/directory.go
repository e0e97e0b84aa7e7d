package employee

import (
	"context"
	"errors"

	"github.com/vibhu2208/hrms-backend-sub002/internal/approval"
	employeeerrors "github.com/vibhu2208/hrms-backend-sub002/internal/employee/errors"
)

// Directory mengekspos data karyawan sebagai approval.EmployeeDirectory.
// Semua lookup read-only, tanpa transaksi.
type Directory struct {
	repo Repository
}

func NewDirectory(repo Repository) *Directory {
	return &Directory{repo: repo}
}

func (d *Directory) FindByID(ctx context.Context, companyID, id string) (*approval.DirectoryEmployee, error) {
	empl, err := d.repo.FindByIDAndCompany(ctx, companyID, id)
	if err != nil {
		if errors.Is(mapRepositoryError(err), employeeerrors.ErrEmployeeNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return toDirectoryEmployee(empl), nil
}

func (d *Directory) FindByEmail(ctx context.Context, companyID, email string) (*approval.DirectoryEmployee, error) {
	empl, err := d.repo.FindByEmailAndCompany(ctx, companyID, email)
	if err != nil || empl == nil {
		return nil, err
	}
	return toDirectoryEmployee(empl), nil
}

func (d *Directory) FindManagerOf(ctx context.Context, companyID string, emp *approval.DirectoryEmployee) (*approval.DirectoryEmployee, error) {
	if emp == nil || emp.ManagerID == "" {
		return nil, nil
	}
	mgr, err := d.FindByID(ctx, companyID, emp.ManagerID)
	if err != nil {
		return nil, err
	}
	if mgr == nil || !mgr.IsActive {
		return nil, nil
	}
	return mgr, nil
}

func (d *Directory) FindByRole(ctx context.Context, companyID, role string) (*approval.DirectoryEmployee, error) {
	empl, err := d.repo.FindFirstActiveByRole(ctx, companyID, role)
	if err != nil || empl == nil {
		return nil, err
	}
	return toDirectoryEmployee(empl), nil
}

func (d *Directory) FindDepartmentHead(ctx context.Context, companyID, departmentID string) (*approval.DirectoryEmployee, error) {
	if departmentID == "" {
		return nil, nil
	}
	empl, err := d.repo.FindDepartmentHead(ctx, companyID, departmentID)
	if err != nil || empl == nil {
		return nil, err
	}
	return toDirectoryEmployee(empl), nil
}

func toDirectoryEmployee(empl *Employee) *approval.DirectoryEmployee {
	return &approval.DirectoryEmployee{
		ID:           empl.ID,
		Email:        empl.Email,
		FullName:     empl.FullName,
		Role:         empl.Role,
		Designation:  empl.Designation,
		DepartmentID: uuidToString(empl.DepartmentID),
		ManagerID:    uuidToString(empl.ManagerID),
		IsActive:     empl.IsActive,
	}
}
