package employee

import (
	"context"
	"database/sql"
	"errors"

	"github.com/vibhu2208/hrms-backend-sub002/internal/tenant"

	"gorm.io/gorm"
)

//go:generate mockgen -source=employee_repo.go -destination=mock/employee_repo_mock.go -package=mock
type Repository interface {
	WithTx(tx *sql.Tx) Repository
	Create(ctx context.Context, empl *Employee) error
	FindAllByCompany(ctx context.Context, companyID string) ([]Employee, error)
	FindOptionsByCompany(ctx context.Context, companyID string) ([]Employee, error)
	FindByIDAndCompany(ctx context.Context, companyID string, id string) (*Employee, error)
	FindByEmailAndCompany(ctx context.Context, companyID string, email string) (*Employee, error)
	FindFirstActiveByRole(ctx context.Context, companyID string, role string) (*Employee, error)
	FindDepartmentHead(ctx context.Context, companyID string, departmentID string) (*Employee, error)
	Update(ctx context.Context, empl *Employee) error
	Delete(ctx context.Context, companyID string, id string) error
}

type repository struct {
	db *gorm.DB
	tx *sql.Tx
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *sql.Tx) Repository {
	return &repository{
		db: r.db,
		tx: tx,
	}
}

func (r *repository) Create(ctx context.Context, empl *Employee) error {
	return r.db.WithContext(ctx).Create(empl).Error
}

func (r *repository) FindAllByCompany(ctx context.Context, companyID string) ([]Employee, error) {
	var empls []Employee
	err := r.db.WithContext(ctx).
		Scopes(tenant.Scope(companyID)).
		Find(&empls).Error
	return empls, err
}

func (r *repository) FindOptionsByCompany(ctx context.Context, companyID string) ([]Employee, error) {
	var empls []Employee
	err := r.db.WithContext(ctx).
		Scopes(tenant.Scope(companyID)).
		Where("is_active = ?", true).
		Select("id", "company_id", "department_id", "manager_id", "full_name", "email", "role", "designation").
		Order("full_name ASC").
		Find(&empls).Error
	return empls, err
}

func (r *repository) FindByIDAndCompany(ctx context.Context, companyID string, id string) (*Employee, error) {
	var empl Employee
	err := r.db.WithContext(ctx).
		Scopes(tenant.Scope(companyID)).
		First(&empl, "id = ?", id).Error
	return &empl, err
}

func (r *repository) FindByEmailAndCompany(ctx context.Context, companyID string, email string) (*Employee, error) {
	var empl Employee
	err := r.db.WithContext(ctx).
		Scopes(tenant.Scope(companyID)).
		First(&empl, "LOWER(email) = LOWER(?)", email).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &empl, err
}

// FindFirstActiveByRole memilih pemegang role tertua (created_at ASC) supaya
// hasil resolusi deterministik antar pemanggilan.
func (r *repository) FindFirstActiveByRole(ctx context.Context, companyID string, role string) (*Employee, error) {
	var empl Employee
	err := r.db.WithContext(ctx).
		Scopes(tenant.Scope(companyID)).
		Where("role = ? AND is_active = ?", role, true).
		Order("created_at ASC").
		First(&empl).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &empl, err
}

func (r *repository) FindDepartmentHead(ctx context.Context, companyID string, departmentID string) (*Employee, error) {
	var empl Employee
	err := r.db.WithContext(ctx).
		Scopes(tenant.Scope(companyID)).
		Where("department_id = ? AND role IN ? AND is_active = ?", departmentID, []string{"department_head", "manager"}, true).
		Order("created_at ASC").
		First(&empl).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &empl, err
}

func (r *repository) Update(ctx context.Context, empl *Employee) error {
	return r.db.WithContext(ctx).Save(empl).Error
}

func (r *repository) Delete(ctx context.Context, companyID string, id string) error {
	return r.db.WithContext(ctx).
		Scopes(tenant.Scope(companyID)).
		Delete(&Employee{}, "id = ?", id).Error
}
