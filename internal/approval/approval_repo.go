package approval

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/vibhu2208/hrms-backend-sub002/internal/tenant"
)

//go:generate mockgen -source=approval_repo.go -destination=mock/approval_repo_mock.go -package=mock
type Repository interface {
	WithTx(tx *sql.Tx) Repository

	CreateWorkflow(ctx context.Context, w *WorkflowDefinition) error
	FindWorkflowByID(ctx context.Context, companyID, id string) (*WorkflowDefinition, error)
	ListWorkflows(ctx context.Context, companyID string, entityType EntityType) ([]WorkflowDefinition, error)
	UpdateWorkflow(ctx context.Context, w *WorkflowDefinition) error
	DeleteWorkflow(ctx context.Context, companyID, id string) error
	// ClearDefaultWorkflow melepas flag default dari definisi lain pada
	// (company, entityType) supaya invariant satu-default terjaga.
	ClearDefaultWorkflow(ctx context.Context, companyID string, entityType EntityType, keepID string) error
	FindDefaultWorkflow(ctx context.Context, companyID string, entityType EntityType) (*WorkflowDefinition, error)
	FindWorkflowForRole(ctx context.Context, companyID string, entityType EntityType, role string) (*WorkflowDefinition, error)

	CreateMatrix(ctx context.Context, m *ApprovalMatrix) error
	FindMatrixByID(ctx context.Context, companyID, id string) (*ApprovalMatrix, error)
	ListMatrices(ctx context.Context, companyID string, entityType EntityType) ([]ApprovalMatrix, error)
	UpdateMatrix(ctx context.Context, m *ApprovalMatrix) error
	DeleteMatrix(ctx context.Context, companyID, id string) error
	ListActiveMatrices(ctx context.Context, companyID string, entityType EntityType) ([]ApprovalMatrix, error)

	CreateDelegation(ctx context.Context, d *ApprovalDelegation) error
	FindDelegationByID(ctx context.Context, companyID, id string) (*ApprovalDelegation, error)
	ListDelegations(ctx context.Context, companyID string) ([]ApprovalDelegation, error)
	UpdateDelegation(ctx context.Context, d *ApprovalDelegation) error
	DeleteDelegation(ctx context.Context, companyID, id string) error
	ListActiveDelegationsByDelegator(ctx context.Context, companyID, delegatorID string, now time.Time) ([]ApprovalDelegation, error)
}

type repository struct {
	db *gorm.DB
	tx *sql.Tx
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *sql.Tx) Repository {
	return &repository{db: r.db, tx: tx}
}

// --- Workflow definitions ---

func (r *repository) CreateWorkflow(ctx context.Context, w *WorkflowDefinition) error {
	return r.db.WithContext(ctx).Create(w).Error
}

func (r *repository) FindWorkflowByID(ctx context.Context, companyID, id string) (*WorkflowDefinition, error) {
	var w WorkflowDefinition
	err := r.db.WithContext(ctx).
		Scopes(tenant.Scope(companyID)).
		First(&w, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func (r *repository) ListWorkflows(ctx context.Context, companyID string, entityType EntityType) ([]WorkflowDefinition, error) {
	var defs []WorkflowDefinition
	db := r.db.WithContext(ctx).Scopes(tenant.Scope(companyID))
	if entityType != "" {
		db = db.Where("entity_type = ?", entityType)
	}
	err := db.Order("entity_type ASC, priority DESC, created_at ASC").Find(&defs).Error
	return defs, err
}

func (r *repository) UpdateWorkflow(ctx context.Context, w *WorkflowDefinition) error {
	return r.db.WithContext(ctx).Save(w).Error
}

func (r *repository) DeleteWorkflow(ctx context.Context, companyID, id string) error {
	return r.db.WithContext(ctx).
		Scopes(tenant.Scope(companyID)).
		Delete(&WorkflowDefinition{}, "id = ?", id).Error
}

func (r *repository) ClearDefaultWorkflow(ctx context.Context, companyID string, entityType EntityType, keepID string) error {
	db := r.db.WithContext(ctx).
		Model(&WorkflowDefinition{}).
		Scopes(tenant.Scope(companyID)).
		Where("entity_type = ?", entityType).
		Where("is_default = TRUE")
	if keepID != "" {
		db = db.Where("id <> ?", keepID)
	}
	return db.Update("is_default", false).Error
}

func (r *repository) FindDefaultWorkflow(ctx context.Context, companyID string, entityType EntityType) (*WorkflowDefinition, error) {
	var w WorkflowDefinition
	err := r.db.WithContext(ctx).
		Scopes(tenant.Scope(companyID)).
		Where("entity_type = ?", entityType).
		Where("is_default = TRUE").
		Where("is_active = TRUE").
		First(&w).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func (r *repository) FindWorkflowForRole(ctx context.Context, companyID string, entityType EntityType, role string) (*WorkflowDefinition, error) {
	var w WorkflowDefinition
	err := r.db.WithContext(ctx).
		Scopes(tenant.Scope(companyID)).
		Where("entity_type = ?", entityType).
		Where("requester_role = ?", role).
		Where("is_active = TRUE").
		Order("priority DESC, created_at DESC").
		First(&w).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// --- Matrices ---

func (r *repository) CreateMatrix(ctx context.Context, m *ApprovalMatrix) error {
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *repository) FindMatrixByID(ctx context.Context, companyID, id string) (*ApprovalMatrix, error) {
	var m ApprovalMatrix
	err := r.db.WithContext(ctx).
		Scopes(tenant.Scope(companyID)).
		First(&m, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *repository) ListMatrices(ctx context.Context, companyID string, entityType EntityType) ([]ApprovalMatrix, error) {
	var matrices []ApprovalMatrix
	db := r.db.WithContext(ctx).Scopes(tenant.Scope(companyID))
	if entityType != "" {
		db = db.Where("entity_type = ?", entityType)
	}
	err := db.Order("priority DESC, created_at ASC").Find(&matrices).Error
	return matrices, err
}

func (r *repository) UpdateMatrix(ctx context.Context, m *ApprovalMatrix) error {
	return r.db.WithContext(ctx).Save(m).Error
}

func (r *repository) DeleteMatrix(ctx context.Context, companyID, id string) error {
	return r.db.WithContext(ctx).
		Scopes(tenant.Scope(companyID)).
		Delete(&ApprovalMatrix{}, "id = ?", id).Error
}

// ListActiveMatrices dipakai resolver: urutan priority DESC menentukan siapa
// yang menang; created_at ASC membuat tie-break deterministik.
func (r *repository) ListActiveMatrices(ctx context.Context, companyID string, entityType EntityType) ([]ApprovalMatrix, error) {
	var matrices []ApprovalMatrix
	err := r.db.WithContext(ctx).
		Scopes(tenant.Scope(companyID)).
		Where("entity_type = ?", entityType).
		Where("is_active = TRUE").
		Order("priority DESC, created_at ASC").
		Find(&matrices).Error
	return matrices, err
}

// --- Delegations ---

func (r *repository) CreateDelegation(ctx context.Context, d *ApprovalDelegation) error {
	return r.db.WithContext(ctx).Create(d).Error
}

func (r *repository) FindDelegationByID(ctx context.Context, companyID, id string) (*ApprovalDelegation, error) {
	var d ApprovalDelegation
	err := r.db.WithContext(ctx).
		Scopes(tenant.Scope(companyID)).
		First(&d, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *repository) ListDelegations(ctx context.Context, companyID string) ([]ApprovalDelegation, error) {
	var delegations []ApprovalDelegation
	err := r.db.WithContext(ctx).
		Scopes(tenant.Scope(companyID)).
		Order("start_date DESC").
		Find(&delegations).Error
	return delegations, err
}

func (r *repository) UpdateDelegation(ctx context.Context, d *ApprovalDelegation) error {
	return r.db.WithContext(ctx).Save(d).Error
}

func (r *repository) DeleteDelegation(ctx context.Context, companyID, id string) error {
	return r.db.WithContext(ctx).
		Scopes(tenant.Scope(companyID)).
		Delete(&ApprovalDelegation{}, "id = ?", id).Error
}

// ListActiveDelegationsByDelegator memfilter window tanggal di SQL; scope
// entity type dicek pemanggil lewat InEffect karena tersimpan sebagai jsonb.
func (r *repository) ListActiveDelegationsByDelegator(ctx context.Context, companyID, delegatorID string, now time.Time) ([]ApprovalDelegation, error) {
	var delegations []ApprovalDelegation
	err := r.db.WithContext(ctx).
		Scopes(tenant.Scope(companyID)).
		Where("delegator_id = ?", delegatorID).
		Where("is_active = TRUE").
		Where("start_date <= ?", now).
		Where("end_date >= ?", now.Add(-24*time.Hour)).
		Order("created_at DESC").
		Find(&delegations).Error
	return delegations, err
}
