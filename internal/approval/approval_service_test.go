package approval_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"

	"github.com/vibhu2208/hrms-backend-sub002/internal/approval"
	approvalerrors "github.com/vibhu2208/hrms-backend-sub002/internal/approval/errors"
)

// fakeApprovalRepository adalah Repository in-memory dengan function fields;
// method tanpa override mengembalikan nilai kosong.
type fakeApprovalRepository struct {
	withTxFn               func(tx *sql.Tx) approval.Repository
	createWorkflowFn       func(ctx context.Context, w *approval.WorkflowDefinition) error
	findWorkflowByIDFn     func(ctx context.Context, companyID, id string) (*approval.WorkflowDefinition, error)
	listWorkflowsFn        func(ctx context.Context, companyID string, entityType approval.EntityType) ([]approval.WorkflowDefinition, error)
	updateWorkflowFn       func(ctx context.Context, w *approval.WorkflowDefinition) error
	deleteWorkflowFn       func(ctx context.Context, companyID, id string) error
	clearDefaultWorkflowFn func(ctx context.Context, companyID string, entityType approval.EntityType, keepID string) error
	findDefaultWorkflowFn  func(ctx context.Context, companyID string, entityType approval.EntityType) (*approval.WorkflowDefinition, error)
	findWorkflowForRoleFn  func(ctx context.Context, companyID string, entityType approval.EntityType, role string) (*approval.WorkflowDefinition, error)

	createMatrixFn       func(ctx context.Context, m *approval.ApprovalMatrix) error
	findMatrixByIDFn     func(ctx context.Context, companyID, id string) (*approval.ApprovalMatrix, error)
	listMatricesFn       func(ctx context.Context, companyID string, entityType approval.EntityType) ([]approval.ApprovalMatrix, error)
	updateMatrixFn       func(ctx context.Context, m *approval.ApprovalMatrix) error
	deleteMatrixFn       func(ctx context.Context, companyID, id string) error
	listActiveMatricesFn func(ctx context.Context, companyID string, entityType approval.EntityType) ([]approval.ApprovalMatrix, error)

	createDelegationFn                 func(ctx context.Context, d *approval.ApprovalDelegation) error
	findDelegationByIDFn               func(ctx context.Context, companyID, id string) (*approval.ApprovalDelegation, error)
	listDelegationsFn                  func(ctx context.Context, companyID string) ([]approval.ApprovalDelegation, error)
	updateDelegationFn                 func(ctx context.Context, d *approval.ApprovalDelegation) error
	deleteDelegationFn                 func(ctx context.Context, companyID, id string) error
	listActiveDelegationsByDelegatorFn func(ctx context.Context, companyID, delegatorID string, now time.Time) ([]approval.ApprovalDelegation, error)
}

func (f *fakeApprovalRepository) WithTx(tx *sql.Tx) approval.Repository {
	if f.withTxFn != nil {
		return f.withTxFn(tx)
	}
	return f
}

func (f *fakeApprovalRepository) CreateWorkflow(ctx context.Context, w *approval.WorkflowDefinition) error {
	if f.createWorkflowFn != nil {
		return f.createWorkflowFn(ctx, w)
	}
	return nil
}

func (f *fakeApprovalRepository) FindWorkflowByID(ctx context.Context, companyID, id string) (*approval.WorkflowDefinition, error) {
	if f.findWorkflowByIDFn != nil {
		return f.findWorkflowByIDFn(ctx, companyID, id)
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeApprovalRepository) ListWorkflows(ctx context.Context, companyID string, entityType approval.EntityType) ([]approval.WorkflowDefinition, error) {
	if f.listWorkflowsFn != nil {
		return f.listWorkflowsFn(ctx, companyID, entityType)
	}
	return nil, nil
}

func (f *fakeApprovalRepository) UpdateWorkflow(ctx context.Context, w *approval.WorkflowDefinition) error {
	if f.updateWorkflowFn != nil {
		return f.updateWorkflowFn(ctx, w)
	}
	return nil
}

func (f *fakeApprovalRepository) DeleteWorkflow(ctx context.Context, companyID, id string) error {
	if f.deleteWorkflowFn != nil {
		return f.deleteWorkflowFn(ctx, companyID, id)
	}
	return nil
}

func (f *fakeApprovalRepository) ClearDefaultWorkflow(ctx context.Context, companyID string, entityType approval.EntityType, keepID string) error {
	if f.clearDefaultWorkflowFn != nil {
		return f.clearDefaultWorkflowFn(ctx, companyID, entityType, keepID)
	}
	return nil
}

func (f *fakeApprovalRepository) FindDefaultWorkflow(ctx context.Context, companyID string, entityType approval.EntityType) (*approval.WorkflowDefinition, error) {
	if f.findDefaultWorkflowFn != nil {
		return f.findDefaultWorkflowFn(ctx, companyID, entityType)
	}
	return nil, nil
}

func (f *fakeApprovalRepository) FindWorkflowForRole(ctx context.Context, companyID string, entityType approval.EntityType, role string) (*approval.WorkflowDefinition, error) {
	if f.findWorkflowForRoleFn != nil {
		return f.findWorkflowForRoleFn(ctx, companyID, entityType, role)
	}
	return nil, nil
}

func (f *fakeApprovalRepository) CreateMatrix(ctx context.Context, m *approval.ApprovalMatrix) error {
	if f.createMatrixFn != nil {
		return f.createMatrixFn(ctx, m)
	}
	return nil
}

func (f *fakeApprovalRepository) FindMatrixByID(ctx context.Context, companyID, id string) (*approval.ApprovalMatrix, error) {
	if f.findMatrixByIDFn != nil {
		return f.findMatrixByIDFn(ctx, companyID, id)
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeApprovalRepository) ListMatrices(ctx context.Context, companyID string, entityType approval.EntityType) ([]approval.ApprovalMatrix, error) {
	if f.listMatricesFn != nil {
		return f.listMatricesFn(ctx, companyID, entityType)
	}
	return nil, nil
}

func (f *fakeApprovalRepository) UpdateMatrix(ctx context.Context, m *approval.ApprovalMatrix) error {
	if f.updateMatrixFn != nil {
		return f.updateMatrixFn(ctx, m)
	}
	return nil
}

func (f *fakeApprovalRepository) DeleteMatrix(ctx context.Context, companyID, id string) error {
	if f.deleteMatrixFn != nil {
		return f.deleteMatrixFn(ctx, companyID, id)
	}
	return nil
}

func (f *fakeApprovalRepository) ListActiveMatrices(ctx context.Context, companyID string, entityType approval.EntityType) ([]approval.ApprovalMatrix, error) {
	if f.listActiveMatricesFn != nil {
		return f.listActiveMatricesFn(ctx, companyID, entityType)
	}
	return nil, nil
}

func (f *fakeApprovalRepository) CreateDelegation(ctx context.Context, d *approval.ApprovalDelegation) error {
	if f.createDelegationFn != nil {
		return f.createDelegationFn(ctx, d)
	}
	return nil
}

func (f *fakeApprovalRepository) FindDelegationByID(ctx context.Context, companyID, id string) (*approval.ApprovalDelegation, error) {
	if f.findDelegationByIDFn != nil {
		return f.findDelegationByIDFn(ctx, companyID, id)
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeApprovalRepository) ListDelegations(ctx context.Context, companyID string) ([]approval.ApprovalDelegation, error) {
	if f.listDelegationsFn != nil {
		return f.listDelegationsFn(ctx, companyID)
	}
	return nil, nil
}

func (f *fakeApprovalRepository) UpdateDelegation(ctx context.Context, d *approval.ApprovalDelegation) error {
	if f.updateDelegationFn != nil {
		return f.updateDelegationFn(ctx, d)
	}
	return nil
}

func (f *fakeApprovalRepository) DeleteDelegation(ctx context.Context, companyID, id string) error {
	if f.deleteDelegationFn != nil {
		return f.deleteDelegationFn(ctx, companyID, id)
	}
	return nil
}

func (f *fakeApprovalRepository) ListActiveDelegationsByDelegator(ctx context.Context, companyID, delegatorID string, now time.Time) ([]approval.ApprovalDelegation, error) {
	if f.listActiveDelegationsByDelegatorFn != nil {
		return f.listActiveDelegationsByDelegatorFn(ctx, companyID, delegatorID, now)
	}
	return nil, nil
}

// recordingInvalidator mencatat tenant mana saja yang cache-nya di-flush.
type recordingInvalidator struct {
	companies []string
}

func (r *recordingInvalidator) Invalidate(ctx context.Context, companyID string) {
	r.companies = append(r.companies, companyID)
}

type approvalServiceDeps struct {
	db      *sql.DB
	mock    sqlmock.Sqlmock
	repo    *fakeApprovalRepository
	cache   *recordingInvalidator
	service approval.Service
}

func setupApprovalServiceTest(t *testing.T) *approvalServiceDeps {
	t.Helper()

	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := &fakeApprovalRepository{}
	cache := &recordingInvalidator{}
	service := approval.NewService(db, repo, cache)

	return &approvalServiceDeps{db: db, mock: mock, repo: repo, cache: cache, service: service}
}

func expectTx(t *testing.T, mock sqlmock.Sqlmock, commit bool) {
	t.Helper()
	mock.ExpectBegin()
	if commit {
		mock.ExpectCommit()
	} else {
		mock.ExpectRollback()
	}
}

func validWorkflowRequest() approval.CreateWorkflowRequest {
	return approval.CreateWorkflowRequest{
		EntityType: "leave",
		Name:       "default leave",
		Levels: []approval.LevelRequest{
			{Level: 1, ApproverType: "reporting_manager", SLAMinutes: 60},
			{Level: 2, ApproverType: "hr", SLAMinutes: 120},
		},
		SLAMinutes: 1440,
		IsDefault:  true,
	}
}

func TestApprovalServiceWorkflows(t *testing.T) {
	companyID := uuid.New().String()
	actorID := uuid.New().String()

	t.Run("create default workflow clears previous default in one tx", func(t *testing.T) {
		deps := setupApprovalServiceTest(t)
		expectTx(t, deps.mock, true)

		var clearedKeep string
		deps.repo.clearDefaultWorkflowFn = func(ctx context.Context, gotCompany string, entityType approval.EntityType, keepID string) error {
			assert.Equal(t, companyID, gotCompany)
			assert.Equal(t, approval.EntityTypeLeave, entityType)
			clearedKeep = keepID
			return nil
		}
		var created *approval.WorkflowDefinition
		deps.repo.createWorkflowFn = func(ctx context.Context, w *approval.WorkflowDefinition) error {
			created = w
			return nil
		}

		resp, err := deps.service.CreateWorkflow(context.Background(), companyID, actorID, validWorkflowRequest())

		assert.NoError(t, err)
		assert.NotNil(t, created)
		assert.Equal(t, created.ID.String(), clearedKeep)
		assert.True(t, created.IsActive)
		assert.True(t, resp.IsDefault)
		assert.Len(t, resp.Levels, 2)
		assert.Equal(t, []string{companyID}, deps.cache.companies)
		assert.NoError(t, deps.mock.ExpectationsWereMet())
	})

	t.Run("non default workflow skips the clear step", func(t *testing.T) {
		deps := setupApprovalServiceTest(t)
		expectTx(t, deps.mock, true)

		deps.repo.clearDefaultWorkflowFn = func(ctx context.Context, companyID string, entityType approval.EntityType, keepID string) error {
			t.Fatal("clear default should not run for non-default workflow")
			return nil
		}

		req := validWorkflowRequest()
		req.IsDefault = false

		_, err := deps.service.CreateWorkflow(context.Background(), companyID, actorID, req)

		assert.NoError(t, err)
		assert.NoError(t, deps.mock.ExpectationsWereMet())
	})

	t.Run("invalid company id fails before touching the db", func(t *testing.T) {
		deps := setupApprovalServiceTest(t)

		_, err := deps.service.CreateWorkflow(context.Background(), "not-a-uuid", actorID, validWorkflowRequest())

		assert.ErrorIs(t, err, approvalerrors.ErrInvalidCompanyID)
		assert.Empty(t, deps.cache.companies)
	})

	t.Run("unknown entity type is rejected", func(t *testing.T) {
		deps := setupApprovalServiceTest(t)

		req := validWorkflowRequest()
		req.EntityType = "vacation"

		_, err := deps.service.CreateWorkflow(context.Background(), companyID, actorID, req)

		assert.ErrorIs(t, err, approvalerrors.ErrUnknownEntityType)
	})

	t.Run("non contiguous levels are rejected", func(t *testing.T) {
		deps := setupApprovalServiceTest(t)

		req := validWorkflowRequest()
		req.Levels = []approval.LevelRequest{
			{Level: 1, ApproverType: "hr"},
			{Level: 3, ApproverType: "admin"},
		}

		_, err := deps.service.CreateWorkflow(context.Background(), companyID, actorID, req)

		assert.ErrorIs(t, err, approvalerrors.ErrInvalidLevels)
	})

	t.Run("persist failure rolls back and keeps cache", func(t *testing.T) {
		deps := setupApprovalServiceTest(t)
		expectTx(t, deps.mock, false)

		deps.repo.createWorkflowFn = func(ctx context.Context, w *approval.WorkflowDefinition) error {
			return assert.AnError
		}

		_, err := deps.service.CreateWorkflow(context.Background(), companyID, actorID, validWorkflowRequest())

		assert.Error(t, err)
		assert.Empty(t, deps.cache.companies)
		assert.NoError(t, deps.mock.ExpectationsWereMet())
	})

	t.Run("get workflow by id maps record not found", func(t *testing.T) {
		deps := setupApprovalServiceTest(t)

		_, err := deps.service.GetWorkflowByID(context.Background(), companyID, uuid.New().String())

		assert.ErrorIs(t, err, approvalerrors.ErrWorkflowNotFound)
	})

	t.Run("update workflow replaces definition and invalidates cache", func(t *testing.T) {
		deps := setupApprovalServiceTest(t)
		expectTx(t, deps.mock, true)

		existing := &approval.WorkflowDefinition{
			ID:         uuid.New(),
			CompanyID:  uuid.MustParse(companyID),
			EntityType: approval.EntityTypeLeave,
			Name:       "old name",
			Levels: approval.LevelList{
				{Level: 1, ApproverType: approval.ApproverHR, IsRequired: true},
			},
			IsActive: true,
		}
		deps.repo.findWorkflowByIDFn = func(ctx context.Context, companyID, id string) (*approval.WorkflowDefinition, error) {
			return existing, nil
		}
		var updated *approval.WorkflowDefinition
		deps.repo.updateWorkflowFn = func(ctx context.Context, w *approval.WorkflowDefinition) error {
			updated = w
			return nil
		}

		inactive := false
		resp, err := deps.service.UpdateWorkflow(context.Background(), companyID, actorID, existing.ID.String(), approval.UpdateWorkflowRequest{
			Name: "new name",
			Levels: []approval.LevelRequest{
				{Level: 1, ApproverType: "reporting_manager"},
			},
			SLAMinutes: 600,
			IsActive:   &inactive,
		})

		assert.NoError(t, err)
		assert.Equal(t, "new name", updated.Name)
		assert.Equal(t, 600, updated.SLAMinutes)
		assert.False(t, updated.IsActive)
		assert.Equal(t, "new name", resp.Name)
		assert.Equal(t, []string{companyID}, deps.cache.companies)
		assert.NoError(t, deps.mock.ExpectationsWereMet())
	})

	t.Run("delete workflow invalidates cache", func(t *testing.T) {
		deps := setupApprovalServiceTest(t)

		err := deps.service.DeleteWorkflow(context.Background(), companyID, uuid.New().String())

		assert.NoError(t, err)
		assert.Equal(t, []string{companyID}, deps.cache.companies)
	})
}

func TestApprovalServiceMatrices(t *testing.T) {
	companyID := uuid.New().String()
	actorID := uuid.New().String()

	t.Run("create matrix persists condition and invalidates cache", func(t *testing.T) {
		deps := setupApprovalServiceTest(t)

		var created *approval.ApprovalMatrix
		deps.repo.createMatrixFn = func(ctx context.Context, m *approval.ApprovalMatrix) error {
			created = m
			return nil
		}

		resp, err := deps.service.CreateMatrix(context.Background(), companyID, actorID, approval.CreateMatrixRequest{
			EntityType: "expense",
			Name:       "high value",
			Condition:  approval.MatrixConditionRequest{AmountMin: floatPtr(1_000_000)},
			RequiredApprovers: []approval.LevelRequest{
				{Level: 1, ApproverType: "reporting_manager"},
				{Level: 2, ApproverType: "specific_user", ApproverEmail: "cfo@acme.test"},
			},
			SLAMinutes: 240,
			Priority:   10,
		})

		assert.NoError(t, err)
		assert.NotNil(t, created)
		assert.Equal(t, approval.EntityTypeExpense, created.EntityType)
		if assert.NotNil(t, created.Condition.AmountMin) {
			assert.Equal(t, float64(1_000_000), *created.Condition.AmountMin)
		}
		assert.True(t, created.IsActive)
		assert.Equal(t, 10, resp.Priority)
		assert.Equal(t, []string{companyID}, deps.cache.companies)
	})

	t.Run("matrix approvers are validated like workflow levels", func(t *testing.T) {
		deps := setupApprovalServiceTest(t)

		_, err := deps.service.CreateMatrix(context.Background(), companyID, actorID, approval.CreateMatrixRequest{
			EntityType: "expense",
			Name:       "broken",
			RequiredApprovers: []approval.LevelRequest{
				{Level: 1, ApproverType: "role_based"},
			},
		})

		assert.ErrorIs(t, err, approvalerrors.ErrInvalidLevels)
	})

	t.Run("get matrix by id maps record not found", func(t *testing.T) {
		deps := setupApprovalServiceTest(t)

		_, err := deps.service.GetMatrixByID(context.Background(), companyID, uuid.New().String())

		assert.ErrorIs(t, err, approvalerrors.ErrMatrixNotFound)
	})
}

func TestApprovalServiceDelegations(t *testing.T) {
	companyID := uuid.New().String()
	actorID := uuid.New().String()

	t.Run("create delegation parses window and scope", func(t *testing.T) {
		deps := setupApprovalServiceTest(t)

		var created *approval.ApprovalDelegation
		deps.repo.createDelegationFn = func(ctx context.Context, d *approval.ApprovalDelegation) error {
			created = d
			return nil
		}

		resp, err := deps.service.CreateDelegation(context.Background(), companyID, actorID, approval.CreateDelegationRequest{
			DelegatorID: uuid.New().String(),
			DelegateID:  uuid.New().String(),
			EntityTypes: []string{"leave", "expense"},
			StartDate:   "2026-03-01",
			EndDate:     "2026-03-15",
			Reason:      "annual leave",
		})

		assert.NoError(t, err)
		assert.NotNil(t, created)
		assert.Len(t, created.EntityTypes, 2)
		assert.True(t, created.IsActive)
		assert.Equal(t, "2026-03-01", resp.StartDate)
		assert.Equal(t, "2026-03-15", resp.EndDate)
	})

	t.Run("start date after end date is rejected", func(t *testing.T) {
		deps := setupApprovalServiceTest(t)

		_, err := deps.service.CreateDelegation(context.Background(), companyID, actorID, approval.CreateDelegationRequest{
			DelegatorID: uuid.New().String(),
			DelegateID:  uuid.New().String(),
			StartDate:   "2026-03-15",
			EndDate:     "2026-03-01",
		})

		assert.ErrorIs(t, err, approvalerrors.ErrInvalidDateRange)
	})

	t.Run("unknown entity type in scope is rejected", func(t *testing.T) {
		deps := setupApprovalServiceTest(t)

		_, err := deps.service.CreateDelegation(context.Background(), companyID, actorID, approval.CreateDelegationRequest{
			DelegatorID: uuid.New().String(),
			DelegateID:  uuid.New().String(),
			EntityTypes: []string{"vacation"},
			StartDate:   "2026-03-01",
			EndDate:     "2026-03-15",
		})

		assert.ErrorIs(t, err, approvalerrors.ErrUnknownEntityType)
	})

	t.Run("update delegation maps record not found", func(t *testing.T) {
		deps := setupApprovalServiceTest(t)

		_, err := deps.service.UpdateDelegation(context.Background(), companyID, actorID, uuid.New().String(), approval.UpdateDelegationRequest{
			StartDate: "2026-03-01",
			EndDate:   "2026-03-15",
		})

		assert.ErrorIs(t, err, approvalerrors.ErrDelegationNotFound)
	})
}
