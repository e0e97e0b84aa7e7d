package expense_test

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
	"github.com/vibhu2208/hrms-backend-sub002/internal/events"
	"github.com/vibhu2208/hrms-backend-sub002/internal/expense"
	expenseerrors "github.com/vibhu2208/hrms-backend-sub002/internal/expense/errors"
)

func fixedNow() time.Time {
	return time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
}

type fakeExpenseRepository struct {
	withTxFn                   func(tx *sql.Tx) expense.Repository
	createFn                   func(ctx context.Context, e *expense.Expense) error
	findAllByCompanyFn         func(ctx context.Context, companyID string) ([]expense.Expense, error)
	findByIDAndCompanyFn       func(ctx context.Context, companyID, id string) (*expense.Expense, error)
	updateFn                   func(ctx context.Context, e *expense.Expense) error
	submitFromDraftFn          func(ctx context.Context, e *expense.Expense) (int64, error)
	saveDecisionFn             func(ctx context.Context, e *expense.Expense, expectedLevel int) (int64, error)
	findEscalatableFn          func(ctx context.Context, companyID string, now time.Time, limit int) ([]expense.Expense, error)
	deleteFn                   func(ctx context.Context, companyID, id string) error
	employeeBelongsToCompanyFn func(ctx context.Context, companyID, employeeID string) (bool, error)
}

func (f *fakeExpenseRepository) WithTx(tx *sql.Tx) expense.Repository {
	if f.withTxFn != nil {
		return f.withTxFn(tx)
	}
	return f
}

func (f *fakeExpenseRepository) Create(ctx context.Context, e *expense.Expense) error {
	if f.createFn != nil {
		return f.createFn(ctx, e)
	}
	return nil
}

func (f *fakeExpenseRepository) FindAllByCompany(ctx context.Context, companyID string) ([]expense.Expense, error) {
	if f.findAllByCompanyFn != nil {
		return f.findAllByCompanyFn(ctx, companyID)
	}
	return nil, nil
}

func (f *fakeExpenseRepository) FindByIDAndCompany(ctx context.Context, companyID, id string) (*expense.Expense, error) {
	if f.findByIDAndCompanyFn != nil {
		return f.findByIDAndCompanyFn(ctx, companyID, id)
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeExpenseRepository) Update(ctx context.Context, e *expense.Expense) error {
	if f.updateFn != nil {
		return f.updateFn(ctx, e)
	}
	return nil
}

func (f *fakeExpenseRepository) SubmitFromDraft(ctx context.Context, e *expense.Expense) (int64, error) {
	if f.submitFromDraftFn != nil {
		return f.submitFromDraftFn(ctx, e)
	}
	return 1, nil
}

func (f *fakeExpenseRepository) SaveDecision(ctx context.Context, e *expense.Expense, expectedLevel int) (int64, error) {
	if f.saveDecisionFn != nil {
		return f.saveDecisionFn(ctx, e, expectedLevel)
	}
	return 1, nil
}

func (f *fakeExpenseRepository) FindEscalatable(ctx context.Context, companyID string, now time.Time, limit int) ([]expense.Expense, error) {
	if f.findEscalatableFn != nil {
		return f.findEscalatableFn(ctx, companyID, now, limit)
	}
	return nil, nil
}

func (f *fakeExpenseRepository) Delete(ctx context.Context, companyID, id string) error {
	if f.deleteFn != nil {
		return f.deleteFn(ctx, companyID, id)
	}
	return nil
}

func (f *fakeExpenseRepository) EmployeeBelongsToCompany(ctx context.Context, companyID, employeeID string) (bool, error) {
	if f.employeeBelongsToCompanyFn != nil {
		return f.employeeBelongsToCompanyFn(ctx, companyID, employeeID)
	}
	return true, nil
}

type fakePolicySource struct {
	activeMatricesFn      func(ctx context.Context, companyID string, entityType approval.EntityType) ([]approval.ApprovalMatrix, error)
	workflowForRoleFn     func(ctx context.Context, companyID string, entityType approval.EntityType, role string) (*approval.WorkflowDefinition, error)
	defaultWorkflowFn     func(ctx context.Context, companyID string, entityType approval.EntityType) (*approval.WorkflowDefinition, error)
	activeDelegationForFn func(ctx context.Context, companyID, delegatorID string, entityType approval.EntityType, now time.Time) (*approval.ApprovalDelegation, error)
}

func (f *fakePolicySource) ActiveMatrices(ctx context.Context, companyID string, entityType approval.EntityType) ([]approval.ApprovalMatrix, error) {
	if f.activeMatricesFn != nil {
		return f.activeMatricesFn(ctx, companyID, entityType)
	}
	return nil, nil
}

func (f *fakePolicySource) WorkflowForRole(ctx context.Context, companyID string, entityType approval.EntityType, role string) (*approval.WorkflowDefinition, error) {
	if f.workflowForRoleFn != nil {
		return f.workflowForRoleFn(ctx, companyID, entityType, role)
	}
	return nil, nil
}

func (f *fakePolicySource) DefaultWorkflow(ctx context.Context, companyID string, entityType approval.EntityType) (*approval.WorkflowDefinition, error) {
	if f.defaultWorkflowFn != nil {
		return f.defaultWorkflowFn(ctx, companyID, entityType)
	}
	return nil, nil
}

func (f *fakePolicySource) ActiveDelegationFor(ctx context.Context, companyID, delegatorID string, entityType approval.EntityType, now time.Time) (*approval.ApprovalDelegation, error) {
	if f.activeDelegationForFn != nil {
		return f.activeDelegationForFn(ctx, companyID, delegatorID, entityType, now)
	}
	return nil, nil
}

type fakeDirectory struct {
	findByIDFn           func(ctx context.Context, companyID, id string) (*approval.DirectoryEmployee, error)
	findByEmailFn        func(ctx context.Context, companyID, email string) (*approval.DirectoryEmployee, error)
	findManagerOfFn      func(ctx context.Context, companyID string, emp *approval.DirectoryEmployee) (*approval.DirectoryEmployee, error)
	findByRoleFn         func(ctx context.Context, companyID, role string) (*approval.DirectoryEmployee, error)
	findDepartmentHeadFn func(ctx context.Context, companyID, departmentID string) (*approval.DirectoryEmployee, error)
}

func (f *fakeDirectory) FindByID(ctx context.Context, companyID, id string) (*approval.DirectoryEmployee, error) {
	if f.findByIDFn != nil {
		return f.findByIDFn(ctx, companyID, id)
	}
	return nil, nil
}

func (f *fakeDirectory) FindByEmail(ctx context.Context, companyID, email string) (*approval.DirectoryEmployee, error) {
	if f.findByEmailFn != nil {
		return f.findByEmailFn(ctx, companyID, email)
	}
	return nil, nil
}

func (f *fakeDirectory) FindManagerOf(ctx context.Context, companyID string, emp *approval.DirectoryEmployee) (*approval.DirectoryEmployee, error) {
	if f.findManagerOfFn != nil {
		return f.findManagerOfFn(ctx, companyID, emp)
	}
	return nil, nil
}

func (f *fakeDirectory) FindByRole(ctx context.Context, companyID, role string) (*approval.DirectoryEmployee, error) {
	if f.findByRoleFn != nil {
		return f.findByRoleFn(ctx, companyID, role)
	}
	return nil, nil
}

func (f *fakeDirectory) FindDepartmentHead(ctx context.Context, companyID, departmentID string) (*approval.DirectoryEmployee, error) {
	if f.findDepartmentHeadFn != nil {
		return f.findDepartmentHeadFn(ctx, companyID, departmentID)
	}
	return nil, nil
}

type recordingNotifier struct {
	sent []approval.Notification
}

func (r *recordingNotifier) Notify(ctx context.Context, n approval.Notification) error {
	r.sent = append(r.sent, n)
	return nil
}

type expenseServiceDeps struct {
	db        *sql.DB
	mock      sqlmock.Sqlmock
	repo      *fakeExpenseRepository
	policies  *fakePolicySource
	directory *fakeDirectory
	notifier  *recordingNotifier
	service   expense.Service
}

func setupExpenseServiceTest(t *testing.T) *expenseServiceDeps {
	t.Helper()

	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := &fakeExpenseRepository{}
	policies := &fakePolicySource{}
	directory := &fakeDirectory{}
	notifier := &recordingNotifier{}

	resolver := approval.NewWorkflowResolver(policies)
	approvers := approval.NewApproverResolver(directory, policies)
	builder := approval.NewBuilder(approvers)
	engine := approval.NewEngine(resolver, builder, directory, notifier).WithClock(fixedNow)

	registry := approval.NewStoreRegistry()
	registry.RegisterStore(expense.NewStore(repo))
	processor := approval.NewProcessor(registry, directory, notifier).WithClock(fixedNow)

	service := expense.NewService(db, repo, engine, processor)

	return &expenseServiceDeps{
		db:        db,
		mock:      mock,
		repo:      repo,
		policies:  policies,
		directory: directory,
		notifier:  notifier,
		service:   service,
	}
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

func draftExpense(companyID, employeeID uuid.UUID, amount float64) *expense.Expense {
	return &expense.Expense{
		ID:          uuid.New(),
		CompanyID:   companyID,
		EmployeeID:  employeeID,
		Category:    "TRAVEL",
		Amount:      amount,
		Currency:    "IDR",
		ExpenseDate: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		Description: "perjalanan dinas",
		Status:      approval.StatusDraft,
		CreatedBy:   employeeID,
	}
}

func validCreateExpenseRequest(employeeID string) expense.CreateExpenseRequest {
	return expense.CreateExpenseRequest{
		EmployeeID:  employeeID,
		Category:    "TRAVEL",
		Amount:      2500000,
		ExpenseDate: "2026-03-01",
		Description: "perjalanan dinas",
	}
}

func TestExpenseServiceCreate(t *testing.T) {
	companyID := uuid.New().String()
	actorID := uuid.New().String()
	employeeID := uuid.New().String()

	t.Run("success defaults currency to IDR", func(t *testing.T) {
		deps := setupExpenseServiceTest(t)
		expectTx(t, deps.mock, true)

		var created *expense.Expense
		deps.repo.createFn = func(ctx context.Context, e *expense.Expense) error {
			created = e
			return nil
		}

		resp, err := deps.service.Create(context.Background(), companyID, actorID, validCreateExpenseRequest(employeeID))

		assert.NoError(t, err)
		assert.Equal(t, "IDR", created.Currency)
		assert.Equal(t, approval.StatusDraft, created.Status)
		assert.Equal(t, 2500000.0, resp.Amount)
		assert.NoError(t, deps.mock.ExpectationsWereMet())
	})

	t.Run("non positive amount is rejected before any transaction", func(t *testing.T) {
		deps := setupExpenseServiceTest(t)

		req := validCreateExpenseRequest(employeeID)
		req.Amount = 0

		_, err := deps.service.Create(context.Background(), companyID, actorID, req)

		assert.ErrorIs(t, err, expenseerrors.ErrInvalidAmount)
		assert.NoError(t, deps.mock.ExpectationsWereMet())
	})

	t.Run("employee outside company is rejected", func(t *testing.T) {
		deps := setupExpenseServiceTest(t)
		expectTx(t, deps.mock, false)

		deps.repo.employeeBelongsToCompanyFn = func(ctx context.Context, cid, eid string) (bool, error) {
			return false, nil
		}

		_, err := deps.service.Create(context.Background(), companyID, actorID, validCreateExpenseRequest(employeeID))

		assert.ErrorIs(t, err, expenseerrors.ErrEmployeeNotInCompany)
	})
}

func TestExpenseServiceSubmit(t *testing.T) {
	companyUUID := uuid.New()
	requester := &approval.DirectoryEmployee{
		ID:       uuid.New(),
		Email:    "staff@acme.test",
		FullName: "Tes Staff",
		Role:     "staff",
		IsActive: true,
	}
	financeHead := &approval.DirectoryEmployee{
		ID:       uuid.New(),
		Email:    "finance@acme.test",
		FullName: "Tes Finance",
		Role:     "finance_manager",
		IsActive: true,
	}
	actorID := requester.ID.String()

	t.Run("large amount matches the matrix over the default workflow", func(t *testing.T) {
		deps := setupExpenseServiceTest(t)

		amountMin := 1000000.0
		matrix := approval.ApprovalMatrix{
			ID:         uuid.New(),
			CompanyID:  companyUUID,
			EntityType: approval.EntityTypeExpense,
			Name:       "pengeluaran besar",
			Condition:  approval.MatrixCondition{AmountMin: &amountMin},
			RequiredApprovers: approval.LevelList{
				{Level: 1, ApproverType: approval.ApproverRoleBased, ApproverRole: "finance_manager", IsRequired: true, SLAMinutes: 120},
			},
			SLAMinutes: 2880,
			Escalation: approval.EscalationRules{Enabled: true, EscalateTo: approval.EscalateAdmin},
			Priority:   10,
			IsActive:   true,
		}
		deps.policies.activeMatricesFn = func(ctx context.Context, cid string, entityType approval.EntityType) ([]approval.ApprovalMatrix, error) {
			assert.Equal(t, approval.EntityTypeExpense, entityType)
			return []approval.ApprovalMatrix{matrix}, nil
		}
		deps.policies.defaultWorkflowFn = func(ctx context.Context, cid string, entityType approval.EntityType) (*approval.WorkflowDefinition, error) {
			t.Fatal("default workflow should not be consulted when a matrix matches")
			return nil, nil
		}
		deps.directory.findByIDFn = func(ctx context.Context, cid, id string) (*approval.DirectoryEmployee, error) {
			return requester, nil
		}
		deps.directory.findByRoleFn = func(ctx context.Context, cid, role string) (*approval.DirectoryEmployee, error) {
			assert.Equal(t, "finance_manager", role)
			return financeHead, nil
		}

		e := draftExpense(companyUUID, requester.ID, 2500000)
		deps.repo.findByIDAndCompanyFn = func(ctx context.Context, cid, id string) (*expense.Expense, error) {
			return e, nil
		}
		var updated *expense.Expense
		deps.repo.submitFromDraftFn = func(ctx context.Context, u *expense.Expense) (int64, error) {
			updated = u
			return 1, nil
		}
		expectTx(t, deps.mock, true)

		resp, err := deps.service.Submit(context.Background(), companyUUID.String(), actorID, e.ID.String())

		assert.NoError(t, err)
		assert.Equal(t, approval.StatusPending, updated.Status)
		assert.Equal(t, approval.SourceMatrix, updated.Approval.WorkflowSource)
		assert.Equal(t, matrix.ID, updated.Approval.WorkflowSourceID)
		assert.Equal(t, financeHead.ID.String(), updated.Approval.Levels[0].ApproverID)
		assert.Equal(t, fixedNow().Add(2880*time.Minute), *updated.SLADeadline)
		assert.Equal(t, approval.StatusPending, resp.Status)

		assert.Len(t, deps.notifier.sent, 1)
		assert.Equal(t, events.EventApprovalRequested, deps.notifier.sent[0].Type)
		assert.Equal(t, financeHead.ID.String(), deps.notifier.sent[0].RecipientID)
		assert.NoError(t, deps.mock.ExpectationsWereMet())
	})

	t.Run("non draft expense cannot be submitted", func(t *testing.T) {
		deps := setupExpenseServiceTest(t)

		e := draftExpense(companyUUID, requester.ID, 500000)
		e.Status = approval.StatusPending
		deps.repo.findByIDAndCompanyFn = func(ctx context.Context, cid, id string) (*expense.Expense, error) {
			return e, nil
		}

		_, err := deps.service.Submit(context.Background(), companyUUID.String(), actorID, e.ID.String())

		assert.ErrorIs(t, err, expenseerrors.ErrInvalidStatusTransition)
		assert.Empty(t, deps.notifier.sent)
	})

	t.Run("concurrent submit loses when the row is no longer draft", func(t *testing.T) {
		deps := setupExpenseServiceTest(t)

		deps.policies.defaultWorkflowFn = func(ctx context.Context, cid string, entityType approval.EntityType) (*approval.WorkflowDefinition, error) {
			return &approval.WorkflowDefinition{
				ID: uuid.New(),
				Levels: approval.LevelList{
					{Level: 1, ApproverType: approval.ApproverRoleBased, ApproverRole: "finance_manager", IsRequired: true, SLAMinutes: 120},
				},
				SLAMinutes: 1440,
				IsDefault:  true,
				IsActive:   true,
			}, nil
		}
		deps.directory.findByIDFn = func(ctx context.Context, cid, id string) (*approval.DirectoryEmployee, error) {
			return requester, nil
		}
		deps.directory.findByRoleFn = func(ctx context.Context, cid, role string) (*approval.DirectoryEmployee, error) {
			return financeHead, nil
		}

		e := draftExpense(companyUUID, requester.ID, 500000)
		deps.repo.findByIDAndCompanyFn = func(ctx context.Context, cid, id string) (*expense.Expense, error) {
			return e, nil
		}
		// Submit lain sudah memindahkan baris keluar dari DRAFT.
		deps.repo.submitFromDraftFn = func(ctx context.Context, u *expense.Expense) (int64, error) {
			return 0, nil
		}
		expectTx(t, deps.mock, false)

		_, err := deps.service.Submit(context.Background(), companyUUID.String(), actorID, e.ID.String())

		assert.ErrorIs(t, err, expenseerrors.ErrInvalidStatusTransition)
		assert.Empty(t, deps.notifier.sent)
		assert.NoError(t, deps.mock.ExpectationsWereMet())
	})
}

func TestExpenseServiceDecide(t *testing.T) {
	companyUUID := uuid.New()
	requesterID := uuid.New()
	approverID := uuid.New()

	pendingExpense := func() *expense.Expense {
		e := draftExpense(companyUUID, requesterID, 2500000)
		e.Status = approval.StatusPending
		e.CurrentLevel = 1
		e.Approval = &approval.Instance{
			CurrentLevel: 1,
			Levels: []approval.LevelState{
				{
					Level:         1,
					ApproverType:  approval.ApproverRoleBased,
					ApproverID:    approverID.String(),
					ApproverEmail: "finance@acme.test",
					IsRequired:    true,
					Status:        approval.LevelStatusPending,
					SLAMinutes:    120,
					SLADeadline:   fixedNow().Add(2 * time.Hour),
				},
			},
			SLADeadline:    fixedNow().Add(48 * time.Hour),
			Escalation:     approval.EscalationRules{Enabled: true, EscalateTo: approval.EscalateAdmin},
			WorkflowSource: approval.SourceMatrix,
			CreatedAt:      fixedNow(),
		}
		return e
	}

	t.Run("final approve finalizes the expense", func(t *testing.T) {
		deps := setupExpenseServiceTest(t)

		e := pendingExpense()
		deps.repo.findByIDAndCompanyFn = func(ctx context.Context, cid, id string) (*expense.Expense, error) {
			return e, nil
		}

		resp, err := deps.service.Decide(
			context.Background(),
			companyUUID.String(),
			approverID.String(),
			"finance@acme.test",
			e.ID.String(),
			approval.DecisionRequest{Level: 1, Action: "approve", Comments: "wajar"},
		)

		assert.NoError(t, err)
		assert.Equal(t, approval.StatusApproved, resp.Status)
		assert.NotNil(t, resp.FinalizedAt)

		assert.Len(t, deps.notifier.sent, 1)
		assert.Equal(t, events.EventApprovalApproved, deps.notifier.sent[0].Type)
		assert.Equal(t, requesterID.String(), deps.notifier.sent[0].RecipientID)
	})

	t.Run("stale conditional write surfaces as conflict", func(t *testing.T) {
		deps := setupExpenseServiceTest(t)

		e := pendingExpense()
		deps.repo.findByIDAndCompanyFn = func(ctx context.Context, cid, id string) (*expense.Expense, error) {
			return e, nil
		}
		deps.repo.saveDecisionFn = func(ctx context.Context, u *expense.Expense, expectedLevel int) (int64, error) {
			return 0, nil
		}

		_, err := deps.service.Decide(
			context.Background(),
			companyUUID.String(),
			approverID.String(),
			"finance@acme.test",
			e.ID.String(),
			approval.DecisionRequest{Level: 1, Action: "approve"},
		)

		assert.ErrorIs(t, err, approval.ErrStaleEntity)
	})
}

func TestExpenseServiceCancel(t *testing.T) {
	companyUUID := uuid.New()
	employeeUUID := uuid.New()

	t.Run("pending can be cancelled", func(t *testing.T) {
		deps := setupExpenseServiceTest(t)
		expectTx(t, deps.mock, true)

		e := draftExpense(companyUUID, employeeUUID, 500000)
		e.Status = approval.StatusPending
		deps.repo.findByIDAndCompanyFn = func(ctx context.Context, cid, id string) (*expense.Expense, error) {
			return e, nil
		}

		resp, err := deps.service.Cancel(context.Background(), companyUUID.String(), employeeUUID.String(), e.ID.String())

		assert.NoError(t, err)
		assert.Equal(t, approval.StatusCanceled, resp.Status)
	})

	t.Run("finalized expense cannot be cancelled", func(t *testing.T) {
		deps := setupExpenseServiceTest(t)
		expectTx(t, deps.mock, false)

		e := draftExpense(companyUUID, employeeUUID, 500000)
		e.Status = approval.StatusRejected
		deps.repo.findByIDAndCompanyFn = func(ctx context.Context, cid, id string) (*expense.Expense, error) {
			return e, nil
		}

		_, err := deps.service.Cancel(context.Background(), companyUUID.String(), employeeUUID.String(), e.ID.String())

		assert.ErrorIs(t, err, expenseerrors.ErrInvalidStatusTransition)
	})
}
