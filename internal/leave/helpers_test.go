package leave_test

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
	"github.com/vibhu2208/hrms-backend-sub002/internal/leave"
)

func fixedNow() time.Time {
	return time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
}

// fakeLeaveRepository adalah Repository in-memory dengan function fields;
// method tanpa override mengembalikan nilai default yang aman.
type fakeLeaveRepository struct {
	withTxFn                   func(tx *sql.Tx) leave.Repository
	createFn                   func(ctx context.Context, l *leave.Leave) error
	findAllByCompanyFn         func(ctx context.Context, companyID string) ([]leave.Leave, error)
	findByIDAndCompanyFn       func(ctx context.Context, companyID, id string) (*leave.Leave, error)
	updateFn                   func(ctx context.Context, l *leave.Leave) error
	submitFromDraftFn          func(ctx context.Context, l *leave.Leave) (int64, error)
	saveDecisionFn             func(ctx context.Context, l *leave.Leave, expectedLevel int) (int64, error)
	findEscalatableFn          func(ctx context.Context, companyID string, now time.Time, limit int) ([]leave.Leave, error)
	deleteFn                   func(ctx context.Context, companyID, id string) error
	employeeBelongsToCompanyFn func(ctx context.Context, companyID, employeeID string) (bool, error)
	hasOverlappingPeriodFn     func(ctx context.Context, companyID, employeeID string, startDate, endDate time.Time, excludeID *string) (bool, error)
}

func (f *fakeLeaveRepository) WithTx(tx *sql.Tx) leave.Repository {
	if f.withTxFn != nil {
		return f.withTxFn(tx)
	}
	return f
}

func (f *fakeLeaveRepository) Create(ctx context.Context, l *leave.Leave) error {
	if f.createFn != nil {
		return f.createFn(ctx, l)
	}
	return nil
}

func (f *fakeLeaveRepository) FindAllByCompany(ctx context.Context, companyID string) ([]leave.Leave, error) {
	if f.findAllByCompanyFn != nil {
		return f.findAllByCompanyFn(ctx, companyID)
	}
	return nil, nil
}

func (f *fakeLeaveRepository) FindByIDAndCompany(ctx context.Context, companyID, id string) (*leave.Leave, error) {
	if f.findByIDAndCompanyFn != nil {
		return f.findByIDAndCompanyFn(ctx, companyID, id)
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeLeaveRepository) Update(ctx context.Context, l *leave.Leave) error {
	if f.updateFn != nil {
		return f.updateFn(ctx, l)
	}
	return nil
}

func (f *fakeLeaveRepository) SubmitFromDraft(ctx context.Context, l *leave.Leave) (int64, error) {
	if f.submitFromDraftFn != nil {
		return f.submitFromDraftFn(ctx, l)
	}
	return 1, nil
}

func (f *fakeLeaveRepository) SaveDecision(ctx context.Context, l *leave.Leave, expectedLevel int) (int64, error) {
	if f.saveDecisionFn != nil {
		return f.saveDecisionFn(ctx, l, expectedLevel)
	}
	return 1, nil
}

func (f *fakeLeaveRepository) FindEscalatable(ctx context.Context, companyID string, now time.Time, limit int) ([]leave.Leave, error) {
	if f.findEscalatableFn != nil {
		return f.findEscalatableFn(ctx, companyID, now, limit)
	}
	return nil, nil
}

func (f *fakeLeaveRepository) Delete(ctx context.Context, companyID, id string) error {
	if f.deleteFn != nil {
		return f.deleteFn(ctx, companyID, id)
	}
	return nil
}

func (f *fakeLeaveRepository) EmployeeBelongsToCompany(ctx context.Context, companyID, employeeID string) (bool, error) {
	if f.employeeBelongsToCompanyFn != nil {
		return f.employeeBelongsToCompanyFn(ctx, companyID, employeeID)
	}
	return true, nil
}

func (f *fakeLeaveRepository) HasOverlappingPeriod(ctx context.Context, companyID, employeeID string, startDate, endDate time.Time, excludeID *string) (bool, error) {
	if f.hasOverlappingPeriodFn != nil {
		return f.hasOverlappingPeriodFn(ctx, companyID, employeeID, startDate, endDate, excludeID)
	}
	return false, nil
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
	notifyFn func(ctx context.Context, n approval.Notification) error
	sent     []approval.Notification
}

func (r *recordingNotifier) Notify(ctx context.Context, n approval.Notification) error {
	r.sent = append(r.sent, n)
	if r.notifyFn != nil {
		return r.notifyFn(ctx, n)
	}
	return nil
}

type leaveServiceDeps struct {
	db        *sql.DB
	mock      sqlmock.Sqlmock
	repo      *fakeLeaveRepository
	policies  *fakePolicySource
	directory *fakeDirectory
	notifier  *recordingNotifier
	service   leave.Service
}

// setupLeaveServiceTest merakit service di atas engine dan processor asli,
// hanya repository, policy source, dan direktori yang dipalsukan.
func setupLeaveServiceTest(t *testing.T) *leaveServiceDeps {
	t.Helper()

	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := &fakeLeaveRepository{}
	policies := &fakePolicySource{}
	directory := &fakeDirectory{}
	notifier := &recordingNotifier{}

	resolver := approval.NewWorkflowResolver(policies)
	approvers := approval.NewApproverResolver(directory, policies)
	builder := approval.NewBuilder(approvers)
	engine := approval.NewEngine(resolver, builder, directory, notifier).WithClock(fixedNow)

	registry := approval.NewStoreRegistry()
	registry.RegisterStore(leave.NewStore(repo))
	processor := approval.NewProcessor(registry, directory, notifier).WithClock(fixedNow)

	service := leave.NewService(db, repo, engine, processor)

	return &leaveServiceDeps{
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

func directoryEmployee(role string) *approval.DirectoryEmployee {
	return &approval.DirectoryEmployee{
		ID:       uuid.New(),
		Email:    role + "@acme.test",
		FullName: "Tes " + role,
		Role:     role,
		IsActive: true,
	}
}

func draftLeave(companyID, employeeID uuid.UUID) *leave.Leave {
	return &leave.Leave{
		ID:         uuid.New(),
		CompanyID:  companyID,
		EmployeeID: employeeID,
		LeaveType:  "ANNUAL",
		StartDate:  time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
		EndDate:    time.Date(2026, 4, 3, 0, 0, 0, 0, time.UTC),
		TotalDays:  3,
		Reason:     "cuti tahunan",
		Status:     approval.StatusDraft,
		CreatedBy:  employeeID,
	}
}

func pendingLevel(n int, approverID uuid.UUID, approverEmail string) approval.LevelState {
	return approval.LevelState{
		Level:         n,
		ApproverType:  approval.ApproverReportingManager,
		ApproverID:    approverID.String(),
		ApproverEmail: approverEmail,
		IsRequired:    true,
		Status:        approval.LevelStatusPending,
		SLAMinutes:    60,
		SLADeadline:   fixedNow().Add(time.Hour),
	}
}

func pendingLeave(companyID, employeeID uuid.UUID, levels ...approval.LevelState) *leave.Leave {
	l := draftLeave(companyID, employeeID)
	l.Status = approval.StatusPending
	l.Approval = &approval.Instance{
		CurrentLevel: 1,
		Levels:       levels,
		SLADeadline:  fixedNow().Add(24 * time.Hour),
		Escalation: approval.EscalationRules{
			Enabled:    true,
			EscalateTo: approval.EscalateHR,
		},
		WorkflowSource: approval.SourceDefaultWorkflow,
		CreatedAt:      fixedNow(),
	}
	l.CurrentLevel = 1
	return l
}
