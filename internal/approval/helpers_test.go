package approval_test

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/vibhu2208/hrms-backend-sub002/internal/approval"
)

// fakePolicySource adalah PolicySource in-memory untuk test resolver.
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

// fakeDirectory adalah EmployeeDirectory in-memory.
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

// recordingNotifier menyimpan semua notifikasi yang dikirim engine.
type recordingNotifier struct {
	notifyFn func(ctx context.Context, n approval.Notification) error
	sent     []approval.Notification
}

func (f *recordingNotifier) Notify(ctx context.Context, n approval.Notification) error {
	f.sent = append(f.sent, n)
	if f.notifyFn != nil {
		return f.notifyFn(ctx, n)
	}
	return nil
}

// fakeStore adalah EntityStore in-memory untuk processor dan monitor.
type fakeStore struct {
	entityType        approval.EntityType
	findForApprovalFn func(ctx context.Context, companyID, id string) (approval.Approvable, error)
	saveDecisionFn    func(ctx context.Context, e approval.Approvable, expectedLevel int) error
	findEscalatableFn func(ctx context.Context, companyID string, now time.Time, limit int) ([]approval.Approvable, error)
	saved             []int
}

func (f *fakeStore) EntityType() approval.EntityType {
	if f.entityType != "" {
		return f.entityType
	}
	return approval.EntityTypeLeave
}

func (f *fakeStore) FindForApproval(ctx context.Context, companyID, id string) (approval.Approvable, error) {
	if f.findForApprovalFn != nil {
		return f.findForApprovalFn(ctx, companyID, id)
	}
	return nil, nil
}

func (f *fakeStore) SaveDecision(ctx context.Context, e approval.Approvable, expectedLevel int) error {
	f.saved = append(f.saved, expectedLevel)
	if f.saveDecisionFn != nil {
		return f.saveDecisionFn(ctx, e, expectedLevel)
	}
	return nil
}

func (f *fakeStore) FindEscalatable(ctx context.Context, companyID string, now time.Time, limit int) ([]approval.Approvable, error) {
	if f.findEscalatableFn != nil {
		return f.findEscalatableFn(ctx, companyID, now, limit)
	}
	return nil, nil
}

// fakeFinalizer mencatat berapa kali tiap hook terminal dipanggil.
type fakeFinalizer struct {
	onApprovedFn func(ctx context.Context, e approval.Approvable) error
	onRejectedFn func(ctx context.Context, e approval.Approvable) error
	approved     int
	rejected     int
}

func (f *fakeFinalizer) OnApproved(ctx context.Context, e approval.Approvable) error {
	f.approved++
	if f.onApprovedFn != nil {
		return f.onApprovedFn(ctx, e)
	}
	return nil
}

func (f *fakeFinalizer) OnRejected(ctx context.Context, e approval.Approvable) error {
	f.rejected++
	if f.onRejectedFn != nil {
		return f.onRejectedFn(ctx, e)
	}
	return nil
}

// stubEntity adalah Approvable minimal untuk test state machine.
type stubEntity struct {
	id          uuid.UUID
	companyID   uuid.UUID
	entityType  approval.EntityType
	requesterID uuid.UUID
	status      string
	inst        *approval.Instance
}

func (s *stubEntity) ApprovalEntityID() uuid.UUID               { return s.id }
func (s *stubEntity) ApprovalCompanyID() uuid.UUID              { return s.companyID }
func (s *stubEntity) ApprovalEntityType() approval.EntityType   { return s.entityType }
func (s *stubEntity) RequesterID() uuid.UUID                    { return s.requesterID }
func (s *stubEntity) ApprovalState() *approval.Instance         { return s.inst }
func (s *stubEntity) EntityStatus() string                      { return s.status }
func (s *stubEntity) SetEntityStatus(status string)             { s.status = status }

func fixedNow() time.Time {
	return time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
}

func directoryEmployee(role string) *approval.DirectoryEmployee {
	return &approval.DirectoryEmployee{
		ID:       uuid.New(),
		Email:    role + "@acme.test",
		FullName: "Test " + role,
		Role:     role,
		IsActive: true,
	}
}

func pendingInstance(now time.Time, levels ...approval.LevelState) *approval.Instance {
	return &approval.Instance{
		CurrentLevel: 1,
		Levels:       levels,
		SLADeadline:  now.Add(24 * time.Hour),
		Escalation:   approval.EscalationRules{Enabled: true, EscalateTo: approval.EscalateHR},
		CreatedAt:    now,
	}
}

func pendingLevel(n int, approverID, approverEmail string) approval.LevelState {
	return approval.LevelState{
		Level:         n,
		ApproverType:  approval.ApproverReportingManager,
		ApproverID:    approverID,
		ApproverEmail: approverEmail,
		IsRequired:    true,
		Status:        approval.LevelStatusPending,
		SLAMinutes:    60,
		SLADeadline:   fixedNow().Add(time.Hour),
	}
}
