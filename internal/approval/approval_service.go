package approval

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	approvalerrors "github.com/vibhu2208/hrms-backend-sub002/internal/approval/errors"
)

// PolicyInvalidator dipenuhi PolicyCache; no-op kalau cache tidak dipasang.
type PolicyInvalidator interface {
	Invalidate(ctx context.Context, companyID string)
}

type nopInvalidator struct{}

func (nopInvalidator) Invalidate(ctx context.Context, companyID string) {}

// Service adalah permukaan admin Policy Store: CRUD workflow definition,
// matrix, dan delegation. Policy yang diedit tidak mengubah instance yang
// sudah berjalan; instance membekukan salinannya sendiri saat dibuat.
//
//go:generate mockgen -source=approval_service.go -destination=mock/approval_service_mock.go -package=mock
type Service interface {
	CreateWorkflow(ctx context.Context, companyID, actorID string, req CreateWorkflowRequest) (WorkflowResponse, error)
	GetWorkflows(ctx context.Context, companyID, entityType string) ([]WorkflowResponse, error)
	GetWorkflowByID(ctx context.Context, companyID, id string) (WorkflowResponse, error)
	UpdateWorkflow(ctx context.Context, companyID, actorID, id string, req UpdateWorkflowRequest) (WorkflowResponse, error)
	DeleteWorkflow(ctx context.Context, companyID, id string) error

	CreateMatrix(ctx context.Context, companyID, actorID string, req CreateMatrixRequest) (MatrixResponse, error)
	GetMatrices(ctx context.Context, companyID, entityType string) ([]MatrixResponse, error)
	GetMatrixByID(ctx context.Context, companyID, id string) (MatrixResponse, error)
	UpdateMatrix(ctx context.Context, companyID, actorID, id string, req UpdateMatrixRequest) (MatrixResponse, error)
	DeleteMatrix(ctx context.Context, companyID, id string) error

	CreateDelegation(ctx context.Context, companyID, actorID string, req CreateDelegationRequest) (DelegationResponse, error)
	GetDelegations(ctx context.Context, companyID string) ([]DelegationResponse, error)
	UpdateDelegation(ctx context.Context, companyID, actorID, id string, req UpdateDelegationRequest) (DelegationResponse, error)
	DeleteDelegation(ctx context.Context, companyID, id string) error
}

type service struct {
	db     *sql.DB
	repo   Repository
	cache  PolicyInvalidator
	logger *zap.Logger
}

func NewService(db *sql.DB, repo Repository, cache PolicyInvalidator, logger ...*zap.Logger) Service {
	l := zap.L().Named("approval.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("approval.service")
	}
	if cache == nil {
		cache = nopInvalidator{}
	}
	return &service{db: db, repo: repo, cache: cache, logger: l}
}

// --- Workflows ---

func (s *service) CreateWorkflow(ctx context.Context, companyID, actorID string, req CreateWorkflowRequest) (WorkflowResponse, error) {
	s.logger.Debug("create workflow requested",
		zap.String("company_id", companyID),
		zap.String("actor_id", actorID),
		zap.String("entity_type", req.EntityType),
	)

	companyUUID, err := uuid.Parse(companyID)
	if err != nil {
		return WorkflowResponse{}, approvalerrors.ErrInvalidCompanyID
	}
	actorUUID, err := uuid.Parse(actorID)
	if err != nil {
		return WorkflowResponse{}, approvalerrors.ErrInvalidActorID
	}
	entityType := EntityType(req.EntityType)
	if !entityType.Valid() {
		return WorkflowResponse{}, approvalerrors.ErrUnknownEntityType
	}

	levels := levelsFromRequest(req.Levels)
	if err := ValidateLevels(levels); err != nil {
		s.logger.Warn("create workflow invalid levels", zap.Error(err))
		return WorkflowResponse{}, approvalerrors.ErrInvalidLevels
	}

	w := &WorkflowDefinition{
		ID:            uuid.New(),
		CompanyID:     companyUUID,
		EntityType:    entityType,
		RequesterRole: req.RequesterRole,
		Name:          req.Name,
		Levels:        levels,
		SLAMinutes:    req.SLAMinutes,
		Escalation:    escalationFromRequest(req.Escalation),
		IsDefault:     req.IsDefault,
		Priority:      req.Priority,
		IsActive:      true,
		CreatedBy:     actorUUID,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Error("create workflow begin tx failed", zap.Error(err))
		return WorkflowResponse{}, err
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)
	if req.IsDefault {
		// Invariant: tepat satu default per (company, entityType).
		if err := qtx.ClearDefaultWorkflow(ctx, companyID, entityType, w.ID.String()); err != nil {
			s.logger.Error("create workflow clear default failed", zap.Error(err))
			return WorkflowResponse{}, err
		}
	}
	if err := qtx.CreateWorkflow(ctx, w); err != nil {
		s.logger.Error("create workflow persist failed", zap.Error(err))
		return WorkflowResponse{}, err
	}
	if err := tx.Commit(); err != nil {
		return WorkflowResponse{}, err
	}

	s.cache.Invalidate(ctx, companyID)
	s.logger.Info("create workflow success",
		zap.String("workflow_id", w.ID.String()),
		zap.String("company_id", companyID),
		zap.String("entity_type", req.EntityType),
	)
	return mapWorkflowResponse(*w), nil
}

func (s *service) GetWorkflows(ctx context.Context, companyID, entityType string) ([]WorkflowResponse, error) {
	defs, err := s.repo.ListWorkflows(ctx, companyID, EntityType(entityType))
	if err != nil {
		return nil, err
	}
	resp := make([]WorkflowResponse, len(defs))
	for i, w := range defs {
		resp[i] = mapWorkflowResponse(w)
	}
	return resp, nil
}

func (s *service) GetWorkflowByID(ctx context.Context, companyID, id string) (WorkflowResponse, error) {
	w, err := s.repo.FindWorkflowByID(ctx, companyID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return WorkflowResponse{}, approvalerrors.ErrWorkflowNotFound
		}
		return WorkflowResponse{}, err
	}
	return mapWorkflowResponse(*w), nil
}

func (s *service) UpdateWorkflow(ctx context.Context, companyID, actorID, id string, req UpdateWorkflowRequest) (WorkflowResponse, error) {
	if _, err := uuid.Parse(companyID); err != nil {
		return WorkflowResponse{}, approvalerrors.ErrInvalidCompanyID
	}
	if _, err := uuid.Parse(actorID); err != nil {
		return WorkflowResponse{}, approvalerrors.ErrInvalidActorID
	}

	levels := levelsFromRequest(req.Levels)
	if err := ValidateLevels(levels); err != nil {
		s.logger.Warn("update workflow invalid levels", zap.Error(err))
		return WorkflowResponse{}, approvalerrors.ErrInvalidLevels
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return WorkflowResponse{}, err
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)
	w, err := qtx.FindWorkflowByID(ctx, companyID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return WorkflowResponse{}, approvalerrors.ErrWorkflowNotFound
		}
		return WorkflowResponse{}, err
	}

	w.RequesterRole = req.RequesterRole
	w.Name = req.Name
	w.Levels = levels
	w.SLAMinutes = req.SLAMinutes
	w.Escalation = escalationFromRequest(req.Escalation)
	w.IsDefault = req.IsDefault
	w.Priority = req.Priority
	if req.IsActive != nil {
		w.IsActive = *req.IsActive
	}

	if req.IsDefault {
		if err := qtx.ClearDefaultWorkflow(ctx, companyID, w.EntityType, w.ID.String()); err != nil {
			return WorkflowResponse{}, err
		}
	}
	if err := qtx.UpdateWorkflow(ctx, w); err != nil {
		s.logger.Error("update workflow persist failed", zap.String("workflow_id", id), zap.Error(err))
		return WorkflowResponse{}, err
	}
	if err := tx.Commit(); err != nil {
		return WorkflowResponse{}, err
	}

	s.cache.Invalidate(ctx, companyID)
	s.logger.Info("update workflow success", zap.String("workflow_id", id))
	return mapWorkflowResponse(*w), nil
}

func (s *service) DeleteWorkflow(ctx context.Context, companyID, id string) error {
	if err := s.repo.DeleteWorkflow(ctx, companyID, id); err != nil {
		return err
	}
	s.cache.Invalidate(ctx, companyID)
	return nil
}

// --- Matrices ---

func (s *service) CreateMatrix(ctx context.Context, companyID, actorID string, req CreateMatrixRequest) (MatrixResponse, error) {
	s.logger.Debug("create matrix requested",
		zap.String("company_id", companyID),
		zap.String("actor_id", actorID),
		zap.String("entity_type", req.EntityType),
	)

	companyUUID, err := uuid.Parse(companyID)
	if err != nil {
		return MatrixResponse{}, approvalerrors.ErrInvalidCompanyID
	}
	actorUUID, err := uuid.Parse(actorID)
	if err != nil {
		return MatrixResponse{}, approvalerrors.ErrInvalidActorID
	}
	entityType := EntityType(req.EntityType)
	if !entityType.Valid() {
		return MatrixResponse{}, approvalerrors.ErrUnknownEntityType
	}

	levels := levelsFromRequest(req.RequiredApprovers)
	if err := ValidateLevels(levels); err != nil {
		s.logger.Warn("create matrix invalid approvers", zap.Error(err))
		return MatrixResponse{}, approvalerrors.ErrInvalidLevels
	}

	m := &ApprovalMatrix{
		ID:                uuid.New(),
		CompanyID:         companyUUID,
		EntityType:        entityType,
		Name:              req.Name,
		Condition:         conditionFromRequest(req.Condition),
		RequiredApprovers: levels,
		SLAMinutes:        req.SLAMinutes,
		Escalation:        escalationFromRequest(req.Escalation),
		Priority:          req.Priority,
		IsActive:          true,
		CreatedBy:         actorUUID,
	}

	if err := s.repo.CreateMatrix(ctx, m); err != nil {
		s.logger.Error("create matrix persist failed", zap.Error(err))
		return MatrixResponse{}, err
	}

	s.cache.Invalidate(ctx, companyID)
	s.logger.Info("create matrix success",
		zap.String("matrix_id", m.ID.String()),
		zap.String("company_id", companyID),
	)
	return mapMatrixResponse(*m), nil
}

func (s *service) GetMatrices(ctx context.Context, companyID, entityType string) ([]MatrixResponse, error) {
	matrices, err := s.repo.ListMatrices(ctx, companyID, EntityType(entityType))
	if err != nil {
		return nil, err
	}
	resp := make([]MatrixResponse, len(matrices))
	for i, m := range matrices {
		resp[i] = mapMatrixResponse(m)
	}
	return resp, nil
}

func (s *service) GetMatrixByID(ctx context.Context, companyID, id string) (MatrixResponse, error) {
	m, err := s.repo.FindMatrixByID(ctx, companyID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return MatrixResponse{}, approvalerrors.ErrMatrixNotFound
		}
		return MatrixResponse{}, err
	}
	return mapMatrixResponse(*m), nil
}

func (s *service) UpdateMatrix(ctx context.Context, companyID, actorID, id string, req UpdateMatrixRequest) (MatrixResponse, error) {
	if _, err := uuid.Parse(actorID); err != nil {
		return MatrixResponse{}, approvalerrors.ErrInvalidActorID
	}

	levels := levelsFromRequest(req.RequiredApprovers)
	if err := ValidateLevels(levels); err != nil {
		return MatrixResponse{}, approvalerrors.ErrInvalidLevels
	}

	m, err := s.repo.FindMatrixByID(ctx, companyID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return MatrixResponse{}, approvalerrors.ErrMatrixNotFound
		}
		return MatrixResponse{}, err
	}

	m.Name = req.Name
	m.Condition = conditionFromRequest(req.Condition)
	m.RequiredApprovers = levels
	m.SLAMinutes = req.SLAMinutes
	m.Escalation = escalationFromRequest(req.Escalation)
	m.Priority = req.Priority
	if req.IsActive != nil {
		m.IsActive = *req.IsActive
	}

	if err := s.repo.UpdateMatrix(ctx, m); err != nil {
		s.logger.Error("update matrix persist failed", zap.String("matrix_id", id), zap.Error(err))
		return MatrixResponse{}, err
	}

	s.cache.Invalidate(ctx, companyID)
	s.logger.Info("update matrix success", zap.String("matrix_id", id))
	return mapMatrixResponse(*m), nil
}

func (s *service) DeleteMatrix(ctx context.Context, companyID, id string) error {
	if err := s.repo.DeleteMatrix(ctx, companyID, id); err != nil {
		return err
	}
	s.cache.Invalidate(ctx, companyID)
	return nil
}

// --- Delegations ---

func (s *service) CreateDelegation(ctx context.Context, companyID, actorID string, req CreateDelegationRequest) (DelegationResponse, error) {
	companyUUID, err := uuid.Parse(companyID)
	if err != nil {
		return DelegationResponse{}, approvalerrors.ErrInvalidCompanyID
	}
	delegatorUUID, err := uuid.Parse(req.DelegatorID)
	if err != nil {
		return DelegationResponse{}, approvalerrors.ErrInvalidActorID
	}
	delegateUUID, err := uuid.Parse(req.DelegateID)
	if err != nil {
		return DelegationResponse{}, approvalerrors.ErrInvalidActorID
	}

	startDate, endDate, err := parseDelegationWindow(req.StartDate, req.EndDate)
	if err != nil {
		return DelegationResponse{}, err
	}

	types, err := parseEntityTypes(req.EntityTypes)
	if err != nil {
		return DelegationResponse{}, err
	}

	d := &ApprovalDelegation{
		ID:          uuid.New(),
		CompanyID:   companyUUID,
		DelegatorID: delegatorUUID,
		DelegateID:  delegateUUID,
		EntityTypes: types,
		StartDate:   startDate,
		EndDate:     endDate,
		Reason:      req.Reason,
		IsActive:    true,
	}

	if err := s.repo.CreateDelegation(ctx, d); err != nil {
		s.logger.Error("create delegation persist failed", zap.Error(err))
		return DelegationResponse{}, err
	}

	s.logger.Info("create delegation success",
		zap.String("delegation_id", d.ID.String()),
		zap.String("delegator_id", req.DelegatorID),
		zap.String("delegate_id", req.DelegateID),
	)
	return mapDelegationResponse(*d), nil
}

func (s *service) GetDelegations(ctx context.Context, companyID string) ([]DelegationResponse, error) {
	delegations, err := s.repo.ListDelegations(ctx, companyID)
	if err != nil {
		return nil, err
	}
	resp := make([]DelegationResponse, len(delegations))
	for i, d := range delegations {
		resp[i] = mapDelegationResponse(d)
	}
	return resp, nil
}

func (s *service) UpdateDelegation(ctx context.Context, companyID, actorID, id string, req UpdateDelegationRequest) (DelegationResponse, error) {
	d, err := s.repo.FindDelegationByID(ctx, companyID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return DelegationResponse{}, approvalerrors.ErrDelegationNotFound
		}
		return DelegationResponse{}, err
	}

	startDate, endDate, err := parseDelegationWindow(req.StartDate, req.EndDate)
	if err != nil {
		return DelegationResponse{}, err
	}
	types, err := parseEntityTypes(req.EntityTypes)
	if err != nil {
		return DelegationResponse{}, err
	}

	d.EntityTypes = types
	d.StartDate = startDate
	d.EndDate = endDate
	d.Reason = req.Reason
	if req.IsActive != nil {
		d.IsActive = *req.IsActive
	}

	if err := s.repo.UpdateDelegation(ctx, d); err != nil {
		s.logger.Error("update delegation persist failed", zap.String("delegation_id", id), zap.Error(err))
		return DelegationResponse{}, err
	}

	s.logger.Info("update delegation success", zap.String("delegation_id", id))
	return mapDelegationResponse(*d), nil
}

func (s *service) DeleteDelegation(ctx context.Context, companyID, id string) error {
	return s.repo.DeleteDelegation(ctx, companyID, id)
}

func parseDelegationWindow(start, end string) (time.Time, time.Time, error) {
	startDate, err := parsePolicyDate(start)
	if err != nil {
		return time.Time{}, time.Time{}, approvalerrors.ErrInvalidDateRange
	}
	endDate, err := parsePolicyDate(end)
	if err != nil {
		return time.Time{}, time.Time{}, approvalerrors.ErrInvalidDateRange
	}
	if startDate.After(endDate) {
		return time.Time{}, time.Time{}, approvalerrors.ErrInvalidDateRange
	}
	return startDate, endDate, nil
}

func parseEntityTypes(values []string) (EntityTypeList, error) {
	types := make(EntityTypeList, 0, len(values))
	for _, v := range values {
		t := EntityType(v)
		if t != EntityTypeAll && !t.Valid() {
			return nil, approvalerrors.ErrUnknownEntityType
		}
		types = append(types, t)
	}
	return types, nil
}
