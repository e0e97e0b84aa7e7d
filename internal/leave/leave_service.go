package leave

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/vibhu2208/hrms-backend-sub002/internal/approval"
	leaveerrors "github.com/vibhu2208/hrms-backend-sub002/internal/leave/errors"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:generate mockgen -source=leave_service.go -destination=mock/leave_service_mock.go -package=mock
type Service interface {
	Create(ctx context.Context, companyID, actorID string, req CreateLeaveRequest) (LeaveResponse, error)
	GetAll(ctx context.Context, companyID string) ([]LeaveResponse, error)
	GetByID(ctx context.Context, companyID, id string) (LeaveResponse, error)
	Update(ctx context.Context, companyID, actorID, id string, req UpdateLeaveRequest) (LeaveResponse, error)
	Submit(ctx context.Context, companyID, actorID, id string) (LeaveResponse, error)
	Decide(ctx context.Context, companyID, actorID, actorEmail, id string, req approval.DecisionRequest) (LeaveResponse, error)
	Cancel(ctx context.Context, companyID, actorID, id string) (LeaveResponse, error)
	Delete(ctx context.Context, companyID, id string) error
}

type service struct {
	db        *sql.DB
	repo      Repository
	engine    *approval.Engine
	processor *approval.Processor
	logger    *zap.Logger
}

func NewService(db *sql.DB, repo Repository, engine *approval.Engine, processor *approval.Processor, logger ...*zap.Logger) Service {
	l := zap.L().Named("leave.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("leave.service")
	}
	return &service{db: db, repo: repo, engine: engine, processor: processor, logger: l}
}

func (s *service) Create(ctx context.Context, companyID, actorID string, req CreateLeaveRequest) (LeaveResponse, error) {
	s.logger.Debug("create leave requested",
		zap.String("company_id", companyID),
		zap.String("actor_id", actorID),
		zap.String("employee_id", req.EmployeeID),
		zap.String("start_date", req.StartDate),
		zap.String("end_date", req.EndDate),
	)

	companyUUID, employeeUUID, createdByUUID, startDate, endDate, err := validateCreateRequest(companyID, actorID, req)
	if err != nil {
		s.logger.Warn("create leave validation failed", zap.Error(err))
		return LeaveResponse{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Error("create leave begin tx failed", zap.Error(err))
		return LeaveResponse{}, err
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)

	belongs, err := qtx.EmployeeBelongsToCompany(ctx, companyID, req.EmployeeID)
	if err != nil {
		s.logger.Error("create leave employee company check failed", zap.Error(err))
		return LeaveResponse{}, err
	}
	if !belongs {
		return LeaveResponse{}, leaveerrors.ErrEmployeeNotInCompany
	}

	overlap, err := qtx.HasOverlappingPeriod(ctx, companyID, req.EmployeeID, startDate, endDate, nil)
	if err != nil {
		s.logger.Error("create leave overlap check failed", zap.Error(err))
		return LeaveResponse{}, err
	}
	if overlap {
		s.logger.Warn("create leave overlap detected",
			zap.String("company_id", companyID),
			zap.String("employee_id", req.EmployeeID),
		)
		return LeaveResponse{}, leaveerrors.ErrLeaveOverlap
	}

	totalDays := int(endDate.Sub(startDate).Hours()/24) + 1
	l := &Leave{
		ID:         uuid.New(),
		CompanyID:  companyUUID,
		EmployeeID: employeeUUID,
		LeaveType:  req.LeaveType,
		StartDate:  startDate,
		EndDate:    endDate,
		TotalDays:  totalDays,
		Reason:     req.Reason,
		Status:     approval.StatusDraft,
		CreatedBy:  createdByUUID,
	}

	if err := qtx.Create(ctx, l); err != nil {
		s.logger.Error("create leave persist failed", zap.Error(err))
		return LeaveResponse{}, err
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("create leave commit failed", zap.Error(err))
		return LeaveResponse{}, err
	}
	s.logger.Info("create leave success",
		zap.String("leave_id", l.ID.String()),
		zap.String("company_id", companyID),
	)

	return mapToResponse(*l), nil
}

func (s *service) GetAll(ctx context.Context, companyID string) ([]LeaveResponse, error) {
	leaves, err := s.repo.FindAllByCompany(ctx, companyID)
	if err != nil {
		return nil, err
	}
	return mapToListResponse(leaves), nil
}

func (s *service) GetByID(ctx context.Context, companyID, id string) (LeaveResponse, error) {
	l, err := s.repo.FindByIDAndCompany(ctx, companyID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return LeaveResponse{}, leaveerrors.ErrLeaveNotFound
		}
		return LeaveResponse{}, err
	}
	return mapToResponse(*l), nil
}

func (s *service) Update(ctx context.Context, companyID, actorID, id string, req UpdateLeaveRequest) (LeaveResponse, error) {
	s.logger.Debug("update leave requested",
		zap.String("leave_id", id),
		zap.String("company_id", companyID),
		zap.String("actor_id", actorID),
	)

	if _, err := uuid.Parse(companyID); err != nil {
		return LeaveResponse{}, leaveerrors.ErrInvalidCompanyID
	}
	if _, err := uuid.Parse(actorID); err != nil {
		return LeaveResponse{}, leaveerrors.ErrInvalidActorID
	}
	startDate, err := parseDate(req.StartDate)
	if err != nil {
		return LeaveResponse{}, err
	}
	endDate, err := parseDate(req.EndDate)
	if err != nil {
		return LeaveResponse{}, err
	}
	if startDate.After(endDate) {
		return LeaveResponse{}, leaveerrors.ErrInvalidDateRange
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Error("update leave begin tx failed", zap.Error(err))
		return LeaveResponse{}, err
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)

	l, err := qtx.FindByIDAndCompany(ctx, companyID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return LeaveResponse{}, leaveerrors.ErrLeaveNotFound
		}
		return LeaveResponse{}, err
	}
	// Detail hanya boleh berubah sebelum masuk rantai approval.
	if l.Status != approval.StatusDraft {
		return LeaveResponse{}, leaveerrors.ErrLeaveNotDraft
	}

	overlap, err := qtx.HasOverlappingPeriod(ctx, companyID, l.EmployeeID.String(), startDate, endDate, &id)
	if err != nil {
		return LeaveResponse{}, err
	}
	if overlap {
		return LeaveResponse{}, leaveerrors.ErrLeaveOverlap
	}

	l.LeaveType = req.LeaveType
	l.StartDate = startDate
	l.EndDate = endDate
	l.TotalDays = int(endDate.Sub(startDate).Hours()/24) + 1
	l.Reason = req.Reason

	if err := qtx.Update(ctx, l); err != nil {
		s.logger.Error("update leave persist failed", zap.String("leave_id", id), zap.Error(err))
		return LeaveResponse{}, err
	}
	if err := tx.Commit(); err != nil {
		s.logger.Error("update leave commit failed", zap.String("leave_id", id), zap.Error(err))
		return LeaveResponse{}, err
	}
	s.logger.Info("update leave success", zap.String("leave_id", id))

	return mapToResponse(*l), nil
}

// Submit membangun rantai approval lewat engine lalu memindahkan leave ke
// PENDING dalam satu transaksi.
func (s *service) Submit(ctx context.Context, companyID, actorID, id string) (LeaveResponse, error) {
	s.logger.Debug("submit leave requested",
		zap.String("leave_id", id),
		zap.String("company_id", companyID),
		zap.String("actor_id", actorID),
	)

	if _, err := uuid.Parse(companyID); err != nil {
		return LeaveResponse{}, leaveerrors.ErrInvalidCompanyID
	}
	if _, err := uuid.Parse(actorID); err != nil {
		return LeaveResponse{}, leaveerrors.ErrInvalidActorID
	}

	l, err := s.repo.FindByIDAndCompany(ctx, companyID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return LeaveResponse{}, leaveerrors.ErrLeaveNotFound
		}
		return LeaveResponse{}, err
	}
	if l.Status != approval.StatusDraft {
		return LeaveResponse{}, leaveerrors.ErrInvalidStatusTransition
	}

	attrs := approval.RequestAttributes{
		LeaveType:    l.LeaveType,
		NumberOfDays: &l.TotalDays,
	}
	inst, err := s.engine.Start(ctx, companyID, approval.EntityTypeLeave, l.EmployeeID.String(), attrs)
	if err != nil {
		s.logger.Warn("submit leave approval start failed",
			zap.String("leave_id", id),
			zap.Error(err),
		)
		return LeaveResponse{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Error("submit leave begin tx failed", zap.Error(err))
		return LeaveResponse{}, err
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)

	l.Approval = inst
	l.Status = approval.StatusPending
	l.syncApprovalColumns()

	rows, err := qtx.SubmitFromDraft(ctx, l)
	if err != nil {
		s.logger.Error("submit leave persist failed", zap.String("leave_id", id), zap.Error(err))
		return LeaveResponse{}, err
	}
	if rows == 0 {
		// Submit lain menang duluan; baris sudah bukan DRAFT.
		s.logger.Warn("submit leave lost the race", zap.String("leave_id", id))
		return LeaveResponse{}, leaveerrors.ErrInvalidStatusTransition
	}
	if err := tx.Commit(); err != nil {
		s.logger.Error("submit leave commit failed", zap.String("leave_id", id), zap.Error(err))
		return LeaveResponse{}, err
	}

	s.engine.NotifySubmitted(ctx, l)

	s.logger.Info("submit leave success",
		zap.String("leave_id", id),
		zap.String("workflow_source", inst.WorkflowSource),
		zap.Int("levels", len(inst.Levels)),
	)
	return mapToResponse(*l), nil
}

// Decide meneruskan keputusan approve/reject ke processor approval.
func (s *service) Decide(ctx context.Context, companyID, actorID, actorEmail, id string, req approval.DecisionRequest) (LeaveResponse, error) {
	if _, err := uuid.Parse(companyID); err != nil {
		return LeaveResponse{}, leaveerrors.ErrInvalidCompanyID
	}

	_, err := s.processor.ProcessDecision(
		ctx,
		companyID,
		approval.EntityTypeLeave,
		id,
		req.Level,
		actorID,
		actorEmail,
		approval.Action(req.Action),
		req.Comments,
	)
	if err != nil {
		return LeaveResponse{}, err
	}

	l, err := s.repo.FindByIDAndCompany(ctx, companyID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return LeaveResponse{}, leaveerrors.ErrLeaveNotFound
		}
		return LeaveResponse{}, err
	}
	return mapToResponse(*l), nil
}

func (s *service) Cancel(ctx context.Context, companyID, actorID, id string) (LeaveResponse, error) {
	s.logger.Debug("cancel leave requested",
		zap.String("leave_id", id),
		zap.String("company_id", companyID),
		zap.String("actor_id", actorID),
	)

	if _, err := uuid.Parse(companyID); err != nil {
		return LeaveResponse{}, leaveerrors.ErrInvalidCompanyID
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Error("cancel leave begin tx failed", zap.Error(err))
		return LeaveResponse{}, err
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)

	l, err := qtx.FindByIDAndCompany(ctx, companyID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return LeaveResponse{}, leaveerrors.ErrLeaveNotFound
		}
		return LeaveResponse{}, err
	}
	if l.Status != approval.StatusDraft && l.Status != approval.StatusPending {
		return LeaveResponse{}, leaveerrors.ErrInvalidStatusTransition
	}

	l.Status = approval.StatusCanceled
	if err := qtx.Update(ctx, l); err != nil {
		s.logger.Error("cancel leave persist failed", zap.String("leave_id", id), zap.Error(err))
		return LeaveResponse{}, err
	}
	if err := tx.Commit(); err != nil {
		s.logger.Error("cancel leave commit failed", zap.String("leave_id", id), zap.Error(err))
		return LeaveResponse{}, err
	}
	s.logger.Info("cancel leave success", zap.String("leave_id", id))

	return mapToResponse(*l), nil
}

func (s *service) Delete(ctx context.Context, companyID, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)
	if err := qtx.Delete(ctx, companyID, id); err != nil {
		return err
	}
	return tx.Commit()
}

func validateCreateRequest(companyID, actorID string, req CreateLeaveRequest) (uuid.UUID, uuid.UUID, uuid.UUID, time.Time, time.Time, error) {
	companyUUID, err := uuid.Parse(companyID)
	if err != nil {
		return uuid.Nil, uuid.Nil, uuid.Nil, time.Time{}, time.Time{}, leaveerrors.ErrInvalidCompanyID
	}
	employeeUUID, err := uuid.Parse(req.EmployeeID)
	if err != nil {
		return uuid.Nil, uuid.Nil, uuid.Nil, time.Time{}, time.Time{}, leaveerrors.ErrInvalidEmployeeID
	}
	createdByUUID, err := uuid.Parse(actorID)
	if err != nil {
		return uuid.Nil, uuid.Nil, uuid.Nil, time.Time{}, time.Time{}, leaveerrors.ErrInvalidActorID
	}
	startDate, err := parseDate(req.StartDate)
	if err != nil {
		return uuid.Nil, uuid.Nil, uuid.Nil, time.Time{}, time.Time{}, err
	}
	endDate, err := parseDate(req.EndDate)
	if err != nil {
		return uuid.Nil, uuid.Nil, uuid.Nil, time.Time{}, time.Time{}, err
	}
	if startDate.After(endDate) {
		return uuid.Nil, uuid.Nil, uuid.Nil, time.Time{}, time.Time{}, leaveerrors.ErrInvalidDateRange
	}
	return companyUUID, employeeUUID, createdByUUID, startDate, endDate, nil
}

func parseDate(v string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return time.Time{}, leaveerrors.ErrInvalidDateFormat
	}
	return t, nil
}

func mapToResponse(l Leave) LeaveResponse {
	resp := LeaveResponse{
		ID:           l.ID.String(),
		CompanyID:    l.CompanyID.String(),
		EmployeeID:   l.EmployeeID.String(),
		LeaveType:    l.LeaveType,
		StartDate:    l.StartDate.Format("2006-01-02"),
		EndDate:      l.EndDate.Format("2006-01-02"),
		TotalDays:    l.TotalDays,
		Reason:       l.Reason,
		Status:       l.Status,
		CreatedBy:    l.CreatedBy.String(),
		CurrentLevel: l.CurrentLevel,
		IsEscalated:  l.IsEscalated,
		Approval:     l.Approval,
	}
	if l.SLADeadline != nil {
		v := l.SLADeadline.Format(time.RFC3339)
		resp.SLADeadline = &v
	}
	if l.FinalizedAt != nil {
		v := l.FinalizedAt.Format(time.RFC3339)
		resp.FinalizedAt = &v
	}
	return resp
}

func mapToListResponse(leaves []Leave) []LeaveResponse {
	resp := make([]LeaveResponse, len(leaves))
	for i, l := range leaves {
		resp[i] = mapToResponse(l)
	}
	return resp
}
