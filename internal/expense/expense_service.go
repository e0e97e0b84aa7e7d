package expense

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/vibhu2208/hrms-backend-sub002/internal/approval"
	expenseerrors "github.com/vibhu2208/hrms-backend-sub002/internal/expense/errors"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:generate mockgen -source=expense_service.go -destination=mock/expense_service_mock.go -package=mock
type Service interface {
	Create(ctx context.Context, companyID, actorID string, req CreateExpenseRequest) (ExpenseResponse, error)
	GetAll(ctx context.Context, companyID string) ([]ExpenseResponse, error)
	GetByID(ctx context.Context, companyID, id string) (ExpenseResponse, error)
	Update(ctx context.Context, companyID, actorID, id string, req UpdateExpenseRequest) (ExpenseResponse, error)
	Submit(ctx context.Context, companyID, actorID, id string) (ExpenseResponse, error)
	Decide(ctx context.Context, companyID, actorID, actorEmail, id string, req approval.DecisionRequest) (ExpenseResponse, error)
	Cancel(ctx context.Context, companyID, actorID, id string) (ExpenseResponse, error)
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
	l := zap.L().Named("expense.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("expense.service")
	}
	return &service{db: db, repo: repo, engine: engine, processor: processor, logger: l}
}

func (s *service) Create(ctx context.Context, companyID, actorID string, req CreateExpenseRequest) (ExpenseResponse, error) {
	s.logger.Debug("create expense requested",
		zap.String("company_id", companyID),
		zap.String("actor_id", actorID),
		zap.String("employee_id", req.EmployeeID),
		zap.Float64("amount", req.Amount),
	)

	companyUUID, err := uuid.Parse(companyID)
	if err != nil {
		return ExpenseResponse{}, expenseerrors.ErrInvalidCompanyID
	}
	employeeUUID, err := uuid.Parse(req.EmployeeID)
	if err != nil {
		return ExpenseResponse{}, expenseerrors.ErrInvalidEmployeeID
	}
	createdByUUID, err := uuid.Parse(actorID)
	if err != nil {
		return ExpenseResponse{}, expenseerrors.ErrInvalidActorID
	}
	expenseDate, err := parseDate(req.ExpenseDate)
	if err != nil {
		return ExpenseResponse{}, err
	}
	if req.Amount <= 0 {
		return ExpenseResponse{}, expenseerrors.ErrInvalidAmount
	}
	currency := req.Currency
	if currency == "" {
		currency = "IDR"
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Error("create expense begin tx failed", zap.Error(err))
		return ExpenseResponse{}, err
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)

	belongs, err := qtx.EmployeeBelongsToCompany(ctx, companyID, req.EmployeeID)
	if err != nil {
		s.logger.Error("create expense employee company check failed", zap.Error(err))
		return ExpenseResponse{}, err
	}
	if !belongs {
		return ExpenseResponse{}, expenseerrors.ErrEmployeeNotInCompany
	}

	e := &Expense{
		ID:          uuid.New(),
		CompanyID:   companyUUID,
		EmployeeID:  employeeUUID,
		Category:    req.Category,
		Amount:      req.Amount,
		Currency:    currency,
		ExpenseDate: expenseDate,
		Description: req.Description,
		ReceiptURL:  req.ReceiptURL,
		Status:      approval.StatusDraft,
		CreatedBy:   createdByUUID,
	}

	if err := qtx.Create(ctx, e); err != nil {
		s.logger.Error("create expense persist failed", zap.Error(err))
		return ExpenseResponse{}, err
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("create expense commit failed", zap.Error(err))
		return ExpenseResponse{}, err
	}
	s.logger.Info("create expense success",
		zap.String("expense_id", e.ID.String()),
		zap.String("company_id", companyID),
	)

	return mapToResponse(*e), nil
}

func (s *service) GetAll(ctx context.Context, companyID string) ([]ExpenseResponse, error) {
	expenses, err := s.repo.FindAllByCompany(ctx, companyID)
	if err != nil {
		return nil, err
	}
	return mapToListResponse(expenses), nil
}

func (s *service) GetByID(ctx context.Context, companyID, id string) (ExpenseResponse, error) {
	e, err := s.repo.FindByIDAndCompany(ctx, companyID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ExpenseResponse{}, expenseerrors.ErrExpenseNotFound
		}
		return ExpenseResponse{}, err
	}
	return mapToResponse(*e), nil
}

func (s *service) Update(ctx context.Context, companyID, actorID, id string, req UpdateExpenseRequest) (ExpenseResponse, error) {
	s.logger.Debug("update expense requested",
		zap.String("expense_id", id),
		zap.String("company_id", companyID),
		zap.String("actor_id", actorID),
	)

	if _, err := uuid.Parse(companyID); err != nil {
		return ExpenseResponse{}, expenseerrors.ErrInvalidCompanyID
	}
	if _, err := uuid.Parse(actorID); err != nil {
		return ExpenseResponse{}, expenseerrors.ErrInvalidActorID
	}
	expenseDate, err := parseDate(req.ExpenseDate)
	if err != nil {
		return ExpenseResponse{}, err
	}
	if req.Amount <= 0 {
		return ExpenseResponse{}, expenseerrors.ErrInvalidAmount
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Error("update expense begin tx failed", zap.Error(err))
		return ExpenseResponse{}, err
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)

	e, err := qtx.FindByIDAndCompany(ctx, companyID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ExpenseResponse{}, expenseerrors.ErrExpenseNotFound
		}
		return ExpenseResponse{}, err
	}
	// Detail hanya boleh berubah sebelum masuk rantai approval.
	if e.Status != approval.StatusDraft {
		return ExpenseResponse{}, expenseerrors.ErrExpenseNotDraft
	}

	e.Category = req.Category
	e.Amount = req.Amount
	if req.Currency != "" {
		e.Currency = req.Currency
	}
	e.ExpenseDate = expenseDate
	e.Description = req.Description
	e.ReceiptURL = req.ReceiptURL

	if err := qtx.Update(ctx, e); err != nil {
		s.logger.Error("update expense persist failed", zap.String("expense_id", id), zap.Error(err))
		return ExpenseResponse{}, err
	}
	if err := tx.Commit(); err != nil {
		s.logger.Error("update expense commit failed", zap.String("expense_id", id), zap.Error(err))
		return ExpenseResponse{}, err
	}
	s.logger.Info("update expense success", zap.String("expense_id", id))

	return mapToResponse(*e), nil
}

// Submit membangun rantai approval lewat engine lalu memindahkan expense ke
// PENDING dalam satu transaksi. Amount dibawa sebagai atribut supaya matrix
// ber-range nominal bisa match.
func (s *service) Submit(ctx context.Context, companyID, actorID, id string) (ExpenseResponse, error) {
	s.logger.Debug("submit expense requested",
		zap.String("expense_id", id),
		zap.String("company_id", companyID),
		zap.String("actor_id", actorID),
	)

	if _, err := uuid.Parse(companyID); err != nil {
		return ExpenseResponse{}, expenseerrors.ErrInvalidCompanyID
	}
	if _, err := uuid.Parse(actorID); err != nil {
		return ExpenseResponse{}, expenseerrors.ErrInvalidActorID
	}

	e, err := s.repo.FindByIDAndCompany(ctx, companyID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ExpenseResponse{}, expenseerrors.ErrExpenseNotFound
		}
		return ExpenseResponse{}, err
	}
	if e.Status != approval.StatusDraft {
		return ExpenseResponse{}, expenseerrors.ErrInvalidStatusTransition
	}

	attrs := approval.RequestAttributes{
		Amount: &e.Amount,
	}
	inst, err := s.engine.Start(ctx, companyID, approval.EntityTypeExpense, e.EmployeeID.String(), attrs)
	if err != nil {
		s.logger.Warn("submit expense approval start failed",
			zap.String("expense_id", id),
			zap.Error(err),
		)
		return ExpenseResponse{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Error("submit expense begin tx failed", zap.Error(err))
		return ExpenseResponse{}, err
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)

	e.Approval = inst
	e.Status = approval.StatusPending
	e.syncApprovalColumns()

	rows, err := qtx.SubmitFromDraft(ctx, e)
	if err != nil {
		s.logger.Error("submit expense persist failed", zap.String("expense_id", id), zap.Error(err))
		return ExpenseResponse{}, err
	}
	if rows == 0 {
		// Submit lain menang duluan; baris sudah bukan DRAFT.
		s.logger.Warn("submit expense lost the race", zap.String("expense_id", id))
		return ExpenseResponse{}, expenseerrors.ErrInvalidStatusTransition
	}
	if err := tx.Commit(); err != nil {
		s.logger.Error("submit expense commit failed", zap.String("expense_id", id), zap.Error(err))
		return ExpenseResponse{}, err
	}

	s.engine.NotifySubmitted(ctx, e)

	s.logger.Info("submit expense success",
		zap.String("expense_id", id),
		zap.String("workflow_source", inst.WorkflowSource),
		zap.Int("levels", len(inst.Levels)),
	)
	return mapToResponse(*e), nil
}

// Decide meneruskan keputusan approve/reject ke processor approval.
func (s *service) Decide(ctx context.Context, companyID, actorID, actorEmail, id string, req approval.DecisionRequest) (ExpenseResponse, error) {
	if _, err := uuid.Parse(companyID); err != nil {
		return ExpenseResponse{}, expenseerrors.ErrInvalidCompanyID
	}

	_, err := s.processor.ProcessDecision(
		ctx,
		companyID,
		approval.EntityTypeExpense,
		id,
		req.Level,
		actorID,
		actorEmail,
		approval.Action(req.Action),
		req.Comments,
	)
	if err != nil {
		return ExpenseResponse{}, err
	}

	e, err := s.repo.FindByIDAndCompany(ctx, companyID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ExpenseResponse{}, expenseerrors.ErrExpenseNotFound
		}
		return ExpenseResponse{}, err
	}
	return mapToResponse(*e), nil
}

func (s *service) Cancel(ctx context.Context, companyID, actorID, id string) (ExpenseResponse, error) {
	s.logger.Debug("cancel expense requested",
		zap.String("expense_id", id),
		zap.String("company_id", companyID),
		zap.String("actor_id", actorID),
	)

	if _, err := uuid.Parse(companyID); err != nil {
		return ExpenseResponse{}, expenseerrors.ErrInvalidCompanyID
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Error("cancel expense begin tx failed", zap.Error(err))
		return ExpenseResponse{}, err
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)

	e, err := qtx.FindByIDAndCompany(ctx, companyID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ExpenseResponse{}, expenseerrors.ErrExpenseNotFound
		}
		return ExpenseResponse{}, err
	}
	if e.Status != approval.StatusDraft && e.Status != approval.StatusPending {
		return ExpenseResponse{}, expenseerrors.ErrInvalidStatusTransition
	}

	e.Status = approval.StatusCanceled
	if err := qtx.Update(ctx, e); err != nil {
		s.logger.Error("cancel expense persist failed", zap.String("expense_id", id), zap.Error(err))
		return ExpenseResponse{}, err
	}
	if err := tx.Commit(); err != nil {
		s.logger.Error("cancel expense commit failed", zap.String("expense_id", id), zap.Error(err))
		return ExpenseResponse{}, err
	}
	s.logger.Info("cancel expense success", zap.String("expense_id", id))

	return mapToResponse(*e), nil
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

func parseDate(v string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return time.Time{}, expenseerrors.ErrInvalidDateFormat
	}
	return t, nil
}

func mapToResponse(e Expense) ExpenseResponse {
	resp := ExpenseResponse{
		ID:           e.ID.String(),
		CompanyID:    e.CompanyID.String(),
		EmployeeID:   e.EmployeeID.String(),
		Category:     e.Category,
		Amount:       e.Amount,
		Currency:     e.Currency,
		ExpenseDate:  e.ExpenseDate.Format("2006-01-02"),
		Description:  e.Description,
		ReceiptURL:   e.ReceiptURL,
		Status:       e.Status,
		CreatedBy:    e.CreatedBy.String(),
		CurrentLevel: e.CurrentLevel,
		IsEscalated:  e.IsEscalated,
		Approval:     e.Approval,
	}
	if e.SLADeadline != nil {
		v := e.SLADeadline.Format(time.RFC3339)
		resp.SLADeadline = &v
	}
	if e.FinalizedAt != nil {
		v := e.FinalizedAt.Format(time.RFC3339)
		resp.FinalizedAt = &v
	}
	return resp
}

func mapToListResponse(expenses []Expense) []ExpenseResponse {
	resp := make([]ExpenseResponse, len(expenses))
	for i, e := range expenses {
		resp[i] = mapToResponse(e)
	}
	return resp
}
