package employee

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	employeeerrors "github.com/vibhu2208/hrms-backend-sub002/internal/employee/errors"
	"github.com/vibhu2208/hrms-backend-sub002/internal/shared/contextutil"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const EmployeeOptionsKeyPrefix = "employees:options:"

func GetEmployeeOptionsKey(companyID string) string {
	return EmployeeOptionsKeyPrefix + companyID
}

//go:generate mockgen -source=employee_service.go -destination=mock/employee_service_mock.go -package=mock
type Service interface {
	Create(ctx context.Context, companyID string, req CreateEmployeeRequest) (EmployeeResponse, error)
	GetAll(ctx context.Context, companyID string) ([]EmployeeResponse, error)
	GetOptions(ctx context.Context, companyID string) ([]EmployeeResponse, error)
	GetByID(ctx context.Context, companyID, id string) (EmployeeResponse, error)
	Update(ctx context.Context, companyID, id string, req UpdateEmployeeRequest) (EmployeeResponse, error)
	Delete(ctx context.Context, companyID, id string) error
}

type service struct {
	db     *sql.DB
	repo   Repository
	rdb    *redis.Client
	sf     *singleflight.Group
	logger *zap.Logger
}

func NewService(db *sql.DB, repo Repository, rdb *redis.Client, logger ...*zap.Logger) Service {
	l := zap.L().Named("employee.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("employee.service")
	}
	return &service{
		db:     db,
		repo:   repo,
		rdb:    rdb,
		sf:     &singleflight.Group{},
		logger: l}
}

func (s *service) Create(
	ctx context.Context,
	companyID string,
	req CreateEmployeeRequest,
) (EmployeeResponse, error) {
	rid := contextutil.GetRequestID(ctx)
	s.logger.Debug("create employee requested",
		zap.String("request_id", rid), // Propagasi ke logs
		zap.String("company_id", companyID),
		zap.String("email", req.Email),
		zap.String("role", req.Role),
	)

	hireDate, err := time.Parse("2006-01-02", req.HireDate)
	if err != nil {
		s.logger.Warn("create employee invalid hire_date",
			zap.String("hire_date", req.HireDate),
			zap.Error(err),
		)
		return EmployeeResponse{}, employeeerrors.ErrInvalidHireDate
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Error("create employee begin tx failed", zap.String("request_id", rid), zap.Error(err))
		return EmployeeResponse{}, err
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)

	managerID, err := s.resolveManager(ctx, qtx, companyID, req.ManagerID, "")
	if err != nil {
		return EmployeeResponse{}, err
	}

	empl := &Employee{
		ID:           uuid.New(),
		FullName:     req.FullName,
		Email:        req.Email,
		CompanyID:    uuid.MustParse(companyID),
		DepartmentID: uuidPtr(req.DepartmentID),
		ManagerID:    managerID,
		Role:         req.Role,
		Designation:  req.Designation,
		HireDate:     hireDate,
		IsActive:     true,
	}

	if err := qtx.Create(ctx, empl); err != nil {
		s.logger.Error("create employee persist failed", zap.Error(err))
		return EmployeeResponse{}, mapRepositoryError(err)
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("commit failed", zap.String("request_id", rid), zap.Error(err))
		return EmployeeResponse{}, err
	}

	s.invalidateOptionsCache(ctx, companyID)

	s.logger.Info("create employee success",
		zap.String("request_id", rid),
		zap.String("employee_id", empl.ID.String()),
	)

	return mapToResponse(*empl), nil
}

func (s *service) GetAll(
	ctx context.Context,
	companyID string,
) ([]EmployeeResponse, error) {
	s.logger.Debug("get all employees requested", zap.String("company_id", companyID))
	empls, err := s.repo.FindAllByCompany(ctx, companyID)
	if err != nil {
		s.logger.Error("get all employees failed", zap.Error(err))
		return nil, mapRepositoryError(err)
	}

	return mapToListResponse(empls), nil
}

func (s *service) GetOptions(ctx context.Context, companyID string) ([]EmployeeResponse, error) {
	cacheKey := EmployeeOptionsKeyPrefix + companyID

	// 1. Cek Redis
	if s.rdb != nil {
		if cached, err := s.rdb.Get(ctx, cacheKey).Result(); err == nil {
			var resp []EmployeeResponse
			if json.Unmarshal([]byte(cached), &resp) == nil {
				return resp, nil
			}
		}
	}

	// 2. Singleflight untuk handle traffic tinggi saat Admin buka form
	v, err, _ := s.sf.Do(cacheKey, func() (interface{}, error) {
		emps, err := s.repo.FindOptionsByCompany(ctx, companyID)
		if err != nil {
			return nil, mapRepositoryError(err)
		}

		resp := mapToListResponse(emps)

		// 3. Simpan ke Redis (TTL 1 jam cukup karena data master)
		if s.rdb != nil {
			if jsonData, err := json.Marshal(resp); err == nil {
				s.rdb.Set(ctx, cacheKey, jsonData, 1*time.Hour)
			}
		}

		return resp, nil
	})

	if err != nil {
		return nil, err
	}

	return v.([]EmployeeResponse), nil
}

func (s *service) GetByID(
	ctx context.Context,
	companyID, id string,
) (EmployeeResponse, error) {
	s.logger.Debug("get employee by id requested",
		zap.String("company_id", companyID),
		zap.String("employee_id", id),
	)
	empl, err := s.repo.FindByIDAndCompany(ctx, companyID, id)
	if err != nil {
		s.logger.Error("get employee by id failed", zap.Error(err))
		return EmployeeResponse{}, mapRepositoryError(err)
	}

	return mapToResponse(*empl), nil
}

func (s *service) Update(
	ctx context.Context,
	companyID, id string,
	req UpdateEmployeeRequest,
) (EmployeeResponse, error) {
	s.logger.Debug("update employee requested",
		zap.String("company_id", companyID),
		zap.String("employee_id", id),
	)

	hireDate, err := time.Parse("2006-01-02", req.HireDate)
	if err != nil {
		s.logger.Warn("update employee invalid hire_date",
			zap.String("hire_date", req.HireDate),
			zap.Error(err),
		)
		return EmployeeResponse{}, employeeerrors.ErrInvalidHireDate
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Error("update employee begin tx failed", zap.Error(err))
		return EmployeeResponse{}, err
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)

	managerID, err := s.resolveManager(ctx, qtx, companyID, req.ManagerID, id)
	if err != nil {
		return EmployeeResponse{}, err
	}

	empl, err := qtx.FindByIDAndCompany(ctx, companyID, id)
	if err != nil {
		s.logger.Error("update employee fetch existing failed", zap.Error(err))
		return EmployeeResponse{}, mapRepositoryError(err)
	}

	empl.FullName = req.FullName
	empl.Email = req.Email
	empl.DepartmentID = uuidPtr(req.DepartmentID)
	empl.ManagerID = managerID
	empl.Role = req.Role
	empl.Designation = req.Designation
	empl.HireDate = hireDate
	if req.IsActive != nil {
		empl.IsActive = *req.IsActive
	}

	if err := qtx.Update(ctx, empl); err != nil {
		s.logger.Error("update employee persist failed", zap.Error(err))
		return EmployeeResponse{}, mapRepositoryError(err)
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("update employee commit failed", zap.Error(err))
		return EmployeeResponse{}, err
	}

	s.invalidateOptionsCache(ctx, companyID)

	s.logger.Info("update employee success", zap.String("employee_id", id))

	return mapToResponse(*empl), nil
}

func (s *service) Delete(
	ctx context.Context,
	companyID, id string,
) error {
	s.logger.Debug("delete employee requested",
		zap.String("company_id", companyID),
		zap.String("employee_id", id),
	)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Error("delete employee begin tx failed", zap.Error(err))
		return err
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)

	if err := qtx.Delete(ctx, companyID, id); err != nil {
		s.logger.Error("delete employee failed", zap.Error(err))
		return mapRepositoryError(err)
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("delete employee commit failed", zap.Error(err))
		return err
	}

	s.invalidateOptionsCache(ctx, companyID)

	s.logger.Info("delete employee success", zap.String("employee_id", id))
	return nil
}

// resolveManager memvalidasi manager berada di company yang sama dan masih
// aktif. selfID mencegah karyawan menjadi atasan dirinya sendiri saat update.
func (s *service) resolveManager(
	ctx context.Context,
	repo Repository,
	companyID, managerID, selfID string,
) (*uuid.UUID, error) {
	if managerID == "" {
		return nil, nil
	}
	if selfID != "" && managerID == selfID {
		s.logger.Warn("employee cannot manage themselves",
			zap.String("employee_id", selfID),
		)
		return nil, employeeerrors.ErrInvalidManager
	}

	mgr, err := repo.FindByIDAndCompany(ctx, companyID, managerID)
	if err != nil {
		if errors.Is(mapRepositoryError(err), employeeerrors.ErrEmployeeNotFound) {
			return nil, employeeerrors.ErrInvalidManager
		}
		s.logger.Error("resolve manager failed", zap.Error(err))
		return nil, err
	}
	if !mgr.IsActive {
		s.logger.Warn("manager is inactive",
			zap.String("company_id", companyID),
			zap.String("manager_id", managerID),
		)
		return nil, employeeerrors.ErrInvalidManager
	}
	return &mgr.ID, nil
}

func (s *service) invalidateOptionsCache(ctx context.Context, companyID string) {
	if s.rdb == nil {
		return
	}
	cacheKey := GetEmployeeOptionsKey(companyID)
	if err := s.rdb.Del(ctx, cacheKey).Err(); err != nil {
		s.logger.Error("failed to invalidate employee options cache",
			zap.Error(err),
			zap.String("key", cacheKey),
		)
	}
}

func mapToResponse(empl Employee) EmployeeResponse {
	return EmployeeResponse{
		ID:           empl.ID.String(),
		FullName:     empl.FullName,
		Email:        empl.Email,
		CompanyID:    empl.CompanyID.String(),
		DepartmentID: uuidToString(empl.DepartmentID),
		ManagerID:    uuidToString(empl.ManagerID),
		Role:         empl.Role,
		Designation:  empl.Designation,
		HireDate:     empl.HireDate.Format("2006-01-02"),
		IsActive:     empl.IsActive,
	}
}

func mapToListResponse(empls []Employee) []EmployeeResponse {
	res := make([]EmployeeResponse, len(empls))
	for i, e := range empls {
		res[i] = mapToResponse(e)
	}
	return res
}

func uuidPtr(v string) *uuid.UUID {
	id, err := uuid.Parse(v)
	if err != nil {
		return nil
	}
	return &id
}

func uuidToString(v *uuid.UUID) string {
	if v == nil {
		return ""
	}
	return v.String()
}
