package approval

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	approvalerrors "github.com/vibhu2208/hrms-backend-sub002/internal/approval/errors"
	"github.com/vibhu2208/hrms-backend-sub002/internal/shared/apperror"
)

// ResolvedApprover adalah identitas konkret hasil resolusi satu level.
type ResolvedApprover struct {
	ID    string
	Email string
	Name  string
	// DelegatedFrom terisi kalau identitas ini substitusi dari delegasi aktif.
	DelegatedFrom string
}

type ApproverResolver struct {
	directory EmployeeDirectory
	policies  PolicySource
	logger    *zap.Logger
}

func NewApproverResolver(directory EmployeeDirectory, policies PolicySource, logger ...*zap.Logger) *ApproverResolver {
	l := zap.L().Named("approval.approverresolver")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("approval.approverresolver")
	}
	return &ApproverResolver{directory: directory, policies: policies, logger: l}
}

type levelResolver func(ctx context.Context, companyID string, lvl Level, requester *DirectoryEmployee) (*DirectoryEmployee, error)

// resolverFor memetakan setiap varian ApproverType ke resolvernya. Varian
// baru wajib ditambahkan di sini; tipe tak dikenal gagal eksplisit, bukan
// diam-diam jatuh ke default.
func (r *ApproverResolver) resolverFor(t ApproverType) (levelResolver, error) {
	switch t {
	case ApproverReportingManager:
		return r.resolveReportingManager, nil
	case ApproverDepartmentHead:
		return r.resolveDepartmentHead, nil
	case ApproverHR:
		return r.resolveByFixedRole("hr"), nil
	case ApproverAdmin:
		return r.resolveByFixedRole("admin"), nil
	case ApproverSpecificUser:
		return r.resolveSpecificUser, nil
	case ApproverRoleBased:
		return r.resolveRoleBased, nil
	default:
		return nil, apperror.New(
			apperror.CodeInvalidState,
			fmt.Sprintf("unknown approver type %q", t),
			http.StatusUnprocessableEntity,
		)
	}
}

// ResolveLevel mengubah deskriptor level menjadi approver konkret.
// Mengembalikan (nil, nil) kalau level opsional dan tidak ada yang bisa
// di-resolve; level seperti itu dihilangkan dari instance oleh builder.
func (r *ApproverResolver) ResolveLevel(ctx context.Context, companyID string, entityType EntityType, lvl Level, requester *DirectoryEmployee, now time.Time) (*ResolvedApprover, error) {
	resolve, err := r.resolverFor(lvl.ApproverType)
	if err != nil {
		return nil, err
	}

	emp, err := resolve(ctx, companyID, lvl, requester)
	if err != nil {
		return nil, err
	}
	if emp == nil {
		if lvl.IsRequired {
			r.logger.Warn("required approver unresolved",
				zap.String("company_id", companyID),
				zap.String("entity_type", string(entityType)),
				zap.Int("level", lvl.Level),
				zap.String("approver_type", string(lvl.ApproverType)),
			)
			return nil, approvalerrors.ErrRequiredApproverUnresolved
		}
		return nil, nil
	}

	approver := &ResolvedApprover{
		ID:    emp.ID.String(),
		Email: emp.Email,
		Name:  emp.FullName,
	}

	// Substitusi delegasi dievaluasi sekali, saat resolusi; delegasi yang
	// kedaluwarsa di tengah jalan tidak mengubah approver yang sudah resolve.
	if lvl.CanDelegate {
		delegation, err := r.policies.ActiveDelegationFor(ctx, companyID, approver.ID, entityType, now)
		if err != nil {
			return nil, err
		}
		if delegation != nil {
			delegate, err := r.directory.FindByID(ctx, companyID, delegation.DelegateID.String())
			if err != nil {
				return nil, err
			}
			if delegate != nil && delegate.IsActive {
				r.logger.Info("approver substituted by delegation",
					zap.String("company_id", companyID),
					zap.String("delegation_id", delegation.ID.String()),
					zap.String("delegator_id", approver.ID),
					zap.String("delegate_id", delegate.ID.String()),
				)
				return &ResolvedApprover{
					ID:            delegate.ID.String(),
					Email:         delegate.Email,
					Name:          delegate.FullName,
					DelegatedFrom: approver.ID,
				}, nil
			}
		}
	}

	return approver, nil
}

func (r *ApproverResolver) resolveReportingManager(ctx context.Context, companyID string, lvl Level, requester *DirectoryEmployee) (*DirectoryEmployee, error) {
	if requester == nil {
		return nil, nil
	}
	return r.directory.FindManagerOf(ctx, companyID, requester)
}

func (r *ApproverResolver) resolveDepartmentHead(ctx context.Context, companyID string, lvl Level, requester *DirectoryEmployee) (*DirectoryEmployee, error) {
	if requester == nil || requester.DepartmentID == "" {
		return nil, nil
	}
	return r.directory.FindDepartmentHead(ctx, companyID, requester.DepartmentID)
}

func (r *ApproverResolver) resolveByFixedRole(role string) levelResolver {
	return func(ctx context.Context, companyID string, lvl Level, requester *DirectoryEmployee) (*DirectoryEmployee, error) {
		return r.directory.FindByRole(ctx, companyID, role)
	}
}

func (r *ApproverResolver) resolveSpecificUser(ctx context.Context, companyID string, lvl Level, requester *DirectoryEmployee) (*DirectoryEmployee, error) {
	if lvl.ApproverID != "" {
		return r.directory.FindByID(ctx, companyID, lvl.ApproverID)
	}
	if lvl.ApproverEmail != "" {
		return r.directory.FindByEmail(ctx, companyID, lvl.ApproverEmail)
	}
	return nil, nil
}

func (r *ApproverResolver) resolveRoleBased(ctx context.Context, companyID string, lvl Level, requester *DirectoryEmployee) (*DirectoryEmployee, error) {
	if lvl.ApproverRole == "" {
		return nil, nil
	}
	return r.directory.FindByRole(ctx, companyID, lvl.ApproverRole)
}
