package approval

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	approvalerrors "github.com/vibhu2208/hrms-backend-sub002/internal/approval/errors"
	"github.com/vibhu2208/hrms-backend-sub002/internal/events"
)

// Engine adalah pintu masuk modul bisnis saat submit: resolve workflow,
// build instance, lalu kabari approver pertama. Semua dependensi disuntik
// eksplisit; tidak ada state global.
type Engine struct {
	resolver  *WorkflowResolver
	builder   *Builder
	directory EmployeeDirectory
	notifier  Notifier
	logger    *zap.Logger
	now       func() time.Time
}

func NewEngine(resolver *WorkflowResolver, builder *Builder, directory EmployeeDirectory, notifier Notifier, logger ...*zap.Logger) *Engine {
	l := zap.L().Named("approval.engine")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("approval.engine")
	}
	return &Engine{
		resolver:  resolver,
		builder:   builder,
		directory: directory,
		notifier:  notifier,
		logger:    l,
		now:       time.Now,
	}
}

// WithClock mengganti sumber waktu; untuk test.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// Start membuat Instance untuk satu pengajuan. Atribut direktori requester
// (departemen, designation, role) melengkapi attrs kalau belum terisi.
func (e *Engine) Start(ctx context.Context, companyID string, entityType EntityType, requesterID string, attrs RequestAttributes) (*Instance, error) {
	requester, err := e.directory.FindByID(ctx, companyID, requesterID)
	if err != nil {
		e.logger.Error("start approval requester lookup failed",
			zap.String("company_id", companyID),
			zap.String("requester_id", requesterID),
			zap.Error(err),
		)
		return nil, err
	}
	if requester == nil {
		return nil, approvalerrors.ErrEntityNotFound
	}

	if attrs.DepartmentID == "" {
		attrs.DepartmentID = requester.DepartmentID
	}
	if attrs.Designation == "" {
		attrs.Designation = requester.Designation
	}
	if attrs.RequesterRole == "" {
		attrs.RequesterRole = requester.Role
	}

	wf, err := e.resolver.Resolve(ctx, companyID, entityType, attrs)
	if err != nil {
		return nil, err
	}

	now := e.now().UTC()
	inst, err := e.builder.Build(ctx, companyID, entityType, wf, requester, now)
	if err != nil {
		return nil, err
	}
	return inst, nil
}

// NotifySubmitted mengabari approver level pertama setelah entity tersimpan.
// Gagal kirim hanya dicatat; pengajuan sudah durable.
func (e *Engine) NotifySubmitted(ctx context.Context, ent Approvable) {
	inst := ent.ApprovalState()
	lvl := inst.ActiveLevel()
	if lvl == nil {
		return
	}
	err := e.notifier.Notify(ctx, Notification{
		Type:           events.EventApprovalRequested,
		EntityType:     ent.ApprovalEntityType(),
		EntityID:       ent.ApprovalEntityID().String(),
		CompanyID:      ent.ApprovalCompanyID().String(),
		RecipientID:    lvl.ApproverID,
		RecipientEmail: lvl.ApproverEmail,
		Level:          lvl.Level,
		LevelInfo:      fmt.Sprintf("level %d of %d", lvl.Level, len(inst.Levels)),
	})
	if err != nil {
		e.logger.Warn("notify first approver failed",
			zap.String("entity_id", ent.ApprovalEntityID().String()),
			zap.Error(err),
		)
	}
}
