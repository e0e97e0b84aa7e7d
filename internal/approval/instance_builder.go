package approval

import (
	"context"
	"time"

	"go.uber.org/zap"

	approvalerrors "github.com/vibhu2208/hrms-backend-sub002/internal/approval/errors"
)

type Builder struct {
	resolver *ApproverResolver
	logger   *zap.Logger
}

func NewBuilder(resolver *ApproverResolver, logger ...*zap.Logger) *Builder {
	l := zap.L().Named("approval.builder")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("approval.builder")
	}
	return &Builder{resolver: resolver, logger: l}
}

// Build mengubah ResolvedWorkflow menjadi Instance konkret. All-or-nothing:
// level required yang gagal resolve menggagalkan seluruh instansiasi, tidak
// ada instance parsial. Level opsional yang tak ter-resolve dibuang dan sisa
// level dinomori ulang supaya tetap rapat mulai dari 1.
func (b *Builder) Build(ctx context.Context, companyID string, entityType EntityType, wf *ResolvedWorkflow, requester *DirectoryEmployee, now time.Time) (*Instance, error) {
	states := make([]LevelState, 0, len(wf.Levels))
	for _, lvl := range wf.Levels {
		approver, err := b.resolver.ResolveLevel(ctx, companyID, entityType, lvl, requester, now)
		if err != nil {
			b.logger.Warn("build instance level resolution failed",
				zap.String("company_id", companyID),
				zap.String("entity_type", string(entityType)),
				zap.Int("level", lvl.Level),
				zap.Error(err),
			)
			return nil, err
		}
		if approver == nil {
			b.logger.Debug("optional level omitted, approver unresolved",
				zap.String("company_id", companyID),
				zap.Int("level", lvl.Level),
			)
			continue
		}

		slaMinutes := lvl.SLAMinutes
		if slaMinutes <= 0 && wf.Escalation.EscalationAfterMinutes > 0 {
			slaMinutes = wf.Escalation.EscalationAfterMinutes
		}
		if slaMinutes <= 0 {
			slaMinutes = wf.SLAMinutes
		}
		// Nol di seluruh rantai fallback berarti level tanpa deadline.
		var levelDeadline time.Time
		if slaMinutes > 0 {
			levelDeadline = now.Add(time.Duration(slaMinutes) * time.Minute)
		}

		states = append(states, LevelState{
			Level:         len(states) + 1,
			ApproverType:  lvl.ApproverType,
			ApproverID:    approver.ID,
			ApproverEmail: approver.Email,
			ApproverName:  approver.Name,
			DelegatedFrom: approver.DelegatedFrom,
			IsRequired:    lvl.IsRequired,
			CanDelegate:   lvl.CanDelegate,
			Status:        LevelStatusPending,
			SLAMinutes:    slaMinutes,
			SLADeadline:   levelDeadline,
		})
	}

	if len(states) == 0 {
		return nil, approvalerrors.ErrNoApplicableWorkflow
	}

	var instanceDeadline time.Time
	if wf.SLAMinutes > 0 {
		instanceDeadline = now.Add(time.Duration(wf.SLAMinutes) * time.Minute)
	}
	inst := &Instance{
		CurrentLevel:     1,
		Levels:           states,
		SLADeadline:      instanceDeadline,
		Escalation:       wf.Escalation,
		WorkflowSource:   wf.Source,
		WorkflowSourceID: wf.SourceID,
		CreatedAt:        now,
	}

	b.logger.Info("approval instance built",
		zap.String("company_id", companyID),
		zap.String("entity_type", string(entityType)),
		zap.String("source", wf.Source),
		zap.Int("levels", len(states)),
	)
	return inst, nil
}
