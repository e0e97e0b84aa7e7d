package approval

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	approvalerrors "github.com/vibhu2208/hrms-backend-sub002/internal/approval/errors"
)

const (
	SourceMatrix          = "matrix"
	SourceRoleWorkflow    = "role_workflow"
	SourceDefaultWorkflow = "default_workflow"
)

// ResolvedWorkflow adalah hasil seleksi: daftar level yang akan di-build
// menjadi instance, plus budget SLA dan aturan eskalasi yang dibekukan ke
// instance (edit policy belakangan tidak mengubah instance berjalan).
type ResolvedWorkflow struct {
	Source     string
	SourceID   uuid.UUID
	SourceName string
	Levels     []Level
	SLAMinutes int
	Escalation EscalationRules
}

type WorkflowResolver struct {
	policies PolicySource
	logger   *zap.Logger
}

func NewWorkflowResolver(policies PolicySource, logger ...*zap.Logger) *WorkflowResolver {
	l := zap.L().Named("approval.workflowresolver")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("approval.workflowresolver")
	}
	return &WorkflowResolver{policies: policies, logger: l}
}

// Resolve memilih tepat satu sumber approval untuk pengajuan:
// matrix dengan priority tertinggi yang kondisinya cocok, lalu workflow
// khusus requester role, lalu workflow default entity type tersebut.
func (r *WorkflowResolver) Resolve(ctx context.Context, companyID string, entityType EntityType, attrs RequestAttributes) (*ResolvedWorkflow, error) {
	matrices, err := r.policies.ActiveMatrices(ctx, companyID, entityType)
	if err != nil {
		r.logger.Error("resolve workflow list matrices failed",
			zap.String("company_id", companyID),
			zap.String("entity_type", string(entityType)),
			zap.Error(err),
		)
		return nil, err
	}
	// Sudah terurut priority DESC, created_at ASC; yang pertama cocok menang.
	for i := range matrices {
		if matrices[i].Condition.Matches(attrs) {
			m := &matrices[i]
			r.logger.Debug("workflow resolved from matrix",
				zap.String("company_id", companyID),
				zap.String("entity_type", string(entityType)),
				zap.String("matrix_id", m.ID.String()),
				zap.Int("priority", m.Priority),
			)
			return &ResolvedWorkflow{
				Source:     SourceMatrix,
				SourceID:   m.ID,
				SourceName: m.Name,
				Levels:     m.RequiredApprovers,
				SLAMinutes: m.OverallSLAMinutes(),
				Escalation: m.Escalation,
			}, nil
		}
	}

	if attrs.RequesterRole != "" {
		w, err := r.policies.WorkflowForRole(ctx, companyID, entityType, attrs.RequesterRole)
		if err != nil {
			return nil, err
		}
		if w != nil {
			r.logger.Debug("workflow resolved from role definition",
				zap.String("company_id", companyID),
				zap.String("entity_type", string(entityType)),
				zap.String("workflow_id", w.ID.String()),
				zap.String("requester_role", attrs.RequesterRole),
			)
			return resolvedFromDefinition(SourceRoleWorkflow, w), nil
		}
	}

	w, err := r.policies.DefaultWorkflow(ctx, companyID, entityType)
	if err != nil {
		return nil, err
	}
	if w != nil {
		r.logger.Debug("workflow resolved from default definition",
			zap.String("company_id", companyID),
			zap.String("entity_type", string(entityType)),
			zap.String("workflow_id", w.ID.String()),
		)
		return resolvedFromDefinition(SourceDefaultWorkflow, w), nil
	}

	r.logger.Warn("no applicable workflow",
		zap.String("company_id", companyID),
		zap.String("entity_type", string(entityType)),
		zap.String("requester_role", attrs.RequesterRole),
	)
	return nil, approvalerrors.ErrNoApplicableWorkflow
}

func resolvedFromDefinition(source string, w *WorkflowDefinition) *ResolvedWorkflow {
	return &ResolvedWorkflow{
		Source:     source,
		SourceID:   w.ID,
		SourceName: w.Name,
		Levels:     w.Levels,
		SLAMinutes: w.OverallSLAMinutes(),
		Escalation: w.Escalation,
	}
}
