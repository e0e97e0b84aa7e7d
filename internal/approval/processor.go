package approval

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	approvalerrors "github.com/vibhu2208/hrms-backend-sub002/internal/approval/errors"
	"github.com/vibhu2208/hrms-backend-sub002/internal/events"
)

type Action string

const (
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
)

func (a Action) Valid() bool {
	return a == ActionApprove || a == ActionReject
}

// Processor adalah state machine approve/reject. Satu aksi membaca entity,
// memvalidasi, memutasi instance, lalu menulis balik secara kondisional:
// write kedua pada level yang sama kalah dan menerima InvalidLevelTransition,
// bukan double-process diam-diam.
type Processor struct {
	stores    *StoreRegistry
	directory EmployeeDirectory
	notifier  Notifier
	logger    *zap.Logger
	now       func() time.Time
}

func NewProcessor(stores *StoreRegistry, directory EmployeeDirectory, notifier Notifier, logger ...*zap.Logger) *Processor {
	l := zap.L().Named("approval.processor")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("approval.processor")
	}
	return &Processor{
		stores:    stores,
		directory: directory,
		notifier:  notifier,
		logger:    l,
		now:       time.Now,
	}
}

func (p *Processor) WithClock(now func() time.Time) *Processor {
	p.now = now
	return p
}

// ProcessDecision menerima satu aksi approve/reject untuk level tertentu.
func (p *Processor) ProcessDecision(ctx context.Context, companyID string, entityType EntityType, entityID string, level int, actorID, actorEmail string, action Action, comments string) (*Instance, error) {
	p.logger.Debug("process decision requested",
		zap.String("company_id", companyID),
		zap.String("entity_type", string(entityType)),
		zap.String("entity_id", entityID),
		zap.Int("level", level),
		zap.String("actor_id", actorID),
		zap.String("action", string(action)),
	)

	if !action.Valid() {
		return nil, approvalerrors.ErrInvalidAction
	}

	store, err := p.stores.Store(entityType)
	if err != nil {
		return nil, err
	}

	ent, err := store.FindForApproval(ctx, companyID, entityID)
	if err != nil {
		return nil, err
	}
	if ent == nil {
		return nil, approvalerrors.ErrEntityNotFound
	}

	inst := ent.ApprovalState()
	if inst == nil {
		// Entity belum pernah di-submit; tidak ada rantai untuk diputuskan.
		p.logger.Warn("decision on entity without approval chain",
			zap.String("entity_id", entityID),
			zap.String("entity_status", ent.EntityStatus()),
		)
		return nil, approvalerrors.ErrInvalidLevelTransition
	}

	lvl := inst.LevelAt(level)
	if lvl == nil || lvl.Status != LevelStatusPending || level != inst.CurrentLevel || ent.EntityStatus() != StatusPending {
		p.logger.Warn("decision on non-actionable level",
			zap.String("entity_id", entityID),
			zap.Int("level", level),
			zap.Int("current_level", inst.CurrentLevel),
			zap.String("entity_status", ent.EntityStatus()),
		)
		return nil, approvalerrors.ErrInvalidLevelTransition
	}

	// Pemeriksaan otorisasi terjadi sebelum mutasi apapun; mismatch dicatat
	// sebagai kejadian yang relevan untuk audit keamanan.
	if !lvl.IsApproverFor(actorID, actorEmail) {
		p.logger.Warn("unauthorized approver rejected",
			zap.String("company_id", companyID),
			zap.String("entity_type", string(entityType)),
			zap.String("entity_id", entityID),
			zap.Int("level", level),
			zap.String("actor_id", actorID),
			zap.String("expected_approver_id", lvl.ApproverID),
		)
		return nil, approvalerrors.ErrUnauthorizedApprover
	}

	now := p.now().UTC()
	terminal := ""
	switch action {
	case ActionApprove:
		lvl.Status = LevelStatusApproved
		lvl.ApprovedAt = &now
		lvl.Comments = comments
		if next := inst.NextLevelAfter(level); next != nil {
			inst.CurrentLevel = next.Level
		} else {
			terminal = StatusApproved
			ent.SetEntityStatus(StatusApproved)
		}
	case ActionReject:
		// Reject bersifat terminal di level manapun; level setelahnya tidak
		// pernah disentuh lagi.
		lvl.Status = LevelStatusRejected
		lvl.RejectedAt = &now
		lvl.Comments = comments
		terminal = StatusRejected
		ent.SetEntityStatus(StatusRejected)
	}

	if err := store.SaveDecision(ctx, ent, level); err != nil {
		p.logger.Warn("decision save failed",
			zap.String("entity_id", entityID),
			zap.Int("level", level),
			zap.Error(err),
		)
		return nil, err
	}

	p.logger.Info("decision applied",
		zap.String("company_id", companyID),
		zap.String("entity_type", string(entityType)),
		zap.String("entity_id", entityID),
		zap.Int("level", level),
		zap.String("action", string(action)),
		zap.String("terminal", terminal),
	)

	if terminal != "" {
		p.finalize(ctx, ent, terminal, actorID)
	} else {
		p.notifyNextApprover(ctx, ent)
	}

	return inst, nil
}

// finalize memanggil domain finalizer tepat sekali dan mengabari requester.
// Keduanya terjadi setelah transisi durable; kegagalannya dicatat, tidak
// membatalkan keputusan.
func (p *Processor) finalize(ctx context.Context, ent Approvable, terminal, actorID string) {
	if f := p.stores.Finalizer(ent.ApprovalEntityType()); f != nil {
		var err error
		if terminal == StatusApproved {
			err = f.OnApproved(ctx, ent)
		} else {
			err = f.OnRejected(ctx, ent)
		}
		if err != nil {
			p.logger.Error("domain finalizer failed",
				zap.String("entity_type", string(ent.ApprovalEntityType())),
				zap.String("entity_id", ent.ApprovalEntityID().String()),
				zap.String("terminal", terminal),
				zap.Error(err),
			)
		}
	}

	eventType := events.EventApprovalApproved
	if terminal == StatusRejected {
		eventType = events.EventApprovalRejected
	}

	recipientID := ent.RequesterID().String()
	recipientEmail := ""
	if requester, err := p.directory.FindByID(ctx, ent.ApprovalCompanyID().String(), recipientID); err == nil && requester != nil {
		recipientEmail = requester.Email
	}

	err := p.notifier.Notify(ctx, Notification{
		Type:           eventType,
		EntityType:     ent.ApprovalEntityType(),
		EntityID:       ent.ApprovalEntityID().String(),
		CompanyID:      ent.ApprovalCompanyID().String(),
		RecipientID:    recipientID,
		RecipientEmail: recipientEmail,
		Message:        fmt.Sprintf("request finalized as %s by %s", terminal, actorID),
	})
	if err != nil {
		p.logger.Warn("notify requester failed",
			zap.String("entity_id", ent.ApprovalEntityID().String()),
			zap.Error(err),
		)
	}
}

func (p *Processor) notifyNextApprover(ctx context.Context, ent Approvable) {
	inst := ent.ApprovalState()
	lvl := inst.ActiveLevel()
	if lvl == nil {
		return
	}
	err := p.notifier.Notify(ctx, Notification{
		Type:           events.EventApprovalAdvanced,
		EntityType:     ent.ApprovalEntityType(),
		EntityID:       ent.ApprovalEntityID().String(),
		CompanyID:      ent.ApprovalCompanyID().String(),
		RecipientID:    lvl.ApproverID,
		RecipientEmail: lvl.ApproverEmail,
		Level:          lvl.Level,
		LevelInfo:      fmt.Sprintf("level %d of %d", lvl.Level, len(inst.Levels)),
	})
	if err != nil {
		p.logger.Warn("notify next approver failed",
			zap.String("entity_id", ent.ApprovalEntityID().String()),
			zap.Int("level", lvl.Level),
			zap.Error(err),
		)
	}
}
