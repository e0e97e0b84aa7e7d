package approval

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/vibhu2208/hrms-backend-sub002/internal/events"
)

const escalationBatchSize = 100

// SweepResult adalah ringkasan satu kali sapuan.
type SweepResult struct {
	Checked   int `json:"checked"`
	Escalated int `json:"escalated"`
}

// EscalationMonitor menyapu instance PENDING yang deadline level aktifnya
// sudah lewat dan menaikkan visibilitasnya. Eskalasi tidak pernah memajukan
// currentLevel atau meng-approve apapun.
type EscalationMonitor struct {
	stores    *StoreRegistry
	directory EmployeeDirectory
	notifier  Notifier
	logger    *zap.Logger
	now       func() time.Time
}

func NewEscalationMonitor(stores *StoreRegistry, directory EmployeeDirectory, notifier Notifier, logger ...*zap.Logger) *EscalationMonitor {
	l := zap.L().Named("approval.escalation")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("approval.escalation")
	}
	return &EscalationMonitor{
		stores:    stores,
		directory: directory,
		notifier:  notifier,
		logger:    l,
		now:       time.Now,
	}
}

func (m *EscalationMonitor) WithClock(now func() time.Time) *EscalationMonitor {
	m.now = now
	return m
}

// Sweep memeriksa semua store terdaftar. companyID kosong berarti semua
// tenant (jalur worker); terisi berarti sapuan manual per tenant dari ops.
// Kegagalan satu entity dicatat dan tidak menghentikan sisa batch.
func (m *EscalationMonitor) Sweep(ctx context.Context, companyID string) (SweepResult, error) {
	now := m.now().UTC()
	var result SweepResult

	for _, store := range m.stores.Stores() {
		entities, err := store.FindEscalatable(ctx, companyID, now, escalationBatchSize)
		if err != nil {
			m.logger.Error("escalation scan failed",
				zap.String("entity_type", string(store.EntityType())),
				zap.Error(err),
			)
			continue
		}

		for _, ent := range entities {
			result.Checked++
			escalated, err := m.escalate(ctx, store, ent, now)
			if err != nil {
				m.logger.Error("escalation failed",
					zap.String("entity_type", string(store.EntityType())),
					zap.String("entity_id", ent.ApprovalEntityID().String()),
					zap.Error(err),
				)
				continue
			}
			if escalated {
				result.Escalated++
			}
		}
	}

	m.logger.Info("escalation sweep finished",
		zap.String("company_id", companyID),
		zap.Int("checked", result.Checked),
		zap.Int("escalated", result.Escalated),
	)
	return result, nil
}

func (m *EscalationMonitor) escalate(ctx context.Context, store EntityStore, ent Approvable, now time.Time) (bool, error) {
	inst := ent.ApprovalState()
	lvl := inst.ActiveLevel()
	if lvl == nil || lvl.IsEscalated {
		// Sudah pernah dieskalasi; sapuan ulang adalah no-op.
		return false, nil
	}
	if !inst.Escalation.Enabled {
		return false, nil
	}
	if lvl.SLADeadline.IsZero() || lvl.SLADeadline.After(now) {
		return false, nil
	}

	lvl.IsEscalated = true
	lvl.EscalatedAt = &now
	inst.IsEscalated = true
	inst.EscalatedAt = &now
	inst.EscalationReason = fmt.Sprintf(
		"level %d SLA breached: deadline %s, escalated at %s",
		lvl.Level,
		lvl.SLADeadline.Format(time.RFC3339),
		now.Format(time.RFC3339),
	)

	targetID, targetEmail, err := m.resolveTarget(ctx, ent, inst, lvl)
	if err != nil || (targetID == "" && targetEmail == "") {
		// Target tak ter-resolve tetap tercatat sebagai eskalasi supaya
		// sapuan berikutnya tidak mengulang level yang sama.
		m.logger.Warn("escalation target unresolved",
			zap.String("entity_id", ent.ApprovalEntityID().String()),
			zap.Int("level", lvl.Level),
			zap.String("escalate_to", string(inst.Escalation.EscalateTo)),
			zap.Error(err),
		)
	}

	if err := store.SaveDecision(ctx, ent, lvl.Level); err != nil {
		// Penulis lain menang (approval masuk bersamaan); biarkan.
		return false, err
	}

	m.logger.Info("level escalated",
		zap.String("company_id", ent.ApprovalCompanyID().String()),
		zap.String("entity_type", string(ent.ApprovalEntityType())),
		zap.String("entity_id", ent.ApprovalEntityID().String()),
		zap.Int("level", lvl.Level),
		zap.String("target_email", targetEmail),
	)

	if targetID != "" || targetEmail != "" {
		err := m.notifier.Notify(ctx, Notification{
			Type:           events.EventApprovalEscalated,
			EntityType:     ent.ApprovalEntityType(),
			EntityID:       ent.ApprovalEntityID().String(),
			CompanyID:      ent.ApprovalCompanyID().String(),
			RecipientID:    targetID,
			RecipientEmail: targetEmail,
			Level:          lvl.Level,
			LevelInfo:      fmt.Sprintf("level %d of %d", lvl.Level, len(inst.Levels)),
			Message:        inst.EscalationReason,
		})
		if err != nil {
			m.logger.Warn("escalation notify failed",
				zap.String("entity_id", ent.ApprovalEntityID().String()),
				zap.Error(err),
			)
		}
	}

	return true, nil
}

func (m *EscalationMonitor) resolveTarget(ctx context.Context, ent Approvable, inst *Instance, lvl *LevelState) (string, string, error) {
	companyID := ent.ApprovalCompanyID().String()

	switch inst.Escalation.EscalateTo {
	case EscalateNextLevel:
		next := inst.NextLevelAfter(lvl.Level)
		if next == nil {
			return "", "", nil
		}
		return next.ApproverID, next.ApproverEmail, nil
	case EscalateHR:
		return m.findByRole(ctx, companyID, "hr")
	case EscalateAdmin:
		return m.findByRole(ctx, companyID, "admin")
	case EscalateSpecificUser:
		return "", inst.Escalation.EscalateToEmail, nil
	default:
		// Rules lama tanpa escalate_to eksplisit jatuh ke hr.
		return m.findByRole(ctx, companyID, "hr")
	}
}

func (m *EscalationMonitor) findByRole(ctx context.Context, companyID, role string) (string, string, error) {
	emp, err := m.directory.FindByRole(ctx, companyID, role)
	if err != nil || emp == nil {
		return "", "", err
	}
	return emp.ID.String(), emp.Email, nil
}
