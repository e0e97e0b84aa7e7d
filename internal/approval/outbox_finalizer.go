package approval

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/vibhu2208/hrms-backend-sub002/internal/events"
	"github.com/vibhu2208/hrms-backend-sub002/internal/messaging/kafka"
	"github.com/vibhu2208/hrms-backend-sub002/internal/shared/contextutil"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OutboxFinalizer menulis event terminal ke tabel outbox supaya downstream
// (payroll, kalender, reimbursement) melihat keputusan yang sudah durable.
// Satu instance bisa dipakai ulang untuk beberapa entity type.
type OutboxFinalizer struct {
	db     *sql.DB
	outbox kafka.OutboxRepository
	logger *zap.Logger
}

func NewOutboxFinalizer(db *sql.DB, outbox kafka.OutboxRepository, logger ...*zap.Logger) *OutboxFinalizer {
	l := zap.L().Named("approval.finalizer")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("approval.finalizer")
	}
	return &OutboxFinalizer{db: db, outbox: outbox, logger: l}
}

func (f *OutboxFinalizer) OnApproved(ctx context.Context, e Approvable) error {
	return f.enqueue(ctx, e, events.EventRequestApproved)
}

func (f *OutboxFinalizer) OnRejected(ctx context.Context, e Approvable) error {
	return f.enqueue(ctx, e, events.EventRequestRejected)
}

func (f *OutboxFinalizer) enqueue(ctx context.Context, e Approvable, eventType string) error {
	rid := contextutil.GetRequestID(ctx)
	event := events.RequestFinalizedEvent{
		EventType:  eventType,
		EntityType: string(e.ApprovalEntityType()),
		EntityID:   e.ApprovalEntityID().String(),
		CompanyID:  e.ApprovalCompanyID().String(),
		DecidedBy:  decidedBy(e.ApprovalState()),
		OccurredAt: time.Now().UTC(),
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	tx, err := f.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := f.outbox.WithTx(tx).Create(ctx, kafka.OutboxEvent{
		ID:            uuid.NewString(),
		RequestID:     rid,
		AggregateType: string(e.ApprovalEntityType()),
		AggregateID:   event.EntityID,
		EventType:     eventType,
		Topic:         events.RequestFinalizedTopic,
		Payload:       payload,
		Status:        kafka.OutboxStatusPending,
	}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	f.logger.Info("request finalized event queued",
		zap.String("request_id", rid),
		zap.String("entity_type", event.EntityType),
		zap.String("entity_id", event.EntityID),
		zap.String("event_type", eventType),
	)
	return nil
}

// decidedBy mengambil approver dari level terakhir yang memutus.
func decidedBy(inst *Instance) string {
	if inst == nil {
		return ""
	}
	for i := len(inst.Levels) - 1; i >= 0; i-- {
		switch inst.Levels[i].Status {
		case LevelStatusApproved, LevelStatusRejected:
			return inst.Levels[i].ApproverID
		}
	}
	return ""
}
