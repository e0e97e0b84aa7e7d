package notification

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/vibhu2208/hrms-backend-sub002/internal/approval"
	"github.com/vibhu2208/hrms-backend-sub002/internal/events"
	"github.com/vibhu2208/hrms-backend-sub002/internal/messaging/kafka"
	"github.com/vibhu2208/hrms-backend-sub002/internal/shared/contextutil"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OutboxNotifier merutekan notifikasi approval ke tabel outbox; worker yang
// mem-publish ke Kafka. Notify tidak pernah memblokir transisi state: caller
// memperlakukan error sebagai log-only.
type OutboxNotifier struct {
	db     *sql.DB
	outbox kafka.OutboxRepository
	logger *zap.Logger
}

func NewOutboxNotifier(db *sql.DB, outbox kafka.OutboxRepository, logger ...*zap.Logger) *OutboxNotifier {
	l := zap.L().Named("notification.outbox")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("notification.outbox")
	}
	return &OutboxNotifier{db: db, outbox: outbox, logger: l}
}

func (n *OutboxNotifier) Notify(ctx context.Context, msg approval.Notification) error {
	rid := contextutil.GetRequestID(ctx)
	event := events.ApprovalNotificationEvent{
		EventType:      msg.Type,
		EntityType:     string(msg.EntityType),
		EntityID:       msg.EntityID,
		CompanyID:      msg.CompanyID,
		RecipientID:    msg.RecipientID,
		RecipientEmail: msg.RecipientEmail,
		Level:          msg.Level,
		LevelInfo:      msg.LevelInfo,
		Message:        msg.Message,
		OccurredAt:     time.Now().UTC(),
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	tx, err := n.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := n.outbox.WithTx(tx).Create(ctx, kafka.OutboxEvent{
		ID:            uuid.NewString(),
		RequestID:     rid,
		AggregateType: string(msg.EntityType),
		AggregateID:   msg.EntityID,
		EventType:     msg.Type,
		Topic:         events.ApprovalNotificationTopic,
		Payload:       payload,
		Status:        kafka.OutboxStatusPending,
	}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	n.logger.Debug("approval notification queued",
		zap.String("request_id", rid),
		zap.String("event_type", msg.Type),
		zap.String("entity_id", msg.EntityID),
		zap.String("recipient_id", msg.RecipientID),
	)
	return nil
}
