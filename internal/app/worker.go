package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vibhu2208/hrms-backend-sub002/internal/approval"
	"github.com/vibhu2208/hrms-backend-sub002/internal/employee"
	"github.com/vibhu2208/hrms-backend-sub002/internal/expense"
	"github.com/vibhu2208/hrms-backend-sub002/internal/leave"
	"github.com/vibhu2208/hrms-backend-sub002/internal/messaging/kafka"
	"github.com/vibhu2208/hrms-backend-sub002/internal/messaging/kafka/producer"
	"github.com/vibhu2208/hrms-backend-sub002/internal/notification"
	"github.com/vibhu2208/hrms-backend-sub002/internal/shared/connection"

	"go.uber.org/zap"
)

const defaultSweepInterval = 5 * time.Minute

// RunWorker menjalankan dua loop background: publisher outbox ke Kafka dan
// sapuan eskalasi SLA lintas tenant.
func RunWorker() error {
	logger := zap.L().Named("app.worker")

	gormDB, err := connection.ConnectGORMWithRetry(
		os.Getenv("DB_HOST"),
		os.Getenv("DB_USER"),
		os.Getenv("DB_PASSWORD"),
		os.Getenv("DB_NAME"),
		os.Getenv("DB_PORT"),
		os.Getenv("DB_SSLMODE"),
		5,
	)
	if err != nil {
		return err
	}

	sqlDB, err := gormDB.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	kafkaBroker := os.Getenv("KAFKA_BROKER")
	if kafkaBroker == "" {
		return fmt.Errorf("KAFKA_BROKER is required")
	}

	kafkaWriter, err := connection.ConnectKafkaWithRetry(kafkaBroker, 5)
	if err != nil {
		return err
	}
	defer kafkaWriter.Close()

	outboxRepo := kafka.NewOutboxRepository(sqlDB)

	// Escalation monitor memakai registry store yang sama dengan API.
	employeeRepo := employee.NewRepository(gormDB)
	directory := employee.NewDirectory(employeeRepo)
	notifier := notification.NewOutboxNotifier(sqlDB, outboxRepo)

	registry := approval.NewStoreRegistry()
	registry.RegisterStore(leave.NewStore(leave.NewRepository(gormDB)))
	registry.RegisterStore(expense.NewStore(expense.NewRepository(gormDB)))
	monitor := approval.NewEscalationMonitor(registry, directory, notifier)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go producer.ProcessOutboxEvents(
		ctx,
		outboxRepo,
		kafkaWriter,
		logger,
		3*time.Second,
	)

	go runEscalationSweeper(ctx, monitor, sweepInterval(), logger)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("worker shutting down")
	cancel()

	return nil
}

func sweepInterval() time.Duration {
	raw := os.Getenv("ESCALATION_SWEEP_INTERVAL")
	if raw == "" {
		return defaultSweepInterval
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return defaultSweepInterval
	}
	return d
}

func runEscalationSweeper(
	ctx context.Context,
	monitor *approval.EscalationMonitor,
	interval time.Duration,
	logger *zap.Logger,
) {
	log := logger.Named("escalation.sweeper")
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Info("escalation sweeper started", zap.Duration("interval", interval))

	for {
		select {
		case <-ctx.Done():
			log.Info("escalation sweeper stopped")
			return
		case <-ticker.C:
			result, err := monitor.Sweep(ctx, "")
			if err != nil {
				log.Error("escalation sweep failed", zap.Error(err))
				continue
			}
			if result.Checked > 0 {
				log.Info("escalation sweep finished",
					zap.Int("checked", result.Checked),
					zap.Int("escalated", result.Escalated),
				)
			}
		}
	}
}
