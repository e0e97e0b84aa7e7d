package app

import (
	"database/sql"

	"github.com/vibhu2208/hrms-backend-sub002/internal/approval"
	"github.com/vibhu2208/hrms-backend-sub002/internal/employee"
	"github.com/vibhu2208/hrms-backend-sub002/internal/expense"
	"github.com/vibhu2208/hrms-backend-sub002/internal/leave"
	"github.com/vibhu2208/hrms-backend-sub002/internal/messaging/kafka"
	"github.com/vibhu2208/hrms-backend-sub002/internal/notification"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func registerModules(
	router *gin.Engine,
	db *sql.DB,
	gormDB *gorm.DB,
	rdb *redis.Client,
) error {
	logger := zap.L()

	// --- Repositories ---
	approvalRepo := approval.NewRepository(gormDB)
	employeeRepo := employee.NewRepository(gormDB)
	leaveRepo := leave.NewRepository(gormDB)
	expenseRepo := expense.NewRepository(gormDB)
	outboxRepo := kafka.NewOutboxRepository(db)

	// --- Approval Engine Core ---
	directory := employee.NewDirectory(employeeRepo)
	notifier := notification.NewOutboxNotifier(db, outboxRepo)
	policyCache := approval.NewPolicyCache(approval.NewRepoPolicySource(approvalRepo), rdb, 0)

	registry := approval.NewStoreRegistry()
	registry.RegisterStore(leave.NewStore(leaveRepo))
	registry.RegisterStore(expense.NewStore(expenseRepo))
	finalizer := approval.NewOutboxFinalizer(db, outboxRepo)
	registry.RegisterFinalizer(approval.EntityTypeLeave, finalizer)
	registry.RegisterFinalizer(approval.EntityTypeExpense, finalizer)

	workflowResolver := approval.NewWorkflowResolver(policyCache)
	approverResolver := approval.NewApproverResolver(directory, policyCache)
	builder := approval.NewBuilder(approverResolver)
	engine := approval.NewEngine(workflowResolver, builder, directory, notifier)
	processor := approval.NewProcessor(registry, directory, notifier)
	monitor := approval.NewEscalationMonitor(registry, directory, notifier)

	// --- Services ---
	approvalService := approval.NewService(db, approvalRepo, policyCache)
	employeeService := employee.NewService(db, employeeRepo, rdb)
	leaveService := leave.NewService(db, leaveRepo, engine, processor)
	expenseService := expense.NewService(db, expenseRepo, engine, processor)

	// --- Handlers ---
	approvalHandler := approval.NewHandler(approvalService, monitor)
	employeeHandler := employee.NewHandler(employeeService)
	leaveHandler := leave.NewHandler(leaveService)
	expenseHandler := expense.NewHandler(expenseService)

	// --- Routes Registration ---
	api := router.Group("/api/v1")
	{
		approval.RegisterRoutes(api, approvalHandler)
		employee.RegisterRoutes(api, employeeHandler, logger)
		leave.RegisterRoutes(api, leaveHandler, rdb)
		expense.RegisterRoutes(api, expenseHandler, rdb)
	}

	return nil
}
