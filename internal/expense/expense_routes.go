package expense

import (
	"github.com/vibhu2208/hrms-backend-sub002/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

func RegisterRoutes(r *gin.RouterGroup, handler *Handler, rdb *redis.Client) {
	expenses := r.Group("/expenses")
	expenses.Use(middleware.AuthMiddleware())
	expenses.Use(middleware.ExtractUserID())
	{
		expenses.GET("", handler.GetAll)
		expenses.GET("/:id", handler.GetById)
		expenses.POST("", handler.Create)
		expenses.PUT("/:id", handler.Update)
		expenses.POST("/:id/submit", middleware.Idempotency(rdb), handler.Submit)
		expenses.POST("/:id/decision", middleware.Idempotency(rdb), handler.Decide)
		expenses.POST("/:id/cancel", handler.Cancel)
		expenses.DELETE("/:id", middleware.RoleMiddleware("admin", "hr"), handler.Delete)
	}
}
