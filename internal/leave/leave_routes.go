package leave

import (
	"github.com/vibhu2208/hrms-backend-sub002/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

func RegisterRoutes(r *gin.RouterGroup, handler *Handler, rdb *redis.Client) {
	leaves := r.Group("/leaves")
	leaves.Use(middleware.AuthMiddleware())
	leaves.Use(middleware.ExtractUserID())
	{
		leaves.GET("", handler.GetAll)
		leaves.GET("/:id", handler.GetById)
		leaves.POST("", handler.Create)
		leaves.PUT("/:id", handler.Update)
		leaves.POST("/:id/submit", middleware.Idempotency(rdb), handler.Submit)
		leaves.POST("/:id/decision", middleware.Idempotency(rdb), handler.Decide)
		leaves.POST("/:id/cancel", handler.Cancel)
		leaves.DELETE("/:id", middleware.RoleMiddleware("admin", "hr"), handler.Delete)
	}
}
