package employee

import (
	"github.com/vibhu2208/hrms-backend-sub002/internal/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func RegisterRoutes(
	r *gin.RouterGroup,
	handler *Handler,
	logger *zap.Logger,
) {
	employees := r.Group("/employees")
	employees.Use(middleware.AuthMiddleware())
	employees.Use(middleware.ContextLogger(logger))
	{
		employees.GET("",
			middleware.RateLimitByUser(3, 10),
			handler.GetAll,
		)

		employees.GET("/options",
			middleware.RateLimitByUser(5, 20), // Limit sedikit lebih longgar karena ringan
			handler.GetOptions,
		)

		employees.GET("/:id",
			middleware.RateLimitByUser(3, 10),
			handler.GetById,
		)

		employees.POST("",
			middleware.RateLimitByUser(0.1, 1),
			middleware.RoleMiddleware("admin", "hr"),
			handler.Create,
		)

		employees.PUT("/:id",
			middleware.RateLimitByUser(0.5, 2),
			middleware.RoleMiddleware("admin", "hr"),
			handler.Update,
		)

		employees.DELETE("/:id",
			middleware.RateLimitByUser(0.05, 1),
			middleware.RoleMiddleware("admin", "hr"),
			handler.Delete,
		)
	}
}
