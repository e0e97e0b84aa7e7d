package approval

import (
	"github.com/gin-gonic/gin"

	"github.com/vibhu2208/hrms-backend-sub002/internal/middleware"
)

func RegisterRoutes(r *gin.RouterGroup, handler *Handler) {
	group := r.Group("/approval")
	group.Use(middleware.AuthMiddleware())
	{
		workflows := group.Group("/workflows")
		workflows.Use(middleware.RoleMiddleware("admin", "hr"))
		{
			workflows.POST("", handler.CreateWorkflow)
			workflows.GET("", handler.GetWorkflows)
			workflows.GET("/:id", handler.GetWorkflowByID)
			workflows.PUT("/:id", handler.UpdateWorkflow)
			workflows.DELETE("/:id", handler.DeleteWorkflow)
		}

		matrices := group.Group("/matrices")
		matrices.Use(middleware.RoleMiddleware("admin", "hr"))
		{
			matrices.POST("", handler.CreateMatrix)
			matrices.GET("", handler.GetMatrices)
			matrices.GET("/:id", handler.GetMatrixByID)
			matrices.PUT("/:id", handler.UpdateMatrix)
			matrices.DELETE("/:id", handler.DeleteMatrix)
		}

		delegations := group.Group("/delegations")
		delegations.Use(middleware.RoleMiddleware("admin", "hr", "manager"))
		{
			delegations.POST("", handler.CreateDelegation)
			delegations.GET("", handler.GetDelegations)
			delegations.PUT("/:id", handler.UpdateDelegation)
			delegations.DELETE("/:id", handler.DeleteDelegation)
		}

		group.POST("/escalations/sweep", middleware.RoleMiddleware("admin", "hr"), handler.TriggerEscalationSweep)
	}
}
