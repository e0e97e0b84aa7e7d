package approval

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/vibhu2208/hrms-backend-sub002/internal/shared/apperror"
	"github.com/vibhu2208/hrms-backend-sub002/internal/shared/response"
)

type Handler struct {
	service Service
	monitor *EscalationMonitor
	logger  *zap.Logger
}

func NewHandler(service Service, monitor *EscalationMonitor, logger ...*zap.Logger) *Handler {
	l := zap.L().Named("approval.handler")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("approval.handler")
	}
	return &Handler{service: service, monitor: monitor, logger: l}
}

func getActorID(c *gin.Context) string {
	actorID := c.GetString("employee_id")
	if actorID == "" {
		actorID = c.GetString("user_id_validated")
	}
	return actorID
}

func (h *Handler) writeServiceError(c *gin.Context, err error) {
	httpErr := apperror.ToHTTP(err)
	h.logger.Warn("approval request failed",
		zap.String("method", c.Request.Method),
		zap.String("path", c.FullPath()),
		zap.Int("status", httpErr.Status),
		zap.String("code", httpErr.Code),
		zap.String("message", httpErr.Message),
	)
	response.Error(c, httpErr.Status, httpErr.Code, httpErr.Message, httpErr.Details)
}

// --- Workflows ---

func (h *Handler) CreateWorkflow(c *gin.Context) {
	companyID := c.GetString("company_id")
	actorID := getActorID(c)

	var req CreateWorkflowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("http create workflow validation failed", zap.Error(err))
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Input tidak valid", err.Error())
		return
	}

	resp, err := h.service.CreateWorkflow(c.Request.Context(), companyID, actorID, req)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, resp, nil)
}

func (h *Handler) GetWorkflows(c *gin.Context) {
	companyID := c.GetString("company_id")
	entityType := c.Query("entity_type")

	resp, err := h.service.GetWorkflows(c.Request.Context(), companyID, entityType)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, resp, nil)
}

func (h *Handler) GetWorkflowByID(c *gin.Context) {
	companyID := c.GetString("company_id")
	resp, err := h.service.GetWorkflowByID(c.Request.Context(), companyID, c.Param("id"))
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, resp, nil)
}

func (h *Handler) UpdateWorkflow(c *gin.Context) {
	companyID := c.GetString("company_id")
	actorID := getActorID(c)

	var req UpdateWorkflowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("http update workflow validation failed", zap.Error(err))
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Input tidak valid", err.Error())
		return
	}

	resp, err := h.service.UpdateWorkflow(c.Request.Context(), companyID, actorID, c.Param("id"), req)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, resp, nil)
}

func (h *Handler) DeleteWorkflow(c *gin.Context) {
	companyID := c.GetString("company_id")
	if err := h.service.DeleteWorkflow(c.Request.Context(), companyID, c.Param("id")); err != nil {
		h.writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true}, nil)
}

// --- Matrices ---

func (h *Handler) CreateMatrix(c *gin.Context) {
	companyID := c.GetString("company_id")
	actorID := getActorID(c)

	var req CreateMatrixRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("http create matrix validation failed", zap.Error(err))
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Input tidak valid", err.Error())
		return
	}

	resp, err := h.service.CreateMatrix(c.Request.Context(), companyID, actorID, req)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, resp, nil)
}

func (h *Handler) GetMatrices(c *gin.Context) {
	companyID := c.GetString("company_id")
	resp, err := h.service.GetMatrices(c.Request.Context(), companyID, c.Query("entity_type"))
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, resp, nil)
}

func (h *Handler) GetMatrixByID(c *gin.Context) {
	companyID := c.GetString("company_id")
	resp, err := h.service.GetMatrixByID(c.Request.Context(), companyID, c.Param("id"))
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, resp, nil)
}

func (h *Handler) UpdateMatrix(c *gin.Context) {
	companyID := c.GetString("company_id")
	actorID := getActorID(c)

	var req UpdateMatrixRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("http update matrix validation failed", zap.Error(err))
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Input tidak valid", err.Error())
		return
	}

	resp, err := h.service.UpdateMatrix(c.Request.Context(), companyID, actorID, c.Param("id"), req)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, resp, nil)
}

func (h *Handler) DeleteMatrix(c *gin.Context) {
	companyID := c.GetString("company_id")
	if err := h.service.DeleteMatrix(c.Request.Context(), companyID, c.Param("id")); err != nil {
		h.writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true}, nil)
}

// --- Delegations ---

func (h *Handler) CreateDelegation(c *gin.Context) {
	companyID := c.GetString("company_id")
	actorID := getActorID(c)

	var req CreateDelegationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("http create delegation validation failed", zap.Error(err))
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Input tidak valid", err.Error())
		return
	}

	resp, err := h.service.CreateDelegation(c.Request.Context(), companyID, actorID, req)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, resp, nil)
}

func (h *Handler) GetDelegations(c *gin.Context) {
	companyID := c.GetString("company_id")
	resp, err := h.service.GetDelegations(c.Request.Context(), companyID)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, resp, nil)
}

func (h *Handler) UpdateDelegation(c *gin.Context) {
	companyID := c.GetString("company_id")
	actorID := getActorID(c)

	var req UpdateDelegationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("http update delegation validation failed", zap.Error(err))
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Input tidak valid", err.Error())
		return
	}

	resp, err := h.service.UpdateDelegation(c.Request.Context(), companyID, actorID, c.Param("id"), req)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, resp, nil)
}

func (h *Handler) DeleteDelegation(c *gin.Context) {
	companyID := c.GetString("company_id")
	if err := h.service.DeleteDelegation(c.Request.Context(), companyID, c.Param("id")); err != nil {
		h.writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true}, nil)
}

// TriggerEscalationSweep adalah pintu ops untuk memaksa sapuan eskalasi satu
// tenant tanpa menunggu jadwal worker.
func (h *Handler) TriggerEscalationSweep(c *gin.Context) {
	companyID := c.GetString("company_id")

	result, err := h.monitor.Sweep(c.Request.Context(), companyID)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, result, nil)
}
