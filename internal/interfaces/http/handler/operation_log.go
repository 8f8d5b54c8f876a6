package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/logistics/backend/internal/domain/audit"
	"github.com/logistics/backend/internal/interfaces/http/dto"
)

// OperationLogHandler serves the audit trail
type OperationLogHandler struct {
	BaseHandler
	logs audit.OperationLogRepository
}

// NewOperationLogHandler creates a new OperationLogHandler
func NewOperationLogHandler(logs audit.OperationLogRepository) *OperationLogHandler {
	return &OperationLogHandler{logs: logs}
}

// ListOperationLogs godoc
//
//	@Summary	List recent audit entries, newest first
//	@Tags		audit
//	@Produce	json
//	@Param		page		query		int	false	"Page number"
//	@Param		page_size	query		int	false	"Page size (max 200)"
//	@Success	200			{object}	dto.Response
//	@Router		/operation-logs [get]
func (h *OperationLogHandler) ListOperationLogs(c *gin.Context) {
	var req dto.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, "invalid list parameters")
		return
	}
	req.Normalize()

	entries, total, err := h.logs.FindRecent(c.Request.Context(), req.PageSize, req.Offset())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, dto.FromOperationLogs(entries), total, req.Page, req.PageSize)
}

// RegisterRoutes registers the audit routes
func (h *OperationLogHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/operation-logs", h.ListOperationLogs)
}
