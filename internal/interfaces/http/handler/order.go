package handler

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/logistics/backend/internal/domain/audit"
	"github.com/logistics/backend/internal/domain/order"
	"github.com/logistics/backend/internal/interfaces/http/dto"
)

// OrderHandler handles order listing and the archive lifecycle
type OrderHandler struct {
	BaseHandler
	orders order.Repository
	logs   audit.OperationLogRepository
	logger *zap.Logger
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(orders order.Repository, logs audit.OperationLogRepository, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{
		orders: orders,
		logs:   logs,
		logger: logger,
	}
}

// ListOrders godoc
//
//	@Summary	List orders
//	@Tags		orders
//	@Produce	json
//	@Param		archived	query		bool	false	"List archived orders instead of active ones"
//	@Param		page		query		int		false	"Page number"
//	@Param		page_size	query		int		false	"Page size (max 200)"
//	@Success	200			{object}	dto.Response
//	@Router		/orders [get]
func (h *OrderHandler) ListOrders(c *gin.Context) {
	var req dto.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, "invalid list parameters")
		return
	}
	req.Normalize()

	orders, total, err := h.orders.FindAll(c.Request.Context(), req.Archived, req.PageSize, req.Offset())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, dto.FromOrders(orders), total, req.Page, req.PageSize)
}

// GetOrder godoc
//
//	@Summary	Get a single order
//	@Tags		orders
//	@Produce	json
//	@Param		id	path		string	true	"Order ID"
//	@Success	200	{object}	dto.Response
//	@Failure	404	{object}	dto.Response
//	@Router		/orders/{id} [get]
func (h *OrderHandler) GetOrder(c *gin.Context) {
	id, ok := h.bindID(c)
	if !ok {
		return
	}

	o, err := h.orders.FindByID(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, dto.FromOrder(o))
}

// ArchiveOrder godoc
//
//	@Summary	Move an order to the archive
//	@Tags		orders
//	@Produce	json
//	@Param		id	path		string	true	"Order ID"
//	@Success	204	"archived"
//	@Failure	404	{object}	dto.Response
//	@Router		/orders/{id}/archive [post]
func (h *OrderHandler) ArchiveOrder(c *gin.Context) {
	id, ok := h.bindID(c)
	if !ok {
		return
	}

	if err := h.orders.Archive(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}

// RestoreOrder godoc
//
//	@Summary	Restore an archived order
//	@Tags		orders
//	@Produce	json
//	@Param		id	path		string	true	"Order ID"
//	@Success	204	"restored"
//	@Failure	404	{object}	dto.Response
//	@Router		/orders/{id}/restore [post]
func (h *OrderHandler) RestoreOrder(c *gin.Context) {
	id, ok := h.bindID(c)
	if !ok {
		return
	}

	if err := h.orders.Restore(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}

	h.appendAuditEntry(c, audit.OperationRestore, id, "恢复订单")
	h.NoContent(c)
}

// DeleteOrder godoc
//
//	@Summary	Permanently delete an archived order
//	@Tags		orders
//	@Produce	json
//	@Param		id	path		string	true	"Order ID"
//	@Success	204	"deleted"
//	@Failure	404	{object}	dto.Response
//	@Router		/orders/{id} [delete]
func (h *OrderHandler) DeleteOrder(c *gin.Context) {
	id, ok := h.bindID(c)
	if !ok {
		return
	}

	if err := h.orders.Delete(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}

	h.appendAuditEntry(c, audit.OperationDelete, id, "删除订单")
	h.NoContent(c)
}

func (h *OrderHandler) bindID(c *gin.Context) (uuid.UUID, bool) {
	var req dto.IDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		h.BadRequest(c, "invalid order id")
		return uuid.Nil, false
	}
	id, err := uuid.Parse(req.ID)
	if err != nil {
		h.BadRequest(c, "invalid order id")
		return uuid.Nil, false
	}
	return id, true
}

// appendAuditEntry records an audit entry; failures are logged, not surfaced
func (h *OrderHandler) appendAuditEntry(c *gin.Context, opType audit.OperationType, id uuid.UUID, action string) {
	entry, err := audit.NewOperationLog(opType, "order", id.String(), fmt.Sprintf("%s %s", action, id))
	if err != nil {
		h.logger.Warn("failed to build audit entry", zap.Error(err))
		return
	}
	if err := h.logs.Append(c.Request.Context(), entry); err != nil {
		h.logger.Warn("failed to append audit entry",
			zap.String("operation", string(opType)),
			zap.String("order_id", id.String()),
			zap.Error(err))
	}
}

// RegisterRoutes registers all order routes
func (h *OrderHandler) RegisterRoutes(rg *gin.RouterGroup) {
	orders := rg.Group("/orders")
	{
		orders.GET("", h.ListOrders)
		orders.GET("/:id", h.GetOrder)
		orders.POST("/:id/archive", h.ArchiveOrder)
		orders.POST("/:id/restore", h.RestoreOrder)
		orders.DELETE("/:id", h.DeleteOrder)
	}
}
