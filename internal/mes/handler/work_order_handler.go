package handler

import (
	"context"

	"github.com/bitfantasy/nimo-mes/internal/mes/entity"
	"github.com/bitfantasy/nimo-mes/internal/mes/repository"
	"github.com/bitfantasy/nimo-mes/internal/mes/service"
	"github.com/gin-gonic/gin"
)

// ActivityLogLister 操作日志查询接口
type ActivityLogLister interface {
	FindByEntity(ctx context.Context, entityType, entityID string, page, pageSize int) ([]entity.ActivityLog, int64, error)
}

// WorkOrderHandler 工单处理器
type WorkOrderHandler struct {
	svc     *service.WorkOrderService
	logRepo ActivityLogLister
}

func NewWorkOrderHandler(svc *service.WorkOrderService, logRepo ActivityLogLister) *WorkOrderHandler {
	return &WorkOrderHandler{svc: svc, logRepo: logRepo}
}

// ListWorkOrders 工单列表
// GET /api/v1/mes/work-orders?status=xxx&priority=xxx&assignee_id=xxx&keyword=xxx
func (h *WorkOrderHandler) ListWorkOrders(c *gin.Context) {
	page, pageSize := GetPagination(c)
	filters := map[string]string{
		"status":      c.Query("status"),
		"priority":    c.Query("priority"),
		"assignee_id": c.Query("assignee_id"),
		"keyword":     c.Query("keyword"),
	}

	items, total, err := h.svc.ListWorkOrders(c.Request.Context(), page, pageSize, filters)
	if err != nil {
		InternalError(c, "获取工单列表失败: "+err.Error())
		return
	}

	Success(c, ListResponse{
		Items: items,
		Pagination: &Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      int(total),
			TotalPages: listTotalPages(total, pageSize),
		},
	})
}

// GetWorkOrder 工单详情
// GET /api/v1/mes/work-orders/:id
func (h *WorkOrderHandler) GetWorkOrder(c *gin.Context) {
	id := c.Param("id")
	order, err := h.svc.GetWorkOrder(c.Request.Context(), id)
	if err != nil {
		NotFound(c, "工单不存在")
		return
	}
	Success(c, order)
}

// CreateWorkOrder 创建工单
// POST /api/v1/mes/work-orders
func (h *WorkOrderHandler) CreateWorkOrder(c *gin.Context) {
	var req service.CreateWorkOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	order, err := h.svc.CreateWorkOrder(c.Request.Context(), GetUserID(c), &req)
	if err != nil {
		InternalError(c, err.Error())
		return
	}
	Created(c, order)
}

// UpdateWorkOrder 更新工单
// PUT /api/v1/mes/work-orders/:id
func (h *WorkOrderHandler) UpdateWorkOrder(c *gin.Context) {
	id := c.Param("id")
	var req service.UpdateWorkOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	order, err := h.svc.UpdateWorkOrder(c.Request.Context(), id, &req)
	if err != nil {
		if err == repository.ErrNotFound {
			NotFound(c, "工单不存在")
			return
		}
		InternalError(c, "更新工单失败: "+err.Error())
		return
	}
	Success(c, order)
}

// TransitionWorkOrderRequest 工单状态流转请求
type TransitionWorkOrderRequest struct {
	Status string `json:"status" binding:"required"`
}

// TransitionWorkOrder 工单状态流转
// POST /api/v1/mes/work-orders/:id/transition
func (h *WorkOrderHandler) TransitionWorkOrder(c *gin.Context) {
	id := c.Param("id")
	var req TransitionWorkOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	order, err := h.svc.TransitionWorkOrder(c.Request.Context(), id, GetUserID(c), req.Status)
	if err != nil {
		if err == repository.ErrNotFound {
			NotFound(c, "工单不存在")
			return
		}
		BadRequest(c, err.Error())
		return
	}
	Success(c, order)
}

// ListWorkOrderLogs 工单操作日志
// GET /api/v1/mes/work-orders/:id/logs
func (h *WorkOrderHandler) ListWorkOrderLogs(c *gin.Context) {
	id := c.Param("id")
	page, pageSize := GetPagination(c)

	logs, total, err := h.logRepo.FindByEntity(c.Request.Context(), "work_order", id, page, pageSize)
	if err != nil {
		InternalError(c, "获取操作日志失败: "+err.Error())
		return
	}

	Success(c, ListResponse{
		Items: logs,
		Pagination: &Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      int(total),
			TotalPages: listTotalPages(total, pageSize),
		},
	})
}
