package handler

import (
	"github.com/bitfantasy/nimo-mes/internal/mes/service"
	"github.com/gin-gonic/gin"
)

// DashboardHandler 看板处理器
type DashboardHandler struct {
	svc *service.DashboardService
}

func NewDashboardHandler(svc *service.DashboardService) *DashboardHandler {
	return &DashboardHandler{svc: svc}
}

// GetKanban 工单看板
// GET /api/v1/mes/dashboard/kanban
func (h *DashboardHandler) GetKanban(c *gin.Context) {
	columns, err := h.svc.GetKanban(c.Request.Context())
	if err != nil {
		InternalError(c, "获取看板失败: "+err.Error())
		return
	}
	Success(c, columns)
}

// GetQualitySummary 质量汇总
// GET /api/v1/mes/dashboard/quality
func (h *DashboardHandler) GetQualitySummary(c *gin.Context) {
	summary, err := h.svc.GetQualitySummary(c.Request.Context())
	if err != nil {
		InternalError(c, "获取质量汇总失败: "+err.Error())
		return
	}
	Success(c, summary)
}

// GetFinanceSummary 财务汇总
// GET /api/v1/mes/dashboard/finance
func (h *DashboardHandler) GetFinanceSummary(c *gin.Context) {
	summary, err := h.svc.GetFinanceSummary(c.Request.Context())
	if err != nil {
		InternalError(c, "获取财务汇总失败: "+err.Error())
		return
	}
	Success(c, summary)
}
