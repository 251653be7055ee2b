package handler

import (
	"github.com/bitfantasy/nimo-mes/internal/mes/repository"
	"github.com/bitfantasy/nimo-mes/internal/mes/service"
	"github.com/gin-gonic/gin"
)

// ChecklistHandler 检验模板处理器
type ChecklistHandler struct {
	svc *service.ChecklistService
}

func NewChecklistHandler(svc *service.ChecklistService) *ChecklistHandler {
	return &ChecklistHandler{svc: svc}
}

// ListChecklists 模板列表
// GET /api/v1/mes/checklists?status=xxx&category=xxx&keyword=xxx
func (h *ChecklistHandler) ListChecklists(c *gin.Context) {
	page, pageSize := GetPagination(c)
	filters := map[string]string{
		"status":   c.Query("status"),
		"category": c.Query("category"),
		"keyword":  c.Query("keyword"),
	}

	items, total, err := h.svc.ListChecklists(c.Request.Context(), page, pageSize, filters)
	if err != nil {
		InternalError(c, "获取模板列表失败: "+err.Error())
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

// GetChecklist 模板详情
// GET /api/v1/mes/checklists/:id
func (h *ChecklistHandler) GetChecklist(c *gin.Context) {
	id := c.Param("id")
	tpl, err := h.svc.GetChecklist(c.Request.Context(), id)
	if err != nil {
		NotFound(c, "检验模板不存在")
		return
	}
	Success(c, tpl)
}

// CreateChecklist 创建模板
// POST /api/v1/mes/checklists
func (h *ChecklistHandler) CreateChecklist(c *gin.Context) {
	var req service.CreateChecklistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	tpl, err := h.svc.CreateChecklist(c.Request.Context(), GetUserID(c), &req)
	if err != nil {
		BadRequest(c, err.Error())
		return
	}
	Created(c, tpl)
}

// UpdateChecklist 更新模板
// PUT /api/v1/mes/checklists/:id
func (h *ChecklistHandler) UpdateChecklist(c *gin.Context) {
	id := c.Param("id")
	var req service.UpdateChecklistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	tpl, err := h.svc.UpdateChecklist(c.Request.Context(), id, &req)
	if err != nil {
		if err == repository.ErrNotFound {
			NotFound(c, "检验模板不存在")
			return
		}
		BadRequest(c, err.Error())
		return
	}
	Success(c, tpl)
}

// PublishChecklist 发布模板
// POST /api/v1/mes/checklists/:id/publish
func (h *ChecklistHandler) PublishChecklist(c *gin.Context) {
	id := c.Param("id")
	tpl, err := h.svc.PublishChecklist(c.Request.Context(), id)
	if err != nil {
		if err == repository.ErrNotFound {
			NotFound(c, "检验模板不存在")
			return
		}
		BadRequest(c, err.Error())
		return
	}
	Success(c, tpl)
}

// ArchiveChecklist 归档模板
// POST /api/v1/mes/checklists/:id/archive
func (h *ChecklistHandler) ArchiveChecklist(c *gin.Context) {
	id := c.Param("id")
	tpl, err := h.svc.ArchiveChecklist(c.Request.Context(), id)
	if err != nil {
		if err == repository.ErrNotFound {
			NotFound(c, "检验模板不存在")
			return
		}
		BadRequest(c, err.Error())
		return
	}
	Success(c, tpl)
}

// DeleteChecklist 删除草稿模板
// DELETE /api/v1/mes/checklists/:id
func (h *ChecklistHandler) DeleteChecklist(c *gin.Context) {
	id := c.Param("id")
	if err := h.svc.DeleteChecklist(c.Request.Context(), id); err != nil {
		if err == repository.ErrNotFound {
			NotFound(c, "检验模板不存在")
			return
		}
		BadRequest(c, err.Error())
		return
	}
	Success(c, gin.H{"deleted": true})
}
