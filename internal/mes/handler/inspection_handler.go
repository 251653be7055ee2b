package handler

import (
	"errors"

	"github.com/bitfantasy/nimo-mes/internal/mes/entity"
	"github.com/bitfantasy/nimo-mes/internal/mes/repository"
	"github.com/bitfantasy/nimo-mes/internal/mes/service"
	"github.com/gin-gonic/gin"
)

// InspectionHandler 检验单处理器
type InspectionHandler struct {
	svc       *service.InspectionService
	reportSvc *service.ReportService
}

func NewInspectionHandler(svc *service.InspectionService, reportSvc *service.ReportService) *InspectionHandler {
	return &InspectionHandler{svc: svc, reportSvc: reportSvc}
}

// ListInspections 检验单列表
// GET /api/v1/mes/inspections?order_id=xxx&checklist_id=xxx&status=xxx&inspector=xxx
func (h *InspectionHandler) ListInspections(c *gin.Context) {
	page, pageSize := GetPagination(c)
	filters := map[string]string{
		"order_id":     c.Query("order_id"),
		"checklist_id": c.Query("checklist_id"),
		"status":       c.Query("status"),
		"inspector":    c.Query("inspector"),
	}

	items, total, err := h.svc.ListInspections(c.Request.Context(), page, pageSize, filters)
	if err != nil {
		InternalError(c, "获取检验单列表失败: "+err.Error())
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

// GetInspection 检验单详情
// GET /api/v1/mes/inspections/:id
func (h *InspectionHandler) GetInspection(c *gin.Context) {
	id := c.Param("id")
	result, err := h.svc.GetInspection(c.Request.Context(), id)
	if err != nil {
		NotFound(c, "检验单不存在")
		return
	}
	Success(c, result)
}

// CreateInspection 创建检验单
// POST /api/v1/mes/inspections
func (h *InspectionHandler) CreateInspection(c *gin.Context) {
	var req service.CreateInspectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	result, err := h.svc.CreateInspection(c.Request.Context(), GetUserID(c), &req)
	if err != nil {
		BadRequest(c, err.Error())
		return
	}
	Created(c, result)
}

// UpdateInspection 更新检验单
// PUT /api/v1/mes/inspections/:id
func (h *InspectionHandler) UpdateInspection(c *gin.Context) {
	id := c.Param("id")
	var req service.UpdateInspectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	result, err := h.svc.UpdateInspection(c.Request.Context(), id, &req)
	if err != nil {
		if err == repository.ErrNotFound {
			NotFound(c, "检验单不存在")
			return
		}
		if errors.Is(err, entity.ErrTemplateLocked) {
			BadRequest(c, err.Error())
			return
		}
		InternalError(c, "更新检验单失败: "+err.Error())
		return
	}
	Success(c, result)
}

// RecordItemValue 记录检验项实测值
// POST /api/v1/mes/inspections/:id/record
func (h *InspectionHandler) RecordItemValue(c *gin.Context) {
	id := c.Param("id")
	var req service.RecordItemValueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	result, err := h.svc.RecordItemValue(c.Request.Context(), id, &req)
	if err != nil {
		if err == repository.ErrNotFound {
			NotFound(c, "检验单不存在")
			return
		}
		if errors.Is(err, entity.ErrItemNotFound) {
			NotFound(c, "检验项不存在")
			return
		}
		InternalError(c, "记录实测值失败: "+err.Error())
		return
	}
	Success(c, result)
}

// SetItemVerdict 人工判定检验项
// POST /api/v1/mes/inspections/:id/verdict
func (h *InspectionHandler) SetItemVerdict(c *gin.Context) {
	id := c.Param("id")
	var req service.SetItemVerdictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	if !req.Verdict.IsValid() {
		BadRequest(c, "非法的判定结果: "+string(req.Verdict))
		return
	}

	result, err := h.svc.SetItemVerdict(c.Request.Context(), id, GetUserID(c), &req)
	if err != nil {
		if err == repository.ErrNotFound {
			NotFound(c, "检验单不存在")
			return
		}
		if errors.Is(err, entity.ErrItemNotFound) {
			NotFound(c, "检验项不存在")
			return
		}
		InternalError(c, "人工判定失败: "+err.Error())
		return
	}
	Success(c, result)
}

// AddItemPhoto 检验项追加照片
// POST /api/v1/mes/inspections/:id/photos
func (h *InspectionHandler) AddItemPhoto(c *gin.Context) {
	id := c.Param("id")
	var req service.AddItemPhotoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	result, err := h.svc.AddItemPhoto(c.Request.Context(), id, &req)
	if err != nil {
		if err == repository.ErrNotFound {
			NotFound(c, "检验单不存在")
			return
		}
		if errors.Is(err, entity.ErrItemNotFound) {
			NotFound(c, "检验项不存在")
			return
		}
		InternalError(c, "追加照片失败: "+err.Error())
		return
	}
	Success(c, result)
}

// CompleteInspection 完成检验
// POST /api/v1/mes/inspections/:id/complete
func (h *InspectionHandler) CompleteInspection(c *gin.Context) {
	id := c.Param("id")
	result, err := h.svc.CompleteInspection(c.Request.Context(), id, GetUserID(c))
	if err != nil {
		if err == repository.ErrNotFound {
			NotFound(c, "检验单不存在")
			return
		}
		InternalError(c, "完成检验失败: "+err.Error())
		return
	}
	Success(c, result)
}

// ExportInspection 导出检验报告xlsx
// GET /api/v1/mes/inspections/:id/export
func (h *InspectionHandler) ExportInspection(c *gin.Context) {
	id := c.Param("id")

	f, filename, err := h.reportSvc.ExportInspection(c.Request.Context(), id)
	if err != nil {
		BadRequest(c, err.Error())
		return
	}
	defer f.Close()

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", "attachment; filename=\""+filename+"\"")
	c.Header("Content-Transfer-Encoding", "binary")

	if err := f.Write(c.Writer); err != nil {
		InternalError(c, "write excel: "+err.Error())
	}
}

// ExportInspectionCSV 导出检验报告CSV (GBK编码)
// GET /api/v1/mes/inspections/:id/export-csv
func (h *InspectionHandler) ExportInspectionCSV(c *gin.Context) {
	id := c.Param("id")

	data, filename, err := h.reportSvc.ExportInspectionCSV(c.Request.Context(), id)
	if err != nil {
		BadRequest(c, err.Error())
		return
	}

	c.Header("Content-Disposition", "attachment; filename=\""+filename+"\"")
	c.Data(200, "text/csv; charset=GBK", data)
}
