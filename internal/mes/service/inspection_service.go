package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bitfantasy/nimo-mes/internal/mes/entity"
	"github.com/bitfantasy/nimo-mes/internal/mes/repository"
	"github.com/google/uuid"
)

// InspectionService 检验服务
type InspectionService struct {
	repo            *repository.InspectionRepository
	checklistRepo   *repository.ChecklistRepository
	workOrderRepo   *repository.WorkOrderRepository
	activityLogRepo *repository.ActivityLogRepository
}

func NewInspectionService(repo *repository.InspectionRepository, checklistRepo *repository.ChecklistRepository, workOrderRepo *repository.WorkOrderRepository) *InspectionService {
	return &InspectionService{
		repo:          repo,
		checklistRepo: checklistRepo,
		workOrderRepo: workOrderRepo,
	}
}

// SetActivityLogRepo 注入操作日志仓库
func (s *InspectionService) SetActivityLogRepo(repo *repository.ActivityLogRepository) {
	s.activityLogRepo = repo
}

// ListInspections 获取检验单列表
func (s *InspectionService) ListInspections(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.InspectionResult, int64, error) {
	return s.repo.FindAll(ctx, page, pageSize, filters)
}

// GetInspection 获取检验单详情
func (s *InspectionService) GetInspection(ctx context.Context, id string) (*entity.InspectionResult, error) {
	return s.repo.FindByID(ctx, id)
}

// CreateInspectionRequest 创建检验单请求
type CreateInspectionRequest struct {
	ChecklistID    string  `json:"checklist_id" binding:"required"`
	OrderID        string  `json:"order_id" binding:"required"`
	ItemID         *string `json:"item_id"`
	Inspector      string  `json:"inspector" binding:"required"`
	InspectionDate string  `json:"inspection_date"`
	Comments       string  `json:"comments"`
}

// CreateInspection 依据已发布模板创建检验单
func (s *InspectionService) CreateInspection(ctx context.Context, userID string, req *CreateInspectionRequest) (*entity.InspectionResult, error) {
	tpl, err := s.checklistRepo.FindByID(ctx, req.ChecklistID)
	if err != nil {
		if err == repository.ErrNotFound {
			return nil, fmt.Errorf("检验模板不存在")
		}
		return nil, err
	}
	if tpl.Status != entity.ChecklistStatusPublished {
		return nil, fmt.Errorf("检验模板未发布，不能创建检验单")
	}

	if _, err := s.workOrderRepo.FindByID(ctx, req.OrderID); err != nil {
		if err == repository.ErrNotFound {
			return nil, fmt.Errorf("工单不存在")
		}
		return nil, err
	}

	inspectionDate := time.Now()
	if req.InspectionDate != "" {
		if d, err := time.Parse("2006-01-02", req.InspectionDate); err == nil {
			inspectionDate = d
		}
	}

	code, err := s.repo.GenerateCode(ctx)
	if err != nil {
		return nil, fmt.Errorf("生成检验单编码失败: %w", err)
	}

	result := &entity.InspectionResult{
		OrderID:        req.OrderID,
		ItemID:         req.ItemID,
		Inspector:      req.Inspector,
		InspectionDate: inspectionDate,
		Comments:       req.Comments,
	}
	if err := result.BindTemplate(tpl); err != nil {
		return nil, err
	}

	result.ID = uuid.New().String()[:32]
	result.Code = code

	if err := s.repo.Create(ctx, result); err != nil {
		return nil, fmt.Errorf("创建检验单失败: %w", err)
	}

	if s.activityLogRepo != nil {
		s.activityLogRepo.LogActivity(ctx, "inspection", result.ID, result.Code,
			"create", "", string(result.Status),
			fmt.Sprintf("创建检验单: %s", tpl.Name), userID, "")
	}

	return result, nil
}

// UpdateInspectionRequest 更新检验单请求
type UpdateInspectionRequest struct {
	ChecklistID *string `json:"checklist_id"`
	Inspector   *string `json:"inspector"`
	Comments    *string `json:"comments"`
}

// UpdateInspection 更新检验单基础信息，已保存单据不允许更换模板
func (s *InspectionService) UpdateInspection(ctx context.Context, id string, req *UpdateInspectionRequest) (*entity.InspectionResult, error) {
	result, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.ChecklistID != nil && *req.ChecklistID != result.ChecklistID {
		return nil, entity.ErrTemplateLocked
	}
	if req.Inspector != nil {
		result.Inspector = *req.Inspector
	}
	if req.Comments != nil {
		result.Comments = *req.Comments
	}

	if err := s.repo.Update(ctx, result); err != nil {
		return nil, err
	}
	return result, nil
}

// RecordItemValueRequest 记录检验项实测值请求
type RecordItemValueRequest struct {
	SectionID string      `json:"section_id" binding:"required"`
	ItemID    string      `json:"item_id" binding:"required"`
	Value     interface{} `json:"value"`
	Comments  *string     `json:"comments"`
}

// RecordItemValue 记录实测值并重新判定整单状态
func (s *InspectionService) RecordItemValue(ctx context.Context, id string, req *RecordItemValueRequest) (*entity.InspectionResult, error) {
	result, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := result.RecordItemValue(req.SectionID, req.ItemID, req.Value); err != nil {
		return nil, err
	}
	if req.Comments != nil {
		if it := result.FindItem(req.SectionID, req.ItemID); it != nil {
			it.Comments = *req.Comments
		}
	}

	if err := s.repo.Update(ctx, result); err != nil {
		return nil, err
	}
	return result, nil
}

// SetItemVerdictRequest 人工判定请求
type SetItemVerdictRequest struct {
	SectionID string             `json:"section_id" binding:"required"`
	ItemID    string             `json:"item_id" binding:"required"`
	Verdict   entity.ItemVerdict `json:"verdict" binding:"required"`
	Comments  *string            `json:"comments"`
}

// SetItemVerdict 人工判定覆盖自动判定结果
func (s *InspectionService) SetItemVerdict(ctx context.Context, id, userID string, req *SetItemVerdictRequest) (*entity.InspectionResult, error) {
	result, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := result.SetItemVerdict(req.SectionID, req.ItemID, req.Verdict); err != nil {
		return nil, err
	}
	if req.Comments != nil {
		if it := result.FindItem(req.SectionID, req.ItemID); it != nil {
			it.Comments = *req.Comments
		}
	}

	if err := s.repo.Update(ctx, result); err != nil {
		return nil, err
	}

	if s.activityLogRepo != nil {
		s.activityLogRepo.LogActivity(ctx, "inspection", result.ID, result.Code,
			"verdict_"+string(req.Verdict), "", string(result.Status),
			fmt.Sprintf("人工判定检验项 %s: %s", req.ItemID, req.Verdict), userID, "")
	}

	return result, nil
}

// AddItemPhotoRequest 检验项照片请求
type AddItemPhotoRequest struct {
	SectionID string `json:"section_id" binding:"required"`
	ItemID    string `json:"item_id" binding:"required"`
	PhotoURL  string `json:"photo_url" binding:"required"`
}

// AddItemPhoto 给检验项追加照片
func (s *InspectionService) AddItemPhoto(ctx context.Context, id string, req *AddItemPhotoRequest) (*entity.InspectionResult, error) {
	result, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := result.AddItemPhoto(req.SectionID, req.ItemID, req.PhotoURL); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, result); err != nil {
		return nil, err
	}
	return result, nil
}

// CompleteInspection 完成检验，不合格时反馈工单质检拦截
func (s *InspectionService) CompleteInspection(ctx context.Context, id, userID string) (*entity.InspectionResult, error) {
	result, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	result.Recompute()
	if err := s.repo.Update(ctx, result); err != nil {
		return nil, err
	}

	if s.activityLogRepo != nil {
		action := "inspect_pass"
		content := fmt.Sprintf("检验通过: %s", result.ChecklistName)
		if result.Status == entity.InspectionStatusFailed {
			action = "inspect_fail"
			content = fmt.Sprintf("检验不通过: %s", result.ChecklistName)
		} else if result.Status == entity.InspectionStatusPartial {
			action = "inspect_partial"
			content = fmt.Sprintf("部分通过: %s", result.ChecklistName)
		}
		s.activityLogRepo.LogActivity(ctx, "inspection", result.ID, result.Code,
			action, "", string(result.Status), content, userID, "")
	}

	// 检验不通过时工单转质检拦截
	if result.Status == entity.InspectionStatusFailed && result.OrderID != "" {
		order, err := s.workOrderRepo.FindByID(ctx, result.OrderID)
		if err == nil && order.CanTransitionTo(entity.WorkOrderStatusQCHold) {
			fromStatus := order.Status
			order.Status = entity.WorkOrderStatusQCHold
			if err := s.workOrderRepo.Update(ctx, order); err == nil && s.activityLogRepo != nil {
				s.activityLogRepo.LogActivity(ctx, "work_order", order.ID, order.Code,
					"qc_hold", fromStatus, entity.WorkOrderStatusQCHold,
					fmt.Sprintf("检验单 %s 不合格，工单转质检拦截", result.Code), userID, "")
			}
		}
	}

	return result, nil
}
