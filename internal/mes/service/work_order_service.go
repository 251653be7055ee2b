package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bitfantasy/nimo-mes/internal/mes/entity"
	"github.com/bitfantasy/nimo-mes/internal/mes/repository"
	"github.com/google/uuid"
)

// WorkOrderService 工单服务
type WorkOrderService struct {
	repo            *repository.WorkOrderRepository
	activityLogRepo *repository.ActivityLogRepository
}

// NewWorkOrderService 创建工单服务
func NewWorkOrderService(repo *repository.WorkOrderRepository, activityLogRepo *repository.ActivityLogRepository) *WorkOrderService {
	return &WorkOrderService{repo: repo, activityLogRepo: activityLogRepo}
}

// ListWorkOrders 获取工单列表
func (s *WorkOrderService) ListWorkOrders(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.WorkOrder, int64, error) {
	return s.repo.FindAll(ctx, page, pageSize, filters)
}

// GetWorkOrder 获取工单详情
func (s *WorkOrderService) GetWorkOrder(ctx context.Context, id string) (*entity.WorkOrder, error) {
	return s.repo.FindByID(ctx, id)
}

// CreateWorkOrderRequest 创建工单请求
type CreateWorkOrderRequest struct {
	ProductCode   string   `json:"product_code"`
	ProductName   string   `json:"product_name" binding:"required"`
	Specification string   `json:"specification"`
	Quantity      float64  `json:"quantity" binding:"required"`
	Unit          string   `json:"unit"`
	CustomerName  string   `json:"customer_name"`
	Priority      string   `json:"priority"`
	PlannedStart  *string  `json:"planned_start"`
	PlannedEnd    *string  `json:"planned_end"`
	UnitPrice     *float64 `json:"unit_price"`
	MaterialCost  *float64 `json:"material_cost"`
	AssigneeID    *string  `json:"assignee_id"`
	Notes         string   `json:"notes"`
}

// CreateWorkOrder 创建工单
func (s *WorkOrderService) CreateWorkOrder(ctx context.Context, userID string, req *CreateWorkOrderRequest) (*entity.WorkOrder, error) {
	code, err := s.repo.GenerateCode(ctx)
	if err != nil {
		return nil, fmt.Errorf("生成工单编码失败: %w", err)
	}

	unit := req.Unit
	if unit == "" {
		unit = "pcs"
	}
	priority := req.Priority
	if priority == "" {
		priority = "normal"
	}

	order := &entity.WorkOrder{
		ID:            uuid.New().String()[:32],
		Code:          code,
		ProductCode:   req.ProductCode,
		ProductName:   req.ProductName,
		Specification: req.Specification,
		Quantity:      req.Quantity,
		Unit:          unit,
		CustomerName:  req.CustomerName,
		Priority:      priority,
		Status:        entity.WorkOrderStatusPlanned,
		PlannedStart:  parseDate(req.PlannedStart),
		PlannedEnd:    parseDate(req.PlannedEnd),
		UnitPrice:     req.UnitPrice,
		MaterialCost:  req.MaterialCost,
		AssigneeID:    req.AssigneeID,
		Notes:         req.Notes,
		CreatedBy:     userID,
	}

	if err := s.repo.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("创建工单失败: %w", err)
	}

	if s.activityLogRepo != nil {
		s.activityLogRepo.LogActivity(ctx, "work_order", order.ID, order.Code,
			"create", "", order.Status,
			fmt.Sprintf("创建工单: %s", order.ProductName), userID, "")
	}

	return order, nil
}

// UpdateWorkOrderRequest 更新工单请求
type UpdateWorkOrderRequest struct {
	ProductName   *string  `json:"product_name"`
	Specification *string  `json:"specification"`
	Quantity      *float64 `json:"quantity"`
	CustomerName  *string  `json:"customer_name"`
	Priority      *string  `json:"priority"`
	PlannedStart  *string  `json:"planned_start"`
	PlannedEnd    *string  `json:"planned_end"`
	UnitPrice     *float64 `json:"unit_price"`
	MaterialCost  *float64 `json:"material_cost"`
	AssigneeID    *string  `json:"assignee_id"`
	Notes         *string  `json:"notes"`
}

// UpdateWorkOrder 更新工单基础信息
func (s *WorkOrderService) UpdateWorkOrder(ctx context.Context, id string, req *UpdateWorkOrderRequest) (*entity.WorkOrder, error) {
	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.ProductName != nil {
		order.ProductName = *req.ProductName
	}
	if req.Specification != nil {
		order.Specification = *req.Specification
	}
	if req.Quantity != nil {
		order.Quantity = *req.Quantity
	}
	if req.CustomerName != nil {
		order.CustomerName = *req.CustomerName
	}
	if req.Priority != nil {
		order.Priority = *req.Priority
	}
	if req.PlannedStart != nil {
		order.PlannedStart = parseDate(req.PlannedStart)
	}
	if req.PlannedEnd != nil {
		order.PlannedEnd = parseDate(req.PlannedEnd)
	}
	if req.UnitPrice != nil {
		order.UnitPrice = req.UnitPrice
	}
	if req.MaterialCost != nil {
		order.MaterialCost = req.MaterialCost
	}
	if req.AssigneeID != nil {
		order.AssigneeID = req.AssigneeID
	}
	if req.Notes != nil {
		order.Notes = *req.Notes
	}

	if err := s.repo.Update(ctx, order); err != nil {
		return nil, fmt.Errorf("更新工单失败: %w", err)
	}
	return order, nil
}

// TransitionWorkOrder 工单状态流转
func (s *WorkOrderService) TransitionWorkOrder(ctx context.Context, id, userID, target string) (*entity.WorkOrder, error) {
	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !order.CanTransitionTo(target) {
		return nil, fmt.Errorf("工单状态不允许从 %s 流转到 %s", order.Status, target)
	}

	fromStatus := order.Status
	order.Status = target

	now := time.Now()
	switch target {
	case entity.WorkOrderStatusInProgress:
		if order.StartedAt == nil {
			order.StartedAt = &now
		}
	case entity.WorkOrderStatusCompleted:
		order.CompletedAt = &now
	}

	if err := s.repo.Update(ctx, order); err != nil {
		return nil, err
	}

	if s.activityLogRepo != nil {
		s.activityLogRepo.LogActivity(ctx, "work_order", order.ID, order.Code,
			"transition", fromStatus, target,
			fmt.Sprintf("工单状态变更: %s -> %s", fromStatus, target), userID, "")
	}

	return order, nil
}

func parseDate(s *string) *time.Time {
	if s == nil || *s == "" {
		return nil
	}
	if d, err := time.Parse("2006-01-02", *s); err == nil {
		return &d
	}
	return nil
}
