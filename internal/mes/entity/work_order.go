package entity

import "time"

// WorkOrder 生产工单
type WorkOrder struct {
	ID            string     `json:"id" gorm:"primaryKey;size:32"`
	Code          string     `json:"code" gorm:"size:32;uniqueIndex;not null"`
	ProductCode   string     `json:"product_code" gorm:"size:50"`
	ProductName   string     `json:"product_name" gorm:"size:200;not null"`
	Specification string     `json:"specification" gorm:"size:500"`
	Quantity      float64    `json:"quantity" gorm:"type:decimal(10,2)"`
	Unit          string     `json:"unit" gorm:"size:16;default:pcs"`
	CustomerName  string     `json:"customer_name" gorm:"size:200"`
	Priority      string     `json:"priority" gorm:"size:20;default:normal"` // low/normal/high/urgent
	Status        string     `json:"status" gorm:"size:20;default:planned;index"`
	PlannedStart  *time.Time `json:"planned_start"`
	PlannedEnd    *time.Time `json:"planned_end"`
	StartedAt     *time.Time `json:"started_at"`
	CompletedAt   *time.Time `json:"completed_at"`

	// 财务口径（看板汇总用）
	UnitPrice    *float64 `json:"unit_price" gorm:"type:decimal(12,4)"`
	MaterialCost *float64 `json:"material_cost" gorm:"type:decimal(12,2)"`

	AssigneeID *string   `json:"assignee_id" gorm:"size:32"`
	Notes      string    `json:"notes" gorm:"type:text"`
	CreatedBy  string    `json:"created_by" gorm:"size:32"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (WorkOrder) TableName() string {
	return "mes_work_orders"
}

// 工单状态
const (
	WorkOrderStatusPlanned    = "planned"     // 已计划
	WorkOrderStatusReleased   = "released"    // 已下达
	WorkOrderStatusInProgress = "in_progress" // 生产中
	WorkOrderStatusQCHold     = "qc_hold"     // 质检拦截
	WorkOrderStatusCompleted  = "completed"   // 已完成
	WorkOrderStatusCancelled  = "cancelled"   // 已取消
)

// ValidWorkOrderTransitions 合法的工单状态流转
var ValidWorkOrderTransitions = map[string][]string{
	WorkOrderStatusPlanned:    {WorkOrderStatusReleased, WorkOrderStatusCancelled},
	WorkOrderStatusReleased:   {WorkOrderStatusInProgress, WorkOrderStatusCancelled},
	WorkOrderStatusInProgress: {WorkOrderStatusQCHold, WorkOrderStatusCompleted, WorkOrderStatusCancelled},
	WorkOrderStatusQCHold:     {WorkOrderStatusInProgress, WorkOrderStatusCompleted, WorkOrderStatusCancelled},
}

// KanbanColumns 看板列顺序（cancelled不上看板）
var KanbanColumns = []string{
	WorkOrderStatusPlanned,
	WorkOrderStatusReleased,
	WorkOrderStatusInProgress,
	WorkOrderStatusQCHold,
	WorkOrderStatusCompleted,
}

// CanTransitionTo 校验状态流转是否合法
func (w *WorkOrder) CanTransitionTo(target string) bool {
	for _, s := range ValidWorkOrderTransitions[w.Status] {
		if s == target {
			return true
		}
	}
	return false
}
