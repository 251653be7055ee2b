package service

import (
	"context"

	"github.com/bitfantasy/nimo-mes/internal/mes/entity"
	"gorm.io/gorm"
)

// DashboardService 看板服务
type DashboardService struct {
	db *gorm.DB
}

func NewDashboardService(db *gorm.DB) *DashboardService {
	return &DashboardService{db: db}
}

// KanbanColumn 看板列
type KanbanColumn struct {
	Status string             `json:"status"`
	Count  int                `json:"count"`
	Orders []entity.WorkOrder `json:"orders"`
}

// GetKanban 按状态分列返回工单看板
func (s *DashboardService) GetKanban(ctx context.Context) ([]KanbanColumn, error) {
	var orders []entity.WorkOrder
	err := s.db.WithContext(ctx).
		Where("status IN ?", entity.KanbanColumns).
		Order("created_at ASC").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}

	grouped := make(map[string][]entity.WorkOrder)
	for _, o := range orders {
		grouped[o.Status] = append(grouped[o.Status], o)
	}

	columns := make([]KanbanColumn, 0, len(entity.KanbanColumns))
	for _, status := range entity.KanbanColumns {
		list := grouped[status]
		if list == nil {
			list = []entity.WorkOrder{}
		}
		columns = append(columns, KanbanColumn{
			Status: status,
			Count:  len(list),
			Orders: list,
		})
	}
	return columns, nil
}

// QualitySummary 质量汇总
type QualitySummary struct {
	TotalInspections   int     `json:"total_inspections"`
	PassedInspections  int     `json:"passed_inspections"`
	PartialInspections int     `json:"partial_inspections"`
	FailedInspections  int     `json:"failed_inspections"`
	PassPct            float64 `json:"pass_pct"`
}

// GetQualitySummary 获取检验通过率汇总
func (s *DashboardService) GetQualitySummary(ctx context.Context) (*QualitySummary, error) {
	summary := &QualitySummary{}

	row := s.db.WithContext(ctx).Raw(`
		SELECT
			COUNT(*) as total,
			COUNT(CASE WHEN status = 'passed' THEN 1 END) as passed,
			COUNT(CASE WHEN status = 'partial' THEN 1 END) as partial,
			COUNT(CASE WHEN status = 'failed' THEN 1 END) as failed
		FROM mes_inspections
	`).Row()

	if err := row.Scan(
		&summary.TotalInspections,
		&summary.PassedInspections,
		&summary.PartialInspections,
		&summary.FailedInspections,
	); err != nil {
		return summary, nil // 没有数据时返回空汇总
	}

	if summary.TotalInspections > 0 {
		summary.PassPct = float64(summary.PassedInspections) / float64(summary.TotalInspections) * 100
	}
	return summary, nil
}

// FinanceSummary 财务汇总
type FinanceSummary struct {
	OpenOrders      int     `json:"open_orders"`
	CompletedOrders int     `json:"completed_orders"`
	QCHoldOrders    int     `json:"qc_hold_orders"`
	OutputValue     float64 `json:"output_value"`
	MaterialCost    float64 `json:"material_cost"`
	GrossMargin     float64 `json:"gross_margin"`
}

// GetFinanceSummary 获取已完成工单的产值与毛利汇总
func (s *DashboardService) GetFinanceSummary(ctx context.Context) (*FinanceSummary, error) {
	summary := &FinanceSummary{}

	row := s.db.WithContext(ctx).Raw(`
		SELECT
			COUNT(CASE WHEN status IN ('planned','released','in_progress') THEN 1 END) as open_orders,
			COUNT(CASE WHEN status = 'completed' THEN 1 END) as completed_orders,
			COUNT(CASE WHEN status = 'qc_hold' THEN 1 END) as qc_hold_orders,
			COALESCE(SUM(CASE WHEN status = 'completed' THEN unit_price * quantity END), 0) as output_value,
			COALESCE(SUM(CASE WHEN status = 'completed' THEN material_cost END), 0) as material_cost
		FROM mes_work_orders
	`).Row()

	if err := row.Scan(
		&summary.OpenOrders,
		&summary.CompletedOrders,
		&summary.QCHoldOrders,
		&summary.OutputValue,
		&summary.MaterialCost,
	); err != nil {
		return summary, nil
	}

	summary.GrossMargin = summary.OutputValue - summary.MaterialCost
	return summary, nil
}
