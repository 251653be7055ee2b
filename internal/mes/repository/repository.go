package repository

import (
	"errors"

	"gorm.io/gorm"
)

var (
	ErrNotFound = errors.New("record not found")
)

// Repositories MES仓库集合
type Repositories struct {
	Checklist   *ChecklistRepository
	Inspection  *InspectionRepository
	WorkOrder   *WorkOrderRepository
	ActivityLog *ActivityLogRepository
}

// NewRepositories 创建MES仓库集合
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Checklist:   NewChecklistRepository(db),
		Inspection:  NewInspectionRepository(db),
		WorkOrder:   NewWorkOrderRepository(db),
		ActivityLog: NewActivityLogRepository(db),
	}
}
