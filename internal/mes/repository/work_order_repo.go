package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bitfantasy/nimo-mes/internal/mes/entity"
	"gorm.io/gorm"
)

// WorkOrderRepository 工单仓库
type WorkOrderRepository struct {
	db *gorm.DB
}

func NewWorkOrderRepository(db *gorm.DB) *WorkOrderRepository {
	return &WorkOrderRepository{db: db}
}

// FindAll 查询工单列表
func (r *WorkOrderRepository) FindAll(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.WorkOrder, int64, error) {
	var items []entity.WorkOrder
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.WorkOrder{})

	if status := filters["status"]; status != "" {
		query = query.Where("status = ?", status)
	}
	if priority := filters["priority"]; priority != "" {
		query = query.Where("priority = ?", priority)
	}
	if assigneeID := filters["assignee_id"]; assigneeID != "" {
		query = query.Where("assignee_id = ?", assigneeID)
	}
	if keyword := filters["keyword"]; keyword != "" {
		query = query.Where("product_name ILIKE ? OR code ILIKE ?", "%"+keyword+"%", "%"+keyword+"%")
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.
		Order("created_at DESC").
		Offset(offset).
		Limit(pageSize).
		Find(&items).Error

	return items, total, err
}

// FindByStatuses 按状态集合查询（看板用，不分页）
func (r *WorkOrderRepository) FindByStatuses(ctx context.Context, statuses []string) ([]entity.WorkOrder, error) {
	var items []entity.WorkOrder
	err := r.db.WithContext(ctx).
		Where("status IN ?", statuses).
		Order("priority DESC, created_at ASC").
		Find(&items).Error
	return items, err
}

// FindByID 根据ID查找工单
func (r *WorkOrderRepository) FindByID(ctx context.Context, id string) (*entity.WorkOrder, error) {
	var order entity.WorkOrder
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &order, nil
}

// Create 创建工单
func (r *WorkOrderRepository) Create(ctx context.Context, order *entity.WorkOrder) error {
	return r.db.WithContext(ctx).Create(order).Error
}

// Update 更新工单
func (r *WorkOrderRepository) Update(ctx context.Context, order *entity.WorkOrder) error {
	return r.db.WithContext(ctx).Save(order).Error
}

// GenerateCode 生成工单编码 WO-{year}-{4位}
func (r *WorkOrderRepository) GenerateCode(ctx context.Context) (string, error) {
	year := time.Now().Format("2006")
	prefix := fmt.Sprintf("WO-%s-", year)

	var maxCode string
	err := r.db.WithContext(ctx).
		Model(&entity.WorkOrder{}).
		Select("COALESCE(MAX(code), '')").
		Where("code LIKE ?", prefix+"%").
		Scan(&maxCode).Error
	if err != nil {
		return "", err
	}

	var seq int
	if maxCode != "" {
		fmt.Sscanf(maxCode, "WO-"+year+"-%04d", &seq)
	}
	seq++
	return fmt.Sprintf("WO-%s-%04d", year, seq), nil
}
