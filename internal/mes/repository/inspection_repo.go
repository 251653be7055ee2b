package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bitfantasy/nimo-mes/internal/mes/entity"
	"gorm.io/gorm"
)

// InspectionRepository 检验单仓库
type InspectionRepository struct {
	db *gorm.DB
}

func NewInspectionRepository(db *gorm.DB) *InspectionRepository {
	return &InspectionRepository{db: db}
}

// FindAll 查询检验单列表
func (r *InspectionRepository) FindAll(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.InspectionResult, int64, error) {
	var items []entity.InspectionResult
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.InspectionResult{})

	if orderID := filters["order_id"]; orderID != "" {
		query = query.Where("order_id = ?", orderID)
	}
	if checklistID := filters["checklist_id"]; checklistID != "" {
		query = query.Where("checklist_id = ?", checklistID)
	}
	if status := filters["status"]; status != "" {
		query = query.Where("status = ?", status)
	}
	if inspector := filters["inspector"]; inspector != "" {
		query = query.Where("inspector = ?", inspector)
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

// FindByID 根据ID查找检验单
func (r *InspectionRepository) FindByID(ctx context.Context, id string) (*entity.InspectionResult, error) {
	var result entity.InspectionResult
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&result).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &result, nil
}

// Create 创建检验单
func (r *InspectionRepository) Create(ctx context.Context, result *entity.InspectionResult) error {
	return r.db.WithContext(ctx).Create(result).Error
}

// Update 整单快照保存
func (r *InspectionRepository) Update(ctx context.Context, result *entity.InspectionResult) error {
	return r.db.WithContext(ctx).Save(result).Error
}

// GenerateCode 生成检验单编码 QC-{year}-{4位}
func (r *InspectionRepository) GenerateCode(ctx context.Context) (string, error) {
	year := time.Now().Format("2006")
	prefix := fmt.Sprintf("QC-%s-", year)

	var maxCode string
	err := r.db.WithContext(ctx).
		Model(&entity.InspectionResult{}).
		Select("COALESCE(MAX(code), '')").
		Where("code LIKE ?", prefix+"%").
		Scan(&maxCode).Error
	if err != nil {
		return "", err
	}

	var seq int
	if maxCode != "" {
		fmt.Sscanf(maxCode, "QC-"+year+"-%04d", &seq)
	}
	seq++
	return fmt.Sprintf("QC-%s-%04d", year, seq), nil
}
