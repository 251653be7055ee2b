package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bitfantasy/nimo-mes/internal/mes/entity"
	"gorm.io/gorm"
)

// ChecklistRepository 检验模板仓库
type ChecklistRepository struct {
	db *gorm.DB
}

func NewChecklistRepository(db *gorm.DB) *ChecklistRepository {
	return &ChecklistRepository{db: db}
}

// FindAll 查询模板列表
func (r *ChecklistRepository) FindAll(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.ChecklistTemplate, int64, error) {
	var items []entity.ChecklistTemplate
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.ChecklistTemplate{})

	if status := filters["status"]; status != "" {
		query = query.Where("status = ?", status)
	}
	if category := filters["category"]; category != "" {
		query = query.Where("category = ?", category)
	}
	if keyword := filters["keyword"]; keyword != "" {
		query = query.Where("name ILIKE ? OR code ILIKE ?", "%"+keyword+"%", "%"+keyword+"%")
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

// FindByID 根据ID查找模板
func (r *ChecklistRepository) FindByID(ctx context.Context, id string) (*entity.ChecklistTemplate, error) {
	var tpl entity.ChecklistTemplate
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&tpl).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &tpl, nil
}

// Create 创建模板
func (r *ChecklistRepository) Create(ctx context.Context, tpl *entity.ChecklistTemplate) error {
	return r.db.WithContext(ctx).Create(tpl).Error
}

// Update 更新模板
func (r *ChecklistRepository) Update(ctx context.Context, tpl *entity.ChecklistTemplate) error {
	return r.db.WithContext(ctx).Save(tpl).Error
}

// Delete 删除模板
func (r *ChecklistRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Delete(&entity.ChecklistTemplate{}, "id = ?", id).Error
}

// GenerateCode 生成模板编码 CL-{year}-{4位}
func (r *ChecklistRepository) GenerateCode(ctx context.Context) (string, error) {
	year := time.Now().Format("2006")
	prefix := fmt.Sprintf("CL-%s-", year)

	var maxCode string
	err := r.db.WithContext(ctx).
		Model(&entity.ChecklistTemplate{}).
		Select("COALESCE(MAX(code), '')").
		Where("code LIKE ?", prefix+"%").
		Scan(&maxCode).Error
	if err != nil {
		return "", err
	}

	var seq int
	if maxCode != "" {
		fmt.Sscanf(maxCode, "CL-"+year+"-%04d", &seq)
	}
	seq++
	return fmt.Sprintf("CL-%s-%04d", year, seq), nil
}
