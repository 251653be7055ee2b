package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/bitfantasy/nimo-mes/internal/mes/entity"
	"github.com/bitfantasy/nimo-mes/internal/mes/repository"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const checklistCacheTTL = 10 * time.Minute

// ChecklistService 检验模板服务
type ChecklistService struct {
	repo *repository.ChecklistRepository
	rdb  *redis.Client
}

// NewChecklistService 创建检验模板服务
func NewChecklistService(repo *repository.ChecklistRepository, rdb *redis.Client) *ChecklistService {
	return &ChecklistService{repo: repo, rdb: rdb}
}

// ListChecklists 获取模板列表
func (s *ChecklistService) ListChecklists(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.ChecklistTemplate, int64, error) {
	return s.repo.FindAll(ctx, page, pageSize, filters)
}

// GetChecklist 获取模板详情，优先读缓存
func (s *ChecklistService) GetChecklist(ctx context.Context, id string) (*entity.ChecklistTemplate, error) {
	cacheKey := "checklist:tpl:" + id
	if s.rdb != nil {
		if cached, err := s.rdb.Get(ctx, cacheKey).Result(); err == nil {
			var tpl entity.ChecklistTemplate
			if err := json.Unmarshal([]byte(cached), &tpl); err == nil {
				return &tpl, nil
			}
		}
	}

	tpl, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.rdb != nil {
		if data, err := json.Marshal(tpl); err == nil {
			s.rdb.Set(ctx, cacheKey, data, checklistCacheTTL)
		}
	}
	return tpl, nil
}

func (s *ChecklistService) invalidateCache(ctx context.Context, id string) {
	if s.rdb != nil {
		s.rdb.Del(ctx, "checklist:tpl:"+id)
	}
}

// CreateChecklistRequest 创建模板请求
type CreateChecklistRequest struct {
	Name        string                   `json:"name" binding:"required"`
	Description string                   `json:"description"`
	Category    string                   `json:"category"`
	Sections    entity.ChecklistSections `json:"sections"`
}

// CreateChecklist 创建模板（初始为草稿）
func (s *ChecklistService) CreateChecklist(ctx context.Context, userID string, req *CreateChecklistRequest) (*entity.ChecklistTemplate, error) {
	code, err := s.repo.GenerateCode(ctx)
	if err != nil {
		return nil, fmt.Errorf("生成模板编码失败: %w", err)
	}

	tpl := &entity.ChecklistTemplate{
		ID:          uuid.New().String()[:32],
		Code:        code,
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
		Status:      entity.ChecklistStatusDraft,
		Sections:    req.Sections,
		CreatedBy:   userID,
	}

	if err := tpl.Validate(); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, tpl); err != nil {
		return nil, fmt.Errorf("创建模板失败: %w", err)
	}
	return tpl, nil
}

// UpdateChecklistRequest 更新模板请求
type UpdateChecklistRequest struct {
	Name        *string                  `json:"name"`
	Description *string                  `json:"description"`
	Category    *string                  `json:"category"`
	Sections    entity.ChecklistSections `json:"sections"`
}

// UpdateChecklist 更新模板，仅草稿可改检验项
func (s *ChecklistService) UpdateChecklist(ctx context.Context, id string, req *UpdateChecklistRequest) (*entity.ChecklistTemplate, error) {
	tpl, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		tpl.Name = *req.Name
	}
	if req.Description != nil {
		tpl.Description = *req.Description
	}
	if req.Category != nil {
		tpl.Category = *req.Category
	}
	if req.Sections != nil {
		if tpl.Status != entity.ChecklistStatusDraft {
			return nil, fmt.Errorf("模板已发布，不允许修改检验项")
		}
		tpl.Sections = req.Sections
	}

	if err := tpl.Validate(); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, tpl); err != nil {
		return nil, fmt.Errorf("更新模板失败: %w", err)
	}

	s.invalidateCache(ctx, id)
	return tpl, nil
}

// PublishChecklist 发布模板
func (s *ChecklistService) PublishChecklist(ctx context.Context, id string) (*entity.ChecklistTemplate, error) {
	tpl, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if tpl.Status != entity.ChecklistStatusDraft {
		return nil, fmt.Errorf("只有草稿模板可以发布")
	}
	if tpl.ItemCount() == 0 {
		return nil, fmt.Errorf("模板没有检验项，不能发布")
	}

	tpl.Status = entity.ChecklistStatusPublished
	if err := s.repo.Update(ctx, tpl); err != nil {
		return nil, err
	}

	s.invalidateCache(ctx, id)
	return tpl, nil
}

// ArchiveChecklist 归档模板
func (s *ChecklistService) ArchiveChecklist(ctx context.Context, id string) (*entity.ChecklistTemplate, error) {
	tpl, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	tpl.Status = entity.ChecklistStatusArchived
	if err := s.repo.Update(ctx, tpl); err != nil {
		return nil, err
	}

	s.invalidateCache(ctx, id)
	return tpl, nil
}

// DeleteChecklist 删除草稿模板
func (s *ChecklistService) DeleteChecklist(ctx context.Context, id string) error {
	tpl, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}

	if tpl.Status != entity.ChecklistStatusDraft {
		return fmt.Errorf("只有草稿模板可以删除")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.invalidateCache(ctx, id)
	return nil
}
