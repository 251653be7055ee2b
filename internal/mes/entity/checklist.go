package entity

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ItemType 检验项类型
type ItemType string

const (
	ItemTypeBoolean ItemType = "boolean"
	ItemTypeNumeric ItemType = "numeric"
	ItemTypeText    ItemType = "text"
)

func (t ItemType) IsValid() bool {
	switch t {
	case ItemTypeBoolean, ItemTypeNumeric, ItemTypeText:
		return true
	}
	return false
}

// ChecklistItem 检验项定义
type ChecklistItem struct {
	ID            string      `json:"id"`
	Description   string      `json:"description"`
	Type          ItemType    `json:"type"`
	ExpectedValue interface{} `json:"expected_value,omitempty"`
	Tolerance     *float64    `json:"tolerance,omitempty"` // 仅numeric有效，绝对±公差
	Unit          string      `json:"unit,omitempty"`
	CriticalItem  bool        `json:"critical_item"`
	Required      bool        `json:"required"`
}

// Evaluate 按检验项规则判定记录值是否合格
func (it *ChecklistItem) Evaluate(value interface{}) bool {
	return EvaluateItem(it.Type, it.ExpectedValue, it.Tolerance, value)
}

// EvaluateItem 单项判定。纯函数，对三种类型全覆盖：
//   - boolean: 仅记录值为true判合格，expected_value不参与比较
//   - numeric: 有目标值时在 [目标-公差, 目标+公差] 内合格；无目标值一律不合格，
//     需走人工改判；记录值无法解析为数字同样不合格
//   - text: 有目标值时精确匹配（区分大小写）；无目标值时非空白即合格
func EvaluateItem(typ ItemType, expected interface{}, tolerance *float64, value interface{}) bool {
	switch typ {
	case ItemTypeBoolean:
		b, ok := value.(bool)
		return ok && b
	case ItemTypeNumeric:
		exp, ok := toFloat(expected)
		if !ok {
			return false
		}
		v, ok := toFloat(value)
		if !ok {
			return false
		}
		tol := 0.0
		if tolerance != nil {
			tol = *tolerance
		}
		return v >= exp-tol && v <= exp+tol
	case ItemTypeText:
		if exp := toString(expected); exp != "" {
			return toString(value) == exp
		}
		return strings.TrimSpace(toString(value)) != ""
	}
	return false
}

// toFloat 宽松的数字转换。表单和jsonb反序列化会产生float64/json.Number/字符串等
// 多种形态，全部归一到float64；解析失败返回false，由调用方判不合格。
func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		return f, err == nil
	}
	return 0, false
}

func toString(v interface{}) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case json.Number:
		return s.String()
	}
	return fmt.Sprint(v)
}

// ChecklistSection 检验模板分组
type ChecklistSection struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Items []ChecklistItem `json:"items"`
}

// ChecklistSections jsonb列
type ChecklistSections []ChecklistSection

func (s ChecklistSections) Value() (driver.Value, error) {
	if s == nil {
		return json.Marshal(ChecklistSections{})
	}
	return json.Marshal(s)
}

func (s *ChecklistSections) Scan(value interface{}) error {
	if value == nil {
		*s = nil
		return nil
	}
	switch data := value.(type) {
	case []byte:
		return json.Unmarshal(data, s)
	case string:
		return json.Unmarshal([]byte(data), s)
	}
	return errors.New("unsupported scan type for ChecklistSections")
}

// ChecklistTemplate 检验模板
type ChecklistTemplate struct {
	ID          string            `json:"id" gorm:"primaryKey;size:32"`
	Code        string            `json:"code" gorm:"size:32;uniqueIndex;not null"`
	Name        string            `json:"name" gorm:"size:200;not null"`
	Description string            `json:"description" gorm:"type:text"`
	Category    string            `json:"category" gorm:"size:50"` // incoming/in_process/final
	Status      string            `json:"status" gorm:"size:20;default:draft"`
	Sections    ChecklistSections `json:"sections" gorm:"type:jsonb"`
	CreatedBy   string            `json:"created_by" gorm:"size:32"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

func (ChecklistTemplate) TableName() string {
	return "mes_checklist_templates"
}

// 模板状态
const (
	ChecklistStatusDraft     = "draft"
	ChecklistStatusPublished = "published"
	ChecklistStatusArchived  = "archived"
)

// Validate 模板结构校验：项类型合法、分组内ID唯一、公差只允许出现在numeric项上
func (t *ChecklistTemplate) Validate() error {
	if t.Name == "" {
		return errors.New("模板名称不能为空")
	}
	for _, sec := range t.Sections {
		if sec.ID == "" {
			return errors.New("分组ID不能为空")
		}
		seen := make(map[string]bool, len(sec.Items))
		for _, it := range sec.Items {
			if it.ID == "" {
				return fmt.Errorf("分组 %s 中存在空的检验项ID", sec.Name)
			}
			if seen[it.ID] {
				return fmt.Errorf("分组 %s 中检验项ID重复: %s", sec.Name, it.ID)
			}
			seen[it.ID] = true
			if !it.Type.IsValid() {
				return fmt.Errorf("检验项 %s 类型非法: %s", it.ID, it.Type)
			}
			if it.Tolerance != nil && it.Type != ItemTypeNumeric {
				return fmt.Errorf("检验项 %s 非numeric类型不允许设置公差", it.ID)
			}
		}
	}
	return nil
}

// ItemCount 模板检验项总数
func (t *ChecklistTemplate) ItemCount() int {
	n := 0
	for _, sec := range t.Sections {
		n += len(sec.Items)
	}
	return n
}
