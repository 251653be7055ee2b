package entity

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// 检验单状态
type InspectionStatus string

const (
	InspectionStatusPassed  InspectionStatus = "passed"
	InspectionStatusPartial InspectionStatus = "partial"
	InspectionStatusFailed  InspectionStatus = "failed"
)

// PassRateThreshold 合格率阈值：低于该值整单判不合格，等于该值为部分合格
const PassRateThreshold = 0.70

// ItemVerdict 人工改判结论
type ItemVerdict string

const (
	VerdictApproved ItemVerdict = "approved"
	VerdictRejected ItemVerdict = "rejected"
	VerdictRework   ItemVerdict = "rework" // 与rejected同样判不合格，仅报表标签不同
)

func (v ItemVerdict) IsValid() bool {
	switch v {
	case VerdictApproved, VerdictRejected, VerdictRework:
		return true
	}
	return false
}

var (
	ErrTemplateLocked = errors.New("检验单已保存，不允许更换模板")
	ErrItemNotFound   = errors.New("检验项不存在")
)

// ResultItem 检验结果项。判定规则字段（Type/ExpectedValue/Tolerance）是绑定模板时
// 的拷贝，此后模板变更不影响已有检验单。
type ResultItem struct {
	ID            string      `json:"id"`
	Description   string      `json:"description"`
	Type          ItemType    `json:"type"`
	ExpectedValue interface{} `json:"expected_value,omitempty"`
	Tolerance     *float64    `json:"tolerance,omitempty"`
	Unit          string      `json:"unit,omitempty"`
	CriticalItem  bool        `json:"critical_item"`
	Result        interface{} `json:"result"`
	Passed        bool        `json:"passed"`
	Verdict       ItemVerdict `json:"verdict,omitempty"` // 空=自动判定，非空=人工改判
	Comments      string      `json:"comments,omitempty"`
	Photos        []string    `json:"photos,omitempty"` // 附件引用，引擎不解释内容
}

// Record 记录测量值并重新自动判定，清除之前的人工改判
func (it *ResultItem) Record(value interface{}) {
	it.Result = value
	it.Passed = EvaluateItem(it.Type, it.ExpectedValue, it.Tolerance, value)
	it.Verdict = ""
}

// Override 人工改判。approved判合格，rejected/rework判不合格。
// boolean项同步改写记录值保持一致；numeric/text保留原记录值，
// 显示值与结论不一致是允许的（人工兜底通道）。
func (it *ResultItem) Override(verdict ItemVerdict) {
	it.Verdict = verdict
	it.Passed = verdict == VerdictApproved
	if it.Type == ItemTypeBoolean {
		it.Result = verdict == VerdictApproved
	}
}

// ResultSection 检验结果分组，与模板分组结构一致
type ResultSection struct {
	ID    string       `json:"id"`
	Name  string       `json:"name"`
	Items []ResultItem `json:"items"`
}

// ResultSections jsonb列
type ResultSections []ResultSection

func (s ResultSections) Value() (driver.Value, error) {
	if s == nil {
		return json.Marshal(ResultSections{})
	}
	return json.Marshal(s)
}

func (s *ResultSections) Scan(value interface{}) error {
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
	return errors.New("unsupported scan type for ResultSections")
}

// InspectionResult 检验单
type InspectionResult struct {
	ID             string           `json:"id" gorm:"primaryKey;size:32"`
	Code           string           `json:"code" gorm:"size:32;uniqueIndex;not null"`
	ChecklistID    string           `json:"checklist_id" gorm:"size:32;not null"`
	ChecklistName  string           `json:"checklist_name" gorm:"size:200"`
	OrderID        string           `json:"order_id" gorm:"size:32;not null;index"`
	ItemID         *string          `json:"item_id" gorm:"size:32"`
	Inspector      string           `json:"inspector" gorm:"size:100;not null"`
	InspectionDate time.Time        `json:"inspection_date"`
	Status         InspectionStatus `json:"status" gorm:"size:20"`
	Sections       ResultSections   `json:"sections" gorm:"type:jsonb"`
	Comments       string           `json:"comments" gorm:"type:text"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

func (InspectionResult) TableName() string {
	return "mes_inspections"
}

// BindTemplate 按模板重建检验单结构。仅允许未保存的检验单换绑模板；
// 换绑丢弃此前录入的所有值，不做跨模板按ID合并。
func (r *InspectionResult) BindTemplate(tpl *ChecklistTemplate) error {
	if r.ID != "" {
		return ErrTemplateLocked
	}
	r.ChecklistID = tpl.ID
	r.ChecklistName = tpl.Name

	sections := make(ResultSections, 0, len(tpl.Sections))
	for _, sec := range tpl.Sections {
		rs := ResultSection{ID: sec.ID, Name: sec.Name, Items: make([]ResultItem, 0, len(sec.Items))}
		for i := range sec.Items {
			it := sec.Items[i]
			rs.Items = append(rs.Items, ResultItem{
				ID:            it.ID,
				Description:   it.Description,
				Type:          it.Type,
				ExpectedValue: it.ExpectedValue,
				Tolerance:     copyTolerance(it.Tolerance),
				Unit:          it.Unit,
				CriticalItem:  it.CriticalItem,
				Result:        defaultResultValue(&it),
				Passed:        false,
			})
		}
		sections = append(sections, rs)
	}
	r.Sections = sections
	r.Recompute()
	return nil
}

// defaultResultValue 实例化时的记录值缺省：boolean→false，numeric→目标值或0，
// text→目标值或空串。缺省值即使落在公差内，初始判定也一律为不合格。
func defaultResultValue(it *ChecklistItem) interface{} {
	switch it.Type {
	case ItemTypeBoolean:
		return false
	case ItemTypeNumeric:
		if f, ok := toFloat(it.ExpectedValue); ok {
			return f
		}
		return float64(0)
	case ItemTypeText:
		return toString(it.ExpectedValue)
	}
	return nil
}

func copyTolerance(t *float64) *float64 {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// FindItem 按分组和项ID定位结果项
func (r *InspectionResult) FindItem(sectionID, itemID string) *ResultItem {
	for si := range r.Sections {
		if r.Sections[si].ID != sectionID {
			continue
		}
		for ii := range r.Sections[si].Items {
			if r.Sections[si].Items[ii].ID == itemID {
				return &r.Sections[si].Items[ii]
			}
		}
	}
	return nil
}

// RecordItemValue 记录某项测量值并全量重算整单状态
func (r *InspectionResult) RecordItemValue(sectionID, itemID string, value interface{}) error {
	it := r.FindItem(sectionID, itemID)
	if it == nil {
		return ErrItemNotFound
	}
	it.Record(value)
	r.Recompute()
	return nil
}

// SetItemVerdict 人工改判某项并全量重算整单状态
func (r *InspectionResult) SetItemVerdict(sectionID, itemID string, verdict ItemVerdict) error {
	it := r.FindItem(sectionID, itemID)
	if it == nil {
		return ErrItemNotFound
	}
	it.Override(verdict)
	r.Recompute()
	return nil
}

// AddItemPhoto 给某项追加附件引用
func (r *InspectionResult) AddItemPhoto(sectionID, itemID, ref string) error {
	it := r.FindItem(sectionID, itemID)
	if it == nil {
		return ErrItemNotFound
	}
	it.Photos = append(it.Photos, ref)
	return nil
}

// AllItems 汇总所有分组的结果项，分组顺序保留但对汇总无语义
func (r *InspectionResult) AllItems() []ResultItem {
	items := make([]ResultItem, 0)
	for _, sec := range r.Sections {
		items = append(items, sec.Items...)
	}
	return items
}

// Recompute 每次变更后全量重算，不做增量缓存，杜绝状态漂移
func (r *InspectionResult) Recompute() {
	r.Status = DeriveStatus(r.AllItems())
}

// DeriveStatus 整单状态汇总：
//  1. 任一关键项不合格 → failed，不再看合格率
//  2. 合格率 < 0.70 → failed（恰好0.70为partial）
//  3. 合格率 < 1.00 → partial
//  4. 合格率 = 1.00 → passed；空检验单视为全部通过
func DeriveStatus(items []ResultItem) InspectionStatus {
	passed := 0
	for i := range items {
		if items[i].CriticalItem && !items[i].Passed {
			return InspectionStatusFailed
		}
		if items[i].Passed {
			passed++
		}
	}
	total := len(items)
	if total == 0 {
		return InspectionStatusPassed
	}
	rate := float64(passed) / float64(total)
	if rate < PassRateThreshold {
		return InspectionStatusFailed
	}
	if rate < 1.0 {
		return InspectionStatusPartial
	}
	return InspectionStatusPassed
}
