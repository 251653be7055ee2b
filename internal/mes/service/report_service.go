package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"

	"github.com/bitfantasy/nimo-mes/internal/mes/entity"
	"github.com/bitfantasy/nimo-mes/internal/mes/repository"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/transform"
)

// ReportService 检验报告导出服务
type ReportService struct {
	repo *repository.InspectionRepository
}

func NewReportService(repo *repository.InspectionRepository) *ReportService {
	return &ReportService{repo: repo}
}

var inspectionExportHeaders = []string{
	"分组", "检验项", "类型", "目标值", "公差", "单位",
	"实测值", "是否通过", "关键项", "人工判定", "备注",
}

var statusLabels = map[entity.InspectionStatus]string{
	entity.InspectionStatusPassed:  "通过",
	entity.InspectionStatusPartial: "部分通过",
	entity.InspectionStatusFailed:  "不通过",
}

var verdictLabels = map[entity.ItemVerdict]string{
	entity.VerdictApproved: "人工通过",
	entity.VerdictRejected: "人工拒绝",
	entity.VerdictRework:   "返工",
}

func itemTypeLabel(t entity.ItemType) string {
	switch t {
	case entity.ItemTypeBoolean:
		return "布尔"
	case entity.ItemTypeNumeric:
		return "数值"
	case entity.ItemTypeText:
		return "文本"
	}
	return string(t)
}

func passedLabel(passed bool) string {
	if passed {
		return "通过"
	}
	return "不通过"
}

func boolLabel(b bool) string {
	if b {
		return "是"
	}
	return "否"
}

// inspectionRows 展开检验单为导出行
func inspectionRows(result *entity.InspectionResult) [][]interface{} {
	var rows [][]interface{}
	for _, sec := range result.Sections {
		for _, it := range sec.Items {
			tolerance := ""
			if it.Tolerance != nil {
				tolerance = fmt.Sprintf("±%g", *it.Tolerance)
			}
			expected := ""
			if it.ExpectedValue != nil {
				expected = fmt.Sprint(it.ExpectedValue)
			}
			recorded := ""
			if it.Result != nil {
				recorded = fmt.Sprint(it.Result)
			}
			rows = append(rows, []interface{}{
				sec.Name,
				it.Description,
				itemTypeLabel(it.Type),
				expected,
				tolerance,
				it.Unit,
				recorded,
				passedLabel(it.Passed),
				boolLabel(it.CriticalItem),
				verdictLabels[it.Verdict],
				it.Comments,
			})
		}
	}
	return rows
}

// ExportInspection 导出检验报告为xlsx
func (s *ReportService) ExportInspection(ctx context.Context, id string) (*excelize.File, string, error) {
	result, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, "", fmt.Errorf("inspection not found: %w", err)
	}

	f := excelize.NewFile()
	sheet := "检验报告"
	f.SetSheetName("Sheet1", sheet)

	// 表头样式: 加粗
	boldStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})

	// 写入表头
	for i, h := range inspectionExportHeaders {
		col, _ := excelize.ColumnNumberToName(i + 1)
		cell := col + "1"
		f.SetCellValue(sheet, cell, h)
		f.SetCellStyle(sheet, cell, cell, boldStyle)
	}

	// 写入数据行
	rows := inspectionRows(result)
	passedCount := 0
	for rowIdx, values := range rows {
		row := rowIdx + 2
		for colIdx, v := range values {
			col, _ := excelize.ColumnNumberToName(colIdx + 1)
			f.SetCellValue(sheet, fmt.Sprintf("%s%d", col, row), v)
		}
	}
	for _, it := range result.AllItems() {
		if it.Passed {
			passedCount++
		}
	}

	// 底部汇总行
	summaryRow := len(rows) + 2
	summaryStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
	})
	f.SetCellValue(sheet, fmt.Sprintf("A%d", summaryRow), "汇总")
	f.SetCellValue(sheet, fmt.Sprintf("B%d", summaryRow),
		fmt.Sprintf("检验项: %d, 通过: %d", len(rows), passedCount))
	f.SetCellValue(sheet, fmt.Sprintf("H%d", summaryRow), statusLabels[result.Status])
	f.SetCellStyle(sheet, fmt.Sprintf("A%d", summaryRow), fmt.Sprintf("K%d", summaryRow), summaryStyle)

	// 列宽
	colWidths := []float64{14, 24, 8, 10, 8, 6, 12, 10, 8, 10, 24}
	for i, w := range colWidths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(sheet, col, col, w)
	}

	filename := fmt.Sprintf("检验报告_%s.xlsx", result.Code)
	return f, filename, nil
}

// ExportInspectionCSV 导出检验报告为GBK编码CSV (Excel中文兼容)
func (s *ReportService) ExportInspectionCSV(ctx context.Context, id string) ([]byte, string, error) {
	result, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, "", fmt.Errorf("inspection not found: %w", err)
	}

	var buf bytes.Buffer
	// UTF-8 → GBK
	gbkWriter := transform.NewWriter(&buf, simplifiedchinese.GBK.NewEncoder())
	w := csv.NewWriter(gbkWriter)

	if err := w.Write(inspectionExportHeaders); err != nil {
		return nil, "", err
	}
	for _, values := range inspectionRows(result) {
		record := make([]string, len(values))
		for i, v := range values {
			record[i] = fmt.Sprint(v)
		}
		if err := w.Write(record); err != nil {
			return nil, "", err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, "", err
	}
	if err := gbkWriter.Close(); err != nil {
		return nil, "", err
	}

	filename := fmt.Sprintf("检验报告_%s.csv", result.Code)
	return buf.Bytes(), filename, nil
}
