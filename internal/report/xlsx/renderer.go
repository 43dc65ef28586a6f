package xlsx

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	api "github.com/data-validator/data-validator/api/v1alpha1"
	"github.com/data-validator/data-validator/internal/report/types"
)

const (
	ResultsSheet = "Results"
	SummarySheet = "Summary"
)

type Renderer struct{}

func NewRenderer() *Renderer {
	return &Renderer{}
}

func (r *Renderer) SupportedFormat() types.ReportFormat {
	return types.ReportFormatXLSX
}

// Render builds a workbook with a results sheet and a summary sheet. Failed
// rows are highlighted.
func (r *Renderer) Render(data *types.ReportData) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheetIndex, err := f.NewSheet(ResultsSheet)
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(sheetIndex)
	_ = f.DeleteSheet("Sheet1")

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}
	failedStyle, err := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#F8D7DA"}},
	})
	if err != nil {
		return nil, err
	}
	dateStyle, err := f.NewStyle(&excelize.Style{NumFmt: 22})
	if err != nil {
		return nil, err
	}

	if err := writeRow(f, ResultsSheet, 1, toAny(types.Columns)); err != nil {
		return nil, err
	}
	lastCol := cellName(len(types.Columns)-1, 1)
	if err := f.SetCellStyle(ResultsSheet, "A1", lastCol, headerStyle); err != nil {
		return nil, err
	}

	for i, row := range data.Rows {
		line := i + 2
		values := []any{
			row.ResultID,
			row.CheckID,
			row.CheckName,
			row.Dataset,
			string(row.DatasetType),
			row.Column,
			string(row.CheckType),
			string(row.Status),
			row.FailedRecords,
			row.TotalRecords,
			row.CreatedAt,
		}
		if err := writeRow(f, ResultsSheet, line, values); err != nil {
			return nil, err
		}
		if row.Status == api.ResultStatusFailed {
			if err := f.SetCellStyle(ResultsSheet, cellName(0, line), cellName(len(values)-2, line), failedStyle); err != nil {
				return nil, err
			}
		}
		if err := f.SetCellStyle(ResultsSheet, cellName(len(values)-1, line), cellName(len(values)-1, line), dateStyle); err != nil {
			return nil, err
		}
	}

	if err := f.SetPanes(ResultsSheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
		return nil, err
	}
	if err := r.addSummary(f, data, headerStyle); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *Renderer) addSummary(f *excelize.File, data *types.ReportData, headerStyle int) error {
	if _, err := f.NewSheet(SummarySheet); err != nil {
		return err
	}
	rows := [][]any{
		{"Metric", "Value"},
		{"Generated", data.Generated},
		{"Checks", data.Summary.Checks},
		{"Results", data.Summary.Results},
		{"Passed", data.Summary.Passed},
		{"Failed", data.Summary.Failed},
	}
	for i, row := range rows {
		if err := writeRow(f, SummarySheet, i+1, row); err != nil {
			return err
		}
	}
	return f.SetCellStyle(SummarySheet, "A1", "B1", headerStyle)
}

func writeRow(f *excelize.File, sheet string, line int, values []any) error {
	for col, v := range values {
		if err := f.SetCellValue(sheet, cellName(col, line), v); err != nil {
			return err
		}
	}
	return nil
}

func cellName(col, line int) string {
	name, _ := excelize.CoordinatesToCellName(col+1, line)
	return name
}

func toAny(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
