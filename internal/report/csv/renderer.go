package csv

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"github.com/data-validator/data-validator/internal/report/types"
)

type Renderer struct{}

func NewRenderer() *Renderer {
	return &Renderer{}
}

func (r *Renderer) SupportedFormat() types.ReportFormat {
	return types.ReportFormatCSV
}

// Render writes the header followed by one line per result.
func (r *Renderer) Render(data *types.ReportData) ([]byte, error) {
	csvRows := make([][]string, 0, len(data.Rows)+1)
	csvRows = append(csvRows, types.Columns)
	for _, row := range data.Rows {
		csvRows = append(csvRows, []string{
			row.ResultID,
			row.CheckID,
			row.CheckName,
			row.Dataset,
			string(row.DatasetType),
			row.Column,
			string(row.CheckType),
			string(row.Status),
			strconv.Itoa(row.FailedRecords),
			strconv.Itoa(row.TotalRecords),
			row.CreatedAt.Format(time.RFC3339),
		})
	}
	return r.convertRowsToCSV(csvRows)
}

func (r *Renderer) convertRowsToCSV(csvRows [][]string) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	for _, row := range csvRows {
		if err := writer.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush CSV writer: %w", err)
	}

	return buf.Bytes(), nil
}
