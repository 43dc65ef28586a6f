package types

import (
	"time"

	api "github.com/data-validator/data-validator/api/v1alpha1"
)

type ReportRenderer interface {
	Render(data *ReportData) ([]byte, error)
	SupportedFormat() ReportFormat
}

type ReportFormat string

const (
	ReportFormatCSV  ReportFormat = "csv"
	ReportFormatXLSX ReportFormat = "xlsx"
)

type ReportOptions struct {
	Format ReportFormat
	// LatestOnly keeps the newest result of each check.
	LatestOnly bool
}

type ReportData struct {
	Rows      []ResultRow
	Summary   Summary
	Options   ReportOptions
	Generated time.Time
}

// ResultRow is one result joined with the check that produced it. Check
// fields are empty when the check no longer exists.
type ResultRow struct {
	ResultID      string
	CheckID       string
	CheckName     string
	Dataset       string
	DatasetType   api.DatasetKind
	Column        string
	CheckType     api.CheckType
	Status        api.ResultStatus
	FailedRecords int
	TotalRecords  int
	CreatedAt     time.Time
}

type Summary struct {
	Checks  int
	Results int
	Passed  int
	Failed  int
}

// Columns is the header shared by every tabular format.
var Columns = []string{
	"Result ID", "Check ID", "Check Name", "Dataset", "Dataset Type", "Column",
	"Check Type", "Status", "Failed Records", "Total Records", "Created At",
}
