package v1alpha1

// DatasetKind is the backing store of a dataset.
type DatasetKind string

const (
	DatasetKindCSV      DatasetKind = "csv"
	DatasetKindPostgres DatasetKind = "postgres"
)

// CheckType is the machine value of a validation check type.
type CheckType string

const (
	CheckTypeMissingValues CheckType = "missing_values"
	CheckTypeUniqueValues  CheckType = "unique_values"
	CheckTypeValueRange    CheckType = "value_range"
	CheckTypePattern       CheckType = "pattern"
	CheckTypeDataType      CheckType = "data_type"
	CheckTypeSchema        CheckType = "schema"
	CheckTypeCustomSQL     CheckType = "custom_sql"
)

// ResultStatus is the outcome of a validation run.
type ResultStatus string

const (
	ResultStatusPassed ResultStatus = "passed"
	ResultStatusFailed ResultStatus = "failed"
)

// CsvDataset is an uploaded CSV file as described by the backend.
type CsvDataset struct {
	Id          string           `json:"id"`
	Name        string           `json:"name"`
	FileName    string           `json:"fileName"`
	FilePath    string           `json:"filePath,omitempty"`
	UploadedAt  Timestamp        `json:"uploadedAt"`
	Columns     []string         `json:"columns"`
	RowCount    int              `json:"rowCount"`
	PreviewData []map[string]any `json:"previewData,omitempty"`
}

// PostgresConnection describes a registered PostgreSQL database.
type PostgresConnection struct {
	Id        string    `json:"id"`
	Name      string    `json:"name"`
	Host      string    `json:"host"`
	Port      int       `json:"port"`
	Database  string    `json:"database"`
	Username  string    `json:"username"`
	Password  string    `json:"password,omitempty"`
	Schema    string    `json:"schema,omitempty"`
	CreatedAt Timestamp `json:"createdAt"`
}

// NewValidationCheck is the body of a check creation request. The server
// assigns id and createdAt.
type NewValidationCheck struct {
	Name        string         `json:"name" validate:"required,max=128"`
	DatasetId   string         `json:"datasetId" validate:"required"`
	DatasetName string         `json:"datasetName"`
	DatasetType DatasetKind    `json:"datasetType" validate:"required,dataset_kind"`
	Column      string         `json:"column" validate:"required"`
	CheckType   CheckType      `json:"checkType" validate:"required,check_type"`
	Parameters  map[string]any `json:"parameters"`
}

// ValidationCheck is a persisted check. Checks are never updated; a new
// check is created for every configuration change.
type ValidationCheck struct {
	Id          string         `json:"id"`
	Name        string         `json:"name"`
	DatasetId   string         `json:"datasetId"`
	DatasetName string         `json:"datasetName"`
	DatasetType DatasetKind    `json:"datasetType"`
	Column      string         `json:"column"`
	CheckType   CheckType      `json:"checkType"`
	Parameters  map[string]any `json:"parameters"`
	CreatedAt   Timestamp      `json:"createdAt"`
}

// ResultMetrics carries the failed record count and whatever else the
// backend reports for a run.
type ResultMetrics struct {
	FailedRecords int            `json:"failedRecords"`
	TotalRecords  int            `json:"totalRecords,omitempty"`
	Extra         map[string]any `json:"-"`
}

// ValidationResult is the append-only outcome of one run of a check.
type ValidationResult struct {
	Id        string        `json:"id"`
	CheckId   string        `json:"checkId"`
	Status    ResultStatus  `json:"status"`
	Metrics   ResultMetrics `json:"metrics"`
	CreatedAt Timestamp     `json:"createdAt"`
}

// RunAck acknowledges a run trigger. ResultId is only set by backends that
// create the result row before processing.
type RunAck struct {
	CheckId  string `json:"checkId,omitempty"`
	ResultId string `json:"resultId,omitempty"`
	Message  string `json:"message,omitempty"`
}

type ColumnAnalysis struct {
	DataType          string   `json:"dataType"`
	UniqueValues      int      `json:"uniqueValues"`
	MissingValues     int      `json:"missingValues"`
	MissingPercentage float64  `json:"missingPercentage"`
	Min               *float64 `json:"min,omitempty"`
	Max               *float64 `json:"max,omitempty"`
	Mean              *float64 `json:"mean,omitempty"`
	SampleValues      []any    `json:"sampleValues,omitempty"`
}

type Recommendation struct {
	Type    CheckType `json:"type"`
	Column  string    `json:"column"`
	Message string    `json:"message"`
}

// DatasetAnalysis holds column statistics and suggested checks.
type DatasetAnalysis struct {
	Columns         map[string]ColumnAnalysis `json:"columns"`
	Recommendations []Recommendation          `json:"recommendations"`
}

type HealthStatus struct {
	Status string `json:"status"`
}
