package model

import (
	"time"

	api "github.com/data-validator/data-validator/api/v1alpha1"
)

type Dataset struct {
	ID          string `gorm:"primaryKey"`
	Name        string
	FileName    string
	FilePath    string
	UploadedAt  time.Time
	ColumnNames []string `gorm:"serializer:json"`
	RowCount    int
	Preview     []map[string]any `gorm:"serializer:json"`
	Content     Table            `gorm:"serializer:json"`
	Seq         int64
}

func (Dataset) TableName() string {
	return "datasets"
}

func NewDatasetFromApi(d api.CsvDataset, t Table) Dataset {
	return Dataset{
		ID:          d.Id,
		Name:        d.Name,
		FileName:    d.FileName,
		FilePath:    d.FilePath,
		UploadedAt:  d.UploadedAt.Time,
		ColumnNames: d.Columns,
		RowCount:    d.RowCount,
		Preview:     d.PreviewData,
		Content:     t,
	}
}

func (d Dataset) ToApiResource() api.CsvDataset {
	return api.CsvDataset{
		Id:          d.ID,
		Name:        d.Name,
		FileName:    d.FileName,
		FilePath:    d.FilePath,
		UploadedAt:  api.NewTimestamp(d.UploadedAt),
		Columns:     d.ColumnNames,
		RowCount:    d.RowCount,
		PreviewData: d.Preview,
	}
}

type DatasetList []Dataset

func (dl DatasetList) ToApiResource() []api.CsvDataset {
	out := make([]api.CsvDataset, 0, len(dl))
	for _, d := range dl {
		out = append(out, d.ToApiResource())
	}
	return out
}
