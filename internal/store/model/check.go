package model

import (
	"time"

	api "github.com/data-validator/data-validator/api/v1alpha1"
)

type Check struct {
	ID          string `gorm:"primaryKey"`
	Name        string
	DatasetID   string
	DatasetName string
	DatasetType string
	ColumnName  string
	CheckType   string
	Parameters  map[string]any `gorm:"serializer:json"`
	CreatedAt   time.Time      `gorm:"autoCreateTime:false"`
	Seq         int64
}

func (Check) TableName() string {
	return "checks"
}

func NewCheckFromApi(c api.ValidationCheck) Check {
	return Check{
		ID:          c.Id,
		Name:        c.Name,
		DatasetID:   c.DatasetId,
		DatasetName: c.DatasetName,
		DatasetType: string(c.DatasetType),
		ColumnName:  c.Column,
		CheckType:   string(c.CheckType),
		Parameters:  c.Parameters,
		CreatedAt:   c.CreatedAt.Time,
	}
}

func (c Check) ToApiResource() api.ValidationCheck {
	params := c.Parameters
	if params == nil {
		params = map[string]any{}
	}
	return api.ValidationCheck{
		Id:          c.ID,
		Name:        c.Name,
		DatasetId:   c.DatasetID,
		DatasetName: c.DatasetName,
		DatasetType: api.DatasetKind(c.DatasetType),
		Column:      c.ColumnName,
		CheckType:   api.CheckType(c.CheckType),
		Parameters:  params,
		CreatedAt:   api.NewTimestamp(c.CreatedAt),
	}
}

type CheckList []Check

func (cl CheckList) ToApiResource() []api.ValidationCheck {
	out := make([]api.ValidationCheck, 0, len(cl))
	for _, c := range cl {
		out = append(out, c.ToApiResource())
	}
	return out
}
