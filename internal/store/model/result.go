package model

import (
	"time"

	api "github.com/data-validator/data-validator/api/v1alpha1"
)

type Result struct {
	ID        string `gorm:"primaryKey"`
	CheckID   string
	Status    string
	Metrics   api.ResultMetrics `gorm:"serializer:json"`
	CreatedAt time.Time         `gorm:"autoCreateTime:false"`
	Seq       int64
}

func (Result) TableName() string {
	return "results"
}

func NewResultFromApi(r api.ValidationResult) Result {
	return Result{
		ID:        r.Id,
		CheckID:   r.CheckId,
		Status:    string(r.Status),
		Metrics:   r.Metrics,
		CreatedAt: r.CreatedAt.Time,
	}
}

func (r Result) ToApiResource() api.ValidationResult {
	return api.ValidationResult{
		Id:        r.ID,
		CheckId:   r.CheckID,
		Status:    api.ResultStatus(r.Status),
		Metrics:   r.Metrics,
		CreatedAt: api.NewTimestamp(r.CreatedAt),
	}
}

type ResultList []Result

func (rl ResultList) ToApiResource() []api.ValidationResult {
	out := make([]api.ValidationResult, 0, len(rl))
	for _, r := range rl {
		out = append(out, r.ToApiResource())
	}
	return out
}
