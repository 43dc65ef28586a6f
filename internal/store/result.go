package store

import (
	"context"

	api "github.com/data-validator/data-validator/api/v1alpha1"
	"github.com/data-validator/data-validator/internal/store/model"
	"gorm.io/gorm"
)

type ResultStore struct {
	db  *gorm.DB
	seq *sequence
}

// Make sure we conform to Result interface
var _ Result = (*ResultStore)(nil)

func newResultStore(db *gorm.DB, seq *sequence) Result {
	return &ResultStore{db: db, seq: seq}
}

func (s *ResultStore) Create(ctx context.Context, r api.ValidationResult) error {
	m := model.NewResultFromApi(r)
	m.Seq = s.seq.next()
	return translate(s.db.WithContext(ctx).Create(&m).Error)
}

func (s *ResultStore) List(ctx context.Context) ([]api.ValidationResult, error) {
	var results model.ResultList
	if err := s.db.WithContext(ctx).Order("seq").Find(&results).Error; err != nil {
		return nil, err
	}
	return results.ToApiResource(), nil
}
