package store

import (
	"context"

	api "github.com/data-validator/data-validator/api/v1alpha1"
	"github.com/data-validator/data-validator/internal/store/model"
	"gorm.io/gorm"
)

type CheckStore struct {
	db  *gorm.DB
	seq *sequence
}

// Make sure we conform to Check interface
var _ Check = (*CheckStore)(nil)

func newCheckStore(db *gorm.DB, seq *sequence) Check {
	return &CheckStore{db: db, seq: seq}
}

func (s *CheckStore) Create(ctx context.Context, c api.ValidationCheck) error {
	m := model.NewCheckFromApi(c)
	m.Seq = s.seq.next()
	return translate(s.db.WithContext(ctx).Create(&m).Error)
}

func (s *CheckStore) List(ctx context.Context) ([]api.ValidationCheck, error) {
	var checks model.CheckList
	if err := s.db.WithContext(ctx).Order("seq").Find(&checks).Error; err != nil {
		return nil, err
	}
	return checks.ToApiResource(), nil
}

func (s *CheckStore) Get(ctx context.Context, id string) (api.ValidationCheck, error) {
	var c model.Check
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&c).Error; err != nil {
		return api.ValidationCheck{}, translate(err)
	}
	return c.ToApiResource(), nil
}
