package store

import (
	"context"
	"errors"

	api "github.com/data-validator/data-validator/api/v1alpha1"
	"github.com/data-validator/data-validator/internal/store/model"
	"gorm.io/gorm"
)

type DatasetStore struct {
	db  *gorm.DB
	seq *sequence
}

// Make sure we conform to Dataset interface
var _ Dataset = (*DatasetStore)(nil)

func newDatasetStore(db *gorm.DB, seq *sequence) Dataset {
	return &DatasetStore{db: db, seq: seq}
}

func (s *DatasetStore) Create(ctx context.Context, d api.CsvDataset, content model.Table) error {
	m := model.NewDatasetFromApi(d, content)
	m.Seq = s.seq.next()
	return translate(s.db.WithContext(ctx).Create(&m).Error)
}

func (s *DatasetStore) List(ctx context.Context) ([]api.CsvDataset, error) {
	var datasets model.DatasetList
	// content holds the whole file, lists do not need it
	result := s.db.WithContext(ctx).Omit("content").Order("seq DESC").Find(&datasets)
	if result.Error != nil {
		return nil, result.Error
	}
	return datasets.ToApiResource(), nil
}

func (s *DatasetStore) Get(ctx context.Context, id string) (api.CsvDataset, model.Table, error) {
	var d model.Dataset
	result := s.db.WithContext(ctx).Where("id = ?", id).First(&d)
	if result.Error != nil {
		return api.CsvDataset{}, model.Table{}, translate(result.Error)
	}
	return d.ToApiResource(), d.Content, nil
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrRecordNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicateKey
	default:
		return err
	}
}
