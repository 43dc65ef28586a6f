package store

import (
	"context"

	api "github.com/data-validator/data-validator/api/v1alpha1"
	"github.com/data-validator/data-validator/internal/store/model"
	"gorm.io/gorm"
)

type ConnectionStore struct {
	db  *gorm.DB
	seq *sequence
}

// Make sure we conform to Connection interface
var _ Connection = (*ConnectionStore)(nil)

func newConnectionStore(db *gorm.DB, seq *sequence) Connection {
	return &ConnectionStore{db: db, seq: seq}
}

func (s *ConnectionStore) Create(ctx context.Context, c api.PostgresConnection) error {
	m := model.NewConnectionFromApi(c)
	m.Seq = s.seq.next()
	return translate(s.db.WithContext(ctx).Create(&m).Error)
}

func (s *ConnectionStore) List(ctx context.Context) ([]api.PostgresConnection, error) {
	var conns model.ConnectionList
	if err := s.db.WithContext(ctx).Order("seq").Find(&conns).Error; err != nil {
		return nil, err
	}
	return conns.ToApiResource(), nil
}

func (s *ConnectionStore) Get(ctx context.Context, id string) (api.PostgresConnection, error) {
	var c model.Connection
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&c).Error; err != nil {
		return api.PostgresConnection{}, translate(err)
	}
	return c.ToApiResource(), nil
}
