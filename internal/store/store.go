// Package store persists the resources served by the development API,
// either in memory or in a SQL database through gorm.
package store

import (
	"context"
	"sync"
	"time"

	api "github.com/data-validator/data-validator/api/v1alpha1"
	"github.com/data-validator/data-validator/internal/store/model"
	"gorm.io/gorm"
)

type Store interface {
	Dataset() Dataset
	Connection() Connection
	Check() Check
	Result() Result
	Close() error
}

// Dataset lists newest first.
type Dataset interface {
	Create(ctx context.Context, d api.CsvDataset, content model.Table) error
	List(ctx context.Context) ([]api.CsvDataset, error)
	Get(ctx context.Context, id string) (api.CsvDataset, model.Table, error)
}

type Connection interface {
	Create(ctx context.Context, c api.PostgresConnection) error
	List(ctx context.Context) ([]api.PostgresConnection, error)
	Get(ctx context.Context, id string) (api.PostgresConnection, error)
}

type Check interface {
	Create(ctx context.Context, c api.ValidationCheck) error
	List(ctx context.Context) ([]api.ValidationCheck, error)
	Get(ctx context.Context, id string) (api.ValidationCheck, error)
}

// Result lists in insertion order.
type Result interface {
	Create(ctx context.Context, r api.ValidationResult) error
	List(ctx context.Context) ([]api.ValidationResult, error)
}

type DataStore struct {
	db         *gorm.DB
	dataset    Dataset
	connection Connection
	check      Check
	result     Result
}

func NewStore(db *gorm.DB) Store {
	seq := &sequence{}
	return &DataStore{
		db:         db,
		dataset:    newDatasetStore(db, seq),
		connection: newConnectionStore(db, seq),
		check:      newCheckStore(db, seq),
		result:     newResultStore(db, seq),
	}
}

func (s *DataStore) Dataset() Dataset {
	return s.dataset
}

func (s *DataStore) Connection() Connection {
	return s.connection
}

func (s *DataStore) Check() Check {
	return s.check
}

func (s *DataStore) Result() Result {
	return s.result
}

func (s *DataStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// sequence orders rows inserted within the same clock tick and across
// restarts.
type sequence struct {
	mu   sync.Mutex
	last int64
}

func (s *sequence) next() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := time.Now().UnixNano()
	if n <= s.last {
		n = s.last + 1
	}
	s.last = n
	return n
}
