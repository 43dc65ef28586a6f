package model

import (
	"time"

	api "github.com/data-validator/data-validator/api/v1alpha1"
)

type Connection struct {
	ID           string `gorm:"primaryKey"`
	Name         string
	Host         string
	Port         int
	DatabaseName string
	Username     string
	Password     string
	SchemaName   string
	CreatedAt    time.Time `gorm:"autoCreateTime:false"`
	Seq          int64
}

func (Connection) TableName() string {
	return "connections"
}

func NewConnectionFromApi(c api.PostgresConnection) Connection {
	return Connection{
		ID:           c.Id,
		Name:         c.Name,
		Host:         c.Host,
		Port:         c.Port,
		DatabaseName: c.Database,
		Username:     c.Username,
		Password:     c.Password,
		SchemaName:   c.Schema,
		CreatedAt:    c.CreatedAt.Time,
	}
}

func (c Connection) ToApiResource() api.PostgresConnection {
	return api.PostgresConnection{
		Id:        c.ID,
		Name:      c.Name,
		Host:      c.Host,
		Port:      c.Port,
		Database:  c.DatabaseName,
		Username:  c.Username,
		Password:  c.Password,
		Schema:    c.SchemaName,
		CreatedAt: api.NewTimestamp(c.CreatedAt),
	}
}

type ConnectionList []Connection

func (cl ConnectionList) ToApiResource() []api.PostgresConnection {
	out := make([]api.PostgresConnection, 0, len(cl))
	for _, c := range cl {
		out = append(out, c.ToApiResource())
	}
	return out
}
