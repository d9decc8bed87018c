package mocks

import (
	"github.com/Billy-Davies-2/seal-tracker/internal/dal"
	"github.com/Billy-Davies-2/seal-tracker/internal/logger"
)

// MockPostgresDAL stands in for Postgres with SQLite during local development
type MockPostgresDAL struct {
	dal.SnapshotDAL
}

// NewMockPostgresDAL creates a mock Postgres DAL using SQLite
func NewMockPostgresDAL(sqliteFile string) (*MockPostgresDAL, error) {
	logger.Info("Using MOCK Postgres (SQLite) for local development", "file", sqliteFile)

	sqliteDAL, err := dal.NewSQLiteDAL(sqliteFile)
	if err != nil {
		return nil, err
	}

	return &MockPostgresDAL{
		SnapshotDAL: sqliteDAL,
	}, nil
}
