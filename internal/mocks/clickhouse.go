package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/Billy-Davies-2/seal-tracker/internal/logger"
	"github.com/Billy-Davies-2/seal-tracker/internal/models"
)

// MockClickHouseClient keeps price history in memory for local development
type MockClickHouseClient struct {
	mu        sync.RWMutex
	history   map[string][]models.PricePoint // slug -> oldest first
	retention int
}

// NewMockClickHouseClient creates a mock ClickHouse client
func NewMockClickHouseClient() *MockClickHouseClient {
	logger.Info("Using MOCK ClickHouse client for local development")

	return &MockClickHouseClient{
		history:   make(map[string][]models.PricePoint),
		retention: 500,
	}
}

// ArchiveSnapshot records one point per player
func (m *MockClickHouseClient) ArchiveSnapshot(ctx context.Context, ds *models.Dataset) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	recordedAt := time.Now().UTC()
	for _, group := range ds.TierGroups {
		for _, rec := range group {
			points := append(m.history[rec.Slug], models.NewPricePoint(rec, ds.GeneratedAt, recordedAt))
			if len(points) > m.retention {
				points = points[len(points)-m.retention:]
			}
			m.history[rec.Slug] = points
		}
	}

	logger.Debug("Mock ClickHouse: Archived snapshot", "players", ds.Len())
	return nil
}

// PriceHistory returns the newest points for slug, newest first
func (m *MockClickHouseClient) PriceHistory(ctx context.Context, slug string, limit int) ([]models.PricePoint, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	points := m.history[slug]
	out := make([]models.PricePoint, 0, len(points))
	for i := len(points) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, points[i])
	}
	return out, nil
}

// Close is a no-op for mock client
func (m *MockClickHouseClient) Close() error {
	return nil
}
