package dal

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Billy-Davies-2/seal-tracker/internal/models"
)

type memorySnapshot struct {
	info models.SnapshotInfo
	ds   *models.Dataset
}

// MemoryDAL implements SnapshotDAL using in-memory storage
type MemoryDAL struct {
	mu        sync.RWMutex
	snapshots []memorySnapshot // oldest first
	retention int
}

// NewMemoryDAL creates a new in-memory data access layer
func NewMemoryDAL() *MemoryDAL {
	return &MemoryDAL{retention: DefaultRetention}
}

func (m *MemoryDAL) SaveSnapshot(ds *models.Dataset) (*models.SnapshotInfo, error) {
	if ds == nil {
		return nil, fmt.Errorf("save snapshot: nil dataset")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	info := models.NewSnapshotInfo(genID("snap"), ds, time.Now().UTC())
	m.snapshots = append(m.snapshots, memorySnapshot{info: info, ds: ds})
	if len(m.snapshots) > m.retention {
		m.snapshots = m.snapshots[len(m.snapshots)-m.retention:]
	}
	return &info, nil
}

func (m *MemoryDAL) LatestSnapshot() (*models.Dataset, *models.SnapshotInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.snapshots) == 0 {
		return nil, nil, ErrNoSnapshot
	}
	latest := m.snapshots[len(m.snapshots)-1]
	info := latest.info
	return latest.ds, &info, nil
}

func (m *MemoryDAL) ListSnapshots(limit int) ([]models.SnapshotInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	// Newest first
	out := make([]models.SnapshotInfo, 0, len(m.snapshots))
	for i := len(m.snapshots) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, m.snapshots[i].info)
	}
	return out, nil
}

func (m *MemoryDAL) Reset() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.snapshots = nil
	return nil
}

func (m *MemoryDAL) Close() error {
	return nil
}

func genID(prefix string) string {
	return prefix + "_" + uuid.NewString()
}
