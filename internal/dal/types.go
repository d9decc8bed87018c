package dal

import (
	"errors"

	"github.com/Billy-Davies-2/seal-tracker/internal/models"
)

// ErrNoSnapshot is returned when the store holds no dataset yet
var ErrNoSnapshot = errors.New("no snapshot stored")

// SnapshotDAL defines the interface for the snapshot store. Datasets are
// stored whole; the newest one is what the service falls back to when the
// source is down at startup.
type SnapshotDAL interface {
	SaveSnapshot(ds *models.Dataset) (*models.SnapshotInfo, error)
	LatestSnapshot() (*models.Dataset, *models.SnapshotInfo, error)
	ListSnapshots(limit int) ([]models.SnapshotInfo, error)
	Reset() error
	Close() error
}

// DefaultRetention is how many snapshots a store keeps
const DefaultRetention = 48
