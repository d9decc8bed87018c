package dal

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/Billy-Davies-2/seal-tracker/internal/models"
)

// SQLiteDAL implements SnapshotDAL using SQLite
type SQLiteDAL struct {
	db        *sql.DB
	retention int
}

// NewSQLiteDAL creates a new SQLite data access layer
func NewSQLiteDAL(dbPath string) (*SQLiteDAL, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	dal := &SQLiteDAL{
		db:        db,
		retention: DefaultRetention,
	}

	if err := dal.initSchema(); err != nil {
		db.Close()
		return nil, err
	}

	return dal, nil
}

func (s *SQLiteDAL) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS snapshots (
		id TEXT PRIMARY KEY,
		generated_at INTEGER NOT NULL,
		stored_at INTEGER NOT NULL,
		players INTEGER NOT NULL,
		changed INTEGER NOT NULL,
		data TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_snapshots_stored_at ON snapshots(stored_at);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create snapshot schema: %w", err)
	}
	return nil
}

func (s *SQLiteDAL) SaveSnapshot(ds *models.Dataset) (*models.SnapshotInfo, error) {
	if ds == nil {
		return nil, fmt.Errorf("save snapshot: nil dataset")
	}

	data, err := json.Marshal(ds)
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}

	info := models.NewSnapshotInfo(genID("snap"), ds, time.Now().UTC())

	tx, err := s.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO snapshots (id, generated_at, stored_at, players, changed, data)
		VALUES (?, ?, ?, ?, ?, ?)
	`, info.ID, toUnixNano(info.GeneratedAt), toUnixNano(info.StoredAt), info.Players, info.Changed, string(data))
	if err != nil {
		return nil, fmt.Errorf("failed to insert snapshot: %w", err)
	}

	// Keep only the newest snapshots
	_, err = tx.Exec(`
		DELETE FROM snapshots WHERE id NOT IN (
			SELECT id FROM snapshots ORDER BY stored_at DESC LIMIT ?
		)
	`, s.retention)
	if err != nil {
		return nil, fmt.Errorf("failed to prune snapshots: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &info, nil
}

func (s *SQLiteDAL) LatestSnapshot() (*models.Dataset, *models.SnapshotInfo, error) {
	var (
		info                  models.SnapshotInfo
		generatedAt, storedAt int64
		data                  string
	)

	err := s.db.QueryRow(`
		SELECT id, generated_at, stored_at, players, changed, data
		FROM snapshots ORDER BY stored_at DESC LIMIT 1
	`).Scan(&info.ID, &generatedAt, &storedAt, &info.Players, &info.Changed, &data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, nil, err
	}

	var ds models.Dataset
	if err := json.Unmarshal([]byte(data), &ds); err != nil {
		return nil, nil, fmt.Errorf("failed to decode snapshot %s: %w", info.ID, err)
	}

	info.GeneratedAt = fromUnixNano(generatedAt)
	info.StoredAt = fromUnixNano(storedAt)
	return &ds, &info, nil
}

func (s *SQLiteDAL) ListSnapshots(limit int) ([]models.SnapshotInfo, error) {
	if limit <= 0 {
		limit = s.retention
	}

	rows, err := s.db.Query(`
		SELECT id, generated_at, stored_at, players, changed
		FROM snapshots ORDER BY stored_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.SnapshotInfo
	for rows.Next() {
		var (
			info                  models.SnapshotInfo
			generatedAt, storedAt int64
		)
		if err := rows.Scan(&info.ID, &generatedAt, &storedAt, &info.Players, &info.Changed); err != nil {
			return nil, err
		}
		info.GeneratedAt = fromUnixNano(generatedAt)
		info.StoredAt = fromUnixNano(storedAt)
		out = append(out, info)
	}
	return out, rows.Err()
}

func (s *SQLiteDAL) Reset() error {
	_, err := s.db.Exec(`DELETE FROM snapshots`)
	return err
}

func (s *SQLiteDAL) Close() error {
	return s.db.Close()
}

// toUnixNano stores the zero time as 0
func toUnixNano(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromUnixNano(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}
