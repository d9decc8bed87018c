package dal

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"

	"github.com/Billy-Davies-2/seal-tracker/internal/models"
)

//go:embed migrations/postgres/*.sql
var postgresMigrations embed.FS

// PostgresDAL implements SnapshotDAL using PostgreSQL
type PostgresDAL struct {
	db        *sql.DB
	retention int
}

// NewPostgresDAL creates a new PostgreSQL data access layer optimized for CloudNativePG
func NewPostgresDAL(connString string) (*PostgresDAL, error) {
	db, err := sql.Open("postgres", connString)
	if err != nil {
		return nil, err
	}

	// Snapshots are written once an hour, so a small pool is plenty
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute) // Recycle connections to handle failovers gracefully
	db.SetConnMaxIdleTime(1 * time.Minute)

	// Test connection with retry logic for Kubernetes DNS resolution
	maxRetries := 5
	retryDelay := 5 * time.Second
	var lastErr error

	for i := 0; i < maxRetries; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		lastErr = db.PingContext(ctx)
		cancel()

		if lastErr == nil {
			break
		}
		if i < maxRetries-1 {
			time.Sleep(retryDelay)
		}
	}

	if lastErr != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres after %d retries: %w", maxRetries, lastErr)
	}

	dal := &PostgresDAL{
		db:        db,
		retention: DefaultRetention,
	}

	if err := dal.initSchema(); err != nil {
		db.Close()
		return nil, err
	}

	return dal, nil
}

// initSchema applies the embedded migrations
func (p *PostgresDAL) initSchema() error {
	src, err := iofs.New(postgresMigrations, "migrations/postgres")
	if err != nil {
		return fmt.Errorf("failed to open migrations: %w", err)
	}

	driver, err := postgres.WithInstance(p.db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	// The migrate instance is not closed: closing it would close p.db
	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}

func (p *PostgresDAL) SaveSnapshot(ds *models.Dataset) (*models.SnapshotInfo, error) {
	if ds == nil {
		return nil, fmt.Errorf("save snapshot: nil dataset")
	}

	data, err := json.Marshal(ds)
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}

	info := models.NewSnapshotInfo(genID("snap"), ds, time.Now().UTC())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO snapshots (id, generated_at, stored_at, players, changed, data)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, info.ID, nullTime(info.GeneratedAt), info.StoredAt, info.Players, info.Changed, data)
	if err != nil {
		return nil, fmt.Errorf("failed to insert snapshot: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		DELETE FROM snapshots WHERE id NOT IN (
			SELECT id FROM snapshots ORDER BY stored_at DESC LIMIT $1
		)
	`, p.retention)
	if err != nil {
		return nil, fmt.Errorf("failed to prune snapshots: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &info, nil
}

func (p *PostgresDAL) LatestSnapshot() (*models.Dataset, *models.SnapshotInfo, error) {
	var (
		info        models.SnapshotInfo
		generatedAt sql.NullTime
		data        []byte
	)

	err := p.db.QueryRow(`
		SELECT id, generated_at, stored_at, players, changed, data
		FROM snapshots ORDER BY stored_at DESC LIMIT 1
	`).Scan(&info.ID, &generatedAt, &info.StoredAt, &info.Players, &info.Changed, &data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, nil, err
	}

	var ds models.Dataset
	if err := json.Unmarshal(data, &ds); err != nil {
		return nil, nil, fmt.Errorf("failed to decode snapshot %s: %w", info.ID, err)
	}

	if generatedAt.Valid {
		info.GeneratedAt = generatedAt.Time
	}
	return &ds, &info, nil
}

func (p *PostgresDAL) ListSnapshots(limit int) ([]models.SnapshotInfo, error) {
	if limit <= 0 {
		limit = p.retention
	}

	rows, err := p.db.Query(`
		SELECT id, generated_at, stored_at, players, changed
		FROM snapshots ORDER BY stored_at DESC LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.SnapshotInfo
	for rows.Next() {
		var (
			info        models.SnapshotInfo
			generatedAt sql.NullTime
		)
		if err := rows.Scan(&info.ID, &generatedAt, &info.StoredAt, &info.Players, &info.Changed); err != nil {
			return nil, err
		}
		if generatedAt.Valid {
			info.GeneratedAt = generatedAt.Time
		}
		out = append(out, info)
	}
	return out, rows.Err()
}

func (p *PostgresDAL) Reset() error {
	_, err := p.db.Exec("TRUNCATE snapshots")
	return err
}

func (p *PostgresDAL) Close() error {
	return p.db.Close()
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}
