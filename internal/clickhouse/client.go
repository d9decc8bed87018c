// Package clickhouse archives every refreshed snapshot so price history per
// player can be queried later.
package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/shopspring/decimal"

	"github.com/Billy-Davies-2/seal-tracker/internal/models"
)

const historyTable = "seal_price_history"

// Client provides ClickHouse integration for price history
type Client struct {
	conn driver.Conn
}

// NewClient creates a new ClickHouse client and makes sure the history
// table exists
func NewClient(addr, database, username, password string) (*Client, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: database,
			Username: username,
			Password: password,
		},
		DialTimeout: 10 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := conn.Ping(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	c := &Client{conn: conn}
	if err := c.initSchema(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	return c, nil
}

func (c *Client) initSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS ` + historyTable + ` (
			recorded_at      DateTime64(3),
			generated_at     DateTime64(3),
			slug             String,
			name             String,
			tier             Nullable(Int32),
			changed          Bool,
			price_limited    Nullable(Decimal64(4)),
			price_rare       Nullable(Decimal64(4)),
			price_super_rare Nullable(Decimal64(4))
		)
		ENGINE = MergeTree
		ORDER BY (slug, recorded_at)
	`
	if err := c.conn.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create %s: %w", historyTable, err)
	}
	return nil
}

// ArchiveSnapshot appends one row per player in a single batch
func (c *Client) ArchiveSnapshot(ctx context.Context, ds *models.Dataset) error {
	batch, err := c.conn.PrepareBatch(ctx, "INSERT INTO "+historyTable)
	if err != nil {
		return fmt.Errorf("failed to prepare batch: %w", err)
	}

	recordedAt := time.Now().UTC()
	for _, tier := range ds.Tiers() {
		for _, rec := range ds.TierGroups[tier] {
			err := batch.Append(
				recordedAt,
				ds.GeneratedAt,
				rec.Slug,
				rec.Name,
				nullableInt32(rec.Tier),
				rec.Changed,
				nullableDecimal(rec.Prices[models.CardLimited]),
				nullableDecimal(rec.Prices[models.CardRare]),
				nullableDecimal(rec.Prices[models.CardSuperRare]),
			)
			if err != nil {
				batch.Abort()
				return fmt.Errorf("failed to append %s: %w", rec.Slug, err)
			}
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send batch: %w", err)
	}
	return nil
}

// PriceHistory returns the newest observations for slug, newest first
func (c *Client) PriceHistory(ctx context.Context, slug string, limit int) ([]models.PricePoint, error) {
	rows, err := c.conn.Query(ctx, `
		SELECT recorded_at, generated_at, tier, changed, price_limited, price_rare, price_super_rare
		FROM `+historyTable+`
		WHERE slug = ?
		ORDER BY recorded_at DESC
		LIMIT ?
	`, slug, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var points []models.PricePoint
	for rows.Next() {
		var (
			p                     = models.PricePoint{Slug: slug}
			tier                  *int32
			limited, rare, superR *decimal.Decimal
		)
		if err := rows.Scan(&p.RecordedAt, &p.GeneratedAt, &tier, &p.Changed, &limited, &rare, &superR); err != nil {
			return nil, err
		}
		if tier != nil {
			n := int(*tier)
			p.Tier = &n
		}
		p.Prices = map[models.CardType]decimal.NullDecimal{
			models.CardLimited:   fromNullable(limited),
			models.CardRare:      fromNullable(rare),
			models.CardSuperRare: fromNullable(superR),
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

// Close closes the ClickHouse connection
func (c *Client) Close() error {
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

func nullableInt32(n *int) *int32 {
	if n == nil {
		return nil
	}
	v := int32(*n)
	return &v
}

func nullableDecimal(d decimal.NullDecimal) *decimal.Decimal {
	if !d.Valid {
		return nil
	}
	v := d.Decimal
	return &v
}

func fromNullable(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(*d)
}
