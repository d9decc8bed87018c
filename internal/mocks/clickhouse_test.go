package mocks

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Billy-Davies-2/seal-tracker/internal/models"
)

func snapshot(price string) *models.Dataset {
	tier := 200
	return &models.Dataset{
		GeneratedAt: time.Now().UTC(),
		TierGroups: map[int][]models.PlayerRecord{
			200: {{
				Slug: "lamine-yamal-nasraoui-ebana",
				Name: "Lamine Yamal",
				Tier: &tier,
				Prices: map[models.CardType]decimal.NullDecimal{
					models.CardLimited: decimal.NewNullDecimal(decimal.RequireFromString(price)),
				},
			}},
		},
	}
}

func TestMockClickHouseHistory(t *testing.T) {
	ctx := context.Background()
	ch := NewMockClickHouseClient()
	defer ch.Close()

	for _, price := range []string{"10", "11", "12"} {
		if err := ch.ArchiveSnapshot(ctx, snapshot(price)); err != nil {
			t.Fatalf("ArchiveSnapshot() failed: %v", err)
		}
	}

	points, err := ch.PriceHistory(ctx, "lamine-yamal-nasraoui-ebana", 2)
	if err != nil {
		t.Fatalf("PriceHistory() failed: %v", err)
	}
	if len(points) != 2 {
		t.Fatalf("expected 2 points, got %d", len(points))
	}
	if p := points[0].Prices[models.CardLimited]; !p.Decimal.Equal(decimal.NewFromInt(12)) {
		t.Errorf("expected newest price 12 first, got %s", p.Decimal)
	}
	if points[0].Prices[models.CardRare].Valid {
		t.Error("missing rare price should stay null")
	}

	if points, _ := ch.PriceHistory(ctx, "unknown", 10); len(points) != 0 {
		t.Errorf("expected no history for unknown slug, got %d", len(points))
	}
}

func TestMockClickHouseRetention(t *testing.T) {
	ch := NewMockClickHouseClient()
	ch.retention = 2
	for i := 0; i < 5; i++ {
		ch.ArchiveSnapshot(context.Background(), snapshot("1"))
	}
	points, _ := ch.PriceHistory(context.Background(), "lamine-yamal-nasraoui-ebana", 0)
	if len(points) != 2 {
		t.Errorf("expected 2 retained points, got %d", len(points))
	}
}

func TestMockClickHouseCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := NewMockClickHouseClient().ArchiveSnapshot(ctx, snapshot("1")); err == nil {
		t.Error("expected error for cancelled context")
	}
}
