package dal

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Billy-Davies-2/seal-tracker/internal/models"
)

func testDataset(name string, changed bool) *models.Dataset {
	tier := 200
	return &models.Dataset{
		GeneratedAt: time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC),
		TierGroups: map[int][]models.PlayerRecord{
			200: {{
				Slug:    strings.ToLower(name),
				Name:    name,
				Tier:    &tier,
				Changed: changed,
				Prices: map[models.CardType]decimal.NullDecimal{
					models.CardLimited: decimal.NewNullDecimal(decimal.RequireFromString("12.34")),
					models.CardRare:    {},
				},
			}},
		},
		SummaryCounts: map[int]int{200: 1},
	}
}

// exerciseSnapshotDAL runs the behaviour every store must share
func exerciseSnapshotDAL(t *testing.T, dal SnapshotDAL) {
	t.Helper()

	if _, _, err := dal.LatestSnapshot(); !errors.Is(err, ErrNoSnapshot) {
		t.Fatalf("empty store: expected ErrNoSnapshot, got %v", err)
	}

	first, err := dal.SaveSnapshot(testDataset("First", false))
	if err != nil {
		t.Fatalf("SaveSnapshot() failed: %v", err)
	}
	if first.Players != 1 || first.Changed != 0 {
		t.Errorf("unexpected snapshot info: %+v", first)
	}

	// Stored-at ordering needs distinct timestamps
	time.Sleep(2 * time.Millisecond)

	second, err := dal.SaveSnapshot(testDataset("Second", true))
	if err != nil {
		t.Fatalf("SaveSnapshot() failed: %v", err)
	}

	ds, info, err := dal.LatestSnapshot()
	if err != nil {
		t.Fatalf("LatestSnapshot() failed: %v", err)
	}
	if info.ID != second.ID || info.Changed != 1 {
		t.Errorf("expected latest snapshot %s, got %+v", second.ID, info)
	}
	rec, ok := ds.FindBySlug("second")
	if !ok {
		t.Fatal("latest snapshot should contain the second dataset")
	}
	if p := rec.Prices[models.CardLimited]; !p.Valid || !p.Decimal.Equal(decimal.RequireFromString("12.34")) {
		t.Errorf("limited price not preserved: %v", p)
	}
	if rec.Prices[models.CardRare].Valid {
		t.Error("null rare price should stay null")
	}
	if !ds.GeneratedAt.Equal(time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)) {
		t.Errorf("generated at not preserved: %v", ds.GeneratedAt)
	}

	list, err := dal.ListSnapshots(10)
	if err != nil {
		t.Fatalf("ListSnapshots() failed: %v", err)
	}
	if len(list) != 2 || list[0].ID != second.ID || list[1].ID != first.ID {
		t.Errorf("expected newest first, got %+v", list)
	}

	if list, _ := dal.ListSnapshots(1); len(list) != 1 {
		t.Errorf("limit not applied, got %d snapshots", len(list))
	}

	if err := dal.Reset(); err != nil {
		t.Fatalf("Reset() failed: %v", err)
	}
	if _, _, err := dal.LatestSnapshot(); !errors.Is(err, ErrNoSnapshot) {
		t.Errorf("after reset: expected ErrNoSnapshot, got %v", err)
	}
}

func TestMemoryDAL(t *testing.T) {
	exerciseSnapshotDAL(t, NewMemoryDAL())
}

func TestMemoryDALRetention(t *testing.T) {
	dal := NewMemoryDAL()
	dal.retention = 3
	for i := 0; i < 5; i++ {
		if _, err := dal.SaveSnapshot(testDataset("P", false)); err != nil {
			t.Fatal(err)
		}
	}
	list, _ := dal.ListSnapshots(0)
	if len(list) != 3 {
		t.Errorf("expected 3 retained snapshots, got %d", len(list))
	}
}

func TestMemoryDALRejectsNil(t *testing.T) {
	if _, err := NewMemoryDAL().SaveSnapshot(nil); err == nil {
		t.Error("expected error for nil dataset")
	}
}

func TestSQLiteDAL(t *testing.T) {
	dal, err := NewSQLiteDAL(filepath.Join(t.TempDir(), "snapshots.sqlite"))
	if err != nil {
		if strings.Contains(err.Error(), "CGO_ENABLED=0") {
			t.Skip("go-sqlite3 needs cgo")
		}
		t.Fatalf("NewSQLiteDAL() failed: %v", err)
	}
	defer dal.Close()

	exerciseSnapshotDAL(t, dal)
}
