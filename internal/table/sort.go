package table

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/Billy-Davies-2/seal-tracker/internal/models"
)

// SortKey resolves which value a record is ordered by
type SortKey struct {
	Mode      models.SortMode
	CardType  models.CardType
	Direction models.Direction
}

// KeyFor derives the sort key from a view
func KeyFor(vs models.ViewState) SortKey {
	return SortKey{Mode: vs.SortMode, CardType: vs.CardType, Direction: vs.Direction}
}

// Value returns the sort value of rec under this key
func (k SortKey) Value(rec models.PlayerRecord) decimal.NullDecimal {
	if k.Mode == models.SortByRatio {
		return RatioOf(rec, k.CardType)
	}
	return rec.Prices[k.CardType]
}

// Compare orders two values. Nulls go last whatever the direction; ratio
// mode is always ascending.
func (k SortKey) Compare(a, b decimal.NullDecimal) int {
	switch {
	case !a.Valid && !b.Valid:
		return 0
	case !a.Valid:
		return 1
	case !b.Valid:
		return -1
	}

	c := a.Decimal.Cmp(b.Decimal)
	if k.Mode != models.SortByRatio && k.Direction == models.Descending {
		return -c
	}
	return c
}

// Sort returns a stably sorted copy of records
func Sort(records []models.PlayerRecord, key SortKey) []models.PlayerRecord {
	values := make([]decimal.NullDecimal, len(records))
	idx := make([]int, len(records))
	for i, rec := range records {
		values[i] = key.Value(rec)
		idx[i] = i
	}

	sort.SliceStable(idx, func(i, j int) bool {
		return key.Compare(values[idx[i]], values[idx[j]]) < 0
	})

	out := make([]models.PlayerRecord, len(records))
	for i, k := range idx {
		out[i] = records[k]
	}
	return out
}
