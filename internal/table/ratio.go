// Package table is the filter, sort and pagination engine behind the seal
// table. Everything here is pure: it reads a dataset and returns new slices.
package table

import (
	"github.com/shopspring/decimal"

	"github.com/Billy-Davies-2/seal-tracker/internal/models"
)

// StoredRatioPlaces is the rounding applied when ratios are written out
const StoredRatioPlaces = 3

// Ratio returns price per scarcity point. It is null when the price is
// missing or zero, or when the tier is missing or zero. Full precision is
// kept; rounding only happens in StoredRatio and FormatRatio.
func Ratio(price decimal.NullDecimal, tier *int) decimal.NullDecimal {
	if !price.Valid || price.Decimal.IsZero() {
		return decimal.NullDecimal{}
	}
	if tier == nil || *tier == 0 {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(price.Decimal.Div(decimal.NewFromInt(int64(*tier))))
}

// RatioOf returns the record's ratio for a card type, using the eager value
// when normalization computed one.
func RatioOf(rec models.PlayerRecord, ct models.CardType) decimal.NullDecimal {
	if rec.Ratios != nil {
		if r, ok := rec.Ratios[ct]; ok {
			return r
		}
	}
	return Ratio(rec.Prices[ct], rec.Tier)
}

// StoredRatio rounds a ratio for the compact feed
func StoredRatio(r decimal.NullDecimal) decimal.NullDecimal {
	if !r.Valid {
		return r
	}
	return decimal.NewNullDecimal(r.Decimal.Round(StoredRatioPlaces))
}

// WithRatios returns a copy of rec with every ratio filled in
func WithRatios(rec models.PlayerRecord) models.PlayerRecord {
	ratios := make(map[models.CardType]decimal.NullDecimal, len(models.CardTypes))
	for _, ct := range models.CardTypes {
		ratios[ct] = RatioOf(rec, ct)
	}
	rec.Ratios = ratios
	return rec
}
