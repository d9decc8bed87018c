package source

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Billy-Davies-2/seal-tracker/internal/models"
	"github.com/Billy-Davies-2/seal-tracker/internal/table"
)

// Format selects the key names used when writing a feed
type Format string

const (
	// FormatVerbose uses the mirror's key names and keeps nulls
	FormatVerbose Format = "verbose"
	// FormatCompact uses short keys, drops nulls and stores rounded ratios
	FormatCompact Format = "compact"
)

// ParseFormat accepts "verbose", "compact" or empty for verbose
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case "", FormatVerbose:
		return FormatVerbose, nil
	case FormatCompact:
		return FormatCompact, nil
	}
	return "", fmt.Errorf("unknown feed format %q", s)
}

var jsonNull = json.RawMessage("null")

// ToRaw converts a dataset back into the feed shape
func ToRaw(ds *models.Dataset, format Format) (*models.RawDataset, error) {
	raw := &models.RawDataset{
		Summary: make(map[string]json.RawMessage, len(ds.SummaryCounts)),
		Players: make(map[string][]json.RawMessage, len(ds.TierGroups)),
	}
	if !ds.GeneratedAt.IsZero() {
		raw.GeneratedAt = ds.GeneratedAt.UTC().Format(time.RFC3339)
	}
	for tier, count := range ds.SummaryCounts {
		raw.Summary[groupKey(tier)+"_count"] = json.RawMessage(strconv.Itoa(count))
	}

	for _, tier := range ds.Tiers() {
		group := ds.TierGroups[tier]
		rows := make([]json.RawMessage, 0, len(group))
		for _, rec := range group {
			var rp models.RawPlayer
			if format == FormatCompact {
				rp = compactPlayer(rec)
			} else {
				rp = verbosePlayer(rec)
			}
			b, err := json.Marshal(rp)
			if err != nil {
				return nil, fmt.Errorf("encode %s: %w", rec.Slug, err)
			}
			rows = append(rows, b)
		}
		raw.Players[groupKey(tier)] = rows
	}
	return raw, nil
}

// Encode writes ds to w in the given format
func Encode(w io.Writer, ds *models.Dataset, format Format) error {
	raw, err := ToRaw(ds, format)
	if err != nil {
		return err
	}
	return json.NewEncoder(w).Encode(raw)
}

func verbosePlayer(rec models.PlayerRecord) models.RawPlayer {
	changed := rec.Changed
	return models.RawPlayer{
		Name:           rec.Name,
		Slug:           rec.Slug,
		Seal:           intValue(rec.Tier, jsonNull),
		PreviousSeal:   intValue(rec.PreviousTier, jsonNull),
		SealChanged:    &changed,
		PriceLimited:   decimalValue(rec.Prices[models.CardLimited], jsonNull),
		PriceRare:      decimalValue(rec.Prices[models.CardRare], jsonNull),
		PriceSuperRare: decimalValue(rec.Prices[models.CardSuperRare], jsonNull),
	}
}

func compactPlayer(rec models.PlayerRecord) models.RawPlayer {
	changed := rec.Changed
	return models.RawPlayer{
		ShortName:           rec.Name,
		ShortSlug:           rec.Slug,
		ShortSeal:           intValue(rec.Tier, nil),
		ShortPreviousSeal:   intValue(rec.PreviousTier, nil),
		ShortChanged:        &changed,
		ShortPriceLimited:   decimalValue(rec.Prices[models.CardLimited], nil),
		ShortPriceRare:      decimalValue(rec.Prices[models.CardRare], nil),
		ShortPriceSuperRare: decimalValue(rec.Prices[models.CardSuperRare], nil),
		ShortRatioLimited:   decimalValue(table.StoredRatio(table.RatioOf(rec, models.CardLimited)), nil),
		ShortRatioRare:      decimalValue(table.StoredRatio(table.RatioOf(rec, models.CardRare)), nil),
		ShortRatioSuperRare: decimalValue(table.StoredRatio(table.RatioOf(rec, models.CardSuperRare)), nil),
	}
}

func groupKey(tier int) string {
	return strconv.Itoa(tier) + "_seal"
}

func intValue(n *int, missing json.RawMessage) json.RawMessage {
	if n == nil {
		return missing
	}
	return json.RawMessage(strconv.Itoa(*n))
}

func decimalValue(d decimal.NullDecimal, missing json.RawMessage) json.RawMessage {
	if !d.Valid {
		return missing
	}
	return json.RawMessage(d.Decimal.String())
}
