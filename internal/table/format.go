package table

import (
	"strconv"

	"github.com/shopspring/decimal"
)

// Placeholder is shown for a missing price or ratio
const Placeholder = "-"

// FormatPrice renders a price with two decimals
func FormatPrice(p decimal.NullDecimal) string {
	if !p.Valid {
		return Placeholder
	}
	return p.Decimal.StringFixed(2)
}

// FormatRatio renders a ratio with three decimals
func FormatRatio(r decimal.NullDecimal) string {
	if !r.Valid {
		return Placeholder
	}
	return r.Decimal.StringFixed(StoredRatioPlaces)
}

// FormatPreviousTier renders the previous tier only when it differs
func FormatPreviousTier(tier, previous *int) string {
	if previous == nil {
		return ""
	}
	if tier != nil && *tier == *previous {
		return ""
	}
	return strconv.Itoa(*previous)
}
