package table

import (
	"strings"

	"github.com/Billy-Davies-2/seal-tracker/internal/models"
)

// Filter applies tier selection, search and the changed-only flag, in that
// order. Output keeps the source insertion order.
func Filter(ds *models.Dataset, vs models.ViewState) []models.PlayerRecord {
	if ds == nil {
		return []models.PlayerRecord{}
	}

	records := SelectTier(ds, vs.Tier)
	records = Search(records, vs.Search)
	if vs.ChangedOnly {
		records = ChangedOnly(records)
	}
	return records
}

// SelectTier returns one tier group, or every group in ascending tier order.
// A tier that is not in the dataset yields an empty slice.
func SelectTier(ds *models.Dataset, sel models.TierSelection) []models.PlayerRecord {
	if !sel.All {
		group := ds.TierGroups[sel.Tier]
		out := make([]models.PlayerRecord, len(group))
		copy(out, group)
		return out
	}

	out := make([]models.PlayerRecord, 0, ds.Len())
	for _, tier := range ds.Tiers() {
		out = append(out, ds.TierGroups[tier]...)
	}
	return out
}

// Search keeps records whose lower-cased name contains text. text is
// expected to be lower-cased already; empty text keeps everything.
func Search(records []models.PlayerRecord, text string) []models.PlayerRecord {
	if text == "" {
		return records
	}
	out := make([]models.PlayerRecord, 0, len(records))
	for _, p := range records {
		if strings.Contains(strings.ToLower(p.Name), text) {
			out = append(out, p)
		}
	}
	return out
}

// ChangedOnly keeps records whose tier changed in the last refresh
func ChangedOnly(records []models.PlayerRecord) []models.PlayerRecord {
	out := make([]models.PlayerRecord, 0, len(records))
	for _, p := range records {
		if p.Changed {
			out = append(out, p)
		}
	}
	return out
}
