package table

import (
	"strings"

	"github.com/Billy-Davies-2/seal-tracker/internal/models"
)

// Recompute runs filter, sort and paginate for one view. Ratios are filled
// in on the returned page so eager and lazy datasets render the same.
func Recompute(ds *models.Dataset, vs models.ViewState) models.ViewResult {
	vs.Search = strings.ToLower(strings.TrimSpace(vs.Search))

	filtered := Filter(ds, vs)
	sorted := Sort(filtered, KeyFor(vs))
	page := Paginate(sorted, vs.Page, vs.PageSize)

	for i := range page.Items {
		page.Items[i] = WithRatios(page.Items[i])
	}

	vs.Page = page.Page
	vs.PageSize = page.PageSize

	result := models.ViewResult{
		Items:       page.Items,
		Page:        page.Page,
		PageSize:    page.PageSize,
		TotalPages:  page.TotalPages,
		TotalCount:  page.TotalCount,
		PageNumbers: page.PageNumbers,
		View:        vs,
	}
	if ds != nil {
		result.GeneratedAt = ds.GeneratedAt
	}
	return result
}
