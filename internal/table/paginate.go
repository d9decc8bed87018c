package table

import "github.com/Billy-Davies-2/seal-tracker/internal/models"

// Page is one slice of a sorted result
type Page struct {
	Items       []models.PlayerRecord
	Page        int
	PageSize    int
	TotalPages  int
	TotalCount  int
	PageNumbers []models.PageMarker
}

// TotalPages returns ceil(count/pageSize); zero records means zero pages
func TotalPages(count, pageSize int) int {
	if count <= 0 || pageSize <= 0 {
		return 0
	}
	return (count + pageSize - 1) / pageSize
}

// ClampPage keeps page inside [1, totalPages]; with no pages it is 1
func ClampPage(page, totalPages int) int {
	if page > totalPages {
		page = totalPages
	}
	if page < 1 {
		page = 1
	}
	return page
}

// Paginate slices records into the requested page
func Paginate(records []models.PlayerRecord, page, pageSize int) Page {
	if pageSize < 1 {
		pageSize = models.DefaultPageSize
	}

	total := TotalPages(len(records), pageSize)
	page = ClampPage(page, total)

	start := (page - 1) * pageSize
	end := start + pageSize
	if start > len(records) {
		start = len(records)
	}
	if end > len(records) {
		end = len(records)
	}

	items := make([]models.PlayerRecord, end-start)
	copy(items, records[start:end])

	return Page{
		Items:       items,
		Page:        page,
		PageSize:    pageSize,
		TotalPages:  total,
		TotalCount:  len(records),
		PageNumbers: PageNumbers(page, total),
	}
}

// PageNumbers builds the compressed page list: first and last page always,
// the current page with one neighbour each side, and an ellipsis for gaps.
func PageNumbers(page, totalPages int) []models.PageMarker {
	if totalPages < 1 {
		return []models.PageMarker{}
	}

	out := []models.PageMarker{models.PageNumber(1)}
	if page-1 > 2 {
		out = append(out, models.Ellipsis)
	}

	lo := max(2, page-1)
	hi := min(totalPages-1, page+1)
	for n := lo; n <= hi; n++ {
		out = append(out, models.PageNumber(n))
	}

	if page+1 < totalPages-1 {
		out = append(out, models.Ellipsis)
	}
	if totalPages > 1 {
		out = append(out, models.PageNumber(totalPages))
	}
	return out
}
