// Package web renders the server-side seal table page.
package web

import (
	"embed"
	"html/template"
	"io"
	"net/url"
	"strconv"

	"github.com/Billy-Davies-2/seal-tracker/internal/models"
	"github.com/Billy-Davies-2/seal-tracker/internal/table"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// Row is one rendered table line
type Row struct {
	Name         string
	URL          string
	ChartURL     string
	Tier         string
	PreviousTier string
	Changed      bool
	Price        string
	Ratio        string
}

// PageLink is one entry of the pager; Href is empty for the ellipsis and
// the current page
type PageLink struct {
	Label   string
	Href    string
	Current bool
}

// Option is one entry of a select control
type Option struct {
	Value    string
	Label    string
	Selected bool
}

// PageData is everything the table template needs
type PageData struct {
	View          models.ViewState
	Rows          []Row
	Pages         []PageLink
	Prev          string
	Next          string
	TotalCount    int
	TotalPages    int
	CardLabel     string
	TierOptions   []Option
	CardOptions   []Option
	Summary       models.Summary
	GeneratedAt   string
	ChangedFilter bool
}

// NewPageData formats a query result for the template
func NewPageData(result models.ViewResult, summary models.Summary) PageData {
	vs := result.View
	data := PageData{
		View:          vs,
		TotalCount:    result.TotalCount,
		TotalPages:    result.TotalPages,
		CardLabel:     vs.CardType.Label(),
		Summary:       summary,
		ChangedFilter: vs.ChangedOnly,
		Rows:          make([]Row, 0, len(result.Items)),
	}
	if !result.GeneratedAt.IsZero() {
		data.GeneratedAt = result.GeneratedAt.UTC().Format("2006-01-02 15:04 MST")
	}

	for _, rec := range result.Items {
		data.Rows = append(data.Rows, Row{
			Name:         rec.Name,
			URL:          rec.URL(),
			ChartURL:     "/players/" + url.PathEscape(rec.Slug) + "/chart",
			Tier:         formatTier(rec.Tier),
			PreviousTier: table.FormatPreviousTier(rec.Tier, rec.PreviousTier),
			Changed:      rec.Changed,
			Price:        table.FormatPrice(rec.Price(vs.CardType)),
			Ratio:        table.FormatRatio(table.RatioOf(rec, vs.CardType)),
		})
	}

	for _, marker := range result.PageNumbers {
		link := PageLink{Label: marker.String()}
		switch {
		case marker.Ellipsis:
		case marker.Number == result.Page:
			link.Current = true
		default:
			link.Href = pageHref(vs, marker.Number)
		}
		data.Pages = append(data.Pages, link)
	}
	if result.Page > 1 {
		data.Prev = pageHref(vs, result.Page-1)
	}
	if result.Page < result.TotalPages {
		data.Next = pageHref(vs, result.Page+1)
	}

	data.TierOptions = append(data.TierOptions, Option{Value: "all", Label: "All tiers", Selected: vs.Tier.All})
	for _, tier := range summary.Tiers {
		data.TierOptions = append(data.TierOptions, Option{
			Value:    strconv.Itoa(tier),
			Label:    strconv.Itoa(tier) + " seal",
			Selected: !vs.Tier.All && vs.Tier.Tier == tier,
		})
	}
	for _, ct := range models.CardTypes {
		data.CardOptions = append(data.CardOptions, Option{
			Value:    string(ct),
			Label:    ct.Label(),
			Selected: ct == vs.CardType,
		})
	}
	return data
}

// Render writes the table page
func Render(w io.Writer, data PageData) error {
	return templates.ExecuteTemplate(w, "table.html", data)
}

func formatTier(tier *int) string {
	if tier == nil {
		return table.Placeholder
	}
	return strconv.Itoa(*tier)
}

func pageHref(vs models.ViewState, page int) string {
	vs.Page = page
	return "/?" + vs.Query().Encode()
}
