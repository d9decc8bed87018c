package web

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/Billy-Davies-2/seal-tracker/internal/models"
)

// ChartConfig holds the look of the price history chart
type ChartConfig struct {
	Width  string
	Height string
	Theme  string
	Smooth bool
	Colors []string
}

// DefaultChartConfig returns default chart configuration
func DefaultChartConfig() ChartConfig {
	return ChartConfig{
		Width:  "900px",
		Height: "500px",
		Theme:  "light",
		Smooth: false,
		Colors: []string{"#5470C6", "#91CC75", "#EE6666"},
	}
}

// missing is how echarts marks a gap in a line series
const missing = "-"

// RenderPriceChart writes an interactive line chart of one player's archived
// prices, one series per card edition. points are newest first, as the
// archive returns them.
func RenderPriceChart(w io.Writer, name string, points []models.PricePoint, config ChartConfig) error {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: name + " price history",
			Width:     config.Width,
			Height:    config.Height,
			Theme:     config.Theme,
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    name,
			Subtitle: fmt.Sprintf("%d archived refreshes, EUR", len(points)),
		}),
		charts.WithTooltipOpts(opts.Tooltip{
			Show:    opts.Bool(true),
			Trigger: "axis",
		}),
		charts.WithLegendOpts(opts.Legend{
			Show: opts.Bool(true),
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Name: "EUR",
		}),
		charts.WithColorsOpts(opts.Colors(config.Colors)),
	)

	labels := make([]string, len(points))
	series := make(map[models.CardType][]opts.LineData, len(models.CardTypes))
	for i := range points {
		p := points[len(points)-1-i]
		labels[i] = p.RecordedAt.UTC().Format("2006-01-02 15:04")
		for _, ct := range models.CardTypes {
			var value interface{} = missing
			if price := p.Prices[ct]; price.Valid {
				value = price.Decimal.InexactFloat64()
			}
			series[ct] = append(series[ct], opts.LineData{Value: value})
		}
	}

	line.SetXAxis(labels)
	for _, ct := range models.CardTypes {
		line.AddSeries(ct.Label(), series[ct])
	}
	line.SetSeriesOptions(
		charts.WithLineChartOpts(opts.LineChart{
			Smooth: opts.Bool(config.Smooth),
		}),
		charts.WithLabelOpts(opts.Label{
			Show: opts.Bool(false),
		}),
	)

	if err := line.Render(w); err != nil {
		return fmt.Errorf("failed to render chart: %w", err)
	}
	return nil
}
