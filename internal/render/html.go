package render

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/naka-gawa/pr-histogram/internal/domain"
)

// HTMLRenderer draws an interactive echarts bar chart page.
type HTMLRenderer struct{}

// NewHTMLRenderer creates an HTMLRenderer.
func NewHTMLRenderer() *HTMLRenderer { return &HTMLRenderer{} }

func (r *HTMLRenderer) Extension() string { return "html" }

func (r *HTMLRenderer) Render(w io.Writer, chart domain.Chart) error {
	summary := Summarize(chart.Series)
	palette := chart.Palette
	title := fmt.Sprintf("%s's pull requests in %s", chart.Target.Username, chart.Target.FullName())

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle:       title,
			BackgroundColor: palette.Background,
		}),
		charts.WithTitleOpts(opts.Title{
			Title:         title,
			Subtitle:      subtitle(chart.Series, summary),
			TitleStyle:    &opts.TextStyle{Color: palette.Title},
			SubtitleStyle: &opts.TextStyle{Color: palette.Text},
		}),
		charts.WithLegendOpts(opts.Legend{
			Show:  true,
			Right: "5%",
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: true, Trigger: "axis"}),
	)

	bar.SetXAxis(chart.Series.Months()).
		AddSeries(fmt.Sprintf("Authored (%d)", summary.TotalAuthored), barData(chart.Series.AuthoredValues()),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: palette.AuthoredColor()})).
		AddSeries(fmt.Sprintf("Reviewed (%d)", summary.TotalReviewed), barData(chart.Series.ReviewedValues()),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: palette.ReviewedColor()}))

	if err := bar.Render(w); err != nil {
		return fmt.Errorf("failed to render html chart: %w", err)
	}
	return nil
}

func barData(values []int) []opts.BarData {
	data := make([]opts.BarData, len(values))
	for i, v := range values {
		data[i] = opts.BarData{Value: v}
	}
	return data
}
