package render

import (
	"embed"
	"fmt"
	"io"
	"math"
	"text/template"

	"github.com/naka-gawa/pr-histogram/internal/domain"
)

//go:embed templates/histogram.svg.tmpl
var templateFS embed.FS

const (
	svgWidth    = 800
	svgHeight   = 420
	plotLeft    = 60
	plotRight   = svgWidth - 30
	plotTop     = 90
	plotBottom  = svgHeight - 60
	maxBarWidth = 28.0
	// Month labels are thinned out so at most this many are drawn.
	maxLabels = 12
	tickCount = 4
)

// SVGRenderer draws a grouped bar histogram as a standalone SVG document.
type SVGRenderer struct {
	tmpl *template.Template
}

// NewSVGRenderer parses the embedded template.
func NewSVGRenderer() *SVGRenderer {
	tmpl := template.Must(template.New("histogram.svg.tmpl").
		Funcs(template.FuncMap{"add": func(a, b int) int { return a + b }}).
		ParseFS(templateFS, "templates/histogram.svg.tmpl"))
	return &SVGRenderer{tmpl: tmpl}
}

func (r *SVGRenderer) Extension() string { return "svg" }

func (r *SVGRenderer) Render(w io.Writer, chart domain.Chart) error {
	if err := r.tmpl.Execute(w, newSVGData(chart)); err != nil {
		return fmt.Errorf("failed to execute svg template: %w", err)
	}
	return nil
}

type svgBar struct {
	X, Y, W, H float64
	Color      string
	Month      string
	Value      int
	Kind       string
}

type svgLabel struct {
	X    float64
	Text string
}

type svgTick struct {
	Y     float64
	Label int
}

type svgData struct {
	Width, Height           int
	InnerWidth, InnerHeight int
	PlotLeft, PlotRight     int
	PlotBottom, LabelY      int
	LegendX                 int
	CenterX, CenterY        int
	Title, Subtitle         string
	Palette                 domain.Palette
	Summary                 Summary
	Bars                    []svgBar
	Labels                  []svgLabel
	Ticks                   []svgTick
}

func newSVGData(chart domain.Chart) svgData {
	summary := Summarize(chart.Series)
	palette := chart.Palette
	data := svgData{
		Width:       svgWidth,
		Height:      svgHeight,
		InnerWidth:  svgWidth - 1,
		InnerHeight: svgHeight - 1,
		PlotLeft:    plotLeft,
		PlotRight:   plotRight,
		PlotBottom:  plotBottom,
		LabelY:      plotBottom + 20,
		LegendX:     plotRight - 130,
		CenterX:     (plotLeft + plotRight) / 2,
		CenterY:     (plotTop + plotBottom) / 2,
		Title:       fmt.Sprintf("%s's pull requests in %s", chart.Target.Username, chart.Target.FullName()),
		Subtitle:    subtitle(chart.Series, summary),
		Palette:     palette,
		Summary:     summary,
	}

	points := chart.Series.Points
	if len(points) == 0 {
		return data
	}

	scale := niceCeil(summary.Max())
	plotHeight := float64(plotBottom - plotTop)
	for i := 0; i <= tickCount; i++ {
		value := scale * i / tickCount
		data.Ticks = append(data.Ticks, svgTick{
			Y:     plotBottom - plotHeight*float64(value)/float64(scale),
			Label: value,
		})
	}

	groupWidth := float64(plotRight-plotLeft) / float64(len(points))
	barWidth := math.Min(groupWidth*0.4, maxBarWidth)
	height := func(v int) float64 { return plotHeight * float64(v) / float64(scale) }
	labelStep := (len(points) + maxLabels - 1) / maxLabels

	for i, p := range points {
		center := plotLeft + groupWidth*(float64(i)+0.5)
		ah, rh := height(p.Authored), height(p.Reviewed)
		data.Bars = append(data.Bars,
			svgBar{X: center - barWidth, Y: plotBottom - ah, W: barWidth, H: ah, Color: palette.AuthoredColor(), Month: p.Month, Value: p.Authored, Kind: "authored"},
			svgBar{X: center, Y: plotBottom - rh, W: barWidth, H: rh, Color: palette.ReviewedColor(), Month: p.Month, Value: p.Reviewed, Kind: "reviewed"},
		)
		if i%labelStep == 0 {
			data.Labels = append(data.Labels, svgLabel{X: center, Text: p.Month})
		}
	}
	return data
}

func subtitle(series domain.MergedSeries, s Summary) string {
	if len(series.Points) == 0 {
		return "No activity found"
	}
	months := series.Months()
	return fmt.Sprintf("%s to %s · %.1f authored / %.1f reviewed per month",
		months[0], months[len(months)-1], s.MeanAuthored, s.MeanReviewed)
}

// niceCeil rounds v up to a value that divides evenly into tickCount steps.
func niceCeil(v int) int {
	if v <= 0 {
		return tickCount
	}
	return (v + tickCount - 1) / tickCount * tickCount
}
