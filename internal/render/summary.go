package render

import (
	"github.com/montanaflynn/stats"

	"github.com/naka-gawa/pr-histogram/internal/domain"
)

// Summary holds per-series figures shown next to the chart.
type Summary struct {
	TotalAuthored int
	TotalReviewed int
	MaxAuthored   int
	MaxReviewed   int
	MeanAuthored  float64
	MeanReviewed  float64
}

// Max is the larger of the two series maxima; it sets the chart's scale.
func (s Summary) Max() int {
	if s.MaxAuthored > s.MaxReviewed {
		return s.MaxAuthored
	}
	return s.MaxReviewed
}

// Summarize computes totals, maxima and monthly means. An empty series
// yields all zeros.
func Summarize(series domain.MergedSeries) Summary {
	authored := stats.LoadRawData(series.AuthoredValues())
	reviewed := stats.LoadRawData(series.ReviewedValues())
	return Summary{
		TotalAuthored: int(orZero(authored.Sum())),
		TotalReviewed: int(orZero(reviewed.Sum())),
		MaxAuthored:   int(orZero(authored.Max())),
		MaxReviewed:   int(orZero(reviewed.Max())),
		MeanAuthored:  orZero(authored.Mean()),
		MeanReviewed:  orZero(reviewed.Mean()),
	}
}

// orZero maps stats.EmptyInputErr (and any other failure) to 0.
func orZero(v float64, err error) float64 {
	if err != nil {
		return 0
	}
	return v
}
