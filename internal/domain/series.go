package domain

import (
	"fmt"
	"sort"
	"time"
)

const (
	monthLayout = "2006-01"
	// GitHub returns createdAt either as UTC ("Z") or with a numeric offset.
	utcLayout    = "2006-01-02T15:04:05Z"
	offsetLayout = "2006-01-02T15:04:05-07:00"
)

// ActivityRecord is one pull request returned by a search.
type ActivityRecord struct {
	CreatedAt string
}

// MonthPoint is one month of the merged series.
type MonthPoint struct {
	Month    string `json:"month"`
	Authored int    `json:"authored"`
	Reviewed int    `json:"reviewed"`
}

// MergedSeries holds authored and reviewed counts per month in calendar order.
type MergedSeries struct {
	Points []MonthPoint `json:"points"`
}

// Months returns the month keys in order.
func (s MergedSeries) Months() []string {
	months := make([]string, len(s.Points))
	for i, p := range s.Points {
		months[i] = p.Month
	}
	return months
}

// AuthoredValues returns the authored counts aligned with Months.
func (s MergedSeries) AuthoredValues() []int {
	values := make([]int, len(s.Points))
	for i, p := range s.Points {
		values[i] = p.Authored
	}
	return values
}

// ReviewedValues returns the reviewed counts aligned with Months.
func (s MergedSeries) ReviewedValues() []int {
	values := make([]int, len(s.Points))
	for i, p := range s.Points {
		values[i] = p.Reviewed
	}
	return values
}

// MonthKey normalizes a createdAt timestamp to its YYYY-MM key. The month is
// taken in the timestamp's own offset.
func MonthKey(timestamp string) (string, error) {
	var layout string
	switch len(timestamp) {
	case len(utcLayout):
		layout = utcLayout
	case len(offsetLayout):
		layout = offsetLayout
	default:
		return "", fmt.Errorf("%w: %q", ErrTimestampParse, timestamp)
	}
	t, err := time.Parse(layout, timestamp)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %v", ErrTimestampParse, timestamp, err)
	}
	return t.Format(monthLayout), nil
}

// CountByMonth buckets records by month. An empty input yields an empty map.
func CountByMonth(records []ActivityRecord) (map[string]int, error) {
	counts := make(map[string]int)
	for _, r := range records {
		key, err := MonthKey(r.CreatedAt)
		if err != nil {
			return nil, err
		}
		counts[key]++
	}
	return counts, nil
}

// MergeSeries combines two bucket sets over the union of their months. The
// side without data for a month gets zero.
func MergeSeries(authored, reviewed map[string]int) MergedSeries {
	keys := make([]string, 0, len(authored)+len(reviewed))
	for month := range authored {
		keys = append(keys, month)
	}
	for month := range reviewed {
		if _, ok := authored[month]; !ok {
			keys = append(keys, month)
		}
	}
	// Zero-padded YYYY-MM sorts lexically in calendar order.
	sort.Strings(keys)

	points := make([]MonthPoint, 0, len(keys))
	for _, month := range keys {
		points = append(points, MonthPoint{
			Month:    month,
			Authored: authored[month],
			Reviewed: reviewed[month],
		})
	}
	return MergedSeries{Points: points}
}
