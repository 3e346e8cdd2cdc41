package domain

import "strings"

// Palette is the set of colors a theme defines. Border is optional and
// stays empty when the theme has none.
type Palette struct {
	Title      string `json:"title_color"`
	Icon       string `json:"icon_color"`
	Text       string `json:"text_color"`
	Background string `json:"bg_color"`
	Border     string `json:"border_color,omitempty"`
}

// AuthoredColor is the color used for the authored series.
func (p Palette) AuthoredColor() string { return p.Title }

// ReviewedColor is the color used for the reviewed series.
func (p Palette) ReviewedColor() string { return p.Icon }

// WithOverrides replaces the series colors when non-empty values are given.
// The leading '#' is optional.
func (p Palette) WithOverrides(authored, reviewed string) Palette {
	if authored != "" {
		p.Title = hexColor(authored)
	}
	if reviewed != "" {
		p.Icon = hexColor(reviewed)
	}
	return p
}

func hexColor(v string) string {
	return "#" + strings.TrimPrefix(strings.TrimSpace(v), "#")
}

// Chart is everything a renderer needs for one target.
type Chart struct {
	Target  Target
	Series  MergedSeries
	Palette Palette
}
