package theme

import (
	"fmt"
	"log"
	"strings"

	"github.com/naka-gawa/pr-histogram/internal/domain"
)

// Anchors around the theme object literal in github-readme-stats' themes/index.js.
// The upstream file is not a stable contract; if its layout changes, this
// file is the only place that has to follow.
const (
	themesStart = "themes = {"
	themesEnd   = "};"
	blockEnd    = "},"
)

// ParseThemes extracts palettes from the JavaScript source of the theme index.
// Blocks that cannot be read are logged and skipped; a source without the
// anchors fails with domain.ErrThemeFormat.
func ParseThemes(src string, logger *log.Logger) (map[string]domain.Palette, error) {
	_, body, ok := strings.Cut(src, themesStart)
	if !ok {
		return nil, fmt.Errorf("%w: %q not found", domain.ErrThemeFormat, themesStart)
	}
	body, _, ok = strings.Cut(body, themesEnd)
	if !ok {
		return nil, fmt.Errorf("%w: closing %q not found", domain.ErrThemeFormat, themesEnd)
	}

	themes := make(map[string]domain.Palette)
	for _, block := range strings.Split(body, blockEnd) {
		block = stripComments(block)
		if strings.TrimSpace(block) == "" {
			continue
		}
		name, palette, err := parseBlock(block)
		if err != nil {
			logger.Printf("Skipping theme block: %v", err)
			continue
		}
		themes[name] = palette
	}
	return themes, nil
}

func parseBlock(block string) (string, domain.Palette, error) {
	rawName, rest, ok := strings.Cut(block, ":")
	if !ok {
		return "", domain.Palette{}, fmt.Errorf("no theme name in %q", strings.TrimSpace(block))
	}
	name := unquote(rawName)
	if name == "" {
		return "", domain.Palette{}, fmt.Errorf("empty theme name in %q", strings.TrimSpace(block))
	}
	if strings.ContainsAny(name, " \t\n,{}") {
		return "", domain.Palette{}, fmt.Errorf("invalid theme name %q", name)
	}
	rest = strings.TrimSpace(rest)
	if !strings.HasPrefix(rest, "{") {
		return "", domain.Palette{}, fmt.Errorf("theme %q: expected an object, got %q", name, rest)
	}
	rest = strings.TrimSuffix(strings.TrimPrefix(rest, "{"), "}")

	attrs := make(map[string]string)
	for _, line := range strings.Split(rest, "\n") {
		for _, pair := range strings.Split(line, ",") {
			key, value, ok := strings.Cut(pair, ":")
			if !ok {
				continue
			}
			key, value = unquote(key), unquote(value)
			if key == "" || value == "" {
				continue
			}
			attrs[key] = "#" + value
		}
	}

	return name, domain.Palette{
		Title:      attrs["title_color"],
		Icon:       attrs["icon_color"],
		Text:       attrs["text_color"],
		Background: attrs["bg_color"],
		Border:     attrs["border_color"],
	}, nil
}

// stripComments drops "//" comments, whole-line or trailing.
func stripComments(block string) string {
	lines := strings.Split(block, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if i := strings.Index(line, "//"); i >= 0 {
			line = line[:i]
		}
		if strings.TrimSpace(line) != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}

func unquote(s string) string {
	return strings.Trim(strings.TrimSpace(s), `"'`+"`")
}
