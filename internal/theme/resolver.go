// Package theme resolves named color palettes, from a local cache when
// possible and otherwise from the github-readme-stats theme index.
package theme

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/naka-gawa/pr-histogram/internal/domain"
)

// DefaultTheme is used when no theme is requested.
const DefaultTheme = "default"

// Source returns the raw text of the remote theme definitions.
type Source interface {
	Fetch(ctx context.Context) (string, error)
}

// Resolver looks up palettes by name. The full theme set is loaded once per
// Resolver: from the store when it has an entry, otherwise from the source,
// after which the store is filled so later runs skip the network.
type Resolver struct {
	store  Store
	source Source
	logger *log.Logger

	themes map[string]domain.Palette
}

// NewResolver creates a Resolver.
func NewResolver(store Store, source Source, logger *log.Logger) *Resolver {
	return &Resolver{
		store:  store,
		source: source,
		logger: logger,
	}
}

// Themes returns every known theme.
func (r *Resolver) Themes(ctx context.Context) (map[string]domain.Palette, error) {
	if r.themes != nil {
		return r.themes, nil
	}

	cached, ok, err := r.store.Get()
	if err != nil {
		// An unreadable cache is replaced by a fresh fetch.
		r.logger.Printf("Ignoring theme cache: %v", err)
	}
	if ok {
		r.themes = cached
		return r.themes, nil
	}

	src, err := r.source.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	themes, err := ParseThemes(src, r.logger)
	if err != nil {
		return nil, err
	}
	// An empty set is never cached, so a fixed upstream is picked up next run.
	if len(themes) == 0 {
		return nil, fmt.Errorf("%w: no themes found in theme source", domain.ErrThemeFormat)
	}
	if err := r.store.Put(themes); err != nil {
		return nil, fmt.Errorf("failed to cache themes: %w", err)
	}
	r.logger.Printf("Fetched %d themes", len(themes))
	r.themes = themes
	return r.themes, nil
}

// Resolve returns the palette for name, or domain.ErrUnknownTheme.
func (r *Resolver) Resolve(ctx context.Context, name string) (domain.Palette, error) {
	themes, err := r.Themes(ctx)
	if err != nil {
		return domain.Palette{}, err
	}
	palette, ok := themes[name]
	if !ok {
		return domain.Palette{}, fmt.Errorf("%w: %q, available themes: %s", domain.ErrUnknownTheme, name, strings.Join(Names(themes), ", "))
	}
	return palette, nil
}

// Names returns the theme names in sorted order.
func Names(themes map[string]domain.Palette) []string {
	names := make([]string, 0, len(themes))
	for name := range themes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
