// Package render turns a merged monthly series into a chart artifact.
package render

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/naka-gawa/pr-histogram/internal/domain"
)

// Renderer writes a chart in one output format.
type Renderer interface {
	Render(w io.Writer, chart domain.Chart) error
	// Extension is the file extension without the dot.
	Extension() string
}

// Formats maps a --format value to its renderer.
var Formats = map[string]func() Renderer{
	"svg":  func() Renderer { return NewSVGRenderer() },
	"html": func() Renderer { return NewHTMLRenderer() },
}

// ForFormat returns the renderer registered for format.
func ForFormat(format string) (Renderer, error) {
	newRenderer, ok := Formats[strings.ToLower(format)]
	if !ok {
		return nil, fmt.Errorf("%w: unsupported format %q (use svg or html)", domain.ErrConfig, format)
	}
	return newRenderer(), nil
}

// pathUnsafe turns each segment into a plain file name component.
var pathUnsafe = strings.NewReplacer("..", "_", "/", "_", `\`, "_")

// FileName is the deterministic artifact name for a target. Path separators
// and ".." in a segment are replaced with "_".
func FileName(target domain.Target, ext string) string {
	return fmt.Sprintf("%s-%s-%s-contribution-histogram.%s",
		pathUnsafe.Replace(target.Username), pathUnsafe.Replace(target.Owner), pathUnsafe.Replace(target.Repo), ext)
}

// FileWriter renders charts into files under a directory, overwriting any
// previous artifact for the same target.
type FileWriter struct {
	dir      string
	renderer Renderer
	logger   *log.Logger
}

// NewFileWriter creates a FileWriter.
func NewFileWriter(dir string, renderer Renderer, logger *log.Logger) *FileWriter {
	return &FileWriter{
		dir:      dir,
		renderer: renderer,
		logger:   logger,
	}
}

// Write renders chart and returns the absolute path of the file.
func (fw *FileWriter) Write(chart domain.Chart) (path string, err error) {
	if err := os.MkdirAll(fw.dir, 0o755); err != nil {
		return "", fmt.Errorf("%w: failed to create output directory %s: %v", domain.ErrRender, fw.dir, err)
	}
	dir, err := filepath.Abs(fw.dir)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrRender, err)
	}
	path = filepath.Join(dir, FileName(chart.Target, fw.renderer.Extension()))
	if filepath.Dir(path) != dir {
		return "", fmt.Errorf("%w: %s is outside the output directory %s", domain.ErrRender, path, dir)
	}

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("%w: failed to create %s: %v", domain.ErrRender, path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			path, err = "", fmt.Errorf("%w: failed to close %s: %v", domain.ErrRender, path, cerr)
		}
	}()

	if err := fw.renderer.Render(f, chart); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("%w: %v", domain.ErrRender, err)
	}
	fw.logger.Printf("Render: wrote %s (%d months)", path, len(chart.Series.Points))
	return path, nil
}
