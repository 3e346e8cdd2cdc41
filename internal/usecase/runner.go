package usecase

import (
	"context"
	"errors"
	"log"

	"github.com/naka-gawa/pr-histogram/internal/domain"
)

// ArtifactWriter turns a finished chart into a file and returns its path.
type ArtifactWriter interface {
	Write(chart domain.Chart) (string, error)
}

// Artifact is a successfully written chart.
type Artifact struct {
	Target domain.Target
	Path   string
}

// Report is the outcome of a batch run.
type Report struct {
	Artifacts []Artifact
	Failures  []*domain.TargetError
}

// Err joins all per-target failures, or returns nil when every target succeeded.
func (r Report) Err() error {
	errs := make([]error, len(r.Failures))
	for i, f := range r.Failures {
		errs[i] = f
	}
	return errors.Join(errs...)
}

// Runner processes targets one at a time. A failing target is recorded and
// the remaining targets still run.
type Runner struct {
	aggregator *Aggregator
	writer     ArtifactWriter
	logger     *log.Logger

	// OnResult, when set, is called after each target finishes.
	OnResult func(target domain.Target, path string, err error)
}

// NewRunner creates a new Runner instance.
func NewRunner(aggregator *Aggregator, writer ArtifactWriter, logger *log.Logger) *Runner {
	return &Runner{
		aggregator: aggregator,
		writer:     writer,
		logger:     logger,
	}
}

// Run aggregates and renders every target with the same palette.
func (r *Runner) Run(ctx context.Context, targets []domain.Target, palette domain.Palette, excludeAuthored bool) Report {
	var report Report
	for i, target := range targets {
		r.logger.Printf("Runner: target %d/%d: %s", i+1, len(targets), target)
		path, err := r.runOne(ctx, target, palette, excludeAuthored)
		if err != nil {
			targetErr := &domain.TargetError{Target: target, Err: err}
			report.Failures = append(report.Failures, targetErr)
			r.notify(target, "", targetErr)
			continue
		}
		report.Artifacts = append(report.Artifacts, Artifact{Target: target, Path: path})
		r.notify(target, path, nil)
	}
	return report
}

func (r *Runner) runOne(ctx context.Context, target domain.Target, palette domain.Palette, excludeAuthored bool) (string, error) {
	series, err := r.aggregator.Aggregate(ctx, target, excludeAuthored)
	if err != nil {
		return "", err
	}
	return r.writer.Write(domain.Chart{Target: target, Series: series, Palette: palette})
}

func (r *Runner) notify(target domain.Target, path string, err error) {
	if r.OnResult != nil {
		r.OnResult(target, path, err)
	}
}
