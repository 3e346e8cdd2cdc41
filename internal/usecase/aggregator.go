// Package usecase contains the business logic of the application.
package usecase

import (
	"context"
	"fmt"
	"log"

	"github.com/naka-gawa/pr-histogram/internal/domain"
	"github.com/naka-gawa/pr-histogram/internal/gateway"
)

// Aggregator is the use case for building one target's monthly series.
// It orchestrates the fetching and combining of data.
type Aggregator struct {
	fetcher gateway.Fetcher
	logger  *log.Logger
}

// NewAggregator creates a new Aggregator instance.
func NewAggregator(fetcher gateway.Fetcher, logger *log.Logger) *Aggregator {
	return &Aggregator{
		fetcher: fetcher,
		logger:  logger,
	}
}

// Aggregate fetches the authored and reviewed PRs of the target one after the
// other and merges them into a single month-ordered series.
// excludeAuthored drops the user's own PRs from the reviewed side.
func (a *Aggregator) Aggregate(ctx context.Context, target domain.Target, excludeAuthored bool) (domain.MergedSeries, error) {
	a.logger.Printf("Usecase: Starting aggregation for %s...", target)

	authored, err := a.fetcher.FetchAuthoredPRs(ctx, target)
	if err != nil {
		return domain.MergedSeries{}, fmt.Errorf("failed to fetch authored PRs: %w", err)
	}
	reviewed, err := a.fetcher.FetchReviewedPRs(ctx, target, excludeAuthored)
	if err != nil {
		return domain.MergedSeries{}, fmt.Errorf("failed to fetch reviewed PRs: %w", err)
	}
	a.logger.Printf("Usecase: fetched %d authored and %d reviewed PRs.", len(authored), len(reviewed))

	authoredCounts, err := domain.CountByMonth(authored)
	if err != nil {
		return domain.MergedSeries{}, fmt.Errorf("failed to bucket authored PRs: %w", err)
	}
	reviewedCounts, err := domain.CountByMonth(reviewed)
	if err != nil {
		return domain.MergedSeries{}, fmt.Errorf("failed to bucket reviewed PRs: %w", err)
	}

	series := domain.MergeSeries(authoredCounts, reviewedCounts)
	a.logger.Printf("Usecase: Aggregation complete (%d months).", len(series.Points))
	return series, nil
}
