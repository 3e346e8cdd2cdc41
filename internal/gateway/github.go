// Package gateway provides a gateway to the GitHub API,
// abstracting away the underlying REST and GraphQL clients.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/google/go-github/v62/github"
	"github.com/shurcooL/githubv4"
	"golang.org/x/oauth2"

	"github.com/gofri/go-github-ratelimit/github_ratelimit"

	"github.com/naka-gawa/pr-histogram/internal/domain"
)

// ErrPaginationStalled is returned when the server keeps reporting more pages
// without moving its cursor forward, or exceeds the page cap.
var ErrPaginationStalled = errors.New("pagination made no progress")

// Fetcher defines the behavior of a gateway for fetching pull request activity.
type Fetcher interface {
	FetchAuthoredPRs(ctx context.Context, target domain.Target) ([]domain.ActivityRecord, error)
	FetchReviewedPRs(ctx context.Context, target domain.Target, excludeAuthored bool) ([]domain.ActivityRecord, error)
}

// Options tunes the gateway. Zero values fall back to the defaults below.
type Options struct {
	// GraphQLURL and RESTURL point the clients at GitHub Enterprise when set.
	GraphQLURL string
	RESTURL    string

	PageSize     int
	MaxPages     int
	MaxRetries   int
	RetryBackoff time.Duration
	Timeout      time.Duration
}

const (
	DefaultPageSize     = 100
	DefaultMaxPages     = 1000
	DefaultMaxRetries   = 3
	DefaultRetryBackoff = time.Second
	DefaultTimeout      = 20 * time.Second
)

func (o Options) withDefaults() Options {
	if o.PageSize <= 0 {
		o.PageSize = DefaultPageSize
	}
	if o.MaxPages <= 0 {
		o.MaxPages = DefaultMaxPages
	}
	if o.MaxRetries < 0 {
		o.MaxRetries = 0
	}
	if o.RetryBackoff <= 0 {
		o.RetryBackoff = DefaultRetryBackoff
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	return o
}

// GitHubGateway is the concrete implementation of the Fetcher interface.
type GitHubGateway struct {
	restClient    *github.Client
	graphqlClient *githubv4.Client
	logger        *log.Logger
	opts          Options
	sleep         func(ctx context.Context, d time.Duration) error
}

// searchPullRequestsQuery pages through PR search results, keeping only createdAt.
type searchPullRequestsQuery struct {
	Search struct {
		PageInfo struct {
			HasNextPage bool
			EndCursor   githubv4.String
		}
		Edges []struct {
			Node struct {
				PullRequest struct {
					CreatedAt string
				} `graphql:"... on PullRequest"`
			}
		}
	} `graphql:"search(query: $query, type: ISSUE, first: $pageSize, after: $cursor)"`
}

// NewGitHubGateway is a constructor that creates a new instance of GitHubGateway.
func NewGitHubGateway(token string, opts Options, logger *log.Logger) (*GitHubGateway, error) {
	opts = opts.withDefaults()
	rateLimitWaiter, err := github_ratelimit.NewRateLimitWaiter(nil, github_ratelimit.WithSingleSleepLimit(1*time.Hour, nil))
	if err != nil {
		return nil, fmt.Errorf("failed to create rate limit waiter: %w", err)
	}
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	// Per-request timeouts are context deadlines set in queryWithRetry and
	// ThemeSource.Fetch, not http.Client.Timeout.
	httpClient := &http.Client{
		Transport: &oauth2.Transport{
			Base:   &statusRecorder{base: rateLimitWaiter},
			Source: ts,
		},
	}

	restClient := github.NewClient(httpClient)
	if opts.RESTURL != "" {
		restClient, err = restClient.WithEnterpriseURLs(opts.RESTURL, opts.RESTURL)
		if err != nil {
			return nil, fmt.Errorf("failed to configure REST API URL: %w", err)
		}
	}
	graphqlClient := githubv4.NewClient(httpClient)
	if opts.GraphQLURL != "" {
		graphqlClient = githubv4.NewEnterpriseClient(opts.GraphQLURL, httpClient)
	}

	return newGateway(restClient, graphqlClient, opts, logger), nil
}

func newGateway(restClient *github.Client, graphqlClient *githubv4.Client, opts Options, logger *log.Logger) *GitHubGateway {
	return &GitHubGateway{
		restClient:    restClient,
		graphqlClient: graphqlClient,
		logger:        logger,
		opts:          opts.withDefaults(),
		sleep:         sleepContext,
	}
}

// AuthoredQuery is the search predicate for PRs the user opened in the repository.
func AuthoredQuery(target domain.Target) string {
	return fmt.Sprintf("repo:%s is:pr author:%s", target.FullName(), target.Username)
}

// ReviewedQuery is the search predicate for PRs the user reviewed in the repository.
func ReviewedQuery(target domain.Target, excludeAuthored bool) string {
	query := fmt.Sprintf("repo:%s is:pr reviewed-by:%s", target.FullName(), target.Username)
	if excludeAuthored {
		query += fmt.Sprintf(" -author:%s", target.Username)
	}
	return query
}

func (g *GitHubGateway) FetchAuthoredPRs(ctx context.Context, target domain.Target) ([]domain.ActivityRecord, error) {
	g.logger.Printf("[1/2] Fetching PRs authored by %s in %s...", target.Username, target.FullName())
	return g.SearchPullRequests(ctx, AuthoredQuery(target))
}

func (g *GitHubGateway) FetchReviewedPRs(ctx context.Context, target domain.Target, excludeAuthored bool) ([]domain.ActivityRecord, error) {
	g.logger.Printf("[2/2] Fetching PRs reviewed by %s in %s...", target.Username, target.FullName())
	return g.SearchPullRequests(ctx, ReviewedQuery(target, excludeAuthored))
}

// SearchPullRequests follows the search cursor until the server reports no
// further pages. Any failed page abandons the whole result.
func (g *GitHubGateway) SearchPullRequests(ctx context.Context, query string) ([]domain.ActivityRecord, error) {
	variables := map[string]interface{}{
		"query":    githubv4.String(query),
		"pageSize": githubv4.Int(g.opts.PageSize),
		"cursor":   (*githubv4.String)(nil),
	}
	var records []domain.ActivityRecord
	var lastCursor githubv4.String
	for page := 1; ; page++ {
		var q searchPullRequestsQuery
		if err := g.queryWithRetry(ctx, &q, variables); err != nil {
			return nil, fmt.Errorf("failed to search pull requests %q (page %d): %w", query, page, err)
		}
		for _, edge := range q.Search.Edges {
			records = append(records, domain.ActivityRecord{CreatedAt: edge.Node.PullRequest.CreatedAt})
		}
		if !q.Search.PageInfo.HasNextPage {
			break
		}

		cursor := q.Search.PageInfo.EndCursor
		if cursor == "" || cursor == lastCursor {
			return nil, fmt.Errorf("%w: %w: query %q returned cursor %q on page %d", domain.ErrUpstreamQuery, ErrPaginationStalled, query, cursor, page)
		}
		if page >= g.opts.MaxPages {
			return nil, fmt.Errorf("%w: %w: query %q exceeded %d pages", domain.ErrUpstreamQuery, ErrPaginationStalled, query, g.opts.MaxPages)
		}
		lastCursor = cursor
		variables["cursor"] = githubv4.NewString(cursor)
		g.logger.Printf("  Fetching page %d of pull requests (%d so far)...", page+1, len(records))
	}
	g.logger.Printf("Completed fetching %d pull requests for query: %s", len(records), query)
	return records, nil
}

// queryWithRetry runs one GraphQL request and classifies its failure.
// Transient transport failures are retried with exponential backoff.
func (g *GitHubGateway) queryWithRetry(ctx context.Context, q interface{}, variables map[string]interface{}) error {
	backoff := g.opts.RetryBackoff
	for attempt := 0; ; attempt++ {
		outcome := &requestOutcome{}
		attemptCtx, cancel := context.WithTimeout(withOutcome(ctx, outcome), g.opts.Timeout)
		err := g.graphqlClient.Query(attemptCtx, q, variables)
		// A deadline can fire after a 200 status line while the body is read.
		timedOut := attemptCtx.Err() != nil || isTimeout(err)
		cancel()
		if err == nil {
			return nil
		}
		if outcome.status == http.StatusOK && !timedOut {
			return fmt.Errorf("%w: %v", domain.ErrUpstreamQuery, err)
		}

		transportErr := fmt.Errorf("%w: %v", domain.ErrTransport, err)
		if !(timedOut || outcome.retryable()) || attempt >= g.opts.MaxRetries || ctx.Err() != nil {
			return transportErr
		}
		g.logger.Printf("  Request failed (%v), retrying in %s (attempt %d/%d)...", err, backoff, attempt+1, g.opts.MaxRetries)
		if err := g.sleep(ctx, backoff); err != nil {
			return transportErr
		}
		backoff *= 2
	}
}

func isTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || os.IsTimeout(err) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
