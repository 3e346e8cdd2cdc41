package gateway

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-github/v62/github"
	"github.com/shurcooL/githubv4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/naka-gawa/pr-histogram/internal/domain"
)

// setupTestGateway creates a GitHubGateway that communicates with a mock HTTP server.
func setupTestGateway(t *testing.T, handler http.Handler, opts Options) (*GitHubGateway, *httptest.Server) {
	server := httptest.NewServer(handler)
	httpClient := &http.Client{Transport: &statusRecorder{base: server.Client().Transport}}

	// Setup REST client to point to the mock server.
	restClient := github.NewClient(httpClient)
	baseURL, err := url.Parse(server.URL + "/")
	require.NoError(t, err)
	restClient.BaseURL = baseURL

	// Use NewEnterpriseClient to point the GraphQL client to our mock server's URL.
	graphqlClient := githubv4.NewEnterpriseClient(server.URL, httpClient)
	logger := log.New(io.Discard, "", 0)

	gateway := newGateway(restClient, graphqlClient, opts, logger)
	gateway.sleep = func(ctx context.Context, d time.Duration) error { return nil }

	return gateway, server
}

type graphqlRequest struct {
	Query     string `json:"query"`
	Variables struct {
		Query    string  `json:"query"`
		PageSize int     `json:"pageSize"`
		Cursor   *string `json:"cursor"`
	} `json:"variables"`
}

func decodeRequest(t *testing.T, r *http.Request) graphqlRequest {
	var req graphqlRequest
	require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
	return req
}

// pageBody builds a search response with n PRs created in the given month.
func pageBody(n int, month string, hasNext bool, endCursor string) string {
	edges := make([]string, n)
	for i := range edges {
		edges[i] = fmt.Sprintf(`{"node":{"createdAt":"%s-%02dT10:00:00Z"}}`, month, i%28+1)
	}
	return fmt.Sprintf(`{"data":{"search":{"pageInfo":{"hasNextPage":%t,"endCursor":%q},"edges":[%s]}}}`,
		hasNext, endCursor, strings.Join(edges, ","))
}

func TestSearchPullRequests_FollowsCursorUntilLastPage(t *testing.T) {
	var requests int32
	var seenCursors []string
	handler := func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		req := decodeRequest(t, r)
		assert.Equal(t, 100, req.Variables.PageSize)
		assert.Contains(t, req.Query, "search(query: $query, type: ISSUE, first: $pageSize, after: $cursor)")

		cursor := ""
		if req.Variables.Cursor != nil {
			cursor = *req.Variables.Cursor
		}
		seenCursors = append(seenCursors, cursor)

		switch cursor {
		case "":
			fmt.Fprint(w, pageBody(100, "2024-01", true, "c1"))
		case "c1":
			fmt.Fprint(w, pageBody(100, "2024-02", true, "c2"))
		case "c2":
			fmt.Fprint(w, pageBody(42, "2024-03", false, "c3"))
		default:
			t.Errorf("unexpected cursor %q", cursor)
			w.WriteHeader(http.StatusBadRequest)
		}
	}
	gateway, server := setupTestGateway(t, http.HandlerFunc(handler), Options{PageSize: 100})
	defer server.Close()

	records, err := gateway.SearchPullRequests(context.Background(), "repo:o/r is:pr author:u")

	require.NoError(t, err)
	assert.Len(t, records, 242)
	assert.Equal(t, int32(3), atomic.LoadInt32(&requests))
	assert.Equal(t, []string{"", "c1", "c2"}, seenCursors)
	// Server order is preserved.
	assert.Equal(t, "2024-01-01T10:00:00Z", records[0].CreatedAt)
	assert.Equal(t, "2024-03-14T10:00:00Z", records[241].CreatedAt)
}

func TestSearchPullRequests_EmptyResult(t *testing.T) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":{"search":{"pageInfo":{"hasNextPage":false,"endCursor":null},"edges":[]}}}`)
	}
	gateway, server := setupTestGateway(t, http.HandlerFunc(handler), Options{})
	defer server.Close()

	records, err := gateway.SearchPullRequests(context.Background(), "repo:o/r is:pr author:nobody")

	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestSearchPullRequests_Errors(t *testing.T) {
	testCases := []struct {
		name             string
		maxRetries       int
		maxPages         int
		handlerFunc      func(call int32, w http.ResponseWriter)
		expectedErr      error
		expectedRequests int32
	}{
		{
			name: "server error on second page abandons everything",
			handlerFunc: func(call int32, w http.ResponseWriter) {
				if call == 1 {
					fmt.Fprint(w, pageBody(100, "2024-01", true, "c1"))
					return
				}
				w.WriteHeader(http.StatusInternalServerError)
			},
			expectedErr:      domain.ErrTransport,
			expectedRequests: 2,
		},
		{
			name:       "server error is retried then given up",
			maxRetries: 2,
			handlerFunc: func(call int32, w http.ResponseWriter) {
				w.WriteHeader(http.StatusBadGateway)
			},
			expectedErr:      domain.ErrTransport,
			expectedRequests: 3,
		},
		{
			name:       "unauthorized is not retried",
			maxRetries: 3,
			handlerFunc: func(call int32, w http.ResponseWriter) {
				w.WriteHeader(http.StatusUnauthorized)
				fmt.Fprint(w, `{"message":"Bad credentials"}`)
			},
			expectedErr:      domain.ErrTransport,
			expectedRequests: 1,
		},
		{
			name:       "graphql errors in a 200 response",
			maxRetries: 3,
			handlerFunc: func(call int32, w http.ResponseWriter) {
				fmt.Fprint(w, `{"errors":[{"message":"Something went wrong"}]}`)
			},
			expectedErr:      domain.ErrUpstreamQuery,
			expectedRequests: 1,
		},
		{
			name: "cursor that never moves",
			handlerFunc: func(call int32, w http.ResponseWriter) {
				fmt.Fprint(w, pageBody(1, "2024-01", true, "same"))
			},
			expectedErr:      ErrPaginationStalled,
			expectedRequests: 2,
		},
		{
			name: "more pages without a cursor",
			handlerFunc: func(call int32, w http.ResponseWriter) {
				fmt.Fprint(w, pageBody(1, "2024-01", true, ""))
			},
			expectedErr:      domain.ErrUpstreamQuery,
			expectedRequests: 1,
		},
		{
			name:     "page cap",
			maxPages: 3,
			handlerFunc: func(call int32, w http.ResponseWriter) {
				fmt.Fprint(w, pageBody(1, "2024-01", true, fmt.Sprintf("c%d", call)))
			},
			expectedErr:      ErrPaginationStalled,
			expectedRequests: 3,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var calls int32
			handler := func(w http.ResponseWriter, r *http.Request) {
				tc.handlerFunc(atomic.AddInt32(&calls, 1), w)
			}
			gateway, server := setupTestGateway(t, http.HandlerFunc(handler), Options{MaxRetries: tc.maxRetries, MaxPages: tc.maxPages})
			defer server.Close()

			records, err := gateway.SearchPullRequests(context.Background(), "repo:o/r is:pr author:u")

			assert.ErrorIs(t, err, tc.expectedErr)
			assert.Contains(t, err.Error(), "repo:o/r is:pr author:u")
			assert.Nil(t, records)
			assert.Equal(t, tc.expectedRequests, atomic.LoadInt32(&calls))
		})
	}
}

func TestSearchPullRequests_RetryRecovers(t *testing.T) {
	var calls int32
	handler := func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, pageBody(3, "2024-05", false, "c1"))
	}
	gateway, server := setupTestGateway(t, http.HandlerFunc(handler), Options{MaxRetries: 2, RetryBackoff: 10 * time.Millisecond})
	defer server.Close()

	var delays []time.Duration
	gateway.sleep = func(ctx context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	}

	records, err := gateway.SearchPullRequests(context.Background(), "q")

	require.NoError(t, err)
	assert.Len(t, records, 3)
	assert.Equal(t, []time.Duration{10 * time.Millisecond}, delays)
}

func TestSearchPullRequests_TimeoutIsTransportError(t *testing.T) {
	release := make(chan struct{})
	handler := func(w http.ResponseWriter, r *http.Request) {
		<-release
	}
	gateway, server := setupTestGateway(t, http.HandlerFunc(handler), Options{})
	defer server.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := gateway.SearchPullRequests(ctx, "q")

	assert.ErrorIs(t, err, domain.ErrTransport)
}

// TestGitHubGateway_FetchPRs consolidates the predicate checks into a single table-driven test.
// stallAfterHeaders answers 200 with a partial body and then hangs until the
// client gives up.
func stallAfterHeaders(calls *int32) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, `{"data":{"search":`)
		w.(http.Flusher).Flush()
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}
}

func TestSearchPullRequests_BodyTimeoutIsRetriedTransportError(t *testing.T) {
	var calls int32
	gateway, server := setupTestGateway(t, stallAfterHeaders(&calls), Options{Timeout: 100 * time.Millisecond, MaxRetries: 1})
	defer server.Close()

	_, err := gateway.SearchPullRequests(context.Background(), "q")

	assert.ErrorIs(t, err, domain.ErrTransport)
	assert.NotErrorIs(t, err, domain.ErrUpstreamQuery)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestNewGitHubGateway_TimeoutDuringBody(t *testing.T) {
	var calls int32
	server := httptest.NewServer(stallAfterHeaders(&calls))
	defer server.Close()

	// Nothing may reach the global logger, which --verbose does not control.
	var global strings.Builder
	log.SetOutput(&global)
	defer log.SetOutput(os.Stderr)

	gateway, err := NewGitHubGateway("token", Options{GraphQLURL: server.URL, Timeout: 100 * time.Millisecond, MaxRetries: 0}, log.New(io.Discard, "", 0))
	require.NoError(t, err)

	_, err = gateway.SearchPullRequests(context.Background(), "q")

	assert.ErrorIs(t, err, domain.ErrTransport)
	assert.NotErrorIs(t, err, domain.ErrUpstreamQuery)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Empty(t, global.String())
}

func TestIsTimeout(t *testing.T) {
	assert.False(t, isTimeout(nil))
	assert.False(t, isTimeout(errors.New("boom")))
	assert.True(t, isTimeout(fmt.Errorf("wrapped: %w", context.DeadlineExceeded)))
	assert.True(t, isTimeout(&net.DNSError{IsTimeout: true}))
}

func TestGitHubGateway_FetchPRs(t *testing.T) {
	target := domain.Target{Username: "any-user", Owner: "any-org", Repo: "any-repo"}
	testCases := []struct {
		name          string
		methodToTest  func(gateway *GitHubGateway) ([]domain.ActivityRecord, error)
		expectedQuery string
	}{
		{
			name: "FetchAuthoredPRs",
			methodToTest: func(gateway *GitHubGateway) ([]domain.ActivityRecord, error) {
				return gateway.FetchAuthoredPRs(context.Background(), target)
			},
			expectedQuery: "repo:any-org/any-repo is:pr author:any-user",
		},
		{
			name: "FetchReviewedPRs",
			methodToTest: func(gateway *GitHubGateway) ([]domain.ActivityRecord, error) {
				return gateway.FetchReviewedPRs(context.Background(), target, false)
			},
			expectedQuery: "repo:any-org/any-repo is:pr reviewed-by:any-user",
		},
		{
			name: "FetchReviewedPRs excluding authored",
			methodToTest: func(gateway *GitHubGateway) ([]domain.ActivityRecord, error) {
				return gateway.FetchReviewedPRs(context.Background(), target, true)
			},
			expectedQuery: "repo:any-org/any-repo is:pr reviewed-by:any-user -author:any-user",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			handler := func(w http.ResponseWriter, r *http.Request) {
				req := decodeRequest(t, r)
				assert.Equal(t, tc.expectedQuery, req.Variables.Query)
				fmt.Fprint(w, `{"data":{"search":{"pageInfo":{"hasNextPage":false},"edges":[{"node":{"createdAt":"2024-06-01T00:00:00+02:00"}}]}}}`)
			}
			gateway, server := setupTestGateway(t, http.HandlerFunc(handler), Options{})
			defer server.Close()

			records, err := tc.methodToTest(gateway)

			require.NoError(t, err)
			assert.Equal(t, []domain.ActivityRecord{{CreatedAt: "2024-06-01T00:00:00+02:00"}}, records)
		})
	}
}

func TestThemeSource_Fetch(t *testing.T) {
	const themesJS = "export const themes = {\n  default: {\n    title_color: \"2f80ed\",\n  },\n};\n"
	file := ThemeFile{Owner: "anuraghazra", Repo: "github-readme-stats", Path: "themes/index.js", Ref: "master"}

	testCases := []struct {
		name        string
		handlerFunc func(w http.ResponseWriter, r *http.Request)
		expected    string
		expectError bool
	}{
		{
			name: "happy path - decodes base64 content",
			handlerFunc: func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/repos/anuraghazra/github-readme-stats/contents/themes/index.js", r.URL.Path)
				assert.Equal(t, "master", r.URL.Query().Get("ref"))
				fmt.Fprintf(w, `{"type":"file","encoding":"base64","name":"index.js","path":"themes/index.js","content":%q}`,
					base64.StdEncoding.EncodeToString([]byte(themesJS)))
			},
			expected: themesJS,
		},
		{
			name: "error case - not found",
			handlerFunc: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNotFound)
				fmt.Fprint(w, `{"message":"Not Found"}`)
			},
			expectError: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			gateway, server := setupTestGateway(t, http.HandlerFunc(tc.handlerFunc), Options{})
			defer server.Close()

			text, err := gateway.ThemeSource(file).Fetch(context.Background())

			if tc.expectError {
				assert.ErrorIs(t, err, domain.ErrRemoteFetch)
				assert.Contains(t, err.Error(), "404")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, text)
		})
	}
}

func TestNewGitHubGateway_EnterpriseURLs(t *testing.T) {
	gateway, err := NewGitHubGateway("token", Options{RESTURL: "https://ghe.example.com/api/v3/"}, log.New(io.Discard, "", 0))
	require.NoError(t, err)
	assert.Equal(t, "https://ghe.example.com/api/v3/", gateway.restClient.BaseURL.String())
	assert.Equal(t, DefaultPageSize, gateway.opts.PageSize)
	assert.Equal(t, DefaultTimeout, gateway.opts.Timeout)
}
