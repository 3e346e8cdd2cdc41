package gateway

import (
	"context"
	"fmt"

	"github.com/google/go-github/v62/github"

	"github.com/naka-gawa/pr-histogram/internal/domain"
)

// ThemeFile locates the theme definitions inside a GitHub repository.
type ThemeFile struct {
	Owner string
	Repo  string
	Path  string
	Ref   string
}

// DefaultThemeFile is the github-readme-stats theme index.
var DefaultThemeFile = ThemeFile{
	Owner: "anuraghazra",
	Repo:  "github-readme-stats",
	Path:  "themes/index.js",
	Ref:   "master",
}

func (f ThemeFile) String() string {
	return fmt.Sprintf("%s/%s/%s@%s", f.Owner, f.Repo, f.Path, f.Ref)
}

// ThemeSource downloads the theme file through the REST contents API.
type ThemeSource struct {
	gateway *GitHubGateway
	file    ThemeFile
}

// ThemeSource returns a source for the given file, sharing the gateway's client.
func (g *GitHubGateway) ThemeSource(file ThemeFile) *ThemeSource {
	return &ThemeSource{gateway: g, file: file}
}

// Fetch returns the raw text of the theme file.
func (s *ThemeSource) Fetch(ctx context.Context) (string, error) {
	f := s.file
	s.gateway.logger.Printf("Fetching themes from %s...", f)
	ctx, cancel := context.WithTimeout(ctx, s.gateway.opts.Timeout)
	defer cancel()
	opts := &github.RepositoryContentGetOptions{Ref: f.Ref}
	content, _, resp, err := s.gateway.restClient.Repositories.GetContents(ctx, f.Owner, f.Repo, f.Path, opts)
	if err != nil {
		if resp != nil {
			return "", fmt.Errorf("%w: %s: status %d: %v", domain.ErrRemoteFetch, f, resp.StatusCode, err)
		}
		return "", fmt.Errorf("%w: %s: %v", domain.ErrRemoteFetch, f, err)
	}
	if content == nil {
		return "", fmt.Errorf("%w: %s is a directory", domain.ErrRemoteFetch, f)
	}
	text, err := content.GetContent()
	if err != nil {
		return "", fmt.Errorf("%w: failed to decode %s: %v", domain.ErrRemoteFetch, f, err)
	}
	return text, nil
}
