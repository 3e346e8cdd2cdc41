// Package domain contains the core data structures and domain logic for the application.
package domain

import (
	"fmt"
	"strings"
	"unicode"
)

const (
	// TargetDelimiter separates the username from the repository.
	TargetDelimiter = "@"
	repoDelimiter   = "/"
)

// Target is one unit of work: a user's activity in one repository.
type Target struct {
	Username string
	Owner    string
	Repo     string
}

// String renders the target in the same form it is parsed from.
func (t Target) String() string {
	return t.Username + TargetDelimiter + t.Owner + repoDelimiter + t.Repo
}

// FullName returns "owner/repo".
func (t Target) FullName() string {
	return t.Owner + repoDelimiter + t.Repo
}

// ParseTargets parses descriptors of the form user@owner/repo separated by
// whitespace and/or commas. Input order is preserved and duplicates are kept.
func ParseTargets(raw string) ([]Target, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, ErrEmptyInput
	}

	descriptors := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || unicode.IsSpace(r)
	})

	targets := make([]Target, 0, len(descriptors))
	for _, d := range descriptors {
		t, err := parseTarget(d)
		if err != nil {
			return nil, err
		}
		targets = append(targets, t)
	}
	return targets, nil
}

func parseTarget(descriptor string) (Target, error) {
	if strings.Count(descriptor, TargetDelimiter) != 1 {
		return Target{}, fmt.Errorf("%w: %q: expected exactly one %q, format is username@owner/repo", ErrMalformedTarget, descriptor, TargetDelimiter)
	}
	username, repo, _ := strings.Cut(descriptor, TargetDelimiter)
	if username == "" {
		return Target{}, fmt.Errorf("%w: %q: empty username", ErrMalformedTarget, descriptor)
	}

	if strings.Count(repo, repoDelimiter) != 1 {
		return Target{}, fmt.Errorf("%w: %q: repository %q must be owner/repo", ErrMalformedTarget, descriptor, repo)
	}
	owner, name, _ := strings.Cut(repo, repoDelimiter)
	if owner == "" || name == "" {
		return Target{}, fmt.Errorf("%w: %q: repository %q has an empty segment", ErrMalformedTarget, descriptor, repo)
	}

	return Target{Username: username, Owner: owner, Repo: name}, nil
}
