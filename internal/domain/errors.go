package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors. Callers wrap them with fmt.Errorf("%w: ...") and
// match with errors.Is.
var (
	// ErrConfig means the run cannot start, e.g. no GITHUB_TOKEN.
	ErrConfig = errors.New("configuration error")
	// ErrEmptyInput means the target string was blank.
	ErrEmptyInput = errors.New("empty targets string")
	// ErrMalformedTarget means a descriptor is not user@owner/repo.
	ErrMalformedTarget = errors.New("malformed target")
	// ErrUnknownTheme means the requested theme is not in the theme set.
	ErrUnknownTheme = errors.New("unknown theme")
	// ErrRemoteFetch means the theme source could not be downloaded.
	ErrRemoteFetch = errors.New("remote fetch failed")
	// ErrThemeFormat means the theme source no longer has the expected layout.
	ErrThemeFormat = errors.New("unrecognized theme source format")
	// ErrTransport means a request failed before a successful response arrived.
	ErrTransport = errors.New("transport error")
	// ErrUpstreamQuery means the API answered 200 but reported query errors.
	ErrUpstreamQuery = errors.New("upstream query error")
	// ErrTimestampParse means a createdAt value was in neither supported form.
	ErrTimestampParse = errors.New("timestamp parse error")
	// ErrRender means the artifact could not be produced or written.
	ErrRender = errors.New("render error")
)

// TargetError attaches the failing target to a per-target error.
type TargetError struct {
	Target Target
	Err    error
}

func (e *TargetError) Error() string {
	return fmt.Sprintf("target %s: %v", e.Target, e.Err)
}

func (e *TargetError) Unwrap() error {
	return e.Err
}
