package gateway

import (
	"context"
	"net/http"
)

// requestOutcome captures the HTTP status of the request that carried it, so
// errors from the GraphQL client can be told apart: a 200 means the payload
// reported errors, anything else is a transport failure.
type requestOutcome struct {
	status int
}

// retryable reports whether the failure is worth another attempt:
// no response at all, rate limiting, or a server error.
func (o *requestOutcome) retryable() bool {
	return o.status == 0 || o.status == http.StatusTooManyRequests || o.status >= http.StatusInternalServerError
}

type outcomeKey struct{}

func withOutcome(ctx context.Context, o *requestOutcome) context.Context {
	return context.WithValue(ctx, outcomeKey{}, o)
}

// statusRecorder writes the response status into the requestOutcome found in
// the request context, if any.
type statusRecorder struct {
	base http.RoundTripper
}

func (s *statusRecorder) RoundTrip(req *http.Request) (*http.Response, error) {
	base := s.base
	if base == nil {
		base = http.DefaultTransport
	}
	resp, err := base.RoundTrip(req)
	if o, ok := req.Context().Value(outcomeKey{}).(*requestOutcome); ok && err == nil {
		o.status = resp.StatusCode
	}
	return resp, err
}
