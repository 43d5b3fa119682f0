package crawler

import (
	"context"

	"github.com/checklisting/crawler/internal/checklist"
)

// Fetcher turns a URL plus optional form body into a decoded page. Retries,
// redirects, cookies and rate limiting are its concern, not the caller's.
type Fetcher interface {
	Fetch(ctx context.Context, request Request) (Page, error)
}

// Scheduler submits a request and suspends the calling chain until its
// response arrives. Implementations must cap the effective concurrency of
// in-flight fetches at exactly one, process-wide: continuation state is
// correlated to a response only by an after-the-fact identifier check, and
// concurrent in-flight requests have been observed to cross-talk.
type Scheduler interface {
	Submit(ctx context.Context, request Request) (Page, error)
}

// Sink durably stores a canonical checklist keyed by (source, identifier).
// Re-delivery of the same record must overwrite, not duplicate.
type Sink interface {
	Save(ctx context.Context, c *checklist.Checklist) error
}
