package crawler

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// SingleFlight is a Scheduler that serializes every submitted request
// through a weighted semaphore of one. The cap is a load-bearing constraint,
// not a tuning knob: raising it reintroduces the request/response cross-talk
// hazard the identifier checks only mitigate after the fact.
type SingleFlight struct {
	fetcher Fetcher
	sem     *semaphore.Weighted
	logger  *zap.Logger
}

// NewSingleFlight wraps a Fetcher in a single-flight Scheduler.
func NewSingleFlight(fetcher Fetcher, logger *zap.Logger) *SingleFlight {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SingleFlight{
		fetcher: fetcher,
		sem:     semaphore.NewWeighted(1),
		logger:  logger,
	}
}

// Submit issues the request and blocks until its response arrives. At most
// one fetch is in flight at any instant, process-wide.
func (s *SingleFlight) Submit(ctx context.Context, request Request) (Page, error) {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return Page{}, fmt.Errorf("acquire fetch slot: %w", err)
	}
	defer s.sem.Release(1)

	s.logger.Debug("fetching", zap.String("url", request.URL), zap.String("method", method(request)))
	page, err := s.fetcher.Fetch(ctx, request)
	if err != nil {
		return Page{}, fmt.Errorf("fetch %s: %w", request.URL, err)
	}
	return page, nil
}

func method(r Request) string {
	if r.Method != "" {
		return r.Method
	}
	if r.Form != nil {
		return "POST"
	}
	return "GET"
}
