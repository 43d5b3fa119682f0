package ebird

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/checklisting/crawler/internal/checklist"
	"github.com/checklisting/crawler/internal/crawler"
	"github.com/checklisting/crawler/internal/metrics"
)

const sourceName = "eBird"

const (
	regionURL    = "http://ebird.org/ws1.1/data/obs/region/recent?rtype=subnational1&r=%s&back=%d&fmt=json"
	locationURL  = "http://ebird.org/ws1.1/data/obs/loc/recent?r=%s&detail=full&back=%d&includeProvisional=true&fmt=json"
	checklistURL = "http://ebird.org/ebird/view/checklist?subID=%s"
)

// Config controls one eBird crawl.
type Config struct {
	// Region is the code of the eBird subnational region to fetch
	// observations for. Required.
	Region string
	// LookbackDays bounds how old fetched observations may be. The API
	// serves at most 30 days.
	LookbackDays int
	// IncludeWebPage enables the enrichment stage that scrapes each
	// checklist's web page for the fields the API does not expose.
	IncludeWebPage bool
}

// continuation carries one record's state between the fetches of its chain.
// It is created when the record is discovered and read, never mutated, by
// the completion stage.
type continuation struct {
	identifier string
	checklist  *checklist.Checklist
}

// Spider assembles checklists by chaining API and web page fetches: the
// region listing yields locations, each location yields checklists, and each
// checklist optionally yields a web page whose fields are merged in before
// the record reaches the sink.
type Spider struct {
	cfg       Config
	scheduler crawler.Scheduler
	sink      crawler.Sink
	logger    *zap.Logger
}

// New builds a Spider. A missing region is a configuration error and fails
// here, before any fetch is issued.
func New(cfg Config, scheduler crawler.Scheduler, sink crawler.Sink, logger *zap.Logger) (*Spider, error) {
	if cfg.Region == "" {
		return nil, errors.New("ebird: a region is required")
	}
	if cfg.LookbackDays <= 0 {
		cfg.LookbackDays = 7
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Spider{cfg: cfg, scheduler: scheduler, sink: sink, logger: logger}, nil
}

// Run crawls the configured region and returns the accumulated results.
// Record-level failures are collected and never abort the crawl; only the
// discovery fetch itself is fatal.
func (s *Spider) Run(ctx context.Context) (*crawler.Results, error) {
	results := crawler.NewResults()

	s.logger.Info("downloading checklists",
		zap.String("region", s.cfg.Region),
		zap.Int("lookback_days", s.cfg.LookbackDays),
		zap.Bool("include_web_page", s.cfg.IncludeWebPage),
	)

	url := fmt.Sprintf(regionURL, s.cfg.Region, s.cfg.LookbackDays)
	page, err := s.scheduler.Submit(ctx, crawler.Request{URL: url})
	if err != nil {
		return results, fmt.Errorf("fetch region observations: %w", err)
	}
	metrics.ObserveFetch(sourceName)

	decoder, err := DecodeAPI(page)
	if err != nil {
		return results, fmt.Errorf("decode region observations: %w", err)
	}

	for _, loc := range decoder.Locations() {
		if err := s.crawlLocation(ctx, loc, results); err != nil {
			if ctx.Err() != nil {
				return results, ctx.Err()
			}
			results.AddError(fmt.Sprintf(locationURL, loc.Identifier, s.cfg.LookbackDays), err)
			metrics.ObserveError(sourceName, metrics.KindFetch)
			s.logger.Error("location crawl failed",
				zap.String("location", loc.Identifier), zap.Error(err))
		}
	}
	return results, nil
}

// crawlLocation fetches the full observations for one location and drives
// the per-checklist chains discovered in them.
func (s *Spider) crawlLocation(ctx context.Context, loc checklist.Location, results *crawler.Results) error {
	url := fmt.Sprintf(locationURL, loc.Identifier, s.cfg.LookbackDays)
	page, err := s.scheduler.Submit(ctx, crawler.Request{URL: url})
	if err != nil {
		return err
	}
	metrics.ObserveFetch(sourceName)

	decoder, err := DecodeAPI(page)
	if err != nil {
		return err
	}

	for _, c := range decoder.Checklists() {
		if !s.cfg.IncludeWebPage {
			s.save(ctx, c, results)
			continue
		}
		cont := continuation{identifier: c.Identifier, checklist: c}
		if err := s.completeChecklist(ctx, cont, results); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			results.AddError(fmt.Sprintf(checklistURL, cont.identifier), err)
			s.recordErrorMetric(err)
			s.logger.Error("checklist chain failed",
				zap.String("identifier", cont.identifier), zap.Error(err))
		}
	}
	return nil
}

// completeChecklist runs the enrichment stage for one record: fetch the web
// page, confirm it belongs to this continuation, merge and save.
func (s *Spider) completeChecklist(ctx context.Context, cont continuation, results *crawler.Results) error {
	page, err := s.scheduler.Submit(ctx, crawler.Request{
		URL: fmt.Sprintf(checklistURL, cont.identifier),
	})
	if err != nil {
		return err
	}
	metrics.ObserveFetch(sourceName)

	if !strings.HasSuffix(page.URL, cont.identifier) {
		return &crawler.CorrelationError{
			URL:  page.URL,
			Want: cont.identifier,
			Got:  tail(page.URL, len(cont.identifier)),
		}
	}

	decoder, err := DecodePage(page)
	if err != nil {
		return err
	}
	update, err := decoder.Update()
	if err != nil {
		return err
	}

	merged := checklist.Merge(cont.checklist, update)
	merged.URL = page.URL
	s.save(ctx, merged, results)
	return nil
}

func (s *Spider) save(ctx context.Context, c *checklist.Checklist, results *crawler.Results) {
	if err := s.sink.Save(ctx, c); err != nil {
		results.AddError(c.URL, err)
		metrics.ObserveError(sourceName, metrics.KindSink)
		s.logger.Error("save checklist failed",
			zap.String("identifier", c.Identifier), zap.Error(err))
		return
	}
	results.AddSaved(c)
	results.AddWarning(c, checklist.Warnings(c))
	metrics.ObserveSaved(sourceName)
	s.logger.Debug("checklist saved",
		zap.String("identifier", c.Identifier),
		zap.String("date", c.Date),
		zap.String("location", c.Location.Name),
	)
}

func (s *Spider) recordErrorMetric(err error) {
	var correlation *crawler.CorrelationError
	var extraction *crawler.ExtractionError
	switch {
	case errors.As(err, &correlation):
		metrics.ObserveError(sourceName, metrics.KindCorrelation)
	case errors.As(err, &extraction):
		metrics.ObserveError(sourceName, metrics.KindExtraction)
	default:
		metrics.ObserveError(sourceName, metrics.KindFetch)
	}
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
