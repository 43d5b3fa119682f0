// Package collyfetcher implements crawler.Fetcher using gocolly.
package collyfetcher

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/checklisting/crawler/internal/crawler"
)

// Config controls collector behavior.
type Config struct {
	UserAgent string
	Timeout   time.Duration
}

// Fetcher issues one HTTP request per call and returns the decoded page.
// All calls share one cookie jar so a logged-in session survives across the
// fetches of a chain. Callers are serialized by the single-flight scheduler,
// so the jar needs no further coordination.
type Fetcher struct {
	cfg       Config
	jar       http.CookieJar
	transport http.RoundTripper
}

// New builds a Fetcher.
func New(cfg Config) (*Fetcher, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}
	return &Fetcher{
		cfg:       cfg,
		jar:       jar,
		transport: newHTTPTransport(),
	}, nil
}

// Fetch executes a single HTTP GET, or a form POST when the request carries
// a form body.
func (f *Fetcher) Fetch(ctx context.Context, request crawler.Request) (crawler.Page, error) {
	var (
		result   crawler.Page
		fetchErr error
	)
	collector := f.buildCollector(&result, &fetchErr)

	if err := f.runCollector(ctx, collector, request, &fetchErr); err != nil {
		return crawler.Page{}, err
	}
	return result, nil
}

func (f *Fetcher) buildCollector(result *crawler.Page, fetchErr *error) *colly.Collector {
	collector := colly.NewCollector(colly.Async(false))
	collector.IgnoreRobotsTxt = true
	collector.SetCookieJar(f.jar)
	collector.WithTransport(f.transport)

	if f.cfg.UserAgent != "" {
		collector.UserAgent = f.cfg.UserAgent
	}
	timeout := f.cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	collector.SetRequestTimeout(timeout)

	collector.OnResponse(func(r *colly.Response) {
		*result = crawler.Page{
			URL:  r.Request.URL.String(),
			Body: append([]byte(nil), r.Body...),
		}
	})
	collector.OnError(func(_ *colly.Response, err error) {
		*fetchErr = err
	})
	return collector
}

func (f *Fetcher) runCollector(
	ctx context.Context,
	collector *colly.Collector,
	request crawler.Request,
	fetchErr *error,
) error {
	done := make(chan error, 1)
	go func() {
		done <- visit(collector, request)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("colly fetch canceled: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return fmt.Errorf("colly visit failed: %w", err)
		}
		if *fetchErr != nil {
			return fmt.Errorf("colly response failed: %w", *fetchErr)
		}
		return nil
	}
}

func visit(collector *colly.Collector, request crawler.Request) error {
	if request.Form != nil || request.Method == http.MethodPost {
		return collector.Post(request.URL, flattenForm(request.Form))
	}
	return collector.Visit(request.URL)
}

func flattenForm(form url.Values) map[string]string {
	out := make(map[string]string, len(form))
	for key := range form {
		out[key] = form.Get(key)
	}
	return out
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
