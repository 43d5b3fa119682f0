// Package crawler defines the core types and interfaces shared by the crawl
// sources: the page/request types exchanged with the fetch engine, the
// single-flight scheduler, the sink contract and the error taxonomy.
package crawler

import (
	"net/url"
	"time"
)

// Request captures everything needed to fetch one page. Method defaults to
// GET; a non-nil Form turns the request into a form POST.
type Request struct {
	URL    string
	Method string
	Form   url.Values
}

// Page is one fetched, decoded page. URL is the final request URL after any
// redirects, which is what the correlation checks inspect.
type Page struct {
	URL  string
	Body []byte
}

// ContentLength returns the size of the page body in bytes.
func (p Page) ContentLength() int {
	return len(p.Body)
}

// Clock returns the current time (useful for testing cutoff logic).
type Clock interface {
	Now() time.Time
}
