package crawler

import "github.com/checklisting/crawler/internal/checklist"

// CrawlError is one record-level failure, kept with the URL that produced it
// for the end-of-crawl report.
type CrawlError struct {
	URL string
	Err error
}

// Warning pairs a saved checklist with the soft issues found in it.
type Warning struct {
	Checklist *checklist.Checklist
	Messages  []string
}

// Results accumulates the outcome of one crawl: the checklists saved, the
// record-level errors and any soft warnings. Each orchestrator owns its own
// Results and drains it once at crawl end; the one-in-flight fetch cap makes
// it single-writer for the duration of the crawl, so no locking is needed.
type Results struct {
	Saved    []*checklist.Checklist
	Errors   []CrawlError
	Warnings []Warning
}

// NewResults returns an empty accumulator.
func NewResults() *Results {
	return &Results{}
}

// AddSaved records a checklist that reached the sink.
func (r *Results) AddSaved(c *checklist.Checklist) {
	r.Saved = append(r.Saved, c)
}

// AddError records a record-level failure for the given URL.
func (r *Results) AddError(url string, err error) {
	r.Errors = append(r.Errors, CrawlError{URL: url, Err: err})
}

// AddWarning records soft issues found in a saved checklist.
func (r *Results) AddWarning(c *checklist.Checklist, messages []string) {
	if len(messages) == 0 {
		return
	}
	r.Warnings = append(r.Warnings, Warning{Checklist: c, Messages: messages})
}
