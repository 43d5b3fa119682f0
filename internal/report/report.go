// Package report renders the end-of-crawl status summary from the result
// collections a crawl accumulates.
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/checklisting/crawler/internal/checklist"
	"github.com/checklisting/crawler/internal/crawler"
)

// Report is the status summary for one finished crawl.
type Report struct {
	RunID    string
	Source   string
	Finished time.Time
	Results  *crawler.Results
}

// New builds a report for the given source from the drained results.
func New(source string, finished time.Time, results *crawler.Results) *Report {
	return &Report{
		RunID:    uuid.NewString(),
		Source:   source,
		Finished: finished,
		Results:  results,
	}
}

// Render produces the plain-text summary: the checklists downloaded, the
// errors encountered with their URLs, and any soft warnings.
func (r *Report) Render() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Crawl: %s\n", r.Source)
	fmt.Fprintf(&b, "Run: %s\n", r.RunID)
	fmt.Fprintf(&b, "Date: %s\n", r.Finished.Format("02 Jan 2006"))
	fmt.Fprintf(&b, "Time: %s\n\n", r.Finished.Format("15:04"))

	b.WriteString(section("Checklists downloaded"))
	if len(r.Results.Saved) == 0 {
		b.WriteString("No checklists downloaded\n")
	}
	for _, c := range r.Results.Saved {
		b.WriteString(summaryLine(c))
	}

	b.WriteString(section("Errors"))
	if len(r.Results.Errors) == 0 {
		b.WriteString("No errors reported\n")
	}
	for _, e := range r.Results.Errors {
		fmt.Fprintf(&b, "URL: %s\n%v\n\n", e.URL, e.Err)
	}

	b.WriteString(section("Warnings"))
	if len(r.Results.Warnings) == 0 {
		b.WriteString("No warnings reported\n")
	}
	for _, w := range r.Results.Warnings {
		b.WriteString(summaryLine(w.Checklist))
		for _, msg := range w.Messages {
			fmt.Fprintf(&b, "  %s\n", msg)
		}
	}
	return b.String()
}

func section(title string) string {
	rule := strings.Repeat("-", len(title)+4)
	return fmt.Sprintf("\n%s\n  %s\n%s\n", rule, title, rule)
}

func summaryLine(c *checklist.Checklist) string {
	timeOfDay := c.Time
	if timeOfDay == "" {
		timeOfDay = checklist.TimeUnknown
	}
	return fmt.Sprintf("%s %s, %s (%s)\n", c.Date, timeOfDay, c.Location.Name, c.SubmittedBy)
}
