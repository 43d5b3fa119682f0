package report

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/checklisting/crawler/internal/checklist"
	"github.com/checklisting/crawler/internal/crawler"
)

func finishedAt() time.Time {
	return time.Date(2013, time.April, 1, 9, 30, 0, 0, time.UTC)
}

func TestRenderHeader(t *testing.T) {
	t.Parallel()

	report := New("eBird", finishedAt(), crawler.NewResults())
	rendered := report.Render()

	require.Contains(t, rendered, "Crawl: eBird\n")
	require.Contains(t, rendered, "Run: "+report.RunID+"\n")
	require.Contains(t, rendered, "Date: 01 Apr 2013\n")
	require.Contains(t, rendered, "Time: 09:30\n")
}

func TestRenderEmptyResults(t *testing.T) {
	t.Parallel()

	rendered := New("eBird", finishedAt(), crawler.NewResults()).Render()

	require.Contains(t, rendered, "Checklists downloaded")
	require.Contains(t, rendered, "No checklists downloaded")
	require.Contains(t, rendered, "No errors reported")
	require.Contains(t, rendered, "No warnings reported")
}

func TestRenderSavedChecklists(t *testing.T) {
	t.Parallel()

	results := crawler.NewResults()
	results.AddSaved(&checklist.Checklist{
		Date:        "2013-03-27",
		Time:        "09:00",
		SubmittedBy: "Ada Young",
		Location:    checklist.Location{Name: "Cape Clear"},
	})

	rendered := New("eBird", finishedAt(), results).Render()
	require.Contains(t, rendered, "2013-03-27 09:00, Cape Clear (Ada Young)\n")
}

func TestRenderUnknownTimePlaceholder(t *testing.T) {
	t.Parallel()

	results := crawler.NewResults()
	results.AddSaved(&checklist.Checklist{
		Date:        "2013-03-27",
		SubmittedBy: "Ada Young",
		Location:    checklist.Location{Name: "Cape Clear"},
	})

	rendered := New("eBird", finishedAt(), results).Render()
	require.Contains(t, rendered, "2013-03-27 "+checklist.TimeUnknown+", Cape Clear (Ada Young)\n")
}

func TestRenderErrorsWithURLs(t *testing.T) {
	t.Parallel()

	results := crawler.NewResults()
	results.AddError("http://ebird.org/broken", errors.New("boom"))

	rendered := New("eBird", finishedAt(), results).Render()
	require.Contains(t, rendered, "URL: http://ebird.org/broken\n")
	require.Contains(t, rendered, "boom")
}

func TestRenderWarnings(t *testing.T) {
	t.Parallel()

	results := crawler.NewResults()
	results.AddWarning(&checklist.Checklist{
		Date:     "2013-03-27",
		Time:     "09:00",
		Location: checklist.Location{Name: "Cape Clear"},
	}, []string{"Dunlin: breakdown total 7 exceeds count 5"})

	rendered := New("eBird", finishedAt(), results).Render()
	require.Contains(t, rendered, "  Dunlin: breakdown total 7 exceeds count 5\n")
}
