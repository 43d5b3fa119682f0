// Package worldbirds crawls recently added checklists from the WorldBirds
// databases. The site needs a logged-in session; the Latest News page lists
// recent visits in a paged table, and three popup endpoints expose the
// checklist, location and observer details for each row.
package worldbirds

import (
	"bytes"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/checklisting/crawler/internal/crawler"
)

var (
	dateRe = regexp.MustCompile(`\d{2}/\d{2}/\d{4}`)
	idRe   = regexp.MustCompile(`\(([0-9]+)\)`)
)

// Visit is one row of the Visit Highlights table: the visit date plus the
// identifiers needed to fetch the checklist, location and observer popups.
type Visit struct {
	Date        time.Time
	ChecklistID int
	LocationID  int
	ObserverID  int
}

// DecodeVisits extracts the visit rows from the Latest News page. The four
// columns are selected independently and zipped positionally, which is only
// correct when they line up, so a cardinality mismatch fails the page
// instead of silently misaligning records.
func DecodeVisits(page crawler.Page) ([]Visit, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page.Body))
	if err != nil {
		return nil, crawler.NewExtractionError(page.URL, "parse listing page: %v", err)
	}
	table := doc.Find("table.StandardTable").First()

	dates, err := visitDates(page.URL, table)
	if err != nil {
		return nil, err
	}
	checklists, err := onclickIDs(page.URL, table, "doHighlights", checklistID)
	if err != nil {
		return nil, err
	}
	locations, err := onclickIDs(page.URL, table, "doLocation", parenthesizedID)
	if err != nil {
		return nil, err
	}
	observers, err := onclickIDs(page.URL, table, "doObserver", parenthesizedID)
	if err != nil {
		return nil, err
	}

	if len(checklists) != len(dates) || len(locations) != len(dates) || len(observers) != len(dates) {
		return nil, crawler.NewExtractionError(page.URL,
			"misaligned visit columns: %d dates, %d checklists, %d locations, %d observers",
			len(dates), len(checklists), len(locations), len(observers))
	}

	visits := make([]Visit, len(dates))
	for i := range dates {
		visits[i] = Visit{
			Date:        dates[i],
			ChecklistID: checklists[i],
			LocationID:  locations[i],
			ObserverID:  observers[i],
		}
	}
	return visits, nil
}

func visitDates(url string, table *goquery.Selection) ([]time.Time, error) {
	var dates []time.Time
	var parseErr error
	table.Find("td").EachWithBreak(func(_ int, cell *goquery.Selection) bool {
		text := strings.TrimSpace(cell.Text())
		if !dateRe.MatchString(text) {
			return true
		}
		date, err := time.Parse("02/01/2006", dateRe.FindString(text))
		if err != nil {
			parseErr = crawler.NewExtractionError(url, "unparsable visit date %q", text)
			return false
		}
		dates = append(dates, date)
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}
	return dates, nil
}

// onclickIDs collects the identifier embedded in the onclick handler of
// every anchor whose handler starts with the given prefix.
func onclickIDs(
	url string,
	table *goquery.Selection,
	prefix string,
	extract func(string) (int, bool),
) ([]int, error) {
	var ids []int
	var extractErr error
	selector := `td a[onclick^="` + prefix + `"]`
	table.Find(selector).EachWithBreak(func(_ int, anchor *goquery.Selection) bool {
		onclick, _ := anchor.Attr("onclick")
		id, ok := extract(onclick)
		if !ok {
			extractErr = crawler.NewExtractionError(url, "unparsable %s handler %q", prefix, onclick)
			return false
		}
		ids = append(ids, id)
		return true
	})
	if extractErr != nil {
		return nil, extractErr
	}
	return ids, nil
}

// checklistID pulls the identifier out of a doHighlights handler, where it
// is the second comma-separated argument.
func checklistID(onclick string) (int, bool) {
	parts := strings.Split(onclick, ",")
	if len(parts) < 2 {
		return 0, false
	}
	id, err := strconv.Atoi(strings.TrimSpace(strings.Trim(parts[1], " )")))
	if err != nil {
		return 0, false
	}
	return id, true
}

// parenthesizedID pulls the identifier out of a single-argument handler such
// as doLocation(1234).
func parenthesizedID(onclick string) (int, bool) {
	match := idRe.FindStringSubmatch(onclick)
	if match == nil {
		return 0, false
	}
	id, err := strconv.Atoi(match[1])
	if err != nil {
		return 0, false
	}
	return id, true
}
