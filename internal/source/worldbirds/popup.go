package worldbirds

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/checklisting/crawler/internal/checklist"
	"github.com/checklisting/crawler/internal/crawler"
)

// The popup tables carry no field names, only positions. These constants
// document the fixed row schema of the visit details popup.
const (
	rowLocationName  = 0
	rowVisitDate     = 2
	rowVisitTimeSpan = 3
	rowObserverCount = 5
	minDetailRows    = 8
)

// popupRows returns the cell texts of the first popup table on the page,
// trimmed but with empty cells kept so positions stay stable.
func popupRows(page crawler.Page) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page.Body))
	if err != nil {
		return nil, crawler.NewExtractionError(page.URL, "parse popup: %v", err)
	}
	var rows []string
	doc.Find("table.PopupTable").First().Find("td").Each(func(_ int, cell *goquery.Selection) {
		rows = append(rows, strings.TrimSpace(cell.Text()))
	})
	return rows, nil
}

// DecodeChecklist decodes the visit details popup into a checklist. The
// popup has no natural entry identifiers, so each entry gets one synthesized
// from the checklist identifier and its row index.
func DecodeChecklist(page crawler.Page, visit Visit) (*checklist.Checklist, error) {
	rows, err := popupRows(page)
	if err != nil {
		return nil, err
	}
	if len(rows) < minDetailRows {
		return nil, crawler.NewExtractionError(page.URL, "visit popup has %d rows, want at least %d", len(rows), minDetailRows)
	}

	date, err := visitDate(page.URL, rows[rowVisitDate])
	if err != nil {
		return nil, err
	}
	timeOfDay, protocol, err := visitTimes(page.URL, rows[rowVisitTimeSpan])
	if err != nil {
		return nil, err
	}
	observerCount, err := strconv.Atoi(rows[rowObserverCount])
	if err != nil {
		return nil, crawler.NewExtractionError(page.URL, "unparsable observer count %q", rows[rowObserverCount])
	}
	entries, err := visitEntries(page, visit.ChecklistID)
	if err != nil {
		return nil, err
	}

	return &checklist.Checklist{
		Version:       checklist.FormatVersion,
		Language:      checklist.Language,
		Identifier:    strconv.Itoa(visit.ChecklistID),
		Source:        sourceName,
		URL:           page.URL,
		Date:          date,
		Time:          timeOfDay,
		Location:      checklist.Location{Name: rows[rowLocationName]},
		Protocol:      protocol,
		Observers:     checklist.CleanStrings(strings.Split(rows[len(rows)-2], ",")),
		ObserverCount: observerCount,
		Entries:       entries,
	}, nil
}

// visitDate converts the popup's dd-mm-yyyy date into ISO 8601.
func visitDate(url, raw string) (string, error) {
	parts := strings.Split(raw, "-")
	if len(parts) != 3 {
		return "", crawler.NewExtractionError(url, "unparsable visit date %q", raw)
	}
	return fmt.Sprintf("%s-%s-%s",
		strings.TrimSpace(parts[2]),
		strings.TrimSpace(parts[1]),
		strings.TrimSpace(parts[0]),
	), nil
}

// visitTimes parses the "HH:MM - HH:MM" span. The start doubles as the
// checklist time; the span length becomes a timed-visit protocol. A span
// that runs backwards is an extraction error, not a valid protocol.
func visitTimes(url, raw string) (string, *checklist.Protocol, error) {
	start, end, found := strings.Cut(raw, "-")
	if !found {
		return "", nil, crawler.NewExtractionError(url, "unparsable time span %q", raw)
	}
	startMinutes, err := minutesOfDay(start)
	if err != nil {
		return "", nil, crawler.NewExtractionError(url, "unparsable time span %q", raw)
	}
	endMinutes, err := minutesOfDay(end)
	if err != nil {
		return "", nil, crawler.NewExtractionError(url, "unparsable time span %q", raw)
	}
	duration := endMinutes - startMinutes
	if duration < 0 {
		return "", nil, crawler.NewExtractionError(url, "negative visit duration in %q", raw)
	}
	protocol := &checklist.Protocol{
		Name:            "Timed visit",
		DurationHours:   duration / 60,
		DurationMinutes: duration % 60,
	}
	hour := startMinutes / 60
	minute := startMinutes % 60
	return fmt.Sprintf("%02d:%02d", hour, minute), protocol, nil
}

func minutesOfDay(raw string) (int, error) {
	hour, minute, found := strings.Cut(strings.TrimSpace(raw), ":")
	if !found {
		return 0, fmt.Errorf("no colon in %q", raw)
	}
	h, err := strconv.Atoi(hour)
	if err != nil {
		return 0, err
	}
	m, err := strconv.Atoi(minute)
	if err != nil {
		return 0, err
	}
	return h*60 + m, nil
}

// visitEntries decodes the species table. A species that was present but
// not counted renders an image in the count cell, so its text extraction
// yields one column fewer; those rows get a count of zero.
func visitEntries(page crawler.Page, checklistID int) ([]checklist.Entry, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page.Body))
	if err != nil {
		return nil, crawler.NewExtractionError(page.URL, "parse popup: %v", err)
	}

	var entries []checklist.Entry
	var decodeErr error
	doc.Find("table.TableThin").First().Find("tr").EachWithBreak(func(i int, row *goquery.Selection) bool {
		if i == 0 {
			return true
		}
		var columns []string
		row.Find("td").Each(func(_ int, cell *goquery.Selection) {
			if text := strings.TrimSpace(cell.Text()); text != "" {
				columns = append(columns, text)
			}
		})
		if len(columns) == 0 {
			return true
		}
		if len(columns) < 4 {
			decodeErr = crawler.NewExtractionError(page.URL, "species row has %d columns, want at least 4", len(columns))
			return false
		}
		count := 0
		if len(columns) > 4 {
			count, decodeErr = parseCount(page.URL, columns[1])
			if decodeErr != nil {
				return false
			}
		}
		entries = append(entries, checklist.Entry{
			Identifier: strconv.Itoa(checklistID*1000 + len(entries)),
			Species:    checklist.Species{Name: columns[0]},
			Count:      count,
			Comment:    columns[3],
		})
		return true
	})
	if decodeErr != nil {
		return nil, decodeErr
	}
	return entries, nil
}

func parseCount(url, raw string) (int, error) {
	count, err := strconv.Atoi(raw)
	if err != nil {
		return 0, crawler.NewExtractionError(url, "unparsable species count %q", raw)
	}
	return count, nil
}

// LocationDetails is the partial view added by the location popup.
type LocationDetails struct {
	Country string
	Comment string
	Lat     float64
	Lon     float64
}

// DecodeLocation decodes the location details popup.
func DecodeLocation(page crawler.Page) (LocationDetails, error) {
	rows, err := popupRows(page)
	if err != nil {
		return LocationDetails{}, err
	}
	if len(rows) < 6 {
		return LocationDetails{}, crawler.NewExtractionError(page.URL, "location popup has %d rows, want at least 6", len(rows))
	}
	latText, lonText, found := strings.Cut(rows[2], ",")
	if !found {
		return LocationDetails{}, crawler.NewExtractionError(page.URL, "unparsable coordinates %q", rows[2])
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(latText), 64)
	if err != nil {
		return LocationDetails{}, crawler.NewExtractionError(page.URL, "unparsable latitude %q", latText)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(lonText), 64)
	if err != nil {
		return LocationDetails{}, crawler.NewExtractionError(page.URL, "unparsable longitude %q", lonText)
	}
	return LocationDetails{
		Country: rows[1],
		Comment: rows[5],
		Lat:     lat,
		Lon:     lon,
	}, nil
}

// ObserverDetails is the partial view added by the observer popup.
type ObserverDetails struct {
	Name string
}

// DecodeObserver decodes the observer details popup.
func DecodeObserver(page crawler.Page) (ObserverDetails, error) {
	rows, err := popupRows(page)
	if err != nil {
		return ObserverDetails{}, err
	}
	if len(rows) < 2 {
		return ObserverDetails{}, crawler.NewExtractionError(page.URL, "observer popup has %d rows, want at least 2", len(rows))
	}
	return ObserverDetails{Name: rows[1]}, nil
}
