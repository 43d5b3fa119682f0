package ebird

import (
	"bytes"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/checklisting/crawler/internal/checklist"
	"github.com/checklisting/crawler/internal/crawler"
)

var (
	durationHoursRe   = regexp.MustCompile(`(\d+) h`)
	durationMinutesRe = regexp.MustCompile(`(\d+) m`)
	kilometersRe      = regexp.MustCompile(`([\d.]+) k`)
	milesRe           = regexp.MustCompile(`([\d.]+) m`)
)

// PageDecoder extracts from the checklist web page the fields the API does
// not expose: the protocol, the extra observers and the per-entry comment
// and age/sex breakdown.
type PageDecoder struct {
	url   string
	doc   *goquery.Document
	attrs map[string]string
}

// DecodePage parses the checklist web page.
func DecodePage(page crawler.Page) (*PageDecoder, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page.Body))
	if err != nil {
		return nil, crawler.NewExtractionError(page.URL, "parse checklist page: %v", err)
	}
	d := &PageDecoder{url: page.URL, doc: doc}
	d.attrs = d.attributes()
	return d, nil
}

// attributes turns the page's definition list into a key/value map. Keys and
// values are zipped positionally, so a lopsided list only yields the pairs
// that line up.
func (d *PageDecoder) attributes() map[string]string {
	keys := checklist.CleanStrings(texts(d.doc.Find("dl dt")))
	values := checklist.CleanStrings(texts(d.doc.Find("dl dd")))
	attrs := make(map[string]string, len(keys))
	for i, key := range keys {
		if i >= len(values) {
			break
		}
		attrs[key] = values[i]
	}
	return attrs
}

// Update returns the partial checklist carried by the web page.
func (d *PageDecoder) Update() (checklist.Update, error) {
	protocol, err := d.protocol()
	if err != nil {
		return checklist.Update{}, err
	}
	entries, err := d.entries()
	if err != nil {
		return checklist.Update{}, err
	}
	return checklist.Update{
		Observers:     d.observers(),
		ObserverCount: d.observerCount(),
		Protocol:      protocol,
		Entries:       entries,
	}, nil
}

// protocol derives the protocol from the free-text Duration and Distance
// attributes. Distances are converted to whole meters, kilometers at 1000
// and miles at 1609, rounded to the nearest meter.
func (d *PageDecoder) protocol() (*checklist.Protocol, error) {
	hours, minutes, err := d.duration()
	if err != nil {
		return nil, err
	}
	distance, err := d.distance()
	if err != nil {
		return nil, err
	}
	return &checklist.Protocol{
		Name:            d.attrs["Protocol:"],
		DurationHours:   hours,
		DurationMinutes: minutes,
		Distance:        distance,
		Area:            0,
	}, nil
}

func (d *PageDecoder) duration() (int, int, error) {
	raw := d.attrs["Duration:"]
	hours := 0
	minutes := 0
	if strings.Contains(raw, "hour") {
		match := durationHoursRe.FindStringSubmatch(raw)
		if match == nil {
			return 0, 0, crawler.NewExtractionError(d.url, "unparsable duration %q", raw)
		}
		hours, _ = strconv.Atoi(match[1])
	}
	if strings.Contains(raw, "min") {
		match := durationMinutesRe.FindStringSubmatch(raw)
		if match == nil {
			return 0, 0, crawler.NewExtractionError(d.url, "unparsable duration %q", raw)
		}
		minutes, _ = strconv.Atoi(match[1])
	}
	return hours, minutes, nil
}

func (d *PageDecoder) distance() (int, error) {
	raw, ok := d.attrs["Distance:"]
	if !ok {
		return 0, nil
	}
	pattern := milesRe
	scale := 1609.0
	if strings.Contains(raw, "kilometer") {
		pattern = kilometersRe
		scale = 1000.0
	}
	match := pattern.FindStringSubmatch(raw)
	if match == nil {
		return 0, crawler.NewExtractionError(d.url, "unparsable distance %q", raw)
	}
	value, err := strconv.ParseFloat(match[1], 64)
	if err != nil {
		return 0, crawler.NewExtractionError(d.url, "unparsable distance %q", raw)
	}
	return int(math.Round(value * scale)), nil
}

// observers returns the additional observers, excluding the submitter.
func (d *PageDecoder) observers() []string {
	return checklist.CleanStrings(strings.Split(d.attrs["Observers:"], ","))
}

// observerCount returns the reported party size, zero when missing or
// unparsable.
func (d *PageDecoder) observerCount() int {
	count, err := strconv.Atoi(d.attrs["Party Size:"])
	if err != nil {
		return 0
	}
	return count
}

func (d *PageDecoder) entries() ([]checklist.EntryUpdate, error) {
	var entries []checklist.EntryUpdate
	var decodeErr error
	d.doc.Find("tr.spp-entry").EachWithBreak(func(_ int, row *goquery.Selection) bool {
		entry, err := d.entry(row)
		if err != nil {
			decodeErr = err
			return false
		}
		entries = append(entries, entry)
		return true
	})
	if decodeErr != nil {
		return nil, decodeErr
	}
	return entries, nil
}

func (d *PageDecoder) entry(row *goquery.Selection) (checklist.EntryUpdate, error) {
	name := strings.TrimSpace(row.Find("h5.se-name").First().Text())
	if name == "" {
		return checklist.EntryUpdate{}, crawler.NewExtractionError(d.url, "species entry without a name")
	}
	count, err := strconv.Atoi(strings.TrimSpace(row.Find("h5.se-count").First().Text()))
	if err != nil {
		count = 0
	}
	return checklist.EntryUpdate{
		Species: checklist.Species{Name: name},
		Count:   count,
		Comment: strings.TrimSpace(row.Find("p.obs-comments").First().Text()),
		Details: breakdown(row),
	}, nil
}

// breakdown decodes the age/sex table of an entry. The header row names the
// ages; each data row leads with the sex and carries one count cell per age.
// Rows without data cells render an image instead, so they are skipped.
func breakdown(row *goquery.Selection) []checklist.Detail {
	table := row.Find("div.sd-data-age-sex")
	ages := checklist.CleanStrings(texts(table.Find("tr th")))

	var details []checklist.Detail
	table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		cells := tr.Find("td")
		if cells.Length() == 0 {
			return
		}
		sex := strings.TrimSpace(cells.Eq(0).Text())
		for i, age := range ages {
			if i+1 >= cells.Length() {
				break
			}
			value := strings.TrimSpace(cells.Eq(i + 1).Text())
			if value == "" {
				continue
			}
			count, err := strconv.Atoi(value)
			if err != nil {
				continue
			}
			details = append(details, checklist.Detail{Age: age, Sex: sex, Count: count})
		}
	})
	return details
}

func texts(sel *goquery.Selection) []string {
	out := make([]string, 0, sel.Length())
	sel.Each(func(_ int, node *goquery.Selection) {
		out = append(out, node.Text())
	})
	return out
}
