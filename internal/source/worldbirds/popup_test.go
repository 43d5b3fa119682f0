package worldbirds

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/checklisting/crawler/internal/checklist"
	"github.com/checklisting/crawler/internal/crawler"
)

// visitPopupHTML mimics the VisitHighlightsDetails popup: a positional
// details table followed by the species table.
func visitPopupHTML(timeSpan, observerCount string) string {
	html := `<html><body>
<table class="PopupTable">
  <tr><td>Lagoa de Santo Andre</td></tr>
  <tr><td>Site visit</td></tr>
  <tr><td>01-04-2013</td></tr>
  <tr><td>` + timeSpan + `</td></tr>
  <tr><td></td></tr>
  <tr><td>` + observerCount + `</td></tr>
  <tr><td>Rui Costa, Ana Silva</td></tr>
  <tr><td></td></tr>
</table>
<table class="TableThin">
  <tr><th>Species</th><th>Count</th><th>Status</th><th>Comment</th><th>Breeding</th></tr>
  <tr><td>Greater Flamingo</td><td>120</td><td>Seen</td><td>on the lagoon</td><td>No</td></tr>
  <tr><td>Little Egret</td><td><img src="present.gif"></td><td>Seen</td><td>present only</td><td>fishing</td></tr>
</table>
</body></html>`
	return html
}

const visitPopupURL = "http://birdlaa5.memset.net/worldbirds/getdata.php?a=VisitHighlightsDetails&id=1234&m=1"

func TestDecodeChecklistFromVisitPopup(t *testing.T) {
	t.Parallel()

	visit := Visit{ChecklistID: 1234, LocationID: 56, ObserverID: 817}
	c, err := DecodeChecklist(crawler.Page{
		URL:  visitPopupURL,
		Body: []byte(visitPopupHTML("07:15 - 09:00", "2")),
	}, visit)
	require.NoError(t, err)

	require.Equal(t, checklist.FormatVersion, c.Version)
	require.Equal(t, "1234", c.Identifier)
	require.Equal(t, "WorldBirds", c.Source)
	require.Equal(t, "2013-04-01", c.Date)
	require.Equal(t, "07:15", c.Time)
	require.Equal(t, "Lagoa de Santo Andre", c.Location.Name)
	require.Equal(t, []string{"Rui Costa", "Ana Silva"}, c.Observers)
	require.Equal(t, 2, c.ObserverCount)

	require.Equal(t, &checklist.Protocol{
		Name:            "Timed visit",
		DurationHours:   1,
		DurationMinutes: 45,
	}, c.Protocol)
}

func TestDecodeChecklistEntries(t *testing.T) {
	t.Parallel()

	c, err := DecodeChecklist(crawler.Page{
		URL:  visitPopupURL,
		Body: []byte(visitPopupHTML("07:15 - 09:00", "2")),
	}, Visit{ChecklistID: 1234})
	require.NoError(t, err)

	require.Len(t, c.Entries, 2)

	flamingo := c.Entries[0]
	require.Equal(t, "1234000", flamingo.Identifier)
	require.Equal(t, "Greater Flamingo", flamingo.Species.Name)
	require.Equal(t, 120, flamingo.Count)
	require.Equal(t, "on the lagoon", flamingo.Comment)

	// The count cell renders an image when the species was present but not
	// counted, so its row comes out one column short.
	egret := c.Entries[1]
	require.Equal(t, "1234001", egret.Identifier)
	require.Equal(t, 0, egret.Count)
	require.Equal(t, "fishing", egret.Comment)
}

func TestDecodeChecklistRejectsBackwardsTimeSpan(t *testing.T) {
	t.Parallel()

	_, err := DecodeChecklist(crawler.Page{
		URL:  visitPopupURL,
		Body: []byte(visitPopupHTML("21:00 - 07:00", "2")),
	}, Visit{ChecklistID: 1234})

	var extraction *crawler.ExtractionError
	require.ErrorAs(t, err, &extraction)
	require.Contains(t, extraction.Detail, "negative")
}

func TestDecodeChecklistRejectsUnparsableObserverCount(t *testing.T) {
	t.Parallel()

	_, err := DecodeChecklist(crawler.Page{
		URL:  visitPopupURL,
		Body: []byte(visitPopupHTML("07:15 - 09:00", "two")),
	}, Visit{ChecklistID: 1234})

	var extraction *crawler.ExtractionError
	require.ErrorAs(t, err, &extraction)
}

func TestDecodeChecklistRejectsTruncatedPopup(t *testing.T) {
	t.Parallel()

	_, err := DecodeChecklist(crawler.Page{
		URL:  visitPopupURL,
		Body: []byte(`<html><body><table class="PopupTable"><tr><td>x</td></tr></table></body></html>`),
	}, Visit{ChecklistID: 1234})

	var extraction *crawler.ExtractionError
	require.ErrorAs(t, err, &extraction)
}

const locationPopupHTML = `<html><body>
<table class="PopupTable">
  <tr><td>Lagoa de Santo Andre</td></tr>
  <tr><td>Portugal</td></tr>
  <tr><td>38.093 , -8.794</td></tr>
  <tr><td>Setubal</td></tr>
  <tr><td>Coastal lagoon</td></tr>
  <tr><td>Best in spring</td></tr>
</table>
</body></html>`

func TestDecodeLocationPopup(t *testing.T) {
	t.Parallel()

	details, err := DecodeLocation(crawler.Page{
		URL:  "http://birdlaa5.memset.net/worldbirds/getdata.php?a=LocationDetails&id=56&m=1",
		Body: []byte(locationPopupHTML),
	})
	require.NoError(t, err)

	require.Equal(t, LocationDetails{
		Country: "Portugal",
		Comment: "Best in spring",
		Lat:     38.093,
		Lon:     -8.794,
	}, details)
}

func TestDecodeLocationRejectsUnparsableCoordinates(t *testing.T) {
	t.Parallel()

	broken := strings.Replace(locationPopupHTML, "38.093 , -8.794", "unknown", 1)
	_, err := DecodeLocation(crawler.Page{
		URL:  "http://birdlaa5.memset.net/worldbirds/getdata.php?a=LocationDetails&id=56&m=1",
		Body: []byte(broken),
	})

	var extraction *crawler.ExtractionError
	require.ErrorAs(t, err, &extraction)
}

func TestDecodeObserverPopup(t *testing.T) {
	t.Parallel()

	details, err := DecodeObserver(crawler.Page{
		URL: "http://birdlaa5.memset.net/worldbirds/getdata.php?a=ObserverDetails&id=817&m=1",
		Body: []byte(`<html><body><table class="PopupTable">
			<tr><td>Observer</td></tr>
			<tr><td>Rui Costa</td></tr>
		</table></body></html>`),
	})
	require.NoError(t, err)
	require.Equal(t, ObserverDetails{Name: "Rui Costa"}, details)
}

func TestDecodeObserverRejectsTruncatedPopup(t *testing.T) {
	t.Parallel()

	_, err := DecodeObserver(crawler.Page{
		URL:  "http://birdlaa5.memset.net/worldbirds/getdata.php?a=ObserverDetails&id=817&m=1",
		Body: []byte(`<html><body><table class="PopupTable"><tr><td>Observer</td></tr></table></body></html>`),
	})

	var extraction *crawler.ExtractionError
	require.ErrorAs(t, err, &extraction)
}
