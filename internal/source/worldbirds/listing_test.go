package worldbirds

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/checklisting/crawler/internal/crawler"
)

const listingHTML = `<html><body>
<table class="StandardTable">
  <tr><th>Date</th><th>Location</th><th>Observer</th><th>Highlights</th></tr>
  <tr>
    <td>01/04/2013</td>
    <td><a onclick="doLocation(56)">Lagoa de Santo Andre</a></td>
    <td><a onclick="doObserver(817)">Rui Costa</a></td>
    <td><a onclick="doHighlights(this, 1234)">view</a></td>
  </tr>
  <tr>
    <td>30/03/2013</td>
    <td><a onclick="doLocation(57)">Cabo Espichel</a></td>
    <td><a onclick="doObserver(211)">Ana Silva</a></td>
    <td><a onclick="doHighlights(this, 1230)">view</a></td>
  </tr>
</table>
</body></html>`

func TestDecodeVisitsZipsColumnsInRowOrder(t *testing.T) {
	t.Parallel()

	visits, err := DecodeVisits(crawler.Page{
		URL:  "http://birdlaa5.memset.net/worldbirds/latest_news.php",
		Body: []byte(listingHTML),
	})
	require.NoError(t, err)

	require.Equal(t, []Visit{
		{
			Date:        time.Date(2013, time.April, 1, 0, 0, 0, 0, time.UTC),
			ChecklistID: 1234,
			LocationID:  56,
			ObserverID:  817,
		},
		{
			Date:        time.Date(2013, time.March, 30, 0, 0, 0, 0, time.UTC),
			ChecklistID: 1230,
			LocationID:  57,
			ObserverID:  211,
		},
	}, visits)
}

func TestDecodeVisitsEmptyTableYieldsNoVisits(t *testing.T) {
	t.Parallel()

	visits, err := DecodeVisits(crawler.Page{
		URL:  "http://birdlaa5.memset.net/worldbirds/latest_news.php",
		Body: []byte(`<html><body><table class="StandardTable"><tr><th>Date</th></tr></table></body></html>`),
	})
	require.NoError(t, err)
	require.Empty(t, visits)
}

func TestDecodeVisitsRejectsMisalignedColumns(t *testing.T) {
	t.Parallel()

	// Two dates but only one of each popup link: zipping would misattribute
	// a record, so the whole page must fail.
	misaligned := `<html><body>
	<table class="StandardTable">
	  <tr>
	    <td>01/04/2013</td>
	    <td><a onclick="doLocation(56)">Lagoa de Santo Andre</a></td>
	    <td><a onclick="doObserver(817)">Rui Costa</a></td>
	    <td><a onclick="doHighlights(this, 1234)">view</a></td>
	  </tr>
	  <tr>
	    <td>30/03/2013</td>
	  </tr>
	</table>
	</body></html>`

	_, err := DecodeVisits(crawler.Page{
		URL:  "http://birdlaa5.memset.net/worldbirds/latest_news.php",
		Body: []byte(misaligned),
	})

	var extraction *crawler.ExtractionError
	require.ErrorAs(t, err, &extraction)
	require.Contains(t, extraction.Detail, "misaligned")
}

func TestDecodeVisitsRejectsUnparsableHandler(t *testing.T) {
	t.Parallel()

	broken := `<html><body>
	<table class="StandardTable">
	  <tr>
	    <td>01/04/2013</td>
	    <td><a onclick="doLocation(oops)">x</a></td>
	    <td><a onclick="doObserver(817)">x</a></td>
	    <td><a onclick="doHighlights(this, 1234)">x</a></td>
	  </tr>
	</table>
	</body></html>`

	_, err := DecodeVisits(crawler.Page{
		URL:  "http://birdlaa5.memset.net/worldbirds/latest_news.php",
		Body: []byte(broken),
	})

	var extraction *crawler.ExtractionError
	require.ErrorAs(t, err, &extraction)
}
