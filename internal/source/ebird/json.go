// Package ebird crawls recent checklists from the eBird database. The API
// supplies the observations for a region and, per location, the full result
// fields; the checklist web page supplies what the API leaves out (protocol,
// extra observers, age/sex breakdowns).
package ebird

import (
	"encoding/json"
	"strings"

	"github.com/checklisting/crawler/internal/checklist"
	"github.com/checklisting/crawler/internal/crawler"
)

// observation is one row returned by the eBird API. Rows from the simple
// result set leave the optional fields empty; rows from the full result set
// carry them all.
type observation struct {
	FirstName        string  `json:"firstName"`
	LastName         string  `json:"lastName"`
	ObsDt            string  `json:"obsDt"`
	SubID            string  `json:"subID"`
	ObsID            string  `json:"obsID"`
	LocID            string  `json:"locID"`
	LocName          string  `json:"locName"`
	Subnational1Name string  `json:"subnational1Name"`
	Subnational2Name string  `json:"subnational2Name"`
	CountryName      string  `json:"countryName"`
	Lat              float64 `json:"lat"`
	Lng              float64 `json:"lng"`
	ComName          string  `json:"comName"`
	SciName          string  `json:"sciName"`
	HowMany          int     `json:"howMany"`
}

// locationKey is the projection of an observation onto the fields that
// identify a location. Rows are projected first and then deduplicated on the
// exact projection, preserving first-seen order.
type locationKey struct {
	LocID   string
	LocName string
	County  string
	Region  string
	Country string
	Lat     float64
	Lng     float64
}

// APIDecoder extracts locations and checklists from one API response.
type APIDecoder struct {
	rows []observation
}

// DecodeAPI parses the JSON array of observations in the page.
func DecodeAPI(page crawler.Page) (*APIDecoder, error) {
	var rows []observation
	if err := json.Unmarshal(page.Body, &rows); err != nil {
		return nil, crawler.NewExtractionError(page.URL, "decode observations: %v", err)
	}
	return &APIDecoder{rows: rows}, nil
}

// Locations returns the distinct locations referenced by the observations,
// in first-seen order.
func (d *APIDecoder) Locations() []checklist.Location {
	seen := make(map[locationKey]struct{}, len(d.rows))
	var out []checklist.Location
	for _, row := range d.rows {
		key := projectLocation(row)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, location(key))
	}
	return out
}

// Checklists returns one checklist per distinct subject id. The first row
// with a given id supplies the header fields; every row with that id becomes
// an entry. Duplicate species within one checklist are legal because entries
// map to distinct observation ids, not species.
func (d *APIDecoder) Checklists() []*checklist.Checklist {
	byID := make(map[string]*checklist.Checklist, len(d.rows))
	var out []*checklist.Checklist
	for _, row := range d.rows {
		c, ok := byID[strings.TrimSpace(row.SubID)]
		if !ok {
			c = d.header(row)
			byID[c.Identifier] = c
			out = append(out, c)
		}
		c.Entries = append(c.Entries, entry(row))
	}
	return out
}

func (d *APIDecoder) header(row observation) *checklist.Checklist {
	name := strings.TrimSpace(row.FirstName) + " " + strings.TrimSpace(row.LastName)
	date, timeOfDay := splitTimestamp(row.ObsDt)
	return &checklist.Checklist{
		Version:     checklist.FormatVersion,
		Language:    checklist.Language,
		Identifier:  strings.TrimSpace(row.SubID),
		Location:    location(projectLocation(row)),
		Date:        date,
		Time:        timeOfDay,
		SubmittedBy: name,
		Observers:   []string{name},
		Source:      sourceName,
	}
}

func projectLocation(row observation) locationKey {
	return locationKey{
		LocID:   row.LocID,
		LocName: row.LocName,
		County:  row.Subnational2Name,
		Region:  row.Subnational1Name,
		Country: row.CountryName,
		Lat:     row.Lat,
		Lng:     row.Lng,
	}
}

func location(key locationKey) checklist.Location {
	return checklist.Location{
		Identifier: key.LocID,
		Name:       key.LocName,
		County:     key.County,
		Region:     key.Region,
		Country:    key.Country,
		Lat:        key.Lat,
		Lon:        key.Lng,
	}
}

func entry(row observation) checklist.Entry {
	return checklist.Entry{
		Identifier: row.ObsID,
		Species: checklist.Species{
			Name:           row.ComName,
			ScientificName: row.SciName,
		},
		Count: row.HowMany,
	}
}

// splitTimestamp splits an observation timestamp into its date and time
// components. Timestamps without a time component get the default time.
func splitTimestamp(obsDt string) (string, string) {
	date, timeOfDay, found := strings.Cut(strings.TrimSpace(obsDt), " ")
	if !found {
		return date, checklist.DefaultTime
	}
	return date, timeOfDay
}
