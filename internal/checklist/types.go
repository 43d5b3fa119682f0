// Package checklist defines the canonical record produced by every crawl
// source, the JSON wire format consumed by downstream database loaders, and
// the merge rules used to reconcile two partial views of the same record.
package checklist

import "strings"

// FormatVersion is the schema version written into every checklist file.
const FormatVersion = 1

// Language is the ISO 639-1 code for the language used in checklist files.
const Language = "en"

// DefaultTime is used when a source reports a date without a time component.
const DefaultTime = "12:00"

// TimeUnknown is the sentinel used when no time can be determined at all.
const TimeUnknown = "--:--"

// Checklist is one submitted observation report, the canonical unit of
// output. Identifier and Source together uniquely identify a checklist.
type Checklist struct {
	Version       int       `json:"version"`
	Language      string    `json:"language"`
	Identifier    string    `json:"identifier"`
	Location      Location  `json:"location"`
	Date          string    `json:"date"`
	Time          string    `json:"time"`
	SubmittedBy   string    `json:"submitted_by"`
	Observers     []string  `json:"observers"`
	ObserverCount int       `json:"observer_count,omitempty"`
	Source        string    `json:"source"`
	Protocol      *Protocol `json:"protocol,omitempty"`
	Entries       []Entry   `json:"entries"`
	URL           string    `json:"url,omitempty"`
}

// Location is the site where a checklist was recorded. Identifier is only
// present for API-sourced records until a scrape-sourced record is enriched.
type Location struct {
	Identifier string  `json:"identifier,omitempty"`
	Name       string  `json:"name"`
	Country    string  `json:"country,omitempty"`
	Region     string  `json:"region,omitempty"`
	County     string  `json:"county,omitempty"`
	Comment    string  `json:"comment,omitempty"`
	Lat        float64 `json:"lat"`
	Lon        float64 `json:"lon"`
}

// Protocol describes how the birds in a checklist were counted. Distance is
// in meters and is zero for protocols that are not distance based. Area is
// reserved and currently always zero.
type Protocol struct {
	Name            string `json:"name"`
	DurationHours   int    `json:"duration_hours"`
	DurationMinutes int    `json:"duration_minutes"`
	Distance        int    `json:"distance"`
	Area            int    `json:"area"`
}

// Entry is one line item in a checklist: a count for a single species,
// possibly with a breakdown of the count by age and sex. A count of zero
// means the species was present but not counted.
type Entry struct {
	Identifier string   `json:"identifier"`
	Species    Species  `json:"species"`
	Count      int      `json:"count"`
	Comment    string   `json:"comment,omitempty"`
	Details    []Detail `json:"details,omitempty"`
}

// Species names the bird recorded in an entry.
type Species struct {
	Name           string `json:"name"`
	ScientificName string `json:"scientific_name,omitempty"`
}

// Detail is one row of an age and sex breakdown for an entry count.
type Detail struct {
	Age   string `json:"age"`
	Sex   string `json:"sex"`
	Count int    `json:"count"`
}

// Clone returns a deep copy of the checklist.
func (c *Checklist) Clone() *Checklist {
	if c == nil {
		return nil
	}
	out := *c
	out.Observers = append([]string(nil), c.Observers...)
	out.Protocol = c.Protocol.Clone()
	out.Entries = make([]Entry, len(c.Entries))
	for i, e := range c.Entries {
		out.Entries[i] = e.Clone()
	}
	return &out
}

// Clone returns a deep copy of the protocol.
func (p *Protocol) Clone() *Protocol {
	if p == nil {
		return nil
	}
	out := *p
	return &out
}

// Clone returns a deep copy of the entry.
func (e Entry) Clone() Entry {
	out := e
	out.Details = append([]Detail(nil), e.Details...)
	return out
}

// CleanStrings trims the whitespace around each value and drops values that
// are empty afterwards.
func CleanStrings(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// Warnings reports unusual field values that do not stop a checklist from
// being saved but are worth surfacing in the end-of-crawl report.
func Warnings(c *Checklist) []string {
	var msgs []string
	for _, entry := range c.Entries {
		total := 0
		for _, d := range entry.Details {
			total += d.Count
		}
		if entry.Count > 0 && total > entry.Count {
			msgs = append(msgs, "breakdown for "+entry.Species.Name+" exceeds the entry count")
		}
	}
	return msgs
}
