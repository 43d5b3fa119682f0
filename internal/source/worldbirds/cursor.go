package worldbirds

import "time"

// Cursor walks the paged Visit Highlights listing. The listing is assumed to
// be sorted by visit date, newest first; the cursor stops requesting pages
// once the oldest row on the current page predates the cutoff. That
// assumption is inherited from the site and is not a guaranteed invariant,
// so the cursor also enforces a hard page bound and refuses to revisit an
// offset, guaranteeing termination and forward progress either way.
type Cursor struct {
	pageSize int
	maxPages int
	cutoff   time.Time

	offset int
	pages  int
	seen   map[int]struct{}
}

// NewCursor returns a cursor with the given page size, page bound and
// cutoff instant.
func NewCursor(pageSize, maxPages int, cutoff time.Time) *Cursor {
	return &Cursor{
		pageSize: pageSize,
		maxPages: maxPages,
		cutoff:   cutoff,
		seen:     map[int]struct{}{0: {}},
	}
}

// Cutoff returns the oldest visit date still eligible for this crawl.
func (c *Cursor) Cutoff() time.Time {
	return c.cutoff
}

// Include reports whether a single visit row is recent enough to dispatch a
// detail chain for. Rows past the cutoff on a still-eligible page are
// excluded individually.
func (c *Cursor) Include(v Visit) bool {
	return !v.Date.Before(c.cutoff)
}

// Next inspects the rows of the page just decoded and returns the offset of
// the next page to request. It returns false when the listing is exhausted:
// the page was empty, its oldest row predates the cutoff, the page bound is
// reached, or the next offset was already fetched.
func (c *Cursor) Next(visits []Visit) (int, bool) {
	if len(visits) == 0 {
		return 0, false
	}
	if visits[len(visits)-1].Date.Before(c.cutoff) {
		return 0, false
	}
	c.pages++
	if c.pages >= c.maxPages {
		return 0, false
	}
	c.offset += c.pageSize
	if _, ok := c.seen[c.offset]; ok {
		return 0, false
	}
	c.seen[c.offset] = struct{}{}
	return c.offset, true
}
