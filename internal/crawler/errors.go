package crawler

import "fmt"

// ExtractionError reports a page a decoder could not parse: a missing field,
// an unexpected table shape, an unparsable value. It is fatal for the record
// whose chain produced it; the crawl continues with other records.
type ExtractionError struct {
	URL    string
	Detail string
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s: %s", e.URL, e.Detail)
}

// NewExtractionError builds an ExtractionError for the given page.
func NewExtractionError(url, format string, args ...any) *ExtractionError {
	return &ExtractionError{URL: url, Detail: fmt.Sprintf(format, args...)}
}

// CorrelationError reports a response whose embedded identifier does not
// match the identifier recorded in the continuation context attached to the
// originating request. The record is dropped rather than guessed at.
type CorrelationError struct {
	URL  string
	Want string
	Got  string
}

func (e *CorrelationError) Error() string {
	return fmt.Sprintf("response %s does not match its request: identifiers %s != %s", e.URL, e.Got, e.Want)
}

// SessionError reports a session-dependent fetch that landed on an
// unexpected page, typically a redirect back to the login form. Every
// subsequent paginated fetch depends on the session, so this aborts the
// whole crawl.
type SessionError struct {
	URL string
}

func (e *SessionError) Error() string {
	return fmt.Sprintf("session lost: unexpected page %s", e.URL)
}
