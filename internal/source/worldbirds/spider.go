package worldbirds

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/checklisting/crawler/internal/checklist"
	"github.com/checklisting/crawler/internal/crawler"
	"github.com/checklisting/crawler/internal/metrics"
)

const sourceName = "WorldBirds"

// The listing shows ten visits per page, controlled by a hidden form field.
const pageSize = 10

const (
	listingPath  = "latest_news.php"
	listingURL   = "http://%s/worldbirds/latestnews.php"
	checklistURL = "http://%s/worldbirds/getdata.php?a=VisitHighlightsDetails&id=%d&m=1"
	locationURL  = "http://%s/worldbirds/getdata.php?a=LocationDetails&id=%d"
	observerURL  = "http://%s/worldbirds/getdata.php?a=ObserverDetails&id=%d"
)

// databases maps a two letter ISO 3166-1 country code to the login page of
// the WorldBirds database hosting that country's records.
var databases = map[string]string{
	"pt": "http://birdlaa5.memset.net/worldbirds/portugal.php",
}

// Config controls one WorldBirds crawl. Username, password and country are
// all required; the databases need an account to be browsed at all.
type Config struct {
	Username     string
	Password     string
	Country      string
	LookbackDays int
	// MaxPages bounds pagination in case the listing is not sorted the way
	// the cutoff check assumes.
	MaxPages int
}

// continuation carries one visit's state between the fetches of its chain:
// the identifiers extracted from its listing row plus the checklist
// accumulated so far. Each stage copies it forward with its own contribution
// added rather than mutating it.
type continuation struct {
	visit     Visit
	checklist *checklist.Checklist
}

func (c continuation) withChecklist(cl *checklist.Checklist) continuation {
	return continuation{visit: c.visit, checklist: cl}
}

// Spider assembles checklists from the Visit Highlights listing: it logs
// in, pages through the listing until the cutoff, and for each eligible row
// chains the checklist, location and observer popups into one record.
type Spider struct {
	cfg       Config
	startURL  string
	server    string
	scheduler crawler.Scheduler
	sink      crawler.Sink
	clock     crawler.Clock
	logger    *zap.Logger
}

// New builds a Spider. Missing credentials or an unsupported country are
// configuration errors and fail here, before any fetch is issued.
func New(
	cfg Config,
	scheduler crawler.Scheduler,
	sink crawler.Sink,
	clock crawler.Clock,
	logger *zap.Logger,
) (*Spider, error) {
	if cfg.Username == "" {
		return nil, errors.New("worldbirds: a username is required to log in")
	}
	if cfg.Password == "" {
		return nil, errors.New("worldbirds: a password is required to log in")
	}
	if cfg.Country == "" {
		return nil, errors.New("worldbirds: a database country code is required")
	}
	startURL, ok := databases[strings.ToLower(cfg.Country)]
	if !ok {
		return nil, fmt.Errorf("worldbirds: country %q is not supported", cfg.Country)
	}
	if cfg.LookbackDays <= 0 {
		cfg.LookbackDays = 7
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 50
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	parsed, err := url.Parse(startURL)
	if err != nil {
		return nil, fmt.Errorf("worldbirds: parse database url: %w", err)
	}
	return &Spider{
		cfg:       cfg,
		startURL:  startURL,
		server:    parsed.Host,
		scheduler: scheduler,
		sink:      sink,
		clock:     clock,
		logger:    logger,
	}, nil
}

// Run crawls the configured database and returns the accumulated results.
// Losing the session aborts the crawl; everything else is per record.
func (s *Spider) Run(ctx context.Context) (*crawler.Results, error) {
	results := crawler.NewResults()

	page, err := s.login(ctx)
	if err != nil {
		return results, err
	}

	cutoff := s.clock.Now().AddDate(0, 0, -s.cfg.LookbackDays)
	cursor := NewCursor(pageSize, s.cfg.MaxPages, cutoff)
	s.logger.Info("downloading checklists",
		zap.String("database", s.startURL),
		zap.Time("cutoff", cutoff),
	)

	for {
		if err := checkSession(page); err != nil {
			metrics.ObserveError(sourceName, metrics.KindSession)
			return results, err
		}
		visits, err := DecodeVisits(page)
		if err != nil {
			metrics.ObserveError(sourceName, metrics.KindExtraction)
			return results, err
		}

		for _, visit := range visits {
			if !cursor.Include(visit) {
				continue
			}
			if err := s.crawlVisit(ctx, visit, results); err != nil {
				if ctx.Err() != nil {
					return results, ctx.Err()
				}
				results.AddError(fmt.Sprintf(checklistURL, s.server, visit.ChecklistID), err)
				s.recordErrorMetric(err)
				s.logger.Error("visit chain failed",
					zap.Int("checklist_id", visit.ChecklistID), zap.Error(err))
			}
		}

		offset, ok := cursor.Next(visits)
		if !ok {
			return results, nil
		}
		page, err = s.scheduler.Submit(ctx, crawler.Request{
			URL:  fmt.Sprintf(listingURL, s.server),
			Form: url.Values{"hdnVisitStart": {strconv.Itoa(offset)}},
		})
		if err != nil {
			return results, fmt.Errorf("fetch listing page at offset %d: %w", offset, err)
		}
		metrics.ObserveFetch(sourceName)
	}
}

// login fetches the database home page to establish a session cookie, then
// posts the two-field login form. The response is the first listing page.
func (s *Spider) login(ctx context.Context) (crawler.Page, error) {
	if _, err := s.scheduler.Submit(ctx, crawler.Request{URL: s.startURL}); err != nil {
		return crawler.Page{}, fmt.Errorf("fetch login page: %w", err)
	}
	metrics.ObserveFetch(sourceName)

	page, err := s.scheduler.Submit(ctx, crawler.Request{
		URL: s.startURL,
		Form: url.Values{
			"txtUserName": {s.cfg.Username},
			"txtPassword": {s.cfg.Password},
		},
	})
	if err != nil {
		return crawler.Page{}, fmt.Errorf("submit login form: %w", err)
	}
	metrics.ObserveFetch(sourceName)
	return page, nil
}

// checkSession verifies that a listing fetch actually landed on the Latest
// News page. Anything else means the session is gone and every following
// fetch would fail the same way.
func checkSession(page crawler.Page) error {
	if !strings.HasSuffix(page.URL, listingPath) {
		return &crawler.SessionError{URL: page.URL}
	}
	return nil
}

// crawlVisit runs the three-stage popup chain for one listing row. Each
// stage issues exactly one fetch, verifies the response belongs to this
// row's continuation, and extends the continuation with its contribution.
func (s *Spider) crawlVisit(ctx context.Context, visit Visit, results *crawler.Results) error {
	cont := continuation{visit: visit}

	page, err := s.fetchPopup(ctx, fmt.Sprintf(checklistURL, s.server, visit.ChecklistID), visit.ChecklistID)
	if err != nil {
		return err
	}
	cl, err := DecodeChecklist(page, visit)
	if err != nil {
		return err
	}
	cont = cont.withChecklist(cl)

	page, err = s.fetchPopup(ctx, fmt.Sprintf(locationURL, s.server, visit.LocationID), visit.LocationID)
	if err != nil {
		return err
	}
	loc, err := DecodeLocation(page)
	if err != nil {
		return err
	}
	cont = cont.withChecklist(enrichLocation(cont.checklist, visit, loc))

	page, err = s.fetchPopup(ctx, fmt.Sprintf(observerURL, s.server, visit.ObserverID), visit.ObserverID)
	if err != nil {
		return err
	}
	observer, err := DecodeObserver(page)
	if err != nil {
		return err
	}
	complete := cont.checklist.Clone()
	complete.SubmittedBy = observer.Name

	if err := s.sink.Save(ctx, complete); err != nil {
		return fmt.Errorf("save checklist %s: %w", complete.Identifier, err)
	}
	results.AddSaved(complete)
	results.AddWarning(complete, checklist.Warnings(complete))
	metrics.ObserveSaved(sourceName)
	s.logger.Debug("checklist saved",
		zap.String("identifier", complete.Identifier),
		zap.String("date", complete.Date),
		zap.String("location", complete.Location.Name),
	)
	return nil
}

// fetchPopup issues one popup fetch and confirms the response embeds the
// identifier the continuation expects before anyone consumes it.
func (s *Spider) fetchPopup(ctx context.Context, popupURL string, id int) (crawler.Page, error) {
	page, err := s.scheduler.Submit(ctx, crawler.Request{URL: popupURL})
	if err != nil {
		return crawler.Page{}, err
	}
	metrics.ObserveFetch(sourceName)

	want := strconv.Itoa(id)
	if got := responseID(page.URL); got != want {
		return crawler.Page{}, &crawler.CorrelationError{URL: page.URL, Want: want, Got: got}
	}
	return page, nil
}

// responseID extracts the identifier embedded in a popup response URL.
func responseID(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return parsed.Query().Get("id")
}

// enrichLocation returns a copy of the checklist with the location popup's
// contribution applied. The listing row's location identifier is attached
// here; scrape-sourced records have none until this stage.
func enrichLocation(c *checklist.Checklist, visit Visit, details LocationDetails) *checklist.Checklist {
	out := c.Clone()
	out.Location.Identifier = strconv.Itoa(visit.LocationID)
	out.Location.Country = details.Country
	out.Location.Comment = details.Comment
	out.Location.Lat = details.Lat
	out.Location.Lon = details.Lon
	return out
}

func (s *Spider) recordErrorMetric(err error) {
	var correlation *crawler.CorrelationError
	var extraction *crawler.ExtractionError
	switch {
	case errors.As(err, &correlation):
		metrics.ObserveError(sourceName, metrics.KindCorrelation)
	case errors.As(err, &extraction):
		metrics.ObserveError(sourceName, metrics.KindExtraction)
	default:
		metrics.ObserveError(sourceName, metrics.KindFetch)
	}
}
