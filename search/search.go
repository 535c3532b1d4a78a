// Package search drives a paginated search session: it builds each results
// URL, fetches and extracts the page, and parses the videos into a store.
package search

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/nijaru/yt-search/config"
	apperrors "github.com/nijaru/yt-search/errors"
	"github.com/nijaru/yt-search/fetch"
	"github.com/nijaru/yt-search/htmljson"
	"github.com/nijaru/yt-search/parser"
	"github.com/nijaru/yt-search/store"
	"github.com/nijaru/yt-search/validation"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
	"golang.org/x/time/rate"
)

// recentFilter is the "sort by upload date" search filter. Its encoded form
// is encoded again on the wire, which the site expects.
const recentFilter = "CAI%3D"

// BuildURL returns the results URL for query. When next is non-nil the URL
// requests the page that pair points to.
func BuildURL(baseURL, query string, sortByRecent bool, next *parser.Continuation) string {
	params := url.Values{}
	params.Set("search_query", query)
	if sortByRecent {
		params.Set("sp", recentFilter)
	}
	if next != nil {
		params.Set("ctoken", next.Token)
		params.Set("continuation", next.Token)
		params.Set("itct", next.ClickTrackingParams)
	}
	return baseURL + "?" + params.Encode()
}

// Extractor turns a fetched page into its initial-data document.
type Extractor func(raw []byte, mobile bool) (gjson.Result, error)

type Request struct {
	Query string
	// Pages caps the number of pages fetched. Zero uses the configured default.
	Pages int
	// Prior resumes a session from a continuation pair obtained earlier.
	Prior *parser.Continuation
}

// Summary reports what one session did.
type Summary struct {
	SessionID string `json:"session_id"`
	Pages     int    `json:"pages"`
	Added     int    `json:"added"`
	Skipped   int    `json:"skipped"`
	Estimated int64  `json:"estimated_results"`
	// Next is the pair for the page after the last one fetched, if any.
	Next *parser.Continuation `json:"next,omitempty"`
}

type Searcher struct {
	fetcher fetch.Fetcher
	extract Extractor
	cfg     config.SearchConfig
	limiter *rate.Limiter
	dumpDir string
}

func NewSearcher(fetcher fetch.Fetcher, cfg config.SearchConfig) *Searcher {
	limit := rate.Inf
	if cfg.PageInterval > 0 {
		limit = rate.Every(cfg.PageInterval)
	}
	return &Searcher{
		fetcher: fetcher,
		extract: htmljson.Extract,
		cfg:     cfg,
		limiter: rate.NewLimiter(limit, 1),
	}
}

// WithDumpDir makes the searcher write every extracted document, pretty
// printed, into dir.
func (s *Searcher) WithDumpDir(dir string) *Searcher {
	s.dumpDir = dir
	return s
}

func (s *Searcher) baseURL() string {
	if s.cfg.Mobile {
		return s.cfg.MobileBaseURL
	}
	return s.cfg.DesktopBaseURL
}

// Search runs one session, inserting every parsed video into st. Pages are
// fetched until no continuation remains or the page budget is spent. The
// summary is returned alongside any error so partial progress is visible.
func (s *Searcher) Search(ctx context.Context, req Request, st *store.Store) (Summary, error) {
	const op = "search.Search"

	sum := Summary{SessionID: uuid.New().String()}

	query, err := validation.ValidateQuery(req.Query)
	if err != nil {
		return sum, apperrors.InvalidInput(op, err, err.Error())
	}
	next := req.Prior
	if next != nil {
		if err := validation.ValidateContinuation(next.Token, next.ClickTrackingParams); err != nil {
			return sum, apperrors.InvalidInput(op, err, err.Error())
		}
	}
	pages := req.Pages
	if pages <= 0 {
		pages = s.cfg.MaxPages
	}

	log := logrus.WithFields(logrus.Fields{
		"session": sum.SessionID,
		"query":   query,
		"mobile":  s.cfg.Mobile,
	})
	log.WithField("pages", pages).Info("Starting search")

	for page := 0; page < pages; page++ {
		if err := s.limiter.Wait(ctx); err != nil {
			return sum, apperrors.FetchFailed(op, err, "search cancelled")
		}

		pageURL := BuildURL(s.baseURL(), query, s.cfg.SortByRecent, next)
		log.WithFields(logrus.Fields{"page": page + 1, "url": pageURL}).Debug("Fetching results page")

		raw, err := s.fetcher.Get(ctx, pageURL, s.cfg.Mobile)
		if err != nil {
			return sum, err
		}
		doc, err := s.extract(raw, s.cfg.Mobile)
		if err != nil {
			return sum, err
		}
		sum.Pages++
		s.dump(log, sum.SessionID, page+1, doc)

		added, skipped := parser.ParseInto(doc, st)
		sum.Added += added
		sum.Skipped += skipped
		log.WithFields(logrus.Fields{
			"page":    page + 1,
			"added":   added,
			"skipped": skipped,
			"total":   st.Len(),
		}).Info("Parsed results page")

		if page == 0 {
			estimated, err := parser.EstimatedResults(doc)
			switch {
			case err != nil && req.Prior == nil:
				return sum, err
			case err != nil:
				log.WithError(err).Debug("Continuation page has no estimated result count")
			default:
				sum.Estimated = estimated
				log.WithField("estimated", estimated).Info("Search found results")
				if estimated == 0 {
					log.Info("No results found")
					return sum, nil
				}
			}
		}

		c, ok := parser.NextContinuation(doc)
		if !ok {
			sum.Next = nil
			break
		}
		sum.Next = &c
		next = &c
	}

	log.WithFields(logrus.Fields{
		"pages":   sum.Pages,
		"added":   sum.Added,
		"skipped": sum.Skipped,
		"more":    sum.Next != nil,
	}).Info("Search finished")
	return sum, nil
}

// dump writes doc to the dump directory. Failures are logged and ignored.
func (s *Searcher) dump(log *logrus.Entry, sessionID string, page int, doc gjson.Result) {
	if s.dumpDir == "" {
		return
	}
	if err := writeDump(s.dumpDir, sessionID, page, doc); err != nil {
		log.WithError(err).Warn("Failed to write JSON dump")
	}
}

func writeDump(dir, sessionID string, page int, doc gjson.Result) error {
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return errors.Wrapf(err, "error creating dump directory %s", dir)
	}
	path := filepath.Join(dir, fmt.Sprintf("%s-page%d.json", sessionID, page))
	if err := os.WriteFile(path, pretty.Pretty([]byte(doc.Raw)), 0o644); err != nil {
		return errors.Wrapf(err, "error writing %s", path)
	}
	return nil
}
