// Package parser turns a search results document into videos and the token
// pair needed to request the next page.
package parser

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	apperrors "github.com/nijaru/yt-search/errors"
	"github.com/nijaru/yt-search/extract"
	"github.com/nijaru/yt-search/models"
	"github.com/nijaru/yt-search/store"
	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
)

const (
	VideoEntryKey       = "compactVideoRenderer"
	ContinuationKey     = "nextContinuationData"
	EstimatedResultsKey = "estimatedResults"
)

var ErrNoEstimatedResults = apperrors.MissingData("parser.EstimatedResults", nil, "search results have no estimated result count")

// Continuation is the token pair that requests the next page of results.
type Continuation struct {
	Token               string `json:"continuation"`
	ClickTrackingParams string `json:"click_tracking_params"`
}

// FieldError reports a required field missing from one video entry.
type FieldError struct {
	VideoID string
	Field   string
}

func (e *FieldError) Error() string {
	if e.VideoID == "" {
		return fmt.Sprintf("video entry missing %s", e.Field)
	}
	return fmt.Sprintf("video %s missing %s", e.VideoID, e.Field)
}

// Skip is an entry that was dropped, with the reason.
type Skip struct {
	VideoID string
	Field   string
	Err     error
}

type Result struct {
	Videos  []models.Video
	Skipped []Skip
}

// Parse extracts every video entry found in doc. Entries missing a required
// field are dropped and reported in Result.Skipped.
func Parse(doc gjson.Result) Result {
	var res Result
	for entry := range extract.Values(VideoEntryKey, doc) {
		v, err := parseEntry(entry)
		if err != nil {
			id := entry.Get("videoId").String()
			logrus.WithError(err).WithField("video_id", id).Warn("Skipping malformed video entry")
			skip := Skip{VideoID: id, Err: err}
			var fieldErr *FieldError
			if errors.As(err, &fieldErr) {
				skip.Field = fieldErr.Field
			}
			res.Skipped = append(res.Skipped, skip)
			continue
		}
		res.Videos = append(res.Videos, v)
	}
	return res
}

// ParseInto parses doc and inserts the videos into st. It returns how many
// videos were new to st and how many entries were skipped.
func ParseInto(doc gjson.Result, st *store.Store) (added, skipped int) {
	res := Parse(doc)
	return st.InsertMany(res.Videos), len(res.Skipped)
}

func parseEntry(entry gjson.Result) (models.Video, error) {
	if !entry.IsObject() {
		return models.Video{}, &FieldError{Field: "videoId"}
	}
	id := entry.Get("videoId").String()
	if id == "" {
		return models.Video{}, &FieldError{Field: "videoId"}
	}

	f := fields{entry: entry, id: id}
	thumbnail := f.path("thumbnail.thumbnails.0.url")
	title := f.text("title")
	duration := f.text("lengthText")
	channel := f.path("longBylineText.runs.0.text")
	channelURL := f.path("longBylineText.runs.0.navigationEndpoint.commandMetadata.webCommandMetadata.url")
	channelThumbnail := f.path("channelThumbnail.thumbnails.0.url")
	views := f.text("viewCountText")
	if f.err != nil {
		return models.Video{}, f.err
	}

	// Topic channels publish without an upload time.
	uploaded, _ := textAt(entry, "publishedTimeText")

	return models.NewVideo(id, thumbnail, title, duration, channel, channelURL, channelThumbnail, uploaded, views), nil
}

// fields reads required values from one entry, keeping the first failure.
type fields struct {
	entry gjson.Result
	id    string
	err   error
}

func (f *fields) path(p string) string {
	if f.err != nil {
		return ""
	}
	r := f.entry.Get(p)
	if !r.Exists() || r.String() == "" {
		f.err = &FieldError{VideoID: f.id, Field: p}
		return ""
	}
	return r.String()
}

func (f *fields) text(name string) string {
	if f.err != nil {
		return ""
	}
	s, ok := textAt(f.entry, name)
	if !ok {
		f.err = &FieldError{VideoID: f.id, Field: name}
	}
	return s
}

// textAt reads a text node, which is either {"runs": [{"text": ...}]} or
// {"simpleText": ...}.
func textAt(entry gjson.Result, name string) (string, bool) {
	if r := entry.Get(name + ".runs.0.text"); r.Exists() && r.String() != "" {
		return r.String(), true
	}
	if r := entry.Get(name + ".simpleText"); r.Exists() && r.String() != "" {
		return r.String(), true
	}
	return "", false
}

// EstimatedResults reads the top-level estimated result count, which the
// site serves as a numeric string.
func EstimatedResults(doc gjson.Result) (int64, error) {
	r := doc.Get(EstimatedResultsKey)
	switch r.Type {
	case gjson.Number:
		return r.Int(), nil
	case gjson.String:
		n, err := strconv.ParseInt(strings.TrimSpace(r.Str), 10, 64)
		if err != nil {
			return 0, apperrors.MissingData("parser.EstimatedResults", err, "estimated result count is not a number")
		}
		return n, nil
	default:
		return 0, ErrNoEstimatedResults
	}
}

// NextContinuation returns the token pair for the next page. Only the first
// continuation node in the document is considered, even when the document
// holds several; ok is false when there is none or it is incomplete.
func NextContinuation(doc gjson.Result) (c Continuation, ok bool) {
	node, found := extract.First(ContinuationKey, doc)
	if !found {
		logrus.Debug("No continuation data in search results")
		return Continuation{}, false
	}

	token := node.Get("continuation").String()
	ctp := node.Get("clickTrackingParams").String()
	if token == "" || ctp == "" {
		logrus.WithFields(logrus.Fields{
			"has_token":          token != "",
			"has_click_tracking": ctp != "",
		}).Debug("Incomplete continuation data in search results")
		return Continuation{}, false
	}
	return Continuation{Token: token, ClickTrackingParams: ctp}, true
}
