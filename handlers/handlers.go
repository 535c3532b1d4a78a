package handlers

import (
	"context"
	"net/http"
	"strconv"

	apperrors "github.com/nijaru/yt-search/errors"
	"github.com/nijaru/yt-search/middleware"
	"github.com/nijaru/yt-search/models"
	"github.com/nijaru/yt-search/parser"
	"github.com/nijaru/yt-search/render"
	"github.com/nijaru/yt-search/search"
	"github.com/nijaru/yt-search/store"
	"github.com/nijaru/yt-search/utils"
	"github.com/pkg/errors"
)

const (
	SessionHeader             = "X-Search-Session"
	ContinuationHeader        = "X-Continuation"
	ClickTrackingParamsHeader = "X-Click-Tracking-Params"
)

type Searcher interface {
	Search(ctx context.Context, req search.Request, st *store.Store) (search.Summary, error)
}

// Sink receives every completed session, e.g. the SQLite archive or the
// object storage uploader.
type Sink interface {
	SaveSession(ctx context.Context, s models.Session, videos []models.Video) error
}

type Handler struct {
	searcher Searcher
	sinks    []Sink
	maxPages int
}

func New(searcher Searcher, maxPages int, sinks ...Sink) *Handler {
	return &Handler{searcher: searcher, sinks: sinks, maxPages: maxPages}
}

func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /search", h.SearchHandler)
	mux.HandleFunc("GET /health", h.HealthHandler)
	return mux
}

type searchResponse struct {
	Summary search.Summary `json:"summary"`
	Videos  []models.Video `json:"videos"`
}

func (h *Handler) SearchHandler(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.SearchHandler"
	logger := middleware.GetLogger(r.Context())

	req, format, err := h.parseSearchRequest(r)
	if err != nil {
		utils.HandleAppError(w, apperrors.InvalidInput(op, err, err.Error()))
		return
	}

	st := store.New()
	sum, err := h.searcher.Search(r.Context(), req, st)
	if err != nil {
		if r.Context().Err() != nil {
			utils.HandleError(w, "Request timed out", http.StatusGatewayTimeout)
			logger.WithError(err).Error("Search cancelled")
			return
		}
		utils.HandleAppError(w, err)
		return
	}

	videos := st.All()
	session := models.Session{ID: sum.SessionID, Query: req.Query, Estimated: sum.Estimated, Pages: sum.Pages}
	for _, sink := range h.sinks {
		if err := sink.SaveSession(r.Context(), session, videos); err != nil {
			logger.WithError(err).Warn("Failed to save search session")
		}
	}

	w.Header().Set(SessionHeader, sum.SessionID)
	if sum.Next != nil {
		w.Header().Set(ContinuationHeader, sum.Next.Token)
		w.Header().Set(ClickTrackingParamsHeader, sum.Next.ClickTrackingParams)
	}

	if format == render.FormatJSON {
		if videos == nil {
			videos = []models.Video{}
		}
		if err := utils.WriteJSON(w, http.StatusOK, searchResponse{Summary: sum, Videos: videos}); err != nil {
			logger.WithError(err).Error("Failed to send JSON response")
		}
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.WriteHeader(http.StatusOK)
	if err := render.Write(w, format, videos); err != nil {
		logger.WithError(err).Error("Failed to write report")
	}
}

func (h *Handler) parseSearchRequest(r *http.Request) (search.Request, render.Format, error) {
	q := r.URL.Query()

	format, err := render.ParseFormat(q.Get("format"))
	if err != nil {
		return search.Request{}, "", err
	}

	req := search.Request{Query: q.Get("q")}

	if raw := q.Get("pages"); raw != "" {
		pages, err := strconv.Atoi(raw)
		if err != nil || pages < 1 || pages > h.maxPages {
			return search.Request{}, "", errors.Errorf("pages must be a number between 1 and %d", h.maxPages)
		}
		req.Pages = pages
	}

	if token, ctp := q.Get("ctoken"), q.Get("itct"); token != "" || ctp != "" {
		req.Prior = &parser.Continuation{Token: token, ClickTrackingParams: ctp}
	}
	return req, format, nil
}

func (h *Handler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	utils.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
