package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	apperrors "github.com/nijaru/yt-search/errors"
	"github.com/nijaru/yt-search/models"
	"github.com/nijaru/yt-search/parser"
	"github.com/nijaru/yt-search/render"
	"github.com/nijaru/yt-search/search"
	"github.com/nijaru/yt-search/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockSearcher struct {
	videos []models.Video
	next   *parser.Continuation
	err    error
	got    search.Request
}

func (m *mockSearcher) Search(_ context.Context, req search.Request, st *store.Store) (search.Summary, error) {
	m.got = req
	if m.err != nil {
		return search.Summary{}, m.err
	}
	added := st.InsertMany(m.videos)
	return search.Summary{SessionID: "session-1", Pages: 1, Added: added, Estimated: 10, Next: m.next}, nil
}

type mockSink struct {
	sessions []models.Session
	err      error
}

func (m *mockSink) SaveSession(_ context.Context, s models.Session, _ []models.Video) error {
	m.sessions = append(m.sessions, s)
	return m.err
}

func testVideos() []models.Video {
	return []models.Video{
		models.NewVideo("abc123", "thumb", "First", "1:00", "Chan", "/channel/UC1", "cthumb", "1 day ago", "10 views"),
	}
}

func serve(h *Handler, target string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h.Routes().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, target, nil))
	return rr
}

func TestSearchHandler_Markdown(t *testing.T) {
	s := &mockSearcher{videos: testVideos(), next: &parser.Continuation{Token: "tok", ClickTrackingParams: "ctp"}}
	archive := &mockSink{}
	uploader := &mockSink{}

	rr := serve(New(s, 5, archive, uploader), "/search?q=golang&pages=2&format=markdown")

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, render.FormatMarkdown.ContentType(), rr.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(rr.Body.String(), render.MarkdownHeader))
	assert.Contains(t, rr.Body.String(), "[[abc123] First]")
	assert.Equal(t, "session-1", rr.Header().Get(SessionHeader))
	assert.Equal(t, "tok", rr.Header().Get(ContinuationHeader))
	assert.Equal(t, "ctp", rr.Header().Get(ClickTrackingParamsHeader))

	assert.Equal(t, search.Request{Query: "golang", Pages: 2}, s.got)
	require.Len(t, archive.sessions, 1)
	assert.Equal(t, models.Session{ID: "session-1", Query: "golang", Estimated: 10, Pages: 1}, archive.sessions[0])
	assert.Len(t, uploader.sessions, 1)
}

func TestSearchHandler_JSON(t *testing.T) {
	rr := serve(New(&mockSearcher{videos: testVideos()}, 5), "/search?q=golang&format=json")

	require.Equal(t, http.StatusOK, rr.Code)
	var resp searchResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Summary.Added)
	require.Len(t, resp.Videos, 1)
	assert.Equal(t, "abc123", resp.Videos[0].ID)
	assert.Empty(t, rr.Header().Get(ContinuationHeader))
}

func TestSearchHandler_DefaultsToText(t *testing.T) {
	rr := serve(New(&mockSearcher{videos: testVideos()}, 5), "/search?q=golang")

	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, strings.HasPrefix(rr.Body.String(), "1. [abc123] First"))
}

func TestSearchHandler_Resume(t *testing.T) {
	s := &mockSearcher{}
	rr := serve(New(s, 5), "/search?q=golang&ctoken=tok&itct=ctp")

	require.Equal(t, http.StatusOK, rr.Code)
	require.NotNil(t, s.got.Prior)
	assert.Equal(t, parser.Continuation{Token: "tok", ClickTrackingParams: "ctp"}, *s.got.Prior)
}

func TestSearchHandler_BadRequests(t *testing.T) {
	h := New(&mockSearcher{}, 3)
	for _, target := range []string{
		"/search?q=golang&pages=0",
		"/search?q=golang&pages=4",
		"/search?q=golang&pages=abc",
		"/search?q=golang&format=xml",
	} {
		rr := serve(h, target)
		assert.Equal(t, http.StatusBadRequest, rr.Code, target)
		assert.Contains(t, rr.Body.String(), `"error"`, target)
	}
}

func TestSearchHandler_ErrorStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{apperrors.InvalidInput("op", nil, "error: search query is required"), http.StatusBadRequest},
		{apperrors.FetchFailed("op", nil, "down"), http.StatusBadGateway},
		{apperrors.ExtractFailed("op", nil, "no data"), http.StatusBadGateway},
		{apperrors.MissingData("op", nil, "no count"), http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		rr := serve(New(&mockSearcher{err: tt.err}, 5), "/search?q=golang")
		assert.Equal(t, tt.want, rr.Code, tt.err.Error())
	}
}

func TestSearchHandler_ArchiveFailureStillResponds(t *testing.T) {
	archive := &mockSink{err: apperrors.Storage("op", nil, "disk full")}
	uploader := &mockSink{}
	rr := serve(New(&mockSearcher{videos: testVideos()}, 5, archive, uploader), "/search?q=golang")

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, archive.sessions, 1)
	assert.Len(t, uploader.sessions, 1)
}

func TestSearchHandler_MethodNotAllowed(t *testing.T) {
	rr := httptest.NewRecorder()
	New(&mockSearcher{}, 5).Routes().ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/search?q=go", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestHealthHandler(t *testing.T) {
	rr := serve(New(&mockSearcher{}, 5), "/health")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
}
