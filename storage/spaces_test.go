package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/nijaru/yt-search/config"
	apperrors "github.com/nijaru/yt-search/errors"
	"github.com/nijaru/yt-search/models"
	"github.com/nijaru/yt-search/render"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

type fakeS3 struct {
	mu      sync.Mutex
	objects map[string]string
	status  int
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if f.status != 0 {
		w.WriteHeader(f.status)
		return
	}
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.objects[r.Method+" "+r.URL.Path] = string(body)
	f.mu.Unlock()
	w.WriteHeader(http.StatusOK)
}

func newTestClient(t *testing.T, srv *httptest.Server) *SpacesClient {
	t.Helper()
	c, err := NewSpacesClient(context.Background(), config.SpacesConfig{
		AccessKey: "key",
		SecretKey: "secret",
		Region:    "us-east-1",
		Endpoint:  srv.URL,
		Bucket:    "reports",
		Prefix:    "searches",
		PathStyle: true,
	})
	require.NoError(t, err)
	return c
}

func TestSaveSession(t *testing.T) {
	fake := &fakeS3{objects: map[string]string{}}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	videos := []models.Video{
		models.NewVideo("abc123", "thumb", "First", "1:00", "Chan", "/channel/UC1", "cthumb", "", "10 views"),
	}
	err := newTestClient(t, srv).SaveSession(context.Background(), models.Session{ID: "s1", Query: "golang", Pages: 1}, videos)
	require.NoError(t, err)

	jsonBody, ok := fake.objects["PUT /reports/searches/s1.json"]
	require.True(t, ok, "objects: %v", fake.objects)
	assert.Equal(t, "golang", gjson.Get(jsonBody, "query").String())
	assert.Equal(t, "abc123", gjson.Get(jsonBody, "videos.0.id").String())

	mdBody, ok := fake.objects["PUT /reports/searches/s1.md"]
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(mdBody, render.MarkdownHeader))
}

func TestSaveSession_Error(t *testing.T) {
	srv := httptest.NewServer(&fakeS3{status: http.StatusForbidden})
	defer srv.Close()

	err := newTestClient(t, srv).SaveSession(context.Background(), models.Session{ID: "s1"}, nil)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.KindStorage))
}
