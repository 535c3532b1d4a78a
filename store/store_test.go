package store

import (
	"testing"

	"github.com/nijaru/yt-search/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func video(id, title string) models.Video {
	return models.NewVideo(id, "", title, "1:00", "Channel", "", "", "today", "1 view")
}

func TestInsertAndAll(t *testing.T) {
	s := New()
	a := video("x", "A")
	b := video("y", "B")

	assert.True(t, s.Insert(a))
	assert.True(t, s.Insert(b))
	assert.Equal(t, []models.Video{a, b}, s.All())

	assert.False(t, s.Insert(video("x", "replacement")))
	assert.Equal(t, []models.Video{a, b}, s.All())
	assert.Equal(t, 2, s.Len())
}

func TestInsertIsIdempotent(t *testing.T) {
	once := New()
	once.Insert(video("x", "A"))

	twice := New()
	twice.Insert(video("x", "A"))
	twice.Insert(video("x", "A"))

	assert.Equal(t, once.All(), twice.All())
}

func TestInsertMany(t *testing.T) {
	s := New()
	s.Insert(video("b", "existing"))

	added := s.InsertMany([]models.Video{
		video("a", "first a"),
		video("b", "second b"),
		video("c", "first c"),
		video("a", "second a"),
	})

	assert.Equal(t, 2, added)
	all := s.All()
	require.Len(t, all, 3)
	assert.Equal(t, []string{"b", "a", "c"}, []string{all[0].ID, all[1].ID, all[2].ID})
	assert.Equal(t, "existing", all[0].Title)
	assert.Equal(t, "first a", all[1].Title)
}

func TestGet(t *testing.T) {
	s := New()
	s.Insert(video("x", "A"))

	got, ok := s.Get("x")
	require.True(t, ok)
	assert.Equal(t, "A", got.Title)

	_, ok = s.Get("missing")
	assert.False(t, ok)
}

func TestAllReturnsCopy(t *testing.T) {
	s := New()
	s.Insert(video("x", "A"))

	all := s.All()
	all[0].Title = "mutated"

	got, _ := s.Get("x")
	assert.Equal(t, "A", got.Title)
}
