package store

import (
	"github.com/nijaru/yt-search/models"
	"github.com/sirupsen/logrus"
)

// Store is the deduplicating set of videos collected during one search
// session. Videos are listed in the order they were first inserted.
// A Store has a single owner and is not safe for concurrent use.
type Store struct {
	videos map[string]models.Video
	order  []string
}

func New() *Store {
	return &Store{videos: make(map[string]models.Video)}
}

// Insert adds v unless a video with the same ID is already held, in which
// case the existing video is kept and Insert returns false.
func (s *Store) Insert(v models.Video) bool {
	if _, exists := s.videos[v.ID]; exists {
		logrus.WithField("video_id", v.ID).Info("Video already in store, not adding")
		return false
	}
	s.videos[v.ID] = v
	s.order = append(s.order, v.ID)
	return true
}

// InsertMany inserts each video in turn and returns how many were new.
func (s *Store) InsertMany(videos []models.Video) int {
	added := 0
	for _, v := range videos {
		if s.Insert(v) {
			added++
		}
	}
	return added
}

func (s *Store) Get(id string) (models.Video, bool) {
	v, ok := s.videos[id]
	if !ok {
		logrus.WithField("video_id", id).Debug("No video with this ID in store")
	}
	return v, ok
}

// All returns a copy of the held videos in insertion order.
func (s *Store) All() []models.Video {
	out := make([]models.Video, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.videos[id])
	}
	return out
}

func (s *Store) Len() int {
	return len(s.order)
}
