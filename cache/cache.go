// Package cache keeps recent search sessions in Redis so repeated queries
// are answered without refetching.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nijaru/yt-search/config"
	"github.com/nijaru/yt-search/models"
	"github.com/nijaru/yt-search/search"
	"github.com/nijaru/yt-search/store"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const keyPrefix = "yt-search:search:"

type Inner interface {
	Search(ctx context.Context, req search.Request, st *store.Store) (search.Summary, error)
}

type entry struct {
	Summary search.Summary `json:"summary"`
	Videos  []models.Video `json:"videos"`
}

// Searcher answers from Redis when it can and otherwise delegates to the
// wrapped searcher, storing what it returns. Redis failures never fail a
// search.
type Searcher struct {
	inner  Inner
	rdb    *redis.Client
	ttl    time.Duration
	search config.SearchConfig
}

func NewClient(cfg config.CacheConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
}

func NewSearcher(inner Inner, rdb *redis.Client, ttl time.Duration, searchCfg config.SearchConfig) *Searcher {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &Searcher{inner: inner, rdb: rdb, ttl: ttl, search: searchCfg}
}

// Key identifies a request together with the settings that shape its
// result pages.
func (s *Searcher) Key(req search.Request) string {
	raw := fmt.Sprintf("%t|%t|%d|%s", s.search.Mobile, s.search.SortByRecent, req.Pages, req.Query)
	if req.Prior != nil {
		raw += "|" + req.Prior.Token + "|" + req.Prior.ClickTrackingParams
	}
	return keyPrefix + uuid.NewSHA1(uuid.NameSpaceURL, []byte(raw)).String()
}

func (s *Searcher) Search(ctx context.Context, req search.Request, st *store.Store) (search.Summary, error) {
	key := s.Key(req)
	log := logrus.WithField("cache_key", key)

	if e, ok, err := s.get(ctx, key); err != nil {
		log.WithError(err).Warn("Cache lookup failed")
	} else if ok {
		e.Summary.Added = st.InsertMany(e.Videos)
		log.WithField("session", e.Summary.SessionID).Info("Serving search from cache")
		return e.Summary, nil
	}

	before := st.Len()
	sum, err := s.inner.Search(ctx, req, st)
	if err != nil {
		return sum, err
	}

	videos := st.All()[before:]
	if err := s.set(ctx, key, entry{Summary: sum, Videos: videos}); err != nil {
		log.WithError(err).Warn("Cache store failed")
	}
	return sum, nil
}

func (s *Searcher) get(ctx context.Context, key string) (entry, bool, error) {
	data, err := s.rdb.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return entry{}, false, nil
	}
	if err != nil {
		return entry{}, false, errors.Wrap(err, "error reading cache")
	}

	var e entry
	if err := json.Unmarshal(data, &e); err != nil {
		return entry{}, false, errors.Wrap(err, "error decoding cache entry")
	}
	return e, true, nil
}

func (s *Searcher) set(ctx context.Context, key string, e entry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return errors.Wrap(err, "error encoding cache entry")
	}
	if err := s.rdb.Set(ctx, key, data, s.ttl).Err(); err != nil {
		return errors.Wrap(err, "error writing cache")
	}
	return nil
}

// Ping checks the connection at startup.
func Ping(ctx context.Context, rdb *redis.Client) error {
	if err := rdb.Ping(ctx).Err(); err != nil {
		return errors.Wrapf(err, "redis at %s unreachable", rdb.Options().Addr)
	}
	return nil
}
