package scene

import (
	"time"

	gocache "github.com/patrickmn/go-cache"

	"scene-guard-go/pkg/models"
)

const latestKey = "latest"

// LatestStore хранит последний результат цикла с TTL.
// Отдает свежие детекции без обращения к базе данных; устаревший
// результат пропадает сам, если кадры перестали поступать.
type LatestStore struct {
	cache *gocache.Cache
}

// NewLatestStore создает хранилище последнего результата
func NewLatestStore(ttl time.Duration) *LatestStore {
	return &LatestStore{
		cache: gocache.New(ttl, 2*ttl),
	}
}

// Deliver реализует Consumer
func (s *LatestStore) Deliver(result models.CycleResult) {
	s.cache.Set(latestKey, result, gocache.DefaultExpiration)
}

// Latest возвращает последний результат цикла, если он еще не устарел
func (s *LatestStore) Latest() (models.CycleResult, bool) {
	value, found := s.cache.Get(latestKey)
	if !found {
		return models.CycleResult{}, false
	}
	return value.(models.CycleResult), true
}
