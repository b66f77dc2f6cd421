package services

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/sciezka-prawa/sciezka-backend/internal/observability"
	"github.com/sciezka-prawa/sciezka-backend/internal/platform/apierr"
	"github.com/sciezka-prawa/sciezka-backend/internal/platform/logger"
	"github.com/sciezka-prawa/sciezka-backend/internal/platform/redis"
	"github.com/sciezka-prawa/sciezka-backend/internal/platform/youtube"
)

const liveStatusCacheKey = "live_status"

type LiveStatus struct {
	Live      bool               `json:"live"`
	Broadcast *youtube.Broadcast `json:"broadcast,omitempty"`
	CheckedAt time.Time          `json:"checked_at"`
}

type LiveStatusService interface {
	Current(ctx context.Context) (*LiveStatus, error)
}

type liveStatusService struct {
	log     *logger.Logger
	yt      youtube.Client
	cache   redis.Cache
	ttl     time.Duration
	metrics *observability.Metrics
	now     func() time.Time
}

// NewLiveStatusService reports whether the Sejm channel is streaming. A nil
// client means the feature is off and Current always reports offline.
func NewLiveStatusService(baseLog *logger.Logger, yt youtube.Client, cache redis.Cache, ttl time.Duration, metrics *observability.Metrics) LiveStatusService {
	if cache == nil {
		cache = redis.NewMemoryCache()
	}
	if ttl <= 0 {
		ttl = 60 * time.Second
	}
	return &liveStatusService{
		log:     baseLog.With("service", "LiveStatusService"),
		yt:      yt,
		cache:   cache,
		ttl:     ttl,
		metrics: metrics,
		now:     time.Now,
	}
}

func (s *liveStatusService) Current(ctx context.Context) (*LiveStatus, error) {
	if s.yt == nil {
		return &LiveStatus{CheckedAt: s.now().UTC()}, nil
	}
	if raw, ok, err := s.cache.Get(ctx, liveStatusCacheKey); err != nil {
		s.log.Warn("live status cache read failed", "error", err)
	} else if ok {
		var cached LiveStatus
		if err := json.Unmarshal(raw, &cached); err == nil {
			s.metrics.LiveCache(true)
			return &cached, nil
		}
	}
	s.metrics.LiveCache(false)

	b, err := s.yt.CurrentBroadcast(ctx)
	s.metrics.Upstream("youtube", err)
	if err != nil {
		return nil, apierr.New(http.StatusBadGateway, "live_status_unavailable", err)
	}
	out := &LiveStatus{Live: b != nil, Broadcast: b, CheckedAt: s.now().UTC()}
	if raw, err := json.Marshal(out); err == nil {
		if err := s.cache.Set(ctx, liveStatusCacheKey, raw, s.ttl); err != nil {
			s.log.Warn("live status cache write failed", "error", err)
		}
	}
	return out, nil
}
