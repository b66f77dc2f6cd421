package app

import (
	"context"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
	temporalsdkclient "go.temporal.io/sdk/client"

	"github.com/sciezka-prawa/sciezka-backend/internal/legislation/classify"
	"github.com/sciezka-prawa/sciezka-backend/internal/platform/gcp"
	"github.com/sciezka-prawa/sciezka-backend/internal/platform/logger"
	"github.com/sciezka-prawa/sciezka-backend/internal/platform/rcl"
	"github.com/sciezka-prawa/sciezka-backend/internal/platform/redis"
	"github.com/sciezka-prawa/sciezka-backend/internal/platform/resend"
	"github.com/sciezka-prawa/sciezka-backend/internal/platform/sejm"
	"github.com/sciezka-prawa/sciezka-backend/internal/platform/youtube"
	"github.com/sciezka-prawa/sciezka-backend/internal/temporalx"
)

type Clients struct {
	Redis  *goredis.Client
	Bus    redis.Bus
	Cache  redis.Cache
	Locker redis.Locker

	Sejm       sejm.Client
	RCL        rcl.Client
	Classifier *classify.Classifier

	// Optional integrations; nil when not configured.
	Mailer   resend.Client
	YouTube  youtube.Client
	Archive  gcp.Archive
	Temporal temporalsdkclient.Client
}

func wireClients(ctx context.Context, log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")
	var c Clients

	// Redis backs the sync lock, the live cache and the event bus. Without it
	// everything falls back to process-local implementations.
	if rcfg := redis.ConfigFromEnv(); rcfg.Enabled() {
		rdb, err := redis.NewClient(log, rcfg)
		if err != nil {
			return c, fmt.Errorf("init redis: %w", err)
		}
		bus, err := redis.NewRedisBus(log, rdb, rcfg.Channel)
		if err != nil {
			_ = rdb.Close()
			return c, fmt.Errorf("init redis bus: %w", err)
		}
		c.Redis = rdb
		c.Bus = bus
		c.Cache = redis.NewRedisCache(rdb)
		c.Locker = redis.NewRedisLocker(rdb)
	} else {
		log.Warn("REDIS_ADDR not set; using in-memory lock, cache and bus")
		c.Bus = redis.NewMemoryBus()
		c.Cache = redis.NewMemoryCache()
		c.Locker = redis.NewMemoryLocker()
	}

	sejmClient, err := sejm.NewFromEnv(log)
	if err != nil {
		c.Close()
		return Clients{}, fmt.Errorf("init sejm client: %w", err)
	}
	c.Sejm = sejmClient

	rclClient, err := rcl.NewFromEnv(log)
	if err != nil {
		c.Close()
		return Clients{}, fmt.Errorf("init rcl client: %w", err)
	}
	c.RCL = rclClient

	c.Classifier = classify.FromEnv(log)

	if mailer, err := resend.NewFromEnv(log); err != nil {
		log.Warn("Email delivery disabled", "error", err)
	} else {
		c.Mailer = mailer
	}

	if yt, err := youtube.NewFromEnv(ctx, log); err != nil {
		log.Warn("Live status disabled", "error", err)
	} else {
		c.YouTube = yt
	}

	acfg, err := gcp.ArchiveConfigFromEnv()
	switch {
	case errors.Is(err, gcp.ErrArchiveDisabled):
		log.Info("RCL page archive disabled")
	case err != nil:
		c.Close()
		return Clients{}, fmt.Errorf("archive config: %w", err)
	default:
		archive, err := gcp.NewArchive(ctx, log, acfg)
		if err != nil {
			c.Close()
			return Clients{}, fmt.Errorf("init archive: %w", err)
		}
		c.Archive = archive
	}

	if cfg.Temporal.Enabled() {
		tc, err := temporalx.NewClient(log, cfg.Temporal)
		if err != nil {
			c.Close()
			return Clients{}, fmt.Errorf("init temporal client: %w", err)
		}
		c.Temporal = tc
	}

	return c, nil
}

func (c *Clients) Close() {
	if c == nil {
		return
	}
	if c.Temporal != nil {
		c.Temporal.Close()
	}
	if c.Archive != nil {
		_ = c.Archive.Close()
	}
	if c.Bus != nil {
		_ = c.Bus.Close()
	}
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
}
