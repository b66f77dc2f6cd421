package app

import (
	"time"

	"github.com/sciezka-prawa/sciezka-backend/internal/http/middleware"
	"github.com/sciezka-prawa/sciezka-backend/internal/jobs/scheduler"
	"github.com/sciezka-prawa/sciezka-backend/internal/jobs/worker"
	"github.com/sciezka-prawa/sciezka-backend/internal/platform/envutil"
	"github.com/sciezka-prawa/sciezka-backend/internal/platform/logger"
	"github.com/sciezka-prawa/sciezka-backend/internal/services"
	"github.com/sciezka-prawa/sciezka-backend/internal/temporalx"
)

const defaultServiceName = "sciezka-backend"

type Config struct {
	Port        string
	ServiceName string

	SupabaseJWTSecret   string
	SupabaseJWTAudience string

	AllowedOrigins []string
	MetricsEnabled bool
	PublicURL      string

	LiveStatusTTL time.Duration

	// RunWorkers starts the job worker (or Temporal runner) and the scheduler
	// alongside the HTTP server.
	RunWorkers bool

	Sync      services.SyncConfig
	Worker    worker.Config
	Scheduler scheduler.Config
	Temporal  temporalx.Config
}

func LoadConfig(log *logger.Logger) Config {
	cfg := Config{
		Port:                envutil.String("PORT", "8080"),
		ServiceName:         envutil.String("SERVICE_NAME", defaultServiceName),
		SupabaseJWTSecret:   envutil.String("SUPABASE_JWT_SECRET", ""),
		SupabaseJWTAudience: envutil.String("SUPABASE_JWT_AUDIENCE", "authenticated"),
		AllowedOrigins:      envutil.List("CORS_ALLOWED_ORIGINS", middleware.DefaultAllowedOrigins),
		MetricsEnabled:      envutil.Bool("METRICS_ENABLED", true),
		PublicURL:           envutil.String("PUBLIC_URL", "https://sciezkaprawa.pl"),
		LiveStatusTTL:       envutil.Duration("LIVE_STATUS_TTL", 60*time.Second),
		RunWorkers:          envutil.Bool("RUN_WORKERS", true),
		Sync:                services.SyncConfigFromEnv(),
		Worker:              worker.ConfigFromEnv(),
		Scheduler:           scheduler.ConfigFromEnv(),
		Temporal:            temporalx.LoadConfig(),
	}
	log.Info("Config loaded",
		"port", cfg.Port,
		"metrics", cfg.MetricsEnabled,
		"run_workers", cfg.RunWorkers,
		"temporal", cfg.Temporal.Enabled(),
		"sejm_term", cfg.Sync.DefaultTerm,
		"sync_interval", cfg.Scheduler.SyncInterval,
	)
	return cfg
}
