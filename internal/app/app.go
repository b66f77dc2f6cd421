package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	"gorm.io/gorm"

	"github.com/sciezka-prawa/sciezka-backend/internal/data/db"
	httpx "github.com/sciezka-prawa/sciezka-backend/internal/http"
	"github.com/sciezka-prawa/sciezka-backend/internal/observability"
	"github.com/sciezka-prawa/sciezka-backend/internal/platform/envutil"
	"github.com/sciezka-prawa/sciezka-backend/internal/platform/logger"
	"github.com/sciezka-prawa/sciezka-backend/internal/realtime"
)

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Cfg      Config
	Metrics  *observability.Metrics
	Clients  Clients
	Repos    Repos
	Services Services
	Jobs     Jobs

	// Server and Hub are nil for apps built with NewCore.
	Server *httpx.Server
	Hub    *realtime.Hub

	pg           *db.PostgresService
	otelShutdown func(context.Context) error
	errc         chan error

	mu     sync.Mutex
	cancel context.CancelFunc
}

// New builds the full API process: HTTP server, job consumers and scheduler.
func New(ctx context.Context) (*App, error) {
	return build(ctx, true)
}

// NewCore builds everything except the HTTP surface. One-shot tools use it to
// drive services directly.
func NewCore(ctx context.Context) (*App, error) {
	return build(ctx, false)
}

func build(ctx context.Context, withHTTP bool) (*App, error) {
	log, err := logger.New(envutil.String("LOG_MODE", "development"))
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("Loading environment variables...")
	cfg := LoadConfig(log)

	otelShutdown := observability.InitOTel(ctx, log, observability.OtelConfigFromEnv(cfg.ServiceName))

	var metrics *observability.Metrics
	if cfg.MetricsEnabled {
		metrics = observability.NewMetrics()
	}

	pg, err := db.NewPostgresService(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init postgres: %w", err)
	}
	if err := db.AutoMigrateAll(pg.DB()); err != nil {
		_ = pg.Close()
		log.Sync()
		return nil, fmt.Errorf("postgres automigrate: %w", err)
	}
	theDB := pg.DB()

	a := &App{
		Log:          log,
		DB:           theDB,
		Cfg:          cfg,
		Metrics:      metrics,
		pg:           pg,
		otelShutdown: otelShutdown,
		errc:         make(chan error, 1),
	}

	clients, err := wireClients(ctx, log, cfg)
	if err != nil {
		a.Close(ctx)
		return nil, err
	}
	a.Clients = clients
	a.Repos = wireRepos(theDB, log)

	a.Services, err = wireServices(theDB, log, cfg, a.Repos, clients, metrics, withHTTP)
	if err != nil {
		a.Close(ctx)
		return nil, err
	}
	a.Jobs, err = wireJobs(theDB, log, cfg, a.Repos, clients, a.Services, metrics)
	if err != nil {
		a.Close(ctx)
		return nil, err
	}

	if withHTTP {
		a.Hub = realtime.NewHub(log)
		handlers := wireHandlers(theDB, log, a.Services, a.Hub)
		middleware := wireMiddleware(log, a.Services)
		a.Server = wireServer(log, cfg, handlers, middleware, metrics)
	}
	return a, nil
}

// Start connects the realtime hub to the event bus and launches background job
// processing when RUN_WORKERS is on.
func (a *App) Start() {
	if a == nil {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	if a.Hub != nil && a.Clients.Bus != nil {
		if err := realtime.Bridge(ctx, a.Clients.Bus, a.Hub); err != nil {
			a.Log.Warn("Realtime bridge unavailable", "error", err)
		}
	}
	if !a.Cfg.RunWorkers {
		a.Log.Info("Background jobs disabled (RUN_WORKERS=false)")
		return
	}
	a.Jobs.Start(ctx, a.Log, a.errc)
}

// Run serves HTTP until the server is shut down or a background component
// fails.
func (a *App) Run() error {
	if a == nil || a.Server == nil {
		return fmt.Errorf("app not initialized")
	}
	addr := net.JoinHostPort("", a.Cfg.Port)
	a.Log.Info("Starting server", "addr", addr)

	srvErr := make(chan error, 1)
	go func() { srvErr <- a.Server.Run(addr) }()
	select {
	case err := <-srvErr:
		return err
	case err := <-a.errc:
		return fmt.Errorf("background job runner: %w", err)
	}
}

// Close stops the server, waits for in-flight jobs and releases clients.
func (a *App) Close(ctx context.Context) {
	if a == nil {
		return
	}
	var errs []error
	if a.Hub != nil {
		a.Hub.CloseAll()
	}
	if a.Server != nil {
		if err := a.Server.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("http shutdown: %w", err))
		}
	}
	a.mu.Lock()
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	a.mu.Unlock()
	a.Jobs.Wait()
	a.Clients.Close()
	if a.otelShutdown != nil {
		if err := a.otelShutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("otel shutdown: %w", err))
		}
	}
	if a.pg != nil {
		if err := a.pg.Close(); err != nil {
			errs = append(errs, fmt.Errorf("postgres close: %w", err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		a.Log.Warn("Shutdown finished with errors", "error", err)
	}
	a.Log.Sync()
}
