package app

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/sciezka-prawa/sciezka-backend/internal/jobs/pipeline/bill_sync"
	"github.com/sciezka-prawa/sciezka-backend/internal/jobs/pipeline/rcl_enrich"
	jobruntime "github.com/sciezka-prawa/sciezka-backend/internal/jobs/runtime"
	"github.com/sciezka-prawa/sciezka-backend/internal/jobs/scheduler"
	"github.com/sciezka-prawa/sciezka-backend/internal/jobs/worker"
	"github.com/sciezka-prawa/sciezka-backend/internal/observability"
	"github.com/sciezka-prawa/sciezka-backend/internal/platform/logger"
	"github.com/sciezka-prawa/sciezka-backend/internal/temporalx/temporalworker"
)

// Jobs holds the background job infrastructure. Exactly one of Worker and
// TemporalWorker is set, depending on whether Temporal is configured.
type Jobs struct {
	Registry       *jobruntime.Registry
	Worker         *worker.Worker
	TemporalWorker *temporalworker.Runner
	Scheduler      *scheduler.Scheduler
}

func wireJobs(db *gorm.DB, log *logger.Logger, cfg Config, repos Repos, clients Clients, svc Services, metrics *observability.Metrics) (Jobs, error) {
	log.Info("Wiring jobs...")

	registry := jobruntime.NewRegistry()
	if err := registry.Register(bill_sync.New(log, svc.Sync)); err != nil {
		return Jobs{}, err
	}
	if err := registry.Register(rcl_enrich.New(log, svc.RCLEnrichment)); err != nil {
		return Jobs{}, err
	}

	out := Jobs{
		Registry:  registry,
		Scheduler: scheduler.New(log, svc.JobService, cfg.Scheduler),
	}
	if clients.Temporal != nil {
		runner, err := temporalworker.NewRunner(log, cfg.Temporal, cfg.Worker.Concurrency, clients.Temporal, db, repos.JobRun, registry, svc.JobNotifier, metrics)
		if err != nil {
			return Jobs{}, fmt.Errorf("init temporal worker: %w", err)
		}
		out.TemporalWorker = runner
		return out, nil
	}
	out.Worker = worker.NewWorker(db, log, repos.JobRun, registry, svc.JobNotifier, metrics, cfg.Worker)
	return out, nil
}

// Start launches the job consumers and the scheduler. The Temporal runner
// retries its own startup, so it runs in a goroutine and reports on errc.
func (j *Jobs) Start(ctx context.Context, log *logger.Logger, errc chan<- error) {
	switch {
	case j.TemporalWorker != nil:
		go func() {
			if err := j.TemporalWorker.Start(ctx); err != nil && ctx.Err() == nil {
				log.Error("Temporal worker stopped", "error", err)
				errc <- err
			}
		}()
	case j.Worker != nil:
		j.Worker.Start(ctx)
	}
	if j.Scheduler != nil {
		j.Scheduler.Start(ctx)
	}
}

func (j *Jobs) Wait() {
	if j.Worker != nil {
		j.Worker.Wait()
	}
	if j.Scheduler != nil {
		j.Scheduler.Wait()
	}
}
