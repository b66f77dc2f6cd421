package jobrun

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.temporal.io/sdk/activity"
	"gorm.io/gorm"

	"github.com/sciezka-prawa/sciezka-backend/internal/data/repos"
	types "github.com/sciezka-prawa/sciezka-backend/internal/domain"
	jobrt "github.com/sciezka-prawa/sciezka-backend/internal/jobs/runtime"
	"github.com/sciezka-prawa/sciezka-backend/internal/observability"
	"github.com/sciezka-prawa/sciezka-backend/internal/platform/dbctx"
	"github.com/sciezka-prawa/sciezka-backend/internal/platform/logger"
	"github.com/sciezka-prawa/sciezka-backend/internal/services"
)

type Activities struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Jobs     repos.JobRunRepo
	Registry *jobrt.Registry
	Notify   services.JobNotifier
	Metrics  *observability.Metrics

	// Heartbeat overrides activity.RecordHeartbeat in tests.
	Heartbeat func(ctx context.Context)
}

// Execute runs the job row named by jobID once. A job that already succeeded
// is reported as is, so workflow retries never run it twice.
func (a *Activities) Execute(ctx context.Context, jobID string) (RunResult, error) {
	res := RunResult{JobID: strings.TrimSpace(jobID)}
	if a == nil || a.Jobs == nil || a.Registry == nil {
		return res, fmt.Errorf("jobrun: activity not configured")
	}
	id, err := uuid.Parse(res.JobID)
	if err != nil || id == uuid.Nil {
		return res, fmt.Errorf("jobrun: invalid job_id %q", jobID)
	}
	job, err := a.Jobs.GetByID(dbctx.Context{Ctx: ctx}, id)
	if err != nil {
		return res, fmt.Errorf("jobrun: load job: %w", err)
	}
	if job == nil {
		return res, fmt.Errorf("jobrun: job %s not found", id)
	}
	if job.Status == types.JobStatusSucceeded {
		return resultOf(job), nil
	}

	now := time.Now().UTC()
	ok, err := a.Jobs.UpdateFieldsUnlessStatus(dbctx.Context{Ctx: ctx}, id, []string{types.JobStatusSucceeded}, map[string]interface{}{
		"status":       types.JobStatusRunning,
		"attempts":     job.Attempts + 1,
		"locked_at":    now,
		"heartbeat_at": now,
		"updated_at":   now,
	})
	if err != nil {
		return res, fmt.Errorf("jobrun: mark running: %w", err)
	}
	if !ok {
		return res, fmt.Errorf("jobrun: job %s changed state before start", id)
	}
	job.Status = types.JobStatusRunning
	job.Attempts++
	job.LockedAt = &now
	job.HeartbeatAt = &now

	stop := a.startHeartbeat(ctx, id)
	defer stop()

	jc := jobrt.NewContext(ctx, a.DB, job, a.Jobs, a.Notify, a.Metrics)
	if runErr := a.Registry.Run(jc); runErr != nil && a.Log != nil {
		a.Log.Warn("Job failed", "job_id", id, "job_type", job.JobType, "attempt", job.Attempts, "error", runErr)
	}
	return resultOf(job), nil
}

func resultOf(job *types.JobRun) RunResult {
	return RunResult{
		JobID:    job.ID.String(),
		JobType:  job.JobType,
		Status:   job.Status,
		Stage:    job.Stage,
		Progress: job.Progress,
		Error:    job.Error,
	}
}

func (a *Activities) startHeartbeat(ctx context.Context, jobID uuid.UUID) func() {
	record := a.Heartbeat
	if record == nil {
		record = func(ctx context.Context) { activity.RecordHeartbeat(ctx) }
	}
	done := make(chan struct{})
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		temporalHB := time.NewTicker(10 * time.Second)
		defer temporalHB.Stop()
		dbHB := time.NewTicker(30 * time.Second)
		defer dbHB.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-temporalHB.C:
				record(ctx)
			case <-dbHB.C:
				_ = a.Jobs.Heartbeat(dbctx.Context{Ctx: ctx}, jobID)
			}
		}
	}()
	return func() {
		close(done)
		<-stopped
	}
}
