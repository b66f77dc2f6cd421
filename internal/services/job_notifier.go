package services

import (
	"context"
	"time"

	types "github.com/sciezka-prawa/sciezka-backend/internal/domain"
	"github.com/sciezka-prawa/sciezka-backend/internal/platform/logger"
	"github.com/sciezka-prawa/sciezka-backend/internal/platform/redis"
)

// =========================
// Job notifier
// =========================

type JobNotifier interface {
	JobCreated(job *types.JobRun)
	JobProgress(job *types.JobRun, stage string, progress int)
	JobFailed(job *types.JobRun, stage string, errorMessage string)
	JobDone(job *types.JobRun)
}

type jobNotifier struct {
	log *logger.Logger
	bus redis.Bus
}

// NewJobNotifier publishes job lifecycle updates on the event bus. A nil bus
// turns every call into a no-op.
func NewJobNotifier(baseLog *logger.Logger, bus redis.Bus) JobNotifier {
	return &jobNotifier{log: baseLog.With("service", "JobNotifier"), bus: bus}
}

type jobUpdate struct {
	JobID    string `json:"job_id"`
	JobType  string `json:"job_type"`
	Status   string `json:"status"`
	Stage    string `json:"stage"`
	Progress int    `json:"progress"`
	Error    string `json:"error,omitempty"`
}

func (n *jobNotifier) JobCreated(job *types.JobRun) {
	n.publish(job, types.JobStatusQueued, "queued", 0, "")
}

func (n *jobNotifier) JobProgress(job *types.JobRun, stage string, progress int) {
	n.publish(job, types.JobStatusRunning, stage, progress, "")
}

func (n *jobNotifier) JobFailed(job *types.JobRun, stage string, errorMessage string) {
	n.publish(job, types.JobStatusFailed, stage, safeJobProgress(job), errorMessage)
}

func (n *jobNotifier) JobDone(job *types.JobRun) {
	n.publish(job, types.JobStatusSucceeded, "done", 100, "")
}

func (n *jobNotifier) publish(job *types.JobRun, status, stage string, progress int, errMsg string) {
	if n == nil || n.bus == nil || job == nil {
		return
	}
	ev, err := redis.NewEvent(redis.EventJobUpdated, jobUpdate{
		JobID:    job.ID.String(),
		JobType:  job.JobType,
		Status:   status,
		Stage:    stage,
		Progress: progress,
		Error:    errMsg,
	})
	if err != nil {
		n.log.Warn("encode job event failed", "job_id", job.ID, "error", err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := n.bus.Publish(ctx, ev); err != nil {
		n.log.Warn("publish job event failed", "job_id", job.ID, "error", err)
	}
}

func safeJobProgress(job *types.JobRun) int {
	if job == nil {
		return 0
	}
	return job.Progress
}
