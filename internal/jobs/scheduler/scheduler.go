package scheduler

import (
	"context"
	"sync"
	"time"

	types "github.com/sciezka-prawa/sciezka-backend/internal/domain"
	"github.com/sciezka-prawa/sciezka-backend/internal/platform/dbctx"
	"github.com/sciezka-prawa/sciezka-backend/internal/platform/envutil"
	"github.com/sciezka-prawa/sciezka-backend/internal/platform/logger"
	"github.com/sciezka-prawa/sciezka-backend/internal/services"
)

// Entry enqueues JobType every Interval. A zero Interval disables it.
type Entry struct {
	JobType  string
	Interval time.Duration
	Payload  func() map[string]any
}

type Config struct {
	SyncInterval      time.Duration
	RCLEnrichInterval time.Duration
	RCLEnrichLimit    int
	// RunOnStart fires every enabled entry once before the first tick.
	RunOnStart bool
}

func ConfigFromEnv() Config {
	return Config{
		SyncInterval:      envutil.Duration("SYNC_INTERVAL", 6*time.Hour),
		RCLEnrichInterval: envutil.Duration("RCL_ENRICH_INTERVAL", 24*time.Hour),
		RCLEnrichLimit:    envutil.Int("RCL_ENRICH_LIMIT", 50),
		RunOnStart:        envutil.Bool("SYNC_ON_START", false),
	}
}

// Entries maps the config onto the bill_sync and rcl_enrich jobs.
func (c Config) Entries() []Entry {
	limit := c.RCLEnrichLimit
	return []Entry{
		{
			JobType:  services.JobTypeBillSync,
			Interval: c.SyncInterval,
			Payload: func() map[string]any {
				return map[string]any{"trigger": types.SyncTriggerScheduled}
			},
		},
		{
			JobType:  services.JobTypeRCLEnrich,
			Interval: c.RCLEnrichInterval,
			Payload: func() map[string]any {
				return map[string]any{"limit": limit}
			},
		},
	}
}

type Scheduler struct {
	log        *logger.Logger
	jobs       services.JobService
	entries    []Entry
	runOnStart bool
	wg         sync.WaitGroup
}

func New(baseLog *logger.Logger, jobs services.JobService, cfg Config) *Scheduler {
	return NewWithEntries(baseLog, jobs, cfg.Entries(), cfg.RunOnStart)
}

func NewWithEntries(baseLog *logger.Logger, jobs services.JobService, entries []Entry, runOnStart bool) *Scheduler {
	enabled := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if e.Interval > 0 && e.JobType != "" {
			enabled = append(enabled, e)
		}
	}
	return &Scheduler{
		log:        baseLog.With("component", "Scheduler"),
		jobs:       jobs,
		entries:    enabled,
		runOnStart: runOnStart,
	}
}

// Start runs one loop per enabled entry until ctx is canceled.
func (s *Scheduler) Start(ctx context.Context) {
	if len(s.entries) == 0 {
		s.log.Info("Scheduler disabled")
		return
	}
	for _, e := range s.entries {
		s.log.Info("Scheduling job", "job_type", e.JobType, "interval", e.Interval.String())
		s.wg.Add(1)
		go func(e Entry) {
			defer s.wg.Done()
			s.loop(ctx, e)
		}(e)
	}
}

func (s *Scheduler) Wait() { s.wg.Wait() }

func (s *Scheduler) loop(ctx context.Context, e Entry) {
	if s.runOnStart {
		s.Fire(ctx, e)
	}
	ticker := time.NewTicker(e.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Fire(ctx, e)
		}
	}
}

// Fire enqueues e unless a job of the same type is already queued or running.
func (s *Scheduler) Fire(ctx context.Context, e Entry) bool {
	var payload map[string]any
	if e.Payload != nil {
		payload = e.Payload()
	}
	job, created, err := s.jobs.EnqueueIfIdle(dbctx.Context{Ctx: ctx}, nil, e.JobType, payload)
	if err != nil {
		if ctx.Err() == nil {
			s.log.Warn("Scheduled enqueue failed", "job_type", e.JobType, "error", err)
		}
		return false
	}
	if !created {
		s.log.Debug("Scheduled job skipped; previous run still pending", "job_type", e.JobType)
		return false
	}
	s.log.Info("Scheduled job enqueued", "job_type", e.JobType, "job_id", job.ID)
	return true
}
