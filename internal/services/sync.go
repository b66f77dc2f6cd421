package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/sciezka-prawa/sciezka-backend/internal/data/repos"
	types "github.com/sciezka-prawa/sciezka-backend/internal/domain"
	"github.com/sciezka-prawa/sciezka-backend/internal/legislation/classify"
	"github.com/sciezka-prawa/sciezka-backend/internal/observability"
	"github.com/sciezka-prawa/sciezka-backend/internal/platform/dbctx"
	"github.com/sciezka-prawa/sciezka-backend/internal/platform/envutil"
	"github.com/sciezka-prawa/sciezka-backend/internal/platform/logger"
	"github.com/sciezka-prawa/sciezka-backend/internal/platform/redis"
	"github.com/sciezka-prawa/sciezka-backend/internal/platform/sejm"
)

const syncLockKey = "bill_sync"

type SyncConfig struct {
	DefaultTerm      int
	PageSize         int
	FetchConcurrency int
	LockTTL          time.Duration
}

func SyncConfigFromEnv() SyncConfig {
	return SyncConfig{
		DefaultTerm:      envutil.Int("SEJM_TERM", 10),
		PageSize:         envutil.Int("SYNC_PAGE_SIZE", 50),
		FetchConcurrency: envutil.Int("SYNC_FETCH_CONCURRENCY", 4),
		LockTTL:          envutil.Duration("SYNC_LOCK_TTL", 30*time.Minute),
	}
}

type SyncOptions struct {
	Term int
	// Since stops the listing at the first process changed before it.
	Since   *time.Time
	Limit   int
	Trigger string
	JobID   *uuid.UUID
	// Progress is called after every processed bill.
	Progress func(processed, listed int)
}

type SyncReport struct {
	RunID      uuid.UUID `json:"run_id"`
	Term       int       `json:"term"`
	Trigger    string    `json:"trigger"`
	Status     string    `json:"status"`
	Listed     int       `json:"listed"`
	Processed  int       `json:"processed"`
	Created    int       `json:"created"`
	Updated    int       `json:"updated"`
	Changed    int       `json:"changed"`
	Failed     int       `json:"failed"`
	Errors     []string  `json:"errors"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

func (r *SyncReport) fail(sejmID string, err error) {
	r.Failed++
	r.Errors = append(r.Errors, fmt.Sprintf("%s: %v", sejmID, err))
}

type SyncService interface {
	Run(ctx context.Context, opts SyncOptions) (*SyncReport, error)
	ListRuns(dbc dbctx.Context, page, pageSize int) ([]*types.SyncRun, error)
}

type syncService struct {
	db            *gorm.DB
	log           *logger.Logger
	bills         repos.BillRepo
	events        repos.BillEventRepo
	runs          repos.SyncRunRepo
	sejm          sejm.Client
	classifier    *classify.Classifier
	notifications NotificationService
	locker        redis.Locker
	bus           redis.Bus
	metrics       *observability.Metrics
	cfg           SyncConfig
}

func NewSyncService(
	db *gorm.DB,
	baseLog *logger.Logger,
	bills repos.BillRepo,
	events repos.BillEventRepo,
	runs repos.SyncRunRepo,
	sejmClient sejm.Client,
	classifier *classify.Classifier,
	notifications NotificationService,
	locker redis.Locker,
	bus redis.Bus,
	metrics *observability.Metrics,
	cfg SyncConfig,
) SyncService {
	if cfg.DefaultTerm <= 0 {
		cfg.DefaultTerm = 10
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 50
	}
	if cfg.FetchConcurrency <= 0 {
		cfg.FetchConcurrency = 4
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 30 * time.Minute
	}
	if classifier == nil {
		classifier = classify.Default()
	}
	if locker == nil {
		locker = redis.NewMemoryLocker()
	}
	return &syncService{
		db:            db,
		log:           baseLog.With("service", "SyncService"),
		bills:         bills,
		events:        events,
		runs:          runs,
		sejm:          sejmClient,
		classifier:    classifier,
		notifications: notifications,
		locker:        locker,
		bus:           bus,
		metrics:       metrics,
		cfg:           cfg,
	}
}

func (s *syncService) Run(ctx context.Context, opts SyncOptions) (*SyncReport, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.Term <= 0 {
		opts.Term = s.cfg.DefaultTerm
	}
	if opts.Trigger == "" {
		opts.Trigger = types.SyncTriggerManual
	}

	lease, err := s.locker.TryLock(ctx, syncLockKey, s.cfg.LockTTL)
	if err != nil {
		if errors.Is(err, redis.ErrLocked) {
			return nil, ErrSyncInProgress
		}
		return nil, fmt.Errorf("acquire sync lock: %w", err)
	}
	defer func() {
		relCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := lease.Release(relCtx); err != nil {
			s.log.Warn("release sync lock failed", "error", err)
		}
	}()

	ctx, span := observability.StartSpan(ctx, "sync.run",
		attribute.Int("sync.term", opts.Term),
		attribute.String("sync.trigger", opts.Trigger),
	)
	defer span.End()

	report := &SyncReport{
		Term:      opts.Term,
		Trigger:   opts.Trigger,
		Status:    types.SyncStatusRunning,
		Errors:    []string{},
		StartedAt: time.Now().UTC(),
	}
	run := &types.SyncRun{
		ID:        uuid.New(),
		Trigger:   opts.Trigger,
		Term:      opts.Term,
		Status:    types.SyncStatusRunning,
		Errors:    datatypes.JSONSlice[string]{},
		JobID:     opts.JobID,
		StartedAt: report.StartedAt,
	}
	if err := s.runs.Create(dbctx.Context{Ctx: ctx}, run); err != nil {
		return nil, fmt.Errorf("create sync run: %w", err)
	}
	report.RunID = run.ID
	s.log.Info("sync started", "run_id", run.ID, "term", opts.Term, "trigger", opts.Trigger, "limit", opts.Limit)

	runErr := s.run(ctx, opts, report)

	report.FinishedAt = time.Now().UTC()
	switch {
	case runErr != nil:
		report.Status = types.SyncStatusFailed
		report.Errors = append(report.Errors, runErr.Error())
		span.RecordError(runErr)
		span.SetStatus(codes.Error, runErr.Error())
	case report.Failed > 0:
		report.Status = types.SyncStatusPartial
	default:
		report.Status = types.SyncStatusSucceeded
	}
	span.SetAttributes(
		attribute.Int("sync.listed", report.Listed),
		attribute.Int("sync.processed", report.Processed),
		attribute.Int("sync.failed", report.Failed),
	)

	finishedAt := report.FinishedAt
	run.Status = report.Status
	run.Listed = report.Listed
	run.Processed = report.Processed
	run.Created = report.Created
	run.Updated = report.Updated
	run.Changed = report.Changed
	run.Failed = report.Failed
	run.Errors = datatypes.JSONSlice[string](report.Errors)
	run.FinishedAt = &finishedAt
	// The run row must be closed even if ctx was cancelled mid-sync.
	finCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := s.runs.Finish(dbctx.Context{Ctx: finCtx}, run); err != nil {
		s.log.Error("finish sync run failed", "run_id", run.ID, "error", err)
	}

	s.metrics.SyncFinished(report.Trigger, report.Status, report.FinishedAt.Sub(report.StartedAt))
	s.publishFinished(finCtx, report)
	s.log.Info("sync finished",
		"run_id", run.ID,
		"status", report.Status,
		"listed", report.Listed,
		"processed", report.Processed,
		"created", report.Created,
		"changed", report.Changed,
		"failed", report.Failed,
		"duration", report.FinishedAt.Sub(report.StartedAt).String(),
	)
	if runErr != nil {
		return report, runErr
	}
	return report, nil
}

// run pages through the process list, newest change first, and processes each
// page before fetching the next.
func (s *syncService) run(ctx context.Context, opts SyncOptions, report *SyncReport) error {
	offset := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		pageSize := s.cfg.PageSize
		if opts.Limit > 0 && opts.Limit-report.Listed < pageSize {
			pageSize = opts.Limit - report.Listed
		}
		if pageSize <= 0 {
			return nil
		}
		headers, err := s.sejm.ListProcesses(ctx, opts.Term, sejm.ListOptions{
			Limit:  pageSize,
			Offset: offset,
			SortBy: "-changeDate",
		})
		s.metrics.Upstream("sejm", err)
		if err != nil {
			return fmt.Errorf("list processes: %w", err)
		}
		if len(headers) == 0 {
			return nil
		}
		offset += len(headers)

		batch, reachedSince := filterSince(headers, opts.Since)
		report.Listed += len(batch)
		if err := s.processBatch(ctx, opts, batch, report); err != nil {
			return err
		}
		if reachedSince || len(headers) < pageSize {
			return nil
		}
	}
}

// filterSince keeps the leading headers changed at or after since. The list is
// sorted by change date, so the first older entry ends the sync.
func filterSince(headers []sejm.ProcessHeader, since *time.Time) ([]sejm.ProcessHeader, bool) {
	if since == nil {
		return headers, false
	}
	for i, h := range headers {
		changed, ok := classify.ParseDate(h.ChangeDate)
		if ok && changed.Before(*since) {
			return headers[:i], true
		}
	}
	return headers, false
}

type fetchResult struct {
	process *classify.Process
	err     error
}

func (s *syncService) processBatch(ctx context.Context, opts SyncOptions, batch []sejm.ProcessHeader, report *SyncReport) error {
	if len(batch) == 0 {
		return nil
	}
	results := make([]fetchResult, len(batch))
	var g errgroup.Group
	g.SetLimit(s.cfg.FetchConcurrency)
	for i := range batch {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			p, err := s.sejm.GetProcess(ctx, opts.Term, batch[i].Number)
			s.metrics.Upstream("sejm", err)
			results[i] = fetchResult{process: p, err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	for i, h := range batch {
		sejmID := SejmID(opts.Term, h.Number)
		res := results[i]
		if res.err == nil && res.process == nil {
			res.err = fmt.Errorf("empty process")
		}
		if res.err != nil {
			report.fail(sejmID, res.err)
			s.metrics.SyncBill("failed")
		} else if err := s.processOne(ctx, res.process, report); err != nil {
			report.fail(sejmID, err)
			s.metrics.SyncBill("failed")
			s.log.Warn("bill sync failed", "sejm_id", sejmID, "error", err)
		}
		report.Processed++
		if opts.Progress != nil {
			opts.Progress(report.Processed, report.Listed)
		}
	}
	return nil
}

func (s *syncService) processOne(ctx context.Context, p *classify.Process, report *SyncReport) error {
	res := s.classifier.Classify(*p)
	bill := BillFromProcess(p, res)

	var up repos.UpsertResult
	err := inTx(dbctx.Context{Ctx: ctx}, s.db, func(dbc dbctx.Context) error {
		prev, err := s.bills.GetBySejmID(dbc, bill.SejmID)
		if err != nil {
			return fmt.Errorf("load bill: %w", err)
		}
		if prev != nil && prev.HasTag(classify.TagOSR) && !bill.HasTag(classify.TagOSR) {
			bill.Tags = append(bill.Tags, classify.TagOSR)
		}
		up, err = s.bills.Upsert(dbc, bill)
		if err != nil {
			return fmt.Errorf("upsert bill: %w", err)
		}
		evs := make([]*types.BillEvent, 0, len(res.Events))
		for _, e := range res.Events {
			evs = append(evs, &types.BillEvent{
				BillID:      up.Bill.ID,
				Source:      types.SourceSejm,
				EventDate:   e.Date,
				EventType:   e.Type,
				Description: e.Description,
			})
		}
		if err := s.events.ReplaceForSource(dbc, up.Bill.ID, types.SourceSejm, evs); err != nil {
			return fmt.Errorf("replace events: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	switch {
	case up.Created:
		report.Created++
		s.metrics.SyncBill("created")
	case up.StatusChanged():
		report.Updated++
		report.Changed++
		s.metrics.SyncBill("changed")
	default:
		report.Updated++
		s.metrics.SyncBill("updated")
	}
	if up.StatusChanged() && s.notifications != nil {
		if err := s.notifications.NotifyStatusChange(dbctx.Context{Ctx: ctx}, up.Bill, up.PreviousStatus, up.Bill.Status); err != nil {
			s.log.Warn("status change notification failed", "bill_id", up.Bill.ID, "error", err)
		}
	}
	return nil
}

func (s *syncService) publishFinished(ctx context.Context, report *SyncReport) {
	if s.bus == nil {
		return
	}
	ev, err := redis.NewEvent(redis.EventSyncFinished, report)
	if err != nil {
		return
	}
	if err := s.bus.Publish(ctx, ev); err != nil {
		s.log.Warn("publish sync finished failed", "run_id", report.RunID, "error", err)
	}
}

func (s *syncService) ListRuns(dbc dbctx.Context, page, pageSize int) ([]*types.SyncRun, error) {
	page, pageSize = clampPage(page, pageSize)
	out, err := s.runs.ListRecent(dbc, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, fmt.Errorf("list sync runs: %w", err)
	}
	if out == nil {
		out = []*types.SyncRun{}
	}
	return out, nil
}

// SejmID is the stable bill key: "<term>/<process number>".
func SejmID(term int, number string) string {
	return fmt.Sprintf("%d/%s", term, number)
}

// BillFromProcess maps a classified Sejm process onto the columns the sync owns.
func BillFromProcess(p *classify.Process, res classify.Result) *types.Bill {
	tags := datatypes.JSONSlice[string]{}
	tags = append(tags, res.Tags...)
	b := &types.Bill{
		SejmID:        SejmID(p.Term, p.Number),
		Term:          p.Term,
		ProcessNumber: p.Number,
		Title:         p.Title,
		Description:   p.Description,
		Status:        string(res.Status),
		Category:      string(res.Category),
		SubmitterType: string(res.SubmitterType),
		Tags:          tags,
		ELI:           p.ELI,
		Passed:        p.Passed,
		RCLNumber:     p.RCLNum,
		SourceURL:     fmt.Sprintf("https://www.sejm.gov.pl/Sejm%d.nsf/PrzebiegProc.xsp?nr=%s", p.Term, p.Number),
	}
	for _, raw := range []string{p.ProcessStartDate, p.DocumentDate} {
		if t, ok := classify.ParseDate(raw); ok {
			b.SubmissionDate = &t
			break
		}
	}
	if t, ok := classify.ParseDate(p.ChangeDate); ok {
		b.LastUpdated = &t
	}
	return b
}
