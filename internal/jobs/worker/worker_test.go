package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"

	types "github.com/sciezka-prawa/sciezka-backend/internal/domain"
	"github.com/sciezka-prawa/sciezka-backend/internal/jobs/jobtest"
	"github.com/sciezka-prawa/sciezka-backend/internal/jobs/runtime"
	"github.com/sciezka-prawa/sciezka-backend/internal/platform/logger"
)

type countingHandler struct {
	typ  string
	runs atomic.Int32
	err  error
}

func (h *countingHandler) Type() string { return h.typ }

func (h *countingHandler) Run(jc *runtime.Context) error {
	h.runs.Add(1)
	if h.err != nil {
		return h.err
	}
	jc.Succeed("done", map[string]bool{"ok": true})
	return nil
}

func newWorker(t *testing.T, repo *jobtest.Repo, handlers ...runtime.Handler) *Worker {
	t.Helper()
	reg := runtime.NewRegistry()
	for _, h := range handlers {
		if err := reg.Register(h); err != nil {
			t.Fatalf("register: %v", err)
		}
	}
	return NewWorker(nil, logger.Nop(), repo, reg, nil, nil, Config{
		Concurrency:  2,
		PollInterval: 5 * time.Millisecond,
		MaxAttempts:  2,
		RetryDelay:   time.Hour,
	})
}

func TestRunOnceClaimsOldestFirst(t *testing.T) {
	now := time.Now()
	older := &types.JobRun{JobType: "bill_sync", Status: types.JobStatusQueued, CreatedAt: now.Add(-time.Minute)}
	newer := &types.JobRun{JobType: "bill_sync", Status: types.JobStatusQueued, CreatedAt: now}
	repo := jobtest.NewRepo(newer, older)
	h := &countingHandler{typ: "bill_sync"}
	w := newWorker(t, repo, h)

	if !w.RunOnce(context.Background(), 1) {
		t.Fatalf("expected a job to be claimed")
	}
	if got := repo.Get(older.ID); got.Status != types.JobStatusSucceeded || got.Attempts != 1 {
		t.Fatalf("older job: %+v", got)
	}
	if got := repo.Get(newer.ID); got.Status != types.JobStatusQueued {
		t.Fatalf("newer job should wait: %s", got.Status)
	}
}

func TestRunOnceEmptyQueue(t *testing.T) {
	w := newWorker(t, jobtest.NewRepo())
	if w.RunOnce(context.Background(), 1) {
		t.Fatalf("nothing to claim")
	}
}

func TestFailedJobWaitsForRetryDelay(t *testing.T) {
	job := &types.JobRun{JobType: "rcl_enrich", Status: types.JobStatusQueued}
	repo := jobtest.NewRepo(job)
	h := &countingHandler{typ: "rcl_enrich", err: errors.New("upstream down")}
	w := newWorker(t, repo, h)

	w.RunOnce(context.Background(), 1)
	got := repo.Get(job.ID)
	if got.Status != types.JobStatusFailed || got.Error != "upstream down" {
		t.Fatalf("job after failure: %+v", got)
	}
	if w.RunOnce(context.Background(), 1) {
		t.Fatalf("failed job reclaimed before retry delay")
	}
}

func TestPoolDrainsQueueAndStops(t *testing.T) {
	defer goleak.VerifyNone(t)

	jobs := make([]*types.JobRun, 5)
	for i := range jobs {
		jobs[i] = &types.JobRun{JobType: "bill_sync", Status: types.JobStatusQueued}
	}
	repo := jobtest.NewRepo(jobs...)
	h := &countingHandler{typ: "bill_sync"}
	w := newWorker(t, repo, h)

	ctx, cancel := context.WithCancel(context.Background())
	w.Start(ctx)
	deadline := time.After(5 * time.Second)
	for h.runs.Load() < int32(len(jobs)) {
		select {
		case <-deadline:
			cancel()
			w.Wait()
			t.Fatalf("only %d of %d jobs ran", h.runs.Load(), len(jobs))
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	w.Wait()

	for _, j := range repo.All() {
		if j.Status != types.JobStatusSucceeded {
			t.Fatalf("job %s: %s", j.ID, j.Status)
		}
	}
}
