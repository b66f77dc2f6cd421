package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/goleak"

	types "github.com/sciezka-prawa/sciezka-backend/internal/domain"
	"github.com/sciezka-prawa/sciezka-backend/internal/platform/dbctx"
	"github.com/sciezka-prawa/sciezka-backend/internal/platform/logger"
	"github.com/sciezka-prawa/sciezka-backend/internal/services"
)

type fakeJobs struct {
	services.JobService

	mu       sync.Mutex
	busy     map[string]bool
	enqueued []map[string]any
	jobTypes []string
}

func (f *fakeJobs) EnqueueIfIdle(_ dbctx.Context, requestedBy *uuid.UUID, jobType string, payload map[string]any) (*types.JobRun, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if requestedBy != nil {
		panic("scheduled jobs have no requester")
	}
	if f.busy[jobType] {
		return nil, false, nil
	}
	f.enqueued = append(f.enqueued, payload)
	f.jobTypes = append(f.jobTypes, jobType)
	return &types.JobRun{ID: uuid.New(), JobType: jobType, Status: types.JobStatusQueued}, true, nil
}

func (f *fakeJobs) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.enqueued)
}

func TestFireSkipsWhenBusy(t *testing.T) {
	jobs := &fakeJobs{busy: map[string]bool{services.JobTypeBillSync: true}}
	s := New(logger.Nop(), jobs, Config{SyncInterval: time.Hour, RCLEnrichInterval: time.Hour, RCLEnrichLimit: 7})

	if s.Fire(context.Background(), s.entries[0]) {
		t.Fatalf("bill_sync should be skipped while one is pending")
	}
	if !s.Fire(context.Background(), s.entries[1]) {
		t.Fatalf("rcl_enrich should be enqueued")
	}
	if got := jobs.enqueued[0]["limit"]; got != 7 {
		t.Fatalf("rcl limit payload: %v", got)
	}
}

func TestSyncPayloadCarriesScheduledTrigger(t *testing.T) {
	jobs := &fakeJobs{}
	s := New(logger.Nop(), jobs, Config{SyncInterval: time.Hour})
	if len(s.entries) != 1 {
		t.Fatalf("zero interval entries should be dropped, got %d", len(s.entries))
	}
	s.Fire(context.Background(), s.entries[0])
	if got := jobs.enqueued[0]["trigger"]; got != types.SyncTriggerScheduled {
		t.Fatalf("trigger: %v", got)
	}
}

func TestDisabledSchedulerStartsNothing(t *testing.T) {
	defer goleak.VerifyNone(t)
	s := New(logger.Nop(), &fakeJobs{}, Config{})
	s.Start(context.Background())
	s.Wait()
}

func TestLoopTicksUntilCanceled(t *testing.T) {
	defer goleak.VerifyNone(t)

	jobs := &fakeJobs{}
	s := NewWithEntries(logger.Nop(), jobs, []Entry{{JobType: "bill_sync", Interval: 5 * time.Millisecond}}, true)
	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)

	deadline := time.Now().Add(5 * time.Second)
	for jobs.count() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	s.Wait()
	if jobs.count() < 3 {
		t.Fatalf("expected at least 3 enqueues, got %d", jobs.count())
	}
}
