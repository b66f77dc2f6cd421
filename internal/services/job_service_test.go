package services

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"

	types "github.com/sciezka-prawa/sciezka-backend/internal/domain"
	"github.com/sciezka-prawa/sciezka-backend/internal/platform/ctxutil"
	"github.com/sciezka-prawa/sciezka-backend/internal/platform/dbctx"
	"github.com/sciezka-prawa/sciezka-backend/internal/platform/logger"
	"github.com/sciezka-prawa/sciezka-backend/internal/platform/redis"
)

func TestEnqueueWithoutTemporalLeavesQueuedRow(t *testing.T) {
	repo := &fakeJobRepo{}
	bus := redis.NewMemoryBus()
	var events []redis.Event
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	_ = bus.Subscribe(ctx, func(ev redis.Event) { events = append(events, ev) })

	svc := NewJobService(nil, logger.Nop(), repo, NewJobNotifier(logger.Nop(), bus), nil, "")
	admin := uuid.New()
	reqCtx := ctxutil.WithTraceData(context.Background(), &ctxutil.TraceData{TraceID: "t-1", RequestID: "r-1"})

	job, err := svc.Enqueue(dbctx.Context{Ctx: reqCtx}, &admin, JobTypeBillSync, map[string]any{"limit": 5})
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if job.Status != types.JobStatusQueued || *job.RequestedBy != admin {
		t.Fatalf("job: %+v", job)
	}
	var payload map[string]any
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if payload["trace_id"] != "t-1" || payload["request_id"] != "r-1" || payload["limit"].(float64) != 5 {
		t.Fatalf("payload: %v", payload)
	}
	if len(events) != 1 || events[0].Type != redis.EventJobUpdated {
		t.Fatalf("expected one job event, got %+v", events)
	}

	got, err := svc.GetByID(dbctx.Context{Ctx: context.Background()}, job.ID)
	if err != nil || got.ID != job.ID {
		t.Fatalf("GetByID: %+v %v", got, err)
	}
	if _, err := svc.GetByID(dbctx.Context{Ctx: context.Background()}, uuid.New()); err == nil {
		t.Fatalf("expected not found")
	}
}

func TestEnqueueIfIdle(t *testing.T) {
	repo := &fakeJobRepo{}
	svc := NewJobService(nil, logger.Nop(), repo, nil, nil, "")
	dbc := dbctx.Context{Ctx: context.Background()}

	_, created, err := svc.EnqueueIfIdle(dbc, nil, JobTypeBillSync, nil)
	if err != nil || !created {
		t.Fatalf("first: created=%v err=%v", created, err)
	}
	_, created, err = svc.EnqueueIfIdle(dbc, nil, JobTypeBillSync, nil)
	if err != nil || created {
		t.Fatalf("second should be skipped: created=%v err=%v", created, err)
	}
	_, created, _ = svc.EnqueueIfIdle(dbc, nil, JobTypeRCLEnrich, nil)
	if !created {
		t.Fatalf("other job type should enqueue")
	}
}
