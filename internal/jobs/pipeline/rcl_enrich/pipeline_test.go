package rcl_enrich

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	types "github.com/sciezka-prawa/sciezka-backend/internal/domain"
	"github.com/sciezka-prawa/sciezka-backend/internal/jobs/jobtest"
	jobrt "github.com/sciezka-prawa/sciezka-backend/internal/jobs/runtime"
	"github.com/sciezka-prawa/sciezka-backend/internal/platform/logger"
	"github.com/sciezka-prawa/sciezka-backend/internal/services"
)

type fakeEnrich struct {
	billID uuid.UUID
	limit  int
	err    error
}

func (f *fakeEnrich) EnrichBill(_ context.Context, id uuid.UUID) (*services.EnrichResult, error) {
	f.billID = id
	if f.err != nil {
		return nil, f.err
	}
	return &services.EnrichResult{BillID: id}, nil
}

func (f *fakeEnrich) EnrichGovernmentBills(_ context.Context, limit int) (*services.EnrichReport, error) {
	f.limit = limit
	if f.err != nil {
		return nil, f.err
	}
	return &services.EnrichReport{Attempted: 1, Enriched: 1, Errors: []string{}}, nil
}

func run(t *testing.T, fe *fakeEnrich, payload string) *types.JobRun {
	t.Helper()
	job := &types.JobRun{
		ID:      uuid.New(),
		JobType: services.JobTypeRCLEnrich,
		Status:  types.JobStatusRunning,
		Payload: datatypes.JSON([]byte(payload)),
	}
	repo := jobtest.NewRepo(job)
	_ = New(logger.Nop(), fe).Run(jobrt.NewContext(context.Background(), nil, job, repo, nil, nil))
	return repo.Get(job.ID)
}

func TestSingleBill(t *testing.T) {
	id := uuid.New()
	fe := &fakeEnrich{}
	got := run(t, fe, `{"bill_id":"`+id.String()+`"}`)
	if fe.billID != id {
		t.Fatalf("bill id: %s", fe.billID)
	}
	if got.Status != types.JobStatusSucceeded {
		t.Fatalf("status: %s", got.Status)
	}
}

func TestBatchUsesLimit(t *testing.T) {
	fe := &fakeEnrich{}
	got := run(t, fe, `{"limit":12}`)
	if fe.limit != 12 || got.Status != types.JobStatusSucceeded {
		t.Fatalf("limit %d status %s", fe.limit, got.Status)
	}
}

func TestFailureFailsJob(t *testing.T) {
	got := run(t, &fakeEnrich{err: errors.New("rcl down")}, `{}`)
	if got.Status != types.JobStatusFailed || got.Error != "rcl down" {
		t.Fatalf("job: %+v", got)
	}
}
