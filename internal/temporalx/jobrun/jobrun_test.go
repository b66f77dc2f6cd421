package jobrun

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"go.temporal.io/sdk/activity"
	temporalsdkclient "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/testsuite"

	types "github.com/sciezka-prawa/sciezka-backend/internal/domain"
	"github.com/sciezka-prawa/sciezka-backend/internal/jobs/jobtest"
	jobrt "github.com/sciezka-prawa/sciezka-backend/internal/jobs/runtime"
	"github.com/sciezka-prawa/sciezka-backend/internal/platform/logger"
)

type stubHandler struct {
	runs int
	err  error
}

func (h *stubHandler) Type() string { return "bill_sync" }

func (h *stubHandler) Run(jc *jobrt.Context) error {
	h.runs++
	return h.err
}

func newActivities(t *testing.T, h *stubHandler, jobs ...*types.JobRun) (*Activities, *jobtest.Repo) {
	t.Helper()
	reg := jobrt.NewRegistry()
	if err := reg.Register(h); err != nil {
		t.Fatalf("register: %v", err)
	}
	repo := jobtest.NewRepo(jobs...)
	return &Activities{
		Log:       logger.Nop(),
		Jobs:      repo,
		Registry:  reg,
		Heartbeat: func(context.Context) {},
	}, repo
}

func TestExecuteRunsQueuedJob(t *testing.T) {
	job := &types.JobRun{ID: uuid.New(), JobType: "bill_sync", Status: types.JobStatusQueued}
	h := &stubHandler{}
	acts, repo := newActivities(t, h, job)

	res, err := acts.Execute(context.Background(), job.ID.String())
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.Status != types.JobStatusSucceeded || h.runs != 1 {
		t.Fatalf("result %+v runs %d", res, h.runs)
	}
	if got := repo.Get(job.ID); got.Attempts != 1 || got.Status != types.JobStatusSucceeded {
		t.Fatalf("stored job: %+v", got)
	}

	// A retried workflow must not run a finished job again.
	res, err = acts.Execute(context.Background(), job.ID.String())
	if err != nil || res.Status != types.JobStatusSucceeded || h.runs != 1 {
		t.Fatalf("second execute: %+v %v runs=%d", res, err, h.runs)
	}
}

func TestExecuteReportsHandlerFailure(t *testing.T) {
	job := &types.JobRun{ID: uuid.New(), JobType: "bill_sync", Status: types.JobStatusQueued}
	acts, _ := newActivities(t, &stubHandler{err: errors.New("sejm 503")}, job)

	res, err := acts.Execute(context.Background(), job.ID.String())
	if err != nil {
		t.Fatalf("handler failures are reported in the result, got %v", err)
	}
	if res.Status != types.JobStatusFailed || res.Error != "sejm 503" {
		t.Fatalf("result: %+v", res)
	}
}

func TestExecuteRejectsBadIDs(t *testing.T) {
	acts, _ := newActivities(t, &stubHandler{})
	if _, err := acts.Execute(context.Background(), "nope"); err == nil {
		t.Fatalf("expected invalid id error")
	}
	if _, err := acts.Execute(context.Background(), uuid.NewString()); err == nil {
		t.Fatalf("expected not found error")
	}
}

func TestWorkflow(t *testing.T) {
	cases := []struct {
		name    string
		result  RunResult
		wantErr bool
	}{
		{"succeeded", RunResult{Status: "succeeded", Stage: "done"}, false},
		{"failed", RunResult{Status: "failed", Stage: "sync", Error: "boom"}, true},
		{"running", RunResult{Status: "running"}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var suite testsuite.WorkflowTestSuite
			env := suite.NewTestWorkflowEnvironment()
			jobID := uuid.NewString()
			env.SetStartWorkflowOptions(temporalsdkclient.StartWorkflowOptions{ID: jobID})

			var gotID string
			env.RegisterActivityWithOptions(func(_ context.Context, id string) (RunResult, error) {
				gotID = id
				return tc.result, nil
			}, activity.RegisterOptions{Name: ActivityRun})

			env.ExecuteWorkflow(Workflow)
			if !env.IsWorkflowCompleted() {
				t.Fatalf("workflow did not complete")
			}
			if err := env.GetWorkflowError(); (err != nil) != tc.wantErr {
				t.Fatalf("workflow error: %v", err)
			}
			if gotID != jobID {
				t.Fatalf("activity got job id %q, want %q", gotID, jobID)
			}
		})
	}
}
