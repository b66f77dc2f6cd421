package runtime

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	types "github.com/sciezka-prawa/sciezka-backend/internal/domain"
	"github.com/sciezka-prawa/sciezka-backend/internal/jobs/jobtest"
	"github.com/sciezka-prawa/sciezka-backend/internal/platform/ctxutil"
)

type recordingNotifier struct {
	events []string
}

func (n *recordingNotifier) JobCreated(*types.JobRun) { n.events = append(n.events, "created") }
func (n *recordingNotifier) JobProgress(_ *types.JobRun, stage string, _ int) {
	n.events = append(n.events, "progress:"+stage)
}
func (n *recordingNotifier) JobFailed(_ *types.JobRun, stage, _ string) {
	n.events = append(n.events, "failed:"+stage)
}
func (n *recordingNotifier) JobDone(*types.JobRun) { n.events = append(n.events, "done") }

type handlerFunc struct {
	typ string
	fn  func(*Context) error
}

func (h handlerFunc) Type() string { return h.typ }
func (h handlerFunc) Run(jc *Context) error { return h.fn(jc) }

func newJob(jobType, payload string) *types.JobRun {
	return &types.JobRun{
		ID:      uuid.New(),
		JobType: jobType,
		Status:  types.JobStatusRunning,
		Payload: datatypes.JSON([]byte(payload)),
	}
}

func TestPayloadAccessors(t *testing.T) {
	id := uuid.New()
	job := newJob("bill_sync", `{"term":10,"limit":"25","bill_id":"`+id.String()+`","since":"2024-03-01","trace_id":"tr-1"}`)
	jc := NewContext(context.Background(), nil, job, nil, nil, nil)

	if n, ok := jc.PayloadInt("term"); !ok || n != 10 {
		t.Fatalf("term: got %d %v", n, ok)
	}
	if n, ok := jc.PayloadInt("limit"); !ok || n != 25 {
		t.Fatalf("limit: got %d %v", n, ok)
	}
	if _, ok := jc.PayloadInt("missing"); ok {
		t.Fatalf("missing key parsed")
	}
	if got, ok := jc.PayloadUUID("bill_id"); !ok || got != id {
		t.Fatalf("bill_id: got %s %v", got, ok)
	}
	since, ok := jc.PayloadTime("since")
	if !ok || since.Format("2006-01-02") != "2024-03-01" {
		t.Fatalf("since: got %v %v", since, ok)
	}
	td := ctxutil.GetTraceData(jc.Ctx)
	if td == nil || td.TraceID != "tr-1" {
		t.Fatalf("trace data not restored: %+v", td)
	}
}

func TestMalformedPayloadIsEmpty(t *testing.T) {
	jc := NewContext(context.Background(), nil, newJob("x", `not json`), nil, nil, nil)
	if got := len(jc.Payload()); got != 0 {
		t.Fatalf("payload size: got %d", got)
	}
}

func TestLifecyclePersistsAndNotifies(t *testing.T) {
	job := newJob("bill_sync", `{}`)
	repo := jobtest.NewRepo(job)
	notify := &recordingNotifier{}
	jc := NewContext(context.Background(), nil, job, repo, notify, nil)

	jc.Progress("fetch", 150)
	if got := repo.Get(job.ID); got.Stage != "fetch" || got.Progress != 99 {
		t.Fatalf("progress not stored: %+v", got)
	}
	jc.Succeed("done", map[string]int{"created": 3})
	got := repo.Get(job.ID)
	if got.Status != types.JobStatusSucceeded || got.Progress != 100 {
		t.Fatalf("succeed not stored: %+v", got)
	}
	if string(got.Result) != `{"created":3}` {
		t.Fatalf("result: got %s", got.Result)
	}

	// A finished run is never downgraded.
	jc.Fail("late", errors.New("boom"))
	if got := repo.Get(job.ID); got.Status != types.JobStatusSucceeded {
		t.Fatalf("status overwritten: %s", got.Status)
	}
	want := []string{"progress:fetch", "done"}
	if len(notify.events) != len(want) {
		t.Fatalf("events: got %v want %v", notify.events, want)
	}
	for i := range want {
		if notify.events[i] != want[i] {
			t.Fatalf("events: got %v want %v", notify.events, want)
		}
	}
}

func TestRegistryRun(t *testing.T) {
	reg := NewRegistry()
	if err := reg.Register(handlerFunc{typ: "ok", fn: func(*Context) error { return nil }}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := reg.Register(handlerFunc{typ: "ok", fn: func(*Context) error { return nil }}); err == nil {
		t.Fatalf("expected duplicate registration error")
	}
	_ = reg.Register(handlerFunc{typ: "err", fn: func(*Context) error { return errors.New("boom") }})
	_ = reg.Register(handlerFunc{typ: "panic", fn: func(*Context) error { panic("kaboom") }})

	cases := []struct {
		jobType   string
		wantErr   bool
		wantState string
		wantStage string
	}{
		{"ok", false, types.JobStatusSucceeded, "done"},
		{"err", true, types.JobStatusFailed, "run"},
		{"panic", true, types.JobStatusFailed, "panic"},
		{"unknown", true, types.JobStatusFailed, "dispatch"},
	}
	for _, tc := range cases {
		t.Run(tc.jobType, func(t *testing.T) {
			job := newJob(tc.jobType, `{}`)
			repo := jobtest.NewRepo(job)
			err := reg.Run(NewContext(context.Background(), nil, job, repo, nil, nil))
			if (err != nil) != tc.wantErr {
				t.Fatalf("err: got %v", err)
			}
			got := repo.Get(job.ID)
			if got.Status != tc.wantState || got.Stage != tc.wantStage {
				t.Fatalf("got %s/%s want %s/%s", got.Status, got.Stage, tc.wantState, tc.wantStage)
			}
		})
	}
	if got := reg.Types(); len(got) != 3 || got[0] != "err" {
		t.Fatalf("types: %v", got)
	}
}
