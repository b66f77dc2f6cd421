package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/sciezka-prawa/sciezka-backend/internal/data/repos"
	types "github.com/sciezka-prawa/sciezka-backend/internal/domain"
	"github.com/sciezka-prawa/sciezka-backend/internal/legislation/classify"
	"github.com/sciezka-prawa/sciezka-backend/internal/platform/apierr"
	"github.com/sciezka-prawa/sciezka-backend/internal/platform/dbctx"
	"github.com/sciezka-prawa/sciezka-backend/internal/platform/rcl"
	"github.com/sciezka-prawa/sciezka-backend/internal/platform/resend"
	"github.com/sciezka-prawa/sciezka-backend/internal/platform/sejm"
	"github.com/sciezka-prawa/sciezka-backend/internal/platform/youtube"
)

// ---- bills ----

type fakeBillRepo struct {
	mu    sync.Mutex
	byID  map[uuid.UUID]*types.Bill
	order []uuid.UUID
	// listed captures the last filter passed to List.
	listed repos.BillFilter
}

func newFakeBillRepo() *fakeBillRepo {
	return &fakeBillRepo{byID: map[uuid.UUID]*types.Bill{}}
}

func cloneBill(b *types.Bill) *types.Bill {
	c := *b
	c.Tags = append(datatypes.JSONSlice[string]{}, b.Tags...)
	return &c
}

func (r *fakeBillRepo) add(b *types.Bill) *types.Bill {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	r.byID[b.ID] = cloneBill(b)
	r.order = append(r.order, b.ID)
	return b
}

func (r *fakeBillRepo) Upsert(_ dbctx.Context, bill *types.Bill) (repos.UpsertResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, prev := range r.byID {
		if prev.SejmID != bill.SejmID {
			continue
		}
		bill.ID = prev.ID
		if bill.Ministry == "" {
			bill.Ministry = prev.Ministry
		}
		if bill.RCLURL == "" {
			bill.RCLURL = prev.RCLURL
		}
		prevStatus := prev.Status
		r.byID[bill.ID] = cloneBill(bill)
		return repos.UpsertResult{Bill: bill, PreviousStatus: prevStatus}, nil
	}
	if bill.ID == uuid.Nil {
		bill.ID = uuid.New()
	}
	r.byID[bill.ID] = cloneBill(bill)
	r.order = append(r.order, bill.ID)
	return repos.UpsertResult{Bill: bill, Created: true}, nil
}

func (r *fakeBillRepo) GetByID(_ dbctx.Context, id uuid.UUID) (*types.Bill, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.byID[id]; ok {
		return cloneBill(b), nil
	}
	return nil, nil
}

func (r *fakeBillRepo) GetBySejmID(_ dbctx.Context, sejmID string) (*types.Bill, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range r.byID {
		if b.SejmID == sejmID {
			return cloneBill(b), nil
		}
	}
	return nil, nil
}

func (r *fakeBillRepo) List(_ dbctx.Context, f repos.BillFilter) ([]*types.Bill, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listed = f
	var out []*types.Bill
	for _, id := range r.order {
		b := r.byID[id]
		if f.Status != "" && b.Status != f.Status {
			continue
		}
		out = append(out, cloneBill(b))
	}
	total := int64(len(out))
	if f.Offset < len(out) {
		out = out[f.Offset:]
	} else {
		out = nil
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, total, nil
}

func (r *fakeBillRepo) Stats(_ dbctx.Context) (*repos.BillStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st := &repos.BillStats{ByStatus: map[string]int64{}, ByCategory: map[string]int64{}}
	for _, b := range r.byID {
		st.Total++
		st.ByStatus[b.Status]++
		st.ByCategory[b.Category]++
	}
	return st, nil
}

func (r *fakeBillRepo) ListForEnrichment(_ dbctx.Context, limit int) ([]*types.Bill, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*types.Bill
	for _, id := range r.order {
		b := r.byID[id]
		if b.SubmitterType == string(classify.SubmitterGovernment) && b.RCLNumber != "" {
			out = append(out, cloneBill(b))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].RCLCheckedAt, out[j].RCLCheckedAt
		if a == nil || b == nil {
			return a == nil && b != nil
		}
		return a.Before(*b)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeBillRepo) UpdateFields(_ dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.byID[id]
	if !ok {
		return apierr.ErrNotFound
	}
	for k, v := range updates {
		switch k {
		case "ministry":
			b.Ministry = v.(string)
		case "rcl_url":
			b.RCLURL = v.(string)
		case "tags":
			b.Tags = v.(datatypes.JSONSlice[string])
		case "updated_at":
			b.UpdatedAt = v.(time.Time)
		default:
			return fmt.Errorf("unexpected column %q", k)
		}
	}
	return nil
}

func (r *fakeBillRepo) AddTag(_ dbctx.Context, id uuid.UUID, tag string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.byID[id]
	if !ok {
		return apierr.ErrNotFound
	}
	if !b.HasTag(tag) {
		b.Tags = append(b.Tags, tag)
	}
	return nil
}

func (r *fakeBillRepo) MarkRCLChecked(_ dbctx.Context, id uuid.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.byID[id]
	if !ok {
		return apierr.ErrNotFound
	}
	at = at.UTC()
	b.RCLCheckedAt = &at
	return nil
}

type fakeBillEventRepo struct {
	mu     sync.Mutex
	events map[uuid.UUID]map[string][]*types.BillEvent
}

func newFakeBillEventRepo() *fakeBillEventRepo {
	return &fakeBillEventRepo{events: map[uuid.UUID]map[string][]*types.BillEvent{}}
}

func (r *fakeBillEventRepo) ReplaceForSource(_ dbctx.Context, billID uuid.UUID, source string, events []*types.BillEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.events[billID] == nil {
		r.events[billID] = map[string][]*types.BillEvent{}
	}
	r.events[billID][source] = events
	return nil
}

func (r *fakeBillEventRepo) ListByBill(_ dbctx.Context, billID uuid.UUID) ([]*types.BillEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*types.BillEvent
	for _, evs := range r.events[billID] {
		out = append(out, evs...)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EventDate.Before(out[j].EventDate) })
	return out, nil
}

func (r *fakeBillEventRepo) bySource(billID uuid.UUID, source string) []*types.BillEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.events[billID][source]
}

type fakeSyncRunRepo struct {
	mu   sync.Mutex
	runs []*types.SyncRun
}

func (r *fakeSyncRunRepo) Create(_ dbctx.Context, run *types.SyncRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := *run
	r.runs = append(r.runs, &c)
	return nil
}

func (r *fakeSyncRunRepo) Finish(_ dbctx.Context, run *types.SyncRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, existing := range r.runs {
		if existing.ID == run.ID {
			c := *run
			r.runs[i] = &c
			return nil
		}
	}
	return apierr.ErrNotFound
}

func (r *fakeSyncRunRepo) GetByID(_ dbctx.Context, id uuid.UUID) (*types.SyncRun, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, run := range r.runs {
		if run.ID == id {
			c := *run
			return &c, nil
		}
	}
	return nil, nil
}

func (r *fakeSyncRunRepo) ListRecent(_ dbctx.Context, limit, offset int) ([]*types.SyncRun, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*types.SyncRun
	for i := len(r.runs) - 1; i >= 0; i-- {
		out = append(out, r.runs[i])
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ---- users ----

type fakeAlertRepo struct {
	mu     sync.Mutex
	alerts []*types.UserAlert
}

func (r *fakeAlertRepo) Create(_ dbctx.Context, alert *types.UserAlert) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.alerts {
		if a.UserID == alert.UserID && a.BillID == alert.BillID {
			return fmt.Errorf("%w: idx_user_alert_user_bill", apierr.ErrConflict)
		}
	}
	c := *alert
	r.alerts = append(r.alerts, &c)
	return nil
}

func (r *fakeAlertRepo) GetForUser(_ dbctx.Context, userID, id uuid.UUID) (*types.UserAlert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.alerts {
		if a.ID == id && a.UserID == userID {
			c := *a
			return &c, nil
		}
	}
	return nil, nil
}

func (r *fakeAlertRepo) ListByUser(_ dbctx.Context, userID uuid.UUID) ([]*types.UserAlert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*types.UserAlert
	for _, a := range r.alerts {
		if a.UserID == userID {
			c := *a
			out = append(out, &c)
		}
	}
	return out, nil
}

func (r *fakeAlertRepo) ListActiveByBill(_ dbctx.Context, billID uuid.UUID) ([]*types.UserAlert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*types.UserAlert
	for _, a := range r.alerts {
		if a.BillID == billID && a.IsActive {
			c := *a
			out = append(out, &c)
		}
	}
	return out, nil
}

func (r *fakeAlertRepo) UpdateForUser(_ dbctx.Context, userID, id uuid.UUID, updates map[string]interface{}) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.alerts {
		if a.ID != id || a.UserID != userID {
			continue
		}
		if v, ok := updates["is_active"]; ok {
			a.IsActive = v.(bool)
		}
		if v, ok := updates["notify_email"]; ok {
			a.NotifyEmail = v.(bool)
		}
		return true, nil
	}
	return false, nil
}

func (r *fakeAlertRepo) DeleteForUser(_ dbctx.Context, userID, id uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, a := range r.alerts {
		if a.ID == id && a.UserID == userID {
			r.alerts = append(r.alerts[:i], r.alerts[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

type fakeProfileRepo struct {
	mu       sync.Mutex
	profiles map[uuid.UUID]*types.Profile
	upserts  int
}

func newFakeProfileRepo(ps ...*types.Profile) *fakeProfileRepo {
	r := &fakeProfileRepo{profiles: map[uuid.UUID]*types.Profile{}}
	for _, p := range ps {
		r.profiles[p.ID] = p
	}
	return r
}

func (r *fakeProfileRepo) GetByID(_ dbctx.Context, id uuid.UUID) (*types.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.profiles[id]; ok {
		c := *p
		return &c, nil
	}
	return nil, nil
}

func (r *fakeProfileRepo) GetByIDs(_ dbctx.Context, ids []uuid.UUID) ([]*types.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*types.Profile
	for _, id := range ids {
		if p, ok := r.profiles[id]; ok {
			c := *p
			out = append(out, &c)
		}
	}
	return out, nil
}

func (r *fakeProfileRepo) Upsert(_ dbctx.Context, p *types.Profile) (*types.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.upserts++
	if existing, ok := r.profiles[p.ID]; ok {
		existing.Email = p.Email
		existing.DisplayName = p.DisplayName
		c := *existing
		return &c, nil
	}
	c := *p
	r.profiles[p.ID] = &c
	out := c
	return &out, nil
}

func (r *fakeProfileRepo) SetRole(_ dbctx.Context, id uuid.UUID, role string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.profiles[id]
	if !ok {
		return apierr.ErrNotFound
	}
	p.Role = role
	return nil
}

type fakeNotificationRepo struct {
	mu    sync.Mutex
	notes []*types.Notification
}

func (r *fakeNotificationRepo) Create(_ dbctx.Context, notes []*types.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range notes {
		c := *n
		r.notes = append(r.notes, &c)
	}
	return nil
}

func (r *fakeNotificationRepo) ListByUser(_ dbctx.Context, userID uuid.UUID, unreadOnly bool, limit, offset int) ([]*types.Notification, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*types.Notification
	for _, n := range r.notes {
		if n.UserID != userID || (unreadOnly && n.ReadAt != nil) {
			continue
		}
		out = append(out, n)
	}
	total := int64(len(out))
	if offset >= len(out) {
		return nil, total, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, total, nil
}

func (r *fakeNotificationRepo) CountUnread(_ dbctx.Context, userID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, note := range r.notes {
		if note.UserID == userID && note.ReadAt == nil {
			n++
		}
	}
	return n, nil
}

func (r *fakeNotificationRepo) MarkRead(_ dbctx.Context, userID, id uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range r.notes {
		if n.ID == id && n.UserID == userID {
			if n.ReadAt == nil {
				now := time.Now()
				n.ReadAt = &now
			}
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeNotificationRepo) MarkAllRead(_ dbctx.Context, userID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	now := time.Now()
	for _, n := range r.notes {
		if n.UserID == userID && n.ReadAt == nil {
			n.ReadAt = &now
			count++
		}
	}
	return count, nil
}

func (r *fakeNotificationRepo) all() []*types.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*types.Notification(nil), r.notes...)
}

// ---- jobs ----

type fakeJobRepo struct {
	mu   sync.Mutex
	jobs []*types.JobRun
}

func (r *fakeJobRepo) Create(_ dbctx.Context, jobs []*types.JobRun) ([]*types.JobRun, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs = append(r.jobs, jobs...)
	return jobs, nil
}

func (r *fakeJobRepo) GetByID(_ dbctx.Context, id uuid.UUID) (*types.JobRun, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, j := range r.jobs {
		if j.ID == id {
			c := *j
			return &c, nil
		}
	}
	return nil, nil
}

func (r *fakeJobRepo) ListRecent(_ dbctx.Context, jobType string, limit int) ([]*types.JobRun, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*types.JobRun
	for i := len(r.jobs) - 1; i >= 0 && len(out) < limit; i-- {
		if jobType == "" || r.jobs[i].JobType == jobType {
			out = append(out, r.jobs[i])
		}
	}
	return out, nil
}

func (r *fakeJobRepo) ClaimNextRunnable(_ dbctx.Context, _ int, _ time.Duration, _ time.Duration) (*types.JobRun, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, j := range r.jobs {
		if j.Status == types.JobStatusQueued {
			j.Status = types.JobStatusRunning
			j.Attempts++
			c := *j
			return &c, nil
		}
	}
	return nil, nil
}

func (r *fakeJobRepo) UpdateFields(_ dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, j := range r.jobs {
		if j.ID == id {
			if v, ok := updates["status"].(string); ok {
				j.Status = v
			}
			if v, ok := updates["error"].(string); ok {
				j.Error = v
			}
			if v, ok := updates["stage"].(string); ok {
				j.Stage = v
			}
		}
	}
	return nil
}

func (r *fakeJobRepo) UpdateFieldsUnlessStatus(dbc dbctx.Context, id uuid.UUID, disallowed []string, updates map[string]interface{}) (bool, error) {
	j, _ := r.GetByID(dbc, id)
	if j == nil {
		return false, nil
	}
	for _, s := range disallowed {
		if j.Status == s {
			return false, nil
		}
	}
	return true, r.UpdateFields(dbc, id, updates)
}

func (r *fakeJobRepo) Heartbeat(_ dbctx.Context, _ uuid.UUID) error { return nil }

func (r *fakeJobRepo) ExistsRunnable(_ dbctx.Context, jobType string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, j := range r.jobs {
		if j.JobType == jobType && j.Runnable() {
			return true, nil
		}
	}
	return false, nil
}

// ---- upstream clients ----

type fakeSejm struct {
	mu        sync.Mutex
	headers   []sejm.ProcessHeader
	processes map[string]*classify.Process
	failOn    map[string]error
	listCalls int
}

func (f *fakeSejm) ListProcesses(_ context.Context, term int, opts sejm.ListOptions) ([]sejm.ProcessHeader, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if opts.Offset >= len(f.headers) {
		return nil, nil
	}
	out := f.headers[opts.Offset:]
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return append([]sejm.ProcessHeader(nil), out...), nil
}

func (f *fakeSejm) GetProcess(_ context.Context, term int, number string) (*classify.Process, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failOn[number]; err != nil {
		return nil, err
	}
	p, ok := f.processes[number]
	if !ok {
		return nil, fmt.Errorf("sejm: process %s not found", number)
	}
	c := *p
	return &c, nil
}

type fakeRCL struct {
	listings map[string]*rcl.Listing
	projects map[string]*rcl.Project
}

func (f *fakeRCL) SearchByNumber(_ context.Context, number string) (*rcl.Listing, error) {
	if l, ok := f.listings[strings.ToUpper(number)]; ok {
		return l, nil
	}
	return nil, fmt.Errorf("%w: %s", rcl.ErrNotFound, number)
}

func (f *fakeRCL) FetchProject(_ context.Context, id string) (*rcl.Project, error) {
	if p, ok := f.projects[id]; ok {
		return p, nil
	}
	return nil, fmt.Errorf("rcl: project %s missing", id)
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []resend.SendEmailRequest
	fail map[string]error
}

func (m *fakeMailer) Send(_ context.Context, req resend.SendEmailRequest) (*resend.SendEmailResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(req.To) > 0 {
		if err := m.fail[req.To[0]]; err != nil {
			return nil, err
		}
	}
	m.sent = append(m.sent, req)
	return &resend.SendEmailResult{StatusCode: 200, MessageID: "msg"}, nil
}

type fakeYouTube struct {
	mu        sync.Mutex
	broadcast *youtube.Broadcast
	err       error
	calls     int
}

func (f *fakeYouTube) CurrentBroadcast(context.Context) (*youtube.Broadcast, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.broadcast, f.err
}

type fakeArchive struct {
	keys []string
}

func (a *fakeArchive) Put(_ context.Context, key string, _ []byte, _ string) (string, error) {
	a.keys = append(a.keys, key)
	return "gs://archive/" + key, nil
}

func (a *fakeArchive) Close() error { return nil }
