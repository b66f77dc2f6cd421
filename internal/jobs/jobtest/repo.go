// Package jobtest provides an in-memory job_run store for job package tests.
package jobtest

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	types "github.com/sciezka-prawa/sciezka-backend/internal/domain"
	"github.com/sciezka-prawa/sciezka-backend/internal/platform/dbctx"
)

// Repo implements repos.JobRunRepo over a map. Claims follow the same rules as
// the postgres query, minus row locking.
type Repo struct {
	mu   sync.Mutex
	jobs map[uuid.UUID]*types.JobRun
}

func NewRepo(jobs ...*types.JobRun) *Repo {
	r := &Repo{jobs: map[uuid.UUID]*types.JobRun{}}
	for _, j := range jobs {
		r.put(j)
	}
	return r
}

func (r *Repo) put(j *types.JobRun) {
	if j.ID == uuid.Nil {
		j.ID = uuid.New()
	}
	if j.CreatedAt.IsZero() {
		j.CreatedAt = time.Now()
	}
	cp := *j
	r.jobs[j.ID] = &cp
}

// Get returns a copy of the stored row.
func (r *Repo) Get(id uuid.UUID) *types.JobRun {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	if !ok {
		return nil
	}
	cp := *j
	return &cp
}

func (r *Repo) All() []*types.JobRun {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*types.JobRun, 0, len(r.jobs))
	for _, j := range r.jobs {
		cp := *j
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, k int) bool { return out[i].CreatedAt.Before(out[k].CreatedAt) })
	return out
}

func (r *Repo) Create(_ dbctx.Context, jobs []*types.JobRun) ([]*types.JobRun, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, j := range jobs {
		r.put(j)
	}
	return jobs, nil
}

func (r *Repo) GetByID(_ dbctx.Context, id uuid.UUID) (*types.JobRun, error) {
	return r.Get(id), nil
}

func (r *Repo) ListRecent(_ dbctx.Context, jobType string, limit int) ([]*types.JobRun, error) {
	all := r.All()
	out := []*types.JobRun{}
	for i := len(all) - 1; i >= 0 && len(out) < limit; i-- {
		if jobType == "" || all[i].JobType == jobType {
			out = append(out, all[i])
		}
	}
	return out, nil
}

func (r *Repo) ClaimNextRunnable(_ dbctx.Context, maxAttempts int, retryDelay, staleRunning time.Duration) (*types.JobRun, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	var next *types.JobRun
	for _, j := range r.jobs {
		runnable := j.Status == types.JobStatusQueued ||
			(j.Status == types.JobStatusFailed && j.Attempts < maxAttempts &&
				(j.LastErrorAt == nil || j.LastErrorAt.Before(now.Add(-retryDelay)))) ||
			(j.Status == types.JobStatusRunning && j.HeartbeatAt != nil && j.HeartbeatAt.Before(now.Add(-staleRunning)))
		if runnable && (next == nil || j.CreatedAt.Before(next.CreatedAt)) {
			next = j
		}
	}
	if next == nil {
		return nil, nil
	}
	next.Status = types.JobStatusRunning
	next.Attempts++
	next.LockedAt = &now
	next.HeartbeatAt = &now
	cp := *next
	return &cp, nil
}

func (r *Repo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	_, err := r.UpdateFieldsUnlessStatus(dbc, id, nil, updates)
	return err
}

func (r *Repo) UpdateFieldsUnlessStatus(_ dbctx.Context, id uuid.UUID, disallowed []string, updates map[string]interface{}) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	if !ok {
		return false, nil
	}
	for _, s := range disallowed {
		if j.Status == s {
			return false, nil
		}
	}
	for k, v := range updates {
		switch k {
		case "status":
			j.Status = v.(string)
		case "stage":
			j.Stage = v.(string)
		case "progress":
			j.Progress = v.(int)
		case "attempts":
			j.Attempts = v.(int)
		case "error":
			j.Error = v.(string)
		case "heartbeat_at":
			t := v.(time.Time)
			j.HeartbeatAt = &t
		case "last_error_at":
			t := v.(time.Time)
			j.LastErrorAt = &t
		case "locked_at":
			if t, ok := v.(time.Time); ok {
				j.LockedAt = &t
			} else {
				j.LockedAt = nil
			}
		case "updated_at":
			j.UpdatedAt = v.(time.Time)
		case "result":
			if b, ok := v.(datatypes.JSON); ok {
				j.Result = b
			}
		}
	}
	return true, nil
}

func (r *Repo) Heartbeat(_ dbctx.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if j, ok := r.jobs[id]; ok {
		now := time.Now()
		j.HeartbeatAt = &now
	}
	return nil
}

func (r *Repo) ExistsRunnable(_ dbctx.Context, jobType string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, j := range r.jobs {
		if j.JobType == jobType && j.Runnable() {
			return true, nil
		}
	}
	return false, nil
}
