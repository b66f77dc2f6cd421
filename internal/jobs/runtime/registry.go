package runtime

import (
	"fmt"
	"sort"
	"sync"
)

type Handler interface {
	Type() string
	Run(ctx *Context) error
}

type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

func (r *Registry) Register(h Handler) error {
	if h == nil {
		return fmt.Errorf("nil handler")
	}
	t := h.Type()
	if t == "" {
		return fmt.Errorf("handler Type() is empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.handlers[t]; exists {
		return fmt.Errorf("handler already registered for job_type=%s", t)
	}
	r.handlers[t] = h
	return nil
}

func (r *Registry) Get(jobType string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[jobType]
	return h, ok
}

// Types lists the registered job types in sorted order.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.handlers))
	for t := range r.handlers {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Run executes the handler for the job carried by jc. A returned error or a
// panic fails the job unless the handler already reached a terminal state.
func (r *Registry) Run(jc *Context) (err error) {
	if jc == nil || jc.Job == nil {
		return fmt.Errorf("nil job")
	}
	h, ok := r.Get(jc.Job.JobType)
	if !ok {
		err = fmt.Errorf("no handler registered for job_type=%s", jc.Job.JobType)
		jc.Fail("dispatch", err)
		return err
	}
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic in %s handler: %v", jc.Job.JobType, rec)
			jc.Fail("panic", err)
		}
	}()
	if runErr := h.Run(jc); runErr != nil {
		if !jc.Terminal() {
			jc.Fail("run", runErr)
		}
		return runErr
	}
	if !jc.Terminal() {
		jc.Succeed("done", nil)
	}
	return nil
}
