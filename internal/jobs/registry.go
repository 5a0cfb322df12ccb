package jobs

import (
	"context"
	"fmt"
	"sort"
	"sync"

	types "github.com/soulkun/soulkun-backend/internal/domain"
)

// Handler executes one claimed job run. The returned map is persisted as the
// run's result document. Handlers must be re-entrant: the scheduler is
// at-least-once and a run with a stale heartbeat gets claimed again.
type Handler func(ctx context.Context, run *types.JobRun) (map[string]interface{}, error)

// Registry maps job types to handlers.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

func NewRegistry() *Registry {
	return &Registry{handlers: map[string]Handler{}}
}

func (r *Registry) Register(jobType string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[jobType] = h
}

func (r *Registry) Get(jobType string) (Handler, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[jobType]
	if !ok {
		return nil, fmt.Errorf("no handler registered for job type %q", jobType)
	}
	return h, nil
}

// Types returns the registered job types, sorted. Used by the ops surface to
// validate enqueue requests.
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

// Has reports whether jobType is registered.
func (r *Registry) Has(jobType string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.handlers[jobType]
	return ok
}
