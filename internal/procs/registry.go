package procs

import (
	"sync"

	"video-compressor/internal/domain"
	"video-compressor/internal/ffmpeg"
)

// Registry tracks live transcoder processes by task key so a global cancel
// can terminate everything. Strategies register before spawning output
// consumption and deregister on terminal transition.
type Registry struct {
	mu      sync.Mutex
	handles map[domain.TaskKey]ffmpeg.Handle
}

// NewRegistry creates an empty process registry.
func NewRegistry() *Registry {
	return &Registry{handles: make(map[domain.TaskKey]ffmpeg.Handle)}
}

// Register stores the live handle for a task. A second registration for the
// same key replaces the first; two-pass strategies re-register for pass 2.
func (r *Registry) Register(key domain.TaskKey, h ffmpeg.Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handles[key] = h
}

// Deregister removes a task's handle. Missing keys are ignored.
func (r *Registry) Deregister(key domain.TaskKey) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.handles, key)
}

// Len returns the number of live registered processes.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.handles)
}

// CancelAll force-kills every registered process and clears the registry.
// It is idempotent and safe to call when nothing is running. Kill errors
// are collected but do not stop the sweep.
func (r *Registry) CancelAll() []error {
	r.mu.Lock()
	handles := r.handles
	r.handles = make(map[domain.TaskKey]ffmpeg.Handle)
	r.mu.Unlock()

	var errs []error
	for _, h := range handles {
		if err := h.Kill(); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}
