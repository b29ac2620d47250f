package presets

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"video-compressor/internal/domain"
)

// CustomPrefix is reserved for user-defined preset ids. Add normalizes ids
// under it so custom entries can never shadow a built-in.
const CustomPrefix = "custom-"

// ErrBuiltinCollision is returned when a custom id would collide with a
// built-in preset id.
var ErrBuiltinCollision = fmt.Errorf("preset id collides with a built-in preset")

// Registry holds built-in presets merged with user-defined custom entries.
// Reads are safe from any goroutine; Load/Add/Remove are expected to be
// serialized by the caller and never invoked mid-batch.
type Registry struct {
	mu      sync.RWMutex
	presets map[string]domain.Preset
}

// NewRegistry creates a registry seeded with the built-in presets.
func NewRegistry() *Registry {
	return &Registry{presets: builtinPresets()}
}

// Load merges persisted custom presets into the registry. The composition
// root calls it exactly once at startup; entries are normalized the same way
// Add normalizes them.
func (r *Registry) Load(initial map[string]domain.Preset) {
	for id, preset := range initial {
		_ = r.Add(id, preset)
	}
}

// GetAll returns a copy of the id → preset mapping.
func (r *Registry) GetAll() map[string]domain.Preset {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]domain.Preset, len(r.presets))
	for id, preset := range r.presets {
		out[id] = preset
	}
	return out
}

// Get resolves one preset by id.
func (r *Registry) Get(id string) (domain.Preset, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	preset, ok := r.presets[id]
	return preset, ok
}

// IDs returns all preset ids in sorted order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.presets))
	for id := range r.presets {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Add stores a user-defined preset under a custom-prefixed id. The category
// is forced to "custom" regardless of what was supplied. Ids that collide
// with a non-custom id are rejected.
func (r *Registry) Add(id string, preset domain.Preset) error {
	normalized := NormalizeCustomID(id)
	if normalized == CustomPrefix {
		return fmt.Errorf("custom preset id is empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	bare := strings.TrimPrefix(normalized, CustomPrefix)
	if existing, ok := r.presets[bare]; ok && existing.Category != "custom" {
		return ErrBuiltinCollision
	}

	preset.Category = "custom"
	r.presets[normalized] = preset
	return nil
}

// Remove deletes a custom preset. It is a no-op for ids without the custom
// prefix, so built-ins cannot be removed.
func (r *Registry) Remove(id string) {
	if !IsCustom(id) {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.presets, id)
}

// Custom returns only the user-defined entries, keyed by prefixed id. The
// config store persists exactly this mapping.
func (r *Registry) Custom() map[string]domain.Preset {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]domain.Preset)
	for id, preset := range r.presets {
		if IsCustom(id) {
			out[id] = preset
		}
	}
	return out
}

// IsCustom reports whether an id carries the reserved custom prefix.
func IsCustom(id string) bool {
	return strings.HasPrefix(id, CustomPrefix)
}

// NormalizeCustomID trims the id and ensures exactly one custom prefix.
func NormalizeCustomID(id string) string {
	trimmed := strings.TrimSpace(id)
	for strings.HasPrefix(trimmed, CustomPrefix) {
		trimmed = strings.TrimPrefix(trimmed, CustomPrefix)
	}
	return CustomPrefix + trimmed
}
