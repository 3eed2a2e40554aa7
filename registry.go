package imageexport

import (
	"sort"
	"sync"
)

// Registry maps stable target IDs to their export state. Targets are
// referenced by ID everywhere else, never by pointer cycles between the
// host's camera, the texture, and the buffer.
//
// Registry is safe for concurrent reads; mutation happens on the render
// thread only.
type Registry struct {
	mu      sync.RWMutex
	nextID  TargetID
	entries map[TargetID]*ExportTarget
}

// NewRegistry creates an empty target registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[TargetID]*ExportTarget)}
}

// Add stores a new target and returns its ID. The target starts
// unregistered: its texture and buffer are allocated on the first tick
// where the source's resolution is known.
func (r *Registry) Add(src TargetSource, settings ExportSettings) TargetID {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	id := r.nextID
	r.entries[id] = &ExportTarget{id: id, src: src, settings: settings}
	return id
}

// Remove destroys a target's readback buffer and drops it from the
// registry. Removing an unknown ID is a no-op.
func (r *Registry) Remove(id TargetID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.entries[id]; ok {
		t.destroy()
		delete(r.entries, id)
	}
}

// Get returns the target for id, or nil.
func (r *Registry) Get(id TargetID) *ExportTarget {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.entries[id]
}

// Len returns the number of stored targets.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// All returns every stored target in ID order. The order is stable so
// per-frame iteration is deterministic.
func (r *Registry) All() []*ExportTarget {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*ExportTarget, 0, len(r.entries))
	for _, t := range r.entries {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

// Ready returns the targets whose registration has completed, in ID order.
func (r *Registry) Ready() []*ExportTarget {
	all := r.All()
	out := all[:0]
	for _, t := range all {
		if t.ready() {
			out = append(out, t)
		}
	}
	return out
}
