package language

import (
	"path/filepath"
	"strings"
	"sync"
)

// Registry maps file extensions to language profiles.
type Registry struct {
	mu    sync.RWMutex
	byExt map[string]*Profile // extension (without dot) → profile
	byID  map[string]*Profile // language id → profile
}

// NewRegistry builds a registry containing the builtin profiles,
// filtered by the enable/disable lists. A non-empty enable list wins:
// only those languages are registered. Otherwise every builtin profile
// not named in disable is registered.
func NewRegistry(enable, disable []string) *Registry {
	enabled := make(map[string]bool, len(enable))
	for _, id := range enable {
		enabled[strings.TrimSpace(id)] = true
	}
	disabled := make(map[string]bool, len(disable))
	for _, id := range disable {
		disabled[strings.TrimSpace(id)] = true
	}

	r := &Registry{
		byExt: make(map[string]*Profile),
		byID:  make(map[string]*Profile),
	}
	for _, p := range builtin {
		if len(enabled) > 0 {
			if !enabled[p.ID] {
				continue
			}
		} else if disabled[p.ID] {
			continue
		}
		r.register(p)
	}
	return r
}

func (r *Registry) register(p *Profile) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[p.ID] = p
	for _, ext := range p.Extensions {
		r.byExt[ext] = p
	}
}

// Lookup returns the profile for a file path based on its extension, or nil.
func (r *Registry) Lookup(path string) *Profile {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byExt[ext]
}

// Extensions returns the set of all registered file extensions (without dot).
func (r *Registry) Extensions() map[string]bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	exts := make(map[string]bool, len(r.byExt))
	for ext := range r.byExt {
		exts[ext] = true
	}
	return exts
}

// IDs returns the registered language ids.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.byID))
	for id := range r.byID {
		ids = append(ids, id)
	}
	return ids
}
