// Package registry indexes the model catalog and resolves a task plus an
// optional model selector to a concrete descriptor.
package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/crapthings/storyboard/internal/catalog"
	"github.com/crapthings/storyboard/internal/tasks"
)

// Registry is immutable after New returns and safe for concurrent use.
type Registry struct {
	byKey       map[string]catalog.Descriptor
	byID        map[string]catalog.Descriptor
	defaultKeys map[tasks.Task]string
}

// New builds the key and model-id indexes. It rejects catalogs with duplicate
// keys or model ids, defaults that reference unknown or mismatched
// descriptors, and field maps naming fields the schema does not declare.
func New(descriptors []catalog.Descriptor, defaults map[tasks.Task]string) (*Registry, error) {
	r := &Registry{
		byKey:       make(map[string]catalog.Descriptor, len(descriptors)),
		byID:        make(map[string]catalog.Descriptor, len(descriptors)),
		defaultKeys: make(map[tasks.Task]string, len(defaults)),
	}

	for _, d := range descriptors {
		if d.Key == "" {
			return nil, fmt.Errorf("descriptor for model %q has no key", d.ModelID)
		}
		if _, dup := r.byKey[d.Key]; dup {
			return nil, fmt.Errorf("duplicate model key %q", d.Key)
		}
		if prev, dup := r.byID[d.ModelID]; dup {
			return nil, fmt.Errorf("model id %q registered by both %q and %q", d.ModelID, prev.Key, d.Key)
		}
		for field := range d.FieldMap {
			if _, ok := d.InputSchema[field]; !ok {
				return nil, fmt.Errorf("%s: field map key %q not in input schema", d.Key, field)
			}
		}
		d = d.Clone()
		r.byKey[d.Key] = d
		r.byID[d.ModelID] = d
	}

	for task, key := range defaults {
		d, ok := r.byKey[key]
		if !ok {
			return nil, fmt.Errorf("default model for %s: unknown key %q", task, key)
		}
		if d.Task != task {
			return nil, fmt.Errorf("default model for %s: %q serves %s", task, key, d.Task)
		}
		r.defaultKeys[task] = key
	}

	return r, nil
}

var defaultRegistry = sync.OnceValue(func() *Registry {
	r, err := New(catalog.All(), catalog.DefaultKeys())
	if err != nil {
		panic("registry: invalid built-in catalog: " + err.Error())
	}
	return r
})

// Default returns the process-wide registry over the built-in catalog.
func Default() *Registry {
	return defaultRegistry()
}

// ByKey looks up a descriptor by its catalog key.
func (r *Registry) ByKey(key string) (catalog.Descriptor, bool) {
	d, ok := r.byKey[key]
	if !ok {
		return catalog.Descriptor{}, false
	}
	return d.Clone(), true
}

// ByID looks up a descriptor by the provider's model id.
func (r *Registry) ByID(modelID string) (catalog.Descriptor, bool) {
	d, ok := r.byID[modelID]
	if !ok {
		return catalog.Descriptor{}, false
	}
	return d.Clone(), true
}

// DefaultFor returns the designated default descriptor for task.
func (r *Registry) DefaultFor(task tasks.Task) (catalog.Descriptor, bool) {
	key, ok := r.defaultKeys[task]
	if !ok {
		return catalog.Descriptor{}, false
	}
	return r.ByKey(key)
}

// Resolve maps a task and optional selector to a descriptor. The selector is
// tried as a catalog key, then as a provider model id. Anything else is taken
// as a raw provider model id and returned on top of the task's default
// descriptor, inheriting its schema, field map and defaults.
//
// A key or model id that belongs to a different task is returned as is.
func (r *Registry) Resolve(task tasks.Task, selector string) (catalog.Descriptor, error) {
	def, ok := r.DefaultFor(task)
	if !ok {
		return catalog.Descriptor{}, fmt.Errorf("%w: %s", tasks.ErrUnsupportedTask, task)
	}

	if selector == "" {
		return def, nil
	}
	if d, ok := r.ByKey(selector); ok {
		return d, nil
	}
	if d, ok := r.ByID(selector); ok {
		return d, nil
	}

	def.ModelID = selector
	return def, nil
}

// List returns descriptors sorted by key. An empty task lists everything.
func (r *Registry) List(task tasks.Task) []catalog.Descriptor {
	out := make([]catalog.Descriptor, 0, len(r.byKey))
	for _, d := range r.byKey {
		if task != "" && d.Task != task {
			continue
		}
		out = append(out, d.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// IsDefault reports whether key is the default descriptor for its task.
func (r *Registry) IsDefault(key string) bool {
	d, ok := r.byKey[key]
	if !ok {
		return false
	}
	return r.defaultKeys[d.Task] == key
}
