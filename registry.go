package goresource

import (
	"context"
	"fmt"
	"sync"
)

// EntityResource is the type-erased view of a Resource, as seen by the
// registry and by relationship resolution.
type EntityResource interface {
	// Name is the registry key of the resource.
	Name() string
	// GetEntity loads an entity by id.
	GetEntity(ctx context.Context, id any) (any, error)
	// EntityID extracts the primary key value of an entity.
	EntityID(entity any) any
	// FormatEntity renders an entity into a response message.
	FormatEntity(ctx context.Context, entity any) (map[string]any, error)
}

// Registry resolves resources by name. Relationships declare their target
// resource as a string reference, which keeps mutually referencing resources
// constructible; the registry turns those references back into resources at
// request time.
//
// A registry is built once at service-assembly time and passed by reference
// to every component needing cross-resource lookups.
type Registry struct {
	mu        sync.RWMutex
	resources map[string]EntityResource
}

func NewRegistry() *Registry {
	return &Registry{
		resources: make(map[string]EntityResource),
	}
}

// Add registers a resource under its name. Re-registering a name is a
// programming mistake and fails.
func (r *Registry) Add(resource EntityResource) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := resource.Name()
	if _, ok := r.resources[name]; ok {
		return fmt.Errorf("resource '%s' is already registered", name)
	}

	r.resources[name] = resource

	return nil
}

// Resolve returns the resource registered under name.
func (r *Registry) Resolve(name string) (EntityResource, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	resource, ok := r.resources[name]
	if !ok {
		return nil, fmt.Errorf("unknown resource '%s'", name)
	}

	return resource, nil
}

// Resources returns all registered resources.
func (r *Registry) Resources() []EntityResource {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ret := make([]EntityResource, 0, len(r.resources))
	for _, resource := range r.resources {
		ret = append(ret, resource)
	}

	return ret
}
