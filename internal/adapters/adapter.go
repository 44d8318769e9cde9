// Package adapters turns a resolved model descriptor and caller params into a
// provider call and normalizes the provider's response.
package adapters

import (
	"context"
	"fmt"

	"github.com/crapthings/storyboard/internal/catalog"
	"github.com/crapthings/storyboard/internal/tasks"
)

// Invoker calls the external provider with wire-shaped input and returns its
// raw decoded response.
type Invoker func(ctx context.Context, modelID string, input map[string]any) (map[string]any, error)

// Kind is the family of media a task produces.
type Kind string

const (
	KindImage Kind = "image"
	KindVideo Kind = "video"
	KindAudio Kind = "audio"
)

// Result is the provider-independent outcome of a task. Asset always carries
// a non-empty "url".
type Result struct {
	Kind  Kind           `json:"kind"`
	Asset map[string]any `json:"asset"`
}

// URL returns the asset URL.
func (r *Result) URL() string {
	s, _ := r.Asset["url"].(string)
	return s
}

// Adapter is the per-provider seam of the pipeline.
type Adapter interface {
	Name() string
	Validate(d catalog.Descriptor, params map[string]any) error
	MapInput(d catalog.Descriptor, params map[string]any) map[string]any
	Invoke(ctx context.Context, invoke Invoker, d catalog.Descriptor, input map[string]any) (map[string]any, error)
	Normalize(task tasks.Task, response map[string]any) (*Result, error)
}

// Table dispatches by provider name.
type Table map[string]Adapter

func NewTable(adapters ...Adapter) Table {
	t := make(Table, len(adapters))
	for _, a := range adapters {
		t[a.Name()] = a
	}
	return t
}

func (t Table) Lookup(provider string) (Adapter, bool) {
	a, ok := t[provider]
	return a, ok
}

// Run validates, maps, invokes and normalizes in that order. The provider is
// never called with input that failed validation.
func Run(ctx context.Context, a Adapter, d catalog.Descriptor, params map[string]any, invoke Invoker) (*Result, error) {
	if invoke == nil {
		return nil, fmt.Errorf("%w: %s", tasks.ErrMissingInvoker, a.Name())
	}
	if err := a.Validate(d, params); err != nil {
		return nil, err
	}
	input := a.MapInput(d, params)
	resp, err := a.Invoke(ctx, invoke, d, input)
	if err != nil {
		return nil, err
	}
	return a.Normalize(d.Task, resp)
}
