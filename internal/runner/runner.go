// Package runner is the single entry point for running an asset generation
// task: resolve the model, resolve source media, dispatch to the provider.
package runner

import (
	"context"
	"fmt"
	"maps"

	"github.com/crapthings/storyboard/internal/adapters"
	"github.com/crapthings/storyboard/internal/catalog"
	"github.com/crapthings/storyboard/internal/registry"
	"github.com/crapthings/storyboard/internal/sources"
	"github.com/crapthings/storyboard/internal/tasks"
)

// Runner resolves models against a registry and dispatches to the adapter
// registered for the model's provider.
type Runner struct {
	registry *registry.Registry
	adapters adapters.Table
}

// New builds a runner over reg and the adapters in table.
func New(reg *registry.Registry, table adapters.Table) *Runner {
	return &Runner{registry: reg, adapters: table}
}

// Default runs against the built-in catalog with the fal adapter.
func Default() *Runner {
	return New(registry.Default(), adapters.NewTable(adapters.Fal{}))
}

// Request carries a task, its caller params and the collaborators the
// pipeline needs. Model may be a catalog key, a provider model id or empty.
type Request struct {
	Task               tasks.Task
	Model              string
	Params             map[string]any
	ShotID             string
	PreferredImageRows []string
	PreferredAudioRows []string
	FindActiveAsset    sources.FindActiveAssetFunc
	UploadFromURL      sources.UploadFunc
	Invoke             adapters.Invoker
}

// Resolve picks the model a task would run with, without touching sources
// or the provider.
func (r *Runner) Resolve(task tasks.Task, model string) (catalog.Descriptor, error) {
	if task == "" {
		return catalog.Descriptor{}, tasks.ErrInvalidTask
	}
	return r.registry.Resolve(task, model)
}

// Run executes one task end to end. The first error is returned as is.
func (r *Runner) Run(ctx context.Context, req Request) (*adapters.Result, error) {
	model, err := r.Resolve(req.Task, req.Model)
	if err != nil {
		return nil, err
	}

	resolved, err := sources.Resolve(ctx, sources.Request{
		Task:               req.Task,
		Model:              model,
		Params:             req.Params,
		ShotID:             req.ShotID,
		FindActiveAsset:    req.FindActiveAsset,
		UploadFromURL:      req.UploadFromURL,
		PreferredImageRows: req.PreferredImageRows,
		PreferredAudioRows: req.PreferredAudioRows,
	})
	if err != nil {
		return nil, err
	}

	params := maps.Clone(req.Params)
	if params == nil {
		params = make(map[string]any, len(resolved))
	}
	maps.Copy(params, resolved)

	adapter, ok := r.adapters.Lookup(model.Provider)
	if !ok {
		return nil, fmt.Errorf("%w: %s", tasks.ErrUnsupportedProvider, model.Provider)
	}
	return adapters.Run(ctx, adapter, model, params, req.Invoke)
}
