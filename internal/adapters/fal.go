package adapters

import (
	"context"

	"github.com/crapthings/storyboard/internal/catalog"
	"github.com/crapthings/storyboard/internal/tasks"
)

// Fal adapts catalog descriptors to fal.ai model endpoints. The invoker is
// normally a fal queue subscription.
type Fal struct{}

func (Fal) Name() string { return catalog.ProviderFal }

func (Fal) Validate(d catalog.Descriptor, params map[string]any) error {
	return ValidateParams(d.InputSchema, params)
}

func (Fal) MapInput(d catalog.Descriptor, params map[string]any) map[string]any {
	return MapParams(d, params)
}

func (Fal) Invoke(ctx context.Context, invoke Invoker, d catalog.Descriptor, input map[string]any) (map[string]any, error) {
	return invoke(ctx, d.ModelID, input)
}

func (Fal) Normalize(task tasks.Task, response map[string]any) (*Result, error) {
	return Normalize(task, response)
}
