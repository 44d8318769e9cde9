package adapters

import (
	"maps"

	"github.com/crapthings/storyboard/internal/catalog"
)

// MapParams builds provider input: the descriptor defaults, overwritten by
// every non-nil caller value the field map knows about, under its wire name.
func MapParams(d catalog.Descriptor, params map[string]any) map[string]any {
	input := maps.Clone(d.Defaults)
	if input == nil {
		input = make(map[string]any, len(d.FieldMap))
	}
	for field, wire := range d.FieldMap {
		if v, ok := params[field]; ok && v != nil {
			input[wire] = v
		}
	}
	return input
}
