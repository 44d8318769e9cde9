// Package catalog holds the declarative model descriptors for every provider
// and task the asset pipeline supports. Adding a model means adding a
// descriptor here; no resolution or adapter logic changes.
package catalog

import (
	"maps"

	"github.com/crapthings/storyboard/internal/tasks"
)

// FieldType is the runtime type a caller-facing field must carry.
type FieldType string

const (
	TypeString  FieldType = "string"
	TypeArray   FieldType = "array"
	TypeNumber  FieldType = "number"
	TypeBoolean FieldType = "boolean"
	TypeObject  FieldType = "object"
)

// Field is the validation rule for one caller-facing parameter.
type Field struct {
	Required bool      `json:"required"`
	Type     FieldType `json:"type"`
	MinItems int       `json:"min_items,omitempty"`
}

// Descriptor binds a provider and task to a concrete generative model and its
// input contract.
type Descriptor struct {
	Key      string     `json:"key"`
	Provider string     `json:"provider"`
	Task     tasks.Task `json:"task"`
	ModelID  string     `json:"model_id"`
	// InputSchema is keyed by caller-facing field name.
	InputSchema map[string]Field `json:"input_schema"`
	// FieldMap renames caller-facing fields to provider wire fields.
	FieldMap map[string]string `json:"field_map"`
	// Defaults are keyed by provider wire field name.
	Defaults     map[string]any `json:"defaults,omitempty"`
	Capabilities map[string]any `json:"capabilities,omitempty"`
}

// Clone returns a copy whose maps are not shared with d.
func (d Descriptor) Clone() Descriptor {
	out := d
	out.InputSchema = maps.Clone(d.InputSchema)
	out.FieldMap = maps.Clone(d.FieldMap)
	out.Defaults = maps.Clone(d.Defaults)
	out.Capabilities = maps.Clone(d.Capabilities)
	return out
}

// RequiresField reports whether the schema marks name as required.
func (d Descriptor) RequiresField(name string) bool {
	return d.InputSchema[name].Required
}

const ProviderFal = "fal"

// All returns the union of every sub-catalog. Each call builds fresh values.
func All() []Descriptor {
	var out []Descriptor
	for _, set := range [][]Descriptor{
		falTextToImageModels(),
		falImageEditModels(),
		falImageToLipSyncModels(),
		falVideoModels(),
		falSpeechModels(),
	} {
		out = append(out, set...)
	}
	return out
}

// DefaultKeys maps each task that has a model family to its default
// descriptor key. Tasks without an entry have no default.
func DefaultKeys() map[tasks.Task]string {
	return map[tasks.Task]string{
		tasks.TextToImage:  KeyTextToImageDefault,
		tasks.ImageEdit:    KeyImageEditDefault,
		tasks.TextToVideo:  KeyTextToVideoDefault,
		tasks.ImageToVideo: KeyImageToVideoDefault,
		tasks.LipSyncImage: KeyLipSyncKlingAvatarV2,
		tasks.TTS:          KeyTTSDefault,
	}
}
