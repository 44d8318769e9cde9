package catalog

import "github.com/crapthings/storyboard/internal/tasks"

const KeyTTSDefault = "fal.tts.default"

func falSpeechModels() []Descriptor {
	return []Descriptor{
		{
			Key:      KeyTTSDefault,
			Provider: ProviderFal,
			Task:     tasks.TTS,
			ModelID:  "fal-ai/minimax/speech-2.8-turbo",
			InputSchema: map[string]Field{
				"prompt":       {Required: true, Type: TypeString},
				"outputFormat": {Type: TypeString},
			},
			FieldMap: map[string]string{
				"prompt":       "prompt",
				"outputFormat": "output_format",
			},
			// The storyboard keeps remote URLs, never inline audio.
			Defaults: map[string]any{
				"output_format": "url",
			},
		},
	}
}
