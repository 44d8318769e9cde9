package catalog

import "github.com/crapthings/storyboard/internal/tasks"

const (
	KeyTextToImageDefault = "fal.text_to_image.default"

	KeyImageEditDefault     = "fal.image_edit.default"
	KeyImageEditQwenMax     = "fal.image_edit.qwen_image_max"
	KeyImageEditGrokImagine = "fal.image_edit.grok_imagine_image_edit"
)

func falTextToImageModels() []Descriptor {
	return []Descriptor{
		{
			Key:      KeyTextToImageDefault,
			Provider: ProviderFal,
			Task:     tasks.TextToImage,
			ModelID:  "fal-ai/z-image/turbo",
			InputSchema: map[string]Field{
				"prompt":      {Required: true, Type: TypeString},
				"aspectRatio": {Type: TypeString},
				"resolution":  {Type: TypeObject},
			},
			FieldMap: map[string]string{
				"prompt":      "prompt",
				"aspectRatio": "aspect_ratio",
				"resolution":  "image_size",
			},
		},
	}
}

func falImageEditModels() []Descriptor {
	return []Descriptor{
		{
			Key:      KeyImageEditDefault,
			Provider: ProviderFal,
			Task:     tasks.ImageEdit,
			ModelID:  "fal-ai/nano-banana-pro/edit",
			InputSchema: map[string]Field{
				"prompt": {Required: true, Type: TypeString},
				"images": {Required: true, Type: TypeArray, MinItems: 1},
			},
			FieldMap: map[string]string{
				"prompt": "prompt",
				"images": "image_urls",
			},
		},
		{
			Key:      KeyImageEditQwenMax,
			Provider: ProviderFal,
			Task:     tasks.ImageEdit,
			ModelID:  "fal-ai/qwen-image-max/edit",
			InputSchema: map[string]Field{
				"prompt":                {Required: true, Type: TypeString},
				"images":                {Required: true, Type: TypeArray, MinItems: 1},
				"negativePrompt":        {Type: TypeString},
				"resolution":            {Type: TypeObject},
				"enablePromptExpansion": {Type: TypeBoolean},
				"enableSafetyChecker":   {Type: TypeBoolean},
				"seed":                  {Type: TypeNumber},
				"numImages":             {Type: TypeNumber},
				"outputFormat":          {Type: TypeString},
			},
			FieldMap: map[string]string{
				"prompt":                "prompt",
				"images":                "image_urls",
				"negativePrompt":        "negative_prompt",
				"resolution":            "image_size",
				"enablePromptExpansion": "enable_prompt_expansion",
				"enableSafetyChecker":   "enable_safety_checker",
				"seed":                  "seed",
				"numImages":             "num_images",
				"outputFormat":          "output_format",
			},
			Defaults: map[string]any{
				"enable_prompt_expansion": true,
				"enable_safety_checker":   true,
				"num_images":              1,
				"output_format":           "png",
			},
		},
		{
			Key:      KeyImageEditGrokImagine,
			Provider: ProviderFal,
			Task:     tasks.ImageEdit,
			ModelID:  "xai/grok-imagine-image/edit",
			InputSchema: map[string]Field{
				"prompt":       {Required: true, Type: TypeString},
				"image":        {Required: true, Type: TypeString},
				"numImages":    {Type: TypeNumber},
				"outputFormat": {Type: TypeString},
				"syncMode":     {Type: TypeBoolean},
			},
			FieldMap: map[string]string{
				"prompt":       "prompt",
				"image":        "image_url",
				"numImages":    "num_images",
				"outputFormat": "output_format",
				"syncMode":     "sync_mode",
			},
			Defaults: map[string]any{
				"num_images":    1,
				"output_format": "jpeg",
			},
		},
	}
}
