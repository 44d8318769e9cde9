package catalog

import "github.com/crapthings/storyboard/internal/tasks"

const (
	KeyTextToVideoDefault  = "fal.text_to_video.default"
	KeyImageToVideoDefault = "fal.image_to_video.default"
	KeyImageToVideoViduQ3  = "fal.image_to_video.vidu_q3"

	KeyLipSyncKlingAvatarV2    = "fal.lip_sync_image.kling_avatar_v2"
	KeyLipSyncKlingAvatarV2Pro = "fal.lip_sync_image.kling_avatar_v2_pro"
)

func falVideoModels() []Descriptor {
	return []Descriptor{
		{
			Key:      KeyTextToVideoDefault,
			Provider: ProviderFal,
			Task:     tasks.TextToVideo,
			ModelID:  "fal-ai/bytedance/seedance/v1/lite/text-to-video",
			InputSchema: map[string]Field{
				"prompt":      {Required: true, Type: TypeString},
				"aspectRatio": {Type: TypeString},
				"duration":    {Type: TypeNumber},
			},
			FieldMap: map[string]string{
				"prompt":      "prompt",
				"aspectRatio": "aspect_ratio",
				"duration":    "duration",
			},
		},
		{
			Key:      KeyImageToVideoDefault,
			Provider: ProviderFal,
			Task:     tasks.ImageToVideo,
			ModelID:  "fal-ai/bytedance/seedance/v1/lite/reference-to-video",
			InputSchema: map[string]Field{
				"prompt":      {Required: true, Type: TypeString},
				"images":      {Required: true, Type: TypeArray, MinItems: 1},
				"aspectRatio": {Type: TypeString},
				"duration":    {Type: TypeNumber},
			},
			FieldMap: map[string]string{
				"prompt":      "prompt",
				"images":      "reference_image_urls",
				"aspectRatio": "aspect_ratio",
				"duration":    "duration",
			},
			Capabilities: map[string]any{
				"referenceImages": true,
				"imageInputMode":  "multiple",
			},
		},
		{
			Key:      KeyImageToVideoViduQ3,
			Provider: ProviderFal,
			Task:     tasks.ImageToVideo,
			ModelID:  "fal-ai/vidu/q3/image-to-video",
			InputSchema: map[string]Field{
				"prompt":     {Required: true, Type: TypeString},
				"image":      {Required: true, Type: TypeString},
				"duration":   {Type: TypeNumber},
				"resolution": {Type: TypeString},
				"audio":      {Type: TypeBoolean},
				"seed":       {Type: TypeNumber},
			},
			FieldMap: map[string]string{
				"prompt":     "prompt",
				"image":      "image_url",
				"duration":   "duration",
				"resolution": "resolution",
				"audio":      "audio",
				"seed":       "seed",
			},
			Capabilities: map[string]any{
				"startFrame":     true,
				"imageInputMode": "single",
			},
		},
	}
}

func falImageToLipSyncModels() []Descriptor {
	kling := func(key, modelID string) Descriptor {
		return Descriptor{
			Key:      key,
			Provider: ProviderFal,
			Task:     tasks.LipSyncImage,
			ModelID:  modelID,
			InputSchema: map[string]Field{
				"image":    {Required: true, Type: TypeString},
				"audioUrl": {Required: true, Type: TypeString},
				"prompt":   {Type: TypeString},
			},
			FieldMap: map[string]string{
				"image":    "image_url",
				"audioUrl": "audio_url",
				"prompt":   "prompt",
			},
			Defaults: map[string]any{
				"prompt": ".",
			},
			Capabilities: map[string]any{
				"lipSyncImage":   true,
				"imageInputMode": "single",
				"audioInputMode": "single",
			},
		}
	}
	return []Descriptor{
		kling(KeyLipSyncKlingAvatarV2, "fal-ai/kling-video/ai-avatar/v2/standard"),
		kling(KeyLipSyncKlingAvatarV2Pro, "fal-ai/kling-video/ai-avatar/v2/pro"),
	}
}
