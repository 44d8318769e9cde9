package adapters

import (
	"fmt"

	"github.com/crapthings/storyboard/internal/tasks"
)

// Normalizer extracts the produced asset from a raw provider response.
type Normalizer func(response map[string]any) (*Result, error)

// Normalizers is keyed by the task the resolved model serves.
var Normalizers = map[tasks.Task]Normalizer{
	tasks.TextToImage:  normalizeImage,
	tasks.ImageEdit:    normalizeImage,
	tasks.TextToVideo:  normalizeVideo,
	tasks.ImageToVideo: normalizeVideo,
	tasks.VideoToVideo: normalizeVideo,
	tasks.TTS:          normalizeAudio,
}

// Normalize dispatches to the normalizer registered for task.
func Normalize(task tasks.Task, response map[string]any) (*Result, error) {
	n, ok := Normalizers[task]
	if !ok {
		return nil, fmt.Errorf("%w: no result shape for %s", tasks.ErrUnsupportedTask, task)
	}
	return n(response)
}

func normalizeImage(response map[string]any) (*Result, error) {
	var image map[string]any
	if images, ok := object(response, "data")["images"].([]any); ok && len(images) > 0 {
		image, _ = images[0].(map[string]any)
	}
	if !hasURL(image) {
		return nil, tasks.ErrNoImageURL
	}
	return &Result{Kind: KindImage, Asset: image}, nil
}

func normalizeVideo(response map[string]any) (*Result, error) {
	video := object(object(response, "data"), "video")
	if video == nil {
		video = object(response, "video")
	}
	if !hasURL(video) {
		return nil, tasks.ErrNoVideoURL
	}
	return &Result{Kind: KindVideo, Asset: video}, nil
}

func normalizeAudio(response map[string]any) (*Result, error) {
	audio := object(object(response, "data"), "audio")
	if !hasURL(audio) {
		return nil, tasks.ErrNoAudioURL
	}
	return &Result{Kind: KindAudio, Asset: audio}, nil
}

func object(m map[string]any, key string) map[string]any {
	v, _ := m[key].(map[string]any)
	return v
}

func hasURL(asset map[string]any) bool {
	s, _ := asset["url"].(string)
	return s != ""
}
