// Package tasks enumerates the generation tasks a caller can request and the
// errors the asset pipeline reports.
package tasks

// Task identifies the caller's generation intent.
type Task string

const (
	TextToImage  Task = "text_to_image"
	ImageEdit    Task = "image_edit"
	TextToVideo  Task = "text_to_video"
	ImageToVideo Task = "image_to_video"
	VideoToVideo Task = "video_to_video"
	LipSyncImage Task = "lip_sync_image"
	LipSyncVideo Task = "lip_sync_video"
	TTS          Task = "tts"
)

// All lists every known task in declaration order.
func All() []Task {
	return []Task{
		TextToImage,
		ImageEdit,
		TextToVideo,
		ImageToVideo,
		VideoToVideo,
		LipSyncImage,
		LipSyncVideo,
		TTS,
	}
}

// Valid reports whether t is one of the known tasks.
func (t Task) Valid() bool {
	for _, known := range All() {
		if t == known {
			return true
		}
	}
	return false
}

func (t Task) String() string {
	return string(t)
}
