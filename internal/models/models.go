package models

import (
	"strings"
	"time"
)

// Asset statuses.
const (
	AssetPending    = "pending"
	AssetProcessing = "processing"
	AssetCompleted  = "completed"
	AssetError      = "error"
)

// Stats counts the assets attached to a shot or storyboard. ShotCount is
// only set on storyboards.
type Stats struct {
	ShotCount  int `json:"shot_count,omitempty"`
	AssetCount int `json:"asset_count"`
	ImageCount int `json:"image_count"`
	VideoCount int `json:"video_count"`
	AudioCount int `json:"audio_count"`
}

type Storyboard struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	AspectRatio string    `json:"aspect_ratio"`
	Order       int       `json:"order"`
	Stats       Stats     `json:"stats"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Shot struct {
	ID           string `json:"id"`
	StoryboardID string `json:"storyboard_id"`
	Name         string `json:"name"`
	Order        int    `json:"order"`
	// ActiveAssets maps a row id to the asset currently shown in that row.
	ActiveAssets map[string]string `json:"active_assets"`
	Stats        Stats             `json:"stats"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

type Asset struct {
	ID           string         `json:"id"`
	StoryboardID string         `json:"storyboard_id"`
	ShotID       string         `json:"shot_id"`
	RowID        string         `json:"row_id"`
	Prompt       string         `json:"prompt"`
	Status       string         `json:"status"`
	URL          string         `json:"url"`
	Meta         map[string]any `json:"meta"`
	Error        string         `json:"error,omitempty"`
	Task         string         `json:"task,omitempty"`
	ModelKey     string         `json:"model_key,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// Kind classifies the asset as image, video or audio, preferring the stored
// content type and falling back to the row it lives in.
func (a *Asset) Kind() string {
	if ct, ok := a.Meta["content_type"].(string); ok {
		switch {
		case strings.HasPrefix(ct, "image/"):
			return "image"
		case strings.HasPrefix(ct, "video/"):
			return "video"
		case strings.HasPrefix(ct, "audio/"):
			return "audio"
		}
	}
	switch a.RowID {
	case "source-clip", "output-video":
		return "video"
	case "source-image", "edit-image":
		return "image"
	case "audio":
		return "audio"
	}
	return "unknown"
}

