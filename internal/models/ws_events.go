package models

// WebSocket event payloads broadcast on the "storyboard:<id>" topic.

// WSAssetEvent is the payload for "asset_created" and "asset_updated".
type WSAssetEvent struct {
	StoryboardID string `json:"storyboard_id"`
	ShotID       string `json:"shot_id"`
	RowID        string `json:"row_id"`
	Asset        *Asset `json:"asset"`
}

// WSStatsUpdated is the payload for "stats_updated" after an asset change.
type WSStatsUpdated struct {
	StoryboardID    string `json:"storyboard_id"`
	ShotID          string `json:"shot_id"`
	ShotStats       Stats  `json:"shot_stats"`
	StoryboardStats Stats  `json:"storyboard_stats"`
}

// WSActiveChanged is the payload for "active_changed" when a row's active
// asset is switched.
type WSActiveChanged struct {
	ShotID  string `json:"shot_id"`
	RowID   string `json:"row_id"`
	AssetID string `json:"asset_id"`
}
