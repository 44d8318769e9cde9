package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/crapthings/storyboard/internal/models"
)

func buildStats(assets []models.Asset) models.Stats {
	stats := models.Stats{AssetCount: len(assets)}
	for i := range assets {
		switch assets[i].Kind() {
		case "image":
			stats.ImageCount++
		case "video":
			stats.VideoCount++
		case "audio":
			stats.AudioCount++
		}
	}
	return stats
}

func (db *DB) assetsWhere(ctx context.Context, where string, arg string) ([]models.Asset, error) {
	rows, err := db.QueryContext(ctx, "SELECT "+assetColumns+" FROM assets WHERE "+where+" = ?", arg)
	if err != nil {
		return nil, fmt.Errorf("load assets: %w", err)
	}
	defer rows.Close()
	var out []models.Asset
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

// RecomputeShotStats recounts a shot's assets by kind and stores the result.
func (db *DB) RecomputeShotStats(ctx context.Context, shotID string) (models.Stats, error) {
	assets, err := db.assetsWhere(ctx, "shot_id", shotID)
	if err != nil {
		return models.Stats{}, err
	}
	stats := buildStats(assets)
	data, _ := json.Marshal(stats)
	if _, err := db.ExecContext(ctx, "UPDATE shots SET stats = ?, updated_at = ? WHERE id = ?",
		string(data), time.Now().UTC(), shotID); err != nil {
		return models.Stats{}, fmt.Errorf("store shot stats: %w", err)
	}
	return stats, nil
}

// RecomputeStoryboardStats recounts shots and assets of a storyboard.
func (db *DB) RecomputeStoryboardStats(ctx context.Context, storyboardID string) (models.Stats, error) {
	assets, err := db.assetsWhere(ctx, "storyboard_id", storyboardID)
	if err != nil {
		return models.Stats{}, err
	}
	stats := buildStats(assets)
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM shots WHERE storyboard_id = ?", storyboardID).Scan(&stats.ShotCount); err != nil {
		return models.Stats{}, fmt.Errorf("count shots: %w", err)
	}
	data, _ := json.Marshal(stats)
	if _, err := db.ExecContext(ctx, "UPDATE storyboards SET stats = ?, updated_at = ? WHERE id = ?",
		string(data), time.Now().UTC(), storyboardID); err != nil {
		return models.Stats{}, fmt.Errorf("store storyboard stats: %w", err)
	}
	return stats, nil
}

// RecomputeStats refreshes both the shot and its storyboard.
func (db *DB) RecomputeStats(ctx context.Context, storyboardID, shotID string) (shot, storyboard models.Stats, err error) {
	if shot, err = db.RecomputeShotStats(ctx, shotID); err != nil {
		return
	}
	storyboard, err = db.RecomputeStoryboardStats(ctx, storyboardID)
	return
}
