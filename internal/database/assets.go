package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/crapthings/storyboard/internal/models"
)

const assetColumns = "id, storyboard_id, shot_id, row_id, prompt, status, url, meta, error, task, model_key, created_at, updated_at"

// NewAsset describes an asset to insert.
type NewAsset struct {
	StoryboardID string
	ShotID       string
	RowID        string
	Prompt       string
	URL          string
	Meta         map[string]any
	Status       string
	Task         string
	ModelKey     string
}

// CreateAsset inserts an asset. Status defaults to completed.
func (db *DB) CreateAsset(ctx context.Context, in NewAsset) (*models.Asset, error) {
	if in.Status == "" {
		in.Status = models.AssetCompleted
	}
	if in.Meta == nil {
		in.Meta = map[string]any{}
	}
	now := time.Now().UTC()
	a := &models.Asset{
		ID:           uuid.New().String(),
		StoryboardID: in.StoryboardID,
		ShotID:       in.ShotID,
		RowID:        in.RowID,
		Prompt:       strings.TrimSpace(in.Prompt),
		Status:       in.Status,
		URL:          strings.TrimSpace(in.URL),
		Meta:         in.Meta,
		Task:         in.Task,
		ModelKey:     in.ModelKey,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	meta, err := json.Marshal(a.Meta)
	if err != nil {
		return nil, fmt.Errorf("marshal meta: %w", err)
	}
	_, err = db.ExecContext(ctx,
		"INSERT INTO assets ("+assetColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, '', ?, ?, ?, ?)",
		a.ID, a.StoryboardID, a.ShotID, a.RowID, a.Prompt, a.Status, a.URL, string(meta), a.Task, a.ModelKey, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert asset: %w", err)
	}
	return a, nil
}

// CreatePendingAsset inserts a pending asset and makes it the active asset of
// its row so the UI shows progress in place.
func (db *DB) CreatePendingAsset(ctx context.Context, in NewAsset) (*models.Asset, error) {
	in.Status = models.AssetPending
	a, err := db.CreateAsset(ctx, in)
	if err != nil {
		return nil, err
	}
	if err := db.setActiveColumn(ctx, a.ShotID, a.RowID, a.ID); err != nil && !errors.Is(err, ErrInvalidRow) {
		return nil, err
	}
	return a, nil
}

func (db *DB) GetAsset(ctx context.Context, id string) (*models.Asset, error) {
	row := db.QueryRowContext(ctx, "SELECT "+assetColumns+" FROM assets WHERE id = ?", id)
	a, err := scanAsset(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return a, err
}

// ListAssets returns a shot's assets newest first, optionally for one row.
func (db *DB) ListAssets(ctx context.Context, shotID, rowID string) ([]models.Asset, error) {
	query := "SELECT " + assetColumns + " FROM assets WHERE shot_id = ?"
	args := []any{shotID}
	if rowID != "" {
		query += " AND row_id = ?"
		args = append(args, rowID)
	}
	query += " ORDER BY created_at DESC"

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	defer rows.Close()

	out := []models.Asset{}
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

// MarkAssetStatus sets the status and, for failures, the error message.
func (db *DB) MarkAssetStatus(ctx context.Context, id, status, errMsg string) error {
	res, err := db.ExecContext(ctx, "UPDATE assets SET status = ?, error = ?, updated_at = ? WHERE id = ?",
		status, errMsg, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("mark asset %s: %w", status, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// metaKeys are the provider asset fields kept on a completed asset.
var metaKeys = []string{"content_type", "file_name", "file_size", "width", "height", "duration_ms"}

// SaveGeneratedAsset stores a provider result on a pending asset and marks it
// completed.
func (db *DB) SaveGeneratedAsset(ctx context.Context, id, prompt string, result map[string]any) (*models.Asset, error) {
	url, _ := result["url"].(string)
	meta := map[string]any{}
	for _, k := range metaKeys {
		if v, ok := result[k]; ok && v != nil {
			meta[k] = v
		}
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("marshal meta: %w", err)
	}
	res, err := db.ExecContext(ctx,
		"UPDATE assets SET prompt = ?, url = ?, meta = ?, status = ?, error = '', updated_at = ? WHERE id = ?",
		strings.TrimSpace(prompt), url, string(metaJSON), models.AssetCompleted, time.Now().UTC(), id)
	if err != nil {
		return nil, fmt.Errorf("save generated asset: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}
	return db.GetAsset(ctx, id)
}

// DeleteAsset removes an asset and clears it from any active slot.
func (db *DB) DeleteAsset(ctx context.Context, id string) (*models.Asset, error) {
	a, err := db.GetAsset(ctx, id)
	if err != nil {
		return nil, err
	}
	if col, ok := activeColumns[a.RowID]; ok {
		_, err := db.ExecContext(ctx,
			"UPDATE shots SET "+col+" = '', updated_at = ? WHERE id = ? AND "+col+" = ?",
			time.Now().UTC(), a.ShotID, a.ID)
		if err != nil {
			return nil, fmt.Errorf("clear active asset: %w", err)
		}
	}
	if _, err := db.ExecContext(ctx, "DELETE FROM assets WHERE id = ?", id); err != nil {
		return nil, fmt.Errorf("delete asset: %w", err)
	}
	return a, nil
}

// ActiveAssetByRow returns the active asset of a shot row, or nil when the row
// has none or is not an active-tracking row.
func (db *DB) ActiveAssetByRow(ctx context.Context, shotID, rowID string) (*models.Asset, error) {
	col, ok := activeColumns[rowID]
	if !ok {
		return nil, nil
	}
	var assetID string
	err := db.QueryRowContext(ctx, "SELECT "+col+" FROM shots WHERE id = ?", shotID).Scan(&assetID)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && assetID == "") {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup active %s: %w", rowID, err)
	}
	a, err := db.GetAsset(ctx, assetID)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return a, err
}

// SetActiveAsset makes assetID the active asset of its row after checking it
// belongs to the given shot and row.
func (db *DB) SetActiveAsset(ctx context.Context, shotID, rowID, assetID string) error {
	if !ValidRow(rowID) {
		return fmt.Errorf("%w: %s", ErrInvalidRow, rowID)
	}
	var n int
	err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM assets WHERE id = ? AND shot_id = ? AND row_id = ?",
		assetID, shotID, rowID).Scan(&n)
	if err != nil {
		return fmt.Errorf("check asset: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return db.setActiveColumn(ctx, shotID, rowID, assetID)
}

func (db *DB) setActiveColumn(ctx context.Context, shotID, rowID, assetID string) error {
	col, ok := activeColumns[rowID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrInvalidRow, rowID)
	}
	_, err := db.ExecContext(ctx, "UPDATE shots SET "+col+" = ?, updated_at = ? WHERE id = ?",
		assetID, time.Now().UTC(), shotID)
	if err != nil {
		return fmt.Errorf("set active asset: %w", err)
	}
	return nil
}

// SweepStaleAssets marks assets stuck in pending or processing since before
// cutoff as errored and returns them.
func (db *DB) SweepStaleAssets(ctx context.Context, cutoff time.Time) ([]models.Asset, error) {
	rows, err := db.QueryContext(ctx,
		"SELECT "+assetColumns+" FROM assets WHERE status IN (?, ?) AND updated_at < ?",
		models.AssetPending, models.AssetProcessing, cutoff.UTC())
	if err != nil {
		return nil, fmt.Errorf("find stale assets: %w", err)
	}
	var stale []models.Asset
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		stale = append(stale, *a)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	const msg = "generation timed out"
	for i := range stale {
		if err := db.MarkAssetStatus(ctx, stale[i].ID, models.AssetError, msg); err != nil {
			return nil, err
		}
		stale[i].Status = models.AssetError
		stale[i].Error = msg
	}
	return stale, nil
}

func scanAsset(s scanner) (*models.Asset, error) {
	var a models.Asset
	var meta string
	if err := s.Scan(&a.ID, &a.StoryboardID, &a.ShotID, &a.RowID, &a.Prompt, &a.Status, &a.URL,
		&meta, &a.Error, &a.Task, &a.ModelKey, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	a.Meta = map[string]any{}
	_ = json.Unmarshal([]byte(meta), &a.Meta)
	return &a, nil
}
