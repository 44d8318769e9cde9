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

const shotColumns = "id, storyboard_id, name, sort_order, " +
	"active_source_video_id, active_source_image_id, active_edited_image_id, active_output_video_id, active_source_audio_id, " +
	"stats, created_at, updated_at"

// CreateShot appends a shot to a storyboard. A negative order places it last.
func (db *DB) CreateShot(ctx context.Context, storyboardID, name string, order int) (*models.Shot, error) {
	if _, err := db.GetStoryboard(ctx, storyboardID); err != nil {
		return nil, err
	}
	if order < 0 {
		if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM shots WHERE storyboard_id = ?", storyboardID).Scan(&order); err != nil {
			return nil, fmt.Errorf("count shots: %w", err)
		}
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = fmt.Sprintf("Shot %d", order+1)
	}

	now := time.Now().UTC()
	shot := &models.Shot{
		ID:           uuid.New().String(),
		StoryboardID: storyboardID,
		Name:         name,
		Order:        order,
		ActiveAssets: map[string]string{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	_, err := db.ExecContext(ctx,
		"INSERT INTO shots (id, storyboard_id, name, sort_order, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)",
		shot.ID, shot.StoryboardID, shot.Name, shot.Order, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert shot: %w", err)
	}
	if _, err := db.RecomputeStoryboardStats(ctx, storyboardID); err != nil {
		return nil, err
	}
	return shot, nil
}

func (db *DB) GetShot(ctx context.Context, id string) (*models.Shot, error) {
	row := db.QueryRowContext(ctx, "SELECT "+shotColumns+" FROM shots WHERE id = ?", id)
	shot, err := scanShot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return shot, err
}

func (db *DB) ListShots(ctx context.Context, storyboardID string) ([]models.Shot, error) {
	rows, err := db.QueryContext(ctx,
		"SELECT "+shotColumns+" FROM shots WHERE storyboard_id = ? ORDER BY sort_order, created_at", storyboardID)
	if err != nil {
		return nil, fmt.Errorf("list shots: %w", err)
	}
	defer rows.Close()

	out := []models.Shot{}
	for rows.Next() {
		shot, err := scanShot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *shot)
	}
	return out, rows.Err()
}

func (db *DB) RenameShot(ctx context.Context, id, name string) error {
	res, err := db.ExecContext(ctx, "UPDATE shots SET name = ?, updated_at = ? WHERE id = ?",
		strings.TrimSpace(name), time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("rename shot: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ReorderShots assigns sort order by position in orderedIDs. Ids belonging
// to another storyboard are ignored.
func (db *DB) ReorderShots(ctx context.Context, storyboardID string, orderedIDs []string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	for i, id := range orderedIDs {
		if _, err := tx.ExecContext(ctx,
			"UPDATE shots SET sort_order = ?, updated_at = ? WHERE id = ? AND storyboard_id = ?",
			i, now, id, storyboardID); err != nil {
			return fmt.Errorf("reorder shot %s: %w", id, err)
		}
	}
	return tx.Commit()
}

// DeleteShot removes a shot and its assets and refreshes storyboard stats.
func (db *DB) DeleteShot(ctx context.Context, id string) error {
	shot, err := db.GetShot(ctx, id)
	if err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, "DELETE FROM shots WHERE id = ?", id); err != nil {
		return fmt.Errorf("delete shot: %w", err)
	}
	_, err = db.RecomputeStoryboardStats(ctx, shot.StoryboardID)
	return err
}

func scanShot(s scanner) (*models.Shot, error) {
	var shot models.Shot
	var stats string
	active := make([]string, len(activeRows))
	if err := s.Scan(&shot.ID, &shot.StoryboardID, &shot.Name, &shot.Order,
		&active[0], &active[1], &active[2], &active[3], &active[4],
		&stats, &shot.CreatedAt, &shot.UpdatedAt); err != nil {
		return nil, err
	}
	shot.ActiveAssets = make(map[string]string, len(activeRows))
	for i, row := range activeRows {
		if active[i] != "" {
			shot.ActiveAssets[row] = active[i]
		}
	}
	_ = json.Unmarshal([]byte(stats), &shot.Stats)
	return &shot, nil
}
