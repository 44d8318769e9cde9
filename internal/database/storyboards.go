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

const storyboardColumns = "id, name, description, aspect_ratio, sort_order, stats, created_at, updated_at"

// CreateStoryboard inserts a storyboard together with its first shot.
func (db *DB) CreateStoryboard(ctx context.Context, name, description, aspectRatio string) (*models.Storyboard, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = "Untitled Storyboard"
	}
	if aspectRatio == "" {
		aspectRatio = "16:9"
	}
	now := time.Now().UTC()
	sb := &models.Storyboard{
		ID:          uuid.New().String(),
		Name:        name,
		Description: strings.TrimSpace(description),
		AspectRatio: aspectRatio,
		Stats:       models.Stats{ShotCount: 1},
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM storyboards").Scan(&sb.Order); err != nil {
		return nil, fmt.Errorf("count storyboards: %w", err)
	}
	stats, _ := json.Marshal(sb.Stats)
	_, err = tx.ExecContext(ctx,
		"INSERT INTO storyboards ("+storyboardColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		sb.ID, sb.Name, sb.Description, sb.AspectRatio, sb.Order, string(stats), now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert storyboard: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		"INSERT INTO shots (id, storyboard_id, name, sort_order, created_at, updated_at) VALUES (?, ?, ?, 0, ?, ?)",
		uuid.New().String(), sb.ID, "Shot 1", now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert first shot: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return sb, nil
}

func (db *DB) GetStoryboard(ctx context.Context, id string) (*models.Storyboard, error) {
	row := db.QueryRowContext(ctx, "SELECT "+storyboardColumns+" FROM storyboards WHERE id = ?", id)
	sb, err := scanStoryboard(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return sb, err
}

func (db *DB) ListStoryboards(ctx context.Context) ([]models.Storyboard, error) {
	rows, err := db.QueryContext(ctx, "SELECT "+storyboardColumns+" FROM storyboards ORDER BY sort_order, created_at")
	if err != nil {
		return nil, fmt.Errorf("list storyboards: %w", err)
	}
	defer rows.Close()

	out := []models.Storyboard{}
	for rows.Next() {
		sb, err := scanStoryboard(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *sb)
	}
	return out, rows.Err()
}

// StoryboardUpdate holds the fields to change; nil fields are left alone.
type StoryboardUpdate struct {
	Name        *string
	Description *string
	AspectRatio *string
	Order       *int
}

func (db *DB) UpdateStoryboard(ctx context.Context, id string, u StoryboardUpdate) (*models.Storyboard, error) {
	sets := []string{"updated_at = ?"}
	args := []any{time.Now().UTC()}
	if u.Name != nil {
		name := strings.TrimSpace(*u.Name)
		if name == "" {
			name = "Untitled Storyboard"
		}
		sets, args = append(sets, "name = ?"), append(args, name)
	}
	if u.Description != nil {
		sets, args = append(sets, "description = ?"), append(args, strings.TrimSpace(*u.Description))
	}
	if u.AspectRatio != nil {
		sets, args = append(sets, "aspect_ratio = ?"), append(args, *u.AspectRatio)
	}
	if u.Order != nil {
		sets, args = append(sets, "sort_order = ?"), append(args, *u.Order)
	}
	args = append(args, id)

	res, err := db.ExecContext(ctx, "UPDATE storyboards SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return nil, fmt.Errorf("update storyboard: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}
	return db.GetStoryboard(ctx, id)
}

// DeleteStoryboard removes a storyboard; shots and assets cascade.
func (db *DB) DeleteStoryboard(ctx context.Context, id string) error {
	res, err := db.ExecContext(ctx, "DELETE FROM storyboards WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete storyboard: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanStoryboard(s scanner) (*models.Storyboard, error) {
	var sb models.Storyboard
	var stats string
	if err := s.Scan(&sb.ID, &sb.Name, &sb.Description, &sb.AspectRatio, &sb.Order, &stats, &sb.CreatedAt, &sb.UpdatedAt); err != nil {
		return nil, err
	}
	_ = json.Unmarshal([]byte(stats), &sb.Stats)
	return &sb, nil
}
