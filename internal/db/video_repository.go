package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/Gpanazio/brickreview-sub001/internal/domain"
)

// ErrNotFound is returned when a resource is not found
var ErrNotFound = errors.New("not found")

const videoColumns = `
	id, project_id, filename, source_key, source_url,
	proxy_key, proxy_url, thumbnail_key, thumbnail_url,
	sprite_key, sprite_url, sprite_index_key, sprite_index_url,
	high_bitrate_key, high_bitrate_url,
	duration_seconds, width, height, fps, bitrate_bps,
	status, created_at, updated_at`

// VideoRepository handles video record persistence
type VideoRepository struct {
	db *DB
}

// NewVideoRepository creates a new video repository
func NewVideoRepository(db *DB) *VideoRepository {
	return &VideoRepository{db: db}
}

// Create inserts a freshly uploaded video record and fills in its generated
// id and timestamps.
func (r *VideoRepository) Create(ctx context.Context, video *domain.VideoAsset) error {
	query := `
		INSERT INTO videos (project_id, filename, source_key, source_url, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`

	err := r.db.Pool.QueryRow(ctx, query,
		video.ProjectID,
		video.Filename,
		video.SourceKey,
		video.SourceURL,
		video.Status,
	).Scan(&video.ID, &video.CreatedAt, &video.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create video: %w", err)
	}

	return nil
}

// GetByID retrieves a video record by ID
func (r *VideoRepository) GetByID(ctx context.Context, id int64) (*domain.VideoAsset, error) {
	query := `SELECT ` + videoColumns + ` FROM videos WHERE id = $1`
	return r.scanVideo(r.db.Pool.QueryRow(ctx, query, id))
}

// ClaimProcessing transitions a video into "processing" only if no other run
// holds it. The conditional update is the mutual exclusion point: a second
// concurrent claim affects zero rows and gets ErrAlreadyProcessing.
func (r *VideoRepository) ClaimProcessing(ctx context.Context, id int64) error {
	query := `
		UPDATE videos
		SET status = $2, updated_at = now()
		WHERE id = $1 AND status <> $2
	`

	result, err := r.db.Pool.Exec(ctx, query, id, domain.StatusProcessing)
	if err != nil {
		return fmt.Errorf("failed to claim video: %w", err)
	}

	if result.RowsAffected() == 0 {
		if _, err := r.GetByID(ctx, id); errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return domain.ErrAlreadyProcessing
	}

	return nil
}

// SetStatus updates the lifecycle status of a video record.
func (r *VideoRepository) SetStatus(ctx context.Context, id int64, status domain.VideoStatus) error {
	query := `UPDATE videos SET status = $2, updated_at = now() WHERE id = $1`

	result, err := r.db.Pool.Exec(ctx, query, id, status)
	if err != nil {
		return fmt.Errorf("failed to set status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// CommitAssets writes all derived references and probed metadata of a
// successful run and flips the record to "ready" in one statement. Readers
// never observe a ready video with missing derivatives.
func (r *VideoRepository) CommitAssets(ctx context.Context, id int64, commit *domain.AssetCommit) error {
	query := `
		UPDATE videos SET
			proxy_key = $2,
			proxy_url = $3,
			thumbnail_key = $4,
			thumbnail_url = $5,
			sprite_key = $6,
			sprite_url = $7,
			sprite_index_key = $8,
			sprite_index_url = $9,
			high_bitrate_key = $10,
			high_bitrate_url = $11,
			duration_seconds = $12,
			width = $13,
			height = $14,
			fps = $15,
			bitrate_bps = $16,
			status = $17,
			updated_at = now()
		WHERE id = $1
	`

	result, err := r.db.Pool.Exec(ctx, query,
		id,
		commit.ProxyKey,
		commit.ProxyURL,
		commit.ThumbnailKey,
		commit.ThumbnailURL,
		commit.SpriteKey,
		commit.SpriteURL,
		commit.SpriteIndexKey,
		commit.SpriteIndexURL,
		commit.HighBitrateKey,
		commit.HighBitrateURL,
		commit.Duration,
		commit.Width,
		commit.Height,
		commit.FPS,
		commit.BitrateBps,
		domain.StatusReady,
	)
	if err != nil {
		return fmt.Errorf("failed to commit assets: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// ListByProject lists a project's videos, newest first.
func (r *VideoRepository) ListByProject(ctx context.Context, projectID int64, limit int) ([]*domain.VideoAsset, error) {
	query := `SELECT ` + videoColumns + `
		FROM videos
		WHERE project_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.db.Pool.Query(ctx, query, projectID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list videos: %w", err)
	}
	defer rows.Close()

	var videos []*domain.VideoAsset
	for rows.Next() {
		video, err := r.scanVideo(rows)
		if err != nil {
			return nil, err
		}
		videos = append(videos, video)
	}

	return videos, rows.Err()
}

// CountByStatus counts videos by status
func (r *VideoRepository) CountByStatus(ctx context.Context) (map[domain.VideoStatus]int, error) {
	query := `SELECT status, COUNT(*) FROM videos GROUP BY status`

	rows, err := r.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to count videos: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.VideoStatus]int)
	for rows.Next() {
		var status domain.VideoStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan count: %w", err)
		}
		counts[status] = count
	}

	return counts, rows.Err()
}

func (r *VideoRepository) scanVideo(row pgx.Row) (*domain.VideoAsset, error) {
	var video domain.VideoAsset

	err := row.Scan(
		&video.ID,
		&video.ProjectID,
		&video.Filename,
		&video.SourceKey,
		&video.SourceURL,
		&video.ProxyKey,
		&video.ProxyURL,
		&video.ThumbnailKey,
		&video.ThumbnailURL,
		&video.SpriteKey,
		&video.SpriteURL,
		&video.SpriteIndexKey,
		&video.SpriteIndexURL,
		&video.HighBitrateKey,
		&video.HighBitrateURL,
		&video.Duration,
		&video.Width,
		&video.Height,
		&video.FPS,
		&video.BitrateBps,
		&video.Status,
		&video.CreatedAt,
		&video.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan video: %w", err)
	}

	return &video, nil
}
