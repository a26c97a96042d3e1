package db

import (
	"context"
	"fmt"

	"github.com/Gpanazio/brickreview-sub001/internal/domain"
)

// FailureRepository handles processing failure persistence
type FailureRepository struct {
	db *DB
}

// NewFailureRepository creates a new failure repository
func NewFailureRepository(db *DB) *FailureRepository {
	return &FailureRepository{db: db}
}

// Create records a failed pipeline run.
func (r *FailureRepository) Create(ctx context.Context, failure *domain.ProcessingFailure) error {
	query := `
		INSERT INTO processing_failures (video_id, stage, message)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`

	err := r.db.Pool.QueryRow(ctx, query,
		failure.VideoID,
		failure.Stage,
		failure.Message,
	).Scan(&failure.ID, &failure.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create failure record: %w", err)
	}

	return nil
}

// ListByVideo retrieves failure records for a video, newest first.
func (r *FailureRepository) ListByVideo(ctx context.Context, videoID int64) ([]*domain.ProcessingFailure, error) {
	query := `
		SELECT id, video_id, stage, message, created_at
		FROM processing_failures
		WHERE video_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.db.Pool.Query(ctx, query, videoID)
	if err != nil {
		return nil, fmt.Errorf("failed to list failures: %w", err)
	}
	defer rows.Close()

	var failures []*domain.ProcessingFailure
	for rows.Next() {
		var failure domain.ProcessingFailure
		if err := rows.Scan(
			&failure.ID,
			&failure.VideoID,
			&failure.Stage,
			&failure.Message,
			&failure.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan failure: %w", err)
		}
		failures = append(failures, &failure)
	}

	return failures, rows.Err()
}
