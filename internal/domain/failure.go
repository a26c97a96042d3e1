package domain

import "time"

// ProcessingFailure is the audit record written when a pipeline run fails.
// One row per failed run, keyed by the stage that broke.
type ProcessingFailure struct {
	ID        int64     `json:"id" db:"id"`
	VideoID   int64     `json:"videoId" db:"video_id"`
	Stage     Stage     `json:"stage" db:"stage"`
	Message   string    `json:"message" db:"message"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}
