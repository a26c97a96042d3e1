package domain

import "time"

// VideoStatus represents the lifecycle state of a video record.
type VideoStatus string

const (
	StatusUploaded   VideoStatus = "uploaded"
	StatusProcessing VideoStatus = "processing"
	StatusReady      VideoStatus = "ready"
	StatusFailed     VideoStatus = "failed"
)

// IsTerminal reports whether the status is a terminal outcome.
func (s VideoStatus) IsTerminal() bool {
	return s == StatusReady || s == StatusFailed
}

// Valid reports whether s is a known status value.
func (s VideoStatus) Valid() bool {
	switch s {
	case StatusUploaded, StatusProcessing, StatusReady, StatusFailed:
		return true
	}
	return false
}

// VideoAsset is the persistent video record. It is created by the upload
// handler with status "uploaded" and mutated only by the pipeline afterwards.
// Derived references and probed metadata are nil until the first successful
// run commits them.
type VideoAsset struct {
	ID        int64  `json:"id" db:"id"`
	ProjectID int64  `json:"projectId" db:"project_id"`
	Filename  string `json:"filename" db:"filename"`

	SourceKey string `json:"sourceKey" db:"source_key"`
	SourceURL string `json:"sourceUrl" db:"source_url"`

	ProxyKey       *string `json:"proxyKey,omitempty" db:"proxy_key"`
	ProxyURL       *string `json:"proxyUrl,omitempty" db:"proxy_url"`
	ThumbnailKey   *string `json:"thumbnailKey,omitempty" db:"thumbnail_key"`
	ThumbnailURL   *string `json:"thumbnailUrl,omitempty" db:"thumbnail_url"`
	SpriteKey      *string `json:"spriteKey,omitempty" db:"sprite_key"`
	SpriteURL      *string `json:"spriteUrl,omitempty" db:"sprite_url"`
	SpriteIndexKey *string `json:"spriteIndexKey,omitempty" db:"sprite_index_key"`
	SpriteIndexURL *string `json:"spriteIndexUrl,omitempty" db:"sprite_index_url"`
	HighBitrateKey *string `json:"highBitrateKey,omitempty" db:"high_bitrate_key"`
	HighBitrateURL *string `json:"highBitrateUrl,omitempty" db:"high_bitrate_url"`

	Duration   *float64 `json:"duration,omitempty" db:"duration_seconds"`
	Width      *int     `json:"width,omitempty" db:"width"`
	Height     *int     `json:"height,omitempty" db:"height"`
	FPS        *float64 `json:"fps,omitempty" db:"fps"`
	BitrateBps *int64   `json:"bitrateBps,omitempty" db:"bitrate_bps"`

	Status    VideoStatus `json:"status" db:"status"`
	CreatedAt time.Time   `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time   `json:"updatedAt" db:"updated_at"`
}

// AssetCommit carries everything a successful pipeline run writes back to the
// video record. It is applied as a single atomic update together with the
// transition to "ready"; there is no partial-commit path.
type AssetCommit struct {
	ProxyKey       string
	ProxyURL       string
	ThumbnailKey   string
	ThumbnailURL   string
	SpriteKey      string
	SpriteURL      string
	SpriteIndexKey string
	SpriteIndexURL string

	// Nil when the bitrate policy decided no streaming-high derivative
	// was needed for this source.
	HighBitrateKey *string
	HighBitrateURL *string

	Duration   float64
	Width      int
	Height     int
	FPS        float64
	BitrateBps int64
}
