package pipeline

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// KeySet holds the remote keys for one pipeline run. Every run derives a
// fresh set from its own id, so reprocessing writes new objects instead of
// overwriting ones a client may be fetching.
type KeySet struct {
	Thumbnail   string
	Proxy       string
	Sprite      string
	SpriteIndex string
	HighBitrate string
}

// NewKeySet derives the remote key layout for a run.
func NewKeySet(projectID int64, runID uuid.UUID) KeySet {
	sprite := fmt.Sprintf("sprites/%d/%s.jpg", projectID, runID)
	return KeySet{
		Thumbnail:   fmt.Sprintf("thumbnails/%d/%s.jpg", projectID, runID),
		Proxy:       fmt.Sprintf("proxies/%d/%s.mp4", projectID, runID),
		Sprite:      sprite,
		SpriteIndex: spriteIndexKey(sprite),
		HighBitrate: fmt.Sprintf("videos/%d/%s.mp4", projectID, runID),
	}
}

// OriginalKey builds the upload key for a freshly registered source file. The
// uuid prefix keeps same-named uploads within a project from colliding.
func OriginalKey(projectID int64, filename string) string {
	return fmt.Sprintf("videos/%d/%s-%s", projectID, uuid.New(), sanitizeFilename(filename))
}

// spriteIndexKey swaps the sprite image extension for .vtt so the index
// always sits next to its sheet.
func spriteIndexKey(spriteKey string) string {
	return strings.TrimSuffix(spriteKey, ".jpg") + ".vtt"
}

// sanitizeFilename strips path separators and characters that break key
// layouts out of a client-supplied filename.
func sanitizeFilename(filename string) string {
	replacer := strings.NewReplacer("/", "_", "\\", "_", " ", "_", "#", "_", "?", "_")
	clean := replacer.Replace(filename)
	if clean == "" {
		clean = "upload"
	}
	return clean
}
