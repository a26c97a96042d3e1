package media

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSpriteSheetGeometry(t *testing.T) {
	tests := []struct {
		name       string
		duration   float64
		opts       SpriteOptions
		wantFrames int
		wantRows   int
	}{
		{
			name:       "47s at 5s interval",
			duration:   47,
			opts:       SpriteOptions{IntervalSec: 5, Columns: 10},
			wantFrames: 10,
			wantRows:   1,
		},
		{
			name:       "exact multiple",
			duration:   50,
			opts:       SpriteOptions{IntervalSec: 5, Columns: 10},
			wantFrames: 10,
			wantRows:   1,
		},
		{
			name:       "spills into second row",
			duration:   120,
			opts:       SpriteOptions{IntervalSec: 5, Columns: 10},
			wantFrames: 24,
			wantRows:   3,
		},
		{
			name:       "short clip",
			duration:   2,
			opts:       SpriteOptions{IntervalSec: 5, Columns: 10},
			wantFrames: 1,
			wantRows:   1,
		},
		{
			name:       "zero duration",
			duration:   0,
			opts:       SpriteOptions{IntervalSec: 5, Columns: 10},
			wantFrames: 0,
			wantRows:   0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sheet := NewSpriteSheet("sprite.jpg", tt.duration, tt.opts)
			assert.Equal(t, tt.wantFrames, sheet.FrameCount)
			assert.Equal(t, tt.wantRows, sheet.Rows)
		})
	}
}

func TestSpriteSheetCueRect(t *testing.T) {
	sheet := NewSpriteSheet("sprite.jpg", 120, SpriteOptions{
		IntervalSec: 5,
		Columns:     5,
		ThumbWidth:  160,
		ThumbHeight: 90,
	})

	x, y, w, h := sheet.CueRect(0)
	assert.Equal(t, []int{0, 0, 160, 90}, []int{x, y, w, h})

	// Frame 7 sits in row 1, column 2.
	x, y, w, h = sheet.CueRect(7)
	assert.Equal(t, []int{320, 90, 160, 90}, []int{x, y, w, h})
}

func TestWriteSpriteIndex(t *testing.T) {
	sheet := NewSpriteSheet("sprite.jpg", 47, SpriteOptions{
		IntervalSec: 5,
		Columns:     10,
		ThumbWidth:  160,
		ThumbHeight: 90,
	})
	require.Equal(t, 10, sheet.FrameCount)

	indexPath := filepath.Join(t.TempDir(), "sprite.vtt")
	spriteURL := "https://cdn.example.com/sprites/7/abc.jpg"
	require.NoError(t, WriteSpriteIndex(indexPath, spriteURL, sheet))

	content, err := os.ReadFile(indexPath)
	require.NoError(t, err)
	vtt := string(content)

	assert.True(t, strings.HasPrefix(vtt, "WEBVTT\n"))
	assert.Equal(t, 10, strings.Count(vtt, "-->"))

	// First cue covers [0,5) and crops the top-left tile.
	assert.Contains(t, vtt, "00:00:00.000 --> 00:00:05.000")
	assert.Contains(t, vtt, spriteURL+"#xywh=0,0,160,90")

	// Last cue is clamped to the actual duration, not the interval grid.
	assert.Contains(t, vtt, "00:00:45.000 --> 00:00:47.000")
	assert.NotContains(t, vtt, "00:00:50.000")

	// Frame 9 is still on row 0 with a 10-column grid.
	assert.Contains(t, vtt, "#xywh=1440,0,160,90")
}

func TestWriteSpriteIndexSecondRow(t *testing.T) {
	sheet := NewSpriteSheet("sprite.jpg", 60, SpriteOptions{
		IntervalSec: 5,
		Columns:     10,
		ThumbWidth:  160,
		ThumbHeight: 90,
	})
	require.Equal(t, 12, sheet.FrameCount)

	indexPath := filepath.Join(t.TempDir(), "sprite.vtt")
	require.NoError(t, WriteSpriteIndex(indexPath, "sprite.jpg", sheet))

	content, err := os.ReadFile(indexPath)
	require.NoError(t, err)

	// Frames 10 and 11 wrap to the second row.
	assert.Contains(t, string(content), "#xywh=0,90,160,90")
	assert.Contains(t, string(content), "#xywh=160,90,160,90")
}

func TestFormatVTTTimestamp(t *testing.T) {
	assert.Equal(t, "00:00:00.000", formatVTTTimestamp(0))
	assert.Equal(t, "00:00:47.000", formatVTTTimestamp(47))
	assert.Equal(t, "00:01:02.500", formatVTTTimestamp(62.5))
	assert.Equal(t, "01:00:00.000", formatVTTTimestamp(3600))
}
