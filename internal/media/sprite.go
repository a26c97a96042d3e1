package media

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"time"
)

// SpriteOptions controls sprite sheet extraction.
type SpriteOptions struct {
	IntervalSec float64
	Columns     int
	ThumbWidth  int
	ThumbHeight int
}

func (o SpriteOptions) withDefaults() SpriteOptions {
	if o.IntervalSec <= 0 {
		o.IntervalSec = 5
	}
	if o.Columns <= 0 {
		o.Columns = 10
	}
	if o.ThumbWidth <= 0 {
		o.ThumbWidth = 160
	}
	if o.ThumbHeight <= 0 {
		o.ThumbHeight = 90
	}
	return o
}

// SpriteSheet describes a generated tiled frame grid.
type SpriteSheet struct {
	Path        string
	Columns     int
	Rows        int
	FrameCount  int
	ThumbWidth  int
	ThumbHeight int
	IntervalSec float64
	Duration    float64
}

// NewSpriteSheet computes grid geometry for a source of the given duration.
// One frame is taken per interval, so the frame count is ceil(duration/interval).
func NewSpriteSheet(path string, duration float64, opts SpriteOptions) SpriteSheet {
	opts = opts.withDefaults()
	frames := 0
	if duration > 0 {
		frames = int(math.Ceil(duration / opts.IntervalSec))
	}
	rows := 0
	if frames > 0 {
		rows = (frames + opts.Columns - 1) / opts.Columns
	}
	return SpriteSheet{
		Path:        path,
		Columns:     opts.Columns,
		Rows:        rows,
		FrameCount:  frames,
		ThumbWidth:  opts.ThumbWidth,
		ThumbHeight: opts.ThumbHeight,
		IntervalSec: opts.IntervalSec,
		Duration:    duration,
	}
}

// CueRect returns the crop rectangle for frame i within the sprite image.
func (s SpriteSheet) CueRect(i int) (x, y, w, h int) {
	col := i % s.Columns
	row := i / s.Columns
	return col * s.ThumbWidth, row * s.ThumbHeight, s.ThumbWidth, s.ThumbHeight
}

// WriteSpriteIndex writes a WebVTT cue file mapping each interval of playback
// to a crop rectangle in the sprite image, for scrubber hover previews. The
// last cue is clamped to the actual duration.
func WriteSpriteIndex(indexPath, spriteURL string, sheet SpriteSheet) error {
	file, err := os.Create(indexPath)
	if err != nil {
		return fmt.Errorf("failed to create sprite index: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	writer.WriteString("WEBVTT\n\n")

	for i := 0; i < sheet.FrameCount; i++ {
		start := float64(i) * sheet.IntervalSec
		end := math.Min(float64(i+1)*sheet.IntervalSec, sheet.Duration)

		x, y, w, h := sheet.CueRect(i)
		fmt.Fprintf(writer, "%s --> %s\n", formatVTTTimestamp(start), formatVTTTimestamp(end))
		fmt.Fprintf(writer, "%s#xywh=%d,%d,%d,%d\n\n", spriteURL, x, y, w, h)
	}

	return writer.Flush()
}

func formatVTTTimestamp(seconds float64) string {
	d := time.Duration(seconds * float64(time.Second))
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	secs := int(d.Seconds()) % 60
	millis := int(d.Milliseconds()) % 1000
	return fmt.Sprintf("%02d:%02d:%02d.%03d", hours, minutes, secs, millis)
}
