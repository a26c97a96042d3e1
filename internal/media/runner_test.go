package media

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateOutput(t *testing.T) {
	dir := t.TempDir()

	missing := filepath.Join(dir, "missing.mp4")
	assert.Error(t, ValidateOutput(missing))

	empty := filepath.Join(dir, "empty.mp4")
	require.NoError(t, os.WriteFile(empty, nil, 0o644))
	assert.ErrorContains(t, ValidateOutput(empty), "empty")

	ok := filepath.Join(dir, "ok.mp4")
	require.NoError(t, os.WriteFile(ok, []byte("data"), 0o644))
	assert.NoError(t, ValidateOutput(ok))
}

func TestDrainTail(t *testing.T) {
	assert.Equal(t, "short", drainTail(strings.NewReader("short"), 100))

	// A single line far past any line-oriented buffer must be consumed in
	// full, with only the tail retained.
	long := strings.Repeat("x", 256*1024) + "end"
	assert.Equal(t, "xend", drainTail(strings.NewReader(long), 4))
}

func TestGenerateSpriteSheetRejectsZeroDuration(t *testing.T) {
	tc := NewTranscoder("ffmpeg", "ffprobe", 0)
	_, err := tc.GenerateSpriteSheet(context.Background(), "in.mp4", "out.jpg", 0, SpriteOptions{})
	assert.Error(t, err)
}
