package media

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"
)

const stderrTailBytes = 2048

// Runner executes ffmpeg commands with a bounded process timeout. A hung
// transcode would otherwise hold a worker slot forever.
type Runner struct {
	ffmpegPath string
	timeout    time.Duration
}

// NewRunner creates a new runner.
func NewRunner(ffmpegPath string, timeout time.Duration) *Runner {
	return &Runner{
		ffmpegPath: ffmpegPath,
		timeout:    timeout,
	}
}

// Run executes an ffmpeg command and waits for it to finish. Stderr is
// collected into the returned error so transcode failures carry the engine's
// diagnostics.
func (r *Runner) Run(ctx context.Context, args []string) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, r.ffmpegPath, args...)

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("failed to get stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	// The pipe must be drained to the end regardless of line shape or
	// volume, or ffmpeg blocks on a full stderr buffer. Only the tail is
	// kept for the error message.
	stderrTail := drainTail(stderr, stderrTailBytes)

	if err := cmd.Wait(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("ffmpeg timed out after %s: %w", r.timeout, err)
		}
		return fmt.Errorf("ffmpeg failed: %w\nstderr: %s", err, stderrTail)
	}

	return nil
}

// ValidateOutput checks that an ffmpeg output file exists and is non-empty.
func ValidateOutput(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("output file not found: %w", err)
	}
	if info.Size() == 0 {
		return fmt.Errorf("output file is empty")
	}
	return nil
}

// drainTail consumes r until EOF and returns at most the last max bytes.
func drainTail(r io.Reader, max int) string {
	buf := make([]byte, 4096)
	var kept []byte
	for {
		n, err := r.Read(buf)
		if n > 0 {
			kept = append(kept, buf[:n]...)
			if len(kept) > max {
				kept = kept[len(kept)-max:]
			}
		}
		if err != nil {
			return string(kept)
		}
	}
}
