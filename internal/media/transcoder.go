package media

import (
	"context"
	"fmt"
	"math"
	"time"
)

const (
	// Proxy encode bounds: capped resolution, bounded bitrate, progressive
	// playback via faststart.
	proxyMaxHeight      = 720
	proxyMaxBitrateKbps = 5000
	thumbnailWidth      = 640
	audioBitrate        = "192k"
	audioSampleRate     = "48000"
)

// Transcoder is the only component that invokes the media engine. It wraps
// ffmpeg/ffprobe to probe metadata and produce the derivative assets.
type Transcoder struct {
	prober *Prober
	runner *Runner
}

// NewTranscoder creates a transcoder using the given binary paths and process
// timeout.
func NewTranscoder(ffmpegPath, ffprobePath string, timeout time.Duration) *Transcoder {
	return &Transcoder{
		prober: NewProber(ffprobePath),
		runner: NewRunner(ffmpegPath, timeout),
	}
}

// Probe extracts metadata from a local media file.
func (t *Transcoder) Probe(ctx context.Context, inputPath string) (*Metadata, error) {
	return t.prober.Probe(ctx, inputPath)
}

// ThumbnailTimestamp picks the frame-extraction point for a source of the
// given duration. The nominal point is one second in, clamped to half the
// duration for very short clips.
func ThumbnailTimestamp(duration float64) float64 {
	if duration <= 0 {
		return 0
	}
	return math.Min(1.0, duration/2)
}

// ExtractThumbnail writes a single JPEG frame scaled to a fixed width,
// preserving aspect ratio.
func (t *Transcoder) ExtractThumbnail(ctx context.Context, inputPath, outputPath string, duration float64) error {
	ts := ThumbnailTimestamp(duration)
	args := []string{
		"-y",
		"-ss", fmt.Sprintf("%.3f", ts),
		"-i", inputPath,
		"-vframes", "1",
		"-vf", fmt.Sprintf("scale=%d:-2", thumbnailWidth),
		"-q:v", "3",
		outputPath,
	}
	if err := t.runner.Run(ctx, args); err != nil {
		return err
	}
	return ValidateOutput(outputPath)
}

// GenerateProxy re-encodes the source into a capped-resolution H.264/AAC
// stream with a bounded bitrate and the moov atom relocated to the front.
func (t *Transcoder) GenerateProxy(ctx context.Context, inputPath, outputPath string) error {
	args := []string{
		"-y",
		"-i", inputPath,
		"-c:v", "libx264",
		"-preset", "medium",
		"-crf", "23",
		"-maxrate", fmt.Sprintf("%dk", proxyMaxBitrateKbps),
		"-bufsize", fmt.Sprintf("%dk", proxyMaxBitrateKbps*2),
		"-vf", fmt.Sprintf("scale=-2:'min(%d,ih)'", proxyMaxHeight),
	}
	args = append(args, t.audioArgs()...)
	args = append(args,
		"-movflags", "+faststart",
		outputPath,
	)
	if err := t.runner.Run(ctx, args); err != nil {
		return err
	}
	return ValidateOutput(outputPath)
}

// GenerateStreamingHigh re-encodes at the original resolution with the
// policy-computed bitrate as a ceiling.
func (t *Transcoder) GenerateStreamingHigh(ctx context.Context, inputPath, outputPath string, targetBitrateKbps int) error {
	args := []string{
		"-y",
		"-i", inputPath,
		"-c:v", "libx264",
		"-preset", "medium",
		"-b:v", fmt.Sprintf("%dk", targetBitrateKbps),
		"-maxrate", fmt.Sprintf("%dk", targetBitrateKbps),
		"-bufsize", fmt.Sprintf("%dk", targetBitrateKbps*2),
	}
	args = append(args, t.audioArgs()...)
	args = append(args,
		"-movflags", "+faststart",
		outputPath,
	)
	if err := t.runner.Run(ctx, args); err != nil {
		return err
	}
	return ValidateOutput(outputPath)
}

// GenerateSpriteSheet extracts one frame per interval across the full
// duration and tiles them into a single JPEG grid with a fixed column count.
// The returned geometry is what the index builder needs to compute per-frame
// crop rectangles.
func (t *Transcoder) GenerateSpriteSheet(ctx context.Context, inputPath, outputPath string, duration float64, opts SpriteOptions) (*SpriteSheet, error) {
	opts = opts.withDefaults()
	sheet := NewSpriteSheet(outputPath, duration, opts)
	if sheet.FrameCount == 0 {
		return nil, fmt.Errorf("sprite sheet: non-positive duration %.3f", duration)
	}

	args := []string{
		"-y",
		"-i", inputPath,
		"-vf", fmt.Sprintf("fps=1/%g,scale=%d:%d,tile=%dx%d",
			opts.IntervalSec, opts.ThumbWidth, opts.ThumbHeight, sheet.Columns, sheet.Rows),
		"-frames:v", "1",
		"-q:v", "4",
		outputPath,
	}
	if err := t.runner.Run(ctx, args); err != nil {
		return nil, err
	}
	if err := ValidateOutput(outputPath); err != nil {
		return nil, err
	}
	return &sheet, nil
}

func (t *Transcoder) audioArgs() []string {
	return []string{
		"-c:a", "aac",
		"-ar", audioSampleRate,
		"-ac", "2",
		"-b:a", audioBitrate,
	}
}
