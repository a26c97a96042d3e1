package media

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// Metadata holds the probed properties of a media file. Zero values mean the
// stream did not report the field; callers must treat them as unknown rather
// than as literal zeroes.
type Metadata struct {
	Duration   float64 `json:"duration"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	FPS        float64 `json:"fps"`
	BitrateBps int64   `json:"bitrateBps"`
}

// BitrateKbps returns the container bitrate in kbps.
func (m Metadata) BitrateKbps() int {
	return int(m.BitrateBps / 1000)
}

// Prober extracts metadata from video files.
type Prober struct {
	ffprobePath string
}

// NewProber creates a new prober.
func NewProber(ffprobePath string) *Prober {
	return &Prober{ffprobePath: ffprobePath}
}

// Probe extracts metadata from a video file. It fails if the file is
// unreadable or not a valid media container.
func (p *Prober) Probe(ctx context.Context, inputPath string) (*Metadata, error) {
	args := []string{
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		inputPath,
	}

	cmd := exec.CommandContext(ctx, p.ffprobePath, args...)
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffprobe failed: %w", err)
	}

	var probeData probeOutput
	if err := json.Unmarshal(output, &probeData); err != nil {
		return nil, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}

	return parseProbeOutput(&probeData), nil
}

type probeOutput struct {
	Format  probeFormat   `json:"format"`
	Streams []probeStream `json:"streams"`
}

type probeFormat struct {
	FormatName string `json:"format_name"`
	Duration   string `json:"duration"`
	BitRate    string `json:"bit_rate"`
}

type probeStream struct {
	CodecType  string `json:"codec_type"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	RFrameRate string `json:"r_frame_rate"`
}

func parseProbeOutput(data *probeOutput) *Metadata {
	meta := &Metadata{}

	if duration, err := strconv.ParseFloat(data.Format.Duration, 64); err == nil {
		meta.Duration = duration
	}
	if bitrate, err := strconv.ParseInt(data.Format.BitRate, 10, 64); err == nil {
		meta.BitrateBps = bitrate
	}

	for _, stream := range data.Streams {
		if stream.CodecType != "video" {
			continue
		}
		meta.Width = stream.Width
		meta.Height = stream.Height
		meta.FPS = parseFrameRate(stream.RFrameRate)
		break
	}

	return meta
}

func parseFrameRate(rate string) float64 {
	parts := strings.Split(rate, "/")
	if len(parts) != 2 {
		return 0
	}
	num, err1 := strconv.ParseFloat(parts[0], 64)
	den, err2 := strconv.ParseFloat(parts[1], 64)
	if err1 != nil || err2 != nil || den == 0 {
		return 0
	}
	return num / den
}
