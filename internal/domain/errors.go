package domain

import (
	"errors"
	"fmt"
)

// Stage identifies where in the pipeline an error occurred.
type Stage string

const (
	StageDownload Stage = "download"
	StageProbe    Stage = "probe"
	StageTrans    Stage = "transcode"
	StageUpload   Stage = "upload"
	StageCommit   Stage = "commit"
	StageQueue    Stage = "queue"
)

// ErrAlreadyProcessing is returned when a run cannot claim a video because
// another run holds the processing status.
var ErrAlreadyProcessing = errors.New("video is already being processed")

// PipelineError wraps a stage failure with the video it belongs to. Content
// errors (probe, transcode) are not retried; only the queue layer applies
// retry policy, and it does not distinguish classes.
type PipelineError struct {
	Stage   Stage
	VideoID int64
	Err     error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("pipeline %s failed for video %d: %v", e.Stage, e.VideoID, e.Err)
}

func (e *PipelineError) Unwrap() error { return e.Err }

// NewPipelineError wraps err as a stage failure for the given video.
func NewPipelineError(stage Stage, videoID int64, err error) *PipelineError {
	return &PipelineError{Stage: stage, VideoID: videoID, Err: err}
}

// ErrorStage extracts the failing stage from err, or "" if err is not a
// pipeline error.
func ErrorStage(err error) Stage {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Stage
	}
	return ""
}
