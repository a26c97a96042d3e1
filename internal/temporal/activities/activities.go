package activities

import (
	"context"
	"sync"
	"time"

	"go.temporal.io/sdk/activity"
	"go.uber.org/zap"

	"github.com/Gpanazio/brickreview-sub001/internal/domain"
)

// PipelineRunner runs one video through the processing pipeline.
type PipelineRunner interface {
	Run(ctx context.Context, videoID int64) error
}

// Activities holds all activity implementations
type Activities struct {
	pipeline PipelineRunner
	logger   *zap.Logger
}

// NewActivities creates a new activities instance
func NewActivities(pipeline PipelineRunner, logger *zap.Logger) *Activities {
	return &Activities{
		pipeline: pipeline,
		logger:   logger,
	}
}

// ProcessVideoOutput holds the activity result
type ProcessVideoOutput struct {
	Status string `json:"status"`
}

// ProcessVideo runs the full pipeline for one video. Long stages are covered
// by a periodic heartbeat so the workflow can tell a slow transcode from a
// dead worker.
func (a *Activities) ProcessVideo(ctx context.Context, job domain.PipelineJob) (*ProcessVideoOutput, error) {
	logger := a.logger.With(
		zap.Int64("video_id", job.VideoID),
		zap.String("activity", "ProcessVideo"))
	logger.Info("processing video")

	stopHeartbeat := startPeriodicHeartbeat(ctx, 30*time.Second, "processing video")
	defer stopHeartbeat()

	if err := a.pipeline.Run(ctx, job.VideoID); err != nil {
		logger.Error("pipeline run failed", zap.Error(err))
		return nil, err
	}

	return &ProcessVideoOutput{Status: "completed"}, nil
}

// startPeriodicHeartbeat records activity heartbeats until the returned stop
// function is called.
func startPeriodicHeartbeat(ctx context.Context, interval time.Duration, details string) func() {
	stop := make(chan struct{})

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				activity.RecordHeartbeat(ctx, details)
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() { close(stop) })
	}
}
