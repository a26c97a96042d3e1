package temporal

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.temporal.io/sdk/client"
	"go.uber.org/zap"

	"github.com/Gpanazio/brickreview-sub001/internal/dispatch"
	"github.com/Gpanazio/brickreview-sub001/internal/domain"
	"github.com/Gpanazio/brickreview-sub001/internal/temporal/workflows"
)

// Queue adapts a Temporal client to the dispatch queue interface. Each
// enqueued job becomes one workflow execution; the workflow id carries the
// video id for operator visibility and a fresh uuid so reprocessing the same
// video never collides with a finished execution.
type Queue struct {
	client    client.Client
	taskQueue string
	logger    *zap.Logger
}

// NewQueue creates a queue backed by the given Temporal client.
func NewQueue(c client.Client, taskQueue string, logger *zap.Logger) *Queue {
	return &Queue{
		client:    c,
		taskQueue: taskQueue,
		logger:    logger,
	}
}

// Enqueue starts a pipeline workflow for the job.
func (q *Queue) Enqueue(ctx context.Context, job domain.PipelineJob) error {
	options := client.StartWorkflowOptions{
		ID:        fmt.Sprintf("video-pipeline-%d-%s", job.VideoID, uuid.New()),
		TaskQueue: q.taskQueue,
	}

	run, err := q.client.ExecuteWorkflow(ctx, options, workflows.ProcessVideoWorkflow, workflows.ProcessVideoInput{Job: job})
	if err != nil {
		return fmt.Errorf("failed to start workflow: %w", err)
	}

	q.logger.Info("workflow started",
		zap.Int64("video_id", job.VideoID),
		zap.String("workflow_id", run.GetID()),
		zap.String("run_id", run.GetRunID()))
	return nil
}

// State probes backend connectivity.
func (q *Queue) State(ctx context.Context) dispatch.ConnState {
	if q.client == nil {
		return dispatch.ConnStateUnavailable
	}
	if _, err := q.client.CheckHealth(ctx, &client.CheckHealthRequest{}); err != nil {
		return dispatch.ConnStateUnavailable
	}
	return dispatch.ConnStateConnected
}
