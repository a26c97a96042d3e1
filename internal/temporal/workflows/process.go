package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/Gpanazio/brickreview-sub001/internal/domain"
)

// ProcessVideoInput holds workflow input
type ProcessVideoInput struct {
	Job domain.PipelineJob `json:"job"`
}

// ProcessVideoOutput holds workflow output
type ProcessVideoOutput struct {
	Status string `json:"status"`
}

// ProcessVideoWorkflow runs the whole pipeline as one activity. The pipeline
// claims the video itself, so a retried attempt after a partial failure either
// reclaims a failed record or loses the claim and exits.
func ProcessVideoWorkflow(ctx workflow.Context, input ProcessVideoInput) (*ProcessVideoOutput, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting video pipeline workflow", "videoId", input.Job.VideoID)

	activityOptions := workflow.ActivityOptions{
		StartToCloseTimeout: 4 * time.Hour,
		HeartbeatTimeout:    time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    time.Minute,
			MaximumAttempts:    3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, activityOptions)

	var output ProcessVideoOutput
	if err := workflow.ExecuteActivity(ctx, "ProcessVideo", input.Job).Get(ctx, &output); err != nil {
		logger.Error("Video pipeline workflow failed",
			"videoId", input.Job.VideoID, "error", err)
		return nil, err
	}

	logger.Info("Video pipeline workflow completed", "videoId", input.Job.VideoID)
	return &output, nil
}
