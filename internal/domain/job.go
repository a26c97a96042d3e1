package domain

import "fmt"

// PipelineJob is the unit of work handed to the dispatch layer. It is
// validated at the queue boundary and consumed exactly once per execution.
type PipelineJob struct {
	VideoID   int64  `json:"videoId"`
	SourceKey string `json:"sourceKey"`
	ProjectID int64  `json:"projectId"`
}

// Validate checks that all required fields are present before dispatch.
func (j PipelineJob) Validate() error {
	if j.VideoID <= 0 {
		return fmt.Errorf("pipeline job: missing video id")
	}
	if j.SourceKey == "" {
		return fmt.Errorf("pipeline job: missing source key")
	}
	if j.ProjectID <= 0 {
		return fmt.Errorf("pipeline job: missing project id")
	}
	return nil
}
