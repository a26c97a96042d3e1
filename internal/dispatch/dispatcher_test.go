package dispatch

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Gpanazio/brickreview-sub001/internal/domain"
)

type fakeQueue struct {
	state      ConnState
	enqueueErr error
	enqueued   []domain.PipelineJob
}

func (q *fakeQueue) Enqueue(_ context.Context, job domain.PipelineJob) error {
	if q.enqueueErr != nil {
		return q.enqueueErr
	}
	q.enqueued = append(q.enqueued, job)
	return nil
}

func (q *fakeQueue) State(context.Context) ConnState { return q.state }

type fakeRunner struct {
	calls atomic.Int64
	err   error
}

func (r *fakeRunner) Run(_ context.Context, _ int64) error {
	r.calls.Add(1)
	return r.err
}

func validJob() domain.PipelineJob {
	return domain.PipelineJob{VideoID: 1, SourceKey: "videos/7/src.mp4", ProjectID: 7}
}

func TestDispatchQueued(t *testing.T) {
	queue := &fakeQueue{state: ConnStateConnected}
	runner := &fakeRunner{}
	d := New(queue, runner, true, zap.NewNop(), nil)

	task, err := d.Dispatch(context.Background(), validJob())
	require.NoError(t, err)

	assert.True(t, task.Queued())
	task.Wait()
	assert.NoError(t, task.Err())

	assert.Len(t, queue.enqueued, 1)
	assert.Equal(t, int64(0), runner.calls.Load())
}

func TestDispatchSyncWhenDisabled(t *testing.T) {
	queue := &fakeQueue{state: ConnStateConnected}
	runner := &fakeRunner{}
	d := New(queue, runner, false, zap.NewNop(), nil)

	task, err := d.Dispatch(context.Background(), validJob())
	require.NoError(t, err)

	assert.False(t, task.Queued())
	task.Wait()
	require.NoError(t, task.Err())

	// The queue backend never saw the job and the pipeline ran exactly once.
	assert.Empty(t, queue.enqueued)
	assert.Equal(t, int64(1), runner.calls.Load())
}

func TestDispatchSyncWhenUnavailable(t *testing.T) {
	queue := &fakeQueue{state: ConnStateUnavailable}
	runner := &fakeRunner{}
	d := New(queue, runner, true, zap.NewNop(), nil)

	task, err := d.Dispatch(context.Background(), validJob())
	require.NoError(t, err)

	assert.False(t, task.Queued())
	task.Wait()
	assert.Empty(t, queue.enqueued)
	assert.Equal(t, int64(1), runner.calls.Load())
}

func TestDispatchSyncOnEnqueueError(t *testing.T) {
	queue := &fakeQueue{state: ConnStateConnected, enqueueErr: errors.New("broker down")}
	runner := &fakeRunner{}
	d := New(queue, runner, true, zap.NewNop(), nil)

	task, err := d.Dispatch(context.Background(), validJob())
	require.NoError(t, err)

	assert.False(t, task.Queued())
	task.Wait()
	assert.Equal(t, int64(1), runner.calls.Load())
}

func TestDispatchNilQueueRunsSync(t *testing.T) {
	runner := &fakeRunner{}
	d := New(nil, runner, true, zap.NewNop(), nil)

	task, err := d.Dispatch(context.Background(), validJob())
	require.NoError(t, err)
	task.Wait()
	assert.Equal(t, int64(1), runner.calls.Load())
}

func TestDispatchRejectsInvalidJob(t *testing.T) {
	queue := &fakeQueue{state: ConnStateConnected}
	runner := &fakeRunner{}
	d := New(queue, runner, true, zap.NewNop(), nil)

	_, err := d.Dispatch(context.Background(), domain.PipelineJob{})
	require.Error(t, err)
	assert.Empty(t, queue.enqueued)
	assert.Equal(t, int64(0), runner.calls.Load())
}

func TestDispatchSyncSurvivesCallerCancellation(t *testing.T) {
	runner := &fakeRunner{}
	d := New(nil, runner, true, zap.NewNop(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	task, err := d.Dispatch(ctx, validJob())
	require.NoError(t, err)
	cancel()

	task.Wait()
	assert.NoError(t, task.Err())
	assert.Equal(t, int64(1), runner.calls.Load())
}

func TestSyncTaskReportsRunError(t *testing.T) {
	runner := &fakeRunner{err: errors.New("transcode failed")}
	d := New(nil, runner, true, zap.NewNop(), nil)

	task, err := d.Dispatch(context.Background(), validJob())
	require.NoError(t, err)
	task.Wait()
	assert.ErrorContains(t, task.Err(), "transcode failed")
}
