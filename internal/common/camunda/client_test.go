package camunda

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"ethoscore/internal/common/errors"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fastRetry = &RetryConfig{MaxRetries: 2, BaseDelay: time.Millisecond, MaxDelay: 4 * time.Millisecond}

func TestExecuteWithRetry_RecoversFromTransientError(t *testing.T) {
	calls := 0
	result, err := executeWithRetry(context.Background(), fastRetry, func(ctx context.Context) (interface{}, error) {
		calls++
		if calls < 3 {
			return nil, stderrors.New("rpc error: code = Unavailable desc = connection refused")
		}
		return "ok", nil
	}, "publish-message")

	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, 3, calls)
}

func TestExecuteWithRetry_GivesUp(t *testing.T) {
	calls := 0
	_, err := executeWithRetry(context.Background(), fastRetry, func(ctx context.Context) (interface{}, error) {
		calls++
		return nil, stderrors.New("deadline exceeded")
	}, "complete-job")

	var stdErr *errors.StandardError
	require.True(t, stderrors.As(err, &stdErr))
	assert.Equal(t, errors.ErrCodeWorkflowBrokerUnavailable, stdErr.Code)
	assert.Equal(t, "complete-job", stdErr.Metadata["operation"])
	assert.Contains(t, stdErr.Details, "after 3 attempts")
	assert.Equal(t, 3, calls)
}

func TestExecuteWithRetry_DoesNotRetryRejections(t *testing.T) {
	calls := 0
	_, err := executeWithRetry(context.Background(), fastRetry, func(ctx context.Context) (interface{}, error) {
		calls++
		return nil, stderrors.New("rpc error: code = NotFound desc = job not found")
	}, "complete-job")

	var stdErr *errors.StandardError
	require.True(t, stderrors.As(err, &stdErr))
	assert.Equal(t, errors.ErrCodeWorkflowCommandRejected, stdErr.Code)
	assert.False(t, stdErr.Retryable)
	assert.Equal(t, 1, calls)
}

func TestBackoff_Capped(t *testing.T) {
	cfg := &RetryConfig{BaseDelay: time.Second, MaxDelay: 5 * time.Second}
	assert.Equal(t, time.Second, backoff(cfg, 0))
	assert.Equal(t, 4*time.Second, backoff(cfg, 2))
	assert.Equal(t, 5*time.Second, backoff(cfg, 5))
}

type recordedJob struct {
	taskType string
	status   string
}

type fakeRecorder struct {
	processed []recordedJob
	durations int
}

func (f *fakeRecorder) RecordJobProcessed(_ context.Context, taskType, status string) {
	f.processed = append(f.processed, recordedJob{taskType, status})
}

func (f *fakeRecorder) RecordJobDuration(_ context.Context, _ string, _ time.Duration, _ string) {
	f.durations++
}

func TestInstrument_CallsHandler(t *testing.T) {
	var got int64
	rec := &fakeRecorder{}
	h := Instrument("validate-loan-application", JobHandlerFunc(func(client worker.JobClient, job entities.Job) {
		got = job.Key
	}), rec)
	h.Handle(nil, entities.Job{ActivatedJob: &pb.ActivatedJob{Key: 42}})

	assert.Equal(t, int64(42), got)
	assert.Equal(t, []recordedJob{{"validate-loan-application", StatusUnanswered}}, rec.processed)
	assert.Equal(t, 1, rec.durations)
}

func TestInstrument_NilRecorder(t *testing.T) {
	called := false
	h := Instrument("predict-loan-outcome", JobHandlerFunc(func(worker.JobClient, entities.Job) {
		called = true
	}), nil)
	h.Handle(nil, entities.Job{ActivatedJob: &pb.ActivatedJob{Key: 7}})
	assert.True(t, called)
}
