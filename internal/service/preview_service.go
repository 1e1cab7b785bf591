package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/myadbox/thumbnailer/internal/model"
	"github.com/redis/go-redis/v9"
)

const (
	TaskTypePreview = "preview:process"
	QueuePreviews   = "previews"
)

// TaskEnqueuer is the slice of asynq.Client the service needs; narrowed
// so tests can enqueue into a fake.
type TaskEnqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// PreviewService handles preview job management
type PreviewService struct {
	redis    *redis.Client
	enqueuer TaskEnqueuer
}

func NewPreviewService(redisClient *redis.Client, enqueuer TaskEnqueuer) *PreviewService {
	return &PreviewService{
		redis:    redisClient,
		enqueuer: enqueuer,
	}
}

// StartPreview queues a new preview job for one asset
func (s *PreviewService) StartPreview(ctx context.Context, req *model.PreviewStartRequest) (*model.PreviewStartResponse, error) {
	jobID := uuid.New().String()
	now := time.Now()

	job := &model.Job{
		ID:        jobID,
		Type:      model.JobTypePreview,
		Status:    model.JobStatusQueued,
		Progress:  0,
		CreatedAt: now,
	}

	payload := &model.PreviewJobPayload{
		Bucket:   req.Bucket,
		Key:      req.Key,
		Profiles: req.Profiles,
		Queue:    req.Queue,
		Brand:    req.Brand,
		AssetID:  req.AssetID,
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	job.Payload = payloadBytes

	if err := s.saveJob(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to save job: %w", err)
	}

	task, err := newPreviewTask(jobID, payloadBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	_, err = s.enqueuer.Enqueue(task,
		asynq.Queue(QueuePreviews),
		asynq.MaxRetry(3),
		asynq.Retention(24*time.Hour),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to enqueue task: %w", err)
	}

	return &model.PreviewStartResponse{
		JobID:     jobID,
		Status:    model.JobStatusQueued,
		CreatedAt: now,
	}, nil
}

// GetStatus returns the current status of a preview job
func (s *PreviewService) GetStatus(ctx context.Context, jobID string) (*model.PreviewStatusResponse, error) {
	job, err := s.getJob(ctx, jobID)
	if err != nil {
		return nil, err
	}

	return &model.PreviewStatusResponse{
		JobID:       job.ID,
		Status:      job.Status,
		Progress:    job.Progress,
		CurrentStep: job.CurrentStep,
		Error:       job.Error,
		CreatedAt:   job.CreatedAt,
		StartedAt:   job.StartedAt,
		CompletedAt: job.CompletedAt,
		RetryCount:  job.RetryCount,
	}, nil
}

// GetResult returns the aggregated result of a completed preview job as
// it was published to the destination queue.
func (s *PreviewService) GetResult(ctx context.Context, jobID string) (json.RawMessage, error) {
	job, err := s.getJob(ctx, jobID)
	if err != nil {
		return nil, err
	}

	if job.Status != model.JobStatusSucceeded {
		return nil, fmt.Errorf("job not completed")
	}
	return json.RawMessage(job.Result), nil
}

// CancelPreview cancels a queued preview job. A job already picked up by
// a worker runs to completion; cancellation only marks the record.
func (s *PreviewService) CancelPreview(ctx context.Context, jobID string) (*model.PreviewCancelResponse, error) {
	job, err := s.getJob(ctx, jobID)
	if err != nil {
		return nil, err
	}

	if job.Status == model.JobStatusSucceeded || job.Status == model.JobStatusFailed {
		return nil, fmt.Errorf("job already completed")
	}

	job.Status = model.JobStatusCanceled
	now := time.Now()
	job.CompletedAt = &now

	if err := s.saveJob(ctx, job); err != nil {
		return nil, err
	}

	return &model.PreviewCancelResponse{
		Success: true,
		JobID:   jobID,
		Status:  model.JobStatusCanceled,
	}, nil
}

// UpdateJobProgress updates job progress (called by worker)
func (s *PreviewService) UpdateJobProgress(ctx context.Context, jobID string, progress int, step string) error {
	job, err := s.getJob(ctx, jobID)
	if err != nil {
		return err
	}

	job.Progress = progress
	job.CurrentStep = step

	if job.Status == model.JobStatusQueued {
		job.Status = model.JobStatusRunning
		now := time.Now()
		job.StartedAt = &now
	}

	return s.saveJob(ctx, job)
}

// CompleteJob marks job as completed (called by worker)
func (s *PreviewService) CompleteJob(ctx context.Context, jobID string, result interface{}) error {
	job, err := s.getJob(ctx, jobID)
	if err != nil {
		return err
	}

	resultBytes, err := json.Marshal(result)
	if err != nil {
		return err
	}

	job.Status = model.JobStatusSucceeded
	job.Progress = 100
	job.Result = resultBytes
	now := time.Now()
	job.CompletedAt = &now

	return s.saveJob(ctx, job)
}

// FailJob marks job as failed (called by worker)
func (s *PreviewService) FailJob(ctx context.Context, jobID string, errMsg string) error {
	job, err := s.getJob(ctx, jobID)
	if err != nil {
		return err
	}

	job.Status = model.JobStatusFailed
	job.Error = &errMsg
	now := time.Now()
	job.CompletedAt = &now

	return s.saveJob(ctx, job)
}

// Helper methods

func (s *PreviewService) saveJob(ctx context.Context, job *model.Job) error {
	data, err := json.Marshal(jobRecord{Job: job, Payload: job.Payload, Result: job.Result})
	if err != nil {
		return err
	}
	return s.redis.Set(ctx, fmt.Sprintf("job:%s", job.ID), data, 24*time.Hour).Err()
}

func (s *PreviewService) getJob(ctx context.Context, jobID string) (*model.Job, error) {
	data, err := s.redis.Get(ctx, fmt.Sprintf("job:%s", jobID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, fmt.Errorf("job not found")
		}
		return nil, err
	}

	var rec jobRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	job := rec.Job
	job.Payload = rec.Payload
	job.Result = rec.Result
	return job, nil
}

// jobRecord carries the payload and result blobs alongside the public
// job fields, which exclude them from API responses.
type jobRecord struct {
	*model.Job
	Payload []byte `json:"payload,omitempty"`
	Result  []byte `json:"result,omitempty"`
}

func newPreviewTask(jobID string, payload []byte) (*asynq.Task, error) {
	taskPayload := map[string]interface{}{
		"jobId":   jobID,
		"payload": payload,
	}
	data, err := json.Marshal(taskPayload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypePreview, data), nil
}
