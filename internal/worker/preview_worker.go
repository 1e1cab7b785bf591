package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/hibiken/asynq"
	"github.com/myadbox/thumbnailer/internal/model"
	"github.com/myadbox/thumbnailer/internal/pipeline"
	"github.com/myadbox/thumbnailer/internal/service"
	"github.com/myadbox/thumbnailer/internal/websocket"
)

// PreviewWorker processes preview jobs
type PreviewWorker struct {
	previewService *service.PreviewService
	pipeline       *pipeline.Pipeline
	hub            *websocket.Hub
}

// NewPreviewWorker creates a new preview worker
func NewPreviewWorker(previewService *service.PreviewService, p *pipeline.Pipeline, hub *websocket.Hub) *PreviewWorker {
	return &PreviewWorker{
		previewService: previewService,
		pipeline:       p,
		hub:            hub,
	}
}

// ProcessTask handles one asset end to end. A fatal pipeline error is
// returned to asynq so its retry policy applies; per-profile omissions
// are already handled inside the pipeline and never fail the task.
func (w *PreviewWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var taskPayload struct {
		JobID   string          `json:"jobId"`
		Payload json.RawMessage `json:"payload"`
	}

	if err := json.Unmarshal(t.Payload(), &taskPayload); err != nil {
		return fmt.Errorf("failed to unmarshal task payload: %w", err)
	}

	jobID := taskPayload.JobID
	log.Printf("Starting preview job: %s", jobID)

	var payload model.PreviewJobPayload
	if err := json.Unmarshal(taskPayload.Payload, &payload); err != nil {
		w.failJob(ctx, jobID, "Invalid payload")
		return fmt.Errorf("failed to unmarshal preview payload: %w", err)
	}

	w.updateProgress(ctx, jobID, 10, fmt.Sprintf("Fetching %s...", payload.Key))

	result, err := w.pipeline.Process(ctx, jobID, &payload)
	if err != nil {
		w.failJob(ctx, jobID, err.Error())
		return err
	}

	w.updateProgress(ctx, jobID, 95, "Finalizing...")

	if err := w.previewService.CompleteJob(ctx, jobID, result); err != nil {
		w.failJob(ctx, jobID, "Failed to save result")
		return err
	}

	w.hub.BroadcastComplete(jobID, result)
	log.Printf("Preview job %s completed: %d of %d profiles derived",
		jobID, len(result.Previews), len(result.Previews)+len(result.Omitted))
	return nil
}

func (w *PreviewWorker) updateProgress(ctx context.Context, jobID string, progress int, step string) {
	if err := w.previewService.UpdateJobProgress(ctx, jobID, progress, step); err != nil {
		log.Printf("Failed to update progress: %v", err)
	}
	w.hub.BroadcastProgress(jobID, progress, model.JobStatusRunning, step)
}

func (w *PreviewWorker) failJob(ctx context.Context, jobID, errMsg string) {
	if err := w.previewService.FailJob(ctx, jobID, errMsg); err != nil {
		log.Printf("Failed to mark job as failed: %v", err)
	}
	w.hub.BroadcastError(jobID, "PREVIEW_FAILED", errMsg)
}
