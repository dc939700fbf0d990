package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/hibiken/asynq"

	"github.com/printworks/api/internal/client"
	"github.com/printworks/api/internal/model"
	"github.com/printworks/api/internal/repository"
	"github.com/printworks/api/internal/service"
	"github.com/printworks/api/internal/websocket"
)

// NotifyWorker processes deferred workflow notifications: it fans stage
// transitions and job completions out to the dashboard hub and, when
// configured, an external webhook receiver.
type NotifyWorker struct {
	jobs    repository.JobRepository
	stages  repository.StageRepository
	hub     *websocket.Hub
	webhook client.EventSender
}

// NewNotifyWorker creates a new notification worker. webhook may be nil
// when no receiver is configured.
func NewNotifyWorker(jobs repository.JobRepository, stages repository.StageRepository, hub *websocket.Hub, webhook client.EventSender) *NotifyWorker {
	return &NotifyWorker{
		jobs:    jobs,
		stages:  stages,
		hub:     hub,
		webhook: webhook,
	}
}

// ProcessStageChanged handles production:stage_changed tasks.
func (w *NotifyWorker) ProcessStageChanged(ctx context.Context, t *asynq.Task) error {
	var payload service.StageChangedPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal stage-changed payload: %w", err)
	}

	stage, err := w.stages.Get(ctx, payload.StageID)
	if err != nil {
		return fmt.Errorf("failed to load stage %s: %w", payload.StageID, err)
	}

	pct := 0
	if job, err := w.jobs.Get(ctx, payload.JobID); err == nil {
		pct = job.CompletionPercentage
	} else {
		log.Printf("Warning: failed to load job %s for stage notification: %v", payload.JobID, err)
	}

	resp := model.NewStageResponse(stage, time.Now())
	w.hub.BroadcastStage(stage.JobID, resp, pct)

	if w.webhook != nil && w.webhook.IsConfigured() {
		if err := w.webhook.Send(ctx, "stage.changed", resp); err != nil {
			// Returned so asynq retries delivery
			return fmt.Errorf("webhook delivery failed: %w", err)
		}
	}

	log.Printf("Notified stage %s of job %s (%s)", stage.ID, stage.JobID, stage.StageStatus)
	return nil
}

// ProcessJobCompleted handles production:job_completed tasks.
func (w *NotifyWorker) ProcessJobCompleted(ctx context.Context, t *asynq.Task) error {
	var payload service.JobCompletedPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal job-completed payload: %w", err)
	}

	job, err := w.jobs.Get(ctx, payload.JobID)
	if err != nil {
		return fmt.Errorf("failed to load job %s: %w", payload.JobID, err)
	}

	resp := model.NewJobResponse(job)
	w.hub.BroadcastJobCompleted(resp)

	if w.webhook != nil && w.webhook.IsConfigured() {
		if err := w.webhook.Send(ctx, "job.completed", resp); err != nil {
			return fmt.Errorf("webhook delivery failed: %w", err)
		}
	}

	log.Printf("Notified completion of job %s", job.ID)
	return nil
}
