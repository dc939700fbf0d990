package service

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/hibiken/asynq"

	"github.com/printworks/api/internal/model"
)

const (
	TaskTypeStageChanged = "production:stage_changed"
	TaskTypeJobCompleted = "production:job_completed"
)

// Notifier dispatches workflow events to the notification boundary.
// Implementations are fire-and-forget: delivery problems are logged, never
// returned, so they cannot abort the transition that raised the event.
type Notifier interface {
	StageChanged(ctx context.Context, stage *model.ProductionStage)
	JobCompleted(ctx context.Context, job *model.ProductionJob)
}

// StageChangedPayload is the task payload for a stage transition event.
type StageChangedPayload struct {
	JobID   string `json:"jobId"`
	StageID string `json:"stageId"`
}

// JobCompletedPayload is the task payload for a job completion event.
type JobCompletedPayload struct {
	JobID string `json:"jobId"`
}

// AsynqNotifier enqueues notification tasks for deferred processing by the
// notification worker.
type AsynqNotifier struct {
	client *asynq.Client
}

func NewAsynqNotifier(client *asynq.Client) *AsynqNotifier {
	return &AsynqNotifier{client: client}
}

func (n *AsynqNotifier) StageChanged(ctx context.Context, stage *model.ProductionStage) {
	payload, err := json.Marshal(StageChangedPayload{JobID: stage.JobID, StageID: stage.ID})
	if err != nil {
		log.Printf("Warning: failed to marshal stage-changed payload: %v", err)
		return
	}
	n.enqueue(ctx, asynq.NewTask(TaskTypeStageChanged, payload))
}

func (n *AsynqNotifier) JobCompleted(ctx context.Context, job *model.ProductionJob) {
	payload, err := json.Marshal(JobCompletedPayload{JobID: job.ID})
	if err != nil {
		log.Printf("Warning: failed to marshal job-completed payload: %v", err)
		return
	}
	n.enqueue(ctx, asynq.NewTask(TaskTypeJobCompleted, payload))
}

func (n *AsynqNotifier) enqueue(ctx context.Context, task *asynq.Task) {
	_, err := n.client.EnqueueContext(ctx, task,
		asynq.Queue("notify"),
		asynq.MaxRetry(5),
		asynq.Retention(24*time.Hour),
	)
	if err != nil {
		log.Printf("Warning: failed to enqueue %s task: %v", task.Type(), err)
	}
}
