package service

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/printworks/api/internal/model"
	"github.com/printworks/api/internal/repository"
)

// CompletionTracker observes stage transitions, keeps a job's
// completion percentage in sync and closes the job out exactly when every
// stage reaches completed. It also builds the default stage pipeline for
// jobs provisioned without stages.
type CompletionTracker struct {
	jobs     repository.JobRepository
	stages   repository.StageRepository
	notifier Notifier
}

func NewCompletionTracker(jobs repository.JobRepository, stages repository.StageRepository, notifier Notifier) *CompletionTracker {
	return &CompletionTracker{
		jobs:     jobs,
		stages:   stages,
		notifier: notifier,
	}
}

// BuildDefaultStages instantiates the job type's template as pending
// stages numbered 1..N. The returned stages are not yet persisted.
func (t *CompletionTracker) BuildDefaultStages(job *model.ProductionJob, now time.Time) []*model.ProductionStage {
	tpl := model.StageTemplateFor(job.JobType)
	stages := make([]*model.ProductionStage, 0, len(tpl))
	for i, entry := range tpl {
		stages = append(stages, &model.ProductionStage{
			ID:                       uuid.New().String(),
			JobID:                    job.ID,
			StageOrder:               i + 1,
			StageName:                entry.Name,
			StageStatus:              model.StageStatusPending,
			RequiresCustomerApproval: entry.RequiresCustomerApproval,
			EstimatedDuration:        entry.EstimatedDuration,
			CreatedAt:                now,
		})
	}
	return stages
}

// CheckCompletion recomputes a job's completion percentage and flips it to
// completed when all stages are done. Safe to call repeatedly: a second
// call after the same completion event leaves the job unchanged, and the
// completion timestamp is only ever written once.
func (t *CompletionTracker) CheckCompletion(ctx context.Context, jobID string) error {
	job, err := t.jobs.Get(ctx, jobID)
	if err != nil {
		return err
	}
	stages, err := t.stages.ListByJob(ctx, jobID)
	if err != nil {
		return err
	}

	total := len(stages)
	completed := 0
	for _, stage := range stages {
		if stage.StageStatus == model.StageStatusCompleted {
			completed++
		}
	}

	if total > 0 && completed == total {
		alreadyCompleted := job.ProductionStatus == model.ProductionStatusCompleted
		job.CompletionPercentage = 100
		job.ProductionStatus = model.ProductionStatusCompleted
		if job.ActualCompletion == nil {
			now := time.Now()
			job.ActualCompletion = &now
		}
		if err := t.jobs.Update(ctx, job); err != nil {
			return err
		}
		if !alreadyCompleted && t.notifier != nil {
			t.notifier.JobCompleted(ctx, job)
		}
		return nil
	}

	pct := completionPercentage(completed, total)
	if pct == job.CompletionPercentage {
		return nil
	}
	job.CompletionPercentage = pct
	return t.jobs.Update(ctx, job)
}

func completionPercentage(completed, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(completed) / float64(total) * 100))
}
