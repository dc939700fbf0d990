package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/printworks/api/internal/apperr"
	"github.com/printworks/api/internal/model"
	"github.com/printworks/api/internal/repository"
)

// WorkflowService is the stage sequencer: it validates and applies stage
// transitions and decides the entry status of a successor stage. Every
// operation takes an explicit actor ID; there is no ambient identity.
//
// Failure policy: the acting stage's own transition is strict and returned
// to the caller. Advancement, completion tracking and notification are
// best-effort side effects that are logged but never abort a transition
// that already committed.
type WorkflowService struct {
	jobs     repository.JobRepository
	stages   repository.StageRepository
	tracker  *CompletionTracker
	notifier Notifier
}

func NewWorkflowService(jobs repository.JobRepository, stages repository.StageRepository, tracker *CompletionTracker, notifier Notifier) *WorkflowService {
	return &WorkflowService{
		jobs:     jobs,
		stages:   stages,
		tracker:  tracker,
		notifier: notifier,
	}
}

// CreateJob registers a print job for production tracking. Stages are not
// provisioned here; that happens when production starts.
func (s *WorkflowService) CreateJob(ctx context.Context, req *model.CreateJobRequest, actorID string) (*model.ProductionJob, error) {
	now := time.Now()
	job := &model.ProductionJob{
		ID:               uuid.New().String(),
		JobNumber:        req.JobNumber,
		BranchID:         req.BranchID,
		JobType:          req.JobType,
		ProductionStatus: model.ProductionStatusPending,
		CreatedAt:        now,
	}
	if err := s.jobs.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}
	return job, nil
}

// GetJob returns a job by ID.
func (s *WorkflowService) GetJob(ctx context.Context, jobID string) (*model.ProductionJob, error) {
	return s.jobs.Get(ctx, jobID)
}

// ListStages returns a job's stages ordered by stage order.
func (s *WorkflowService) ListStages(ctx context.Context, jobID string) ([]*model.ProductionStage, error) {
	if _, err := s.jobs.Get(ctx, jobID); err != nil {
		return nil, err
	}
	return s.stages.ListByJob(ctx, jobID)
}

// StartProduction moves a job into production: provisions the default stage
// pipeline if the job has no stages yet and makes the first stage
// actionable.
func (s *WorkflowService) StartProduction(ctx context.Context, jobID, actorID string) (*model.ProductionJob, []*model.ProductionStage, error) {
	job, err := s.jobs.Get(ctx, jobID)
	if err != nil {
		return nil, nil, err
	}
	if job.ProductionStatus == model.ProductionStatusCompleted || job.ProductionStatus == model.ProductionStatusCancelled {
		return nil, nil, apperr.InvalidStatef("job %s is %s", job.JobNumber, job.ProductionStatus)
	}

	stages, err := s.stages.ListByJob(ctx, jobID)
	if err != nil {
		return nil, nil, err
	}

	now := time.Now()
	if len(stages) == 0 {
		stages = s.tracker.BuildDefaultStages(job, now)
		first := stages[0]
		first.StageStatus = first.EntryStatus()
		first.UpdatedBy = actorID
		first.AppendNote(actorID, "production started", now)
		if err := s.stages.CreateBatch(ctx, stages); err != nil {
			return nil, nil, fmt.Errorf("failed to provision stages: %w", err)
		}
	} else if first := stages[0]; first.StageStatus == model.StageStatusPending {
		prior := first.StageStatus
		first.StageStatus = first.EntryStatus()
		first.UpdatedBy = actorID
		first.AppendNote(actorID, "production started", now)
		if err := s.stages.UpdateIfStatus(ctx, first, prior); err != nil {
			if errors.Is(err, apperr.ErrConflict) {
				log.Printf("Warning: first stage of job %s already acted on", jobID)
			} else {
				return nil, nil, err
			}
		}
	}

	job.ProductionStatus = model.ProductionStatusInProgress
	if job.StartedAt == nil {
		job.StartedAt = &now
	}
	if err := s.jobs.Update(ctx, job); err != nil {
		return nil, nil, fmt.Errorf("failed to update job: %w", err)
	}

	s.notifyStage(ctx, stages[0])
	return job, stages, nil
}

// StartStage begins work on a reachable stage.
func (s *WorkflowService) StartStage(ctx context.Context, stageID, actorID, notes string) (*model.ProductionStage, error) {
	stage, err := s.stages.Get(ctx, stageID)
	if err != nil {
		return nil, err
	}

	prior := stage.StageStatus
	if prior != model.StageStatusPending && prior != model.StageStatusReady {
		return nil, apperr.InvalidStatef("cannot start stage in %s status", prior)
	}

	now := time.Now()
	stage.StageStatus = model.StageStatusInProgress
	stage.StartedAt = &now
	stage.UpdatedBy = actorID
	stage.AppendNote(actorID, fallbackNote(notes, "stage started"), now)

	if err := s.stages.UpdateIfStatus(ctx, stage, prior); err != nil {
		return nil, err
	}

	s.notifyStage(ctx, stage)
	return stage, nil
}

// CompleteStage finishes a stage and triggers advancement of its successor
// plus the job-level completion check.
func (s *WorkflowService) CompleteStage(ctx context.Context, stageID, actorID, notes string, stageData map[string]interface{}) (*model.ProductionStage, error) {
	stage, err := s.stages.Get(ctx, stageID)
	if err != nil {
		return nil, err
	}

	prior := stage.StageStatus
	if prior != model.StageStatusInProgress && prior != model.StageStatusRequiresApproval {
		return nil, apperr.InvalidStatef("cannot complete stage in %s status", prior)
	}

	now := time.Now()
	if stage.StartedAt != nil {
		minutes := int(now.Sub(*stage.StartedAt).Minutes())
		stage.ActualDuration = &minutes
	}
	stage.StageStatus = model.StageStatusCompleted
	stage.CompletedAt = &now
	stage.UpdatedBy = actorID
	stage.MergeStageData(stageData)
	stage.AppendNote(actorID, fallbackNote(notes, "stage completed"), now)

	if err := s.stages.UpdateIfStatus(ctx, stage, prior); err != nil {
		return nil, err
	}

	s.advance(ctx, stage, actorID)
	s.checkCompletion(ctx, stage.JobID)
	s.notifyStage(ctx, stage)
	return stage, nil
}

// ApproveStage records an approval decision on an approval-gated stage.
func (s *WorkflowService) ApproveStage(ctx context.Context, stageID, actorID, notes string) (*model.ProductionStage, error) {
	stage, err := s.stages.Get(ctx, stageID)
	if err != nil {
		return nil, err
	}

	prior := stage.StageStatus
	if prior != model.StageStatusRequiresApproval {
		return nil, apperr.InvalidStatef("cannot approve stage in %s status", prior)
	}

	now := time.Now()
	if stage.StartedAt != nil {
		minutes := int(now.Sub(*stage.StartedAt).Minutes())
		stage.ActualDuration = &minutes
	}
	stage.StageStatus = model.StageStatusCompleted
	stage.CompletedAt = &now
	stage.ApprovedBy = actorID
	stage.UpdatedBy = actorID
	if stage.RequiresCustomerApproval {
		stage.CustomerApprovedAt = &now
	}
	stage.AppendNote(actorID, fallbackNote(notes, "stage approved"), now)

	if err := s.stages.UpdateIfStatus(ctx, stage, prior); err != nil {
		return nil, err
	}

	s.advance(ctx, stage, actorID)
	s.checkCompletion(ctx, stage.JobID)
	s.notifyStage(ctx, stage)
	return stage, nil
}

// RejectStage marks a stage as rejected. The pipeline does not
// auto-continue past a rejection; resolution is an operator concern.
func (s *WorkflowService) RejectStage(ctx context.Context, stageID, actorID, reason string) (*model.ProductionStage, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, apperr.Validationf("rejection reason is required")
	}

	stage, err := s.stages.Get(ctx, stageID)
	if err != nil {
		return nil, err
	}

	prior := stage.StageStatus
	if prior != model.StageStatusInProgress && prior != model.StageStatusRequiresApproval {
		return nil, apperr.InvalidStatef("cannot reject stage in %s status", prior)
	}

	now := time.Now()
	stage.StageStatus = model.StageStatusRejected
	stage.RejectionReason = &reason
	stage.UpdatedBy = actorID
	stage.AppendNote(actorID, "rejected: "+reason, now)

	if err := s.stages.UpdateIfStatus(ctx, stage, prior); err != nil {
		return nil, err
	}

	s.notifyStage(ctx, stage)
	return stage, nil
}

// HoldStage pauses a stage. Ready stages are hold-eligible alongside
// pending and in-progress ones.
func (s *WorkflowService) HoldStage(ctx context.Context, stageID, actorID, reason string) (*model.ProductionStage, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, apperr.Validationf("hold reason is required")
	}

	stage, err := s.stages.Get(ctx, stageID)
	if err != nil {
		return nil, err
	}

	prior := stage.StageStatus
	if prior != model.StageStatusPending && prior != model.StageStatusReady && prior != model.StageStatusInProgress {
		return nil, apperr.InvalidStatef("cannot hold stage in %s status", prior)
	}

	now := time.Now()
	stage.StageStatus = model.StageStatusOnHold
	stage.UpdatedBy = actorID
	stage.AppendNote(actorID, "placed on hold: "+reason, now)

	if err := s.stages.UpdateIfStatus(ctx, stage, prior); err != nil {
		return nil, err
	}

	s.notifyStage(ctx, stage)
	return stage, nil
}

// ResumeStage lifts a hold. A stage that had already been started returns
// to in_progress; one that never started goes back to pending.
func (s *WorkflowService) ResumeStage(ctx context.Context, stageID, actorID, notes string) (*model.ProductionStage, error) {
	stage, err := s.stages.Get(ctx, stageID)
	if err != nil {
		return nil, err
	}

	prior := stage.StageStatus
	if prior != model.StageStatusOnHold {
		return nil, apperr.InvalidStatef("cannot resume stage in %s status", prior)
	}

	now := time.Now()
	if stage.StartedAt != nil {
		stage.StageStatus = model.StageStatusInProgress
	} else {
		stage.StageStatus = model.StageStatusPending
	}
	stage.UpdatedBy = actorID
	stage.AppendNote(actorID, fallbackNote(notes, "stage resumed"), now)

	if err := s.stages.UpdateIfStatus(ctx, stage, prior); err != nil {
		return nil, err
	}

	s.notifyStage(ctx, stage)
	return stage, nil
}

// advance promotes the next pending stage after a completion. Best-effort:
// failures here are logged, never surfaced, so a committed completion is
// not lost to a bookkeeping error. The conditional write keeps two
// concurrent completions from both advancing the same successor.
func (s *WorkflowService) advance(ctx context.Context, completed *model.ProductionStage, actorID string) {
	next, err := s.stages.GetByJobAndOrder(ctx, completed.JobID, completed.StageOrder+1)
	if err != nil {
		if !errors.Is(err, apperr.ErrNotFound) {
			log.Printf("Warning: advance lookup failed for job %s after stage %d: %v",
				completed.JobID, completed.StageOrder, err)
		}
		return
	}
	if next.StageStatus != model.StageStatusPending {
		return
	}

	now := time.Now()
	next.StageStatus = next.EntryStatus()
	next.UpdatedBy = actorID
	next.AppendNote(actorID, fmt.Sprintf("auto-advanced after %s", completed.StageName), now)

	if err := s.stages.UpdateIfStatus(ctx, next, model.StageStatusPending); err != nil {
		if errors.Is(err, apperr.ErrConflict) {
			log.Printf("Warning: stage %s already acted on, skipping advance", next.ID)
		} else {
			log.Printf("Warning: failed to advance stage %s: %v", next.ID, err)
		}
		return
	}

	s.notifyStage(ctx, next)
}

// checkCompletion recomputes the job aggregate. Best-effort: a failed
// recompute must not abort the stage transition that triggered it.
func (s *WorkflowService) checkCompletion(ctx context.Context, jobID string) {
	if err := s.tracker.CheckCompletion(ctx, jobID); err != nil {
		log.Printf("Warning: completion tracking failed for job %s: %v", jobID, err)
	}
}

func (s *WorkflowService) notifyStage(ctx context.Context, stage *model.ProductionStage) {
	if s.notifier != nil {
		s.notifier.StageChanged(ctx, stage)
	}
}

func fallbackNote(notes, def string) string {
	if strings.TrimSpace(notes) == "" {
		return def
	}
	return notes
}
