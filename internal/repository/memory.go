package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/printworks/api/internal/apperr"
	"github.com/printworks/api/internal/model"
)

// MemoryJobRepository is an in-memory JobRepository used in tests and for
// running the server without Redis.
type MemoryJobRepository struct {
	mu   sync.RWMutex
	jobs map[string]*model.ProductionJob
}

func NewMemoryJobRepository() *MemoryJobRepository {
	return &MemoryJobRepository{jobs: make(map[string]*model.ProductionJob)}
}

func (r *MemoryJobRepository) Create(ctx context.Context, job *model.ProductionJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	job.UpdatedAt = time.Now()
	r.jobs[job.ID] = cloneJob(job)
	return nil
}

func (r *MemoryJobRepository) Get(ctx context.Context, id string) (*model.ProductionJob, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	job, ok := r.jobs[id]
	if !ok {
		return nil, apperr.NotFoundf("job %s", id)
	}
	return cloneJob(job), nil
}

func (r *MemoryJobRepository) Update(ctx context.Context, job *model.ProductionJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.jobs[job.ID]; !ok {
		return apperr.NotFoundf("job %s", job.ID)
	}
	job.UpdatedAt = time.Now()
	r.jobs[job.ID] = cloneJob(job)
	return nil
}

// MemoryStageRepository is an in-memory StageRepository.
type MemoryStageRepository struct {
	mu     sync.RWMutex
	stages map[string]*model.ProductionStage
}

func NewMemoryStageRepository() *MemoryStageRepository {
	return &MemoryStageRepository{stages: make(map[string]*model.ProductionStage)}
}

func (r *MemoryStageRepository) CreateBatch(ctx context.Context, stages []*model.ProductionStage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, stage := range stages {
		stage.UpdatedAt = time.Now()
		r.stages[stage.ID] = cloneStage(stage)
	}
	return nil
}

func (r *MemoryStageRepository) Get(ctx context.Context, id string) (*model.ProductionStage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	stage, ok := r.stages[id]
	if !ok {
		return nil, apperr.NotFoundf("stage %s", id)
	}
	return cloneStage(stage), nil
}

func (r *MemoryStageRepository) ListByJob(ctx context.Context, jobID string) ([]*model.ProductionStage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*model.ProductionStage
	for _, stage := range r.stages {
		if stage.JobID == jobID {
			out = append(out, cloneStage(stage))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StageOrder < out[j].StageOrder })
	return out, nil
}

func (r *MemoryStageRepository) GetByJobAndOrder(ctx context.Context, jobID string, order int) (*model.ProductionStage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, stage := range r.stages {
		if stage.JobID == jobID && stage.StageOrder == order {
			return cloneStage(stage), nil
		}
	}
	return nil, apperr.NotFoundf("stage order %d for job %s", order, jobID)
}

func (r *MemoryStageRepository) Update(ctx context.Context, stage *model.ProductionStage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.stages[stage.ID]; !ok {
		return apperr.NotFoundf("stage %s", stage.ID)
	}
	stage.UpdatedAt = time.Now()
	r.stages[stage.ID] = cloneStage(stage)
	return nil
}

func (r *MemoryStageRepository) UpdateIfStatus(ctx context.Context, stage *model.ProductionStage, expect model.StageStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.stages[stage.ID]
	if !ok {
		return apperr.NotFoundf("stage %s", stage.ID)
	}
	if current.StageStatus != expect {
		return apperr.ErrConflict
	}
	stage.UpdatedAt = time.Now()
	r.stages[stage.ID] = cloneStage(stage)
	return nil
}

func cloneJob(j *model.ProductionJob) *model.ProductionJob {
	out := *j
	out.StartedAt = cloneTime(j.StartedAt)
	out.ActualCompletion = cloneTime(j.ActualCompletion)
	return &out
}

func cloneStage(s *model.ProductionStage) *model.ProductionStage {
	out := *s
	out.StartedAt = cloneTime(s.StartedAt)
	out.CompletedAt = cloneTime(s.CompletedAt)
	out.CustomerApprovedAt = cloneTime(s.CustomerApprovedAt)
	if s.ActualDuration != nil {
		d := *s.ActualDuration
		out.ActualDuration = &d
	}
	if s.RejectionReason != nil {
		reason := *s.RejectionReason
		out.RejectionReason = &reason
	}
	if s.StageData != nil {
		data := make(map[string]interface{}, len(s.StageData))
		for k, v := range s.StageData {
			data[k] = v
		}
		out.StageData = data
	}
	return &out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	out := *t
	return &out
}
