// Package repository persists production jobs and stages. The workflow
// engine only depends on these interfaces; the storage engine behind them
// is interchangeable.
package repository

import (
	"context"

	"github.com/printworks/api/internal/model"
)

// JobRepository stores production job aggregates.
type JobRepository interface {
	Create(ctx context.Context, job *model.ProductionJob) error
	Get(ctx context.Context, id string) (*model.ProductionJob, error)
	Update(ctx context.Context, job *model.ProductionJob) error
}

// StageRepository stores production stages. Stages are created in one batch
// per job and never deleted; ListByJob returns them ordered by StageOrder.
type StageRepository interface {
	CreateBatch(ctx context.Context, stages []*model.ProductionStage) error
	Get(ctx context.Context, id string) (*model.ProductionStage, error)
	ListByJob(ctx context.Context, jobID string) ([]*model.ProductionStage, error)
	GetByJobAndOrder(ctx context.Context, jobID string, order int) (*model.ProductionStage, error)
	Update(ctx context.Context, stage *model.ProductionStage) error
	// UpdateIfStatus writes the stage only if its stored status still equals
	// expect. Returns apperr.ErrConflict when a concurrent writer got there
	// first. This is the guard advance() relies on.
	UpdateIfStatus(ctx context.Context, stage *model.ProductionStage, expect model.StageStatus) error
}
