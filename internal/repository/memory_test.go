package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/printworks/api/internal/apperr"
	"github.com/printworks/api/internal/model"
)

func seedStages(t *testing.T, repo *MemoryStageRepository, stages ...*model.ProductionStage) {
	t.Helper()
	if err := repo.CreateBatch(context.Background(), stages); err != nil {
		t.Fatalf("CreateBatch failed: %v", err)
	}
}

func TestMemoryJobRepository_GetMissing(t *testing.T) {
	repo := NewMemoryJobRepository()
	_, err := repo.Get(context.Background(), "nope")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestMemoryJobRepository_UpdateReturnsClone(t *testing.T) {
	repo := NewMemoryJobRepository()
	ctx := context.Background()

	job := &model.ProductionJob{ID: "j1", JobNumber: "JOB-1", JobType: model.JobTypeFlyers}
	if err := repo.Create(ctx, job); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	got, err := repo.Get(ctx, "j1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	got.CompletionPercentage = 50

	// Mutating the returned copy must not leak into the store
	again, _ := repo.Get(ctx, "j1")
	if again.CompletionPercentage != 0 {
		t.Error("repository must hand out clones")
	}
}

func TestMemoryStageRepository_ListByJobOrdersByStageOrder(t *testing.T) {
	repo := NewMemoryStageRepository()
	seedStages(t, repo,
		&model.ProductionStage{ID: "s3", JobID: "j1", StageOrder: 3},
		&model.ProductionStage{ID: "s1", JobID: "j1", StageOrder: 1},
		&model.ProductionStage{ID: "s2", JobID: "j1", StageOrder: 2},
		&model.ProductionStage{ID: "other", JobID: "j2", StageOrder: 1},
	)

	stages, err := repo.ListByJob(context.Background(), "j1")
	if err != nil {
		t.Fatalf("ListByJob failed: %v", err)
	}
	if len(stages) != 3 {
		t.Fatalf("expected 3 stages, got %d", len(stages))
	}
	for i, stage := range stages {
		if stage.StageOrder != i+1 {
			t.Errorf("position %d has order %d", i, stage.StageOrder)
		}
	}
}

func TestMemoryStageRepository_GetByJobAndOrder(t *testing.T) {
	repo := NewMemoryStageRepository()
	seedStages(t, repo, &model.ProductionStage{ID: "s1", JobID: "j1", StageOrder: 1})

	stage, err := repo.GetByJobAndOrder(context.Background(), "j1", 1)
	if err != nil {
		t.Fatalf("GetByJobAndOrder failed: %v", err)
	}
	if stage.ID != "s1" {
		t.Errorf("expected s1, got %s", stage.ID)
	}

	if _, err := repo.GetByJobAndOrder(context.Background(), "j1", 2); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected not found for missing order, got %v", err)
	}
}

func TestMemoryStageRepository_UpdateIfStatus(t *testing.T) {
	repo := NewMemoryStageRepository()
	ctx := context.Background()
	seedStages(t, repo, &model.ProductionStage{
		ID: "s1", JobID: "j1", StageOrder: 1,
		StageStatus: model.StageStatusPending,
	})

	stage, _ := repo.Get(ctx, "s1")
	stage.StageStatus = model.StageStatusReady
	if err := repo.UpdateIfStatus(ctx, stage, model.StageStatusPending); err != nil {
		t.Fatalf("UpdateIfStatus with matching status failed: %v", err)
	}

	// Second guarded update against the stale expectation must conflict
	stale, _ := repo.Get(ctx, "s1")
	stale.StageStatus = model.StageStatusInProgress
	err := repo.UpdateIfStatus(ctx, stale, model.StageStatusPending)
	if !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}

	current, _ := repo.Get(ctx, "s1")
	if current.StageStatus != model.StageStatusReady {
		t.Errorf("conflicting update must not apply, got %s", current.StageStatus)
	}
}
