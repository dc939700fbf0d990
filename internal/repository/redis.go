package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/printworks/api/internal/apperr"
	"github.com/printworks/api/internal/model"
)

const (
	jobKeyFmt        = "prodjob:%s"
	stageKeyFmt      = "prodstage:%s"
	jobStagesKeyFmt  = "prodjob:%s:stages"
	maxConflictTries = 3
)

// RedisJobRepository stores jobs as JSON documents in Redis.
type RedisJobRepository struct {
	redis *redis.Client
}

func NewRedisJobRepository(client *redis.Client) *RedisJobRepository {
	return &RedisJobRepository{redis: client}
}

func (r *RedisJobRepository) Create(ctx context.Context, job *model.ProductionJob) error {
	return r.save(ctx, job)
}

func (r *RedisJobRepository) Get(ctx context.Context, id string) (*model.ProductionJob, error) {
	data, err := r.redis.Get(ctx, fmt.Sprintf(jobKeyFmt, id)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, apperr.NotFoundf("job %s", id)
		}
		return nil, err
	}

	var job model.ProductionJob
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

func (r *RedisJobRepository) Update(ctx context.Context, job *model.ProductionJob) error {
	return r.save(ctx, job)
}

func (r *RedisJobRepository) save(ctx context.Context, job *model.ProductionJob) error {
	job.UpdatedAt = time.Now()
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return r.redis.Set(ctx, fmt.Sprintf(jobKeyFmt, job.ID), data, 0).Err()
}

// RedisStageRepository stores stages as JSON documents plus a per-job list
// of stage IDs in creation (stage_order) order.
type RedisStageRepository struct {
	redis *redis.Client
}

func NewRedisStageRepository(client *redis.Client) *RedisStageRepository {
	return &RedisStageRepository{redis: client}
}

func (r *RedisStageRepository) CreateBatch(ctx context.Context, stages []*model.ProductionStage) error {
	if len(stages) == 0 {
		return nil
	}
	pipe := r.redis.TxPipeline()
	for _, stage := range stages {
		stage.UpdatedAt = time.Now()
		data, err := json.Marshal(stage)
		if err != nil {
			return err
		}
		pipe.Set(ctx, fmt.Sprintf(stageKeyFmt, stage.ID), data, 0)
		pipe.RPush(ctx, fmt.Sprintf(jobStagesKeyFmt, stage.JobID), stage.ID)
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (r *RedisStageRepository) Get(ctx context.Context, id string) (*model.ProductionStage, error) {
	data, err := r.redis.Get(ctx, fmt.Sprintf(stageKeyFmt, id)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, apperr.NotFoundf("stage %s", id)
		}
		return nil, err
	}

	var stage model.ProductionStage
	if err := json.Unmarshal(data, &stage); err != nil {
		return nil, err
	}
	return &stage, nil
}

func (r *RedisStageRepository) ListByJob(ctx context.Context, jobID string) ([]*model.ProductionStage, error) {
	ids, err := r.redis.LRange(ctx, fmt.Sprintf(jobStagesKeyFmt, jobID), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = fmt.Sprintf(stageKeyFmt, id)
	}
	values, err := r.redis.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	stages := make([]*model.ProductionStage, 0, len(values))
	for _, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var stage model.ProductionStage
		if err := json.Unmarshal([]byte(raw), &stage); err != nil {
			return nil, err
		}
		stages = append(stages, &stage)
	}

	sort.Slice(stages, func(i, j int) bool {
		return stages[i].StageOrder < stages[j].StageOrder
	})
	return stages, nil
}

func (r *RedisStageRepository) GetByJobAndOrder(ctx context.Context, jobID string, order int) (*model.ProductionStage, error) {
	stages, err := r.ListByJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	for _, stage := range stages {
		if stage.StageOrder == order {
			return stage, nil
		}
	}
	return nil, apperr.NotFoundf("stage order %d for job %s", order, jobID)
}

func (r *RedisStageRepository) Update(ctx context.Context, stage *model.ProductionStage) error {
	stage.UpdatedAt = time.Now()
	data, err := json.Marshal(stage)
	if err != nil {
		return err
	}
	return r.redis.Set(ctx, fmt.Sprintf(stageKeyFmt, stage.ID), data, 0).Err()
}

func (r *RedisStageRepository) UpdateIfStatus(ctx context.Context, stage *model.ProductionStage, expect model.StageStatus) error {
	key := fmt.Sprintf(stageKeyFmt, stage.ID)

	txn := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if err == redis.Nil {
				return apperr.NotFoundf("stage %s", stage.ID)
			}
			return err
		}

		var current model.ProductionStage
		if err := json.Unmarshal(data, &current); err != nil {
			return err
		}
		if current.StageStatus != expect {
			return fmt.Errorf("stage %s is %s, expected %s: %w",
				stage.ID, current.StageStatus, expect, apperr.ErrConflict)
		}

		stage.UpdatedAt = time.Now()
		payload, err := json.Marshal(stage)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, 0)
			return nil
		})
		return err
	}

	// WATCH aborts the pipeline when the key changed underneath us; retry a
	// few times before surfacing the race as a conflict.
	for i := 0; i < maxConflictTries; i++ {
		err := r.redis.Watch(ctx, txn, key)
		if err != redis.TxFailedErr {
			return err
		}
	}
	return fmt.Errorf("stage %s kept changing concurrently: %w", stage.ID, apperr.ErrConflict)
}
