package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	rd "github.com/go-redis/redis/v9"
	"github.com/mohitkumar/tokenflow/logger"
	"github.com/mohitkumar/tokenflow/model"
	"github.com/mohitkumar/tokenflow/persistence"
	"github.com/mohitkumar/tokenflow/util"
	"go.uber.org/zap"
)

const JOB_KEY string = "JOB"
const JOB_DUE_KEY string = "JOB_DUE"
const JOB_DEAD_KEY string = "JOB_DEAD"

var _ persistence.JobStore = new(redisJobStore)

// redisJobStore keeps encoded jobs in a hash and indexes pending ones in a
// sorted set scored by DueAt in unix millis.
type redisJobStore struct {
	*baseDao
	encoderDecoder util.EncoderDecoder[model.Job]
}

func NewRedisJobStore(redisClient rd.UniversalClient, namespace string) *redisJobStore {
	return &redisJobStore{
		baseDao:        newBaseDao(redisClient, namespace),
		encoderDecoder: util.NewJsonEncoderDecoder[model.Job](),
	}
}

func (r *redisJobStore) Add(ctx context.Context, job *model.Job) error {
	data, err := r.encoderDecoder.Encode(*job)
	if err != nil {
		return err
	}
	_, err = r.redisClient.TxPipelined(ctx, func(pipe rd.Pipeliner) error {
		pipe.HSet(ctx, r.getNamespaceKey(JOB_KEY), job.Id, string(data))
		pipe.ZAdd(ctx, r.getNamespaceKey(JOB_DUE_KEY), rd.Z{Score: score(job.DueAt), Member: job.Id})
		return nil
	})
	if err != nil {
		logger.Error("error in adding job", zap.String("job", job.Id), zap.Error(err))
		return persistence.StorageLayerError{Message: err.Error()}
	}
	return nil
}

func (r *redisJobStore) Get(ctx context.Context, id string) (*model.Job, error) {
	for _, key := range []string{JOB_KEY, JOB_DEAD_KEY} {
		data, err := r.redisClient.HGet(ctx, r.getNamespaceKey(key), id).Result()
		if err != nil {
			if errors.Is(err, rd.Nil) {
				continue
			}
			return nil, persistence.StorageLayerError{Message: err.Error()}
		}
		return r.encoderDecoder.DecodeString(data)
	}
	return nil, fmt.Errorf("job %s: %w", id, persistence.ErrNotFound)
}

func (r *redisJobStore) DeadLetters(ctx context.Context) ([]*model.Job, error) {
	values, err := r.redisClient.HVals(ctx, r.getNamespaceKey(JOB_DEAD_KEY)).Result()
	if err != nil {
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	return r.encoderDecoder.DecodeAll(values)
}

// Begin opens a scope whose writes are queued on a MULTI/EXEC pipeline.
func (r *redisJobStore) Begin(ctx context.Context) (persistence.JobScope, error) {
	return &redisJobScope{
		store: r,
		pipe:  r.redisClient.TxPipeline(),
	}, nil
}

type redisJobScope struct {
	store *redisJobStore
	pipe  rd.Pipeliner
}

func (sc *redisJobScope) Due(ctx context.Context, now time.Time) ([]*model.Job, error) {
	r := sc.store
	opt := &rd.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(now.UnixMilli(), 10),
	}
	ids, err := r.redisClient.ZRangeByScore(ctx, r.getNamespaceKey(JOB_DUE_KEY), opt).Result()
	if err != nil {
		if errors.Is(err, rd.Nil) {
			return []*model.Job{}, nil
		}
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	if len(ids) == 0 {
		return []*model.Job{}, nil
	}
	values, err := r.redisClient.HMGet(ctx, r.getNamespaceKey(JOB_KEY), ids...).Result()
	if err != nil {
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	jobs := make([]*model.Job, 0, len(values))
	for i, v := range values {
		data, ok := v.(string)
		if !ok {
			logger.Warn("due index points at missing job", zap.String("job", ids[i]))
			continue
		}
		job, err := r.encoderDecoder.DecodeString(data)
		if err != nil {
			logger.Error("error decoding job", zap.String("job", ids[i]), zap.Error(err))
			continue
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

func (sc *redisJobScope) Remove(ctx context.Context, id string) error {
	r := sc.store
	sc.pipe.HDel(ctx, r.getNamespaceKey(JOB_KEY), id)
	sc.pipe.ZRem(ctx, r.getNamespaceKey(JOB_DUE_KEY), id)
	return nil
}

func (sc *redisJobScope) Save(ctx context.Context, job *model.Job) error {
	r := sc.store
	data, err := r.encoderDecoder.Encode(*job)
	if err != nil {
		return err
	}
	sc.pipe.HSet(ctx, r.getNamespaceKey(JOB_KEY), job.Id, string(data))
	sc.pipe.ZAdd(ctx, r.getNamespaceKey(JOB_DUE_KEY), rd.Z{Score: score(job.DueAt), Member: job.Id})
	return nil
}

func (sc *redisJobScope) DeadLetter(ctx context.Context, job *model.Job) error {
	r := sc.store
	data, err := r.encoderDecoder.Encode(*job)
	if err != nil {
		return err
	}
	sc.pipe.HDel(ctx, r.getNamespaceKey(JOB_KEY), job.Id)
	sc.pipe.ZRem(ctx, r.getNamespaceKey(JOB_DUE_KEY), job.Id)
	sc.pipe.HSet(ctx, r.getNamespaceKey(JOB_DEAD_KEY), job.Id, string(data))
	return nil
}

func (sc *redisJobScope) Commit(ctx context.Context) error {
	if sc.pipe.Len() == 0 {
		return nil
	}
	if _, err := sc.pipe.Exec(ctx); err != nil {
		return persistence.StorageLayerError{Message: err.Error()}
	}
	return nil
}

func (sc *redisJobScope) Rollback(ctx context.Context) {
	sc.pipe = sc.store.redisClient.TxPipeline()
}

func score(t time.Time) float64 {
	return float64(t.UnixMilli())
}
