package redis

import (
	"context"
	"errors"
	"fmt"
	"sort"

	rd "github.com/go-redis/redis/v9"
	"github.com/mohitkumar/tokenflow/logger"
	"github.com/mohitkumar/tokenflow/model"
	"github.com/mohitkumar/tokenflow/persistence"
	"github.com/mohitkumar/tokenflow/util"
	"go.uber.org/zap"
)

const PROCESS_DEF string = "PROCESS"
const DECISION_DEF string = "DECISION"
const INSTANCE_KEY string = "INSTANCE"

var _ persistence.DefinitionStore = new(redisDefinitionStore)
var _ persistence.InstanceStore = new(redisInstanceStore)

type redisDefinitionStore struct {
	*baseDao
}

func NewRedisDefinitionStore(redisClient rd.UniversalClient, namespace string) *redisDefinitionStore {
	return &redisDefinitionStore{
		baseDao: newBaseDao(redisClient, namespace),
	}
}

func (r *redisDefinitionStore) SaveProcess(ctx context.Context, id string, source []byte) error {
	return r.save(ctx, PROCESS_DEF, id, source)
}

func (r *redisDefinitionStore) GetProcess(ctx context.Context, id string) ([]byte, error) {
	return r.get(ctx, PROCESS_DEF, id)
}

func (r *redisDefinitionStore) ListProcesses(ctx context.Context) ([]string, error) {
	ids, err := r.redisClient.HKeys(ctx, r.getNamespaceKey(PROCESS_DEF)).Result()
	if err != nil {
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	sort.Strings(ids)
	return ids, nil
}

func (r *redisDefinitionStore) SaveDecision(ctx context.Context, key string, source []byte) error {
	return r.save(ctx, DECISION_DEF, key, source)
}

func (r *redisDefinitionStore) GetDecision(ctx context.Context, key string) ([]byte, error) {
	return r.get(ctx, DECISION_DEF, key)
}

func (r *redisDefinitionStore) save(ctx context.Context, kind string, id string, source []byte) error {
	if err := r.redisClient.HSet(ctx, r.getNamespaceKey(kind), id, string(source)).Err(); err != nil {
		logger.Error("error in saving definition", zap.String("kind", kind), zap.String("id", id), zap.Error(err))
		return persistence.StorageLayerError{Message: err.Error()}
	}
	return nil
}

func (r *redisDefinitionStore) get(ctx context.Context, kind string, id string) ([]byte, error) {
	val, err := r.redisClient.HGet(ctx, r.getNamespaceKey(kind), id).Result()
	if err != nil {
		if errors.Is(err, rd.Nil) {
			return nil, fmt.Errorf("%s %s: %w", kind, id, persistence.ErrNotFound)
		}
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	return []byte(val), nil
}

type redisInstanceStore struct {
	*baseDao
	encoderDecoder util.EncoderDecoder[model.InstanceRecord]
}

func NewRedisInstanceStore(redisClient rd.UniversalClient, namespace string) *redisInstanceStore {
	return &redisInstanceStore{
		baseDao:        newBaseDao(redisClient, namespace),
		encoderDecoder: util.NewJsonEncoderDecoder[model.InstanceRecord](),
	}
}

func (r *redisInstanceStore) SaveInstance(ctx context.Context, rec *model.InstanceRecord) error {
	data, err := r.encoderDecoder.Encode(*rec)
	if err != nil {
		return err
	}
	if err := r.redisClient.HSet(ctx, r.getNamespaceKey(INSTANCE_KEY), rec.Id, string(data)).Err(); err != nil {
		return persistence.StorageLayerError{Message: err.Error()}
	}
	return nil
}

func (r *redisInstanceStore) GetInstance(ctx context.Context, id string) (*model.InstanceRecord, error) {
	val, err := r.redisClient.HGet(ctx, r.getNamespaceKey(INSTANCE_KEY), id).Result()
	if err != nil {
		if errors.Is(err, rd.Nil) {
			return nil, fmt.Errorf("instance %s: %w", id, persistence.ErrNotFound)
		}
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	return r.encoderDecoder.DecodeString(val)
}
