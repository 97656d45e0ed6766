package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	rd "github.com/go-redis/redis/v9"
	"github.com/mohitkumar/tokenflow/cluster"
	"github.com/mohitkumar/tokenflow/logger"
	"github.com/mohitkumar/tokenflow/model"
	"go.uber.org/zap"
)

var _ Dispatcher = new(RemoteDispatcher)

var ErrNoTargetWorker = errors.New("remote dispatch requires a target worker id")

// RemoteDispatcher publishes requests to a redis list per worker partition.
// The partition comes from the request routing key, so requests sharing a key
// are consumed in order by a single replica.
type RemoteDispatcher struct {
	redisClient rd.UniversalClient
	namespace   string
	ring        *cluster.Ring
}

func NewRemoteDispatcher(redisClient rd.UniversalClient, namespace string, ring *cluster.Ring) *RemoteDispatcher {
	return &RemoteDispatcher{
		redisClient: redisClient,
		namespace:   namespace,
		ring:        ring,
	}
}

func QueueKey(namespace string, workerId string, partition int) string {
	return fmt.Sprintf("%s:%s", namespace, strings.Join([]string{"dispatch", workerId, strconv.Itoa(partition)}, ":"))
}

func (d *RemoteDispatcher) Dispatch(ctx context.Context, req *model.DispatchRequest) error {
	if req.TargetWorkerId == "" {
		return wrap(req, ErrNoTargetWorker)
	}
	msg, err := Encode(req)
	if err != nil {
		return wrap(req, err)
	}
	queueName := QueueKey(d.namespace, req.TargetWorkerId, d.ring.Partition(req.RoutingKey()))
	if err := d.redisClient.LPush(ctx, queueName, msg).Err(); err != nil {
		logger.Error("error while push to redis list", zap.String("queue", queueName), zap.Error(err))
		return wrap(req, err)
	}
	logger.Debug("dispatched remotely", zap.String("queue", queueName), zap.String("implementation", req.ImplementationKey))
	return nil
}
