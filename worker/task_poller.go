package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	rd "github.com/go-redis/redis/v9"
	"github.com/mohitkumar/tokenflow/cluster"
	"github.com/mohitkumar/tokenflow/dispatch"
	"github.com/mohitkumar/tokenflow/logger"
	"go.uber.org/zap"
)

// FailedQueueKey is where requests whose handler failed are parked.
func FailedQueueKey(namespace string, workerId string) string {
	return fmt.Sprintf("%s:dispatch:%s:failed", namespace, workerId)
}

// TaskPoller runs the requests addressed to one worker id, reading every
// partition this replica owns on the ring.
type TaskPoller struct {
	Config      WorkerConfiguration
	redisClient rd.UniversalClient
	ring        *cluster.Ring
	dispatcher  dispatch.Dispatcher
	wg          *sync.WaitGroup
	cancel      context.CancelFunc
}

func NewTaskPoller(conf WorkerConfiguration, redisClient rd.UniversalClient, ring *cluster.Ring, registry *dispatch.Registry, wg *sync.WaitGroup) *TaskPoller {
	if conf.BlockTimeout <= 0 {
		conf.BlockTimeout = time.Second
	}
	if conf.ReplicaId == "" {
		conf.ReplicaId = conf.WorkerId
	}
	return &TaskPoller{
		Config:      conf,
		redisClient: redisClient,
		ring:        ring,
		dispatcher:  dispatch.NewLocalDispatcher(registry),
		wg:          wg,
	}
}

func (tp *TaskPoller) Start(ctx context.Context) {
	ctx, tp.cancel = context.WithCancel(ctx)
	tp.ring.Join(tp.Config.ReplicaId)
	partitions := tp.ring.OwnedBy(tp.Config.ReplicaId)
	for _, p := range partitions {
		pw := &pollerWorker{
			redisClient:  tp.redisClient,
			queueName:    dispatch.QueueKey(tp.Config.Namespace, tp.Config.WorkerId, p),
			failedQueue:  FailedQueueKey(tp.Config.Namespace, tp.Config.WorkerId),
			dispatcher:   tp.dispatcher,
			blockTimeout: tp.Config.BlockTimeout,
			wg:           tp.wg,
		}
		pw.Start(ctx)
	}
	logger.Info("task poller started", zap.String("worker", tp.Config.WorkerId), zap.String("replica", tp.Config.ReplicaId), zap.Ints("partitions", partitions))
}

// Run starts the poller and blocks until ctx is cancelled and every partition
// poller has returned.
func (tp *TaskPoller) Run(ctx context.Context) {
	tp.Start(ctx)
	<-ctx.Done()
	tp.wg.Wait()
}

func (tp *TaskPoller) Stop() {
	if tp.cancel != nil {
		tp.cancel()
	}
	tp.ring.Leave(tp.Config.ReplicaId)
}
