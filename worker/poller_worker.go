package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	rd "github.com/go-redis/redis/v9"
	"github.com/mohitkumar/tokenflow/dispatch"
	"github.com/mohitkumar/tokenflow/logger"
	"go.uber.org/zap"
)

// pollerWorker consumes one partition queue. A single consumer per partition
// keeps requests sharing a routing key in order.
type pollerWorker struct {
	redisClient  rd.UniversalClient
	queueName    string
	failedQueue  string
	dispatcher   dispatch.Dispatcher
	blockTimeout time.Duration
	wg           *sync.WaitGroup
}

func (pw *pollerWorker) Start(ctx context.Context) {
	pw.wg.Add(1)
	go func() {
		defer pw.wg.Done()
		logger.Info("partition poller started", zap.String("queue", pw.queueName))
		for {
			if ctx.Err() != nil {
				logger.Info("partition poller stopped", zap.String("queue", pw.queueName))
				return
			}
			pw.pollOnce(ctx)
		}
	}()
}

func (pw *pollerWorker) pollOnce(ctx context.Context) {
	res, err := pw.redisClient.BRPop(ctx, pw.blockTimeout, pw.queueName).Result()
	if err != nil {
		if errors.Is(err, rd.Nil) || ctx.Err() != nil {
			return
		}
		logger.Error("error while polling dispatch queue", zap.String("queue", pw.queueName), zap.Error(err))
		time.Sleep(pw.blockTimeout)
		return
	}
	// BRPOP answers [key, value]
	msg := res[1]
	req, err := dispatch.Decode([]byte(msg))
	if err != nil {
		logger.Error("dropping undecodable dispatch request", zap.String("queue", pw.queueName), zap.Error(err))
		return
	}
	if err := pw.dispatcher.Dispatch(ctx, req); err != nil {
		logger.Error("remote request failed", zap.String("queue", pw.queueName), zap.String("implementation", req.ImplementationKey), zap.String("instance", req.InstanceRef), zap.Error(err))
		if perr := pw.redisClient.LPush(ctx, pw.failedQueue, msg).Err(); perr != nil {
			logger.Error("error while pushing to failed queue", zap.String("queue", pw.failedQueue), zap.Error(perr))
		}
	}
}
