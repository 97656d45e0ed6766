package agent

import (
	"context"
	"io"
	"sync"

	rd "github.com/go-redis/redis/v9"
	"github.com/mohitkumar/tokenflow/analytics"
	"github.com/mohitkumar/tokenflow/cluster"
	"github.com/mohitkumar/tokenflow/config"
	"github.com/mohitkumar/tokenflow/decision"
	"github.com/mohitkumar/tokenflow/dispatch"
	"github.com/mohitkumar/tokenflow/dispatch/handlers"
	"github.com/mohitkumar/tokenflow/engine"
	"github.com/mohitkumar/tokenflow/logger"
	"github.com/mohitkumar/tokenflow/metadata"
	"github.com/mohitkumar/tokenflow/persistence"
	"github.com/mohitkumar/tokenflow/persistence/memory"
	"github.com/mohitkumar/tokenflow/persistence/redis"
	"github.com/mohitkumar/tokenflow/rest"
	"github.com/mohitkumar/tokenflow/scheduler"
	"github.com/mohitkumar/tokenflow/service"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

type Agent struct {
	Config          config.Config
	redisClient     rd.UniversalClient
	ring            *cluster.Ring
	registry        *dispatch.Registry
	jobs            persistence.JobStore
	definitions     persistence.DefinitionStore
	instances       persistence.InstanceStore
	baseSink        analytics.EventSink
	sink            *analytics.AsyncSink
	metricsRegistry *prometheus.Registry
	metrics         *analytics.Metrics
	dispatcher      dispatch.Dispatcher
	engine          *engine.Engine
	metadataService *metadata.MetadataServiceImpl
	decisionService *decision.Service
	scheduler       *scheduler.Scheduler
	processService  *service.ProcessService
	httpServer      *rest.Server
	cancel          context.CancelFunc
	shutdown        bool
	shutdownLock    sync.Mutex
	wg              sync.WaitGroup
}

func New(conf config.Config) (*Agent, error) {
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	a := &Agent{
		Config:          conf,
		metricsRegistry: prometheus.NewRegistry(),
	}
	setup := []func() error{
		a.setupStorage,
		a.setupAnalytics,
		a.setupDispatch,
		a.setupMetadata,
		a.setupEngine,
		a.setupScheduler,
		a.setupProcessService,
		a.setupHttpServer,
	}
	for _, fn := range setup {
		if err := fn(); err != nil {
			return nil, err
		}
	}
	return a, nil
}

func (a *Agent) setupStorage() error {
	switch a.Config.StorageType {
	case config.STORAGE_TYPE_REDIS:
		rc := a.Config.RedisConfig
		a.redisClient = redis.NewClient(redis.Config{
			Addrs:     rc.Addrs,
			Namespace: rc.Namespace,
			PoolSize:  rc.PoolSize,
			Password:  rc.Password,
		})
		a.jobs = redis.NewRedisJobStore(a.redisClient, rc.Namespace)
		a.definitions = redis.NewRedisDefinitionStore(a.redisClient, rc.Namespace)
		a.instances = redis.NewRedisInstanceStore(a.redisClient, rc.Namespace)
	default:
		a.jobs = memory.NewJobStore()
		a.definitions = memory.NewDefinitionStore()
		a.instances = memory.NewInstanceStore()
	}
	logger.Info("storage configured", zap.String("type", string(a.Config.StorageType)))
	return nil
}

func (a *Agent) setupAnalytics() error {
	var err error
	a.baseSink, err = analytics.NewSink(a.Config.AnalyticsConfig)
	if err != nil {
		return err
	}
	a.sink = analytics.NewAsyncSink(a.baseSink, 1024)
	a.metrics = analytics.NewMetrics(a.metricsRegistry)
	return nil
}

func (a *Agent) setupDispatch() error {
	a.registry = dispatch.NewRegistry()
	if err := handlers.RegisterBuiltins(a.registry); err != nil {
		return err
	}
	local := dispatch.NewLocalDispatcher(a.registry)
	var remote dispatch.Dispatcher
	if a.redisClient != nil {
		a.ring = cluster.NewRing(cluster.RingConfig{PartitionCount: a.Config.Partitions})
		remote = dispatch.NewRemoteDispatcher(a.redisClient, a.Config.RedisConfig.Namespace, a.ring)
	}
	a.dispatcher = dispatch.NewRouter(a.Config.WorkerId, local, remote)
	return nil
}

func (a *Agent) setupMetadata() error {
	a.metadataService = metadata.NewMetadataService(a.definitions, a.Config.CacheTTL)
	a.decisionService = decision.NewService(a.metadataService, decision.NewEvaluator())
	return nil
}

func (a *Agent) setupEngine() error {
	mode, err := a.Config.EngineGatewayMode()
	if err != nil {
		return err
	}
	a.engine = engine.New(
		engine.WithDecisions(a.decisionService),
		engine.WithDispatcher(a.dispatcher),
		engine.WithConditions(engine.ExprConditions()),
		engine.WithMaxSteps(a.Config.MaxSteps),
		engine.WithGatewayMode(mode),
		engine.WithMetrics(a.metrics),
	)
	return nil
}

func (a *Agent) setupScheduler() error {
	conf := scheduler.Config{
		PollInterval: a.Config.PollInterval,
		Retry:        a.Config.Retry,
	}
	a.scheduler = scheduler.New(conf, a.jobs, a.dispatcher, a.sink, scheduler.WithMetrics(a.metrics))
	return nil
}

func (a *Agent) setupProcessService() error {
	a.processService = service.NewProcessService(a.metadataService, a.engine, a.instances, a.sink, a.scheduler)
	return a.processService.RegisterHandlers(a.registry)
}

func (a *Agent) setupHttpServer() error {
	var err error
	a.httpServer, err = rest.NewServer(a.Config.HttpPort, a.metadataService, a.processService,
		a.decisionService, a.scheduler, a.metricsRegistry)
	return err
}

func (a *Agent) ProcessService() *service.ProcessService {
	return a.processService
}

func (a *Agent) MetadataService() metadata.MetadataService {
	return a.metadataService
}

func (a *Agent) Start(ctx context.Context) error {
	ctx, a.cancel = context.WithCancel(ctx)
	if a.redisClient != nil {
		if err := a.redisClient.Ping(ctx).Err(); err != nil {
			a.cancel()
			return err
		}
	}
	a.scheduler.Start(ctx, &a.wg)
	go func() {
		if err := a.httpServer.Start(); err != nil {
			logger.Error("http server failed", zap.Error(err))
			_ = a.Shutdown()
		}
	}()
	return nil
}

func (a *Agent) Shutdown() error {
	logger.Info("shutting down server")
	a.shutdownLock.Lock()
	defer a.shutdownLock.Unlock()
	if a.shutdown {
		return nil
	}
	a.shutdown = true

	shutdown := []func() error{
		func() error {
			if a.cancel != nil {
				a.cancel()
			}
			a.scheduler.Stop()
			a.wg.Wait()
			return nil
		},
		a.httpServer.Stop,
		func() error {
			a.sink.Close()
			if c, ok := a.baseSink.(io.Closer); ok {
				return c.Close()
			}
			return nil
		},
		func() error {
			if a.redisClient != nil {
				return a.redisClient.Close()
			}
			return nil
		},
	}
	for _, fn := range shutdown {
		if err := fn(); err != nil {
			return err
		}
	}
	_ = logger.Sync()
	return nil
}
