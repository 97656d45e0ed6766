package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mohitkumar/tokenflow/analytics"
	"github.com/mohitkumar/tokenflow/engine"
	"github.com/mohitkumar/tokenflow/logger"
	"github.com/mohitkumar/tokenflow/metadata"
	"github.com/mohitkumar/tokenflow/model"
	"github.com/mohitkumar/tokenflow/persistence"
	"github.com/mohitkumar/tokenflow/scheduler"
	"go.uber.org/zap"
)

// ProcessService starts process instances and keeps their records.
type ProcessService struct {
	metadataService metadata.MetadataService
	engine          *engine.Engine
	instances       persistence.InstanceStore
	sink            analytics.EventSink
	scheduler       *scheduler.Scheduler
	now             func() time.Time
}

func NewProcessService(metadataService metadata.MetadataService, eng *engine.Engine, instances persistence.InstanceStore, sink analytics.EventSink, sched *scheduler.Scheduler) *ProcessService {
	return &ProcessService{
		metadataService: metadataService,
		engine:          eng,
		instances:       instances,
		sink:            sink,
		scheduler:       sched,
		now:             time.Now,
	}
}

// Start walks the process named in req as a new instance. A failed walk is
// reported in the returned record; only lookup and storage problems are
// returned as errors.
func (s *ProcessService) Start(ctx context.Context, req model.ProcessStartRequest) (*model.InstanceRecord, error) {
	graph, err := s.metadataService.GetProcess(ctx, req.ProcessId)
	if err != nil {
		return nil, err
	}
	variables := req.Variables
	if variables == nil {
		variables = make(map[string]any)
	}
	rec := &model.InstanceRecord{
		Id:        uuid.New().String(),
		ProcessId: graph.Id,
		TenantTag: req.TenantTag,
		State:     model.INSTANCE_RUNNING,
		CreatedAt: s.now(),
	}
	logger.Info("starting process", zap.String("process", graph.Id), zap.String("instance", rec.Id))
	s.emit(ctx, model.EVENT_PROCESS_STARTED, rec, nil)

	trace, walkErr := s.engine.ExecuteInstance(ctx, rec.Id, graph, variables)
	rec.Trace = trace.Strings()
	rec.Variables = variables
	rec.UpdatedAt = s.now()
	if walkErr != nil {
		rec.State = model.INSTANCE_FAILED
		rec.Error = walkErr.Error()
	} else {
		rec.State = model.INSTANCE_COMPLETED
	}
	if err := s.instances.SaveInstance(ctx, rec); err != nil {
		return nil, err
	}
	if walkErr != nil {
		s.emit(ctx, model.EVENT_PROCESS_FAILED, rec, map[string]any{"error": rec.Error})
		return rec, nil
	}
	s.emit(ctx, model.EVENT_PROCESS_COMPLETED, rec, map[string]any{"steps": len(trace)})
	s.scheduleReachedTimers(ctx, graph, trace, rec)
	return rec, nil
}

func (s *ProcessService) GetInstance(ctx context.Context, id string) (*model.InstanceRecord, error) {
	return s.instances.GetInstance(ctx, id)
}

// scheduleReachedTimers creates a timer job for every timer catch event the
// walk passed through.
func (s *ProcessService) scheduleReachedTimers(ctx context.Context, graph *model.ProcessGraph, trace engine.Trace, rec *model.InstanceRecord) {
	if s.scheduler == nil {
		return
	}
	for _, step := range trace {
		ev, ok := graph.Event(step.NodeId)
		if !ok || ev.Kind != model.EVENT_INTERMEDIATE_CATCH || ev.Timer == nil {
			continue
		}
		if _, err := s.ScheduleTimer(ctx, rec.Id, rec.TenantTag, ev); err != nil {
			logger.Error("error scheduling timer", zap.String("instance", rec.Id), zap.String("event", ev.Id), zap.Error(err))
		}
	}
}

// ScheduleTimer turns a timer event definition into a timer job for instanceRef.
func (s *ProcessService) ScheduleTimer(ctx context.Context, instanceRef string, tenant string, ev model.FlowEvent) (*model.Job, error) {
	if ev.Timer == nil {
		return nil, fmt.Errorf("event %s has no timer definition", ev.Id)
	}
	req, err := TimerRequest(*ev.Timer, s.now())
	if err != nil {
		return nil, fmt.Errorf("event %s: %w", ev.Id, err)
	}
	req.InstanceRef = instanceRef
	req.TenantTag = tenant
	req.Attributes = map[string]string{"implementation": TIMER_FIRED, "eventId": ev.Id}
	return s.scheduler.Schedule(ctx, req)
}

func (s *ProcessService) emit(ctx context.Context, t model.EventType, rec *model.InstanceRecord, payload map[string]any) {
	if payload == nil {
		payload = map[string]any{}
	}
	payload["processId"] = rec.ProcessId
	event := model.Event{
		EventType:   t,
		InstanceRef: rec.Id,
		TenantTag:   rec.TenantTag,
		Timestamp:   s.now(),
		Payload:     payload,
	}
	if err := s.sink.Record(ctx, event); err != nil {
		logger.Error("error recording process event", zap.String("event", string(t)), zap.String("instance", rec.Id), zap.Error(err))
	}
}
