package dispatch

import (
	"context"
	"fmt"

	"github.com/mohitkumar/tokenflow/logger"
	"github.com/mohitkumar/tokenflow/model"
	"go.uber.org/zap"
)

var _ Dispatcher = new(LocalDispatcher)

// LocalDispatcher runs handlers inline on the caller's goroutine.
type LocalDispatcher struct {
	registry *Registry
}

func NewLocalDispatcher(registry *Registry) *LocalDispatcher {
	return &LocalDispatcher{
		registry: registry,
	}
}

func (d *LocalDispatcher) Dispatch(ctx context.Context, req *model.DispatchRequest) (err error) {
	handler, ok := d.registry.Get(req.ImplementationKey)
	if !ok {
		return wrap(req, ErrHandlerNotFound)
	}
	if req.Variables == nil {
		req.Variables = make(map[string]any)
	}
	defer func() {
		if r := recover(); r != nil {
			err = wrap(req, fmt.Errorf("handler panicked: %v", r))
		}
		if err != nil {
			logger.Error("local dispatch failed", zap.String("implementation", req.ImplementationKey), zap.String("instance", req.InstanceRef), zap.Error(err))
		}
	}()
	logger.Debug("dispatching locally", zap.String("implementation", req.ImplementationKey), zap.String("instance", req.InstanceRef))
	if err := handler(ctx, req); err != nil {
		return wrap(req, err)
	}
	return nil
}
