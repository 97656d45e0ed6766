package handlers

import (
	"context"

	"github.com/mohitkumar/tokenflow/logger"
	"github.com/mohitkumar/tokenflow/model"
	"go.uber.org/zap"
)

const LOG = "log"

func Log(ctx context.Context, req *model.DispatchRequest) error {
	logger.Info("work item", zap.String("implementation", req.ImplementationKey), zap.String("instance", req.InstanceRef),
		zap.Any("attributes", req.Attributes), zap.Any("variables", req.Variables))
	return nil
}
