package analytics

import (
	"context"
	"errors"
	"fmt"

	"github.com/mohitkumar/tokenflow/logger"
	"github.com/mohitkumar/tokenflow/model"
	"go.uber.org/zap"
)

type SinkConfig struct {
	FileName string
	SinkType SinkType
}

type SinkType string

const LOG_FILE_SINK SinkType = "LOG_FILE_SINK"
const MEMORY_SINK SinkType = "MEMORY_SINK"
const LOGGER_SINK SinkType = "LOGGER_SINK"

// EventSink receives job and process outcome events.
type EventSink interface {
	Record(ctx context.Context, event model.Event) error
}

func NewSink(config SinkConfig) (EventSink, error) {
	switch config.SinkType {
	case LOG_FILE_SINK:
		return NewLogFileSink(config.FileName)
	case MEMORY_SINK, "":
		return NewMemorySink(), nil
	case LOGGER_SINK:
		return LoggerSink{}, nil
	}
	return nil, fmt.Errorf("unknown sink type %s", config.SinkType)
}

// LoggerSink writes events to the process logger at debug level.
type LoggerSink struct{}

func (LoggerSink) Record(ctx context.Context, event model.Event) error {
	logger.Debug(string(event.EventType),
		zap.String("instance", event.InstanceRef),
		zap.String("tenant", event.TenantTag),
		zap.Any("payload", event.Payload),
	)
	return nil
}

// MultiSink records every event to each sink and joins the failures.
type MultiSink []EventSink

func (m MultiSink) Record(ctx context.Context, event model.Event) error {
	var errs []error
	for _, s := range m {
		if err := s.Record(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
