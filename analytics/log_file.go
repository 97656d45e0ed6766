package analytics

import (
	"context"
	"os"

	"github.com/mohitkumar/tokenflow/model"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var _ EventSink = new(LogFileSink)

// LogFileSink appends events to a file as JSON lines.
type LogFileSink struct {
	fileName string
	logger   *zap.Logger
}

func NewLogFileSink(fileName string) (*LogFileSink, error) {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.StacktraceKey = ""
	fileEncoder := zapcore.NewJSONEncoder(encoderConfig)
	logFile, err := os.OpenFile(fileName, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	writer := zapcore.AddSync(logFile)
	core := zapcore.NewCore(fileEncoder, writer, zapcore.InfoLevel)
	return &LogFileSink{
		fileName: fileName,
		logger:   zap.New(core),
	}, nil
}

func (lc *LogFileSink) Record(ctx context.Context, event model.Event) error {
	lc.logger.Info(string(event.EventType),
		zap.String("instance", event.InstanceRef),
		zap.String("tenant", event.TenantTag),
		zap.Time("eventTime", event.Timestamp),
		zap.Any("payload", event.Payload),
	)
	return nil
}

func (lc *LogFileSink) Close() error {
	return lc.logger.Sync()
}
