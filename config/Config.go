package config

import (
	"fmt"
	"time"

	"github.com/mohitkumar/tokenflow/analytics"
	"github.com/mohitkumar/tokenflow/engine"
	"github.com/mohitkumar/tokenflow/scheduler"
)

type StorageType string

const STORAGE_TYPE_REDIS StorageType = "redis"
const STORAGE_TYPE_INMEM StorageType = "memory"

type Config struct {
	RedisConfig     RedisStorageConfig
	StorageType     StorageType
	HttpPort        int
	LogLevel        string
	Development     bool
	PollInterval    time.Duration
	Retry           scheduler.RetryPolicy
	MaxSteps        int
	GatewayMode     string
	CacheTTL        time.Duration
	WorkerId        string
	ReplicaId       string
	Replicas        []string
	Partitions      int
	AnalyticsConfig analytics.SinkConfig
}

type RedisStorageConfig struct {
	Addrs     []string
	Namespace string
	PoolSize  int
	Password  string
}

func (c Config) Validate() error {
	switch c.StorageType {
	case STORAGE_TYPE_REDIS:
		if len(c.RedisConfig.Addrs) == 0 {
			return fmt.Errorf("redis storage needs at least one address")
		}
	case STORAGE_TYPE_INMEM:
	default:
		return fmt.Errorf("unknown storage type %q", c.StorageType)
	}
	if _, err := c.EngineGatewayMode(); err != nil {
		return err
	}
	return nil
}

func (c Config) EngineGatewayMode() (engine.GatewayMode, error) {
	switch c.GatewayMode {
	case "", "trace":
		return engine.ModeTrace, nil
	case "fork":
		return engine.ModeFork, nil
	}
	return engine.ModeTrace, fmt.Errorf("unknown gateway mode %q", c.GatewayMode)
}
