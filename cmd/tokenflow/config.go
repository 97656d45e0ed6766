package main

import (
	"strings"
	"time"

	"github.com/mohitkumar/tokenflow/analytics"
	"github.com/mohitkumar/tokenflow/config"
	"github.com/mohitkumar/tokenflow/logger"
	"github.com/mohitkumar/tokenflow/scheduler"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type cli struct {
	cfg config.Config
}

func setupFlags(cmd *cobra.Command) error {
	defaults := scheduler.DefaultRetryPolicy()
	flags := cmd.PersistentFlags()
	flags.String("config-file", "", "Path to config file.")
	flags.String("redis-addr", "localhost:6379", "comma separated list of redis host:port")
	flags.String("redis-password", "", "redis password")
	flags.Int("redis-pool-size", 0, "redis connection pool size, 0 for the client default")
	flags.String("namespace", "tokenflow", "namespace used in storage")
	flags.String("storage-impl", "memory", "implementation of underline storage, redis or memory")
	flags.Int("http-port", 8080, "http port for rest endpoints")
	flags.String("log-level", "info", "log level: debug, info, warn, error")
	flags.Bool("log-development", false, "human readable development logging")
	flags.Duration("poll-interval", time.Second, "interval between scheduler polls")
	flags.Int("retry-max-attempts", defaults.MaxAttempts, "attempts before a job is dead lettered, 0 for unlimited")
	flags.Duration("retry-initial-interval", defaults.InitialInterval, "delay before the first retry")
	flags.Duration("retry-max-interval", defaults.MaxInterval, "upper bound of the retry delay")
	flags.Float64("retry-multiplier", defaults.Multiplier, "growth factor of the retry delay")
	flags.Int("max-steps", 0, "step limit of a single process walk, 0 for the engine default")
	flags.String("gateway-mode", "trace", "parallel gateway handling: trace or fork")
	flags.Duration("cache-ttl", 0, "ttl of parsed definitions in the metadata cache, 0 to keep forever")
	flags.String("worker-id", "local", "worker id served in process")
	flags.String("replica-id", "", "name of this replica on the partition ring, defaults to the worker id")
	flags.String("replicas", "", "comma separated replica ids sharing the worker id, splits partitions between them")
	flags.Int("partitions", 16, "dispatch partitions per worker")
	flags.String("event-log", "", "file receiving job and process events, empty sends them to the debug log")
	return viper.BindPFlags(flags)
}

func (c *cli) setupConfig(cmd *cobra.Command, args []string) error {
	var err error

	configFile, err := cmd.Flags().GetString("config-file")
	if err != nil {
		return err
	}
	if configFile != "" {
		viper.SetConfigFile(configFile)
		if err = viper.ReadInConfig(); err != nil {
			// it's ok if config file doesn't exist
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return err
			}
		}
	}
	viper.SetEnvPrefix("TOKENFLOW")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	c.cfg.RedisConfig.Addrs = strings.Split(viper.GetString("redis-addr"), ",")
	c.cfg.RedisConfig.Namespace = viper.GetString("namespace")
	c.cfg.RedisConfig.Password = viper.GetString("redis-password")
	c.cfg.RedisConfig.PoolSize = viper.GetInt("redis-pool-size")
	c.cfg.StorageType = config.StorageType(viper.GetString("storage-impl"))
	c.cfg.HttpPort = viper.GetInt("http-port")
	c.cfg.LogLevel = viper.GetString("log-level")
	c.cfg.Development = viper.GetBool("log-development")
	c.cfg.PollInterval = viper.GetDuration("poll-interval")
	c.cfg.Retry = scheduler.RetryPolicy{
		MaxAttempts:     viper.GetInt("retry-max-attempts"),
		InitialInterval: viper.GetDuration("retry-initial-interval"),
		MaxInterval:     viper.GetDuration("retry-max-interval"),
		Multiplier:      viper.GetFloat64("retry-multiplier"),
	}
	c.cfg.MaxSteps = viper.GetInt("max-steps")
	c.cfg.GatewayMode = viper.GetString("gateway-mode")
	c.cfg.CacheTTL = viper.GetDuration("cache-ttl")
	c.cfg.WorkerId = viper.GetString("worker-id")
	c.cfg.ReplicaId = viper.GetString("replica-id")
	if replicas := viper.GetString("replicas"); replicas != "" {
		c.cfg.Replicas = strings.Split(replicas, ",")
	}
	c.cfg.Partitions = viper.GetInt("partitions")
	c.cfg.AnalyticsConfig = analytics.SinkConfig{SinkType: analytics.LOGGER_SINK}
	if file := viper.GetString("event-log"); file != "" {
		c.cfg.AnalyticsConfig = analytics.SinkConfig{SinkType: analytics.LOG_FILE_SINK, FileName: file}
	}
	return logger.Init(c.cfg.LogLevel, c.cfg.Development)
}
