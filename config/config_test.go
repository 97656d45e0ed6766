package config

import (
	"testing"

	"github.com/mohitkumar/tokenflow/engine"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	for scenario, fn := range map[string]func(t *testing.T){
		"memory storage is valid": func(t *testing.T) {
			require.NoError(t, Config{StorageType: STORAGE_TYPE_INMEM}.Validate())
		},
		"redis needs an address": func(t *testing.T) {
			require.Error(t, Config{StorageType: STORAGE_TYPE_REDIS}.Validate())
			conf := Config{StorageType: STORAGE_TYPE_REDIS, RedisConfig: RedisStorageConfig{Addrs: []string{"localhost:6379"}}}
			require.NoError(t, conf.Validate())
		},
		"unknown storage": func(t *testing.T) {
			require.Error(t, Config{StorageType: "dynamo"}.Validate())
		},
		"gateway mode": func(t *testing.T) {
			mode, err := Config{GatewayMode: "fork"}.EngineGatewayMode()
			require.NoError(t, err)
			require.Equal(t, engine.ModeFork, mode)
			mode, err = Config{}.EngineGatewayMode()
			require.NoError(t, err)
			require.Equal(t, engine.ModeTrace, mode)
			_, err = Config{StorageType: STORAGE_TYPE_INMEM, GatewayMode: "parallel"}.EngineGatewayMode()
			require.Error(t, err)
		},
	} {
		t.Run(scenario, fn)
	}
}
