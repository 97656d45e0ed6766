package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/mohitkumar/tokenflow/agent"
	"github.com/mohitkumar/tokenflow/bpmn"
	"github.com/mohitkumar/tokenflow/cluster"
	"github.com/mohitkumar/tokenflow/config"
	"github.com/mohitkumar/tokenflow/decision"
	"github.com/mohitkumar/tokenflow/dispatch"
	"github.com/mohitkumar/tokenflow/dispatch/handlers"
	"github.com/mohitkumar/tokenflow/dmn"
	"github.com/mohitkumar/tokenflow/engine"
	"github.com/mohitkumar/tokenflow/persistence/redis"
	"github.com/mohitkumar/tokenflow/worker"
	"github.com/spf13/cobra"
)

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func (c *cli) serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the rest server and the job scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := agent.New(c.cfg)
			if err != nil {
				return err
			}
			ctx, cancel := signalContext()
			defer cancel()
			if err := a.Start(ctx); err != nil {
				return err
			}
			<-ctx.Done()
			return a.Shutdown()
		},
	}
}

func loadTables(path string) (decision.MapSource, error) {
	source := decision.MapSource{}
	if path == "" {
		return source, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	tables, err := dmn.Build(data)
	if err != nil {
		return nil, err
	}
	for _, t := range tables {
		source[t.Key] = t
	}
	return source, nil
}

func parseVariables(raw string) (map[string]any, error) {
	if raw == "" {
		return nil, nil
	}
	var vars map[string]any
	if err := json.Unmarshal([]byte(raw), &vars); err != nil {
		return nil, fmt.Errorf("variables must be a json object: %w", err)
	}
	return vars, nil
}

func (c *cli) runCommand() *cobra.Command {
	var dmnFile, vars string
	cmd := &cobra.Command{
		Use:   "run <bpmn-file>",
		Short: "Walk a process definition once and print its trace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			graph, err := bpmn.Build(data)
			if err != nil {
				return err
			}
			tables, err := loadTables(dmnFile)
			if err != nil {
				return err
			}
			variables, err := parseVariables(vars)
			if err != nil {
				return err
			}
			mode, err := c.cfg.EngineGatewayMode()
			if err != nil {
				return err
			}
			registry := dispatch.NewRegistry()
			if err := handlers.RegisterBuiltins(registry); err != nil {
				return err
			}
			eng := engine.New(
				engine.WithDecisions(decision.NewService(tables, decision.NewEvaluator())),
				engine.WithDispatcher(dispatch.NewLocalDispatcher(registry)),
				engine.WithConditions(engine.ExprConditions()),
				engine.WithMaxSteps(c.cfg.MaxSteps),
				engine.WithGatewayMode(mode),
			)
			ctx, cancel := signalContext()
			defer cancel()
			trace, err := eng.Execute(ctx, graph, variables)
			for _, line := range trace.Strings() {
				fmt.Fprintln(cmd.OutOrStdout(), line)
			}
			return err
		},
	}
	cmd.Flags().StringVar(&dmnFile, "dmn", "", "DMN file holding the decisions of business rule tasks")
	cmd.Flags().StringVar(&vars, "vars", "", "process variables as a json object")
	return cmd
}

func (c *cli) evalCommand() *cobra.Command {
	var inputs string
	cmd := &cobra.Command{
		Use:   "eval <dmn-file> <decision-key>",
		Short: "Evaluate one decision table and print its result",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			tables, err := loadTables(args[0])
			if err != nil {
				return err
			}
			in, err := parseVariables(inputs)
			if err != nil {
				return err
			}
			res, err := decision.NewService(tables, decision.NewEvaluator()).Decide(args[1], in)
			if err != nil {
				return err
			}
			out, err := json.Marshal(res)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}
	cmd.Flags().StringVar(&inputs, "inputs", "", "decision inputs as a json object")
	return cmd
}

func (c *cli) workerCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Consume dispatch requests addressed to --worker-id from redis",
		RunE: func(cmd *cobra.Command, args []string) error {
			if c.cfg.StorageType != config.STORAGE_TYPE_REDIS {
				return fmt.Errorf("worker needs --storage-impl=redis")
			}
			rc := c.cfg.RedisConfig
			client := redis.NewClient(redis.Config{Addrs: rc.Addrs, Password: rc.Password, PoolSize: rc.PoolSize})
			defer client.Close()

			registry := dispatch.NewRegistry()
			if err := handlers.RegisterBuiltins(registry); err != nil {
				return err
			}
			ring := cluster.NewRing(cluster.RingConfig{PartitionCount: c.cfg.Partitions})
			for _, r := range c.cfg.Replicas {
				ring.Join(r)
			}
			wg := &sync.WaitGroup{}
			poller := worker.NewTaskPoller(worker.WorkerConfiguration{
				WorkerId:  c.cfg.WorkerId,
				ReplicaId: c.cfg.ReplicaId,
				Namespace: rc.Namespace,
			}, client, ring, registry, wg)

			ctx, cancel := signalContext()
			defer cancel()
			poller.Start(ctx)
			<-ctx.Done()
			poller.Stop()
			wg.Wait()
			return nil
		},
	}
}
